package caller

// permit2ABI is the subset of the canonical Permit2 ABI the vault consumes.
// Entry order matters: go-ethereum resolves the overloaded method names by
// suffixing later duplicates with "0", so the single-item overloads must stay
// ahead of their batched counterparts (permit/permit0, transferFrom/
// transferFrom0, permitTransferFrom/permitTransferFrom0,
// permitWitnessTransferFrom/permitWitnessTransferFrom0).
const permit2ABI = `[
  {
    "type": "function",
    "name": "permit",
    "stateMutability": "nonpayable",
    "inputs": [
      {"name": "owner", "type": "address"},
      {
        "name": "permitSingle", "type": "tuple",
        "components": [
          {
            "name": "details", "type": "tuple",
            "components": [
              {"name": "token", "type": "address"},
              {"name": "amount", "type": "uint160"},
              {"name": "expiration", "type": "uint48"},
              {"name": "nonce", "type": "uint48"}
            ]
          },
          {"name": "spender", "type": "address"},
          {"name": "sigDeadline", "type": "uint256"}
        ]
      },
      {"name": "signature", "type": "bytes"}
    ],
    "outputs": []
  },
  {
    "type": "function",
    "name": "permit",
    "stateMutability": "nonpayable",
    "inputs": [
      {"name": "owner", "type": "address"},
      {
        "name": "permitBatch", "type": "tuple",
        "components": [
          {
            "name": "details", "type": "tuple[]",
            "components": [
              {"name": "token", "type": "address"},
              {"name": "amount", "type": "uint160"},
              {"name": "expiration", "type": "uint48"},
              {"name": "nonce", "type": "uint48"}
            ]
          },
          {"name": "spender", "type": "address"},
          {"name": "sigDeadline", "type": "uint256"}
        ]
      },
      {"name": "signature", "type": "bytes"}
    ],
    "outputs": []
  },
  {
    "type": "function",
    "name": "transferFrom",
    "stateMutability": "nonpayable",
    "inputs": [
      {"name": "from", "type": "address"},
      {"name": "to", "type": "address"},
      {"name": "amount", "type": "uint160"},
      {"name": "token", "type": "address"}
    ],
    "outputs": []
  },
  {
    "type": "function",
    "name": "transferFrom",
    "stateMutability": "nonpayable",
    "inputs": [
      {
        "name": "transferDetails", "type": "tuple[]",
        "components": [
          {"name": "from", "type": "address"},
          {"name": "to", "type": "address"},
          {"name": "amount", "type": "uint160"},
          {"name": "token", "type": "address"}
        ]
      }
    ],
    "outputs": []
  },
  {
    "type": "function",
    "name": "permitTransferFrom",
    "stateMutability": "nonpayable",
    "inputs": [
      {
        "name": "permit", "type": "tuple",
        "components": [
          {
            "name": "permitted", "type": "tuple",
            "components": [
              {"name": "token", "type": "address"},
              {"name": "amount", "type": "uint256"}
            ]
          },
          {"name": "nonce", "type": "uint256"},
          {"name": "deadline", "type": "uint256"}
        ]
      },
      {
        "name": "transferDetails", "type": "tuple",
        "components": [
          {"name": "to", "type": "address"},
          {"name": "requestedAmount", "type": "uint256"}
        ]
      },
      {"name": "owner", "type": "address"},
      {"name": "signature", "type": "bytes"}
    ],
    "outputs": []
  },
  {
    "type": "function",
    "name": "permitTransferFrom",
    "stateMutability": "nonpayable",
    "inputs": [
      {
        "name": "permit", "type": "tuple",
        "components": [
          {
            "name": "permitted", "type": "tuple[]",
            "components": [
              {"name": "token", "type": "address"},
              {"name": "amount", "type": "uint256"}
            ]
          },
          {"name": "nonce", "type": "uint256"},
          {"name": "deadline", "type": "uint256"}
        ]
      },
      {
        "name": "transferDetails", "type": "tuple[]",
        "components": [
          {"name": "to", "type": "address"},
          {"name": "requestedAmount", "type": "uint256"}
        ]
      },
      {"name": "owner", "type": "address"},
      {"name": "signature", "type": "bytes"}
    ],
    "outputs": []
  },
  {
    "type": "function",
    "name": "permitWitnessTransferFrom",
    "stateMutability": "nonpayable",
    "inputs": [
      {
        "name": "permit", "type": "tuple",
        "components": [
          {
            "name": "permitted", "type": "tuple",
            "components": [
              {"name": "token", "type": "address"},
              {"name": "amount", "type": "uint256"}
            ]
          },
          {"name": "nonce", "type": "uint256"},
          {"name": "deadline", "type": "uint256"}
        ]
      },
      {
        "name": "transferDetails", "type": "tuple",
        "components": [
          {"name": "to", "type": "address"},
          {"name": "requestedAmount", "type": "uint256"}
        ]
      },
      {"name": "owner", "type": "address"},
      {"name": "witness", "type": "bytes32"},
      {"name": "witnessTypeString", "type": "string"},
      {"name": "signature", "type": "bytes"}
    ],
    "outputs": []
  },
  {
    "type": "function",
    "name": "permitWitnessTransferFrom",
    "stateMutability": "nonpayable",
    "inputs": [
      {
        "name": "permit", "type": "tuple",
        "components": [
          {
            "name": "permitted", "type": "tuple[]",
            "components": [
              {"name": "token", "type": "address"},
              {"name": "amount", "type": "uint256"}
            ]
          },
          {"name": "nonce", "type": "uint256"},
          {"name": "deadline", "type": "uint256"}
        ]
      },
      {
        "name": "transferDetails", "type": "tuple[]",
        "components": [
          {"name": "to", "type": "address"},
          {"name": "requestedAmount", "type": "uint256"}
        ]
      },
      {"name": "owner", "type": "address"},
      {"name": "witness", "type": "bytes32"},
      {"name": "witnessTypeString", "type": "string"},
      {"name": "signature", "type": "bytes"}
    ],
    "outputs": []
  },
  {
    "type": "function",
    "name": "DOMAIN_SEPARATOR",
    "stateMutability": "view",
    "inputs": [],
    "outputs": [{"name": "", "type": "bytes32"}]
  },
  {
    "type": "function",
    "name": "allowance",
    "stateMutability": "view",
    "inputs": [
      {"name": "user", "type": "address"},
      {"name": "token", "type": "address"},
      {"name": "spender", "type": "address"}
    ],
    "outputs": [
      {"name": "amount", "type": "uint160"},
      {"name": "expiration", "type": "uint48"},
      {"name": "nonce", "type": "uint48"}
    ]
  },
  {
    "type": "function",
    "name": "nonceBitmap",
    "stateMutability": "view",
    "inputs": [
      {"name": "", "type": "address"},
      {"name": "", "type": "uint256"}
    ],
    "outputs": [{"name": "", "type": "uint256"}]
  }
]`
