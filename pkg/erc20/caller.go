package erc20

import (
	"context"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	ethereumTypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/Layr-Labs/permit2-vault-go/pkg/transactionSigner"
)

const erc20ABI = `[
  {
    "type": "function",
    "name": "transfer",
    "stateMutability": "nonpayable",
    "inputs": [
      {"name": "to", "type": "address"},
      {"name": "amount", "type": "uint256"}
    ],
    "outputs": [{"name": "", "type": "bool"}]
  },
  {
    "type": "function",
    "name": "balanceOf",
    "stateMutability": "view",
    "inputs": [{"name": "account", "type": "address"}],
    "outputs": [{"name": "", "type": "uint256"}]
  }
]`

// multicall3ABI covers aggregate3, with allowFailure=false on every call so a
// single reverting leg reverts the whole batch.
const multicall3ABI = `[
  {
    "type": "function",
    "name": "aggregate3",
    "stateMutability": "payable",
    "inputs": [
      {
        "name": "calls", "type": "tuple[]",
        "components": [
          {"name": "target", "type": "address"},
          {"name": "allowFailure", "type": "bool"},
          {"name": "callData", "type": "bytes"}
        ]
      }
    ],
    "outputs": [
      {
        "name": "returnData", "type": "tuple[]",
        "components": [
          {"name": "success", "type": "bool"},
          {"name": "returnData", "type": "bytes"}
        ]
      }
    ]
  }
]`

// Multicall3Address is the canonical Multicall3 deployment, identical across
// supported chains.
var Multicall3Address = common.HexToAddress("0xcA11bde05977b3631167028862bE2a173976CA11")

type multicall3Call struct {
	Target       common.Address
	AllowFailure bool
	CallData     []byte
}

// Client implements IERC20Client over an ethclient. Batched transfers route
// through Multicall3 so the settlement is atomic on-chain.
type Client struct {
	tokenABI     abi.ABI
	multicallABI abi.ABI
	multicall    *bind.BoundContract
	ethclient    *ethclient.Client
	signer       transactionSigner.ITransactionSigner
	logger       *zap.Logger
}

var _ IERC20Client = (*Client)(nil)

func NewClient(
	client *ethclient.Client,
	signer transactionSigner.ITransactionSigner,
	logger *zap.Logger,
) (*Client, error) {
	tokenABI, err := abi.JSON(strings.NewReader(erc20ABI))
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse erc20 ABI")
	}
	multicallABI, err := abi.JSON(strings.NewReader(multicall3ABI))
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse multicall3 ABI")
	}

	return &Client{
		tokenABI:     tokenABI,
		multicallABI: multicallABI,
		multicall:    bind.NewBoundContract(Multicall3Address, multicallABI, client, client, client),
		ethclient:    client,
		signer:       signer,
		logger:       logger,
	}, nil
}

func (c *Client) Transfer(ctx context.Context, token common.Address, to common.Address, amount *big.Int) error {
	contract := bind.NewBoundContract(token, c.tokenABI, c.ethclient, c.ethclient, c.ethclient)

	opts, err := c.signer.GetTransactOpts(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to build transact opts")
	}

	tx, err := contract.Transact(opts, "transfer", to, amount)
	if err != nil {
		return errors.Wrapf(err, "failed to send transfer of %s", token.Hex())
	}

	return c.waitMined(ctx, tx, "transfer")
}

func (c *Client) TransferBatch(ctx context.Context, transfers []TokenTransfer) error {
	calls := make([]multicall3Call, 0, len(transfers))
	for _, t := range transfers {
		data, err := c.tokenABI.Pack("transfer", t.To, t.Amount)
		if err != nil {
			return errors.Wrapf(err, "failed to encode transfer of %s", t.Token.Hex())
		}
		calls = append(calls, multicall3Call{Target: t.Token, CallData: data})
	}

	opts, err := c.signer.GetTransactOpts(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to build transact opts")
	}

	tx, err := c.multicall.Transact(opts, "aggregate3", calls)
	if err != nil {
		return errors.Wrap(err, "failed to send batched transfer")
	}

	return c.waitMined(ctx, tx, "aggregate3")
}

func (c *Client) BalanceOf(ctx context.Context, token common.Address, holder common.Address) (*big.Int, error) {
	contract := bind.NewBoundContract(token, c.tokenABI, c.ethclient, c.ethclient, c.ethclient)

	var out []interface{}
	if err := contract.Call(&bind.CallOpts{Context: ctx}, &out, "balanceOf", holder); err != nil {
		return nil, errors.Wrapf(err, "failed to read balance of %s", token.Hex())
	}

	return *abi.ConvertType(out[0], new(*big.Int)).(**big.Int), nil
}

func (c *Client) waitMined(ctx context.Context, tx *ethereumTypes.Transaction, method string) error {
	receipt, err := bind.WaitMined(ctx, c.ethclient, tx)
	if err != nil {
		return errors.Wrapf(err, "failed waiting for %s to mine", method)
	}
	if receipt.Status != ethereumTypes.ReceiptStatusSuccessful {
		return errors.Errorf("%s reverted in tx %s", method, tx.Hash().Hex())
	}

	c.logger.Sugar().Debugw("Token transfer mined",
		"method", method,
		"txHash", tx.Hash().Hex(),
	)
	return nil
}
