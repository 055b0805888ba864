// Package permit2 reproduces the transfer authority's EIP-712 typed-data
// hashing for every authorization shape the vault accepts. Digests produced
// here are what depositors sign off-chain and what the authority verifies
// on-chain, so the struct layouts below must match the authority's declared
// types bit for bit.
package permit2

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/crypto"
)

// Type strings are reproduced verbatim from the authority. A single stray
// character changes every digest in a way no existing signature can satisfy,
// and reordered fields produce well-formed digests that never match a real
// signer's expectation. Guarded by the conformance tests in hash_test.go.
const (
	permitDetailsTypeString = "PermitDetails(address token,uint160 amount,uint48 expiration,uint48 nonce)"

	permitSingleTypeString = "PermitSingle(PermitDetails details,address spender,uint256 sigDeadline)" + permitDetailsTypeString
	permitBatchTypeString  = "PermitBatch(PermitDetails[] details,address spender,uint256 sigDeadline)" + permitDetailsTypeString

	tokenPermissionsTypeString = "TokenPermissions(address token,uint256 amount)"

	permitTransferFromTypeString      = "PermitTransferFrom(TokenPermissions permitted,address spender,uint256 nonce,uint256 deadline)" + tokenPermissionsTypeString
	permitBatchTransferFromTypeString = "PermitBatchTransferFrom(TokenPermissions[] permitted,address spender,uint256 nonce,uint256 deadline)" + tokenPermissionsTypeString

	// Witness-extended layouts are completed at hash time by appending the
	// witness's own type-string fragment; see Witness.
	permitWitnessTransferFromPrefix      = "PermitWitnessTransferFrom(TokenPermissions permitted,address spender,uint256 nonce,uint256 deadline,"
	permitBatchWitnessTransferFromPrefix = "PermitBatchWitnessTransferFrom(TokenPermissions[] permitted,address spender,uint256 nonce,uint256 deadline,"

	eip712DomainTypeString = "EIP712Domain(string name,uint256 chainId,address verifyingContract)"
	authorityDomainName    = "Permit2"
)

var (
	permitDetailsTypeHash           = crypto.Keccak256Hash([]byte(permitDetailsTypeString))
	permitSingleTypeHash            = crypto.Keccak256Hash([]byte(permitSingleTypeString))
	permitBatchTypeHash             = crypto.Keccak256Hash([]byte(permitBatchTypeString))
	tokenPermissionsTypeHash        = crypto.Keccak256Hash([]byte(tokenPermissionsTypeString))
	permitTransferFromTypeHash      = crypto.Keccak256Hash([]byte(permitTransferFromTypeString))
	permitBatchTransferFromTypeHash = crypto.Keccak256Hash([]byte(permitBatchTransferFromTypeString))

	eip712DomainTypeHash    = crypto.Keccak256Hash([]byte(eip712DomainTypeString))
	authorityDomainNameHash = crypto.Keccak256Hash([]byte(authorityDomainName))
)

// addressWord encodes an address as a 32-byte abi word.
func addressWord(a common.Address) []byte {
	return common.LeftPadBytes(a.Bytes(), 32)
}

// uintWord encodes an unsigned integer as a 32-byte abi word. A nil value
// encodes as zero. Values are taken mod 2^256; the authority rejects anything
// outside its declared field widths at verification time.
func uintWord(x *big.Int) []byte {
	if x == nil {
		return make([]byte, 32)
	}
	return math.U256Bytes(new(big.Int).Set(x))
}

// hashStruct is keccak256(abi.encode(typeHash, words...)).
func hashStruct(typeHash common.Hash, words ...[]byte) common.Hash {
	enc := make([]byte, 0, 32*(len(words)+1))
	enc = append(enc, typeHash.Bytes()...)
	for _, w := range words {
		enc = append(enc, w...)
	}
	return crypto.Keccak256Hash(enc)
}

// eip712Digest is the final signable digest per EIP-712:
// keccak256(0x1901 || domainSeparator || structHash).
func eip712Digest(domainSeparator, structHash common.Hash) common.Hash {
	return crypto.Keccak256Hash([]byte{0x19, 0x01}, domainSeparator.Bytes(), structHash.Bytes())
}

// DomainSeparator reproduces the authority's EIP-712 domain for a given chain
// and deployment address. The deployed contract remains the source of truth;
// this helper exists for off-chain signing tooling and tests.
func DomainSeparator(chainID *big.Int, verifyingContract common.Address) common.Hash {
	return hashStruct(eip712DomainTypeHash,
		authorityDomainNameHash.Bytes(),
		uintWord(chainID),
		addressWord(verifyingContract),
	)
}

// HashPermitDetails returns the struct hash of a single allowance tuple.
func HashPermitDetails(d PermitDetails) common.Hash {
	return hashStruct(permitDetailsTypeHash,
		addressWord(d.Token),
		uintWord(d.Amount),
		uintWord(d.Expiration),
		uintWord(d.Nonce),
	)
}

// HashPermitSingle returns the signable digest of a single-token standing
// allowance authorization.
func HashPermitSingle(domainSeparator common.Hash, p PermitSingle) common.Hash {
	structHash := hashStruct(permitSingleTypeHash,
		HashPermitDetails(p.Details).Bytes(),
		addressWord(p.Spender),
		uintWord(p.SigDeadline),
	)
	return eip712Digest(domainSeparator, structHash)
}

// HashPermitBatch returns the signable digest of a batched standing allowance
// authorization. The inner hash is an ordered array hash: the keccak of the
// concatenated per-item struct hashes.
func HashPermitBatch(domainSeparator common.Hash, p PermitBatch) common.Hash {
	inner := make([]byte, 0, 32*len(p.Details))
	for _, d := range p.Details {
		h := HashPermitDetails(d)
		inner = append(inner, h.Bytes()...)
	}
	structHash := hashStruct(permitBatchTypeHash,
		crypto.Keccak256(inner),
		addressWord(p.Spender),
		uintWord(p.SigDeadline),
	)
	return eip712Digest(domainSeparator, structHash)
}

// HashTokenPermissions returns the struct hash of a one-shot (token, amount)
// permission.
func HashTokenPermissions(t TokenPermissions) common.Hash {
	return hashStruct(tokenPermissionsTypeHash,
		addressWord(t.Token),
		uintWord(t.Amount),
	)
}

// HashPermitTransferFrom returns the signable digest of a one-shot transfer
// authorization. The spender is not part of the signed struct the caller
// builds; the authority fills in its caller, so the vault's address is bound
// here.
func HashPermitTransferFrom(domainSeparator common.Hash, p PermitTransferFrom, spender common.Address) common.Hash {
	structHash := hashStruct(permitTransferFromTypeHash,
		HashTokenPermissions(p.Permitted).Bytes(),
		addressWord(spender),
		uintWord(p.Nonce),
		uintWord(p.Deadline),
	)
	return eip712Digest(domainSeparator, structHash)
}

// HashPermitBatchTransferFrom returns the signable digest of a batched
// one-shot transfer authorization.
func HashPermitBatchTransferFrom(domainSeparator common.Hash, p PermitBatchTransferFrom, spender common.Address) common.Hash {
	structHash := hashStruct(permitBatchTransferFromTypeHash,
		hashPermittedArray(p.Permitted),
		addressWord(spender),
		uintWord(p.Nonce),
		uintWord(p.Deadline),
	)
	return eip712Digest(domainSeparator, structHash)
}

// HashPermitWitnessTransferFrom extends the one-shot layout with a witness:
// the type hash is rebuilt from the base prefix plus the witness fragment,
// and the witness struct hash is appended after the base fields.
func HashPermitWitnessTransferFrom(domainSeparator common.Hash, p PermitTransferFrom, spender common.Address, w Witness) common.Hash {
	typeHash := crypto.Keccak256Hash([]byte(permitWitnessTransferFromPrefix + w.WitnessTypeString()))
	structHash := hashStruct(typeHash,
		HashTokenPermissions(p.Permitted).Bytes(),
		addressWord(spender),
		uintWord(p.Nonce),
		uintWord(p.Deadline),
		w.WitnessHash().Bytes(),
	)
	return eip712Digest(domainSeparator, structHash)
}

// HashPermitBatchWitnessTransferFrom is the batched counterpart of
// HashPermitWitnessTransferFrom.
func HashPermitBatchWitnessTransferFrom(domainSeparator common.Hash, p PermitBatchTransferFrom, spender common.Address, w Witness) common.Hash {
	typeHash := crypto.Keccak256Hash([]byte(permitBatchWitnessTransferFromPrefix + w.WitnessTypeString()))
	structHash := hashStruct(typeHash,
		hashPermittedArray(p.Permitted),
		addressWord(spender),
		uintWord(p.Nonce),
		uintWord(p.Deadline),
		w.WitnessHash().Bytes(),
	)
	return eip712Digest(domainSeparator, structHash)
}

func hashPermittedArray(permitted []TokenPermissions) []byte {
	inner := make([]byte, 0, 32*len(permitted))
	for _, t := range permitted {
		h := HashTokenPermissions(t)
		inner = append(inner, h.Bytes()...)
	}
	return crypto.Keccak256(inner)
}
