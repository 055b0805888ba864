// Package authority defines the boundary to the external transfer authority:
// the deployed Permit2 contract that verifies signed authorizations and moves
// tokens on the vault's behalf. Signature verification, allowance expiry, and
// nonce bitmap bookkeeping all live behind this interface; the vault passes
// authorizations and signatures through verbatim.
package authority

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/Layr-Labs/permit2-vault-go/pkg/permit2"
)

// Allowance is the authority's recorded standing allowance for an
// (owner, token, spender) triple.
type Allowance struct {
	Amount     *big.Int
	Expiration *big.Int
	Nonce      *big.Int
}

type IAuthority interface {
	// Permit verifies a signed single-token allowance authorization and
	// records/refreshes the standing allowance. Fails on spender mismatch,
	// expired deadline, bad signature, or bad sequence number.
	Permit(ctx context.Context, owner common.Address, permit permit2.PermitSingle, signature []byte) error

	// PermitBatch is the batched form of Permit.
	PermitBatch(ctx context.Context, owner common.Address, permit permit2.PermitBatch, signature []byte) error

	// TransferFrom moves tokens using a previously registered, unexpired,
	// sufficient standing allowance granted to the caller.
	TransferFrom(ctx context.Context, from common.Address, to common.Address, amount *big.Int, token common.Address) error

	// BatchTransferFrom moves an ordered list of allowance-backed transfers.
	BatchTransferFrom(ctx context.Context, transfers []permit2.AllowanceTransferDetails) error

	// PermitTransferFrom atomically verifies a one-shot authorization and
	// moves the requested amount. Consumes the nonce on success only.
	PermitTransferFrom(
		ctx context.Context,
		permit permit2.PermitTransferFrom,
		transfer permit2.SignatureTransferDetails,
		owner common.Address,
		signature []byte,
	) error

	// PermitBatchTransferFrom is the batched one-shot form. The transfer
	// details list must parallel the permitted list.
	PermitBatchTransferFrom(
		ctx context.Context,
		permit permit2.PermitBatchTransferFrom,
		transfers []permit2.SignatureTransferDetails,
		owner common.Address,
		signature []byte,
	) error

	// PermitWitnessTransferFrom is PermitTransferFrom with the witness folded
	// into the verified digest.
	PermitWitnessTransferFrom(
		ctx context.Context,
		permit permit2.PermitTransferFrom,
		transfer permit2.SignatureTransferDetails,
		owner common.Address,
		witness permit2.Witness,
		signature []byte,
	) error

	// PermitBatchWitnessTransferFrom is the batched witness form.
	PermitBatchWitnessTransferFrom(
		ctx context.Context,
		permit permit2.PermitBatchTransferFrom,
		transfers []permit2.SignatureTransferDetails,
		owner common.Address,
		witness permit2.Witness,
		signature []byte,
	) error

	// DomainSeparator returns the authority's EIP-712 domain separator, the
	// input to every digest the vault presents for signing.
	DomainSeparator(ctx context.Context) (common.Hash, error)

	// Allowance returns the recorded standing allowance for the triple. Used
	// by off-chain tooling to construct successive authorizations; the vault
	// never consults it at call time.
	Allowance(ctx context.Context, owner common.Address, token common.Address, spender common.Address) (*Allowance, error)

	// NonceBitmap returns the owner's one-shot nonce word at wordPos.
	NonceBitmap(ctx context.Context, owner common.Address, wordPos *big.Int) (*big.Int, error)

	// Address returns the authority's deployment address.
	Address() common.Address
}
