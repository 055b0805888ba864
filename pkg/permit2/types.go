package permit2

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// PermitDetails describes a standing allowance for one token: the spender may
// move up to Amount until Expiration. Nonce is the per-(owner, token, spender)
// sequence number maintained by the transfer authority.
type PermitDetails struct {
	Token      common.Address
	Amount     *big.Int // uint160
	Expiration *big.Int // uint48, unix seconds
	Nonce      *big.Int // uint48
}

// PermitSingle is a signed standing-allowance authorization for one token.
type PermitSingle struct {
	Details     PermitDetails
	Spender     common.Address
	SigDeadline *big.Int
}

// PermitBatch covers multiple tokens under one spender and signature deadline.
// Ordering of Details is significant: it must match the order used when
// building transfer instructions from the same authorization.
type PermitBatch struct {
	Details     []PermitDetails
	Spender     common.Address
	SigDeadline *big.Int
}

// TokenPermissions is the signed (token, exact amount) pair of a one-shot
// signature transfer.
type TokenPermissions struct {
	Token  common.Address
	Amount *big.Int
}

// PermitTransferFrom is a one-shot signature-transfer authorization. Unlike
// the allowance form, the amount is exact and the nonce is an unordered
// bitmap position consumed in full by the authority on first use.
type PermitTransferFrom struct {
	Permitted TokenPermissions
	Nonce     *big.Int
	Deadline  *big.Int
}

// PermitBatchTransferFrom is the batched one-shot form: an ordered list of
// permissions sharing one nonce and deadline.
type PermitBatchTransferFrom struct {
	Permitted []TokenPermissions
	Nonce     *big.Int
	Deadline  *big.Int
}

// SignatureTransferDetails tells the authority where to send permitted tokens
// and how much of the signed amount to move. RequestedAmount must not exceed
// the corresponding signed amount.
type SignatureTransferDetails struct {
	To              common.Address
	RequestedAmount *big.Int
}

// AllowanceTransferDetails is one leg of a batched allowance-backed transfer.
type AllowanceTransferDetails struct {
	From   common.Address
	To     common.Address
	Amount *big.Int // uint160
	Token  common.Address
}
