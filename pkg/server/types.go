package server

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/Layr-Labs/permit2-vault-go/pkg/permit2"
)

// Wire types for the vault HTTP API. Amounts and other uint256 fields travel
// as hex quantities, signatures as hex bytes.

type PermitDetailsV1 struct {
	Token      common.Address `json:"token"`
	Amount     *hexutil.Big   `json:"amount"`
	Expiration *hexutil.Big   `json:"expiration"`
	Nonce      *hexutil.Big   `json:"nonce"`
}

func (d PermitDetailsV1) toPermit2() permit2.PermitDetails {
	return permit2.PermitDetails{
		Token:      d.Token,
		Amount:     bigVal(d.Amount),
		Expiration: bigVal(d.Expiration),
		Nonce:      bigVal(d.Nonce),
	}
}

type PermitSingleV1 struct {
	Details     PermitDetailsV1 `json:"details"`
	Spender     common.Address  `json:"spender"`
	SigDeadline *hexutil.Big    `json:"sigDeadline"`
}

func (p PermitSingleV1) toPermit2() permit2.PermitSingle {
	return permit2.PermitSingle{
		Details:     p.Details.toPermit2(),
		Spender:     p.Spender,
		SigDeadline: bigVal(p.SigDeadline),
	}
}

type PermitBatchV1 struct {
	Details     []PermitDetailsV1 `json:"details"`
	Spender     common.Address    `json:"spender"`
	SigDeadline *hexutil.Big      `json:"sigDeadline"`
}

func (p PermitBatchV1) toPermit2() permit2.PermitBatch {
	details := make([]permit2.PermitDetails, len(p.Details))
	for i, d := range p.Details {
		details[i] = d.toPermit2()
	}
	return permit2.PermitBatch{
		Details:     details,
		Spender:     p.Spender,
		SigDeadline: bigVal(p.SigDeadline),
	}
}

type TokenPermissionsV1 struct {
	Token  common.Address `json:"token"`
	Amount *hexutil.Big   `json:"amount"`
}

type PermitTransferFromV1 struct {
	Permitted TokenPermissionsV1 `json:"permitted"`
	Nonce     *hexutil.Big       `json:"nonce"`
	Deadline  *hexutil.Big       `json:"deadline"`
}

func (p PermitTransferFromV1) toPermit2() permit2.PermitTransferFrom {
	return permit2.PermitTransferFrom{
		Permitted: permit2.TokenPermissions{
			Token:  p.Permitted.Token,
			Amount: bigVal(p.Permitted.Amount),
		},
		Nonce:    bigVal(p.Nonce),
		Deadline: bigVal(p.Deadline),
	}
}

type PermitBatchTransferFromV1 struct {
	Permitted []TokenPermissionsV1 `json:"permitted"`
	Nonce     *hexutil.Big         `json:"nonce"`
	Deadline  *hexutil.Big         `json:"deadline"`
}

func (p PermitBatchTransferFromV1) toPermit2() permit2.PermitBatchTransferFrom {
	permitted := make([]permit2.TokenPermissions, len(p.Permitted))
	for i, tp := range p.Permitted {
		permitted[i] = permit2.TokenPermissions{Token: tp.Token, Amount: bigVal(tp.Amount)}
	}
	return permit2.PermitBatchTransferFrom{
		Permitted: permitted,
		Nonce:     bigVal(p.Nonce),
		Deadline:  bigVal(p.Deadline),
	}
}

type DepositWithPermitRequestV1 struct {
	User      common.Address `json:"user"`
	Permit    PermitSingleV1 `json:"permit"`
	Amount    *hexutil.Big   `json:"amount"`
	Signature hexutil.Bytes  `json:"signature"`
}

type DepositBatchWithPermitRequestV1 struct {
	User      common.Address `json:"user"`
	Permit    PermitBatchV1  `json:"permit"`
	Amounts   []*hexutil.Big `json:"amounts"`
	Signature hexutil.Bytes  `json:"signature"`
}

type DepositRequestV1 struct {
	User   common.Address `json:"user"`
	Token  common.Address `json:"token"`
	Amount *hexutil.Big   `json:"amount"`
}

type DepositBatchRequestV1 struct {
	User    common.Address   `json:"user"`
	Tokens  []common.Address `json:"tokens"`
	Amounts []*hexutil.Big   `json:"amounts"`
}

type DepositWithTransferPermitRequestV1 struct {
	User      common.Address       `json:"user"`
	Permit    PermitTransferFromV1 `json:"permit"`
	Signature hexutil.Bytes        `json:"signature"`
}

type DepositBatchWithTransferPermitRequestV1 struct {
	User      common.Address            `json:"user"`
	Permit    PermitBatchTransferFromV1 `json:"permit"`
	Signature hexutil.Bytes             `json:"signature"`
}

type DepositWithWitnessRequestV1 struct {
	User        common.Address       `json:"user"`
	Permit      PermitTransferFromV1 `json:"permit"`
	Beneficiary common.Address       `json:"beneficiary"`
	Signature   hexutil.Bytes        `json:"signature"`
}

type DepositBatchWithWitnessRequestV1 struct {
	User        common.Address            `json:"user"`
	Permit      PermitBatchTransferFromV1 `json:"permit"`
	Beneficiary common.Address            `json:"beneficiary"`
	Signature   hexutil.Bytes             `json:"signature"`
}

type WithdrawRequestV1 struct {
	User      common.Address `json:"user"`
	Token     common.Address `json:"token"`
	Amount    *hexutil.Big   `json:"amount"`
	Recipient common.Address `json:"recipient"`
}

type WithdrawBatchRequestV1 struct {
	User      common.Address   `json:"user"`
	Tokens    []common.Address `json:"tokens"`
	Amounts   []*hexutil.Big   `json:"amounts"`
	Recipient common.Address   `json:"recipient"`
}

type BalanceResponseV1 struct {
	User    common.Address `json:"user"`
	Token   common.Address `json:"token"`
	Balance *hexutil.Big   `json:"balance"`
}

type DigestResponseV1 struct {
	Digest common.Hash `json:"digest"`
}

type WitnessDigestRequestV1 struct {
	Permit      PermitTransferFromV1 `json:"permit"`
	Beneficiary common.Address       `json:"beneficiary"`
}

type BatchWitnessDigestRequestV1 struct {
	Permit      PermitBatchTransferFromV1 `json:"permit"`
	Beneficiary common.Address            `json:"beneficiary"`
}

type ErrorResponseV1 struct {
	Error string `json:"error"`

	// Populated for insufficient-balance rejections so the caller can retry
	// at a corrected amount.
	Token     *common.Address `json:"token,omitempty"`
	Requested *hexutil.Big    `json:"requested,omitempty"`
	Current   *hexutil.Big    `json:"current,omitempty"`
}

func bigVal(x *hexutil.Big) *big.Int {
	if x == nil {
		return nil
	}
	return (*big.Int)(x)
}

func bigVals(xs []*hexutil.Big) []*big.Int {
	out := make([]*big.Int, len(xs))
	for i, x := range xs {
		out[i] = bigVal(x)
	}
	return out
}
