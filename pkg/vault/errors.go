package vault

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

var (
	// ErrInvalidSpender means an allowance authorization names a spender
	// other than the vault. Caught before any balance mutation.
	ErrInvalidSpender = errors.New("permit spender is not the vault")

	// ErrBatchLengthMismatch means a batched call's parallel lists disagree
	// in length. Caught before any item is processed.
	ErrBatchLengthMismatch = errors.New("batch lists differ in length")

	// ErrInvalidAmount means a nil or negative amount was supplied.
	ErrInvalidAmount = errors.New("amount must be a non-negative integer")

	errNilConfig     = errors.New("vault config cannot be nil")
	errNilDependency = errors.New("authority, token client, and balance store are all required")
)

// InsufficientBalanceError reports a withdrawal exceeding the caller's
// credited balance. Current carries the balance at call time so the caller
// can retry at a corrected amount.
type InsufficientBalanceError struct {
	Token     common.Address
	Requested *big.Int
	Current   *big.Int
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("insufficient balance for token %s: requested %s, have %s",
		e.Token.Hex(), e.Requested.String(), e.Current.String())
}

// DelegationError wraps a transfer authority (or token settlement) rejection.
// By the time the caller sees it, every balance mutation applied in the same
// call has been rolled back.
type DelegationError struct {
	Op  string
	Err error
}

func (e *DelegationError) Error() string {
	return fmt.Sprintf("delegated %s failed: %v", e.Op, e.Err)
}

func (e *DelegationError) Unwrap() error {
	return e.Err
}
