// Package store persists the vault's per-user per-token balance table.
package store

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// IBalanceStore is the balance table behind the vault. Implementations must
// be safe for concurrent use; the vault additionally serializes its own
// mutations, so the store never sees interleaved read-modify-write cycles
// for the same (user, token).
//
// The store is dumb storage: solvency and rollback invariants live entirely
// in the vault.
type IBalanceStore interface {
	// GetBalance returns the credited balance, zero if absent. The returned
	// value is never nil on success and is owned by the caller.
	GetBalance(user common.Address, token common.Address) (*big.Int, error)

	// SetBalance overwrites the balance. Amount must be non-nil and
	// non-negative.
	SetBalance(user common.Address, token common.Address, amount *big.Int) error

	// Close cleanly shuts down the store. Idempotent.
	Close() error

	// HealthCheck verifies the store is operational. Called during startup
	// to fail fast.
	HealthCheck() error
}
