// Package memory holds the balance table in process memory. Intended for
// tests and single-process development; all balances are lost on restart.
package memory

import (
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/Layr-Labs/permit2-vault-go/pkg/store"
)

// MemoryStore is an in-memory implementation of IBalanceStore.
// Thread-safe using sync.RWMutex. Copies big.Int values in and out so
// callers can never mutate stored balances.
type MemoryStore struct {
	mu sync.RWMutex

	// user -> token -> balance
	balances map[common.Address]map[common.Address]*big.Int

	closed bool
}

var _ store.IBalanceStore = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		balances: make(map[common.Address]map[common.Address]*big.Int),
	}
}

func (m *MemoryStore) GetBalance(user common.Address, token common.Address) (*big.Int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, fmt.Errorf("balance store is closed")
	}

	byToken, ok := m.balances[user]
	if !ok {
		return new(big.Int), nil
	}
	balance, ok := byToken[token]
	if !ok {
		return new(big.Int), nil
	}

	return new(big.Int).Set(balance), nil
}

func (m *MemoryStore) SetBalance(user common.Address, token common.Address, amount *big.Int) error {
	if amount == nil {
		return fmt.Errorf("cannot store nil balance")
	}
	if amount.Sign() < 0 {
		return fmt.Errorf("cannot store negative balance %s", amount.String())
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return fmt.Errorf("balance store is closed")
	}

	byToken, ok := m.balances[user]
	if !ok {
		byToken = make(map[common.Address]*big.Int)
		m.balances[user] = byToken
	}
	byToken[token] = new(big.Int).Set(amount)

	return nil
}

func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closed = true
	return nil
}

func (m *MemoryStore) HealthCheck() error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return fmt.Errorf("balance store is closed")
	}
	return nil
}
