// Package testutil provides in-process doubles for the vault's external
// collaborators: an ERC-20 token bank and a transfer authority that
// reproduces Permit2 semantics (real signature recovery, allowance expiry,
// nonce bitmap) without a chain.
package testutil

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/Layr-Labs/permit2-vault-go/pkg/erc20"
)

// TokenBank holds ERC-20 style balances shared between the mock authority
// (allowance-backed moves) and the vault's token client (withdrawals).
type TokenBank struct {
	mu sync.Mutex

	// token -> holder -> balance
	balances map[common.Address]map[common.Address]*big.Int
}

func NewTokenBank() *TokenBank {
	return &TokenBank{
		balances: make(map[common.Address]map[common.Address]*big.Int),
	}
}

// Mint credits a holder out of thin air.
func (b *TokenBank) Mint(token common.Address, holder common.Address, amount *big.Int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.add(token, holder, amount)
}

// BalanceOf returns a copy of the holder's balance.
func (b *TokenBank) BalanceOf(token common.Address, holder common.Address) *big.Int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return new(big.Int).Set(b.get(token, holder))
}

// Move transfers between holders, failing on insufficient balance.
func (b *TokenBank) Move(token common.Address, from common.Address, to common.Address, amount *big.Int) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.move(token, from, to, amount)
}

// MoveAll applies every leg atomically: balances are checked up front and
// nothing moves if any leg would overdraw.
func (b *TokenBank) MoveAll(legs []erc20.TokenTransfer, from common.Address) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	needed := make(map[common.Address]*big.Int)
	for _, leg := range legs {
		total, ok := needed[leg.Token]
		if !ok {
			total = new(big.Int)
			needed[leg.Token] = total
		}
		total.Add(total, leg.Amount)
	}
	for token, total := range needed {
		if b.get(token, from).Cmp(total) < 0 {
			return fmt.Errorf("insufficient token balance for %s", token.Hex())
		}
	}

	for _, leg := range legs {
		if err := b.move(leg.Token, from, leg.To, leg.Amount); err != nil {
			return err
		}
	}
	return nil
}

func (b *TokenBank) get(token common.Address, holder common.Address) *big.Int {
	byHolder, ok := b.balances[token]
	if !ok {
		return new(big.Int)
	}
	balance, ok := byHolder[holder]
	if !ok {
		return new(big.Int)
	}
	return balance
}

func (b *TokenBank) add(token common.Address, holder common.Address, amount *big.Int) {
	byHolder, ok := b.balances[token]
	if !ok {
		byHolder = make(map[common.Address]*big.Int)
		b.balances[token] = byHolder
	}
	byHolder[holder] = new(big.Int).Add(b.get(token, holder), amount)
}

func (b *TokenBank) move(token common.Address, from common.Address, to common.Address, amount *big.Int) error {
	current := b.get(token, from)
	if current.Cmp(amount) < 0 {
		return fmt.Errorf("insufficient token balance for %s", token.Hex())
	}
	b.balances[token][from] = new(big.Int).Sub(current, amount)
	b.add(token, to, amount)
	return nil
}

// BankClient adapts a TokenBank to erc20.IERC20Client, sending from a fixed
// holder (the vault).
type BankClient struct {
	Bank *TokenBank
	From common.Address
}

var _ erc20.IERC20Client = (*BankClient)(nil)

func (c *BankClient) Transfer(ctx context.Context, token common.Address, to common.Address, amount *big.Int) error {
	return c.Bank.Move(token, c.From, to, amount)
}

func (c *BankClient) TransferBatch(ctx context.Context, transfers []erc20.TokenTransfer) error {
	return c.Bank.MoveAll(transfers, c.From)
}

func (c *BankClient) BalanceOf(ctx context.Context, token common.Address, holder common.Address) (*big.Int, error) {
	return c.Bank.BalanceOf(token, holder), nil
}
