// Package erc20 moves tokens held in the vault's own custody: withdrawals
// are plain ERC-20 transfers signed by the vault, not authority-delegated
// moves.
package erc20

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// TokenTransfer is one leg of a batched outbound transfer.
type TokenTransfer struct {
	Token  common.Address
	To     common.Address
	Amount *big.Int
}

// IERC20Client sends tokens out of the vault's balance. TransferBatch must be
// atomic: either every leg settles or none does, matching the vault's
// all-or-nothing withdrawal contract.
type IERC20Client interface {
	// Transfer sends amount of token from the vault to the recipient.
	Transfer(ctx context.Context, token common.Address, to common.Address, amount *big.Int) error

	// TransferBatch atomically sends every leg, in order.
	TransferBatch(ctx context.Context, transfers []TokenTransfer) error

	// BalanceOf reads a token balance.
	BalanceOf(ctx context.Context, token common.Address, holder common.Address) (*big.Int, error)
}
