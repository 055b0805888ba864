// Package transactionSigner provides signing for vault-originated
// transactions (permit registrations, delegated transfers, withdrawals).
package transactionSigner

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
)

// ITransactionSigner provides transaction options for state-mutating calls.
// The signer's address is the vault's on-chain identity: the spender every
// allowance permit must name.
type ITransactionSigner interface {
	// GetTransactOpts returns bound transact options for the signer.
	GetTransactOpts(ctx context.Context) (*bind.TransactOpts, error)

	// GetFromAddress returns the address that will be used for signing.
	GetFromAddress() common.Address
}

type SignerConfig struct {
	PrivateKey string `json:"privateKey" yaml:"privateKey"`
}

func NewTransactionSigner(cfg *SignerConfig, chainID uint64) (ITransactionSigner, error) {
	if cfg == nil || cfg.PrivateKey == "" {
		return nil, fmt.Errorf("private key cannot be empty")
	}

	return NewPrivateKeySigner(cfg.PrivateKey, chainID)
}
