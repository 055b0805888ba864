package transactionSigner

import (
	"context"
	"crypto/ecdsa"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/pkg/errors"
)

// PrivateKeySigner signs transactions with an in-memory ECDSA key.
type PrivateKeySigner struct {
	privateKey *ecdsa.PrivateKey
	address    common.Address
	chainID    *big.Int
}

var _ ITransactionSigner = (*PrivateKeySigner)(nil)

func NewPrivateKeySigner(privateKeyHex string, chainID uint64) (*PrivateKeySigner, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(privateKeyHex, "0x"))
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse private key")
	}

	return &PrivateKeySigner{
		privateKey: key,
		address:    crypto.PubkeyToAddress(key.PublicKey),
		chainID:    new(big.Int).SetUint64(chainID),
	}, nil
}

func (s *PrivateKeySigner) GetTransactOpts(ctx context.Context) (*bind.TransactOpts, error) {
	opts, err := bind.NewKeyedTransactorWithChainID(s.privateKey, s.chainID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to build transact opts")
	}
	opts.Context = ctx
	return opts, nil
}

func (s *PrivateKeySigner) GetFromAddress() common.Address {
	return s.address
}
