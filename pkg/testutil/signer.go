package testutil

import (
	"crypto/ecdsa"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"
)

// Signer is a throwaway depositor identity for tests.
type Signer struct {
	Key     *ecdsa.PrivateKey
	Address common.Address
}

func NewSigner(t *testing.T) *Signer {
	t.Helper()
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	return &Signer{
		Key:     key,
		Address: crypto.PubkeyToAddress(key.PublicKey),
	}
}

// Sign produces a 65-byte r||s||v signature over the digest with v in
// {27, 28}, the wire form wallets emit.
func (s *Signer) Sign(t *testing.T, digest common.Hash) []byte {
	t.Helper()
	sig, err := crypto.Sign(digest.Bytes(), s.Key)
	require.NoError(t, err)
	sig[64] += 27
	return sig
}
