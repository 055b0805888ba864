package memory

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	testUser  = common.HexToAddress("0x1234567890123456789012345678901234567890")
	testToken = common.HexToAddress("0x1111111111111111111111111111111111111111")
)

func TestGetBalanceAbsentIsZero(t *testing.T) {
	s := NewMemoryStore()
	defer s.Close()

	balance, err := s.GetBalance(testUser, testToken)
	require.NoError(t, err)
	require.NotNil(t, balance)
	assert.Equal(t, 0, balance.Sign())
}

func TestSetAndGetBalance(t *testing.T) {
	s := NewMemoryStore()
	defer s.Close()

	require.NoError(t, s.SetBalance(testUser, testToken, big.NewInt(12345)))

	balance, err := s.GetBalance(testUser, testToken)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(12345), balance)
}

func TestSetBalanceRejectsNilAndNegative(t *testing.T) {
	s := NewMemoryStore()
	defer s.Close()

	require.Error(t, s.SetBalance(testUser, testToken, nil))
	require.Error(t, s.SetBalance(testUser, testToken, big.NewInt(-1)))
}

func TestStoredBalanceIsIsolated(t *testing.T) {
	s := NewMemoryStore()
	defer s.Close()

	amount := big.NewInt(100)
	require.NoError(t, s.SetBalance(testUser, testToken, amount))

	// Mutating the caller's value must not affect the stored balance.
	amount.SetInt64(999)

	balance, err := s.GetBalance(testUser, testToken)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(100), balance)

	// Mutating the returned value must not affect the stored balance either.
	balance.SetInt64(0)
	again, err := s.GetBalance(testUser, testToken)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(100), again)
}

func TestUsersAndTokensAreIndependent(t *testing.T) {
	s := NewMemoryStore()
	defer s.Close()

	otherUser := common.HexToAddress("0x2222222222222222222222222222222222222222")
	otherToken := common.HexToAddress("0x3333333333333333333333333333333333333333")

	require.NoError(t, s.SetBalance(testUser, testToken, big.NewInt(1)))
	require.NoError(t, s.SetBalance(testUser, otherToken, big.NewInt(2)))
	require.NoError(t, s.SetBalance(otherUser, testToken, big.NewInt(3)))

	b1, _ := s.GetBalance(testUser, testToken)
	b2, _ := s.GetBalance(testUser, otherToken)
	b3, _ := s.GetBalance(otherUser, testToken)
	assert.Equal(t, big.NewInt(1), b1)
	assert.Equal(t, big.NewInt(2), b2)
	assert.Equal(t, big.NewInt(3), b3)
}

func TestClosedStoreRejectsOperations(t *testing.T) {
	s := NewMemoryStore()
	require.NoError(t, s.HealthCheck())
	require.NoError(t, s.Close())

	require.Error(t, s.HealthCheck())
	_, err := s.GetBalance(testUser, testToken)
	require.Error(t, err)
	require.Error(t, s.SetBalance(testUser, testToken, big.NewInt(1)))
}
