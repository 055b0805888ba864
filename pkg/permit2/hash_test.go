package permit2

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// The digests produced here are verified against go-ethereum's generic
// EIP-712 implementation: both sides must agree on every layout or deployed
// wallets would sign digests the authority rejects.

var (
	testChainID   = big.NewInt(1)
	testAuthority = common.HexToAddress("0x000000000022D473030F116dDEE9F6B43aC78BA3")
	testToken     = common.HexToAddress("0x1111111111111111111111111111111111111111")
	testToken2    = common.HexToAddress("0x2222222222222222222222222222222222222222")
	testSpender   = common.HexToAddress("0x3333333333333333333333333333333333333333")
)

var domainTypes = []apitypes.Type{
	{Name: "name", Type: "string"},
	{Name: "chainId", Type: "uint256"},
	{Name: "verifyingContract", Type: "address"},
}

func testDomain() apitypes.TypedDataDomain {
	return apitypes.TypedDataDomain{
		Name:              "Permit2",
		ChainId:           math.NewHexOrDecimal256(testChainID.Int64()),
		VerifyingContract: testAuthority.Hex(),
	}
}

func typedDataDigest(t *testing.T, td apitypes.TypedData) common.Hash {
	t.Helper()
	sighash, _, err := apitypes.TypedDataAndHash(td)
	require.NoError(t, err)
	return common.BytesToHash(sighash)
}

func quantity(v int64) *math.HexOrDecimal256 {
	return math.NewHexOrDecimal256(v)
}

func TestDomainSeparatorMatchesTypedData(t *testing.T) {
	td := apitypes.TypedData{
		Types:  apitypes.Types{"EIP712Domain": domainTypes},
		Domain: testDomain(),
	}
	expected, err := td.HashStruct("EIP712Domain", td.Domain.Map())
	require.NoError(t, err)

	got := DomainSeparator(testChainID, testAuthority)
	assert.Equal(t, common.BytesToHash(expected), got)
}

func TestHashPermitSingleConformance(t *testing.T) {
	permit := PermitSingle{
		Details: PermitDetails{
			Token:      testToken,
			Amount:     big.NewInt(1000),
			Expiration: big.NewInt(1_800_000_000),
			Nonce:      big.NewInt(0),
		},
		Spender:     testSpender,
		SigDeadline: big.NewInt(1_750_000_000),
	}

	td := apitypes.TypedData{
		Types: apitypes.Types{
			"EIP712Domain": domainTypes,
			"PermitDetails": {
				{Name: "token", Type: "address"},
				{Name: "amount", Type: "uint160"},
				{Name: "expiration", Type: "uint48"},
				{Name: "nonce", Type: "uint48"},
			},
			"PermitSingle": {
				{Name: "details", Type: "PermitDetails"},
				{Name: "spender", Type: "address"},
				{Name: "sigDeadline", Type: "uint256"},
			},
		},
		PrimaryType: "PermitSingle",
		Domain:      testDomain(),
		Message: apitypes.TypedDataMessage{
			"details": map[string]interface{}{
				"token":      testToken.Hex(),
				"amount":     quantity(1000),
				"expiration": quantity(1_800_000_000),
				"nonce":      quantity(0),
			},
			"spender":     testSpender.Hex(),
			"sigDeadline": quantity(1_750_000_000),
		},
	}

	domain := DomainSeparator(testChainID, testAuthority)
	assert.Equal(t, typedDataDigest(t, td), HashPermitSingle(domain, permit))
}

func TestHashPermitBatchConformance(t *testing.T) {
	permit := PermitBatch{
		Details: []PermitDetails{
			{Token: testToken, Amount: big.NewInt(1000), Expiration: big.NewInt(1_800_000_000), Nonce: big.NewInt(0)},
			{Token: testToken2, Amount: big.NewInt(2500), Expiration: big.NewInt(1_900_000_000), Nonce: big.NewInt(7)},
		},
		Spender:     testSpender,
		SigDeadline: big.NewInt(1_750_000_000),
	}

	td := apitypes.TypedData{
		Types: apitypes.Types{
			"EIP712Domain": domainTypes,
			"PermitDetails": {
				{Name: "token", Type: "address"},
				{Name: "amount", Type: "uint160"},
				{Name: "expiration", Type: "uint48"},
				{Name: "nonce", Type: "uint48"},
			},
			"PermitBatch": {
				{Name: "details", Type: "PermitDetails[]"},
				{Name: "spender", Type: "address"},
				{Name: "sigDeadline", Type: "uint256"},
			},
		},
		PrimaryType: "PermitBatch",
		Domain:      testDomain(),
		Message: apitypes.TypedDataMessage{
			"details": []interface{}{
				map[string]interface{}{
					"token":      testToken.Hex(),
					"amount":     quantity(1000),
					"expiration": quantity(1_800_000_000),
					"nonce":      quantity(0),
				},
				map[string]interface{}{
					"token":      testToken2.Hex(),
					"amount":     quantity(2500),
					"expiration": quantity(1_900_000_000),
					"nonce":      quantity(7),
				},
			},
			"spender":     testSpender.Hex(),
			"sigDeadline": quantity(1_750_000_000),
		},
	}

	domain := DomainSeparator(testChainID, testAuthority)
	assert.Equal(t, typedDataDigest(t, td), HashPermitBatch(domain, permit))
}

func TestHashPermitTransferFromConformance(t *testing.T) {
	permit := PermitTransferFrom{
		Permitted: TokenPermissions{Token: testToken, Amount: big.NewInt(5000)},
		Nonce:     big.NewInt(42),
		Deadline:  big.NewInt(1_750_000_000),
	}

	td := apitypes.TypedData{
		Types: apitypes.Types{
			"EIP712Domain": domainTypes,
			"TokenPermissions": {
				{Name: "token", Type: "address"},
				{Name: "amount", Type: "uint256"},
			},
			"PermitTransferFrom": {
				{Name: "permitted", Type: "TokenPermissions"},
				{Name: "spender", Type: "address"},
				{Name: "nonce", Type: "uint256"},
				{Name: "deadline", Type: "uint256"},
			},
		},
		PrimaryType: "PermitTransferFrom",
		Domain:      testDomain(),
		Message: apitypes.TypedDataMessage{
			"permitted": map[string]interface{}{
				"token":  testToken.Hex(),
				"amount": quantity(5000),
			},
			"spender":  testSpender.Hex(),
			"nonce":    quantity(42),
			"deadline": quantity(1_750_000_000),
		},
	}

	domain := DomainSeparator(testChainID, testAuthority)
	assert.Equal(t, typedDataDigest(t, td), HashPermitTransferFrom(domain, permit, testSpender))
}

func TestHashPermitBatchTransferFromConformance(t *testing.T) {
	permit := PermitBatchTransferFrom{
		Permitted: []TokenPermissions{
			{Token: testToken, Amount: big.NewInt(5000)},
			{Token: testToken2, Amount: big.NewInt(600)},
		},
		Nonce:    big.NewInt(43),
		Deadline: big.NewInt(1_750_000_000),
	}

	td := apitypes.TypedData{
		Types: apitypes.Types{
			"EIP712Domain": domainTypes,
			"TokenPermissions": {
				{Name: "token", Type: "address"},
				{Name: "amount", Type: "uint256"},
			},
			"PermitBatchTransferFrom": {
				{Name: "permitted", Type: "TokenPermissions[]"},
				{Name: "spender", Type: "address"},
				{Name: "nonce", Type: "uint256"},
				{Name: "deadline", Type: "uint256"},
			},
		},
		PrimaryType: "PermitBatchTransferFrom",
		Domain:      testDomain(),
		Message: apitypes.TypedDataMessage{
			"permitted": []interface{}{
				map[string]interface{}{"token": testToken.Hex(), "amount": quantity(5000)},
				map[string]interface{}{"token": testToken2.Hex(), "amount": quantity(600)},
			},
			"spender":  testSpender.Hex(),
			"nonce":    quantity(43),
			"deadline": quantity(1_750_000_000),
		},
	}

	domain := DomainSeparator(testChainID, testAuthority)
	assert.Equal(t, typedDataDigest(t, td), HashPermitBatchTransferFrom(domain, permit, testSpender))
}

func TestHashPermitWitnessTransferFromConformance(t *testing.T) {
	beneficiary := common.HexToAddress("0x4444444444444444444444444444444444444444")
	permit := PermitTransferFrom{
		Permitted: TokenPermissions{Token: testToken, Amount: big.NewInt(5000)},
		Nonce:     big.NewInt(42),
		Deadline:  big.NewInt(1_750_000_000),
	}

	td := apitypes.TypedData{
		Types: apitypes.Types{
			"EIP712Domain": domainTypes,
			"TokenPermissions": {
				{Name: "token", Type: "address"},
				{Name: "amount", Type: "uint256"},
			},
			"DepositWitness": {
				{Name: "beneficiary", Type: "address"},
			},
			"PermitWitnessTransferFrom": {
				{Name: "permitted", Type: "TokenPermissions"},
				{Name: "spender", Type: "address"},
				{Name: "nonce", Type: "uint256"},
				{Name: "deadline", Type: "uint256"},
				{Name: "witness", Type: "DepositWitness"},
			},
		},
		PrimaryType: "PermitWitnessTransferFrom",
		Domain:      testDomain(),
		Message: apitypes.TypedDataMessage{
			"permitted": map[string]interface{}{
				"token":  testToken.Hex(),
				"amount": quantity(5000),
			},
			"spender":  testSpender.Hex(),
			"nonce":    quantity(42),
			"deadline": quantity(1_750_000_000),
			"witness": map[string]interface{}{
				"beneficiary": beneficiary.Hex(),
			},
		},
	}

	domain := DomainSeparator(testChainID, testAuthority)
	witness := DepositWitness{Beneficiary: beneficiary}
	assert.Equal(t, typedDataDigest(t, td), HashPermitWitnessTransferFrom(domain, permit, testSpender, witness))
}

func TestHashPermitBatchWitnessTransferFromConformance(t *testing.T) {
	beneficiary := common.HexToAddress("0x4444444444444444444444444444444444444444")
	permit := PermitBatchTransferFrom{
		Permitted: []TokenPermissions{
			{Token: testToken, Amount: big.NewInt(5000)},
			{Token: testToken2, Amount: big.NewInt(600)},
		},
		Nonce:    big.NewInt(43),
		Deadline: big.NewInt(1_750_000_000),
	}

	td := apitypes.TypedData{
		Types: apitypes.Types{
			"EIP712Domain": domainTypes,
			"TokenPermissions": {
				{Name: "token", Type: "address"},
				{Name: "amount", Type: "uint256"},
			},
			"DepositWitness": {
				{Name: "beneficiary", Type: "address"},
			},
			"PermitBatchWitnessTransferFrom": {
				{Name: "permitted", Type: "TokenPermissions[]"},
				{Name: "spender", Type: "address"},
				{Name: "nonce", Type: "uint256"},
				{Name: "deadline", Type: "uint256"},
				{Name: "witness", Type: "DepositWitness"},
			},
		},
		PrimaryType: "PermitBatchWitnessTransferFrom",
		Domain:      testDomain(),
		Message: apitypes.TypedDataMessage{
			"permitted": []interface{}{
				map[string]interface{}{"token": testToken.Hex(), "amount": quantity(5000)},
				map[string]interface{}{"token": testToken2.Hex(), "amount": quantity(600)},
			},
			"spender":  testSpender.Hex(),
			"nonce":    quantity(43),
			"deadline": quantity(1_750_000_000),
			"witness": map[string]interface{}{
				"beneficiary": beneficiary.Hex(),
			},
		},
	}

	domain := DomainSeparator(testChainID, testAuthority)
	witness := DepositWitness{Beneficiary: beneficiary}
	assert.Equal(t, typedDataDigest(t, td), HashPermitBatchWitnessTransferFrom(domain, permit, testSpender, witness))
}

func TestDigestsBindSpender(t *testing.T) {
	domain := DomainSeparator(testChainID, testAuthority)
	permit := PermitTransferFrom{
		Permitted: TokenPermissions{Token: testToken, Amount: big.NewInt(5000)},
		Nonce:     big.NewInt(1),
		Deadline:  big.NewInt(1_750_000_000),
	}

	other := common.HexToAddress("0x9999999999999999999999999999999999999999")
	assert.NotEqual(t,
		HashPermitTransferFrom(domain, permit, testSpender),
		HashPermitTransferFrom(domain, permit, other),
	)
}

func TestWitnessChangesDigest(t *testing.T) {
	domain := DomainSeparator(testChainID, testAuthority)
	permit := PermitTransferFrom{
		Permitted: TokenPermissions{Token: testToken, Amount: big.NewInt(5000)},
		Nonce:     big.NewInt(1),
		Deadline:  big.NewInt(1_750_000_000),
	}

	a := DepositWitness{Beneficiary: common.HexToAddress("0x4444444444444444444444444444444444444444")}
	b := DepositWitness{Beneficiary: common.HexToAddress("0x5555555555555555555555555555555555555555")}

	base := HashPermitTransferFrom(domain, permit, testSpender)
	withA := HashPermitWitnessTransferFrom(domain, permit, testSpender, a)
	withB := HashPermitWitnessTransferFrom(domain, permit, testSpender, b)

	assert.NotEqual(t, base, withA)
	assert.NotEqual(t, withA, withB)
}

func TestDomainChangesDigest(t *testing.T) {
	permit := PermitSingle{
		Details: PermitDetails{
			Token:      testToken,
			Amount:     big.NewInt(1),
			Expiration: big.NewInt(1_800_000_000),
			Nonce:      big.NewInt(0),
		},
		Spender:     testSpender,
		SigDeadline: big.NewInt(1_750_000_000),
	}

	mainnet := DomainSeparator(big.NewInt(1), testAuthority)
	sepolia := DomainSeparator(big.NewInt(11155111), testAuthority)
	assert.NotEqual(t, HashPermitSingle(mainnet, permit), HashPermitSingle(sepolia, permit))
}

func TestNilAmountHashesAsZero(t *testing.T) {
	withNil := HashPermitDetails(PermitDetails{Token: testToken})
	withZero := HashPermitDetails(PermitDetails{
		Token:      testToken,
		Amount:     big.NewInt(0),
		Expiration: big.NewInt(0),
		Nonce:      big.NewInt(0),
	})
	assert.Equal(t, withZero, withNil)
}
