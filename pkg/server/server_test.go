package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Layr-Labs/permit2-vault-go/pkg/permit2"
	"github.com/Layr-Labs/permit2-vault-go/pkg/server"
	"github.com/Layr-Labs/permit2-vault-go/pkg/store/memory"
	"github.com/Layr-Labs/permit2-vault-go/pkg/testutil"
	"github.com/Layr-Labs/permit2-vault-go/pkg/vault"
)

var (
	vaultAddr     = common.HexToAddress("0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")
	authorityAddr = common.HexToAddress("0x000000000022D473030F116dDEE9F6B43aC78BA3")
	tokenA        = common.HexToAddress("0x1111111111111111111111111111111111111111")
	recipient     = common.HexToAddress("0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb")

	farDeadline = big.NewInt(1_800_000_000)
)

type serverFixture struct {
	vault *vault.Vault
	bank  *testutil.TokenBank
	user  *testutil.Signer
	srv   *httptest.Server
}

func newServerFixture(t *testing.T, rateLimit float64) *serverFixture {
	t.Helper()

	bank := testutil.NewTokenBank()
	auth := testutil.NewMockAuthority(authorityAddr, big.NewInt(31337), vaultAddr, bank)

	v, err := vault.New(
		&vault.Config{Address: vaultAddr},
		auth,
		&testutil.BankClient{Bank: bank, From: vaultAddr},
		memory.NewMemoryStore(),
	)
	require.NoError(t, err)

	user := testutil.NewSigner(t)
	bank.Mint(tokenA, user.Address, big.NewInt(1_000_000))

	s := server.NewServer(v, 0, rateLimit, nil)
	ts := httptest.NewServer(s.GetHandler())
	t.Cleanup(ts.Close)

	return &serverFixture{vault: v, bank: bank, user: user, srv: ts}
}

func (f *serverFixture) post(t *testing.T, path string, payload any) *http.Response {
	t.Helper()
	body, err := json.Marshal(payload)
	require.NoError(t, err)
	resp, err := http.Post(f.srv.URL+path, "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func (f *serverFixture) depositRequest(t *testing.T, maxAmount int64, amount int64) server.DepositWithPermitRequestV1 {
	t.Helper()

	permit := permit2.PermitSingle{
		Details: permit2.PermitDetails{
			Token:      tokenA,
			Amount:     big.NewInt(maxAmount),
			Expiration: farDeadline,
			Nonce:      big.NewInt(0),
		},
		Spender:     vaultAddr,
		SigDeadline: farDeadline,
	}
	digest, err := f.vault.PermitDigest(context.Background(), permit)
	require.NoError(t, err)
	sig := f.user.Sign(t, digest)

	return server.DepositWithPermitRequestV1{
		User: f.user.Address,
		Permit: server.PermitSingleV1{
			Details: server.PermitDetailsV1{
				Token:      tokenA,
				Amount:     (*hexutil.Big)(big.NewInt(maxAmount)),
				Expiration: (*hexutil.Big)(farDeadline),
				Nonce:      (*hexutil.Big)(big.NewInt(0)),
			},
			Spender:     vaultAddr,
			SigDeadline: (*hexutil.Big)(farDeadline),
		},
		Amount:    (*hexutil.Big)(big.NewInt(amount)),
		Signature: sig,
	}
}

func TestDepositWithPermitEndpoint(t *testing.T) {
	f := newServerFixture(t, 0)

	resp := f.post(t, "/deposit/permit", f.depositRequest(t, 1000, 600))
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	balance, err := f.vault.BalanceOf(f.user.Address, tokenA)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(600), balance)
}

func TestDepositWithPermitEndpointSpenderMismatch(t *testing.T) {
	f := newServerFixture(t, 0)

	req := f.depositRequest(t, 1000, 600)
	req.Permit.Spender = recipient

	resp := f.post(t, "/deposit/permit", req)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
}

func TestDepositWithPermitEndpointAuthorityRejection(t *testing.T) {
	f := newServerFixture(t, 0)

	// Amount beyond the signed maximum fails at the authority.
	resp := f.post(t, "/deposit/permit", f.depositRequest(t, 1000, 1500))
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
}

func TestWithdrawEndpointInsufficientBalance(t *testing.T) {
	f := newServerFixture(t, 0)

	resp := f.post(t, "/deposit/permit", f.depositRequest(t, 1000, 500))
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = f.post(t, "/withdraw", server.WithdrawRequestV1{
		User:      f.user.Address,
		Token:     tokenA,
		Amount:    (*hexutil.Big)(big.NewInt(800)),
		Recipient: recipient,
	})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	var errResp server.ErrorResponseV1
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&errResp))
	require.NotNil(t, errResp.Current)
	assert.Equal(t, big.NewInt(500), (*big.Int)(errResp.Current))
	assert.Equal(t, big.NewInt(800), (*big.Int)(errResp.Requested))
}

func TestWithdrawEndpoint(t *testing.T) {
	f := newServerFixture(t, 0)

	resp := f.post(t, "/deposit/permit", f.depositRequest(t, 1000, 1000))
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = f.post(t, "/withdraw", server.WithdrawRequestV1{
		User:      f.user.Address,
		Token:     tokenA,
		Amount:    (*hexutil.Big)(big.NewInt(400)),
		Recipient: recipient,
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, big.NewInt(400), f.bank.BalanceOf(tokenA, recipient))
}

func TestWithdrawBatchEndpointLengthMismatch(t *testing.T) {
	f := newServerFixture(t, 0)

	resp := f.post(t, "/withdraw/batch", server.WithdrawBatchRequestV1{
		User:      f.user.Address,
		Tokens:    []common.Address{tokenA},
		Amounts:   []*hexutil.Big{(*hexutil.Big)(big.NewInt(1)), (*hexutil.Big)(big.NewInt(2))},
		Recipient: recipient,
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestBalanceEndpoint(t *testing.T) {
	f := newServerFixture(t, 0)

	resp := f.post(t, "/deposit/permit", f.depositRequest(t, 1000, 250))
	require.Equal(t, http.StatusOK, resp.StatusCode)

	getResp, err := http.Get(fmt.Sprintf("%s/balance?user=%s&token=%s", f.srv.URL, f.user.Address.Hex(), tokenA.Hex()))
	require.NoError(t, err)
	defer getResp.Body.Close()
	require.Equal(t, http.StatusOK, getResp.StatusCode)

	var balResp server.BalanceResponseV1
	require.NoError(t, json.NewDecoder(getResp.Body).Decode(&balResp))
	assert.Equal(t, big.NewInt(250), (*big.Int)(balResp.Balance))
}

func TestBalanceEndpointRejectsBadAddress(t *testing.T) {
	f := newServerFixture(t, 0)

	resp, err := http.Get(f.srv.URL + "/balance?user=nonsense&token=" + tokenA.Hex())
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestDigestEndpointMatchesVault(t *testing.T) {
	f := newServerFixture(t, 0)

	permit := permit2.PermitTransferFrom{
		Permitted: permit2.TokenPermissions{Token: tokenA, Amount: big.NewInt(5000)},
		Nonce:     big.NewInt(9),
		Deadline:  farDeadline,
	}
	expected, err := f.vault.TransferPermitDigest(context.Background(), permit)
	require.NoError(t, err)

	resp := f.post(t, "/digest/transfer", server.PermitTransferFromV1{
		Permitted: server.TokenPermissionsV1{
			Token:  tokenA,
			Amount: (*hexutil.Big)(big.NewInt(5000)),
		},
		Nonce:    (*hexutil.Big)(big.NewInt(9)),
		Deadline: (*hexutil.Big)(farDeadline),
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var digestResp server.DigestResponseV1
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&digestResp))
	assert.Equal(t, expected, digestResp.Digest)
}

func TestMethodNotAllowed(t *testing.T) {
	f := newServerFixture(t, 0)

	resp, err := http.Get(f.srv.URL + "/deposit/permit")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestRateLimiting(t *testing.T) {
	f := newServerFixture(t, 1)

	var limited bool
	for i := 0; i < 10; i++ {
		resp, err := http.Get(f.srv.URL + "/balance?user=" + vaultAddr.Hex() + "&token=" + tokenA.Hex())
		require.NoError(t, err)
		resp.Body.Close()
		if resp.StatusCode == http.StatusTooManyRequests {
			limited = true
			break
		}
	}
	assert.True(t, limited, "expected rate limiter to reject rapid-fire requests")
}
