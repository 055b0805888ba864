package testutil

import (
	"bytes"
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/Layr-Labs/permit2-vault-go/pkg/authority"
	"github.com/Layr-Labs/permit2-vault-go/pkg/erc20"
	"github.com/Layr-Labs/permit2-vault-go/pkg/permit2"
)

type allowanceState struct {
	amount     *big.Int
	expiration *big.Int
	nonce      uint64
}

// MockAuthority reproduces the transfer authority's verification and
// bookkeeping in process: signatures are recovered with real ECDSA against
// the same digests the digest builder produces, standing allowances expire
// and sequence, and one-shot nonces are consumed exactly once. The vault is
// the only caller whose allowances are honored, mirroring msg.sender
// semantics.
type MockAuthority struct {
	mu sync.Mutex

	address common.Address
	chainID *big.Int
	spender common.Address // the vault
	bank    *TokenBank

	// Now supplies the authority's notion of time for expiry checks.
	Now func() *big.Int

	// owner -> token -> allowance granted to the vault
	allowances map[common.Address]map[common.Address]*allowanceState

	// owner -> one-shot nonces consumed
	usedNonces map[common.Address]map[string]bool
}

var _ authority.IAuthority = (*MockAuthority)(nil)

func NewMockAuthority(address common.Address, chainID *big.Int, spender common.Address, bank *TokenBank) *MockAuthority {
	return &MockAuthority{
		address:    address,
		chainID:    chainID,
		spender:    spender,
		bank:       bank,
		Now:        func() *big.Int { return big.NewInt(1_700_000_000) },
		allowances: make(map[common.Address]map[common.Address]*allowanceState),
		usedNonces: make(map[common.Address]map[string]bool),
	}
}

func (m *MockAuthority) Address() common.Address {
	return m.address
}

func (m *MockAuthority) DomainSeparator(ctx context.Context) (common.Hash, error) {
	return permit2.DomainSeparator(m.chainID, m.address), nil
}

func (m *MockAuthority) Permit(ctx context.Context, owner common.Address, permit permit2.PermitSingle, signature []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	digest := permit2.HashPermitSingle(permit2.DomainSeparator(m.chainID, m.address), permit)
	if err := m.verifySigner(digest, signature, owner); err != nil {
		return err
	}
	if m.expired(permit.SigDeadline) {
		return fmt.Errorf("signature expired")
	}

	return m.recordAllowance(owner, permit.Details, permit.Spender)
}

func (m *MockAuthority) PermitBatch(ctx context.Context, owner common.Address, permit permit2.PermitBatch, signature []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	digest := permit2.HashPermitBatch(permit2.DomainSeparator(m.chainID, m.address), permit)
	if err := m.verifySigner(digest, signature, owner); err != nil {
		return err
	}
	if m.expired(permit.SigDeadline) {
		return fmt.Errorf("signature expired")
	}

	for _, details := range permit.Details {
		if err := m.recordAllowance(owner, details, permit.Spender); err != nil {
			return err
		}
	}
	return nil
}

func (m *MockAuthority) TransferFrom(ctx context.Context, from common.Address, to common.Address, amount *big.Int, token common.Address) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.spendAllowance(from, token, amount); err != nil {
		return err
	}
	return m.bank.Move(token, from, to, amount)
}

func (m *MockAuthority) BatchTransferFrom(ctx context.Context, transfers []permit2.AllowanceTransferDetails) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	// Validate every leg before moving anything, like the chain's atomic
	// execution.
	spent := make(map[common.Address]map[common.Address]*big.Int)
	for _, t := range transfers {
		byToken, ok := spent[t.From]
		if !ok {
			byToken = make(map[common.Address]*big.Int)
			spent[t.From] = byToken
		}
		total, ok := byToken[t.Token]
		if !ok {
			total = new(big.Int)
			byToken[t.Token] = total
		}
		total.Add(total, t.Amount)
	}
	for from, byToken := range spent {
		for token, total := range byToken {
			state := m.lookupAllowance(from, token)
			if state == nil || m.expired(state.expiration) {
				return fmt.Errorf("allowance expired or absent for %s", token.Hex())
			}
			if state.amount.Cmp(total) < 0 {
				return fmt.Errorf("insufficient allowance for %s", token.Hex())
			}
			if m.bank.BalanceOf(token, from).Cmp(total) < 0 {
				return fmt.Errorf("insufficient token balance for %s", token.Hex())
			}
		}
	}

	for _, t := range transfers {
		state := m.lookupAllowance(t.From, t.Token)
		state.amount = new(big.Int).Sub(state.amount, t.Amount)
		if err := m.bank.Move(t.Token, t.From, t.To, t.Amount); err != nil {
			return err
		}
	}
	return nil
}

func (m *MockAuthority) PermitTransferFrom(
	ctx context.Context,
	permit permit2.PermitTransferFrom,
	transfer permit2.SignatureTransferDetails,
	owner common.Address,
	signature []byte,
) error {
	digest := permit2.HashPermitTransferFrom(permit2.DomainSeparator(m.chainID, m.address), permit, m.spender)
	return m.oneShot(digest, permit, transfer, owner, signature)
}

func (m *MockAuthority) PermitBatchTransferFrom(
	ctx context.Context,
	permit permit2.PermitBatchTransferFrom,
	transfers []permit2.SignatureTransferDetails,
	owner common.Address,
	signature []byte,
) error {
	digest := permit2.HashPermitBatchTransferFrom(permit2.DomainSeparator(m.chainID, m.address), permit, m.spender)
	return m.oneShotBatch(digest, permit, transfers, owner, signature)
}

func (m *MockAuthority) PermitWitnessTransferFrom(
	ctx context.Context,
	permit permit2.PermitTransferFrom,
	transfer permit2.SignatureTransferDetails,
	owner common.Address,
	witness permit2.Witness,
	signature []byte,
) error {
	digest := permit2.HashPermitWitnessTransferFrom(permit2.DomainSeparator(m.chainID, m.address), permit, m.spender, witness)
	return m.oneShot(digest, permit, transfer, owner, signature)
}

func (m *MockAuthority) PermitBatchWitnessTransferFrom(
	ctx context.Context,
	permit permit2.PermitBatchTransferFrom,
	transfers []permit2.SignatureTransferDetails,
	owner common.Address,
	witness permit2.Witness,
	signature []byte,
) error {
	digest := permit2.HashPermitBatchWitnessTransferFrom(permit2.DomainSeparator(m.chainID, m.address), permit, m.spender, witness)
	return m.oneShotBatch(digest, permit, transfers, owner, signature)
}

func (m *MockAuthority) Allowance(ctx context.Context, owner common.Address, token common.Address, spender common.Address) (*authority.Allowance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if spender != m.spender {
		return &authority.Allowance{Amount: new(big.Int), Expiration: new(big.Int), Nonce: new(big.Int)}, nil
	}
	state := m.lookupAllowance(owner, token)
	if state == nil {
		return &authority.Allowance{Amount: new(big.Int), Expiration: new(big.Int), Nonce: new(big.Int)}, nil
	}
	return &authority.Allowance{
		Amount:     new(big.Int).Set(state.amount),
		Expiration: new(big.Int).Set(state.expiration),
		Nonce:      new(big.Int).SetUint64(state.nonce),
	}, nil
}

func (m *MockAuthority) NonceBitmap(ctx context.Context, owner common.Address, wordPos *big.Int) (*big.Int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	word := new(big.Int)
	for nonceStr, used := range m.usedNonces[owner] {
		if !used {
			continue
		}
		nonce, ok := new(big.Int).SetString(nonceStr, 10)
		if !ok {
			continue
		}
		if new(big.Int).Rsh(nonce, 8).Cmp(wordPos) == 0 {
			bit := uint(nonce.Uint64() & 0xff)
			word.SetBit(word, int(bit), 1)
		}
	}
	return word, nil
}

func (m *MockAuthority) oneShot(
	digest common.Hash,
	permit permit2.PermitTransferFrom,
	transfer permit2.SignatureTransferDetails,
	owner common.Address,
	signature []byte,
) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.verifySigner(digest, signature, owner); err != nil {
		return err
	}
	if m.expired(permit.Deadline) {
		return fmt.Errorf("signature expired")
	}
	if m.nonceUsed(owner, permit.Nonce) {
		return fmt.Errorf("nonce already used")
	}

	if transfer.RequestedAmount.Cmp(permit.Permitted.Amount) > 0 {
		return fmt.Errorf("requested amount exceeds permitted amount")
	}
	if err := m.bank.Move(permit.Permitted.Token, owner, transfer.To, transfer.RequestedAmount); err != nil {
		return err
	}

	m.consumeNonce(owner, permit.Nonce)
	return nil
}

func (m *MockAuthority) oneShotBatch(
	digest common.Hash,
	permit permit2.PermitBatchTransferFrom,
	transfers []permit2.SignatureTransferDetails,
	owner common.Address,
	signature []byte,
) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.verifySigner(digest, signature, owner); err != nil {
		return err
	}
	if m.expired(permit.Deadline) {
		return fmt.Errorf("signature expired")
	}
	if m.nonceUsed(owner, permit.Nonce) {
		return fmt.Errorf("nonce already used")
	}
	if len(transfers) != len(permit.Permitted) {
		return fmt.Errorf("transfer details length mismatch")
	}

	legs := make([]erc20.TokenTransfer, len(transfers))
	for i, transfer := range transfers {
		if transfer.RequestedAmount.Cmp(permit.Permitted[i].Amount) > 0 {
			return fmt.Errorf("requested amount exceeds permitted amount")
		}
		legs[i] = erc20.TokenTransfer{
			Token:  permit.Permitted[i].Token,
			To:     transfer.To,
			Amount: transfer.RequestedAmount,
		}
	}
	if err := m.bank.MoveAll(legs, owner); err != nil {
		return err
	}

	m.consumeNonce(owner, permit.Nonce)
	return nil
}

// verifySigner recovers the signer from a 65-byte r||s||v signature and
// compares it to the expected owner. Accepts v in {0, 1, 27, 28}.
func (m *MockAuthority) verifySigner(digest common.Hash, signature []byte, owner common.Address) error {
	if len(signature) != 65 {
		return fmt.Errorf("invalid signature length %d", len(signature))
	}

	sig := make([]byte, 65)
	copy(sig, signature)
	if sig[64] >= 27 {
		sig[64] -= 27
	}

	pubKey, err := crypto.SigToPub(digest.Bytes(), sig)
	if err != nil {
		return fmt.Errorf("invalid signature: %w", err)
	}
	if !bytes.Equal(crypto.PubkeyToAddress(*pubKey).Bytes(), owner.Bytes()) {
		return fmt.Errorf("invalid signer")
	}
	return nil
}

func (m *MockAuthority) recordAllowance(owner common.Address, details permit2.PermitDetails, spender common.Address) error {
	if spender != m.spender {
		return fmt.Errorf("spender mismatch")
	}

	byToken, ok := m.allowances[owner]
	if !ok {
		byToken = make(map[common.Address]*allowanceState)
		m.allowances[owner] = byToken
	}

	state, ok := byToken[details.Token]
	if !ok {
		state = &allowanceState{amount: new(big.Int), expiration: new(big.Int)}
		byToken[details.Token] = state
	}

	if details.Nonce == nil || details.Nonce.Uint64() != state.nonce {
		return fmt.Errorf("invalid nonce")
	}

	state.amount = new(big.Int).Set(details.Amount)
	state.expiration = new(big.Int).Set(details.Expiration)
	state.nonce++
	return nil
}

func (m *MockAuthority) lookupAllowance(owner common.Address, token common.Address) *allowanceState {
	byToken, ok := m.allowances[owner]
	if !ok {
		return nil
	}
	return byToken[token]
}

func (m *MockAuthority) spendAllowance(owner common.Address, token common.Address, amount *big.Int) error {
	state := m.lookupAllowance(owner, token)
	if state == nil || m.expired(state.expiration) {
		return fmt.Errorf("allowance expired or absent for %s", token.Hex())
	}
	if state.amount.Cmp(amount) < 0 {
		return fmt.Errorf("insufficient allowance for %s", token.Hex())
	}
	state.amount = new(big.Int).Sub(state.amount, amount)
	return nil
}

func (m *MockAuthority) expired(deadline *big.Int) bool {
	return deadline == nil || m.Now().Cmp(deadline) > 0
}

func (m *MockAuthority) nonceUsed(owner common.Address, nonce *big.Int) bool {
	if nonce == nil {
		return true
	}
	return m.usedNonces[owner][nonce.String()]
}

func (m *MockAuthority) consumeNonce(owner common.Address, nonce *big.Int) {
	used, ok := m.usedNonces[owner]
	if !ok {
		used = make(map[string]bool)
		m.usedNonces[owner] = used
	}
	used[nonce.String()] = true
}
