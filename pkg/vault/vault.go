// Package vault is the custodial balance ledger. Depositors never approve
// the vault directly; signed Permit2-style authorizations are verified and
// executed by the external transfer authority, and the vault keeps its
// per-user per-token balance table consistent with what the authority moved.
//
// Every state-mutating call follows Validate -> Credit/Debit -> Delegate ->
// Emit. The Go substrate gives no transactional guarantee across those
// steps, so a failed delegation triggers an explicit rollback of the balance
// mutation; no partial effect survives a failed call.
package vault

import (
	"context"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/Layr-Labs/permit2-vault-go/pkg/authority"
	"github.com/Layr-Labs/permit2-vault-go/pkg/erc20"
	"github.com/Layr-Labs/permit2-vault-go/pkg/permit2"
	"github.com/Layr-Labs/permit2-vault-go/pkg/store"
)

// Config holds the vault's construction parameters.
type Config struct {
	// Address is the vault's own identity: the spender every allowance
	// authorization must name, and the recipient of one-shot deposits.
	Address common.Address

	// Logger is optional; a no-op logger is used if nil.
	Logger *zap.Logger
}

// Vault owns the balance table and gates every mutation behind a
// successfully delegated transfer. A mutex serializes state-mutating calls,
// so each call re-evaluates its preconditions against the latest committed
// state.
type Vault struct {
	mu sync.Mutex

	self      common.Address
	authority authority.IAuthority
	tokens    erc20.IERC20Client
	balances  store.IBalanceStore
	logger    *zap.Logger

	sinks []EventSink

	domainMu     sync.Mutex
	domain       common.Hash
	domainLoaded bool
}

func New(
	cfg *Config,
	auth authority.IAuthority,
	tokens erc20.IERC20Client,
	balances store.IBalanceStore,
) (*Vault, error) {
	if cfg == nil {
		return nil, errNilConfig
	}
	if auth == nil || tokens == nil || balances == nil {
		return nil, errNilDependency
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Vault{
		self:      cfg.Address,
		authority: auth,
		tokens:    tokens,
		balances:  balances,
		logger:    logger,
	}, nil
}

// Address returns the vault's identity.
func (v *Vault) Address() common.Address {
	return v.self
}

// Subscribe registers an event sink. Not safe to call concurrently with
// deposit/withdraw operations; register sinks during setup.
func (v *Vault) Subscribe(sink EventSink) {
	v.sinks = append(v.sinks, sink)
}

// BalanceOf returns the credited balance for (user, token).
func (v *Vault) BalanceOf(user common.Address, token common.Address) (*big.Int, error) {
	return v.balances.GetBalance(user, token)
}

// DepositWithPermit registers a signed single-token allowance with the
// authority and deposits amount, which may be anything up to the signed
// maximum. The credited amount always equals the moved amount; supplying
// more than the signed maximum fails at the authority, never clamps.
func (v *Vault) DepositWithPermit(
	ctx context.Context,
	user common.Address,
	permit permit2.PermitSingle,
	amount *big.Int,
	signature []byte,
) error {
	if permit.Spender != v.self {
		return ErrInvalidSpender
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	journal, err := v.credit(user, []TokenAmount{{Token: permit.Details.Token, Amount: amount}})
	if err != nil {
		return err
	}

	if err := v.authority.Permit(ctx, user, permit, signature); err != nil {
		v.rollback(user, journal)
		return &DelegationError{Op: "permit", Err: err}
	}
	if err := v.authority.TransferFrom(ctx, user, v.self, amount, permit.Details.Token); err != nil {
		v.rollback(user, journal)
		return &DelegationError{Op: "transferFrom", Err: err}
	}

	v.emitDeposit(user, []TokenAmount{{Token: permit.Details.Token, Amount: new(big.Int).Set(amount)}})
	return nil
}

// DepositBatchWithPermit is the batched allowance deposit. amounts parallels
// permit.Details; each amount may be anything up to that item's signed
// maximum, independently per item.
func (v *Vault) DepositBatchWithPermit(
	ctx context.Context,
	user common.Address,
	permit permit2.PermitBatch,
	amounts []*big.Int,
	signature []byte,
) error {
	if permit.Spender != v.self {
		return ErrInvalidSpender
	}
	if len(amounts) != len(permit.Details) {
		return ErrBatchLengthMismatch
	}

	legs := make([]TokenAmount, len(amounts))
	for i, amount := range amounts {
		legs[i] = TokenAmount{Token: permit.Details[i].Token, Amount: amount}
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	journal, err := v.credit(user, legs)
	if err != nil {
		return err
	}

	if err := v.authority.PermitBatch(ctx, user, permit, signature); err != nil {
		v.rollback(user, journal)
		return &DelegationError{Op: "permit batch", Err: err}
	}

	// Transfer order must match permit.Details order, or tokens and amounts
	// would be mismatched at the authority.
	transfers := make([]permit2.AllowanceTransferDetails, len(amounts))
	for i, amount := range amounts {
		transfers[i] = permit2.AllowanceTransferDetails{
			From:   user,
			To:     v.self,
			Amount: amount,
			Token:  permit.Details[i].Token,
		}
	}
	if err := v.authority.BatchTransferFrom(ctx, transfers); err != nil {
		v.rollback(user, journal)
		return &DelegationError{Op: "batch transferFrom", Err: err}
	}

	v.emitDeposit(user, copyLegs(legs))
	return nil
}

// Deposit moves tokens under a standing allowance registered by a prior
// DepositWithPermit. The vault performs no local allowance check; an absent,
// expired, or insufficient allowance fails at the authority and rolls the
// credit back.
func (v *Vault) Deposit(
	ctx context.Context,
	user common.Address,
	token common.Address,
	amount *big.Int,
) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	journal, err := v.credit(user, []TokenAmount{{Token: token, Amount: amount}})
	if err != nil {
		return err
	}

	if err := v.authority.TransferFrom(ctx, user, v.self, amount, token); err != nil {
		v.rollback(user, journal)
		return &DelegationError{Op: "transferFrom", Err: err}
	}

	v.emitDeposit(user, []TokenAmount{{Token: token, Amount: new(big.Int).Set(amount)}})
	return nil
}

// DepositBatch is Deposit over an ordered (token, amount) list.
func (v *Vault) DepositBatch(
	ctx context.Context,
	user common.Address,
	tokens []common.Address,
	amounts []*big.Int,
) error {
	if len(tokens) != len(amounts) {
		return ErrBatchLengthMismatch
	}

	legs := make([]TokenAmount, len(tokens))
	for i := range tokens {
		legs[i] = TokenAmount{Token: tokens[i], Amount: amounts[i]}
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	journal, err := v.credit(user, legs)
	if err != nil {
		return err
	}

	transfers := make([]permit2.AllowanceTransferDetails, len(legs))
	for i, leg := range legs {
		transfers[i] = permit2.AllowanceTransferDetails{
			From:   user,
			To:     v.self,
			Amount: leg.Amount,
			Token:  leg.Token,
		}
	}
	if err := v.authority.BatchTransferFrom(ctx, transfers); err != nil {
		v.rollback(user, journal)
		return &DelegationError{Op: "batch transferFrom", Err: err}
	}

	v.emitDeposit(user, copyLegs(legs))
	return nil
}

// DepositWithTransferPermit deposits via a one-shot signature transfer. The
// signed amount is credited in full; one-shot authorizations have no partial
// semantics. The authority's nonce bitmap prevents reuse.
func (v *Vault) DepositWithTransferPermit(
	ctx context.Context,
	user common.Address,
	permit permit2.PermitTransferFrom,
	signature []byte,
) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	leg := TokenAmount{Token: permit.Permitted.Token, Amount: permit.Permitted.Amount}
	journal, err := v.credit(user, []TokenAmount{leg})
	if err != nil {
		return err
	}

	transfer := permit2.SignatureTransferDetails{
		To:              v.self,
		RequestedAmount: permit.Permitted.Amount,
	}
	if err := v.authority.PermitTransferFrom(ctx, permit, transfer, user, signature); err != nil {
		v.rollback(user, journal)
		return &DelegationError{Op: "permitTransferFrom", Err: err}
	}

	v.emitDeposit(user, []TokenAmount{{Token: leg.Token, Amount: new(big.Int).Set(leg.Amount)}})
	return nil
}

// DepositBatchWithTransferPermit is the batched one-shot deposit. Every
// signed amount is credited and moved in full, in permit order.
func (v *Vault) DepositBatchWithTransferPermit(
	ctx context.Context,
	user common.Address,
	permit permit2.PermitBatchTransferFrom,
	signature []byte,
) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	legs := make([]TokenAmount, len(permit.Permitted))
	transfers := make([]permit2.SignatureTransferDetails, len(permit.Permitted))
	for i, permitted := range permit.Permitted {
		legs[i] = TokenAmount{Token: permitted.Token, Amount: permitted.Amount}
		transfers[i] = permit2.SignatureTransferDetails{
			To:              v.self,
			RequestedAmount: permitted.Amount,
		}
	}

	journal, err := v.credit(user, legs)
	if err != nil {
		return err
	}

	if err := v.authority.PermitBatchTransferFrom(ctx, permit, transfers, user, signature); err != nil {
		v.rollback(user, journal)
		return &DelegationError{Op: "batch permitTransferFrom", Err: err}
	}

	v.emitDeposit(user, copyLegs(legs))
	return nil
}

// DepositWithWitness is DepositWithTransferPermit for relayed submissions:
// the beneficiary is folded into the signed digest so a relayer cannot
// substitute itself. The credited balance is always keyed to the signer,
// regardless of the witness beneficiary.
func (v *Vault) DepositWithWitness(
	ctx context.Context,
	user common.Address,
	permit permit2.PermitTransferFrom,
	beneficiary common.Address,
	signature []byte,
) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	leg := TokenAmount{Token: permit.Permitted.Token, Amount: permit.Permitted.Amount}
	journal, err := v.credit(user, []TokenAmount{leg})
	if err != nil {
		return err
	}

	witness := permit2.DepositWitness{Beneficiary: beneficiary}
	transfer := permit2.SignatureTransferDetails{
		To:              v.self,
		RequestedAmount: permit.Permitted.Amount,
	}
	if err := v.authority.PermitWitnessTransferFrom(ctx, permit, transfer, user, witness, signature); err != nil {
		v.rollback(user, journal)
		return &DelegationError{Op: "permitWitnessTransferFrom", Err: err}
	}

	v.emitDeposit(user, []TokenAmount{{Token: leg.Token, Amount: new(big.Int).Set(leg.Amount)}})
	return nil
}

// DepositBatchWithWitness is the batched witness deposit.
func (v *Vault) DepositBatchWithWitness(
	ctx context.Context,
	user common.Address,
	permit permit2.PermitBatchTransferFrom,
	beneficiary common.Address,
	signature []byte,
) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	legs := make([]TokenAmount, len(permit.Permitted))
	transfers := make([]permit2.SignatureTransferDetails, len(permit.Permitted))
	for i, permitted := range permit.Permitted {
		legs[i] = TokenAmount{Token: permitted.Token, Amount: permitted.Amount}
		transfers[i] = permit2.SignatureTransferDetails{
			To:              v.self,
			RequestedAmount: permitted.Amount,
		}
	}

	journal, err := v.credit(user, legs)
	if err != nil {
		return err
	}

	witness := permit2.DepositWitness{Beneficiary: beneficiary}
	if err := v.authority.PermitBatchWitnessTransferFrom(ctx, permit, transfers, user, witness, signature); err != nil {
		v.rollback(user, journal)
		return &DelegationError{Op: "batch permitWitnessTransferFrom", Err: err}
	}

	v.emitDeposit(user, copyLegs(legs))
	return nil
}

// Withdraw debits the caller's balance and sends tokens to the recipient.
// The debit happens first; if the outbound transfer fails, the debit is
// rolled back.
func (v *Vault) Withdraw(
	ctx context.Context,
	user common.Address,
	token common.Address,
	amount *big.Int,
	recipient common.Address,
) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	journal, err := v.debit(user, []TokenAmount{{Token: token, Amount: amount}})
	if err != nil {
		return err
	}

	if err := v.tokens.Transfer(ctx, token, recipient, amount); err != nil {
		v.rollback(user, journal)
		return &DelegationError{Op: "withdrawal transfer", Err: err}
	}

	v.emitWithdraw(user, recipient, []TokenAmount{{Token: token, Amount: new(big.Int).Set(amount)}})
	return nil
}

// WithdrawBatch withdraws an ordered (token, amount) list to one recipient.
// Solvency is checked and debited per item before anything moves; the
// settlement itself is a single atomic batch, so a failure on any item
// leaves the balance table untouched.
func (v *Vault) WithdrawBatch(
	ctx context.Context,
	user common.Address,
	tokens []common.Address,
	amounts []*big.Int,
	recipient common.Address,
) error {
	if len(tokens) != len(amounts) {
		return ErrBatchLengthMismatch
	}

	legs := make([]TokenAmount, len(tokens))
	for i := range tokens {
		legs[i] = TokenAmount{Token: tokens[i], Amount: amounts[i]}
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	journal, err := v.debit(user, legs)
	if err != nil {
		return err
	}

	transfers := make([]erc20.TokenTransfer, len(legs))
	for i, leg := range legs {
		transfers[i] = erc20.TokenTransfer{Token: leg.Token, To: recipient, Amount: leg.Amount}
	}
	if err := v.tokens.TransferBatch(ctx, transfers); err != nil {
		v.rollback(user, journal)
		return &DelegationError{Op: "batch withdrawal transfer", Err: err}
	}

	v.emitWithdraw(user, recipient, copyLegs(legs))
	return nil
}

// journalEntry records a pre-mutation balance for rollback.
type journalEntry struct {
	token common.Address
	prev  *big.Int
}

// credit applies every leg in order, journaling the prior balance of each.
// Repeated tokens accumulate correctly because each leg re-reads the running
// balance. Any failure restores everything applied so far.
func (v *Vault) credit(user common.Address, legs []TokenAmount) ([]journalEntry, error) {
	journal := make([]journalEntry, 0, len(legs))
	for _, leg := range legs {
		if leg.Amount == nil || leg.Amount.Sign() < 0 {
			v.rollback(user, journal)
			return nil, ErrInvalidAmount
		}

		prev, err := v.balances.GetBalance(user, leg.Token)
		if err != nil {
			v.rollback(user, journal)
			return nil, err
		}
		if err := v.balances.SetBalance(user, leg.Token, new(big.Int).Add(prev, leg.Amount)); err != nil {
			v.rollback(user, journal)
			return nil, err
		}
		journal = append(journal, journalEntry{token: leg.Token, prev: prev})
	}
	return journal, nil
}

// debit is credit's inverse, with the solvency check: a leg exceeding the
// running balance fails with InsufficientBalanceError and restores every leg
// already applied.
func (v *Vault) debit(user common.Address, legs []TokenAmount) ([]journalEntry, error) {
	journal := make([]journalEntry, 0, len(legs))
	for _, leg := range legs {
		if leg.Amount == nil || leg.Amount.Sign() < 0 {
			v.rollback(user, journal)
			return nil, ErrInvalidAmount
		}

		prev, err := v.balances.GetBalance(user, leg.Token)
		if err != nil {
			v.rollback(user, journal)
			return nil, err
		}
		if prev.Cmp(leg.Amount) < 0 {
			insufficientErr := &InsufficientBalanceError{
				Token:     leg.Token,
				Requested: new(big.Int).Set(leg.Amount),
				Current:   prev,
			}
			v.rollback(user, journal)
			return nil, insufficientErr
		}
		if err := v.balances.SetBalance(user, leg.Token, new(big.Int).Sub(prev, leg.Amount)); err != nil {
			v.rollback(user, journal)
			return nil, err
		}
		journal = append(journal, journalEntry{token: leg.Token, prev: prev})
	}
	return journal, nil
}

// rollback restores journaled balances in reverse order. A store failure
// here cannot be compensated further; it is logged loudly for operator
// reconciliation.
func (v *Vault) rollback(user common.Address, journal []journalEntry) {
	for i := len(journal) - 1; i >= 0; i-- {
		entry := journal[i]
		if err := v.balances.SetBalance(user, entry.token, entry.prev); err != nil {
			v.logger.Sugar().Errorw("Failed to roll back balance mutation",
				"user", user.Hex(),
				"token", entry.token.Hex(),
				"restoreTo", entry.prev.String(),
				"error", err,
			)
		}
	}
}

func copyLegs(legs []TokenAmount) []TokenAmount {
	out := make([]TokenAmount, len(legs))
	for i, leg := range legs {
		out[i] = TokenAmount{Token: leg.Token, Amount: new(big.Int).Set(leg.Amount)}
	}
	return out
}
