package vault

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
)

// TokenAmount is one (token, amount) leg of a deposit or withdrawal.
type TokenAmount struct {
	Token  common.Address
	Amount *big.Int
}

// DepositEvent is an immutable record of a successful deposit, emitted after
// the balance mutation and delegated transfer both land.
type DepositEvent struct {
	ID        string
	User      common.Address
	Transfers []TokenAmount
	At        time.Time
}

// WithdrawEvent is an immutable record of a successful withdrawal.
type WithdrawEvent struct {
	ID        string
	User      common.Address
	Recipient common.Address
	Transfers []TokenAmount
	At        time.Time
}

// EventSink receives event records. Sinks are notification-only: they run
// after state is committed and must not block for long, as they execute on
// the vault's call path.
type EventSink interface {
	HandleDeposit(event *DepositEvent)
	HandleWithdraw(event *WithdrawEvent)
}

// ChannelSink buffers events onto channels for an external consumer. Events
// are dropped when the buffer is full rather than stalling vault calls.
type ChannelSink struct {
	Deposits  chan *DepositEvent
	Withdraws chan *WithdrawEvent
}

var _ EventSink = (*ChannelSink)(nil)

func NewChannelSink(buffer int) *ChannelSink {
	return &ChannelSink{
		Deposits:  make(chan *DepositEvent, buffer),
		Withdraws: make(chan *WithdrawEvent, buffer),
	}
}

func (s *ChannelSink) HandleDeposit(event *DepositEvent) {
	select {
	case s.Deposits <- event:
	default:
	}
}

func (s *ChannelSink) HandleWithdraw(event *WithdrawEvent) {
	select {
	case s.Withdraws <- event:
	default:
	}
}

func (v *Vault) emitDeposit(user common.Address, transfers []TokenAmount) {
	event := &DepositEvent{
		ID:        uuid.New().String(),
		User:      user,
		Transfers: transfers,
		At:        time.Now(),
	}

	v.logger.Sugar().Infow("Deposit committed",
		"eventId", event.ID,
		"user", user.Hex(),
		"legs", len(transfers),
	)

	for _, sink := range v.sinks {
		sink.HandleDeposit(event)
	}
}

func (v *Vault) emitWithdraw(user common.Address, recipient common.Address, transfers []TokenAmount) {
	event := &WithdrawEvent{
		ID:        uuid.New().String(),
		User:      user,
		Recipient: recipient,
		Transfers: transfers,
		At:        time.Now(),
	}

	v.logger.Sugar().Infow("Withdrawal committed",
		"eventId", event.ID,
		"user", user.Hex(),
		"recipient", recipient.Hex(),
		"legs", len(transfers),
	)

	for _, sink := range v.sinks {
		sink.HandleWithdraw(event)
	}
}
