package events

import (
	"time"

	"github.com/shopspring/decimal"

	"referral-backend/internal/common/logger"
)

// Kind identifies a domain event.
type Kind string

const (
	KindPaymentCreated      Kind = "payment_created"
	KindPaymentResolved     Kind = "payment_resolved"
	KindDepositSubmitted    Kind = "deposit_submitted"
	KindDepositResolved     Kind = "deposit_resolved"
	KindWithdrawalSubmitted Kind = "withdrawal_submitted"
	KindWithdrawalResolved  Kind = "withdrawal_resolved"
)

// Event is an in-process domain event emitted by the ledgers after commit.
type Event struct {
	Kind      Kind
	UserID    int64
	UserLabel string
	Amount    decimal.Decimal
	Reference string
	Detail    string
	At        time.Time
}

// Bus is a bounded in-process event sink. Publishing never blocks a ledger
// transaction: when the buffer is full the event is dropped and logged.
type Bus struct {
	ch chan Event
}

// NewBus creates a bus with the given buffer size.
func NewBus(size int) *Bus {
	if size <= 0 {
		size = 64
	}
	return &Bus{ch: make(chan Event, size)}
}

// Publish enqueues the event, dropping it when the consumer lags.
func (b *Bus) Publish(e Event) {
	if e.At.IsZero() {
		e.At = time.Now()
	}
	select {
	case b.ch <- e:
	default:
		logger.Warn().
			Str("kind", string(e.Kind)).
			Str("reference", e.Reference).
			Msg("event bus full, dropping event")
	}
}

// Events returns the consumer side of the bus.
func (b *Bus) Events() <-chan Event {
	return b.ch
}

// Close closes the bus. Only the owner should call it, after all publishers
// have stopped.
func (b *Bus) Close() {
	close(b.ch)
}
