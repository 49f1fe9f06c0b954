package notifications

import (
	"context"
	"fmt"

	"referral-backend/internal/common/logger"
	"referral-backend/internal/events"
)

// Sender delivers a formatted notification to the operator chat.
type Sender interface {
	SendMessage(ctx context.Context, chatID int64, text string) error
}

// Relay consumes domain events and forwards human-readable summaries to the
// operator chat. Delivery is best effort: a failed send is logged and
// dropped, never retried, and never affects the ledgers that emitted the
// event.
type Relay struct {
	bus    *events.Bus
	sender Sender
	chatID int64
	done   chan struct{}
}

func NewRelay(bus *events.Bus, sender Sender, chatID int64) *Relay {
	return &Relay{
		bus:    bus,
		sender: sender,
		chatID: chatID,
		done:   make(chan struct{}),
	}
}

// Start consumes events until the context is cancelled or the bus closes.
func (r *Relay) Start(ctx context.Context) {
	go func() {
		defer close(r.done)
		for {
			select {
			case <-ctx.Done():
				return
			case e, ok := <-r.bus.Events():
				if !ok {
					return
				}
				r.deliver(ctx, e)
			}
		}
	}()
}

// Wait blocks until the consumer goroutine has stopped.
func (r *Relay) Wait() {
	<-r.done
}

func (r *Relay) deliver(ctx context.Context, e events.Event) {
	if r.chatID == 0 {
		return
	}
	text := Format(e)
	if text == "" {
		return
	}
	if err := r.sender.SendMessage(ctx, r.chatID, text); err != nil {
		logger.Warn().Err(err).
			Str("kind", string(e.Kind)).
			Str("reference", e.Reference).
			Msg("failed to deliver notification")
	}
}

// Format renders an event as the operator chat message. Unknown kinds render
// to an empty string and are skipped.
func Format(e events.Event) string {
	label := e.UserLabel
	if label == "" {
		label = fmt.Sprintf("user %d", e.UserID)
	}

	switch e.Kind {
	case events.KindPaymentCreated:
		return fmt.Sprintf("New payment intent from %s: %s USD for %q (id %s)",
			label, e.Amount.StringFixed(2), e.Detail, e.Reference)
	case events.KindPaymentResolved:
		return fmt.Sprintf("Payment %s resolved as %s (%s USD)",
			e.Reference, e.Detail, e.Amount.StringFixed(2))
	case events.KindDepositSubmitted:
		return fmt.Sprintf("New deposit notice from %s: %s USD (id %s)",
			label, e.Amount.StringFixed(2), e.Reference)
	case events.KindDepositResolved:
		return fmt.Sprintf("Deposit notice %s resolved as %s (%s USD)",
			e.Reference, e.Detail, e.Amount.StringFixed(2))
	case events.KindWithdrawalSubmitted:
		return fmt.Sprintf("New withdrawal request from %s: %s USD (id %s)",
			label, e.Amount.StringFixed(2), e.Reference)
	case events.KindWithdrawalResolved:
		return fmt.Sprintf("Withdrawal %s moved to %s (%s USD)",
			e.Reference, e.Detail, e.Amount.StringFixed(2))
	}
	return ""
}
