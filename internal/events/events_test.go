package events

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishAndConsume(t *testing.T) {
	bus := NewBus(4)

	bus.Publish(Event{
		Kind:      KindPaymentCreated,
		UserID:    42,
		UserLabel: "@alice",
		Amount:    decimal.NewFromInt(100),
		Reference: "pay-1",
	})

	select {
	case e := <-bus.Events():
		assert.Equal(t, KindPaymentCreated, e.Kind)
		assert.Equal(t, int64(42), e.UserID)
		assert.False(t, e.At.IsZero(), "publish stamps the event time")
	case <-time.After(time.Second):
		t.Fatal("no event received")
	}
}

func TestPublishNeverBlocksWhenFull(t *testing.T) {
	bus := NewBus(1)

	bus.Publish(Event{Kind: KindDepositSubmitted, Reference: "dep-1"})

	done := make(chan struct{})
	go func() {
		// Buffer already full; this must drop, not block.
		bus.Publish(Event{Kind: KindDepositSubmitted, Reference: "dep-2"})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked on a full bus")
	}

	e := <-bus.Events()
	require.Equal(t, "dep-1", e.Reference)

	select {
	case e := <-bus.Events():
		t.Fatalf("unexpected extra event %q", e.Reference)
	default:
	}
}
