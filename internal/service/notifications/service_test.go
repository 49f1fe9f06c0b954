package notifications

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"referral-backend/internal/events"
)

type senderStub struct {
	mu       sync.Mutex
	messages []string
	fail     bool
}

func (s *senderStub) SendMessage(ctx context.Context, chatID int64, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return errors.New("telegram unavailable")
	}
	s.messages = append(s.messages, text)
	return nil
}

func (s *senderStub) sent() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.messages...)
}

func TestRelayDeliversEvents(t *testing.T) {
	bus := events.NewBus(8)
	sender := &senderStub{}
	relay := NewRelay(bus, sender, 42)
	relay.Start(context.Background())

	bus.Publish(events.Event{
		Kind:      events.KindDepositSubmitted,
		UserID:    1,
		UserLabel: "@alice",
		Amount:    decimal.NewFromInt(100),
		Reference: "dep-1",
	})
	bus.Close()
	relay.Wait()

	msgs := sender.sent()
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0], "@alice")
	assert.Contains(t, msgs[0], "100.00")
}

func TestRelaySurvivesSendFailure(t *testing.T) {
	bus := events.NewBus(8)
	sender := &senderStub{fail: true}
	relay := NewRelay(bus, sender, 42)
	relay.Start(context.Background())

	bus.Publish(events.Event{Kind: events.KindPaymentCreated, UserID: 1, Reference: "pay-1"})
	bus.Close()

	done := make(chan struct{})
	go func() {
		relay.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("relay did not stop after bus close")
	}
}

func TestRelayStopsOnContextCancel(t *testing.T) {
	bus := events.NewBus(8)
	relay := NewRelay(bus, &senderStub{}, 42)

	ctx, cancel := context.WithCancel(context.Background())
	relay.Start(ctx)
	cancel()

	done := make(chan struct{})
	go func() {
		relay.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("relay did not stop on cancel")
	}
}

func TestFormatFallsBackToUserID(t *testing.T) {
	text := Format(events.Event{
		Kind:      events.KindWithdrawalSubmitted,
		UserID:    7,
		Amount:    decimal.NewFromInt(50),
		Reference: "wd-1",
	})
	assert.Contains(t, text, "user 7")
}

func TestFormatUnknownKindSkipped(t *testing.T) {
	assert.Empty(t, Format(events.Event{Kind: events.Kind("mystery")}))
}
