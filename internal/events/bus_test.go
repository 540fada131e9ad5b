package events

import (
	"errors"
	"testing"
	"time"
)

func receive(t *testing.T, ch <-chan Event) Event {
	t.Helper()
	select {
	case ev := <-ch:
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("Timed out waiting for event")
	}
	return Event{}
}

func TestSubscribeReceivesOnlyItsType(t *testing.T) {
	bus := NewEventBus()
	trades := make(chan Event, 4)
	bus.Subscribe(EventTradeGenerated, func(ev Event) { trades <- ev })

	bus.PublishError("test", "ignored", nil)
	bus.PublishTradeGenerated("t-1", "BTCUSDT", "LONG", "day", 65000, 72.5, false)

	ev := receive(t, trades)
	if ev.Type != EventTradeGenerated {
		t.Errorf("Expected %s, got %s", EventTradeGenerated, ev.Type)
	}
	if ev.Data["symbol"] != "BTCUSDT" {
		t.Errorf("Expected symbol BTCUSDT, got %v", ev.Data["symbol"])
	}
	if ev.Timestamp.IsZero() {
		t.Error("Expected timestamp to be set")
	}

	select {
	case extra := <-trades:
		t.Errorf("Expected no further events, got %s", extra.Type)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestSubscribeAll(t *testing.T) {
	bus := NewEventBus()
	all := make(chan Event, 4)
	bus.SubscribeAll(func(ev Event) { all <- ev })

	bus.PublishError("marketdata", "fetch failed", errors.New("timeout"))
	ev := receive(t, all)
	if ev.Type != EventError {
		t.Fatalf("Expected %s, got %s", EventError, ev.Type)
	}
	if ev.Data["error"] != "timeout" {
		t.Errorf("Expected error timeout, got %v", ev.Data["error"])
	}
}

func TestPublishReversalType(t *testing.T) {
	tests := []struct {
		name     string
		detected bool
		want     EventType
	}{
		{"detected", true, EventReversalDetected},
		{"not detected", false, EventReversalEvaluated},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bus := NewEventBus()
			all := make(chan Event, 1)
			bus.SubscribeAll(func(ev Event) { all <- ev })

			bus.PublishReversal("r-1", "ETHUSDT", "LONG", "CLOSE", 80, tt.detected, []string{"choch"})
			ev := receive(t, all)
			if ev.Type != tt.want {
				t.Errorf("Expected %s, got %s", tt.want, ev.Type)
			}
		})
	}
}

func TestPublishKeepsExplicitTimestamp(t *testing.T) {
	bus := NewEventBus()
	all := make(chan Event, 1)
	bus.SubscribeAll(func(ev Event) { all <- ev })

	stamp := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	bus.Publish(Event{Type: EventError, Timestamp: stamp})
	if got := receive(t, all).Timestamp; !got.Equal(stamp) {
		t.Errorf("Expected timestamp %v, got %v", stamp, got)
	}
}
