package events

import (
	"sync"
	"time"
)

// EventType represents different types of events in the system
type EventType string

const (
	EventTradeGenerated    EventType = "TRADE_GENERATED"
	EventReversalDetected  EventType = "REVERSAL_DETECTED"
	EventReversalEvaluated EventType = "REVERSAL_EVALUATED"
	EventError             EventType = "ERROR"
)

// Event represents a system event
type Event struct {
	Type      EventType              `json:"type"`
	Timestamp time.Time              `json:"timestamp"`
	Data      map[string]interface{} `json:"data"`
}

// Subscriber is a function that handles events
type Subscriber func(Event)

// EventBus manages event publishing and subscriptions
type EventBus struct {
	mu          sync.RWMutex
	subscribers map[EventType][]Subscriber
	allSubs     []Subscriber // Subscribers to all events
	now         func() time.Time
}

// NewEventBus creates a new event bus
func NewEventBus() *EventBus {
	return &EventBus{
		subscribers: make(map[EventType][]Subscriber),
		allSubs:     make([]Subscriber, 0),
		now:         time.Now,
	}
}

// Subscribe registers a subscriber for a specific event type
func (eb *EventBus) Subscribe(eventType EventType, subscriber Subscriber) {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	eb.subscribers[eventType] = append(eb.subscribers[eventType], subscriber)
}

// SubscribeAll registers a subscriber for all events
func (eb *EventBus) SubscribeAll(subscriber Subscriber) {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	eb.allSubs = append(eb.allSubs, subscriber)
}

// Publish sends an event to all subscribers. Subscribers run on their own
// goroutines so a slow consumer never blocks the publisher.
func (eb *EventBus) Publish(event Event) {
	eb.mu.RLock()
	defer eb.mu.RUnlock()

	if event.Timestamp.IsZero() {
		event.Timestamp = eb.now()
	}

	for _, sub := range eb.subscribers[event.Type] {
		go sub(event)
	}
	for _, sub := range eb.allSubs {
		go sub(event)
	}
}

// PublishTradeGenerated announces a new trade candidate
func (eb *EventBus) PublishTradeGenerated(id, symbol, direction, modality string, entry, signalStrength float64, caution bool) {
	eb.Publish(Event{
		Type: EventTradeGenerated,
		Data: map[string]interface{}{
			"id":              id,
			"symbol":          symbol,
			"direction":       direction,
			"modality":        modality,
			"entry_price":     entry,
			"signal_strength": signalStrength,
			"caution":         caution,
		},
	})
}

// PublishReversal announces a reversal evaluation. Evaluations that flagged a
// reversal go out as REVERSAL_DETECTED, the rest as REVERSAL_EVALUATED.
func (eb *EventBus) PublishReversal(id, symbol, side, action string, confidence float64, detected bool, signals []string) {
	eventType := EventReversalEvaluated
	if detected {
		eventType = EventReversalDetected
	}
	eb.Publish(Event{
		Type: eventType,
		Data: map[string]interface{}{
			"id":                 id,
			"symbol":             symbol,
			"side":               side,
			"recommended_action": action,
			"confidence":         confidence,
			"signals":            signals,
		},
	})
}

// PublishError publishes an error event
func (eb *EventBus) PublishError(source, message string, err error) {
	data := map[string]interface{}{
		"source":  source,
		"message": message,
	}
	if err != nil {
		data["error"] = err.Error()
	}
	eb.Publish(Event{
		Type: EventError,
		Data: data,
	})
}
