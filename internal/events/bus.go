package events

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// EventType represents the type of event
type EventType string

const (
	EventOrderPending    EventType = "order_pending"
	EventOrderReconciled EventType = "order_reconciled"
	EventOrderStarted    EventType = "order_started"
)

const subscriberBuffer = 16

// Event represents a server-sent event
type Event struct {
	Type EventType   `json:"type"`
	Data interface{} `json:"data"`
}

// OrderEvent is the payload of every order lifecycle event
type OrderEvent struct {
	OrderID     string    `json:"order_id"`
	ProductID   string    `json:"product_id,omitempty"`
	ProductName string    `json:"product_name,omitempty"`
	Quantity    int       `json:"quantity,omitempty"`
	TotalPrice  int64     `json:"total_price,omitempty"`
	Estimate    string    `json:"estimate,omitempty"`
	At          time.Time `json:"at"`
}

// Publisher is the write side of the bus, as seen by services
type Publisher interface {
	Publish(eventType EventType, data interface{})
}

type subscriber struct {
	ch      chan Event
	dropped atomic.Int64
}

// EventBus fans order events out to the ops feed
type EventBus struct {
	mu   sync.RWMutex
	subs map[string]*subscriber
}

// NewEventBus creates a new event bus
func NewEventBus() *EventBus {
	return &EventBus{subs: make(map[string]*subscriber)}
}

// Subscribe registers id until ctx is done. Subscribing an id that is
// already live closes the previous channel.
func (eb *EventBus) Subscribe(ctx context.Context, id string) <-chan Event {
	sub := &subscriber{ch: make(chan Event, subscriberBuffer)}

	eb.mu.Lock()
	if prev, ok := eb.subs[id]; ok {
		close(prev.ch)
	}
	eb.subs[id] = sub
	eb.mu.Unlock()

	go func() {
		<-ctx.Done()
		eb.remove(id, sub)
	}()

	return sub.ch
}

// Unsubscribe removes a subscriber and closes its channel
func (eb *EventBus) Unsubscribe(id string) {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	if sub, ok := eb.subs[id]; ok {
		eb.drop(id, sub)
	}
}

// remove only acts if id still maps to sub, so a stale ctx cannot
// tear down a newer subscription under the same id.
func (eb *EventBus) remove(id string, sub *subscriber) {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	if cur, ok := eb.subs[id]; ok && cur == sub {
		eb.drop(id, sub)
	}
}

func (eb *EventBus) drop(id string, sub *subscriber) {
	close(sub.ch)
	delete(eb.subs, id)
	if n := sub.dropped.Load(); n > 0 {
		slog.Debug("Subscriber missed events", "subscriber", id, "dropped", n)
	}
}

// SubscriberCount returns the number of live subscribers
func (eb *EventBus) SubscriberCount() int {
	eb.mu.RLock()
	defer eb.mu.RUnlock()
	return len(eb.subs)
}

// Dropped returns how many events id missed because its buffer was full
func (eb *EventBus) Dropped(id string) int64 {
	eb.mu.RLock()
	defer eb.mu.RUnlock()
	if sub, ok := eb.subs[id]; ok {
		return sub.dropped.Load()
	}
	return 0
}

// Publish never blocks; a full subscriber misses the event
func (eb *EventBus) Publish(eventType EventType, data interface{}) {
	event := Event{Type: eventType, Data: data}

	eb.mu.RLock()
	defer eb.mu.RUnlock()
	for _, sub := range eb.subs {
		select {
		case sub.ch <- event:
		default:
			sub.dropped.Add(1)
		}
	}
}

// FormatSSE renders an event in text/event-stream framing
func FormatSSE(event Event) (string, error) {
	data, err := json.Marshal(event.Data)
	if err != nil {
		return "", err
	}
	return "event: " + string(event.Type) + "\ndata: " + string(data) + "\n\n", nil
}
