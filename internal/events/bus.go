package events

import (
	"log/slog"
	"runtime/debug"
	"sync"

	"github.com/google/uuid"
)

// Handler handles an event. Handlers run synchronously on the publisher's
// goroutine and must not block.
type Handler func(Event)

// Publisher is the sending side of a Bus.
type Publisher interface {
	Publish(Event)
}

type subscription struct {
	id      string
	handler Handler
}

// Bus is a synchronous pub-sub event bus.
type Bus struct {
	mu            sync.RWMutex
	subscriptions map[string][]subscription // eventType -> subscriptions
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{subscriptions: make(map[string][]subscription)}
}

// Subscribe registers handler for eventType and returns its subscription ID.
func (b *Bus) Subscribe(eventType string, handler Handler) string {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := uuid.NewString()
	b.subscriptions[eventType] = append(b.subscriptions[eventType], subscription{id: id, handler: handler})
	return id
}

// SubscribeAll registers handler for every event type.
func (b *Bus) SubscribeAll(handler Handler) string {
	return b.Subscribe(wildcard, handler)
}

// Unsubscribe removes a subscription. Returns false if id is unknown.
func (b *Bus) Unsubscribe(id string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	for eventType, subs := range b.subscriptions {
		for i, sub := range subs {
			if sub.id != id {
				continue
			}
			rest := make([]subscription, 0, len(subs)-1)
			rest = append(rest, subs[:i]...)
			b.subscriptions[eventType] = append(rest, subs[i+1:]...)
			return true
		}
	}
	return false
}

// Publish dispatches e to handlers of its type, then to wildcard handlers,
// each group in registration order. A panicking handler is logged and skipped.
func (b *Bus) Publish(e Event) {
	b.mu.RLock()
	specific := b.subscriptions[e.Type]
	all := b.subscriptions[wildcard]
	b.mu.RUnlock()

	// Subscription slices are replaced, never mutated in place, so the
	// snapshots above stay valid without copying.
	for _, sub := range specific {
		safeCall(sub.handler, e)
	}
	for _, sub := range all {
		safeCall(sub.handler, e)
	}
}

func safeCall(handler Handler, e Event) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("event handler panicked", "type", e.Type, "panic", r, "stack", string(debug.Stack()))
		}
	}()
	handler(e)
}

// Discard is a Publisher that drops every event.
var Discard Publisher = discard{}

type discard struct{}

func (discard) Publish(Event) {}
