package event

import (
	"fmt"
	"log/slog"
	"sync"
	"time"
)

const (
	EntityIdentity = "identity"
	EntitySession  = "session"
	EntityTask     = "task"
	EntityLifeArea = "life_area"
)

const (
	ActionCreated   = "created"
	ActionUpdated   = "updated"
	ActionToggled   = "toggled"
	ActionDeleted   = "deleted"
	ActionSeeded    = "seeded"
	ActionLoggedIn  = "logged_in"
	ActionLoggedOut = "logged_out"
)

// Event describes a change that has already been persisted.
type Event struct {
	Type       string    `json:"type"`
	Entity     string    `json:"entity"`
	Action     string    `json:"action"`
	ID         string    `json:"id,omitempty"`
	IdentityID string    `json:"identity_id,omitempty"`
	At         time.Time `json:"at"`
}

// New creates an Event with the Type field derived from entity and action.
func New(entity, action, id, identityID string) Event {
	return Event{
		Type:       fmt.Sprintf("%s_%s", entity, action),
		Entity:     entity,
		Action:     action,
		ID:         id,
		IdentityID: identityID,
		At:         time.Now().UTC(),
	}
}

type Handler func(Event)

// Subscription identifies a registered handler.
type Subscription uint64

type subscriber struct {
	id      Subscription
	handler Handler
}

// Bus delivers published events to subscribers synchronously, in subscription order.
type Bus struct {
	mu     sync.RWMutex
	next   Subscription
	subs   []subscriber
	logger *slog.Logger
}

func NewBus(logger *slog.Logger) *Bus {
	return &Bus{logger: logger}
}

// Subscribe registers h and returns the handle needed to unsubscribe it.
func (b *Bus) Subscribe(h Handler) Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.next++
	b.subs = append(b.subs, subscriber{id: b.next, handler: h})
	return b.next
}

// Unsubscribe removes the handler. Unknown subscriptions are ignored.
func (b *Bus) Unsubscribe(s Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, sub := range b.subs {
		if sub.id == s {
			b.subs = append(b.subs[:i:i], b.subs[i+1:]...)
			return
		}
	}
}

// Publish calls every handler with e. Handlers run outside the lock so they
// may subscribe or unsubscribe; a panicking handler is logged and skipped.
func (b *Bus) Publish(e Event) {
	b.mu.RLock()
	subs := make([]subscriber, len(b.subs))
	copy(subs, b.subs)
	b.mu.RUnlock()

	for _, sub := range subs {
		b.deliver(sub, e)
	}
}

func (b *Bus) deliver(sub subscriber, e Event) {
	defer func() {
		if r := recover(); r != nil && b.logger != nil {
			b.logger.Error("event handler panic", "type", e.Type, "subscription", sub.id, "panic", r)
		}
	}()
	sub.handler(e)
}

// SubscriberCount returns the number of registered handlers.
func (b *Bus) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}
