// Package bus delivers auth-change notifications to interested components
// so navigation and header-injection logic stay decoupled from the call
// sites that log users in and out.
package bus

import (
	"sync"

	"pipersmart/internal/domain"
)

// Event describes an authentication change. User is nil after logout.
type Event struct {
	User *domain.Summary
}

// Callback receives auth-change events.
type Callback func(Event)

// Unsubscribe detaches a subscriber. Safe to call more than once and safe
// to call from inside event delivery.
type Unsubscribe func()

// Bus fans auth-change events out to subscribers.
//
// Delivery is synchronous: every subscriber runs to completion before
// Publish returns. Subscribers added after an event was published do not
// see it; there is no replay.
type Bus struct {
	mu     sync.Mutex
	nextID int
	subs   map[int]Callback
}

func New() *Bus {
	return &Bus{subs: make(map[int]Callback)}
}

// Subscribe registers cb and returns its unsubscribe handle.
func (b *Bus) Subscribe(cb Callback) Unsubscribe {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	b.subs[id] = cb

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
		})
	}
}

// Publish delivers the event to all current subscribers. The subscriber
// set is snapshotted first, so unsubscribing during delivery is safe; a
// subscriber removed mid-delivery may still receive the in-flight event.
func (b *Bus) Publish(user *domain.Summary) {
	b.mu.Lock()
	snapshot := make([]Callback, 0, len(b.subs))
	for _, cb := range b.subs {
		snapshot = append(snapshot, cb)
	}
	b.mu.Unlock()

	event := Event{User: user}
	for _, cb := range snapshot {
		cb(event)
	}
}
