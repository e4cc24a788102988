// Package events fans lifecycle transition events out to in-process
// subscribers (the websocket activity stream).
package events

import (
	"sync"
	"time"
)

// Event describes one lifecycle status transition.
type Event struct {
	Entity  string    `json:"entity"`
	ID      string    `json:"id"`
	From    string    `json:"from,omitempty"`
	To      string    `json:"to"`
	ActorID string    `json:"actorId,omitempty"`
	At      time.Time `json:"at"`
}

// Broker is a non-blocking fanout of events to subscribers. A slow
// subscriber drops events rather than stalling the publisher.
type Broker struct {
	mu   sync.RWMutex
	subs map[chan Event]struct{}
}

func NewBroker() *Broker {
	return &Broker{subs: make(map[chan Event]struct{})}
}

// Publish delivers the event to all current subscribers without blocking.
func (b *Broker) Publish(e Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for ch := range b.subs {
		select {
		case ch <- e:
		default:
		}
	}
}

// Subscribe registers a new subscriber. The returned cancel func must be
// called when the subscriber goes away.
func (b *Broker) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, 32)
	b.mu.Lock()
	b.subs[ch] = struct{}{}
	b.mu.Unlock()

	cancel := func() {
		b.mu.Lock()
		delete(b.subs, ch)
		b.mu.Unlock()
	}
	return ch, cancel
}
