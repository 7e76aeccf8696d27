// Package broker holds the single refresh subscriber of a client session.
package broker

import (
	"sync"

	"github.com/bissquit/crmdesk/internal/domain"
)

// Subscriber receives every freshly fetched bundle.
type Subscriber func(bundle *domain.Bundle)

// Broker has one subscriber slot. Registering replaces the previous
// subscriber; only the current one is ever invoked.
type Broker struct {
	mu    sync.Mutex
	fn    Subscriber
	token uint64
}

// New creates an empty broker.
func New() *Broker {
	return &Broker{}
}

// Subscribe makes fn the current subscriber. The returned function clears
// the slot only while fn is still the current subscriber.
func (b *Broker) Subscribe(fn Subscriber) (unsubscribe func()) {
	b.mu.Lock()
	b.token++
	token := b.token
	b.fn = fn
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if b.token == token {
			b.fn = nil
		}
	}
}

// Publish hands bundle to the current subscriber, if any. It reports
// whether a subscriber was invoked.
func (b *Broker) Publish(bundle *domain.Bundle) bool {
	b.mu.Lock()
	fn := b.fn
	b.mu.Unlock()

	if fn == nil {
		return false
	}
	fn(bundle)
	return true
}

// HasSubscriber reports whether the slot is occupied.
func (b *Broker) HasSubscriber() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.fn != nil
}
