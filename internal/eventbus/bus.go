// Package eventbus is the typed publish/subscribe channel stateful components
// use to announce state changes without knowing their subscribers.
package eventbus

import (
	"sync"
	"time"
)

// Kind names an event stream.
type Kind string

const (
	KindChange      Kind = "change"
	KindOnline      Kind = "online"
	KindOffline     Kind = "offline"
	KindSyncError   Kind = "sync:error"
	KindStatus      Kind = "status"
	KindPrintDone   Kind = "print:done"
	KindPrintFailed Kind = "print:failed"
)

// Event is one published notification.
type Event struct {
	Kind    Kind
	Payload any
	At      time.Time
}

// Handler receives events. Handlers run synchronously on the publisher's
// goroutine, so they must be quick and must not block on the publisher.
type Handler func(Event)

type subscription struct {
	id uint64
	fn Handler
}

// Bus maps event kinds to ordered subscriber lists.
// The zero value is not usable; call New.
type Bus struct {
	mu     sync.RWMutex
	nextID uint64
	subs   map[Kind][]subscription
	all    []subscription
	now    func() time.Time
}

func New() *Bus {
	return &Bus{subs: make(map[Kind][]subscription), now: time.Now}
}

// Subscribe registers fn for kind. The returned cancel function removes the
// subscription and is safe to call more than once.
func (b *Bus) Subscribe(kind Kind, fn Handler) (cancel func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	id := b.nextID
	b.subs[kind] = append(b.subs[kind], subscription{id: id, fn: fn})

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		b.subs[kind] = remove(b.subs[kind], id)
	}
}

// SubscribeAll registers fn for every kind, in publication order.
func (b *Bus) SubscribeAll(fn Handler) (cancel func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	id := b.nextID
	b.all = append(b.all, subscription{id: id, fn: fn})

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		b.all = remove(b.all, id)
	}
}

// Publish delivers payload to the subscribers of kind, then to the
// catch-all subscribers, each in subscription order.
func (b *Bus) Publish(kind Kind, payload any) {
	b.mu.RLock()
	targets := make([]subscription, 0, len(b.subs[kind])+len(b.all))
	targets = append(targets, b.subs[kind]...)
	targets = append(targets, b.all...)
	b.mu.RUnlock()

	ev := Event{Kind: kind, Payload: payload, At: b.now()}
	for _, s := range targets {
		s.fn(ev)
	}
}

func remove(list []subscription, id uint64) []subscription {
	for i, s := range list {
		if s.id == id {
			out := make([]subscription, 0, len(list)-1)
			out = append(out, list[:i]...)
			return append(out, list[i+1:]...)
		}
	}
	return list
}
