package events

import (
	"sync"

	"github.com/patrickwarner/admediator/internal/models"
)

// Listener is an application callback for one event.
type Listener func(ev models.Event)

// Subscription identifies a registered listener so it can be removed.
type Subscription struct {
	kind models.EventKind
	all  bool
	id   uint64
}

type entry struct {
	id uint64
	fn Listener
}

// Bus fans decoded events out to application listeners. Listeners for a kind
// run in subscription order, followed by listeners registered for all kinds.
type Bus struct {
	mu     sync.RWMutex
	nextID uint64
	byKind map[models.EventKind][]entry
	all    []entry
}

// NewBus creates a bus with no listeners.
func NewBus() *Bus {
	return &Bus{byKind: make(map[models.EventKind][]entry)}
}

// Subscribe registers fn for events of the given kind.
func (b *Bus) Subscribe(kind models.EventKind, fn Listener) Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	b.byKind[kind] = append(b.byKind[kind], entry{id: b.nextID, fn: fn})
	return Subscription{kind: kind, id: b.nextID}
}

// SubscribeAll registers fn for every event.
func (b *Bus) SubscribeAll(fn Listener) Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	b.all = append(b.all, entry{id: b.nextID, fn: fn})
	return Subscription{all: true, id: b.nextID}
}

// Unsubscribe removes a listener. Unknown or already removed subscriptions
// are ignored.
func (b *Bus) Unsubscribe(sub Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if sub.all {
		b.all = without(b.all, sub.id)
		return
	}
	b.byKind[sub.kind] = without(b.byKind[sub.kind], sub.id)
}

func without(entries []entry, id uint64) []entry {
	out := make([]entry, 0, len(entries))
	for _, e := range entries {
		if e.id != id {
			out = append(out, e)
		}
	}
	return out
}

// Publish delivers ev to its listeners on the calling goroutine.
func (b *Bus) Publish(ev models.Event) {
	b.mu.RLock()
	targets := make([]Listener, 0, len(b.byKind[ev.Kind])+len(b.all))
	for _, e := range b.byKind[ev.Kind] {
		targets = append(targets, e.fn)
	}
	for _, e := range b.all {
		targets = append(targets, e.fn)
	}
	b.mu.RUnlock()

	for _, fn := range targets {
		fn(ev)
	}
}

// Listeners returns how many listeners are registered for kind, including
// the catch-all ones.
func (b *Bus) Listeners(kind models.EventKind) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.byKind[kind]) + len(b.all)
}
