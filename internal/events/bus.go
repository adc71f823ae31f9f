package events

import (
	"context"
	"sync"

	"github.com/goliatone/go-lifecycle/internal/domain"
	"github.com/goliatone/go-lifecycle/internal/item"
)

// Stage names the checkpoint within a transition.
const (
	StagePre  = "pre"
	StagePost = "post"
)

// Event carries a transition checkpoint to listeners. The item reference is
// replaceable: a listener may assign a new Item and the engine continues the
// pipeline with the replacement.
type Event struct {
	Name    string
	Process domain.Process
	Stage   string
	Item    *item.Item
	// Translation is the variant being transitioned. Listeners must not
	// assume it belongs to Item if they replaced the item reference.
	Translation *item.Translation
}

// Listener observes transition events. Dispatch is synchronous and
// in-process; a listener that mutates or replaces the event's item shapes
// every later step of that item's pipeline.
type Listener func(ctx context.Context, e *Event)

// Bus is a minimal synchronous event bus. Listeners fire in registration
// order per event name; no ordering holds across independently registered
// names.
type Bus struct {
	mu        sync.RWMutex
	listeners map[string][]Listener
	catchAll  []Listener
}

// NewBus creates an empty event bus.
func NewBus() *Bus {
	return &Bus{
		listeners: make(map[string][]Listener),
	}
}

// Subscribe attaches a listener to one event name.
func (b *Bus) Subscribe(name string, l Listener) {
	if l == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.listeners[name] = append(b.listeners[name], l)
}

// SubscribeAll attaches a listener to every event.
func (b *Bus) SubscribeAll(l Listener) {
	if l == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.catchAll = append(b.catchAll, l)
}

// Dispatch fires the event synchronously and returns the possibly-replaced
// item reference. Callers must continue with the returned reference.
func (b *Bus) Dispatch(ctx context.Context, e *Event) *item.Item {
	if e == nil {
		return nil
	}
	b.mu.RLock()
	named := b.listeners[e.Name]
	catchAll := b.catchAll
	b.mu.RUnlock()

	for _, l := range named {
		l(ctx, e)
	}
	for _, l := range catchAll {
		l(ctx, e)
	}
	return e.Item
}
