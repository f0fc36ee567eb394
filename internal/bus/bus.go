package bus

import (
	"slices"
	"strings"
	"sync"
	"time"
)

// Bus is an in-process publish/subscribe event bus with namespace filtering.
// Publish never blocks: a subscriber that falls behind loses events rather
// than stalling the publisher.
type Bus struct {
	mu   sync.RWMutex
	subs map[int]*subscription
	next int
}

type subscription struct {
	namespace string
	kinds     []string
	ch        chan Event
}

func (s *subscription) matches(kind string) bool {
	if s.kinds != nil {
		return slices.Contains(s.kinds, kind)
	}
	return strings.HasPrefix(kind, s.namespace)
}

// New creates a new event bus.
func New() *Bus {
	return &Bus{
		subs: make(map[int]*subscription),
	}
}

// Publish sends an event to all subscribers whose namespace is a prefix of
// event.Kind, or whose kind list names it.
func (b *Bus) Publish(evt Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, sub := range b.subs {
		if sub.matches(evt.Kind) {
			select {
			case sub.ch <- evt:
			default:
			}
		}
	}
}

// Emit publishes kind/payload stamped with the current time. A nil bus is a no-op.
func (b *Bus) Emit(kind string, payload any) {
	if b == nil {
		return
	}
	b.Publish(Event{Kind: kind, Timestamp: time.Now(), Payload: payload})
}

// Subscribe returns a channel that receives events matching the given namespace prefix.
// bufSize controls the channel buffer. Returns the channel and an unsubscribe function.
func (b *Bus) Subscribe(namespace string, bufSize int) (<-chan Event, func()) {
	return b.add(&subscription{namespace: namespace, ch: make(chan Event, bufSize)})
}

// SubscribeKinds is like Subscribe but receives only the exact kinds listed,
// so chatty neighbours in the same namespace cannot crowd its buffer.
func (b *Bus) SubscribeKinds(bufSize int, kinds ...string) (<-chan Event, func()) {
	return b.add(&subscription{kinds: slices.Clone(kinds), ch: make(chan Event, bufSize)})
}

func (b *Bus) add(sub *subscription) (<-chan Event, func()) {
	b.mu.Lock()
	id := b.next
	b.next++
	b.subs[id] = sub
	b.mu.Unlock()

	var once sync.Once
	return sub.ch, func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
		})
	}
}

// Subscribers returns the number of live subscriptions.
func (b *Bus) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}
