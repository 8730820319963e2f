// Package broadcast publishes immutable snapshots to any number of observers.
//
// Each subscriber holds at most one undelivered value: a slow reader skips
// intermediate snapshots and always sees the latest one. Publish never blocks.
package broadcast

import "sync"

// Broadcaster fans out values of type T.
type Broadcaster[T any] struct {
	mu     sync.Mutex
	latest T
	set    bool
	subs   map[int]chan T
	nextID int
	closed bool
}

// New creates a Broadcaster whose Latest value starts as initial.
func New[T any](initial T) *Broadcaster[T] {
	return &Broadcaster[T]{
		latest: initial,
		set:    true,
		subs:   make(map[int]chan T),
	}
}

// Publish records v as the latest value and offers it to every subscriber.
func (b *Broadcaster[T]) Publish(v T) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.latest = v
	b.set = true
	for _, ch := range b.subs {
		// Replace any undelivered value.
		select {
		case <-ch:
		default:
		}
		ch <- v
	}
}

// Latest returns the most recently published value.
func (b *Broadcaster[T]) Latest() T {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.latest
}

// Subscribe returns a channel primed with the latest value and a cancel func.
// The channel is closed by cancel or by Close.
func (b *Broadcaster[T]) Subscribe() (<-chan T, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan T, 1)
	if b.closed {
		close(ch)
		return ch, func() {}
	}
	if b.set {
		ch <- b.latest
	}

	id := b.nextID
	b.nextID++
	b.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			if c, ok := b.subs[id]; ok {
				delete(b.subs, id)
				close(c)
			}
		})
	}
}

// Subscribers returns the number of live subscriptions.
func (b *Broadcaster[T]) Subscribers() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

// Close closes every subscriber channel. Later publishes are dropped.
func (b *Broadcaster[T]) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true
	for id, ch := range b.subs {
		delete(b.subs, id)
		close(ch)
	}
}
