// Package notify is a registry of callbacks for in-process events.
package notify

import (
	"sync"

	"github.com/google/uuid"
)

type listener[T any] struct {
	id uuid.UUID
	fn func(T)
}

// Listeners holds the callbacks subscribed to one event. Callbacks run synchronously on the firing
// goroutine, in subscription order, and must not block.
type Listeners[T any] struct {
	mu        sync.RWMutex
	listeners []listener[T]
}

// Subscribe adds fn and returns the function that removes it again. Unsubscribing twice is a no-op.
func (l *Listeners[T]) Subscribe(fn func(T)) func() {
	id := uuid.New()

	l.mu.Lock()
	l.listeners = append(l.listeners, listener[T]{id: id, fn: fn})
	l.mu.Unlock()

	return func() {
		l.unsubscribe(id)
	}
}

func (l *Listeners[T]) unsubscribe(id uuid.UUID) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for i, ln := range l.listeners {
		if ln.id == id {
			l.listeners = append(l.listeners[:i:i], l.listeners[i+1:]...)
			return
		}
	}
}

// Fire calls every subscribed callback with v.
func (l *Listeners[T]) Fire(v T) {
	l.mu.RLock()
	listeners := l.listeners
	l.mu.RUnlock()

	for _, ln := range listeners {
		ln.fn(v)
	}
}

func (l *Listeners[T]) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return len(l.listeners)
}

// Clear removes every callback.
func (l *Listeners[T]) Clear() {
	l.mu.Lock()
	l.listeners = nil
	l.mu.Unlock()
}
