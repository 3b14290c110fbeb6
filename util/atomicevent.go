package util

import (
	"sync"
)

// AtomicEvent is a single-slot mailbox: only the latest value is kept
// and at most one notification is pending at any time. Senders never
// block.
type AtomicEvent[T any] struct {
	mu     sync.Mutex
	value  T
	notify chan struct{}
}

// NewAtomicEvent creates a new AtomicEvent instance.
func NewAtomicEvent[T any]() *AtomicEvent[T] {
	return &AtomicEvent[T]{
		notify: make(chan struct{}, 1),
	}
}

// Send replaces the stored value and raises the notification if none
// is pending yet. It never blocks.
func (ae *AtomicEvent[T]) Send(event T) {
	ae.mu.Lock()
	defer ae.mu.Unlock()

	ae.value = event

	select {
	case ae.notify <- struct{}{}:
	default:
		// a notification is already pending, the reader will pick up
		// the new value with it
	}
}

// Channel returns the notification channel for use in select statements.
func (ae *AtomicEvent[T]) Channel() <-chan struct{} {
	return ae.notify
}

// Value returns the most recently sent value.
func (ae *AtomicEvent[T]) Value() T {
	ae.mu.Lock()
	defer ae.mu.Unlock()
	return ae.value
}

// HasPending reports whether a notification is waiting to be consumed
// without consuming it.
func (ae *AtomicEvent[T]) HasPending() bool {
	return len(ae.notify) > 0
}
