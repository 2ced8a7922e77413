package fabric

import "sync"

// Buffer guards one shared mutable artifact composed by multiple writers.
//
// The lock is held only inside Update or for the Snapshot copy; stages do
// external work (inference, encoding) strictly outside the lock.
type Buffer[T any] struct {
	mu    sync.Mutex
	value T
}

// NewBuffer creates a buffer holding the zero value of T.
func NewBuffer[T any]() *Buffer[T] {
	return &Buffer[T]{}
}

// Update applies fn to the stored artifact under the lock. fn must not
// block on external work.
func (b *Buffer[T]) Update(fn func(*T)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	fn(&b.value)
}

// Snapshot returns a copy of the stored artifact taken under the lock.
func (b *Buffer[T]) Snapshot() T {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.value
}
