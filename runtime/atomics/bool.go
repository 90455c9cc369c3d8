// Package atomics provides small synchronization primitives layered on
// sync and sync/atomic.
package atomics

import "sync/atomic"

// Bool is an atomic boolean, zero value is false.
type Bool struct {
	value int32
}

// Get the current value.
func (b *Bool) Get() bool {
	return atomic.LoadInt32(&b.value) != 0
}

// Set the value.
func (b *Bool) Set(value bool) {
	atomic.StoreInt32(&b.value, encode(value))
}

// Swap sets the value and returns the previous one.
func (b *Bool) Swap(value bool) bool {
	return atomic.SwapInt32(&b.value, encode(value)) != 0
}

func encode(value bool) int32 {
	if value {
		return 1
	}
	return 0
}
