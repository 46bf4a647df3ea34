package conc

import "sync/atomic"

// AtomicInt is a 64-bit integer whose operations are sequentially consistent
type AtomicInt struct {
	v atomic.Int64
}

// NewAtomicInt creates an AtomicInt holding initial
func NewAtomicInt(initial int64) *AtomicInt {
	a := &AtomicInt{}
	a.v.Store(initial)
	return a
}

// Load returns the current value
func (a *AtomicInt) Load() int64 { return a.v.Load() }

// Store sets the value
func (a *AtomicInt) Store(n int64) { a.v.Store(n) }

// Add adds delta and returns the new value
func (a *AtomicInt) Add(delta int64) int64 { return a.v.Add(delta) }

// Sub subtracts delta and returns the new value
func (a *AtomicInt) Sub(delta int64) int64 { return a.v.Add(-delta) }

// Increment adds one and returns the new value
func (a *AtomicInt) Increment() int64 { return a.v.Add(1) }

// Decrement subtracts one and returns the new value
func (a *AtomicInt) Decrement() int64 { return a.v.Add(-1) }

// CompareAndSwap sets the value to next if it currently equals expected
func (a *AtomicInt) CompareAndSwap(expected, next int64) bool {
	return a.v.CompareAndSwap(expected, next)
}

// Swap sets the value to next and returns the previous value
func (a *AtomicInt) Swap(next int64) int64 { return a.v.Swap(next) }
