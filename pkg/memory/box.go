package memory

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"sync/atomic"
)

// Reference-Counted Boxes
//
// Every heap payload (string bytes, array storage) lives in a Box that counts
// its live owners. The creator holds the first reference.
//   Retain:  count++   (caller becomes one more owner)
//   Release: count--   (on 1 -> 0 the finalizer runs once, payload dropped)
//
// Each box also carries a random 64-bit generation: non-zero while alive,
// zeroed on destruction. Any operation that observes generation 0 is a
// use-after-free and panics with a *Fault.
//
// Cycles are NOT reclaimed here. An array that transitively contains itself
// never reaches zero; Meta is reserved for an external tracing pass.

// Generation is a 64-bit random generation number
type Generation uint64

// randomGeneration generates a non-zero random generation
func randomGeneration() Generation {
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return Generation(0xDEADBEEF)
	}
	g := Generation(binary.LittleEndian.Uint64(buf[:]))
	if g == 0 {
		g = 1
	}
	return g
}

// CollectorMeta is the slot a tracing collector may use to mark boxes.
// Nothing in this module reads or writes it.
type CollectorMeta struct {
	Color atomic.Uint32
	Flags atomic.Uint32
}

// Box owns exactly one payload and counts references to it
type Box[T any] struct {
	refs     atomic.Int64
	gen      atomic.Uint64
	meta     CollectorMeta
	payload  T
	finalize func(T)
}

// NewBox boxes payload with a reference count of 1. finalize, if non-nil,
// runs exactly once when the last reference is released.
func NewBox[T any](payload T, finalize func(T)) *Box[T] {
	b := &Box[T]{payload: payload, finalize: finalize}
	b.refs.Store(1)
	b.gen.Store(uint64(randomGeneration()))
	stats.created.Add(1)
	return b
}

// Retain adds a reference and returns the same box as the new owner's handle
func (b *Box[T]) Retain() *Box[T] {
	for {
		n := b.refs.Load()
		if n <= 0 {
			panic(b.fault("retain", n))
		}
		if b.refs.CompareAndSwap(n, n+1) {
			return b
		}
	}
}

// Release drops a reference. It reports whether this call destroyed the box.
func (b *Box[T]) Release() bool {
	n := b.refs.Add(-1)
	if n > 0 {
		return false
	}
	if n < 0 {
		panic(b.fault("release", n+1))
	}

	b.gen.Store(0)
	payload := b.payload
	var zero T
	b.payload = zero
	if b.finalize != nil {
		b.finalize(payload)
	}
	stats.destroyed.Add(1)
	return true
}

// Payload returns the boxed value. The box keeps ownership.
func (b *Box[T]) Payload() T {
	if b.gen.Load() == 0 {
		panic(b.fault("payload", b.refs.Load()))
	}
	return b.payload
}

// RefCount returns the number of live references
func (b *Box[T]) RefCount() int64 {
	return b.refs.Load()
}

// Generation returns the current generation (0 once destroyed)
func (b *Box[T]) Generation() Generation {
	return Generation(b.gen.Load())
}

// Alive reports whether the box has not been destroyed
func (b *Box[T]) Alive() bool {
	return b.gen.Load() != 0
}

// Meta exposes the collector slot
func (b *Box[T]) Meta() *CollectorMeta {
	return &b.meta
}

func (b *Box[T]) fault(op string, count int64) *Fault {
	stats.faults.Add(1)
	kind := FaultUseAfterFree
	if count < 0 {
		kind = FaultUnderflow
	}
	return &Fault{Op: op, Kind: kind, Count: count}
}

// FaultKind classifies a bookkeeping defect
type FaultKind int

const (
	FaultUseAfterFree FaultKind = iota
	FaultUnderflow
)

func (k FaultKind) String() string {
	switch k {
	case FaultUseAfterFree:
		return "use-after-free"
	case FaultUnderflow:
		return "refcount underflow"
	default:
		return "unknown fault"
	}
}

// Fault is the panic value for reference-count misuse. It is never returned
// as an error: a fault means the caller's ownership bookkeeping is broken.
type Fault struct {
	Op    string
	Kind  FaultKind
	Count int64
}

func (f *Fault) Error() string {
	return fmt.Sprintf("memory: %s detected during %s (count %d)", f.Kind, f.Op, f.Count)
}
