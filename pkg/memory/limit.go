package memory

import (
	"errors"
	"fmt"
	"sync/atomic"
)

// Allocation budget, in the spirit of the guest language's memory_limit.
// Containers reserve bytes before they grow and free them when they shrink;
// a failed reservation is how allocation failure reaches the caller.

// Unlimited disables the budget check
const Unlimited int64 = -1

// ErrOutOfMemory is returned when a reservation would exceed the limit
var ErrOutOfMemory = errors.New("memory: allocation limit exhausted")

// Limiter tracks bytes reserved against a limit. A nil *Limiter is unlimited.
type Limiter struct {
	limit atomic.Int64
	used  atomic.Int64
	peak  atomic.Int64
}

// NewLimiter creates a limiter; pass Unlimited (or any negative) for no cap
func NewLimiter(limit int64) *Limiter {
	l := &Limiter{}
	l.SetLimit(limit)
	return l
}

var defaultLimiter = NewLimiter(Unlimited)

// Default returns the process-wide limiter charged by containers that were
// not given one explicitly
func Default() *Limiter {
	return defaultLimiter
}

// Reserve charges n bytes, failing with ErrOutOfMemory if the limit would be
// exceeded. Nothing is charged on failure.
func (l *Limiter) Reserve(n int64) error {
	if l == nil || n <= 0 {
		return nil
	}
	for {
		used := l.used.Load()
		limit := l.limit.Load()
		if limit >= 0 && used+n > limit {
			return fmt.Errorf("%w: %d bytes requested, %d of %d in use", ErrOutOfMemory, n, used, limit)
		}
		if l.used.CompareAndSwap(used, used+n) {
			l.notePeak(used + n)
			return nil
		}
	}
}

// Free returns n previously reserved bytes
func (l *Limiter) Free(n int64) {
	if l == nil || n <= 0 {
		return
	}
	if l.used.Add(-n) < 0 {
		panic(fmt.Sprintf("memory: limiter freed %d bytes more than reserved", n))
	}
}

func (l *Limiter) notePeak(v int64) {
	for {
		p := l.peak.Load()
		if v <= p || l.peak.CompareAndSwap(p, v) {
			return
		}
	}
}

// SetLimit changes the cap. Lowering it below Used does not reclaim anything;
// it only makes further reservations fail.
func (l *Limiter) SetLimit(limit int64) {
	if limit < 0 {
		limit = Unlimited
	}
	l.limit.Store(limit)
}

// Limit returns the cap, or Unlimited
func (l *Limiter) Limit() int64 {
	if l == nil {
		return Unlimited
	}
	return l.limit.Load()
}

// Used returns the bytes currently reserved
func (l *Limiter) Used() int64 {
	if l == nil {
		return 0
	}
	return l.used.Load()
}

// Peak returns the high-water mark of Used
func (l *Limiter) Peak() int64 {
	if l == nil {
		return 0
	}
	return l.peak.Load()
}
