package conc

import (
	"sync"
	"sync/atomic"
)

// NoOwner is recorded by Lock and TryLock, which carry no owner identity
const NoOwner int64 = 0

// Mutex is an exclusive, non-reentrant lock with diagnostic counters.
// The counters never affect locking; they are updated only while the lock
// is held, so they agree with the lock state. Mutex implements sync.Locker.
type Mutex struct {
	mu        sync.Mutex
	held      atomic.Bool
	lockCount atomic.Uint64
	lastOwner atomic.Int64
}

// Lock blocks until the mutex is acquired
func (m *Mutex) Lock() {
	m.LockAs(NoOwner)
}

// LockAs acquires the mutex and records owner (a scheduler-assigned thread
// or coroutine ID) as the last holder
func (m *Mutex) LockAs(owner int64) {
	m.mu.Lock()
	m.acquired(owner)
}

// TryLock acquires the mutex only if it is free
func (m *Mutex) TryLock() bool {
	return m.TryLockAs(NoOwner)
}

// TryLockAs is TryLock recording owner on success
func (m *Mutex) TryLockAs(owner int64) bool {
	if !m.mu.TryLock() {
		return false
	}
	m.acquired(owner)
	return true
}

func (m *Mutex) acquired(owner int64) {
	m.held.Store(true)
	m.lockCount.Add(1)
	m.lastOwner.Store(owner)
}

// Unlock releases the mutex. Unlocking a free mutex panics.
func (m *Mutex) Unlock() {
	if !m.held.CompareAndSwap(true, false) {
		panic("conc: unlock of unlocked Mutex")
	}
	m.mu.Unlock()
}

// IsLocked reports whether some holder currently owns the mutex
func (m *Mutex) IsLocked() bool {
	return m.held.Load()
}

// LockCount returns how many times the mutex has been acquired
func (m *Mutex) LockCount() uint64 {
	return m.lockCount.Load()
}

// LastOwner returns the owner recorded by the most recent acquisition
func (m *Mutex) LastOwner() int64 {
	return m.lastOwner.Load()
}
