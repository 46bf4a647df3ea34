package conc

import (
	"sync"
	"sync/atomic"
)

// RWLock allows many readers or one writer. Writers take priority over new
// readers once waiting, as with sync.RWMutex.
type RWLock struct {
	mu         sync.RWMutex
	readers    atomic.Int64
	writers    atomic.Int64
	readLocks  atomic.Uint64
	writeLocks atomic.Uint64
}

// LockRead acquires a shared lock
func (l *RWLock) LockRead() {
	l.mu.RLock()
	l.readers.Add(1)
	l.readLocks.Add(1)
}

// TryLockRead acquires a shared lock only if no writer holds or awaits it
func (l *RWLock) TryLockRead() bool {
	if !l.mu.TryRLock() {
		return false
	}
	l.readers.Add(1)
	l.readLocks.Add(1)
	return true
}

// UnlockRead releases a shared lock. Releasing one that is not held panics.
func (l *RWLock) UnlockRead() {
	if l.readers.Add(-1) < 0 {
		l.readers.Add(1)
		panic("conc: UnlockRead of RWLock without readers")
	}
	l.mu.RUnlock()
}

// LockWrite acquires the exclusive lock
func (l *RWLock) LockWrite() {
	l.mu.Lock()
	l.writers.Store(1)
	l.writeLocks.Add(1)
}

// TryLockWrite acquires the exclusive lock only if nobody holds the lock
func (l *RWLock) TryLockWrite() bool {
	if !l.mu.TryLock() {
		return false
	}
	l.writers.Store(1)
	l.writeLocks.Add(1)
	return true
}

// UnlockWrite releases the exclusive lock. Releasing it when not held panics.
func (l *RWLock) UnlockWrite() {
	if !l.writers.CompareAndSwap(1, 0) {
		panic("conc: UnlockWrite of RWLock without writer")
	}
	l.mu.Unlock()
}

// ReaderCount returns the readers currently holding the lock
func (l *RWLock) ReaderCount() int64 {
	return l.readers.Load()
}

// WriterCount returns 1 while a writer holds the lock, else 0
func (l *RWLock) WriterCount() int64 {
	return l.writers.Load()
}

// ReadLockCount returns how many shared acquisitions have happened
func (l *RWLock) ReadLockCount() uint64 {
	return l.readLocks.Load()
}

// WriteLockCount returns how many exclusive acquisitions have happened
func (l *RWLock) WriteLockCount() uint64 {
	return l.writeLocks.Load()
}

// RLocker returns a sync.Locker that takes the shared side
func (l *RWLock) RLocker() sync.Locker {
	return readLocker{l}
}

type readLocker struct{ l *RWLock }

func (r readLocker) Lock()   { r.l.LockRead() }
func (r readLocker) Unlock() { r.l.UnlockRead() }
