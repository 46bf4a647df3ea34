// Package registry hands out the synchronization primitives used by the
// scheduler and tracks them by handle, so they can be looked up from any
// execution context and torn down together.
package registry

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"phpcore/pkg/channel"
	"phpcore/pkg/conc"
	"phpcore/pkg/logging"
	"phpcore/pkg/store"
)

var (
	ErrNotFound = errors.New("registry: no such handle")
	ErrKind     = errors.New("registry: handle has a different kind")
)

// Kind identifies the primitive behind a handle
type Kind int

const (
	KindChannel Kind = iota
	KindMutex
	KindRWLock
	KindAtomic
	KindStore
)

func (k Kind) String() string {
	switch k {
	case KindChannel:
		return "channel"
	case KindMutex:
		return "mutex"
	case KindRWLock:
		return "rwlock"
	case KindAtomic:
		return "atomic"
	case KindStore:
		return "store"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

type entry struct {
	kind Kind
	obj  any
}

// Registry maps handles to primitives. It is safe for concurrent use.
type Registry struct {
	lock  conc.RWLock
	items map[uuid.UUID]entry
	order []uuid.UUID
	log   logging.Logger
}

// New creates an empty registry. A nil logger discards output.
func New(log logging.Logger) *Registry {
	if log == nil {
		log = logging.Nop()
	}
	return &Registry{
		items: make(map[uuid.UUID]entry),
		log:   log.With(map[string]any{"component": "registry"}),
	}
}

func (r *Registry) add(kind Kind, obj any) uuid.UUID {
	id := uuid.New()

	r.lock.LockWrite()
	r.items[id] = entry{kind: kind, obj: obj}
	r.order = append(r.order, id)
	n := len(r.items)
	r.lock.UnlockWrite()

	r.log.Debugf("created %s %s (live=%d)", kind, id, n)
	return id
}

// NewChannel creates a channel; capacities below 1 become 1
func (r *Registry) NewChannel(capacity int) (uuid.UUID, *channel.Channel) {
	ch := channel.New(capacity)
	return r.add(KindChannel, ch), ch
}

func (r *Registry) NewMutex() (uuid.UUID, *conc.Mutex) {
	m := &conc.Mutex{}
	return r.add(KindMutex, m), m
}

func (r *Registry) NewRWLock() (uuid.UUID, *conc.RWLock) {
	l := &conc.RWLock{}
	return r.add(KindRWLock, l), l
}

func (r *Registry) NewAtomic(initial int64) (uuid.UUID, *conc.AtomicInt) {
	a := conc.NewAtomicInt(initial)
	return r.add(KindAtomic, a), a
}

func (r *Registry) NewStore() (uuid.UUID, *store.Store) {
	s := store.New()
	return r.add(KindStore, s), s
}

func lookup[T any](r *Registry, id uuid.UUID, want Kind) (T, error) {
	var zero T
	r.lock.LockRead()
	e, ok := r.items[id]
	r.lock.UnlockRead()

	if !ok {
		return zero, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if e.kind != want {
		return zero, fmt.Errorf("%w: %s is a %s, not a %s", ErrKind, id, e.kind, want)
	}
	return e.obj.(T), nil
}

func (r *Registry) Channel(id uuid.UUID) (*channel.Channel, error) {
	return lookup[*channel.Channel](r, id, KindChannel)
}

func (r *Registry) Mutex(id uuid.UUID) (*conc.Mutex, error) {
	return lookup[*conc.Mutex](r, id, KindMutex)
}

func (r *Registry) RWLock(id uuid.UUID) (*conc.RWLock, error) {
	return lookup[*conc.RWLock](r, id, KindRWLock)
}

func (r *Registry) Atomic(id uuid.UUID) (*conc.AtomicInt, error) {
	return lookup[*conc.AtomicInt](r, id, KindAtomic)
}

func (r *Registry) Store(id uuid.UUID) (*store.Store, error) {
	return lookup[*store.Store](r, id, KindStore)
}

// KindOf reports the kind of a live handle
func (r *Registry) KindOf(id uuid.UUID) (Kind, bool) {
	r.lock.LockRead()
	defer r.lock.UnlockRead()
	e, ok := r.items[id]
	return e.kind, ok
}

// Len returns the number of live handles
func (r *Registry) Len() int {
	r.lock.LockRead()
	defer r.lock.UnlockRead()
	return len(r.items)
}

// Destroy unregisters id. Channels are closed and drained and stores are
// cleared, releasing the values they own.
func (r *Registry) Destroy(id uuid.UUID) error {
	r.lock.LockWrite()
	e, ok := r.items[id]
	if ok {
		delete(r.items, id)
		for i, o := range r.order {
			if o == id {
				r.order = append(r.order[:i], r.order[i+1:]...)
				break
			}
		}
	}
	r.lock.UnlockWrite()

	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	teardown(e)
	r.log.Debugf("destroyed %s %s", e.kind, id)
	return nil
}

// Close destroys every handle, newest first
func (r *Registry) Close() {
	r.lock.LockWrite()
	items, order := r.items, r.order
	r.items = make(map[uuid.UUID]entry)
	r.order = nil
	r.lock.UnlockWrite()

	for i := len(order) - 1; i >= 0; i-- {
		teardown(items[order[i]])
	}
	if len(order) > 0 {
		r.log.Debugf("closed, destroyed %d handles", len(order))
	}
}

func teardown(e entry) {
	switch obj := e.obj.(type) {
	case *channel.Channel:
		obj.Destroy()
	case *store.Store:
		obj.Destroy()
	}
}
