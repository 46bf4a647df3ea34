package value

import (
	"errors"
	"fmt"
	"iter"
	"math"

	"phpcore/pkg/memory"
)

// Ordered Associative Array
//
// Entries live in a slice in insertion order; a map from Key to slice
// position gives O(1) average lookup. Deleting leaves a tombstone in the
// slice so positions of later entries stay valid; once tombstones outnumber
// live entries the slice is compacted. Re-adding a deleted key appends it,
// so it moves to the end of iteration order.
//
// nextIndex is the key the next Push receives. An explicit integer Set at or
// beyond nextIndex moves it to key+1, as the guest language does, so Push
// never lands on an existing key. Once the key MaxInt64 has been used
// nextFull is set and Push fails.

// entryOverhead is the budget charged per live entry, plus string key bytes
const entryOverhead = 48

// ErrNextIndexOccupied is returned by Push once the largest integer key has
// been used
var ErrNextIndexOccupied = errors.New("value: cannot append, next element is already occupied")

type entry struct {
	key  Key
	val  Value
	live bool
}

// Array is the guest language's ordered associative array. It is not safe
// for concurrent use; share it through a store or channel instead.
type Array struct {
	entries   []entry
	index     map[Key]int
	live      int
	nextIndex int64
	nextFull  bool
	lim       *memory.Limiter
	charged   int64
}

// NewArray creates an empty array charged to the default limiter
func NewArray() *Array {
	return NewArrayIn(memory.Default())
}

// NewArrayIn creates an empty array charged to lim (nil for unlimited)
func NewArrayIn(lim *memory.Limiter) *Array {
	return &Array{
		index: make(map[Key]int),
		lim:   lim,
	}
}

// NewList builds a list with keys 0..n-1, taking ownership of vals
func NewList(vals ...Value) (*Array, error) {
	a := NewArray()
	for i, v := range vals {
		if err := a.Push(v); err != nil {
			for _, rest := range vals[i:] {
				rest.Release()
			}
			a.Clear()
			return nil, err
		}
	}
	return a, nil
}

func entryCost(k Key) int64 {
	return entryOverhead + int64(len(k.s))
}

// Limiter returns the budget this array is charged to
func (a *Array) Limiter() *memory.Limiter { return a.lim }

// Count returns the number of live entries
func (a *Array) Count() int { return a.live }

// NextIndex returns the key the next Push will use
func (a *Array) NextIndex() int64 { return a.nextIndex }

// Get returns the value stored under k. Ownership stays with the array:
// Retain the result to keep it past the next mutation.
func (a *Array) Get(k Key) (Value, bool) {
	i, ok := a.index[k]
	if !ok {
		return Null, false
	}
	return a.entries[i].val, true
}

// Has reports whether k is present
func (a *Array) Has(k Key) bool {
	_, ok := a.index[k]
	return ok
}

// Set stores v under k, taking ownership of v. An existing value is released
// and keeps its position. On error nothing changes and v still belongs to
// the caller.
func (a *Array) Set(k Key, v Value) error {
	if i, ok := a.index[k]; ok {
		old := a.entries[i].val
		a.entries[i].val = v
		old.Release()
		return nil
	}
	if err := a.lim.Reserve(entryCost(k)); err != nil {
		return err
	}
	a.charged += entryCost(k)
	a.append(k, v)
	return nil
}

// Push appends v under NextIndex, taking ownership of v. On error v still
// belongs to the caller.
func (a *Array) Push(v Value) error {
	if a.nextFull {
		return ErrNextIndexOccupied
	}
	return a.Set(IntKey(a.nextIndex), v)
}

// Delete removes k and releases its value
func (a *Array) Delete(k Key) bool {
	i, ok := a.index[k]
	if !ok {
		return false
	}
	v := a.take(i)
	v.Release()
	return true
}

// append adds a new key; the budget must already be charged
func (a *Array) append(k Key, v Value) {
	a.entries = append(a.entries, entry{key: k, val: v, live: true})
	a.index[k] = len(a.entries) - 1
	a.live++
	if k.kind == keyInt && k.i >= a.nextIndex && !a.nextFull {
		if k.i == math.MaxInt64 {
			a.nextIndex = k.i
			a.nextFull = true
		} else {
			a.nextIndex = k.i + 1
		}
	}
}

// take unlinks the entry at position i and hands its value to the caller
func (a *Array) take(i int) Value {
	e := &a.entries[i]
	v := e.val
	delete(a.index, e.key)
	cost := entryCost(e.key)
	a.lim.Free(cost)
	a.charged -= cost
	*e = entry{}
	a.live--
	a.maybeCompact()
	return v
}

func (a *Array) maybeCompact() {
	dead := len(a.entries) - a.live
	if dead < 8 || dead <= a.live {
		return
	}
	if a.live == 0 {
		a.entries = a.entries[:0]
		return
	}
	compact := make([]entry, 0, a.live)
	for _, e := range a.entries {
		if e.live {
			a.index[e.key] = len(compact)
			compact = append(compact, e)
		}
	}
	a.entries = compact
}

// Clear releases every value and empties the array. nextIndex is reset.
func (a *Array) Clear() {
	entries := a.entries
	a.entries = nil
	a.index = make(map[Key]int)
	a.live = 0
	a.nextIndex = 0
	a.nextFull = false
	a.lim.Free(a.charged)
	a.charged = 0
	for _, e := range entries {
		if e.live {
			e.val.Release()
		}
	}
}

func (a *Array) firstLive() int {
	for i := range a.entries {
		if a.entries[i].live {
			return i
		}
	}
	return -1
}

// All yields (key, value) pairs in insertion order. The sequence is lazy and
// may be ranged over any number of times; values stay owned by the array.
// Mutating the array while ranging, other than Set on an existing key, has
// unspecified results.
func (a *Array) All() iter.Seq2[Key, Value] {
	return func(yield func(Key, Value) bool) {
		for i := 0; i < len(a.entries); i++ {
			e := a.entries[i]
			if !e.live {
				continue
			}
			if !yield(e.key, e.val) {
				return
			}
		}
	}
}

// Keys yields keys in insertion order
func (a *Array) Keys() iter.Seq[Key] {
	return func(yield func(Key) bool) {
		for k := range a.All() {
			if !yield(k) {
				return
			}
		}
	}
}

// Values yields values in insertion order, borrowed from the array
func (a *Array) Values() iter.Seq[Value] {
	return func(yield func(Value) bool) {
		for _, v := range a.All() {
			if !yield(v) {
				return
			}
		}
	}
}

// IsList reports whether the keys are exactly 0..Count()-1 in order
func (a *Array) IsList() bool {
	var want int64
	for k := range a.All() {
		if k.kind != keyInt || k.i != want {
			return false
		}
		want++
	}
	return true
}

func (a *Array) String() string {
	return fmt.Sprintf("array(%d)", a.live)
}
