package value

import "math"

// Array operation surface. Operations that rebuild the entry set (Shift,
// Unshift, Reverse) assemble the replacement completely, reserve its budget,
// and only then swap it in; a failed reservation leaves the receiver exactly
// as it was. Operations that produce a new array never touch the receiver.

// Callback is the evaluator-supplied capability used by Filter and Map.
// Invoke borrows arg and returns a value owned by the caller.
type Callback interface {
	Invoke(arg Value) (Value, error)
}

// CallbackFunc adapts a plain function to Callback
type CallbackFunc func(arg Value) (Value, error)

// Invoke calls f(arg)
func (f CallbackFunc) Invoke(arg Value) (Value, error) {
	return f(arg)
}

// rebuild is a replacement entry set under construction. Values are moved
// into it, not retained: until commit the receiver still owns them.
type rebuild struct {
	entries []entry
	index   map[Key]int
	next    int64
	cost    int64
}

func newRebuild(capacity int) *rebuild {
	return &rebuild{
		entries: make([]entry, 0, capacity),
		index:   make(map[Key]int, capacity),
	}
}

func (r *rebuild) add(k Key, v Value) {
	r.entries = append(r.entries, entry{key: k, val: v, live: true})
	r.index[k] = len(r.entries) - 1
	r.cost += entryCost(k)
	if k.kind == keyInt && k.i >= r.next && k.i < math.MaxInt64 {
		r.next = k.i + 1
	}
}

// renumber adds v under the next integer key, keeping string keys as they are
func (r *rebuild) renumber(k Key, v Value) {
	if k.kind == keyString {
		r.add(k, v)
		return
	}
	r.add(IntKey(r.next), v)
}

// commit swaps r in after reserving its budget; the old entry set is dropped
// without releasing values, since they were moved.
func (a *Array) commit(r *rebuild) error {
	if err := a.lim.Reserve(r.cost); err != nil {
		return err
	}
	a.lim.Free(a.charged)
	a.entries = r.entries
	a.index = r.index
	a.live = len(r.entries)
	a.nextIndex = r.next
	a.nextFull = false
	a.charged = r.cost
	return nil
}

// Pop removes the entry with integer key Count()-1 and returns its value,
// now owned by the caller. Remaining keys are not renumbered. It reports
// false if the array is empty or has no such key. NextIndex is never
// lowered, so after a Pop followed by a Push the keys have a gap and the next
// Pop finds nothing at Count()-1.
func (a *Array) Pop() (Value, bool) {
	if a.live == 0 {
		return Null, false
	}
	i, ok := a.index[IntKey(int64(a.live-1))]
	if !ok {
		return Null, false
	}
	return a.take(i), true
}

// Shift removes the first entry in iteration order and returns its value,
// now owned by the caller. Integer keys of the remaining entries are
// renumbered from 0 in order; string keys are kept.
func (a *Array) Shift() (Value, bool, error) {
	first := a.firstLive()
	if first < 0 {
		return Null, false, nil
	}
	r := newRebuild(a.live - 1)
	for i := first + 1; i < len(a.entries); i++ {
		if e := a.entries[i]; e.live {
			r.renumber(e.key, e.val)
		}
	}
	v := a.entries[first].val
	if err := a.commit(r); err != nil {
		return Null, false, err
	}
	return v, true, nil
}

// Unshift prepends v at key 0, taking ownership of it. Existing integer keys
// are renumbered from 1 in order; string keys are kept. On error nothing
// changes and v still belongs to the caller.
func (a *Array) Unshift(v Value) error {
	r := newRebuild(a.live + 1)
	r.add(IntKey(0), v)
	for k, old := range a.All() {
		r.renumber(k, old)
	}
	return a.commit(r)
}

// Reverse reorders the values last-to-first under keys 0..Count()-1
func (a *Array) Reverse() error {
	r := newRebuild(a.live)
	for i := len(a.entries) - 1; i >= 0; i-- {
		if e := a.entries[i]; e.live {
			r.add(IntKey(r.next), e.val)
		}
	}
	return a.commit(r)
}

// Merge pushes a retained copy of every value of other, in order. Keys of
// other, string keys included, are discarded. Merging an array into itself
// appends a copy of its current values.
func (a *Array) Merge(other *Array) error {
	n := other.Count()
	if n == 0 {
		return nil
	}
	if a.nextFull || int64(n-1) > math.MaxInt64-a.nextIndex {
		return ErrNextIndexOccupied
	}
	cost := int64(n) * entryOverhead
	if err := a.lim.Reserve(cost); err != nil {
		return err
	}
	a.charged += cost

	vals := make([]Value, 0, n)
	for v := range other.Values() {
		vals = append(vals, v.Retain())
	}
	for _, v := range vals {
		a.append(IntKey(a.nextIndex), v)
	}
	return nil
}

// KeysArray returns a new list holding every key as a value
func (a *Array) KeysArray() (*Array, error) {
	out := NewArrayIn(a.lim)
	for k := range a.All() {
		kv := k.Value()
		if err := out.Push(kv); err != nil {
			kv.Release()
			out.Clear()
			return nil, err
		}
	}
	return out, nil
}

// ValuesArray returns a new list holding a retained copy of every value
func (a *Array) ValuesArray() (*Array, error) {
	out := NewArrayIn(a.lim)
	for v := range a.Values() {
		if err := out.Push(v.Retain()); err != nil {
			v.Release()
			out.Clear()
			return nil, err
		}
	}
	return out, nil
}

// Copy returns a new array with the same keys, order and next index, holding
// retained copies of every value
func (a *Array) Copy() (*Array, error) {
	out := NewArrayIn(a.lim)
	for k, v := range a.All() {
		if err := out.Set(k, v.Retain()); err != nil {
			v.Release()
			out.Clear()
			return nil, err
		}
	}
	out.nextIndex = a.nextIndex
	out.nextFull = a.nextFull
	return out, nil
}

// Filter returns a new array with the entries whose value makes cb return a
// truthy result. Keys are preserved.
func (a *Array) Filter(cb Callback) (*Array, error) {
	out := NewArrayIn(a.lim)
	for k, v := range a.All() {
		res, err := cb.Invoke(v)
		if err != nil {
			out.Clear()
			return nil, err
		}
		keep := Truthy(res)
		res.Release()
		if !keep {
			continue
		}
		if err := out.Set(k, v.Retain()); err != nil {
			v.Release()
			out.Clear()
			return nil, err
		}
	}
	return out, nil
}

// Map returns a new array holding cb's result for every value under the same
// keys
func (a *Array) Map(cb Callback) (*Array, error) {
	out := NewArrayIn(a.lim)
	for k, v := range a.All() {
		res, err := cb.Invoke(v)
		if err != nil {
			out.Clear()
			return nil, err
		}
		if err := out.Set(k, res); err != nil {
			res.Release()
			out.Clear()
			return nil, err
		}
	}
	return out, nil
}
