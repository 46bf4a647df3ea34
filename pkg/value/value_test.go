package value

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"

	"phpcore/pkg/memory"
)

// leakCheck fails the test if boxes created after the call outlive it
func leakCheck(t *testing.T) func() {
	t.Helper()
	before := memory.Snapshot()
	return func() {
		t.Helper()
		if live := memory.Snapshot().Sub(before).Live(); live != 0 {
			t.Errorf("leaked %d boxes", live)
		}
	}
}

type kv struct{ K, V string }

func contents(a *Array) []kv {
	out := []kv{}
	for k, v := range a.All() {
		out = append(out, kv{k.String(), v.String()})
	}
	return out
}

func strList(t *testing.T, items ...string) *Array {
	t.Helper()
	vals := make([]Value, len(items))
	for i, s := range items {
		vals[i] = NewString(s)
	}
	a, err := NewList(vals...)
	if err != nil {
		t.Fatalf("NewList: %v", err)
	}
	return a
}

func expectPanic(t *testing.T, name string, fn func()) {
	t.Helper()
	defer func() {
		if recover() == nil {
			t.Errorf("%s: expected panic", name)
		}
	}()
	fn()
}

func TestInlineValuesHaveNoOwnership(t *testing.T) {
	for _, v := range []Value{Null, NewBool(true), NewInt(7), NewFloat(1.5)} {
		if v.IsHeap() {
			t.Errorf("%s should be inline", v.Kind())
		}
		if v.RefCount() != 0 {
			t.Errorf("%s: expected refcount 0, got %d", v.Kind(), v.RefCount())
		}
		r := v.Retain()
		r.Release()
		if !Same(r, v) {
			t.Errorf("%s: retain should return the same value", v.Kind())
		}
	}
}

func TestZeroValueIsNull(t *testing.T) {
	var v Value
	if !v.IsNull() || v.Kind() != KindNull {
		t.Errorf("zero Value should be null, got %s", v.Kind())
	}
}

func TestAccessorsPanicOnWrongArm(t *testing.T) {
	s := NewString("x")
	defer s.Release()

	expectPanic(t, "Int on string", func() { s.Int() })
	expectPanic(t, "Str on int", func() { NewInt(1).Str() })
	expectPanic(t, "Array on null", func() { Null.Array() })
	expectPanic(t, "Bool on float", func() { NewFloat(0).Bool() })
	expectPanic(t, "Float on bool", func() { NewBool(false).Float() })
}

func TestStringRetainRelease(t *testing.T) {
	defer leakCheck(t)()

	s := NewString("hello")
	if s.RefCount() != 1 {
		t.Fatalf("expected refcount 1, got %d", s.RefCount())
	}
	alias := s.Retain()
	if !Same(s, alias) || s.RefCount() != 2 {
		t.Fatalf("retain should alias the box, refcount=%d", s.RefCount())
	}
	alias.Release()
	if !s.Alive() || s.Str() != "hello" {
		t.Fatal("one owner remains; string must still be alive")
	}
	s.Release()
	if s.Alive() {
		t.Error("string should be destroyed by its last release")
	}
}

func TestArrayTeardownIsDepthFirst(t *testing.T) {
	before := memory.Snapshot()

	inner := NewArray()
	shared := NewString("shared")
	if err := inner.Push(shared); err != nil {
		t.Fatal(err)
	}
	kept := shared.Retain()
	innerV := FromArray(inner)

	outer := NewArray()
	_ = outer.Push(NewString("leaf"))
	_ = outer.Push(innerV)
	outerV := FromArray(outer)

	outerV.Release()
	delta := memory.Snapshot().Sub(before)
	if delta.BoxesCreated != 4 || delta.BoxesDestroyed != 3 {
		t.Fatalf("expected 4 created / 3 destroyed, got %+v", delta)
	}
	if innerV.Alive() {
		t.Error("inner array should be destroyed with its parent")
	}
	if !kept.Alive() || kept.RefCount() != 1 {
		t.Errorf("separately retained string must survive with refcount 1, got %d", kept.RefCount())
	}

	kept.Release()
	if live := memory.Snapshot().Sub(before).Live(); live != 0 {
		t.Errorf("expected everything freed, %d boxes live", live)
	}
}

func TestSelfReferenceIsNotReclaimed(t *testing.T) {
	defer leakCheck(t)()

	arr := NewArray()
	v := FromArray(arr)
	if err := arr.Push(v.Retain()); err != nil {
		t.Fatal(err)
	}
	v.Release()

	if !v.Alive() || v.RefCount() != 1 {
		t.Fatalf("cycle should keep the array alive, refcount=%d", v.RefCount())
	}

	// Breaking the cycle by hand is the only way to reclaim it here.
	arr.Clear()
	if v.Alive() {
		t.Error("clearing the self reference should destroy the array")
	}
}

func TestTruthy(t *testing.T) {
	defer leakCheck(t)()

	empty := FromArray(NewArray())
	defer empty.Release()
	full := FromArray(strList(t, "x"))
	defer full.Release()
	zero := NewString("0")
	defer zero.Release()
	blank := NewString("")
	defer blank.Release()
	word := NewString("0.0")
	defer word.Release()

	cases := []struct {
		v    Value
		want bool
	}{
		{Null, false},
		{NewBool(false), false},
		{NewBool(true), true},
		{NewInt(0), false},
		{NewInt(-1), true},
		{NewFloat(0), false},
		{NewFloat(math.NaN()), true},
		{blank, false},
		{zero, false},
		{word, true},
		{empty, false},
		{full, true},
	}
	for _, c := range cases {
		if got := Truthy(c.v); got != c.want {
			t.Errorf("Truthy(%s) = %v, want %v", c.v, got, c.want)
		}
	}
}

func TestValueString(t *testing.T) {
	defer leakCheck(t)()

	s := NewString("a\"b")
	defer s.Release()
	arr := FromArray(strList(t, "x", "y"))
	defer arr.Release()

	got := []string{Null.String(), NewBool(true).String(), NewInt(-3).String(), NewFloat(0.5).String(), s.String(), arr.String()}
	want := []string{"NULL", "true", "-3", "0.5", `"a\"b"`, "array(2)"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("String mismatch (-want +got):\n%s", diff)
	}
}

func TestMetaSlotOnlyForHeapValues(t *testing.T) {
	if NewInt(1).Meta() != nil {
		t.Error("inline values have no collector slot")
	}
	s := NewString("m")
	defer s.Release()
	if s.Meta() == nil {
		t.Error("heap values expose a collector slot")
	}
}
