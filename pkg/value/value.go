package value

import (
	"fmt"
	"math"
	"strconv"

	"phpcore/pkg/memory"
)

// Kind is the tag of a Value
type Kind uint8

const (
	KindNull Kind = iota
	KindBool
	KindInt
	KindFloat
	KindString // heap: *memory.Box[string]
	KindArray  // heap: *memory.Box[*Array]
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	case KindArray:
		return "array"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Value is the tagged union for guest values. The zero Value is null.
//
// Null, Bool, Int and Float are plain copies. String and Array hold one
// unit of ownership over a reference-counted box: copying a Value struct
// does not add an owner, Retain does. Every owner must Release exactly once.
type Value struct {
	kind Kind
	i    int64 // KindBool (0/1), KindInt
	f    float64
	str  *memory.Box[string]
	arr  *memory.Box[*Array]
}

// Null is the null value
var Null = Value{}

// NewBool creates a boolean value
func NewBool(b bool) Value {
	if b {
		return Value{kind: KindBool, i: 1}
	}
	return Value{kind: KindBool}
}

// NewInt creates an integer value
func NewInt(i int64) Value {
	return Value{kind: KindInt, i: i}
}

// NewFloat creates a floating point value
func NewFloat(f float64) Value {
	return Value{kind: KindFloat, f: f}
}

// NewString boxes s. The caller owns the returned reference.
func NewString(s string) Value {
	return Value{kind: KindString, str: memory.NewBox(s, nil)}
}

// FromArray boxes a, taking ownership of it. Releasing the last reference
// clears a, releasing every element depth-first.
func FromArray(a *Array) Value {
	return Value{kind: KindArray, arr: memory.NewBox(a, (*Array).Clear)}
}

// Kind returns the tag
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether v is null
func (v Value) IsNull() bool { return v.kind == KindNull }

// IsHeap reports whether v carries a reference-counted box
func (v Value) IsHeap() bool { return v.kind == KindString || v.kind == KindArray }

func (v Value) expect(k Kind) {
	if v.kind != k {
		panic(fmt.Sprintf("value: read %s arm of a %s value", k, v.kind))
	}
}

// Bool returns the boolean payload; panics on any other kind
func (v Value) Bool() bool {
	v.expect(KindBool)
	return v.i != 0
}

// Int returns the integer payload; panics on any other kind
func (v Value) Int() int64 {
	v.expect(KindInt)
	return v.i
}

// Float returns the float payload; panics on any other kind
func (v Value) Float() float64 {
	v.expect(KindFloat)
	return v.f
}

// Str returns the string bytes; panics on any other kind.
// The value keeps ownership.
func (v Value) Str() string {
	v.expect(KindString)
	return v.str.Payload()
}

// Array returns the boxed array; panics on any other kind.
// The value keeps ownership; Retain the value to keep the array alive.
func (v Value) Array() *Array {
	v.expect(KindArray)
	return v.arr.Payload()
}

// Retain returns an aliasing copy that is an owner in its own right.
// Inline kinds are returned unchanged.
func (v Value) Retain() Value {
	switch v.kind {
	case KindString:
		v.str.Retain()
	case KindArray:
		v.arr.Retain()
	}
	return v
}

// Release gives up this owner's reference. The payload is destroyed when the
// last reference goes; arrays release their elements first.
func (v Value) Release() {
	switch v.kind {
	case KindString:
		v.str.Release()
	case KindArray:
		v.arr.Release()
	}
}

// RefCount returns the box's reference count, or 0 for inline kinds
func (v Value) RefCount() int64 {
	switch v.kind {
	case KindString:
		return v.str.RefCount()
	case KindArray:
		return v.arr.RefCount()
	}
	return 0
}

// Alive reports whether a heap value's box still exists. Inline values are
// always alive.
func (v Value) Alive() bool {
	switch v.kind {
	case KindString:
		return v.str.Alive()
	case KindArray:
		return v.arr.Alive()
	}
	return true
}

// Meta exposes the collector slot of a heap value, nil for inline kinds
func (v Value) Meta() *memory.CollectorMeta {
	switch v.kind {
	case KindString:
		return v.str.Meta()
	case KindArray:
		return v.arr.Meta()
	}
	return nil
}

// Same reports whether v and w are the same inline value or share a box
func Same(v, w Value) bool {
	if v.kind != w.kind {
		return false
	}
	switch v.kind {
	case KindString:
		return v.str == w.str
	case KindArray:
		return v.arr == w.arr
	case KindFloat:
		return v.f == w.f || (math.IsNaN(v.f) && math.IsNaN(w.f))
	}
	return v.i == w.i
}

// Truthy applies the guest language's boolean conversion
func Truthy(v Value) bool {
	switch v.kind {
	case KindBool, KindInt:
		return v.i != 0
	case KindFloat:
		return v.f != 0
	case KindString:
		s := v.str.Payload()
		return s != "" && s != "0"
	case KindArray:
		return v.arr.Payload().Count() > 0
	}
	return false
}

// String returns a debug representation
func (v Value) String() string {
	switch v.kind {
	case KindNull:
		return "NULL"
	case KindBool:
		return strconv.FormatBool(v.i != 0)
	case KindInt:
		return strconv.FormatInt(v.i, 10)
	case KindFloat:
		return strconv.FormatFloat(v.f, 'G', 14, 64)
	case KindString:
		if !v.str.Alive() {
			return "<freed string>"
		}
		return strconv.Quote(v.str.Payload())
	case KindArray:
		if !v.arr.Alive() {
			return "<freed array>"
		}
		return fmt.Sprintf("array(%d)", v.arr.Payload().Count())
	default:
		return "?"
	}
}
