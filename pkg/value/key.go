package value

import (
	"errors"
	"fmt"
	"math"
	"strconv"
)

// ErrIllegalOffset is returned when a value cannot be used as an array key
var ErrIllegalOffset = errors.New("value: illegal offset type")

type keyKind uint8

const (
	keyInt keyKind = iota
	keyString
)

// Key indexes an Array: an integer or a byte string. Keys are comparable and
// are used directly as map keys.
type Key struct {
	kind keyKind
	i    int64
	s    string
}

// IntKey creates an integer key
func IntKey(i int64) Key {
	return Key{kind: keyInt, i: i}
}

// StrKey creates a string key. No numeric coercion is applied; see CoerceKey.
func StrKey(s string) Key {
	return Key{kind: keyString, s: s}
}

// IsInt reports whether k is an integer key
func (k Key) IsInt() bool { return k.kind == keyInt }

// Int returns the integer of an integer key; panics on a string key
func (k Key) Int() int64 {
	if k.kind != keyInt {
		panic("value: Int on string key")
	}
	return k.i
}

// Str returns the bytes of a string key; panics on an integer key
func (k Key) Str() string {
	if k.kind != keyString {
		panic("value: Str on integer key")
	}
	return k.s
}

// Value materialises the key. String keys allocate a new string box owned by
// the caller.
func (k Key) Value() Value {
	if k.kind == keyInt {
		return NewInt(k.i)
	}
	return NewString(k.s)
}

func (k Key) String() string {
	if k.kind == keyInt {
		return strconv.FormatInt(k.i, 10)
	}
	return strconv.Quote(k.s)
}

// KeyOf converts an Int or String value to a key without coercion.
// Any other kind is a caller defect and panics.
func KeyOf(v Value) Key {
	switch v.kind {
	case KindInt:
		return IntKey(v.i)
	case KindString:
		return StrKey(v.str.Payload())
	}
	panic(fmt.Sprintf("value: %s is not a valid array key", v.kind))
}

// KeyEqual compares two key values. Int and String keys of different kinds
// are unequal; a value of any other kind panics.
func KeyEqual(a, b Value) bool {
	return KeyOf(a) == KeyOf(b)
}

// CoerceKey applies the guest language's offset rules:
//   - decimal integer strings in canonical form ("12", "-3", not "012",
//     "1.0" or "-0") become integer keys
//   - booleans become 0 or 1
//   - floats truncate toward zero; NaN, infinities and out-of-range
//     floats become 0
//   - null becomes ""
//   - arrays are rejected with ErrIllegalOffset
func CoerceKey(v Value) (Key, error) {
	switch v.kind {
	case KindInt, KindBool:
		return IntKey(v.i), nil
	case KindString:
		s := v.str.Payload()
		if i, ok := canonicalInt(s); ok {
			return IntKey(i), nil
		}
		return StrKey(s), nil
	case KindFloat:
		return IntKey(floatToKey(v.f)), nil
	case KindNull:
		return StrKey(""), nil
	}
	return Key{}, fmt.Errorf("%w: %s", ErrIllegalOffset, v.kind)
}

func canonicalInt(s string) (int64, bool) {
	if s == "" || len(s) > 20 {
		return 0, false
	}
	digits := s
	if s[0] == '-' {
		digits = s[1:]
	}
	if digits == "" || (digits[0] == '0' && (len(digits) > 1 || len(s) != len(digits))) {
		return 0, false
	}
	for i := 0; i < len(digits); i++ {
		if digits[i] < '0' || digits[i] > '9' {
			return 0, false
		}
	}
	i, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, false
	}
	return i, true
}

func floatToKey(f float64) int64 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	t := math.Trunc(f)
	if t < math.MinInt64 || t >= math.MaxInt64 {
		return 0
	}
	return int64(t)
}
