// Package dump renders values in the layouts of PHP's print_r, var_dump
// and debug_zval_dump, plus a key/value table for diagnostics output.
package dump

import (
	"math"
	"strconv"
	"strings"

	"phpcore/pkg/value"
)

// PrintR renders v like print_r
func PrintR(v value.Value) string {
	var b strings.Builder
	printR(&b, v, 0, map[*value.Array]bool{})
	return b.String()
}

func printR(b *strings.Builder, v value.Value, indent int, path map[*value.Array]bool) {
	switch v.Kind() {
	case value.KindNull:
	case value.KindBool:
		if v.Bool() {
			b.WriteByte('1')
		}
	case value.KindInt:
		b.WriteString(strconv.FormatInt(v.Int(), 10))
	case value.KindFloat:
		b.WriteString(FormatFloat(v.Float(), 14))
	case value.KindString:
		b.WriteString(v.Str())
	case value.KindArray:
		a := v.Array()
		b.WriteString("Array\n")
		if path[a] {
			b.WriteString(" *RECURSION*")
			return
		}
		path[a] = true
		defer delete(path, a)

		pad(b, indent)
		b.WriteString("(\n")
		for k, elem := range a.All() {
			pad(b, indent+4)
			b.WriteByte('[')
			b.WriteString(keyText(k))
			b.WriteString("] => ")
			printR(b, elem, indent+8, path)
			b.WriteByte('\n')
		}
		pad(b, indent)
		b.WriteString(")\n")
	}
}

// VarDump renders v like var_dump
func VarDump(v value.Value) string {
	var b strings.Builder
	varDump(&b, v, 0, false, map[*value.Array]bool{})
	return b.String()
}

// DebugZvalDump renders v like var_dump with the reference count of every
// heap value appended
func DebugZvalDump(v value.Value) string {
	var b strings.Builder
	varDump(&b, v, 0, true, map[*value.Array]bool{})
	return b.String()
}

func varDump(b *strings.Builder, v value.Value, depth int, refs bool, path map[*value.Array]bool) {
	pad(b, 2*depth)
	switch v.Kind() {
	case value.KindNull:
		b.WriteString("NULL\n")
	case value.KindBool:
		b.WriteString("bool(" + strconv.FormatBool(v.Bool()) + ")\n")
	case value.KindInt:
		b.WriteString("int(" + strconv.FormatInt(v.Int(), 10) + ")\n")
	case value.KindFloat:
		b.WriteString("float(" + FormatFloat(v.Float(), -1) + ")\n")
	case value.KindString:
		s := v.Str()
		b.WriteString("string(" + strconv.Itoa(len(s)) + ") \"" + s + "\"")
		if refs {
			b.WriteString(" refcount(" + strconv.FormatInt(v.RefCount(), 10) + ")")
		}
		b.WriteByte('\n')
	case value.KindArray:
		a := v.Array()
		if path[a] {
			b.WriteString("*RECURSION*\n")
			return
		}
		path[a] = true
		defer delete(path, a)

		b.WriteString("array(" + strconv.Itoa(a.Count()) + ") ")
		if refs {
			b.WriteString("refcount(" + strconv.FormatInt(v.RefCount(), 10) + ")")
		}
		b.WriteString("{\n")
		for k, elem := range a.All() {
			pad(b, 2*(depth+1))
			if k.IsInt() {
				b.WriteString("[" + keyText(k) + "]=>\n")
			} else {
				b.WriteString("[\"" + keyText(k) + "\"]=>\n")
			}
			varDump(b, elem, depth+1, refs, path)
		}
		pad(b, 2*depth)
		b.WriteString("}\n")
	}
}

// FormatFloat formats f the way PHP converts floats to strings. precision
// is the number of significant digits, or -1 for the shortest round-trip
// form.
func FormatFloat(f float64, precision int) string {
	switch {
	case math.IsNaN(f):
		return "NAN"
	case math.IsInf(f, 1):
		return "INF"
	case math.IsInf(f, -1):
		return "-INF"
	}
	if precision < 0 {
		// shortest form, exponent once the decimal exponent reaches 15
		// digits or drops below -4
		exp := 0
		if f != 0 {
			exp = int(math.Floor(math.Log10(math.Abs(f))))
		}
		if exp < -4 || exp >= 15 {
			return phpExponent(strconv.FormatFloat(f, 'e', -1, 64))
		}
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	s := strconv.FormatFloat(f, 'g', precision, 64)
	if strings.ContainsRune(s, 'e') {
		return phpExponent(s)
	}
	return s
}

// phpExponent turns Go's 1e+25 into 1.0E+25
func phpExponent(s string) string {
	mant, exp, _ := strings.Cut(s, "e")
	if !strings.ContainsRune(mant, '.') {
		mant += ".0"
	}
	sign := exp[0]
	digits := strings.TrimLeft(exp[1:], "0")
	if digits == "" {
		digits = "0"
	}
	return mant + "E" + string(sign) + digits
}

func keyText(k value.Key) string {
	if k.IsInt() {
		return strconv.FormatInt(k.Int(), 10)
	}
	return k.Str()
}

func pad(b *strings.Builder, n int) {
	for i := 0; i < n; i++ {
		b.WriteByte(' ')
	}
}
