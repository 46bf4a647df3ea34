package value

import "testing"

// ============ Ordered Array Benchmarks ============

func BenchmarkArray_Push(b *testing.B) {
	for i := 0; i < b.N; i++ {
		a := NewArray()
		for j := 0; j < 64; j++ {
			_ = a.Push(NewInt(int64(j)))
		}
		a.Clear()
	}
}

func BenchmarkArray_GetInt(b *testing.B) {
	a := NewArray()
	defer a.Clear()
	for j := 0; j < 1024; j++ {
		_ = a.Push(NewInt(int64(j)))
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		a.Get(IntKey(int64(i & 1023)))
	}
}

func BenchmarkArray_GetString(b *testing.B) {
	a := NewArray()
	defer a.Clear()
	_ = a.Set(StrKey("needle"), NewInt(1))
	k := StrKey("needle")
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		a.Get(k)
	}
}

func BenchmarkArray_Iterate(b *testing.B) {
	a := NewArray()
	defer a.Clear()
	for j := 0; j < 1024; j++ {
		_ = a.Push(NewInt(int64(j)))
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		for range a.All() {
		}
	}
}

func BenchmarkArray_ShiftUnshift(b *testing.B) {
	a := NewArray()
	defer a.Clear()
	for j := 0; j < 64; j++ {
		_ = a.Push(NewInt(int64(j)))
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		v, _, _ := a.Shift()
		_ = a.Unshift(v)
	}
}

// ============ Ownership Benchmarks ============

func BenchmarkValue_RetainRelease(b *testing.B) {
	s := NewString("shared")
	defer s.Release()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		s.Retain().Release()
	}
}
