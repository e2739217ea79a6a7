// Package value implements the scalar value model shared by every layer of
// the graph engine: attribute sets, records, and index keys all hold
// Values.
//
// A Value is a tagged union (a "kind" discriminator plus variant storage)
// rather than an interface hierarchy, so that dispatch stays a switch on
// Kind instead of virtual calls, and equality/ordering can be defined once
// in one place.
package value

import (
	"fmt"
	"hash/maphash"
	"math"
	"sort"
	"strings"
)

// Kind discriminates the variant held by a Value.
type Kind uint8

const (
	KindNull Kind = iota
	KindBool
	KindInt64
	KindDouble
	KindString
	KindPoint
	KindArray
	KindMap
	KindVector
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindInt64:
		return "int64"
	case KindDouble:
		return "double"
	case KindString:
		return "string"
	case KindPoint:
		return "point"
	case KindArray:
		return "array"
	case KindMap:
		return "map"
	case KindVector:
		return "vector"
	default:
		return "unknown"
	}
}

// Point is a latitude/longitude pair.
type Point struct {
	Lat float64
	Lon float64
}

// MapEntry is one key/value pair of a Map value. Maps preserve insertion
// order rather than sorting by key, matching property-graph map literals.
type MapEntry struct {
	Key string
	Val Value
}

// Value is the tagged-union scalar. The zero Value is KindNull.
type Value struct {
	kind Kind
	b    bool
	i    int64
	f    float64
	s    string
	pt   Point
	arr  []Value
	m    []MapEntry
	vec  []float32
}

func Null() Value                { return Value{kind: KindNull} }
func Bool(b bool) Value          { return Value{kind: KindBool, b: b} }
func Int64(i int64) Value        { return Value{kind: KindInt64, i: i} }
func Double(f float64) Value     { return Value{kind: KindDouble, f: f} }
func String(s string) Value      { return Value{kind: KindString, s: s} }
func PointOf(lat, lon float64) Value {
	return Value{kind: KindPoint, pt: Point{Lat: lat, Lon: lon}}
}
func Array(items []Value) Value { return Value{kind: KindArray, arr: items} }
func Map(entries []MapEntry) Value {
	return Value{kind: KindMap, m: entries}
}
func Vector(v []float32) Value { return Value{kind: KindVector, vec: v} }

func (v Value) Kind() Kind { return v.kind }
func (v Value) IsNull() bool { return v.kind == KindNull }

// AsBool panics if Kind() != KindBool; callers must guard with Kind() first,
// per spec §9 "guard variant access".
func (v Value) AsBool() bool {
	v.mustBe(KindBool)
	return v.b
}

func (v Value) AsInt64() int64 {
	v.mustBe(KindInt64)
	return v.i
}

func (v Value) AsDouble() float64 {
	v.mustBe(KindDouble)
	return v.f
}

func (v Value) AsString() string {
	v.mustBe(KindString)
	return v.s
}

func (v Value) AsPoint() Point {
	v.mustBe(KindPoint)
	return v.pt
}

func (v Value) AsArray() []Value {
	v.mustBe(KindArray)
	return v.arr
}

func (v Value) AsMap() []MapEntry {
	v.mustBe(KindMap)
	return v.m
}

func (v Value) AsVector() []float32 {
	v.mustBe(KindVector)
	return v.vec
}

func (v Value) mustBe(k Kind) {
	if v.kind != k {
		panic(fmt.Sprintf("value: variant access mismatch: have %s, want %s", v.kind, k))
	}
}

// Clone deep-copies variant storage so records can fan out to multiple
// operators without aliasing mutable slices.
func (v Value) Clone() Value {
	switch v.kind {
	case KindArray:
		cp := make([]Value, len(v.arr))
		for i, e := range v.arr {
			cp[i] = e.Clone()
		}
		return Value{kind: KindArray, arr: cp}
	case KindMap:
		cp := make([]MapEntry, len(v.m))
		for i, e := range v.m {
			cp[i] = MapEntry{Key: e.Key, Val: e.Val.Clone()}
		}
		return Value{kind: KindMap, m: cp}
	case KindVector:
		cp := make([]float32, len(v.vec))
		copy(cp, v.vec)
		return Value{kind: KindVector, vec: cp}
	default:
		return v
	}
}

// Equal implements per-variant equality. Cross-kind comparisons are never
// equal, even when numerically comparable (int64(1) != double(1.0)),
// matching property-graph equality semantics.
func Equal(a, b Value) bool {
	if a.kind != b.kind {
		return false
	}
	switch a.kind {
	case KindNull:
		return true
	case KindBool:
		return a.b == b.b
	case KindInt64:
		return a.i == b.i
	case KindDouble:
		return a.f == b.f
	case KindString:
		return a.s == b.s
	case KindPoint:
		return a.pt == b.pt
	case KindArray:
		if len(a.arr) != len(b.arr) {
			return false
		}
		for i := range a.arr {
			if !Equal(a.arr[i], b.arr[i]) {
				return false
			}
		}
		return true
	case KindMap:
		if len(a.m) != len(b.m) {
			return false
		}
		for i := range a.m {
			if a.m[i].Key != b.m[i].Key || !Equal(a.m[i].Val, b.m[i].Val) {
				return false
			}
		}
		return true
	case KindVector:
		if len(a.vec) != len(b.vec) {
			return false
		}
		for i := range a.vec {
			if a.vec[i] != b.vec[i] {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// Hash writes a seed-stable digest of v into h, for use as an index key or
// in hash-based deduplication (e.g. shortest-path destination dedup).
func Hash(seed maphash.Seed, v Value) uint64 {
	var h maphash.Hash
	h.SetSeed(seed)
	hashInto(&h, v)
	return h.Sum64()
}

func hashInto(h *maphash.Hash, v Value) {
	_ = h.WriteByte(byte(v.kind))
	switch v.kind {
	case KindBool:
		if v.b {
			_, _ = h.Write([]byte{1})
		} else {
			_, _ = h.Write([]byte{0})
		}
	case KindInt64:
		_, _ = h.WriteString(fmt.Sprintf("%d", v.i))
	case KindDouble:
		_, _ = h.WriteString(fmt.Sprintf("%g", v.f))
	case KindString:
		_, _ = h.WriteString(v.s)
	case KindPoint:
		_, _ = h.WriteString(fmt.Sprintf("%g,%g", v.pt.Lat, v.pt.Lon))
	case KindArray:
		for _, e := range v.arr {
			hashInto(h, e)
		}
	case KindMap:
		for _, e := range v.m {
			_, _ = h.WriteString(e.Key)
			hashInto(h, e.Val)
		}
	case KindVector:
		for _, f := range v.vec {
			_, _ = h.WriteString(fmt.Sprintf("%g", f))
		}
	}
}

// Compare implements the documented total order used by index key encoding
// (spec §3): ordering first by Kind, then by variant-natural order within a
// Kind. Returns -1, 0, or 1.
func Compare(a, b Value) int {
	if a.kind != b.kind {
		if a.kind < b.kind {
			return -1
		}
		return 1
	}
	switch a.kind {
	case KindNull:
		return 0
	case KindBool:
		return boolCmp(a.b, b.b)
	case KindInt64:
		return int64Cmp(a.i, b.i)
	case KindDouble:
		return float64Cmp(a.f, b.f)
	case KindString:
		return strings.Compare(a.s, b.s)
	case KindPoint:
		if c := float64Cmp(a.pt.Lat, b.pt.Lat); c != 0 {
			return c
		}
		return float64Cmp(a.pt.Lon, b.pt.Lon)
	case KindArray:
		return compareSlices(a.arr, b.arr)
	case KindMap:
		return compareMaps(a.m, b.m)
	case KindVector:
		return compareVectors(a.vec, b.vec)
	default:
		return 0
	}
}

func boolCmp(a, b bool) int {
	if a == b {
		return 0
	}
	if !a {
		return -1
	}
	return 1
}

func int64Cmp(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func float64Cmp(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	case math.IsNaN(a) && math.IsNaN(b):
		return 0
	case math.IsNaN(a):
		return -1
	case math.IsNaN(b):
		return 1
	default:
		return 0
	}
}

func compareSlices(a, b []Value) int {
	for i := 0; i < len(a) && i < len(b); i++ {
		if c := Compare(a[i], b[i]); c != 0 {
			return c
		}
	}
	return int64Cmp(int64(len(a)), int64(len(b)))
}

func compareMaps(a, b []MapEntry) int {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		if c := strings.Compare(a[i].Key, b[i].Key); c != 0 {
			return c
		}
		if c := Compare(a[i].Val, b[i].Val); c != 0 {
			return c
		}
	}
	return int64Cmp(int64(len(a)), int64(len(b)))
}

func compareVectors(a, b []float32) int {
	for i := 0; i < len(a) && i < len(b); i++ {
		if a[i] != b[i] {
			if a[i] < b[i] {
				return -1
			}
			return 1
		}
	}
	return int64Cmp(int64(len(a)), int64(len(b)))
}

// SortValues sorts a slice of Values in place using Compare, useful for
// ORDER BY-style operators and deterministic test fixtures.
func SortValues(vs []Value) {
	sort.Slice(vs, func(i, j int) bool { return Compare(vs[i], vs[j]) < 0 })
}

func (v Value) String() string {
	switch v.kind {
	case KindNull:
		return "null"
	case KindBool:
		return fmt.Sprintf("%t", v.b)
	case KindInt64:
		return fmt.Sprintf("%d", v.i)
	case KindDouble:
		return fmt.Sprintf("%g", v.f)
	case KindString:
		return v.s
	case KindPoint:
		return fmt.Sprintf("point(%g, %g)", v.pt.Lat, v.pt.Lon)
	case KindArray:
		parts := make([]string, len(v.arr))
		for i, e := range v.arr {
			parts[i] = e.String()
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case KindMap:
		parts := make([]string, len(v.m))
		for i, e := range v.m {
			parts[i] = e.Key + ": " + e.Val.String()
		}
		return "{" + strings.Join(parts, ", ") + "}"
	case KindVector:
		return fmt.Sprintf("vector[%d]", len(v.vec))
	default:
		return "?"
	}
}
