package extract

import (
	"encoding/json"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// Kind is the shape of a Value.
type Kind int

const (
	KindAbsent Kind = iota
	KindNull
	KindScalar
	KindMapping
	KindSequence
)

func (k Kind) String() string {
	switch k {
	case KindAbsent:
		return "absent"
	case KindNull:
		return "null"
	case KindScalar:
		return "scalar"
	case KindMapping:
		return "mapping"
	case KindSequence:
		return "sequence"
	}
	return "unknown"
}

// Value is a read-only view over a node of a decoded record. The zero Value
// is Absent.
type Value struct {
	kind Kind
	raw  any
}

// Absent returns the Value produced by a failed resolution.
func Absent() Value {
	return Value{}
}

// Of wraps a decoded-JSON node. Maps with string keys are mappings, slices are
// sequences, nil is null and everything else is a scalar.
func Of(raw any) Value {
	switch raw.(type) {
	case nil:
		return Value{kind: KindNull}
	case map[string]any:
		return Value{kind: KindMapping, raw: raw}
	case []any, []map[string]any:
		return Value{kind: KindSequence, raw: raw}
	default:
		return Value{kind: KindScalar, raw: raw}
	}
}

func (v Value) Kind() Kind      { return v.kind }
func (v Value) IsAbsent() bool  { return v.kind == KindAbsent }
func (v Value) IsPresent() bool { return v.kind != KindAbsent && v.kind != KindNull }

// Raw returns the underlying node. It is nil for Absent and null values.
func (v Value) Raw() any {
	return v.raw
}

// Get looks up key in a mapping. Non-mappings, missing keys and null values
// yield Absent.
func (v Value) Get(key string) Value {
	m, ok := v.raw.(map[string]any)
	if !ok {
		return Absent()
	}
	child, ok := m[key]
	if !ok || child == nil {
		return Absent()
	}
	return Of(child)
}

// Len returns the number of elements of a sequence, or 0 for other kinds.
func (v Value) Len() int {
	switch s := v.raw.(type) {
	case []any:
		return len(s)
	case []map[string]any:
		return len(s)
	}
	return 0
}

// Index returns element i of a sequence, or Absent when v is not a sequence,
// i is out of range or the element is null.
func (v Value) Index(i int) Value {
	if i < 0 || i >= v.Len() {
		return Absent()
	}
	var elem any
	switch s := v.raw.(type) {
	case []any:
		elem = s[i]
	case []map[string]any:
		elem = s[i]
	}
	if elem == nil {
		return Absent()
	}
	return Of(elem)
}

// Float reports the numeric value of v. Numbers convert directly and strings
// are parsed from their leading numeric prefix, so "33.1 kg" is 33.1.
// Only finite decimal literals count: "Infinity", "NaN" and out of range
// strings such as "1e999" are not numeric.
func (v Value) Float() (float64, bool) {
	if v.kind != KindScalar {
		return 0, false
	}
	return toFloat(v.raw)
}

var numericPrefix = regexp.MustCompile(`^[+-]?(\d+\.?\d*|\.\d+)([eE][+-]?\d+)?`)

func toFloat(raw any) (float64, bool) {
	var f float64
	switch n := raw.(type) {
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int8:
		f = float64(n)
	case int16:
		f = float64(n)
	case int32:
		f = float64(n)
	case int64:
		f = float64(n)
	case uint:
		f = float64(n)
	case uint8:
		f = float64(n)
	case uint16:
		f = float64(n)
	case uint32:
		f = float64(n)
	case uint64:
		f = float64(n)
	case json.Number:
		parsed, err := n.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	case string:
		prefix := numericPrefix.FindString(strings.TrimSpace(n))
		if prefix == "" {
			return 0, false
		}
		parsed, err := strconv.ParseFloat(prefix, 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) {
		return 0, false
	}
	return f, true
}

// isNumber reports whether raw is a Go numeric type or json.Number.
func isNumber(raw any) bool {
	switch raw.(type) {
	case float64, float32, int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64, json.Number:
		return true
	}
	return false
}
