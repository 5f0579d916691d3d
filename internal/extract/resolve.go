package extract

import (
	"fmt"
	"strconv"
)

// Resolve evaluates expr against record and returns the addressed value, or
// Absent. It never panics and never reports an error; malformed expressions
// resolve to Absent as well.
func Resolve(record any, expr string) Value {
	v, _ := ResolveDetailed(record, expr)
	return v
}

// ResolveDetailed is Resolve with the reason for an Absent result. The error
// wraps ErrMalformedPath or ErrPathNotFound.
func ResolveDetailed(record any, expr string) (Value, error) {
	p, err := ParsePath(expr)
	if err != nil {
		return Absent(), err
	}
	return p.ResolveDetailed(record)
}

// Resolve evaluates p against record. See the package documentation for the
// segment rules.
func (p Path) Resolve(record any) Value {
	v, _ := p.ResolveDetailed(record)
	return v
}

// ResolveDetailed evaluates p against record and explains an Absent result.
func (p Path) ResolveDetailed(record any) (v Value, err error) {
	defer func() {
		if r := recover(); r != nil {
			v = Absent()
			err = fmt.Errorf("%w: %s: unexpected record shape: %v", ErrPathNotFound, p.expr, r)
		}
	}()

	if p.IsZero() {
		return Absent(), fmt.Errorf("%w: empty path", ErrMalformedPath)
	}

	current := Of(record)
	for i, seg := range p.segments {
		current = step(current, seg)
		if current.IsAbsent() {
			return Absent(), fmt.Errorf("%w: %s: segment %d (%s)", ErrPathNotFound, p.expr, i, seg)
		}
	}
	return current, nil
}

func step(current Value, seg Segment) Value {
	switch seg.Kind {
	case SegmentKey:
		return current.Get(seg.Name)
	case SegmentIndex:
		seq := current.Get(seg.Name)
		if seq.Kind() != KindSequence {
			return Absent()
		}
		return seq.Index(seg.Index)
	case SegmentPredicate:
		seq := current.Get(seg.Name)
		if seq.Kind() != KindSequence {
			return Absent()
		}
		for i := 0; i < seq.Len(); i++ {
			elem := seq.Index(i)
			field := elem.Get(seg.MatchKey)
			if field.IsAbsent() {
				continue
			}
			if LooseEqual(field.Raw(), seg.MatchVal) {
				return elem
			}
		}
	}
	return Absent()
}

// LooseEqual compares a record value with the textual value of a path
// predicate. Strings match only the identical text, numbers match a string
// that parses to the same number, and booleans match "true" or "false". Null,
// mappings and sequences never match.
func LooseEqual(actual any, expected string) bool {
	switch a := actual.(type) {
	case string:
		return a == expected
	case bool:
		return (a && expected == "true") || (!a && expected == "false")
	}
	if isNumber(actual) {
		af, ok := toFloat(actual)
		if !ok {
			return false
		}
		ef, err := strconv.ParseFloat(expected, 64)
		return err == nil && af == ef
	}
	return false
}
