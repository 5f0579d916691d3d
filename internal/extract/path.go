package extract

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	// ErrMalformedPath reports path syntax that cannot be parsed.
	ErrMalformedPath = errors.New("malformed path")
	// ErrPathNotFound reports a segment that did not match the record.
	ErrPathNotFound = errors.New("path not found")
)

// SegmentKind distinguishes the three segment forms.
type SegmentKind int

const (
	SegmentKey SegmentKind = iota
	SegmentIndex
	SegmentPredicate
)

// Segment is one parsed step of a path expression.
type Segment struct {
	Kind SegmentKind
	// Name is the mapping key for SegmentKey, or the key holding the
	// sequence for SegmentIndex and SegmentPredicate.
	Name     string
	Index    int
	MatchKey string
	MatchVal string
}

func (s Segment) String() string {
	switch s.Kind {
	case SegmentIndex:
		return fmt.Sprintf("%s[%d]", s.Name, s.Index)
	case SegmentPredicate:
		return fmt.Sprintf("%s[%s=%s]", s.Name, s.MatchKey, s.MatchVal)
	}
	return s.Name
}

// Path is a parsed path expression. It holds no state and can be evaluated
// against any number of records concurrently.
type Path struct {
	expr     string
	segments []Segment
}

// ParsePath parses expressions such as "vitalsMap.vitals.heart_rate",
// "exercises[id=235].setList[0].time" and "items[2]".
func ParsePath(expr string) (Path, error) {
	if expr == "" {
		return Path{}, fmt.Errorf("%w: empty path", ErrMalformedPath)
	}

	parts := strings.Split(expr, ".")
	segments := make([]Segment, 0, len(parts))
	for _, part := range parts {
		seg, err := parseSegment(part)
		if err != nil {
			return Path{}, fmt.Errorf("%w: %q: %v", ErrMalformedPath, expr, err)
		}
		segments = append(segments, seg)
	}
	return Path{expr: expr, segments: segments}, nil
}

// MustParsePath is like ParsePath but panics on error. It is meant for
// package-level path literals.
func MustParsePath(expr string) Path {
	p, err := ParsePath(expr)
	if err != nil {
		panic(err)
	}
	return p
}

func parseSegment(part string) (Segment, error) {
	if part == "" {
		return Segment{}, errors.New("empty segment")
	}
	if !strings.Contains(part, "[") || !strings.Contains(part, "]") {
		return Segment{Kind: SegmentKey, Name: part}, nil
	}

	open := strings.IndexByte(part, '[')
	if !strings.HasSuffix(part, "]") || strings.Count(part, "[") != 1 || strings.Count(part, "]") != 1 {
		return Segment{}, fmt.Errorf("segment %q: expected name[selector]", part)
	}
	name := part[:open]
	selector := part[open+1 : len(part)-1]
	if name == "" {
		return Segment{}, fmt.Errorf("segment %q: missing sequence name", part)
	}
	if selector == "" {
		return Segment{}, fmt.Errorf("segment %q: empty selector", part)
	}

	if key, val, ok := strings.Cut(selector, "="); ok {
		if key == "" {
			return Segment{}, fmt.Errorf("segment %q: predicate without key", part)
		}
		return Segment{Kind: SegmentPredicate, Name: name, MatchKey: key, MatchVal: val}, nil
	}

	idx, err := strconv.Atoi(selector)
	if err != nil || idx < 0 {
		return Segment{}, fmt.Errorf("segment %q: index must be a non-negative integer", part)
	}
	return Segment{Kind: SegmentIndex, Name: name, Index: idx}, nil
}

func (p Path) String() string { return p.expr }

// Segments returns a copy of the parsed segments.
func (p Path) Segments() []Segment { return append([]Segment(nil), p.segments...) }

func (p Path) IsZero() bool { return len(p.segments) == 0 }
