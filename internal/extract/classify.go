package extract

import (
	"fmt"
	"math"

	"gopkg.in/yaml.v3"
)

// Range is one labeled bucket. Bounds are inclusive; a nil bound is
// unbounded on that side.
type Range struct {
	Label string   `yaml:"label" json:"label"`
	Color string   `yaml:"color,omitempty" json:"color,omitempty"`
	Min   *float64 `yaml:"min,omitempty" json:"min,omitempty"`
	Max   *float64 `yaml:"max,omitempty" json:"max,omitempty"`
}

// Contains reports whether n lies within the range.
func (r Range) Contains(n float64) bool {
	lo, hi := math.Inf(-1), math.Inf(1)
	if r.Min != nil {
		lo = *r.Min
	}
	if r.Max != nil {
		hi = *r.Max
	}
	return lo <= n && n <= hi
}

// Classification is an ordered list of ranges. Ranges may overlap or leave
// gaps: the first range in declaration order that contains a value wins, so
// the order written in the configuration file is significant.
//
// Two YAML spellings are accepted. The mapping form uses the label as key:
//
//	excellent: { min: 60, max: 80, color: "#10B981" }
//	good: { min: 50, max: 100 }
//
// The list form names the label explicitly:
//
//	ranges:
//	  - { label: excellent, min: 60, max: 80 }
type Classification struct {
	Ranges []Range `json:"ranges"`
}

// UnmarshalYAML decodes either spelling, keeping declaration order.
func (c *Classification) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: classification must be a mapping", node.Line)
	}

	if len(node.Content) == 2 && node.Content[0].Value == "ranges" && node.Content[1].Kind == yaml.SequenceNode {
		var ranges []Range
		if err := node.Content[1].Decode(&ranges); err != nil {
			return err
		}
		c.Ranges = ranges
		return nil
	}

	ranges := make([]Range, 0, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		key, body := node.Content[i], node.Content[i+1]
		if body.Kind != yaml.MappingNode {
			return fmt.Errorf("line %d: range %q must be a mapping", body.Line, key.Value)
		}
		var r Range
		if err := body.Decode(&r); err != nil {
			return fmt.Errorf("range %q: %w", key.Value, err)
		}
		if r.Label == "" {
			r.Label = key.Value
		}
		ranges = append(ranges, r)
	}
	c.Ranges = ranges
	return nil
}

// Validate checks that every range has a label and ordered bounds.
func (c *Classification) Validate() error {
	for i, r := range c.Ranges {
		if r.Label == "" {
			return fmt.Errorf("range %d: label is required", i)
		}
		if r.Min != nil && r.Max != nil && *r.Min > *r.Max {
			return fmt.Errorf("range %q: min %v is greater than max %v", r.Label, *r.Min, *r.Max)
		}
	}
	return nil
}

// Match is the result of a successful classification.
type Match struct {
	Label string  `json:"label"`
	Color string  `json:"color,omitempty"`
	Value float64 `json:"value"`
}

// Classify returns the first range of c containing v, or nil when c is nil or
// empty, v is not numeric or no range contains it. Strings are parsed from
// their leading number.
func Classify(v Value, c *Classification) *Match {
	if c == nil || len(c.Ranges) == 0 {
		return nil
	}
	n, ok := v.Float()
	if !ok {
		return nil
	}
	for _, r := range c.Ranges {
		if r.Contains(n) {
			return &Match{Label: r.Label, Color: r.Color, Value: n}
		}
	}
	return nil
}
