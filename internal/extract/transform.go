package extract

import (
	"math"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/rs/zerolog"
)

// Transform names accepted in field declarations.
const (
	TransformCapitalize     = "capitalize"
	TransformUppercase      = "uppercase"
	TransformLowercase      = "lowercase"
	TransformTrim           = "trim"
	TransformAssessmentName = "assessmentName"
	TransformRound          = "round"
)

// staticAssessmentNames backs the assessmentName transform when a code is not
// in the loaded catalog.
var staticAssessmentNames = map[string]string{
	"as_hr_02":   "Health & Fitness Assessment",
	"as_card_01": "Cardiac Assessment",
}

// KnownTransform reports whether name is one of the supported transforms.
func KnownTransform(name string) bool {
	switch name {
	case TransformCapitalize, TransformUppercase, TransformLowercase,
		TransformTrim, TransformAssessmentName, TransformRound:
		return true
	}
	return false
}

// Transformer applies named transforms to resolved values. It is immutable
// and safe for concurrent use.
type Transformer struct {
	names  map[string]string
	logger zerolog.Logger
}

// NewTransformer returns a Transformer that maps assessment codes through
// names before the built-in table. names may be nil.
func NewTransformer(names map[string]string, logger zerolog.Logger) *Transformer {
	copied := make(map[string]string, len(names))
	for k, v := range names {
		copied[k] = v
	}
	return &Transformer{names: copied, logger: logger}
}

// Transform applies name with the built-in assessment name table and no
// logging.
func Transform(v Value, name string) Value {
	return defaultTransformer.Apply(v, name)
}

var defaultTransformer = NewTransformer(nil, zerolog.Nop())

// Apply returns v transformed by name. Absent values and empty names are
// returned unchanged, and so are values of a kind the transform does not
// handle. Unknown names pass the value through.
func (t *Transformer) Apply(v Value, name string) Value {
	if v.IsAbsent() || name == "" {
		return v
	}

	switch name {
	case TransformCapitalize:
		return mapString(v, capitalize)
	case TransformUppercase:
		return mapString(v, strings.ToUpper)
	case TransformLowercase:
		return mapString(v, strings.ToLower)
	case TransformTrim:
		return mapString(v, strings.TrimSpace)
	case TransformAssessmentName:
		return mapString(v, t.assessmentName)
	case TransformRound:
		if !isNumber(v.Raw()) {
			return v
		}
		f, ok := toFloat(v.Raw())
		if !ok {
			return v
		}
		return Of(math.Round(f))
	}

	t.logger.Debug().Str("transform", name).Msg("unknown transform, value passed through")
	return v
}

func (t *Transformer) assessmentName(code string) string {
	if name, ok := t.names[code]; ok && name != "" {
		return name
	}
	if name, ok := staticAssessmentNames[code]; ok {
		return name
	}
	return code
}

func mapString(v Value, fn func(string) string) Value {
	s, ok := v.Raw().(string)
	if !ok {
		return v
	}
	return Of(fn(s))
}

func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}
