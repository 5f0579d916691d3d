package extract

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog"
)

// NotAvailable is the value reported for fields that could not be resolved.
const NotAvailable = "N/A"

// ErrProcessingFailed is the marker attached to fields whose processing
// panicked.
var ErrProcessingFailed = errors.New("processing failed")

// FieldDeclaration describes how to derive one reportable value from a record.
type FieldDeclaration struct {
	ID             string          `yaml:"id" json:"id"`
	Label          string          `yaml:"label" json:"label"`
	Path           string          `yaml:"path" json:"path"`
	Unit           string          `yaml:"unit,omitempty" json:"unit,omitempty"`
	Transform      string          `yaml:"transform,omitempty" json:"transform,omitempty"`
	Classification *Classification `yaml:"classification,omitempty" json:"classification,omitempty"`
	Description    string          `yaml:"description,omitempty" json:"description,omitempty"`

	compiled Path
}

// Compile parses the declared path and keeps it for later evaluations.
func (d *FieldDeclaration) Compile() error {
	p, err := ParsePath(d.Path)
	if err != nil {
		return err
	}
	d.compiled = p
	return nil
}

func (d *FieldDeclaration) path() (Path, error) {
	if !d.compiled.IsZero() {
		return d.compiled, nil
	}
	return ParsePath(d.Path)
}

// FieldResult is the normalized output for one declared field.
type FieldResult struct {
	ID             string  `json:"id"`
	Label          string  `json:"label"`
	Value          any     `json:"value"`
	Unit           string  `json:"unit"`
	Classification *Match  `json:"classification"`
	Description    *string `json:"description"`
	Error          string  `json:"error,omitempty"`
}

// Available reports whether the field resolved to a value.
func (r FieldResult) Available() bool {
	s, ok := r.Value.(string)
	return !ok || s != NotAvailable
}

// SectionResult groups the results of one configured section.
type SectionResult struct {
	ID     string        `json:"id"`
	Title  string        `json:"title"`
	Fields []FieldResult `json:"fields"`
}

// Processor resolves, transforms and classifies declared fields. The zero
// value is not usable; call NewProcessor.
type Processor struct {
	transformer *Transformer
	logger      zerolog.Logger
}

// NewProcessor creates a Processor. A nil transformer uses the built-in
// assessment name table.
func NewProcessor(t *Transformer, logger zerolog.Logger) *Processor {
	if t == nil {
		t = NewTransformer(nil, logger)
	}
	return &Processor{transformer: t, logger: logger}
}

// Process returns the result for decl evaluated against record. It always
// returns a well-formed result: unresolvable fields are reported as
// NotAvailable and a panic while processing is recovered into a
// NotAvailable result carrying an error marker.
func (p *Processor) Process(record any, decl FieldDeclaration) (result FieldResult) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error().
				Str("field", decl.ID).
				Str("path", decl.Path).
				Interface("panic", r).
				Msg("field processing failed")
			result = notAvailable(decl)
			result.Error = ErrProcessingFailed.Error()
		}
	}()

	path, err := decl.path()
	if err != nil {
		p.logger.Warn().Err(err).Str("field", decl.ID).Msg("field path is malformed")
		return notAvailable(decl)
	}

	value, err := path.ResolveDetailed(record)
	if err != nil {
		p.logger.Debug().Err(err).Str("field", decl.ID).Msg("field not resolved")
		return notAvailable(decl)
	}

	if decl.Transform != "" {
		value = p.transformer.Apply(value, decl.Transform)
	}

	result = FieldResult{
		ID:          decl.ID,
		Label:       decl.Label,
		Value:       value.Raw(),
		Unit:        decl.Unit,
		Description: description(decl),
	}
	if decl.Classification != nil {
		result.Classification = Classify(value, decl.Classification)
	}
	return result
}

// ProcessSection processes every field of s in declaration order.
func (p *Processor) ProcessSection(record any, s Section) SectionResult {
	out := SectionResult{ID: s.ID, Title: s.Title, Fields: make([]FieldResult, 0, len(s.Fields))}
	for _, f := range s.Fields {
		out.Fields = append(out.Fields, p.Process(record, f))
	}
	return out
}

// ProcessSections returns one SectionResult per section, each holding exactly
// one FieldResult per declared field.
func (p *Processor) ProcessSections(record any, sections []Section) []SectionResult {
	out := make([]SectionResult, 0, len(sections))
	for _, s := range sections {
		out = append(out, p.ProcessSection(record, s))
	}
	return out
}

func notAvailable(decl FieldDeclaration) FieldResult {
	return FieldResult{
		ID:          decl.ID,
		Label:       decl.Label,
		Value:       NotAvailable,
		Unit:        decl.Unit,
		Description: description(decl),
	}
}

func description(decl FieldDeclaration) *string {
	if decl.Description == "" {
		return nil
	}
	d := decl.Description
	return &d
}

// String renders the result for plain-text output.
func (r FieldResult) String() string {
	s := fmt.Sprintf("%s: %v", r.Label, r.Value)
	if r.Unit != "" && r.Value != NotAvailable {
		s += " " + r.Unit
	}
	if r.Classification != nil {
		s += " (" + r.Classification.Label + ")"
	}
	return s
}
