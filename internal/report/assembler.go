package report

import (
	"errors"
	"fmt"
	"time"

	"github.com/healthreport/reportd/internal/assessment"
	"github.com/healthreport/reportd/internal/extract"
	"github.com/healthreport/reportd/internal/render"
)

// ErrConfigNotFound is returned when no report layout exists for an
// assessment id.
var ErrConfigNotFound = errors.New("assessment configuration not found")

// Assembler evaluates the configured fields of an assessment type against a
// record.
type Assembler struct {
	catalog   *extract.Catalog
	processor *extract.Processor
}

func NewAssembler(catalog *extract.Catalog, processor *extract.Processor) *Assembler {
	return &Assembler{catalog: catalog, processor: processor}
}

// Catalog returns the catalog the assembler reads layouts from.
func (a *Assembler) Catalog() *extract.Catalog {
	return a.catalog
}

// Assemble builds the report data of a stored assessment.
func (a *Assembler) Assemble(as *assessment.Assessment, generatedAt time.Time) (*render.ReportData, error) {
	return a.AssembleRecord(as.Record(), as.AssessmentID, as.SessionID, generatedAt)
}

// AssembleRecord builds report data for a raw record. Every declared field
// yields exactly one result, in declaration order.
func (a *Assembler) AssembleRecord(record any, assessmentID, sessionID string, generatedAt time.Time) (*render.ReportData, error) {
	at, ok := a.catalog.Get(assessmentID)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrConfigNotFound, assessmentID)
	}
	return &render.ReportData{
		AssessmentName: at.Name,
		Sections:       a.processor.ProcessSections(record, at.Sections),
		Metadata: render.Metadata{
			SessionID:    sessionID,
			AssessmentID: assessmentID,
			GeneratedAt:  generatedAt.UTC(),
		},
	}, nil
}

// SectionSummary describes one configured section.
type SectionSummary struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	FieldCount int    `json:"fieldCount"`
}

// TypeSummary describes one configured assessment type.
type TypeSummary struct {
	AssessmentID string           `json:"assessment_id"`
	Name         string           `json:"name"`
	Sections     []SectionSummary `json:"sections"`
}

// Summary lists the configured assessment types in catalog order.
func (a *Assembler) Summary() []TypeSummary {
	types := a.catalog.Types()
	out := make([]TypeSummary, 0, len(types))
	for _, t := range types {
		ts := TypeSummary{AssessmentID: t.ID, Name: t.Name, Sections: make([]SectionSummary, 0, len(t.Sections))}
		for _, s := range t.Sections {
			ts.Sections = append(ts.Sections, SectionSummary{ID: s.ID, Title: s.Title, FieldCount: len(s.Fields)})
		}
		out = append(out, ts)
	}
	return out
}
