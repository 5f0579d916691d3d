// Package render turns assembled report data into downloadable artifacts.
// Renderers are tried in order by a Chain; the first one that succeeds
// produces the artifact.
package render

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/healthreport/reportd/internal/extract"
)

// Format identifies an artifact format.
type Format string

const (
	FormatPDF  Format = "pdf"
	FormatHTML Format = "html"
	FormatJSON Format = "json"
)

// ErrUnknownFormat is returned by ParseFormat for unsupported names.
var ErrUnknownFormat = errors.New("unknown report format")

// ErrAllRenderersFailed is returned when no renderer in a chain succeeds.
var ErrAllRenderersFailed = errors.New("all report renderers failed")

// ParseFormat parses a format name, case-insensitively.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatPDF, FormatHTML, FormatJSON:
		return f, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
}

// Extension returns the file extension, without the dot.
func (f Format) Extension() string {
	return string(f)
}

// ContentType returns the MIME type of artifacts in this format.
func (f Format) ContentType() string {
	switch f {
	case FormatPDF:
		return "application/pdf"
	case FormatHTML:
		return "text/html; charset=utf-8"
	default:
		return "application/json"
	}
}

// Metadata identifies the record a report was generated from.
type Metadata struct {
	SessionID    string    `json:"sessionId"`
	AssessmentID string    `json:"assessmentId"`
	GeneratedAt  time.Time `json:"generatedAt"`
}

// ReportData is the renderer-independent content of a report.
type ReportData struct {
	AssessmentName string                  `json:"assessmentName"`
	Sections       []extract.SectionResult `json:"sections"`
	Metadata       Metadata                `json:"metadata"`
}

// FieldCount returns the number of fields across all sections.
func (d *ReportData) FieldCount() int {
	n := 0
	for _, s := range d.Sections {
		n += len(s.Fields)
	}
	return n
}

// Renderer writes a report in one format.
type Renderer interface {
	Format() Format
	Render(ctx context.Context, data *ReportData, w io.Writer) error
}

// Artifact is a rendered report.
type Artifact struct {
	Format      Format
	ContentType string
	Data        []byte
}

// Chain tries renderers in order.
type Chain struct {
	renderers []Renderer
	logger    zerolog.Logger
}

// NewChain returns a chain over renderers, tried in the given order.
func NewChain(logger zerolog.Logger, renderers ...Renderer) *Chain {
	return &Chain{renderers: renderers, logger: logger}
}

// DefaultChain tries PDF, then HTML, then JSON.
func DefaultChain(logger zerolog.Logger) *Chain {
	return NewChain(logger, NewPDFRenderer(), NewHTMLRenderer(), NewJSONRenderer())
}

// ForFormat returns the renderer for a single format.
func ForFormat(f Format) (Renderer, error) {
	switch f {
	case FormatPDF:
		return NewPDFRenderer(), nil
	case FormatHTML:
		return NewHTMLRenderer(), nil
	case FormatJSON:
		return NewJSONRenderer(), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, f)
}

// Render returns the artifact of the first renderer that succeeds. Each
// failure is logged; when all fail the joined errors are returned.
func (c *Chain) Render(ctx context.Context, data *ReportData) (*Artifact, error) {
	if data == nil {
		return nil, errors.New("render: nil report data")
	}

	var errs []error
	for _, r := range c.renderers {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		var buf bytes.Buffer
		err := safeRender(ctx, r, data, &buf)
		if err == nil {
			return &Artifact{
				Format:      r.Format(),
				ContentType: r.Format().ContentType(),
				Data:        buf.Bytes(),
			}, nil
		}

		c.logger.Warn().
			Err(err).
			Str("format", string(r.Format())).
			Str("session_id", data.Metadata.SessionID).
			Msg("report renderer failed, trying next")
		errs = append(errs, fmt.Errorf("%s: %w", r.Format(), err))
	}

	return nil, fmt.Errorf("%w: %w", ErrAllRenderersFailed, errors.Join(errs...))
}

func safeRender(ctx context.Context, r Renderer, data *ReportData, w io.Writer) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("renderer panicked: %v", p)
		}
	}()
	return r.Render(ctx, data, w)
}

// DisplayValue formats a field value for display. Whole numbers print
// without a fractional part.
func DisplayValue(v any) string {
	switch x := v.(type) {
	case nil:
		return extract.NotAvailable
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32)
	case json.Number:
		return x.String()
	case bool:
		return strconv.FormatBool(x)
	}
	return fmt.Sprint(v)
}

// FileName returns the artifact file name for a session at t.
func FileName(sessionID string, t time.Time, f Format) string {
	return fmt.Sprintf("assessment_%s_%d.%s", sessionID, t.UnixMilli(), f.Extension())
}
