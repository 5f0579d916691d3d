package render

import (
	"context"
	"encoding/json"
	"io"
)

// JSONRenderer writes the report data as indented JSON. It is the last
// resort of the default chain.
type JSONRenderer struct{}

func NewJSONRenderer() *JSONRenderer { return &JSONRenderer{} }

func (*JSONRenderer) Format() Format { return FormatJSON }

func (*JSONRenderer) Render(_ context.Context, data *ReportData, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(data)
}
