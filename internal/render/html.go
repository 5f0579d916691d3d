package render

import (
	"context"
	"embed"
	"html/template"
	"io"
)

//go:embed templates/report.html.tmpl
var templateFS embed.FS

var reportTemplate = template.Must(
	template.New("report.html.tmpl").
		Funcs(template.FuncMap{"display": DisplayValue}).
		ParseFS(templateFS, "templates/report.html.tmpl"),
)

// HTMLRenderer renders a standalone HTML page.
type HTMLRenderer struct {
	tmpl *template.Template
}

func NewHTMLRenderer() *HTMLRenderer {
	return &HTMLRenderer{tmpl: reportTemplate}
}

func (*HTMLRenderer) Format() Format { return FormatHTML }

func (r *HTMLRenderer) Render(_ context.Context, data *ReportData, w io.Writer) error {
	return r.tmpl.Execute(w, data)
}
