package render

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/go-pdf/fpdf"

	"github.com/healthreport/reportd/internal/extract"
)

type rgb struct{ r, g, b int }

var (
	accent     = rgb{102, 126, 234}
	textDark   = rgb{51, 51, 51}
	textMuted  = rgb{102, 102, 102}
	panelLight = rgb{248, 249, 250}
	rowBorder  = rgb{225, 229, 233}
)

// parseHexColor parses #rgb and #rrggbb.
func parseHexColor(s string) (rgb, bool) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(s) == 3 {
		s = string([]byte{s[0], s[0], s[1], s[1], s[2], s[2]})
	}
	if len(s) != 6 {
		return rgb{}, false
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return rgb{}, false
	}
	return rgb{int(v >> 16 & 0xff), int(v >> 8 & 0xff), int(v & 0xff)}, true
}

// PDFRenderer lays out an A4 report with the core Helvetica font.
type PDFRenderer struct {
	// Compress controls stream compression; tests turn it off to inspect text.
	Compress bool
}

func NewPDFRenderer() *PDFRenderer {
	return &PDFRenderer{Compress: true}
}

func (*PDFRenderer) Format() Format { return FormatPDF }

func (r *PDFRenderer) Render(ctx context.Context, data *ReportData, w io.Writer) error {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetCompression(r.Compress)
	pdf.SetMargins(15, 20, 15)
	pdf.SetAutoPageBreak(true, 20)
	pdf.SetCreationDate(data.Metadata.GeneratedAt)
	pdf.SetTitle(data.AssessmentName+" Report", true)
	pdf.SetCreator("reportd", false)
	pdf.AliasNbPages("")

	// Core fonts are cp1252.
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetFooterFunc(func() {
		pdf.SetY(-15)
		pdf.SetFont("Helvetica", "I", 8)
		pdf.SetTextColor(textMuted.r, textMuted.g, textMuted.b)
		pdf.CellFormat(0, 10, tr(fmt.Sprintf("Session %s  |  Page %d/{nb}", data.Metadata.SessionID, pdf.PageNo())), "", 0, "C", false, 0, "")
	})

	pdf.AddPage()
	pageW, _ := pdf.GetPageSize()
	left, _, right, _ := pdf.GetMargins()
	contentW := pageW - left - right

	// Header band.
	pdf.SetFillColor(accent.r, accent.g, accent.b)
	pdf.SetTextColor(255, 255, 255)
	pdf.SetFont("Helvetica", "B", 20)
	pdf.CellFormat(contentW, 14, tr(data.AssessmentName), "", 1, "C", true, 0, "")
	pdf.SetFont("Helvetica", "", 11)
	pdf.CellFormat(contentW, 8, tr("Comprehensive Health Assessment Report"), "", 1, "C", true, 0, "")
	pdf.Ln(6)

	// Metadata panel.
	pdf.SetFillColor(panelLight.r, panelLight.g, panelLight.b)
	pdf.SetTextColor(textDark.r, textDark.g, textDark.b)
	meta := [][2]string{
		{"Session ID", data.Metadata.SessionID},
		{"Assessment ID", data.Metadata.AssessmentID},
		{"Generated", data.Metadata.GeneratedAt.Format("2006-01-02 15:04 MST")},
	}
	for _, m := range meta {
		pdf.SetFont("Helvetica", "B", 10)
		pdf.CellFormat(40, 7, tr(m[0]+":"), "", 0, "L", true, 0, "")
		pdf.SetFont("Helvetica", "", 10)
		pdf.CellFormat(contentW-40, 7, tr(m[1]), "", 1, "L", true, 0, "")
	}
	pdf.Ln(6)

	labelW, valueW := contentW*0.45, contentW*0.30
	classW := contentW - labelW - valueW

	for _, section := range data.Sections {
		if err := ctx.Err(); err != nil {
			return err
		}

		pdf.SetFont("Helvetica", "B", 14)
		pdf.SetTextColor(textDark.r, textDark.g, textDark.b)
		pdf.CellFormat(contentW, 9, tr(section.Title), "", 1, "L", false, 0, "")
		pdf.SetDrawColor(accent.r, accent.g, accent.b)
		pdf.SetLineWidth(0.6)
		y := pdf.GetY()
		pdf.Line(left, y, left+contentW, y)
		pdf.Ln(2)

		pdf.SetDrawColor(rowBorder.r, rowBorder.g, rowBorder.b)
		pdf.SetLineWidth(0.2)
		for _, f := range section.Fields {
			writeFieldRow(pdf, tr, f, labelW, valueW, classW)
		}
		pdf.Ln(5)
	}

	if pdf.Err() {
		return fmt.Errorf("layout pdf: %w", pdf.Error())
	}
	return pdf.Output(w)
}

func writeFieldRow(pdf *fpdf.Fpdf, tr func(string) string, f extract.FieldResult, labelW, valueW, classW float64) {
	const rowH = 8

	pdf.SetFont("Helvetica", "", 10)
	pdf.SetTextColor(textMuted.r, textMuted.g, textMuted.b)
	pdf.CellFormat(labelW, rowH, tr(f.Label), "B", 0, "L", false, 0, "")

	value := DisplayValue(f.Value)
	if f.Unit != "" && f.Available() {
		value += " " + f.Unit
	}
	pdf.SetFont("Helvetica", "B", 11)
	pdf.SetTextColor(textDark.r, textDark.g, textDark.b)
	pdf.CellFormat(valueW, rowH, tr(value), "B", 0, "L", false, 0, "")

	if f.Classification != nil {
		c, ok := parseHexColor(f.Classification.Color)
		if !ok {
			c = accent
		}
		pdf.SetFillColor(c.r, c.g, c.b)
		pdf.SetTextColor(255, 255, 255)
		pdf.SetFont("Helvetica", "B", 9)
		pdf.CellFormat(classW, rowH, tr(f.Classification.Label), "B", 1, "C", true, 0, "")
	} else {
		pdf.CellFormat(classW, rowH, "", "B", 1, "C", false, 0, "")
	}

	if f.Description != nil && *f.Description != "" {
		pdf.SetFont("Helvetica", "I", 8)
		pdf.SetTextColor(textMuted.r, textMuted.g, textMuted.b)
		pdf.MultiCell(labelW+valueW+classW, 5, tr(*f.Description), "", "L", false)
	}
}
