package ingestion

import (
	"bytes"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/fmuoria/gems-hub/internal/apperr"
)

const (
	// rowTolerance is the vertical distance, in points, within which glyphs
	// belong to the same text row
	rowTolerance = 2.0
	// wordGapRatio is the horizontal gap, as a fraction of the font size,
	// above which two glyphs on a row are separated by a space
	wordGapRatio = 0.15
)

// ExtractPDFText returns the plain text of every page of a PDF, one line per
// text row and a newline after each page. Anything that cannot be read as a
// PDF is a validation error.
func ExtractPDFText(data []byte) (text string, err error) {
	if !IsPDF(data) {
		return "", apperr.Validation("unreadable invoice PDF")
	}

	// The pdf package panics on some malformed cross-reference tables
	defer func() {
		if r := recover(); r != nil {
			text = ""
			err = apperr.Wrap(fmt.Errorf("%v", r), apperr.KindValidation, "unreadable invoice PDF")
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", apperr.Wrap(err, apperr.KindValidation, "unreadable invoice PDF")
	}

	var sb strings.Builder
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}

		for _, row := range groupRows(page.Content().Text) {
			line := joinRow(row)
			if line == "" {
				continue
			}
			sb.WriteString(line)
			sb.WriteString("\n")
		}
		sb.WriteString("\n")
	}

	return sb.String(), nil
}

// groupRows buckets positioned glyphs into rows, top of the page first.
// Glyphs keep their drawing order within a row.
func groupRows(texts []pdf.Text) [][]pdf.Text {
	type row struct {
		y      float64
		glyphs []pdf.Text
	}

	var rows []row
	for _, t := range texts {
		placed := false
		for i := range rows {
			if math.Abs(rows[i].y-t.Y) < rowTolerance {
				rows[i].glyphs = append(rows[i].glyphs, t)
				placed = true
				break
			}
		}
		if !placed {
			rows = append(rows, row{y: t.Y, glyphs: []pdf.Text{t}})
		}
	}

	sort.SliceStable(rows, func(i, j int) bool { return rows[i].y > rows[j].y })

	out := make([][]pdf.Text, len(rows))
	for i, r := range rows {
		out[i] = r.glyphs
	}
	return out
}

// joinRow concatenates the glyphs of a row left to right. A space is
// inserted where the next glyph starts clear of the previous one, and runs
// of whitespace collapse to a single space.
func joinRow(glyphs []pdf.Text) string {
	sorted := make([]pdf.Text, len(glyphs))
	copy(sorted, glyphs)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].X < sorted[j].X })

	var sb strings.Builder
	for i, t := range sorted {
		if i > 0 {
			prev := sorted[i-1]
			gap := math.Max(prev.FontSize, t.FontSize) * wordGapRatio
			if t.X > prev.X+prev.W+gap {
				sb.WriteByte(' ')
			}
		}
		sb.WriteString(t.S)
	}
	return strings.Join(strings.Fields(sb.String()), " ")
}

// IsPDF checks for the PDF magic number
func IsPDF(data []byte) bool {
	return bytes.HasPrefix(bytes.TrimLeft(data, "\x00\t\r\n "), []byte("%PDF-"))
}
