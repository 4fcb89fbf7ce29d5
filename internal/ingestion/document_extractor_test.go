package ingestion

import (
	"bytes"
	"fmt"
	"strings"
	"testing"

	"github.com/ledongthuc/pdf"

	"github.com/fmuoria/gems-hub/internal/apperr"
)

// buildPDF writes a one-page PDF that draws each line with Helvetica
func buildPDF(lines ...string) []byte {
	var content strings.Builder
	content.WriteString("BT /F1 12 Tf 14 TL 72 720 Td\n")
	for _, l := range lines {
		fmt.Fprintf(&content, "(%s) Tj T*\n", l)
	}
	content.WriteString("ET")

	objects := []string{
		"<< /Type /Catalog /Pages 2 0 R >>",
		"<< /Type /Pages /Kids [3 0 R] /Count 1 >>",
		"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Contents 4 0 R /Resources << /Font << /F1 5 0 R >> >> >>",
		fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", content.Len(), content.String()),
		"<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica >>",
	}

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objects))
	for i, obj := range objects {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}

	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(objects)+1)
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xref)

	return buf.Bytes()
}

func TestBuildPDF_IsReadable(t *testing.T) {
	data := buildPDF("Invoice 42")
	if _, err := pdf.NewReader(bytes.NewReader(data), int64(len(data))); err != nil {
		t.Fatalf("fixture PDF is not readable: %v", err)
	}
}

func TestExtractPDFText(t *testing.T) {
	text, err := ExtractPDFText(buildPDF("Gem Rock Auctions", "Invoice #42"))
	if err != nil {
		t.Fatalf("ExtractPDFText() returned error: %v", err)
	}
	if want := "Gem Rock Auctions\nInvoice #42\n\n"; text != want {
		t.Errorf("ExtractPDFText() = %q, want %q", text, want)
	}
}

// TestParsePDF_TwoItems runs a laid-out invoice through text extraction and
// line-item parsing
func TestParsePDF_TwoItems(t *testing.T) {
	data := buildPDF(
		"Invoice #3029657303",
		"0.07 Ct World Rarest Vayrynenite",
		"1 SKU: ABC123 $13.00 USD",
		"Product ID: 3029657",
		"2.5 Ct Red Spinel",
		"1 SKU: SP-9 $42.50 USD",
		"Product ID: 3116830",
	)

	inv, err := NewParser(testVocabulary(), nil).ParsePDF(data)
	if err != nil {
		t.Fatalf("ParsePDF() returned error: %v", err)
	}
	if inv.Number != "3029657303" {
		t.Errorf("invoice number = %q", inv.Number)
	}
	if inv.MarkerCount != 2 || len(inv.Items) != 2 {
		t.Fatalf("expected 2 markers and 2 items, got %d and %d", inv.MarkerCount, len(inv.Items))
	}

	tests := []struct {
		productID   string
		carats      float64
		price       float64
		sku         string
		description string
		gem         string
	}{
		{"3029657", 0.07, 13.00, "ABC123", "World Rarest Vayrynenite", "Vayrynenite"},
		{"3116830", 2.5, 42.50, "SP-9", "Red Spinel", ""},
	}

	for i, tt := range tests {
		item := inv.Items[i]
		if item.ProductID != tt.productID {
			t.Errorf("item %d product id = %q, want %q", i, item.ProductID, tt.productID)
		}
		if item.CaratWeight == nil || *item.CaratWeight != tt.carats {
			t.Errorf("item %d carats = %v, want %v", i, item.CaratWeight, tt.carats)
		}
		if item.PriceUSD != tt.price {
			t.Errorf("item %d price = %v, want %v", i, item.PriceUSD, tt.price)
		}
		if item.SKU != tt.sku {
			t.Errorf("item %d sku = %q, want %q", i, item.SKU, tt.sku)
		}
		if item.Description != tt.description {
			t.Errorf("item %d description = %q, want %q", i, item.Description, tt.description)
		}
		if item.GemTypeName != tt.gem {
			t.Errorf("item %d gem = %q, want %q", i, item.GemTypeName, tt.gem)
		}
	}
}

// TestParsePDF_NoMarkers tests that a readable PDF without items is not an error
func TestParsePDF_NoMarkers(t *testing.T) {
	inv, err := NewParser(nil, nil).ParsePDF(buildPDF("Nothing to see here"))
	if err != nil {
		t.Fatalf("ParsePDF() returned error for a readable PDF: %v", err)
	}
	if len(inv.Items) != 0 {
		t.Errorf("expected no items, got %d", len(inv.Items))
	}
}

// TestExtractPDFText_Unreadable tests that garbage input is a validation error
func TestExtractPDFText_Unreadable(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{name: "empty", data: nil},
		{name: "plain text", data: []byte("Invoice #123\nProduct ID: 1")},
		{name: "truncated PDF", data: []byte("%PDF-1.4\n1 0 obj\n<<")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ExtractPDFText(tt.data)
			if err == nil {
				t.Fatal("ExtractPDFText() should fail")
			}
			if !apperr.Is(err, apperr.KindValidation) {
				t.Errorf("expected a validation error, got %v", err)
			}
		})
	}
}

func TestJoinRow(t *testing.T) {
	glyph := func(s string, x, w float64) pdf.Text {
		return pdf.Text{S: s, X: x, W: w, FontSize: 10}
	}

	tests := []struct {
		name string
		row  []pdf.Text
		want string
	}{
		{
			name: "touching glyphs stay joined",
			row:  []pdf.Text{glyph("I", 10, 3), glyph("D", 13, 7), glyph(":", 20, 3)},
			want: "ID:",
		},
		{
			name: "gap becomes a space",
			row:  []pdf.Text{glyph("I", 10, 3), glyph("D", 13, 7), glyph("3", 40, 5)},
			want: "ID 3",
		},
		{
			name: "out of order glyphs are sorted",
			row:  []pdf.Text{glyph("b", 15, 5), glyph("a", 10, 5)},
			want: "ab",
		},
		{
			name: "whitespace runs collapse",
			row:  []pdf.Text{glyph("a", 10, 5), glyph(" ", 15, 3), glyph("\n", 18, 0), glyph("b", 30, 5)},
			want: "a b",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := joinRow(tt.row); got != tt.want {
				t.Errorf("joinRow() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestGroupRows(t *testing.T) {
	texts := []pdf.Text{
		{S: "b", X: 10, Y: 700},
		{S: "a", X: 10, Y: 720},
		{S: "c", X: 20, Y: 700.5},
	}

	rows := groupRows(texts)
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	if got := joinRow(rows[0]); got != "a" {
		t.Errorf("first row = %q, want the top of the page", got)
	}
	if len(rows[1]) != 2 {
		t.Errorf("glyphs within the row tolerance should share a row, got %d", len(rows[1]))
	}
}

func TestIsPDF(t *testing.T) {
	if !IsPDF([]byte("%PDF-1.7\n")) {
		t.Error("IsPDF() should accept a PDF header")
	}
	if !IsPDF([]byte("\r\n%PDF-1.4")) {
		t.Error("IsPDF() should ignore leading whitespace")
	}
	if IsPDF([]byte("PK\x03\x04")) {
		t.Error("IsPDF() should reject ZIP content")
	}
}
