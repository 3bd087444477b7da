package testutil

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"codeberg.org/go-pdf/fpdf"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

// CatalogPage is one page of a generated catalog PDF.
type CatalogPage struct {
	// Lines are written top to bottom in the page's text layer.
	Lines []string
	// Width and Height in points; zero means 300x400.
	Width  float64
	Height float64
}

// WriteCatalogPDF writes a catalog with a photo block and text lines per page.
func WriteCatalogPDF(t *testing.T, dir, name string, pages []CatalogPage) string {
	t.Helper()

	require.NoError(t, EnsureDir(dir))
	path := filepath.Join(dir, name)
	require.NoError(t, BuildCatalogPDF(path, pages))
	return path
}

// BuildCatalogPDF is WriteCatalogPDF for callers without a *testing.T.
func BuildCatalogPDF(path string, pages []CatalogPage) error {
	doc := fpdf.New("P", "pt", "A4", "")
	doc.SetCompression(false)
	doc.SetAutoPageBreak(false, 0)
	doc.SetFont("Helvetica", "", 12)
	tr := doc.UnicodeTranslatorFromDescriptor("")

	for _, p := range pages {
		w, h := p.Width, p.Height
		if w == 0 || h == 0 {
			w, h = 300, 400
		}
		doc.AddPageFormat("P", fpdf.SizeType{Wd: w, Ht: h})

		doc.SetFillColor(200, 120, 60)
		doc.Rect(w*0.1, h*0.1, w*0.8, h*0.5, "F")

		y := h * 0.7
		for _, line := range p.Lines {
			doc.Text(20, y, tr(line))
			y += 16
		}
	}

	return doc.OutputFileAndClose(path)
}

// WritePriceXLSX writes a single-sheet workbook. The header row goes to row 1.
func WritePriceXLSX(t *testing.T, dir, name string, header []string, rows [][]any) string {
	t.Helper()

	require.NoError(t, EnsureDir(dir))
	path := filepath.Join(dir, name)
	require.NoError(t, BuildPriceXLSX(path, header, rows))
	return path
}

// BuildPriceXLSX is WritePriceXLSX for callers without a *testing.T.
func BuildPriceXLSX(path string, header []string, rows [][]any) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	const sheet = "Sheet1"
	headerRow := make([]any, len(header))
	for i, h := range header {
		headerRow[i] = h
	}
	if err := f.SetSheetRow(sheet, "A1", &headerRow); err != nil {
		return err
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		r := row
		if err := f.SetSheetRow(sheet, cell, &r); err != nil {
			return err
		}
	}
	return f.SaveAs(path)
}

// WritePriceCSV writes raw CSV content.
func WritePriceCSV(t *testing.T, dir, name, content string) string {
	t.Helper()

	require.NoError(t, EnsureDir(dir))
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

// WriteContentPDF writes a one-page PDF whose content stream is content.
// The page is 300x200 points and maps /F1 to Helvetica.
func WriteContentPDF(t *testing.T, dir, name, content string) string {
	t.Helper()

	require.NoError(t, EnsureDir(dir))
	objects := []string{
		"<< /Type /Catalog /Pages 2 0 R >>",
		"<< /Type /Pages /Kids [3 0 R] /Count 1 >>",
		"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 300 200] " +
			"/Resources << /Font << /F1 4 0 R >> >> /Contents 5 0 R >>",
		"<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding >>",
		fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(content), content),
	}

	var b bytes.Buffer
	b.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objects))
	for i, obj := range objects {
		offsets[i] = b.Len()
		fmt.Fprintf(&b, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}
	xref := b.Len()
	fmt.Fprintf(&b, "xref\n0 %d\n0000000000 65535 f \n", len(objects)+1)
	for _, off := range offsets {
		fmt.Fprintf(&b, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&b, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xref)

	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, b.Bytes(), 0o600))
	return path
}
