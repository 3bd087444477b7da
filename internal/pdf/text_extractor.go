package pdf

import (
	"errors"
	"fmt"
	"math"
	"os"
	"sort"
	"strings"
	"unicode"

	"github.com/dslipak/pdf"
	"github.com/gen2brain/go-fitz"
)

// Text backends.
const (
	TextBackendVector = "vector"
	TextBackendFitz   = "fitz"
)

// ErrUnknownBackend is returned for an unsupported backend name.
var ErrUnknownBackend = errors.New("unknown backend")

// TextSource yields the embedded text of each page by 0-based index.
type TextSource interface {
	NumPages() int
	PageText(index int) (string, error)
	Close() error
}

// OpenText opens path with the named text backend. An empty name selects fitz.
func OpenText(backend, path string) (TextSource, error) {
	switch backend {
	case TextBackendVector:
		return OpenVectorText(path)
	case "", TextBackendFitz:
		return OpenFitzText(path)
	default:
		return nil, fmt.Errorf("%w: text backend %q", ErrUnknownBackend, backend)
	}
}

// FallbackTextBackend names the backend to retry with when backend cannot
// open a document, or "" when there is none.
func FallbackTextBackend(backend string) string {
	switch backend {
	case "", TextBackendFitz:
		return TextBackendVector
	case TextBackendVector:
		return TextBackendFitz
	default:
		return ""
	}
}

// VectorText reads page text from the PDF content streams.
type VectorText struct {
	file   *os.File
	reader *pdf.Reader
}

// OpenVectorText parses the cross-reference table of path.
func OpenVectorText(path string) (vt *VectorText, err error) {
	f, err := os.Open(path) //nolint:gosec // G304: catalog path comes from the caller
	if err != nil {
		return nil, fmt.Errorf("%w %q: %v", ErrOpenDocument, path, err)
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("%w %q: %v", ErrOpenDocument, path, err)
	}

	defer func() {
		if r := recover(); r != nil {
			_ = f.Close()
			vt, err = nil, fmt.Errorf("%w %q: %v", ErrOpenDocument, path, r)
		}
	}()

	reader, err := pdf.NewReader(f, info.Size())
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("%w %q: %v", ErrOpenDocument, path, err)
	}
	return &VectorText{file: f, reader: reader}, nil
}

// NumPages returns the page count.
func (v *VectorText) NumPages() int {
	return v.reader.NumPage()
}

// PageText returns the text of page index, one line per text row. Glyphs are
// joined by their positions, so pieces of one word split by TJ kerning stay
// together.
func (v *VectorText) PageText(index int) (string, error) {
	page := v.reader.Page(index + 1)
	if page.V.IsNull() {
		return "", fmt.Errorf("page %d is null", index+1)
	}

	glyphs, err := pageGlyphs(page)
	if err == nil && len(glyphs) > 0 {
		return joinGlyphRows(glyphs), nil
	}

	plain, perr := page.GetPlainText(make(map[string]*pdf.Font))
	if perr != nil {
		if err != nil {
			return "", fmt.Errorf("page %d: %w", index+1, errors.Join(err, perr))
		}
		return "", fmt.Errorf("page %d: %w", index+1, perr)
	}
	return plain, nil
}

// pageGlyphs returns the positioned glyphs of page. The reader panics on
// malformed content streams.
func pageGlyphs(page pdf.Page) (glyphs []pdf.Text, err error) {
	defer func() {
		if r := recover(); r != nil {
			glyphs, err = nil, fmt.Errorf("read content: %v", r)
		}
	}()
	return page.Content().Text, nil
}

// wordGap is the horizontal gap, relative to the font size, above which two
// glyphs belong to different words.
const wordGap = 0.25

// joinGlyphRows groups glyphs by baseline, top row first, and joins each
// row left to right. A space is inserted only where the gap between two
// glyphs is wider than wordGap.
func joinGlyphRows(glyphs []pdf.Text) string {
	rows := make(map[int64][]pdf.Text)
	for _, g := range glyphs {
		y := int64(math.Round(g.Y))
		rows[y] = append(rows[y], g)
	}
	ys := make([]int64, 0, len(rows))
	for y := range rows {
		ys = append(ys, y)
	}
	sort.Slice(ys, func(i, j int) bool { return ys[i] > ys[j] })

	var b strings.Builder
	for _, y := range ys {
		row := rows[y]
		sort.SliceStable(row, func(i, j int) bool { return row[i].X < row[j].X })
		for i, g := range row {
			if i > 0 && separated(row[i-1], g) {
				b.WriteString(" ")
			}
			b.WriteString(g.S)
		}
		b.WriteString("\n")
	}
	return b.String()
}

// separated reports whether a space belongs between prev and next. Without
// a glyph width the distance between the two origins stands in for the gap.
func separated(prev, next pdf.Text) bool {
	if isSpace(prev.S) || isSpace(next.S) {
		return false
	}
	gap := next.X - (prev.X + math.Max(prev.W, 0))
	return gap > wordGap*math.Max(prev.FontSize, 1)
}

func isSpace(s string) bool {
	return s != "" && strings.TrimFunc(s, unicode.IsSpace) == ""
}

// Close releases the underlying file.
func (v *VectorText) Close() error {
	return v.file.Close()
}

// FitzText reads page text through MuPDF.
type FitzText struct {
	doc *fitz.Document
}

// OpenFitzText opens path with MuPDF.
func OpenFitzText(path string) (*FitzText, error) {
	doc, err := fitz.New(path)
	if err != nil {
		return nil, fmt.Errorf("%w %q: %v", ErrOpenDocument, path, err)
	}
	return &FitzText{doc: doc}, nil
}

// NumPages returns the page count.
func (f *FitzText) NumPages() int {
	return f.doc.NumPage()
}

// PageText returns the text of page index.
func (f *FitzText) PageText(index int) (string, error) {
	return f.doc.Text(index)
}

// Close releases the MuPDF document.
func (f *FitzText) Close() error {
	return f.doc.Close()
}
