package compose

import (
	"context"
	"fmt"
	"image/color"
	"path/filepath"
	"testing"

	"codeberg.org/go-pdf/fpdf"
	"github.com/MeKo-Tech/pricetag/internal/catalog"
	"github.com/MeKo-Tech/pricetag/internal/pdf"
	"github.com/MeKo-Tech/pricetag/internal/pricing"
	"github.com/MeKo-Tech/pricetag/internal/testutil"
	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var gray = color.NRGBA{R: 128, G: 128, B: 128, A: 255}

func TestBandPaint(t *testing.T) {
	src := testutil.GeneratePageImage(testutil.DefaultPageImageConfig())

	tests := []struct {
		name    string
		band    Band
		wantTop int
	}{
		{"default", Band{Height: 300, Color: gray}, 500},
		{"taller than page", Band{Height: 1000, Color: gray}, 0},
		{"disabled", Band{Height: 0, Color: gray}, 800},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := tt.band.Paint(src)
			assert.Equal(t, src.Bounds().Size(), out.Bounds().Size())
			assert.Equal(t, tt.wantTop, tt.band.Top(800))

			if tt.wantTop < 800 {
				assert.Equal(t, gray, testutil.ColorAt(out, 10, tt.wantTop))
				assert.Equal(t, gray, testutil.ColorAt(out, 599, 799))
			}
			if tt.wantTop > 0 {
				assert.Equal(t, testutil.ColorAt(src, 10, tt.wantTop-1), testutil.ColorAt(out, 10, tt.wantTop-1))
			}
		})
	}
}

func TestBandPaintIsOpaque(t *testing.T) {
	src := imaging.New(50, 50, color.NRGBA{A: 0})
	out := Band{Height: 10, Color: color.NRGBA{R: 41, G: 98, B: 255, A: 40}}.Paint(src)
	assert.Equal(t, color.NRGBA{R: 41, G: 98, B: 255, A: 255}, testutil.ColorAt(out, 25, 45))
	assert.Equal(t, uint8(0), testutil.ColorAt(out, 25, 10).A)
}

func TestLabels(t *testing.T) {
	assert.Equal(t, "BONE 82969 - R$ 37", FormatLabel("BONE 82969", DefaultCurrency, 37))

	line := JoinLabels([]string{"SAIA 86130 - R$ 57", "BODY 84291 - R$ 27"})
	assert.Equal(t, "SAIA 86130 - R$ 57 | BODY 84291 - R$ 27", line)
	assert.Equal(t, []string{"SAIA 86130 - R$ 57", "BODY 84291 - R$ 27"}, SplitLabels(line))
	assert.Empty(t, SplitLabels(" | "))
}

func TestPageLabels(t *testing.T) {
	prices := &pricing.PriceList{Records: map[string]pricing.Record{
		"82969": {Code: "82969", Cost: 19.9, Sale: 39.8},
		"10001": {Code: "10001", Cost: 1, Sale: 2},
	}}
	matches := []catalog.Match{
		{Page: 1, Code: "82969", Text: "BONE 82969"},
		{Page: 1, Code: "55555", Text: "SAIA 55555"},
		{Page: 1, Code: "10001", Text: "10001"},
		{Page: 1, Code: "82969", Text: "BONÉ 82969"},
	}

	labels, skips := PageLabels(matches, prices, "R$")
	assert.Equal(t, []string{"BONE 82969 - R$ 37", "BONÉ 82969 - R$ 37"}, labels)
	require.Len(t, skips, 1)
	assert.Equal(t, "page 2 code 10001", skips[0].Item)
	require.ErrorIs(t, skips[0], pricing.ErrPriceTooLow)
}

func TestResolveFontFallsBackToBuiltin(t *testing.T) {
	doc := newDoc()
	font := ResolveFont(doc, []string{"/nonexistent/font.ttf", filepath.Join(t.TempDir(), "x.ttf")}, nil)
	assert.True(t, font.Builtin())
	assert.Equal(t, coreFamily, font.Family)
	assert.Equal(t, "BON\xc9 82969", font.Encode("BONÉ 82969"))
	assert.False(t, doc.Err())
}

func TestResolveFontRejectsInvalidFile(t *testing.T) {
	dir := t.TempDir()
	bogus := testutil.WritePriceCSV(t, dir, "bogus.ttf", "not a font")

	doc := newDoc()
	font := ResolveFont(doc, []string{bogus}, nil)
	assert.True(t, font.Builtin())
	assert.False(t, doc.Err())
}

func newDoc() *fpdf.Fpdf {
	return fpdf.New("P", "pt", "A4", "")
}

func writePages(t *testing.T, dir string, indexes ...int) []pdf.PageImage {
	t.Helper()
	cfg := testutil.DefaultPageImageConfig()
	pages := make([]pdf.PageImage, 0, len(indexes))
	for _, i := range indexes {
		path := testutil.WritePageImage(t, dir, pdf.PageImageName(i), cfg)
		pages = append(pages, pdf.PageImage{Index: i, Path: path, Width: cfg.Width, Height: cfg.Height})
	}
	return pages
}

func builtinOptions(dir string) Options {
	opts := DefaultOptions()
	opts.FontPaths = nil
	opts.WorkDir = dir
	return opts
}

func TestComposeEndToEnd(t *testing.T) {
	dir := t.TempDir()
	pages := writePages(t, dir, 2, 0, 1)
	prices := &pricing.PriceList{Records: map[string]pricing.Record{
		"82969": {Code: "82969", Cost: 19.9, Sale: 39.8},
	}}
	matches := []catalog.Match{
		{Page: 0, Code: "82969", Text: "BONE 82969"},
		{Page: 1, Code: "82969", Text: "BONE 82969"},
	}

	var fractions []float64
	progress := func(_ string, f float64) { fractions = append(fractions, f) }

	out := filepath.Join(dir, "saida.pdf")
	res, err := New(builtinOptions(dir), nil).Compose(context.Background(), pages,
		&catalog.Result{Matches: matches}, prices, out, progress)
	require.NoError(t, err)

	require.Len(t, res.Pages, 3)
	assert.Equal(t, []int{0, 1, 2}, []int{res.Pages[0].Index, res.Pages[1].Index, res.Pages[2].Index})
	assert.False(t, res.Pages[0].Banded)
	assert.Empty(t, res.Pages[0].Labels)
	assert.True(t, res.Pages[1].Banded)
	assert.Equal(t, ModeSingleLine, res.Pages[1].Mode)
	assert.Equal(t, []string{"BONE 82969 - R$ 37"}, res.Pages[1].Labels)
	assert.True(t, res.Pages[2].Banded)
	assert.Equal(t, ModeNone, res.Pages[2].Mode)
	assert.Equal(t, 1, res.Labels)
	assert.Equal(t, []float64{0, 1.0 / 3, 2.0 / 3}, fractions)

	assert.False(t, testutil.FileExists(filepath.Join(dir, "page_0_band.png")))
	banded := testutil.LoadImage(t, filepath.Join(dir, "page_1_band.png"))
	assert.Equal(t, gray, testutil.ColorAt(banded, 300, 790))

	n, err := pdf.Verify(out)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	text, err := pdf.OpenText(pdf.TextBackendVector, out)
	require.NoError(t, err)
	defer func() { _ = text.Close() }()
	page2, err := text.PageText(1)
	require.NoError(t, err)
	assert.Contains(t, page2, "BONE 82969 - R$ 37")
	cover, err := text.PageText(0)
	require.NoError(t, err)
	assert.NotContains(t, cover, "R$")
}

func TestComposeOverflowDrawsOneLabelPerLine(t *testing.T) {
	dir := t.TempDir()
	pages := writePages(t, dir, 0, 1)

	records := map[string]pricing.Record{}
	var matches []catalog.Match
	for i := 0; i < 4; i++ {
		code := fmt.Sprintf("8483%d", i)
		records[code] = pricing.Record{Code: code, Cost: 50, Sale: 100}
		matches = append(matches, catalog.Match{Page: 1, Code: code, Text: "CAMISETA " + code})
	}

	out := filepath.Join(dir, "saida.pdf")
	res, err := New(builtinOptions(dir), nil).Compose(context.Background(), pages,
		&catalog.Result{Matches: matches}, &pricing.PriceList{Records: records}, out, nil)
	require.NoError(t, err)

	page := res.Pages[1]
	assert.Equal(t, ModePerLine, page.Mode)
	require.Len(t, page.Labels, 4)
	assert.Equal(t, "CAMISETA 84830 - R$ 97", page.Labels[0])
	assert.Empty(t, res.Skipped)

	_, err = pdf.Verify(out)
	require.NoError(t, err)
}

func TestComposeKeepsPageSizesAndGaps(t *testing.T) {
	dir := t.TempDir()
	small := testutil.DefaultPageImageConfig()
	small.Width, small.Height = 400, 500
	p0 := testutil.WritePageImage(t, dir, "page_0.png", small)
	pages := append([]pdf.PageImage{{Index: 0, Path: p0}}, writePages(t, dir, 3)...)

	var messages []string
	progress := func(m string, _ float64) { messages = append(messages, m) }

	out := filepath.Join(dir, "saida.pdf")
	res, err := New(builtinOptions(dir), nil).Compose(context.Background(), pages, nil, nil, out, progress)
	require.NoError(t, err)

	// Positions count output pages, not catalog page numbers.
	assert.Equal(t, []string{"Creating page 1 of 2...", "Creating page 2 of 2..."}, messages)
	require.Len(t, res.Pages, 2)
	assert.Equal(t, 400, res.Pages[0].Width)
	assert.Equal(t, 500, res.Pages[0].Height)
	assert.Equal(t, 3, res.Pages[1].Index)
	assert.Equal(t, 800, res.Pages[1].Height)

	n, err := pdf.PageCount(out)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestComposeErrors(t *testing.T) {
	dir := t.TempDir()
	c := New(builtinOptions(dir), nil)

	_, err := c.Compose(context.Background(), nil, nil, nil, filepath.Join(dir, "o.pdf"), nil)
	require.ErrorIs(t, err, ErrNoPages)

	missing := []pdf.PageImage{{Index: 1, Path: filepath.Join(dir, "page_1.png")}}
	_, err = c.Compose(context.Background(), missing, nil, nil, filepath.Join(dir, "o.pdf"), nil)
	require.ErrorIs(t, err, ErrAssemble)

	pages := writePages(t, dir, 0)
	_, err = c.Compose(context.Background(), pages, nil, nil, filepath.Join(dir, "no", "such", "dir", "o.pdf"), nil)
	require.ErrorIs(t, err, ErrAssemble)
}
