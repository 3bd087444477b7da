package catalog

import (
	"context"
	"errors"
	"testing"

	"github.com/MeKo-Tech/pricetag/internal/pdf"
	"github.com/MeKo-Tech/pricetag/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	pages  []string
	errs   map[int]error
	panics map[int]bool
}

func (f *fakeSource) NumPages() int { return len(f.pages) }

func (f *fakeSource) PageText(i int) (string, error) {
	if f.panics[i] {
		panic("malformed content stream")
	}
	if err := f.errs[i]; err != nil {
		return "", err
	}
	return f.pages[i], nil
}

func TestMatchCategoryBeforeGeneric(t *testing.T) {
	p := MustCompile(DefaultCategories)

	matches := p.Match(1, "Coleção Verão\nCAMISA 84831\nRef 99999")
	require.Len(t, matches, 1)
	assert.Equal(t, "84831", matches[0].Code)
	assert.Equal(t, "CAMISA 84831", matches[0].Text)
	assert.Equal(t, "camisa", matches[0].Category)
	assert.Equal(t, 2, matches[0].Priority)
	assert.False(t, matches[0].Fallback)
}

func TestMatchGenericFallback(t *testing.T) {
	p := MustCompile(DefaultCategories)

	matches := p.Match(3, "Ref: 12345 extra")
	require.Len(t, matches, 1)
	assert.Equal(t, Match{
		Page:     3,
		Code:     "12345",
		Text:     "12345",
		Priority: p.Len(),
		Category: FallbackCategory,
		Fallback: true,
	}, matches[0])
}

func TestMatchCollectsAllCategories(t *testing.T) {
	p := MustCompile(DefaultCategories)

	matches := p.Match(2, "body 84291 e saia 86130 / BODY 84292")
	require.Len(t, matches, 3)
	// Pattern order first (SAIA before BODY), then text order within a pattern.
	assert.Equal(t, []string{"86130", "84291", "84292"}, codes(matches))
	assert.Equal(t, "body 84291", matches[1].Text)
}

func TestMatchAccentedKeywords(t *testing.T) {
	p := MustCompile(DefaultCategories)

	tests := []struct {
		name string
		text string
		want string
	}{
		{"precomposed", "BONÉ 82969", "BONÉ 82969"},
		{"decomposed", "BONE\u0301 82969", "BONÉ 82969"},
		{"lower case accents", "calça 84522", "calça 84522"},
		{"plain spelling", "Bone 82969", "Bone 82969"},
		{"line break gap", "MACACÃO\n83844", "MACACÃO 83844"},
		{"no-break space", "LENÇO\u00a084486", "LENÇO 84486"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			matches := p.Match(1, tt.text)
			require.Len(t, matches, 1)
			assert.Equal(t, tt.want, matches[0].Text)
			assert.False(t, matches[0].Fallback)
		})
	}
}

func TestMatchRejectsWrongLength(t *testing.T) {
	p := MustCompile(DefaultCategories)

	assert.Empty(t, p.Match(1, "tel 1234 cep 123456"))

	matches := p.Match(1, "ÓCULOS 8585827")
	require.Len(t, matches, 1, "keyword needs exactly five digits right after it")
	assert.Equal(t, "85858", matches[0].Code)
}

func TestCompileRejectsEmptyKeyword(t *testing.T) {
	_, err := Compile([]Category{{Keyword: "  "}})
	require.Error(t, err)

	p, err := Compile([]Category{{Keyword: "Tênis"}})
	require.NoError(t, err)
	matches := p.Match(0, "TÊNIS 10101")
	require.Len(t, matches, 1)
	assert.Equal(t, "tênis", matches[0].Category)
}

func TestScanToleratesPageFailures(t *testing.T) {
	src := &fakeSource{
		pages:  []string{"CAPA 2026", "BONE 82969", "", "SAIA 86130"},
		errs:   map[int]error{2: errors.New("bad page")},
		panics: map[int]bool{0: true},
	}

	var fractions []float64
	progress := func(_ string, f float64) { fractions = append(fractions, f) }

	res, err := NewScanner(nil, nil).Scan(context.Background(), src, progress)
	require.NoError(t, err)

	assert.Equal(t, 4, res.Pages)
	assert.Equal(t, []string{"82969", "86130"}, codes(res.Matches))
	require.Len(t, res.Skipped, 2)
	assert.Equal(t, "page 1", res.Skipped[0].Item)
	assert.Equal(t, "page 3", res.Skipped[1].Item)
	assert.Equal(t, []float64{0, 0.25, 0.5, 0.75}, fractions)

	byPage := res.ByPage()
	assert.Len(t, byPage[1], 1)
	assert.Len(t, byPage[3], 1)
}

func TestScanHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewScanner(nil, nil).Scan(ctx, &fakeSource{pages: []string{"x"}}, nil)
	require.ErrorIs(t, err, context.Canceled)
}

func codes(matches []Match) []string {
	out := make([]string, len(matches))
	for i, m := range matches {
		out[i] = m.Code
	}
	return out
}

func TestScanKernedCatalogPage(t *testing.T) {
	path := testutil.WriteContentPDF(t, t.TempDir(), "kerned.pdf",
		"BT /F1 12 Tf 1 0 0 1 20 100 Tm [(BONE 8)-20(2969)] TJ ET")

	for _, backend := range []string{"", pdf.TextBackendVector, pdf.TextBackendFitz} {
		t.Run("backend="+backend, func(t *testing.T) {
			src, err := pdf.OpenText(backend, path)
			require.NoError(t, err)
			defer func() { _ = src.Close() }()

			text, err := src.PageText(0)
			require.NoError(t, err)

			matches := MustCompile(DefaultCategories).Match(0, text)
			require.Len(t, matches, 1)
			assert.Equal(t, "82969", matches[0].Code)
			assert.Equal(t, "bone", matches[0].Category)
			assert.Equal(t, "BONE 82969", matches[0].Text)
		})
	}
}
