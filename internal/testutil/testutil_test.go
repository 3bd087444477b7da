package testutil

import (
	"bytes"
	"image/color"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestGetProjectRoot(t *testing.T) {
	root, err := GetProjectRootValidated()
	require.NoError(t, err)
	assert.True(t, FileExists(filepath.Join(root, "go.mod")))
}

func TestEnsureDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "a", "b")
	require.NoError(t, EnsureDir(dir))
	assert.True(t, DirExists(dir))
	assert.True(t, FileExists(dir))
	assert.False(t, FileExists(filepath.Join(dir, "missing")))
	assert.False(t, DirExists(filepath.Join(dir, "missing")))
}

func TestGeneratePageImage(t *testing.T) {
	cfg := DefaultPageImageConfig()
	img := GeneratePageImage(cfg)

	assert.Equal(t, cfg.Width, img.Bounds().Dx())
	assert.Equal(t, cfg.Height, img.Bounds().Dy())
	assert.Equal(t, color.NRGBA{R: 200, G: 120, B: 60, A: 255}, ColorAt(img, cfg.Width/2, cfg.Height/3))
	assert.Equal(t, color.NRGBA{R: 255, G: 255, B: 255, A: 255}, ColorAt(img, 2, 2))

	path := WritePageImage(t, t.TempDir(), "page_0.png", cfg)
	loaded := LoadImage(t, path)
	assert.Equal(t, img.Bounds(), loaded.Bounds())
}

func TestWriteCatalogPDF(t *testing.T) {
	path := WriteCatalogPDF(t, t.TempDir(), "c.pdf", []CatalogPage{
		{Lines: []string{"BONE 82969"}},
	})

	data := ReadFile(t, path)
	assert.True(t, bytes.HasPrefix(data, []byte("%PDF-")))
	assert.Contains(t, string(data), "BONE 82969")
}

func TestWritePriceXLSX(t *testing.T) {
	path := WritePriceXLSX(t, t.TempDir(), "p.xlsx",
		[]string{"REF", "TAM", "VALOR"},
		[][]any{{82969, "U", 19.9}},
	)

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	rows, err := f.GetRows("Sheet1")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"REF", "TAM", "VALOR"}, rows[0])
	assert.Equal(t, "82969", rows[1][0])
}
