package config

import (
	"image/color"
	"testing"

	"github.com/MeKo-Tech/pricetag/internal/catalog"
	"github.com/MeKo-Tech/pricetag/internal/compose"
	"github.com/MeKo-Tech/pricetag/internal/pdf"
	"github.com/MeKo-Tech/pricetag/internal/pricing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "info", cfg.LogLevel)
	assert.InDelta(t, 2.0, cfg.Markup, 1e-9)
	assert.Equal(t, pdf.RenderBackendFitz, cfg.Render.Backend)
	assert.InDelta(t, 2.0, cfg.Render.Scale, 1e-9)
	assert.Equal(t, pdf.TextBackendFitz, cfg.Scan.TextBackend)
	assert.Len(t, cfg.Scan.Categories, len(catalog.DefaultCategories))
	assert.Equal(t, pricing.DefaultHeaderMarker, cfg.Prices.HeaderMarker)
	assert.Equal(t, 300, cfg.Compose.BandHeight)
	assert.Equal(t, "gray", cfg.Compose.BandColor)
	assert.Equal(t, "R$", cfg.Compose.Currency)
	assert.Equal(t, "text", cfg.Output.Report)

	// Defaults must not alias the package-level lists.
	cfg.Scan.Categories[0].Keyword = "CHANGED"
	assert.NotEqual(t, "CHANGED", catalog.DefaultCategories[0].Keyword)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"log level", func(c *Config) { c.LogLevel = "trace" }, "invalid log level"},
		{"zero markup", func(c *Config) { c.Markup = 0 }, "markup"},
		{"render backend", func(c *Config) { c.Render.Backend = "ghostscript" }, "invalid render backend"},
		{"scale", func(c *Config) { c.Render.Scale = 0 }, "invalid render scale"},
		{"text backend", func(c *Config) { c.Scan.TextBackend = "ocr" }, "invalid text backend"},
		{"blank keyword", func(c *Config) { c.Scan.Categories = []catalog.Category{{Keyword: " "}} }, "invalid scan categories"},
		{"negative band", func(c *Config) { c.Compose.BandHeight = -1 }, "invalid band height"},
		{"band color", func(c *Config) { c.Compose.BandColor = "sepia-ish" }, "compose.band_color"},
		{"text color", func(c *Config) { c.Compose.TextColor = "#12" }, "compose.text_color"},
		{"font size", func(c *Config) { c.Compose.FontSize = 0 }, "compose.font_size"},
		{"fallback line", func(c *Config) { c.Compose.FallbackLineHeight = -2 }, "compose.fallback_line_height"},
		{"margin", func(c *Config) { c.Compose.Margin = -1 }, "compose.margin"},
		{"report", func(c *Config) { c.Output.Report = "xml" }, "invalid report format"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}

	t.Run("band disabled", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Compose.BandHeight = 0
		assert.NoError(t, cfg.Validate())
	})
}

func TestToPipelineConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Markup = 2.5
	cfg.Render.Backend = pdf.RenderBackendPoppler
	cfg.Scan.TextBackend = pdf.TextBackendFitz
	cfg.Compose.BandColor = "azul"
	cfg.Compose.BandHeight = 250
	cfg.Compose.Fonts = []string{"/tmp/font.ttf"}
	cfg.Prices.Sheet = "Tabela"
	cfg.PDF = pdf.Credentials{UserPassword: "segredo"}

	p, err := cfg.ToPipelineConfig()
	require.NoError(t, err)
	assert.InDelta(t, 2.5, p.Markup, 1e-9)
	assert.Equal(t, pdf.RenderBackendPoppler, p.RenderBackend)
	assert.Equal(t, pdf.TextBackendFitz, p.TextBackend)
	assert.Equal(t, "Tabela", p.Sheet)
	assert.Equal(t, "segredo", p.Credentials.UserPassword)
	assert.Equal(t, compose.Band{Height: 250, Color: color.NRGBA{R: 41, G: 98, B: 255, A: 255}}, p.Compose.Band)
	assert.Equal(t, color.NRGBA{R: 255, G: 255, B: 255, A: 255}, p.Compose.TextColor)
	assert.Equal(t, []string{"/tmp/font.ttf"}, p.Compose.FontPaths)

	cfg.Scan.Categories = nil
	p, err = cfg.ToPipelineConfig()
	require.NoError(t, err)
	assert.Equal(t, catalog.DefaultCategories, p.Categories)

	cfg.Compose.BandColor = "nope"
	_, err = cfg.ToPipelineConfig()
	require.ErrorIs(t, err, ErrInvalidColor)
}

func TestParseColor(t *testing.T) {
	tests := []struct {
		in   string
		want color.NRGBA
	}{
		{"gray", color.NRGBA{R: 128, G: 128, B: 128, A: 255}},
		{"Cinza", color.NRGBA{R: 128, G: 128, B: 128, A: 255}},
		{"azul", color.NRGBA{R: 41, G: 98, B: 255, A: 255}},
		{"verde", color.NRGBA{R: 0, G: 128, B: 0, A: 255}},
		{"vermelho", color.NRGBA{R: 255, A: 255}},
		{"preto", color.NRGBA{A: 255}},
		{"roxo", color.NRGBA{R: 128, B: 128, A: 255}},
		{"navy", color.NRGBA{B: 128, A: 255}},
		{"#2962FF", color.NRGBA{R: 41, G: 98, B: 255, A: 255}},
		{"2962ff", color.NRGBA{R: 41, G: 98, B: 255, A: 255}},
		{" 10, 20 ,30 ", color.NRGBA{R: 10, G: 20, B: 30, A: 255}},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseColor(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	for _, bad := range []string{"", "#12345", "#zzzzzz", "1,2", "1,2,256", "a,b,c"} {
		t.Run("invalid "+bad, func(t *testing.T) {
			_, err := ParseColor(bad)
			require.ErrorIs(t, err, ErrInvalidColor)
		})
	}
}

func TestFormatColor(t *testing.T) {
	assert.Equal(t, "#2962ff", FormatColor(color.NRGBA{R: 41, G: 98, B: 255, A: 255}))
}
