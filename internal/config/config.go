// Package config holds the typed pricetag configuration and its loader.
package config

import (
	"fmt"
	"slices"
	"strings"

	"github.com/MeKo-Tech/pricetag/internal/catalog"
	"github.com/MeKo-Tech/pricetag/internal/compose"
	"github.com/MeKo-Tech/pricetag/internal/pdf"
	"github.com/MeKo-Tech/pricetag/internal/pipeline"
	"github.com/MeKo-Tech/pricetag/internal/pricing"
)

// Config represents the complete configuration for pricetag. It supports
// loading from configuration files, environment variables and command-line
// flags.
type Config struct {
	LogLevel string `mapstructure:"log_level" yaml:"log_level" json:"log_level"`
	Verbose  bool   `mapstructure:"verbose" yaml:"verbose" json:"verbose"`

	// Markup multiplies the supplier cost into the sale price.
	Markup float64 `mapstructure:"markup" yaml:"markup" json:"markup"`

	Render  RenderConfig    `mapstructure:"render" yaml:"render" json:"render"`
	Scan    ScanConfig      `mapstructure:"scan" yaml:"scan" json:"scan"`
	Prices  PricesConfig    `mapstructure:"prices" yaml:"prices" json:"prices"`
	Compose ComposeConfig   `mapstructure:"compose" yaml:"compose" json:"compose"`
	PDF     pdf.Credentials `mapstructure:"pdf" yaml:"pdf" json:"pdf"`
	Output  OutputConfig    `mapstructure:"output" yaml:"output" json:"output"`
	Batch   BatchConfig     `mapstructure:"batch" yaml:"batch" json:"batch"`
}

// RenderConfig selects the page rasterizer.
type RenderConfig struct {
	Backend string  `mapstructure:"backend" yaml:"backend" json:"backend"`
	Scale   float64 `mapstructure:"scale" yaml:"scale" json:"scale"`
}

// ScanConfig controls product code extraction.
type ScanConfig struct {
	TextBackend string             `mapstructure:"text_backend" yaml:"text_backend" json:"text_backend"`
	Categories  []catalog.Category `mapstructure:"categories" yaml:"categories" json:"categories"`
}

// PricesConfig controls how the price table is read.
type PricesConfig struct {
	HeaderMarker string `mapstructure:"header_marker" yaml:"header_marker" json:"header_marker"`
	Sheet        string `mapstructure:"sheet" yaml:"sheet" json:"sheet"`
}

// ComposeConfig controls the band and label layout. Lengths are in pixels of
// the rendered page.
type ComposeConfig struct {
	BandHeight         int      `mapstructure:"band_height" yaml:"band_height" json:"band_height"`
	BandColor          string   `mapstructure:"band_color" yaml:"band_color" json:"band_color"`
	TextColor          string   `mapstructure:"text_color" yaml:"text_color" json:"text_color"`
	Currency           string   `mapstructure:"currency" yaml:"currency" json:"currency"`
	Fonts              []string `mapstructure:"fonts" yaml:"fonts" json:"fonts"`
	FontSize           float64  `mapstructure:"font_size" yaml:"font_size" json:"font_size"`
	LineHeight         float64  `mapstructure:"line_height" yaml:"line_height" json:"line_height"`
	FallbackLineHeight float64  `mapstructure:"fallback_line_height" yaml:"fallback_line_height" json:"fallback_line_height"`
	Margin             float64  `mapstructure:"margin" yaml:"margin" json:"margin"`
}

// OutputConfig contains run report and artifact settings.
type OutputConfig struct {
	Report      string `mapstructure:"report" yaml:"report" json:"report"`
	MetricsFile string `mapstructure:"metrics_file" yaml:"metrics_file" json:"metrics_file"`
	KeepWorkDir bool   `mapstructure:"keep_work_dir" yaml:"keep_work_dir" json:"keep_work_dir"`
}

// BatchConfig contains multi-catalog settings.
type BatchConfig struct {
	Recursive       bool   `mapstructure:"recursive" yaml:"recursive" json:"recursive"`
	ContinueOnError bool   `mapstructure:"continue_on_error" yaml:"continue_on_error" json:"continue_on_error"`
	Suffix          string `mapstructure:"suffix" yaml:"suffix" json:"suffix"`
}

// DefaultConfig returns a configuration with the standard catalog layout.
func DefaultConfig() Config {
	p := pipeline.DefaultConfig()
	c := p.Compose
	return Config{
		LogLevel: "info",
		Markup:   p.Markup,
		Render: RenderConfig{
			Backend: p.RenderBackend,
			Scale:   p.Scale,
		},
		Scan: ScanConfig{
			TextBackend: p.TextBackend,
			Categories:  slices.Clone(catalog.DefaultCategories),
		},
		Prices: PricesConfig{
			HeaderMarker: p.HeaderMarker,
		},
		Compose: ComposeConfig{
			BandHeight:         c.Band.Height,
			BandColor:          "gray",
			TextColor:          "white",
			Currency:           c.Currency,
			Fonts:              slices.Clone(c.FontPaths),
			FontSize:           c.FontSize,
			LineHeight:         c.LineHeight,
			FallbackLineHeight: c.FallbackLineHeight,
			Margin:             c.Margin,
		},
		Output: OutputConfig{
			Report: pipeline.FormatText,
		},
		Batch: BatchConfig{
			ContinueOnError: true,
			Suffix:          "_precificado",
		},
	}
}

// Validate validates the configuration and returns the first problem found.
func (c *Config) Validate() error {
	validLogLevels := []string{"debug", "info", "warn", "error"}
	if !slices.Contains(validLogLevels, c.LogLevel) {
		return fmt.Errorf("invalid log level: %s (must be one of: %s)", c.LogLevel, strings.Join(validLogLevels, ", "))
	}
	if err := pricing.ValidateMarkup(c.Markup); err != nil {
		return err
	}

	renderBackends := []string{pdf.RenderBackendFitz, pdf.RenderBackendPoppler}
	if !slices.Contains(renderBackends, c.Render.Backend) {
		return fmt.Errorf("invalid render backend: %s (must be one of: %s)", c.Render.Backend, strings.Join(renderBackends, ", "))
	}
	if c.Render.Scale <= 0 {
		return fmt.Errorf("invalid render scale: %v (must be positive)", c.Render.Scale)
	}
	textBackends := []string{pdf.TextBackendVector, pdf.TextBackendFitz}
	if !slices.Contains(textBackends, c.Scan.TextBackend) {
		return fmt.Errorf("invalid text backend: %s (must be one of: %s)", c.Scan.TextBackend, strings.Join(textBackends, ", "))
	}
	if _, err := catalog.Compile(c.Scan.Categories); err != nil {
		return fmt.Errorf("invalid scan categories: %w", err)
	}

	if c.Compose.BandHeight < 0 {
		return fmt.Errorf("invalid band height: %d (must not be negative)", c.Compose.BandHeight)
	}
	if _, err := ParseColor(c.Compose.BandColor); err != nil {
		return fmt.Errorf("compose.band_color: %w", err)
	}
	if _, err := ParseColor(c.Compose.TextColor); err != nil {
		return fmt.Errorf("compose.text_color: %w", err)
	}
	for name, v := range map[string]float64{
		"font_size":            c.Compose.FontSize,
		"line_height":          c.Compose.LineHeight,
		"fallback_line_height": c.Compose.FallbackLineHeight,
	} {
		if v <= 0 {
			return fmt.Errorf("invalid compose.%s: %v (must be positive)", name, v)
		}
	}
	if c.Compose.Margin < 0 {
		return fmt.Errorf("invalid compose.margin: %v (must not be negative)", c.Compose.Margin)
	}

	validFormats := []string{pipeline.FormatText, pipeline.FormatJSON, pipeline.FormatYAML, pipeline.FormatCSV}
	if c.Output.Report != "" && !slices.Contains(validFormats, c.Output.Report) {
		return fmt.Errorf("invalid report format: %s (must be one of: %s)", c.Output.Report, strings.Join(validFormats, ", "))
	}
	return nil
}

// ToPipelineConfig converts the config to the pipeline configuration.
func (c *Config) ToPipelineConfig() (pipeline.Config, error) {
	band, err := ParseColor(c.Compose.BandColor)
	if err != nil {
		return pipeline.Config{}, fmt.Errorf("compose.band_color: %w", err)
	}
	text, err := ParseColor(c.Compose.TextColor)
	if err != nil {
		return pipeline.Config{}, fmt.Errorf("compose.text_color: %w", err)
	}

	cfg := pipeline.DefaultConfig()
	cfg.RenderBackend = c.Render.Backend
	cfg.Scale = c.Render.Scale
	cfg.TextBackend = c.Scan.TextBackend
	if len(c.Scan.Categories) > 0 {
		cfg.Categories = c.Scan.Categories
	}
	cfg.Markup = c.Markup
	cfg.HeaderMarker = c.Prices.HeaderMarker
	cfg.Sheet = c.Prices.Sheet
	cfg.Credentials = c.PDF
	cfg.Compose = compose.Options{
		Band:               compose.Band{Height: c.Compose.BandHeight, Color: band},
		Currency:           c.Compose.Currency,
		FontPaths:          c.Compose.Fonts,
		FontSize:           c.Compose.FontSize,
		LineHeight:         c.Compose.LineHeight,
		FallbackLineHeight: c.Compose.FallbackLineHeight,
		Margin:             c.Compose.Margin,
		TextColor:          text,
	}
	return cfg, nil
}
