// Package pipeline runs a catalog through rendering, code scanning, price
// loading and composition.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"image/color"
	"log/slog"
	"os"

	"github.com/MeKo-Tech/pricetag/internal/catalog"
	"github.com/MeKo-Tech/pricetag/internal/common"
	"github.com/MeKo-Tech/pricetag/internal/compose"
	"github.com/MeKo-Tech/pricetag/internal/pdf"
	"github.com/MeKo-Tech/pricetag/internal/pricing"
	"github.com/prometheus/client_golang/prometheus"
)

// Progress sub-ranges of the stages.
const (
	renderStart  = 0.05
	scanStart    = 0.30
	loadStart    = 0.50
	composeStart = 0.70
)

var (
	// ErrInvalidInput is returned for missing paths in Input.
	ErrInvalidInput = errors.New("invalid pipeline input")
	// ErrNoOutput is returned when the output document is missing or unreadable.
	ErrNoOutput = errors.New("output document missing or unreadable")
)

// Config holds configuration for the pipeline and its components.
type Config struct {
	RenderBackend string
	Scale         float64
	TextBackend   string
	Categories    []catalog.Category
	Markup        float64
	HeaderMarker  string
	Sheet         string
	Compose       compose.Options
	Credentials   pdf.Credentials
}

// DefaultConfig returns a default pipeline config with component defaults.
func DefaultConfig() Config {
	return Config{
		RenderBackend: pdf.RenderBackendFitz,
		Scale:         pdf.DefaultScale,
		TextBackend:   pdf.TextBackendFitz,
		Categories:    catalog.DefaultCategories,
		Markup:        2.0,
		HeaderMarker:  pricing.DefaultHeaderMarker,
		Compose:       compose.DefaultOptions(),
	}
}

// Builder constructs a Pipeline with fluent configuration.
type Builder struct {
	cfg     Config
	logger  *slog.Logger
	metrics *Metrics
}

// NewBuilder creates a new pipeline builder with defaults.
func NewBuilder() *Builder { return &Builder{cfg: DefaultConfig()} }

// WithConfig replaces the whole configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.cfg = cfg
	return b
}

// WithMarkup sets the cost multiplier.
func (b *Builder) WithMarkup(markup float64) *Builder {
	b.cfg.Markup = markup
	return b
}

// WithBandColor sets the footer band color.
func (b *Builder) WithBandColor(c color.NRGBA) *Builder {
	b.cfg.Compose.Band.Color = c
	return b
}

// WithBandHeight sets the footer band height in pixels.
func (b *Builder) WithBandHeight(height int) *Builder {
	b.cfg.Compose.Band.Height = height
	return b
}

// WithRenderBackend selects the page rasterizer.
func (b *Builder) WithRenderBackend(backend string) *Builder {
	if backend != "" {
		b.cfg.RenderBackend = backend
	}
	return b
}

// WithTextBackend selects the page text extractor.
func (b *Builder) WithTextBackend(backend string) *Builder {
	if backend != "" {
		b.cfg.TextBackend = backend
	}
	return b
}

// WithCategories replaces the keyword list.
func (b *Builder) WithCategories(categories []catalog.Category) *Builder {
	if len(categories) > 0 {
		b.cfg.Categories = categories
	}
	return b
}

// WithFontPaths replaces the label font candidates.
func (b *Builder) WithFontPaths(paths []string) *Builder {
	b.cfg.Compose.FontPaths = paths
	return b
}

// WithCredentials sets the passwords for encrypted catalogs.
func (b *Builder) WithCredentials(creds pdf.Credentials) *Builder {
	b.cfg.Credentials = creds
	return b
}

// WithLogger sets the logger handed to every component.
func (b *Builder) WithLogger(logger *slog.Logger) *Builder {
	b.logger = logger
	return b
}

// WithMetrics registers the pipeline metrics with reg.
func (b *Builder) WithMetrics(reg prometheus.Registerer) *Builder {
	if reg != nil {
		b.metrics = NewMetrics(reg)
	}
	return b
}

// Config returns a copy of the current builder config.
func (b *Builder) Config() Config { return b.cfg }

// Build validates the configuration and returns a Pipeline.
func (b *Builder) Build() (*Pipeline, error) {
	if err := pricing.ValidateMarkup(b.cfg.Markup); err != nil {
		return nil, err
	}
	patterns, err := catalog.Compile(b.cfg.Categories)
	if err != nil {
		return nil, fmt.Errorf("compile category patterns: %w", err)
	}
	logger := b.logger
	if logger == nil {
		logger = slog.Default()
	}
	raster := pdf.NewRasterizer(b.cfg.RenderBackend, logger)
	if b.cfg.Scale > 0 {
		raster.Scale = b.cfg.Scale
	}
	return &Pipeline{
		cfg:      b.cfg,
		logger:   logger,
		metrics:  b.metrics,
		raster:   raster,
		scanner:  catalog.NewScanner(patterns, logger),
		composer: compose.New(b.cfg.Compose, logger),
		openText: pdf.OpenText,
	}, nil
}

// Input names the files of one run. WorkDir is a scratch directory owned by
// the caller; it must exist and is not removed by the pipeline.
type Input struct {
	CatalogPath string
	PricesPath  string
	OutputPath  string
	WorkDir     string
}

func (in Input) validate() error {
	switch {
	case in.CatalogPath == "":
		return fmt.Errorf("%w: catalog path is required", ErrInvalidInput)
	case in.PricesPath == "":
		return fmt.Errorf("%w: price table path is required", ErrInvalidInput)
	case in.OutputPath == "":
		return fmt.Errorf("%w: output path is required", ErrInvalidInput)
	case in.WorkDir == "":
		return fmt.Errorf("%w: work directory is required", ErrInvalidInput)
	}
	if info, err := os.Stat(in.WorkDir); err != nil || !info.IsDir() {
		return fmt.Errorf("%w: work directory %q is not a directory", ErrInvalidInput, in.WorkDir)
	}
	return nil
}

// Result is the outcome of one run.
type Result struct {
	// Priced counts code matches whose code is in the price table.
	Priced        int
	OutputPath    string
	TotalPages    int
	Pages         int
	Matches       []catalog.Match
	// PriceCodes counts the distinct codes of the price table.
	PriceCodes    int
	Labels        int
	PageReports   []compose.PageReport
	Font          string
	SkippedPages  []*common.SkipError
	SkippedRows   []*common.SkipError
	SkippedLabels []*common.SkipError
	Timings       *common.StageTimings
}

// Pipeline sequences the stages of a run.
type Pipeline struct {
	cfg      Config
	logger   *slog.Logger
	metrics  *Metrics
	raster   *pdf.Rasterizer
	scanner  *catalog.Scanner
	composer *compose.Compositor

	// renderer overrides the rasterizer backend; used by tests.
	renderer func(path, workDir string) (pdf.Renderer, error)
	openText func(backend, path string) (pdf.TextSource, error)
}

// Config returns the pipeline configuration.
func (p *Pipeline) Config() Config { return p.cfg }

// Run renders, scans, prices and composes one catalog. Stage failures that
// affect single pages or rows are collected in the result; anything else
// aborts the run.
func (p *Pipeline) Run(ctx context.Context, in Input, progress common.ProgressFunc) (*Result, error) {
	res, err := p.run(ctx, in, progress)
	p.metrics.observe(res, err)
	if err != nil {
		p.logger.Error("pipeline failed", "catalog", in.CatalogPath, "error", err)
		return nil, err
	}
	return res, nil
}

func (p *Pipeline) run(ctx context.Context, in Input, progress common.ProgressFunc) (*Result, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	res := &Result{OutputPath: in.OutputPath, Timings: common.NewStageTimings()}

	catalogPath, err := pdf.Prepare(in.CatalogPath, in.WorkDir, p.cfg.Credentials, p.logger)
	if err != nil {
		return nil, err
	}

	// Render
	progress.Report("Rendering catalog pages...", renderStart)
	timer := common.NewNamedTimer("render")
	raster, err := p.rasterize(ctx, catalogPath, in.WorkDir, progress.Span(renderStart, scanStart))
	timer.Stop()
	res.Timings.Record(timer)
	if err != nil {
		return nil, err
	}
	res.TotalPages = raster.Total
	res.Pages = len(raster.Pages)
	res.SkippedPages = append(res.SkippedPages, raster.Skipped...)

	// Scan
	progress.Report("Extracting product codes...", scanStart)
	timer = common.NewNamedTimer("scan")
	scan, err := p.scan(ctx, catalogPath, progress.Span(scanStart, loadStart))
	timer.Stop()
	res.Timings.Record(timer)
	if err != nil {
		return nil, err
	}
	res.Matches = scan.Matches
	res.SkippedPages = append(res.SkippedPages, scan.Skipped...)

	// Load
	progress.Report("Loading price table...", loadStart)
	timer = common.NewNamedTimer("load")
	prices, err := pricing.Load(in.PricesPath, pricing.Options{
		Markup:       p.cfg.Markup,
		HeaderMarker: p.cfg.HeaderMarker,
		SheetName:    p.cfg.Sheet,
		Logger:       p.logger,
	})
	timer.Stop()
	res.Timings.Record(timer)
	if err != nil {
		return nil, err
	}
	res.PriceCodes = prices.Len()
	res.SkippedRows = prices.Skipped

	// Compose
	progress.Report("Creating priced PDF...", composeStart)
	timer = common.NewNamedTimer("compose")
	composed, err := p.composer.Compose(ctx, raster.Pages, scan, prices, in.OutputPath,
		progress.Span(composeStart, 1.0))
	timer.Stop()
	res.Timings.Record(timer)
	if err != nil {
		return nil, err
	}
	res.PageReports = composed.Pages
	res.Labels = composed.Labels
	res.Font = composed.Font
	res.SkippedLabels = composed.Skipped

	res.Priced = CountPriced(scan.Matches, prices)
	progress.Report("Done", 1.0)

	p.logger.Info("pipeline completed",
		"catalog", in.CatalogPath,
		"output", in.OutputPath,
		"priced", res.Priced,
		"matches", len(res.Matches),
		"labels", res.Labels,
		"pages", res.Pages,
		"timings", res.Timings.String(),
	)
	return res, nil
}

func (p *Pipeline) rasterize(ctx context.Context, path, workDir string, progress common.ProgressFunc) (*pdf.RasterResult, error) {
	if p.renderer == nil {
		return p.raster.Rasterize(ctx, path, workDir, progress)
	}
	r, err := p.renderer(path, workDir)
	if err != nil {
		return nil, err
	}
	defer func() { _ = r.Close() }()
	return p.raster.RasterizeWith(ctx, r, workDir, progress)
}

func (p *Pipeline) scan(ctx context.Context, path string, progress common.ProgressFunc) (*catalog.Result, error) {
	src, err := p.openText(p.cfg.TextBackend, path)
	if fallback := pdf.FallbackTextBackend(p.cfg.TextBackend); err != nil && fallback != "" {
		p.logger.Warn("text backend failed, retrying", "backend", p.cfg.TextBackend, "fallback", fallback, "error", err)
		var ferr error
		if src, ferr = p.openText(fallback, path); ferr == nil {
			err = nil
		}
	}
	if err != nil {
		return nil, err
	}
	defer func() { _ = src.Close() }()
	return p.scanner.Scan(ctx, src, progress)
}

// CountPriced returns how many matches have a price, counting repeats.
func CountPriced(matches []catalog.Match, prices *pricing.PriceList) int {
	n := 0
	for _, m := range matches {
		if _, ok := prices.Lookup(m.Code); ok {
			n++
		}
	}
	return n
}

// VerifyOutput fails when the document at path is missing, empty or not a
// readable PDF.
func VerifyOutput(path string) error {
	if _, err := pdf.Verify(path); err != nil {
		return fmt.Errorf("%w: %v", ErrNoOutput, err)
	}
	return nil
}
