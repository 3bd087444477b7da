package pdf

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"log/slog"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/MeKo-Tech/pricetag/internal/common"
	"github.com/disintegration/imaging"
	"github.com/gen2brain/go-fitz"
)

// Render backends.
const (
	RenderBackendFitz    = "fitz"
	RenderBackendPoppler = "poppler"
)

const (
	// DefaultScale is the linear upscale applied over the native resolution.
	DefaultScale = 2.0
	nativeDPI    = 72.0
)

// PageImage is one rendered catalog page. Index 0 is the cover.
type PageImage struct {
	Index  int    `json:"index" yaml:"index"`
	Path   string `json:"path" yaml:"path"`
	Width  int    `json:"width" yaml:"width"`
	Height int    `json:"height" yaml:"height"`
}

// PageImageName is the file name of the rendered page index.
func PageImageName(index int) string {
	return fmt.Sprintf("page_%d.png", index)
}

// Renderer rasterizes pages of one open document.
type Renderer interface {
	NumPages() int
	RenderPage(ctx context.Context, index int, dpi float64) (image.Image, error)
	Close() error
}

// OpenRenderer opens path with the named backend. workDir receives any
// intermediate files the backend needs.
func OpenRenderer(backend, path, workDir string) (Renderer, error) {
	switch backend {
	case "", RenderBackendFitz:
		return OpenFitzRenderer(path)
	case RenderBackendPoppler:
		return OpenPopplerRenderer(path, workDir)
	default:
		return nil, fmt.Errorf("%w: render backend %q", ErrUnknownBackend, backend)
	}
}

// FitzRenderer renders pages with MuPDF.
type FitzRenderer struct {
	doc *fitz.Document
}

// OpenFitzRenderer opens path with MuPDF.
func OpenFitzRenderer(path string) (*FitzRenderer, error) {
	doc, err := fitz.New(path)
	if err != nil {
		return nil, fmt.Errorf("%w %q: %v", ErrOpenDocument, path, err)
	}
	return &FitzRenderer{doc: doc}, nil
}

func (r *FitzRenderer) NumPages() int { return r.doc.NumPage() }

func (r *FitzRenderer) RenderPage(_ context.Context, index int, dpi float64) (image.Image, error) {
	img, err := r.doc.ImageDPI(index, dpi)
	if err != nil {
		return nil, err
	}
	return img, nil
}

func (r *FitzRenderer) Close() error { return r.doc.Close() }

// PopplerRenderer renders pages by running pdftoppm once per page.
type PopplerRenderer struct {
	path    string
	workDir string
	pages   int
	bin     string
}

// OpenPopplerRenderer checks that pdftoppm is installed and counts the pages of path.
func OpenPopplerRenderer(path, workDir string) (*PopplerRenderer, error) {
	bin, err := exec.LookPath("pdftoppm")
	if err != nil {
		return nil, fmt.Errorf("poppler backend: %w", err)
	}
	pages, err := PageCount(path)
	if err != nil {
		return nil, err
	}
	return &PopplerRenderer{path: path, workDir: workDir, pages: pages, bin: bin}, nil
}

func (r *PopplerRenderer) NumPages() int { return r.pages }

func (r *PopplerRenderer) RenderPage(ctx context.Context, index int, dpi float64) (image.Image, error) {
	page := strconv.Itoa(index + 1)
	prefix := filepath.Join(r.workDir, fmt.Sprintf("raw_%d", index))
	args := []string{
		"-png",
		"-r", strconv.Itoa(int(math.Round(dpi))),
		"-f", page,
		"-l", page,
		"-singlefile",
		r.path,
		prefix,
	}
	cmd := exec.CommandContext(ctx, r.bin, args...) //nolint:gosec // G204: fixed binary, argv only
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("pdftoppm failed on page %s: %w: %s", page, err, strings.TrimSpace(stderr.String()))
	}

	out := prefix + ".png"
	defer func() { _ = os.Remove(out) }()
	return imaging.Open(out)
}

func (r *PopplerRenderer) Close() error { return nil }

// RasterResult is the outcome of rasterizing a document.
type RasterResult struct {
	Pages   []PageImage
	Total   int
	Skipped []*common.SkipError
}

// Rasterizer renders every page of a catalog to PNG files.
type Rasterizer struct {
	Backend string
	Scale   float64
	Logger  *slog.Logger
}

// NewRasterizer creates a rasterizer with the given backend and the default scale.
func NewRasterizer(backend string, logger *slog.Logger) *Rasterizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Rasterizer{Backend: backend, Scale: DefaultScale, Logger: logger}
}

// Rasterize writes page_<n>.png into workDir for every page that renders.
// Failing to open the document is fatal; a failing page is skipped.
func (r *Rasterizer) Rasterize(ctx context.Context, path, workDir string, progress common.ProgressFunc) (*RasterResult, error) {
	renderer, err := OpenRenderer(r.Backend, path, workDir)
	if err != nil {
		return nil, err
	}
	defer func() { _ = renderer.Close() }()

	return r.RasterizeWith(ctx, renderer, workDir, progress)
}

// RasterizeWith renders all pages of an already opened renderer.
func (r *Rasterizer) RasterizeWith(ctx context.Context, renderer Renderer, workDir string, progress common.ProgressFunc) (*RasterResult, error) {
	logger := r.Logger
	if logger == nil {
		logger = slog.Default()
	}
	scale := r.Scale
	if scale <= 0 {
		scale = DefaultScale
	}
	dpi := nativeDPI * scale

	total := renderer.NumPages()
	outcomes := make([]common.Outcome[PageImage], 0, total)
	for i := 0; i < total; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		progress.Report(fmt.Sprintf("Rendering page %d of %d...", i+1, total), common.Step(i, total))
		outcomes = append(outcomes, renderOne(ctx, renderer, i, dpi, workDir))
	}

	pages, skips := common.Partition(outcomes)
	common.LogSkips(logger, skips)
	logger.Info("catalog rasterized", "pages", total, "rendered", len(pages), "skipped", len(skips), "dpi", dpi)
	return &RasterResult{Pages: pages, Total: total, Skipped: skips}, nil
}

func renderOne(ctx context.Context, renderer Renderer, index int, dpi float64, workDir string) (o common.Outcome[PageImage]) {
	item := fmt.Sprintf("page %d", index+1)
	defer func() {
		if rec := recover(); rec != nil {
			o = common.Skipped[PageImage](common.Skip("render", item, fmt.Errorf("renderer panicked: %v", rec)))
		}
	}()

	img, err := renderer.RenderPage(ctx, index, dpi)
	if err != nil {
		return common.Skipped[PageImage](common.Skip("render", item, err))
	}

	path := filepath.Join(workDir, PageImageName(index))
	if err := imaging.Save(img, path); err != nil {
		return common.Skipped[PageImage](common.Skip("render", item, err))
	}
	b := img.Bounds()
	return common.Ok(PageImage{Index: index, Path: path, Width: b.Dx(), Height: b.Dy()})
}
