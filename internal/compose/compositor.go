package compose

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image/color"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"codeberg.org/go-pdf/fpdf"
	"github.com/MeKo-Tech/pricetag/internal/catalog"
	"github.com/MeKo-Tech/pricetag/internal/common"
	"github.com/MeKo-Tech/pricetag/internal/pdf"
	"github.com/MeKo-Tech/pricetag/internal/pricing"
	"github.com/disintegration/imaging"
)

var (
	// ErrAssemble wraps failures that abort building the output document.
	ErrAssemble = errors.New("cannot assemble output document")
	// ErrNoPages is returned when no page image is available.
	ErrNoPages = errors.New("no rendered pages to assemble")
)

// Mode records how the labels of a page were drawn.
type Mode string

const (
	ModeNone       Mode = "none"
	ModeSingleLine Mode = "single_line"
	ModePerLine    Mode = "per_line"
)

// Options controls band painting and label layout. Lengths are in pixels,
// which are also the output page's points.
type Options struct {
	Band               Band
	Currency           string
	FontPaths          []string
	FontSize           float64
	LineHeight         float64
	FallbackLineHeight float64
	Margin             float64
	TextColor          color.NRGBA
	// WorkDir receives page_<n>_band.png; defaults to the page image's directory.
	WorkDir string
}

// DefaultOptions returns the standard catalog layout.
func DefaultOptions() Options {
	return Options{
		Band:               Band{Height: DefaultBandHeight, Color: DefaultBandColor},
		Currency:           DefaultCurrency,
		FontPaths:          DefaultFontPaths,
		FontSize:           30,
		LineHeight:         80,
		FallbackLineHeight: 40,
		Margin:             50,
		TextColor:          color.NRGBA{R: 255, G: 255, B: 255, A: 255},
	}
}

// PageReport describes one emitted output page.
type PageReport struct {
	Index  int      `json:"index" yaml:"index"`
	Width  int      `json:"width" yaml:"width"`
	Height int      `json:"height" yaml:"height"`
	Banded bool     `json:"banded" yaml:"banded"`
	Mode   Mode     `json:"mode" yaml:"mode"`
	Labels []string `json:"labels,omitempty" yaml:"labels,omitempty"`
}

// Result summarizes an assembled document.
type Result struct {
	OutputPath string
	Pages      []PageReport
	Labels     int
	Font       string
	Skipped    []*common.SkipError
}

// Compositor paints bands, draws labels and writes the output PDF.
type Compositor struct {
	opts   Options
	logger *slog.Logger
}

// New creates a compositor. A nil logger uses slog.Default().
func New(opts Options, logger *slog.Logger) *Compositor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Compositor{opts: opts, logger: logger}
}

// Compose emits one output page per page image in ascending index order and
// writes the document to output. The cover (index 0) is copied unchanged.
// scan may be nil, which leaves every page without labels.
func (c *Compositor) Compose(ctx context.Context, pages []pdf.PageImage, scan *catalog.Result,
	prices *pricing.PriceList, output string, progress common.ProgressFunc,
) (*Result, error) {
	if len(pages) == 0 {
		return nil, ErrNoPages
	}

	ordered := make([]pdf.PageImage, len(pages))
	copy(ordered, pages)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Index < ordered[j].Index })

	var byPage map[int][]catalog.Match
	if scan != nil {
		byPage = scan.ByPage()
	}

	doc := fpdf.New("P", "pt", "A4", "")
	doc.SetAutoPageBreak(false, 0)
	doc.SetMargins(0, 0, 0)
	font := ResolveFont(doc, c.opts.FontPaths, c.logger)
	doc.SetFont(font.Family, "", c.opts.FontSize)

	res := &Result{OutputPath: output, Font: font.Family}
	if !font.Builtin() {
		res.Font = font.Path
	}

	total := len(ordered)
	for i, page := range ordered {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		progress.Report(fmt.Sprintf("Creating page %d of %d...", i+1, total), common.Step(i, total))

		report, skips, err := c.composePage(doc, font, page, byPage[page.Index], prices)
		if err != nil {
			return nil, fmt.Errorf("%w: page %d: %v", ErrAssemble, page.Index+1, err)
		}
		res.Pages = append(res.Pages, report)
		res.Labels += len(report.Labels)
		res.Skipped = append(res.Skipped, skips...)
	}

	if err := doc.OutputFileAndClose(output); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAssemble, err)
	}

	common.LogSkips(c.logger, res.Skipped)
	c.logger.Info("output assembled", "path", output, "pages", len(res.Pages), "labels", res.Labels, "font", res.Font)
	return res, nil
}

func (c *Compositor) composePage(doc *fpdf.Fpdf, font Font, page pdf.PageImage, matches []catalog.Match,
	prices *pricing.PriceList,
) (PageReport, []*common.SkipError, error) {
	src, err := imaging.Open(page.Path)
	if err != nil {
		return PageReport{}, nil, err
	}
	b := src.Bounds()
	report := PageReport{Index: page.Index, Width: b.Dx(), Height: b.Dy(), Mode: ModeNone}

	imgPath := page.Path
	if page.Index > 0 {
		banded := c.opts.Band.Paint(src)
		imgPath = filepath.Join(c.workDir(page), fmt.Sprintf("page_%d_band.png", page.Index))
		if err := imaging.Save(banded, imgPath); err != nil {
			return PageReport{}, nil, err
		}
		report.Banded = true
	}

	data, err := os.ReadFile(imgPath) //nolint:gosec // G304: scratch file written above
	if err != nil {
		return PageReport{}, nil, err
	}

	w, h := float64(report.Width), float64(report.Height)
	doc.AddPageFormat("P", fpdf.SizeType{Wd: w, Ht: h})
	name := fmt.Sprintf("page_%d", page.Index)
	opts := fpdf.ImageOptions{ReadDpi: false, ImageType: "PNG"}
	doc.RegisterImageOptionsReader(name, opts, bytes.NewReader(data))
	doc.ImageOptions(name, 0, 0, w, h, false, opts, 0, "")
	if doc.Err() {
		return PageReport{}, nil, doc.Error()
	}

	if page.Index == 0 {
		return report, nil, nil
	}

	labels, skips := PageLabels(matches, prices, c.opts.Currency)
	if len(labels) == 0 {
		return report, skips, nil
	}

	mode, drawn, lineSkips := c.drawLabels(doc, font, page.Index, labels, report.Width, report.Height)
	report.Mode = mode
	report.Labels = drawn
	return report, append(skips, lineSkips...), nil
}

// drawLabels writes the joined line centered in the band, or one label per
// line when the joined line does not fit or fails to draw.
func (c *Compositor) drawLabels(doc *fpdf.Fpdf, font Font, index int, labels []string, width, height int,
) (Mode, []string, []*common.SkipError) {
	o := c.opts
	doc.SetTextColor(int(o.TextColor.R), int(o.TextColor.G), int(o.TextColor.B))
	avail := float64(width) - 2*o.Margin
	area := o.Band
	if area.Height <= 0 {
		area.Height = DefaultBandHeight
	}
	bandTop := float64(area.Top(height))
	bandMid := (bandTop + float64(height)) / 2

	line := JoinLabels(labels)
	encoded := font.Encode(line)
	if doc.GetStringWidth(encoded) <= avail {
		doc.SetXY(o.Margin, bandMid-o.LineHeight/2)
		doc.CellFormat(avail, o.LineHeight, encoded, "", 0, "LM", false, 0, "")
		if !doc.Err() {
			return ModeSingleLine, labels, nil
		}
		c.logger.Warn("single-line label draw failed", "page", index+1, "error", doc.Error())
		doc.ClearError()
	} else {
		c.logger.Debug("label line overflows band", "page", index+1, "width", doc.GetStringWidth(encoded), "available", avail)
	}

	var (
		drawn []string
		skips []*common.SkipError
	)
	parts := SplitLabels(line)
	top := bandMid - float64(len(parts))*o.FallbackLineHeight/2
	if top < bandTop {
		top = bandTop
	}
	for i, part := range parts {
		doc.SetXY(o.Margin, top+float64(i)*o.FallbackLineHeight)
		doc.CellFormat(avail, o.FallbackLineHeight, font.Encode(part), "", 0, "LM", false, 0, "")
		if doc.Err() {
			skips = append(skips, common.Skip("compose", fmt.Sprintf("page %d label %q", index+1, part), doc.Error()))
			doc.ClearError()
			continue
		}
		drawn = append(drawn, part)
	}
	return ModePerLine, drawn, skips
}

func (c *Compositor) workDir(page pdf.PageImage) string {
	if c.opts.WorkDir != "" {
		return c.opts.WorkDir
	}
	return filepath.Dir(page.Path)
}
