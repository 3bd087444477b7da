// Package batch prices several catalogs, one after the other, against a
// single price table.
package batch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/MeKo-Tech/pricetag/internal/common"
	"github.com/MeKo-Tech/pricetag/internal/pipeline"
)

// ErrNoCatalogs is returned when discovery finds nothing to process.
var ErrNoCatalogs = errors.New("no catalog files found")

// Runner runs one catalog; *pipeline.Pipeline implements it.
type Runner interface {
	Run(ctx context.Context, in pipeline.Input, progress common.ProgressFunc) (*pipeline.Result, error)
}

// Config holds all configuration for batch processing.
type Config struct {
	PricesPath string
	OutDir     string
	// Suffix is appended to each catalog's base name for its output file.
	Suffix string

	Recursive       bool
	IncludePatterns []string
	ExcludePatterns []string

	ContinueOnError bool
	KeepWorkDir     bool
	// WorkRoot is where per-catalog scratch directories are created.
	WorkRoot string

	// Progress, when set, returns the reporter for one catalog.
	Progress func(catalog string, index, total int) common.ProgressFunc
	Logger   *slog.Logger
}

// Item is the outcome of one catalog.
type Item struct {
	Catalog string           `json:"catalog"`
	Output  string           `json:"output"`
	Result  *pipeline.Result `json:"-"`
	Err     error            `json:"-"`
}

// Result holds the result of batch processing.
type Result struct {
	Items    []Item
	Duration time.Duration
}

// Succeeded returns the number of catalogs that produced a verified output.
func (r *Result) Succeeded() int {
	n := 0
	for _, it := range r.Items {
		if it.Err == nil {
			n++
		}
	}
	return n
}

// Failed returns the items that ended with an error.
func (r *Result) Failed() []Item {
	var out []Item
	for _, it := range r.Items {
		if it.Err != nil {
			out = append(out, it)
		}
	}
	return out
}

// Priced sums the priced match counts of successful catalogs.
func (r *Result) Priced() int {
	n := 0
	for _, it := range r.Items {
		if it.Result != nil {
			n += it.Result.Priced
		}
	}
	return n
}

// ProcessBatch discovers catalogs from args and runs each through runner.
// Without ContinueOnError the first failure stops the batch and is returned
// together with the partial result.
func ProcessBatch(ctx context.Context, runner Runner, args []string, cfg Config) (*Result, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	catalogs, err := DiscoverCatalogs(args, cfg.Recursive, cfg.IncludePatterns, cfg.ExcludePatterns)
	if err != nil {
		return nil, fmt.Errorf("failed to discover catalogs: %w", err)
	}
	if len(catalogs) == 0 {
		return nil, ErrNoCatalogs
	}
	if err := os.MkdirAll(cfg.OutDir, 0o750); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}

	start := time.Now()
	res := &Result{}
	outputs := outputPaths(catalogs, cfg.OutDir, cfg.Suffix)

	for i, cat := range catalogs {
		if err := ctx.Err(); err != nil {
			res.Duration = time.Since(start)
			return res, err
		}

		item := Item{Catalog: cat, Output: outputs[i]}
		var progress common.ProgressFunc
		if cfg.Progress != nil {
			progress = cfg.Progress(cat, i, len(catalogs))
		}
		item.Result, item.Err = processOne(ctx, runner, cfg, item, progress, logger)
		res.Items = append(res.Items, item)

		if item.Err != nil {
			logger.Error("catalog failed", "catalog", cat, "error", item.Err)
			if !cfg.ContinueOnError {
				res.Duration = time.Since(start)
				return res, fmt.Errorf("%s: %w", cat, item.Err)
			}
			continue
		}
		logger.Info("catalog priced", "catalog", cat, "output", item.Output, "priced", item.Result.Priced)
	}

	res.Duration = time.Since(start)
	return res, nil
}

func processOne(ctx context.Context, runner Runner, cfg Config, item Item, progress common.ProgressFunc,
	logger *slog.Logger,
) (*pipeline.Result, error) {
	workDir, cleanup, err := common.MakeWorkDir(cfg.WorkRoot, "pricetag-*", cfg.KeepWorkDir, logger)
	if err != nil {
		return nil, fmt.Errorf("create work directory: %w", err)
	}
	defer cleanup()

	res, err := runner.Run(ctx, pipeline.Input{
		CatalogPath: item.Catalog,
		PricesPath:  cfg.PricesPath,
		OutputPath:  item.Output,
		WorkDir:     workDir,
	}, progress)
	if err != nil {
		return nil, err
	}
	if err := pipeline.VerifyOutput(item.Output); err != nil {
		return nil, err
	}
	return res, nil
}

// outputPaths names each output <base><suffix>.pdf in outDir, numbering
// repeated base names from different directories.
func outputPaths(catalogs []string, outDir, suffix string) []string {
	used := make(map[string]int)
	out := make([]string, len(catalogs))
	for i, cat := range catalogs {
		base := strings.TrimSuffix(filepath.Base(cat), filepath.Ext(cat)) + suffix
		used[base]++
		if n := used[base]; n > 1 {
			base = fmt.Sprintf("%s_%d", base, n)
		}
		out[i] = filepath.Join(outDir, base+".pdf")
	}
	return out
}
