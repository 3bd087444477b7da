package cmd

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/MeKo-Tech/pricetag/internal/batch"
	"github.com/MeKo-Tech/pricetag/internal/common"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

// batchCmd prices several catalogs against one price table.
var batchCmd = &cobra.Command{
	Use:   "batch [dirs or files...]",
	Short: "Price every catalog PDF in the given files and directories",
	Long: `Price several catalogs, one after the other, against a single price table.
Directories are scanned for *.pdf files; explicit files are always included.
Each output is written to --out-dir as <name>_precificado.pdf.

Examples:
  pricetag batch catalogos/ --prices precos.xlsx --out-dir precificados
  pricetag batch catalogos/ --prices precos.xlsx --out-dir out --recursive --exclude 'rascunho*'
  pricetag batch a.pdf b.pdf --prices precos.csv --out-dir out --report json`,
	Args:         cobra.MinimumNArgs(1),
	SilenceUsage: true,
	RunE:         runBatchCommand,
}

func init() {
	rootCmd.AddCommand(batchCmd)

	addPricingFlags(batchCmd)
	batchCmd.Flags().String("out-dir", "", "directory receiving the priced catalogs")
	batchCmd.Flags().Bool("recursive", false, "scan directories recursively")
	batchCmd.Flags().StringSlice("include", nil, "file patterns to include when scanning directories (default *.pdf)")
	batchCmd.Flags().StringSlice("exclude", nil, "file patterns to exclude when scanning directories")
	batchCmd.Flags().Bool("continue-on-error", true, "keep going when a catalog fails")
	batchCmd.Flags().String("suffix", "", "suffix appended to output file names (default _precificado)")
}

// configToBatchConfig maps the resolved configuration and batch flags to batch.Config.
func configToBatchConfig(cmd *cobra.Command, cfgSuffix string, recursive, continueOnError, keep bool) (batch.Config, error) {
	f := cmd.Flags()
	bc := batch.Config{
		Suffix:          cfgSuffix,
		Recursive:       recursive,
		ContinueOnError: continueOnError,
		KeepWorkDir:     keep,
		Logger:          slog.Default(),
	}
	bc.PricesPath, _ = f.GetString("prices")
	bc.OutDir, _ = f.GetString("out-dir")
	bc.WorkRoot, _ = f.GetString("work-dir")
	bc.IncludePatterns, _ = f.GetStringSlice("include")
	bc.ExcludePatterns, _ = f.GetStringSlice("exclude")
	if f.Changed("recursive") {
		bc.Recursive, _ = f.GetBool("recursive")
	}
	if f.Changed("continue-on-error") {
		bc.ContinueOnError, _ = f.GetBool("continue-on-error")
	}
	if f.Changed("suffix") {
		bc.Suffix, _ = f.GetString("suffix")
	}

	if bc.PricesPath == "" {
		return bc, errors.New("--prices is required")
	}
	if bc.OutDir == "" {
		return bc, errors.New("--out-dir is required")
	}
	return bc, nil
}

func runBatchCommand(cmd *cobra.Command, args []string) error {
	cfg, err := resolvedConfig(cmd)
	if err != nil {
		return err
	}
	bc, err := configToBatchConfig(cmd, cfg.Batch.Suffix, cfg.Batch.Recursive, cfg.Batch.ContinueOnError, cfg.Output.KeepWorkDir)
	if err != nil {
		return err
	}
	bc.Progress = func(catalog string, index, total int) common.ProgressFunc {
		return progressFor(cmd, fmt.Sprintf("[%d/%d] %s ", index+1, total, filepath.Base(catalog)))
	}

	reg := prometheus.NewRegistry()
	p, err := buildPipeline(cfg, reg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	res, batchErr := batch.ProcessBatch(ctx, p, args, bc)
	if err := writeMetrics(cfg.Output.MetricsFile, reg); err != nil {
		slog.Warn("failed to write metrics", "path", cfg.Output.MetricsFile, "error", err)
	}
	if res != nil {
		text, err := res.FormatResults(cfg.Output.Report)
		if err != nil {
			return err
		}
		_, _ = fmt.Fprint(cmd.OutOrStdout(), text)
	}
	if batchErr != nil {
		return batchErr
	}
	if failed := res.Failed(); len(failed) > 0 {
		return fmt.Errorf("%d of %d catalogs failed", len(failed), len(res.Items))
	}
	return nil
}
