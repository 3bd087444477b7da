package cmd

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/MeKo-Tech/pricetag/internal/common"
	"github.com/MeKo-Tech/pricetag/internal/config"
	"github.com/MeKo-Tech/pricetag/internal/pipeline"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

// runCmd prices a single catalog.
var runCmd = &cobra.Command{
	Use:   "run [catalog.pdf]",
	Short: "Price one catalog PDF",
	Long: `Render every page of the catalog, find the product codes in its text,
look them up in the price table and write the priced catalog.

The price table is an .xlsx, .xlsm or .xls workbook or a .csv file whose
first three columns are reference, size and cost.

Examples:
  pricetag run catalogo.pdf --prices precos.xlsx
  pricetag run --catalog catalogo.pdf --prices precos.csv --output saida.pdf --report json
  pricetag run catalogo.pdf --prices precos.xlsx --band-color 41,98,255 --band-height 250`,
	Args:         cobra.MaximumNArgs(1),
	SilenceUsage: true,
	RunE:         runCatalog,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringP("catalog", "c", "", "catalog PDF (alternative to the positional argument)")
	addPricingFlags(runCmd)
	runCmd.Flags().StringP("output", "o", "", "output PDF (default: <catalog>_precificado.pdf next to the catalog)")
	runCmd.Flags().String("report-file", "", "write the run report to this file instead of stdout")
}

// addPricingFlags registers the flags shared by run and batch.
func addPricingFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("prices", "p", "", "price table (.xlsx, .xlsm, .xls or .csv)")
	cmd.Flags().Float64("markup", 0, "cost multiplier (default from config: 2.0)")
	cmd.Flags().String("band-color", "", "band color: gray|blue|green|red|black|purple, cinza|azul|..., #rrggbb or r,g,b")
	cmd.Flags().Int("band-height", 0, "band height in pixels of the rendered page (0 disables the band)")
	cmd.Flags().String("text-color", "", "label text color")
	cmd.Flags().String("currency", "", "currency symbol printed before prices")
	cmd.Flags().StringSlice("font", nil, "TrueType font files tried for labels, in order")
	cmd.Flags().String("render-backend", "", "page rasterizer (fitz, poppler)")
	cmd.Flags().Float64("scale", 0, "render scale relative to 72 dpi")
	cmd.Flags().String("text-backend", "", "page text extractor (vector, fitz)")
	cmd.Flags().String("sheet", "", "workbook sheet to read (default: first sheet)")
	cmd.Flags().String("header-marker", "", "cost column title that marks repeated header rows")
	cmd.Flags().String("password", "", "user password for encrypted catalogs")
	cmd.Flags().String("owner-password", "", "owner password for encrypted catalogs")
	cmd.Flags().StringP("report", "r", "", "report format (text, json, yaml, csv)")
	cmd.Flags().String("metrics-file", "", "write prometheus metrics to this file")
	cmd.Flags().Bool("keep-work-dir", false, "keep the scratch directory with the rendered pages")
	cmd.Flags().String("work-dir", "", "parent directory for scratch files (default: system temp dir)")
	cmd.Flags().BoolP("quiet", "q", false, "do not draw the progress bar")
}

// applyPricingFlags overrides config values with the flags the user set.
func applyPricingFlags(cmd *cobra.Command, cfg *config.Config) {
	f := cmd.Flags()
	if f.Changed("markup") {
		cfg.Markup, _ = f.GetFloat64("markup")
	}
	if f.Changed("band-color") {
		cfg.Compose.BandColor, _ = f.GetString("band-color")
	}
	if f.Changed("band-height") {
		cfg.Compose.BandHeight, _ = f.GetInt("band-height")
	}
	if f.Changed("text-color") {
		cfg.Compose.TextColor, _ = f.GetString("text-color")
	}
	if f.Changed("currency") {
		cfg.Compose.Currency, _ = f.GetString("currency")
	}
	if f.Changed("font") {
		cfg.Compose.Fonts, _ = f.GetStringSlice("font")
	}
	if f.Changed("render-backend") {
		cfg.Render.Backend, _ = f.GetString("render-backend")
	}
	if f.Changed("scale") {
		cfg.Render.Scale, _ = f.GetFloat64("scale")
	}
	if f.Changed("text-backend") {
		cfg.Scan.TextBackend, _ = f.GetString("text-backend")
	}
	if f.Changed("sheet") {
		cfg.Prices.Sheet, _ = f.GetString("sheet")
	}
	if f.Changed("header-marker") {
		cfg.Prices.HeaderMarker, _ = f.GetString("header-marker")
	}
	if f.Changed("password") {
		cfg.PDF.UserPassword, _ = f.GetString("password")
	}
	if f.Changed("owner-password") {
		cfg.PDF.OwnerPassword, _ = f.GetString("owner-password")
	}
	if f.Changed("report") {
		cfg.Output.Report, _ = f.GetString("report")
	}
	if f.Changed("metrics-file") {
		cfg.Output.MetricsFile, _ = f.GetString("metrics-file")
	}
	if f.Changed("keep-work-dir") {
		cfg.Output.KeepWorkDir, _ = f.GetBool("keep-work-dir")
	}
}

// resolvedConfig returns the loaded config with flag overrides, validated.
func resolvedConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := GetConfig()
	if err != nil {
		return nil, err
	}
	applyPricingFlags(cmd, cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	setupLogging(cfg, logWriter(cmd, cfg))
	return cfg, nil
}

// logWriter returns stderr when a structured report is printed on stdout,
// so the report stays parseable. Otherwise logs go to stdout.
func logWriter(cmd *cobra.Command, cfg *config.Config) io.Writer {
	reportFile, _ := cmd.Flags().GetString("report-file")
	if reportFile == "" && cfg.Output.Report != pipeline.FormatText {
		return cmd.ErrOrStderr()
	}
	return os.Stdout
}

// buildPipeline assembles a pipeline for cfg with metrics on reg.
func buildPipeline(cfg *config.Config, reg prometheus.Registerer) (*pipeline.Pipeline, error) {
	pcfg, err := cfg.ToPipelineConfig()
	if err != nil {
		return nil, err
	}
	return pipeline.NewBuilder().
		WithConfig(pcfg).
		WithLogger(slog.Default()).
		WithMetrics(reg).
		Build()
}

// barInterval is the minimum time between two progress bar redraws.
const barInterval = 100 * time.Millisecond

// progressFor returns the stage reporter: a bar on stderr unless quiet, plus
// debug log entries.
func progressFor(cmd *cobra.Command, prefix string) common.ProgressFunc {
	quiet, _ := cmd.Flags().GetBool("quiet")
	logged := pipeline.NewLogProgress(slog.Default(), slog.LevelDebug).Func()
	if quiet {
		return logged
	}
	bar := pipeline.NewConsoleProgress(cmd.ErrOrStderr(), prefix).WithUpdateInterval(0).Func()
	return pipeline.MultiProgress(pipeline.ThrottledProgress(bar, barInterval), logged)
}

func runCatalog(cmd *cobra.Command, args []string) error {
	cfg, err := resolvedConfig(cmd)
	if err != nil {
		return err
	}

	catalogPath, _ := cmd.Flags().GetString("catalog")
	if len(args) == 1 {
		if catalogPath != "" && catalogPath != args[0] {
			return errors.New("catalog given both as argument and --catalog")
		}
		catalogPath = args[0]
	}
	pricesPath, _ := cmd.Flags().GetString("prices")
	if catalogPath == "" || pricesPath == "" {
		return errors.New("a catalog and --prices are required")
	}
	output, _ := cmd.Flags().GetString("output")
	if output == "" {
		output = defaultOutputPath(catalogPath, cfg.Batch.Suffix)
	}

	reg := prometheus.NewRegistry()
	p, err := buildPipeline(cfg, reg)
	if err != nil {
		return err
	}

	workRoot, _ := cmd.Flags().GetString("work-dir")
	workDir, cleanup, err := common.MakeWorkDir(workRoot, "pricetag-*", cfg.Output.KeepWorkDir, slog.Default())
	if err != nil {
		return fmt.Errorf("create work directory: %w", err)
	}
	defer cleanup()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	res, runErr := p.Run(ctx, pipeline.Input{
		CatalogPath: catalogPath,
		PricesPath:  pricesPath,
		OutputPath:  output,
		WorkDir:     workDir,
	}, progressFor(cmd, ""))
	if runErr == nil {
		runErr = pipeline.VerifyOutput(output)
	}
	if err := writeMetrics(cfg.Output.MetricsFile, reg); err != nil {
		slog.Warn("failed to write metrics", "path", cfg.Output.MetricsFile, "error", err)
	}
	if runErr != nil {
		return runErr
	}

	text, err := pipeline.NewReport(catalogPath, res).Format(cfg.Output.Report)
	if err != nil {
		return err
	}
	reportFile, _ := cmd.Flags().GetString("report-file")
	return writeOutput(cmd.OutOrStdout(), reportFile, text)
}

// defaultOutputPath places <name><suffix>.pdf next to the catalog.
func defaultOutputPath(catalogPath, suffix string) string {
	if suffix == "" {
		suffix = "_precificado"
	}
	ext := filepath.Ext(catalogPath)
	return strings.TrimSuffix(catalogPath, ext) + suffix + ".pdf"
}

func writeMetrics(path string, reg *prometheus.Registry) error {
	if path == "" {
		return nil
	}
	return pipeline.WriteMetrics(path, reg)
}

// writeOutput writes text to file, or to w when file is empty.
func writeOutput(w io.Writer, file, text string) error {
	if file == "" {
		_, err := io.WriteString(w, text)
		return err
	}
	if err := os.WriteFile(file, []byte(text), 0o600); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}
