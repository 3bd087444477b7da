package pipeline

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/MeKo-Tech/pricetag/internal/catalog"
	"github.com/MeKo-Tech/pricetag/internal/common"
	"github.com/MeKo-Tech/pricetag/internal/compose"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

// Report formats.
const (
	FormatText = "text"
	FormatJSON = "json"
	FormatYAML = "yaml"
	FormatCSV  = "csv"
)

// ErrUnknownFormat is returned for an unsupported report format.
var ErrUnknownFormat = errors.New("unknown report format")

// Report is the serializable summary of a run.
type Report struct {
	Catalog    string               `json:"catalog" yaml:"catalog"`
	Output     string               `json:"output" yaml:"output"`
	Priced     int                  `json:"priced" yaml:"priced"`
	TotalPages int                  `json:"total_pages" yaml:"total_pages"`
	Pages      int                  `json:"pages" yaml:"pages"`
	PriceCodes int                  `json:"price_codes" yaml:"price_codes"`
	Labels     int                  `json:"labels" yaml:"labels"`
	Font       string               `json:"font" yaml:"font"`
	Matches    []catalog.Match      `json:"matches,omitempty" yaml:"matches,omitempty"`
	PageReport []compose.PageReport `json:"page_reports,omitempty" yaml:"page_reports,omitempty"`
	Skipped    []SkipEntry          `json:"skipped,omitempty" yaml:"skipped,omitempty"`
	TimingsMs  map[string]int64     `json:"timings_ms,omitempty" yaml:"timings_ms,omitempty"`
}

// SkipEntry is a reported per-item failure.
type SkipEntry struct {
	Stage string `json:"stage" yaml:"stage"`
	Item  string `json:"item" yaml:"item"`
	Error string `json:"error" yaml:"error"`
}

// NewReport builds the report of a finished run.
func NewReport(catalogPath string, res *Result) *Report {
	r := &Report{
		Catalog:    catalogPath,
		Output:     res.OutputPath,
		Priced:     res.Priced,
		TotalPages: res.TotalPages,
		Pages:      res.Pages,
		PriceCodes: res.PriceCodes,
		Labels:     res.Labels,
		Font:       res.Font,
		Matches:    res.Matches,
		PageReport: res.PageReports,
	}
	if res.Timings != nil {
		r.TimingsMs = res.Timings.Millis()
	}
	for _, group := range [][]*common.SkipError{res.SkippedPages, res.SkippedRows, res.SkippedLabels} {
		for _, s := range group {
			r.Skipped = append(r.Skipped, SkipEntry{Stage: s.Stage, Item: s.Item, Error: s.Err.Error()})
		}
	}
	return r
}

// Format renders the report in the given format.
func (r *Report) Format(format string) (string, error) {
	switch strings.ToLower(format) {
	case FormatJSON:
		bts, err := json.MarshalIndent(r, "", "  ")
		return string(bts) + "\n", err
	case FormatYAML:
		bts, err := yaml.Marshal(r)
		return string(bts), err
	case FormatCSV:
		return r.formatCSV()
	case FormatText, "":
		return r.formatText(), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

func (r *Report) formatText() string {
	caser := cases.Title(language.English)
	var b strings.Builder
	fmt.Fprintf(&b, "Catalog:  %s\n", r.Catalog)
	fmt.Fprintf(&b, "Output:   %s\n", r.Output)
	fmt.Fprintf(&b, "Pages:    %d of %d rendered\n", r.Pages, r.TotalPages)
	fmt.Fprintf(&b, "Prices:   %d codes\n", r.PriceCodes)
	fmt.Fprintf(&b, "Priced:   %d of %d matches\n", r.Priced, len(r.Matches))
	fmt.Fprintf(&b, "Labels:   %d\n", r.Labels)
	if r.Font != "" {
		fmt.Fprintf(&b, "Font:     %s\n", r.Font)
	}

	for _, p := range r.PageReport {
		if len(p.Labels) == 0 {
			continue
		}
		mode := caser.String(strings.ReplaceAll(string(p.Mode), "_", " "))
		fmt.Fprintf(&b, "\n# Page %d (%s)\n", p.Index+1, mode)
		for _, l := range p.Labels {
			fmt.Fprintf(&b, "  %s\n", l)
		}
	}

	if len(r.Skipped) > 0 {
		b.WriteString("\nSkipped:\n")
		for _, s := range r.Skipped {
			fmt.Fprintf(&b, "  [%s] %s: %s\n", caser.String(s.Stage), s.Item, s.Error)
		}
	}

	if len(r.TimingsMs) > 0 {
		stages := make([]string, 0, len(r.TimingsMs))
		for s := range r.TimingsMs {
			stages = append(stages, s)
		}
		sort.Strings(stages)
		parts := make([]string, len(stages))
		for i, s := range stages {
			parts[i] = fmt.Sprintf("%s=%dms", s, r.TimingsMs[s])
		}
		fmt.Fprintf(&b, "\nTimings:  %s\n", strings.Join(parts, " "))
	}
	return b.String()
}

// formatCSV lists one row per code match.
func (r *Report) formatCSV() (string, error) {
	var out strings.Builder
	w := csv.NewWriter(&out)
	if err := w.Write([]string{"page", "code", "text", "category", "fallback"}); err != nil {
		return "", err
	}
	for _, m := range r.Matches {
		row := []string{strconv.Itoa(m.Page + 1), m.Code, m.Text, m.Category, strconv.FormatBool(m.Fallback)}
		if err := w.Write(row); err != nil {
			return "", err
		}
	}
	w.Flush()
	return out.String(), w.Error()
}
