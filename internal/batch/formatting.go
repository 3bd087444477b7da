package batch

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/MeKo-Tech/pricetag/internal/pipeline"
	"gopkg.in/yaml.v3"
)

type itemSummary struct {
	Catalog string `json:"catalog" yaml:"catalog"`
	Output  string `json:"output,omitempty" yaml:"output,omitempty"`
	Status  string `json:"status" yaml:"status"`
	Priced  int    `json:"priced" yaml:"priced"`
	Pages   int    `json:"pages" yaml:"pages"`
	Labels  int    `json:"labels" yaml:"labels"`
	Skipped int    `json:"skipped" yaml:"skipped"`
	Error   string `json:"error,omitempty" yaml:"error,omitempty"`
}

type batchSummary struct {
	Catalogs   []itemSummary `json:"catalogs" yaml:"catalogs"`
	Succeeded  int           `json:"succeeded" yaml:"succeeded"`
	Failed     int           `json:"failed" yaml:"failed"`
	Priced     int           `json:"priced" yaml:"priced"`
	DurationMs int64         `json:"duration_ms" yaml:"duration_ms"`
}

func (r *Result) summary() batchSummary {
	s := batchSummary{
		Succeeded:  r.Succeeded(),
		Failed:     len(r.Failed()),
		Priced:     r.Priced(),
		DurationMs: r.Duration.Milliseconds(),
	}
	for _, it := range r.Items {
		is := itemSummary{Catalog: it.Catalog, Status: "ok"}
		if it.Err != nil {
			is.Status = "failed"
			is.Error = it.Err.Error()
		} else {
			is.Output = it.Output
		}
		if res := it.Result; res != nil {
			is.Priced = res.Priced
			is.Pages = res.Pages
			is.Labels = res.Labels
			is.Skipped = len(res.SkippedPages) + len(res.SkippedRows) + len(res.SkippedLabels)
		}
		s.Catalogs = append(s.Catalogs, is)
	}
	return s
}

// FormatResults formats the batch results in the given format.
func (r *Result) FormatResults(format string) (string, error) {
	switch strings.ToLower(format) {
	case pipeline.FormatJSON:
		bts, err := json.MarshalIndent(r.summary(), "", "  ")
		return string(bts) + "\n", err
	case pipeline.FormatYAML:
		bts, err := yaml.Marshal(r.summary())
		return string(bts), err
	case pipeline.FormatCSV:
		return r.formatCSV()
	case pipeline.FormatText, "":
		return r.formatText(), nil
	default:
		return "", fmt.Errorf("%w: %q", pipeline.ErrUnknownFormat, format)
	}
}

func (r *Result) formatCSV() (string, error) {
	var output strings.Builder
	writer := csv.NewWriter(&output)
	rows := [][]string{{"catalog", "output", "status", "priced", "pages", "labels", "skipped", "error"}}
	for _, it := range r.summary().Catalogs {
		rows = append(rows, []string{
			it.Catalog, it.Output, it.Status,
			strconv.Itoa(it.Priced), strconv.Itoa(it.Pages), strconv.Itoa(it.Labels), strconv.Itoa(it.Skipped),
			it.Error,
		})
	}
	for _, row := range rows {
		if err := writer.Write(row); err != nil {
			return "", err
		}
	}
	writer.Flush()
	return output.String(), writer.Error()
}

func (r *Result) formatText() string {
	s := r.summary()
	var output strings.Builder
	for _, it := range s.Catalogs {
		if it.Error != "" {
			fmt.Fprintf(&output, "FAIL %s: %s\n", it.Catalog, it.Error)
			continue
		}
		fmt.Fprintf(&output, "OK   %s -> %s (%d priced, %d labels, %d pages)\n",
			it.Catalog, it.Output, it.Priced, it.Labels, it.Pages)
	}
	fmt.Fprintf(&output, "\n%d succeeded, %d failed, %d priced in %dms\n", s.Succeeded, s.Failed, s.Priced, s.DurationMs)
	return output.String()
}
