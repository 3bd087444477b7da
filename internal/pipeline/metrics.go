package pipeline

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics are the pipeline's prometheus collectors. They live on the
// registerer passed to NewMetrics so that runs in one process can share or
// isolate them.
type Metrics struct {
	runs         *prometheus.CounterVec
	runDuration  prometheus.Histogram
	stageSeconds *prometheus.HistogramVec
	pages        *prometheus.CounterVec
	matches      *prometheus.CounterVec
	priceCodes   prometheus.Counter
	skippedRows  prometheus.Counter
	labels       *prometheus.CounterVec
	priced       prometheus.Counter
}

// NewMetrics registers the pipeline collectors with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		runs: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pricetag_runs_total",
				Help: "Total number of pipeline runs",
			},
			[]string{"status"}, // success, failure
		),
		runDuration: f.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "pricetag_run_duration_seconds",
				Help:    "Pipeline run duration in seconds",
				Buckets: []float64{.5, 1, 2.5, 5, 10, 25, 50, 100, 250},
			},
		),
		stageSeconds: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "pricetag_stage_duration_seconds",
				Help:    "Stage duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"stage"}, // render, scan, load, compose
		),
		pages: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pricetag_pages_total",
				Help: "Catalog pages by outcome",
			},
			[]string{"outcome"}, // rendered, render_skipped, scan_skipped
		),
		matches: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pricetag_code_matches_total",
				Help: "Product code matches by pattern kind",
			},
			[]string{"kind"}, // category, fallback
		),
		priceCodes: f.NewCounter(
			prometheus.CounterOpts{
				Name: "pricetag_price_codes_total",
				Help: "Distinct product codes loaded from price tables",
			},
		),
		skippedRows: f.NewCounter(
			prometheus.CounterOpts{
				Name: "pricetag_price_rows_skipped_total",
				Help: "Price table rows skipped for an invalid code or cost",
			},
		),
		labels: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pricetag_labels_total",
				Help: "Price labels drawn by layout mode",
			},
			[]string{"mode"}, // single_line, per_line
		),
		priced: f.NewCounter(
			prometheus.CounterOpts{
				Name: "pricetag_priced_matches_total",
				Help: "Code matches found in the price table",
			},
		),
	}
}

func (m *Metrics) observe(res *Result, err error) {
	if m == nil {
		return
	}
	if err != nil {
		m.runs.WithLabelValues("failure").Inc()
		return
	}
	m.runs.WithLabelValues("success").Inc()
	m.runDuration.Observe(res.Timings.Total().Seconds())
	for stage, ms := range res.Timings.Millis() {
		m.stageSeconds.WithLabelValues(stage).Observe(float64(ms) / 1000)
	}

	m.pages.WithLabelValues("rendered").Add(float64(res.Pages))
	for _, s := range res.SkippedPages {
		m.pages.WithLabelValues(s.Stage + "_skipped").Inc()
	}
	for _, mt := range res.Matches {
		kind := "category"
		if mt.Fallback {
			kind = "fallback"
		}
		m.matches.WithLabelValues(kind).Inc()
	}
	m.priceCodes.Add(float64(res.PriceCodes))
	m.skippedRows.Add(float64(len(res.SkippedRows)))
	for _, p := range res.PageReports {
		if len(p.Labels) > 0 {
			m.labels.WithLabelValues(string(p.Mode)).Add(float64(len(p.Labels)))
		}
	}
	m.priced.Add(float64(res.Priced))
}

// WriteMetrics dumps every metric of g to path in the text exposition format.
func WriteMetrics(path string, g prometheus.Gatherer) error {
	return prometheus.WriteToTextfile(path, g)
}
