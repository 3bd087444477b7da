// Package pricing loads supplier price lists and applies the retail pricing rules.
package pricing

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"

	"github.com/MeKo-Tech/pricetag/internal/common"
)

// DefaultHeaderMarker is the cost-column title that may reappear mid-table.
const DefaultHeaderMarker = "VALOR"

// Positional column layout of a price source.
const (
	colReference = iota
	colSize
	colCost
	minColumns
)

var (
	ErrTooFewColumns = errors.New("price source needs at least 3 columns (reference, size, cost)")
	ErrInvalidMarkup = errors.New("markup must be a positive number")
)

// Record is one normalized price entry.
type Record struct {
	Code string  `json:"code" yaml:"code"`
	Size string  `json:"size,omitempty" yaml:"size,omitempty"`
	Cost float64 `json:"cost" yaml:"cost"`
	Sale float64 `json:"sale" yaml:"sale"`
}

// PriceList maps product codes to records.
type PriceList struct {
	Records map[string]Record
	// Rows is the number of data rows examined, header excluded.
	Rows    int
	Skipped []*common.SkipError
}

// Lookup returns the record for a code.
func (p *PriceList) Lookup(code string) (Record, bool) {
	if p == nil {
		return Record{}, false
	}
	r, ok := p.Records[code]
	return r, ok
}

// Len returns the number of distinct codes.
func (p *PriceList) Len() int {
	if p == nil {
		return 0
	}
	return len(p.Records)
}

// Options controls how a price source is interpreted.
type Options struct {
	Markup       float64
	HeaderMarker string
	SheetName    string
	Logger       *slog.Logger
}

// ValidateMarkup checks that a markup multiplier is usable.
func ValidateMarkup(markup float64) error {
	if markup <= 0 || math.IsNaN(markup) || math.IsInf(markup, 0) {
		return fmt.Errorf("%w: %v", ErrInvalidMarkup, markup)
	}
	return nil
}

// Load reads the price source at path and builds the price list.
func Load(path string, opts Options) (*PriceList, error) {
	if err := ValidateMarkup(opts.Markup); err != nil {
		return nil, err
	}
	sheet, err := ReadSheet(path, opts.SheetName)
	if err != nil {
		return nil, err
	}
	return Build(sheet, opts)
}

// Build turns a sheet into a price list. The first three columns are read
// positionally as reference, size and cost whatever their titles.
func Build(sheet *Sheet, opts Options) (*PriceList, error) {
	if err := ValidateMarkup(opts.Markup); err != nil {
		return nil, err
	}
	if cols := sheet.Columns(); cols < minColumns {
		return nil, fmt.Errorf("%w: found %d", ErrTooFewColumns, cols)
	}
	marker := strings.ToUpper(opts.HeaderMarker)
	if marker == "" {
		marker = DefaultHeaderMarker
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	start := 0
	if sheet.At(0, colReference).isHeaderText() {
		start = 1
	}

	outcomes := make([]common.Outcome[Record], 0, len(sheet.Rows))
	for r := start; r < len(sheet.Rows); r++ {
		if o, considered := buildRecord(sheet, r, marker, opts.Markup); considered {
			outcomes = append(outcomes, o)
		}
	}

	records, skips := common.Partition(outcomes)
	list := &PriceList{
		Records: make(map[string]Record, len(records)),
		Rows:    len(sheet.Rows) - start,
		Skipped: skips,
	}
	for _, rec := range records {
		list.Records[rec.Code] = rec
	}

	common.LogSkips(logger, skips)
	logger.Info("price list loaded", "codes", len(list.Records), "rows", list.Rows, "skipped", len(skips))
	return list, nil
}

// buildRecord converts one data row. Rows with a blank reference or cost and
// repeated header rows are ignored silently (considered=false).
func buildRecord(sheet *Sheet, r int, marker string, markup float64) (o common.Outcome[Record], considered bool) {
	ref := sheet.At(r, colReference)
	cost := sheet.At(r, colCost)
	if ref.IsEmpty() || cost.IsEmpty() {
		return o, false
	}
	if cost.Kind == CellText && strings.Contains(strings.ToUpper(cost.Text), marker) {
		return o, false
	}

	item := fmt.Sprintf("row %d", r+2)
	amount, err := cost.Decimal()
	if err != nil {
		return common.Skipped[Record](common.Skip("prices", item, err)), true
	}
	code, err := ref.Code()
	if err != nil {
		return common.Skipped[Record](common.Skip("prices", item, err)), true
	}

	return common.Ok(Record{
		Code: code,
		Size: sheet.At(r, colSize).String(),
		Cost: amount,
		Sale: amount * markup,
	}), true
}
