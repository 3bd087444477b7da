package pricing

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// CellKind distinguishes the value types a price-source cell can carry.
type CellKind int

const (
	CellEmpty CellKind = iota
	CellNumber
	CellText
)

func (k CellKind) String() string {
	switch k {
	case CellNumber:
		return "number"
	case CellText:
		return "text"
	default:
		return "empty"
	}
}

var (
	ErrEmptyCell = errors.New("cell is empty")
	ErrNoDigits  = errors.New("no digits in reference")
)

var digitRun = regexp.MustCompile(`\d+`)

// Cell is one value of a price source: empty, a number, or text.
type Cell struct {
	Kind CellKind
	Num  float64
	Text string
}

// Number builds a numeric cell.
func Number(v float64) Cell { return Cell{Kind: CellNumber, Num: v} }

// Text builds a text cell. An empty string is an empty cell.
func Text(s string) Cell {
	if s == "" {
		return Cell{}
	}
	return Cell{Kind: CellText, Text: s}
}

// IsEmpty reports whether the cell holds no value.
func (c Cell) IsEmpty() bool {
	return c.Kind == CellEmpty || (c.Kind == CellNumber && math.IsNaN(c.Num))
}

// Decimal resolves the cell to a decimal amount. Text cells accept a comma
// as the decimal separator.
func (c Cell) Decimal() (float64, error) {
	switch {
	case c.IsEmpty():
		return 0, ErrEmptyCell
	case c.Kind == CellNumber:
		return c.Num, nil
	}
	s := strings.ReplaceAll(strings.TrimSpace(c.Text), ",", ".")
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("parse decimal %q: %w", c.Text, err)
	}
	return v, nil
}

// Code derives a product code. Numbers are truncated to their integer part;
// text yields its first run of digits.
func (c Cell) Code() (string, error) {
	switch {
	case c.IsEmpty():
		return "", ErrEmptyCell
	case c.Kind == CellNumber:
		if math.IsInf(c.Num, 0) {
			return "", fmt.Errorf("reference %v: %w", c.Num, ErrNoDigits)
		}
		return strconv.FormatFloat(math.Trunc(c.Num), 'f', 0, 64), nil
	}
	code := digitRun.FindString(c.Text)
	if code == "" {
		return "", fmt.Errorf("reference %q: %w", c.Text, ErrNoDigits)
	}
	return code, nil
}

// String renders the cell the way it is shown in labels and reports.
func (c Cell) String() string {
	switch {
	case c.IsEmpty():
		return ""
	case c.Kind == CellNumber:
		return strconv.FormatFloat(c.Num, 'f', -1, 64)
	default:
		return c.Text
	}
}

// isHeaderText reports whether a reference cell looks like a column title
// rather than a code.
func (c Cell) isHeaderText() bool {
	if c.Kind != CellText {
		return false
	}
	for _, r := range c.Text {
		if r < '0' || r > '9' {
			return true
		}
	}
	return false
}
