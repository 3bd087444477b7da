package common

import (
	"fmt"
	"log/slog"
)

// SkipError records why a single item (a page, a price row, a label) was
// dropped. Skips never abort a run; they are collected and logged.
type SkipError struct {
	Stage string
	Item  string
	Err   error
}

func (e *SkipError) Error() string {
	return fmt.Sprintf("%s: skipped %s: %v", e.Stage, e.Item, e.Err)
}

func (e *SkipError) Unwrap() error {
	return e.Err
}

// Skip builds a SkipError for the given stage and item.
func Skip(stage, item string, err error) *SkipError {
	return &SkipError{Stage: stage, Item: item, Err: err}
}

// Outcome is the result of processing one item in a stage loop.
type Outcome[T any] struct {
	Value T
	Skip  *SkipError
}

// Ok wraps a successfully processed item.
func Ok[T any](v T) Outcome[T] {
	return Outcome[T]{Value: v}
}

// Skipped wraps a dropped item.
func Skipped[T any](skip *SkipError) Outcome[T] {
	return Outcome[T]{Skip: skip}
}

// Partition splits outcomes into kept values and skips, preserving order.
func Partition[T any](outcomes []Outcome[T]) ([]T, []*SkipError) {
	values := make([]T, 0, len(outcomes))
	var skips []*SkipError
	for _, o := range outcomes {
		if o.Skip != nil {
			skips = append(skips, o.Skip)
			continue
		}
		values = append(values, o.Value)
	}
	return values, skips
}

// LogSkips reports every skip at warn level.
func LogSkips(logger *slog.Logger, skips []*SkipError) {
	if logger == nil {
		logger = slog.Default()
	}
	for _, s := range skips {
		logger.Warn("item skipped", "stage", s.Stage, "item", s.Item, "error", s.Err)
	}
}
