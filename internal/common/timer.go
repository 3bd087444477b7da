// Package common provides shared helpers for stage timing and per-item outcomes.
package common

import (
	"fmt"
	"strings"
	"time"
)

// Timer measures a single named stage.
type Timer struct {
	start    time.Time
	name     string
	duration time.Duration
}

// NewNamedTimer starts a timer for the given stage.
func NewNamedTimer(name string) *Timer {
	return &Timer{
		name:  name,
		start: time.Now(),
	}
}

// Stop stops the timer and returns the elapsed duration.
func (t *Timer) Stop() time.Duration {
	t.duration = time.Since(t.start)
	return t.duration
}

// Duration returns the recorded duration (only valid after Stop()).
func (t *Timer) Duration() time.Duration {
	return t.duration
}

// Name returns the stage name.
func (t *Timer) Name() string {
	return t.name
}

func (t *Timer) String() string {
	return fmt.Sprintf("%s: %v", t.name, t.duration.Round(time.Millisecond))
}

// StageTimings keeps stage durations in the order the stages ran.
type StageTimings struct {
	order     []string
	durations map[string]time.Duration
}

// NewStageTimings creates an empty timing record.
func NewStageTimings() *StageTimings {
	return &StageTimings{durations: make(map[string]time.Duration)}
}

// Record stores the duration of a stopped timer. Recording the same stage
// twice accumulates.
func (s *StageTimings) Record(t *Timer) {
	if _, ok := s.durations[t.Name()]; !ok {
		s.order = append(s.order, t.Name())
	}
	s.durations[t.Name()] += t.Duration()
}

// Get returns the duration recorded for a stage.
func (s *StageTimings) Get(stage string) time.Duration {
	return s.durations[stage]
}

// Total returns the sum of all recorded stages.
func (s *StageTimings) Total() time.Duration {
	var total time.Duration
	for _, d := range s.durations {
		total += d
	}
	return total
}

// Millis returns stage durations in milliseconds, keyed by stage.
func (s *StageTimings) Millis() map[string]int64 {
	out := make(map[string]int64, len(s.durations))
	for name, d := range s.durations {
		out[name] = d.Milliseconds()
	}
	return out
}

func (s *StageTimings) String() string {
	parts := make([]string, 0, len(s.order))
	for _, name := range s.order {
		parts = append(parts, fmt.Sprintf("%s=%v", name, s.durations[name].Round(time.Millisecond)))
	}
	return strings.Join(parts, " ")
}
