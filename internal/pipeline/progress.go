package pipeline

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/MeKo-Tech/pricetag/internal/common"
)

// ConsoleProgress draws a progress bar with the current stage message.
type ConsoleProgress struct {
	writer         io.Writer
	prefix         string
	width          int
	updateInterval time.Duration
	lastUpdate     time.Time
	startTime      time.Time
	mutex          sync.Mutex
}

// NewConsoleProgress creates a console progress reporter writing to writer
// (stderr when nil).
func NewConsoleProgress(writer io.Writer, prefix string) *ConsoleProgress {
	if writer == nil {
		writer = os.Stderr
	}
	return &ConsoleProgress{
		writer:         writer,
		prefix:         prefix,
		width:          40,
		updateInterval: 100 * time.Millisecond,
	}
}

// WithWidth sets the progress bar width.
func (c *ConsoleProgress) WithWidth(width int) *ConsoleProgress {
	c.width = width
	return c
}

// WithUpdateInterval sets how frequently the progress bar redraws.
func (c *ConsoleProgress) WithUpdateInterval(interval time.Duration) *ConsoleProgress {
	c.updateInterval = interval
	return c
}

// Func returns the reporter as a ProgressFunc.
func (c *ConsoleProgress) Func() common.ProgressFunc {
	return c.Report
}

// Report redraws the bar; the final report ends the line.
func (c *ConsoleProgress) Report(message string, fraction float64) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	now := time.Now()
	if c.startTime.IsZero() {
		c.startTime = now
	}
	done := fraction >= 1
	if !done && !c.lastUpdate.IsZero() && now.Sub(c.lastUpdate) < c.updateInterval {
		return
	}
	c.lastUpdate = now

	filled := int(float64(c.width) * fraction)
	if filled > c.width {
		filled = c.width
	}
	bar := strings.Repeat("█", filled) + strings.Repeat("░", c.width-filled)
	_, _ = fmt.Fprintf(c.writer, "\r%s[%s] %5.1f%% %s", c.prefix, bar, fraction*100, message)
	if done {
		elapsed := now.Sub(c.startTime)
		_, _ = fmt.Fprintf(c.writer, "\n%sCompleted in %v\n", c.prefix, elapsed.Round(time.Millisecond))
	}
}

// LogProgress logs progress with slog whenever the fraction advanced by at
// least step since the last entry.
type LogProgress struct {
	logger *slog.Logger
	level  slog.Level
	step   float64
	last   float64
	logged bool
}

// NewLogProgress creates a log-based progress reporter.
func NewLogProgress(logger *slog.Logger, level slog.Level) *LogProgress {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogProgress{logger: logger, level: level, step: 0.1}
}

// WithStep sets the minimum fraction change between log entries.
func (l *LogProgress) WithStep(step float64) *LogProgress {
	l.step = step
	return l
}

// Func returns the reporter as a ProgressFunc.
func (l *LogProgress) Func() common.ProgressFunc {
	return l.Report
}

// Report logs the message when enough progress was made.
func (l *LogProgress) Report(message string, fraction float64) {
	if l.logged && fraction < 1 && fraction-l.last < l.step {
		return
	}
	l.logged = true
	l.last = fraction
	l.logger.Log(context.Background(), l.level, "progress", "message", message, "percent", fmt.Sprintf("%.1f", fraction*100))
}

// MultiProgress fans one report out to several reporters.
func MultiProgress(funcs ...common.ProgressFunc) common.ProgressFunc {
	var active []common.ProgressFunc
	for _, f := range funcs {
		if f != nil {
			active = append(active, f)
		}
	}
	if len(active) == 0 {
		return nil
	}
	return func(message string, fraction float64) {
		for _, f := range active {
			f(message, fraction)
		}
	}
}

// ThrottledProgress drops reports arriving sooner than minInterval after the
// previous one. The first and final reports always pass.
func ThrottledProgress(wrapped common.ProgressFunc, minInterval time.Duration) common.ProgressFunc {
	if wrapped == nil {
		return nil
	}
	var (
		mutex      sync.Mutex
		lastUpdate time.Time
	)
	return func(message string, fraction float64) {
		mutex.Lock()
		now := time.Now()
		pass := fraction >= 1 || lastUpdate.IsZero() || now.Sub(lastUpdate) >= minInterval
		if pass {
			lastUpdate = now
		}
		mutex.Unlock()
		if pass {
			wrapped(message, fraction)
		}
	}
}
