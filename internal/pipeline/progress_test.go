package pipeline

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestConsoleProgress(t *testing.T) {
	var buf bytes.Buffer
	p := NewConsoleProgress(&buf, "Test: ").WithWidth(10).WithUpdateInterval(0)

	p.Report("Rendering catalog pages...", 0.05)
	assert.Contains(t, buf.String(), "Test: [")
	assert.Contains(t, buf.String(), "5.0% Rendering catalog pages...")

	buf.Reset()
	p.Report("Creating priced PDF...", 0.5)
	assert.Contains(t, buf.String(), strings.Repeat("█", 5)+strings.Repeat("░", 5))

	buf.Reset()
	p.Func()("Done", 1.0)
	out := buf.String()
	assert.Contains(t, out, "100.0% Done")
	assert.Contains(t, out, "Test: Completed in")
}

func TestConsoleProgressThrottling(t *testing.T) {
	var buf bytes.Buffer
	p := NewConsoleProgress(&buf, "").WithUpdateInterval(time.Hour)

	p.Report("first", 0.1)
	assert.NotEmpty(t, buf.String())

	buf.Reset()
	p.Report("second", 0.2)
	assert.Empty(t, buf.String())

	p.Report("Done", 1)
	assert.Contains(t, buf.String(), "Done")
}

func TestLogProgress(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	p := NewLogProgress(logger, slog.LevelInfo).WithStep(0.25)

	for _, f := range []float64{0, 0.1, 0.2, 0.3, 0.5, 0.6, 1} {
		p.Report("step", f)
	}
	assert.Equal(t, 4, strings.Count(buf.String(), "msg=progress"))
	assert.Contains(t, buf.String(), "percent=100.0")
}

func TestMultiProgress(t *testing.T) {
	assert.Nil(t, MultiProgress(nil, nil))

	var a, b []float64
	f := MultiProgress(
		func(_ string, v float64) { a = append(a, v) },
		nil,
		func(_ string, v float64) { b = append(b, v) },
	)
	f("x", 0.4)
	f("y", 1)
	assert.Equal(t, []float64{0.4, 1}, a)
	assert.Equal(t, a, b)
}

func TestThrottledProgress(t *testing.T) {
	assert.Nil(t, ThrottledProgress(nil, time.Second))

	var got []string
	f := ThrottledProgress(func(m string, _ float64) { got = append(got, m) }, time.Hour)
	f("first", 0)
	f("dropped", 0.5)
	f("Done", 1)
	assert.Equal(t, []string{"first", "Done"}, got)
}
