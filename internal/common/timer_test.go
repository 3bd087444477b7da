package common

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTimer(t *testing.T) {
	timer := NewNamedTimer("rasterize")
	assert.Equal(t, "rasterize", timer.Name())

	time.Sleep(10 * time.Millisecond)

	duration := timer.Stop()
	assert.GreaterOrEqual(t, duration, 10*time.Millisecond)
	assert.Equal(t, duration, timer.Duration())
	assert.Contains(t, timer.String(), "rasterize")
}

func TestStageTimings(t *testing.T) {
	timings := NewStageTimings()

	first := NewNamedTimer("scan")
	time.Sleep(2 * time.Millisecond)
	first.Stop()
	timings.Record(first)

	second := NewNamedTimer("compose")
	second.Stop()
	timings.Record(second)

	again := NewNamedTimer("scan")
	time.Sleep(2 * time.Millisecond)
	again.Stop()
	timings.Record(again)

	assert.Equal(t, first.Duration()+again.Duration(), timings.Get("scan"))
	assert.Equal(t, timings.Get("scan")+timings.Get("compose"), timings.Total())
	assert.Len(t, timings.Millis(), 2)
	assert.Regexp(t, `^scan=\S+ compose=\S+$`, timings.String())
}

func TestPartition(t *testing.T) {
	boom := errors.New("boom")
	outcomes := []Outcome[int]{
		Ok(1),
		Skipped[int](Skip("load", "row 3", boom)),
		Ok(2),
	}

	values, skips := Partition(outcomes)
	assert.Equal(t, []int{1, 2}, values)
	require.Len(t, skips, 1)
	assert.Equal(t, "load", skips[0].Stage)
	require.ErrorIs(t, skips[0], boom)
	assert.Contains(t, skips[0].Error(), "row 3")
}

func TestPartitionEmpty(t *testing.T) {
	values, skips := Partition[string](nil)
	assert.Empty(t, values)
	assert.Nil(t, skips)
}
