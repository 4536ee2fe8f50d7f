package eval

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSummarize_KnownDistribution(t *testing.T) {
	// 0..99 in shuffled order; summarize sorts internally.
	samples := make([]float64, 100)
	for i := range samples {
		samples[i] = float64((i * 37) % 100)
	}

	stats := summarize(samples)

	assert.InDelta(t, 49.5, stats.P50, 1e-9)
	assert.InDelta(t, 94.05, stats.P95, 1e-9)
	assert.InDelta(t, 98.01, stats.P99, 1e-9)
	assert.InDelta(t, 49.5, stats.Mean, 1e-9)
	// Population std of 0..99 is sqrt(9999/12).
	assert.InDelta(t, 28.8661, stats.Std, 1e-3)
	assert.Equal(t, 100, stats.Runs)
}

func TestSummarize_SingleSample(t *testing.T) {
	stats := summarize([]float64{7.5})
	assert.InDelta(t, 7.5, stats.P50, 1e-9)
	assert.InDelta(t, 7.5, stats.P99, 1e-9)
	assert.InDelta(t, 7.5, stats.Mean, 1e-9)
	assert.Zero(t, stats.Std)
}

func TestPercentile_Interpolates(t *testing.T) {
	sorted := []float64{10, 20, 30, 40}
	// pos = 0.5 * 3 = 1.5, halfway between 20 and 30.
	assert.InDelta(t, 25.0, percentile(sorted, 50), 1e-9)
	assert.InDelta(t, 10.0, percentile(sorted, 0), 1e-9)
	assert.InDelta(t, 40.0, percentile(sorted, 100), 1e-9)
}

func TestMeasureLatency_CountsRuns(t *testing.T) {
	calls := 0
	stats, err := MeasureLatency(context.Background(), func() error {
		calls++
		return nil
	}, 25)
	require.NoError(t, err)
	assert.Equal(t, 25, calls)
	assert.Equal(t, 25, stats.Runs)
	assert.GreaterOrEqual(t, stats.Mean, 0.0)
}

func TestMeasureLatency_DefaultRuns(t *testing.T) {
	calls := 0
	stats, err := MeasureLatency(context.Background(), func() error {
		calls++
		return nil
	}, 0)
	require.NoError(t, err)
	assert.Equal(t, DefaultLatencyRuns, calls)
	assert.Equal(t, DefaultLatencyRuns, stats.Runs)
}

func TestMeasureLatency_StopsOnError(t *testing.T) {
	calls := 0
	boom := fmt.Errorf("backend unavailable")
	_, err := MeasureLatency(context.Background(), func() error {
		calls++
		if calls == 3 {
			return boom
		}
		return nil
	}, 10)
	require.Error(t, err)
	assert.Equal(t, 3, calls)
	assert.Equal(t, boom, err)
}
