package eval

import (
	"context"
	"math"
	"sort"
	"time"
)

// LatencyStats summarizes repeated timings of an operation, in milliseconds.
// Std is the population standard deviation.
type LatencyStats struct {
	P50  float64 `json:"p50"`
	P95  float64 `json:"p95"`
	P99  float64 `json:"p99"`
	Mean float64 `json:"mean"`
	Std  float64 `json:"std"`
	Runs int     `json:"runs"`
}

// DefaultLatencyRuns is the number of timed invocations when the caller does
// not specify one.
const DefaultLatencyRuns = 100

// MeasureLatency invokes fn runs times and returns latency statistics over
// the observed wall-clock durations. A non-positive runs falls back to
// DefaultLatencyRuns. If fn returns an error, or the context is cancelled
// between runs, the measurement stops and the error is returned.
func MeasureLatency(ctx context.Context, fn func() error, runs int) (LatencyStats, error) {
	if runs <= 0 {
		runs = DefaultLatencyRuns
	}

	samples := make([]float64, 0, runs)
	for i := 0; i < runs; i++ {
		if err := ctx.Err(); err != nil {
			return LatencyStats{}, err
		}
		start := time.Now()
		if err := fn(); err != nil {
			return LatencyStats{}, err
		}
		samples = append(samples, float64(time.Since(start))/float64(time.Millisecond))
	}
	return summarize(samples), nil
}

func summarize(samples []float64) LatencyStats {
	sorted := make([]float64, len(samples))
	copy(sorted, samples)
	sort.Float64s(sorted)

	var sum float64
	for _, s := range sorted {
		sum += s
	}
	mean := sum / float64(len(sorted))

	var sqDiff float64
	for _, s := range sorted {
		d := s - mean
		sqDiff += d * d
	}

	return LatencyStats{
		P50:  percentile(sorted, 50),
		P95:  percentile(sorted, 95),
		P99:  percentile(sorted, 99),
		Mean: mean,
		Std:  math.Sqrt(sqDiff / float64(len(sorted))),
		Runs: len(sorted),
	}
}

// percentile computes the p-th percentile of a sorted sample using linear
// interpolation between the two nearest ranks.
func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	if len(sorted) == 1 {
		return sorted[0]
	}

	pos := p / 100 * float64(len(sorted)-1)
	lower := int(math.Floor(pos))
	upper := int(math.Ceil(pos))
	if lower == upper {
		return sorted[lower]
	}
	frac := pos - float64(lower)
	return sorted[lower] + frac*(sorted[upper]-sorted[lower])
}
