package metrics

import (
	"math"
	"sort"
	"time"
)

// LatencyStats is an immutable report-time view of one (model, kind)
// accumulator. All durations are in milliseconds. First* fields hold TTFB for
// plain requests and TTFC for streaming ones.
type LatencyStats struct {
	Model          string  `json:"model" yaml:"model"`
	Kind           string  `json:"kind" yaml:"kind"`
	Requests       int     `json:"requests" yaml:"requests"`
	Failures       int     `json:"failures" yaml:"failures"`
	ErrorRate      float64 `json:"error_rate" yaml:"error-rate"`
	MinMs          float64 `json:"min_ms" yaml:"min-ms"`
	MaxMs          float64 `json:"max_ms" yaml:"max-ms"`
	MeanMs         float64 `json:"mean_ms" yaml:"mean-ms"`
	P50Ms          float64 `json:"p50_ms" yaml:"p50-ms"`
	P95Ms          float64 `json:"p95_ms" yaml:"p95-ms"`
	P99Ms          float64 `json:"p99_ms" yaml:"p99-ms"`
	FirstMeanMs    float64 `json:"first_mean_ms" yaml:"first-mean-ms"`
	FirstP50Ms     float64 `json:"first_p50_ms" yaml:"first-p50-ms"`
	FirstP95Ms     float64 `json:"first_p95_ms" yaml:"first-p95-ms"`
	FirstP99Ms     float64 `json:"first_p99_ms" yaml:"first-p99-ms"`
	ClampedSamples int     `json:"clamped_samples,omitempty" yaml:"clamped-samples,omitempty"`
}

// ThroughputStats extends LatencyStats with the mean of per-request
// tokens/sec rates.
type ThroughputStats struct {
	LatencyStats        `yaml:",inline"`
	MeanTokensPerSecond float64 `json:"mean_tokens_per_second" yaml:"mean-tokens-per-second"`
}

type exactStats struct {
	mean, p50, p95, p99 float64
}

// exactPercentiles computes nearest-rank percentiles over the true sample set.
func exactPercentiles(samples []time.Duration) exactStats {
	if len(samples) == 0 {
		return exactStats{}
	}

	sorted := make([]time.Duration, len(samples))
	copy(sorted, samples)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	var sum time.Duration
	for _, d := range sorted {
		sum += d
	}

	return exactStats{
		mean: durationMs(sum) / float64(len(sorted)),
		p50:  durationMs(nearestRank(sorted, 50)),
		p95:  durationMs(nearestRank(sorted, 95)),
		p99:  durationMs(nearestRank(sorted, 99)),
	}
}

// nearestRank selects the p-th percentile from an ascending sample list.
func nearestRank(sorted []time.Duration, p float64) time.Duration {
	idx := int(math.Ceil(p/100*float64(len(sorted)))) - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}
