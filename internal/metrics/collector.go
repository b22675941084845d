package metrics

import (
	"math"
	"sync"
	"time"

	hdrhistogram "github.com/HdrHistogram/hdrhistogram-go"
)

// Histogram bounds for total-duration samples. Samples outside the range are
// clamped at the boundary and counted in ClampedSamples.
const (
	histMinMs   = 1
	histMaxMs   = int64(5 * time.Minute / time.Millisecond)
	histSigFigs = 3
)

type accumulatorKey struct {
	model string
	kind  Kind
}

// accumulator is the running state for one (model, kind) pair. Total-duration
// percentiles come from the histogram; TTFB/TTFC percentiles come from the
// exact sample list because first-byte sample counts are usually too small for
// histogram bucketing error to be acceptable.
type accumulator struct {
	hist      *hdrhistogram.Histogram
	firsts    []time.Duration
	rates     []float64
	successes int
	failures  int
	clamped   int
	sum       time.Duration
	min       time.Duration
	max       time.Duration
}

func newAccumulator() *accumulator {
	return &accumulator{
		hist: hdrhistogram.New(histMinMs, histMaxMs, histSigFigs),
	}
}

// Collector folds raw request outcomes into per-(model, kind) accumulators.
// All mutation goes through a single mutex so outcomes may arrive in any
// interleaving from concurrent workers.
type Collector struct {
	mu   sync.Mutex
	accs map[accumulatorKey]*accumulator
}

func NewCollector() *Collector {
	return &Collector{accs: make(map[accumulatorKey]*accumulator)}
}

// Record folds one outcome into the accumulator for (outcome.Model, kind),
// creating it on first observation. Each outcome must be recorded exactly
// once. Failed outcomes only bump counts; their timings never reach the
// latency samples.
func (c *Collector) Record(kind Kind, o Outcome) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := accumulatorKey{model: o.Model, kind: kind}
	acc, ok := c.accs[key]
	if !ok {
		acc = newAccumulator()
		c.accs[key] = acc
	}

	if !o.OK {
		acc.failures++
		return
	}

	ms := o.Total.Milliseconds()
	if ms < histMinMs {
		ms = histMinMs
		acc.clamped++
	} else if ms > histMaxMs {
		ms = histMaxMs
		acc.clamped++
	}
	// RecordValue cannot fail after clamping to the supported range.
	acc.hist.RecordValue(ms)

	acc.firsts = append(acc.firsts, o.TimeToFirst)
	acc.sum += o.Total
	if acc.successes == 0 || o.Total < acc.min {
		acc.min = o.Total
	}
	if o.Total > acc.max {
		acc.max = o.Total
	}
	acc.successes++

	if kind == ThroughputStreaming && o.Generation > 0 {
		acc.rates = append(acc.rates, float64(o.Tokens)/o.Generation.Seconds())
	}
}

// Finalize computes a read-only stats snapshot for (model, kind). A pair that
// was never observed yields a zero-valued snapshot with an error rate of 0.
func (c *Collector) Finalize(model string, kind Kind) LatencyStats {
	c.mu.Lock()
	defer c.mu.Unlock()

	stats := LatencyStats{Model: model, Kind: string(kind)}
	acc, ok := c.accs[accumulatorKey{model: model, kind: kind}]
	if !ok {
		return stats
	}

	stats.Requests = acc.successes + acc.failures
	stats.Failures = acc.failures
	stats.ClampedSamples = acc.clamped
	if stats.Requests > 0 {
		stats.ErrorRate = float64(acc.failures) / float64(stats.Requests)
	}
	if acc.successes == 0 {
		return stats
	}

	stats.MinMs = durationMs(acc.min)
	stats.MaxMs = durationMs(acc.max)
	stats.MeanMs = durationMs(acc.sum) / float64(acc.successes)

	// ValueAtQuantile reports the highest equivalent value of the matched
	// bucket, which at 3 significant figures can overshoot both the true
	// maximum and the histogram ceiling. Cap at whichever bound actually
	// applies so quantiles never exceed a recorded value.
	ceiling := math.Min(durationMs(acc.max), float64(histMaxMs))
	stats.P50Ms = math.Min(float64(acc.hist.ValueAtQuantile(50)), ceiling)
	stats.P95Ms = math.Min(float64(acc.hist.ValueAtQuantile(95)), ceiling)
	stats.P99Ms = math.Min(float64(acc.hist.ValueAtQuantile(99)), ceiling)

	firsts := exactPercentiles(acc.firsts)
	stats.FirstMeanMs = firsts.mean
	stats.FirstP50Ms = firsts.p50
	stats.FirstP95Ms = firsts.p95
	stats.FirstP99Ms = firsts.p99
	return stats
}

// FinalizeThroughput is Finalize plus the mean of per-request tokens/sec
// rates. The mean is the arithmetic mean of the rate list, never a global
// tokens-over-wall-clock figure, which misstates steady state under
// concurrency.
func (c *Collector) FinalizeThroughput(model string) ThroughputStats {
	stats := ThroughputStats{LatencyStats: c.Finalize(model, ThroughputStreaming)}

	c.mu.Lock()
	defer c.mu.Unlock()
	acc, ok := c.accs[accumulatorKey{model: model, kind: ThroughputStreaming}]
	if !ok || len(acc.rates) == 0 {
		return stats
	}
	var sum float64
	for _, r := range acc.rates {
		sum += r
	}
	stats.MeanTokensPerSecond = sum / float64(len(acc.rates))
	return stats
}

func durationMs(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
