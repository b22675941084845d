package runner

import (
	"context"
	"fmt"
	"log"
	"sync"

	"golang.org/x/sync/semaphore"

	"chatbench/internal/metrics"
)

const (
	// warmupRequests are issued per model before the measured phase, in the
	// scenario's transport mode, and their outcomes are always discarded.
	warmupRequests = 2

	defaultLatencyMaxTokens    = 8
	defaultThroughputMaxTokens = 512

	// DefaultPrompt keeps request bodies identical across runs so timing
	// differences come from the endpoint, not the workload.
	DefaultPrompt = "Write a short paragraph about the benefits of API performance benchmarking."
)

// Scenario describes one benchmark run. It is immutable for the lifetime of
// the run.
type Scenario struct {
	Kind        metrics.Kind
	Models      []string // empty means every model the endpoint advertises
	Requests    int
	Concurrency int
	MaxTokens   int
	Prompt      string
}

// normalized applies scenario defaults: throughput schedules exactly one
// streaming request per concurrent slot, and token caps default to 8 for
// latency and 512 for throughput.
func (s Scenario) normalized() Scenario {
	if s.Prompt == "" {
		s.Prompt = DefaultPrompt
	}
	if s.Concurrency <= 0 {
		s.Concurrency = 1
	}
	if s.Kind == metrics.ThroughputStreaming {
		s.Requests = s.Concurrency
	}
	if s.Requests <= 0 {
		s.Requests = 1
	}
	if s.MaxTokens <= 0 {
		if s.Kind == metrics.ThroughputStreaming {
			s.MaxTokens = defaultThroughputMaxTokens
		} else {
			s.MaxTokens = defaultLatencyMaxTokens
		}
	}
	return s
}

// Executor issues a single timed request. Implementations must return a
// populated outcome for both success and failure, never panic or require an
// error path.
type Executor interface {
	Complete(ctx context.Context, model, prompt string, maxTokens int) metrics.Outcome
	CompleteStream(ctx context.Context, model, prompt string, maxTokens int) metrics.Outcome
}

// Catalog resolves the model set when a scenario does not name one.
type Catalog interface {
	ListModels(ctx context.Context) ([]string, error)
}

// Runner schedules units of work under a bounded-parallelism admission gate
// and forwards every measured outcome to the collector.
type Runner struct {
	exec    Executor
	catalog Catalog

	// OnOutcome, when set, is invoked after each measured unit completes.
	// Warm-ups never trigger it.
	OnOutcome func(metrics.Outcome)
}

func New(exec Executor, catalog Catalog) *Runner {
	return &Runner{exec: exec, catalog: catalog}
}

// Run executes the scenario against every selected model and returns one
// finalized stats snapshot per model, in selection order. A unit's failure is
// recorded and never cancels sibling units; Run itself fails only for
// whole-run conditions: the catalog lookup failing, or no request succeeding
// against any model.
func (r *Runner) Run(ctx context.Context, scenario Scenario) (metrics.Report, error) {
	scenario = scenario.normalized()

	models, err := r.resolveModels(ctx, scenario.Models)
	if err != nil {
		return metrics.Report{}, err
	}

	collector := metrics.NewCollector()
	for _, model := range models {
		log.Printf("Benchmarking model %s (%s, %d requests, concurrency %d)",
			model, scenario.Kind, scenario.Requests, scenario.Concurrency)
		r.warmUp(ctx, scenario, model)
		r.runModel(ctx, scenario, model, collector)
	}

	report := metrics.BuildReport(collector, scenario.Kind, models)
	if report.Successes() == 0 {
		return report, fmt.Errorf("no successful requests against %d model(s)", len(models))
	}
	return report, nil
}

// resolveModels de-duplicates the requested models preserving first-seen
// order, falling back to the catalog when none were named.
func (r *Runner) resolveModels(ctx context.Context, requested []string) ([]string, error) {
	models := requested
	if len(models) == 0 {
		discovered, err := r.catalog.ListModels(ctx)
		if err != nil {
			return nil, fmt.Errorf("model discovery failed: %w", err)
		}
		models = discovered
	}

	seen := make(map[string]bool, len(models))
	unique := make([]string, 0, len(models))
	for _, m := range models {
		if m == "" || seen[m] {
			continue
		}
		seen[m] = true
		unique = append(unique, m)
	}
	if len(unique) == 0 {
		return nil, fmt.Errorf("no models to benchmark")
	}
	return unique, nil
}

// warmUp primes connection reuse before the timed phase. Outcomes are
// discarded regardless of success or failure.
func (r *Runner) warmUp(ctx context.Context, scenario Scenario, model string) {
	for i := 0; i < warmupRequests; i++ {
		r.execute(ctx, scenario, model)
	}
}

// runModel schedules exactly scenario.Requests units, admitting at most
// scenario.Concurrency into their request phase at any instant. The gate is
// released on every exit path once the unit's outcome has been recorded.
func (r *Runner) runModel(ctx context.Context, scenario Scenario, model string, collector *metrics.Collector) {
	sem := semaphore.NewWeighted(int64(scenario.Concurrency))
	var wg sync.WaitGroup

	for i := 0; i < scenario.Requests; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			if err := sem.Acquire(ctx, 1); err != nil {
				collector.Record(scenario.Kind, metrics.Failure(model, metrics.ErrorNetwork, 0))
				return
			}
			defer sem.Release(1)

			outcome := r.execute(ctx, scenario, model)
			collector.Record(scenario.Kind, outcome)
			if r.OnOutcome != nil {
				r.OnOutcome(outcome)
			}
		}()
	}

	wg.Wait()
}

func (r *Runner) execute(ctx context.Context, scenario Scenario, model string) metrics.Outcome {
	if scenario.Kind.Streaming() {
		return r.exec.CompleteStream(ctx, model, scenario.Prompt, scenario.MaxTokens)
	}
	return r.exec.Complete(ctx, model, scenario.Prompt, scenario.MaxTokens)
}
