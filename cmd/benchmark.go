package main

import (
	"context"
	"fmt"
	"os"

	"github.com/schollz/progressbar/v3"

	"chatbench/internal/api"
	"chatbench/internal/metrics"
	"chatbench/internal/runner"
)

func (benchmark *Benchmark) runCli(ctx context.Context, client *api.Client, kinds []metrics.Kind) error {
	for i, kind := range kinds {
		if i > 0 {
			fmt.Println("\n================================================================================================================")
		}
		fmt.Printf("\n%s benchmark (%s)\n\n", kindTitle(kind), benchmark.BaseURL)

		report, err := benchmark.runKind(ctx, client, kind, true)
		if err != nil {
			return fmt.Errorf("%s benchmark: %v", kind, err)
		}
		printReport(report)
	}
	return nil
}

func (benchmark *Benchmark) run(ctx context.Context, client *api.Client, kinds []metrics.Kind) (BenchmarkResult, error) {
	result := BenchmarkResult{BaseURL: benchmark.BaseURL}
	for _, kind := range kinds {
		report, err := benchmark.runKind(ctx, client, kind, false)
		if err != nil {
			return result, fmt.Errorf("%s benchmark: %v", kind, err)
		}
		result.Reports = append(result.Reports, report)
	}
	return result, nil
}

func (benchmark *Benchmark) runKind(ctx context.Context, client *api.Client, kind metrics.Kind, showProgress bool) (metrics.Report, error) {
	r := runner.New(client, client)

	var bar *progressbar.ProgressBar
	if showProgress {
		scenario := benchmark.scenario(kind)
		total := scenario.Requests
		if kind == metrics.ThroughputStreaming {
			total = scenario.Concurrency
		}
		bar = progressbar.NewOptions(total,
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionSetDescription(string(kind)),
			progressbar.OptionSetWidth(40),
			progressbar.OptionShowCount(),
			progressbar.OptionShowIts(),
			progressbar.OptionSetItsString("req"),
			progressbar.OptionSpinnerType(14),
			progressbar.OptionSetRenderBlankState(true),
		)
		r.OnOutcome = func(metrics.Outcome) { bar.Add(1) }
	}

	report, err := r.Run(ctx, benchmark.scenario(kind))

	if bar != nil {
		bar.Finish()
		bar.Clear()
		bar.Close()
	}
	return report, err
}

func kindTitle(kind metrics.Kind) string {
	switch kind {
	case metrics.LatencyRegular:
		return "Regular Latency"
	case metrics.LatencyStreaming:
		return "Streaming Latency"
	case metrics.ThroughputStreaming:
		return "Streaming Throughput"
	default:
		return string(kind)
	}
}

func printReport(report metrics.Report) {
	if report.Kind == metrics.ThroughputStreaming {
		fmt.Println("| Model | Requests | Errors | Mean Tokens/s | TTFC P50 (ms) | TTFC P95 (ms) | Total P95 (ms) |")
		fmt.Println("|-------|----------|--------|---------------|---------------|---------------|----------------|")
		for _, s := range report.Throughput {
			fmt.Printf("| %s | %8d | %5.1f%% | %13.2f | %13.2f | %13.2f | %14.2f |\n",
				s.Model, s.Requests, s.ErrorRate*100, s.MeanTokensPerSecond,
				s.FirstP50Ms, s.FirstP95Ms, s.P95Ms)
		}
		return
	}

	first := "TTFB"
	if report.Kind == metrics.LatencyStreaming {
		first = "TTFC"
	}
	fmt.Printf("| Model | Requests | Errors | Mean (ms) | P50 (ms) | P95 (ms) | P99 (ms) | %s P50 (ms) | %s P95 (ms) |\n", first, first)
	fmt.Println("|-------|----------|--------|-----------|----------|----------|----------|---------------|---------------|")
	for _, s := range report.Latency {
		fmt.Printf("| %s | %8d | %5.1f%% | %9.2f | %8.0f | %8.0f | %8.0f | %13.2f | %13.2f |\n",
			s.Model, s.Requests, s.ErrorRate*100, s.MeanMs,
			s.P50Ms, s.P95Ms, s.P99Ms, s.FirstP50Ms, s.FirstP95Ms)
	}
}
