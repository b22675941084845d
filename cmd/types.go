package main

import (
	"chatbench/internal/metrics"
	"chatbench/internal/runner"
)

type Benchmark struct {
	BaseURL               string
	ApiKey                string
	Models                []string
	Requests              int
	Concurrency           int
	MaxTokens             int
	Streaming             bool
	Prompt                string
	InsecureSkipTLSVerify bool
}

func (benchmark *Benchmark) scenario(kind metrics.Kind) runner.Scenario {
	return runner.Scenario{
		Kind:        kind,
		Models:      benchmark.Models,
		Requests:    benchmark.Requests,
		Concurrency: benchmark.Concurrency,
		MaxTokens:   benchmark.MaxTokens,
		Prompt:      benchmark.Prompt,
	}
}

// BenchmarkResult is the machine-readable output for --format json|yaml.
type BenchmarkResult struct {
	BaseURL string           `json:"base_url" yaml:"base-url"`
	Reports []metrics.Report `json:"reports" yaml:"reports"`
}
