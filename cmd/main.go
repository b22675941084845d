package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/spf13/pflag"

	"chatbench/internal/api"
	"chatbench/internal/metrics"
	"chatbench/internal/runner"
)

func main() {
	baseURL := pflag.StringP("base-url", "u", "", "Base URL of the OpenAI-compatible API (defaults to $BASE_URL, then https://api.openai.com/v1)")
	apiKey := pflag.StringP("api-key", "k", "", "API key for authentication (defaults to $API_KEY)")
	modelsStr := pflag.StringP("models", "m", "", "Comma-separated models to benchmark (default: every model the endpoint advertises)")
	requests := pflag.IntP("requests", "r", 100, "Number of requests per model (latency benchmarks)")
	concurrency := pflag.IntP("concurrency", "c", 10, "Maximum number of simultaneous requests")
	maxTokens := pflag.IntP("max-tokens", "t", 0, "Per-request completion token cap (default: 8 for latency, 512 for throughput)")
	streaming := pflag.BoolP("streaming", "s", false, "Use streaming transport for latency benchmarks")
	prompt := pflag.StringP("prompt", "p", runner.DefaultPrompt, "Prompt sent with every request")
	timeout := pflag.Duration("timeout", 120*time.Second, "Per-request timeout")
	format := pflag.StringP("format", "f", "", "Output format: json or yaml (default: markdown tables)")
	insecureSkipTLSVerify := pflag.Bool("insecure-skip-tls-verify", false, "Skip TLS certificate verification. Use with caution, this is insecure.")
	help := pflag.BoolP("help", "h", false, "Show this help message")
	pflag.Parse()

	if *help {
		printUsage()
		os.Exit(0)
	}

	command := "all"
	if args := pflag.Args(); len(args) > 0 {
		command = args[0]
	}

	benchmark := Benchmark{
		BaseURL:               resolveBaseURL(*baseURL),
		ApiKey:                resolveAPIKey(*apiKey),
		Models:                splitModels(*modelsStr),
		Requests:              *requests,
		Concurrency:           *concurrency,
		MaxTokens:             *maxTokens,
		Streaming:             *streaming,
		Prompt:                *prompt,
		InsecureSkipTLSVerify: *insecureSkipTLSVerify,
	}

	if benchmark.ApiKey == "" {
		fmt.Fprintln(os.Stderr, "warning: no API key configured, sending unauthenticated requests")
	}
	if *insecureSkipTLSVerify {
		fmt.Fprintln(os.Stderr, "\n/!\\ WARNING: Skipping TLS certificate verification. This is insecure and should not be used in production. /!\\")
	}

	opts := api.DefaultClientOptions()
	opts.Timeout = *timeout
	opts.InsecureSkipTLSVerify = *insecureSkipTLSVerify
	if *concurrency > opts.MaxIdleConnsPerHost {
		opts.MaxIdleConnsPerHost = *concurrency
	}
	client := api.NewClient(benchmark.BaseURL, benchmark.ApiKey, opts)

	ctx := context.Background()

	var kinds []metrics.Kind
	switch command {
	case "latency":
		if benchmark.Streaming {
			kinds = []metrics.Kind{metrics.LatencyStreaming}
		} else {
			kinds = []metrics.Kind{metrics.LatencyRegular}
		}
	case "throughput":
		kinds = []metrics.Kind{metrics.ThroughputStreaming}
	case "all":
		kinds = []metrics.Kind{metrics.LatencyRegular, metrics.LatencyStreaming, metrics.ThroughputStreaming}
	case "models":
		if err := listModels(ctx, client); err != nil {
			log.Fatalf("Error listing models: %v", err)
		}
		return
	default:
		fmt.Fprintf(os.Stderr, "Unknown command %q\n\n", command)
		printUsage()
		os.Exit(2)
	}

	if *format == "" {
		if err := benchmark.runCli(ctx, client, kinds); err != nil {
			log.Fatalf("Error running benchmark: %v", err)
		}
		return
	}

	result, err := benchmark.run(ctx, client, kinds)
	if err != nil {
		log.Fatalf("Error running benchmark: %v", err)
	}

	var output string
	switch *format {
	case "json":
		output, err = result.Json()
	case "yaml":
		output, err = result.Yaml()
	default:
		log.Fatalf("Invalid format specified: %s", *format)
	}
	if err != nil {
		log.Fatalf("Error formatting benchmark result: %v", err)
	}
	fmt.Println(output)
}

func printUsage() {
	fmt.Printf("Usage: %s [latency|throughput|models|all] [flags]\n\nFlags:\n", os.Args[0])
	pflag.PrintDefaults()
}

func resolveBaseURL(flag string) string {
	if flag != "" {
		return flag
	}
	if env := os.Getenv("BASE_URL"); env != "" {
		return env
	}
	return "https://api.openai.com/v1"
}

func resolveAPIKey(flag string) string {
	if flag != "" {
		return flag
	}
	return os.Getenv("API_KEY")
}

func splitModels(s string) []string {
	if s == "" {
		return nil
	}
	var models []string
	for _, m := range strings.Split(s, ",") {
		if m = strings.TrimSpace(m); m != "" {
			models = append(models, m)
		}
	}
	return models
}

func listModels(ctx context.Context, client *api.Client) error {
	models, err := client.ListModels(ctx)
	if err != nil {
		return err
	}
	fmt.Println("Supported Models:")
	fmt.Println("-----------------")
	for i, model := range models {
		fmt.Printf("%d. %s\n", i+1, model)
	}
	return nil
}
