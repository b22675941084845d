package api

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"io"
	"math"
	"net/http"
	"net/http/httptrace"
	"time"

	"github.com/sashabaranov/go-openai"

	"chatbench/internal/metrics"
)

// ClientOptions tunes the shared HTTP transport. The connection pool must be
// sized for reuse under the configured concurrency ceiling: an undersized pool
// forces repeated connection setup and corrupts the latencies being measured.
type ClientOptions struct {
	Timeout               time.Duration // per-call timeout, treated as a network failure
	MaxIdleConnsPerHost   int
	InsecureSkipTLSVerify bool
}

// DefaultClientOptions returns transport settings suitable for a concurrency
// ceiling of up to 128.
func DefaultClientOptions() ClientOptions {
	return ClientOptions{
		Timeout:             120 * time.Second,
		MaxIdleConnsPerHost: 128,
	}
}

// Client issues timed chat completion requests against an OpenAI-compatible
// endpoint. One outbound call per invocation, no retries.
type Client struct {
	oa *openai.Client
}

// NewClient builds a client for the given endpoint. The API key may be empty
// for keyless local endpoints.
func NewClient(baseURL, apiKey string, opts ClientOptions) *Client {
	config := openai.DefaultConfig(apiKey)
	config.BaseURL = baseURL

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.MaxIdleConns = 256
	transport.MaxIdleConnsPerHost = opts.MaxIdleConnsPerHost
	transport.IdleConnTimeout = 90 * time.Second
	if opts.InsecureSkipTLSVerify {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}
	config.HTTPClient = &http.Client{
		Transport: transport,
		Timeout:   opts.Timeout,
	}

	return &Client{oa: openai.NewClientWithConfig(config)}
}

// ListModels returns the identifiers of every model the endpoint advertises,
// in the order the endpoint reports them.
func (c *Client) ListModels(ctx context.Context) ([]string, error) {
	list, err := c.oa.ListModels(ctx)
	if err != nil {
		return nil, err
	}
	models := make([]string, 0, len(list.Models))
	for _, m := range list.Models {
		models = append(models, m.ID)
	}
	return models, nil
}

// Complete issues one plain (non-streaming) chat completion and times it.
// TTFB is the instant the first response byte arrives, captured through
// httptrace so it covers connection setup and server queueing. Failures are
// returned as data in the outcome, never as a Go error.
func (c *Client) Complete(ctx context.Context, model, prompt string, maxTokens int) metrics.Outcome {
	start := time.Now()
	var ttfb time.Duration
	trace := &httptrace.ClientTrace{
		GotFirstResponseByte: func() { ttfb = time.Since(start) },
	}
	ctx = httptrace.WithClientTrace(ctx, trace)

	resp, err := c.oa.CreateChatCompletion(ctx, completionRequest(model, prompt, maxTokens, false))
	if err != nil {
		kind, status := Classify(err)
		return metrics.Failure(model, kind, status)
	}
	total := time.Since(start)

	outcome := metrics.Outcome{
		Model:       model,
		OK:          true,
		Total:       total,
		TimeToFirst: ttfb,
	}
	if resp.Usage.CompletionTokens > 0 {
		outcome.Tokens = resp.Usage.CompletionTokens
		outcome.UsageExact = true
	} else if len(resp.Choices) > 0 {
		outcome.Tokens = EstimateTokens(resp.Choices[0].Message.Content)
	}
	return outcome
}

// CompleteStream issues one streaming chat completion and consumes the SSE
// body event by event. It records the first-chunk and last-chunk instants,
// prefers the provider-reported usage payload for the token count and falls
// back to estimation when the stream ends without one. A stream that closes
// before any data event is a network failure.
func (c *Client) CompleteStream(ctx context.Context, model, prompt string, maxTokens int) metrics.Outcome {
	start := time.Now()

	stream, err := c.oa.CreateChatCompletionStream(ctx, completionRequest(model, prompt, maxTokens, true))
	if err != nil {
		kind, status := Classify(err)
		return metrics.Failure(model, kind, status)
	}
	defer stream.Close()

	var (
		firstChunk time.Time
		lastChunk  time.Time
		content    string
		usage      *openai.Usage
	)

	for {
		resp, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			kind, status := Classify(err)
			return metrics.Failure(model, kind, status)
		}

		now := time.Now()
		if firstChunk.IsZero() {
			firstChunk = now
		}
		lastChunk = now

		if len(resp.Choices) > 0 {
			content += resp.Choices[0].Delta.Content
		}
		if resp.Usage != nil {
			usage = resp.Usage
		}
	}

	if firstChunk.IsZero() {
		return metrics.Failure(model, metrics.ErrorNetwork, 0)
	}

	outcome := metrics.Outcome{
		Model:       model,
		OK:          true,
		Total:       lastChunk.Sub(start),
		TimeToFirst: firstChunk.Sub(start),
		Generation:  lastChunk.Sub(firstChunk),
	}
	if usage != nil && usage.CompletionTokens > 0 {
		outcome.Tokens = usage.CompletionTokens
		outcome.UsageExact = true
	} else {
		outcome.Tokens = EstimateTokens(content)
	}
	return outcome
}

func completionRequest(model, prompt string, maxTokens int, stream bool) openai.ChatCompletionRequest {
	req := openai.ChatCompletionRequest{
		Model: model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleUser,
				Content: prompt,
			},
		},
		// Keep the deprecated MaxTokens for older API servers.
		MaxTokens:           maxTokens,
		MaxCompletionTokens: maxTokens,
	}
	if stream {
		req.Stream = true
		req.StreamOptions = &openai.StreamOptions{IncludeUsage: true}
	}
	return req
}

// EstimateTokens approximates a completion-token count as one token per four
// characters of generated text. The fallback only applies when the provider
// did not report exact usage.
func EstimateTokens(content string) int {
	if content == "" {
		return 0
	}
	return int(math.Ceil(float64(len(content)) / 4.0))
}

// Classify maps a transport-level error onto the failure taxonomy, retaining
// the HTTP status code for non-2xx responses.
func Classify(err error) (metrics.ErrorKind, int) {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) && apiErr.HTTPStatusCode > 0 {
		return kindForStatus(apiErr.HTTPStatusCode), apiErr.HTTPStatusCode
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) && reqErr.HTTPStatusCode > 0 {
		return kindForStatus(reqErr.HTTPStatusCode), reqErr.HTTPStatusCode
	}

	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
		return metrics.ErrorParse, 0
	}

	return metrics.ErrorNetwork, 0
}

func kindForStatus(status int) metrics.ErrorKind {
	if status >= 500 {
		return metrics.ErrorHTTP5xx
	}
	return metrics.ErrorHTTP4xx
}
