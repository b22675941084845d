package metrics

import "time"

// Kind identifies a benchmark scenario family.
type Kind string

const (
	LatencyRegular      Kind = "latency"
	LatencyStreaming    Kind = "latency-streaming"
	ThroughputStreaming Kind = "throughput-streaming"
)

// Streaming reports whether the kind uses the streaming transport.
func (k Kind) Streaming() bool {
	return k == LatencyStreaming || k == ThroughputStreaming
}

// ErrorKind classifies a failed request.
type ErrorKind string

const (
	ErrorNone    ErrorKind = ""
	ErrorNetwork ErrorKind = "network"
	ErrorHTTP4xx ErrorKind = "http_4xx"
	ErrorHTTP5xx ErrorKind = "http_5xx"
	ErrorParse   ErrorKind = "parse"
)

// Outcome is the result of a single unit of work. It is created once by the
// worker that ran the request and handed to the collector by value; failed
// outcomes carry an error classification instead of timing samples.
type Outcome struct {
	Model       string
	OK          bool
	Total       time.Duration // request start to fully received / stream end
	TimeToFirst time.Duration // TTFB (plain) or TTFC (streaming)
	Generation  time.Duration // last chunk minus first chunk, streaming only
	Tokens      int           // completion tokens, exact or estimated
	UsageExact  bool          // true when tokens came from provider usage
	Err         ErrorKind
	StatusCode  int // retained for http_4xx / http_5xx
}

// Failure builds a failed outcome for a model.
func Failure(model string, kind ErrorKind, status int) Outcome {
	return Outcome{Model: model, Err: kind, StatusCode: status}
}
