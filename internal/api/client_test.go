package api

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"chatbench/internal/metrics"
)

func newTestClient(serverURL string) *Client {
	opts := DefaultClientOptions()
	opts.Timeout = 5 * time.Second
	return NewClient(serverURL+"/v1", "test-key", opts)
}

func completionBody(content string, completionTokens int) string {
	return fmt.Sprintf(`{
		"id": "chatcmpl-1",
		"object": "chat.completion",
		"created": 1700000000,
		"model": "gpt-4",
		"choices": [{"index": 0, "message": {"role": "assistant", "content": %q}, "finish_reason": "stop"}],
		"usage": {"prompt_tokens": 10, "completion_tokens": %d, "total_tokens": %d}
	}`, content, completionTokens, 10+completionTokens)
}

func TestCompleteRecordsTimingsAndUsage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("Unexpected path %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, completionBody("hello there", 42))
	}))
	defer server.Close()

	outcome := newTestClient(server.URL).Complete(context.Background(), "gpt-4", "hi", 8)

	if !outcome.OK {
		t.Fatalf("Expected success, got failure %s", outcome.Err)
	}
	if outcome.Tokens != 42 || !outcome.UsageExact {
		t.Errorf("Expected 42 exact usage tokens, got %d (exact=%v)", outcome.Tokens, outcome.UsageExact)
	}
	if outcome.TimeToFirst <= 0 {
		t.Errorf("Expected a positive TTFB, got %v", outcome.TimeToFirst)
	}
	if outcome.Total < outcome.TimeToFirst {
		t.Errorf("Total %v is below TTFB %v", outcome.Total, outcome.TimeToFirst)
	}
}

func TestCompleteEstimatesTokensWithoutUsage(t *testing.T) {
	content := strings.Repeat("abcd", 100) // 400 characters
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, completionBody(content, 0))
	}))
	defer server.Close()

	outcome := newTestClient(server.URL).Complete(context.Background(), "gpt-4", "hi", 8)

	if !outcome.OK {
		t.Fatalf("Expected success, got failure %s", outcome.Err)
	}
	if outcome.UsageExact {
		t.Error("Expected estimated tokens, got exact usage")
	}
	if outcome.Tokens != 100 {
		t.Errorf("Expected 100 estimated tokens for 400 characters, got %d", outcome.Tokens)
	}
}

func TestCompleteClassifiesHTTPStatus(t *testing.T) {
	cases := []struct {
		status int
		kind   metrics.ErrorKind
	}{
		{http.StatusUnauthorized, metrics.ErrorHTTP4xx},
		{http.StatusNotFound, metrics.ErrorHTTP4xx},
		{http.StatusInternalServerError, metrics.ErrorHTTP5xx},
		{http.StatusServiceUnavailable, metrics.ErrorHTTP5xx},
	}

	for _, tc := range cases {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(tc.status)
			fmt.Fprintf(w, `{"error": {"message": "boom", "type": "server_error", "code": %d}}`, tc.status)
		}))

		outcome := newTestClient(server.URL).Complete(context.Background(), "gpt-4", "hi", 8)
		server.Close()

		if outcome.OK {
			t.Errorf("Status %d: expected failure", tc.status)
			continue
		}
		if outcome.Err != tc.kind {
			t.Errorf("Status %d: expected %s, got %s", tc.status, tc.kind, outcome.Err)
		}
		if outcome.StatusCode != tc.status {
			t.Errorf("Status %d: expected retained status code, got %d", tc.status, outcome.StatusCode)
		}
	}
}

func TestCompleteNetworkFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close() // connection refused from here on

	outcome := newTestClient(server.URL).Complete(context.Background(), "gpt-4", "hi", 8)
	if outcome.OK {
		t.Fatal("Expected failure against a closed server")
	}
	if outcome.Err != metrics.ErrorNetwork {
		t.Errorf("Expected network classification, got %s", outcome.Err)
	}
}

func writeSSE(w http.ResponseWriter, data string) {
	fmt.Fprintf(w, "data: %s\n\n", data)
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
}

func streamChunk(content string) string {
	return fmt.Sprintf(`{"id":"chatcmpl-1","object":"chat.completion.chunk","created":1700000000,"model":"gpt-4","choices":[{"index":0,"delta":{"content":%q}}]}`, content)
}

func TestCompleteStreamPrefersReportedUsage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		writeSSE(w, streamChunk("Hello"))
		writeSSE(w, streamChunk(" world"))
		// Terminal usage payload: empty choices, exact token counts.
		writeSSE(w, `{"id":"chatcmpl-1","object":"chat.completion.chunk","created":1700000000,"model":"gpt-4","choices":[],"usage":{"prompt_tokens":10,"completion_tokens":57,"total_tokens":67}}`)
		writeSSE(w, "[DONE]")
	}))
	defer server.Close()

	outcome := newTestClient(server.URL).CompleteStream(context.Background(), "gpt-4", "hi", 512)

	if !outcome.OK {
		t.Fatalf("Expected success, got failure %s", outcome.Err)
	}
	if outcome.Tokens != 57 || !outcome.UsageExact {
		t.Errorf("Expected 57 exact usage tokens, got %d (exact=%v)", outcome.Tokens, outcome.UsageExact)
	}
	if outcome.TimeToFirst <= 0 {
		t.Errorf("Expected a positive TTFC, got %v", outcome.TimeToFirst)
	}
	if outcome.Generation < 0 || outcome.Generation > outcome.Total {
		t.Errorf("Generation duration %v outside [0, %v]", outcome.Generation, outcome.Total)
	}
}

func TestCompleteStreamEstimatesTokensWithoutUsage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		// 400 characters of content across four chunks, no usage payload.
		for i := 0; i < 4; i++ {
			writeSSE(w, streamChunk(strings.Repeat("x", 100)))
		}
		writeSSE(w, "[DONE]")
	}))
	defer server.Close()

	outcome := newTestClient(server.URL).CompleteStream(context.Background(), "gpt-4", "hi", 512)

	if !outcome.OK {
		t.Fatalf("Expected success, got failure %s", outcome.Err)
	}
	if outcome.UsageExact {
		t.Error("Expected estimated tokens, got exact usage")
	}
	if outcome.Tokens != 100 {
		t.Errorf("Expected 100 estimated tokens for 400 characters, got %d", outcome.Tokens)
	}
}

func TestCompleteStreamWithoutChunksIsNetworkFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		writeSSE(w, "[DONE]")
	}))
	defer server.Close()

	outcome := newTestClient(server.URL).CompleteStream(context.Background(), "gpt-4", "hi", 512)
	if outcome.OK {
		t.Fatal("Expected failure for a stream with no data events")
	}
	if outcome.Err != metrics.ErrorNetwork {
		t.Errorf("Expected network classification, got %s", outcome.Err)
	}
}

func TestCompleteStreamHTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		fmt.Fprint(w, `{"error": {"message": "rate limited", "type": "requests"}}`)
	}))
	defer server.Close()

	outcome := newTestClient(server.URL).CompleteStream(context.Background(), "gpt-4", "hi", 512)
	if outcome.OK {
		t.Fatal("Expected failure for a 429 response")
	}
	if outcome.Err != metrics.ErrorHTTP4xx {
		t.Errorf("Expected http_4xx classification, got %s", outcome.Err)
	}
	if outcome.StatusCode != http.StatusTooManyRequests {
		t.Errorf("Expected status 429 retained, got %d", outcome.StatusCode)
	}
}

func TestListModels(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/models" {
			t.Errorf("Unexpected path %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"object":"list","data":[{"id":"gpt-4","object":"model"},{"id":"gpt-3.5-turbo","object":"model"}]}`)
	}))
	defer server.Close()

	models, err := newTestClient(server.URL).ListModels(context.Background())
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if len(models) != 2 || models[0] != "gpt-4" || models[1] != "gpt-3.5-turbo" {
		t.Errorf("Unexpected model list: %v", models)
	}
}

func TestEstimateTokens(t *testing.T) {
	cases := []struct {
		content string
		want    int
	}{
		{"", 0},
		{"abc", 1},
		{"abcd", 1},
		{"abcde", 2},
		{strings.Repeat("x", 400), 100},
	}
	for _, tc := range cases {
		if got := EstimateTokens(tc.content); got != tc.want {
			t.Errorf("EstimateTokens(%d chars): expected %d, got %d", len(tc.content), tc.want, got)
		}
	}
}
