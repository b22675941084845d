package server

import (
	"encoding/json"
	"time"

	"chatbench/internal/metrics"
)

// BenchmarkRequest is the POST /api/benchmarks payload.
type BenchmarkRequest struct {
	Kind        string   `json:"kind" binding:"required"` // latency | latency-streaming | throughput-streaming
	Models      []string `json:"models"`
	Requests    int      `json:"requests"`
	Concurrency int      `json:"concurrency"`
	MaxTokens   int      `json:"maxTokens"`
	Prompt      string   `json:"prompt"`
}

// ErrorResponse is the JSON body for failed API calls.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Code    int    `json:"code"`
}

// WebSocket message types broadcast over the progress hub.
const (
	MessageTypeProgress = "progress"
	MessageTypeStatus   = "status"
	MessageTypeError    = "error"
	MessageTypeComplete = "complete"
)

// WebSocketMessage is the envelope for every hub broadcast.
type WebSocketMessage struct {
	Type      string      `json:"type"`
	JobID     string      `json:"jobId,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data,omitempty"`
}

func (m WebSocketMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func newMessage(msgType, jobID string, data interface{}) WebSocketMessage {
	return WebSocketMessage{
		Type:      msgType,
		JobID:     jobID,
		Timestamp: time.Now(),
		Data:      data,
	}
}

// ProgressUpdate reports how far a running job has progressed.
type ProgressUpdate struct {
	JobID          string  `json:"jobId"`
	Status         string  `json:"status"`
	CompletedUnits int     `json:"completedUnits"`
	TotalUnits     int     `json:"totalUnits"`
	Progress       float64 `json:"progress"` // 0-100
	ElapsedTime    float64 `json:"elapsedTime"`
}

// CompletionMessage carries the final report for a finished job.
type CompletionMessage struct {
	JobID    string         `json:"jobId"`
	Status   string         `json:"status"`
	Report   metrics.Report `json:"report"`
	Duration float64        `json:"duration"`
}
