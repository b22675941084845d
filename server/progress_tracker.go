package server

import (
	"sync"
	"time"

	"chatbench/internal/metrics"
)

// ProgressTracker counts completed units for one job and broadcasts throttled
// progress updates over the hub.
type ProgressTracker struct {
	JobID      string
	StartTime  time.Time
	TotalUnits int

	hub              *Hub
	mutex            sync.Mutex
	completedUnits   int
	status           string // "running", "completed", "failed"
	lastBroadcast    time.Time
	throttleInterval time.Duration
}

func NewProgressTracker(jobID string, totalUnits int, hub *Hub) *ProgressTracker {
	return &ProgressTracker{
		JobID:            jobID,
		StartTime:        time.Now(),
		TotalUnits:       totalUnits,
		hub:              hub,
		status:           "running",
		throttleInterval: time.Second,
	}
}

// UnitCompleted records one finished unit of work and broadcasts if the
// throttle interval has elapsed.
func (pt *ProgressTracker) UnitCompleted() {
	pt.mutex.Lock()
	defer pt.mutex.Unlock()

	pt.completedUnits++

	now := time.Now()
	if now.Sub(pt.lastBroadcast) >= pt.throttleInterval {
		pt.broadcast(MessageTypeProgress, pt.progressLocked())
		pt.lastBroadcast = now
	}
}

// Progress returns the current progress snapshot.
func (pt *ProgressTracker) Progress() ProgressUpdate {
	pt.mutex.Lock()
	defer pt.mutex.Unlock()
	return pt.progressLocked()
}

func (pt *ProgressTracker) progressLocked() ProgressUpdate {
	progress := 0.0
	if pt.TotalUnits > 0 {
		progress = float64(pt.completedUnits) / float64(pt.TotalUnits) * 100
	}
	return ProgressUpdate{
		JobID:          pt.JobID,
		Status:         pt.status,
		CompletedUnits: pt.completedUnits,
		TotalUnits:     pt.TotalUnits,
		Progress:       progress,
		ElapsedTime:    time.Since(pt.StartTime).Seconds(),
	}
}

// Complete marks the job finished and broadcasts the final report
// immediately, bypassing the throttle.
func (pt *ProgressTracker) Complete(report metrics.Report) {
	pt.mutex.Lock()
	defer pt.mutex.Unlock()

	pt.status = "completed"
	pt.completedUnits = pt.TotalUnits
	pt.broadcast(MessageTypeComplete, CompletionMessage{
		JobID:    pt.JobID,
		Status:   "completed",
		Report:   report,
		Duration: time.Since(pt.StartTime).Seconds(),
	})
}

// Fail marks the job failed and broadcasts the error immediately.
func (pt *ProgressTracker) Fail(message string) {
	pt.mutex.Lock()
	defer pt.mutex.Unlock()

	pt.status = "failed"
	pt.broadcast(MessageTypeError, map[string]string{
		"jobId":   pt.JobID,
		"error":   "Benchmark failed",
		"message": message,
	})
}

func (pt *ProgressTracker) broadcast(msgType string, data interface{}) {
	if pt.hub == nil {
		return
	}
	if payload, err := newMessage(msgType, pt.JobID, data).ToJSON(); err == nil {
		pt.hub.BroadcastMessage(payload)
	}
}
