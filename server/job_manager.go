package server

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"chatbench/internal/metrics"
	"chatbench/internal/runner"
)

// JobManager runs benchmark scenarios asynchronously and keeps their state.
type JobManager struct {
	jobs    map[string]*BenchmarkJob
	mutex   sync.RWMutex
	hub     *Hub
	exec    runner.Executor
	catalog runner.Catalog
}

// BenchmarkJob is one asynchronous benchmark run.
type BenchmarkJob struct {
	ID          string
	Status      string // "queued", "running", "completed", "failed"
	Scenario    runner.Scenario
	Progress    *ProgressTracker
	Report      metrics.Report
	Error       string
	CreatedAt   time.Time
	StartedAt   *time.Time
	CompletedAt *time.Time
}

func NewJobManager(exec runner.Executor, catalog runner.Catalog, hub *Hub) *JobManager {
	return &JobManager{
		jobs:    make(map[string]*BenchmarkJob),
		hub:     hub,
		exec:    exec,
		catalog: catalog,
	}
}

// CreateJob registers a new benchmark job and returns its ID. When the
// scenario names no models the catalog is consulted up front so progress
// totals are known; a failed lookup fails job creation.
func (jm *JobManager) CreateJob(scenario runner.Scenario) (string, error) {
	models := scenario.Models
	if len(models) == 0 {
		discovered, err := jm.catalog.ListModels(context.Background())
		if err != nil {
			return "", fmt.Errorf("model discovery failed: %w", err)
		}
		models = discovered
		scenario.Models = discovered
	}

	unitsPerModel := scenario.Requests
	if scenario.Kind == metrics.ThroughputStreaming {
		unitsPerModel = scenario.Concurrency
	}

	jm.mutex.Lock()
	defer jm.mutex.Unlock()

	jobID := uuid.New().String()
	job := &BenchmarkJob{
		ID:        jobID,
		Status:    "queued",
		Scenario:  scenario,
		Progress:  NewProgressTracker(jobID, unitsPerModel*len(models), jm.hub),
		CreatedAt: time.Now(),
	}
	jm.jobs[jobID] = job

	AppLogger.Info("Created benchmark job %s (%s, %d models)", jobID, scenario.Kind, len(models))
	return jobID, nil
}

// GetJob returns a snapshot of a job by ID. The executor goroutine mutates
// job state under the manager mutex, so callers only ever see a copy taken
// under the same lock.
func (jm *JobManager) GetJob(jobID string) (BenchmarkJob, bool) {
	jm.mutex.RLock()
	defer jm.mutex.RUnlock()

	job, exists := jm.jobs[jobID]
	if !exists {
		return BenchmarkJob{}, false
	}
	return *job, true
}

// ListJobs returns a snapshot of every known job.
func (jm *JobManager) ListJobs() []BenchmarkJob {
	jm.mutex.RLock()
	defer jm.mutex.RUnlock()

	jobs := make([]BenchmarkJob, 0, len(jm.jobs))
	for _, job := range jm.jobs {
		jobs = append(jobs, *job)
	}
	return jobs
}

// StartJob begins executing a queued job in the background.
func (jm *JobManager) StartJob(jobID string) error {
	jm.mutex.Lock()
	job, exists := jm.jobs[jobID]
	if !exists {
		jm.mutex.Unlock()
		return fmt.Errorf("job %s not found", jobID)
	}
	if job.Status != "queued" {
		jm.mutex.Unlock()
		return fmt.Errorf("job %s is not in queued status (current: %s)", jobID, job.Status)
	}

	job.Status = "running"
	now := time.Now()
	job.StartedAt = &now
	jm.mutex.Unlock()

	go jm.executeJob(job)

	AppLogger.Info("Started benchmark job %s", jobID)
	return nil
}

func (jm *JobManager) executeJob(job *BenchmarkJob) {
	defer func() {
		if r := recover(); r != nil {
			AppLogger.Error("Job %s panicked: %v", job.ID, r)
			jm.finishJob(job, metrics.Report{}, fmt.Errorf("internal error: %v", r))
		}
	}()

	r := runner.New(jm.exec, jm.catalog)
	r.OnOutcome = func(metrics.Outcome) { job.Progress.UnitCompleted() }

	report, err := r.Run(context.Background(), job.Scenario)
	jm.finishJob(job, report, err)
}

func (jm *JobManager) finishJob(job *BenchmarkJob, report metrics.Report, err error) {
	jm.mutex.Lock()
	defer jm.mutex.Unlock()

	now := time.Now()
	job.CompletedAt = &now
	job.Report = report

	if err != nil {
		job.Status = "failed"
		job.Error = err.Error()
		job.Progress.Fail(err.Error())
		AppLogger.Error("Job %s failed: %v", job.ID, err)
		return
	}

	job.Status = "completed"
	job.Progress.Complete(report)
	AppLogger.Info("Job %s completed", job.ID)
}

// CleanupOldJobs removes finished jobs older than maxAge.
func (jm *JobManager) CleanupOldJobs(maxAge time.Duration) {
	jm.mutex.Lock()
	defer jm.mutex.Unlock()

	cutoff := time.Now().Add(-maxAge)
	for jobID, job := range jm.jobs {
		if job.CompletedAt != nil && job.CompletedAt.Before(cutoff) {
			delete(jm.jobs, jobID)
			AppLogger.Info("Cleaned up old job %s", jobID)
		}
	}
}
