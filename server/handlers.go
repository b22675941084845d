package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"chatbench/internal/metrics"
	"chatbench/internal/runner"
)

// Handlers binds the HTTP API to a job manager and model catalog.
type Handlers struct {
	jobManager *JobManager
	catalog    runner.Catalog
}

func NewHandlers(jobManager *JobManager, catalog runner.Catalog) *Handlers {
	return &Handlers{jobManager: jobManager, catalog: catalog}
}

// Health reports server liveness.
func (h *Handlers) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"time":   time.Now().UTC(),
	})
}

// Models lists every model the target endpoint advertises.
func (h *Handlers) Models(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 30*time.Second)
	defer cancel()

	models, err := h.catalog.ListModels(ctx)
	if err != nil {
		c.JSON(http.StatusBadGateway, ErrorResponse{
			Error:   "Model discovery failed",
			Message: err.Error(),
			Code:    http.StatusBadGateway,
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"models": models, "count": len(models)})
}

// StartBenchmark creates and starts an asynchronous benchmark job.
func (h *Handlers) StartBenchmark(c *gin.Context) {
	var req BenchmarkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "Invalid request body",
			Message: err.Error(),
			Code:    http.StatusBadRequest,
		})
		return
	}

	kind, ok := parseKind(req.Kind)
	if !ok {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "Unknown benchmark kind",
			Message: "kind must be latency, latency-streaming or throughput-streaming",
			Code:    http.StatusBadRequest,
		})
		return
	}
	if req.Requests < 0 || req.Concurrency < 0 {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "Invalid request",
			Message: "requests and concurrency must be positive",
			Code:    http.StatusBadRequest,
		})
		return
	}

	models := req.Models
	if len(models) == 0 {
		models = DefaultModelsFromEnvironment()
	}

	scenario := runner.Scenario{
		Kind:        kind,
		Models:      models,
		Requests:    defaultInt(req.Requests, 50),
		Concurrency: defaultInt(req.Concurrency, 5),
		MaxTokens:   req.MaxTokens,
		Prompt:      req.Prompt,
	}

	jobID, err := h.jobManager.CreateJob(scenario)
	if err != nil {
		c.JSON(http.StatusBadGateway, ErrorResponse{
			Error:   "Failed to create job",
			Message: err.Error(),
			Code:    http.StatusBadGateway,
		})
		return
	}
	if err := h.jobManager.StartJob(jobID); err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "Failed to start job",
			Message: err.Error(),
			Code:    http.StatusInternalServerError,
		})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"jobId":  jobID,
		"status": "running",
	})
}

// JobStatus returns the state, progress and (when finished) report of a job.
func (h *Handlers) JobStatus(c *gin.Context) {
	jobID := c.Param("jobId")
	job, exists := h.jobManager.GetJob(jobID)
	if !exists {
		c.JSON(http.StatusNotFound, ErrorResponse{
			Error:   "Job not found",
			Message: jobID,
			Code:    http.StatusNotFound,
		})
		return
	}

	response := gin.H{
		"jobId":     job.ID,
		"status":    job.Status,
		"createdAt": job.CreatedAt,
		"progress":  job.Progress.Progress(),
	}
	if job.Status == "completed" {
		response["report"] = job.Report
	}
	if job.Error != "" {
		response["error"] = job.Error
	}
	c.JSON(http.StatusOK, response)
}

// ListJobs returns summaries for every known job.
func (h *Handlers) ListJobs(c *gin.Context) {
	jobs := h.jobManager.ListJobs()
	summaries := make([]gin.H, 0, len(jobs))
	for _, job := range jobs {
		summaries = append(summaries, gin.H{
			"jobId":     job.ID,
			"status":    job.Status,
			"kind":      job.Scenario.Kind,
			"createdAt": job.CreatedAt,
		})
	}
	c.JSON(http.StatusOK, gin.H{"jobs": summaries, "count": len(summaries)})
}

func parseKind(s string) (metrics.Kind, bool) {
	switch metrics.Kind(s) {
	case metrics.LatencyRegular, metrics.LatencyStreaming, metrics.ThroughputStreaming:
		return metrics.Kind(s), true
	default:
		return "", false
	}
}

func defaultInt(v, fallback int) int {
	if v <= 0 {
		return fallback
	}
	return v
}
