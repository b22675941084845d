package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"chatbench/internal/runner"
)

// SetupRoutes configures all HTTP routes for the server.
func SetupRoutes(router *gin.Engine, exec runner.Executor, catalog runner.Catalog) *JobManager {
	hub := NewHub()
	jobManager := NewJobManager(exec, catalog, hub)
	handlers := NewHandlers(jobManager, catalog)

	router.Use(RecoveryMiddleware())
	router.Use(CORSMiddleware())
	router.Use(LoggingMiddleware())

	api := router.Group("/api")
	{
		api.GET("/health", handlers.Health)
		api.GET("/models", handlers.Models)
		api.POST("/benchmarks", handlers.StartBenchmark)
		api.GET("/jobs", handlers.ListJobs)
		api.GET("/jobs/:jobId", handlers.JobStatus)
	}

	// WebSocket endpoint for real-time progress broadcasts.
	router.GET("/ws", func(c *gin.Context) {
		hub.ServeWS(c.Writer, c.Request)
	})

	router.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "chatbench API",
			"status":  "ok",
			"endpoints": gin.H{
				"health":     "/api/health",
				"models":     "/api/models",
				"benchmarks": "POST /api/benchmarks",
				"jobs":       "/api/jobs",
				"progress":   "ws://<host>/ws",
			},
		})
	})

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, ErrorResponse{
			Error:   "Not Found",
			Message: "The requested endpoint does not exist",
			Code:    http.StatusNotFound,
		})
	})

	return jobManager
}
