package server

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"chatbench/internal/api"
	"chatbench/server"
)

func Run() error {
	server.AppLogger = server.NewLogger()

	creds, err := server.CredentialsFromEnvironment()
	if err != nil {
		return err
	}
	if creds.APIKey == "" {
		server.AppLogger.Warn("API_KEY not set, sending unauthenticated requests")
	}
	client := api.NewClient(creds.BaseURL, creds.APIKey, api.DefaultClientOptions())

	if os.Getenv("GIN_MODE") == "" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	jobManager := server.SetupRoutes(router, client, client)

	// Periodically drop finished jobs so the job map does not grow forever.
	go func() {
		for range time.Tick(time.Hour) {
			jobManager.CleanupOldJobs(24 * time.Hour)
		}
	}()

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	srv := &http.Server{
		Addr:           fmt.Sprintf(":%s", port),
		Handler:        router,
		ReadTimeout:    5 * time.Minute,
		WriteTimeout:   0, // long-running jobs stream progress over WebSocket
		MaxHeaderBytes: 1 << 20,
	}

	go func() {
		server.AppLogger.Info("Server starting on port %s", port)
		server.AppLogger.Info("API endpoints available at http://localhost:%s/api", port)
		server.AppLogger.Info("Progress WebSocket available at ws://localhost:%s/ws", port)

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			server.AppLogger.Fatal("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	server.AppLogger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		server.AppLogger.Error("Server forced to shutdown: %v", err)
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	server.AppLogger.Info("Server exited gracefully")
	return nil
}
