// Package main is the entry point for the casting platform orchestration daemon.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/aditya1513/casting-ai-sub015/internal/agent/docker"
	"github.com/aditya1513/casting-ai-sub015/internal/agent/monitor"
	"github.com/aditya1513/casting-ai-sub015/internal/common/config"
	"github.com/aditya1513/casting-ai-sub015/internal/common/database"
	"github.com/aditya1513/casting-ai-sub015/internal/common/httpmw"
	"github.com/aditya1513/casting-ai-sub015/internal/common/logger"
	"github.com/aditya1513/casting-ai-sub015/internal/common/tracing"
	"github.com/aditya1513/casting-ai-sub015/internal/events"
	"github.com/aditya1513/casting-ai-sub015/internal/orchestrator"
	"github.com/aditya1513/casting-ai-sub015/internal/orchestrator/handlers"
	"github.com/aditya1513/casting-ai-sub015/internal/report"
	"github.com/aditya1513/casting-ai-sub015/internal/trigger"
)

func main() {
	// 1. Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// 2. Initialize logger
	log, err := logger.NewLogger(logger.LoggingConfig{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		OutputPath: cfg.Logging.OutputPath,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()
	logger.SetDefault(log)

	log.Info("Starting orchestration daemon...")

	// 3. Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 4. Connect the event bus (NATS when configured, in-process otherwise)
	provided, busCleanup, err := events.Provide(cfg, log)
	if err != nil {
		log.Fatal("Failed to initialize event bus", zap.Error(err))
	}
	defer busCleanup()
	eventBus := provided.Bus

	// 5. Connect to PostgreSQL. The infrastructure probe degrades without it.
	var db *database.DB
	if cfg.Database.Host != "" {
		db, err = database.NewDB(ctx, cfg.Database)
		if err != nil {
			log.Warn("Database unavailable, infrastructure probe degraded", zap.Error(err))
			db = nil
		} else {
			defer db.Close()
			log.Info("Connected to PostgreSQL")
		}
	}

	// 6. Connect to Docker when enabled. Also probe-only.
	var dockerClient *docker.Client
	if cfg.Docker.Enabled {
		dockerClient, err = docker.NewClient(cfg.Docker, log)
		if err != nil {
			log.Warn("Docker unavailable, infrastructure probe degraded", zap.Error(err))
			dockerClient = nil
		} else {
			defer dockerClient.Close()
			log.Info("Connected to Docker daemon")
		}
	}

	// 7. Build the six agent monitors
	monitors := monitor.BuildAll(cfg.Monitors, monitor.Deps{
		Bus:    eventBus,
		DB:     db,
		Docker: dockerClient,
	}, log)

	// 8. Create the trigger processor and report generator
	processor := trigger.NewProcessor(cfg.Triggers, eventBus, log)
	reporter := report.NewGenerator(log)

	// 9. Create the orchestration service and point the processor at it
	service := orchestrator.NewService(cfg.Orchestrator, monitors, processor, reporter, eventBus, log)
	processor.SetDirectory(service)

	// 10. Start the control loop
	if err := service.Start(ctx); err != nil {
		log.Fatal("Failed to start orchestration service", zap.Error(err))
	}
	log.Info("Orchestration service started")

	// 11. Setup HTTP server with Gin
	if cfg.Logging.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(httpmw.RequestLogger(log, "castingd"))
	router.Use(httpmw.OtelTracing("castingd"))

	// 12. Register API routes
	handlers.RegisterRoutes(router, service, log)

	// 13. Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// 14. Create HTTP server
	port := cfg.Server.Port
	if port == 0 {
		port = 8090
	}
	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeoutDuration(),
		WriteTimeout: cfg.Server.WriteTimeoutDuration(),
	}

	// 15. Start server in goroutine
	go func() {
		log.Info("HTTP server listening", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start HTTP server", zap.Error(err))
		}
	}()

	// 16. Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down orchestration daemon...")

	// 17. Graceful shutdown
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown error", zap.Error(err))
	}

	if err := service.Stop(shutdownCtx); err != nil {
		log.Error("Orchestration service stop error", zap.Error(err))
	}

	if err := tracing.Shutdown(shutdownCtx); err != nil {
		log.Error("Tracing shutdown error", zap.Error(err))
	}

	log.Info("Orchestration daemon stopped")
}
