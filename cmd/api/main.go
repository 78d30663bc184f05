package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/dvloznov/youtube-trending/internal/api/handlers"
	"github.com/dvloznov/youtube-trending/internal/api/middleware"
	"github.com/dvloznov/youtube-trending/internal/bootstrap"
	"github.com/dvloznov/youtube-trending/internal/jobs"
	"github.com/dvloznov/youtube-trending/internal/jobs/inmemory"
	"github.com/dvloznov/youtube-trending/internal/logger"
	"github.com/dvloznov/youtube-trending/internal/pipeline"
)

func main() {
	port := flag.Int("port", 0, "HTTP server port (overrides server.port)")
	flag.Parse()

	cfg, err := bootstrap.LoadConfig()
	if err != nil {
		bootLog := logger.New()
		bootLog.Fatal().Err(err).Msg("Failed to load configuration")
	}
	if *port != 0 {
		cfg.Server.Port = *port
	}

	log := bootstrap.CreateLogger(cfg, "api")
	ctx := logger.WithContext(context.Background(), log)

	app, err := bootstrap.New(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize application")
	}
	defer app.Close()

	// Initialize job infrastructure
	jobStore := inmemory.NewStore()
	jobQueue := inmemory.NewQueue(inmemory.QueueConfig{
		BufferSize: cfg.Queue.Size,
		Workers:    cfg.Queue.Workers,
		MaxRetries: cfg.Queue.MaxRetries,
		Backoff:    cfg.Queue.Backoff,
		Retryable:  pipeline.IsRetryable,
	}, jobStore)

	workerCtx, cancelWorker := context.WithCancel(ctx)
	defer cancelWorker()

	log.Info().Int("workers", cfg.Queue.Workers).Msg("Starting job workers")
	if err := jobQueue.Start(workerCtx, jobs.MaterializeHandler(app.Materializer)); err != nil {
		log.Fatal().Err(err).Msg("Failed to start job consumer")
	}

	// Initialize handlers
	assetsHandler := handlers.NewAssetsHandler(app.Graph, app.Store, jobQueue, log)
	jobsHandler := handlers.NewJobsHandler(jobStore, log)

	mux := http.NewServeMux()

	// Asset endpoints
	mux.HandleFunc("/api/assets", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			assetsHandler.ListAssets(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/partitions", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			assetsHandler.ListPartitions(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/materializations", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			assetsHandler.EnqueueMaterialization(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/datasets/metadata", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			assetsHandler.DatasetMetadata(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	// Run history lives in BigQuery
	if runs := app.Runs(); runs != nil {
		runsHandler := handlers.NewRunsHandler(runs, log)
		mux.HandleFunc("/api/runs", func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodGet {
				runsHandler.ListRuns(w, r)
			} else {
				middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
			}
		})
	}

	// Jobs endpoints
	mux.HandleFunc("/api/jobs", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			jobsHandler.ListJobs(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/jobs/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			jobID := strings.TrimPrefix(r.URL.Path, "/api/jobs/")
			if jobID == "" {
				middleware.WriteError(w, http.StatusBadRequest, "Job ID is required")
				return
			}
			jobsHandler.GetJob(w, r, jobID)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteJSON(w, http.StatusOK, map[string]string{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	})

	handler := middleware.Recovery(log)(
		middleware.Logger(log)(
			middleware.RequestID(log)(
				middleware.CORS(mux),
			),
		),
	)

	addr := ":" + strconv.Itoa(cfg.Server.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("Starting API server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	// Stop job queue and wait for in-flight jobs
	cancelWorker()
	if err := jobQueue.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error stopping job queue")
	}
	if err := jobQueue.Close(); err != nil {
		log.Error().Err(err).Msg("Failed to close job queue")
	}

	log.Info().Msg("Server exited")
}
