// Package main is the entrypoint for the Vocalless API server.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gofrs/flock"

	"github.com/vocalless/vocalless/internal/api"
	"github.com/vocalless/vocalless/internal/api/handler"
	mw "github.com/vocalless/vocalless/internal/api/middleware"
	"github.com/vocalless/vocalless/internal/api/response"
	"github.com/vocalless/vocalless/internal/cache"
	"github.com/vocalless/vocalless/internal/config"
	"github.com/vocalless/vocalless/internal/jobs"
	"github.com/vocalless/vocalless/internal/media/demucs"
	"github.com/vocalless/vocalless/internal/media/ffmpeg"
	"github.com/vocalless/vocalless/internal/media/ytdlp"
	"github.com/vocalless/vocalless/internal/metadata"
	"github.com/vocalless/vocalless/internal/pipeline"
	"github.com/vocalless/vocalless/internal/upload/youtube"
)

const shutdownTimeout = 30 * time.Second

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := run(); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Load config — fail fast on invalid config
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, closeLog := config.SetupLogger(cfg.Logging, slog.LevelInfo)
	slog.SetDefault(logger)
	defer closeLog()
	slog.Info("config loaded", "metadata_provider", cfg.Metadata.Provider, "env", cfg.Server.Env)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Prepare the workspace and take the instance lock. Jobs rename files
	// between these directories, so one process owns the tree at a time.
	dirs := []string{
		cfg.Workspace.Temp,
		cfg.Workspace.Uploads,
		filepath.Join(cfg.Workspace.Output, "instrumentals"),
		filepath.Join(cfg.Workspace.Output, "acapellas"),
		filepath.Join(cfg.Workspace.Output, "videos"),
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create workspace dir %s: %w", dir, err)
		}
	}

	lock := flock.New(filepath.Join(cfg.Workspace.Root, "vocalless.lock"))
	locked, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire workspace lock: %w", err)
	}
	if !locked {
		return fmt.Errorf("workspace %s is in use by another instance", cfg.Workspace.Root)
	}
	defer lock.Unlock()

	// 3. Create Redis cache
	redisCache, err := cache.NewRedisCache(cfg.Redis.URL)
	if err != nil {
		return fmt.Errorf("create redis cache: %w", err)
	}
	defer redisCache.Close()

	if err := redisCache.Ping(ctx); err != nil {
		return fmt.Errorf("ping redis: %w", err)
	}
	slog.Info("redis connected")

	// 4. Create metadata provider
	provider, err := metadata.NewProvider(cfg.Metadata)
	if err != nil {
		return fmt.Errorf("create metadata provider: %w", err)
	}
	slog.Info("metadata provider initialized", "provider", provider.Name())

	// 5. Build the pipeline stages
	fetcher := ytdlp.NewClient(cfg.Pipeline.YTDLPPath, cfg.Workspace.Temp, cfg.Workspace.Uploads, logger)
	uploader := youtube.NewClient(cfg.Upload, logger)
	if !uploader.Enabled() {
		slog.Info("external upload disabled: no token configured")
	}

	stages := pipeline.Stages{
		Fetch: pipeline.NewCachedFetcher(fetcher, redisCache, logger),
		Separate: demucs.NewSeparator(
			cfg.Pipeline.DemucsPath, cfg.Pipeline.DemucsModel, cfg.Workspace.Temp,
			filepath.Join(cfg.Workspace.Output, "instrumentals"),
			filepath.Join(cfg.Workspace.Output, "acapellas"),
			logger),
		Master:   ffmpeg.NewMasterer(cfg.Pipeline.FFmpegPath, cfg.Pipeline.TargetLoudness, logger),
		Metadata: provider,
		Compose:  ffmpeg.NewComposer(cfg.Pipeline.FFmpegPath, filepath.Join(cfg.Workspace.Output, "videos"), logger),
		Upload:   uploader,
	}
	runner := pipeline.NewRunner(stages, cfg.Workspace.Output, "/output", logger)

	// 6. Create the job store and scheduler
	store := jobs.NewStore()
	scheduler := jobs.NewScheduler(store, runner, cfg.Pipeline.DefaultItemTime, logger)

	// 7. Build router with dependencies
	deps := api.Dependencies{
		Auth:      mw.NewAuth(cfg.Auth.APIKeyHash),
		RateLimit: mw.NewRateLimit(redisCache, cfg.Server.RequestsPerMinute),

		HealthHandler: healthHandler(redisCache),
		SubmitHandler: handler.NewSubmitHandler(store, scheduler),
		StatusHandler: handler.NewStatusHandler(store),
		CancelHandler: handler.NewCancelHandler(store),
		ListHandler:   handler.NewListJobsHandler(store),
		UploadHandler: handler.NewUploadHandler(cfg.Workspace.Uploads),
		FilesHandler:  handler.NewFilesHandler(cfg.Workspace.Output),
	}

	router := api.NewRouter(deps)

	// 8. Start HTTP server
	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in background
	errCh := make(chan error, 1)
	go func() {
		slog.Info("server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	// Wait for shutdown signal or server error
	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		slog.Info("shutdown signal received, draining connections...")
	}

	// Graceful shutdown with timeout. In-flight jobs do not survive: the store
	// is process-lifetime and pollers see NotFound after a restart.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	slog.Info("server stopped gracefully")
	return nil
}

// healthHandler checks cache connectivity.
func healthHandler(c cache.Cache) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		checks := map[string]string{
			"cache": "ok",
		}

		if err := c.Ping(r.Context()); err != nil {
			checks["cache"] = "degraded"
		}

		if checks["cache"] != "ok" {
			response.Error(w, http.StatusServiceUnavailable, "DEGRADED",
				"One or more services degraded", checks)
			return
		}

		response.JSON(w, map[string]any{
			"status":   "ok",
			"services": checks,
		})
	}
}
