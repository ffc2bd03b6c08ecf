// Package main is the entrypoint for the resumatch API server.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/resumatch/resumatch/internal/ai"
	"github.com/resumatch/resumatch/internal/api"
	"github.com/resumatch/resumatch/internal/api/handler"
	mw "github.com/resumatch/resumatch/internal/api/middleware"
	"github.com/resumatch/resumatch/internal/cache"
	"github.com/resumatch/resumatch/internal/config"
	"github.com/resumatch/resumatch/internal/extract"
	"github.com/resumatch/resumatch/internal/pipeline"
	"github.com/resumatch/resumatch/internal/scheduler"
	"github.com/resumatch/resumatch/internal/store"
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
	// .env is optional; real deployments set the environment directly
	_ = godotenv.Load()

	// 1. Load config — fail fast on invalid config
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	slog.Info("config loaded", "env", cfg.Server.Env, "tick_interval", cfg.Scheduler.TickInterval)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Connect to database
	pool, err := store.Connect(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()
	slog.Info("database connected")

	// 3. Run migrations
	if err := store.RunMigrations(cfg.Database.URL, "migrations"); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	slog.Info("database migrations applied")

	// 4. Create Redis cache
	redisCache, err := cache.NewRedisCache(cfg.Redis.URL)
	if err != nil {
		return fmt.Errorf("create redis cache: %w", err)
	}
	defer redisCache.Close()

	if err := redisCache.Ping(ctx); err != nil {
		return fmt.Errorf("ping redis: %w", err)
	}
	slog.Info("redis connected")

	// 5. Create store and bootstrap the first API key if none exists
	pgStore := store.NewPostgresStore(pool)
	if err := bootstrapAPIKey(ctx, pgStore); err != nil {
		return fmt.Errorf("bootstrap api key: %w", err)
	}

	// 6. Build the processing pipeline and scheduler
	factory := ai.NewFactory(cfg.AI)
	extractor := extract.NewExtractor()
	runner := pipeline.NewRunner(pgStore, redisCache, factory, extractor,
		cfg.AI.RequestTimeout, cfg.Scheduler.BackoffWindow)

	sched := scheduler.New(runner, pgStore, factory, cfg.Scheduler)
	go sched.Run(ctx)

	// 7. Build router with dependencies
	deps := api.Dependencies{
		Auth:      mw.NewAuth(pgStore),
		RateLimit: mw.NewRateLimit(redisCache, 60),

		HealthHandler: handler.NewHealthHandler(pgStore, redisCache),

		UploadDocument: handler.NewUploadDocumentHandler(pgStore, cfg.Server.UploadDir),
		ListDocuments:  handler.NewListDocumentsHandler(pgStore),
		GetDocument:    handler.NewGetDocumentHandler(pgStore, redisCache),
		RetryDocument:  handler.NewRetryDocumentHandler(pgStore),

		ListResumes: handler.NewListResumesHandler(pgStore),
		GetResume:   handler.NewGetResumeHandler(pgStore),

		ListPostings: handler.NewListJobPostingsHandler(pgStore),

		CreateCompatibility:  handler.NewCreateCompatibilityHandler(pgStore),
		ScanCompatibilities:  handler.NewScanCompatibilitiesHandler(pgStore),
		ListCompatibilities:  handler.NewListCompatibilitiesHandler(pgStore),
		GetCompatibility:     handler.NewGetCompatibilityHandler(pgStore),
		RequeueCompatibility: handler.NewRequeueCompatibilityHandler(pgStore),

		CreateKey: handler.NewCreateAPIKeyHandler(pgStore),
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

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	slog.Info("server stopped gracefully")
	return nil
}

// bootstrapAPIKey creates a key for the default user when the store has none,
// and logs the raw key exactly once. Without this a fresh install has no way
// to authenticate.
func bootstrapAPIKey(ctx context.Context, st store.Store) error {
	count, err := st.CountAPIKeys(ctx)
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	user, err := st.GetDefaultUser(ctx)
	if err != nil {
		return err
	}
	key, raw, err := handler.GenerateAPIKey(user.ID, "bootstrap")
	if err != nil {
		return err
	}
	if err := st.CreateAPIKey(ctx, key); err != nil {
		return err
	}
	slog.Warn("created bootstrap API key, store it now; it will not be shown again", "key", raw)
	return nil
}
