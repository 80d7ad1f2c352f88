package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"chatter/internal/server/api"
	"chatter/internal/server/auth"
	"chatter/internal/server/config"
	"chatter/internal/server/database"
	"chatter/internal/server/service"
	"chatter/internal/server/storage"
)

func main() {
	// Structured logging
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	// Load config
	cfg := config.Load()
	slog.Info("configuration loaded",
		"port", cfg.Port,
		"storage_backend", cfg.StorageBackend,
		"max_file_size", cfg.MaxFileSize,
		"max_storage_bytes", cfg.MaxStorageBytes,
		"token_ttl", cfg.TokenTTL,
	)

	// Connect to database
	ctx := context.Background()
	db, err := database.New(ctx, cfg.DatabaseURL)
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	// Run migrations
	if err := db.RunMigrations(ctx); err != nil {
		slog.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	// Initialize storage
	store, err := newStore(ctx, cfg)
	if err != nil {
		slog.Error("failed to create storage backend", "error", err)
		os.Exit(1)
	}
	if err := store.Init(ctx); err != nil {
		slog.Error("failed to initialize storage", "error", err)
		os.Exit(1)
	}
	slog.Info("blob storage initialized", "backend", cfg.StorageBackend)

	// Initialize repository and services
	repo := database.NewRepository(db)
	issuer := auth.NewIssuer(cfg.JWTSecret, cfg.TokenTTL)
	guard := service.NewCapacityGuard(store, repo, cfg.MaxStorageBytes)

	services := api.Services{
		Auth:     service.NewAuthService(repo, issuer),
		Uploads:  service.NewUploadService(repo, store, guard),
		Messages: service.NewMessageService(repo),
		WorkTime: service.NewWorkTimeService(repo),
		Stats:    service.NewStatsService(repo, store, guard),
	}

	// Background work: orphan reconciler and rate limiter sweeps
	bgCtx, bgCancel := context.WithCancel(context.Background())
	cleanup := storage.NewCleanupService(repo, store, cfg.ReconcileInterval, cfg.OrphanGrace)
	cleanup.Start(bgCtx)

	// Setup HTTP router
	handler := api.NewHandler(services, db)
	e := api.SetupRouter(bgCtx, handler, issuer, cfg)

	// Start server in a goroutine
	go func() {
		addr := fmt.Sprintf(":%s", cfg.Port)
		slog.Info("starting server", "addr", addr)
		if err := e.Start(addr); err != nil {
			slog.Info("server stopped", "reason", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	slog.Info("shutting down", "signal", sig)

	// Stop accepting new requests, finish in-flight with 30s timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
	}

	bgCancel()
	cleanup.Wait()

	slog.Info("server exited cleanly")
}

func newStore(ctx context.Context, cfg *config.Config) (storage.Store, error) {
	switch cfg.StorageBackend {
	case config.BackendFilesystem:
		return storage.NewFileSystemStore(cfg.StoragePath), nil
	case config.BackendS3:
		return storage.NewS3Store(ctx, storage.S3Options{
			Bucket:    cfg.S3Bucket,
			Region:    cfg.S3Region,
			Endpoint:  cfg.S3Endpoint,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
		})
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.StorageBackend)
	}
}
