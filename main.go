package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/healthlens-ai/backend/internal/ai"
	"github.com/healthlens-ai/backend/internal/auth"
	"github.com/healthlens-ai/backend/internal/cache"
	"github.com/healthlens-ai/backend/internal/config"
	"github.com/healthlens-ai/backend/internal/database"
	"github.com/healthlens-ai/backend/internal/logger"
	"github.com/healthlens-ai/backend/internal/repository"
	"github.com/healthlens-ai/backend/internal/server"
	"github.com/healthlens-ai/backend/internal/services"
	"github.com/healthlens-ai/backend/internal/storage"
)

func main() {
	if err := godotenv.Load(); err != nil {
		logger.Warn(".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("Failed to load config: %v", err)
	}

	if err := logger.InitWithConfig(logger.Config{
		Level:      cfg.Logger.Level,
		OutputPath: cfg.Logger.OutputPath,
		Format:     cfg.Logger.Format,
	}); err != nil {
		logger.Fatalf("Failed to initialize logger: %v", err)
	}
	logger.Info("Starting HealthLens backend")

	if cfg.Auth.UserInfoURL == "" {
		logger.Fatal("AUTH_USERINFO_URL is required")
	}

	ctx := context.Background()

	db, err := database.NewPostgresDB(cfg.DB)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}

	var store cache.Store
	if addr := cfg.Redis.Addr(); addr != "" {
		store, err = cache.NewRedisStore(addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			logger.Fatalf("Failed to connect to redis: %v", err)
		}
		logger.Info("Redis cache connected", "addr", addr)
	} else {
		store = cache.NewMemoryStore()
		logger.Info("Redis not configured, using in-process cache")
	}
	defer store.Close()

	var archive services.ImageArchiver
	if cfg.Storage.Endpoint != "" {
		s3, err := storage.New(ctx, cfg.Storage.Endpoint, cfg.Storage.Region, cfg.Storage.Bucket,
			cfg.Storage.AccessKey, cfg.Storage.SecretKey, cfg.Storage.UseSSL)
		if err != nil {
			logger.Fatalf("Failed to connect to object storage: %v", err)
		}
		archive = s3
		logger.Info("Upload archive enabled", "bucket", cfg.Storage.Bucket)
	} else {
		logger.Info("Object storage not configured, uploads will not be archived")
	}

	remote, err := ai.NewRemoteAnalyzer(ctx, cfg.AI)
	if err != nil {
		logger.Fatalf("Failed to initialize AI provider: %v", err)
	}
	local := ai.NewMockAnalyzer()
	logger.Info("AI analyzer initialized", "provider", cfg.AI.Provider)

	users := repository.NewUserRepository(db)
	analyses := repository.NewAnalysisRepository(db)

	deps := server.Deps{
		Analyses: services.NewAnalysisService(remote, local, analyses, archive, store),
		Chat:     services.NewChatService(remote, local, analyses, store),
		Users:    services.NewUserService(users, store, cfg.Auth.CacheTTL),
		Verifier: auth.NewProviderVerifier(cfg.Auth.UserInfoURL, cfg.Auth.CacheTTL, store),
		DB:       db,
		Cache:    store,
	}
	srv := server.New(cfg.Server, deps)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- srv.Start()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if err != nil {
			logger.Fatalf("Server stopped with error: %v", err)
		}
	case sig := <-quit:
		logger.Info("Shutdown signal received", "signal", sig.String())

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Errorf("Graceful shutdown failed: %v", err)
		}
	}

	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	logger.Info("Server stopped")
}
