package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/workmate/imagevault/internal/auth"
	"github.com/workmate/imagevault/internal/bgremove"
	"github.com/workmate/imagevault/internal/config"
	"github.com/workmate/imagevault/internal/interrogate"
	"github.com/workmate/imagevault/internal/logger"
	"github.com/workmate/imagevault/internal/metrics"
	"github.com/workmate/imagevault/internal/server"
	"github.com/workmate/imagevault/internal/signer"
	"github.com/workmate/imagevault/internal/storage"
	"github.com/workmate/imagevault/internal/upload"
)

func main() {
	// Missing .env is fine in containerized deployments.
	_ = godotenv.Load()

	zlog, err := logger.Init()
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer zlog.Sync()

	cfg, err := config.Load()
	if err != nil {
		zlog.Fatal("load config", zap.Error(err))
	}

	metrics.InitMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dbPool, err := storage.NewPostgresPool(ctx, cfg.Postgres)
	if err != nil {
		zlog.Fatal("connect postgres", zap.Error(err))
	}
	defer dbPool.Close()

	objectStore, err := storage.NewObjectStoreClient(cfg.S3)
	if err != nil {
		zlog.Fatal("connect object store", zap.Error(err))
	}

	if err := storage.EnsureBucket(ctx, objectStore, cfg.S3.Bucket, cfg.S3.Region); err != nil {
		zlog.Fatal("ensure bucket", zap.Error(err))
	}

	authRepo := auth.NewRepository(dbPool)
	authService := auth.NewService(authRepo, cfg.Auth)

	urlSigner := signer.NewService(objectStore, cfg.S3.Bucket, storage.CanonicalBaseURL(cfg.S3), cfg.Signing.DefaultExpiry, zlog)
	captioner := interrogate.NewClient(cfg.Interrogate, zlog)
	remover := bgremove.NewClient(cfg.BgRemoval, zlog)

	uploadRepo := upload.NewRepository(dbPool)
	uploadStore := upload.NewMinIOStore(objectStore)
	uploadService := upload.NewService(uploadRepo, uploadStore, cfg.S3.Bucket, urlSigner, captioner, remover, zlog)

	router := server.NewRouter(server.Dependencies{
		Config:        cfg,
		DB:            dbPool,
		ObjectStore:   objectStore,
		Log:           zlog,
		AuthService:   authService,
		UploadService: uploadService,
	})

	httpServer := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		zlog.Info("ImageVault API listening", zap.String("address", cfg.Server.Address()))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zlog.Fatal("http server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	zlog.Info("shutting down gracefully")
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		zlog.Error("shutdown error", zap.Error(err))
	}
}
