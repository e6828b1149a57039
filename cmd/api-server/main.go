package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/staffdir/staffdir/pkg/apiserver"
	"github.com/staffdir/staffdir/pkg/config"
	"github.com/staffdir/staffdir/pkg/iam"
	"github.com/staffdir/staffdir/pkg/queue"
	"github.com/staffdir/staffdir/pkg/store/objstore"
	"github.com/staffdir/staffdir/pkg/store/postgres"
	redisclient "github.com/staffdir/staffdir/pkg/store/redis"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger, _ := zap.NewProduction()
	defer logger.Sync()

	db, err := postgres.NewStore(&cfg.Database)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	if err := db.AutoMigrate(); err != nil {
		logger.Fatal("Failed to run migrations", zap.Error(err))
	}

	redis, err := redisclient.NewClient(&cfg.Redis)
	if err != nil {
		logger.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	defer redis.Close()

	artifacts, err := objstore.NewClient(&cfg.Storage)
	if err != nil {
		logger.Fatal("Failed to create object storage client", zap.Error(err))
	}
	if err := artifacts.EnsureBucket(context.Background()); err != nil {
		logger.Fatal("Failed to prepare storage bucket", zap.Error(err))
	}

	iamClient := iam.NewClient(&cfg.IAM, logger)
	tasks := queue.NewTaskQueue(redis.Client())

	server := apiserver.NewServer(db, iamClient, tasks, artifacts, cfg, logger)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.HTTPPort),
		Handler:      server.Router(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.ReadTimeout * 2,
	}

	go func() {
		logger.Info("Starting API server", zap.Int("port", cfg.Server.HTTPPort))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server error", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}
}
