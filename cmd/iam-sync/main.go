package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/staffdir/staffdir/pkg/config"
	"github.com/staffdir/staffdir/pkg/iam"
	"github.com/staffdir/staffdir/pkg/metrics"
	"github.com/staffdir/staffdir/pkg/queue"
	"github.com/staffdir/staffdir/pkg/store/postgres"
	redisclient "github.com/staffdir/staffdir/pkg/store/redis"
	syncer "github.com/staffdir/staffdir/pkg/sync"
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
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	if err := db.AutoMigrate(); err != nil {
		logger.Fatal("failed to run migrations", zap.Error(err))
	}

	redis, err := redisclient.NewClient(&cfg.Redis)
	if err != nil {
		logger.Fatal("failed to connect to redis", zap.Error(err))
	}
	defer redis.Close()

	iamClient := iam.NewClient(&cfg.IAM, logger)
	tasks := queue.NewTaskQueue(redis.Client())
	worker := syncer.NewSyncer(db, iamClient, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if depth, err := tasks.Length(ctx); err == nil {
					metrics.SyncQueueDepth.Set(float64(depth))
				}
			}
		}
	}()

	go func() {
		logger.Info("identity sync worker started")
		if err := tasks.Consume(ctx, worker.HandleTask); err != nil && ctx.Err() == nil {
			logger.Fatal("task consumption failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("identity sync worker shutting down")
}
