package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"satpam/internal/attendance"
	"satpam/internal/config"
	"satpam/internal/faceclient"
	"satpam/internal/logger"
	"satpam/internal/queue"
	"satpam/internal/store"
)

// Worker consumes submitted reports and runs the selfie face check on them.
func main() {
	if err := config.LoadDotEnv(os.Getenv("ENV_FILE")); err != nil {
		log.Fatalf("config: %v", err)
	}
	cfg := config.Load()

	logg, err := logger.New(cfg.LogLevel, cfg.LogFormat, "satpam-worker")
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = logg.Sync() }()

	if cfg.QueueBackend != "redis" {
		logg.Fatal("worker needs QUEUE_BACKEND=redis; the memory backend checks selfies inside the API",
			zap.String("queue_backend", cfg.QueueBackend))
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	db, err := store.NewDB(ctx, cfg.DatabaseURL, store.PoolOptions{
		MaxOpen:     cfg.DBMaxOpen,
		MaxIdle:     cfg.DBMaxIdle,
		MaxLifetime: cfg.DBMaxLifetime,
	})
	if err != nil {
		logg.Fatal("db connect failed", zap.Error(err))
	}
	defer db.Close()

	redisClient := store.NewRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	defer redisClient.Close()

	face := faceclient.New(cfg.FaceServiceURL, cfg.FaceSkip)
	if !cfg.FaceSkip {
		if err := face.Health(ctx); err != nil {
			logg.Warn("face service not available, reports will be marked as error until it is",
				zap.String("url", cfg.FaceServiceURL), zap.Error(err))
		} else {
			logg.Info("face service connected", zap.String("url", cfg.FaceServiceURL))
		}
	}

	checker := attendance.NewSelfieChecker(attendance.NewRepository(db.Client), face, logg)
	q := queue.NewRedisQueue(redisClient.Client, cfg.QueueKey, logg)

	logg.Info("worker started", zap.String("queue", cfg.QueueKey))
	if err := checker.Run(ctx, q); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error("worker stopped", zap.Error(err))
		return
	}
	logg.Info("worker stopped")
}
