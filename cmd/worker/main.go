package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"rollcall/internal/attendance"
	"rollcall/internal/cloudinary"
	"rollcall/internal/config"
	"rollcall/internal/logging"
	"rollcall/internal/queue"
	"rollcall/internal/report"
	"rollcall/internal/store"
	"rollcall/internal/worker"
)

// Worker consumes report jobs from Redis, renders them and publishes the result.
func main() {
	cfg := config.Load()
	logging.Setup(cfg.Production())

	if cfg.QueueBackend == "memory" {
		slog.Error("QUEUE_BACKEND=memory runs the report worker inside the API; nothing to do here")
		os.Exit(1)
	}

	// Graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := store.NewDB(cfg.DatabaseDriver, cfg.DatabaseURL)
	if err != nil {
		slog.Error("db connect failed", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	redisClient := store.NewRedis(cfg.RedisAddr)
	defer redisClient.Close()
	if !redisClient.Healthy(ctx) {
		slog.Warn("redis not reachable yet, the consumer will keep retrying", "addr", cfg.RedisAddr)
	}

	w := &worker.Reports{
		Source:  attendance.NewService(attendance.NewRepository(db.Client)),
		Jobs:    report.NewJobStore(redisClient.Client, 0),
		Options: report.Options{Title: cfg.ReportTitle, LogoPath: cfg.ReportLogoPath},
	}
	if cfg.CloudinaryEnabled() {
		w.Uploader = cloudinary.New(cfg.CloudinaryCloudName, cfg.CloudinaryAPIKey, cfg.CloudinaryAPISecret, cfg.CloudinaryFolder)
		slog.Info("cloudinary configured", "cloud", cfg.CloudinaryCloudName)
	} else {
		slog.Warn("cloudinary not configured, report files are kept in redis")
	}

	if err := w.Run(ctx, queue.NewRedisQueue(redisClient.Client, "")); err != nil {
		slog.Error("worker failed", "error", err)
		os.Exit(1)
	}
}
