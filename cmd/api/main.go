package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"rollcall/internal/attendance"
	"rollcall/internal/auth"
	"rollcall/internal/cache"
	"rollcall/internal/cloudinary"
	"rollcall/internal/config"
	"rollcall/internal/handler"
	"rollcall/internal/httpmiddleware"
	"rollcall/internal/logging"
	"rollcall/internal/queue"
	"rollcall/internal/report"
	"rollcall/internal/store"
	"rollcall/internal/worker"
)

func main() {
	cfg := config.Load()
	logging.Setup(cfg.Production())

	// Set Gin mode based on environment
	if cfg.Production() {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := runHTTP(cfg); err != nil {
		slog.Error("http server failed", "error", err)
		os.Exit(1)
	}
}

func runHTTP(cfg config.App) error {
	db, err := store.NewDB(cfg.DatabaseDriver, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer db.Close()

	if cfg.AutoMigrate {
		if err := db.Migrate(context.Background()); err != nil {
			return err
		}
	}

	redisClient := store.NewRedis(cfg.RedisAddr)
	defer redisClient.Close()

	var q queue.Queue
	if cfg.QueueBackend == "memory" {
		// Jobs published here are only seen by a worker in this process, so
		// memory mode runs one alongside the server.
		q = queue.NewInMemory(64)
	} else {
		q = queue.NewRedisQueue(redisClient.Client, "")
	}

	statsCache := cache.New(redisClient.Client, "rollcall:stats:", cfg.LeaderboardTTL)
	svc := attendance.NewService(
		attendance.NewRepository(db.Client),
		attendance.WithChangeHook(statsCache.Invalidate),
	)
	scanner := attendance.NewScanner(svc, attendance.NewRedisCooldown(redisClient.Client, ""), cfg.ScanCooldown)
	authn := auth.NewAuthenticator(auth.NewStore(db.Client), cfg.JWTIssuer, cfg.JWTSigningKey, cfg.AccessTTL, cfg.RefreshTTL)
	jobs := report.NewJobStore(redisClient.Client, 0)
	reportOpts := report.Options{Title: cfg.ReportTitle, LogoPath: cfg.ReportLogoPath}

	h := handler.New(handler.Deps{
		Service:         svc,
		Scanner:         scanner,
		Auth:            authn,
		Cache:           statsCache,
		Jobs:            jobs,
		Queue:           q,
		Report:          reportOpts,
		LeaderboardSize: cfg.LeaderboardSize,
		Health: map[string]func(context.Context) bool{
			"db":    db.Healthy,
			"redis": redisClient.Healthy,
		},
	})

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(httpmiddleware.RequestLogger(slog.Default(), "/healthz", "/metrics"))
	r.Use(cors.New(cors.Config{
		AllowAllOrigins:  true,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Disposition"},
		MaxAge:           24 * time.Hour,
	}))
	r.Use(httpmiddleware.SecurityHeaders())
	r.Use(httpmiddleware.NewTokenBucket(cfg.RateLimitPerMin, cfg.RateLimitPerMin).GinMiddleware())
	h.Register(r)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.QueueBackend == "memory" {
		w := &worker.Reports{Source: svc, Jobs: jobs, Options: reportOpts, Uploader: newUploader(cfg)}
		go func() {
			if err := w.Run(ctx, q); err != nil {
				slog.Error("in-process report worker failed", "error", err)
			}
		}()
	}

	// Graceful shutdown
	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("starting server", "addr", srv.Addr, "db", cfg.DatabaseDriver, "queue", cfg.QueueBackend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	slog.Info("shutting down server")

	// Give outstanding requests 10 seconds to complete
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Warn("server forced shutdown", "error", err)
	}

	slog.Info("server exited")
	return nil
}

// newUploader returns nil when Cloudinary is not configured so finished files stay in Redis.
func newUploader(cfg config.App) worker.Uploader {
	if !cfg.CloudinaryEnabled() {
		slog.Info("cloudinary not configured, report files are served by the API")
		return nil
	}
	slog.Info("cloudinary configured", "cloud", cfg.CloudinaryCloudName, "folder", cfg.CloudinaryFolder)
	return cloudinary.New(cfg.CloudinaryCloudName, cfg.CloudinaryAPIKey, cfg.CloudinaryAPISecret, cfg.CloudinaryFolder)
}
