package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"transaction-intake/internal/airtable"
	"transaction-intake/internal/api"
	"transaction-intake/internal/common/config"
	"transaction-intake/internal/common/database"
	"transaction-intake/internal/common/logger"
	"transaction-intake/internal/common/metrics"
	"transaction-intake/internal/intake/audit"
	"transaction-intake/internal/intake/store"
	"transaction-intake/internal/intake/submit"
	"transaction-intake/internal/notify"
	"transaction-intake/internal/renderer"
)

func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("starting intake server",
		zap.String("environment", cfg.App.Environment),
		zap.String("version", cfg.App.Version),
	)

	ctx := context.Background()

	// --- Redis (session store) with retry ---
	var rdb *database.RedisClient
	err = retryWithBackoff(func() error {
		var err error
		rdb, err = database.NewRedis(cfg.Database.Redis)
		if err != nil {
			return err
		}
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		return rdb.Ping(pingCtx)
	}, 5, 2*time.Second, zapLog, "Redis initialization")
	if err != nil {
		zapLog.Fatal("redis failed after retries", zap.Error(err))
	}
	defer rdb.Close()
	zapLog.Info("redis connected")

	// --- Postgres (submission audit) with retry ---
	var pg *database.PostgresClient
	err = retryWithBackoff(func() error {
		var err error
		pg, err = database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return err
		}
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		return pg.Ping(pingCtx)
	}, 5, 2*time.Second, zapLog, "PostgreSQL initialization")
	if err != nil {
		zapLog.Fatal("postgres failed after retries", zap.Error(err))
	}
	defer pg.Close()
	zapLog.Info("postgres connected")

	// --- Collaborators ---
	notifier, err := notify.NewService(ctx, cfg.Notifications, log)
	if err != nil {
		zapLog.Fatal("notification service init failed", zap.Error(err))
	}

	persister := airtable.NewClient(cfg.Airtable)
	docRenderer := renderer.NewClient(cfg.Renderer)
	auditor := audit.NewStore(pg.GetDB(), log)

	sessions := store.NewSessionStore(rdb, time.Duration(cfg.Session.TTLMinutes)*time.Minute)

	server := api.NewServer(
		sessions,
		persister,
		persister,
		docRenderer,
		notifier,
		auditor,
		submit.Options{
			Recipients: cfg.Notifications.Email.Recipients,
			Timeout:    time.Duration(cfg.Submission.Timeout) * time.Millisecond,
		},
		log,
	)

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Millisecond,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Millisecond,
	})
	server.Register(app)

	// --- Maintenance loop: session gauge + orchestrator eviction ---
	go func() {
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()
		for range ticker.C {
			countCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			if n, err := sessions.Count(countCtx); err == nil {
				metrics.ActiveSessions.Set(float64(n))
			} else {
				zapLog.Warn("session count failed", zap.Error(err))
			}
			cancel()
			server.SweepOrchestrators()
		}
	}()

	// --- Metrics endpoint ---
	if cfg.Metrics.Enabled {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.Handler())
			zapLog.Info("metrics endpoint listening", zap.String("address", cfg.Metrics.ListenAddress))
			if err := http.ListenAndServe(cfg.Metrics.ListenAddress, mux); err != nil {
				zapLog.Error("metrics server stopped", zap.Error(err))
			}
		}()
	}

	go func() {
		zapLog.Info("http server listening", zap.String("address", cfg.Server.ListenAddress))
		if err := app.Listen(cfg.Server.ListenAddress); err != nil {
			zapLog.Fatal("http server stopped", zap.Error(err))
		}
	}()

	// --- Graceful shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zapLog.Info("shutting down...")
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		zapLog.Error("shutdown error", zap.Error(err))
	}
	zapLog.Info("shutdown complete")
}
