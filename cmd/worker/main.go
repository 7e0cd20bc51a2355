// The worker drains the notification outbox and delivers events to the
// operations webhook. Run one instance alongside the API server.
package main

import (
	"context"
	"database/sql"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver

	"github.com/fractionalops/claire-backend/internal/config"
	"github.com/fractionalops/claire-backend/internal/notify"
	"github.com/fractionalops/claire-backend/internal/pkg/httpretry"
	"github.com/fractionalops/claire-backend/internal/pkg/logger"
	"github.com/fractionalops/claire-backend/internal/repository/postgres"
)

func main() {
	cfg, err := config.Load(getenv("CONFIG_PATH", "config.yaml"))
	if err != nil {
		logger.Error("load config", "error", err.Error())
		os.Exit(1)
	}
	if cfg.Notify.WebhookURL == "" {
		logger.Error("NOTIFY_WEBHOOK_URL is required for the worker")
		os.Exit(1)
	}

	db, err := sql.Open("postgres", cfg.Database.URL)
	if err != nil {
		logger.Error("open database", "error", err.Error())
		os.Exit(1)
	}
	defer db.Close()

	pingCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		logger.Error("ping database", "error", err.Error())
		os.Exit(1)
	}

	dispatcher := notify.NewDispatcher(
		postgres.NewOutboxRepo(db),
		httpretry.NewRetryClient(nil, 2),
		cfg.Notify.WebhookURL,
		cfg.Notify.PollInterval(),
		cfg.Notify.MaxAttempts,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dispatcher.Run(ctx)

	// Final drain so rows enqueued during shutdown are attempted once.
	drainCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	dispatcher.DispatchBatch(drainCtx)
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
