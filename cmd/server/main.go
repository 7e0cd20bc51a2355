package main

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/redis/go-redis/v9"

	"github.com/fractionalops/claire-backend/internal/actor"
	"github.com/fractionalops/claire-backend/internal/api"
	"github.com/fractionalops/claire-backend/internal/config"
	"github.com/fractionalops/claire-backend/internal/gateway/octave"
	"github.com/fractionalops/claire-backend/internal/notify"
	"github.com/fractionalops/claire-backend/internal/pkg/distlock"
	"github.com/fractionalops/claire-backend/internal/pkg/logger"
	"github.com/fractionalops/claire-backend/internal/repository/postgres"
	"github.com/fractionalops/claire-backend/internal/service/lifecycle"
	"github.com/fractionalops/claire-backend/internal/service/lists"
)

func main() {
	cfg, err := config.Load(getenv("CONFIG_PATH", "config.yaml"))
	if err != nil {
		logger.Error("load config", "error", err.Error())
		os.Exit(1)
	}

	db, err := sql.Open("postgres", cfg.Database.URL)
	if err != nil {
		logger.Error("open database", "error", err.Error())
		os.Exit(1)
	}
	defer db.Close()
	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)

	pingCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		logger.Error("ping database", "error", err.Error())
		os.Exit(1)
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()

	campaignRepo := postgres.NewCampaignRepo(db)
	listRepo := postgres.NewListRepo(db)
	userRepo := postgres.NewUserRepo(db)
	outboxRepo := postgres.NewOutboxRepo(db)

	gateway := octave.NewClient(cfg.Octave.BaseURL, cfg.Octave.APIKey, cfg.Octave.Timeout(), cfg.Octave.MaxRetries)
	outbox := notify.NewOutbox(outboxRepo)
	locks := distlock.NewLocker(redisClient)

	campaignSvc := lifecycle.NewService(campaignRepo, listRepo, gateway, outbox, locks)
	listSvc := lists.NewService(listRepo)
	resolver := actor.NewResolver(userRepo, cfg.Auth.JWTSecret, cfg.Auth.AdminEmails)

	server := api.NewServer(cfg.Server, api.NewHandlers(campaignSvc, listSvc, resolver))

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", "addr", server.Addr())
		errCh <- server.ListenAndServe()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			logger.Error("server failed", "error", err.Error())
			os.Exit(1)
		}
	case sig := <-stop:
		logger.Info("shutting down", "signal", sig.String())
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("shutdown", "error", err.Error())
			os.Exit(1)
		}
	}
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
