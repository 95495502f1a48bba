package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"telegram_rps/internal/bot"
	"telegram_rps/internal/config"
	"telegram_rps/internal/coord"
	"telegram_rps/internal/db"
	"telegram_rps/internal/httpapi"
	"telegram_rps/internal/logger"
	"telegram_rps/internal/notify"
	"telegram_rps/internal/ratelimit"
	"telegram_rps/internal/repository"
)

func main() {
	cfg := config.Load()
	logger.Init(cfg.LogLevel, cfg.LogJSON)

	dbPool := db.Connect(cfg.DatabaseURL)
	defer dbPool.Close()

	if err := db.Migrate(cfg.DatabaseURL); err != nil {
		logger.Fatal("migrations failed", "error", err)
	}

	sessionRepo := repository.NewSessionRepository(dbPool)
	auditRepo := repository.NewAuditRepository(dbPool)

	limiter := ratelimit.New(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.ActionRateLimit, cfg.ActionRateWindow)
	defer limiter.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// transport and coordinator reference each other: the coordinator
	// drives message edits, the bot feeds callback actions back in
	coordinator := coord.New(coord.Config{
		WorkerID:      cfg.WorkerID,
		Store:         sessionRepo,
		Audit:         auditRepo,
		Limiter:       limiter,
		Transport:     nil, // set below
		OfferTimeout:  cfg.OfferTimeout,
		ChoiceTimeout: cfg.ChoiceTimeout,
	})

	tgBot, err := bot.New(cfg.BotToken, coordinator)
	if err != nil {
		logger.Fatal("failed to authorize bot", "error", err)
	}
	coordinator.SetTransport(tgBot)

	listener := notify.NewListener(dbPool, coordinator.NotifyPickup)

	go coordinator.Run(ctx)
	go listener.Run(ctx)
	go tgBot.Start()

	var ready atomic.Bool
	ready.Store(true)

	srv := &http.Server{
		Addr:    ":" + cfg.AppPort,
		Handler: httpapi.NewRouter(ready.Load),
	}

	go func() {
		logger.Info("ops server started", "port", cfg.AppPort, "worker_id", cfg.WorkerID)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("ops server failed", "error", err)
		}
	}()

	logger.Info("worker ready", "worker_id", cfg.WorkerID)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down...")
	ready.Store(false)

	tgBot.Stop()
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("ops server forced to shutdown", "error", err)
	}

	logger.Info("worker exited")
}
