// Command api is the Brawl Club API server.
//
// Usage:
//
//	brawl-club-api
//	API_PORT=8080 SYNC_INTERVAL_MINUTES=30 brawl-club-api

// @title Brawl Club API
// @version 1.0.0
// @description Roster views for a Brawl Stars club and its feeder clubs: members, trophy total, monthly birthdays, countries and departures.
// @host localhost:8000
// @BasePath /
// @schemes http https
// @contact.name Brawl Club
// @license.name MIT
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/albapepper/brawl-club/internal/api"
	"github.com/albapepper/brawl-club/internal/api/handler"
	"github.com/albapepper/brawl-club/internal/cache"
	"github.com/albapepper/brawl-club/internal/config"
	"github.com/albapepper/brawl-club/internal/db"
	"github.com/albapepper/brawl-club/internal/listener"
	"github.com/albapepper/brawl-club/internal/maintenance"
	"github.com/albapepper/brawl-club/internal/notify"
	"github.com/albapepper/brawl-club/internal/provider/brawl"
	"github.com/albapepper/brawl-club/internal/roster"
	"github.com/albapepper/brawl-club/internal/store"

	_ "github.com/albapepper/brawl-club/docs" // swagger docs
)

func main() {
	level := new(slog.LevelVar)
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	// Load .env if present
	_ = godotenv.Load(".env")

	cfg, err := config.Load()
	if err != nil {
		logger.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}
	level.Set(cfg.SlogLevel())

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	logger.Info("Connecting to database...")
	pool, err := db.New(ctx, cfg)
	if err != nil {
		logger.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()
	logger.Info("Database connected",
		"min_conns", cfg.DBPoolMinConns,
		"max_conns", cfg.DBPoolMaxConns)

	appCache := cache.New(cfg.CacheEnabled)
	logger.Info("Cache initialized", "enabled", cfg.CacheEnabled)

	st := store.NewPostgres(pool.Pool)
	client := brawl.NewClient(cfg.BrawlBaseURL, cfg.BrawlAPIKey, cfg.BrawlRequestsPerMinute, logger)
	club, err := roster.New(roster.Config{
		Main:    cfg.MainClubTag,
		Feeders: cfg.FeederClubTags,
		Policy:  cfg.FetchFailurePolicy,
	}, client, st, logger)
	if err != nil {
		logger.Error("Failed to build club", "error", err)
		os.Exit(1)
	}
	logger.Info("Tracking clubs", "clubs", club.Codes(), "policy", cfg.FetchFailurePolicy)

	var announcer maintenance.Announcer
	if cfg.TelegramEnabled() {
		tg, err := notify.NewTelegram(cfg.TelegramBotToken, cfg.TelegramChatID, logger)
		if err != nil {
			logger.Warn("Telegram announcements disabled", "error", err)
		} else {
			announcer = tg
		}
	} else {
		logger.Info("Telegram announcements disabled (no TELEGRAM_BOT_TOKEN/TELEGRAM_CHAT_ID)")
	}

	syncer := maintenance.NewSyncer(club, appCache, announcer, logger)

	// Cache invalidation for syncs run by other processes (CLI, cron).
	go listener.Start(ctx, cfg.DatabaseURL, appCache, logger)

	mcfg := maintenance.DefaultConfig()
	mcfg.SyncInterval = cfg.SyncInterval
	if cfg.BrawlAPIKey == "" && mcfg.SyncInterval > 0 {
		logger.Warn("BRAWL_API_KEY is empty, scheduled sync disabled")
		mcfg.SyncInterval = 0
	}
	go maintenance.Start(ctx, syncer, mcfg, logger)

	var syncTrigger handler.Syncer
	if cfg.BrawlAPIKey != "" {
		syncTrigger = syncer
	}
	router := api.NewRouter(handler.Deps{
		Club:   club,
		Former: st,
		DB:     pool,
		Syncer: syncTrigger,
		Cache:  appCache,
	}, cfg)

	addr := fmt.Sprintf("%s:%d", cfg.APIHost, cfg.APIPort)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 2 * time.Minute, // POST /sync waits on the roster service
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("Starting Brawl Club API",
			"addr", addr,
			"environment", cfg.Environment,
			"docs", fmt.Sprintf("http://localhost:%d/docs/", cfg.APIPort))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Shutdown error", "error", err)
	}
	logger.Info("Server stopped")
}
