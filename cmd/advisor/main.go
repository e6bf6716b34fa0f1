package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/camuig/miner-advisor/internal/advisor"
	"github.com/camuig/miner-advisor/internal/config"
	"github.com/camuig/miner-advisor/internal/ledger"
	"github.com/camuig/miner-advisor/internal/logger"
	"github.com/camuig/miner-advisor/internal/macro"
	"github.com/camuig/miner-advisor/internal/marketdata"
	"github.com/camuig/miner-advisor/internal/outcome"
	"github.com/camuig/miner-advisor/internal/scheduler"
	"github.com/camuig/miner-advisor/internal/storage"
	"github.com/camuig/miner-advisor/internal/telegram"
	"github.com/camuig/miner-advisor/internal/users"
	"github.com/camuig/miner-advisor/internal/web"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	dbPath := flag.String("db", "data/miner-advisor.db", "path to SQLite database")
	flag.Parse()

	// Load config
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}

	// Init logger
	log := logger.New(cfg.Logging.Level)
	log.Info("starting miner-advisor")

	// Init database
	db, err := storage.NewDatabase(*dbPath)
	if err != nil {
		log.Error("database init failed", "error", err)
		os.Exit(1)
	}
	repo := storage.NewRepository(db)

	// Context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Init services
	ledgerSvc := ledger.NewService(db, log)
	userSvc := users.NewService(db, cfg.Portfolio.MaxUsers)
	scorer := outcome.NewScorer(repo)
	market := marketdata.NewClient(cfg, repo, log)
	macroClient := macro.NewClient(cfg, repo, log)
	aiClient := advisor.NewClient(cfg, log)
	notifier := telegram.NewNotifier(cfg, log)
	runner := advisor.NewRunner(repo, ledgerSvc, aiClient, market, macroClient, notifier, cfg, log)

	sched := scheduler.NewScheduler(runner, userSvc, notifier, cfg, log)
	if err := sched.Start(ctx); err != nil {
		log.Error("scheduler start failed", "error", err)
		os.Exit(1)
	}

	webServer := web.NewServer(repo, ledgerSvc, userSvc, scorer, runner, cfg, log)

	// Start web server in goroutine
	go func() {
		if err := webServer.Start(); err != nil {
			log.Error("web server error", "error", err)
		}
	}()

	notifier.NotifyStatus("🤖 Miner-Advisor started")

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	log.Info("shutdown signal received", "signal", sig.String())

	// Graceful shutdown
	cancel()
	sched.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := webServer.Shutdown(shutdownCtx); err != nil {
		log.Error("web server shutdown error", "error", err)
	}

	notifier.NotifyStatus("🛑 Miner-Advisor stopped")
	log.Info("miner-advisor stopped")
}
