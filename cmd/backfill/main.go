package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/camuig/miner-advisor/internal/config"
	"github.com/camuig/miner-advisor/internal/logger"
	"github.com/camuig/miner-advisor/internal/marketdata"
	"github.com/camuig/miner-advisor/internal/storage"
)

// One-shot price cache backfill for the whole ticker universe, BTC and the
// benchmark index. Run once before first use or after a long gap.
func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	dbPath := flag.String("db", "data/miner-advisor.db", "path to SQLite database")
	btcDays := flag.Int("btc-days", 365, "days of BTC history to fetch")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Logging.Level)

	db, err := storage.NewDatabase(*dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "database init error: %v\n", err)
		os.Exit(1)
	}
	repo := storage.NewRepository(db)
	market := marketdata.NewClient(cfg, repo, log)

	ctx := context.Background()
	tickers := cfg.UniverseFlat()
	fmt.Printf("Backfilling %d ticker(s) plus BTC and %s:\n\n", len(tickers), marketdata.BenchmarkTicker)

	var ok, failed int
	if err := market.RefreshBTC(ctx, *btcDays); err != nil {
		fmt.Fprintf(os.Stderr, "  [FAIL] BTC: %v\n", err)
		failed++
	} else {
		fmt.Println("  [OK]   BTC")
		ok++
	}

	for _, ticker := range append(tickers, marketdata.BenchmarkTicker) {
		if err := market.RefreshTicker(ctx, ticker); err != nil {
			fmt.Fprintf(os.Stderr, "  [FAIL] %s: %v\n", ticker, err)
			failed++
			continue
		}
		latest, _ := repo.LatestPriceDate(ticker)
		fmt.Printf("  [OK]   %s (through %s)\n", ticker, latest)
		ok++
	}

	fmt.Printf("\nDone: %d refreshed, %d failed.\n", ok, failed)
	if failed > 0 {
		os.Exit(1)
	}
}
