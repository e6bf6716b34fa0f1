// Package marketdata pulls daily price history into the price store. The
// rest of the system only ever reads from the store, never from the network.
package marketdata

import (
	"net/http"
	"time"

	"github.com/camuig/miner-advisor/internal/config"
	"github.com/camuig/miner-advisor/internal/logger"
	"github.com/camuig/miner-advisor/internal/storage"
)

// BenchmarkTicker is the index proxy used for performance comparisons.
const BenchmarkTicker = "SPY"

const backfillDays = 365

type Client struct {
	httpClient *http.Client
	apiKey     string
	repo       *storage.Repository
	logger     *logger.Logger
}

func NewClient(cfg *config.Config, repo *storage.Repository, log *logger.Logger) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		apiKey:     cfg.Polygon.APIKey,
		repo:       repo,
		logger:     log,
	}
}
