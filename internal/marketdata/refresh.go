package marketdata

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/camuig/miner-advisor/internal/storage"
)

// RefreshTicker tops up the price cache for ticker from the day after the
// last cached bar, backfilling a year when the cache is cold.
func (c *Client) RefreshTicker(ctx context.Context, ticker string) error {
	today := time.Now().UTC().Format(storage.DateFormat)

	latest, err := c.repo.LatestPriceDate(ticker)
	if err != nil {
		return err
	}

	fromDate := time.Now().UTC().AddDate(0, 0, -backfillDays).Format(storage.DateFormat)
	if latest != "" {
		d, perr := time.Parse(storage.DateFormat, latest)
		if perr != nil {
			return perr
		}
		fromDate = d.AddDate(0, 0, 1).Format(storage.DateFormat)
	}
	if fromDate > today {
		return nil // already up to date
	}

	bars, err := c.fetchPolygon(ctx, ticker, fromDate, today)
	if err != nil {
		var se *statusError
		if errors.As(err, &se) && latest != "" &&
			(se.StatusCode == http.StatusForbidden || se.StatusCode == http.StatusNotFound) {
			// Non-trading day or free-tier restriction; the cache still serves.
			return nil
		}
		return err
	}
	return c.repo.UpsertPrices(ticker, bars)
}

// RefreshAll refreshes every ticker sequentially, stopping at the first
// context cancellation but otherwise collecting the last error.
func (c *Client) RefreshAll(ctx context.Context, tickers []string) error {
	var lastErr error
	for _, ticker := range tickers {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := c.RefreshTicker(ctx, ticker); err != nil {
			c.logger.Warn("price refresh failed", "ticker", ticker, "error", err)
			lastErr = err
		}
	}
	return lastErr
}

// RefreshBenchmark tops up the benchmark index series.
func (c *Client) RefreshBenchmark(ctx context.Context) error {
	return c.RefreshTicker(ctx, BenchmarkTicker)
}
