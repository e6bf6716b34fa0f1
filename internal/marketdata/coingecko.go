package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/camuig/miner-advisor/internal/storage"
)

const coingeckoBase = "https://api.coingecko.com/api/v3"

type marketChart struct {
	Prices [][2]float64 `json:"prices"` // [timestamp_ms, price]
}

// RefreshBTC caches a daily BTC close series used for trend context and
// correlation. CoinGecko's chart has no OHLC, so all four fields carry the
// daily price.
func (c *Client) RefreshBTC(ctx context.Context, days int) error {
	params := url.Values{
		"vs_currency": {"usd"},
		"days":        {strconv.Itoa(days)},
		"interval":    {"daily"},
	}
	resp, err := c.get(ctx, coingeckoBase+"/coins/bitcoin/market_chart?"+params.Encode())
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return &statusError{URL: coingeckoBase + "/coins/bitcoin/market_chart", StatusCode: resp.StatusCode}
	}

	var chart marketChart
	if err := json.NewDecoder(resp.Body).Decode(&chart); err != nil {
		return fmt.Errorf("decode coingecko response: %w", err)
	}

	bars := make([]storage.PriceBar, 0, len(chart.Prices))
	for _, p := range chart.Prices {
		price := p[1]
		bars = append(bars, storage.PriceBar{
			Ticker: "BTC",
			Date:   time.UnixMilli(int64(p[0])).UTC().Format(storage.DateFormat),
			Open:   price, High: price, Low: price, Close: price,
		})
	}
	return c.repo.UpsertPrices("BTC", bars)
}
