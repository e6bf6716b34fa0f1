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

const polygonBase = "https://api.polygon.io"

type polygonAggs struct {
	Results []struct {
		Timestamp int64   `json:"t"` // milliseconds
		Open      float64 `json:"o"`
		High      float64 `json:"h"`
		Low       float64 `json:"l"`
		Close     float64 `json:"c"`
		Volume    float64 `json:"v"`
	} `json:"results"`
}

// fetchPolygon returns daily bars for ticker in [fromDate, toDate]. On a 429
// it honors Retry-After once before giving up.
func (c *Client) fetchPolygon(ctx context.Context, ticker, fromDate, toDate string) ([]storage.PriceBar, error) {
	endpoint := fmt.Sprintf("%s/v2/aggs/ticker/%s/range/1/day/%s/%s", polygonBase, ticker, fromDate, toDate)
	params := url.Values{"apiKey": {c.apiKey}, "limit": {"500"}, "sort": {"asc"}}

	resp, err := c.get(ctx, endpoint+"?"+params.Encode())
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusTooManyRequests {
		wait := 15
		if v, err := strconv.Atoi(resp.Header.Get("Retry-After")); err == nil && v > 0 {
			wait = v
		}
		resp.Body.Close()
		c.logger.Warn("polygon rate limit hit, retrying", "ticker", ticker, "wait_seconds", wait)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(time.Duration(wait) * time.Second):
		}
		if resp, err = c.get(ctx, endpoint+"?"+params.Encode()); err != nil {
			return nil, err
		}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &statusError{URL: endpoint, StatusCode: resp.StatusCode}
	}

	var data polygonAggs
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, fmt.Errorf("decode polygon response: %w", err)
	}

	bars := make([]storage.PriceBar, 0, len(data.Results))
	for _, r := range data.Results {
		bars = append(bars, storage.PriceBar{
			Ticker: ticker,
			Date:   time.UnixMilli(r.Timestamp).UTC().Format(storage.DateFormat),
			Open:   r.Open,
			High:   r.High,
			Low:    r.Low,
			Close:  r.Close,
			Volume: int64(r.Volume),
		})
	}
	return bars, nil
}

func (c *Client) get(ctx context.Context, rawURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	return c.httpClient.Do(req)
}

// statusError reports a non-200 upstream response.
type statusError struct {
	URL        string
	StatusCode int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("GET %s: status %d", e.URL, e.StatusCode)
}
