package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"time"

	"github.com/kmoganti/stock-trading-system-sub001/services/scanner"
)

// Client fetches candle history from the broker's REST API. It implements
// scanner.CandleFetcher.
type Client struct {
	baseURL     string
	accessToken string
	httpClient  *http.Client
}

// NewClient creates a broker data client. baseURL points at the broker's
// data API root, e.g. "https://api.broker.example/data".
func NewClient(baseURL, accessToken string) *Client {
	return &Client{
		baseURL:     baseURL,
		accessToken: accessToken,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Ready reports whether the client is able to talk to the broker. It is
// consulted once per scan so a missing token fails the scan up front
// instead of failing every symbol fetch.
func (c *Client) Ready() error {
	if c.accessToken == "" {
		return fmt.Errorf("%w: broker access token not configured", scanner.ErrNotReady)
	}
	return nil
}

// historyResponse is the broker's candle history payload: each candle is
// [timestamp, open, high, low, close, volume].
type historyResponse struct {
	Status  string      `json:"s"`
	Message string      `json:"message"`
	Candles [][]float64 `json:"candles"`
}

// resolutions maps internal timeframes to the broker's resolution codes.
var resolutions = map[scanner.Timeframe]string{
	scanner.TimeframeDaily:  "D",
	scanner.TimeframeHourly: "60",
	scanner.Timeframe15Min:  "15",
}

// FetchCandles requests one candle series. Transient failures (network
// errors and 5xx responses) are retried once after a short backoff.
func (c *Client) FetchCandles(ctx context.Context, symbol string, tf scanner.Timeframe, lookback int) ([]scanner.Candle, error) {
	resolution, ok := resolutions[tf]
	if !ok {
		return nil, fmt.Errorf("unsupported timeframe %q", tf)
	}

	endpoint := fmt.Sprintf("%s/history?symbol=%s&resolution=%s&count=%d",
		c.baseURL, url.QueryEscape(symbol), resolution, lookback)

	body, retryable, err := c.get(ctx, endpoint)
	if err != nil && retryable {
		select {
		case <-time.After(500 * time.Millisecond):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		body, _, err = c.get(ctx, endpoint)
	}
	if err != nil {
		return nil, err
	}

	var resp historyResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("parse history response: %w", err)
	}
	if resp.Status != "ok" {
		return nil, fmt.Errorf("broker rejected history request: %s", resp.Message)
	}

	candles := make([]scanner.Candle, 0, len(resp.Candles))
	for _, row := range resp.Candles {
		if len(row) < 6 {
			continue
		}
		candles = append(candles, scanner.Candle{
			Timestamp: time.Unix(int64(row[0]), 0),
			Open:      row[1],
			High:      row[2],
			Low:       row[3],
			Close:     row[4],
			Volume:    int64(row[5]),
		})
	}
	sort.Slice(candles, func(i, j int) bool {
		return candles[i].Timestamp.Before(candles[j].Timestamp)
	})
	return candles, nil
}

// get performs one request. The second return value reports whether a
// failure is transient (network error or 5xx) and worth one retry.
func (c *Client) get(ctx context.Context, endpoint string) ([]byte, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, false, err
	}
	if c.accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.accessToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, true, fmt.Errorf("broker request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, true, fmt.Errorf("read broker response: %w", err)
	}
	if resp.StatusCode >= 500 {
		return nil, true, fmt.Errorf("broker returned %d", resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, false, fmt.Errorf("broker returned %d: %s", resp.StatusCode, string(body))
	}
	return body, false, nil
}
