package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"portfolio-risk-lab/internal/domain"
)

// Default configuration values.
const (
	DefaultTimeout    = 15 * time.Second
	DefaultMaxRetries = 3
	DefaultRetryDelay = 200 * time.Millisecond
	DefaultMaxDelay   = 2 * time.Second
)

// Yahoo chart API hosts, tried in order on each attempt.
var yahooHosts = []string{"query1.finance.yahoo.com", "query2.finance.yahoo.com"}

// YahooClient implements HistoricalProvider using the Yahoo Finance chart API.
type YahooClient struct {
	client     *http.Client
	hosts      []string
	maxRetries int
	retryDelay time.Duration
	maxDelay   time.Duration
}

// YahooOption configures YahooClient.
type YahooOption func(*YahooClient)

// WithHTTPClient sets a custom http.Client.
func WithHTTPClient(client *http.Client) YahooOption {
	return func(c *YahooClient) {
		c.client = client
	}
}

// WithHosts overrides the API hosts (used by tests with httptest servers).
func WithHosts(hosts ...string) YahooOption {
	return func(c *YahooClient) {
		c.hosts = hosts
	}
}

// WithMaxRetries sets maximum retry attempts.
func WithMaxRetries(n int) YahooOption {
	return func(c *YahooClient) {
		c.maxRetries = n
	}
}

// NewYahooClient creates a new Yahoo Finance client.
func NewYahooClient(opts ...YahooOption) *YahooClient {
	c := &YahooClient{
		client:     &http.Client{Timeout: DefaultTimeout},
		hosts:      yahooHosts,
		maxRetries: DefaultMaxRetries,
		retryDelay: DefaultRetryDelay,
		maxDelay:   DefaultMaxDelay,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Compile-time interface check.
var _ HistoricalProvider = (*YahooClient)(nil)

// chartResponse mirrors the subset of the v8 chart payload we read.
type chartResponse struct {
	Chart struct {
		Result []struct {
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Close []float64 `json:"close"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// GetHistoricalData fetches daily closes for symbol covering the last `days`
// calendar days. Points with non-positive closes are dropped; the result is
// in ascending date order.
func (c *YahooClient) GetHistoricalData(ctx context.Context, symbol string, days int) ([]domain.PricePoint, error) {
	if days < 1 {
		return nil, &ProviderError{Symbol: symbol, Err: fmt.Errorf("invalid day count %d", days)}
	}

	body, err := c.fetchChart(ctx, symbol, days)
	if err != nil {
		return nil, &ProviderError{Symbol: symbol, Err: err}
	}

	var resp chartResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, &ProviderError{Symbol: symbol, Err: fmt.Errorf("parse chart json: %w", err)}
	}
	if resp.Chart.Error != nil {
		return nil, &ProviderError{Symbol: symbol, Err: fmt.Errorf("chart api error %s: %s", resp.Chart.Error.Code, resp.Chart.Error.Description)}
	}
	if len(resp.Chart.Result) == 0 || len(resp.Chart.Result[0].Indicators.Quote) == 0 {
		return nil, &ProviderError{Symbol: symbol, Err: fmt.Errorf("no data for symbol")}
	}

	ts := resp.Chart.Result[0].Timestamp
	closes := resp.Chart.Result[0].Indicators.Quote[0].Close
	n := len(ts)
	if len(closes) < n {
		n = len(closes)
	}

	points := make([]domain.PricePoint, 0, n)
	for i := 0; i < n; i++ {
		if closes[i] <= 0 {
			continue
		}
		points = append(points, domain.PricePoint{
			Date:  time.Unix(ts[i], 0).UTC(),
			Price: closes[i],
		})
	}
	if len(points) == 0 {
		return nil, &ProviderError{Symbol: symbol, Err: fmt.Errorf("no usable price points")}
	}
	return points, nil
}

// fetchChart performs the HTTP request with host rotation and bounded retry.
func (c *YahooClient) fetchChart(ctx context.Context, symbol string, days int) ([]byte, error) {
	rangeParam := rangeForDays(days)
	delay := c.retryDelay

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		for _, host := range c.hosts {
			base := host
			if !strings.Contains(base, "://") {
				base = "https://" + base
			}
			url := fmt.Sprintf("%s/v8/finance/chart/%s?range=%s&interval=1d&events=div,splits", base, symbol, rangeParam)
			body, err := c.doRequest(ctx, url, symbol)
			if err == nil {
				return body, nil
			}
			lastErr = err
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
		}
		if attempt < c.maxRetries {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
			delay *= 2
			if delay > c.maxDelay {
				delay = c.maxDelay
			}
		}
	}
	return nil, lastErr
}

func (c *YahooClient) doRequest(ctx context.Context, url, symbol string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.4 Safari/605.1.15")
	req.Header.Set("Accept", "application/json, text/javascript, */*; q=0.01")
	req.Header.Set("Referer", fmt.Sprintf("https://finance.yahoo.com/quote/%s/chart", strings.ToUpper(symbol)))

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, fmt.Errorf("rate limited (429)")
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %d: %s", resp.StatusCode, preview(body))
	}
	if strings.HasPrefix(string(body), "<") {
		return nil, fmt.Errorf("non-json body: %s", preview(body))
	}
	return body, nil
}

// rangeForDays maps a day count to the closest chart API range parameter.
func rangeForDays(days int) string {
	switch {
	case days <= 5:
		return "5d"
	case days <= 30:
		return "1mo"
	case days <= 90:
		return "3mo"
	case days <= 180:
		return "6mo"
	case days <= 365:
		return "1y"
	case days <= 730:
		return "2y"
	default:
		return "5y"
	}
}

func preview(body []byte) string {
	s := string(body)
	if len(s) > 120 {
		return s[:120]
	}
	return s
}
