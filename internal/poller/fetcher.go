package poller

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"goldflow/models"
)

// Fetcher is one exchange's REST surface: a quote snapshot and the current
// funding rate. Implementations convert the exchange's raw funding fraction
// to percent before returning it.
type Fetcher interface {
	Exchange() models.Exchange
	FetchQuote(ctx context.Context) (models.QuoteUpdate, error)
	FetchFunding(ctx context.Context) (models.FundingUpdate, error)
}

// httpGet performs a plain GET and returns the body, treating any non-2xx
// response as an error.
func httpGet(ctx context.Context, client *http.Client, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http get %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("http get %s: unexpected status %d", url, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}
	return body, nil
}

// parseNumber converts a string-encoded decimal, returning 0 for empty or
// malformed values.
func parseNumber(v string) float64 {
	if v == "" {
		return 0
	}
	val, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0
	}
	return val
}

// parseMillis converts a string-encoded epoch-millisecond timestamp.
func parseMillis(v string) int64 {
	if v == "" {
		return 0
	}
	val, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0
	}
	return val
}
