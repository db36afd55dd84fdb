package poller

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	appconfig "goldflow/config"
	"goldflow/models"
)

// OkxFetcher polls the v5 public REST endpoints for the swap ticker and the
// current funding rate.
type OkxFetcher struct {
	client     *http.Client
	tickerURL  string
	fundingURL string
	instID     string
}

func NewOkxFetcher(src *appconfig.ExchangeSourceConfig, timeout time.Duration) *OkxFetcher {
	transport := &http.Transport{
		MaxIdleConns:        src.ConnectionPool.MaxIdleConns,
		MaxIdleConnsPerHost: src.ConnectionPool.MaxIdleConns,
		MaxConnsPerHost:     src.ConnectionPool.MaxConnsPerHost,
		IdleConnTimeout:     src.ConnectionPool.IdleConnTimeout,
	}

	return &OkxFetcher{
		client:     &http.Client{Transport: transport, Timeout: timeout},
		tickerURL:  withInstID(src.Rest.TickerURL, src.Symbol),
		fundingURL: withInstID(src.Rest.FundingURL, src.Symbol),
		instID:     src.Symbol,
	}
}

// withInstID appends the instId query parameter unless the configured URL
// already carries one.
func withInstID(rawURL, instID string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil || instID == "" {
		return rawURL
	}
	q := parsed.Query()
	if q.Get("instId") == "" {
		q.Set("instId", instID)
		parsed.RawQuery = q.Encode()
	}
	return parsed.String()
}

func (f *OkxFetcher) Exchange() models.Exchange { return models.ExchangeOKX }

func (f *OkxFetcher) FetchQuote(ctx context.Context) (models.QuoteUpdate, error) {
	body, err := httpGet(ctx, f.client, f.tickerURL)
	if err != nil {
		return models.QuoteUpdate{}, err
	}

	var resp models.OkxTickerResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return models.QuoteUpdate{}, fmt.Errorf("decode okx ticker: %w", err)
	}
	if resp.Code != "0" || len(resp.Data) == 0 {
		return models.QuoteUpdate{}, fmt.Errorf("okx ticker error for %s: code=%s msg=%s", f.instID, resp.Code, resp.Msg)
	}

	row := resp.Data[0]
	last := parseNumber(row.Last)
	if last <= 0 {
		return models.QuoteUpdate{}, fmt.Errorf("okx ticker has no last price")
	}

	bid := parseNumber(row.BidPx)
	if bid == 0 {
		bid = last - 0.1
	}
	ask := parseNumber(row.AskPx)
	if ask == 0 {
		ask = last + 0.1
	}

	return models.QuoteUpdate{
		Exchange:  models.ExchangeOKX,
		LastPrice: last,
		Bid:       bid,
		Ask:       ask,
		Status:    models.StatusPolledFallback,
		Source:    "rest",
		Timestamp: time.Now().UTC(),
	}, nil
}

func (f *OkxFetcher) FetchFunding(ctx context.Context) (models.FundingUpdate, error) {
	body, err := httpGet(ctx, f.client, f.fundingURL)
	if err != nil {
		return models.FundingUpdate{}, err
	}

	var resp models.OkxFundingResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return models.FundingUpdate{}, fmt.Errorf("decode okx funding rate: %w", err)
	}
	if resp.Code != "0" || len(resp.Data) == 0 {
		return models.FundingUpdate{}, fmt.Errorf("okx funding error for %s: code=%s msg=%s", f.instID, resp.Code, resp.Msg)
	}

	row := resp.Data[0]
	return models.FundingUpdate{
		Exchange:        models.ExchangeOKX,
		Rate:            parseNumber(row.FundingRate) * 100,
		NextFundingTime: parseMillis(row.NextFundingTime),
		Timestamp:       time.Now().UTC(),
	}, nil
}
