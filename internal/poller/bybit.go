package poller

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	bybit "github.com/bybit-exchange/bybit.go.api"

	appconfig "goldflow/config"
	"goldflow/models"
)

// BybitFetcher polls the v5 linear market ticker, which carries prices and
// funding in a single response.
type BybitFetcher struct {
	client *bybit.Client
	symbol string
}

func NewBybitFetcher(src *appconfig.ExchangeSourceConfig, timeout time.Duration) *BybitFetcher {
	transport := &http.Transport{
		MaxIdleConns:        src.ConnectionPool.MaxIdleConns,
		MaxIdleConnsPerHost: src.ConnectionPool.MaxIdleConns,
		MaxConnsPerHost:     src.ConnectionPool.MaxConnsPerHost,
		IdleConnTimeout:     src.ConnectionPool.IdleConnTimeout,
	}

	base := src.Rest.TickerURL
	if parsed, err := url.Parse(src.Rest.TickerURL); err == nil {
		base = fmt.Sprintf("%s://%s", parsed.Scheme, parsed.Host)
	}

	client := bybit.NewBybitHttpClient("", "", bybit.WithBaseURL(base))
	client.HTTPClient = &http.Client{Transport: transport, Timeout: timeout}

	return &BybitFetcher{client: client, symbol: src.Symbol}
}

func (f *BybitFetcher) Exchange() models.Exchange { return models.ExchangeBybit }

func (f *BybitFetcher) fetchTicker(ctx context.Context) (*models.BybitTickerData, error) {
	params := map[string]interface{}{
		"category": "linear",
		"symbol":   f.symbol,
	}

	resp, err := f.client.NewUtaBybitServiceWithParams(params).GetMarketTickers(ctx)
	if err != nil {
		return nil, fmt.Errorf("bybit market tickers: %w", err)
	}

	payload, err := json.Marshal(resp.Result)
	if err != nil {
		return nil, fmt.Errorf("marshal bybit result: %w", err)
	}

	var result models.BybitTickerResult
	if err := json.Unmarshal(payload, &result); err != nil {
		return nil, fmt.Errorf("decode bybit result: %w", err)
	}
	if len(result.List) == 0 {
		return nil, fmt.Errorf("bybit ticker list empty for %s", f.symbol)
	}
	return &result.List[0], nil
}

func (f *BybitFetcher) FetchQuote(ctx context.Context) (models.QuoteUpdate, error) {
	row, err := f.fetchTicker(ctx)
	if err != nil {
		return models.QuoteUpdate{}, err
	}

	last := parseNumber(row.LastPrice)
	if last <= 0 {
		return models.QuoteUpdate{}, fmt.Errorf("bybit ticker has no last price")
	}

	bid := parseNumber(row.Bid1Price)
	if bid == 0 {
		bid = last - 0.1
	}
	ask := parseNumber(row.Ask1Price)
	if ask == 0 {
		ask = last + 0.1
	}

	return models.QuoteUpdate{
		Exchange:  models.ExchangeBybit,
		LastPrice: last,
		Bid:       bid,
		Ask:       ask,
		Status:    models.StatusPolledFallback,
		Source:    "rest",
		Timestamp: time.Now().UTC(),
	}, nil
}

func (f *BybitFetcher) FetchFunding(ctx context.Context) (models.FundingUpdate, error) {
	row, err := f.fetchTicker(ctx)
	if err != nil {
		return models.FundingUpdate{}, err
	}
	if row.FundingRate == "" {
		return models.FundingUpdate{}, fmt.Errorf("bybit ticker has no funding rate")
	}

	return models.FundingUpdate{
		Exchange:        models.ExchangeBybit,
		Rate:            parseNumber(row.FundingRate) * 100,
		NextFundingTime: parseMillis(row.NextFundingTime),
		Timestamp:       time.Now().UTC(),
	}, nil
}
