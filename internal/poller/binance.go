package poller

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	futures "github.com/adshao/go-binance/v2/futures"

	appconfig "goldflow/config"
	"goldflow/models"
)

// BinanceFetcher polls the USDⓈ-M futures 24hr ticker for prices and the
// premium index for funding.
type BinanceFetcher struct {
	client *futures.Client
	symbol string
}

func NewBinanceFetcher(src *appconfig.ExchangeSourceConfig, timeout time.Duration) *BinanceFetcher {
	transport := &http.Transport{
		MaxIdleConns:        src.ConnectionPool.MaxIdleConns,
		MaxIdleConnsPerHost: src.ConnectionPool.MaxIdleConns,
		MaxConnsPerHost:     src.ConnectionPool.MaxConnsPerHost,
		IdleConnTimeout:     src.ConnectionPool.IdleConnTimeout,
	}

	client := futures.NewClient("", "")
	client.HTTPClient = &http.Client{Transport: transport, Timeout: timeout}
	if parsed, err := url.Parse(src.Rest.TickerURL); err == nil && parsed.Host != "" {
		client.SetApiEndpoint(fmt.Sprintf("%s://%s", parsed.Scheme, parsed.Host))
	}

	return &BinanceFetcher{client: client, symbol: src.Symbol}
}

func (f *BinanceFetcher) Exchange() models.Exchange { return models.ExchangeBinance }

func (f *BinanceFetcher) FetchQuote(ctx context.Context) (models.QuoteUpdate, error) {
	stats, err := f.client.NewListPriceChangeStatsService().Symbol(f.symbol).Do(ctx)
	if err != nil {
		return models.QuoteUpdate{}, fmt.Errorf("binance 24hr ticker: %w", err)
	}
	if len(stats) == 0 {
		return models.QuoteUpdate{}, fmt.Errorf("binance 24hr ticker empty for %s", f.symbol)
	}

	last := parseNumber(stats[0].LastPrice)
	if last <= 0 {
		return models.QuoteUpdate{}, fmt.Errorf("binance ticker has no last price")
	}

	return models.QuoteUpdate{
		Exchange:  models.ExchangeBinance,
		LastPrice: last,
		Bid:       last - 0.1,
		Ask:       last + 0.1,
		Status:    models.StatusPolledFallback,
		Source:    "rest",
		Timestamp: time.Now().UTC(),
	}, nil
}

func (f *BinanceFetcher) FetchFunding(ctx context.Context) (models.FundingUpdate, error) {
	rows, err := f.client.NewPremiumIndexService().Symbol(f.symbol).Do(ctx)
	if err != nil {
		return models.FundingUpdate{}, fmt.Errorf("binance premium index: %w", err)
	}
	if len(rows) == 0 {
		return models.FundingUpdate{}, fmt.Errorf("binance premium index empty for %s", f.symbol)
	}

	return models.FundingUpdate{
		Exchange:        models.ExchangeBinance,
		Rate:            parseNumber(rows[0].LastFundingRate) * 100,
		NextFundingTime: rows[0].NextFundingTime,
		Timestamp:       time.Now().UTC(),
	}, nil
}
