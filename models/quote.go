package models

import (
	"time"
)

// Exchange identifies one of the configured derivative exchanges.
type Exchange string

const (
	ExchangeBybit   Exchange = "bybit"
	ExchangeBinance Exchange = "binance"
	ExchangeOKX     Exchange = "okx"
)

// AllExchanges lists the configured exchanges in display order. The set is
// fixed at startup; quote entities are created once per entry and mutated in
// place for the lifetime of the process.
var AllExchanges = []Exchange{ExchangeBybit, ExchangeBinance, ExchangeOKX}

// ConnectionStatus describes where an exchange's current quote came from and
// whether its streaming connection is healthy.
type ConnectionStatus string

const (
	StatusLoading        ConnectionStatus = "loading"
	StatusConnected      ConnectionStatus = "connected"
	StatusDisconnected   ConnectionStatus = "disconnected"
	StatusError          ConnectionStatus = "error"
	StatusPolledFallback ConnectionStatus = "polled"
)

// ExchangeQuote is the authoritative per-exchange market state. One entity
// exists per configured exchange; bid/ask/last are "latest known" only, with
// PreviousBid kept for the directional change indicator.
type ExchangeQuote struct {
	Exchange             Exchange         `json:"exchange"`
	SymbolCode           string           `json:"symbol_code"`
	Bid                  float64          `json:"bid"`
	Ask                  float64          `json:"ask"`
	PreviousBid          float64          `json:"previous_bid"`
	LastTradePrice       float64          `json:"last_trade_price"`
	Status               ConnectionStatus `json:"status"`
	Source               string           `json:"source"`                 // "ws" or "rest", empty until first quote
	FundingRate          *float64         `json:"funding_rate"`           // percent, nil until first funding fetch
	NextFundingTime      *int64           `json:"next_funding_time"`      // epoch milliseconds
	FundingIntervalHours int              `json:"funding_interval_hours"` // fixed per exchange (4 or 8)
	UpdatedAt            time.Time        `json:"updated_at"`
}

// QuoteUpdate carries one parsed ticker observation from a stream manager or
// the polling fetcher into the market store.
type QuoteUpdate struct {
	Exchange  Exchange
	LastPrice float64
	Bid       float64
	Ask       float64
	Status    ConnectionStatus
	Source    string // "ws" or "rest"
	Timestamp time.Time
}

// FundingUpdate carries a funding-rate observation. Rate is already converted
// to a percentage (raw fractional rate x 100).
type FundingUpdate struct {
	Exchange        Exchange
	Rate            float64
	NextFundingTime int64 // epoch milliseconds
	Timestamp       time.Time
}

// StatusUpdate reports a connection state transition without touching prices.
type StatusUpdate struct {
	Exchange  Exchange
	Status    ConnectionStatus
	Timestamp time.Time
}

// PriceOpportunity is a derived, ephemeral cross-exchange price spread. It is
// recomputed from scratch on every query and never stored.
type PriceOpportunity struct {
	BuyExchange  Exchange `json:"buy_exchange"`
	SellExchange Exchange `json:"sell_exchange"`
	Spread       float64  `json:"spread"`
	BuyPrice     float64  `json:"buy_price"`
	SellPrice    float64  `json:"sell_price"`
}

// FundingOpportunity is a derived funding-rate carry: long the lower
// annualized rate, short the higher. LongRate and ShortRate are the raw
// per-settlement rates in percent; only the spread is annualized.
type FundingOpportunity struct {
	LongExchange       Exchange `json:"long_exchange"`
	ShortExchange      Exchange `json:"short_exchange"`
	LongRate           float64  `json:"long_rate"`
	ShortRate          float64  `json:"short_rate"`
	LongIntervalHours  int      `json:"long_interval_hours"`
	ShortIntervalHours int      `json:"short_interval_hours"`
	AnnualizedSpread   float64  `json:"annualized_spread"`
}
