package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	appconfig "goldflow/config"
	"goldflow/internal/channel"
	"goldflow/internal/faq"
	"goldflow/internal/market"
	"goldflow/internal/signal"
	"goldflow/models"
)

func serverTestConfig() *appconfig.Config {
	cfg := &appconfig.Config{}
	cfg.Source.Bybit = appconfig.ExchangeSourceConfig{SymbolCode: "XAUT", Symbol: "XAUTUSDT", FundingIntervalHours: 4}
	cfg.Source.Binance = appconfig.ExchangeSourceConfig{SymbolCode: "XAUF", Symbol: "XAUUSDT", FundingIntervalHours: 4}
	cfg.Source.Okx = appconfig.ExchangeSourceConfig{SymbolCode: "XAU", Symbol: "XAU-USDT-SWAP", FundingIntervalHours: 8}
	cfg.Signals.PriceSpreadThreshold = 0.5
	cfg.Signals.MaxPriceOpportunities = 5
	cfg.Signals.FundingSpreadThreshold = 5.0
	cfg.Server.Listen = "127.0.0.1:0"
	cfg.Server.RefreshEvery = time.Second
	cfg.Server.HistoryPoints = 20
	return cfg
}

func newTestServer(t *testing.T) (*Server, *market.Store) {
	t.Helper()
	cfg := serverTestConfig()
	store := market.NewStore(cfg, channel.NewChannels(8, 8, 8))
	s := NewServer(cfg, store, signal.NewEngine(cfg), faq.NewResponder(&cfg.Chatbot))
	return s, store
}

func TestHandleQuotes(t *testing.T) {
	s, store := newTestServer(t)

	store.ApplyQuote(models.QuoteUpdate{Exchange: models.ExchangeBybit, LastPrice: 2701.0, Bid: 2700.9, Ask: 2701.1, Status: models.StatusConnected, Source: "ws", Timestamp: time.Now()})
	store.ApplyQuote(models.QuoteUpdate{Exchange: models.ExchangeBinance, LastPrice: 2703.2, Bid: 2703.1, Ask: 2703.3, Status: models.StatusConnected, Source: "ws", Timestamp: time.Now()})
	store.ApplyFunding(models.FundingUpdate{Exchange: models.ExchangeBybit, Rate: 0.05, NextFundingTime: time.Now().Add(2 * time.Hour).UnixMilli()})
	s.refresh()

	req := httptest.NewRequest(http.MethodGet, "/api/quotes", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status: %d", rec.Code)
	}

	var view View
	if err := json.Unmarshal(rec.Body.Bytes(), &view); err != nil {
		t.Fatalf("decode: %v", err)
	}

	if view.ScanID == "" {
		t.Errorf("missing scan id")
	}
	if len(view.Quotes) != 3 {
		t.Fatalf("quotes: got %d, want 3", len(view.Quotes))
	}

	if view.DataSource != "websocket" {
		t.Errorf("data source: got %q, want websocket", view.DataSource)
	}

	bybit := view.Quotes[0]
	if bybit.Exchange != models.ExchangeBybit || bybit.LastPrice != 2701.0 {
		t.Errorf("bybit row: %+v", bybit)
	}
	if bybit.Source != "ws" {
		t.Errorf("bybit source: got %q, want ws", bybit.Source)
	}
	if bybit.FundingRate == nil || *bybit.FundingRate != 0.05 {
		t.Errorf("bybit funding rate: %+v", bybit.FundingRate)
	}
	if bybit.FundingAnnualized == nil || *bybit.FundingAnnualized < 109 || *bybit.FundingAnnualized > 110 {
		t.Errorf("bybit annualized: %+v", bybit.FundingAnnualized)
	}
	if !strings.HasPrefix(bybit.FundingCountdown, "01:59:") && !strings.HasPrefix(bybit.FundingCountdown, "02:00:") {
		t.Errorf("bybit countdown: %q", bybit.FundingCountdown)
	}

	okx := view.Quotes[2]
	if okx.Status != models.StatusLoading || okx.FundingCountdown != "--:--:--" {
		t.Errorf("okx row: %+v", okx)
	}

	// 2.2 spread clears the 0.5 threshold
	if len(view.PriceOpportunities) != 1 {
		t.Fatalf("price opportunities: %+v", view.PriceOpportunities)
	}
	top := view.PriceOpportunities[0]
	if top.BuyExchange != models.ExchangeBybit || top.SellExchange != models.ExchangeBinance || top.Spread != 2.2 {
		t.Errorf("top opportunity: %+v", top)
	}

	if view.FundingOpportunities == nil {
		t.Errorf("funding opportunities must encode as an array")
	}
}

func TestHandleQuotesMethodNotAllowed(t *testing.T) {
	s, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/api/quotes", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status: %d", rec.Code)
	}
}

func TestHandleChatbot(t *testing.T) {
	s, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/api/chatbot", strings.NewReader(`{"message":"what is arbitrage trading"}`))
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status: %d", rec.Code)
	}

	var resp chatbotResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !resp.Success || !strings.Contains(resp.Message, "price differences") {
		t.Errorf("unexpected response: %+v", resp)
	}
}

func TestHandleChatbotRejectsEmptyMessage(t *testing.T) {
	s, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/api/chatbot", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status: %d", rec.Code)
	}
}

func TestHandleHealthz(t *testing.T) {
	s, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status: %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"status":"ok"`) {
		t.Errorf("body: %s", rec.Body.String())
	}
}

func TestDataSourceLabel(t *testing.T) {
	if got := dataSourceLabel([]models.ExchangeQuote{{}, {}}); got != "loading" {
		t.Errorf("no data: got %q, want loading", got)
	}
	if got := dataSourceLabel([]models.ExchangeQuote{{Source: "rest"}, {}}); got != "rest" {
		t.Errorf("polled only: got %q, want rest", got)
	}
	if got := dataSourceLabel([]models.ExchangeQuote{{Source: "rest"}, {Source: "ws"}}); got != "websocket" {
		t.Errorf("mixed: got %q, want websocket", got)
	}
}

func TestSpreadHistoryWindow(t *testing.T) {
	h := NewSpreadHistory(3)
	base := time.Now()

	for i := 0; i < 5; i++ {
		h.Add(base.Add(time.Duration(i)*time.Second), float64(i))
	}

	points := h.Points()
	if len(points) != 3 {
		t.Fatalf("window: got %d points, want 3", len(points))
	}
	if points[0].Spread != 2 || points[2].Spread != 4 {
		t.Errorf("window content: %+v", points)
	}
}

func TestSampleSpread(t *testing.T) {
	s, store := newTestServer(t)

	// no sample while either side is unpriced
	s.sampleSpread()
	if len(s.history.Points()) != 0 {
		t.Fatalf("sampled without prices")
	}

	store.ApplyQuote(models.QuoteUpdate{Exchange: models.ExchangeBybit, LastPrice: 2701.0, Status: models.StatusConnected})
	store.ApplyQuote(models.QuoteUpdate{Exchange: models.ExchangeBinance, LastPrice: 2703.2, Status: models.StatusConnected})
	s.sampleSpread()

	points := s.history.Points()
	if len(points) != 1 {
		t.Fatalf("points: %d", len(points))
	}
	if points[0].Spread != 2.2 {
		t.Errorf("spread: got %f, want 2.2", points[0].Spread)
	}
}
