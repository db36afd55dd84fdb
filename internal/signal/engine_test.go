package signal

import (
	"math"
	"testing"

	appconfig "goldflow/config"
	"goldflow/models"
)

func testEngine() *Engine {
	cfg := &appconfig.Config{}
	cfg.Signals.PriceSpreadThreshold = 0.5
	cfg.Signals.MaxPriceOpportunities = 5
	cfg.Signals.FundingSpreadThreshold = 5.0
	return NewEngine(cfg)
}

func quote(ex models.Exchange, last float64, rate *float64, intervalHours int) models.ExchangeQuote {
	return models.ExchangeQuote{
		Exchange:             ex,
		LastTradePrice:       last,
		FundingRate:          rate,
		FundingIntervalHours: intervalHours,
	}
}

func rate(v float64) *float64 { return &v }

func TestFindPriceOpportunities(t *testing.T) {
	e := testEngine()

	snapshot := []models.ExchangeQuote{
		quote(models.ExchangeBybit, 2701.0, nil, 4),
		quote(models.ExchangeBinance, 2703.2, nil, 4),
		quote(models.ExchangeOKX, 2701.3, nil, 8),
	}

	opps := e.FindPriceOpportunities(snapshot)
	if len(opps) != 2 {
		t.Fatalf("expected 2 opportunities, got %d: %+v", len(opps), opps)
	}

	// largest spread first: bybit/binance at 2.2
	top := opps[0]
	if top.BuyExchange != models.ExchangeBybit || top.SellExchange != models.ExchangeBinance {
		t.Errorf("top opportunity sides: %+v", top)
	}
	if top.Spread != 2.2 {
		t.Errorf("top spread: got %f, want 2.2", top.Spread)
	}
	if top.BuyPrice != 2701.0 || top.SellPrice != 2703.2 {
		t.Errorf("top prices: %+v", top)
	}

	if opps[1].Spread != 1.9 {
		t.Errorf("second spread: got %f, want 1.9", opps[1].Spread)
	}
}

func TestFindPriceOpportunitiesIgnoresUnpriced(t *testing.T) {
	e := testEngine()

	snapshot := []models.ExchangeQuote{
		quote(models.ExchangeBybit, 0, nil, 4), // still loading
		quote(models.ExchangeBinance, 2703.2, nil, 4),
	}
	if opps := e.FindPriceOpportunities(snapshot); len(opps) != 0 {
		t.Fatalf("expected no opportunities, got %+v", opps)
	}
}

func TestFindPriceOpportunitiesThresholdIsExclusive(t *testing.T) {
	e := testEngine()

	snapshot := []models.ExchangeQuote{
		quote(models.ExchangeBybit, 2700.0, nil, 4),
		quote(models.ExchangeBinance, 2700.5, nil, 4),
	}
	if opps := e.FindPriceOpportunities(snapshot); len(opps) != 0 {
		t.Fatalf("spread equal to threshold must not signal, got %+v", opps)
	}
}

func TestFindFundingOpportunities(t *testing.T) {
	e := testEngine()

	// annualized: bybit 0.05*6*365 = 109.5, binance -0.02*6*365 = -43.8,
	// okx 0.03*3*365 = 32.85
	snapshot := []models.ExchangeQuote{
		quote(models.ExchangeBybit, 2700, rate(0.05), 4),
		quote(models.ExchangeBinance, 2700, rate(-0.02), 4),
		quote(models.ExchangeOKX, 2700, rate(0.03), 8),
	}

	opps := e.FindFundingOpportunities(snapshot)
	if len(opps) != 3 {
		t.Fatalf("expected 3 opportunities, got %d: %+v", len(opps), opps)
	}

	top := opps[0]
	if top.AnnualizedSpread != 153.3 {
		t.Errorf("top spread: got %f, want 153.3", top.AnnualizedSpread)
	}
	if top.LongExchange != models.ExchangeBinance || top.ShortExchange != models.ExchangeBybit {
		t.Errorf("top sides: %+v", top)
	}
	// per-leg rates stay per-settlement; only the spread is annualized
	if top.LongRate != -0.02 || top.ShortRate != 0.05 {
		t.Errorf("top rates: %+v", top)
	}
	if top.LongIntervalHours != 4 || top.ShortIntervalHours != 4 {
		t.Errorf("top intervals: %+v", top)
	}

	if opps[1].AnnualizedSpread != 76.65 || opps[2].AnnualizedSpread != 76.65 {
		t.Errorf("remaining spreads: %+v", opps[1:])
	}
}

func TestFindFundingOpportunitiesSkipsMissingRates(t *testing.T) {
	e := testEngine()

	snapshot := []models.ExchangeQuote{
		quote(models.ExchangeBybit, 2700, rate(0.05), 4),
		quote(models.ExchangeBinance, 2700, nil, 4),
	}
	if opps := e.FindFundingOpportunities(snapshot); len(opps) != 0 {
		t.Fatalf("expected no opportunities, got %+v", opps)
	}
}

func TestFindFundingOpportunitiesThreshold(t *testing.T) {
	e := testEngine()

	// 0.002% at 4h annualizes to 4.38, under the 5.0 threshold
	below := []models.ExchangeQuote{
		quote(models.ExchangeBybit, 2700, rate(0.002), 4),
		quote(models.ExchangeBinance, 2700, rate(0), 4),
	}
	if opps := e.FindFundingOpportunities(below); len(opps) != 0 {
		t.Fatalf("sub-threshold spread must not signal, got %+v", opps)
	}

	// 0.01% at 4h annualizes to 21.9
	above := []models.ExchangeQuote{
		quote(models.ExchangeBybit, 2700, rate(0.01), 4),
		quote(models.ExchangeBinance, 2700, rate(0), 4),
	}
	opps := e.FindFundingOpportunities(above)
	if len(opps) != 1 {
		t.Fatalf("expected 1 opportunity, got %+v", opps)
	}
	if opps[0].AnnualizedSpread != 21.9 {
		t.Errorf("spread: got %f, want 21.9", opps[0].AnnualizedSpread)
	}
	if opps[0].LongRate != 0 || opps[0].ShortRate != 0.01 {
		t.Errorf("rates: %+v", opps[0])
	}
}

func TestAnnualize(t *testing.T) {
	if got := Annualize(0.05, 4); math.Abs(got-109.5) > 1e-9 {
		t.Errorf("annualize 0.05@4h: got %f, want 109.5", got)
	}
	if got := Annualize(0.03, 8); math.Abs(got-32.85) > 1e-9 {
		t.Errorf("annualize 0.03@8h: got %f, want 32.85", got)
	}
}
