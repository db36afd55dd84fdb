package signal

import (
	"math"
	"sort"

	appconfig "goldflow/config"
	"goldflow/models"
)

// Engine derives arbitrage opportunities from a market snapshot. It holds no
// state of its own; every call works from the snapshot it is given.
type Engine struct {
	priceThreshold   float64
	maxPriceResults  int
	fundingThreshold float64
}

func NewEngine(cfg *appconfig.Config) *Engine {
	return &Engine{
		priceThreshold:   cfg.Signals.PriceSpreadThreshold,
		maxPriceResults:  cfg.Signals.MaxPriceOpportunities,
		fundingThreshold: cfg.Signals.FundingSpreadThreshold,
	}
}

// FindPriceOpportunities compares last trade prices pairwise and reports
// every spread above the threshold, buy side on the cheaper exchange. The
// result is sorted by spread descending and capped.
func (e *Engine) FindPriceOpportunities(snapshot []models.ExchangeQuote) []models.PriceOpportunity {
	var out []models.PriceOpportunity

	for i := 0; i < len(snapshot); i++ {
		for j := i + 1; j < len(snapshot); j++ {
			a, b := snapshot[i], snapshot[j]
			if a.LastTradePrice <= 0 || b.LastTradePrice <= 0 {
				continue
			}

			spread := math.Abs(a.LastTradePrice - b.LastTradePrice)
			if spread <= e.priceThreshold {
				continue
			}

			buy, sell := a, b
			if buy.LastTradePrice > sell.LastTradePrice {
				buy, sell = sell, buy
			}

			out = append(out, models.PriceOpportunity{
				BuyExchange:  buy.Exchange,
				SellExchange: sell.Exchange,
				Spread:       round2(spread),
				BuyPrice:     buy.LastTradePrice,
				SellPrice:    sell.LastTradePrice,
			})
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Spread > out[j].Spread })
	if e.maxPriceResults > 0 && len(out) > e.maxPriceResults {
		out = out[:e.maxPriceResults]
	}
	return out
}

// FindFundingOpportunities annualizes each exchange's funding rate by its
// own settlement interval and reports every pair whose annualized spread
// clears the threshold: long the lower rate, short the higher. The per-leg
// rates carried on the result are the raw per-settlement rates; only the
// spread is annualized. Exchanges without a funding rate yet are skipped.
// The result is sorted by spread descending and is not capped.
func (e *Engine) FindFundingOpportunities(snapshot []models.ExchangeQuote) []models.FundingOpportunity {
	var out []models.FundingOpportunity

	for i := 0; i < len(snapshot); i++ {
		for j := i + 1; j < len(snapshot); j++ {
			a, b := snapshot[i], snapshot[j]
			if a.FundingRate == nil || b.FundingRate == nil {
				continue
			}
			if a.FundingIntervalHours <= 0 || b.FundingIntervalHours <= 0 {
				continue
			}

			annA := Annualize(*a.FundingRate, a.FundingIntervalHours)
			annB := Annualize(*b.FundingRate, b.FundingIntervalHours)

			spread := math.Abs(annA - annB)
			if spread < e.fundingThreshold {
				continue
			}

			long, short := a, b
			if annA > annB {
				long, short = short, long
			}

			out = append(out, models.FundingOpportunity{
				LongExchange:       long.Exchange,
				ShortExchange:      short.Exchange,
				LongRate:           *long.FundingRate,
				ShortRate:          *short.FundingRate,
				LongIntervalHours:  long.FundingIntervalHours,
				ShortIntervalHours: short.FundingIntervalHours,
				AnnualizedSpread:   round2(spread),
			})
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].AnnualizedSpread > out[j].AnnualizedSpread })
	return out
}

// Annualize converts a per-settlement funding rate in percent to a yearly
// percentage: rate times settlements per day times 365.
func Annualize(ratePercent float64, intervalHours int) float64 {
	return ratePercent * (24.0 / float64(intervalHours)) * 365.0
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
