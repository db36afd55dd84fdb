package server

import (
	"time"

	"github.com/google/uuid"

	"goldflow/internal/funding"
	"goldflow/internal/signal"
	"goldflow/models"
)

// QuoteView is one exchange row of the display payload.
type QuoteView struct {
	Exchange             models.Exchange         `json:"exchange"`
	SymbolCode           string                  `json:"symbol_code"`
	Bid                  float64                 `json:"bid"`
	Ask                  float64                 `json:"ask"`
	LastPrice            float64                 `json:"last_price"`
	PreviousBid          float64                 `json:"previous_bid"`
	Status               models.ConnectionStatus `json:"status"`
	Source               string                  `json:"source"`
	FundingRate          *float64                `json:"funding_rate"`
	FundingAnnualized    *float64                `json:"funding_annualized"`
	FundingIntervalHours int                     `json:"funding_interval_hours"`
	FundingCountdown     string                  `json:"funding_countdown"`
}

// View is the full payload served by GET /api/quotes.
type View struct {
	ScanID               string                      `json:"scan_id"`
	GeneratedAt          time.Time                   `json:"generated_at"`
	Uptime               string                      `json:"uptime"`
	DataSource           string                      `json:"data_source"`
	Quotes               []QuoteView                 `json:"quotes"`
	PriceOpportunities   []models.PriceOpportunity   `json:"price_opportunities"`
	FundingOpportunities []models.FundingOpportunity `json:"funding_opportunities"`
	SpreadHistory        []SpreadPoint               `json:"spread_history"`
}

// dataSourceLabel summarizes where the displayed prices are coming from.
// Any exchange still streaming wins the label; otherwise the page is living
// off REST polls, or nothing has arrived yet.
func dataSourceLabel(snapshot []models.ExchangeQuote) string {
	label := "loading"
	for _, q := range snapshot {
		switch q.Source {
		case "ws":
			return "websocket"
		case "rest":
			label = "rest"
		}
	}
	return label
}

// buildView assembles the display payload from a store snapshot.
func buildView(snapshot []models.ExchangeQuote, engine *signal.Engine, history *SpreadHistory, started time.Time, now time.Time) View {
	quotes := make([]QuoteView, 0, len(snapshot))
	for _, q := range snapshot {
		qv := QuoteView{
			Exchange:             q.Exchange,
			SymbolCode:           q.SymbolCode,
			Bid:                  q.Bid,
			Ask:                  q.Ask,
			LastPrice:            q.LastTradePrice,
			PreviousBid:          q.PreviousBid,
			Status:               q.Status,
			Source:               q.Source,
			FundingRate:          q.FundingRate,
			FundingIntervalHours: q.FundingIntervalHours,
			FundingCountdown:     funding.FormatCountdown(q.NextFundingTime, now),
		}
		if q.FundingRate != nil && q.FundingIntervalHours > 0 {
			ann := signal.Annualize(*q.FundingRate, q.FundingIntervalHours)
			qv.FundingAnnualized = &ann
		}
		quotes = append(quotes, qv)
	}

	priceOpps := engine.FindPriceOpportunities(snapshot)
	if priceOpps == nil {
		priceOpps = []models.PriceOpportunity{}
	}
	fundingOpps := engine.FindFundingOpportunities(snapshot)
	if fundingOpps == nil {
		fundingOpps = []models.FundingOpportunity{}
	}

	return View{
		ScanID:               uuid.NewString(),
		GeneratedAt:          now,
		Uptime:               funding.FormatDuration(now.Sub(started)),
		DataSource:           dataSourceLabel(snapshot),
		Quotes:               quotes,
		PriceOpportunities:   priceOpps,
		FundingOpportunities: fundingOpps,
		SpreadHistory:        history.Points(),
	}
}
