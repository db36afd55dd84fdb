package stream

import (
	"encoding/json"
	"time"

	appconfig "goldflow/config"
	"goldflow/models"
)

// BinanceEndpoint streams the USDⓈ-M futures 24hr ticker. The subscription
// is encoded in the stream path, so no handshake payload is needed.
type BinanceEndpoint struct {
	url    string
	symbol string
}

func NewBinanceEndpoint(src *appconfig.ExchangeSourceConfig) *BinanceEndpoint {
	return &BinanceEndpoint{url: src.Stream.URL, symbol: src.Symbol}
}

func (e *BinanceEndpoint) Exchange() models.Exchange { return models.ExchangeBinance }

func (e *BinanceEndpoint) URL() string { return e.url }

func (e *BinanceEndpoint) SubscribePayload() ([]byte, bool) { return nil, false }

func (e *BinanceEndpoint) Parse(raw []byte) (models.QuoteUpdate, bool) {
	var msg models.BinanceTickerMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		return models.QuoteUpdate{}, false
	}
	if msg.EventType != "24hrTicker" && msg.Symbol != e.symbol {
		return models.QuoteUpdate{}, false
	}

	last := parsePrice(msg.LastPrice)
	if last <= 0 {
		return models.QuoteUpdate{}, false
	}

	bid := parsePrice(msg.BidPrice)
	if bid == 0 {
		bid = last - 0.1
	}
	ask := parsePrice(msg.AskPrice)
	if ask == 0 {
		ask = last + 0.1
	}

	return models.QuoteUpdate{
		Exchange:  models.ExchangeBinance,
		LastPrice: last,
		Bid:       bid,
		Ask:       ask,
		Status:    models.StatusConnected,
		Source:    "ws",
		Timestamp: time.Now().UTC(),
	}, true
}
