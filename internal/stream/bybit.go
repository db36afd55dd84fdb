package stream

import (
	"encoding/json"
	"time"

	appconfig "goldflow/config"
	"goldflow/models"
)

// BybitEndpoint streams the v5 linear tickers channel. Bybit pushes delta
// frames, so every price field may be absent; missing bid/ask are synthesized
// around the last trade price.
type BybitEndpoint struct {
	url    string
	symbol string
	topic  string
}

func NewBybitEndpoint(src *appconfig.ExchangeSourceConfig) *BybitEndpoint {
	return &BybitEndpoint{
		url:    src.Stream.URL,
		symbol: src.Symbol,
		topic:  "tickers." + src.Symbol,
	}
}

func (e *BybitEndpoint) Exchange() models.Exchange { return models.ExchangeBybit }

func (e *BybitEndpoint) URL() string { return e.url }

func (e *BybitEndpoint) SubscribePayload() ([]byte, bool) {
	payload, _ := json.Marshal(map[string]interface{}{
		"op":   "subscribe",
		"args": []string{e.topic},
	})
	return payload, true
}

func (e *BybitEndpoint) Parse(raw []byte) (models.QuoteUpdate, bool) {
	var msg models.BybitTickerMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		return models.QuoteUpdate{}, false
	}
	if msg.Topic != e.topic {
		return models.QuoteUpdate{}, false
	}

	last := parsePrice(msg.Data.LastPrice)
	if last == 0 {
		last = parsePrice(msg.Data.LP)
	}
	if last <= 0 {
		return models.QuoteUpdate{}, false
	}

	bid := parsePrice(msg.Data.Bid1Price)
	if bid == 0 {
		bid = parsePrice(msg.Data.BP)
	}
	if bid == 0 {
		bid = last - 0.1
	}
	ask := parsePrice(msg.Data.Ask1Price)
	if ask == 0 {
		ask = parsePrice(msg.Data.AP)
	}
	if ask == 0 {
		ask = last + 0.1
	}

	return models.QuoteUpdate{
		Exchange:  models.ExchangeBybit,
		LastPrice: last,
		Bid:       bid,
		Ask:       ask,
		Status:    models.StatusConnected,
		Source:    "ws",
		Timestamp: time.Now().UTC(),
	}, true
}
