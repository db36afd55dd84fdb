package stream

import (
	"encoding/json"
	"time"

	appconfig "goldflow/config"
	"goldflow/models"
)

// OkxEndpoint streams the v5 public tickers channel for one swap instrument.
type OkxEndpoint struct {
	url    string
	instID string
}

func NewOkxEndpoint(src *appconfig.ExchangeSourceConfig) *OkxEndpoint {
	return &OkxEndpoint{url: src.Stream.URL, instID: src.Symbol}
}

func (e *OkxEndpoint) Exchange() models.Exchange { return models.ExchangeOKX }

func (e *OkxEndpoint) URL() string { return e.url }

func (e *OkxEndpoint) SubscribePayload() ([]byte, bool) {
	payload, _ := json.Marshal(map[string]interface{}{
		"op": "subscribe",
		"args": []map[string]string{
			{"channel": "tickers", "instId": e.instID},
		},
	})
	return payload, true
}

func (e *OkxEndpoint) Parse(raw []byte) (models.QuoteUpdate, bool) {
	var msg models.OkxTickerMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		return models.QuoteUpdate{}, false
	}
	// subscription acks carry an event field and no data rows
	if msg.Arg.Channel != "tickers" || len(msg.Data) == 0 {
		return models.QuoteUpdate{}, false
	}

	row := msg.Data[0]
	last := parsePrice(row.Last)
	if last <= 0 {
		return models.QuoteUpdate{}, false
	}

	bid := parsePrice(row.BidPx)
	if bid == 0 {
		bid = last - 0.1
	}
	ask := parsePrice(row.AskPx)
	if ask == 0 {
		ask = last + 0.1
	}

	return models.QuoteUpdate{
		Exchange:  models.ExchangeOKX,
		LastPrice: last,
		Bid:       bid,
		Ask:       ask,
		Status:    models.StatusConnected,
		Source:    "ws",
		Timestamp: time.Now().UTC(),
	}, true
}
