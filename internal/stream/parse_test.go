package stream

import (
	"testing"

	appconfig "goldflow/config"
	"goldflow/models"
)

func bybitTestEndpoint() *BybitEndpoint {
	return NewBybitEndpoint(&appconfig.ExchangeSourceConfig{
		Symbol: "XAUTUSDT",
		Stream: appconfig.StreamConfig{URL: "wss://stream.bybit.com/v5/public/linear"},
	})
}

func TestBybitParseSnapshot(t *testing.T) {
	e := bybitTestEndpoint()

	raw := []byte(`{"topic":"tickers.XAUTUSDT","type":"snapshot","data":{"symbol":"XAUTUSDT","lastPrice":"2701.5","bid1Price":"2701.3","ask1Price":"2701.8"}}`)
	u, ok := e.Parse(raw)
	if !ok {
		t.Fatalf("expected parse to succeed")
	}
	if u.Exchange != models.ExchangeBybit || u.LastPrice != 2701.5 || u.Bid != 2701.3 || u.Ask != 2701.8 {
		t.Fatalf("unexpected update: %+v", u)
	}
	if u.Status != models.StatusConnected || u.Source != "ws" {
		t.Fatalf("unexpected status/source: %+v", u)
	}
}

func TestBybitParseDeltaSynthesizesBidAsk(t *testing.T) {
	e := bybitTestEndpoint()

	raw := []byte(`{"topic":"tickers.XAUTUSDT","type":"delta","data":{"symbol":"XAUTUSDT","lastPrice":"2700"}}`)
	u, ok := e.Parse(raw)
	if !ok {
		t.Fatalf("expected parse to succeed")
	}
	if u.Bid != 2699.9 || u.Ask != 2700.1 {
		t.Fatalf("expected synthesized bid/ask around last, got %+v", u)
	}
}

func TestBybitParseRejectsOtherFrames(t *testing.T) {
	e := bybitTestEndpoint()

	cases := map[string]string{
		"wrong topic":   `{"topic":"tickers.BTCUSDT","data":{"lastPrice":"100"}}`,
		"subscribe ack": `{"success":true,"op":"subscribe"}`,
		"no price":      `{"topic":"tickers.XAUTUSDT","type":"delta","data":{"symbol":"XAUTUSDT"}}`,
		"malformed":     `{"topic":`,
	}
	for name, raw := range cases {
		if _, ok := e.Parse([]byte(raw)); ok {
			t.Errorf("%s: expected parse to fail", name)
		}
	}
}

func TestBinanceParse(t *testing.T) {
	e := NewBinanceEndpoint(&appconfig.ExchangeSourceConfig{Symbol: "XAUUSDT"})

	raw := []byte(`{"e":"24hrTicker","s":"XAUUSDT","c":"2702.4","b":"2702.2","a":"2702.6"}`)
	u, ok := e.Parse(raw)
	if !ok {
		t.Fatalf("expected parse to succeed")
	}
	if u.Exchange != models.ExchangeBinance || u.LastPrice != 2702.4 || u.Bid != 2702.2 || u.Ask != 2702.6 {
		t.Fatalf("unexpected update: %+v", u)
	}
}

func TestBinanceParseSymbolGate(t *testing.T) {
	e := NewBinanceEndpoint(&appconfig.ExchangeSourceConfig{Symbol: "XAUUSDT"})

	// event type absent but symbol matches
	u, ok := e.Parse([]byte(`{"s":"XAUUSDT","c":"2700"}`))
	if !ok {
		t.Fatalf("expected symbol-gated frame to parse")
	}
	if u.Bid != 2699.9 || u.Ask != 2700.1 {
		t.Fatalf("expected synthesized bid/ask, got %+v", u)
	}

	if _, ok := e.Parse([]byte(`{"s":"BTCUSDT","c":"100"}`)); ok {
		t.Fatalf("foreign symbol should be rejected")
	}
	if _, ok := e.Parse([]byte(`{"e":"24hrTicker","s":"XAUUSDT","c":"0"}`)); ok {
		t.Fatalf("zero price should be rejected")
	}
}

func TestOkxParse(t *testing.T) {
	e := NewOkxEndpoint(&appconfig.ExchangeSourceConfig{Symbol: "XAU-USDT-SWAP"})

	raw := []byte(`{"arg":{"channel":"tickers","instId":"XAU-USDT-SWAP"},"data":[{"instId":"XAU-USDT-SWAP","last":"2703.1","bidPx":"2703.0","askPx":"2703.3"}]}`)
	u, ok := e.Parse(raw)
	if !ok {
		t.Fatalf("expected parse to succeed")
	}
	if u.Exchange != models.ExchangeOKX || u.LastPrice != 2703.1 || u.Bid != 2703.0 || u.Ask != 2703.3 {
		t.Fatalf("unexpected update: %+v", u)
	}

	if _, ok := e.Parse([]byte(`{"event":"subscribe","arg":{"channel":"tickers","instId":"XAU-USDT-SWAP"}}`)); ok {
		t.Fatalf("subscription ack should be rejected")
	}
	if _, ok := e.Parse([]byte(`{"arg":{"channel":"books","instId":"XAU-USDT-SWAP"},"data":[{"last":"1"}]}`)); ok {
		t.Fatalf("foreign channel should be rejected")
	}
}

func TestSubscribePayloads(t *testing.T) {
	bybit := bybitTestEndpoint()
	payload, ok := bybit.SubscribePayload()
	if !ok {
		t.Fatalf("bybit requires a subscription payload")
	}
	if string(payload) != `{"args":["tickers.XAUTUSDT"],"op":"subscribe"}` {
		t.Errorf("unexpected bybit payload: %s", payload)
	}

	binance := NewBinanceEndpoint(&appconfig.ExchangeSourceConfig{Symbol: "XAUUSDT"})
	if _, ok := binance.SubscribePayload(); ok {
		t.Errorf("binance subscribes via the stream path")
	}

	okx := NewOkxEndpoint(&appconfig.ExchangeSourceConfig{Symbol: "XAU-USDT-SWAP"})
	payload, ok = okx.SubscribePayload()
	if !ok {
		t.Fatalf("okx requires a subscription payload")
	}
	if string(payload) != `{"args":[{"channel":"tickers","instId":"XAU-USDT-SWAP"}],"op":"subscribe"}` {
		t.Errorf("unexpected okx payload: %s", payload)
	}
}
