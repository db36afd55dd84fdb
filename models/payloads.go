package models

// BybitTickerMessage is the Bybit v5 public linear ticker push:
// {topic:"tickers.<SYMBOL>", type:"snapshot"|"delta", data:{...}}.
type BybitTickerMessage struct {
	Topic string          `json:"topic"`
	Type  string          `json:"type"`
	Data  BybitTickerData `json:"data"`
}

// BybitTickerData carries the fields consumed from the Bybit ticker. The
// short aliases (lp/bp/ap) appear on some delta frames.
type BybitTickerData struct {
	Symbol          string `json:"symbol"`
	LastPrice       string `json:"lastPrice"`
	LP              string `json:"lp"`
	Bid1Price       string `json:"bid1Price"`
	BP              string `json:"bp"`
	Ask1Price       string `json:"ask1Price"`
	AP              string `json:"ap"`
	FundingRate     string `json:"fundingRate"`
	NextFundingTime string `json:"nextFundingTime"`
}

// BybitTickerResult is the REST v5 market ticker envelope found under
// result in the server response.
type BybitTickerResult struct {
	Category string            `json:"category"`
	List     []BybitTickerData `json:"list"`
}

// BinanceTickerMessage is the Binance futures 24hr ticker stream event
// (xauusdt@ticker). Field names follow the stream's single-letter scheme.
type BinanceTickerMessage struct {
	EventType string `json:"e"`
	Symbol    string `json:"s"`
	LastPrice string `json:"c"`
	BidPrice  string `json:"b"`
	AskPrice  string `json:"a"`
	MarkPrice string `json:"p"`
}

// OkxTickerMessage is the OKX v5 public tickers channel push:
// {arg:{channel:"tickers",instId:"..."}, data:[{...}]}.
type OkxTickerMessage struct {
	Arg   OkxArg          `json:"arg"`
	Data  []OkxTickerData `json:"data"`
	Event string          `json:"event"`
}

type OkxArg struct {
	Channel string `json:"channel"`
	InstID  string `json:"instId"`
}

type OkxTickerData struct {
	InstID string `json:"instId"`
	Last   string `json:"last"`
	BidPx  string `json:"bidPx"`
	AskPx  string `json:"askPx"`
}

// OkxTickerResponse is the REST /api/v5/market/ticker envelope.
type OkxTickerResponse struct {
	Code string          `json:"code"`
	Msg  string          `json:"msg"`
	Data []OkxTickerData `json:"data"`
}

// OkxFundingData is one entry of /api/v5/public/funding-rate.
type OkxFundingData struct {
	InstID          string `json:"instId"`
	FundingRate     string `json:"fundingRate"`
	NextFundingTime string `json:"nextFundingTime"`
}

// OkxFundingResponse is the REST funding-rate envelope.
type OkxFundingResponse struct {
	Code string           `json:"code"`
	Msg  string           `json:"msg"`
	Data []OkxFundingData `json:"data"`
}
