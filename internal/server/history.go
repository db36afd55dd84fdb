package server

import (
	"sync"
	"time"
)

// SpreadPoint is one sample of the Bybit vs Binance last-price spread.
type SpreadPoint struct {
	At     time.Time `json:"at"`
	Spread float64   `json:"spread"`
}

// SpreadHistory is a fixed-capacity rolling window of spread samples. The
// oldest point falls off once the window is full.
type SpreadHistory struct {
	mu     sync.Mutex
	points []SpreadPoint
	limit  int
}

func NewSpreadHistory(limit int) *SpreadHistory {
	if limit <= 0 {
		limit = 20
	}
	return &SpreadHistory{limit: limit}
}

func (h *SpreadHistory) Add(at time.Time, spread float64) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.points = append(h.points, SpreadPoint{At: at, Spread: spread})
	if len(h.points) > h.limit {
		h.points = h.points[len(h.points)-h.limit:]
	}
}

// Points returns a copy of the window, oldest first.
func (h *SpreadHistory) Points() []SpreadPoint {
	h.mu.Lock()
	defer h.mu.Unlock()

	out := make([]SpreadPoint, len(h.points))
	copy(out, h.points)
	return out
}
