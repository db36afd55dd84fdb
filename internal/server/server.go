package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"sync"
	"time"

	appconfig "goldflow/config"
	"goldflow/internal/faq"
	"goldflow/internal/funding"
	"goldflow/internal/market"
	"goldflow/internal/signal"
	"goldflow/logger"
	"goldflow/models"
)

// Server exposes the display API: the quote/opportunity payload the page
// polls, a liveness probe, and the chatbot endpoint. The payload is rebuilt
// on every store change signal and on a fixed timer so countdowns stay fresh
// even when the market is quiet.
type Server struct {
	config    *appconfig.Config
	store     *market.Store
	engine    *signal.Engine
	responder *faq.Responder
	history   *SpreadHistory
	started   time.Time
	httpSrv   *http.Server
	ctx       context.Context
	wg        *sync.WaitGroup
	mu        sync.Mutex
	running   bool
	log       *logger.Log

	viewMu sync.RWMutex
	view   View
}

func NewServer(cfg *appconfig.Config, store *market.Store, engine *signal.Engine, responder *faq.Responder) *Server {
	s := &Server{
		config:    cfg,
		store:     store,
		engine:    engine,
		responder: responder,
		history:   NewSpreadHistory(cfg.Server.HistoryPoints),
		started:   time.Now(),
		wg:        &sync.WaitGroup{},
		log:       logger.GetLogger(),
	}
	s.httpSrv = &http.Server{
		Addr:         cfg.Server.Listen,
		Handler:      s.Handler(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	return s
}

// Handler returns the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/quotes", s.handleQuotes)
	mux.HandleFunc("/api/chatbot", s.handleChatbot)
	mux.HandleFunc("/healthz", s.handleHealthz)
	return mux
}

// Start begins serving and refreshing the cached payload.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("server already running")
	}
	s.running = true
	s.ctx = ctx
	s.mu.Unlock()

	log := s.log.WithComponent("server")

	s.refresh()

	s.wg.Add(1)
	go s.refreshWorker()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		log.WithFields(logger.Fields{"listen": s.httpSrv.Addr}).Info("display api listening")
		if err := s.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Error("display api server failed")
		}
	}()

	return nil
}

// Stop shuts the listener down gracefully and waits for the workers.
func (s *Server) Stop() {
	s.mu.Lock()
	s.running = false
	s.mu.Unlock()

	log := s.log.WithComponent("server")
	log.Info("stopping display api")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.httpSrv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("display api shutdown was not clean")
	}

	s.wg.Wait()
	log.Info("display api stopped")
}

func (s *Server) refreshWorker() {
	defer s.wg.Done()

	log := s.log.WithComponent("server").WithFields(logger.Fields{"worker": "view_refresher"})
	ticker := time.NewTicker(s.config.Server.RefreshEvery)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			log.Info("worker stopped due to context cancellation")
			return
		case <-s.store.Updated():
			s.refresh()
		case <-ticker.C:
			s.sampleSpread()
			s.refresh()
		}
	}
}

// sampleSpread appends one Bybit vs Binance spread point once both venues
// have a price.
func (s *Server) sampleSpread() {
	snapshot := s.store.Snapshot()
	var bybit, binance float64
	for _, q := range snapshot {
		switch q.Exchange {
		case models.ExchangeBybit:
			bybit = q.LastTradePrice
		case models.ExchangeBinance:
			binance = q.LastTradePrice
		}
	}
	if bybit <= 0 || binance <= 0 {
		return
	}
	spread := math.Round(math.Abs(bybit-binance)*100) / 100
	s.history.Add(time.Now().UTC(), spread)
}

func (s *Server) refresh() {
	view := buildView(s.store.Snapshot(), s.engine, s.history, s.started, time.Now().UTC())
	s.viewMu.Lock()
	s.view = view
	s.viewMu.Unlock()
}

func (s *Server) handleQuotes(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	s.viewMu.RLock()
	view := s.view
	s.viewMu.RUnlock()

	writeJSON(w, http.StatusOK, view)
}

type chatbotRequest struct {
	Message string `json:"message"`
}

type chatbotResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func (s *Server) handleChatbot(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req chatbotRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Message == "" {
		writeJSON(w, http.StatusBadRequest, chatbotResponse{Success: false, Message: "message is required"})
		return
	}

	answer := s.responder.Answer(r.Context(), req.Message)
	writeJSON(w, http.StatusOK, chatbotResponse{Success: true, Message: answer})
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
		"uptime": funding.FormatDuration(time.Since(s.started)),
	})
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}
