package market

import (
	"context"
	"fmt"
	"sync"
	"time"

	appconfig "goldflow/config"
	"goldflow/internal/channel"
	"goldflow/logger"
	"goldflow/models"
)

// Store is the process-wide authoritative table of per-exchange market
// state. The exchange set is fixed at construction; entities are mutated in
// place and never added or removed. All writes arrive through the update
// channels and are applied by a single consumer goroutine, so writers never
// contend on entity state; reads go through Snapshot copies.
type Store struct {
	config   *appconfig.Config
	channels *channel.Channels
	ctx      context.Context
	wg       *sync.WaitGroup
	mu       sync.RWMutex
	running  bool
	log      *logger.Log

	quotes  map[models.Exchange]*models.ExchangeQuote
	order   []models.Exchange
	updated chan struct{}
}

// NewStore builds the registry with every configured exchange in Loading
// state and zeroed numeric fields.
func NewStore(cfg *appconfig.Config, ch *channel.Channels) *Store {
	s := &Store{
		config:   cfg,
		channels: ch,
		wg:       &sync.WaitGroup{},
		log:      logger.GetLogger(),
		quotes:   make(map[models.Exchange]*models.ExchangeQuote, len(models.AllExchanges)),
		order:    models.AllExchanges,
		updated:  make(chan struct{}, 1),
	}

	for _, ex := range models.AllExchanges {
		src := cfg.Exchange(ex)
		s.quotes[ex] = &models.ExchangeQuote{
			Exchange:             ex,
			SymbolCode:           src.SymbolCode,
			Status:               models.StatusLoading,
			FundingIntervalHours: src.FundingIntervalHours,
		}
	}

	s.log.WithComponent("market_store").WithFields(logger.Fields{
		"exchanges": len(s.quotes),
	}).Info("market store initialized")

	return s
}

// Run starts the single consumer applying updates from the channels.
func (s *Store) Run(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("market store already running")
	}
	s.running = true
	s.ctx = ctx
	s.mu.Unlock()

	s.wg.Add(1)
	go s.consume()

	s.log.WithComponent("market_store").Info("market store consumer started")
	return nil
}

// Stop waits for the consumer to drain.
func (s *Store) Stop() {
	s.mu.Lock()
	s.running = false
	s.mu.Unlock()

	s.log.WithComponent("market_store").Info("stopping market store")
	s.wg.Wait()
	s.log.WithComponent("market_store").Info("market store stopped")
}

func (s *Store) consume() {
	defer s.wg.Done()
	log := s.log.WithComponent("market_store").WithFields(logger.Fields{"worker": "update_consumer"})

	for {
		select {
		case <-s.ctx.Done():
			log.Info("consumer stopped due to context cancellation")
			return
		case msg, ok := <-s.channels.Quotes:
			if !ok {
				return
			}
			s.ApplyQuote(msg)
		case msg, ok := <-s.channels.Funding:
			if !ok {
				return
			}
			s.ApplyFunding(msg)
		case msg, ok := <-s.channels.Status:
			if !ok {
				return
			}
			s.ApplyStatus(msg)
		}
	}
}

// ApplyQuote overwrites the price fields of one exchange entity, capturing
// the previous bid first. A polled update never downgrades an exchange the
// stream currently reports as connected; the fresher transport wins the
// status field while prices remain last-writer-wins.
func (s *Store) ApplyQuote(u models.QuoteUpdate) {
	s.mu.Lock()
	q, ok := s.quotes[u.Exchange]
	if !ok {
		s.mu.Unlock()
		s.log.WithComponent("market_store").WithFields(logger.Fields{"exchange": u.Exchange}).Warn("quote update for unknown exchange")
		return
	}

	status := u.Status
	if status == models.StatusPolledFallback && q.Status == models.StatusConnected {
		status = models.StatusConnected
	}

	q.PreviousBid = q.Bid
	q.Bid = u.Bid
	q.Ask = u.Ask
	q.LastTradePrice = u.LastPrice
	q.Status = status
	q.Source = u.Source
	q.UpdatedAt = u.Timestamp
	s.mu.Unlock()

	s.notify()
}

// ApplyFunding overwrites the funding fields only.
func (s *Store) ApplyFunding(u models.FundingUpdate) {
	s.mu.Lock()
	q, ok := s.quotes[u.Exchange]
	if !ok {
		s.mu.Unlock()
		s.log.WithComponent("market_store").WithFields(logger.Fields{"exchange": u.Exchange}).Warn("funding update for unknown exchange")
		return
	}

	rate := u.Rate
	next := u.NextFundingTime
	q.FundingRate = &rate
	q.NextFundingTime = &next
	s.mu.Unlock()

	s.notify()
}

// ApplyStatus records a connection state transition without touching prices.
func (s *Store) ApplyStatus(u models.StatusUpdate) {
	s.mu.Lock()
	q, ok := s.quotes[u.Exchange]
	if !ok {
		s.mu.Unlock()
		return
	}
	q.Status = u.Status
	s.mu.Unlock()

	s.notify()
}

// Snapshot returns a consistent copy of all exchange entities in display
// order.
func (s *Store) Snapshot() []models.ExchangeQuote {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.ExchangeQuote, 0, len(s.order))
	for _, ex := range s.order {
		q := *s.quotes[ex]
		if s.quotes[ex].FundingRate != nil {
			rate := *s.quotes[ex].FundingRate
			q.FundingRate = &rate
		}
		if s.quotes[ex].NextFundingTime != nil {
			next := *s.quotes[ex].NextFundingTime
			q.NextFundingTime = &next
		}
		out = append(out, q)
	}
	return out
}

// Status reports the current connection status of one exchange. Used by the
// polling fetcher to gate quote polls on "not currently connected".
func (s *Store) Status(ex models.Exchange) models.ConnectionStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if q, ok := s.quotes[ex]; ok {
		return q.Status
	}
	return models.StatusError
}

// Updated exposes a coalesced change signal: at most one pending
// notification regardless of how many writes occurred since the last read.
func (s *Store) Updated() <-chan struct{} {
	return s.updated
}

func (s *Store) notify() {
	select {
	case s.updated <- struct{}{}:
	default:
	}
}

// LastUpdate returns the most recent write time across all exchanges.
func (s *Store) LastUpdate() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var latest time.Time
	for _, q := range s.quotes {
		if q.UpdatedAt.After(latest) {
			latest = q.UpdatedAt
		}
	}
	return latest
}
