package poller

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"

	appconfig "goldflow/config"
	"goldflow/internal/channel"
	"goldflow/logger"
	"goldflow/models"
)

// StatusSource reports the current connection status of an exchange. The
// quote loop uses it to skip exchanges whose stream is healthy.
type StatusSource interface {
	Status(ex models.Exchange) models.ConnectionStatus
}

// Poller is the REST fallback and funding source. Quotes are polled only for
// exchanges without a live stream; funding is polled for every exchange
// unconditionally since none of the streams carry it reliably.
type Poller struct {
	config   *appconfig.Config
	channels *channel.Channels
	status   StatusSource
	fetchers []Fetcher
	limiter  *rate.Limiter
	ctx      context.Context
	wg       *sync.WaitGroup
	mu       sync.Mutex
	running  bool
	log      *logger.Log
}

// NewPoller builds the fetcher set for all configured exchanges.
func NewPoller(cfg *appconfig.Config, ch *channel.Channels, status StatusSource) *Poller {
	log := logger.GetLogger()

	rps := cfg.Poller.RateLimit.RequestsPerSecond
	if rps <= 0 {
		rps = 5
	}
	burst := cfg.Poller.RateLimit.BurstSize
	if burst <= 0 {
		burst = 3
	}

	p := &Poller{
		config:   cfg,
		channels: ch,
		status:   status,
		limiter:  rate.NewLimiter(rate.Limit(rps), burst),
		wg:       &sync.WaitGroup{},
		log:      log,
		fetchers: []Fetcher{
			NewBybitFetcher(&cfg.Source.Bybit, cfg.Poller.Timeout),
			NewBinanceFetcher(&cfg.Source.Binance, cfg.Poller.Timeout),
			NewOkxFetcher(&cfg.Source.Okx, cfg.Poller.Timeout),
		},
	}

	log.WithComponent("poller").WithFields(logger.Fields{
		"quote_interval":   cfg.Poller.QuoteInterval,
		"funding_interval": cfg.Poller.FundingInterval,
		"rate_limit_rps":   rps,
	}).Info("poller initialized")

	return p
}

// SetFetchers replaces the fetcher set. Must be called before Start.
func (p *Poller) SetFetchers(fetchers []Fetcher) {
	p.fetchers = fetchers
}

// Start runs the bootstrap fetch and then the two polling loops.
func (p *Poller) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return fmt.Errorf("poller already running")
	}
	p.running = true
	p.ctx = ctx
	p.mu.Unlock()

	log := p.log.WithComponent("poller")
	log.Info("starting poller")

	// bootstrap: populate every exchange once so the display has data even
	// before the first stream tick
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		for _, f := range p.fetchers {
			p.pollQuote(f, true)
			p.pollFunding(f)
		}
	}()

	p.wg.Add(2)
	go p.quoteWorker()
	go p.fundingWorker()

	log.Info("poller started successfully")
	return nil
}

// Stop waits for the polling loops to finish.
func (p *Poller) Stop() {
	p.mu.Lock()
	p.running = false
	p.mu.Unlock()

	p.log.WithComponent("poller").Info("stopping poller")
	p.wg.Wait()
	p.log.WithComponent("poller").Info("poller stopped")
}

func (p *Poller) quoteWorker() {
	defer p.wg.Done()

	log := p.log.WithComponent("poller").WithFields(logger.Fields{"worker": "quote_loop"})
	ticker := time.NewTicker(p.config.Poller.QuoteInterval)
	defer ticker.Stop()

	for {
		select {
		case <-p.ctx.Done():
			log.Info("worker stopped due to context cancellation")
			return
		case <-ticker.C:
			for _, f := range p.fetchers {
				p.pollQuote(f, false)
			}
		}
	}
}

func (p *Poller) fundingWorker() {
	defer p.wg.Done()

	log := p.log.WithComponent("poller").WithFields(logger.Fields{"worker": "funding_loop"})
	ticker := time.NewTicker(p.config.Poller.FundingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-p.ctx.Done():
			log.Info("worker stopped due to context cancellation")
			return
		case <-ticker.C:
			for _, f := range p.fetchers {
				p.pollFunding(f)
			}
		}
	}
}

// pollQuote fetches one exchange's REST quote unless its stream is currently
// connected. Failures are logged and skipped; the next tick retries.
func (p *Poller) pollQuote(f Fetcher, bootstrap bool) {
	ex := f.Exchange()
	if !bootstrap && p.status.Status(ex) == models.StatusConnected {
		return
	}
	if err := p.limiter.Wait(p.ctx); err != nil {
		return
	}

	log := p.log.WithComponent("poller").WithFields(logger.Fields{"exchange": ex, "operation": "poll_quote"})

	start := time.Now()
	update, err := f.FetchQuote(p.ctx)
	if err != nil {
		if p.ctx.Err() == nil {
			log.WithError(err).Warn("failed to poll quote")
		}
		return
	}
	logger.LogPerformanceEntry(log, "poller", "api_request", time.Since(start), logger.Fields{"exchange": ex})
	logger.IncrementPollRead(1)

	if !p.channels.SendQuote(p.ctx, update) && p.ctx.Err() == nil {
		log.Warn("quote channel is full, dropping polled quote")
	}
}

func (p *Poller) pollFunding(f Fetcher) {
	if err := p.limiter.Wait(p.ctx); err != nil {
		return
	}

	ex := f.Exchange()
	log := p.log.WithComponent("poller").WithFields(logger.Fields{"exchange": ex, "operation": "poll_funding"})

	update, err := f.FetchFunding(p.ctx)
	if err != nil {
		if p.ctx.Err() == nil {
			log.WithError(err).Warn("failed to poll funding rate")
		}
		return
	}
	logger.IncrementPollRead(1)

	if !p.channels.SendFunding(p.ctx, update) && p.ctx.Err() == nil {
		log.Warn("funding channel is full, dropping polled rate")
	}
}
