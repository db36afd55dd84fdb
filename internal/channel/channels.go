package channel

import (
	"context"
	"sync"
	"time"

	"goldflow/logger"
	"goldflow/models"
)

// ChannelStats tracks delivered and dropped messages per update kind.
type ChannelStats struct {
	QuoteSent      int64
	FundingSent    int64
	StatusSent     int64
	QuoteDropped   int64
	FundingDropped int64
	StatusDropped  int64
}

// Channels carries all market updates from the stream managers and the
// polling fetcher to the single store consumer. Sends never block: a full
// buffer drops the message and bumps the drop counter, keeping readers
// responsive when the consumer falls behind.
type Channels struct {
	Quotes  chan models.QuoteUpdate
	Funding chan models.FundingUpdate
	Status  chan models.StatusUpdate

	stats      ChannelStats
	statsMutex sync.RWMutex
	log        *logger.Log
}

func NewChannels(quoteBuffer, fundingBuffer, statusBuffer int) *Channels {
	log := logger.GetLogger()
	c := &Channels{
		Quotes:  make(chan models.QuoteUpdate, quoteBuffer),
		Funding: make(chan models.FundingUpdate, fundingBuffer),
		Status:  make(chan models.StatusUpdate, statusBuffer),
		log:     log,
	}

	log.WithComponent("update_channels").WithFields(logger.Fields{
		"quote_buffer_size":   quoteBuffer,
		"funding_buffer_size": fundingBuffer,
		"status_buffer_size":  statusBuffer,
	}).Info("update channels initialized")

	return c
}

func (c *Channels) Close() {
	close(c.Quotes)
	close(c.Funding)
	close(c.Status)
	c.log.WithComponent("update_channels").Info("update channels closed")
}

func (c *Channels) SendQuote(ctx context.Context, msg models.QuoteUpdate) bool {
	select {
	case c.Quotes <- msg:
		c.statsMutex.Lock()
		c.stats.QuoteSent++
		c.statsMutex.Unlock()
		return true
	case <-ctx.Done():
		return false
	default:
		c.statsMutex.Lock()
		c.stats.QuoteDropped++
		c.statsMutex.Unlock()
		return false
	}
}

func (c *Channels) SendFunding(ctx context.Context, msg models.FundingUpdate) bool {
	select {
	case c.Funding <- msg:
		c.statsMutex.Lock()
		c.stats.FundingSent++
		c.statsMutex.Unlock()
		return true
	case <-ctx.Done():
		return false
	default:
		c.statsMutex.Lock()
		c.stats.FundingDropped++
		c.statsMutex.Unlock()
		return false
	}
}

func (c *Channels) SendStatus(ctx context.Context, msg models.StatusUpdate) bool {
	select {
	case c.Status <- msg:
		c.statsMutex.Lock()
		c.stats.StatusSent++
		c.statsMutex.Unlock()
		return true
	case <-ctx.Done():
		return false
	default:
		c.statsMutex.Lock()
		c.stats.StatusDropped++
		c.statsMutex.Unlock()
		return false
	}
}

func (c *Channels) GetStats() ChannelStats {
	c.statsMutex.RLock()
	defer c.statsMutex.RUnlock()
	return c.stats
}

// StartMetricsReporting logs channel occupancy once per second until the
// context is cancelled.
func (c *Channels) StartMetricsReporting(ctx context.Context) {
	reportBuffers := func() {
		c.log.WithComponent("update_channels").WithFields(logger.Fields{
			"quotes_len":  len(c.Quotes),
			"quotes_cap":  cap(c.Quotes),
			"funding_len": len(c.Funding),
			"funding_cap": cap(c.Funding),
			"status_len":  len(c.Status),
			"status_cap":  cap(c.Status),
		}).Debug("channel occupancy")
	}

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			reportBuffers()
		}
	}
}
