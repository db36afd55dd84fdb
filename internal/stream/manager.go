package stream

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"goldflow/internal/channel"
	"goldflow/logger"
	"goldflow/models"
)

// MaxReconnectAttempts caps the reconnection policy. Once exhausted the
// exchange stays disconnected and the polling fetcher carries the display.
const MaxReconnectAttempts = 5

const maxReconnectDelay = 30 * time.Second

// State is the connection state machine of one manager.
type State string

const (
	StateIdle         State = "idle"
	StateConnecting   State = "connecting"
	StateConnected    State = "connected"
	StateDisconnected State = "disconnected"
	StateError        State = "error"
)

// Endpoint describes one exchange's public ticker stream: where to dial,
// what to send after the handshake, and how to turn an inbound frame into a
// quote update. Parse returns false for every frame that is not a ticker for
// the subscribed instrument, including malformed payloads.
type Endpoint interface {
	Exchange() models.Exchange
	URL() string
	SubscribePayload() ([]byte, bool)
	Parse(raw []byte) (models.QuoteUpdate, bool)
}

// Manager owns the streaming connection for a single exchange: dialing,
// subscription, the read loop, and the capped exponential reconnect policy.
type Manager struct {
	endpoint Endpoint
	channels *channel.Channels
	dialer   *websocket.Dialer
	log      *logger.Log

	ctx     context.Context
	wg      *sync.WaitGroup
	mu      sync.Mutex
	running bool

	conn     *websocket.Conn
	state    State
	attempts int
}

// NewManager builds a manager for one endpoint. The dialer can be swapped
// before Start for tests.
func NewManager(ep Endpoint, ch *channel.Channels) *Manager {
	return &Manager{
		endpoint: ep,
		channels: ch,
		dialer:   websocket.DefaultDialer,
		wg:       &sync.WaitGroup{},
		log:      logger.GetLogger(),
		state:    StateIdle,
	}
}

// SetDialer overrides the websocket dialer. Must be called before Start.
func (m *Manager) SetDialer(d *websocket.Dialer) {
	m.dialer = d
}

// Start begins the connection lifecycle.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return fmt.Errorf("%s stream manager already running", m.endpoint.Exchange())
	}
	m.running = true
	m.ctx = ctx
	m.mu.Unlock()

	m.log.WithComponent("stream_manager").WithFields(logger.Fields{
		"exchange": m.endpoint.Exchange(),
		"url":      m.endpoint.URL(),
	}).Info("starting stream manager")

	m.Connect()
	return nil
}

// Stop closes the connection and waits for the read loop and any pending
// reconnect timers.
func (m *Manager) Stop() {
	m.mu.Lock()
	m.running = false
	conn := m.conn
	m.conn = nil
	m.state = StateIdle
	m.mu.Unlock()

	if conn != nil {
		conn.Close()
	}

	m.log.WithComponent("stream_manager").WithFields(logger.Fields{"exchange": m.endpoint.Exchange()}).Info("stopping stream manager")
	m.wg.Wait()
	m.log.WithComponent("stream_manager").WithFields(logger.Fields{"exchange": m.endpoint.Exchange()}).Info("stream manager stopped")
}

// State reports the current connection state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Attempts reports the reconnect attempt counter.
func (m *Manager) Attempts() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.attempts
}

// Connect is idempotent: when a connection is already open (or a dial is in
// flight) the call is a no-op. A reconnect timer that fires after a newer
// connection succeeded therefore does nothing.
func (m *Manager) Connect() {
	m.mu.Lock()
	if m.ctx == nil || m.ctx.Err() != nil || !m.running {
		m.mu.Unlock()
		return
	}
	if m.state == StateConnected && m.conn != nil {
		m.mu.Unlock()
		return
	}
	if m.state == StateConnecting {
		m.mu.Unlock()
		return
	}
	m.state = StateConnecting
	m.mu.Unlock()

	ex := m.endpoint.Exchange()
	log := m.log.WithComponent("stream_manager").WithFields(logger.Fields{"exchange": ex})

	conn, _, err := m.dialer.DialContext(m.ctx, m.endpoint.URL(), nil)
	if err != nil {
		log.WithError(err).Warn("failed to connect to exchange stream")
		m.setState(StateDisconnected)
		m.channels.SendStatus(m.ctx, models.StatusUpdate{Exchange: ex, Status: models.StatusDisconnected, Timestamp: time.Now().UTC()})
		m.scheduleReconnect()
		return
	}

	m.mu.Lock()
	m.conn = conn
	m.state = StateConnected
	m.attempts = 0
	m.mu.Unlock()

	log.Info("exchange stream connected")
	m.channels.SendStatus(m.ctx, models.StatusUpdate{Exchange: ex, Status: models.StatusConnected, Timestamp: time.Now().UTC()})

	if payload, ok := m.endpoint.SubscribePayload(); ok {
		conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
		if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			log.WithError(err).Warn("failed to send subscription request")
			m.handleClose(conn, err)
			return
		}
		log.Debug("subscription request sent")
	}

	m.wg.Add(1)
	go m.readLoop(conn)
}

// readLoop consumes frames until the connection dies, forwarding every
// parseable ticker into the quote channel. Unparseable frames are dropped
// silently; the subscribed-instrument gate lives in Endpoint.Parse.
func (m *Manager) readLoop(conn *websocket.Conn) {
	defer m.wg.Done()

	ex := m.endpoint.Exchange()
	log := m.log.WithComponent("stream_manager").WithFields(logger.Fields{"exchange": ex, "worker": "read_loop"})

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if m.ctx.Err() == nil {
				log.WithError(err).Warn("exchange stream read loop ended")
			}
			m.handleClose(conn, err)
			return
		}

		update, ok := m.endpoint.Parse(raw)
		if !ok {
			continue
		}
		if update.LastPrice <= 0 {
			continue
		}

		logger.IncrementStreamRead(len(raw))
		if !m.channels.SendQuote(m.ctx, update) && m.ctx.Err() == nil {
			log.Warn("quote channel is full, dropping ticker")
		}
	}
}

// handleClose runs the disconnect transition: error status for abnormal
// failures, then disconnected, then the backoff policy.
func (m *Manager) handleClose(conn *websocket.Conn, err error) {
	conn.Close()

	m.mu.Lock()
	if m.conn != conn {
		// a newer connection already replaced this one
		m.mu.Unlock()
		return
	}
	m.conn = nil
	stopping := !m.running || m.ctx.Err() != nil
	m.mu.Unlock()

	if stopping {
		return
	}

	ex := m.endpoint.Exchange()
	if err != nil && websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
		m.setState(StateError)
		m.channels.SendStatus(m.ctx, models.StatusUpdate{Exchange: ex, Status: models.StatusError, Timestamp: time.Now().UTC()})
	}

	m.setState(StateDisconnected)
	m.channels.SendStatus(m.ctx, models.StatusUpdate{Exchange: ex, Status: models.StatusDisconnected, Timestamp: time.Now().UTC()})
	m.scheduleReconnect()
}

// scheduleReconnect arms a single delayed Connect using exponential backoff,
// 2s doubling up to the 30s cap, giving up after MaxReconnectAttempts.
func (m *Manager) scheduleReconnect() {
	m.mu.Lock()
	if m.attempts >= MaxReconnectAttempts {
		m.mu.Unlock()
		m.log.WithComponent("stream_manager").WithFields(logger.Fields{
			"exchange": m.endpoint.Exchange(),
			"attempts": MaxReconnectAttempts,
		}).Warn("reconnect attempts exhausted, leaving stream disconnected")
		return
	}
	m.attempts++
	attempt := m.attempts
	m.mu.Unlock()

	delay := ReconnectDelay(attempt)
	m.log.WithComponent("stream_manager").WithFields(logger.Fields{
		"exchange": m.endpoint.Exchange(),
		"attempt":  attempt,
		"delay_ms": delay.Milliseconds(),
	}).Info("scheduling stream reconnect")

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		timer := time.NewTimer(delay)
		defer timer.Stop()
		select {
		case <-m.ctx.Done():
		case <-timer.C:
			m.Connect()
		}
	}()
}

func (m *Manager) setState(s State) {
	m.mu.Lock()
	m.state = s
	m.mu.Unlock()
}

// ReconnectDelay returns the backoff delay for the given attempt number
// (1-based): min(1000 * 2^attempt, 30000) milliseconds.
func ReconnectDelay(attempt int) time.Duration {
	delay := time.Duration(1000<<uint(attempt)) * time.Millisecond
	if delay > maxReconnectDelay {
		delay = maxReconnectDelay
	}
	return delay
}

// parsePrice converts an exchange's string-encoded decimal to a float,
// returning 0 for empty or malformed values.
func parsePrice(v string) float64 {
	if v == "" {
		return 0
	}
	val, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0
	}
	return val
}
