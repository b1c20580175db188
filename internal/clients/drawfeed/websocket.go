package drawfeed

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"nhooyr.io/websocket"

	"github.com/lottokit/drawgen/internal/domain"
)

const (
	writeWait   = 10 * time.Second
	dialTimeout = 30 * time.Second

	baseReconnectDelay   = 5 * time.Second
	maxReconnectDelay    = 5 * time.Minute
	maxReconnectAttempts = 10
)

// DrawHandler receives each draw pushed on the websocket channel.
// Handlers run on the read loop goroutine and should return quickly.
type DrawHandler func(draw domain.Draw)

// Subscriber maintains a websocket subscription to the feed's draws
// channel with automatic reconnection.
type Subscriber struct {
	url        string
	conn       *websocket.Conn
	connCtx    context.Context
	cancelFunc context.CancelFunc
	mu         sync.RWMutex

	handler DrawHandler
	log     zerolog.Logger

	reconnecting bool
	stopChan     chan struct{}
	stopped      bool
}

// NewSubscriber creates a websocket subscriber. The handler is invoked
// for every draw the feed pushes.
func NewSubscriber(url string, handler DrawHandler, log zerolog.Logger) *Subscriber {
	return &Subscriber{
		url:      url,
		handler:  handler,
		log:      log.With().Str("component", "drawfeed_websocket").Logger(),
		stopChan: make(chan struct{}),
	}
}

// Start connects and begins the read loop. A failed initial connection
// is retried in the background.
func (s *Subscriber) Start() error {
	s.log.Info().Msg("Starting draw feed websocket subscriber")

	if err := s.Connect(); err != nil {
		s.log.Warn().Err(err).Msg("Initial websocket connection failed, will retry in background")
		go s.reconnectLoop()
		return err
	}

	s.mu.RLock()
	ctx := s.connCtx
	s.mu.RUnlock()
	go s.readMessages(ctx)

	return nil
}

// Stop gracefully shuts the subscriber down.
func (s *Subscriber) Stop() error {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return nil
	}
	s.stopped = true
	s.mu.Unlock()

	s.log.Info().Msg("Stopping draw feed websocket subscriber")
	close(s.stopChan)
	return s.Disconnect()
}

// Connect establishes the websocket connection and subscribes to the
// draws channel.
func (s *Subscriber) Connect() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.log.Info().Str("url", s.url).Msg("Connecting to draw feed websocket")

	dialCtx, dialCancel := context.WithTimeout(context.Background(), dialTimeout)
	defer dialCancel()

	conn, _, err := websocket.Dial(dialCtx, s.url, nil)
	if err != nil {
		return fmt.Errorf("failed to dial websocket: %w", err)
	}

	connCtx, connCancel := context.WithCancel(context.Background())
	s.conn = conn
	s.connCtx = connCtx
	s.cancelFunc = connCancel

	if err := s.subscribe(connCtx); err != nil {
		connCancel()
		conn.Close(websocket.StatusNormalClosure, "subscribe failed")
		s.conn = nil
		s.connCtx = nil
		s.cancelFunc = nil
		return fmt.Errorf("failed to subscribe to draws channel: %w", err)
	}

	s.log.Info().Msg("Connected to draw feed websocket")
	return nil
}

// Disconnect closes the websocket connection.
func (s *Subscriber) Disconnect() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn == nil {
		return nil
	}

	if s.cancelFunc != nil {
		s.cancelFunc()
		s.cancelFunc = nil
	}

	err := s.conn.Close(websocket.StatusNormalClosure, "")
	s.conn = nil
	s.connCtx = nil

	if err != nil {
		return fmt.Errorf("error closing websocket: %w", err)
	}
	return nil
}

// subscribe sends the subscription message for the draws channel.
func (s *Subscriber) subscribe(ctx context.Context) error {
	data, err := json.Marshal([]string{"draws"})
	if err != nil {
		return fmt.Errorf("failed to marshal subscription message: %w", err)
	}

	writeCtx, cancel := context.WithTimeout(ctx, writeWait)
	defer cancel()

	if err := s.conn.Write(writeCtx, websocket.MessageText, data); err != nil {
		return fmt.Errorf("failed to send subscription message: %w", err)
	}
	return nil
}

// readMessages reads from the websocket until the connection drops or
// the subscriber is stopped, then schedules a reconnect.
func (s *Subscriber) readMessages(ctx context.Context) {
	defer func() {
		s.log.Info().Msg("Websocket read loop stopped")
		s.mu.RLock()
		stopped := s.stopped
		s.mu.RUnlock()
		if !stopped {
			go s.reconnectLoop()
		}
	}()

	for {
		select {
		case <-s.stopChan:
			return
		case <-ctx.Done():
			return
		default:
		}

		s.mu.RLock()
		conn := s.conn
		s.mu.RUnlock()
		if conn == nil {
			return
		}

		msgType, message, err := conn.Read(ctx)
		if err != nil {
			closeStatus := websocket.CloseStatus(err)
			switch {
			case closeStatus == websocket.StatusNormalClosure || closeStatus == websocket.StatusGoingAway:
				s.log.Info().Int("status", int(closeStatus)).Msg("Websocket closed normally")
			case ctx.Err() != nil:
				s.log.Debug().Msg("Websocket read cancelled")
			default:
				s.log.Error().Err(err).Msg("Unexpected websocket read error")
			}
			return
		}

		if msgType != websocket.MessageText {
			continue
		}

		if err := s.handleMessage(message); err != nil {
			s.log.Error().Err(err).Str("message", string(message)).Msg("Failed to handle websocket message")
		}
	}
}

// handleMessage parses a channel message. The feed publishes
// two-element arrays: ["draws", {draw payload}].
func (s *Subscriber) handleMessage(message []byte) error {
	var parts []json.RawMessage
	if err := json.Unmarshal(message, &parts); err != nil {
		return fmt.Errorf("failed to parse message array: %w", err)
	}
	if len(parts) < 2 {
		return fmt.Errorf("message array too short: expected 2 elements, got %d", len(parts))
	}

	var channel string
	if err := json.Unmarshal(parts[0], &channel); err != nil {
		return fmt.Errorf("failed to parse channel: %w", err)
	}
	if channel != "draws" {
		s.log.Debug().Str("channel", channel).Msg("Ignoring message on other channel")
		return nil
	}

	var raw feedDraw
	if err := json.Unmarshal(parts[1], &raw); err != nil {
		return fmt.Errorf("failed to parse draw payload: %w", err)
	}

	draw, err := transformDraw("", raw)
	if err != nil {
		return err
	}

	s.log.Debug().
		Str("lottery_id", draw.LotteryID).
		Int64("contest_id", draw.ContestID).
		Msg("Draw pushed on websocket")

	if s.handler != nil {
		s.handler(draw)
	}
	return nil
}

// reconnectLoop retries the connection with exponential backoff.
func (s *Subscriber) reconnectLoop() {
	s.mu.Lock()
	if s.reconnecting || s.stopped {
		s.mu.Unlock()
		return
	}
	s.reconnecting = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.reconnecting = false
		s.mu.Unlock()
	}()

	attempt := 0
	for {
		select {
		case <-s.stopChan:
			return
		default:
		}

		s.mu.RLock()
		stopped := s.stopped
		s.mu.RUnlock()
		if stopped {
			return
		}

		attempt++
		delay := calculateBackoff(attempt)
		if attempt <= maxReconnectAttempts {
			s.log.Info().Int("attempt", attempt).Dur("delay", delay).Msg("Reconnecting to websocket")
		} else {
			s.log.Warn().Int("attempt", attempt).Dur("delay", delay).Msg("Still reconnecting past max attempts")
		}

		select {
		case <-time.After(delay):
		case <-s.stopChan:
			return
		}

		if err := s.Connect(); err != nil {
			s.log.Error().Err(err).Int("attempt", attempt).Msg("Reconnection failed")
			continue
		}

		s.mu.RLock()
		ctx := s.connCtx
		s.mu.RUnlock()
		go s.readMessages(ctx)
		return
	}
}

// calculateBackoff returns the exponential backoff delay for an
// attempt, capped at maxReconnectDelay.
func calculateBackoff(attempt int) time.Duration {
	delay := float64(baseReconnectDelay) * math.Pow(2, float64(attempt-1))
	if delay > float64(maxReconnectDelay) {
		delay = float64(maxReconnectDelay)
	}
	return time.Duration(delay)
}
