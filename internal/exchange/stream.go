package exchange

import (
	"context"
	"log/slog"
	"time"

	"github.com/gorilla/websocket"

	"praxis/internal/model"
)

const (
	initialBackoff = time.Second
	maxBackoff     = 16 * time.Second
)

// quote is a parsed ticker update. ok is false for control messages.
type quote struct {
	bid, ask float64
	ok       bool
}

// streamer owns the dial/read/reconnect loop shared by the exchange clients.
type streamer struct {
	logger    *slog.Logger
	exchange  string
	subscribe func(c *websocket.Conn, pair string) error
	parse     func(message []byte) (quote, error)
	backoff   time.Duration
}

// run streams ticks for pair from url into priceChan until ctx is cancelled,
// reconnecting with capped exponential backoff.
func (s *streamer) run(ctx context.Context, url string, priceChan chan<- model.PriceTick, pair string) error {
	backoff := s.backoff
	if backoff <= 0 {
		backoff = initialBackoff
	}
	wait := func() bool {
		select {
		case <-ctx.Done():
			return false
		case <-time.After(backoff):
			backoff *= 2
			if backoff > maxBackoff {
				backoff = maxBackoff
			}
			return true
		}
	}

	for {
		if ctx.Err() != nil {
			s.logger.Info("context cancelled, shutting down", "exchange", s.exchange)
			return nil
		}

		s.logger.Info("connecting to WebSocket", "exchange", s.exchange, "url", url, "backoff", backoff)
		c, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
		if err != nil {
			s.logger.Error("WebSocket connection failed", "exchange", s.exchange, "error", err)
			if !wait() {
				return nil
			}
			continue
		}

		if s.subscribe != nil {
			if err := s.subscribe(c, pair); err != nil {
				s.logger.Error("failed to send subscription", "exchange", s.exchange, "error", err)
				c.Close()
				if !wait() {
					return nil
				}
				continue
			}
		}

		// Reset backoff on successful connection
		backoff = s.backoff
		if backoff <= 0 {
			backoff = initialBackoff
		}
		s.logger.Info("connected successfully", "exchange", s.exchange)

		if done := s.read(ctx, c, priceChan, pair); done {
			return nil
		}
		if !wait() {
			return nil
		}
	}
}

// read consumes messages from c until the connection fails or ctx ends.
// It reports whether the stream should stop.
func (s *streamer) read(ctx context.Context, c *websocket.Conn, priceChan chan<- model.PriceTick, pair string) bool {
	closed := make(chan struct{})
	defer close(closed)
	go func() {
		select {
		case <-ctx.Done():
			c.Close()
		case <-closed:
		}
	}()
	defer c.Close()

	for {
		_, message, err := c.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				s.logger.Info("context cancelled, closing connection", "exchange", s.exchange)
				return true
			}
			s.logger.Error("failed to read message", "exchange", s.exchange, "error", err)
			return false
		}

		q, err := s.parse(message)
		if err != nil {
			s.logger.Warn("failed to parse message", "exchange", s.exchange, "error", err)
			continue
		}
		if !q.ok {
			continue
		}

		tick := model.PriceTick{Exchange: s.exchange, Pair: pair, Bid: q.bid, Ask: q.ask}
		select {
		case priceChan <- tick:
			s.logger.Debug("sent price tick", "exchange", s.exchange, "bid", q.bid, "ask", q.ask)
		case <-ctx.Done():
			return true
		}
	}
}
