package sol

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

type StreamConfig struct {
	// ReconnectDelay is the first wait after a dropped connection, doubled up
	// to MaxReconnectDelay on consecutive failures.
	ReconnectDelay    time.Duration
	MaxReconnectDelay time.Duration
	PingInterval      time.Duration
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
}

func DefaultStreamConfig() StreamConfig {
	return StreamConfig{
		ReconnectDelay:    1 * time.Second,
		MaxReconnectDelay: 30 * time.Second,
		PingInterval:      30 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      10 * time.Second,
	}
}

// Stream is a websocket feed that reconnects with backoff and replays its
// subscription messages on every new connection.
type Stream struct {
	endpoint string
	cfg      StreamConfig
	handler  func([]byte)
	log      *logrus.Entry

	mu   sync.Mutex
	conn *websocket.Conn
	subs []interface{}
}

func NewStream(endpoint string, cfg *StreamConfig, handler func([]byte), log *logrus.Logger) *Stream {
	c := DefaultStreamConfig()
	if cfg != nil {
		c = *cfg
	}
	return &Stream{
		endpoint: endpoint,
		cfg:      c,
		handler:  handler,
		log:      log.WithField("stream", endpoint),
	}
}

// Subscribe sends msg on the live connection, if any, and on every reconnect.
func (s *Stream) Subscribe(msg interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.subs = append(s.subs, msg)
	if s.conn == nil {
		return nil
	}
	return s.writeLocked(msg)
}

func (s *Stream) writeLocked(msg interface{}) error {
	_ = s.conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout))
	if err := s.conn.WriteJSON(msg); err != nil {
		return fmt.Errorf("websocket write: %w", err)
	}
	return nil
}

// Run connects and dispatches messages until ctx is done.
func (s *Stream) Run(ctx context.Context) error {
	delay := s.cfg.ReconnectDelay
	for {
		err := s.session(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err == nil {
			delay = s.cfg.ReconnectDelay
		}
		s.log.WithError(err).WithField("retry_in", delay).Warn("websocket disconnected")

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
		if delay > s.cfg.MaxReconnectDelay {
			delay = s.cfg.MaxReconnectDelay
		}
	}
}

// session runs one connection. It returns nil when at least one message was
// read before the connection dropped.
func (s *Stream) session(ctx context.Context) error {
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, s.endpoint, nil)
	if err != nil {
		return fmt.Errorf("websocket dial: %w", err)
	}

	s.mu.Lock()
	s.conn = conn
	for _, msg := range s.subs {
		if err = s.writeLocked(msg); err != nil {
			break
		}
	}
	s.mu.Unlock()

	done := make(chan struct{})
	var wg sync.WaitGroup
	defer func() {
		close(done)
		s.mu.Lock()
		s.conn = nil
		s.mu.Unlock()
		conn.Close()
		wg.Wait()
	}()
	if err != nil {
		return err
	}
	s.log.Debug("websocket connected")

	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(s.cfg.ReadTimeout))
	})

	wg.Add(1)
	go func() {
		defer wg.Done()
		ticker := time.NewTicker(s.cfg.PingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ctx.Done():
				// unblocks ReadMessage
				conn.Close()
				return
			case <-ticker.C:
				s.mu.Lock()
				_ = conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(s.cfg.WriteTimeout))
				s.mu.Unlock()
			}
		}
	}()

	received := false
	for {
		_ = conn.SetReadDeadline(time.Now().Add(s.cfg.ReadTimeout))
		_, message, err := conn.ReadMessage()
		if err != nil {
			if received {
				s.log.WithError(err).Debug("websocket read failed")
				return nil
			}
			return fmt.Errorf("websocket read: %w", err)
		}
		received = true
		s.handler(message)
	}
}
