package server

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Must be less than pongWait
	pingPeriod = (pongWait * 9) / 10

	maxMessageSize = 512
	sendBuffer     = 64
)

// Feed broadcasts rated hands to websocket subscribers
type Feed struct {
	upgrader    websocket.Upgrader
	mu          sync.RWMutex
	subscribers map[*subscriber]struct{}
	logger      zerolog.Logger
}

// NewFeed creates an empty feed
func NewFeed(logger zerolog.Logger) *Feed {
	return &Feed{
		upgrader: websocket.Upgrader{
			CheckOrigin:     func(*http.Request) bool { return true },
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
		},
		subscribers: make(map[*subscriber]struct{}),
		logger:      logger.With().Str("component", "feed").Logger(),
	}
}

// Len returns the number of connected subscribers
func (f *Feed) Len() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.subscribers)
}

// Publish sends v as JSON to every subscriber. Subscribers that cannot keep
// up are disconnected.
func (f *Feed) Publish(v any) {
	payload, err := json.Marshal(v)
	if err != nil {
		f.logger.Error().Err(err).Msg("Failed to encode feed message")
		return
	}

	f.mu.RLock()
	var slow []*subscriber
	for sub := range f.subscribers {
		select {
		case sub.send <- payload:
		default:
			slow = append(slow, sub)
		}
	}
	f.mu.RUnlock()

	for _, sub := range slow {
		f.logger.Warn().Str("remote", sub.remote).Msg("Subscriber send buffer full, closing")
		f.remove(sub)
	}
}

// Close disconnects every subscriber
func (f *Feed) Close() {
	f.mu.Lock()
	subs := make([]*subscriber, 0, len(f.subscribers))
	for sub := range f.subscribers {
		subs = append(subs, sub)
	}
	f.mu.Unlock()
	for _, sub := range subs {
		f.remove(sub)
	}
}

func (f *Feed) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := f.upgrader.Upgrade(w, r, nil)
	if err != nil {
		f.logger.Error().Err(err).Msg("Failed to upgrade connection")
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	sub := &subscriber{
		conn:   conn,
		send:   make(chan []byte, sendBuffer),
		remote: r.RemoteAddr,
		ctx:    ctx,
		cancel: cancel,
	}

	f.mu.Lock()
	f.subscribers[sub] = struct{}{}
	total := len(f.subscribers)
	f.mu.Unlock()
	f.logger.Info().Str("remote", sub.remote).Int("total", total).Msg("Subscriber connected")

	go sub.writePump(f.logger)
	go func() {
		sub.readPump()
		f.remove(sub)
	}()
}

func (f *Feed) remove(sub *subscriber) {
	f.mu.Lock()
	_, ok := f.subscribers[sub]
	delete(f.subscribers, sub)
	total := len(f.subscribers)
	f.mu.Unlock()

	if ok {
		sub.close()
		f.logger.Info().Str("remote", sub.remote).Int("total", total).Msg("Subscriber disconnected")
	}
}

type subscriber struct {
	conn      *websocket.Conn
	send      chan []byte
	remote    string
	ctx       context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once
}

func (s *subscriber) close() {
	s.closeOnce.Do(func() {
		s.cancel()
		_ = s.conn.Close()
	})
}

// readPump discards client frames and returns once the peer goes away
func (s *subscriber) readPump() {
	s.conn.SetReadLimit(maxMessageSize)
	_ = s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := s.conn.NextReader(); err != nil {
			return
		}
	}
}

func (s *subscriber) writePump(logger zerolog.Logger) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case payload := <-s.send:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				logger.Debug().Err(err).Str("remote", s.remote).Msg("Failed to write feed message")
				s.close()
				return
			}

		case <-ticker.C:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				s.close()
				return
			}

		case <-s.ctx.Done():
			_ = s.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(writeWait))
			return
		}
	}
}
