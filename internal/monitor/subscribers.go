package monitor

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Conn is the outbound push surface for one subscriber. The websocket
// handler adapts its connection to this; tests supply fakes.
type Conn interface {
	Send(ctx context.Context, payload []byte) error
}

// Subscribers fans recomputed state out to registered connections, keyed by
// an arbitrary channel string (a user id for lobby data, user/room for
// betting data). Delivery is best effort: a subscriber whose send fails or
// times out is dropped and never blocks the others.
type Subscribers struct {
	sendTimeout time.Duration
	logger      *zap.Logger

	mu    sync.Mutex
	chans map[string]map[Conn]struct{}
}

func NewSubscribers(sendTimeout time.Duration, logger *zap.Logger) *Subscribers {
	if sendTimeout <= 0 {
		sendTimeout = 5 * time.Second
	}
	return &Subscribers{
		sendTimeout: sendTimeout,
		logger:      logger,
		chans:       make(map[string]map[Conn]struct{}),
	}
}

func (s *Subscribers) Register(channel string, conn Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	set, ok := s.chans[channel]
	if !ok {
		set = make(map[Conn]struct{})
		s.chans[channel] = set
	}
	set[conn] = struct{}{}
}

func (s *Subscribers) Unregister(channel string, conn Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if set, ok := s.chans[channel]; ok {
		delete(set, conn)
		if len(set) == 0 {
			delete(s.chans, channel)
		}
	}
}

func (s *Subscribers) Count(channel string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.chans[channel])
}

// Broadcast sends one message to every subscriber on the channel, dropping
// any connection that fails.
func (s *Subscribers) Broadcast(ctx context.Context, channel string, message any) {
	payload, err := json.Marshal(message)
	if err != nil {
		if s.logger != nil {
			s.logger.Warn("broadcast marshal failed", zap.Error(err))
		}
		return
	}

	s.mu.Lock()
	set := s.chans[channel]
	conns := make([]Conn, 0, len(set))
	for conn := range set {
		conns = append(conns, conn)
	}
	s.mu.Unlock()

	var dead []Conn
	for _, conn := range conns {
		sendCtx, cancel := context.WithTimeout(ctx, s.sendTimeout)
		err := conn.Send(sendCtx, payload)
		cancel()
		if err != nil {
			dead = append(dead, conn)
		}
	}

	if len(dead) > 0 {
		s.mu.Lock()
		if set, ok := s.chans[channel]; ok {
			for _, conn := range dead {
				delete(set, conn)
			}
			if len(set) == 0 {
				delete(s.chans, channel)
			}
		}
		s.mu.Unlock()
		if s.logger != nil {
			s.logger.Info("dropped dead subscribers",
				zap.String("channel", channel),
				zap.Int("count", len(dead)))
		}
	}
}

// Push sends one message to a single connection, bypassing the registry.
// Used for the initial snapshot right after a subscriber registers.
func (s *Subscribers) Push(ctx context.Context, conn Conn, message any) error {
	payload, err := json.Marshal(message)
	if err != nil {
		return err
	}
	sendCtx, cancel := context.WithTimeout(ctx, s.sendTimeout)
	defer cancel()
	return conn.Send(sendCtx, payload)
}
