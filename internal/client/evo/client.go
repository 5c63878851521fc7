// Package evo speaks the upstream lobby/room websocket protocol: session
// handshake, liveness probing, capped reconnection and frame parsing.
package evo

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
	"nhooyr.io/websocket"
)

// ErrSessionRejected marks a handshake refused by the upstream, usually an
// expired session token. The caller must obtain fresh credentials; retrying
// with the same ones will not help.
var ErrSessionRejected = errors.New("session rejected by upstream")

// ErrReconnectExhausted is returned once the reconnect cap is hit. A later
// Run call starts with a fresh attempt counter.
var ErrReconnectExhausted = errors.New("reconnect attempts exhausted")

type State string

const (
	StateDisconnected State = "disconnected"
	StateConnecting   State = "connecting"
	StateConnected    State = "connected"
	StateReconnecting State = "reconnecting"
)

// reconnectPolicy caps attempts within a trailing window and hands out
// exponential backoff delays (1s, 2s, 4s for attempts 1..3). The counter
// resets once the window has elapsed since the last attempt.
type reconnectPolicy struct {
	max    int
	window time.Duration

	attempts int
	last     time.Time
}

func (p *reconnectPolicy) Next(now time.Time) (time.Duration, bool) {
	if !p.last.IsZero() && now.Sub(p.last) > p.window {
		p.attempts = 0
	}
	if p.attempts >= p.max {
		return 0, false
	}
	p.attempts++
	p.last = now
	return time.Duration(1<<uint(p.attempts-1)) * time.Second, true
}

func (p *reconnectPolicy) Reset() {
	p.attempts = 0
	p.last = time.Time{}
}

type Options struct {
	URL             string
	Origin          string
	UserAgent       string
	Cookie          string
	LivenessTimeout time.Duration
	ProbeTimeout    time.Duration
	MaxReconnects   int
	ReconnectWindow time.Duration
	ReadLimit       int64
	Logger          *zap.Logger
	// OnState is invoked on every connection state transition. Optional.
	OnState func(State)
}

// Client owns one persistent socket to the upstream feed, including its
// reconnection counters. It is not safe for concurrent Run calls.
type Client struct {
	opts   Options
	policy reconnectPolicy
}

func NewClient(opts Options) *Client {
	if opts.LivenessTimeout == 0 {
		opts.LivenessTimeout = 30 * time.Second
	}
	if opts.ProbeTimeout == 0 {
		opts.ProbeTimeout = 10 * time.Second
	}
	if opts.MaxReconnects == 0 {
		opts.MaxReconnects = 3
	}
	if opts.ReconnectWindow == 0 {
		opts.ReconnectWindow = 60 * time.Second
	}
	if opts.ReadLimit == 0 {
		opts.ReadLimit = 2 << 20
	}
	return &Client{
		opts: opts,
		policy: reconnectPolicy{
			max:    opts.MaxReconnects,
			window: opts.ReconnectWindow,
		},
	}
}

func (c *Client) setState(s State) {
	if c.opts.OnState != nil {
		c.opts.OnState(s)
	}
}

func (c *Client) dial(ctx context.Context) (*websocket.Conn, error) {
	header := http.Header{}
	if c.opts.Origin != "" {
		header.Set("Origin", c.opts.Origin)
	}
	if c.opts.UserAgent != "" {
		header.Set("User-Agent", c.opts.UserAgent)
	}
	if c.opts.Cookie != "" {
		header.Set("Cookie", c.opts.Cookie)
	}

	conn, resp, err := websocket.Dial(ctx, c.opts.URL, &websocket.DialOptions{
		HTTPHeader: header,
	})
	if err != nil {
		if resp != nil && (resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusUnauthorized) {
			return nil, fmt.Errorf("%w: http %d", ErrSessionRejected, resp.StatusCode)
		}
		return nil, err
	}
	conn.SetReadLimit(c.opts.ReadLimit)
	return conn, nil
}

// Run connects and delivers inbound frames to onFrame until the context is
// cancelled, the upstream closes cleanly, the session is rejected, or the
// reconnect cap is exhausted. Returns nil on a clean upstream close.
func (c *Client) Run(ctx context.Context, onFrame func([]byte)) error {
	c.policy.Reset()
	defer c.setState(StateDisconnected)

	for {
		c.setState(StateConnecting)
		conn, err := c.dial(ctx)
		if err != nil {
			if errors.Is(err, ErrSessionRejected) || ctx.Err() != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				return err
			}
			if c.opts.Logger != nil {
				c.opts.Logger.Warn("feed connect failed", zap.Error(err))
			}
			if err := c.awaitReconnect(ctx); err != nil {
				return err
			}
			continue
		}

		c.setState(StateConnected)
		if c.opts.Logger != nil {
			c.opts.Logger.Info("feed connected", zap.String("url", c.opts.URL))
		}

		err = c.consume(ctx, conn, onFrame)
		_ = conn.Close(websocket.StatusNormalClosure, "")

		switch {
		case errors.Is(err, context.Canceled):
			return err
		case websocket.CloseStatus(err) == websocket.StatusNormalClosure:
			// Clean shutdown from the far side. No reconnect.
			if c.opts.Logger != nil {
				c.opts.Logger.Info("feed closed normally")
			}
			return nil
		default:
			if c.opts.Logger != nil {
				c.opts.Logger.Warn("feed connection lost", zap.Error(err))
			}
			if err := c.awaitReconnect(ctx); err != nil {
				return err
			}
		}
	}
}

func (c *Client) awaitReconnect(ctx context.Context) error {
	delay, ok := c.policy.Next(time.Now())
	if !ok {
		return ErrReconnectExhausted
	}
	c.setState(StateReconnecting)
	if c.opts.Logger != nil {
		c.opts.Logger.Info("feed reconnecting",
			zap.Int("attempt", c.policy.attempts),
			zap.Int("max", c.policy.max),
			zap.Duration("delay", delay))
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

type frameResult struct {
	data []byte
	err  error
}

// consume runs the receive loop. Cancelling the read context tears down the
// connection in this websocket implementation, so idle detection lives in
// the select below rather than per-read deadlines: when no frame arrives
// within the liveness timeout, a ping probe with a bounded wait decides
// whether the connection is still alive.
func (c *Client) consume(ctx context.Context, conn *websocket.Conn, onFrame func([]byte)) error {
	frames := make(chan frameResult)
	readCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() {
		for {
			_, data, err := conn.Read(readCtx)
			select {
			case frames <- frameResult{data: data, err: err}:
			case <-readCtx.Done():
				return
			}
			if err != nil {
				return
			}
		}
	}()

	idle := time.NewTimer(c.opts.LivenessTimeout)
	defer idle.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case fr := <-frames:
			if fr.err != nil {
				return fr.err
			}
			if !idle.Stop() {
				select {
				case <-idle.C:
				default:
				}
			}
			idle.Reset(c.opts.LivenessTimeout)
			if onFrame != nil {
				onFrame(fr.data)
			}
		case <-idle.C:
			if c.opts.Logger != nil {
				c.opts.Logger.Info("feed idle, probing connection")
			}
			pingCtx, cancelPing := context.WithTimeout(ctx, c.opts.ProbeTimeout)
			err := conn.Ping(pingCtx)
			cancelPing()
			if err != nil {
				return fmt.Errorf("liveness probe failed: %w", err)
			}
			idle.Reset(c.opts.LivenessTimeout)
		}
	}
}
