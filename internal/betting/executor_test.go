package betting

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"

	"lobbywatch/internal/config"
	"lobbywatch/internal/history"
	"lobbywatch/internal/models"
	"lobbywatch/internal/monitor"
	"lobbywatch/internal/repository"
)

// sessionGateRepo blocks GetFeedSession until the gate is closed, holding one
// Start call inside the repository round-trip.
type sessionGateRepo struct {
	repository.Repository
	gate  chan struct{}
	calls int32
}

func (r *sessionGateRepo) GetFeedSession(ctx context.Context, userID string) (*models.FeedSession, error) {
	atomic.AddInt32(&r.calls, 1)
	<-r.gate
	return nil, nil
}

func newTestExecutor(repo repository.Repository) *Executor {
	return New(Options{
		Betting: config.BettingConfig{Amount: 100, MaxRounds: 20, Strategy: "streak"},
		Repo:    repo,
		Store:   history.NewStore(),
		Subs:    monitor.NewSubscribers(time.Second, zap.NewNop()),
		Logger:  zap.NewNop(),
	})
}

func TestStartWithoutConfig(t *testing.T) {
	e := newTestExecutor(nil)
	if err := e.Start(context.Background(), "u1", "r1"); !errors.Is(err, ErrNoConfig) {
		t.Fatalf("start = %v, want ErrNoConfig", err)
	}
	if got := e.ActiveCount(); got != 0 {
		t.Fatalf("sessions = %d, want 0", got)
	}
}

// Two concurrent Start calls for one user/room must agree on a single
// session: the slot is reserved before the repository is consulted, and a
// failed load releases it again.
func TestStartReservesRoomSlot(t *testing.T) {
	repo := &sessionGateRepo{gate: make(chan struct{})}
	e := newTestExecutor(repo)
	e.SetConfig("u1", "r1", Config{})

	errc := make(chan error, 1)
	go func() { errc <- e.Start(context.Background(), "u1", "r1") }()

	deadline := time.Now().Add(2 * time.Second)
	for e.ActiveCount() != 1 {
		if time.Now().After(deadline) {
			t.Fatalf("room slot was never reserved")
		}
		time.Sleep(time.Millisecond)
	}

	if err := e.Start(context.Background(), "u1", "r1"); err != nil {
		t.Fatalf("second start: %v", err)
	}
	if got := atomic.LoadInt32(&repo.calls); got != 1 {
		t.Fatalf("feed session loads = %d, want 1", got)
	}

	close(repo.gate)
	if err := <-errc; !errors.Is(err, ErrNoSession) {
		t.Fatalf("first start = %v, want ErrNoSession", err)
	}
	if got := e.ActiveCount(); got != 0 {
		t.Fatalf("sessions after failed start = %d, want 0", got)
	}
}

func TestGetConfigRoundTrip(t *testing.T) {
	e := newTestExecutor(nil)

	if _, ok := e.GetConfig("u1", "r1"); ok {
		t.Fatalf("config present before SetConfig")
	}

	e.SetConfig("u1", "r1", Config{Amount: 250})
	cfg, ok := e.GetConfig("u1", "r1")
	if !ok {
		t.Fatalf("config missing after SetConfig")
	}
	if cfg.Amount != 250 {
		t.Fatalf("amount = %d, want 250", cfg.Amount)
	}
	if cfg.MaxRounds != 20 || cfg.Strategy != "streak" {
		t.Fatalf("defaults not applied: %+v", cfg)
	}
}

func TestResolveLossLimit(t *testing.T) {
	if got := resolveLossLimit(config.PredictionConfig{}, nil); got != 3 {
		t.Fatalf("built-in = %d, want 3", got)
	}
	if got := resolveLossLimit(config.PredictionConfig{LossLimit: 5}, nil); got != 5 {
		t.Fatalf("configured = %d, want 5", got)
	}
	stored := &models.PredictionSettings{LossLimit: 7}
	if got := resolveLossLimit(config.PredictionConfig{LossLimit: 5}, stored); got != 7 {
		t.Fatalf("stored = %d, want 7", got)
	}
}
