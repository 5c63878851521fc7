// Package betting drives the automated betting loop: one room socket per
// started user/room pair, bet signals generated when the betting window
// opens and settled against the round result.
package betting

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"lobbywatch/internal/client/evo"
	"lobbywatch/internal/config"
	"lobbywatch/internal/history"
	"lobbywatch/internal/models"
	"lobbywatch/internal/monitor"
	"lobbywatch/internal/prediction"
	"lobbywatch/internal/repository"
)

var (
	ErrNoConfig   = errors.New("no betting config for room")
	ErrNoSession  = errors.New("no feed session configured")
	ErrNotRunning = errors.New("betting is not running")
)

// Config is the per-room betting configuration, set through the control
// plane before a session can start.
type Config struct {
	Amount    int64  `json:"amount"`
	MaxRounds int    `json:"max_rounds"`
	Strategy  string `json:"strategy"`
}

// Data is the betting view pushed to subscribers and served over the API.
type Data struct {
	IsRunning       bool               `json:"is_running"`
	RoundsMonitored int                `json:"rounds_monitored"`
	Wins            int                `json:"wins"`
	Losses          int                `json:"losses"`
	ShouldChange    bool               `json:"should_change_room"`
	LastUpdate      time.Time          `json:"last_update"`
	Signals         []models.BetSignal `json:"betting_signals"`
}

type betSignalMsg struct {
	Type   string            `json:"type"`
	Signal *models.BetSignal `json:"signal"`
}

type bettingUpdateMsg struct {
	Type string `json:"type"`
	Data Data   `json:"betting_data"`
}

type statusUpdateMsg struct {
	Type      string `json:"type"`
	IsRunning bool   `json:"is_running"`
}

type roomSession struct {
	cancel context.CancelFunc
	done   chan struct{}

	mu      sync.Mutex
	engine  *prediction.ChoicePick
	rounds  int
	pending *models.BetSignal
	pick    prediction.Symbol
	last    time.Time
}

type Options struct {
	Feed       config.FeedConfig
	Betting    config.BettingConfig
	Prediction config.PredictionConfig
	Repo       repository.Repository
	Store      *history.Store
	Subs       *monitor.Subscribers
	Logger     *zap.Logger
}

// Executor runs betting sessions. One session per user/room pair.
type Executor struct {
	feed       config.FeedConfig
	defaults   config.BettingConfig
	prediction config.PredictionConfig
	repo       repository.Repository
	store      *history.Store
	subs       *monitor.Subscribers
	logger     *zap.Logger

	mu       sync.Mutex
	sessions map[string]*roomSession
	configs  map[string]Config
}

func New(opts Options) *Executor {
	return &Executor{
		feed:       opts.Feed,
		defaults:   opts.Betting,
		prediction: opts.Prediction,
		repo:       opts.Repo,
		store:      opts.Store,
		subs:       opts.Subs,
		logger:     opts.Logger,
		sessions:   make(map[string]*roomSession),
		configs:    make(map[string]Config),
	}
}

func key(userID, roomID string) string {
	return userID + "/" + roomID
}

// resolveLossLimit picks the per-user stored limit when present, then the
// configured default, then the built-in.
func resolveLossLimit(cfg config.PredictionConfig, stored *models.PredictionSettings) int {
	limit := cfg.LossLimit
	if limit <= 0 {
		limit = 3
	}
	if stored != nil && stored.LossLimit > 0 {
		limit = stored.LossLimit
	}
	return limit
}

// DefaultConfig returns the configured process-wide defaults.
func (e *Executor) DefaultConfig() Config {
	return Config{
		Amount:    e.defaults.Amount,
		MaxRounds: e.defaults.MaxRounds,
		Strategy:  e.defaults.Strategy,
	}
}

// SetConfig stores the betting parameters for one user/room. Zero fields
// fall back to the defaults.
func (e *Executor) SetConfig(userID, roomID string, cfg Config) {
	if cfg.Amount <= 0 {
		cfg.Amount = e.defaults.Amount
	}
	if cfg.MaxRounds <= 0 {
		cfg.MaxRounds = e.defaults.MaxRounds
	}
	if cfg.Strategy == "" {
		cfg.Strategy = e.defaults.Strategy
	}
	e.mu.Lock()
	e.configs[key(userID, roomID)] = cfg
	e.mu.Unlock()
}

// GetConfig returns the stored betting parameters for one user/room.
func (e *Executor) GetConfig(userID, roomID string) (Config, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	cfg, ok := e.configs[key(userID, roomID)]
	return cfg, ok
}

func (e *Executor) IsRunning(userID, roomID string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, ok := e.sessions[key(userID, roomID)]
	return ok
}

func (e *Executor) ActiveCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.sessions)
}

// Start opens the room socket and begins generating bet signals. The
// prediction engine is seeded from the lobby history already collected for
// the room, so a full window may be available immediately.
func (e *Executor) Start(ctx context.Context, userID, roomID string) error {
	channel := key(userID, roomID)
	runCtx, cancel := context.WithCancel(context.Background())
	sess := &roomSession{
		cancel: cancel,
		done:   make(chan struct{}),
		last:   time.Now().UTC(),
	}

	// Reserve the session slot before any repo round-trip so a concurrent
	// Start for the same room sees it and returns instead of racing.
	e.mu.Lock()
	if _, ok := e.sessions[channel]; ok {
		e.mu.Unlock()
		cancel()
		return nil
	}
	cfg, ok := e.configs[channel]
	if !ok {
		e.mu.Unlock()
		cancel()
		return ErrNoConfig
	}
	e.sessions[channel] = sess
	e.mu.Unlock()

	release := func() {
		e.mu.Lock()
		delete(e.sessions, channel)
		e.mu.Unlock()
		cancel()
		close(sess.done)
	}

	feedSession, err := e.repo.GetFeedSession(ctx, userID)
	if err != nil {
		release()
		return fmt.Errorf("load feed session: %w", err)
	}
	if feedSession == nil {
		release()
		return ErrNoSession
	}

	stored, err := e.repo.GetPredictionSettings(ctx, userID)
	if err != nil {
		stored = nil
	}

	engine := prediction.NewChoicePick(resolveLossLimit(e.prediction, stored))
	engine.AddResults(prediction.Symbols(e.store.Get(userID, roomID)))
	sess.mu.Lock()
	sess.engine = engine
	sess.mu.Unlock()

	url := evo.RoomSocketURL(e.feed.Host, roomID, evo.SessionConfig{
		SessionID:     feedSession.SessionToken,
		BareSessionID: feedSession.BareSessionID,
		Instance:      feedSession.Instance,
		ClientVersion: feedSession.ClientVersion,
	})
	client := evo.NewClient(evo.Options{
		URL:             url,
		Origin:          e.feed.Origin,
		UserAgent:       e.feed.UserAgent,
		Cookie:          "EVOSESSIONID=" + feedSession.SessionToken,
		LivenessTimeout: e.feed.LivenessTimeout,
		ProbeTimeout:    e.feed.ProbeTimeout,
		MaxReconnects:   e.feed.MaxReconnects,
		ReconnectWindow: e.feed.ReconnectWindow,
		ReadLimit:       e.feed.ReadLimit,
		Logger:          e.logger,
	})

	go e.run(runCtx, userID, roomID, cfg, client, sess)
	return nil
}

func (e *Executor) run(ctx context.Context, userID, roomID string, cfg Config, client *evo.Client, sess *roomSession) {
	defer close(sess.done)
	channel := key(userID, roomID)

	e.logger.Info("betting started",
		zap.String("user_id", userID), zap.String("room_id", roomID))
	e.subs.Broadcast(ctx, channel, statusUpdateMsg{Type: "status_update", IsRunning: true})

	err := client.Run(ctx, func(raw []byte) {
		e.handleFrame(ctx, userID, roomID, cfg, sess, raw)
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		e.logger.Error("betting session ended on error",
			zap.String("user_id", userID), zap.String("room_id", roomID), zap.Error(err))
	}

	e.mu.Lock()
	delete(e.sessions, channel)
	e.mu.Unlock()

	e.subs.Broadcast(context.Background(), channel, statusUpdateMsg{Type: "status_update", IsRunning: false})
	e.logger.Info("betting stopped",
		zap.String("user_id", userID), zap.String("room_id", roomID))
}

// Stop cancels the room session and waits for its loop to exit.
func (e *Executor) Stop(ctx context.Context, userID, roomID string) error {
	e.mu.Lock()
	sess, ok := e.sessions[key(userID, roomID)]
	e.mu.Unlock()
	if !ok {
		return ErrNotRunning
	}
	sess.cancel()
	select {
	case <-sess.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (e *Executor) StopAll(ctx context.Context) {
	e.mu.Lock()
	sessions := make([]*roomSession, 0, len(e.sessions))
	for _, sess := range e.sessions {
		sessions = append(sessions, sess)
	}
	e.mu.Unlock()

	for _, sess := range sessions {
		sess.cancel()
	}
	for _, sess := range sessions {
		select {
		case <-sess.done:
		case <-ctx.Done():
			return
		}
	}
}

func (e *Executor) handleFrame(ctx context.Context, userID, roomID string, cfg Config, sess *roomSession, raw []byte) {
	env, err := evo.ParseEnvelope(raw)
	if err != nil {
		e.logger.Warn("undecodable room frame",
			zap.String("room_id", roomID), zap.Error(err))
		return
	}

	switch env.Type {
	case evo.EventBettingOpened:
		e.openRound(ctx, userID, roomID, cfg, sess)
	case evo.EventRoundEnd:
		e.settleRound(ctx, userID, roomID, cfg, sess, env)
	default:
		return
	}

	channel := key(userID, roomID)
	e.subs.Broadcast(ctx, channel, bettingUpdateMsg{
		Type: "betting_update",
		Data: e.Data(ctx, userID, roomID),
	})
}

// openRound emits a bet signal for the round whose betting window just
// opened, provided the engine has a full window to predict from.
func (e *Executor) openRound(ctx context.Context, userID, roomID string, cfg Config, sess *roomSession) {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	sess.last = time.Now().UTC()

	pick := sess.engine.Predict()
	if pick == prediction.None {
		return
	}

	signal := &models.BetSignal{
		ID:         uuid.NewString(),
		UserID:     userID,
		RoomID:     roomID,
		Side:       sideName(pick),
		Stake:      decimal.NewFromInt(cfg.Amount),
		Strategy:   cfg.Strategy,
		Confidence: 0.8,
		Algorithm:  "choice_pick",
	}
	if err := e.repo.InsertBetSignal(ctx, signal); err != nil {
		e.logger.Error("bet signal persist failed",
			zap.String("room_id", roomID), zap.Error(err))
		return
	}

	sess.pending = signal
	sess.pick = pick

	e.logger.Info("bet signal",
		zap.String("user_id", userID),
		zap.String("room_id", roomID),
		zap.String("side", signal.Side),
		zap.String("stake", signal.Stake.String()))

	e.subs.Broadcast(ctx, key(userID, roomID), betSignalMsg{Type: "bet_signal", Signal: signal})
}

// settleRound resolves the pending signal against the round winner, feeds
// the outcome back into the engine and stops the session once the round
// budget is spent.
func (e *Executor) settleRound(ctx context.Context, userID, roomID string, cfg Config, sess *roomSession, env evo.Envelope) {
	winner, ok := evo.RoundResult(env.Args)
	if !ok {
		return
	}
	outcome := normalizeWinner(winner)

	sess.mu.Lock()
	sess.last = time.Now().UTC()
	sess.rounds++

	if outcome == prediction.Player || outcome == prediction.Banker {
		sess.engine.Add(outcome)
	}

	// A tie pushes the bet; only a decided round settles it.
	if sess.pending != nil && outcome != prediction.None {
		won := outcome == sess.pick
		sess.engine.RecordOutcome(won)
		if err := e.repo.UpdateBetSignalOutcome(ctx, sess.pending.ID, sideName(outcome), won); err != nil {
			e.logger.Error("bet signal settle failed",
				zap.String("signal_id", sess.pending.ID), zap.Error(err))
		}
		sess.pending = nil

		if sess.engine.ShouldChangeRoom() {
			e.logger.Info("loss limit reached, room change recommended",
				zap.String("user_id", userID), zap.String("room_id", roomID))
			sess.engine.ResetAfterRoomChange()
		}
	}

	exhausted := cfg.MaxRounds > 0 && sess.rounds >= cfg.MaxRounds
	sess.mu.Unlock()

	if exhausted {
		e.logger.Info("round budget reached, stopping betting",
			zap.String("user_id", userID), zap.String("room_id", roomID),
			zap.Int("rounds", cfg.MaxRounds))
		sess.cancel()
	}
}

// Data assembles the current betting view, including the most recent
// persisted signals.
func (e *Executor) Data(ctx context.Context, userID, roomID string) Data {
	e.mu.Lock()
	sess, running := e.sessions[key(userID, roomID)]
	e.mu.Unlock()

	data := Data{IsRunning: running, Signals: []models.BetSignal{}}
	if sess != nil {
		sess.mu.Lock()
		data.RoundsMonitored = sess.rounds
		data.LastUpdate = sess.last
		if sess.engine != nil {
			data.Wins, data.Losses, _ = sess.engine.Stats()
			data.ShouldChange = sess.engine.ShouldChangeRoom()
		}
		sess.mu.Unlock()
	}

	signals, err := e.repo.ListBetSignals(ctx, repository.ListBetSignalsParams{
		UserID: userID,
		RoomID: roomID,
		Limit:  10,
	})
	if err != nil {
		e.logger.Warn("bet signal list failed",
			zap.String("user_id", userID), zap.String("room_id", roomID), zap.Error(err))
	} else if signals != nil {
		data.Signals = signals
	}
	return data
}

// RegisterSubscriber attaches a frontend connection for one room and pushes
// the current view right away.
func (e *Executor) RegisterSubscriber(ctx context.Context, userID, roomID string, conn monitor.Conn) {
	channel := key(userID, roomID)
	e.subs.Register(channel, conn)
	msg := struct {
		Type      string `json:"type"`
		IsRunning bool   `json:"is_running"`
		Data      Data   `json:"betting_data"`
	}{
		Type:      "init_data",
		IsRunning: e.IsRunning(userID, roomID),
		Data:      e.Data(ctx, userID, roomID),
	}
	if err := e.subs.Push(ctx, conn, msg); err != nil {
		e.logger.Warn("betting init push failed", zap.String("channel", channel), zap.Error(err))
	}
}

func (e *Executor) UnregisterSubscriber(userID, roomID string, conn monitor.Conn) {
	e.subs.Unregister(key(userID, roomID), conn)
}

func sideName(s prediction.Symbol) string {
	switch s {
	case prediction.Player:
		return "player"
	case prediction.Banker:
		return "banker"
	default:
		return ""
	}
}

// normalizeWinner maps the free-form upstream winner field to a symbol.
// Ties and anything unrecognized map to None.
func normalizeWinner(winner string) prediction.Symbol {
	if winner == "" {
		return prediction.None
	}
	switch strings.ToLower(winner)[0] {
	case 'p':
		return prediction.Player
	case 'b':
		return prediction.Banker
	default:
		return prediction.None
	}
}
