// Package monitor runs the per-user lobby ingestion pipeline: one upstream
// feed connection per user, history merging, streak recompute and fan-out to
// subscribed frontends.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"

	"lobbywatch/internal/client/evo"
	"lobbywatch/internal/config"
	"lobbywatch/internal/history"
	"lobbywatch/internal/models"
	"lobbywatch/internal/repository"
	"lobbywatch/internal/streak"
)

var (
	// ErrNoSession means the user has not configured upstream feed
	// credentials yet.
	ErrNoSession  = errors.New("no feed session configured")
	ErrNotRunning = errors.New("monitoring is not running")
)

type MonitorData struct {
	StreakData streak.Data `json:"streak_data"`
}

type statusUpdateMsg struct {
	Type            string `json:"type"`
	IsRunning       bool   `json:"is_running"`
	ConnectionState string `json:"connection_state,omitempty"`
}

type dataUpdateMsg struct {
	Type       string      `json:"type"`
	StreakData streak.Data `json:"streak_data"`
}

type initDataMsg struct {
	Type            string      `json:"type"`
	IsRunning       bool        `json:"is_running"`
	ConnectionState string      `json:"connection_state"`
	MonitorData     MonitorData `json:"monitor_data"`
}

type session struct {
	cancel context.CancelFunc
	done   chan struct{}
	state  evo.State
}

type Options struct {
	Feed   config.FeedConfig
	Streak config.StreakConfig
	Repo   repository.Repository
	Store  *history.Store
	Subs   *Subscribers
	Logger *zap.Logger
}

// Monitor owns one feed client per started user. All exported methods are
// safe for concurrent use.
type Monitor struct {
	feed      config.FeedConfig
	streakCfg config.StreakConfig
	repo      repository.Repository
	store     *history.Store
	subs      *Subscribers
	logger    *zap.Logger

	mu         sync.Mutex
	sessions   map[string]*session
	mappings   map[string]map[string]string
	keywords   map[string][]string
	settings   map[string]streak.Settings
	lastStreak map[string]streak.Data
}

func New(opts Options) *Monitor {
	return &Monitor{
		feed:       opts.Feed,
		streakCfg:  opts.Streak,
		repo:       opts.Repo,
		store:      opts.Store,
		subs:       opts.Subs,
		logger:     opts.Logger,
		sessions:   make(map[string]*session),
		mappings:   make(map[string]map[string]string),
		keywords:   make(map[string][]string),
		settings:   make(map[string]streak.Settings),
		lastStreak: make(map[string]streak.Data),
	}
}

// defaultStreakSettings resolves the configured process-wide streak defaults,
// falling back to the built-ins when the section is absent.
func defaultStreakSettings(cfg config.StreakConfig) streak.Settings {
	s := streak.DefaultSettings()
	if cfg.PlayerStreak > 0 {
		s.PlayerStreak = cfg.PlayerStreak
	}
	if cfg.BankerStreak > 0 {
		s.BankerStreak = cfg.BankerStreak
	}
	if cfg.MinResults > 0 {
		s.MinResults = cfg.MinResults
	}
	return s
}

func (m *Monitor) IsRunning(userID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.sessions[userID]
	return ok
}

func (m *Monitor) ActiveCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Start brings up the feed connection for a user. Starting an already
// running user is a no-op. The session slot is reserved under the lock
// before any repository round-trip, so two concurrent Start calls can never
// both pass the "already running" check and leak a feed client.
func (m *Monitor) Start(ctx context.Context, userID string) error {
	runCtx, cancel := context.WithCancel(context.Background())
	sess := &session{cancel: cancel, done: make(chan struct{})}

	m.mu.Lock()
	if _, ok := m.sessions[userID]; ok {
		m.mu.Unlock()
		cancel()
		return nil
	}
	m.sessions[userID] = sess
	m.mu.Unlock()

	release := func() {
		m.mu.Lock()
		delete(m.sessions, userID)
		m.mu.Unlock()
		cancel()
		close(sess.done)
	}

	feedSession, err := m.repo.GetFeedSession(ctx, userID)
	if err != nil {
		release()
		return fmt.Errorf("load feed session: %w", err)
	}
	if feedSession == nil {
		release()
		return ErrNoSession
	}

	settings := defaultStreakSettings(m.streakCfg)
	if stored, err := m.repo.GetStreakSettings(ctx, userID); err == nil && stored != nil {
		settings = streak.Settings{
			PlayerStreak: stored.PlayerStreak,
			BankerStreak: stored.BankerStreak,
			MinResults:   stored.MinResults,
		}
	}
	mappings, err := m.repo.ListRoomMappings(ctx, userID)
	if err != nil {
		release()
		return fmt.Errorf("load room mappings: %w", err)
	}
	keywords, err := m.repo.ListFilterKeywords(ctx, userID)
	if err != nil {
		release()
		return fmt.Errorf("load filter keywords: %w", err)
	}

	url := evo.LobbySocketURL(m.feed.Host, m.feed.Features, evo.SessionConfig{
		SessionID:     feedSession.SessionToken,
		BareSessionID: feedSession.BareSessionID,
		Instance:      feedSession.Instance,
		ClientVersion: feedSession.ClientVersion,
	})

	client := evo.NewClient(evo.Options{
		URL:             url,
		Origin:          m.feed.Origin,
		UserAgent:       m.feed.UserAgent,
		Cookie:          "EVOSESSIONID=" + feedSession.SessionToken,
		LivenessTimeout: m.feed.LivenessTimeout,
		ProbeTimeout:    m.feed.ProbeTimeout,
		MaxReconnects:   m.feed.MaxReconnects,
		ReconnectWindow: m.feed.ReconnectWindow,
		ReadLimit:       m.feed.ReadLimit,
		Logger:          m.logger,
		OnState: func(s evo.State) {
			m.mu.Lock()
			sess.state = s
			m.mu.Unlock()
			m.subs.Broadcast(runCtx, userID, statusUpdateMsg{
				Type:            "status_update",
				IsRunning:       true,
				ConnectionState: string(s),
			})
		},
	})

	m.mu.Lock()
	m.settings[userID] = settings
	m.mappings[userID] = mappings
	m.keywords[userID] = keywords
	m.mu.Unlock()

	go m.run(runCtx, userID, client, sess)
	return nil
}

func (m *Monitor) run(ctx context.Context, userID string, client *evo.Client, sess *session) {
	defer close(sess.done)

	m.logger.Info("monitoring started", zap.String("user_id", userID))
	m.subs.Broadcast(ctx, userID, statusUpdateMsg{
		Type:            "status_update",
		IsRunning:       true,
		ConnectionState: string(evo.StateConnecting),
	})

	err := client.Run(ctx, func(raw []byte) {
		m.handleFrame(ctx, userID, raw)
	})
	switch {
	case err == nil, errors.Is(err, context.Canceled):
	case errors.Is(err, evo.ErrSessionRejected):
		m.logger.Error("feed session rejected, refresh credentials",
			zap.String("user_id", userID), zap.Error(err))
	default:
		m.logger.Error("monitoring stopped on error",
			zap.String("user_id", userID), zap.Error(err))
	}

	m.mu.Lock()
	delete(m.sessions, userID)
	m.mu.Unlock()

	m.subs.Broadcast(context.Background(), userID, statusUpdateMsg{
		Type:            "status_update",
		IsRunning:       false,
		ConnectionState: string(evo.StateDisconnected),
	})
	m.logger.Info("monitoring stopped", zap.String("user_id", userID))
}

// Stop cancels the user's feed connection and waits for the run loop to
// exit.
func (m *Monitor) Stop(ctx context.Context, userID string) error {
	m.mu.Lock()
	sess, ok := m.sessions[userID]
	m.mu.Unlock()
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

// StopAll shuts down every running session, used on process shutdown.
func (m *Monitor) StopAll(ctx context.Context) {
	m.mu.Lock()
	sessions := make([]*session, 0, len(m.sessions))
	for _, sess := range m.sessions {
		sessions = append(sessions, sess)
	}
	m.mu.Unlock()

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

func (m *Monitor) handleFrame(ctx context.Context, userID string, raw []byte) {
	env, err := evo.ParseEnvelope(raw)
	if err != nil {
		m.logger.Warn("undecodable feed frame", zap.String("user_id", userID), zap.Error(err))
		return
	}

	switch env.Type {
	case evo.EventHistoryUpdated:
		m.persistRaw(userID, env.Type, raw)
		m.applyHistoryUpdate(ctx, userID, env)
	case evo.EventRoundStart, evo.EventRoundEnd, evo.EventBettingOpened, evo.EventBettingClosed:
		m.persistRaw(userID, env.Type, raw)
	default:
		// Unknown frame types are expected and ignored.
	}
}

// applyHistoryUpdate merges parsed results into the history store and, when
// anything actually changed, recomputes once for the whole frame.
func (m *Monitor) applyHistoryUpdate(ctx context.Context, userID string, env evo.Envelope) {
	tables := evo.ParseHistoryUpdated(env.Args)
	if len(tables) == 0 {
		return
	}

	m.mu.Lock()
	mappings := m.mappings[userID]
	keywords := m.keywords[userID]
	m.mu.Unlock()

	changed := false
	for tableID, records := range tables {
		if !tableAllowed(tableID, mappings, keywords) {
			continue
		}
		if m.store.Merge(userID, tableID, records) {
			changed = true
		}
	}
	if changed {
		m.recomputeAndBroadcast(ctx, userID)
	}
}

// tableAllowed applies the user's ingestion filters. A non-empty mapping set
// restricts ingestion to mapped tables; keywords further require the table's
// display name (or its id when unmapped) to contain one of them,
// case-insensitively. No filters configured means every table is accepted.
func tableAllowed(tableID string, mappings map[string]string, keywords []string) bool {
	if len(mappings) > 0 {
		if _, ok := mappings[tableID]; !ok {
			return false
		}
	}
	if len(keywords) == 0 {
		return true
	}
	name := tableID
	if mapped := mappings[tableID]; mapped != "" {
		name = mapped
	}
	name = strings.ToLower(name)
	for _, kw := range keywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw == "" {
			continue
		}
		if strings.Contains(name, kw) {
			return true
		}
	}
	return false
}

func (m *Monitor) persistRaw(userID, eventType string, raw []byte) {
	if m.repo == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	err := m.repo.InsertRawFeedEvent(ctx, &models.RawFeedEvent{
		UserID:     userID,
		EventType:  eventType,
		ReceivedAt: time.Now().UTC(),
		Payload:    datatypes.JSON(raw),
	})
	if err != nil {
		m.logger.Warn("raw event persist failed", zap.String("user_id", userID), zap.Error(err))
	}
}

// recomputeAndBroadcast rebuilds the streak view and pushes it to the
/// user's subscribers. A panic inside the recompute is contained: the
// previous view is retained and the ingestion loop keeps running.
func (m *Monitor) recomputeAndBroadcast(ctx context.Context, userID string) {
	data, ok := m.computeStreaks(userID)
	if !ok {
		return
	}

	m.mu.Lock()
	m.lastStreak[userID] = data
	m.mu.Unlock()

	m.subs.Broadcast(ctx, userID, dataUpdateMsg{Type: "data_update", StreakData: data})
}

func (m *Monitor) computeStreaks(userID string) (data streak.Data, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			m.logger.Error("streak recompute panicked",
				zap.String("user_id", userID), zap.Any("panic", r))
			ok = false
		}
	}()

	m.mu.Lock()
	settings, have := m.settings[userID]
	names := m.mappings[userID]
	m.mu.Unlock()
	if !have {
		settings = defaultStreakSettings(m.streakCfg)
	}

	return streak.Compute(m.store.Snapshot(userID), settings, names), true
}

// Data returns the current monitor view for a user, recomputing on demand.
// Falls back to the last good view if the recompute fails.
func (m *Monitor) Data(userID string) MonitorData {
	if data, ok := m.computeStreaks(userID); ok {
		return MonitorData{StreakData: data}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return MonitorData{StreakData: m.lastStreak[userID]}
}

// RoomStats aggregates win counts and rates over a room's stored results.
type RoomStats struct {
	Total      int     `json:"total_results"`
	PlayerWins int     `json:"player_wins"`
	BankerWins int     `json:"banker_wins"`
	Ties       int     `json:"ties"`
	PlayerRate float64 `json:"player_rate"`
	BankerRate float64 `json:"banker_rate"`
	TieRate    float64 `json:"tie_rate"`
}

// ReadableResult is one result with the winner spelled out for display.
type ReadableResult struct {
	Pos        int    `json:"pos"`
	Winner     string `json:"winner"`
	Natural    bool   `json:"natural"`
	PlayerPair bool   `json:"player_pair"`
	BankerPair bool   `json:"banker_pair"`
}

// RoomView is the per-room data payload: the recent pattern string, win
// statistics and the readable result list.
type RoomView struct {
	RoomID   string           `json:"room_id"`
	RoomName string           `json:"room_name"`
	Pattern  string           `json:"result_pattern"`
	Stats    RoomStats        `json:"stats"`
	Results  []ReadableResult `json:"results"`
}

func buildRoomView(roomID, roomName string, records []history.Record) RoomView {
	view := RoomView{
		RoomID:   roomID,
		RoomName: roomName,
		Pattern:  history.Pattern(records, 15),
		Results:  make([]ReadableResult, 0, len(records)),
	}
	for _, rec := range records {
		winner := "Tie"
		switch rec.Outcome {
		case history.OutcomePlayer:
			winner = "Player"
			view.Stats.PlayerWins++
		case history.OutcomeBanker:
			winner = "Banker"
			view.Stats.BankerWins++
		default:
			view.Stats.Ties++
		}
		view.Results = append(view.Results, ReadableResult{
			Pos:        rec.Pos,
			Winner:     winner,
			Natural:    rec.Natural,
			PlayerPair: rec.PlayerPair,
			BankerPair: rec.BankerPair,
		})
	}
	view.Stats.Total = len(records)
	if view.Stats.Total > 0 {
		total := float64(view.Stats.Total)
		view.Stats.PlayerRate = float64(view.Stats.PlayerWins) / total
		view.Stats.BankerRate = float64(view.Stats.BankerWins) / total
		view.Stats.TieRate = float64(view.Stats.Ties) / total
	}
	return view
}

// RoomData assembles the view for one of the user's tables, oldest result
// first, or nil when the table is unknown.
func (m *Monitor) RoomData(userID, roomID string) *RoomView {
	records := m.store.Get(userID, roomID)
	if records == nil {
		return nil
	}
	m.mu.Lock()
	name := m.mappings[userID][roomID]
	m.mu.Unlock()
	if name == "" {
		name = roomID
	}
	view := buildRoomView(roomID, name, records)
	return &view
}

// ConnectionState reports the feed connection state for a user.
func (m *Monitor) ConnectionState(userID string) evo.State {
	m.mu.Lock()
	defer m.mu.Unlock()
	if sess, ok := m.sessions[userID]; ok && sess.state != "" {
		return sess.state
	}
	return evo.StateDisconnected
}

// HasData reports whether any history has been ingested for the user.
func (m *Monitor) HasData(userID string) bool {
	return m.store.HasUser(userID)
}

// RegisterSubscriber attaches a frontend connection and immediately pushes
// the current snapshot so the client renders without waiting for the next
// update.
func (m *Monitor) RegisterSubscriber(ctx context.Context, userID string, conn Conn) {
	m.subs.Register(userID, conn)
	msg := initDataMsg{
		Type:            "init_data",
		IsRunning:       m.IsRunning(userID),
		ConnectionState: string(m.ConnectionState(userID)),
		MonitorData:     m.Data(userID),
	}
	if err := m.subs.Push(ctx, conn, msg); err != nil {
		m.logger.Warn("init data push failed", zap.String("user_id", userID), zap.Error(err))
	}
}

func (m *Monitor) UnregisterSubscriber(userID string, conn Conn) {
	m.subs.Unregister(userID, conn)
}

// SetStreakSettings persists new thresholds and applies them to the live
// pipeline, recomputing immediately so subscribers see the new view.
func (m *Monitor) SetStreakSettings(ctx context.Context, userID string, s streak.Settings) error {
	err := m.repo.UpsertStreakSettings(ctx, &models.StreakSettings{
		UserID:       userID,
		PlayerStreak: s.PlayerStreak,
		BankerStreak: s.BankerStreak,
		MinResults:   s.MinResults,
	})
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.settings[userID] = s
	m.mu.Unlock()
	m.recomputeAndBroadcast(ctx, userID)
	return nil
}

// SetRoomMappings replaces the user's table-id to display-name mapping.
// Only mapped tables are ingested once a mapping exists.
func (m *Monitor) SetRoomMappings(ctx context.Context, userID string, mappings map[string]string) error {
	if err := m.repo.ReplaceRoomMappings(ctx, userID, mappings); err != nil {
		return err
	}
	m.mu.Lock()
	m.mappings[userID] = mappings
	m.mu.Unlock()
	m.recomputeAndBroadcast(ctx, userID)
	return nil
}

// SetFilterKeywords replaces the user's table-name keyword filter. Keywords
// restrict ingestion to tables whose display name contains one of them.
func (m *Monitor) SetFilterKeywords(ctx context.Context, userID string, keywords []string) error {
	if err := m.repo.ReplaceFilterKeywords(ctx, userID, keywords); err != nil {
		return err
	}
	m.mu.Lock()
	m.keywords[userID] = keywords
	m.mu.Unlock()
	m.recomputeAndBroadcast(ctx, userID)
	return nil
}
