package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"lobbywatch/internal/auth"
	"lobbywatch/internal/client/evo"
	"lobbywatch/internal/models"
	"lobbywatch/internal/monitor"
	"lobbywatch/internal/repository"
	"lobbywatch/internal/streak"
)

// LobbyHandler is the monitoring control plane: feed credentials, per-user
// settings and the start/stop/data surface of the lobby monitor.
type LobbyHandler struct {
	Repo    repository.Repository
	Monitor *monitor.Monitor
}

func (h *LobbyHandler) Register(authed *gin.RouterGroup) {
	authed.POST("/api/lobby/session/:user_id", h.setSession)
	authed.GET("/api/lobby/session/:user_id", h.getSession)
	authed.POST("/api/lobby/streak-settings/:user_id", h.setStreakSettings)
	authed.GET("/api/lobby/streak-settings/:user_id", h.getStreakSettings)
	authed.POST("/api/lobby/prediction-settings/:user_id", h.setPredictionSettings)
	authed.GET("/api/lobby/prediction-settings/:user_id", h.getPredictionSettings)
	authed.POST("/api/lobby/room-mappings/:user_id", h.setRoomMappings)
	authed.GET("/api/lobby/room-mappings/:user_id", h.getRoomMappings)
	authed.POST("/api/lobby/filter-keywords/:user_id", h.setFilterKeywords)
	authed.GET("/api/lobby/filter-keywords/:user_id", h.getFilterKeywords)
	authed.POST("/api/lobby/start/:user_id", h.start)
	authed.POST("/api/lobby/stop/:user_id", h.stop)
	authed.GET("/api/lobby/data/:user_id", h.data)
	authed.GET("/api/lobby/room-data/:user_id/:room_id", h.roomData)
}

// requireSelfOrAdmin enforces that a user only touches their own resources.
func requireSelfOrAdmin(c *gin.Context, userID string) bool {
	claims, ok := auth.ClaimsFrom(c)
	if !ok {
		Error(c, http.StatusUnauthorized, "not authenticated", nil)
		return false
	}
	if claims.Role != auth.RoleAdmin && claims.UserID != userID {
		Error(c, http.StatusForbidden, "access denied", nil)
		return false
	}
	return true
}

type sessionRequest struct {
	WSURL string `json:"ws_url"`

	SessionID     string `json:"session_id"`
	BareSessionID string `json:"bare_session_id"`
	Instance      string `json:"instance"`
	ClientVersion string `json:"client_version"`
}

func (h *LobbyHandler) setSession(c *gin.Context) {
	userID := c.Param("user_id")
	if !requireSelfOrAdmin(c, userID) {
		return
	}
	var req sessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, "invalid request body", nil)
		return
	}

	cfg := evo.SessionConfig{
		SessionID:     req.SessionID,
		BareSessionID: req.BareSessionID,
		Instance:      req.Instance,
		ClientVersion: req.ClientVersion,
	}
	if req.WSURL != "" {
		if !evo.ValidateURL(req.WSURL) {
			Error(c, http.StatusBadRequest, "unrecognized websocket url", nil)
			return
		}
		extracted, err := evo.ExtractSession(req.WSURL)
		if err != nil {
			Error(c, http.StatusBadRequest, err.Error(), nil)
			return
		}
		cfg = extracted
	}
	if cfg.SessionID == "" || cfg.BareSessionID == "" || cfg.Instance == "" || cfg.ClientVersion == "" {
		Error(c, http.StatusBadRequest, "incomplete session parameters", nil)
		return
	}

	err := h.Repo.UpsertFeedSession(c.Request.Context(), &models.FeedSession{
		UserID:        userID,
		SessionToken:  cfg.SessionID,
		BareSessionID: cfg.BareSessionID,
		Instance:      cfg.Instance,
		ClientVersion: cfg.ClientVersion,
	})
	if err != nil {
		Error(c, http.StatusInternalServerError, "session save failed", nil)
		return
	}
	Ok(c, cfg, nil)
}

func (h *LobbyHandler) getSession(c *gin.Context) {
	userID := c.Param("user_id")
	if !requireSelfOrAdmin(c, userID) {
		return
	}
	sess, err := h.Repo.GetFeedSession(c.Request.Context(), userID)
	if err != nil {
		Error(c, http.StatusInternalServerError, "session lookup failed", nil)
		return
	}
	if sess == nil {
		Error(c, http.StatusNotFound, "no session configured", nil)
		return
	}
	Ok(c, sess, nil)
}

type streakSettingsRequest struct {
	PlayerStreak int `json:"player_streak" binding:"required,min=1"`
	BankerStreak int `json:"banker_streak" binding:"required,min=1"`
	MinResults   int `json:"min_results" binding:"required,min=1"`
}

func (h *LobbyHandler) setStreakSettings(c *gin.Context) {
	userID := c.Param("user_id")
	if !requireSelfOrAdmin(c, userID) {
		return
	}
	var req streakSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, "invalid request body", nil)
		return
	}
	err := h.Monitor.SetStreakSettings(c.Request.Context(), userID, streak.Settings{
		PlayerStreak: req.PlayerStreak,
		BankerStreak: req.BankerStreak,
		MinResults:   req.MinResults,
	})
	if err != nil {
		Error(c, http.StatusInternalServerError, "settings save failed", nil)
		return
	}
	Ok(c, req, nil)
}

func (h *LobbyHandler) getStreakSettings(c *gin.Context) {
	userID := c.Param("user_id")
	if !requireSelfOrAdmin(c, userID) {
		return
	}
	stored, err := h.Repo.GetStreakSettings(c.Request.Context(), userID)
	if err != nil {
		Error(c, http.StatusInternalServerError, "settings lookup failed", nil)
		return
	}
	if stored == nil {
		defaults := streak.DefaultSettings()
		Ok(c, models.StreakSettings{
			UserID:       userID,
			PlayerStreak: defaults.PlayerStreak,
			BankerStreak: defaults.BankerStreak,
			MinResults:   defaults.MinResults,
		}, map[string]any{"defaults": true})
		return
	}
	Ok(c, stored, nil)
}

type predictionSettingsRequest struct {
	Algorithm           string  `json:"algorithm"`
	SampleSize          int     `json:"sample_size"`
	ConfidenceThreshold float64 `json:"confidence_threshold"`
	LossLimit           int     `json:"loss_limit"`
}

func (h *LobbyHandler) setPredictionSettings(c *gin.Context) {
	userID := c.Param("user_id")
	if !requireSelfOrAdmin(c, userID) {
		return
	}
	var req predictionSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, "invalid request body", nil)
		return
	}
	item := &models.PredictionSettings{
		UserID:              userID,
		Algorithm:           req.Algorithm,
		SampleSize:          req.SampleSize,
		ConfidenceThreshold: req.ConfidenceThreshold,
		LossLimit:           req.LossLimit,
	}
	if item.Algorithm == "" {
		item.Algorithm = "choice_pick"
	}
	if item.SampleSize <= 0 {
		item.SampleSize = 15
	}
	if err := h.Repo.UpsertPredictionSettings(c.Request.Context(), item); err != nil {
		Error(c, http.StatusInternalServerError, "settings save failed", nil)
		return
	}
	Ok(c, item, nil)
}

func (h *LobbyHandler) getPredictionSettings(c *gin.Context) {
	userID := c.Param("user_id")
	if !requireSelfOrAdmin(c, userID) {
		return
	}
	stored, err := h.Repo.GetPredictionSettings(c.Request.Context(), userID)
	if err != nil {
		Error(c, http.StatusInternalServerError, "settings lookup failed", nil)
		return
	}
	if stored == nil {
		Error(c, http.StatusNotFound, "no prediction settings", nil)
		return
	}
	Ok(c, stored, nil)
}

type roomMappingsRequest struct {
	Mappings map[string]string `json:"mappings" binding:"required"`
}

func (h *LobbyHandler) setRoomMappings(c *gin.Context) {
	userID := c.Param("user_id")
	if !requireSelfOrAdmin(c, userID) {
		return
	}
	var req roomMappingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, "invalid request body", nil)
		return
	}
	if err := h.Monitor.SetRoomMappings(c.Request.Context(), userID, req.Mappings); err != nil {
		Error(c, http.StatusInternalServerError, "mappings save failed", nil)
		return
	}
	Ok(c, gin.H{"count": len(req.Mappings)}, nil)
}

func (h *LobbyHandler) getRoomMappings(c *gin.Context) {
	userID := c.Param("user_id")
	if !requireSelfOrAdmin(c, userID) {
		return
	}
	mappings, err := h.Repo.ListRoomMappings(c.Request.Context(), userID)
	if err != nil {
		Error(c, http.StatusInternalServerError, "mappings lookup failed", nil)
		return
	}
	Ok(c, mappings, map[string]any{"count": len(mappings)})
}

type filterKeywordsRequest struct {
	Keywords []string `json:"keywords" binding:"required"`
}

func (h *LobbyHandler) setFilterKeywords(c *gin.Context) {
	userID := c.Param("user_id")
	if !requireSelfOrAdmin(c, userID) {
		return
	}
	var req filterKeywordsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, "invalid request body", nil)
		return
	}
	if err := h.Monitor.SetFilterKeywords(c.Request.Context(), userID, req.Keywords); err != nil {
		Error(c, http.StatusInternalServerError, "keywords save failed", nil)
		return
	}
	Ok(c, gin.H{"count": len(req.Keywords)}, nil)
}

func (h *LobbyHandler) getFilterKeywords(c *gin.Context) {
	userID := c.Param("user_id")
	if !requireSelfOrAdmin(c, userID) {
		return
	}
	keywords, err := h.Repo.ListFilterKeywords(c.Request.Context(), userID)
	if err != nil {
		Error(c, http.StatusInternalServerError, "keywords lookup failed", nil)
		return
	}
	if keywords == nil {
		keywords = []string{}
	}
	Ok(c, keywords, map[string]any{"count": len(keywords)})
}

func (h *LobbyHandler) start(c *gin.Context) {
	userID := c.Param("user_id")
	if !requireSelfOrAdmin(c, userID) {
		return
	}
	if err := h.Monitor.Start(c.Request.Context(), userID); err != nil {
		if errors.Is(err, monitor.ErrNoSession) {
			Error(c, http.StatusPreconditionFailed, "no feed session configured", nil)
			return
		}
		Error(c, http.StatusInternalServerError, "start failed: "+err.Error(), nil)
		return
	}
	Ok(c, gin.H{"running": true}, nil)
}

func (h *LobbyHandler) stop(c *gin.Context) {
	userID := c.Param("user_id")
	if !requireSelfOrAdmin(c, userID) {
		return
	}
	if err := h.Monitor.Stop(c.Request.Context(), userID); err != nil {
		if errors.Is(err, monitor.ErrNotRunning) {
			Error(c, http.StatusConflict, "monitoring is not running", nil)
			return
		}
		Error(c, http.StatusInternalServerError, "stop failed", nil)
		return
	}
	Ok(c, gin.H{"running": false}, nil)
}

func (h *LobbyHandler) data(c *gin.Context) {
	userID := c.Param("user_id")
	if !requireSelfOrAdmin(c, userID) {
		return
	}
	Ok(c, gin.H{
		"is_running":       h.Monitor.IsRunning(userID),
		"connection_state": h.Monitor.ConnectionState(userID),
		"monitor_data":     h.Monitor.Data(userID),
	}, nil)
}

func (h *LobbyHandler) roomData(c *gin.Context) {
	userID := c.Param("user_id")
	if !requireSelfOrAdmin(c, userID) {
		return
	}
	roomID := c.Param("room_id")
	view := h.Monitor.RoomData(userID, roomID)
	if view == nil {
		Error(c, http.StatusNotFound, "no data for room", nil)
		return
	}
	Ok(c, view, map[string]any{"count": len(view.Results)})
}
