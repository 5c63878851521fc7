package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"lobbywatch/internal/betting"
)

type BettingHandler struct {
	Executor *betting.Executor
}

func (h *BettingHandler) Register(authed *gin.RouterGroup) {
	authed.POST("/api/betting/config/:user_id/:room_id", h.setConfig)
	authed.GET("/api/betting/config/:user_id/:room_id", h.getConfig)
	authed.POST("/api/betting/start/:user_id/:room_id", h.start)
	authed.POST("/api/betting/stop/:user_id/:room_id", h.stop)
	authed.GET("/api/betting/data/:user_id/:room_id", h.data)
}

type bettingConfigRequest struct {
	Amount    int64  `json:"amount"`
	MaxRounds int    `json:"max_rounds"`
	Strategy  string `json:"strategy"`
}

func (h *BettingHandler) setConfig(c *gin.Context) {
	userID := c.Param("user_id")
	if !requireSelfOrAdmin(c, userID) {
		return
	}
	roomID := c.Param("room_id")

	var req bettingConfigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, "invalid request body", nil)
		return
	}
	h.Executor.SetConfig(userID, roomID, betting.Config{
		Amount:    req.Amount,
		MaxRounds: req.MaxRounds,
		Strategy:  req.Strategy,
	})
	cfg, _ := h.Executor.GetConfig(userID, roomID)
	Ok(c, cfg, nil)
}

func (h *BettingHandler) getConfig(c *gin.Context) {
	userID := c.Param("user_id")
	if !requireSelfOrAdmin(c, userID) {
		return
	}
	roomID := c.Param("room_id")
	cfg, ok := h.Executor.GetConfig(userID, roomID)
	if !ok {
		Ok(c, h.Executor.DefaultConfig(), map[string]any{"defaults": true})
		return
	}
	Ok(c, cfg, nil)
}

func (h *BettingHandler) start(c *gin.Context) {
	userID := c.Param("user_id")
	if !requireSelfOrAdmin(c, userID) {
		return
	}
	roomID := c.Param("room_id")
	if err := h.Executor.Start(c.Request.Context(), userID, roomID); err != nil {
		switch {
		case errors.Is(err, betting.ErrNoConfig):
			Error(c, http.StatusPreconditionFailed, "no betting config for room", nil)
		case errors.Is(err, betting.ErrNoSession):
			Error(c, http.StatusPreconditionFailed, "no feed session configured", nil)
		default:
			Error(c, http.StatusInternalServerError, "start failed: "+err.Error(), nil)
		}
		return
	}
	Ok(c, gin.H{"running": true}, nil)
}

func (h *BettingHandler) stop(c *gin.Context) {
	userID := c.Param("user_id")
	if !requireSelfOrAdmin(c, userID) {
		return
	}
	roomID := c.Param("room_id")
	if err := h.Executor.Stop(c.Request.Context(), userID, roomID); err != nil {
		if errors.Is(err, betting.ErrNotRunning) {
			Error(c, http.StatusConflict, "betting is not running", nil)
			return
		}
		Error(c, http.StatusInternalServerError, "stop failed", nil)
		return
	}
	Ok(c, gin.H{"running": false}, nil)
}

func (h *BettingHandler) data(c *gin.Context) {
	userID := c.Param("user_id")
	if !requireSelfOrAdmin(c, userID) {
		return
	}
	roomID := c.Param("room_id")
	Ok(c, h.Executor.Data(c.Request.Context(), userID, roomID), nil)
}
