package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"lobbywatch/internal/client/evo"
)

// UtilsHandler holds helper endpoints for operators setting up a session.
type UtilsHandler struct {
	FeedHost string
}

func (h *UtilsHandler) Register(authed *gin.RouterGroup) {
	authed.POST("/api/utils/extract-config", h.extractConfig)
}

type extractConfigRequest struct {
	WSURL  string `json:"ws_url" binding:"required"`
	RoomID string `json:"room_id"`
}

// extractConfig parses a pasted lobby websocket URL into session parameters
// and, when a room id is supplied, derives that room's socket URL.
func (h *UtilsHandler) extractConfig(c *gin.Context) {
	var req extractConfigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, "invalid request body", nil)
		return
	}
	if !evo.ValidateURL(req.WSURL) {
		Error(c, http.StatusBadRequest, "unrecognized websocket url", nil)
		return
	}
	cfg, err := evo.ExtractSession(req.WSURL)
	if err != nil {
		Error(c, http.StatusBadRequest, err.Error(), nil)
		return
	}

	resp := gin.H{"config": cfg}
	if req.RoomID != "" {
		resp["room_ws_url"] = evo.RoomSocketURL(h.FeedHost, req.RoomID, cfg)
	}
	Ok(c, resp, nil)
}
