package handler

import (
	"context"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"nhooyr.io/websocket"

	"lobbywatch/internal/betting"
	"lobbywatch/internal/monitor"
)

// WSHandler serves the subscriber push sockets for frontends.
type WSHandler struct {
	Monitor *monitor.Monitor
	Betting *betting.Executor
	Logger  *zap.Logger
}

func (h *WSHandler) Register(r *gin.Engine) {
	r.GET("/ws/lobby/:user_id", h.lobby)
	r.GET("/ws/betting/:user_id/:room_id", h.betting)
}

type wsConn struct {
	conn *websocket.Conn
}

func (w *wsConn) Send(ctx context.Context, payload []byte) error {
	return w.conn.Write(ctx, websocket.MessageText, payload)
}

func (h *WSHandler) accept(c *gin.Context) (*websocket.Conn, bool) {
	conn, err := websocket.Accept(c.Writer, c.Request, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		h.Logger.Warn("websocket accept failed", zap.Error(err))
		return nil, false
	}
	return conn, true
}

// drain blocks until the client goes away. Inbound payloads are ignored;
// these sockets are push-only.
func drain(ctx context.Context, conn *websocket.Conn) {
	for {
		if _, _, err := conn.Read(ctx); err != nil {
			return
		}
	}
}

func (h *WSHandler) lobby(c *gin.Context) {
	userID := c.Param("user_id")
	conn, ok := h.accept(c)
	if !ok {
		return
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	ctx := c.Request.Context()
	sub := &wsConn{conn: conn}
	h.Monitor.RegisterSubscriber(ctx, userID, sub)
	defer h.Monitor.UnregisterSubscriber(userID, sub)

	drain(ctx, conn)
}

func (h *WSHandler) betting(c *gin.Context) {
	userID := c.Param("user_id")
	roomID := c.Param("room_id")
	conn, ok := h.accept(c)
	if !ok {
		return
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	ctx := c.Request.Context()
	sub := &wsConn{conn: conn}
	h.Betting.RegisterSubscriber(ctx, userID, roomID, sub)
	defer h.Betting.UnregisterSubscriber(userID, roomID, sub)

	drain(ctx, conn)
}
