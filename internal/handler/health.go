package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type HealthHandler struct {
	DB *gorm.DB
}

func (h *HealthHandler) Register(r *gin.Engine) {
	r.GET("/healthz", h.health)
	r.GET("/readyz", h.ready)
}

func (h *HealthHandler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *HealthHandler) ready(c *gin.Context) {
	if h.DB == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "db_missing"})
		return
	}
	sqlDB, err := h.DB.DB()
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "db_error"})
		return
	}
	if err := sqlDB.Ping(); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "db_unreachable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}

// StatusHandler reports process-level runtime state.
type StatusHandler struct {
	Version string
	Monitor ActiveCounter
	Betting ActiveCounter
}

type ActiveCounter interface {
	ActiveCount() int
}

func (h *StatusHandler) Register(r *gin.Engine) {
	r.GET("/api/status", h.status)
}

func (h *StatusHandler) status(c *gin.Context) {
	monitors, bettings := 0, 0
	if h.Monitor != nil {
		monitors = h.Monitor.ActiveCount()
	}
	if h.Betting != nil {
		bettings = h.Betting.ActiveCount()
	}
	Ok(c, gin.H{
		"version":         h.Version,
		"active_monitors": monitors,
		"active_bettings": bettings,
	}, nil)
}
