package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"lobbywatch/internal/auth"
	"lobbywatch/internal/models"
	"lobbywatch/internal/repository"
)

// UsersHandler is the admin account panel: user CRUD plus aggregate
// statistics.
type UsersHandler struct {
	Repo    repository.Repository
	Monitor ActiveCounter
	Betting ActiveCounter
}

func (h *UsersHandler) Register(admin *gin.RouterGroup) {
	admin.GET("/api/users", h.list)
	admin.POST("/api/users", h.create)
	admin.PUT("/api/users/:login_id", h.update)
	admin.DELETE("/api/users/:login_id", h.remove)
	admin.GET("/api/statistics", h.statistics)
}

type userRequest struct {
	ID       string `json:"id" binding:"required"`
	Password string `json:"password"`
	EndDate  string `json:"end_date" binding:"required"`
	Name     string `json:"name"`
	Phone    string `json:"phone"`
	Referrer string `json:"referrer"`
}

func (h *UsersHandler) list(c *gin.Context) {
	users, err := h.Repo.ListUsers(c.Request.Context())
	if err != nil {
		Error(c, http.StatusInternalServerError, "list failed", nil)
		return
	}
	Ok(c, users, map[string]any{"count": len(users)})
}

func (h *UsersHandler) create(c *gin.Context) {
	var req userRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, "invalid request body", nil)
		return
	}
	if req.Password == "" {
		Error(c, http.StatusBadRequest, "password is required", nil)
		return
	}
	endDate, err := time.Parse("2006-01-02", req.EndDate)
	if err != nil {
		Error(c, http.StatusBadRequest, "end_date must be YYYY-MM-DD", nil)
		return
	}
	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		Error(c, http.StatusInternalServerError, "password hash failed", nil)
		return
	}

	user := &models.User{
		LoginID:      req.ID,
		PasswordHash: hash,
		EndDate:      endDate,
		Name:         req.Name,
		Phone:        req.Phone,
		Referrer:     req.Referrer,
	}
	if err := h.Repo.CreateUser(c.Request.Context(), user); err != nil {
		Error(c, http.StatusConflict, "create failed: "+err.Error(), nil)
		return
	}
	Ok(c, user, nil)
}

func (h *UsersHandler) update(c *gin.Context) {
	loginID := c.Param("login_id")
	existing, err := h.Repo.GetUserByLoginID(c.Request.Context(), loginID)
	if err != nil {
		Error(c, http.StatusInternalServerError, "lookup failed", nil)
		return
	}
	if existing == nil {
		Error(c, http.StatusNotFound, "user not found", nil)
		return
	}

	var req userRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, "invalid request body", nil)
		return
	}
	if req.EndDate != "" {
		endDate, err := time.Parse("2006-01-02", req.EndDate)
		if err != nil {
			Error(c, http.StatusBadRequest, "end_date must be YYYY-MM-DD", nil)
			return
		}
		existing.EndDate = endDate
	}
	if req.Password != "" {
		hash, err := auth.HashPassword(req.Password)
		if err != nil {
			Error(c, http.StatusInternalServerError, "password hash failed", nil)
			return
		}
		existing.PasswordHash = hash
	}
	existing.Name = req.Name
	existing.Phone = req.Phone
	existing.Referrer = req.Referrer

	if err := h.Repo.UpdateUser(c.Request.Context(), existing); err != nil {
		Error(c, http.StatusInternalServerError, "update failed", nil)
		return
	}
	Ok(c, existing, nil)
}

func (h *UsersHandler) remove(c *gin.Context) {
	loginID := c.Param("login_id")
	if err := h.Repo.DeleteUser(c.Request.Context(), loginID); err != nil {
		Error(c, http.StatusInternalServerError, "delete failed", nil)
		return
	}
	Ok(c, gin.H{"deleted": loginID}, nil)
}

func (h *UsersHandler) statistics(c *gin.Context) {
	total, err := h.Repo.CountUsers(c.Request.Context())
	if err != nil {
		Error(c, http.StatusInternalServerError, "count failed", nil)
		return
	}
	monitors, bettings := 0, 0
	if h.Monitor != nil {
		monitors = h.Monitor.ActiveCount()
	}
	if h.Betting != nil {
		bettings = h.Betting.ActiveCount()
	}
	Ok(c, gin.H{
		"total_users":     total,
		"active_monitors": monitors,
		"active_bettings": bettings,
	}, nil)
}
