package handler

import (
	"crypto/subtle"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"lobbywatch/internal/auth"
	"lobbywatch/internal/repository"
)

type AuthHandler struct {
	Repo          repository.Repository
	JWT           auth.JWT
	AdminUsername string
	AdminPassword string
	Logger        *zap.Logger
}

func (h *AuthHandler) Register(r *gin.Engine, authed *gin.RouterGroup) {
	r.POST("/api/login", h.login)
	authed.POST("/api/logout", h.logout)
}

type loginRequest struct {
	ID       string `json:"id" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (h *AuthHandler) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, "invalid request body", nil)
		return
	}

	if h.AdminUsername != "" && req.ID == h.AdminUsername {
		if h.AdminPassword == "" ||
			subtle.ConstantTimeCompare([]byte(req.Password), []byte(h.AdminPassword)) != 1 {
			Error(c, http.StatusUnauthorized, "invalid credentials", nil)
			return
		}
		token, expiresAt, err := h.JWT.Sign(auth.Claims{UserID: req.ID, Role: auth.RoleAdmin})
		if err != nil {
			Error(c, http.StatusInternalServerError, "token issue failed", nil)
			return
		}
		Ok(c, gin.H{
			"token":      token,
			"expires_at": expiresAt,
			"user_id":    req.ID,
			"role":       auth.RoleAdmin,
		}, nil)
		return
	}

	user, err := h.Repo.GetUserByLoginID(c.Request.Context(), req.ID)
	if err != nil {
		Error(c, http.StatusInternalServerError, "lookup failed", nil)
		return
	}
	if user == nil || !auth.VerifyPassword(user.PasswordHash, req.Password) {
		Error(c, http.StatusUnauthorized, "invalid credentials", nil)
		return
	}
	now := time.Now().UTC()
	if user.EndDate.Before(now.Truncate(24 * time.Hour)) {
		Error(c, http.StatusForbidden, "subscription expired", nil)
		return
	}

	if err := h.Repo.SetUserLoggedIn(c.Request.Context(), user.LoginID, true, &now); err != nil {
		h.Logger.Warn("login state update failed", zap.String("user_id", user.LoginID), zap.Error(err))
	}

	token, expiresAt, err := h.JWT.Sign(auth.Claims{UserID: user.LoginID, Role: auth.RoleUser})
	if err != nil {
		Error(c, http.StatusInternalServerError, "token issue failed", nil)
		return
	}
	Ok(c, gin.H{
		"token":      token,
		"expires_at": expiresAt,
		"user_id":    user.LoginID,
		"role":       auth.RoleUser,
		"end_date":   user.EndDate,
	}, nil)
}

func (h *AuthHandler) logout(c *gin.Context) {
	claims, ok := auth.ClaimsFrom(c)
	if !ok {
		Error(c, http.StatusUnauthorized, "not authenticated", nil)
		return
	}
	if claims.Role == auth.RoleUser {
		if err := h.Repo.SetUserLoggedIn(c.Request.Context(), claims.UserID, false, nil); err != nil {
			h.Logger.Warn("logout state update failed", zap.String("user_id", claims.UserID), zap.Error(err))
		}
	}
	Ok(c, gin.H{"logged_out": true}, nil)
}
