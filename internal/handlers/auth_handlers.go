package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Vinodvinum/LibraryManagement/internal/auth"
)

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (h *LibraryHandler) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	p, err := h.verifier.Verify(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			h.logger.Info("Login rejected", zap.String("username", req.Username), zap.String("ip", c.ClientIP()))
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
			return
		}
		h.logger.Error("Credential check failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	token, err := h.sessions.Create(c.Request.Context(), *p)
	if err != nil {
		h.logger.Error("Failed to create session", zap.String("username", p.Username), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	ttl := h.sessions.TTL()
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(SessionCookie, token, int(ttl/time.Second), "/", "", c.Request.TLS != nil, true)
	h.logger.Info("Login succeeded", zap.String("username", p.Username), zap.String("role", string(p.Role)))
	c.JSON(http.StatusOK, gin.H{
		"token":      token,
		"role":       p.Role,
		"expires_at": time.Now().Add(ttl).UTC(),
	})
}

func (h *LibraryHandler) logout(c *gin.Context) {
	if token := sessionToken(c); token != "" {
		if err := h.sessions.Delete(c.Request.Context(), token); err != nil {
			h.logger.Warn("Failed to delete session", zap.Error(err))
		}
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(SessionCookie, "", -1, "/", "", c.Request.TLS != nil, true)
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (h *LibraryHandler) whoami(c *gin.Context) {
	p, _ := auth.FromContext(c.Request.Context())
	c.JSON(http.StatusOK, p)
}
