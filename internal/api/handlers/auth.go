package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/codyseavey/pokemon-collector/backend/internal/api/middleware"
)

type AuthHandler struct {
	auth *middleware.Auth
}

func NewAuthHandler(auth *middleware.Auth) *AuthHandler {
	return &AuthHandler{auth: auth}
}

// Status reports which credentials the server accepts.
func (h *AuthHandler) Status(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"modes": h.auth.Modes()})
}

// Verify echoes the identity resolved by the auth middleware.
func (h *AuthHandler) Verify(c *gin.Context) {
	id := middleware.CurrentIdentity(c)
	if id == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"valid": true, "user": id})
}
