package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/swordfighters/admin-api/internal/session"
)

// AuthHandler handles session inspection and logout endpoints.
type AuthHandler struct {
	sessions *session.Manager
}

// NewAuthHandler constructs an AuthHandler.
func NewAuthHandler(sessions *session.Manager) *AuthHandler {
	return &AuthHandler{sessions: sessions}
}

// Session reports whether the caller holds a valid session and returns the
// bound admin. Sessions bound to missing or inactive admins are destroyed.
func (h *AuthHandler) Session(c *gin.Context) {
	token := SessionTokenFromRequest(c)
	if token == "" {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error":   "Not Authenticated",
			"message": "No active session",
		})
		return
	}

	admin, errValidate := h.sessions.Validate(c.Request.Context(), token)
	if errValidate != nil {
		ClearSessionCookie(c)
		c.JSON(http.StatusUnauthorized, gin.H{
			"error":   "Session Invalid",
			"message": "Admin account not found or inactive",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"authenticated": true,
		"admin": gin.H{
			"id":          admin.ID,
			"email":       admin.Email,
			"name":        admin.Name,
			"role":        admin.Role,
			"isActive":    admin.Active,
			"lastLoginAt": admin.LastLoginAt,
		},
	})
}

// Logout destroys the caller's session. Logging out without a session
// succeeds.
func (h *AuthHandler) Logout(c *gin.Context) {
	if token := SessionTokenFromRequest(c); token != "" {
		_ = h.sessions.Destroy(c.Request.Context(), token)
	}
	ClearSessionCookie(c)
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Logged out successfully"})
}
