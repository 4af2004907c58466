package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/swordfighters/admin-api/internal/models"
)

// sessionCookieName is the cookie carrying the admin session token.
const sessionCookieName = "admin_session"

// SessionTokenFromRequest extracts the session token from the session cookie
// or, failing that, a bearer Authorization header.
func SessionTokenFromRequest(c *gin.Context) string {
	if cookie, errCookie := c.Cookie(sessionCookieName); errCookie == nil && cookie != "" {
		return cookie
	}
	header := c.GetHeader("Authorization")
	token := strings.TrimPrefix(header, "Bearer ")
	if token == header {
		return ""
	}
	return strings.TrimSpace(token)
}

// SetSessionCookie attaches the session token to the response.
func SetSessionCookie(c *gin.Context, token string, maxAgeSeconds int) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(sessionCookieName, token, maxAgeSeconds, "/", "", false, true)
}

// ClearSessionCookie expires the session cookie on the client.
func ClearSessionCookie(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(sessionCookieName, "", -1, "/", "", false, true)
}

// adminFromContext reads the admin the auth middleware loaded.
func adminFromContext(c *gin.Context) (*models.Admin, bool) {
	value, ok := c.Get("admin")
	if !ok {
		return nil, false
	}
	admin, ok := value.(*models.Admin)
	return admin, ok
}
