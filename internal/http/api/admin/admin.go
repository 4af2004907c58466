// Package admin wires the admin API routes.
package admin

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/swordfighters/admin-api/internal/http/api/admin/handlers"
	"github.com/swordfighters/admin-api/internal/passkey"
	"github.com/swordfighters/admin-api/internal/session"
	"gorm.io/gorm"
)

// adminContextKey is the gin context key the auth middleware stores the admin under.
const adminContextKey = "admin"

// RegisterAdminRoutes registers the admin authentication and credential
// management routes.
func RegisterAdminRoutes(r *gin.Engine, db *gorm.DB, svc *passkey.Service, sessions *session.Manager) {
	if r == nil || db == nil {
		return
	}

	healthHandler := handlers.NewHealthHandler(db)
	r.GET("/healthz", healthHandler.Healthz)

	group := r.Group("/api/admin")

	webAuthnHandler := handlers.NewWebAuthnHandler(svc, sessions)
	group.POST("/webauthn/register/options", webAuthnHandler.RegisterOptions)
	group.POST("/webauthn/register/verify", webAuthnHandler.RegisterVerify)
	group.POST("/webauthn/authenticate/options", webAuthnHandler.AuthenticateOptions)
	group.POST("/webauthn/authenticate/verify", webAuthnHandler.AuthenticateVerify)

	authHandler := handlers.NewAuthHandler(sessions)
	group.GET("/auth/session", authHandler.Session)
	group.POST("/auth/logout", authHandler.Logout)

	authed := group.Group("")
	authed.Use(sessionAuthMiddleware(sessions))
	authed.GET("/webauthn/credentials", webAuthnHandler.ListCredentials)
	authed.DELETE("/webauthn/credentials/:id", webAuthnHandler.DeleteCredential)
}

// sessionAuthMiddleware validates the session token and loads the admin into
// context. Sessions bound to missing or inactive admins are destroyed before
// the request is rejected.
func sessionAuthMiddleware(sessions *session.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := handlers.SessionTokenFromRequest(c)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":   "Unauthorized",
				"message": "Please log in to access this resource",
			})
			return
		}

		admin, errValidate := sessions.Validate(c.Request.Context(), token)
		if errValidate != nil {
			handlers.ClearSessionCookie(c)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":   "Unauthorized",
				"message": "Admin account not found or inactive",
			})
			return
		}

		c.Set(adminContextKey, admin)
		c.Next()
	}
}
