package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/swordfighters/admin-api/internal/passkey"
	"github.com/swordfighters/admin-api/internal/session"
)

// WebAuthnHandler handles passkey registration, authentication, and
// credential management endpoints.
type WebAuthnHandler struct {
	svc      *passkey.Service
	sessions *session.Manager
}

// NewWebAuthnHandler constructs a WebAuthnHandler.
func NewWebAuthnHandler(svc *passkey.Service, sessions *session.Manager) *WebAuthnHandler {
	return &WebAuthnHandler{svc: svc, sessions: sessions}
}

// ceremonyRequest is the body for the begin endpoints.
type ceremonyRequest struct {
	Email string `json:"email"`
}

// verifyRequest is the body for the verify endpoints. Credential is the raw
// authenticator response, passed through untouched.
type verifyRequest struct {
	Email      string          `json:"email"`
	Credential json.RawMessage `json:"credential"`
	DeviceName string          `json:"deviceName"`
}

// credentialView is the public shape of a registered credential.
type credentialView struct {
	ID         uint64          `json:"id"`
	DeviceName string          `json:"deviceName"`
	Transports json.RawMessage `json:"transports"`
	LastUsedAt *time.Time      `json:"lastUsedAt"`
	CreatedAt  time.Time       `json:"createdAt"`
}

// RegisterOptions generates registration options, creating the admin account
// on first sight of the email.
func (h *WebAuthnHandler) RegisterOptions(c *gin.Context) {
	var body ceremonyRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Email is required"})
		return
	}

	result, errBegin := h.svc.BeginRegistration(c.Request.Context(), body.Email)
	if errBegin != nil {
		if errors.Is(errBegin, passkey.ErrValidation) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Email is required"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate registration options"})
		return
	}
	c.Data(http.StatusOK, "application/json; charset=utf-8", result.Options)
}

// RegisterVerify verifies an attestation response and stores the credential.
func (h *WebAuthnHandler) RegisterVerify(c *gin.Context) {
	var body verifyRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil || body.Email == "" || len(body.Credential) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Email and credential are required"})
		return
	}

	errFinish := h.svc.FinishRegistration(c.Request.Context(), body.Email, body.Credential, body.DeviceName)
	switch {
	case errFinish == nil:
		c.JSON(http.StatusOK, gin.H{"verified": true, "message": "Security key registered successfully"})
	case errors.Is(errFinish, passkey.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Email and credential are required"})
	case errors.Is(errFinish, passkey.ErrSession):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid registration session"})
	case errors.Is(errFinish, passkey.ErrConflict):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Credential is already registered"})
	case errors.Is(errFinish, passkey.ErrVerification):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Verification failed"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to register security key"})
	}
}

// AuthenticateOptions generates authentication options for an existing admin.
func (h *WebAuthnHandler) AuthenticateOptions(c *gin.Context) {
	var body ceremonyRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Email is required"})
		return
	}

	result, errBegin := h.svc.BeginLogin(c.Request.Context(), body.Email)
	switch {
	case errBegin == nil:
		c.Data(http.StatusOK, "application/json; charset=utf-8", result.Options)
	case errors.Is(errBegin, passkey.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Email is required"})
	case errors.Is(errBegin, passkey.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Admin not found"})
	case errors.Is(errBegin, passkey.ErrInactiveAccount):
		c.JSON(http.StatusForbidden, gin.H{"error": "Account is inactive"})
	case errors.Is(errBegin, passkey.ErrNoCredentials):
		c.JSON(http.StatusBadRequest, gin.H{"error": "No security keys registered. Please register a key first."})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate authentication options"})
	}
}

// AuthenticateVerify verifies an assertion response and establishes a session.
func (h *WebAuthnHandler) AuthenticateVerify(c *gin.Context) {
	var body verifyRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil || body.Email == "" || len(body.Credential) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Email and credential are required"})
		return
	}

	result, errFinish := h.svc.FinishLogin(c.Request.Context(), body.Email, body.Credential)
	switch {
	case errFinish == nil:
		SetSessionCookie(c, result.SessionToken, int(h.sessions.Expiry().Seconds()))
		c.JSON(http.StatusOK, gin.H{"verified": true, "admin": result.Profile})
	case errors.Is(errFinish, passkey.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Email and credential are required"})
	case errors.Is(errFinish, passkey.ErrSession):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid authentication session"})
	case errors.Is(errFinish, passkey.ErrCredentialNotFound):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Credential not found"})
	case errors.Is(errFinish, passkey.ErrVerification):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication failed"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to verify authentication"})
	}
}

// ListCredentials returns the authenticated admin's registered credentials.
func (h *WebAuthnHandler) ListCredentials(c *gin.Context) {
	admin, ok := adminFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
		return
	}

	creds, errList := h.svc.ListCredentials(c.Request.Context(), admin.ID)
	if errList != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list credentials"})
		return
	}

	views := make([]credentialView, 0, len(creds))
	for _, cred := range creds {
		transports := json.RawMessage(cred.Transports)
		if len(transports) == 0 {
			transports = json.RawMessage("[]")
		}
		views = append(views, credentialView{
			ID:         cred.ID,
			DeviceName: cred.DeviceName,
			Transports: transports,
			LastUsedAt: cred.LastUsedAt,
			CreatedAt:  cred.CreatedAt,
		})
	}
	c.JSON(http.StatusOK, gin.H{"credentials": views})
}

// DeleteCredential removes one of the authenticated admin's credentials,
// refusing to remove the last one.
func (h *WebAuthnHandler) DeleteCredential(c *gin.Context) {
	admin, ok := adminFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
		return
	}
	id, errParse := strconv.ParseUint(c.Param("id"), 10, 64)
	if errParse != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Credential not found"})
		return
	}

	errDelete := h.svc.DeleteCredential(c.Request.Context(), admin.ID, id)
	switch {
	case errDelete == nil:
		c.JSON(http.StatusOK, gin.H{"success": true})
	case errors.Is(errDelete, passkey.ErrLastCredential):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Cannot delete your last security key"})
	case errors.Is(errDelete, passkey.ErrCredentialNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Credential not found"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete credential"})
	}
}
