// Package session manages server-side admin sessions.
//
// A session reference handed to clients is a signed token whose jti keys the
// server-side record; the record is authoritative, so logout and self-healing
// invalidation work regardless of token lifetime.
package session

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/swordfighters/admin-api/internal/config"
	"github.com/swordfighters/admin-api/internal/models"
	"github.com/swordfighters/admin-api/internal/security"
	"gorm.io/gorm"
)

// ErrInvalidSession indicates the reference is missing, expired, or bound to
// a missing or inactive admin.
var ErrInvalidSession = errors.New("invalid session")

// Store persists session records keyed by session ID.
type Store interface {
	Set(ctx context.Context, sessionID string, adminID uint64, ttl time.Duration) error
	Get(ctx context.Context, sessionID string) (uint64, bool, error)
	Delete(ctx context.Context, sessionID string) error
}

// Manager establishes, validates, and destroys admin sessions.
type Manager struct {
	db     *gorm.DB
	store  Store
	secret string
	expiry time.Duration
}

// NewManager constructs a Manager.
func NewManager(db *gorm.DB, store Store, cfg config.SessionConfig) *Manager {
	expiry := cfg.Expiry
	if expiry <= 0 {
		expiry = config.DefaultSessionExpiry
	}
	return &Manager{db: db, store: store, secret: cfg.Secret, expiry: expiry}
}

// Expiry reports the configured session lifetime.
func (m *Manager) Expiry() time.Duration {
	return m.expiry
}

// Establish creates a session bound to the admin and returns its reference token.
func (m *Manager) Establish(ctx context.Context, adminID uint64) (string, error) {
	sessionID, errID := newSessionID()
	if errID != nil {
		return "", fmt.Errorf("session: generate id: %w", errID)
	}
	if errSet := m.store.Set(ctx, sessionID, adminID, m.expiry); errSet != nil {
		return "", fmt.Errorf("session: store: %w", errSet)
	}
	token, errToken := security.GenerateSessionToken(m.secret, sessionID, adminID, m.expiry)
	if errToken != nil {
		_ = m.store.Delete(ctx, sessionID)
		return "", fmt.Errorf("session: sign token: %w", errToken)
	}
	return token, nil
}

// Validate resolves a session reference to its admin. When the bound admin is
// missing or inactive the session is destroyed as a side effect and
// ErrInvalidSession is returned.
func (m *Manager) Validate(ctx context.Context, token string) (*models.Admin, error) {
	claims, errParse := security.ParseSessionToken(m.secret, token)
	if errParse != nil {
		return nil, ErrInvalidSession
	}

	adminID, ok, errGet := m.store.Get(ctx, claims.ID)
	if errGet != nil {
		return nil, fmt.Errorf("session: store: %w", errGet)
	}
	if !ok || adminID != claims.AdminID {
		return nil, ErrInvalidSession
	}

	var admin models.Admin
	if errFind := m.db.WithContext(ctx).First(&admin, adminID).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			_ = m.store.Delete(ctx, claims.ID)
			return nil, ErrInvalidSession
		}
		return nil, errFind
	}
	if !admin.Active {
		_ = m.store.Delete(ctx, claims.ID)
		return nil, ErrInvalidSession
	}
	return &admin, nil
}

// Destroy clears the server-side record for a session reference. Destroying
// an unknown or malformed reference is a no-op.
func (m *Manager) Destroy(ctx context.Context, token string) error {
	claims, errParse := security.ParseSessionToken(m.secret, token)
	if errParse != nil {
		return nil
	}
	return m.store.Delete(ctx, claims.ID)
}

// newSessionID returns a random 128-bit hex session ID.
func newSessionID() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
