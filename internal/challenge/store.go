// Package challenge persists one-time WebAuthn challenges on admin rows.
//
// A challenge is valid only while both fields are set and the expiry is in
// the future; every verify step checks this independently of the janitor.
package challenge

import (
	"context"
	"time"

	"github.com/swordfighters/admin-api/internal/models"
	"gorm.io/gorm"
)

// DefaultTTL bounds the replay window for an in-flight ceremony.
const DefaultTTL = 5 * time.Minute

// Store reads and writes per-admin challenge state.
type Store struct {
	db *gorm.DB
}

// NewStore constructs a Store.
func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// Begin overwrites any existing challenge for the admin with a fresh value
// and expiry. Replacement is idempotent; only the most recent challenge
// validates.
func (s *Store) Begin(ctx context.Context, adminID uint64, value string, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	expires := time.Now().UTC().Add(ttl)
	return s.db.WithContext(ctx).Model(&models.Admin{}).
		Where("id = ?", adminID).
		Updates(map[string]any{
			"current_challenge":    value,
			"challenge_expires_at": expires,
			"updated_at":           time.Now().UTC(),
		}).Error
}

// Read returns the pending challenge and its expiry, if any.
func (s *Store) Read(ctx context.Context, adminID uint64) (string, time.Time, bool, error) {
	var admin models.Admin
	if errFind := s.db.WithContext(ctx).
		Select("id", "current_challenge", "challenge_expires_at").
		First(&admin, adminID).Error; errFind != nil {
		return "", time.Time{}, false, errFind
	}
	if admin.CurrentChallenge == nil || admin.ChallengeExpiresAt == nil {
		return "", time.Time{}, false, nil
	}
	return *admin.CurrentChallenge, *admin.ChallengeExpiresAt, true, nil
}

// Consume clears the challenge after a successful ceremony. Clearing an
// already-cleared challenge is a no-op.
func (s *Store) Consume(ctx context.Context, adminID uint64) error {
	return s.db.WithContext(ctx).Model(&models.Admin{}).
		Where("id = ?", adminID).
		Updates(map[string]any{
			"current_challenge":    nil,
			"challenge_expires_at": nil,
			"updated_at":           time.Now().UTC(),
		}).Error
}

// SweepExpired clears every challenge whose expiry has passed and returns the
// number of admins affected. The expiry condition is evaluated inside the
// UPDATE, so a ceremony that renews its challenge concurrently is not
// clobbered.
func (s *Store) SweepExpired(ctx context.Context, now time.Time) (int64, error) {
	res := s.db.WithContext(ctx).Model(&models.Admin{}).
		Where("current_challenge IS NOT NULL").
		Where("challenge_expires_at <= ?", now.UTC()).
		Updates(map[string]any{
			"current_challenge":    nil,
			"challenge_expires_at": nil,
			"updated_at":           time.Now().UTC(),
		})
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

// IsValid reports whether the admin has a usable pending challenge.
func IsValid(admin *models.Admin, now time.Time) bool {
	if admin == nil || admin.CurrentChallenge == nil || admin.ChallengeExpiresAt == nil {
		return false
	}
	if *admin.CurrentChallenge == "" {
		return false
	}
	return admin.ChallengeExpiresAt.After(now)
}
