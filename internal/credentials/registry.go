// Package credentials manages registered WebAuthn credentials per admin.
package credentials

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/swordfighters/admin-api/internal/models"
	"gorm.io/gorm"
)

// Registry errors.
var (
	// ErrConflict indicates the credential ID is already registered.
	ErrConflict = errors.New("credential already registered")
	// ErrNotFound indicates the credential does not exist for the admin.
	ErrNotFound = errors.New("credential not found")
	// ErrLastCredential indicates deletion would strand the admin without keys.
	ErrLastCredential = errors.New("cannot delete the last credential")
	// ErrCounterRegression indicates a non-increasing signature counter.
	ErrCounterRegression = errors.New("credential counter did not increase")
)

// Registry persists credentials and enforces ownership and counter invariants.
type Registry struct {
	db *gorm.DB
}

// NewRegistry constructs a Registry.
func NewRegistry(db *gorm.DB) *Registry {
	return &Registry{db: db}
}

// List returns the admin's credentials, newest first.
func (r *Registry) List(ctx context.Context, adminID uint64) ([]models.WebAuthnCredential, error) {
	var creds []models.WebAuthnCredential
	if errFind := r.db.WithContext(ctx).
		Where("admin_id = ?", adminID).
		Order("created_at DESC").
		Find(&creds).Error; errFind != nil {
		return nil, errFind
	}
	return creds, nil
}

// Create stores a new credential. Credential IDs are unique across all
// admins; a duplicate yields ErrConflict.
func (r *Registry) Create(ctx context.Context, cred *models.WebAuthnCredential) error {
	if cred == nil || strings.TrimSpace(cred.CredentialID) == "" {
		return ErrNotFound
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if errCount := tx.Model(&models.WebAuthnCredential{}).
			Where("credential_id = ?", cred.CredentialID).
			Count(&count).Error; errCount != nil {
			return errCount
		}
		if count > 0 {
			return ErrConflict
		}
		if errCreate := tx.Create(cred).Error; errCreate != nil {
			if errors.Is(errCreate, gorm.ErrDuplicatedKey) {
				return ErrConflict
			}
			return errCreate
		}
		return nil
	})
}

// FindForAdmin resolves a credential ID within one admin's set. A credential
// ID registered under a different admin is reported as not found.
func (r *Registry) FindForAdmin(ctx context.Context, adminID uint64, credentialID string) (*models.WebAuthnCredential, error) {
	if strings.TrimSpace(credentialID) == "" {
		return nil, ErrNotFound
	}
	var cred models.WebAuthnCredential
	if errFind := r.db.WithContext(ctx).
		Where("admin_id = ? AND credential_id = ?", adminID, credentialID).
		First(&cred).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, errFind
	}
	return &cred, nil
}

// BumpCounter advances the signature counter and last-used timestamp. The
// update is conditional: once the stored counter is nonzero, the new value
// must be strictly greater, otherwise ErrCounterRegression is returned and
// nothing changes. A stored counter of zero accepts any value, including
// zero, for authenticators without counter support.
func (r *Registry) BumpCounter(ctx context.Context, id uint64, newCounter uint32, usedAt time.Time) error {
	res := r.db.WithContext(ctx).Model(&models.WebAuthnCredential{}).
		Where("id = ?", id).
		Where("counter = 0 OR counter < ?", newCounter).
		Updates(map[string]any{
			"counter":      newCounter,
			"last_used_at": usedAt.UTC(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		var count int64
		if errCount := r.db.WithContext(ctx).Model(&models.WebAuthnCredential{}).
			Where("id = ?", id).
			Count(&count).Error; errCount != nil {
			return errCount
		}
		if count == 0 {
			return ErrNotFound
		}
		return ErrCounterRegression
	}
	return nil
}

// Delete removes a credential owned by the admin. Deleting the only
// remaining credential is refused with ErrLastCredential.
func (r *Registry) Delete(ctx context.Context, adminID, id uint64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var cred models.WebAuthnCredential
		if errFind := tx.Where("id = ? AND admin_id = ?", id, adminID).
			First(&cred).Error; errFind != nil {
			if errors.Is(errFind, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return errFind
		}

		var count int64
		if errCount := tx.Model(&models.WebAuthnCredential{}).
			Where("admin_id = ?", adminID).
			Count(&count).Error; errCount != nil {
			return errCount
		}
		if count <= 1 {
			return ErrLastCredential
		}

		return tx.Delete(&models.WebAuthnCredential{}, cred.ID).Error
	})
}

// Valid filters out credentials with empty or malformed credential IDs.
func Valid(creds []models.WebAuthnCredential) []models.WebAuthnCredential {
	out := make([]models.WebAuthnCredential, 0, len(creds))
	for _, cred := range creds {
		if strings.TrimSpace(cred.CredentialID) == "" {
			continue
		}
		out = append(out, cred)
	}
	return out
}
