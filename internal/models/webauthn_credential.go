package models

import (
	"time"

	"gorm.io/datatypes"
)

// WebAuthnCredential stores a registered FIDO2 public-key credential.
//
// Credential IDs are unique across all admins, not just per admin; the
// protocol treats a credential ID that re-registers under a second account
// as a conflict.
type WebAuthnCredential struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	AdminID uint64 `gorm:"not null;index"`          // Owning admin ID.
	Admin   *Admin `gorm:"foreignKey:AdminID"`      // Owning admin.

	CredentialID string `gorm:"type:text;not null;uniqueIndex"` // Base64url credential ID from the authenticator.
	PublicKey    []byte `gorm:"type:bytea;not null"`            // COSE public key bytes.

	Counter uint32 `gorm:"not null;default:0"` // Monotonic signature counter for clone detection.

	DeviceName string         `gorm:"type:text;not null;default:'Security Key'"` // User-facing key label.
	Transports datatypes.JSON `gorm:"type:jsonb;not null;default:'[]'"`          // Transport hints in JSON.

	LastUsedAt *time.Time // Last successful assertion with this credential.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Registration timestamp.
}
