package models

import "time"

// Admin represents an administrator account stored in the database.
type Admin struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	Email string `gorm:"type:text;not null;uniqueIndex"`     // Unique lowercase login email.
	Name  string `gorm:"type:text;not null"`                 // Display name.
	Role  string `gorm:"type:text;not null;default:'admin'"` // Role label returned in the profile.

	Active bool `gorm:"not null;default:true"` // Whether the admin can sign in.

	// At most one WebAuthn ceremony is in flight per admin. Both fields are
	// set when a ceremony begins and cleared when it completes or expires.
	CurrentChallenge   *string    `gorm:"type:text"` // Pending WebAuthn challenge.
	ChallengeExpiresAt *time.Time // Absolute expiry of the pending challenge.

	LastLoginAt *time.Time // Last successful authentication.

	Credentials []WebAuthnCredential `gorm:"foreignKey:AdminID"` // Registered security keys.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}
