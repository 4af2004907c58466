package db

import (
	"fmt"

	"github.com/swordfighters/admin-api/internal/models"
	"gorm.io/gorm"
)

// Migrate applies schema migrations for all models.
func Migrate(conn *gorm.DB) error {
	if conn == nil {
		return fmt.Errorf("db: nil connection")
	}
	return conn.AutoMigrate(
		&models.Admin{},
		&models.WebAuthnCredential{},
		&models.Setting{},
	)
}
