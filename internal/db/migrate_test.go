package db

import (
	"testing"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

func TestMigrateSQLiteAdminChallengeColumns(t *testing.T) {
	conn, errOpen := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if errOpen != nil {
		t.Fatalf("open sqlite: %v", errOpen)
	}

	if errMigrate := Migrate(conn); errMigrate != nil {
		t.Fatalf("migrate: %v", errMigrate)
	}

	for _, column := range []string{"email", "active", "current_challenge", "challenge_expires_at", "last_login_at"} {
		if !conn.Migrator().HasColumn("admins", column) {
			t.Fatalf("admins missing column %s", column)
		}
	}
}

func TestMigrateSQLiteCredentialColumns(t *testing.T) {
	conn, errOpen := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if errOpen != nil {
		t.Fatalf("open sqlite: %v", errOpen)
	}

	if errMigrate := Migrate(conn); errMigrate != nil {
		t.Fatalf("migrate: %v", errMigrate)
	}

	for _, column := range []string{"admin_id", "credential_id", "public_key", "counter", "device_name", "transports", "last_used_at"} {
		if !conn.Migrator().HasColumn("web_authn_credentials", column) {
			t.Fatalf("web_authn_credentials missing column %s", column)
		}
	}
}
