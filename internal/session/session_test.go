package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/swordfighters/admin-api/internal/config"
	"github.com/swordfighters/admin-api/internal/models"
	"gorm.io/gorm"
)

func newTestManager(t *testing.T) (*Manager, *gorm.DB) {
	t.Helper()
	conn, errOpen := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if errOpen != nil {
		t.Fatalf("open sqlite: %v", errOpen)
	}
	if errMigrate := conn.AutoMigrate(&models.Admin{}, &models.WebAuthnCredential{}); errMigrate != nil {
		t.Fatalf("migrate: %v", errMigrate)
	}
	manager := NewManager(conn, NewMemoryStore(), config.SessionConfig{Secret: "test-secret", Expiry: time.Hour})
	return manager, conn
}

func createActiveAdmin(t *testing.T, conn *gorm.DB, email string) *models.Admin {
	t.Helper()
	admin := &models.Admin{Email: email, Name: "Test Admin", Role: "admin", Active: true}
	if errCreate := conn.Create(admin).Error; errCreate != nil {
		t.Fatalf("create admin: %v", errCreate)
	}
	return admin
}

func TestEstablishAndValidate(t *testing.T) {
	manager, conn := newTestManager(t)
	admin := createActiveAdmin(t, conn, "a@x.com")
	ctx := context.Background()

	token, errEstablish := manager.Establish(ctx, admin.ID)
	if errEstablish != nil {
		t.Fatalf("establish: %v", errEstablish)
	}

	validated, errValidate := manager.Validate(ctx, token)
	if errValidate != nil {
		t.Fatalf("validate: %v", errValidate)
	}
	if validated.ID != admin.ID || validated.Email != admin.Email {
		t.Fatalf("validated wrong admin: %+v", validated)
	}
}

func TestValidateRejectsGarbageToken(t *testing.T) {
	manager, _ := newTestManager(t)
	if _, errValidate := manager.Validate(context.Background(), "not-a-token"); !errors.Is(errValidate, ErrInvalidSession) {
		t.Fatalf("expected ErrInvalidSession, got %v", errValidate)
	}
}

func TestValidateDestroysSessionForInactiveAdmin(t *testing.T) {
	manager, conn := newTestManager(t)
	admin := createActiveAdmin(t, conn, "a@x.com")
	ctx := context.Background()

	token, errEstablish := manager.Establish(ctx, admin.ID)
	if errEstablish != nil {
		t.Fatalf("establish: %v", errEstablish)
	}

	if errUpdate := conn.Model(&models.Admin{}).Where("id = ?", admin.ID).
		Update("active", false).Error; errUpdate != nil {
		t.Fatalf("deactivate admin: %v", errUpdate)
	}

	if _, errValidate := manager.Validate(ctx, token); !errors.Is(errValidate, ErrInvalidSession) {
		t.Fatalf("expected ErrInvalidSession for inactive admin, got %v", errValidate)
	}

	// Session state is destroyed, so reactivating the admin does not revive it.
	if errUpdate := conn.Model(&models.Admin{}).Where("id = ?", admin.ID).
		Update("active", true).Error; errUpdate != nil {
		t.Fatalf("reactivate admin: %v", errUpdate)
	}
	if _, errValidate := manager.Validate(ctx, token); !errors.Is(errValidate, ErrInvalidSession) {
		t.Fatalf("expected session to stay destroyed, got %v", errValidate)
	}
}

func TestValidateDestroysSessionForMissingAdmin(t *testing.T) {
	manager, conn := newTestManager(t)
	admin := createActiveAdmin(t, conn, "a@x.com")
	ctx := context.Background()

	token, errEstablish := manager.Establish(ctx, admin.ID)
	if errEstablish != nil {
		t.Fatalf("establish: %v", errEstablish)
	}
	if errDelete := conn.Delete(&models.Admin{}, admin.ID).Error; errDelete != nil {
		t.Fatalf("delete admin: %v", errDelete)
	}

	if _, errValidate := manager.Validate(ctx, token); !errors.Is(errValidate, ErrInvalidSession) {
		t.Fatalf("expected ErrInvalidSession for missing admin, got %v", errValidate)
	}
}

func TestDestroyIsIdempotent(t *testing.T) {
	manager, conn := newTestManager(t)
	admin := createActiveAdmin(t, conn, "a@x.com")
	ctx := context.Background()

	token, errEstablish := manager.Establish(ctx, admin.ID)
	if errEstablish != nil {
		t.Fatalf("establish: %v", errEstablish)
	}

	if errDestroy := manager.Destroy(ctx, token); errDestroy != nil {
		t.Fatalf("destroy: %v", errDestroy)
	}
	if errDestroy := manager.Destroy(ctx, token); errDestroy != nil {
		t.Fatalf("destroy twice: %v", errDestroy)
	}
	if errDestroy := manager.Destroy(ctx, "garbage"); errDestroy != nil {
		t.Fatalf("destroy garbage: %v", errDestroy)
	}

	if _, errValidate := manager.Validate(ctx, token); !errors.Is(errValidate, ErrInvalidSession) {
		t.Fatalf("expected destroyed session to be invalid, got %v", errValidate)
	}
}

func TestMemoryStoreExpiry(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	if errSet := store.Set(ctx, "sid", 1, -time.Second); errSet != nil {
		t.Fatalf("set: %v", errSet)
	}
	if _, ok, _ := store.Get(ctx, "sid"); ok {
		t.Fatal("expected expired entry to be gone")
	}
}
