package credentials

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/swordfighters/admin-api/internal/models"
	"gorm.io/gorm"
)

func newTestRegistry(t *testing.T) (*Registry, *gorm.DB) {
	t.Helper()
	conn, errOpen := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if errOpen != nil {
		t.Fatalf("open sqlite: %v", errOpen)
	}
	if errMigrate := conn.AutoMigrate(&models.Admin{}, &models.WebAuthnCredential{}); errMigrate != nil {
		t.Fatalf("migrate: %v", errMigrate)
	}
	return NewRegistry(conn), conn
}

func createAdmin(t *testing.T, conn *gorm.DB, email string) *models.Admin {
	t.Helper()
	admin := &models.Admin{Email: email, Name: "Test Admin", Role: "admin", Active: true}
	if errCreate := conn.Create(admin).Error; errCreate != nil {
		t.Fatalf("create admin: %v", errCreate)
	}
	return admin
}

func createCredential(t *testing.T, registry *Registry, adminID uint64, credentialID string) *models.WebAuthnCredential {
	t.Helper()
	cred := &models.WebAuthnCredential{
		AdminID:      adminID,
		CredentialID: credentialID,
		PublicKey:    []byte("public-key"),
		DeviceName:   "Security Key",
		Transports:   []byte(`["usb"]`),
	}
	if errCreate := registry.Create(context.Background(), cred); errCreate != nil {
		t.Fatalf("create credential %s: %v", credentialID, errCreate)
	}
	return cred
}

func TestCreateRejectsDuplicateCredentialIDAcrossAdmins(t *testing.T) {
	registry, conn := newTestRegistry(t)
	adminA := createAdmin(t, conn, "a@x.com")
	adminB := createAdmin(t, conn, "b@x.com")

	createCredential(t, registry, adminA.ID, "cred-1")

	dup := &models.WebAuthnCredential{
		AdminID:      adminB.ID,
		CredentialID: "cred-1",
		PublicKey:    []byte("other-key"),
		Transports:   []byte(`[]`),
	}
	if errCreate := registry.Create(context.Background(), dup); !errors.Is(errCreate, ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", errCreate)
	}
}

func TestFindForAdminScopesToOwner(t *testing.T) {
	registry, conn := newTestRegistry(t)
	adminA := createAdmin(t, conn, "a@x.com")
	adminB := createAdmin(t, conn, "b@x.com")
	createCredential(t, registry, adminA.ID, "cred-1")

	if _, errFind := registry.FindForAdmin(context.Background(), adminA.ID, "cred-1"); errFind != nil {
		t.Fatalf("expected owner lookup to succeed, got %v", errFind)
	}
	if _, errFind := registry.FindForAdmin(context.Background(), adminB.ID, "cred-1"); !errors.Is(errFind, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for cross-admin lookup, got %v", errFind)
	}
}

func TestBumpCounterAcceptsIncrease(t *testing.T) {
	registry, conn := newTestRegistry(t)
	admin := createAdmin(t, conn, "a@x.com")
	cred := createCredential(t, registry, admin.ID, "cred-1")

	usedAt := time.Now()
	if errBump := registry.BumpCounter(context.Background(), cred.ID, 5, usedAt); errBump != nil {
		t.Fatalf("bump: %v", errBump)
	}

	var reloaded models.WebAuthnCredential
	if errFind := conn.First(&reloaded, cred.ID).Error; errFind != nil {
		t.Fatalf("reload: %v", errFind)
	}
	if reloaded.Counter != 5 {
		t.Fatalf("expected counter 5, got %d", reloaded.Counter)
	}
	if reloaded.LastUsedAt == nil {
		t.Fatal("expected last_used_at to be set")
	}
}

func TestBumpCounterRejectsRegressionWhenStoredNonzero(t *testing.T) {
	registry, conn := newTestRegistry(t)
	admin := createAdmin(t, conn, "a@x.com")
	cred := createCredential(t, registry, admin.ID, "cred-1")

	if errBump := registry.BumpCounter(context.Background(), cred.ID, 5, time.Now()); errBump != nil {
		t.Fatalf("bump to 5: %v", errBump)
	}
	for _, regressed := range []uint32{5, 4, 0} {
		if errBump := registry.BumpCounter(context.Background(), cred.ID, regressed, time.Now()); !errors.Is(errBump, ErrCounterRegression) {
			t.Fatalf("expected ErrCounterRegression for %d, got %v", regressed, errBump)
		}
	}

	var reloaded models.WebAuthnCredential
	if errFind := conn.First(&reloaded, cred.ID).Error; errFind != nil {
		t.Fatalf("reload: %v", errFind)
	}
	if reloaded.Counter != 5 {
		t.Fatalf("counter changed on rejected bump: %d", reloaded.Counter)
	}
}

func TestBumpCounterAllowsZeroToZero(t *testing.T) {
	registry, conn := newTestRegistry(t)
	admin := createAdmin(t, conn, "a@x.com")
	cred := createCredential(t, registry, admin.ID, "cred-1")

	// Authenticators without counter support report zero forever.
	if errBump := registry.BumpCounter(context.Background(), cred.ID, 0, time.Now()); errBump != nil {
		t.Fatalf("expected 0 -> 0 bump to succeed, got %v", errBump)
	}
}

func TestBumpCounterUnknownCredential(t *testing.T) {
	registry, _ := newTestRegistry(t)
	if errBump := registry.BumpCounter(context.Background(), 999, 1, time.Now()); !errors.Is(errBump, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", errBump)
	}
}

func TestDeleteRefusesLastCredential(t *testing.T) {
	registry, conn := newTestRegistry(t)
	admin := createAdmin(t, conn, "a@x.com")
	cred := createCredential(t, registry, admin.ID, "cred-1")

	if errDelete := registry.Delete(context.Background(), admin.ID, cred.ID); !errors.Is(errDelete, ErrLastCredential) {
		t.Fatalf("expected ErrLastCredential, got %v", errDelete)
	}
}

func TestDeleteRemovesOneWhenSeveralExist(t *testing.T) {
	registry, conn := newTestRegistry(t)
	admin := createAdmin(t, conn, "a@x.com")
	first := createCredential(t, registry, admin.ID, "cred-1")
	createCredential(t, registry, admin.ID, "cred-2")

	if errDelete := registry.Delete(context.Background(), admin.ID, first.ID); errDelete != nil {
		t.Fatalf("delete: %v", errDelete)
	}

	remaining, errList := registry.List(context.Background(), admin.ID)
	if errList != nil {
		t.Fatalf("list: %v", errList)
	}
	if len(remaining) != 1 || remaining[0].CredentialID != "cred-2" {
		t.Fatalf("unexpected remaining credentials: %+v", remaining)
	}
}

func TestDeleteRejectsForeignCredential(t *testing.T) {
	registry, conn := newTestRegistry(t)
	adminA := createAdmin(t, conn, "a@x.com")
	adminB := createAdmin(t, conn, "b@x.com")
	cred := createCredential(t, registry, adminA.ID, "cred-1")
	createCredential(t, registry, adminA.ID, "cred-2")

	if errDelete := registry.Delete(context.Background(), adminB.ID, cred.ID); !errors.Is(errDelete, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for foreign delete, got %v", errDelete)
	}
}

func TestValidFiltersEmptyCredentialIDs(t *testing.T) {
	creds := []models.WebAuthnCredential{
		{CredentialID: "cred-1"},
		{CredentialID: ""},
		{CredentialID: "   "},
		{CredentialID: "cred-2"},
	}
	filtered := Valid(creds)
	if len(filtered) != 2 {
		t.Fatalf("expected 2 valid credentials, got %d", len(filtered))
	}
}
