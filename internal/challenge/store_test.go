package challenge

import (
	"context"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/swordfighters/admin-api/internal/models"
	"gorm.io/gorm"
)

func newTestStore(t *testing.T) (*Store, *gorm.DB) {
	t.Helper()
	conn, errOpen := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if errOpen != nil {
		t.Fatalf("open sqlite: %v", errOpen)
	}
	if errMigrate := conn.AutoMigrate(&models.Admin{}, &models.WebAuthnCredential{}); errMigrate != nil {
		t.Fatalf("migrate: %v", errMigrate)
	}
	return NewStore(conn), conn
}

func createTestAdmin(t *testing.T, conn *gorm.DB, email string) *models.Admin {
	t.Helper()
	admin := &models.Admin{Email: email, Name: "Test Admin", Role: "admin", Active: true}
	if errCreate := conn.Create(admin).Error; errCreate != nil {
		t.Fatalf("create admin: %v", errCreate)
	}
	return admin
}

func TestBeginOverwritesPreviousChallenge(t *testing.T) {
	store, conn := newTestStore(t)
	admin := createTestAdmin(t, conn, "a@x.com")
	ctx := context.Background()

	if errBegin := store.Begin(ctx, admin.ID, "first", time.Minute); errBegin != nil {
		t.Fatalf("begin: %v", errBegin)
	}
	if errBegin := store.Begin(ctx, admin.ID, "second", time.Minute); errBegin != nil {
		t.Fatalf("begin again: %v", errBegin)
	}

	value, _, ok, errRead := store.Read(ctx, admin.ID)
	if errRead != nil {
		t.Fatalf("read: %v", errRead)
	}
	if !ok || value != "second" {
		t.Fatalf("expected second challenge to win, got ok=%v value=%q", ok, value)
	}
}

func TestConsumeClearsBothFieldsAndIsIdempotent(t *testing.T) {
	store, conn := newTestStore(t)
	admin := createTestAdmin(t, conn, "a@x.com")
	ctx := context.Background()

	if errBegin := store.Begin(ctx, admin.ID, "challenge", time.Minute); errBegin != nil {
		t.Fatalf("begin: %v", errBegin)
	}
	if errConsume := store.Consume(ctx, admin.ID); errConsume != nil {
		t.Fatalf("consume: %v", errConsume)
	}
	if errConsume := store.Consume(ctx, admin.ID); errConsume != nil {
		t.Fatalf("consume twice: %v", errConsume)
	}

	var reloaded models.Admin
	if errFind := conn.First(&reloaded, admin.ID).Error; errFind != nil {
		t.Fatalf("reload admin: %v", errFind)
	}
	if reloaded.CurrentChallenge != nil || reloaded.ChallengeExpiresAt != nil {
		t.Fatalf("expected cleared challenge fields, got %v / %v", reloaded.CurrentChallenge, reloaded.ChallengeExpiresAt)
	}
}

func TestSweepExpiredClearsOnlyExpiredChallenges(t *testing.T) {
	store, conn := newTestStore(t)
	expired := createTestAdmin(t, conn, "expired@x.com")
	fresh := createTestAdmin(t, conn, "fresh@x.com")
	bare := createTestAdmin(t, conn, "bare@x.com")
	ctx := context.Background()

	past := time.Now().UTC().Add(-time.Second)
	value := "stale"
	if errUpdate := conn.Model(&models.Admin{}).Where("id = ?", expired.ID).
		Updates(map[string]any{"current_challenge": value, "challenge_expires_at": past}).Error; errUpdate != nil {
		t.Fatalf("seed expired challenge: %v", errUpdate)
	}
	if errBegin := store.Begin(ctx, fresh.ID, "live", 5*time.Minute); errBegin != nil {
		t.Fatalf("begin fresh: %v", errBegin)
	}

	count, errSweep := store.SweepExpired(ctx, time.Now())
	if errSweep != nil {
		t.Fatalf("sweep: %v", errSweep)
	}
	if count != 1 {
		t.Fatalf("expected 1 swept challenge, got %d", count)
	}

	if _, _, ok, _ := store.Read(ctx, expired.ID); ok {
		t.Fatal("expected expired challenge to be cleared")
	}
	if _, _, ok, _ := store.Read(ctx, fresh.ID); !ok {
		t.Fatal("expected fresh challenge to survive sweep")
	}
	if _, _, ok, _ := store.Read(ctx, bare.ID); ok {
		t.Fatal("expected bare admin to stay unchallenged")
	}
}

func TestSweepExpiredReturnsZeroWhenNothingExpired(t *testing.T) {
	store, conn := newTestStore(t)
	createTestAdmin(t, conn, "a@x.com")

	count, errSweep := store.SweepExpired(context.Background(), time.Now())
	if errSweep != nil {
		t.Fatalf("sweep: %v", errSweep)
	}
	if count != 0 {
		t.Fatalf("expected 0 swept challenges, got %d", count)
	}
}

func TestIsValid(t *testing.T) {
	value := "challenge"
	future := time.Now().Add(5 * time.Minute)
	past := time.Now().Add(-time.Second)
	empty := ""

	cases := []struct {
		name  string
		admin *models.Admin
		want  bool
	}{
		{"nil admin", nil, false},
		{"missing challenge", &models.Admin{ChallengeExpiresAt: &future}, false},
		{"missing expiry", &models.Admin{CurrentChallenge: &value}, false},
		{"empty challenge", &models.Admin{CurrentChallenge: &empty, ChallengeExpiresAt: &future}, false},
		{"expired", &models.Admin{CurrentChallenge: &value, ChallengeExpiresAt: &past}, false},
		{"valid", &models.Admin{CurrentChallenge: &value, ChallengeExpiresAt: &future}, true},
	}
	for _, tc := range cases {
		if got := IsValid(tc.admin, time.Now()); got != tc.want {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.want, got)
		}
	}
}
