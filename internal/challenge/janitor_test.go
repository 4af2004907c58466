package challenge

import (
	"context"
	"testing"
	"time"

	"github.com/swordfighters/admin-api/internal/models"
)

func TestSweepOnceClearsExpiredChallenge(t *testing.T) {
	store, conn := newTestStore(t)
	admin := createTestAdmin(t, conn, "a@x.com")

	past := time.Now().UTC().Add(-time.Minute)
	value := "stale"
	if errUpdate := conn.Model(&models.Admin{}).Where("id = ?", admin.ID).
		Updates(map[string]any{"current_challenge": value, "challenge_expires_at": past}).Error; errUpdate != nil {
		t.Fatalf("seed expired challenge: %v", errUpdate)
	}

	janitor := NewJanitor(store)
	janitor.SweepOnce(context.Background())

	if _, _, ok, _ := store.Read(context.Background(), admin.ID); ok {
		t.Fatal("expected expired challenge to be cleared")
	}
}

func TestNewJanitorNilStore(t *testing.T) {
	if janitor := NewJanitor(nil); janitor != nil {
		t.Fatal("expected nil janitor for nil store")
	}
}
