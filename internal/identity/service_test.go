package identity

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"github.com/plumeworks/plume/backend/internal/gateway"
	"gorm.io/gorm"
)

func openTestService(t *testing.T) (*Service, *gorm.DB) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "identity.db")), &gorm.Config{
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&gateway.Profile{}); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	service, err := NewService(ServiceConfig{
		Database:   db,
		Clock:      func() time.Time { return time.Unix(1700000000, 0).UTC() },
		IDProvider: gateway.NewUUIDProvider(),
	})
	if err != nil {
		t.Fatalf("failed to build service: %v", err)
	}
	return service, db
}

func TestRegisterAndLogin(t *testing.T) {
	service, _ := openTestService(t)
	ctx := context.Background()

	registered, err := service.Register(ctx, "Maya@Example.com", "a long password", "Maya")
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}
	if registered.UserID == "" || !registered.SignedIn() {
		t.Fatalf("expected signed-in session, got %+v", registered)
	}

	// Email lookups are case-insensitive because addresses normalize on write.
	logged, err := service.Login(ctx, "maya@example.com", "a long password")
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if logged.UserID != registered.UserID {
		t.Fatalf("login returned a different user")
	}

	if _, err := service.Login(ctx, "maya@example.com", "wrong password!"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if _, err := service.Login(ctx, "nobody@example.com", "a long password"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for unknown email, got %v", err)
	}
}

func TestRegisterRejectsDuplicateEmail(t *testing.T) {
	service, _ := openTestService(t)
	ctx := context.Background()

	if _, err := service.Register(ctx, "dup@example.com", "a long password", "First"); err != nil {
		t.Fatalf("register failed: %v", err)
	}
	if _, err := service.Register(ctx, "dup@example.com", "another password", "Second"); !errors.Is(err, ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}
}

func TestRefreshPicksUpProfileEdits(t *testing.T) {
	service, db := openTestService(t)
	ctx := context.Background()

	session, err := service.Register(ctx, "edit@example.com", "a long password", "Before")
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}

	// Direct edit, bypassing the service, as another device would.
	if err := db.Model(&gateway.Profile{}).
		Where("user_id = ?", session.UserID).
		Update("display_name", "After").Error; err != nil {
		t.Fatalf("profile edit failed: %v", err)
	}

	cached, err := service.SessionFor(ctx, session.UserID)
	if err != nil {
		t.Fatalf("session lookup failed: %v", err)
	}
	if cached.DisplayName != "Before" {
		t.Fatalf("cached snapshot should be stale until refreshed, got %q", cached.DisplayName)
	}

	refreshed, err := service.Refresh(ctx, session.UserID)
	if err != nil {
		t.Fatalf("refresh failed: %v", err)
	}
	if refreshed.DisplayName != "After" {
		t.Fatalf("expected refreshed snapshot, got %q", refreshed.DisplayName)
	}
}

func TestSessionForUnknownUser(t *testing.T) {
	service, _ := openTestService(t)
	if _, err := service.SessionFor(context.Background(), "ghost"); !errors.Is(err, ErrUnknownUser) {
		t.Fatalf("expected ErrUnknownUser, got %v", err)
	}
}

func TestUpdateProfileReturnsFreshSnapshot(t *testing.T) {
	service, _ := openTestService(t)
	ctx := context.Background()

	session, err := service.Register(ctx, "update@example.com", "a long password", "Old Name")
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}

	updated, err := service.UpdateProfile(ctx, session.UserID, "New Name", "https://cdn.plume.app/a.png", "hello")
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if updated.DisplayName != "New Name" || updated.AvatarURL != "https://cdn.plume.app/a.png" {
		t.Fatalf("unexpected snapshot after update: %+v", updated)
	}
}

func TestNilSessionIsSignedOut(t *testing.T) {
	var session *Session
	if session.SignedIn() {
		t.Fatalf("nil session must read as signed out")
	}
}
