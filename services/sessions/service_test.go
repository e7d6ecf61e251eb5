package sessions

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"bannerforge/models"
)

func testAccount() models.Account {
	return models.Account{ID: "acct-1", Username: "admin", IsMaster: true}
}

// setupTestService creates a sessions service backed by a temp directory.
func setupTestService(t *testing.T) *Service {
	t.Helper()
	svc, err := NewService(t.TempDir(), DefaultDuration)
	if err != nil {
		t.Fatalf("failed to create service: %v", err)
	}
	return svc
}

func TestNewService_DefaultDuration(t *testing.T) {
	svc, err := NewService(t.TempDir(), 0)
	if err != nil {
		t.Fatalf("NewService failed: %v", err)
	}
	if svc.duration != DefaultDuration {
		t.Errorf("expected default duration %v, got %v", DefaultDuration, svc.duration)
	}
}

func TestNewService_InMemoryOnly(t *testing.T) {
	svc, err := NewService("", DefaultDuration)
	if err != nil {
		t.Fatalf("NewService with empty dir failed: %v", err)
	}
	if svc.path != "" {
		t.Error("expected empty path for in-memory service")
	}
}

func TestCreate_GeneratesUniqueTokens(t *testing.T) {
	svc := setupTestService(t)

	first, err := svc.Create(testAccount(), "Mozilla/5.0", "192.168.1.1")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	second, err := svc.Create(testAccount(), "Mozilla/5.0", "192.168.1.1")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if first.Token == "" || second.Token == "" {
		t.Fatal("expected non-empty tokens")
	}
	if first.Token == second.Token {
		t.Error("expected distinct tokens for separate sessions")
	}
	if !first.IsMaster {
		t.Error("expected session to carry the account's master flag")
	}
	if first.AccountID != "acct-1" {
		t.Errorf("expected account ID acct-1, got %q", first.AccountID)
	}
}

func TestCreateRemembered_LongerLifetime(t *testing.T) {
	svc := setupTestService(t)

	short, err := svc.Create(testAccount(), "", "")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	long, err := svc.CreateRemembered(testAccount(), "", "")
	if err != nil {
		t.Fatalf("CreateRemembered failed: %v", err)
	}

	if !long.ExpiresAt.After(short.ExpiresAt) {
		t.Errorf("remembered session should outlive a normal one: %v vs %v",
			long.ExpiresAt, short.ExpiresAt)
	}
}

func TestValidate_RoundTrip(t *testing.T) {
	svc := setupTestService(t)

	created, err := svc.Create(testAccount(), "ua", "10.0.0.2")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	got, err := svc.Validate(created.Token)
	if err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	if got.AccountID != created.AccountID || got.Token != created.Token {
		t.Errorf("validated session mismatch: got %+v want %+v", got, created)
	}
}

func TestValidate_Errors(t *testing.T) {
	svc := setupTestService(t)

	if _, err := svc.Validate(""); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("empty token: expected ErrInvalidToken, got %v", err)
	}
	if _, err := svc.Validate("nope"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("unknown token: expected ErrSessionNotFound, got %v", err)
	}
}

func TestValidate_ExpiredSessionIsDropped(t *testing.T) {
	svc, err := NewService(t.TempDir(), time.Millisecond)
	if err != nil {
		t.Fatalf("NewService failed: %v", err)
	}

	session, err := svc.Create(testAccount(), "", "")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	time.Sleep(5 * time.Millisecond)

	if _, err := svc.Validate(session.Token); !errors.Is(err, ErrSessionExpired) {
		t.Fatalf("expected ErrSessionExpired, got %v", err)
	}
	// Second lookup should report not-found since the entry was dropped.
	if _, err := svc.Validate(session.Token); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("expected ErrSessionNotFound after drop, got %v", err)
	}
}

func TestRefresh_ExtendsExpiry(t *testing.T) {
	svc, err := NewService(t.TempDir(), time.Hour)
	if err != nil {
		t.Fatalf("NewService failed: %v", err)
	}

	session, err := svc.Create(testAccount(), "", "")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	time.Sleep(2 * time.Millisecond)

	refreshed, err := svc.Refresh(session.Token)
	if err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}
	if !refreshed.ExpiresAt.After(session.ExpiresAt) {
		t.Errorf("expected expiry to move forward: %v -> %v",
			session.ExpiresAt, refreshed.ExpiresAt)
	}
}

func TestRevoke(t *testing.T) {
	svc := setupTestService(t)

	session, err := svc.Create(testAccount(), "", "")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if err := svc.Revoke(session.Token); err != nil {
		t.Fatalf("Revoke failed: %v", err)
	}
	if _, err := svc.Validate(session.Token); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("expected revoked session to be gone, got %v", err)
	}
	if err := svc.Revoke(session.Token); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("double revoke: expected ErrSessionNotFound, got %v", err)
	}
}

func TestRevokeAllForAccount(t *testing.T) {
	svc := setupTestService(t)

	for i := 0; i < 3; i++ {
		if _, err := svc.Create(testAccount(), "", ""); err != nil {
			t.Fatalf("Create failed: %v", err)
		}
	}
	other := models.Account{ID: "acct-2", Username: "viewer"}
	keep, err := svc.Create(other, "", "")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if count := svc.RevokeAllForAccount("acct-1"); count != 3 {
		t.Errorf("expected 3 revoked sessions, got %d", count)
	}
	if _, err := svc.Validate(keep.Token); err != nil {
		t.Errorf("other account's session should survive: %v", err)
	}
	if svc.Count() != 1 {
		t.Errorf("expected 1 remaining session, got %d", svc.Count())
	}
}

func TestPersistence_SurvivesRestart(t *testing.T) {
	dir := t.TempDir()

	svc1, err := NewService(dir, DefaultDuration)
	if err != nil {
		t.Fatalf("NewService failed: %v", err)
	}
	session, err := svc1.Create(testAccount(), "ua", "ip")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	svc2, err := NewService(dir, DefaultDuration)
	if err != nil {
		t.Fatalf("NewService reload failed: %v", err)
	}
	got, err := svc2.Validate(session.Token)
	if err != nil {
		t.Fatalf("Validate after reload failed: %v", err)
	}
	if got.AccountID != "acct-1" {
		t.Errorf("expected account acct-1 after reload, got %q", got.AccountID)
	}
}

func TestLoad_SkipsExpiredSessions(t *testing.T) {
	dir := t.TempDir()

	svc1, err := NewService(dir, time.Millisecond)
	if err != nil {
		t.Fatalf("NewService failed: %v", err)
	}
	if _, err := svc1.Create(testAccount(), "", ""); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	time.Sleep(5 * time.Millisecond)

	svc2, err := NewService(dir, time.Millisecond)
	if err != nil {
		t.Fatalf("NewService reload failed: %v", err)
	}
	if svc2.Count() != 0 {
		t.Errorf("expected expired sessions to be skipped on load, got %d", svc2.Count())
	}
}

func TestLoad_CorruptFile(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "sessions.json"), []byte("not json"), 0o644); err != nil {
		t.Fatalf("write corrupt file: %v", err)
	}

	if _, err := NewService(dir, DefaultDuration); err == nil {
		t.Error("expected error loading corrupt sessions file")
	}
}

func TestCleanup(t *testing.T) {
	svc, err := NewService(t.TempDir(), time.Millisecond)
	if err != nil {
		t.Fatalf("NewService failed: %v", err)
	}
	for i := 0; i < 2; i++ {
		if _, err := svc.Create(testAccount(), "", ""); err != nil {
			t.Fatalf("Create failed: %v", err)
		}
	}

	time.Sleep(5 * time.Millisecond)

	if count := svc.Cleanup(); count != 2 {
		t.Errorf("expected 2 cleaned up, got %d", count)
	}
	if svc.Count() != 0 {
		t.Errorf("expected empty store, got %d", svc.Count())
	}
}
