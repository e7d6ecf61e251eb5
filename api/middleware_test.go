package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"bannerforge/internal/auth"
	"bannerforge/models"
	"bannerforge/services/sessions"
)

// setupAuthMiddleware returns middleware backed by an in-memory sessions
// service plus a valid token for it.
func setupAuthMiddleware(t *testing.T) (func(http.Handler) http.Handler, string) {
	t.Helper()

	svc, err := sessions.NewService("", sessions.DefaultDuration)
	if err != nil {
		t.Fatalf("sessions.NewService failed: %v", err)
	}
	session, err := svc.Create(models.Account{ID: "acct-1", IsMaster: true}, "", "")
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	return SessionAuthMiddleware(svc), session.Token
}

func TestSessionAuth_MissingToken(t *testing.T) {
	mw, _ := setupAuthMiddleware(t)
	handler := mw(http.HandlerFunc(okHandler))

	req := httptest.NewRequest(http.MethodPost, "/api/search-movies", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}

	var body map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["success"] != false {
		t.Error("expected success=false")
	}
	if body["requiresAuth"] != true {
		t.Error("expected requiresAuth=true so the UI redirects to login")
	}
}

func TestSessionAuth_InvalidToken(t *testing.T) {
	mw, _ := setupAuthMiddleware(t)
	handler := mw(http.HandlerFunc(okHandler))

	req := httptest.NewRequest(http.MethodPost, "/api/search-movies", nil)
	req.Header.Set("Authorization", "Bearer bogus")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestSessionAuth_BearerHeader(t *testing.T) {
	mw, token := setupAuthMiddleware(t)

	var gotAccount string
	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAccount = GetAccountID(r)
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/search-movies", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if gotAccount != "acct-1" {
		t.Errorf("expected account acct-1 in context, got %q", gotAccount)
	}
}

func TestSessionAuth_Cookie(t *testing.T) {
	mw, token := setupAuthMiddleware(t)
	handler := mw(http.HandlerFunc(okHandler))

	req := httptest.NewRequest(http.MethodPost, "/api/search-movies", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: token})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 via cookie, got %d", rec.Code)
	}
}

func TestSessionAuth_QueryParam(t *testing.T) {
	mw, token := setupAuthMiddleware(t)
	handler := mw(http.HandlerFunc(okHandler))

	req := httptest.NewRequest(http.MethodGet, "/api/cache/stats?token="+token, nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 via query token, got %d", rec.Code)
	}
}

func TestSessionAuth_OptionsBypass(t *testing.T) {
	mw, _ := setupAuthMiddleware(t)
	handler := mw(http.HandlerFunc(okHandler))

	req := httptest.NewRequest(http.MethodOptions, "/api/search-movies", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected OPTIONS to bypass auth, got %d", rec.Code)
	}
}

func TestMasterOnly(t *testing.T) {
	mw := MasterOnlyMiddleware()
	handler := mw(http.HandlerFunc(okHandler))

	// No master flag in context.
	req := httptest.NewRequest(http.MethodPost, "/api/cache/clear", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for non-master, got %d", rec.Code)
	}

	// Master flag present.
	ctx := context.WithValue(req.Context(), auth.ContextKeyIsMaster, true)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req.WithContext(ctx))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for master, got %d", rec.Code)
	}
}

func TestExtractToken_Priority(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?token=query-token", nil)
	req.Header.Set("Authorization", "Bearer header-token")
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: "cookie-token"})

	if got := ExtractToken(req); got != "header-token" {
		t.Errorf("header should win, got %q", got)
	}

	req.Header.Del("Authorization")
	if got := ExtractToken(req); got != "cookie-token" {
		t.Errorf("cookie should win over query, got %q", got)
	}
}
