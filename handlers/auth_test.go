package handlers_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"bannerforge/api"
	"bannerforge/handlers"
	"bannerforge/services/accounts"
	"bannerforge/services/sessions"
)

// setupAuthHandler builds an auth handler over real services in a temp dir.
func setupAuthHandler(t *testing.T) (*handlers.AuthHandler, *accounts.Service, *sessions.Service) {
	t.Helper()

	dir := t.TempDir()
	accountsSvc, err := accounts.NewService(dir)
	if err != nil {
		t.Fatalf("accounts.NewService failed: %v", err)
	}
	sessionsSvc, err := sessions.NewService(dir, sessions.DefaultDuration)
	if err != nil {
		t.Fatalf("sessions.NewService failed: %v", err)
	}
	return handlers.NewAuthHandler(accountsSvc, sessionsSvc), accountsSvc, sessionsSvc
}

func postJSON(t *testing.T, handler http.HandlerFunc, target string, body any, mutate func(*http.Request)) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		t.Fatalf("encode body: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	if mutate != nil {
		mutate(req)
	}
	rec := httptest.NewRecorder()
	handler(rec, req)
	return rec
}

func login(t *testing.T, h *handlers.AuthHandler, username, password string) handlers.LoginResponse {
	t.Helper()

	rec := postJSON(t, h.Login, "/auth/login", handlers.LoginRequest{
		Username: username,
		Password: password,
	}, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("login: expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}
	var resp handlers.LoginResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode login response: %v", err)
	}
	return resp
}

func TestLogin_Success(t *testing.T) {
	h, _, _ := setupAuthHandler(t)

	resp := login(t, h, "admin", accounts.DefaultMasterPassword)
	if !resp.Success {
		t.Error("expected success=true")
	}
	if resp.Token == "" {
		t.Error("expected a session token")
	}
	if !resp.IsMaster {
		t.Error("expected master flag")
	}
	if !resp.MustChangePassword {
		t.Error("expected mustChangePassword while default password is in place")
	}
}

func TestLogin_SetsSessionCookie(t *testing.T) {
	h, _, _ := setupAuthHandler(t)

	rec := postJSON(t, h.Login, "/auth/login", handlers.LoginRequest{
		Username: "admin",
		Password: accounts.DefaultMasterPassword,
	}, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var found bool
	for _, c := range rec.Result().Cookies() {
		if c.Name == api.SessionCookieName && c.Value != "" {
			found = true
		}
	}
	if !found {
		t.Error("expected session cookie to be set")
	}
}

func TestLogin_WrongPassword(t *testing.T) {
	h, _, _ := setupAuthHandler(t)

	rec := postJSON(t, h.Login, "/auth/login", handlers.LoginRequest{
		Username: "admin",
		Password: "wrong",
	}, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestLogin_InvalidBody(t *testing.T) {
	h, _, _ := setupAuthHandler(t)

	req := httptest.NewRequest(http.MethodPost, "/auth/login", bytes.NewBufferString("{broken"))
	rec := httptest.NewRecorder()
	h.Login(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestLogin_RememberMeOutlivesDefault(t *testing.T) {
	h, _, sessionsSvc := setupAuthHandler(t)

	normal := login(t, h, "admin", accounts.DefaultMasterPassword)

	rec := postJSON(t, h.Login, "/auth/login", handlers.LoginRequest{
		Username:   "admin",
		Password:   accounts.DefaultMasterPassword,
		RememberMe: true,
	}, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var remembered handlers.LoginResponse
	if err := json.NewDecoder(rec.Body).Decode(&remembered); err != nil {
		t.Fatalf("decode: %v", err)
	}

	a, err := sessionsSvc.Validate(normal.Token)
	if err != nil {
		t.Fatalf("validate normal: %v", err)
	}
	b, err := sessionsSvc.Validate(remembered.Token)
	if err != nil {
		t.Fatalf("validate remembered: %v", err)
	}
	if !b.ExpiresAt.After(a.ExpiresAt) {
		t.Errorf("remembered session should expire later: %v vs %v", b.ExpiresAt, a.ExpiresAt)
	}
}

func TestLogout(t *testing.T) {
	h, _, sessionsSvc := setupAuthHandler(t)

	resp := login(t, h, "admin", accounts.DefaultMasterPassword)

	rec := postJSON(t, h.Logout, "/auth/logout", nil, func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer "+resp.Token)
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	if _, err := sessionsSvc.Validate(resp.Token); err == nil {
		t.Error("expected session to be revoked after logout")
	}
}

func TestLogout_NoToken(t *testing.T) {
	h, _, _ := setupAuthHandler(t)

	rec := postJSON(t, h.Logout, "/auth/logout", nil, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestMe(t *testing.T) {
	h, _, _ := setupAuthHandler(t)

	resp := login(t, h, "admin", accounts.DefaultMasterPassword)

	req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	req.Header.Set("Authorization", "Bearer "+resp.Token)
	rec := httptest.NewRecorder()
	h.Me(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var me handlers.AccountResponse
	if err := json.NewDecoder(rec.Body).Decode(&me); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if me.Username != "admin" || !me.IsMaster {
		t.Errorf("unexpected account payload: %+v", me)
	}
}

func TestMe_Unauthenticated(t *testing.T) {
	h, _, _ := setupAuthHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	rec := httptest.NewRecorder()
	h.Me(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestRefresh(t *testing.T) {
	h, _, _ := setupAuthHandler(t)

	resp := login(t, h, "admin", accounts.DefaultMasterPassword)

	req := httptest.NewRequest(http.MethodPost, "/auth/refresh", nil)
	req.Header.Set("Authorization", "Bearer "+resp.Token)
	rec := httptest.NewRecorder()
	h.Refresh(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var refreshed handlers.LoginResponse
	if err := json.NewDecoder(rec.Body).Decode(&refreshed); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if refreshed.Token != resp.Token {
		t.Error("refresh should keep the same token")
	}
}

func TestChangePassword(t *testing.T) {
	h, accountsSvc, sessionsSvc := setupAuthHandler(t)

	resp := login(t, h, "admin", accounts.DefaultMasterPassword)

	rec := postJSON(t, h.ChangePassword, "/auth/change-password", handlers.ChangePasswordRequest{
		CurrentPassword: accounts.DefaultMasterPassword,
		NewPassword:     "much-better",
	}, func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer "+resp.Token)
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}

	if _, err := accountsSvc.Authenticate("admin", "much-better"); err != nil {
		t.Errorf("new password should authenticate: %v", err)
	}
	// All sessions are revoked so other devices must re-login.
	if _, err := sessionsSvc.Validate(resp.Token); err == nil {
		t.Error("expected sessions to be revoked after password change")
	}
}

func TestChangePassword_WrongCurrent(t *testing.T) {
	h, _, _ := setupAuthHandler(t)

	resp := login(t, h, "admin", accounts.DefaultMasterPassword)

	rec := postJSON(t, h.ChangePassword, "/auth/change-password", handlers.ChangePasswordRequest{
		CurrentPassword: "nope",
		NewPassword:     "much-better",
	}, func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer "+resp.Token)
	})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestChangePassword_EmptyNew(t *testing.T) {
	h, _, _ := setupAuthHandler(t)

	resp := login(t, h, "admin", accounts.DefaultMasterPassword)

	rec := postJSON(t, h.ChangePassword, "/auth/change-password", handlers.ChangePasswordRequest{
		CurrentPassword: accounts.DefaultMasterPassword,
		NewPassword:     "   ",
	}, func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer "+resp.Token)
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}
