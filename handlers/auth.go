package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"bannerforge/api"
	"bannerforge/models"
	"bannerforge/services/accounts"
	"bannerforge/services/sessions"
)

// AuthHandler serves login, logout, session info and password changes.
type AuthHandler struct {
	accounts *accounts.Service
	sessions *sessions.Service
}

// NewAuthHandler creates an auth handler.
func NewAuthHandler(accountsSvc *accounts.Service, sessionsSvc *sessions.Service) *AuthHandler {
	return &AuthHandler{
		accounts: accountsSvc,
		sessions: sessionsSvc,
	}
}

// LoginRequest is the login request body.
type LoginRequest struct {
	Username   string `json:"username"`
	Password   string `json:"password"`
	RememberMe bool   `json:"rememberMe"`
}

// LoginResponse is returned on successful login or refresh.
type LoginResponse struct {
	Success            bool   `json:"success"`
	Token              string `json:"token"`
	ExpiresAt          string `json:"expiresAt"`
	AccountID          string `json:"accountId"`
	Username           string `json:"username"`
	IsMaster           bool   `json:"isMaster"`
	MustChangePassword bool   `json:"mustChangePassword,omitempty"`
}

// AccountResponse is the /auth/me payload.
type AccountResponse struct {
	Success  bool   `json:"success"`
	ID       string `json:"id"`
	Username string `json:"username"`
	IsMaster bool   `json:"isMaster"`
}

// Login authenticates credentials and issues a session token. The token is
// also set as a cookie for the web UI.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	account, err := h.accounts.Authenticate(req.Username, req.Password)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "invalid username or password")
		return
	}

	userAgent := r.Header.Get("User-Agent")
	ipAddress := api.ClientIP(r)

	var session models.Session
	if req.RememberMe {
		session, err = h.sessions.CreateRemembered(account, userAgent, ipAddress)
	} else {
		session, err = h.sessions.Create(account, userAgent, ipAddress)
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to create session")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     api.SessionCookieName,
		Value:    session.Token,
		Path:     "/",
		Expires:  session.ExpiresAt,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	mustChange := account.IsMaster && h.accounts.HasDefaultPassword()
	writeJSON(w, http.StatusOK, LoginResponse{
		Success:            true,
		Token:              session.Token,
		ExpiresAt:          session.ExpiresAt.Format("2006-01-02T15:04:05Z"),
		AccountID:          account.ID,
		Username:           account.Username,
		IsMaster:           account.IsMaster,
		MustChangePassword: mustChange,
	})
}

// Logout revokes the current session and clears the cookie.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	token := api.ExtractToken(r)
	if token == "" {
		writeError(w, http.StatusBadRequest, "no session token")
		return
	}

	if err := h.sessions.Revoke(token); err != nil && !errors.Is(err, sessions.ErrSessionNotFound) {
		writeError(w, http.StatusInternalServerError, "failed to revoke session")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     api.SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "logged out"})
}

// Me returns the authenticated account.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	session, ok := h.validSession(w, r)
	if !ok {
		return
	}

	account, ok := h.accounts.Get(session.AccountID)
	if !ok {
		writeError(w, http.StatusNotFound, "account not found")
		return
	}

	writeJSON(w, http.StatusOK, AccountResponse{
		Success:  true,
		ID:       account.ID,
		Username: account.Username,
		IsMaster: account.IsMaster,
	})
}

// Refresh extends the current session and returns the new expiry.
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	token := api.ExtractToken(r)
	if token == "" {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	session, err := h.sessions.Refresh(token)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "invalid or expired session")
		return
	}

	account, ok := h.accounts.Get(session.AccountID)
	if !ok {
		writeError(w, http.StatusNotFound, "account not found")
		return
	}

	writeJSON(w, http.StatusOK, LoginResponse{
		Success:   true,
		Token:     session.Token,
		ExpiresAt: session.ExpiresAt.Format("2006-01-02T15:04:05Z"),
		AccountID: account.ID,
		Username:  account.Username,
		IsMaster:  account.IsMaster,
	})
}

// ChangePasswordRequest is the change-password request body.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

// ChangePassword verifies the current password, updates the hash, and revokes
// every other session for the account.
func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	session, ok := h.validSession(w, r)
	if !ok {
		return
	}

	var req ChangePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	account, ok := h.accounts.Get(session.AccountID)
	if !ok {
		writeError(w, http.StatusNotFound, "account not found")
		return
	}

	if _, err := h.accounts.Authenticate(account.Username, req.CurrentPassword); err != nil {
		writeError(w, http.StatusUnauthorized, "current password is incorrect")
		return
	}

	if err := h.accounts.UpdatePassword(session.AccountID, req.NewPassword); err != nil {
		if errors.Is(err, accounts.ErrPasswordRequired) {
			writeError(w, http.StatusBadRequest, "new password is required")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to update password")
		return
	}

	// Force other devices to log in again with the new password.
	h.sessions.RevokeAllForAccount(session.AccountID)

	writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "password changed"})
}

func (h *AuthHandler) validSession(w http.ResponseWriter, r *http.Request) (models.Session, bool) {
	token := api.ExtractToken(r)
	if token == "" {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return models.Session{}, false
	}

	session, err := h.sessions.Validate(token)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "invalid or expired session")
		return models.Session{}, false
	}
	return session, true
}
