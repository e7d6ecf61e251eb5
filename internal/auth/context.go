// Package auth carries authenticated identity through request contexts.
package auth

import "net/http"

// ContextKey is the type used for request context keys.
type ContextKey string

const (
	// ContextKeyAccountID holds the authenticated account ID.
	ContextKeyAccountID ContextKey = "accountID"
	// ContextKeyIsMaster holds the master-account flag.
	ContextKeyIsMaster ContextKey = "isMaster"
	// ContextKeySession holds the full session value.
	ContextKeySession ContextKey = "session"
)

// GetAccountID returns the authenticated account ID, or "" if unauthenticated.
func GetAccountID(r *http.Request) string {
	if id, ok := r.Context().Value(ContextKeyAccountID).(string); ok {
		return id
	}
	return ""
}

// IsMaster reports whether the request is authenticated as the master account.
func IsMaster(r *http.Request) bool {
	if isMaster, ok := r.Context().Value(ContextKeyIsMaster).(bool); ok {
		return isMaster
	}
	return false
}
