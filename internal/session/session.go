package session

import (
	"context"
	"net/http"
	"time"
)

// Manager is an interface that abstracts the session management implementation.
// *scs.SessionManager satisfies it.
type Manager interface {
	LoadAndSave(next http.Handler) http.Handler
	Put(ctx context.Context, key string, val interface{})
	GetString(ctx context.Context, key string) string
	PopString(ctx context.Context, key string) string
	GetTime(ctx context.Context, key string) time.Time
	Destroy(ctx context.Context) error
	Remove(ctx context.Context, key string)
	RenewToken(ctx context.Context) error
}

// Session keys.
const (
	KeyEmail     = "user_email"
	KeyFirstName = "user_first_name"
	KeyRole      = "user_role"

	KeyPendingEmail   = "pending_email"
	KeyPendingCode    = "pending_code"
	KeyPendingExpires = "pending_expires"

	KeyOAuthState = "oauth_state"
)
