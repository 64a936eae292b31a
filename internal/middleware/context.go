package middleware

import (
	"context"
	"fyrewiki/internal/auth"
	"fyrewiki/internal/data"
)

// contextKey defines a custom type for context keys to avoid collisions.
type contextKey string

const userContextKey = contextKey("user")

// UserInfo represents the essential user information stored in the session and request context.
type UserInfo struct {
	Email     string
	FirstName string
	Role      data.Role
}

// Anonymous reports whether nobody is signed in.
func (u *UserInfo) Anonymous() bool {
	return u.Email == ""
}

// Subject is the casbin subject for the user.
func (u *UserInfo) Subject() string {
	if u.Anonymous() {
		return auth.Anonymous
	}
	return string(u.Role)
}

// GetUserInfo retrieves the user information from the request context.
func GetUserInfo(ctx context.Context) *UserInfo {
	if userInfo, ok := ctx.Value(userContextKey).(*UserInfo); ok {
		return userInfo
	}
	return &UserInfo{}
}

// SetUserInfo adds the user information to the request context.
func SetUserInfo(ctx context.Context, userInfo *UserInfo) context.Context {
	return context.WithValue(ctx, userContextKey, userInfo)
}
