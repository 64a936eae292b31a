package view

import (
	"context"
	"fyrewiki/internal/data"
)

type contextKey string

const (
	flashKey   contextKey = "flash"
	accountKey contextKey = "account"
)

// Flash is a one-off notice shown at the top of a page.
type Flash struct {
	Title   string
	Message string
}

// Account is the signed-in user as the layout shows them.
type Account struct {
	FirstName string
	Role      data.Role
}

// CanEdit reports whether the layout should offer editing actions.
func (a Account) CanEdit() bool { return a.Role.CanEdit() }

// IsAdmin reports whether the layout should offer admin actions.
func (a Account) IsAdmin() bool { return a.Role.CanDelete() }

// WithFlash returns a context carrying f.
func WithFlash(ctx context.Context, f Flash) context.Context {
	return context.WithValue(ctx, flashKey, f)
}

// FlashFrom returns the notice stored in ctx, if any.
func FlashFrom(ctx context.Context) Flash {
	f, _ := ctx.Value(flashKey).(Flash)
	return f
}

// WithAccount returns a context carrying the signed-in account.
func WithAccount(ctx context.Context, a Account) context.Context {
	return context.WithValue(ctx, accountKey, a)
}

// AccountFrom returns the signed-in account, if any.
func AccountFrom(ctx context.Context) (Account, bool) {
	a, ok := ctx.Value(accountKey).(Account)
	return a, ok
}
