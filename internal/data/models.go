package data

import (
	"errors"
	"strings"
	"time"
)

var (
	// ErrNotFound is returned when a lookup matches no row.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate is returned when an insert or rename violates a unique key.
	ErrDuplicate = errors.New("record already exists")
)

// Role is the permission level of a user.
type Role string

const (
	RoleAdmin  Role = "admin"
	RoleEditor Role = "editor"
	RoleViewer Role = "viewer"
)

// ParseRole maps a stored role name to a Role. Unknown names become RoleViewer.
func ParseRole(s string) Role {
	switch Role(strings.ToLower(strings.TrimSpace(s))) {
	case RoleAdmin:
		return RoleAdmin
	case RoleEditor:
		return RoleEditor
	default:
		return RoleViewer
	}
}

// CanEdit reports whether the role may open the editor.
func (r Role) CanEdit() bool {
	return r == RoleAdmin || r == RoleEditor
}

// CanDelete reports whether the role may delete pages.
func (r Role) CanDelete() bool {
	return r == RoleAdmin
}

// Page represents a single wiki page in the database.
type Page struct {
	ID           int64     `db:"id"`
	Title        string    `db:"title"`
	Markdown     string    `db:"markdown"`
	LastEditedAt time.Time `db:"last_edited_at"`
	LastEditor   string    `db:"last_editor"`
	Category     string    `db:"category"`
}

// Categories splits the comma-separated category column into trimmed names.
// A page without a category yields a single empty name.
func (p *Page) Categories() []string {
	return SplitCategories(p.Category)
}

// PageSummary is the listing projection of a page, without its body.
type PageSummary struct {
	Title        string    `db:"title"`
	LastEditedAt time.Time `db:"last_edited_at"`
	LastEditor   string    `db:"last_editor"`
	Category     string    `db:"category"`
}

// PageCategory pairs a page title with its raw category column.
type PageCategory struct {
	Title    string `db:"title"`
	Category string `db:"category"`
}

// User is an account allowed to sign in.
type User struct {
	ID           int64  `db:"id"`
	Email        string `db:"email"`
	PasswordHash string `db:"password_hash"`
	FirstName    string `db:"first_name"`
	LastName     string `db:"last_name"`
	Role         Role   `db:"role"`
}

// SplitCategories splits a comma-separated category list, trimming each name
// and dropping empty names and duplicates. An uncategorized page yields [""].
func SplitCategories(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	seen := make(map[string]bool, len(parts))
	for _, p := range parts {
		name := strings.TrimSpace(p)
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		out = append(out, name)
	}
	if len(out) == 0 {
		return []string{""}
	}
	return out
}
