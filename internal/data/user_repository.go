package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
)

// SQLUserRepository stores wiki accounts.
type SQLUserRepository struct {
	db *sqlx.DB
}

// NewSQLUserRepository creates a new SQLUserRepository.
func NewSQLUserRepository(db *sqlx.DB) *SQLUserRepository {
	return &SQLUserRepository{db: db}
}

// GetByEmail looks a user up by email, case-insensitively.
func (r *SQLUserRepository) GetByEmail(ctx context.Context, email string) (*User, error) {
	var user User
	query := `SELECT id, email, password_hash, first_name, last_name, role FROM users WHERE email = ?`
	if err := r.db.GetContext(ctx, &user, query, normalizeEmail(email)); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("user %q: %w", email, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}
	user.Role = ParseRole(string(user.Role))
	return &user, nil
}

// CreateUser inserts a user. A taken email yields ErrDuplicate.
func (r *SQLUserRepository) CreateUser(ctx context.Context, user *User) error {
	user.Email = normalizeEmail(user.Email)
	query := `INSERT INTO users (email, password_hash, first_name, last_name, role)
		VALUES (:email, :password_hash, :first_name, :last_name, :role)`
	res, err := r.db.NamedExecContext(ctx, query, user)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("user %q: %w", user.Email, ErrDuplicate)
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read new user id: %w", err)
	}
	user.ID = id
	return nil
}

// ListUsers returns every user ordered by email.
func (r *SQLUserRepository) ListUsers(ctx context.Context) ([]User, error) {
	var users []User
	query := `SELECT id, email, password_hash, first_name, last_name, role FROM users ORDER BY email`
	if err := r.db.SelectContext(ctx, &users, query); err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return users, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
