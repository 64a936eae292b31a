package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// SQLPageRepository is a concrete implementation of the PageRepository interface using sqlx.
type SQLPageRepository struct {
	db *sqlx.DB
}

// NewSQLPageRepository creates a new SQLPageRepository.
func NewSQLPageRepository(db *sqlx.DB) *SQLPageRepository {
	return &SQLPageRepository{db: db}
}

// CreatePage inserts a new page and stores the generated ID on page.
// A taken title yields ErrDuplicate.
func (r *SQLPageRepository) CreatePage(ctx context.Context, page *Page) error {
	query := `INSERT INTO pages (title, markdown, last_edited_at, last_editor, category)
		VALUES (:title, :markdown, :last_edited_at, :last_editor, :category)`
	res, err := r.db.NamedExecContext(ctx, query, page)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("page %q: %w", page.Title, ErrDuplicate)
		}
		return fmt.Errorf("failed to execute create page query: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read new page id: %w", err)
	}
	page.ID = id
	return nil
}

// GetPageByTitle retrieves a single page from the database by its title.
func (r *SQLPageRepository) GetPageByTitle(ctx context.Context, title string) (*Page, error) {
	var page Page
	query := `SELECT id, title, markdown, last_edited_at, last_editor, category FROM pages WHERE title = ?`
	if err := r.db.GetContext(ctx, &page, query, title); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("page %q: %w", title, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get page by title: %w", err)
	}
	return &page, nil
}

// TitleExists reports whether a page with the given title is stored.
func (r *SQLPageRepository) TitleExists(ctx context.Context, title string) (bool, error) {
	var n int
	if err := r.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM pages WHERE title = ?`, title); err != nil {
		return false, fmt.Errorf("failed to check page title: %w", err)
	}
	return n > 0, nil
}

// ListPages returns a summary of every page, in no particular order.
func (r *SQLPageRepository) ListPages(ctx context.Context) ([]PageSummary, error) {
	var pages []PageSummary
	query := `SELECT title, last_edited_at, last_editor, category FROM pages`
	if err := r.db.SelectContext(ctx, &pages, query); err != nil {
		return nil, fmt.Errorf("failed to list pages: %w", err)
	}
	return pages, nil
}

// UpdatePage writes every mutable column of page, keyed by its ID.
func (r *SQLPageRepository) UpdatePage(ctx context.Context, page *Page) error {
	query := `UPDATE pages SET title = :title, markdown = :markdown, last_edited_at = :last_edited_at,
		last_editor = :last_editor, category = :category WHERE id = :id`
	result, err := r.db.NamedExecContext(ctx, query, page)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("page %q: %w", page.Title, ErrDuplicate)
		}
		return fmt.Errorf("failed to update page: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("page id %d: %w", page.ID, ErrNotFound)
	}
	return nil
}

// DeletePage removes a page by its title.
func (r *SQLPageRepository) DeletePage(ctx context.Context, title string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM pages WHERE title = ?`, title)
	if err != nil {
		return fmt.Errorf("failed to delete page: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("page %q: %w", title, ErrNotFound)
	}
	return nil
}
