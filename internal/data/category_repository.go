package data

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// CategoryRepository answers category queries. Categories are not a table of
// their own; they are read from the comma-separated category column of pages.
type CategoryRepository struct {
	DB *sqlx.DB
}

// NewCategoryRepository creates a new CategoryRepository.
func NewCategoryRepository(db *sqlx.DB) *CategoryRepository {
	return &CategoryRepository{DB: db}
}

// ListPageCategories returns the title and raw category column of every page,
// ordered by title.
func (r *CategoryRepository) ListPageCategories(ctx context.Context) ([]PageCategory, error) {
	var rows []PageCategory
	err := r.DB.SelectContext(ctx, &rows, "SELECT title, category FROM pages ORDER BY title")
	if err != nil {
		return nil, fmt.Errorf("failed to list page categories: %w", err)
	}
	return rows, nil
}

// SearchByName returns the titles of pages filed under exactly the named category.
func (r *CategoryRepository) SearchByName(ctx context.Context, name string) ([]string, error) {
	var rows []PageCategory
	err := r.DB.SelectContext(ctx, &rows,
		"SELECT title, category FROM pages WHERE category LIKE ? ORDER BY title", "%"+name+"%")
	if err != nil {
		return nil, fmt.Errorf("failed to search categories: %w", err)
	}

	// LIKE narrows the scan; exact membership is decided on the split list.
	titles := []string{}
	for _, row := range rows {
		for _, c := range SplitCategories(row.Category) {
			if c == name {
				titles = append(titles, row.Title)
				break
			}
		}
	}
	return titles, nil
}
