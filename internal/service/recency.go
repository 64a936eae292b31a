package service

import (
	"fyrewiki/internal/data"
	"sort"
)

// SortByRecency orders summaries most recently edited first. Ties fall back
// to title, editor and category, each descending.
func SortByRecency(pages []data.PageSummary) {
	sort.SliceStable(pages, func(i, j int) bool {
		a, b := pages[i], pages[j]
		if !a.LastEditedAt.Equal(b.LastEditedAt) {
			return a.LastEditedAt.After(b.LastEditedAt)
		}
		if a.Title != b.Title {
			return a.Title > b.Title
		}
		if a.LastEditor != b.LastEditor {
			return a.LastEditor > b.LastEditor
		}
		return a.Category > b.Category
	})
}

// Titles projects summaries to their titles, preserving order.
func Titles(pages []data.PageSummary) []string {
	out := make([]string, len(pages))
	for i, p := range pages {
		out[i] = p.Title
	}
	return out
}
