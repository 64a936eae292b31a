package service

import (
	"context"
	"fyrewiki/internal/data"
)

// CategoryGroup is one dashboard section: a category and the titles filed under it.
type CategoryGroup struct {
	Name   string   `json:"name"`
	Titles []string `json:"titles"`
}

const categoryIndexKey = "pages:categories"

// Categories returns every category name in first-seen order. Uncategorized
// pages contribute the empty name. A store that keeps failing yields an
// empty list.
func (s *PageService) Categories(ctx context.Context) ([]string, error) {
	groups, err := s.OrganizedPages(ctx)
	if err != nil {
		return nil, err
	}
	names := make([]string, len(groups))
	for i, g := range groups {
		names[i] = g.Name
	}
	return names, nil
}

// OrganizedPages groups page titles by category. A page appears under every
// category it lists.
func (s *PageService) OrganizedPages(ctx context.Context) ([]CategoryGroup, error) {
	var groups []CategoryGroup
	if s.cache != nil {
		if ok, err := s.cache.GetJSON(categoryIndexKey, &groups); err == nil && ok {
			return groups, nil
		} else if err != nil {
			s.log.Warn("Category index cache read failed: " + err.Error())
		}
	}

	pairs, err := withRetry(ctx, s.retry, s.log, "category retrieval", func() ([]data.PageCategory, error) {
		return s.categories.ListPageCategories(ctx)
	})
	if err != nil {
		s.log.Error(err, "Maximum number of retries reached. Category retrieval failed.")
		return []CategoryGroup{}, nil
	}

	groups = groupByCategory(pairs)
	if s.cache != nil {
		if err := s.cache.SetJSON(categoryIndexKey, groups); err != nil {
			s.log.Warn("Category index cache write failed: " + err.Error())
		}
	}
	return groups, nil
}

func groupByCategory(pairs []data.PageCategory) []CategoryGroup {
	groups := []CategoryGroup{}
	index := make(map[string]int)
	for _, p := range pairs {
		for _, name := range data.SplitCategories(p.Category) {
			i, ok := index[name]
			if !ok {
				i = len(groups)
				index[name] = i
				groups = append(groups, CategoryGroup{Name: name, Titles: []string{}})
			}
			groups[i].Titles = append(groups[i].Titles, p.Title)
		}
	}
	return groups
}

// PagesInCategory lists the titles filed under name.
func (s *PageService) PagesInCategory(ctx context.Context, name string) ([]string, error) {
	return s.categories.SearchByName(ctx, name)
}
