package service

import (
	"context"
	"errors"
	"fmt"
	"fyrewiki/internal/cache"
	"fyrewiki/internal/data"
	"fyrewiki/internal/editlock"
	"fyrewiki/internal/logger"
	"fyrewiki/internal/markdown"
	"html/template"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"
)

// PageRepository defines the interface for database operations on pages.
type PageRepository interface {
	CreatePage(ctx context.Context, page *data.Page) error
	GetPageByTitle(ctx context.Context, title string) (*data.Page, error)
	TitleExists(ctx context.Context, title string) (bool, error)
	ListPages(ctx context.Context) ([]data.PageSummary, error)
	UpdatePage(ctx context.Context, page *data.Page) error
	DeletePage(ctx context.Context, title string) error
}

// CategoryRepository defines the interface for category lookups.
type CategoryRepository interface {
	ListPageCategories(ctx context.Context) ([]data.PageCategory, error)
	SearchByName(ctx context.Context, name string) ([]string, error)
}

// PageServicer defines the interface for interacting with pages.
type PageServicer interface {
	ViewPage(ctx context.Context, title string, viewer Viewer) (*RenderedPage, error)
	RecentTitles(ctx context.Context) ([]string, error)
	OpenEditor(ctx context.Context, title string, viewer Viewer) (*EditorState, error)
	Ping(ctx context.Context, title string, viewer Viewer) error
	SavePage(ctx context.Context, title, markdown string, viewer Viewer) error
	ReturnToPage(ctx context.Context, title, markdown string, viewer Viewer) error
	RenamePage(ctx context.Context, title, newTitle string, viewer Viewer) error
	UpdateCategory(ctx context.Context, title, category string, viewer Viewer) error
	CreatePage(ctx context.Context, title string, viewer Viewer) (*data.Page, error)
	CheckDeletable(ctx context.Context, title string, viewer Viewer) error
	DeletePage(ctx context.Context, title, confirmation string, viewer Viewer) error
	Categories(ctx context.Context) ([]string, error)
	OrganizedPages(ctx context.Context) ([]CategoryGroup, error)
	PagesInCategory(ctx context.Context, name string) ([]string, error)
	GetAllPages(ctx context.Context) ([]data.PageSummary, error)
}

var _ PageServicer = (*PageService)(nil)

// Viewer is the signed-in user a request acts for.
type Viewer struct {
	Email     string
	FirstName string
	Role      data.Role
}

// DisplayName is the name written to a page's byline.
func (v Viewer) DisplayName() string {
	if v.FirstName != "" {
		return v.FirstName
	}
	return v.Email
}

// RenderedPage is a page ready for the page template.
type RenderedPage struct {
	Title        string
	HTML         template.HTML
	TOC          []markdown.TOCEntry
	LastEditedAt time.Time
	LastEditor   string
	Categories   []string
}

// EditorState is what the editor template needs.
type EditorState struct {
	Title    string
	Markdown string
	Category string
}

const recentTitlesKey = "pages:recent"

// PageService provides business logic for managing pages.
type PageService struct {
	pages      PageRepository
	categories CategoryRepository
	cache      *cache.Cache
	locks      *editlock.Coordinator
	retry      RetryPolicy
	log        logger.Logger
	sanitizer  *bluemonday.Policy
	now        func() time.Time
}

// NewPageService creates a new PageService. The cache may be nil.
func NewPageService(pages PageRepository, categories CategoryRepository, c *cache.Cache, locks *editlock.Coordinator, retry RetryPolicy, log logger.Logger) *PageService {
	return &PageService{
		pages:      pages,
		categories: categories,
		cache:      c,
		locks:      locks,
		retry:      retry,
		log:        log,
		sanitizer:  newSanitizer(),
		now:        time.Now,
	}
}

// newSanitizer allows the markup the renderer emits and nothing else of note.
func newSanitizer() *bluemonday.Policy {
	p := bluemonday.UGCPolicy()
	p.RequireNoFollowOnLinks(false)
	p.AllowAttrs("class").Globally()
	p.AllowAttrs("id").OnElements("h1", "h2", "h3", "h4", "h5", "h6")
	p.AllowAttrs("colspan", "scope").OnElements("th", "td")
	p.AllowElements("nav", "aside", "div", "span")
	return p
}

// ViewPage renders a page for viewer.
func (s *PageService) ViewPage(ctx context.Context, title string, viewer Viewer) (*RenderedPage, error) {
	page, err := s.getPage(ctx, title)
	if err != nil {
		return nil, err
	}

	recent, err := s.RecentTitles(ctx)
	if err != nil {
		return nil, err
	}

	doc := markdown.Render(markdown.RenderContext{
		Source:       page.Markdown,
		Title:        page.Title,
		LastEditedAt: page.LastEditedAt,
		LastEditor:   page.LastEditor,
		OtherTitles:  recent,
		Role:         viewer.Role,
	})

	return &RenderedPage{
		Title:        page.Title,
		HTML:         template.HTML(s.sanitizer.Sanitize(string(doc.HTML))),
		TOC:          doc.TOC,
		LastEditedAt: page.LastEditedAt,
		LastEditor:   page.LastEditor,
		Categories:   page.Categories(),
	}, nil
}

// RecentTitles returns every title, most recently edited first.
func (s *PageService) RecentTitles(ctx context.Context) ([]string, error) {
	var titles []string
	if s.cache != nil {
		if ok, err := s.cache.GetJSON(recentTitlesKey, &titles); err == nil && ok {
			return titles, nil
		} else if err != nil {
			s.log.Warn("Recent pages cache read failed: " + err.Error())
		}
	}

	summaries, err := s.listPages(ctx)
	if err != nil {
		// Leave the cache empty so the next view asks the store again.
		s.log.Error(err, "Maximum number of retries reached. Recent pages retrieval failed.")
		return []string{}, nil
	}
	titles = Titles(summaries)

	if s.cache != nil {
		if err := s.cache.SetJSON(recentTitlesKey, titles); err != nil {
			s.log.Warn("Recent pages cache write failed: " + err.Error())
		}
	}
	return titles, nil
}

// GetAllPages returns every page summary sorted by recency. A store that
// keeps failing yields an empty list.
func (s *PageService) GetAllPages(ctx context.Context) ([]data.PageSummary, error) {
	summaries, err := s.listPages(ctx)
	if err != nil {
		s.log.Error(err, "Maximum number of retries reached. Page list retrieval failed.")
		return []data.PageSummary{}, nil
	}
	return summaries, nil
}

// listPages fetches every summary sorted by recency, returning the last
// store error once retries run out.
func (s *PageService) listPages(ctx context.Context) ([]data.PageSummary, error) {
	summaries, err := withRetry(ctx, s.retry, s.log, "page list retrieval", func() ([]data.PageSummary, error) {
		return s.pages.ListPages(ctx)
	})
	if err != nil {
		return nil, err
	}
	SortByRecency(summaries)
	return summaries, nil
}

// OpenEditor takes the edit lock on title for viewer and returns the page source.
func (s *PageService) OpenEditor(ctx context.Context, title string, viewer Viewer) (*EditorState, error) {
	if !viewer.Role.CanEdit() {
		return nil, ErrForbidden
	}

	page, err := s.getPage(ctx, title)
	if err != nil {
		return nil, err
	}

	if owner, ok := s.locks.Acquire(title, viewer.Email); !ok {
		s.log.Info(fmt.Sprintf("%s attempted to access editor for page: %s but was denied access", viewer.Email, title))
		return nil, &LockedError{Page: title, Owner: owner}
	}
	s.log.Info("Editor accessed for page: " + title)

	return &EditorState{
		Title:    page.Title,
		Markdown: page.Markdown,
		Category: page.Category,
	}, nil
}

// Ping keeps viewer's lock on title alive.
func (s *PageService) Ping(ctx context.Context, title string, viewer Viewer) error {
	if !viewer.Role.CanEdit() {
		return ErrForbidden
	}
	if owner, ok := s.locks.Ping(title, viewer.Email); !ok {
		return &LockedError{Page: title, Owner: owner}
	}
	s.log.Debug(fmt.Sprintf("Pinged by editor: '%s' for page: '%s'", viewer.Email, title))
	return nil
}

// SavePage stores new markdown for a page the viewer is editing. The lock is kept.
func (s *PageService) SavePage(ctx context.Context, title, source string, viewer Viewer) error {
	page, err := s.editablePage(ctx, title, viewer)
	if err != nil {
		return err
	}

	page.Markdown = source
	page.LastEditedAt = s.now()
	page.LastEditor = viewer.DisplayName()
	if err := s.pages.UpdatePage(ctx, page); err != nil {
		return fmt.Errorf("failed to save page %q: %w", title, err)
	}
	s.invalidate()
	s.log.Info("File was saved: " + title)
	return nil
}

// ReturnToPage saves the page and releases the viewer's lock.
func (s *PageService) ReturnToPage(ctx context.Context, title, source string, viewer Viewer) error {
	if err := s.SavePage(ctx, title, source, viewer); err != nil {
		return err
	}
	s.locks.Release(title)
	return nil
}

// RenamePage changes a page's title and moves the viewer's lock with it.
func (s *PageService) RenamePage(ctx context.Context, title, newTitle string, viewer Viewer) error {
	newTitle = strings.TrimSpace(newTitle)
	if newTitle == "" {
		return ErrInvalidTitle
	}

	page, err := s.editablePage(ctx, title, viewer)
	if err != nil {
		return err
	}
	if newTitle == title {
		return nil
	}

	exists, err := s.pages.TitleExists(ctx, newTitle)
	if err != nil {
		return fmt.Errorf("failed to check title %q: %w", newTitle, err)
	}
	if exists {
		s.log.Warn("Attempt to update page name to an existing title: " + newTitle)
		return ErrTitleTaken
	}

	page.Title = newTitle
	if err := s.pages.UpdatePage(ctx, page); err != nil {
		if errors.Is(err, data.ErrDuplicate) {
			return ErrTitleTaken
		}
		return fmt.Errorf("failed to rename page %q: %w", title, err)
	}
	if !s.locks.Rename(title, newTitle, viewer.Email) {
		s.log.Warn(fmt.Sprintf("Edit lock for %s was lost during rename to %s", title, newTitle))
	}
	s.invalidate()
	s.log.Info(fmt.Sprintf("Page title updated: %s -> %s", title, newTitle))
	return nil
}

// UpdateCategory replaces a page's comma-separated category list.
func (s *PageService) UpdateCategory(ctx context.Context, title, category string, viewer Viewer) error {
	page, err := s.editablePage(ctx, title, viewer)
	if err != nil {
		return err
	}

	page.Category = strings.TrimSpace(category)
	if err := s.pages.UpdatePage(ctx, page); err != nil {
		return fmt.Errorf("failed to update category of %q: %w", title, err)
	}
	s.invalidate()
	s.log.Info(fmt.Sprintf("Category updated for page: %s -> %s", title, page.Category))
	return nil
}

// CreatePage adds a page holding the default markdown.
func (s *PageService) CreatePage(ctx context.Context, title string, viewer Viewer) (*data.Page, error) {
	if !viewer.Role.CanEdit() {
		return nil, ErrForbidden
	}
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, ErrInvalidTitle
	}

	exists, err := s.pages.TitleExists(ctx, title)
	if err != nil {
		return nil, fmt.Errorf("failed to check title %q: %w", title, err)
	}
	if exists {
		s.log.Warn(fmt.Sprintf("User %s attempted to create a page with an existing title", viewer.Email))
		return nil, ErrTitleTaken
	}

	page := &data.Page{
		Title:        title,
		Markdown:     markdown.DefaultMarkdown,
		LastEditedAt: s.now(),
		LastEditor:   viewer.DisplayName(),
	}
	if err := s.pages.CreatePage(ctx, page); err != nil {
		if errors.Is(err, data.ErrDuplicate) {
			return nil, ErrTitleTaken
		}
		return nil, err
	}
	s.invalidate()
	return page, nil
}

// CheckDeletable reports whether viewer may delete title right now.
func (s *PageService) CheckDeletable(ctx context.Context, title string, viewer Viewer) error {
	if !viewer.Role.CanDelete() {
		return ErrForbidden
	}
	if owner, locked := s.locks.Owner(title); locked && owner != viewer.Email {
		s.log.Info(fmt.Sprintf("%s attempted to access deletion page for page: %s but was denied access", viewer.Email, title))
		return &LockedError{Page: title, Owner: owner}
	}
	exists, err := s.pages.TitleExists(ctx, title)
	if err != nil {
		return fmt.Errorf("failed to check title %q: %w", title, err)
	}
	if !exists {
		return ErrPageNotFound
	}
	return nil
}

// DeletePage removes title once the confirmation matches it exactly.
func (s *PageService) DeletePage(ctx context.Context, title, confirmation string, viewer Viewer) error {
	if err := s.CheckDeletable(ctx, title, viewer); err != nil {
		return err
	}
	if confirmation != title {
		return ErrConfirmationMismatch
	}

	if err := s.pages.DeletePage(ctx, title); err != nil {
		if errors.Is(err, data.ErrNotFound) {
			return ErrPageNotFound
		}
		return fmt.Errorf("failed to delete page %q: %w", title, err)
	}
	s.locks.Release(title)
	s.invalidate()
	s.log.Info(fmt.Sprintf("Page %s deleted by %s", title, viewer.Email))
	return nil
}

// editablePage loads title after checking that viewer holds its lock.
func (s *PageService) editablePage(ctx context.Context, title string, viewer Viewer) (*data.Page, error) {
	if !viewer.Role.CanEdit() {
		return nil, ErrForbidden
	}
	if !s.locks.IsOwner(title, viewer.Email) {
		return nil, ErrNotEditing
	}
	return s.getPage(ctx, title)
}

func (s *PageService) getPage(ctx context.Context, title string) (*data.Page, error) {
	page, err := s.pages.GetPageByTitle(ctx, title)
	if err != nil {
		if errors.Is(err, data.ErrNotFound) {
			return nil, ErrPageNotFound
		}
		return nil, err
	}
	return page, nil
}

// invalidate drops cached listings after a write.
func (s *PageService) invalidate() {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(recentTitlesKey, categoryIndexKey); err != nil {
		s.log.Warn("Cache invalidation failed: " + err.Error())
	}
}
