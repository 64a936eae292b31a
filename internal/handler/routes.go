package handler

import (
	"io/fs"
	"net/http"

	fwmiddleware "fyrewiki/internal/middleware"
	"fyrewiki/internal/session"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Handlers bundles the route handlers mounted by NewRouter.
type Handlers struct {
	Page   *PageHandler
	Auth   *AuthHandler
	Seo    *SeoHandler
	Backup *BackupHandler
}

// NewRouter creates and configures a new chi router.
// errs adapts AppHandlers and authz guards every route except static assets.
func NewRouter(h Handlers, sm session.Manager, authz func(http.Handler) http.Handler,
	errs func(fwmiddleware.AppHandler) http.Handler, static fs.FS) *chi.Mux {
	r := chi.NewRouter()

	// A good base middleware stack
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(static))))

	r.Group(func(r chi.Router) {
		r.Use(sm.LoadAndSave)
		r.Use(fwmiddleware.Flash)
		r.Use(authz)

		r.Get("/robots.txt", h.Seo.robotsHandler)
		r.Get("/sitemap.xml", h.Seo.sitemapHandler)

		// Authentication
		r.Method(http.MethodGet, "/sign-in", errs(h.Auth.signInPageHandler))
		r.Method(http.MethodPost, "/sign-in", errs(h.Auth.signInHandler))
		r.Method(http.MethodGet, "/code", errs(h.Auth.codePageHandler))
		r.Method(http.MethodPost, "/code", errs(h.Auth.verifyCodeHandler))
		r.Method(http.MethodGet, "/sign-out", errs(h.Auth.signOutHandler))
		r.Method(http.MethodGet, "/auth/login", errs(h.Auth.handleLogin))
		r.Method(http.MethodGet, "/auth/callback", errs(h.Auth.handleCallback))

		// Reading
		r.Method(http.MethodGet, "/", errs(h.Page.dashboardHandler))
		r.Method(http.MethodGet, "/page", errs(h.Page.viewHandler))
		r.Method(http.MethodGet, "/category", errs(h.Page.categoryHandler))

		// Editing
		r.Method(http.MethodGet, "/editor", errs(h.Page.editorHandler))
		r.Method(http.MethodPost, "/active-editor", errs(h.Page.activeEditorHandler))
		r.Method(http.MethodPost, "/save-file", errs(h.Page.saveHandler))
		r.Method(http.MethodPost, "/return-to-page", errs(h.Page.returnToPageHandler))
		r.Method(http.MethodPost, "/update-page-name", errs(h.Page.updateNameHandler))
		r.Method(http.MethodPost, "/update-page-category", errs(h.Page.updateCategoryHandler))
		r.Method(http.MethodGet, "/create-page", errs(h.Page.createPageFormHandler))
		r.Method(http.MethodPost, "/create-page", errs(h.Page.createPageHandler))
		r.Method(http.MethodGet, "/download-db", errs(h.Backup.downloadHandler))

		// Administration
		r.Method(http.MethodGet, "/delete-page", errs(h.Page.deletePageFormHandler))
		r.Method(http.MethodPost, "/delete-page", errs(h.Page.deletePageHandler))
		r.Method(http.MethodGet, "/backup-db", errs(h.Backup.backupHandler))
	})

	return r
}
