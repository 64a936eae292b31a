package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"fyrewiki/internal/logger"
	"fyrewiki/internal/middleware"
	"fyrewiki/internal/service"
	"fyrewiki/internal/view"
	"net/http"
	"time"
)

// PageHandler holds the dependencies for the page handlers.
type PageHandler struct {
	pageService  service.PageServicer
	view         *view.View
	log          logger.Logger
	pingInterval time.Duration
}

// NewPageHandler creates a new PageHandler with the given dependencies.
func NewPageHandler(ps service.PageServicer, v *view.View, log logger.Logger, pingInterval time.Duration) *PageHandler {
	return &PageHandler{
		pageService:  ps,
		view:         v,
		log:          log,
		pingInterval: pingInterval,
	}
}

func (h *PageHandler) render(w http.ResponseWriter, r *http.Request, code int, name string, data map[string]interface{}) *middleware.AppError {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if code != http.StatusOK {
		w.WriteHeader(code)
	}
	if err := h.view.Render(w, r, name, data); err != nil {
		return &middleware.AppError{Error: err, Message: "Failed to render " + name, Code: http.StatusInternalServerError}
	}
	return nil
}

func (h *PageHandler) notFound(w http.ResponseWriter, r *http.Request, title string) *middleware.AppError {
	return h.render(w, r, http.StatusNotFound, "404.html", map[string]interface{}{"Title": title})
}

// dashboardHandler lists every page grouped by category.
func (h *PageHandler) dashboardHandler(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	groups, err := h.pageService.OrganizedPages(r.Context())
	if err != nil {
		return &middleware.AppError{Error: err, Message: "Failed to load pages", Code: http.StatusInternalServerError}
	}
	return h.render(w, r, http.StatusOK, "dashboard.html", map[string]interface{}{"Groups": groups})
}

// categoryHandler lists the pages filed under one category.
func (h *PageHandler) categoryHandler(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	name := r.URL.Query().Get("name")
	titles, err := h.pageService.PagesInCategory(r.Context(), name)
	if err != nil {
		return &middleware.AppError{Error: err, Message: "Failed to load category", Code: http.StatusInternalServerError}
	}
	return h.render(w, r, http.StatusOK, "category.html", map[string]interface{}{"Name": name, "Titles": titles})
}

// viewHandler renders a page.
func (h *PageHandler) viewHandler(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	title := r.URL.Query().Get("page")

	page, err := h.pageService.ViewPage(r.Context(), title, viewerFrom(r))
	if errors.Is(err, service.ErrPageNotFound) {
		return h.notFound(w, r, title)
	}
	if err != nil {
		return &middleware.AppError{Error: err, Message: "Failed to load page", Code: http.StatusInternalServerError}
	}
	return h.render(w, r, http.StatusOK, "page.html", map[string]interface{}{"Page": page})
}

// editorHandler opens the editor, taking the page's edit lock.
func (h *PageHandler) editorHandler(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	title := r.URL.Query().Get("page")

	state, err := h.pageService.OpenEditor(r.Context(), title, viewerFrom(r))
	switch {
	case err == nil:
	case errors.Is(err, service.ErrPageLocked):
		http.Redirect(w, r, withFlash(pageURL(title), titleLocked,
			"The page editor is locked as it is currently being edited. Please wait for the editor to finish."), http.StatusFound)
		return nil
	case errors.Is(err, service.ErrForbidden):
		http.Redirect(w, r, withFlash(pageURL(title), titleDenied,
			"You do not have the permissions to access the editor for this page!"), http.StatusFound)
		return nil
	case errors.Is(err, service.ErrPageNotFound):
		return h.notFound(w, r, title)
	default:
		return &middleware.AppError{Error: err, Message: "Failed to open editor", Code: http.StatusInternalServerError}
	}

	return h.render(w, r, http.StatusOK, "editor.html", map[string]interface{}{
		"Editor":       state,
		"PingInterval": h.pingInterval.Milliseconds(),
	})
}

type pingRequest struct {
	Page string `json:"page"`
}

// activeEditorHandler receives the editor's liveness pings.
func (h *PageHandler) activeEditorHandler(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	var req pingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Page == "" {
		jsonError(w, http.StatusBadRequest, "request body must be {\"page\": <title>}")
		return nil
	}

	err := h.pageService.Ping(r.Context(), req.Page, viewerFrom(r))
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, jsonStatus{Status: "success"})
	case errors.Is(err, service.ErrPageLocked):
		jsonError(w, http.StatusConflict, err.Error())
	case errors.Is(err, service.ErrForbidden):
		jsonError(w, http.StatusForbidden, err.Error())
	default:
		h.log.Error(err, "Error in active editor ping")
		jsonError(w, http.StatusInternalServerError, "ping failed")
	}
	return nil
}

// editError answers a failed editor write, as JSON for the editor script or
// as a redirect with a notice for a plain form post.
func (h *PageHandler) editError(w http.ResponseWriter, r *http.Request, title string, err error) *middleware.AppError {
	code := http.StatusInternalServerError
	switch {
	case errors.Is(err, service.ErrNotEditing), errors.Is(err, service.ErrForbidden):
		code = http.StatusForbidden
	case errors.Is(err, service.ErrTitleTaken):
		code = http.StatusConflict
	case errors.Is(err, service.ErrInvalidTitle):
		code = http.StatusBadRequest
	case errors.Is(err, service.ErrPageNotFound):
		code = http.StatusNotFound
	}
	if code == http.StatusInternalServerError {
		return &middleware.AppError{Error: err, Message: "Failed to update page", Code: code}
	}

	if wantsJSON(r) {
		jsonError(w, code, err.Error())
		return nil
	}
	if code == http.StatusForbidden {
		http.Redirect(w, r, withFlash(pageURL(title), titleDenied,
			"Your request was denied because you are not currently editing the document!"), http.StatusSeeOther)
		return nil
	}
	http.Redirect(w, r, withFlash(editorURL(title), "Update Failed", err.Error()), http.StatusSeeOther)
	return nil
}

// saveHandler stores the editor content and keeps the lock.
func (h *PageHandler) saveHandler(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	title := r.FormValue("page")
	if err := h.pageService.SavePage(r.Context(), title, r.FormValue("editorContent"), viewerFrom(r)); err != nil {
		return h.editError(w, r, title, err)
	}
	if wantsJSON(r) {
		writeJSON(w, http.StatusOK, jsonStatus{Status: "success", Page: title})
		return nil
	}
	http.Redirect(w, r, editorURL(title), http.StatusSeeOther)
	return nil
}

// returnToPageHandler saves, releases the lock and shows the page.
func (h *PageHandler) returnToPageHandler(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	title := r.FormValue("page")
	if err := h.pageService.ReturnToPage(r.Context(), title, r.FormValue("editorContent"), viewerFrom(r)); err != nil {
		return h.editError(w, r, title, err)
	}
	http.Redirect(w, r, pageURL(title), http.StatusSeeOther)
	return nil
}

// updateNameHandler renames the page being edited.
func (h *PageHandler) updateNameHandler(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	title := r.FormValue("page")
	newTitle := r.FormValue("new_page")
	if err := h.pageService.RenamePage(r.Context(), title, newTitle, viewerFrom(r)); err != nil {
		return h.editError(w, r, title, err)
	}
	if wantsJSON(r) {
		writeJSON(w, http.StatusOK, jsonStatus{Status: "success", Page: newTitle})
		return nil
	}
	http.Redirect(w, r, editorURL(newTitle), http.StatusSeeOther)
	return nil
}

// updateCategoryHandler replaces the category list of the page being edited.
func (h *PageHandler) updateCategoryHandler(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	title := r.FormValue("page")
	if err := h.pageService.UpdateCategory(r.Context(), title, r.FormValue("new_category"), viewerFrom(r)); err != nil {
		return h.editError(w, r, title, err)
	}
	if wantsJSON(r) {
		writeJSON(w, http.StatusOK, jsonStatus{Status: "success", Page: title})
		return nil
	}
	http.Redirect(w, r, editorURL(title), http.StatusSeeOther)
	return nil
}

// createPageFormHandler shows the new page form.
func (h *PageHandler) createPageFormHandler(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	if !viewerFrom(r).Role.CanEdit() {
		http.Redirect(w, r, withFlash("/", titleDenied, "You do not have the permissions to create a page!"), http.StatusFound)
		return nil
	}
	return h.render(w, r, http.StatusOK, "create-page.html", nil)
}

// createPageHandler creates a page and opens it in the editor.
func (h *PageHandler) createPageHandler(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	page, err := h.pageService.CreatePage(r.Context(), r.FormValue("pageTitle"), viewerFrom(r))
	switch {
	case err == nil:
		http.Redirect(w, r, editorURL(page.Title), http.StatusSeeOther)
		return nil
	case errors.Is(err, service.ErrForbidden):
		http.Redirect(w, r, withFlash("/", titleDenied, "You do not have the permissions to create a page!"), http.StatusSeeOther)
		return nil
	case errors.Is(err, service.ErrTitleTaken), errors.Is(err, service.ErrInvalidTitle):
		msg := "That page already exists!"
		if errors.Is(err, service.ErrInvalidTitle) {
			msg = "Page title cannot be empty!"
		}
		return h.render(w, r, http.StatusUnprocessableEntity, "create-page.html", map[string]interface{}{"Message": msg})
	default:
		return &middleware.AppError{Error: err, Message: "Failed to create page", Code: http.StatusInternalServerError}
	}
}

// deleteError answers a refused deletion.
func (h *PageHandler) deleteError(w http.ResponseWriter, r *http.Request, title string, err error) *middleware.AppError {
	switch {
	case errors.Is(err, service.ErrForbidden):
		http.Redirect(w, r, withFlash("/", titleDenied, "You do not have the permissions to delete a page!"), http.StatusSeeOther)
	case errors.Is(err, service.ErrPageLocked):
		http.Redirect(w, r, withFlash(pageURL(title), titleLocked,
			"Page deletion is not allowed while the page is being edited. Please wait for the editor to finish."), http.StatusSeeOther)
	case errors.Is(err, service.ErrPageNotFound):
		return h.notFound(w, r, title)
	case errors.Is(err, service.ErrConfirmationMismatch):
		return h.render(w, r, http.StatusUnprocessableEntity, "delete-page.html", map[string]interface{}{
			"Page":    title,
			"Message": "Page title does not match!",
		})
	default:
		return &middleware.AppError{Error: err, Message: "Failed to delete page", Code: http.StatusInternalServerError}
	}
	return nil
}

// deletePageFormHandler shows the delete confirmation form.
func (h *PageHandler) deletePageFormHandler(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	title := r.URL.Query().Get("page")
	if err := h.pageService.CheckDeletable(r.Context(), title, viewerFrom(r)); err != nil {
		return h.deleteError(w, r, title, err)
	}
	return h.render(w, r, http.StatusOK, "delete-page.html", map[string]interface{}{"Page": title})
}

// deletePageHandler deletes the page once its title is typed back.
func (h *PageHandler) deletePageHandler(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	title := r.URL.Query().Get("page")
	if err := h.pageService.DeletePage(r.Context(), title, r.FormValue("pageTitle"), viewerFrom(r)); err != nil {
		return h.deleteError(w, r, title, err)
	}
	http.Redirect(w, r, withFlash("/", titleSuccess, fmt.Sprintf("Page: %q was successfully deleted!", title)), http.StatusSeeOther)
	return nil
}
