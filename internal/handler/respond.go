package handler

import (
	"encoding/json"
	"fyrewiki/internal/middleware"
	"fyrewiki/internal/service"
	"net/http"
	"net/url"
	"strings"
)

// Flash titles shown by the layout.
const (
	titleLocked  = "Page Locked!"
	titleDenied  = "Access Denied!"
	titleSuccess = "Success!"
)

// viewerFrom builds the service identity of the signed-in user.
func viewerFrom(r *http.Request) service.Viewer {
	u := middleware.GetUserInfo(r.Context())
	return service.Viewer{Email: u.Email, FirstName: u.FirstName, Role: u.Role}
}

func pageURL(title string) string {
	return "/page?page=" + url.QueryEscape(title)
}

func editorURL(title string) string {
	return "/editor?page=" + url.QueryEscape(title)
}

// withFlash appends the flash query parameters picked up by middleware.Flash.
func withFlash(target, title, message string) string {
	q := url.Values{}
	q.Set("title", title)
	q.Set("message", message)
	sep := "?"
	if strings.Contains(target, "?") {
		sep = "&"
	}
	return target + sep + q.Encode()
}

// wantsJSON reports whether the caller is the editor script rather than a form post.
func wantsJSON(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "application/json") ||
		strings.HasPrefix(r.Header.Get("Content-Type"), "application/json")
}

type jsonStatus struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Page    string `json:"page,omitempty"`
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func jsonError(w http.ResponseWriter, code int, message string) {
	writeJSON(w, code, jsonStatus{Status: "error", Message: message})
}
