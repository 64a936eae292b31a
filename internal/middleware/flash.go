package middleware

import (
	"fyrewiki/internal/view"
	"net/http"
)

// Flash copies the "title" and "message" query parameters into the request
// context, where templates show them as a notice.
func Flash(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		f := view.Flash{Title: q.Get("title"), Message: q.Get("message")}
		if f.Title == "" && f.Message == "" {
			next.ServeHTTP(w, r)
			return
		}
		next.ServeHTTP(w, r.WithContext(view.WithFlash(r.Context(), f)))
	})
}
