package middleware

import (
	"fyrewiki/internal/data"
	"fyrewiki/internal/session"
	"fyrewiki/internal/view"
	"net/http"

	"github.com/casbin/casbin/v2"
)

// Authorizer creates a new middleware for authorization.
// It loads the signed-in user from the session and checks the request
// against the casbin policies for the user's role. Anonymous requests that
// are denied are sent to the sign-in page.
func Authorizer(e casbin.IEnforcer, sm session.Manager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			user := &UserInfo{
				Email:     sm.GetString(ctx, session.KeyEmail),
				FirstName: sm.GetString(ctx, session.KeyFirstName),
				Role:      data.ParseRole(sm.GetString(ctx, session.KeyRole)),
			}

			ctx = SetUserInfo(ctx, user)
			if !user.Anonymous() {
				ctx = view.WithAccount(ctx, view.Account{FirstName: user.FirstName, Role: user.Role})
			}
			r = r.WithContext(ctx)

			allowed, err := e.Enforce(user.Subject(), r.URL.Path, r.Method)
			if err != nil {
				http.Error(w, "Authorization error", http.StatusInternalServerError)
				return
			}

			if !allowed {
				if user.Anonymous() {
					http.Redirect(w, r, "/sign-in", http.StatusSeeOther)
					return
				}
				http.Error(w, "Forbidden", http.StatusForbidden)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
