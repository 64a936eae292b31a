package handler

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fyrewiki/internal/auth"
	"fyrewiki/internal/data"
	"fyrewiki/internal/logger"
	"fyrewiki/internal/mailer"
	"fyrewiki/internal/middleware"
	"fyrewiki/internal/session"
	"fyrewiki/internal/view"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// UserStore looks up accounts by email.
type UserStore interface {
	GetByEmail(ctx context.Context, email string) (*data.User, error)
}

// AuthHandler holds the dependencies for the authentication handlers.
type AuthHandler struct {
	users    UserStore
	sessions session.Manager
	mail     mailer.Sender
	limiter  *auth.Limiter
	auth     *auth.Authenticator
	view     *view.View
	log      logger.Logger
	codeTTL  time.Duration
	now      func() time.Time
}

// NewAuthHandler creates a new AuthHandler. a may be nil when single sign-on is disabled.
func NewAuthHandler(users UserStore, sm session.Manager, mail mailer.Sender, limiter *auth.Limiter,
	a *auth.Authenticator, v *view.View, log logger.Logger, codeTTL time.Duration) *AuthHandler {
	return &AuthHandler{
		users:    users,
		sessions: sm,
		mail:     mail,
		limiter:  limiter,
		auth:     a,
		view:     v,
		log:      log,
		codeTTL:  codeTTL,
		now:      time.Now,
	}
}

func (h *AuthHandler) render(w http.ResponseWriter, r *http.Request, code int, name string, data map[string]interface{}) *middleware.AppError {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if code != http.StatusOK {
		w.WriteHeader(code)
	}
	if err := h.view.Render(w, r, name, data); err != nil {
		return &middleware.AppError{Error: err, Message: "Failed to render " + name, Code: http.StatusInternalServerError}
	}
	return nil
}

func (h *AuthHandler) signInForm(w http.ResponseWriter, r *http.Request, code int, email, message string) *middleware.AppError {
	return h.render(w, r, code, "sign-in.html", map[string]interface{}{
		"Email":       email,
		"Message":     message,
		"OIDCEnabled": h.auth != nil,
	})
}

// signInPageHandler shows the sign-in form.
func (h *AuthHandler) signInPageHandler(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	if h.sessions.GetString(r.Context(), session.KeyEmail) != "" {
		http.Redirect(w, r, "/", http.StatusFound)
		return nil
	}
	return h.signInForm(w, r, http.StatusOK, "", "")
}

// signInHandler checks the password and mails a one-time code.
func (h *AuthHandler) signInHandler(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	ctx := r.Context()
	email := strings.ToLower(strings.TrimSpace(r.FormValue("email")))
	password := r.FormValue("password")

	if !h.limiter.Check(email) {
		return h.signInForm(w, r, http.StatusTooManyRequests, email, "Too many attempts. Please try again later.")
	}

	user, err := h.users.GetByEmail(ctx, email)
	if err != nil && !errors.Is(err, data.ErrNotFound) {
		return &middleware.AppError{Error: err, Message: "Failed to look up user", Code: http.StatusInternalServerError}
	}
	if user == nil || auth.CheckPassword(user.PasswordHash, password) != nil {
		h.limiter.Record(email)
		return h.signInForm(w, r, http.StatusUnauthorized, email, "Incorrect email or password.")
	}

	pending, err := auth.NewPendingCode(user.Email, h.codeTTL, h.now())
	if err != nil {
		return &middleware.AppError{Error: err, Message: "Failed to generate code", Code: http.StatusInternalServerError}
	}
	if err := h.mail.Send(ctx, mailer.CodeMessage(user.Email, user.FirstName, pending.Code)); err != nil {
		return &middleware.AppError{Error: err, Message: "Failed to send verification code", Code: http.StatusInternalServerError}
	}

	h.sessions.Put(ctx, session.KeyPendingEmail, pending.Email)
	h.sessions.Put(ctx, session.KeyPendingCode, pending.Code)
	h.sessions.Put(ctx, session.KeyPendingExpires, pending.ExpiresAt)
	http.Redirect(w, r, "/code", http.StatusSeeOther)
	return nil
}

// codePageHandler shows the code entry form.
func (h *AuthHandler) codePageHandler(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	email := h.sessions.GetString(r.Context(), session.KeyPendingEmail)
	if email == "" {
		http.Redirect(w, r, "/sign-in", http.StatusFound)
		return nil
	}
	return h.render(w, r, http.StatusOK, "verify.html", map[string]interface{}{"Email": email})
}

// verifyCodeHandler signs the user in once the mailed code is entered.
func (h *AuthHandler) verifyCodeHandler(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	ctx := r.Context()
	pending := &auth.PendingCode{
		Email:     h.sessions.GetString(ctx, session.KeyPendingEmail),
		Code:      h.sessions.GetString(ctx, session.KeyPendingCode),
		ExpiresAt: h.sessions.GetTime(ctx, session.KeyPendingExpires),
	}
	if pending.Email == "" {
		http.Redirect(w, r, "/sign-in", http.StatusSeeOther)
		return nil
	}

	if !h.limiter.Check(pending.Email) {
		return h.render(w, r, http.StatusTooManyRequests, "verify.html", map[string]interface{}{
			"Email":   pending.Email,
			"Message": "Too many attempts. Please try again later.",
		})
	}

	var input strings.Builder
	for i := 1; i <= auth.CodeLength; i++ {
		input.WriteString(strings.TrimSpace(r.FormValue("num" + strconv.Itoa(i))))
	}

	now := h.now()
	if !now.Before(pending.ExpiresAt) {
		h.clearPending(ctx)
		return h.signInForm(w, r, http.StatusUnauthorized, pending.Email, "Your code has expired. Please sign in again.")
	}
	if !pending.Matches(input.String(), now) {
		h.limiter.Record(pending.Email)
		return h.render(w, r, http.StatusUnauthorized, "verify.html", map[string]interface{}{
			"Email":   pending.Email,
			"Message": "Incorrect code.",
		})
	}

	user, err := h.users.GetByEmail(ctx, pending.Email)
	if err != nil {
		return &middleware.AppError{Error: err, Message: "Failed to look up user", Code: http.StatusInternalServerError}
	}
	h.clearPending(ctx)
	h.limiter.Reset(pending.Email)
	if err := h.startSession(ctx, user.Email, user.FirstName, user.Role); err != nil {
		return &middleware.AppError{Error: err, Message: "Failed to start session", Code: http.StatusInternalServerError}
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
	return nil
}

func (h *AuthHandler) clearPending(ctx context.Context) {
	h.sessions.Remove(ctx, session.KeyPendingEmail)
	h.sessions.Remove(ctx, session.KeyPendingCode)
	h.sessions.Remove(ctx, session.KeyPendingExpires)
}

func (h *AuthHandler) startSession(ctx context.Context, email, firstName string, role data.Role) error {
	if err := h.sessions.RenewToken(ctx); err != nil {
		return err
	}
	h.sessions.Put(ctx, session.KeyEmail, email)
	h.sessions.Put(ctx, session.KeyFirstName, firstName)
	h.sessions.Put(ctx, session.KeyRole, string(role))
	h.log.With(map[string]interface{}{"email": email, "role": string(role)}).Info("User signed in")
	return nil
}

// signOutHandler ends the session.
func (h *AuthHandler) signOutHandler(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	if err := h.sessions.Destroy(r.Context()); err != nil {
		return &middleware.AppError{Error: err, Message: "Failed to sign out", Code: http.StatusInternalServerError}
	}
	http.Redirect(w, r, "/sign-in", http.StatusFound)
	return nil
}

// handleLogin redirects the user to the OIDC provider to log in.
// It uses a random 'state' string for CSRF protection.
func (h *AuthHandler) handleLogin(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	if h.auth == nil {
		http.NotFound(w, r)
		return nil
	}
	state, err := randString(16)
	if err != nil {
		return &middleware.AppError{Error: err, Message: "Failed to start login", Code: http.StatusInternalServerError}
	}
	// Store the state in a short-lived cookie to verify on callback.
	http.SetCookie(w, &http.Cookie{
		Name:     "state",
		Value:    state,
		Path:     "/",
		MaxAge:   int(10 * time.Minute / time.Second),
		HttpOnly: true,
		Secure:   r.TLS != nil,
	})
	http.Redirect(w, r, h.auth.AuthCodeURL(state), http.StatusFound)
	return nil
}

// handleCallback is the redirect URL for the OIDC provider. Only accounts
// that already exist may sign in this way; the role comes from the users table.
func (h *AuthHandler) handleCallback(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	if h.auth == nil {
		http.NotFound(w, r)
		return nil
	}
	stateCookie, err := r.Cookie("state")
	if err != nil {
		return &middleware.AppError{Error: err, Message: "state cookie not found", Code: http.StatusBadRequest}
	}
	if r.URL.Query().Get("state") != stateCookie.Value {
		return &middleware.AppError{Error: errors.New("oidc state mismatch"), Message: "state did not match", Code: http.StatusBadRequest}
	}

	claims, err := h.auth.Exchange(r.Context(), r.URL.Query().Get("code"))
	if err != nil {
		return &middleware.AppError{Error: err, Message: "Failed to verify sign-in", Code: http.StatusUnauthorized}
	}

	user, err := h.users.GetByEmail(r.Context(), claims.Email)
	if errors.Is(err, data.ErrNotFound) {
		return h.signInForm(w, r, http.StatusForbidden, claims.Email, "No wiki account exists for that email.")
	}
	if err != nil {
		return &middleware.AppError{Error: err, Message: "Failed to look up user", Code: http.StatusInternalServerError}
	}

	firstName := user.FirstName
	if firstName == "" {
		firstName = claims.GivenName
	}
	if err := h.startSession(r.Context(), user.Email, firstName, user.Role); err != nil {
		return &middleware.AppError{Error: err, Message: "Failed to start session", Code: http.StatusInternalServerError}
	}
	http.Redirect(w, r, "/", http.StatusFound)
	return nil
}

// randString is a helper function to generate a random string for the 'state' parameter.
func randString(nByte int) (string, error) {
	b := make([]byte, nByte)
	if _, err := io.ReadFull(rand.Reader, b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
