//go:build integration

package handler

import (
	"context"
	"fyrewiki/internal/auth"
	"fyrewiki/internal/backup"
	"fyrewiki/internal/cache"
	"fyrewiki/internal/config"
	"fyrewiki/internal/data"
	"fyrewiki/internal/editlock"
	"fyrewiki/internal/logger"
	"fyrewiki/internal/middleware"
	"fyrewiki/internal/service"
	"fyrewiki/internal/view"
	"fyrewiki/web"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/alexedwards/scs/sqlite3store"
	"github.com/alexedwards/scs/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testApp struct {
	Server *httptest.Server
	Users  *data.SQLUserRepository
	Mail   *recordingSender
}

// setupIntegrationTest initializes a full application stack for testing.
func setupIntegrationTest(t *testing.T) *testApp {
	t.Helper()
	db, err := data.NewDB(config.DBConfig{Driver: data.DriverSQLite, DSN: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, data.ApplyMigrations(db))

	log := logger.Nop()
	v, err := view.New(web.TemplateFS)
	require.NoError(t, err)

	c, err := cache.New(config.CacheConfig{FilePath: "file::memory:", TTL: time.Minute})
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })

	pageService := service.NewPageService(
		data.NewSQLPageRepository(db),
		data.NewCategoryRepository(db),
		c,
		editlock.New(),
		service.RetryPolicy{Attempts: 1},
		log,
	)

	sessionManager := scs.New()
	sessionManager.Store = sqlite3store.New(db.DB)
	sessionManager.Lifetime = 3 * time.Minute

	enforcer, err := auth.NewMemoryEnforcer()
	require.NoError(t, err)
	auth.SeedDefaultPolicies(enforcer, log)

	limiter := auth.NewLimiter(5, time.Minute)
	t.Cleanup(limiter.Stop)

	users := data.NewSQLUserRepository(db)
	mail := &recordingSender{}
	handlers := Handlers{
		Page:   NewPageHandler(pageService, v, log, 10*time.Second),
		Auth:   NewAuthHandler(users, sessionManager, mail, limiter, nil, v, log, 10*time.Minute),
		Seo:    NewSeoHandler(pageService, "http://wiki.test", log),
		Backup: NewBackupHandler(backup.NewManager(db, ":memory:", config.BackupConfig{Dir: t.TempDir()}, log), log),
	}
	router := NewRouter(handlers, sessionManager,
		middleware.Authorizer(enforcer, sessionManager),
		middleware.Error(log, v),
		web.Static())

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return &testApp{Server: srv, Users: users, Mail: mail}
}

// client returns a cookie-keeping client that does not follow redirects.
func (app *testApp) client(t *testing.T) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &http.Client{
		Jar: jar,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

func (app *testApp) createUser(t *testing.T, email string, role data.Role) {
	t.Helper()
	hash, err := auth.HashPassword("secret")
	require.NoError(t, err)
	require.NoError(t, app.Users.CreateUser(context.Background(), &data.User{
		Email: email, FirstName: "Test", PasswordHash: hash, Role: role,
	}))
}

var codePattern = regexp.MustCompile(`\b(\d{6})\b`)

// signIn walks the password and emailed code flow.
func (app *testApp) signIn(t *testing.T, c *http.Client, email string) {
	t.Helper()
	resp, err := c.PostForm(app.Server.URL+"/sign-in", url.Values{"email": {email}, "password": {"secret"}})
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	require.Equal(t, "/code", resp.Header.Get("Location"))

	require.NotEmpty(t, app.Mail.sent)
	m := codePattern.FindStringSubmatch(app.Mail.sent[len(app.Mail.sent)-1].Body)
	require.Len(t, m, 2)

	resp, err = c.PostForm(app.Server.URL+"/code", codeForm(m[1]))
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	require.Equal(t, "/", resp.Header.Get("Location"))
}

func get(t *testing.T, c *http.Client, target string) (*http.Response, string) {
	t.Helper()
	resp, err := c.Get(target)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(body)
}

func TestAuthzMiddleware(t *testing.T) {
	app := setupIntegrationTest(t)
	c := app.client(t)

	testCases := []struct {
		name       string
		path       string
		wantStatus int
	}{
		{"Anonymous can see sign-in", "/sign-in", http.StatusOK},
		{"Anonymous can read robots.txt", "/robots.txt", http.StatusOK},
		{"Static assets are public", "/static/css/wiki.css", http.StatusOK},
		{"Anonymous is sent to sign-in from dashboard", "/", http.StatusSeeOther},
		{"Anonymous is sent to sign-in from editor", "/editor?page=Home", http.StatusSeeOther},
		{"Anonymous is sent to sign-in from backups", "/backup-db", http.StatusSeeOther},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			resp, _ := get(t, c, app.Server.URL+tc.path)
			assert.Equal(t, tc.wantStatus, resp.StatusCode)
			if tc.wantStatus == http.StatusSeeOther {
				assert.Equal(t, "/sign-in", resp.Header.Get("Location"))
			}
		})
	}
}

func TestEditingFlow(t *testing.T) {
	app := setupIntegrationTest(t)
	app.createUser(t, "ada@example.com", data.RoleEditor)
	c := app.client(t)
	app.signIn(t, c, "ada@example.com")

	resp, body := get(t, c, app.Server.URL+"/")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "Hello, Test")

	resp, err := c.PostForm(app.Server.URL+"/create-page", url.Values{"pageTitle": {"Field Notes"}})
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/editor?page=Field+Notes", resp.Header.Get("Location"))

	resp, body = get(t, c, app.Server.URL+"/editor?page=Field+Notes")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, `id="editorContent"`)

	ping, err := http.NewRequest("POST", app.Server.URL+"/active-editor", strings.NewReader(`{"page":"Field Notes"}`))
	require.NoError(t, err)
	ping.Header.Set("Content-Type", "application/json")
	resp, err = c.Do(ping)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = c.PostForm(app.Server.URL+"/return-to-page", url.Values{
		"page":          {"Field Notes"},
		"editorContent": {"# Observations\n\nThe **river** rose."},
	})
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)

	resp, body = get(t, c, app.Server.URL+"/page?page=Field+Notes")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "<strong>river</strong>")
	assert.Contains(t, body, "Observations")

	// Editors may not delete.
	resp, _ = get(t, c, app.Server.URL+"/delete-page?page=Field+Notes")
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, body = get(t, c, app.Server.URL+"/sitemap.xml")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "http://wiki.test/page?page=Field+Notes")
}

func TestEditLockIsExclusiveAcrossSessions(t *testing.T) {
	app := setupIntegrationTest(t)
	app.createUser(t, "ada@example.com", data.RoleEditor)
	app.createUser(t, "bob@example.com", data.RoleEditor)

	ada := app.client(t)
	app.signIn(t, ada, "ada@example.com")
	bob := app.client(t)
	app.signIn(t, bob, "bob@example.com")

	resp, err := ada.PostForm(app.Server.URL+"/create-page", url.Values{"pageTitle": {"Shared"}})
	require.NoError(t, err)
	resp.Body.Close()
	resp, _ = get(t, ada, app.Server.URL+"/editor?page=Shared")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = get(t, bob, app.Server.URL+"/editor?page=Shared")
	require.Equal(t, http.StatusFound, resp.StatusCode)
	loc, err := url.Parse(resp.Header.Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, "Page Locked!", loc.Query().Get("title"))

	resp, err = bob.PostForm(app.Server.URL+"/save-file", url.Values{"page": {"Shared"}, "editorContent": {"vandalism"}})
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	loc, _ = url.Parse(resp.Header.Get("Location"))
	assert.Equal(t, "Access Denied!", loc.Query().Get("title"))
}
