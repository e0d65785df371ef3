package handlers_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/geocoder89/crimewatch/internal/auth"
	"github.com/geocoder89/crimewatch/internal/config"
	"github.com/geocoder89/crimewatch/internal/domain/user"
	"github.com/geocoder89/crimewatch/internal/http/handlers"
	"github.com/geocoder89/crimewatch/internal/http/middlewares"
	"github.com/geocoder89/crimewatch/internal/repo/memory"
	"github.com/geocoder89/crimewatch/internal/security"
	"github.com/geocoder89/crimewatch/internal/session"
	"github.com/gin-gonic/gin"
)

// Make sure Gin does not spam the console during the test
func init() {
	gin.SetMode(gin.TestMode)
}

type fixture struct {
	router    *gin.Engine
	users     *memory.UsersRepo
	news      *memory.NewsRepo
	incidents *memory.IncidentsRepo
	sessions  *session.MemoryStore
	tokens    *auth.Manager
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		users:     memory.NewUsersRepo(),
		news:      memory.NewNewsRepo(),
		incidents: memory.NewIncidentsRepo(),
		sessions:  session.NewMemoryStore(time.Hour),
		tokens:    auth.NewManager("test-secret", time.Hour),
	}

	cfg := config.Config{Env: "test", SessionTTL: time.Hour}
	gate := middlewares.NewSessionGate(f.tokens, f.sessions, nil, nil)

	authH := handlers.NewAuthHandler(f.users, f.sessions, f.tokens, cfg, nil)
	usersH := handlers.NewUsersHandler(f.users, f.sessions, nil)
	newsH := handlers.NewNewsHandler(f.news)
	incH := handlers.NewIncidentsHandler(f.incidents)

	r := gin.New()
	r.Use(gate.LoadSession())
	r.POST("/signup", authH.SignUp)
	r.POST("/login", authH.Login)
	r.GET("/logout", gate.RequireSession(), authH.Logout)
	r.GET("/manage_users", gate.RequireAdmin(), usersH.ManageUsers)
	r.POST("/update_user_role", gate.RequireAdmin(), usersH.UpdateRole)
	r.POST("/delete_user", gate.RequireAdmin(), usersH.DeleteUser)
	r.GET("/home", gate.RequireSession(), newsH.Home)
	r.POST("/news/", gate.RequireAdmin(), newsH.Create)
	r.POST("/incident/report_incident", gate.RequireSession(), incH.Report)
	r.GET("/incident/reported_incidents", gate.RequireAdmin(), incH.Reported)
	r.GET("/incident/dashboard", gate.RequireAdmin(), incH.Dashboard)
	r.POST("/incident/update_status/:id", gate.RequireAdmin(), incH.UpdateStatus)
	r.POST("/resolve/:id", gate.RequireAdmin(), incH.Resolve)

	f.router = r
	return f
}

func (f *fixture) createUser(t *testing.T, email, name, role, password string) user.User {
	t.Helper()

	hash, err := security.HashPassword(password)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	u, err := f.users.Create(context.Background(), email, hash, name, role)
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	return u
}

// cookieFor opens a session for u directly, skipping the login form.
func (f *fixture) cookieFor(t *testing.T, u user.User) *http.Cookie {
	t.Helper()

	s := session.New(u, time.Hour, time.Now())
	if err := f.sessions.Create(context.Background(), s); err != nil {
		t.Fatalf("session: %v", err)
	}
	tok, err := f.tokens.GenerateSessionToken(s.ID, s.UserID, s.ExpiresAt)
	if err != nil {
		t.Fatalf("token: %v", err)
	}
	return &http.Cookie{Name: middlewares.SessionCookieName, Value: tok}
}

func (f *fixture) serve(req *http.Request, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	for _, c := range cookies {
		if c != nil {
			req.AddCookie(c)
		}
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func formRequest(path string, v url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(v.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func jsonRequest(path, body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func cookieNamed(w *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range w.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// flashOf decodes the flash cookie set by a redirecting handler.
func flashOf(t *testing.T, w *httptest.ResponseRecorder) middlewares.Flash {
	t.Helper()

	c := cookieNamed(w, "flash")
	if c == nil {
		t.Fatalf("expected a flash cookie, headers=%v", w.Header())
	}
	raw, err := url.QueryUnescape(c.Value)
	if err != nil {
		t.Fatalf("unescape flash: %v", err)
	}
	category, message, _ := strings.Cut(raw, "|")
	return middlewares.Flash{Category: category, Message: message}
}

func assertRedirect(t *testing.T, w *httptest.ResponseRecorder, location string) {
	t.Helper()

	if w.Code != http.StatusFound {
		t.Fatalf("got status %d, want 302, body=%s", w.Code, w.Body.String())
	}
	if got := w.Header().Get("Location"); got != location {
		t.Fatalf("got Location %q, want %q", got, location)
	}
}
