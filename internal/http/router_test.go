package http_test

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/geocoder89/crimewatch/internal/auth"
	"github.com/geocoder89/crimewatch/internal/config"
	"github.com/geocoder89/crimewatch/internal/domain/user"
	apphttp "github.com/geocoder89/crimewatch/internal/http"
	"github.com/geocoder89/crimewatch/internal/inference"
	"github.com/geocoder89/crimewatch/internal/observability"
	"github.com/geocoder89/crimewatch/internal/repo/memory"
	"github.com/geocoder89/crimewatch/internal/security"
	"github.com/geocoder89/crimewatch/internal/session"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubPredictor struct {
	calls int
}

func (s *stubPredictor) PredictFile(ctx context.Context, fh *multipart.FileHeader) (inference.Prediction, error) {
	s.calls++
	return inference.Prediction{Label: "Robbery", Index: 9, Confidence: 0.732}, nil
}

type testApp struct {
	router    *gin.Engine
	users     *memory.UsersRepo
	predictor *stubPredictor
}

func newTestApp(t *testing.T, predictLimit int) *testApp {
	t.Helper()
	gin.SetMode(gin.TestMode)

	reg := prometheus.NewRegistry()
	app := &testApp{
		users:     memory.NewUsersRepo(),
		predictor: &stubPredictor{},
	}

	cfg := config.Config{
		Env:              "test",
		SecretKey:        "test-secret",
		SessionTTL:       time.Hour,
		MaxUploadBytes:   1 << 20,
		LoginRateLimit:   20,
		LoginRateWindow:  time.Minute,
		PredictRateLimit: predictLimit,
	}

	app.router = apphttp.NewRouter(apphttp.Deps{
		Log:       slog.New(slog.NewTextHandler(io.Discard, nil)),
		Config:    cfg,
		Users:     app.users,
		News:      memory.NewNewsRepo(),
		Incidents: memory.NewIncidentsRepo(),
		Sessions:  session.NewMemoryStore(cfg.SessionTTL),
		Tokens:    auth.NewManager(cfg.SecretKey, cfg.SessionTTL),
		Predictor: app.predictor,
		Ping:      app.users.Ping,
		Metrics:   observability.NewProm(reg),
		Gatherer:  reg,
	})
	return app
}

func (a *testApp) do(req *http.Request, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	for _, c := range cookies {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

// login goes through the real form handler and returns the session cookie.
func (a *testApp) login(t *testing.T, email, password string) *http.Cookie {
	t.Helper()

	form := url.Values{"email": {email}, "password": {password}}
	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	w := a.do(req)
	require.Equal(t, http.StatusFound, w.Code)
	require.Equal(t, "/home", w.Header().Get("Location"))

	for _, c := range w.Result().Cookies() {
		if c.Name == "session" && c.Value != "" {
			return c
		}
	}
	t.Fatalf("login did not set a session cookie")
	return nil
}

func (a *testApp) seedUser(t *testing.T, email, role, password string) {
	t.Helper()

	hash, err := security.HashPassword(password)
	require.NoError(t, err)
	_, err = a.users.Create(context.Background(), email, hash, "tester", role)
	require.NoError(t, err)
}

func uploadRequest(t *testing.T) *http.Request {
	t.Helper()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", "scene.png")
	require.NoError(t, err)
	_, _ = part.Write([]byte("not inspected by the stub"))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/predict", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestRouter_HealthAndMetrics(t *testing.T) {
	app := newTestApp(t, 10)

	w := app.do(httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))

	w = app.do(httptest.NewRequest(http.MethodGet, "/readyz", nil))
	require.Equal(t, http.StatusOK, w.Code)

	w = app.do(httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "crimewatch_http_requests_total")
}

func TestRouter_PredictRequiresSession(t *testing.T) {
	app := newTestApp(t, 10)

	w := app.do(uploadRequest(t))

	require.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/login", w.Header().Get("Location"))
	assert.Zero(t, app.predictor.calls, "classifier must not run for anonymous callers")

	metrics := app.do(httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Contains(t, metrics.Body.String(), `crimewatch_gate_denials_total{reason="unauthenticated"} 1`)
}

func TestRouter_PredictAfterLogin(t *testing.T) {
	app := newTestApp(t, 10)
	app.seedUser(t, "ada@example.com", user.RoleUser, "s3cret-pass")
	cookie := app.login(t, "ada@example.com", "s3cret-pass")

	w := app.do(uploadRequest(t), cookie)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.JSONEq(t, `{"prediction":"Robbery","confidence":"73.20%"}`, w.Body.String())
	assert.Equal(t, 1, app.predictor.calls)
}

func TestRouter_PredictRateLimited(t *testing.T) {
	app := newTestApp(t, 1)
	app.seedUser(t, "ada@example.com", user.RoleUser, "s3cret-pass")
	cookie := app.login(t, "ada@example.com", "s3cret-pass")

	first := app.do(uploadRequest(t), cookie)
	require.Equal(t, http.StatusOK, first.Code)

	second := app.do(uploadRequest(t), cookie)
	require.Equal(t, http.StatusTooManyRequests, second.Code)
	assert.NotEmpty(t, second.Header().Get("Retry-After"))
	assert.Equal(t, 1, app.predictor.calls)
}

func TestRouter_AdminPagesForbiddenForUsers(t *testing.T) {
	app := newTestApp(t, 10)
	app.seedUser(t, "ada@example.com", user.RoleUser, "s3cret-pass")
	cookie := app.login(t, "ada@example.com", "s3cret-pass")

	for _, path := range []string{"/manage_users", "/incident/dashboard", "/incident/reported_incidents"} {
		w := app.do(httptest.NewRequest(http.MethodGet, path, nil), cookie)
		assert.Equal(t, http.StatusFound, w.Code, path)
		assert.Equal(t, "/home", w.Header().Get("Location"), path)
	}
}

func TestRouter_LogoutEndsSession(t *testing.T) {
	app := newTestApp(t, 10)
	app.seedUser(t, "ada@example.com", user.RoleUser, "s3cret-pass")
	cookie := app.login(t, "ada@example.com", "s3cret-pass")

	w := app.do(httptest.NewRequest(http.MethodGet, "/logout", nil), cookie)
	require.Equal(t, http.StatusFound, w.Code)

	// the old cookie no longer resolves to a live session
	w = app.do(httptest.NewRequest(http.MethodGet, "/home", nil), cookie)
	require.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/login", w.Header().Get("Location"))
}

func TestRouter_InfoPagesRequireSession(t *testing.T) {
	app := newTestApp(t, 10)
	app.seedUser(t, "ada@example.com", user.RoleUser, "s3cret-pass")
	cookie := app.login(t, "ada@example.com", "s3cret-pass")

	for _, page := range []string{"about", "status"} {
		t.Run(page, func(t *testing.T) {
			w := app.do(httptest.NewRequest(http.MethodGet, "/"+page, nil))
			require.Equal(t, http.StatusFound, w.Code)
			assert.Equal(t, "/login", w.Header().Get("Location"))

			w = app.do(httptest.NewRequest(http.MethodGet, "/"+page, nil), cookie)
			require.Equal(t, http.StatusOK, w.Code)
			assert.JSONEq(t, `{"page":"`+page+`"}`, w.Body.String())
		})
	}
}
