package handlers_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/geocoder89/crimewatch/internal/domain/user"
	"github.com/geocoder89/crimewatch/internal/http/middlewares"
	"github.com/geocoder89/crimewatch/internal/security"
)

func TestSignUp_CreatesPlainUser(t *testing.T) {
	f := newFixture(t)

	w := f.serve(formRequest("/signup", url.Values{
		"username": {"ada"},
		"email":    {"ada@example.com"},
		"password": {"s3cret-pass"},
	}))

	assertRedirect(t, w, "/login")
	if fl := flashOf(t, w); fl.Category != "success" {
		t.Fatalf("unexpected flash %+v", fl)
	}

	u, err := f.users.GetByEmail(context.Background(), "ada@example.com")
	if err != nil {
		t.Fatalf("user not stored: %v", err)
	}
	if u.Role != user.RoleUser || u.Name != "ada" {
		t.Fatalf("unexpected user %+v", u)
	}
	if u.PasswordHash == "s3cret-pass" || security.CheckPassword(u.PasswordHash, "s3cret-pass") != nil {
		t.Fatalf("password must be stored hashed")
	}
}

func TestSignUp_DuplicateEmail(t *testing.T) {
	f := newFixture(t)
	f.createUser(t, "ada@example.com", "ada", user.RoleUser, "s3cret-pass")

	w := f.serve(formRequest("/signup", url.Values{
		"username": {"other"},
		"email":    {"ADA@example.com"},
		"password": {"another-pass"},
	}))

	assertRedirect(t, w, "/signup")
	if fl := flashOf(t, w); fl.Message != "User already exists!" || fl.Category != "warning" {
		t.Fatalf("unexpected flash %+v", fl)
	}

	if n, _ := f.users.Count(context.Background()); n != 1 {
		t.Fatalf("expected 1 user, got %d", n)
	}
}

func TestSignUp_MissingFields(t *testing.T) {
	f := newFixture(t)

	w := f.serve(formRequest("/signup", url.Values{"email": {"ada@example.com"}}))

	assertRedirect(t, w, "/signup")
	if n, _ := f.users.Count(context.Background()); n != 0 {
		t.Fatalf("no user should be created")
	}
}

func TestLogin_SuccessOpensSession(t *testing.T) {
	f := newFixture(t)
	f.createUser(t, "ada@example.com", "ada", user.RoleUser, "s3cret-pass")

	w := f.serve(formRequest("/login", url.Values{
		"email":    {"ada@example.com"},
		"password": {"s3cret-pass"},
	}))

	assertRedirect(t, w, "/home")

	cookie := cookieNamed(w, middlewares.SessionCookieName)
	if cookie == nil || cookie.Value == "" || !cookie.HttpOnly {
		t.Fatalf("expected an HttpOnly session cookie, got %+v", cookie)
	}

	// the cookie now opens session-only routes
	home := f.serve(httptest.NewRequest(http.MethodGet, "/home", nil), cookie)
	if home.Code != http.StatusOK {
		t.Fatalf("expected /home to be reachable, got %d", home.Code)
	}
}

func TestLogin_InvalidCredentials(t *testing.T) {
	f := newFixture(t)
	f.createUser(t, "ada@example.com", "ada", user.RoleUser, "s3cret-pass")

	for name, v := range map[string]url.Values{
		"wrong_password": {"email": {"ada@example.com"}, "password": {"nope"}},
		"unknown_email":  {"email": {"bob@example.com"}, "password": {"s3cret-pass"}},
		"missing_fields": {},
	} {
		t.Run(name, func(t *testing.T) {
			w := f.serve(formRequest("/login", v))

			assertRedirect(t, w, "/login")
			if fl := flashOf(t, w); fl.Message != "Invalid credentials" {
				t.Fatalf("unexpected flash %+v", fl)
			}
			if cookieNamed(w, middlewares.SessionCookieName) != nil {
				t.Fatalf("no session cookie on failure")
			}
		})
	}
}

func TestLogout_DestroysSession(t *testing.T) {
	f := newFixture(t)
	u := f.createUser(t, "ada@example.com", "ada", user.RoleUser, "s3cret-pass")
	cookie := f.cookieFor(t, u)

	w := f.serve(httptest.NewRequest(http.MethodGet, "/logout", nil), cookie)
	assertRedirect(t, w, "/login")

	if c := cookieNamed(w, middlewares.SessionCookieName); c == nil || c.MaxAge >= 0 {
		t.Fatalf("expected the session cookie to be cleared, got %+v", c)
	}

	// replaying the old cookie no longer works
	home := f.serve(httptest.NewRequest(http.MethodGet, "/home", nil), cookie)
	assertRedirect(t, home, "/login")
}
