package handlers_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/geocoder89/crimewatch/internal/domain/user"
	"github.com/geocoder89/crimewatch/internal/http/handlers"
	"github.com/geocoder89/crimewatch/internal/repo/memory"
	"github.com/gin-gonic/gin"
)

func TestManageUsers_ListsWithoutHashes(t *testing.T) {
	f := newFixture(t)
	admin := f.createUser(t, "admin@example.com", "admin", user.RoleAdmin, "admin-pass")
	f.createUser(t, "ada@example.com", "ada", user.RoleUser, "s3cret-pass")

	w := f.serve(httptest.NewRequest(http.MethodGet, "/manage_users", nil), f.cookieFor(t, admin))
	if w.Code != http.StatusOK {
		t.Fatalf("got %d", w.Code)
	}
	if strings.Contains(strings.ToLower(w.Body.String()), "password") || strings.Contains(w.Body.String(), "$2a$") {
		t.Fatalf("password hashes must not be exposed: %s", w.Body.String())
	}

	var resp struct {
		Users []user.User `json:"users"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Users) != 2 {
		t.Fatalf("expected 2 users, got %d", len(resp.Users))
	}
}

func TestManageUsers_NonAdminForbidden(t *testing.T) {
	f := newFixture(t)
	member := f.createUser(t, "ada@example.com", "ada", user.RoleUser, "s3cret-pass")

	w := f.serve(httptest.NewRequest(http.MethodGet, "/manage_users", nil), f.cookieFor(t, member))
	assertRedirect(t, w, "/home")
	if fl := flashOf(t, w); fl.Message != "Access denied: Admins only" {
		t.Fatalf("unexpected flash %+v", fl)
	}
}

func TestUpdateRole(t *testing.T) {
	f := newFixture(t)
	admin := f.createUser(t, "admin@example.com", "admin", user.RoleAdmin, "admin-pass")
	member := f.createUser(t, "ada@example.com", "ada", user.RoleUser, "s3cret-pass")
	memberCookie := f.cookieFor(t, member)
	adminCookie := f.cookieFor(t, admin)

	w := f.serve(formRequest("/update_user_role", url.Values{
		"user_id":  {member.ID},
		"new_role": {user.RoleAdmin},
	}), adminCookie)
	assertRedirect(t, w, "/manage_users")

	got, _ := f.users.GetByID(context.Background(), member.ID)
	if got.Role != user.RoleAdmin {
		t.Fatalf("role not updated: %+v", got)
	}

	// the promoted user has to sign in again to pick up the new role
	home := f.serve(httptest.NewRequest(http.MethodGet, "/home", nil), memberCookie)
	assertRedirect(t, home, "/login")
}

func TestUpdateRole_RejectsUnknownRole(t *testing.T) {
	f := newFixture(t)
	admin := f.createUser(t, "admin@example.com", "admin", user.RoleAdmin, "admin-pass")
	member := f.createUser(t, "ada@example.com", "ada", user.RoleUser, "s3cret-pass")

	w := f.serve(formRequest("/update_user_role", url.Values{
		"user_id":  {member.ID},
		"new_role": {"superuser"},
	}), f.cookieFor(t, admin))
	assertRedirect(t, w, "/manage_users")

	got, _ := f.users.GetByID(context.Background(), member.ID)
	if got.Role != user.RoleUser {
		t.Fatalf("role must be unchanged, got %q", got.Role)
	}
}

func TestUpdateRole_UnauthenticatedDoesNotMutate(t *testing.T) {
	f := newFixture(t)
	member := f.createUser(t, "ada@example.com", "ada", user.RoleUser, "s3cret-pass")

	w := f.serve(formRequest("/update_user_role", url.Values{
		"user_id":  {member.ID},
		"new_role": {user.RoleAdmin},
	}))
	assertRedirect(t, w, "/login")

	got, _ := f.users.GetByID(context.Background(), member.ID)
	if got.Role != user.RoleUser {
		t.Fatalf("role must be unchanged, got %q", got.Role)
	}
}

func TestDeleteUser(t *testing.T) {
	f := newFixture(t)
	admin := f.createUser(t, "admin@example.com", "admin", user.RoleAdmin, "admin-pass")
	member := f.createUser(t, "ada@example.com", "ada", user.RoleUser, "s3cret-pass")

	w := f.serve(formRequest("/delete_user", url.Values{"user_id": {member.ID}}), f.cookieFor(t, admin))
	assertRedirect(t, w, "/manage_users")
	if fl := flashOf(t, w); fl.Message != "User 'ada' has been deleted." {
		t.Fatalf("unexpected flash %+v", fl)
	}

	if _, err := f.users.GetByID(context.Background(), member.ID); !errors.Is(err, user.ErrNotFound) {
		t.Fatalf("user should be gone, err=%v", err)
	}
}

func TestDeleteUser_RefusesSelf(t *testing.T) {
	f := newFixture(t)
	admin := f.createUser(t, "admin@example.com", "admin", user.RoleAdmin, "admin-pass")

	w := f.serve(formRequest("/delete_user", url.Values{"user_id": {admin.ID}}), f.cookieFor(t, admin))
	assertRedirect(t, w, "/manage_users")
	if fl := flashOf(t, w); fl.Message != "You cannot delete your own account." || fl.Category != "danger" {
		t.Fatalf("unexpected flash %+v", fl)
	}

	if _, err := f.users.GetByID(context.Background(), admin.ID); err != nil {
		t.Fatalf("admin must not be deleted: %v", err)
	}
}

func TestDeleteUser_Unknown(t *testing.T) {
	f := newFixture(t)
	admin := f.createUser(t, "admin@example.com", "admin", user.RoleAdmin, "admin-pass")

	w := f.serve(formRequest("/delete_user", url.Values{"user_id": {"missing"}}), f.cookieFor(t, admin))
	assertRedirect(t, w, "/manage_users")
	if fl := flashOf(t, w); fl.Message != "User not found." {
		t.Fatalf("unexpected flash %+v", fl)
	}
}

type failingRevoker struct{ calls int }

func (r *failingRevoker) RevokeAllForUser(context.Context, string) error {
	r.calls++
	return errors.New("session store unavailable")
}

func TestUsersHandler_RevokeFailureLeavesUserUnchanged(t *testing.T) {
	users := memory.NewUsersRepo()
	member, err := users.Create(context.Background(), "ada@example.com", "hash", "ada", user.RoleAdmin)
	if err != nil {
		t.Fatalf("seed: %v", err)
	}

	revoker := &failingRevoker{}
	h := handlers.NewUsersHandler(users, revoker, nil)
	r := gin.New()
	r.POST("/update_user_role", h.UpdateRole)
	r.POST("/delete_user", h.DeleteUser)

	t.Run("demotion", func(t *testing.T) {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, formRequest("/update_user_role", url.Values{
			"user_id":  {member.ID},
			"new_role": {user.RoleUser},
		}))
		assertRedirect(t, w, "/manage_users")
		if fl := flashOf(t, w); fl.Category != "danger" {
			t.Fatalf("unexpected flash %+v", fl)
		}

		got, _ := users.GetByID(context.Background(), member.ID)
		if got.Role != user.RoleAdmin {
			t.Fatalf("role must stay admin while sessions are live, got %q", got.Role)
		}
	})

	t.Run("delete", func(t *testing.T) {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, formRequest("/delete_user", url.Values{"user_id": {member.ID}}))
		assertRedirect(t, w, "/manage_users")
		if fl := flashOf(t, w); fl.Category != "danger" {
			t.Fatalf("unexpected flash %+v", fl)
		}

		if _, err := users.GetByID(context.Background(), member.ID); err != nil {
			t.Fatalf("user must not be deleted: %v", err)
		}
	})

	if revoker.calls != 2 {
		t.Fatalf("expected one revoke attempt per request, got %d", revoker.calls)
	}
}
