package handlers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/geocoder89/crimewatch/internal/domain/user"
	"github.com/geocoder89/crimewatch/internal/http/middlewares"
	"github.com/gin-gonic/gin"
)

const manageUsersPath = "/manage_users"

type UserDirectory interface {
	List(ctx context.Context) ([]user.User, error)
	GetByID(ctx context.Context, id string) (user.User, error)
	UpdateRole(ctx context.Context, id, role string) error
	Delete(ctx context.Context, id string) error
}

type SessionRevoker interface {
	RevokeAllForUser(ctx context.Context, userID string) error
}

type UsersHandler struct {
	users    UserDirectory
	sessions SessionRevoker
	log      *slog.Logger
}

func NewUsersHandler(users UserDirectory, sessions SessionRevoker, log *slog.Logger) *UsersHandler {
	if log == nil {
		log = slog.Default()
	}
	return &UsersHandler{users: users, sessions: sessions, log: log}
}

func (h *UsersHandler) ManageUsers(ctx *gin.Context) {
	cctx, cancel := requestContext(ctx, 3*time.Second)
	defer cancel()

	users, err := h.users.List(cctx)
	if err != nil {
		RespondInternal(ctx, "Could not list users")
		return
	}

	ctx.JSON(http.StatusOK, withFlash(ctx, gin.H{"users": users}))
}

func (h *UsersHandler) UpdateRole(ctx *gin.Context) {
	var req user.UpdateRoleRequest

	if err := ShouldBindForm(ctx, &req); err != nil {
		redirectWithFlash(ctx, manageUsersPath, middlewares.FlashDanger, "Invalid role update.")
		return
	}

	cctx, cancel := requestContext(ctx, 3*time.Second)
	defer cancel()

	// the old role lives on in the user's sessions, so they must end first
	if !h.revoke(ctx, cctx, req.UserID) {
		redirectWithFlash(ctx, manageUsersPath, middlewares.FlashDanger, "Could not sign the user out. Role unchanged.")
		return
	}

	if err := h.users.UpdateRole(cctx, req.UserID, req.NewRole); err != nil {
		if errors.Is(err, user.ErrNotFound) {
			redirectWithFlash(ctx, manageUsersPath, middlewares.FlashWarning, "User not found.")
			return
		}
		RespondInternal(ctx, "Could not update role")
		return
	}

	// sessions opened between the revoke and the update
	h.revoke(ctx, cctx, req.UserID)

	redirectWithFlash(ctx, manageUsersPath, middlewares.FlashSuccess, "User role updated!")
}

func (h *UsersHandler) DeleteUser(ctx *gin.Context) {
	var req user.DeleteRequest

	if err := ShouldBindForm(ctx, &req); err != nil {
		redirectWithFlash(ctx, manageUsersPath, middlewares.FlashWarning, "User not found.")
		return
	}

	cctx, cancel := requestContext(ctx, 3*time.Second)
	defer cancel()

	target, err := h.users.GetByID(cctx, req.UserID)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			redirectWithFlash(ctx, manageUsersPath, middlewares.FlashWarning, "User not found.")
			return
		}
		RespondInternal(ctx, "Could not delete user")
		return
	}

	if self, ok := middlewares.UserIDFromContext(ctx); ok && self == target.ID {
		redirectWithFlash(ctx, manageUsersPath, middlewares.FlashDanger, "You cannot delete your own account.")
		return
	}

	if !h.revoke(ctx, cctx, target.ID) {
		redirectWithFlash(ctx, manageUsersPath, middlewares.FlashDanger, "Could not sign the user out. User not deleted.")
		return
	}

	if err := h.users.Delete(cctx, target.ID); err != nil {
		if errors.Is(err, user.ErrNotFound) {
			redirectWithFlash(ctx, manageUsersPath, middlewares.FlashWarning, "User not found.")
			return
		}
		RespondInternal(ctx, "Could not delete user")
		return
	}

	h.revoke(ctx, cctx, target.ID)

	redirectWithFlash(ctx, manageUsersPath, middlewares.FlashSuccess, fmt.Sprintf("User '%s' has been deleted.", target.Name))
}

// revoke ends every session of userID and reports whether it succeeded.
func (h *UsersHandler) revoke(ctx *gin.Context, cctx context.Context, userID string) bool {
	if h.sessions == nil {
		return true
	}
	if err := h.sessions.RevokeAllForUser(cctx, userID); err != nil {
		h.log.ErrorContext(ctx.Request.Context(), "session_revoke_failed", "err", err, "user_id", userID)
		return false
	}
	return true
}
