package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/geocoder89/crimewatch/internal/config"
	"github.com/geocoder89/crimewatch/internal/domain/user"
	"github.com/geocoder89/crimewatch/internal/http/middlewares"
	"github.com/geocoder89/crimewatch/internal/security"
	"github.com/geocoder89/crimewatch/internal/session"
	"github.com/gin-gonic/gin"
)

const (
	signUpPath = "/signup"
)

type UserAccounts interface {
	GetByEmail(ctx context.Context, email string) (user.User, error)
	Create(ctx context.Context, email, passwordHash, name, role string) (user.User, error)
}

type SessionIssuer interface {
	GenerateSessionToken(sessionID, userID string, expiresAt time.Time) (string, error)
}

type AuthHandler struct {
	users    UserAccounts
	sessions session.Store
	tokens   SessionIssuer
	ttl      time.Duration
	secure   bool
	log      *slog.Logger
}

func NewAuthHandler(users UserAccounts, sessions session.Store, tokens SessionIssuer, cfg config.Config, log *slog.Logger) *AuthHandler {
	if log == nil {
		log = slog.Default()
	}
	return &AuthHandler{
		users:    users,
		sessions: sessions,
		tokens:   tokens,
		ttl:      cfg.SessionTTL,
		secure:   cfg.Env == "prod",
		log:      log,
	}
}

func (h *AuthHandler) SignUp(ctx *gin.Context) {
	var req user.SignUpRequest

	if err := ShouldBindForm(ctx, &req); err != nil {
		redirectWithFlash(ctx, signUpPath, middlewares.FlashWarning, "Please provide all fields.")
		return
	}

	hash, err := security.HashPassword(req.Password)
	if err != nil {
		RespondInternal(ctx, "Could not create user")
		return
	}

	cctx, cancel := requestContext(ctx, 3*time.Second)
	defer cancel()

	// new accounts always start as plain users
	_, err = h.users.Create(cctx, req.Email, hash, req.Name, user.RoleUser)
	if err != nil {
		if errors.Is(err, user.ErrEmailTaken) {
			redirectWithFlash(ctx, signUpPath, middlewares.FlashWarning, "User already exists!")
			return
		}

		h.log.ErrorContext(ctx.Request.Context(), "signup_failed", "err", err)
		RespondInternal(ctx, "Could not create user")
		return
	}

	redirectWithFlash(ctx, middlewares.LoginPath, middlewares.FlashSuccess, "Registration successful! Please log in.")
}

func (h *AuthHandler) Login(ctx *gin.Context) {
	var req user.LoginRequest

	if err := ShouldBindForm(ctx, &req); err != nil {
		redirectWithFlash(ctx, middlewares.LoginPath, middlewares.FlashDanger, "Invalid credentials")
		return
	}

	cctx, cancel := requestContext(ctx, 3*time.Second)
	defer cancel()

	found, err := h.users.GetByEmail(cctx, req.Email)
	if err != nil && !errors.Is(err, user.ErrNotFound) {
		h.log.ErrorContext(ctx.Request.Context(), "login_lookup_failed", "err", err)
		RespondInternal(ctx, "Could not sign in")
		return
	}
	if err != nil {
		security.CompareDummy(req.Password)
		redirectWithFlash(ctx, middlewares.LoginPath, middlewares.FlashDanger, "Invalid credentials")
		return
	}
	if err := security.CheckPassword(found.PasswordHash, req.Password); err != nil {
		if !errors.Is(err, security.ErrMismatch) {
			h.log.WarnContext(ctx.Request.Context(), "stored_hash_unreadable", "user_id", found.ID, "err", err)
		}
		redirectWithFlash(ctx, middlewares.LoginPath, middlewares.FlashDanger, "Invalid credentials")
		return
	}
	if security.NeedsRehash(found.PasswordHash) {
		h.log.InfoContext(ctx.Request.Context(), "password_hash_outdated", "user_id", found.ID)
	}

	sess := session.New(found, h.ttl, time.Now())

	if err := h.sessions.Create(cctx, sess); err != nil {
		h.log.ErrorContext(ctx.Request.Context(), "session_create_failed", "err", err)
		RespondInternal(ctx, "Could not create session")
		return
	}

	token, err := h.tokens.GenerateSessionToken(sess.ID, sess.UserID, sess.ExpiresAt)
	if err != nil {
		RespondInternal(ctx, "Could not create session")
		return
	}

	h.setSessionCookie(ctx, token, sess.ExpiresAt)
	redirectWithFlash(ctx, middlewares.HomePath, middlewares.FlashSuccess, "Login successful!")
}

func (h *AuthHandler) Logout(ctx *gin.Context) {
	if sess, ok := middlewares.SessionFromContext(ctx); ok {
		cctx, cancel := requestContext(ctx, 2*time.Second)
		defer cancel()

		if err := h.sessions.Delete(cctx, sess.ID); err != nil {
			h.log.ErrorContext(ctx.Request.Context(), "session_delete_failed", "err", err)
		}
	}

	h.clearSessionCookie(ctx)
	redirectWithFlash(ctx, middlewares.LoginPath, middlewares.FlashInfo, "You have been logged out.")
}

func (h *AuthHandler) setSessionCookie(ctx *gin.Context, token string, expiresAt time.Time) {
	maxAge := int(time.Until(expiresAt).Seconds())

	ctx.SetSameSite(http.SameSiteLaxMode)
	ctx.SetCookie(
		middlewares.SessionCookieName,
		token,
		maxAge,
		"/",
		"",
		h.secure,
		true, // HttpOnly.
	)
}

func (h *AuthHandler) clearSessionCookie(ctx *gin.Context) {
	ctx.SetSameSite(http.SameSiteLaxMode)
	ctx.SetCookie(
		middlewares.SessionCookieName,
		"",
		-1,
		"/",
		"",
		h.secure,
		true,
	)
}
