package middlewares

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/geocoder89/crimewatch/internal/auth"
	"github.com/geocoder89/crimewatch/internal/session"
	"github.com/gin-gonic/gin"
)

const (
	SessionCookieName = "session"

	LoginPath = "/login"
	HomePath  = "/home"

	msgAdminsOnly = "Access denied: Admins only"
)

// Keep these small so tests can fake them easily.
type TokenVerifier interface {
	VerifySessionToken(token string) (*auth.Claims, error)
}

type DenialRecorder interface {
	ObserveGateDenial(reason string)
}

type Decision int

const (
	Allowed Decision = iota
	DeniedUnauthenticated
	DeniedForbidden
)

func (d Decision) String() string {
	switch d {
	case Allowed:
		return "allowed"
	case DeniedUnauthenticated:
		return "unauthenticated"
	case DeniedForbidden:
		return "forbidden"
	default:
		return "unknown"
	}
}

// Evaluate decides whether sess may reach a route. It has no side effects.
func Evaluate(sess *session.Session, adminOnly bool) Decision {
	if sess == nil || !sess.Active(time.Now()) {
		return DeniedUnauthenticated
	}
	if adminOnly && !sess.IsAdmin() {
		return DeniedForbidden
	}
	return Allowed
}

type SessionGate struct {
	tokens TokenVerifier
	store  session.Store
	rec    DenialRecorder
	log    *slog.Logger
}

func NewSessionGate(tokens TokenVerifier, store session.Store, rec DenialRecorder, log *slog.Logger) *SessionGate {
	if log == nil {
		log = slog.Default()
	}
	return &SessionGate{tokens: tokens, store: store, rec: rec, log: log}
}

// LoadSession attaches the caller's session to the context when the cookie
// resolves to a live one. It never rejects a request.
func (g *SessionGate) LoadSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		if sess, ok := g.resolve(c); ok {
			c.Set(CtxSession, sess)
		}
		c.Next()
	}
}

func (g *SessionGate) RequireSession() gin.HandlerFunc {
	return g.require(false)
}

func (g *SessionGate) RequireAdmin() gin.HandlerFunc {
	return g.require(true)
}

func (g *SessionGate) require(adminOnly bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		var sess *session.Session
		if s, ok := SessionFromContext(c); ok {
			sess = &s
		} else if s, ok := g.resolve(c); ok {
			c.Set(CtxSession, s)
			sess = &s
		}

		switch d := Evaluate(sess, adminOnly); d {
		case Allowed:
			c.Next()
		case DeniedForbidden:
			g.deny(c, d)
			SetFlash(c, FlashDanger, msgAdminsOnly)
			c.Redirect(http.StatusFound, HomePath)
			c.Abort()
		default:
			g.deny(c, d)
			c.Redirect(http.StatusFound, LoginPath)
			c.Abort()
		}
	}
}

func (g *SessionGate) deny(c *gin.Context, d Decision) {
	if g.rec != nil {
		g.rec.ObserveGateDenial(d.String())
	}
	g.log.DebugContext(c.Request.Context(), "gate_denied",
		"reason", d.String(),
		"route", c.FullPath(),
	)
}

func (g *SessionGate) resolve(c *gin.Context) (session.Session, bool) {
	raw, err := c.Cookie(SessionCookieName)
	if err != nil || raw == "" {
		return session.Session{}, false
	}

	claims, err := g.tokens.VerifySessionToken(raw)
	if err != nil {
		return session.Session{}, false
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	sess, err := g.store.Get(ctx, claims.SessionID)
	if err != nil {
		if !errors.Is(err, session.ErrNotFound) {
			g.log.ErrorContext(c.Request.Context(), "session_lookup_failed", "err", err)
		}
		return session.Session{}, false
	}
	if claims.Subject != "" && claims.Subject != sess.UserID {
		return session.Session{}, false
	}
	return sess, true
}

// Helpers so handlers don't need to know the context keys.

func SessionFromContext(c *gin.Context) (session.Session, bool) {
	v, ok := c.Get(CtxSession)
	if !ok {
		return session.Session{}, false
	}
	sess, ok := v.(session.Session)
	return sess, ok
}

func UserIDFromContext(c *gin.Context) (string, bool) {
	sess, ok := SessionFromContext(c)
	if !ok || sess.UserID == "" {
		return "", false
	}
	return sess.UserID, true
}
