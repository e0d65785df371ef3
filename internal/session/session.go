// Package session holds server-side login state keyed by an opaque id.
package session

import (
	"context"
	"errors"
	"time"

	"github.com/geocoder89/crimewatch/internal/domain/user"
	"github.com/google/uuid"
)

var ErrNotFound = errors.New("session not found")

type Session struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	LoggedIn  bool      `json:"loggedIn"`
	CreatedAt time.Time `json:"createdAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Store maps session ids to sessions. Get returns ErrNotFound for unknown and
// expired sessions alike. RevokeAllForUser ends every session of one user and
// is used when that user's role changes or the account is deleted.
type Store interface {
	Create(ctx context.Context, s Session) error
	Get(ctx context.Context, id string) (Session, error)
	Delete(ctx context.Context, id string) error
	RevokeAllForUser(ctx context.Context, userID string) error
}

func New(u user.User, ttl time.Duration, now time.Time) Session {
	now = now.UTC()
	return Session{
		ID:        uuid.NewString(),
		UserID:    u.ID,
		Name:      u.Name,
		Email:     u.Email,
		Role:      u.Role,
		LoggedIn:  true,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
}

func (s Session) IsAdmin() bool {
	return s.Role == user.RoleAdmin
}

func (s Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// Active reports whether s is a logged-in session that has not yet expired.
func (s Session) Active(now time.Time) bool {
	return s.LoggedIn && s.UserID != "" && !s.Expired(now)
}
