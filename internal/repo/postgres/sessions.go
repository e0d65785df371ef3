package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/geocoder89/crimewatch/internal/session"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// SessionsRepo keeps sessions in the sessions table. Rows are revoked on
// logout rather than removed, and expired rows are swept by Purge.
type SessionsRepo struct {
	pool *pgxpool.Pool
	obs  Observer
}

var _ session.Store = (*SessionsRepo)(nil)

func NewSessionsRepo(pool *pgxpool.Pool, obs Observer) *SessionsRepo {
	return &SessionsRepo{pool: pool, obs: observerOrNoop(obs)}
}

func (r *SessionsRepo) Create(ctx context.Context, s session.Session) error {
	return r.obs.ObserveDB("sessions.create", func() error {
		_, err := r.pool.Exec(ctx, `
			INSERT INTO sessions (id, user_id, name, email, role, created_at, expires_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7)
		`, s.ID, s.UserID, s.Name, s.Email, s.Role, s.CreatedAt, s.ExpiresAt)
		return err
	})
}

func (r *SessionsRepo) Get(ctx context.Context, id string) (session.Session, error) {
	var s session.Session

	err := r.obs.ObserveDB("sessions.get", func() error {
		return r.pool.QueryRow(ctx, `
			SELECT id, user_id, name, email, role, created_at, expires_at
			FROM sessions
			WHERE id = $1 AND revoked_at IS NULL AND expires_at > NOW()
		`, id).Scan(
			&s.ID,
			&s.UserID,
			&s.Name,
			&s.Email,
			&s.Role,
			&s.CreatedAt,
			&s.ExpiresAt,
		)
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return session.Session{}, session.ErrNotFound
		}
		return session.Session{}, err
	}

	s.LoggedIn = true
	return s, nil
}

func (r *SessionsRepo) Delete(ctx context.Context, id string) error {
	return r.obs.ObserveDB("sessions.revoke", func() error {
		_, err := r.pool.Exec(ctx, `
			UPDATE sessions
			SET revoked_at = NOW()
			WHERE id = $1 AND revoked_at IS NULL
		`, id)
		return err
	})
}

// RevokeAllForUser ends every live session of a user. Used when the account
// is deleted or its role changes.
func (r *SessionsRepo) RevokeAllForUser(ctx context.Context, userID string) error {
	return r.obs.ObserveDB("sessions.revoke_all", func() error {
		_, err := r.pool.Exec(ctx, `
			UPDATE sessions
			SET revoked_at = NOW()
			WHERE user_id = $1 AND revoked_at IS NULL
		`, userID)
		return err
	})
}

// Purge removes rows that expired or were revoked before cutoff.
func (r *SessionsRepo) Purge(ctx context.Context, cutoff time.Time) (int64, error) {
	var n int64
	err := r.obs.ObserveDB("sessions.purge", func() error {
		tag, err := r.pool.Exec(ctx, `
			DELETE FROM sessions
			WHERE expires_at < $1 OR revoked_at < $1
		`, cutoff)
		if err != nil {
			return err
		}
		n = tag.RowsAffected()
		return nil
	})
	return n, err
}
