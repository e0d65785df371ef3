package db

import (
	"context"
	"errors"

	"github.com/geocoder89/crimewatch/internal/config"
	"github.com/geocoder89/crimewatch/internal/domain/user"
	"github.com/geocoder89/crimewatch/internal/security"
)

// AdminStore is the slice of a users repo that seeding needs. Every Record
// Store backend satisfies it.
type AdminStore interface {
	GetByEmail(ctx context.Context, email string) (user.User, error)
	Create(ctx context.Context, email, passwordHash, name, role string) (user.User, error)
}

// EnsureAdminUser creates the configured admin account once. It reports
// whether a new account was created.
func EnsureAdminUser(ctx context.Context, users AdminStore, cfg config.Config) (bool, error) {
	if cfg.AdminEmail == "" || cfg.AdminPassword == "" {
		return false, nil
	}

	_, err := users.GetByEmail(ctx, cfg.AdminEmail)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, user.ErrNotFound) {
		return false, err
	}

	hash, err := security.HashPassword(cfg.AdminPassword)
	if err != nil {
		return false, err
	}

	_, err = users.Create(ctx, cfg.AdminEmail, hash, cfg.AdminName, cfg.AdminRole)
	if errors.Is(err, user.ErrEmailTaken) {
		// another instance seeded it first
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
