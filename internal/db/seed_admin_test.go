package db

import (
	"context"
	"testing"

	"github.com/geocoder89/crimewatch/internal/config"
	"github.com/geocoder89/crimewatch/internal/domain/user"
	"github.com/geocoder89/crimewatch/internal/repo/memory"
	"github.com/geocoder89/crimewatch/internal/security"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnsureAdminUser(t *testing.T) {
	ctx := context.Background()
	users := memory.NewUsersRepo()
	cfg := config.Config{
		AdminEmail:    "admin@example.com",
		AdminPassword: "sup3r-secret",
		AdminName:     "Admin",
		AdminRole:     user.RoleAdmin,
	}

	created, err := EnsureAdminUser(ctx, users, cfg)
	require.NoError(t, err)
	assert.True(t, created)

	u, err := users.GetByEmail(ctx, "admin@example.com")
	require.NoError(t, err)
	assert.Equal(t, user.RoleAdmin, u.Role)
	assert.NoError(t, security.CheckPassword(u.PasswordHash, "sup3r-secret"))

	created, err = EnsureAdminUser(ctx, users, cfg)
	require.NoError(t, err)
	assert.False(t, created)

	n, err := users.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestEnsureAdminUser_SkipsWithoutCredentials(t *testing.T) {
	users := memory.NewUsersRepo()

	created, err := EnsureAdminUser(context.Background(), users, config.Config{AdminEmail: "a@b.c"})
	require.NoError(t, err)
	assert.False(t, created)

	n, _ := users.Count(context.Background())
	assert.Equal(t, 0, n)
}

func TestSchemaStatementsAreIdempotent(t *testing.T) {
	for _, stmt := range schema {
		assert.Contains(t, stmt, "IF NOT EXISTS")
	}
}
