package postgres_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cory-johannsen/lanes/internal/storage"
	"github.com/cory-johannsen/lanes/internal/storage/postgres"
	"github.com/cory-johannsen/lanes/internal/testutil"
)

func uniqueEmail(prefix string) string {
	return fmt.Sprintf("%s_%d@example.com", prefix, time.Now().UnixNano())
}

func TestAccountRepository_CreateAndAuthenticate(t *testing.T) {
	repo := postgres.NewAccountRepository(testutil.NewPool(t))
	ctx := context.Background()
	email := uniqueEmail("Dana")

	created, err := repo.Create(ctx, email, "Dana", "password123")
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, storage.NormalizeEmail(email), created.Email)
	assert.Equal(t, storage.RoleBowler, created.Role)
	assert.NotEqual(t, "password123", created.PasswordHash)

	got, err := repo.Authenticate(ctx, email, "password123")
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)

	_, err = repo.Authenticate(ctx, email, "wrong")
	assert.ErrorIs(t, err, storage.ErrInvalidCredentials)

	_, err = repo.Authenticate(ctx, uniqueEmail("nobody"), "password123")
	assert.ErrorIs(t, err, storage.ErrAccountNotFound)
}

func TestAccountRepository_DuplicateEmail(t *testing.T) {
	repo := postgres.NewAccountRepository(testutil.NewPool(t))
	ctx := context.Background()
	email := uniqueEmail("dup")

	_, err := repo.Create(ctx, email, "first", "password123")
	require.NoError(t, err)
	_, err = repo.Create(ctx, email, "second", "password123")
	assert.ErrorIs(t, err, storage.ErrAccountExists)
}

func TestAccountRepository_GetAndSetRole(t *testing.T) {
	repo := postgres.NewAccountRepository(testutil.NewPool(t))
	ctx := context.Background()

	created, err := repo.Create(ctx, uniqueEmail("role"), "Robin", "password123")
	require.NoError(t, err)

	require.NoError(t, repo.SetRole(ctx, created.ID, storage.RoleAdmin))
	got, err := repo.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, storage.RoleAdmin, got.Role)

	byEmail, err := repo.GetByEmail(ctx, created.Email)
	require.NoError(t, err)
	assert.Equal(t, created.ID, byEmail.ID)

	assert.ErrorIs(t, repo.SetRole(ctx, created.ID, "owner"), storage.ErrInvalidRole)
	assert.ErrorIs(t, repo.SetRole(ctx, "not-a-uuid", storage.RoleAdmin), storage.ErrAccountNotFound)
	assert.ErrorIs(t, repo.SetRole(ctx, "00000000-0000-0000-0000-000000000000", storage.RoleAdmin), storage.ErrAccountNotFound)

	_, err = repo.GetByID(ctx, "not-a-uuid")
	assert.ErrorIs(t, err, storage.ErrAccountNotFound)
}
