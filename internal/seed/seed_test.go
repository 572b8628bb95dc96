package seed

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	rolestore "acceso/internal/role/store"
	"acceso/internal/user/credentials"
	userstore "acceso/internal/user/store"
)

func newSeeder(roles *rolestore.InMemoryStore, users *userstore.InMemoryStore) *Seeder {
	return New(roles, users, NopTx{}, WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
}

func TestRun_CreatesRolesAndAdmin(t *testing.T) {
	roles := rolestore.NewInMemoryStore()
	users := userstore.NewInMemoryStore()

	result, err := newSeeder(roles, users).Run(context.Background(), "")
	require.NoError(t, err)

	assert.Equal(t, []string{"ADMINISTRADOR", "SUPERVISOR", "TRABAJADOR"}, result.RolesCreated)
	assert.True(t, result.AdminCreated)
	require.NotEmpty(t, result.AdminPassword)

	admin, err := users.FindByUsername(context.Background(), AdminUsername)
	require.NoError(t, err)
	assert.True(t, credentials.Verify(result.AdminPassword, admin.PasswordHash))

	adminRole, err := roles.FindByName(context.Background(), "ADMINISTRADOR")
	require.NoError(t, err)
	assert.Equal(t, adminRole.ID, admin.RoleID)
}

func TestRun_UsesProvidedAdminPassword(t *testing.T) {
	roles := rolestore.NewInMemoryStore()
	users := userstore.NewInMemoryStore()

	result, err := newSeeder(roles, users).Run(context.Background(), "S3cret!pass")
	require.NoError(t, err)

	assert.Empty(t, result.AdminPassword, "supplied passwords are never echoed back")

	admin, err := users.FindByUsername(context.Background(), AdminUsername)
	require.NoError(t, err)
	assert.True(t, credentials.Verify("S3cret!pass", admin.PasswordHash))
}

func TestRun_IsIdempotent(t *testing.T) {
	roles := rolestore.NewInMemoryStore()
	users := userstore.NewInMemoryStore()
	seeder := newSeeder(roles, users)

	_, err := seeder.Run(context.Background(), "")
	require.NoError(t, err)

	again, err := seeder.Run(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, again.RolesCreated)
	assert.False(t, again.AdminCreated)

	list, err := roles.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, list, 3)
}
