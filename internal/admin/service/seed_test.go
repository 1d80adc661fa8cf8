package service

import (
	"context"
	"testing"

	"github.com/max950509/web-admin-fullstack-template/internal/admin/domain"
	"github.com/stretchr/testify/require"
)

func TestSeed(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	seed := &SeedService{Store: env.store, Password: "seed-pass"}

	require.NoError(t, seed.Seed(ctx))
	require.ErrorIs(t, seed.Seed(ctx), ErrAlreadySeeded)

	admin, err := env.store.Users().GetUserByUsername(ctx, "admin")
	require.NoError(t, err)
	require.True(t, admin.IsSuperAdmin())
	require.NotNil(t, admin.DepartmentID)
	require.NotNil(t, admin.PositionID)

	john, err := env.store.Users().GetUserByUsername(ctx, "john.doe")
	require.NoError(t, err)
	require.False(t, john.IsSuperAdmin())
	require.Len(t, john.Roles, 1)
	require.Len(t, john.Roles[0].Permissions, 1)
	require.True(t, john.Roles[0].Permissions[0].Grants(domain.Requirement{Action: "read", Resource: "account"}))

	res, err := env.login(t, "john.doe", "seed-pass")
	require.NoError(t, err)
	require.False(t, res.Temporary)

	depts := &DepartmentService{Store: env.store}
	tree, err := depts.DepartmentTree(ctx, "")
	require.NoError(t, err)
	require.Len(t, tree, 1)
	require.Len(t, tree[0].Children, 2)

	perms, err := env.store.Permissions().ListPermissions(ctx)
	require.NoError(t, err)
	adminRole, err := env.store.Roles().GetRoleByName(ctx, "admin")
	require.NoError(t, err)
	require.Len(t, adminRole.Permissions, len(perms))
}

func TestSeedRejectsDanglingReferences(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	seed := &SeedService{Store: env.store, Data: []byte(`
roles:
  - name: user
    permissions: ["read:nothing"]
`)}

	require.ErrorContains(t, seed.Seed(ctx), "unknown permission")

	empty, err := env.store.Users().IsEmpty(ctx)
	require.NoError(t, err)
	require.True(t, empty)
	_, err = env.store.Roles().GetRoleByName(ctx, "user")
	require.Error(t, err, "the transaction rolled back")
}
