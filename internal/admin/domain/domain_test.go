package domain_test

import (
	"testing"

	"github.com/max950509/web-admin-fullstack-template/internal/admin/domain"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T { return &v }

func TestBuildDepartmentTree(t *testing.T) {
	tree := domain.BuildDepartmentTree([]domain.Department{
		{ID: 1, Name: "HQ"},
		{ID: 2, Name: "Tech", ParentID: ptr(int64(1))},
		{ID: 3, Name: "Ops", ParentID: ptr(int64(1))},
		{ID: 4, Name: "Orphan", ParentID: ptr(int64(99))},
	})

	require.Len(t, tree, 2)
	require.Equal(t, "HQ", tree[0].Name)
	require.Len(t, tree[0].Children, 2)
	require.Equal(t, "Tech", tree[0].Children[0].Name)
	require.Equal(t, "Orphan", tree[1].Name)
}

func TestPageNormalize(t *testing.T) {
	require.Equal(t, domain.Page{Page: 1, PageSize: 10}, domain.Page{}.Normalize())
	require.Equal(t, domain.Page{Page: 3, PageSize: 100}, domain.Page{Page: 3, PageSize: 1000}.Normalize())
	require.Equal(t, 20, domain.Page{Page: 3, PageSize: 10}.Offset())
}

func TestPermissionGrants(t *testing.T) {
	p := domain.Permission{Action: "read", Resource: "account"}
	require.True(t, p.Grants(domain.Requirement{Action: "read", Resource: "account"}))
	require.False(t, p.Grants(domain.Requirement{Action: "Read", Resource: "account"}))
	require.False(t, p.Grants(domain.Requirement{Action: "read", Resource: "role"}))
}

func TestSuperAdmin(t *testing.T) {
	require.True(t, domain.IsSuperAdminName("admin"))
	require.False(t, domain.IsSuperAdminName("Admin"))

	u := domain.User{Roles: []domain.Role{{Name: "user"}, {Name: "admin", IsSuperAdmin: true}}}
	require.True(t, u.IsSuperAdmin())
	require.Equal(t, []int64{0, 0}, u.RoleIDs())
}
