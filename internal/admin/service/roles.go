package service

import (
	"context"
	"errors"
	"strings"

	"github.com/max950509/web-admin-fullstack-template/internal/admin/domain"
	"github.com/max950509/web-admin-fullstack-template/internal/admin/store"
	"github.com/max950509/web-admin-fullstack-template/pkg/slogx"
)

// RoleInput creates or replaces a role. PermissionIDs replaces the whole set
// when non-nil.
type RoleInput struct {
	Name          string
	PermissionIDs []int64
}

type RoleService struct {
	Store store.Store
}

func (s *RoleService) GetRole(ctx context.Context, id int64) (domain.Role, error) {
	r, err := s.Store.Roles().GetRoleByID(ctx, id)
	if err != nil {
		return domain.Role{}, mapStoreErr(err, "role")
	}
	return r, nil
}

func (s *RoleService) ListRoles(ctx context.Context, name string, p domain.Page) (domain.PageResult[domain.Role], error) {
	p = p.Normalize()
	roles, total, err := s.Store.Roles().ListRoles(ctx, strings.TrimSpace(name), p)
	if err != nil {
		return domain.PageResult[domain.Role]{}, mapStoreErr(err, "roles")
	}
	return domain.NewPageResult(roles, total, p), nil
}

// CreateRole stores a role. The super admin flag follows the name and is
// never taken from the caller.
func (s *RoleService) CreateRole(ctx context.Context, in RoleInput) (domain.Role, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return domain.Role{}, invalidf("name is required")
	}

	var id int64
	err := s.Store.WithTx(ctx, func(tx store.Tx) error {
		var err error
		id, err = tx.Roles().CreateRole(ctx, domain.Role{Name: name, IsSuperAdmin: domain.IsSuperAdminName(name)})
		if err != nil {
			return err
		}
		return tx.Roles().SetRolePermissions(ctx, id, in.PermissionIDs)
	})
	if err != nil {
		return domain.Role{}, mapStoreErr(err, "role")
	}

	slogx.FromContext(ctx).Info("role created", "role_id", id, "name", name)
	return s.GetRole(ctx, id)
}

// UpdateRole renames a role and optionally replaces its permissions. Renaming
// recomputes the super admin flag.
func (s *RoleService) UpdateRole(ctx context.Context, id int64, name *string, permissionIDs *[]int64) (domain.Role, error) {
	err := s.Store.WithTx(ctx, func(tx store.Tx) error {
		r, err := tx.Roles().GetRoleByID(ctx, id)
		if err != nil {
			return err
		}
		if name != nil {
			n := strings.TrimSpace(*name)
			if n == "" {
				return invalidf("name is required")
			}
			r.Name = n
			r.IsSuperAdmin = domain.IsSuperAdminName(n)
			if err := tx.Roles().UpdateRole(ctx, r); err != nil {
				return err
			}
		}
		if permissionIDs != nil {
			return tx.Roles().SetRolePermissions(ctx, id, *permissionIDs)
		}
		return nil
	})
	if errors.Is(err, ErrInvalidInput) {
		return domain.Role{}, err
	}
	if err != nil {
		return domain.Role{}, mapStoreErr(err, "role")
	}
	return s.GetRole(ctx, id)
}

func (s *RoleService) DeleteRole(ctx context.Context, id int64) error {
	if err := s.Store.Roles().DeleteRole(ctx, id); err != nil {
		return mapStoreErr(err, "role")
	}
	slogx.FromContext(ctx).Info("role deleted", "role_id", id)
	return nil
}
