package service

import (
	"context"
	"fmt"

	"github.com/max950509/web-admin-fullstack-template/internal/admin/domain"
	"github.com/max950509/web-admin-fullstack-template/internal/admin/store"
)

// PermissionResolver decides whether a principal may perform an
// (action, resource) operation.
type PermissionResolver struct {
	Store store.Store
}

// Allowed reports whether p satisfies req. A zero requirement only needs an
// authenticated principal; two-factor tokens never satisfy anything.
func (r *PermissionResolver) Allowed(ctx context.Context, p *domain.Principal, req domain.Requirement) (bool, error) {
	if req == (domain.Requirement{}) {
		return true, nil
	}
	if p == nil || p.Scope != domain.ScopeAccess {
		return false, nil
	}

	held, err := r.held(ctx, p.User)
	if err != nil {
		return false, err
	}
	for _, perm := range held {
		if perm.Grants(req) {
			return true, nil
		}
	}
	return false, nil
}

// HeldPermissions returns the effective permission set of a user, loading it
// fresh from the store.
func (r *PermissionResolver) HeldPermissions(ctx context.Context, userID int64) ([]domain.Permission, error) {
	user, err := r.Store.Users().GetUserByID(ctx, userID)
	if err != nil {
		return nil, mapStoreErr(err, "user")
	}
	return r.held(ctx, user)
}

// held is the union of the user's role permissions, or every permission when
// any role is a super admin.
func (r *PermissionResolver) held(ctx context.Context, user domain.User) ([]domain.Permission, error) {
	if user.IsSuperAdmin() {
		all, err := r.Store.Permissions().ListPermissions(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list permissions: %w", err)
		}
		return all, nil
	}

	seen := make(map[int64]struct{})
	var held []domain.Permission
	for _, role := range user.Roles {
		for _, perm := range role.Permissions {
			if _, ok := seen[perm.ID]; ok {
				continue
			}
			seen[perm.ID] = struct{}{}
			held = append(held, perm)
		}
	}
	return held, nil
}
