package service

import (
	"context"
	"strings"

	"github.com/max950509/web-admin-fullstack-template/internal/admin/domain"
	"github.com/max950509/web-admin-fullstack-template/internal/admin/store"
)

type PermissionService struct {
	Store store.Store
}

func (s *PermissionService) GetPermission(ctx context.Context, id int64) (domain.Permission, error) {
	p, err := s.Store.Permissions().GetPermissionByID(ctx, id)
	if err != nil {
		return domain.Permission{}, mapStoreErr(err, "permission")
	}
	return p, nil
}

// ListPermissions returns the whole permission tree as a flat list ordered by sort.
func (s *PermissionService) ListPermissions(ctx context.Context) ([]domain.Permission, error) {
	perms, err := s.Store.Permissions().ListPermissions(ctx)
	if err != nil {
		return nil, mapStoreErr(err, "permissions")
	}
	if perms == nil {
		perms = []domain.Permission{}
	}
	return perms, nil
}

func (s *PermissionService) CreatePermission(ctx context.Context, p domain.Permission) (domain.Permission, error) {
	if err := normalizePermission(&p); err != nil {
		return domain.Permission{}, err
	}
	id, err := s.Store.Permissions().CreatePermission(ctx, p)
	if err != nil {
		return domain.Permission{}, mapStoreErr(err, "permission")
	}
	return s.GetPermission(ctx, id)
}

func (s *PermissionService) UpdatePermission(ctx context.Context, p domain.Permission) (domain.Permission, error) {
	if err := normalizePermission(&p); err != nil {
		return domain.Permission{}, err
	}
	if p.ParentID != nil && *p.ParentID == p.ID {
		return domain.Permission{}, invalidf("a permission cannot be its own parent")
	}
	if err := s.Store.Permissions().UpdatePermission(ctx, p); err != nil {
		return domain.Permission{}, mapStoreErr(err, "permission")
	}
	return s.GetPermission(ctx, p.ID)
}

func (s *PermissionService) DeletePermission(ctx context.Context, id int64) error {
	return mapStoreErr(s.Store.Permissions().DeletePermission(ctx, id), "permission")
}

func normalizePermission(p *domain.Permission) error {
	p.Action = strings.TrimSpace(p.Action)
	p.Resource = strings.TrimSpace(p.Resource)
	p.Name = strings.TrimSpace(p.Name)
	if p.Type == "" {
		p.Type = domain.PermissionAction
	}
	switch {
	case p.Action == "":
		return invalidf("action is required")
	case p.Resource == "":
		return invalidf("resource is required")
	case !p.Type.Valid():
		return invalidf("type must be menu, page or action")
	}
	if p.Name == "" {
		p.Name = p.Action + ":" + p.Resource
	}
	return nil
}
