package sqlite

import (
	"context"
	"fmt"
	"strings"

	"github.com/max950509/web-admin-fullstack-template/internal/admin/domain"
)

type rolesRepo struct {
	db dbtx
}

const (
	roleColumns         = `id, name, is_super_admin, created_at, updated_at`
	roleColumnsPrefixed = `r.id, r.name, r.is_super_admin, r.created_at, r.updated_at`
)

// scanRole scans role columns, preceded by any extra destinations.
func scanRole(row rowScanner, extra ...any) (domain.Role, error) {
	var (
		role             domain.Role
		created, updated int64
	)
	dest := append(extra, &role.ID, &role.Name, &role.IsSuperAdmin, &created, &updated)
	if err := row.Scan(dest...); err != nil {
		return domain.Role{}, err
	}
	role.CreatedAt = fromMillis(created)
	role.UpdatedAt = fromMillis(updated)
	return role, nil
}

func (r *rolesRepo) getRole(ctx context.Context, where string, arg any) (domain.Role, error) {
	role, err := scanRole(r.db.QueryRowContext(ctx, `SELECT `+roleColumns+` FROM roles WHERE `+where, arg))
	if err != nil {
		return domain.Role{}, mapNotFound(err)
	}

	perms, err := permissionsForRoles(ctx, r.db, []int64{role.ID})
	if err != nil {
		return domain.Role{}, err
	}
	role.Permissions = perms[role.ID]
	return role, nil
}

func (r *rolesRepo) GetRoleByID(ctx context.Context, id int64) (domain.Role, error) {
	return r.getRole(ctx, `id = ?`, id)
}

func (r *rolesRepo) GetRoleByName(ctx context.Context, name string) (domain.Role, error) {
	return r.getRole(ctx, `name = ?`, name)
}

func (r *rolesRepo) ListRoles(ctx context.Context, name string, p domain.Page) ([]domain.Role, int, error) {
	var (
		conds []string
		args  []any
	)
	if name != "" {
		conds = append(conds, `name LIKE ? ESCAPE '\'`)
		args = append(args, likePattern(name))
	}
	where := whereClause(conds)

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM roles`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count roles: %w", err)
	}

	query, args := limitClause(`SELECT `+roleColumns+` FROM roles`+where+` ORDER BY id`, args, p.Page, p.PageSize)
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}

	var roles []domain.Role
	for rows.Next() {
		role, err := scanRole(rows)
		if err != nil {
			_ = rows.Close()
			return nil, 0, err
		}
		roles = append(roles, role)
	}
	if err := rows.Close(); err != nil {
		return nil, 0, err
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	ids := make([]int64, len(roles))
	for i, role := range roles {
		ids[i] = role.ID
	}
	perms, err := permissionsForRoles(ctx, r.db, ids)
	if err != nil {
		return nil, 0, err
	}
	for i := range roles {
		roles[i].Permissions = perms[roles[i].ID]
	}
	return roles, total, nil
}

func (r *rolesRepo) CreateRole(ctx context.Context, role domain.Role) (int64, error) {
	now := nowMillis()
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO roles (name, is_super_admin, created_at, updated_at) VALUES (?, ?, ?, ?)`,
		role.Name, role.IsSuperAdmin, now, now)
	if err != nil {
		return 0, mapWriteErr(err)
	}
	return res.LastInsertId()
}

func (r *rolesRepo) UpdateRole(ctx context.Context, role domain.Role) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE roles SET name = ?, is_super_admin = ?, updated_at = ? WHERE id = ?`,
		role.Name, role.IsSuperAdmin, nowMillis(), role.ID)
	if err != nil {
		return mapWriteErr(err)
	}
	return expectAffected(res, nil)
}

func (r *rolesRepo) SetRolePermissions(ctx context.Context, roleID int64, permissionIDs []int64) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM role_permissions WHERE role_id = ?`, roleID); err != nil {
		return err
	}
	if len(permissionIDs) == 0 {
		return nil
	}

	ids := dedupe(permissionIDs)
	values := make([]string, 0, len(ids))
	args := make([]any, 0, 2*len(ids))
	for _, id := range ids {
		values = append(values, "(?, ?)")
		args = append(args, roleID, id)
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO role_permissions (role_id, permission_id) VALUES `+strings.Join(values, ", "), args...)
	return mapWriteErr(err)
}

func (r *rolesRepo) DeleteRole(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM roles WHERE id = ?`, id)
	if err != nil {
		return mapDeleteErr(err)
	}
	return expectAffected(res, nil)
}

// permissionsForRoles loads the permissions granted to each role.
func permissionsForRoles(ctx context.Context, db dbtx, roleIDs []int64) (map[int64][]domain.Permission, error) {
	out := make(map[int64][]domain.Permission, len(roleIDs))
	if len(roleIDs) == 0 {
		return out, nil
	}

	in, args := inList(roleIDs)
	rows, err := db.QueryContext(ctx,
		`SELECT rp.role_id, `+permissionColumnsPrefixed+`
		 FROM role_permissions rp JOIN permissions p ON p.id = rp.permission_id
		 WHERE rp.role_id IN (`+in+`)
		 ORDER BY p.sort, p.id`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to load role permissions: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var roleID int64
		perm, err := scanPermission(rows, &roleID)
		if err != nil {
			return nil, err
		}
		out[roleID] = append(out[roleID], perm)
	}
	return out, rows.Err()
}
