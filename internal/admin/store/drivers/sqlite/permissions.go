package sqlite

import (
	"context"
	"database/sql"

	"github.com/max950509/web-admin-fullstack-template/internal/admin/domain"
)

type permissionsRepo struct {
	db dbtx
}

const (
	permissionColumns         = `id, name, type, action, resource, parent_id, sort, created_at, updated_at`
	permissionColumnsPrefixed = `p.id, p.name, p.type, p.action, p.resource, p.parent_id, p.sort, p.created_at, p.updated_at`
)

func scanPermission(row rowScanner, extra ...any) (domain.Permission, error) {
	var (
		p                domain.Permission
		parentID         sql.NullInt64
		created, updated int64
	)
	dest := append(extra, &p.ID, &p.Name, &p.Type, &p.Action, &p.Resource, &parentID, &p.Sort, &created, &updated)
	if err := row.Scan(dest...); err != nil {
		return domain.Permission{}, err
	}
	p.ParentID = mapNullInt64Ptr(parentID)
	p.CreatedAt = fromMillis(created)
	p.UpdatedAt = fromMillis(updated)
	return p, nil
}

func (r *permissionsRepo) GetPermissionByID(ctx context.Context, id int64) (domain.Permission, error) {
	p, err := scanPermission(r.db.QueryRowContext(ctx,
		`SELECT `+permissionColumns+` FROM permissions WHERE id = ?`, id))
	if err != nil {
		return domain.Permission{}, mapNotFound(err)
	}
	return p, nil
}

func (r *permissionsRepo) ListPermissions(ctx context.Context) ([]domain.Permission, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+permissionColumns+` FROM permissions ORDER BY sort, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var perms []domain.Permission
	for rows.Next() {
		p, err := scanPermission(rows)
		if err != nil {
			return nil, err
		}
		perms = append(perms, p)
	}
	return perms, rows.Err()
}

func (r *permissionsRepo) CreatePermission(ctx context.Context, p domain.Permission) (int64, error) {
	now := nowMillis()
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO permissions (name, type, action, resource, parent_id, sort, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		p.Name, string(p.Type), p.Action, p.Resource, mapOptionalInt64(p.ParentID), p.Sort, now, now)
	if err != nil {
		return 0, mapWriteErr(err)
	}
	return res.LastInsertId()
}

func (r *permissionsRepo) UpdatePermission(ctx context.Context, p domain.Permission) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE permissions SET name = ?, type = ?, action = ?, resource = ?, parent_id = ?, sort = ?, updated_at = ?
		 WHERE id = ?`,
		p.Name, string(p.Type), p.Action, p.Resource, mapOptionalInt64(p.ParentID), p.Sort, nowMillis(), p.ID)
	if err != nil {
		return mapWriteErr(err)
	}
	return expectAffected(res, nil)
}

func (r *permissionsRepo) DeletePermission(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM permissions WHERE id = ?`, id)
	if err != nil {
		return mapDeleteErr(err)
	}
	return expectAffected(res, nil)
}
