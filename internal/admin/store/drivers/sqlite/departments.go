package sqlite

import (
	"context"
	"database/sql"

	"github.com/max950509/web-admin-fullstack-template/internal/admin/domain"
)

type departmentsRepo struct {
	db dbtx
}

const departmentColumns = `id, name, parent_id, sort, created_at, updated_at`

func scanDepartment(row rowScanner) (domain.Department, error) {
	var (
		d                domain.Department
		parentID         sql.NullInt64
		created, updated int64
	)
	if err := row.Scan(&d.ID, &d.Name, &parentID, &d.Sort, &created, &updated); err != nil {
		return domain.Department{}, err
	}
	d.ParentID = mapNullInt64Ptr(parentID)
	d.CreatedAt = fromMillis(created)
	d.UpdatedAt = fromMillis(updated)
	return d, nil
}

func (r *departmentsRepo) GetDepartmentByID(ctx context.Context, id int64) (domain.Department, error) {
	d, err := scanDepartment(r.db.QueryRowContext(ctx,
		`SELECT `+departmentColumns+` FROM departments WHERE id = ?`, id))
	if err != nil {
		return domain.Department{}, mapNotFound(err)
	}
	return d, nil
}

func (r *departmentsRepo) ListDepartments(ctx context.Context) ([]domain.Department, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+departmentColumns+` FROM departments ORDER BY sort, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Department
	for rows.Next() {
		d, err := scanDepartment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (r *departmentsRepo) CreateDepartment(ctx context.Context, d domain.Department) (int64, error) {
	now := nowMillis()
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO departments (name, parent_id, sort, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		d.Name, mapOptionalInt64(d.ParentID), d.Sort, now, now)
	if err != nil {
		return 0, mapWriteErr(err)
	}
	return res.LastInsertId()
}

func (r *departmentsRepo) UpdateDepartment(ctx context.Context, d domain.Department) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE departments SET name = ?, parent_id = ?, sort = ?, updated_at = ? WHERE id = ?`,
		d.Name, mapOptionalInt64(d.ParentID), d.Sort, nowMillis(), d.ID)
	if err != nil {
		return mapWriteErr(err)
	}
	return expectAffected(res, nil)
}

func (r *departmentsRepo) DeleteDepartment(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM departments WHERE id = ?`, id)
	if err != nil {
		return mapDeleteErr(err)
	}
	return expectAffected(res, nil)
}
