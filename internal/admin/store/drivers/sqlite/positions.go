package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/max950509/web-admin-fullstack-template/internal/admin/domain"
)

type positionsRepo struct {
	db dbtx
}

const positionSelect = `SELECT p.id, p.name, p.department_id, COALESCE(d.name, ''), p.sort, p.created_at, p.updated_at
	FROM positions p LEFT JOIN departments d ON d.id = p.department_id`

func scanPosition(row rowScanner) (domain.Position, error) {
	var (
		p                domain.Position
		deptID           sql.NullInt64
		created, updated int64
	)
	if err := row.Scan(&p.ID, &p.Name, &deptID, &p.DepartmentName, &p.Sort, &created, &updated); err != nil {
		return domain.Position{}, err
	}
	p.DepartmentID = mapNullInt64Ptr(deptID)
	p.CreatedAt = fromMillis(created)
	p.UpdatedAt = fromMillis(updated)
	return p, nil
}

func (r *positionsRepo) GetPositionByID(ctx context.Context, id int64) (domain.Position, error) {
	p, err := scanPosition(r.db.QueryRowContext(ctx, positionSelect+` WHERE p.id = ?`, id))
	if err != nil {
		return domain.Position{}, mapNotFound(err)
	}
	return p, nil
}

func (r *positionsRepo) ListPositions(ctx context.Context, f domain.PositionFilter, pg domain.Page) ([]domain.Position, int, error) {
	var (
		conds []string
		args  []any
	)
	if f.Name != "" {
		conds = append(conds, `p.name LIKE ? ESCAPE '\'`)
		args = append(args, likePattern(f.Name))
	}
	if f.DepartmentID != nil {
		conds = append(conds, `p.department_id = ?`)
		args = append(args, *f.DepartmentID)
	}
	where := whereClause(conds)

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM positions p`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count positions: %w", err)
	}

	query, args := limitClause(positionSelect+where+` ORDER BY p.sort, p.id`, args, pg.Page, pg.PageSize)
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []domain.Position
	for rows.Next() {
		p, err := scanPosition(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, p)
	}
	return out, total, rows.Err()
}

func (r *positionsRepo) CreatePosition(ctx context.Context, p domain.Position) (int64, error) {
	now := nowMillis()
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO positions (name, department_id, sort, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		p.Name, mapOptionalInt64(p.DepartmentID), p.Sort, now, now)
	if err != nil {
		return 0, mapWriteErr(err)
	}
	return res.LastInsertId()
}

func (r *positionsRepo) UpdatePosition(ctx context.Context, p domain.Position) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE positions SET name = ?, department_id = ?, sort = ?, updated_at = ? WHERE id = ?`,
		p.Name, mapOptionalInt64(p.DepartmentID), p.Sort, nowMillis(), p.ID)
	if err != nil {
		return mapWriteErr(err)
	}
	return expectAffected(res, nil)
}

func (r *positionsRepo) DeletePosition(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM positions WHERE id = ?`, id)
	if err != nil {
		return mapDeleteErr(err)
	}
	return expectAffected(res, nil)
}
