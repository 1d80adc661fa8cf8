package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/max950509/web-admin-fullstack-template/internal/admin/domain"
)

type exportTasksRepo struct {
	db dbtx
}

const exportTaskColumns = `id, type, format, status, params, file_name, file_path, error, created_by, created_at, started_at, finished_at`

func scanExportTask(row rowScanner) (domain.ExportTask, error) {
	var (
		t                 domain.ExportTask
		created           int64
		started, finished sql.NullInt64
	)
	if err := row.Scan(&t.ID, &t.Type, &t.Format, &t.Status, &t.Params, &t.FileName, &t.FilePath,
		&t.Error, &t.CreatedBy, &created, &started, &finished); err != nil {
		return domain.ExportTask{}, err
	}
	t.CreatedAt = fromMillis(created)
	t.StartedAt = mapNullTimePtr(started)
	t.FinishedAt = mapNullTimePtr(finished)
	return t, nil
}

func (r *exportTasksRepo) CreateExportTask(ctx context.Context, t domain.ExportTask) (int64, error) {
	status := t.Status
	if status == "" {
		status = domain.ExportPending
	}
	params := t.Params
	if params == "" {
		params = "{}"
	}
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO export_tasks (type, format, status, params, created_by, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		t.Type, string(t.Format), string(status), params, t.CreatedBy, nowMillis())
	if err != nil {
		return 0, mapWriteErr(err)
	}
	return res.LastInsertId()
}

func (r *exportTasksRepo) GetExportTaskByID(ctx context.Context, id int64) (domain.ExportTask, error) {
	t, err := scanExportTask(r.db.QueryRowContext(ctx,
		`SELECT `+exportTaskColumns+` FROM export_tasks WHERE id = ?`, id))
	if err != nil {
		return domain.ExportTask{}, mapNotFound(err)
	}
	return t, nil
}

func (r *exportTasksRepo) ListExportTasks(ctx context.Context, f domain.ExportTaskFilter, p domain.Page) ([]domain.ExportTask, int, error) {
	var (
		conds []string
		args  []any
	)
	if f.CreatedBy != nil {
		conds = append(conds, `created_by = ?`)
		args = append(args, *f.CreatedBy)
	}
	if f.Status != "" {
		conds = append(conds, `status = ?`)
		args = append(args, string(f.Status))
	}
	where := whereClause(conds)

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM export_tasks`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count export tasks: %w", err)
	}

	query, args := limitClause(`SELECT `+exportTaskColumns+` FROM export_tasks`+where+` ORDER BY id DESC`,
		args, p.Page, p.PageSize)
	return r.query(ctx, total, query, args...)
}

func (r *exportTasksRepo) query(ctx context.Context, total int, query string, args ...any) ([]domain.ExportTask, int, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []domain.ExportTask
	for rows.Next() {
		t, err := scanExportTask(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, t)
	}
	return out, total, rows.Err()
}

func (r *exportTasksRepo) MarkExportTaskRunning(ctx context.Context, id int64, at time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE export_tasks SET status = 'running', started_at = ? WHERE id = ? AND status = 'pending'`,
		at.UnixMilli(), id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (r *exportTasksRepo) FinishExportTask(ctx context.Context, t domain.ExportTask) error {
	return expectAffected(r.db.ExecContext(ctx,
		`UPDATE export_tasks SET status = ?, file_name = ?, file_path = ?, error = ?, finished_at = ?
		 WHERE id = ? AND status = 'running'`,
		string(t.Status), t.FileName, t.FilePath, t.Error, mapOptionalTime(t.FinishedAt), t.ID))
}

func (r *exportTasksRepo) ListPendingExportTaskIDs(ctx context.Context) ([]int64, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id FROM export_tasks WHERE status = 'pending' ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *exportTasksRepo) ListExportTasksFinishedBefore(ctx context.Context, t time.Time) ([]domain.ExportTask, error) {
	tasks, _, err := r.query(ctx, 0,
		`SELECT `+exportTaskColumns+` FROM export_tasks
		 WHERE status IN ('success', 'failed') AND finished_at < ? ORDER BY id`, t.UnixMilli())
	return tasks, err
}

func (r *exportTasksRepo) DeleteExportTasks(ctx context.Context, ids ...int64) error {
	if len(ids) == 0 {
		return nil
	}
	in, args := inList(ids)
	_, err := r.db.ExecContext(ctx, `DELETE FROM export_tasks WHERE id IN (`+in+`)`, args...)
	return err
}
