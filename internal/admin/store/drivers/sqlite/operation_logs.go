package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/max950509/web-admin-fullstack-template/internal/admin/domain"
)

type operationLogsRepo struct {
	db dbtx
}

const operationLogColumns = `id, user_id, username, action, resource, method, path, ip, user_agent, payload, status_code, created_at`

func scanOperationLog(row rowScanner) (domain.OperationLog, error) {
	var (
		l       domain.OperationLog
		userID  sql.NullInt64
		created int64
	)
	if err := row.Scan(&l.ID, &userID, &l.Username, &l.Action, &l.Resource, &l.Method, &l.Path,
		&l.IP, &l.UserAgent, &l.Payload, &l.StatusCode, &created); err != nil {
		return domain.OperationLog{}, err
	}
	l.UserID = mapNullInt64Ptr(userID)
	l.CreatedAt = fromMillis(created)
	return l, nil
}

func (r *operationLogsRepo) CreateOperationLog(ctx context.Context, l domain.OperationLog) error {
	created := l.CreatedAt.UnixMilli()
	if l.CreatedAt.IsZero() {
		created = nowMillis()
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO operation_logs (user_id, username, action, resource, method, path, ip, user_agent, payload, status_code, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		mapOptionalInt64(l.UserID), l.Username, l.Action, l.Resource, l.Method, l.Path,
		l.IP, l.UserAgent, l.Payload, l.StatusCode, created)
	return mapWriteErr(err)
}

func (r *operationLogsRepo) ListOperationLogs(ctx context.Context, f domain.OperationLogFilter, p domain.Page) ([]domain.OperationLog, int, error) {
	var (
		conds []string
		args  []any
	)
	if f.UserID != nil {
		conds = append(conds, `user_id = ?`)
		args = append(args, *f.UserID)
	}
	if f.Username != "" {
		conds = append(conds, `username LIKE ? ESCAPE '\'`)
		args = append(args, likePattern(f.Username))
	}
	if f.Action != "" {
		conds = append(conds, `action = ?`)
		args = append(args, f.Action)
	}
	if f.Resource != "" {
		conds = append(conds, `resource = ?`)
		args = append(args, f.Resource)
	}
	if f.Method != "" {
		conds = append(conds, `method = ?`)
		args = append(args, f.Method)
	}
	if f.StatusCode != 0 {
		conds = append(conds, `status_code = ?`)
		args = append(args, f.StatusCode)
	}
	if f.Start != nil {
		conds = append(conds, `created_at >= ?`)
		args = append(args, f.Start.UnixMilli())
	}
	if f.End != nil {
		conds = append(conds, `created_at <= ?`)
		args = append(args, f.End.UnixMilli())
	}
	where := whereClause(conds)

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM operation_logs`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count operation logs: %w", err)
	}

	query, args := limitClause(`SELECT `+operationLogColumns+` FROM operation_logs`+where+` ORDER BY id DESC`,
		args, p.Page, p.PageSize)
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []domain.OperationLog
	for rows.Next() {
		l, err := scanOperationLog(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, l)
	}
	return out, total, rows.Err()
}

func (r *operationLogsRepo) DeleteOperationLogsBefore(ctx context.Context, t time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM operation_logs WHERE created_at < ?`, t.UnixMilli())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
