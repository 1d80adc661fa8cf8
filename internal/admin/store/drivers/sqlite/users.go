package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/max950509/web-admin-fullstack-template/internal/admin/domain"
)

type usersRepo struct {
	db dbtx
}

const userColumns = `id, username, password_hash, otp_secret, otp_enabled, department_id, position_id, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (domain.User, error) {
	var (
		u                 domain.User
		otpSecret        sql.NullString
		deptID, posID    sql.NullInt64
		created, updated int64
	)
	if err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &otpSecret, &u.OTPEnabled,
		&deptID, &posID, &created, &updated); err != nil {
		return domain.User{}, err
	}
	u.OTPSecret = mapNullStringPtr(otpSecret)
	u.DepartmentID = mapNullInt64Ptr(deptID)
	u.PositionID = mapNullInt64Ptr(posID)
	u.CreatedAt = fromMillis(created)
	u.UpdatedAt = fromMillis(updated)
	return u, nil
}

func (r *usersRepo) getUser(ctx context.Context, where string, arg any) (domain.User, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE `+where, arg)
	u, err := scanUser(row)
	if err != nil {
		return domain.User{}, mapNotFound(err)
	}

	roles, err := rolesForUsers(ctx, r.db, []int64{u.ID}, true)
	if err != nil {
		return domain.User{}, err
	}
	u.Roles = roles[u.ID]
	return u, nil
}

func (r *usersRepo) GetUserByID(ctx context.Context, id int64) (domain.User, error) {
	return r.getUser(ctx, `id = ?`, id)
}

func (r *usersRepo) GetUserByUsername(ctx context.Context, username string) (domain.User, error) {
	return r.getUser(ctx, `username = ?`, username)
}

func (r *usersRepo) ListUsers(ctx context.Context, f domain.UserFilter, p domain.Page) ([]domain.User, int, error) {
	var (
		conds []string
		args  []any
	)
	if f.Username != "" {
		conds = append(conds, `username LIKE ? ESCAPE '\'`)
		args = append(args, likePattern(f.Username))
	}
	if len(f.RoleIDs) > 0 {
		in, inArgs := inList(f.RoleIDs)
		conds = append(conds, `id IN (SELECT user_id FROM user_roles WHERE role_id IN (`+in+`))`)
		args = append(args, inArgs...)
	}
	where := whereClause(conds)

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count users: %w", err)
	}

	query, args := limitClause(`SELECT `+userColumns+` FROM users`+where+` ORDER BY id DESC`, args, p.Page, p.PageSize)
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}

	var users []domain.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			_ = rows.Close()
			return nil, 0, err
		}
		users = append(users, u)
	}
	if err := rows.Close(); err != nil {
		return nil, 0, err
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	ids := make([]int64, len(users))
	for i, u := range users {
		ids[i] = u.ID
	}
	roles, err := rolesForUsers(ctx, r.db, ids, false)
	if err != nil {
		return nil, 0, err
	}
	for i := range users {
		users[i].Roles = roles[users[i].ID]
	}
	return users, total, nil
}

func (r *usersRepo) CreateUser(ctx context.Context, u domain.User) (int64, error) {
	now := nowMillis()
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO users (username, password_hash, otp_secret, otp_enabled, department_id, position_id, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		u.Username, u.PasswordHash, u.OTPSecret, u.OTPEnabled,
		mapOptionalInt64(u.DepartmentID), mapOptionalInt64(u.PositionID), now, now)
	if err != nil {
		return 0, mapWriteErr(err)
	}
	return res.LastInsertId()
}

func (r *usersRepo) UpdateUser(ctx context.Context, u domain.User) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET username = ?, password_hash = ?, department_id = ?, position_id = ?, updated_at = ?
		 WHERE id = ?`,
		u.Username, u.PasswordHash, mapOptionalInt64(u.DepartmentID), mapOptionalInt64(u.PositionID),
		nowMillis(), u.ID)
	if err != nil {
		return mapWriteErr(err)
	}
	return expectAffected(res, nil)
}

func (r *usersRepo) SetUserRoles(ctx context.Context, userID int64, roleIDs []int64) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM user_roles WHERE user_id = ?`, userID); err != nil {
		return err
	}
	if len(roleIDs) == 0 {
		return nil
	}

	values := make([]string, 0, len(roleIDs))
	args := make([]any, 0, 2*len(roleIDs))
	for _, id := range dedupe(roleIDs) {
		values = append(values, "(?, ?)")
		args = append(args, userID, id)
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO user_roles (user_id, role_id) VALUES `+strings.Join(values, ", "), args...)
	return mapWriteErr(err)
}

func (r *usersRepo) DeleteUsers(ctx context.Context, ids ...int64) error {
	if len(ids) == 0 {
		return nil
	}
	in, args := inList(ids)
	_, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id IN (`+in+`)`, args...)
	return mapDeleteErr(err)
}

func (r *usersRepo) UpdateOTPSecret(ctx context.Context, userID int64, secret string) error {
	return expectAffected(r.db.ExecContext(ctx,
		`UPDATE users SET otp_secret = ?, updated_at = ? WHERE id = ?`, secret, nowMillis(), userID))
}

func (r *usersRepo) EnableOTP(ctx context.Context, userID int64) error {
	return expectAffected(r.db.ExecContext(ctx,
		`UPDATE users SET otp_enabled = 1, updated_at = ? WHERE id = ?`, nowMillis(), userID))
}

func (r *usersRepo) IsEmpty(ctx context.Context) (bool, error) {
	var count int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&count); err != nil {
		return false, err
	}
	return count == 0, nil
}

// rolesForUsers loads the roles of each user, optionally with permissions.
func rolesForUsers(ctx context.Context, db dbtx, userIDs []int64, withPermissions bool) (map[int64][]domain.Role, error) {
	out := make(map[int64][]domain.Role, len(userIDs))
	if len(userIDs) == 0 {
		return out, nil
	}

	in, args := inList(userIDs)
	rows, err := db.QueryContext(ctx,
		`SELECT ur.user_id, `+roleColumnsPrefixed+`
		 FROM user_roles ur JOIN roles r ON r.id = ur.role_id
		 WHERE ur.user_id IN (`+in+`)
		 ORDER BY r.id`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to load user roles: %w", err)
	}

	type userRole struct {
		userID int64
		role   domain.Role
	}
	var pairs []userRole
	for rows.Next() {
		var userID int64
		role, err := scanRole(rows, &userID)
		if err != nil {
			_ = rows.Close()
			return nil, err
		}
		pairs = append(pairs, userRole{userID: userID, role: role})
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	var perms map[int64][]domain.Permission
	if withPermissions {
		roleIDs := make([]int64, len(pairs))
		for i, p := range pairs {
			roleIDs[i] = p.role.ID
		}
		perms, err = permissionsForRoles(ctx, db, dedupe(roleIDs))
		if err != nil {
			return nil, err
		}
	}

	for _, p := range pairs {
		if withPermissions {
			p.role.Permissions = perms[p.role.ID]
		}
		out[p.userID] = append(out[p.userID], p.role)
	}
	return out, nil
}

func dedupe(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
