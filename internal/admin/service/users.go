package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/max950509/web-admin-fullstack-template/internal/admin/domain"
	"github.com/max950509/web-admin-fullstack-template/internal/admin/store"
	"github.com/max950509/web-admin-fullstack-template/pkg/cryptox"
	"github.com/max950509/web-admin-fullstack-template/pkg/slogx"
)

const (
	MinPasswordLength = 6
	MaxPasswordLength = 30
)

// ImportMode selects how account imports treat existing usernames.
type ImportMode string

const (
	ImportInsert ImportMode = "insert" // existing usernames are reported as errors
	ImportUpsert ImportMode = "upsert" // existing usernames are updated
)

// CreateUserInput describes a new account.
type CreateUserInput struct {
	Username     string
	Password     string
	RoleIDs      []int64
	DepartmentID *int64
	PositionID   *int64
}

// UpdateUserInput is a partial update. Nil fields are left unchanged; a
// non-nil RoleIDs replaces the whole role set.
type UpdateUserInput struct {
	Username     *string
	Password     *string
	RoleIDs      *[]int64
	DepartmentID *int64
	PositionID   *int64
}

// ImportError reports why one spreadsheet row was rejected. Row is 1-based
// and counts the header.
type ImportError struct {
	Row     int
	Message string
}

type ImportResult struct {
	SuccessCount int
	FailCount    int
	Errors       []ImportError
}

// UserService manages accounts.
type UserService struct {
	Store store.Store

	// Tokens, when set, revokes every session of a user whose password changes.
	Tokens *TokenService
}

// GetUserByID fetches a user with roles.
func (s *UserService) GetUserByID(ctx context.Context, id int64) (domain.User, error) {
	u, err := s.Store.Users().GetUserByID(ctx, id)
	if err != nil {
		return domain.User{}, mapStoreErr(err, "user")
	}
	return u, nil
}

func (s *UserService) ListUsers(ctx context.Context, f domain.UserFilter, p domain.Page) (domain.PageResult[domain.User], error) {
	p = p.Normalize()
	f.Username = strings.TrimSpace(f.Username)
	users, total, err := s.Store.Users().ListUsers(ctx, f, p)
	if err != nil {
		return domain.PageResult[domain.User]{}, fmt.Errorf("failed to list users: %w", err)
	}
	return domain.NewPageResult(users, total, p), nil
}

func (s *UserService) CreateUser(ctx context.Context, in CreateUserInput) (domain.User, error) {
	in.Username = strings.TrimSpace(in.Username)
	if in.Username == "" {
		return domain.User{}, invalidf("username is required")
	}
	if err := validatePassword(in.Password); err != nil {
		return domain.User{}, err
	}

	hash, err := cryptox.HashPassword(in.Password)
	if err != nil {
		return domain.User{}, fmt.Errorf("failed to hash password: %w", err)
	}

	var id int64
	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		var err error
		id, err = tx.Users().CreateUser(ctx, domain.User{
			Username:     in.Username,
			PasswordHash: hash,
			DepartmentID: in.DepartmentID,
			PositionID:   in.PositionID,
		})
		if err != nil {
			return err
		}
		return tx.Users().SetUserRoles(ctx, id, in.RoleIDs)
	})
	if err != nil {
		return domain.User{}, mapStoreErr(err, "user")
	}

	slogx.FromContext(ctx).Info("user created", "user_id", id, "username", in.Username)
	return s.GetUserByID(ctx, id)
}

func (s *UserService) UpdateUser(ctx context.Context, id int64, in UpdateUserInput) (domain.User, error) {
	passwordChanged := false

	err := s.Store.WithTx(ctx, func(tx store.Tx) error {
		u, err := tx.Users().GetUserByID(ctx, id)
		if err != nil {
			return err
		}

		if in.Username != nil {
			name := strings.TrimSpace(*in.Username)
			if name == "" {
				return invalidf("username is required")
			}
			u.Username = name
		}
		if in.Password != nil && *in.Password != "" {
			if err := validatePassword(*in.Password); err != nil {
				return err
			}
			hash, err := cryptox.HashPassword(*in.Password)
			if err != nil {
				return fmt.Errorf("failed to hash password: %w", err)
			}
			u.PasswordHash = hash
			passwordChanged = true
		}
		if in.DepartmentID != nil {
			u.DepartmentID = in.DepartmentID
		}
		if in.PositionID != nil {
			u.PositionID = in.PositionID
		}

		if err := tx.Users().UpdateUser(ctx, u); err != nil {
			return err
		}
		if in.RoleIDs != nil {
			return tx.Users().SetUserRoles(ctx, id, *in.RoleIDs)
		}
		return nil
	})
	if errors.Is(err, ErrInvalidInput) {
		return domain.User{}, err
	}
	if err != nil {
		return domain.User{}, mapStoreErr(err, "user")
	}

	if passwordChanged && s.Tokens != nil {
		if err := s.Tokens.LogoutAll(ctx, id); err != nil {
			slogx.FromContext(ctx).Warn("failed to revoke sessions after password change", "user_id", id, "err", err)
		}
	}
	return s.GetUserByID(ctx, id)
}

func (s *UserService) DeleteUser(ctx context.Context, id int64) error {
	if _, err := s.Store.Users().GetUserByID(ctx, id); err != nil {
		return mapStoreErr(err, "user")
	}
	return s.DeleteUsers(ctx, id)
}

// DeleteUsers removes every listed account; unknown ids are ignored.
func (s *UserService) DeleteUsers(ctx context.Context, ids ...int64) error {
	if len(ids) == 0 {
		return invalidf("ids are required")
	}
	if err := s.Store.Users().DeleteUsers(ctx, ids...); err != nil {
		return mapStoreErr(err, "user")
	}
	slogx.FromContext(ctx).Info("users deleted", "user_ids", ids)
	return nil
}

var templateHeader = []string{"username", "password", "roleNames"}

// Template returns an empty import sheet with the expected header row.
func (s *UserService) Template(format domain.ExportFormat) (File, error) {
	if !format.Valid() {
		format = domain.ExportCSV
	}
	data, err := encodeSheet([][]string{templateHeader}, format)
	if err != nil {
		return File{}, err
	}
	return File{
		Name:        "accounts-template." + string(format),
		ContentType: ContentTypeFor(format),
		Data:        data,
	}, nil
}

type importRow struct {
	row       int
	username  string
	password  string
	roleNames []string
}

// ImportUsers creates (or, in upsert mode, updates) accounts from a CSV or
// XLSX sheet with username, password and roleNames columns. Each row
// succeeds or fails on its own.
func (s *UserService) ImportUsers(ctx context.Context, data []byte, mode ImportMode) (ImportResult, error) {
	if len(data) == 0 {
		return ImportResult{}, invalidf("file is required")
	}
	if mode != ImportUpsert {
		mode = ImportInsert
	}

	sheet, err := decodeSheet(data)
	if err != nil {
		return ImportResult{}, err
	}
	rows := parseImportRows(sheet)

	roles, _, err := s.Store.Roles().ListRoles(ctx, "", domain.Page{})
	if err != nil {
		return ImportResult{}, fmt.Errorf("failed to list roles: %w", err)
	}
	roleByName := make(map[string]int64, len(roles))
	for _, r := range roles {
		roleByName[strings.ToLower(r.Name)] = r.ID
	}

	res := ImportResult{Errors: []ImportError{}}
	fail := func(row int, msg string) {
		res.Errors = append(res.Errors, ImportError{Row: row, Message: msg})
	}

	for _, r := range rows {
		switch {
		case r.username == "":
			fail(r.row, "username is required")
			continue
		case r.password == "":
			fail(r.row, "password is required")
			continue
		case len(r.password) < MinPasswordLength:
			fail(r.row, fmt.Sprintf("password must be at least %d characters", MinPasswordLength))
			continue
		case len(r.roleNames) == 0:
			fail(r.row, "roleNames is required")
			continue
		}

		roleIDs := make([]int64, 0, len(r.roleNames))
		var missing []string
		for _, name := range r.roleNames {
			id, ok := roleByName[strings.ToLower(name)]
			if !ok {
				missing = append(missing, name)
				continue
			}
			roleIDs = append(roleIDs, id)
		}
		if len(missing) > 0 {
			fail(r.row, "unknown roles: "+strings.Join(missing, ","))
			continue
		}

		existing, err := s.Store.Users().GetUserByUsername(ctx, r.username)
		switch {
		case err == nil && mode == ImportInsert:
			fail(r.row, "username already exists")
			continue
		case err == nil:
			_, err = s.UpdateUser(ctx, existing.ID, UpdateUserInput{Password: &r.password, RoleIDs: &roleIDs})
		case errors.Is(err, store.ErrNotFound):
			_, err = s.CreateUser(ctx, CreateUserInput{Username: r.username, Password: r.password, RoleIDs: roleIDs})
		}
		if err != nil {
			slogx.FromContext(ctx).Warn("import row failed", "row", r.row, "err", err)
			fail(r.row, "import failed")
			continue
		}
		res.SuccessCount++
	}

	res.FailCount = len(res.Errors)
	slogx.FromContext(ctx).Info("users imported", "mode", mode, "success", res.SuccessCount, "failed", res.FailCount)
	return res, nil
}

func parseImportRows(sheet [][]string) []importRow {
	if len(sheet) == 0 {
		return nil
	}

	columns := make(map[int]string, len(sheet[0]))
	for i, h := range sheet[0] {
		switch normalizeHeader(h) {
		case "username", "account":
			columns[i] = "username"
		case "password":
			columns[i] = "password"
		case "rolenames", "roles", "role":
			columns[i] = "roleNames"
		}
	}

	var rows []importRow
	for i, cells := range sheet[1:] {
		r := importRow{row: i + 2}
		empty := true
		for j, cell := range cells {
			value := strings.TrimSpace(cell)
			if value == "" {
				continue
			}
			switch columns[j] {
			case "username":
				r.username = value
			case "password":
				r.password = value
			case "roleNames":
				r.roleNames = splitRoleNames(value)
			default:
				continue
			}
			empty = false
		}
		if !empty {
			rows = append(rows, r)
		}
	}
	return rows
}

func splitRoleNames(s string) []string {
	var names []string
	for _, part := range strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == '，' }) {
		if part = strings.TrimSpace(part); part != "" {
			names = append(names, part)
		}
	}
	return names
}

func validatePassword(pw string) error {
	if len(pw) < MinPasswordLength || len(pw) > MaxPasswordLength {
		return invalidf("password must be %d to %d characters", MinPasswordLength, MaxPasswordLength)
	}
	return nil
}
