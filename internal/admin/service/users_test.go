package service

import (
	"bytes"
	"context"
	"testing"

	"github.com/max950509/web-admin-fullstack-template/internal/admin/domain"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestUserLifecycle(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	users := &UserService{Store: env.store, Tokens: env.tokens}
	viewer := env.createRole(t, "viewer", domain.Requirement{Action: "read", Resource: "account"})

	_, err := users.CreateUser(ctx, CreateUserInput{Username: "alice", Password: "short"})
	require.ErrorIs(t, err, ErrInvalidInput)
	_, err = users.CreateUser(ctx, CreateUserInput{Username: "  ", Password: "long-enough"})
	require.ErrorIs(t, err, ErrInvalidInput)

	u, err := users.CreateUser(ctx, CreateUserInput{Username: "alice", Password: "secret-pw", RoleIDs: []int64{viewer}})
	require.NoError(t, err)
	require.Equal(t, []int64{viewer}, u.RoleIDs())

	_, err = users.CreateUser(ctx, CreateUserInput{Username: "alice", Password: "secret-pw"})
	require.ErrorIs(t, err, ErrConflict)

	_, err = users.CreateUser(ctx, CreateUserInput{Username: "bob", Password: "secret-pw", RoleIDs: []int64{999}})
	require.ErrorIs(t, err, ErrNotFound)

	token, err := env.tokens.IssueAccess(ctx, u)
	require.NoError(t, err)

	t.Run("update without password keeps sessions", func(t *testing.T) {
		empty := []int64{}
		u, err := users.UpdateUser(ctx, u.ID, UpdateUserInput{Username: ptr("alice.w"), RoleIDs: &empty})
		require.NoError(t, err)
		require.Equal(t, "alice.w", u.Username)
		require.Empty(t, u.Roles)

		_, err = env.tokens.Validate(ctx, token)
		require.NoError(t, err)
	})

	t.Run("password change revokes sessions", func(t *testing.T) {
		_, err := users.UpdateUser(ctx, u.ID, UpdateUserInput{Password: ptr("new-secret")})
		require.NoError(t, err)

		_, err = env.tokens.Validate(ctx, token)
		require.ErrorIs(t, err, ErrUnauthenticated)

		res, err := env.login(t, "alice.w", "new-secret")
		require.NoError(t, err)
		require.NotEmpty(t, res.AccessToken)
	})

	t.Run("update rejects bad input", func(t *testing.T) {
		_, err := users.UpdateUser(ctx, u.ID, UpdateUserInput{Password: ptr("123")})
		require.ErrorIs(t, err, ErrInvalidInput)
		_, err = users.UpdateUser(ctx, 999, UpdateUserInput{})
		require.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("list and delete", func(t *testing.T) {
		_, err := users.CreateUser(ctx, CreateUserInput{Username: "carol", Password: "secret-pw"})
		require.NoError(t, err)

		page, err := users.ListUsers(ctx, domain.UserFilter{Username: "ALICE"}, domain.Page{})
		require.NoError(t, err)
		require.Equal(t, 1, page.Total)
		require.Equal(t, 1, page.Page)
		require.Equal(t, domain.DefaultPageSize, page.PageSize)

		require.ErrorIs(t, users.DeleteUser(ctx, 999), ErrNotFound)
		require.NoError(t, users.DeleteUser(ctx, u.ID))
		require.ErrorIs(t, users.DeleteUsers(ctx), ErrInvalidInput)

		page, err = users.ListUsers(ctx, domain.UserFilter{}, domain.Page{})
		require.NoError(t, err)
		require.Equal(t, 1, page.Total)
		require.Equal(t, "carol", page.List[0].Username)
	})
}

func TestUserTemplate(t *testing.T) {
	users := &UserService{}

	csvFile, err := users.Template(domain.ExportCSV)
	require.NoError(t, err)
	require.Equal(t, "accounts-template.csv", csvFile.Name)
	require.Equal(t, "\uFEFFusername,password,roleNames\n", string(csvFile.Data))

	xlsxFile, err := users.Template(domain.ExportXLSX)
	require.NoError(t, err)
	require.Equal(t, xlsxContentType, xlsxFile.ContentType)
	rows, err := decodeSheet(xlsxFile.Data)
	require.NoError(t, err)
	require.Equal(t, [][]string{templateHeader}, rows)

	fallback, err := users.Template("pdf")
	require.NoError(t, err)
	require.Equal(t, "accounts-template.csv", fallback.Name)
}

func TestImportUsers(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	users := &UserService{Store: env.store}
	env.createRole(t, "user")
	env.createRole(t, "auditor")
	_, err := users.CreateUser(ctx, CreateUserInput{Username: "existing", Password: "secret-pw"})
	require.NoError(t, err)

	sheet := "username,password,Role Names (comma separated)\n" +
		"dave,secret-pw,\"user,Auditor\"\n" +
		",secret-pw,user\n" +
		"erin,,user\n" +
		"frank,123,user\n" +
		"gina,secret-pw,\n" +
		"hank,secret-pw,ghost\n" +
		"existing,secret-pw,user\n" +
		",,\n"

	res, err := users.ImportUsers(ctx, []byte(sheet), ImportInsert)
	require.NoError(t, err)
	require.Equal(t, 1, res.SuccessCount)
	require.Equal(t, 6, res.FailCount)

	rows := make(map[int]string, len(res.Errors))
	for _, e := range res.Errors {
		rows[e.Row] = e.Message
	}
	require.Equal(t, "username is required", rows[3])
	require.Equal(t, "password is required", rows[4])
	require.Contains(t, rows[5], "at least 6")
	require.Equal(t, "roleNames is required", rows[6])
	require.Equal(t, "unknown roles: ghost", rows[7])
	require.Equal(t, "username already exists", rows[8])

	dave, err := env.store.Users().GetUserByUsername(ctx, "dave")
	require.NoError(t, err)
	require.Len(t, dave.Roles, 2)

	res, err = users.ImportUsers(ctx, []byte("username,password,roleNames\nexisting,other-pw,user\n"), ImportUpsert)
	require.NoError(t, err)
	require.Equal(t, 1, res.SuccessCount)
	existing, err := env.store.Users().GetUserByUsername(ctx, "existing")
	require.NoError(t, err)
	require.Len(t, existing.Roles, 1)

	_, err = users.ImportUsers(ctx, nil, ImportInsert)
	require.ErrorIs(t, err, ErrInvalidInput)
}

func TestImportUsersFromWorkbook(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	users := &UserService{Store: env.store}
	env.createRole(t, "user")

	f := excelize.NewFile()
	require.NoError(t, f.SetSheetRow("Sheet1", "A1", &[]any{"username", "password", "roles"}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A2", &[]any{"ivy", "secret-pw", "user"}))
	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))

	res, err := users.ImportUsers(ctx, buf.Bytes(), ImportInsert)
	require.NoError(t, err)
	require.Equal(t, 1, res.SuccessCount)
	require.Empty(t, res.Errors)
}
