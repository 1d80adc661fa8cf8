package service

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/max950509/web-admin-fullstack-template/internal/admin/domain"
	"github.com/max950509/web-admin-fullstack-template/internal/admin/queue"
	"github.com/stretchr/testify/require"
)

func newExportService(t *testing.T, env *testEnv) *ExportService {
	t.Helper()
	return &ExportService{
		Store:     env.store,
		Queue:     queue.NewMemory(16),
		Exporters: map[string]Exporter{domain.ExportTypeAccount: &AccountExporter{Store: env.store}},
		Dir:       t.TempDir(),
		Logger:    slog.New(slog.DiscardHandler),
		Now:       func() time.Time { return env.now },
	}
}

func itoa(n int64) string { return strconv.FormatInt(n, 10) }

func TestExportTaskRunsOnce(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	exports := newExportService(t, env)

	viewer := env.createRole(t, "viewer")
	alice := env.createUser(t, "alice", "secret-pw", viewer)
	env.createUser(t, "bob", "secret-pw")

	_, err := exports.CreateTask(ctx, alice.ID, "invoice", domain.ExportCSV, nil)
	require.ErrorIs(t, err, ErrInvalidInput)
	_, err = exports.CreateTask(ctx, alice.ID, domain.ExportTypeAccount, "pdf", nil)
	require.ErrorIs(t, err, ErrInvalidInput)

	task, err := exports.CreateTask(ctx, alice.ID, domain.ExportTypeAccount, domain.ExportCSV,
		map[string]any{"username": " ali ", "roleIds": []any{float64(viewer), "x"}, "ignored": true})
	require.NoError(t, err)
	require.Equal(t, domain.ExportPending, task.Status)
	require.JSONEq(t, `{"username":"ali","roleIds":[`+itoa(viewer)+`]}`, task.Params)

	require.NoError(t, exports.RunExport(ctx, task.ID))
	require.NoError(t, exports.RunExport(ctx, task.ID), "a second delivery is skipped")

	task, err = exports.getTask(ctx, task.ID)
	require.NoError(t, err)
	require.Equal(t, domain.ExportSuccess, task.Status)
	require.Equal(t, "account-export-"+itoa(task.ID)+".csv", task.FileName)
	require.Equal(t, filepath.Join(exports.Dir, task.FileName), task.FilePath)
	require.NotNil(t, task.StartedAt)
	require.NotNil(t, task.FinishedAt)

	data, err := os.ReadFile(task.FilePath)
	require.NoError(t, err)
	require.Equal(t, "\uFEFFID,username,roles\n"+itoa(alice.ID)+",alice,viewer\n", string(data))
}

func TestExportDownloadVisibility(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	exports := newExportService(t, env)

	adminRole := env.createRole(t, domain.SuperAdminRoleName)
	alice := env.createUser(t, "alice", "secret-pw")
	bob := env.createUser(t, "bob", "secret-pw")
	root := env.createUser(t, "root", "secret-pw", adminRole)

	task, err := exports.CreateTask(ctx, alice.ID, domain.ExportTypeAccount, domain.ExportXLSX, nil)
	require.NoError(t, err)

	_, _, err = exports.Download(ctx, alice, task.ID)
	require.ErrorIs(t, err, ErrInvalidInput, "not finished yet")

	require.NoError(t, exports.RunExport(ctx, task.ID))

	_, _, err = exports.Download(ctx, bob, task.ID)
	require.ErrorIs(t, err, ErrNotFound)

	for _, caller := range []domain.User{alice, root} {
		got, f, err := exports.Download(ctx, caller, task.ID)
		require.NoError(t, err)
		data, err := io.ReadAll(f)
		require.NoError(t, f.Close())
		require.NoError(t, err)
		require.Equal(t, "account-export-"+itoa(task.ID)+".xlsx", got.FileName)

		rows, err := decodeSheet(data)
		require.NoError(t, err)
		require.Len(t, rows, 4)
		require.Equal(t, []string{"ID", "username", "roles"}, rows[0])
	}

	own, err := exports.ListTasks(ctx, bob, "", domain.Page{})
	require.NoError(t, err)
	require.Zero(t, own.Total)
	all, err := exports.ListTasks(ctx, root, domain.ExportSuccess, domain.Page{})
	require.NoError(t, err)
	require.Equal(t, 1, all.Total)
}

func TestExportWorkersDrainQueue(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	exports := newExportService(t, env)
	exports.Workers = 2
	alice := env.createUser(t, "alice", "secret-pw")

	// A task created before the workers start, whose queue entry was lost.
	orphanID, err := env.store.ExportTasks().CreateExportTask(ctx, domain.ExportTask{
		Type: domain.ExportTypeAccount, Format: domain.ExportCSV, Status: domain.ExportPending, CreatedBy: alice.ID,
	})
	require.NoError(t, err)

	require.NoError(t, exports.Start(ctx))
	t.Cleanup(exports.Stop)

	task, err := exports.CreateTask(ctx, alice.ID, domain.ExportTypeAccount, domain.ExportCSV, nil)
	require.NoError(t, err)

	for _, id := range []int64{orphanID, task.ID} {
		require.Eventually(t, func() bool {
			got, err := exports.getTask(ctx, id)
			return err == nil && got.Status == domain.ExportSuccess
		}, 5*time.Second, 10*time.Millisecond)
	}
}

func TestExportFailureIsRecorded(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	exports := newExportService(t, env)
	alice := env.createUser(t, "alice", "secret-pw")

	// A file where the export directory should be makes the write fail.
	blocker := filepath.Join(t.TempDir(), "exports")
	require.NoError(t, os.WriteFile(blocker, nil, 0o644))
	exports.Dir = blocker

	task, err := exports.CreateTask(ctx, alice.ID, domain.ExportTypeAccount, domain.ExportCSV, nil)
	require.NoError(t, err)
	require.Error(t, exports.RunExport(ctx, task.ID))

	task, err = exports.getTask(ctx, task.ID)
	require.NoError(t, err)
	require.Equal(t, domain.ExportFailed, task.Status)
	require.Contains(t, task.Error, "export dir")
	require.Empty(t, task.FilePath)
}

func TestExportPrune(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	exports := newExportService(t, env)
	alice := env.createUser(t, "alice", "secret-pw")

	task, err := exports.CreateTask(ctx, alice.ID, domain.ExportTypeAccount, domain.ExportCSV, nil)
	require.NoError(t, err)
	require.NoError(t, exports.RunExport(ctx, task.ID))
	task, err = exports.getTask(ctx, task.ID)
	require.NoError(t, err)

	n, err := exports.Prune(ctx, env.now.Add(time.Hour), 2*time.Hour)
	require.NoError(t, err)
	require.Zero(t, n)

	n, err = exports.Prune(ctx, env.now.Add(3*time.Hour), 2*time.Hour)
	require.NoError(t, err)
	require.Equal(t, 1, n)
	require.NoFileExists(t, task.FilePath)

	_, err = exports.getTask(ctx, task.ID)
	require.ErrorIs(t, err, ErrNotFound)
}
