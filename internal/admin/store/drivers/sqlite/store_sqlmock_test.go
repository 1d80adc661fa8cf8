package sqlite_test

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/max950509/web-admin-fullstack-template/internal/admin/store"
	"github.com/max950509/web-admin-fullstack-template/internal/admin/store/drivers/sqlite"
	"github.com/stretchr/testify/require"
)

func newMockStore(t *testing.T) (*sqlite.Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return sqlite.NewStoreFromDB(db), mock
}

func TestMockNoRowsMapsToNotFound(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(`SELECT .* FROM permissions WHERE id = \?`).
		WithArgs(int64(7)).
		WillReturnError(sql.ErrNoRows)

	_, err := s.Permissions().GetPermissionByID(context.Background(), 7)
	require.ErrorIs(t, err, store.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMockDriverErrorsPropagate(t *testing.T) {
	s, mock := newMockStore(t)
	boom := errors.New("disk I/O error")

	mock.ExpectQuery(`SELECT id FROM export_tasks WHERE status = 'pending'`).WillReturnError(boom)

	_, err := s.ExportTasks().ListPendingExportTaskIDs(context.Background())
	require.ErrorIs(t, err, boom)
	require.NotErrorIs(t, err, store.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMockUpdateMatchingNothingIsNotFound(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec(`UPDATE users SET otp_enabled = 1`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := s.Users().EnableOTP(context.Background(), 3)
	require.ErrorIs(t, err, store.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMockPing(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectPing().WillReturnError(errors.New("gone"))
	require.Error(t, s.Ping(context.Background()))
	require.NoError(t, mock.ExpectationsWereMet())
}
