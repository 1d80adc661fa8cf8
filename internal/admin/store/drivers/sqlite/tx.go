package sqlite

import (
	"context"
	"database/sql"

	"github.com/max950509/web-admin-fullstack-template/internal/admin/store"
)

type txStore struct {
	tx *sql.Tx
}

func newTx(tx *sql.Tx) *txStore {
	return &txStore{tx: tx}
}

func (t *txStore) Commit() error   { return t.tx.Commit() }
func (t *txStore) Rollback() error { return t.tx.Rollback() }

// Close is a no-op; the caller commits or rolls back and the outer DB stays open.
func (t *txStore) Close() error { return nil }

// Ping is a no-op since the connection is held by the transaction.
func (t *txStore) Ping(ctx context.Context) error { return nil }

func (t *txStore) Tx(ctx context.Context) (store.Tx, error) {
	// Nested tx not supported; could emulate with SAVEPOINT if needed
	return nil, sql.ErrTxDone
}

func (t *txStore) WithTx(ctx context.Context, fn func(tx store.Tx) error) error {
	return sql.ErrTxDone
}

func (t *txStore) Users() store.Users                 { return &usersRepo{db: t.tx} }
func (t *txStore) Roles() store.Roles                 { return &rolesRepo{db: t.tx} }
func (t *txStore) Permissions() store.Permissions     { return &permissionsRepo{db: t.tx} }
func (t *txStore) Departments() store.Departments     { return &departmentsRepo{db: t.tx} }
func (t *txStore) Positions() store.Positions         { return &positionsRepo{db: t.tx} }
func (t *txStore) OperationLogs() store.OperationLogs { return &operationLogsRepo{db: t.tx} }
func (t *txStore) ExportTasks() store.ExportTasks     { return &exportTasksRepo{db: t.tx} }

func (t *txStore) ApplyMigrations() error { return nil } // migrations run before any tx
