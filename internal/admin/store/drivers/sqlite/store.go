package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/max950509/web-admin-fullstack-template/internal/admin/store"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// dbtx is satisfied by both *sql.DB and *sql.Tx so repositories work inside
// and outside transactions.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type Store struct {
	db  *sql.DB
	dsn string
}

// NewStore opens a sqlite database. Foreign keys are enforced on every
// connection. In-memory databases are pinned to one connection because each
// connection would otherwise see its own empty database.
func NewStore(dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", withPragma(dsn, "foreign_keys(1)"))
	if err != nil {
		return nil, err
	}
	return newStoreFromDB(db, dsn)
}

// NewStoreFromDB wraps an already opened database, e.g. a sqlmock connection.
func NewStoreFromDB(db *sql.DB) *Store {
	return &Store{db: db}
}

func newStoreFromDB(db *sql.DB, dsn string) (*Store, error) {
	if strings.Contains(dsn, ":memory:") {
		db.SetMaxOpenConns(1)
	}

	if _, err := db.ExecContext(context.Background(), `PRAGMA foreign_keys = ON;`); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db, dsn: dsn}, nil
}

// FileDSN builds the DSN used for on-disk databases.
func FileDSN(path string) string {
	return "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
}

func withPragma(dsn, pragma string) string {
	if strings.Contains(dsn, pragma) {
		return dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + "_pragma=" + pragma
}

func (s *Store) Close() error { return s.db.Close() }

// Ping verifies the database connection is still alive.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Tx starts a read/write transaction and returns a Tx-scoped Store.
func (s *Store) Tx(ctx context.Context) (store.Tx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return newTx(tx), nil
}

// WithTx executes fn within a transaction, automatically handling commit/rollback.
func (s *Store) WithTx(ctx context.Context, fn func(tx store.Tx) error) error {
	tx, err := s.Tx(ctx)
	if err != nil {
		return err
	}

	defer func() {
		_ = tx.Rollback() // no-op after commit
	}()

	if err := fn(tx); err != nil {
		return err
	}

	return tx.Commit()
}

func (s *Store) Users() store.Users                 { return &usersRepo{db: s.db} }
func (s *Store) Roles() store.Roles                 { return &rolesRepo{db: s.db} }
func (s *Store) Permissions() store.Permissions     { return &permissionsRepo{db: s.db} }
func (s *Store) Departments() store.Departments     { return &departmentsRepo{db: s.db} }
func (s *Store) Positions() store.Positions         { return &positionsRepo{db: s.db} }
func (s *Store) OperationLogs() store.OperationLogs { return &operationLogsRepo{db: s.db} }
func (s *Store) ExportTasks() store.ExportTasks     { return &exportTasksRepo{db: s.db} }

func mapNotFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return store.ErrNotFound
	}
	return err
}

type constraintKind int

const (
	constraintNone constraintKind = iota
	constraintUnique
	constraintForeignKey
)

// classifyConstraint inspects a sqlite error. Foreign key failures do not
// always carry SQLITE_CONSTRAINT_FOREIGNKEY: a RESTRICT action reports the
// trigger extended code (1811), so the message is checked as well.
func classifyConstraint(err error) constraintKind {
	var se *sqlite.Error
	if !errors.As(err, &se) {
		return constraintNone
	}
	code := se.Code()
	if code&0xff != sqlite3.SQLITE_CONSTRAINT {
		return constraintNone
	}
	switch {
	case code == sqlite3.SQLITE_CONSTRAINT_UNIQUE, code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
		return constraintUnique
	case code == sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY, strings.Contains(se.Error(), "FOREIGN KEY"):
		return constraintForeignKey
	}
	return constraintNone
}

// mapWriteErr translates constraint violations on insert and update. A
// foreign key failure there means the referenced row does not exist.
func mapWriteErr(err error) error {
	switch classifyConstraint(err) {
	case constraintUnique:
		return store.ErrAlreadyExists
	case constraintForeignKey:
		return store.ErrNotFound
	}
	return err
}

// mapDeleteErr translates a foreign key failure on delete into ErrInUse.
func mapDeleteErr(err error) error {
	if classifyConstraint(err) == constraintForeignKey {
		return store.ErrInUse
	}
	return err
}

// expectAffected returns ErrNotFound when an update or delete matched nothing.
func expectAffected(res sql.Result, err error) error {
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func nowMillis() int64 { return time.Now().UnixMilli() }

func fromMillis(ms int64) time.Time { return time.UnixMilli(ms).UTC() }

func mapNullInt64Ptr(n sql.NullInt64) *int64 {
	if n.Valid {
		v := n.Int64
		return &v
	}
	return nil
}

func mapOptionalInt64(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}

func mapNullStringPtr(ns sql.NullString) *string {
	if ns.Valid {
		v := ns.String
		return &v
	}
	return nil
}

func mapNullTimePtr(n sql.NullInt64) *time.Time {
	if n.Valid {
		t := fromMillis(n.Int64)
		return &t
	}
	return nil
}

func mapOptionalTime(t *time.Time) sql.NullInt64 {
	if t == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: t.UnixMilli(), Valid: true}
}

// inList returns "?, ?, ?" for n placeholders and the ids as args.
func inList(ids []int64) (string, []any) {
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return strings.TrimSuffix(strings.Repeat("?, ", len(ids)), ", "), args
}

// limitClause appends LIMIT/OFFSET for a page; PageSize zero means unbounded.
func limitClause(query string, args []any, page, pageSize int) (string, []any) {
	if pageSize <= 0 {
		return query, args
	}
	if page < 1 {
		page = 1
	}
	return query + " LIMIT ? OFFSET ?", append(args, pageSize, (page-1)*pageSize)
}

// likePattern escapes s for a LIKE ... ESCAPE '\' substring match.
func likePattern(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(s) + "%"
}

// whereClause joins conditions with AND, or returns "" when there are none.
func whereClause(conds []string) string {
	if len(conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(conds, " AND ")
}
