package store

import (
	"context"
	"errors"
	"time"

	"github.com/max950509/web-admin-fullstack-template/internal/admin/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")

	// ErrInUse is returned when a row cannot be deleted because others reference it.
	ErrInUse = errors.New("store: in use")
)

// Store is the root data access interface. Sub-repositories keep concerns
// tidy, and a Tx exposes the same repositories so that multi-step writes can
// be made atomic without nesting transactions.
type Store interface {
	Users() Users
	Roles() Roles
	Permissions() Permissions
	Departments() Departments
	Positions() Positions
	OperationLogs() OperationLogs
	ExportTasks() ExportTasks

	ApplyMigrations() error

	// Tx starts a read/write transaction and returns a Tx-scoped Store.
	// The caller MUST call Commit() or Rollback() on the returned Tx.
	Tx(ctx context.Context) (Tx, error)

	// WithTx runs fn in a transaction, committing if fn returns nil and
	// rolling back otherwise.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	Close() error
	Ping(ctx context.Context) error
}

// Tx is a transactional store. It embeds the same repos but adds Commit/Rollback.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

// List methods take a domain.Page and return the matching rows along with the
// total match count. A zero PageSize returns every match.

type Users interface {
	// GetUserByID returns a user with roles and their permissions.
	GetUserByID(ctx context.Context, id int64) (domain.User, error)

	// GetUserByUsername returns a user with roles and their permissions.
	GetUserByUsername(ctx context.Context, username string) (domain.User, error)

	// ListUsers returns users with their roles (permissions not loaded), newest first.
	ListUsers(ctx context.Context, f domain.UserFilter, p domain.Page) ([]domain.User, int, error)

	// CreateUser inserts a user and returns its id. Roles are assigned with SetUserRoles.
	CreateUser(ctx context.Context, u domain.User) (int64, error)

	// UpdateUser writes username, password hash, department and position.
	UpdateUser(ctx context.Context, u domain.User) error

	// SetUserRoles replaces the user's role set.
	SetUserRoles(ctx context.Context, userID int64, roleIDs []int64) error

	// DeleteUsers removes users. Missing ids are ignored.
	DeleteUsers(ctx context.Context, ids ...int64) error

	// UpdateOTPSecret overwrites the TOTP secret without touching the enabled flag.
	UpdateOTPSecret(ctx context.Context, userID int64, secret string) error

	// EnableOTP sets the OTP enabled flag.
	EnableOTP(ctx context.Context, userID int64) error

	IsEmpty(ctx context.Context) (bool, error)
}

type Roles interface {
	// GetRoleByID returns a role with its permissions.
	GetRoleByID(ctx context.Context, id int64) (domain.Role, error)
	GetRoleByName(ctx context.Context, name string) (domain.Role, error)

	// ListRoles returns roles with permissions, filtered by name substring.
	ListRoles(ctx context.Context, name string, p domain.Page) ([]domain.Role, int, error)

	// CreateRole inserts name and the super admin flag and returns the id.
	CreateRole(ctx context.Context, r domain.Role) (int64, error)

	// UpdateRole writes name and the super admin flag.
	UpdateRole(ctx context.Context, r domain.Role) error

	// SetRolePermissions replaces the role's permission set.
	SetRolePermissions(ctx context.Context, roleID int64, permissionIDs []int64) error

	DeleteRole(ctx context.Context, id int64) error
}

type Permissions interface {
	GetPermissionByID(ctx context.Context, id int64) (domain.Permission, error)

	// ListPermissions returns every permission ordered by sort then id.
	ListPermissions(ctx context.Context) ([]domain.Permission, error)

	CreatePermission(ctx context.Context, p domain.Permission) (int64, error)
	UpdatePermission(ctx context.Context, p domain.Permission) error
	DeletePermission(ctx context.Context, id int64) error
}

type Departments interface {
	GetDepartmentByID(ctx context.Context, id int64) (domain.Department, error)

	// ListDepartments returns every department ordered by sort then id.
	ListDepartments(ctx context.Context) ([]domain.Department, error)

	CreateDepartment(ctx context.Context, d domain.Department) (int64, error)
	UpdateDepartment(ctx context.Context, d domain.Department) error

	// DeleteDepartment fails with ErrInUse while child departments,
	// positions or users reference it.
	DeleteDepartment(ctx context.Context, id int64) error
}

type Positions interface {
	GetPositionByID(ctx context.Context, id int64) (domain.Position, error)
	ListPositions(ctx context.Context, f domain.PositionFilter, p domain.Page) ([]domain.Position, int, error)
	CreatePosition(ctx context.Context, p domain.Position) (int64, error)
	UpdatePosition(ctx context.Context, p domain.Position) error

	// DeletePosition fails with ErrInUse while users reference it.
	DeletePosition(ctx context.Context, id int64) error
}

type OperationLogs interface {
	CreateOperationLog(ctx context.Context, l domain.OperationLog) error

	// ListOperationLogs returns logs newest first.
	ListOperationLogs(ctx context.Context, f domain.OperationLogFilter, p domain.Page) ([]domain.OperationLog, int, error)

	// DeleteOperationLogsBefore removes logs created before t and returns how many.
	DeleteOperationLogsBefore(ctx context.Context, t time.Time) (int64, error)
}

type ExportTasks interface {
	CreateExportTask(ctx context.Context, t domain.ExportTask) (int64, error)
	GetExportTaskByID(ctx context.Context, id int64) (domain.ExportTask, error)

	// ListExportTasks returns tasks newest first.
	ListExportTasks(ctx context.Context, f domain.ExportTaskFilter, p domain.Page) ([]domain.ExportTask, int, error)

	// MarkExportTaskRunning moves a pending task to running and reports
	// whether this caller won the transition.
	MarkExportTaskRunning(ctx context.Context, id int64, at time.Time) (bool, error)

	// FinishExportTask records the terminal status of a running task.
	FinishExportTask(ctx context.Context, t domain.ExportTask) error

	// ListPendingExportTaskIDs returns ids of tasks still waiting for a worker, oldest first.
	ListPendingExportTaskIDs(ctx context.Context) ([]int64, error)

	// ListExportTasksFinishedBefore returns finished tasks older than t.
	ListExportTasksFinishedBefore(ctx context.Context, t time.Time) ([]domain.ExportTask, error)

	DeleteExportTasks(ctx context.Context, ids ...int64) error
}
