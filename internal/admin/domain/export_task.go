package domain

import "time"

type ExportStatus string

const (
	ExportPending ExportStatus = "pending"
	ExportRunning ExportStatus = "running"
	ExportSuccess ExportStatus = "success"
	ExportFailed  ExportStatus = "failed"
)

type ExportFormat string

const (
	ExportCSV  ExportFormat = "csv"
	ExportXLSX ExportFormat = "xlsx"
)

func (f ExportFormat) Valid() bool { return f == ExportCSV || f == ExportXLSX }

// ExportTypeAccount exports user accounts. It is the only export type.
const ExportTypeAccount = "account"

type ExportTask struct {
	ID         int64
	Type       string
	Format     ExportFormat
	Status     ExportStatus
	Params     string // JSON encoded filter
	FileName   string
	FilePath   string
	Error      string
	CreatedBy  int64
	CreatedAt  time.Time
	StartedAt  *time.Time
	FinishedAt *time.Time
}

// ExportTaskFilter narrows export task listings.
type ExportTaskFilter struct {
	CreatedBy *int64
	Status    ExportStatus
}
