package domain

import "time"

type OperationLog struct {
	ID         int64
	UserID     *int64
	Username   string
	Action     string
	Resource   string
	Method     string
	Path       string
	IP         string
	UserAgent  string
	Payload    string // JSON with sensitive fields masked
	StatusCode int
	CreatedAt  time.Time
}

// OperationLogFilter narrows operation log listings. Zero values are ignored.
type OperationLogFilter struct {
	UserID     *int64
	Username   string
	Action     string
	Resource   string
	Method     string
	StatusCode int
	Start      *time.Time
	End        *time.Time
}
