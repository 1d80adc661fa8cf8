package domain

import "time"

type PermissionType string

const (
	PermissionMenu   PermissionType = "menu"
	PermissionPage   PermissionType = "page"
	PermissionAction PermissionType = "action"
)

func (t PermissionType) Valid() bool {
	switch t {
	case PermissionMenu, PermissionPage, PermissionAction:
		return true
	}
	return false
}

// Permission is an (action, resource) pair. ParentID arranges permissions in a
// tree for menus and is never consulted during authorization.
type Permission struct {
	ID        int64
	Name      string
	Type      PermissionType
	Action    string
	Resource  string
	ParentID  *int64
	Sort      int
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Requirement is the (action, resource) pair an endpoint demands.
type Requirement struct {
	Action   string
	Resource string
}

func (r Requirement) String() string { return r.Action + ":" + r.Resource }

// Grants reports whether p satisfies req. Matching is exact and case-sensitive.
func (p Permission) Grants(req Requirement) bool {
	return p.Action == req.Action && p.Resource == req.Resource
}
