package domain

import "time"

// SuperAdminRoleName is the role name that grants every permission.
const SuperAdminRoleName = "admin"

type Role struct {
	ID   int64
	Name string

	// IsSuperAdmin is derived from Name whenever the role is created or
	// renamed, see IsSuperAdminName. Renaming the role away from "admin"
	// strips the bypass.
	IsSuperAdmin bool

	Permissions []Permission
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// IsSuperAdminName reports whether a role with this name bypasses permission checks.
// The comparison is exact and case-sensitive.
func IsSuperAdminName(name string) bool {
	return name == SuperAdminRoleName
}

// PermissionIDs returns the ids of the role's permissions.
func (r Role) PermissionIDs() []int64 {
	ids := make([]int64, len(r.Permissions))
	for i, p := range r.Permissions {
		ids[i] = p.ID
	}
	return ids
}
