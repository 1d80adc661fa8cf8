package domain

import "time"

type User struct {
	ID           int64
	Username     string
	PasswordHash string  // bcrypt
	OTPSecret    *string // base32 TOTP secret (nullable)
	OTPEnabled   bool
	DepartmentID *int64
	PositionID   *int64
	Roles        []Role // loaded with permissions by the store
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// RoleIDs returns the ids of the user's roles.
func (u User) RoleIDs() []int64 {
	ids := make([]int64, len(u.Roles))
	for i, r := range u.Roles {
		ids[i] = r.ID
	}
	return ids
}

// IsSuperAdmin reports whether any of the user's roles bypasses permission checks.
func (u User) IsSuperAdmin() bool {
	for _, r := range u.Roles {
		if r.IsSuperAdmin {
			return true
		}
	}
	return false
}

// UserFilter narrows user listings.
type UserFilter struct {
	Username string  // substring match
	RoleIDs  []int64 // users holding any of these roles
}
