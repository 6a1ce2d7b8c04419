package models

import "time"

// Default role names seeded at bootstrap. Users may hold several roles
// and act under exactly one selected role at a time.
const (
	RoleAdmin     = "admin"
	RoleStudent   = "student"
	RoleFaculty   = "faculty"
	RoleHOD       = "hod"
	RolePrincipal = "principal"
	RoleJury      = "jury"
)

// User represents a portal account stored in the users table. Roles are
// loaded from the user_roles join table.
type User struct {
	ID           string    `db:"id" json:"id"`
	Name         string    `db:"name" json:"name"`
	Email        string    `db:"email" json:"email"`
	PasswordHash string    `db:"password_hash" json:"-"`
	DepartmentID *string   `db:"department_id" json:"department_id,omitempty"`
	SelectedRole *string   `db:"selected_role" json:"selected_role,omitempty"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`

	Roles []string `db:"-" json:"roles"`
}

// HasRole reports whether the user holds the given role.
func (u *User) HasRole(role string) bool {
	for _, r := range u.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// Role describes an RBAC role. Permissions are stored comma-separated.
type Role struct {
	Name           string    `db:"name" json:"name"`
	Description    string    `db:"description" json:"description"`
	PermissionsRaw string    `db:"permissions" json:"-"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`

	Permissions []string `db:"-" json:"permissions"`
}

// UserFilter captures filtering criteria for listing users.
type UserFilter struct {
	Search       string `form:"search"`
	Role         string `form:"role"`
	DepartmentID string `form:"department_id"`
	Page         int    `form:"page"`
	PageSize     int    `form:"page_size"`
	SortBy       string `form:"sort_by"`
	SortOrder    string `form:"sort_order"`
}
