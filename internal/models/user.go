// Package models defines the data structures that map to database tables
// and provides the core types used throughout the application.
package models

import (
	"time"

	"github.com/google/uuid"
)

// Built-in role names.
const (
	RoleAdmin  = "Admin"
	RoleEditor = "Editor"
	RoleMember = "Member"
)

// BuiltinRoles lists the roles that are seeded and cannot be deleted.
var BuiltinRoles = []string{RoleAdmin, RoleEditor, RoleMember}

// Role is a named permission group.
type Role struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`

	UserCount int `json:"user_count"`
}

// IsBuiltin returns true for roles the application depends on.
func (r *Role) IsBuiltin() bool {
	for _, name := range BuiltinRoles {
		if r.Name == name {
			return true
		}
	}
	return false
}

// User is an account on the site. Phone numbers are stored encrypted.
type User struct {
	ID               uuid.UUID  `json:"id"`
	UserName         string     `json:"user_name"`
	Email            string     `json:"email"`
	EmailConfirmed   bool       `json:"email_confirmed"`
	PasswordHash     *string    `json:"-"` // Nil for external-only accounts
	DisplayName      string     `json:"display_name"`
	HomeAddress      string     `json:"home_address"`
	BirthDate        *time.Time `json:"birth_date,omitempty"`
	PhoneEncrypted   *string    `json:"-"`
	PhoneConfirmed   bool       `json:"phone_confirmed"`
	TOTPSecret       *string    `json:"-"`
	TwoFactorEnabled bool       `json:"two_factor_enabled"`
	FailedAttempts   int        `json:"-"`
	LockoutUntil     *time.Time `json:"-"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`

	Roles []string `json:"roles"`
}

// HasRole reports whether the user is in the named role.
func (u *User) HasRole(name string) bool {
	for _, r := range u.Roles {
		if r == name {
			return true
		}
	}
	return false
}

// IsAdmin returns true if the user has the Admin role.
func (u *User) IsAdmin() bool {
	return u.HasRole(RoleAdmin)
}

// HasPassword returns false for accounts created through external login.
func (u *User) HasPassword() bool {
	return u.PasswordHash != nil && *u.PasswordHash != ""
}

// IsLockedOut returns true while the lockout deadline is in the future.
func (u *User) IsLockedOut(now time.Time) bool {
	return u.LockoutUntil != nil && now.Before(*u.LockoutUntil)
}

// Name returns the display name, falling back to the user name.
func (u *User) Name() string {
	if u.DisplayName != "" {
		return u.DisplayName
	}
	return u.UserName
}
