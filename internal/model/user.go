package model

import (
	"fmt"
	"strings"
	"time"
)

// User is an account that can sign in and act on the inventory.
type User struct {
	ID           string      `db:"id" json:"id"`
	Username     string      `db:"username" json:"username"`
	PasswordHash string      `db:"password" json:"-"`
	Firstname    string      `db:"firstname" json:"firstname"`
	Lastname     string      `db:"lastname" json:"lastname"`
	Email        string      `db:"email" json:"email"`
	Role         string      `db:"role" json:"role"`
	Permissions  Permissions `db:"permissions" json:"permissions"`
	CreatedAt    time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time   `db:"updated_at" json:"updated_at"`
}

// Roles.
const (
	RoleAdmin  = "admin"
	RoleStaff  = "staff"
	RoleViewer = "viewer"
)

// MinPasswordLength is the shortest password accepted for any account.
const MinPasswordLength = 6

// ValidRole reports whether role is one of the known roles.
func ValidRole(role string) bool {
	return role == RoleAdmin || role == RoleStaff || role == RoleViewer
}

// RoleAtLeast checks if role meets or exceeds the minimum required role.
func RoleAtLeast(role, minimum string) bool {
	levels := map[string]int{
		RoleAdmin:  3,
		RoleStaff:  2,
		RoleViewer: 1,
	}
	have, want := levels[role], levels[minimum]
	return have > 0 && want > 0 && have >= want
}

// ValidatePassword checks the password policy.
func ValidatePassword(password string) error {
	if len(password) < MinPasswordLength {
		return fmt.Errorf("password must be at least %d characters", MinPasswordLength)
	}
	return nil
}

// DisplayName returns "First Last", falling back to the username.
func (u *User) DisplayName() string {
	name := strings.TrimSpace(u.Firstname + " " + u.Lastname)
	if name == "" {
		return u.Username
	}
	return name
}

// Can reports whether the user may perform action on resource.
// Admins may do anything; an empty permission set falls back to the
// defaults for the user's role.
func (u *User) Can(resource, action string) bool {
	if u.Role == RoleAdmin {
		return true
	}
	perms := u.Permissions
	if len(perms) == 0 {
		perms = DefaultPermissions(u.Role)
	}
	return perms.Allows(resource, action)
}

// Scrubbed returns a copy of the user without the credential hash.
func (u User) Scrubbed() User {
	u.PasswordHash = ""
	return u
}
