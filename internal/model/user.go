// Package model defines domain entities for the application.
package model

import "strings"

// Role is the fixed role a user registers with.
type Role string

const (
	RoleEmployer Role = "employer"
	RoleStudent  Role = "student"
)

// IsValid checks if the role is one of the known roles.
func (r Role) IsValid() bool {
	return r == RoleEmployer || r == RoleStudent
}

// User is a registered identity. Users are never deleted.
type User struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	Secret string `json:"-"` // Never serialize
	Role   Role   `json:"role"`
}

// NameKey returns the case-insensitive lookup key for the user's name.
func (u *User) NameKey() string {
	return NameKey(u.Name)
}

// NameKey normalizes a display name for uniqueness checks.
func NameKey(name string) string {
	return strings.ToLower(name)
}

// UserView is the public projection of a User.
type UserView struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Role Role   `json:"role"`
}

// View converts a User to its public projection.
func (u *User) View() UserView {
	return UserView{
		ID:   u.ID,
		Name: u.Name,
		Role: u.Role,
	}
}
