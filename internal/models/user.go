package models

import "time"

// UserRole is the closed role set. The admin is not a separate role: it is the
// teacher-role account whose username matches the configured admin username.
type UserRole string

const (
	RoleTeacher UserRole = "teacher"
	RoleStudent UserRole = "student"
)

// Valid reports whether the role belongs to the closed set.
func (r UserRole) Valid() bool {
	return r == RoleTeacher || r == RoleStudent
}

// User represents an account stored in the users table. The username is
// immutable after creation; only the password hash is ever rotated.
type User struct {
	ID           string    `db:"id" json:"id"`
	Username     string    `db:"username" json:"username"`
	PasswordHash string    `db:"password_hash" json:"-"`
	Role         UserRole  `db:"role" json:"role"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// UserInfo is the client-facing projection of a user.
type UserInfo struct {
	ID       string   `json:"id"`
	Username string   `json:"username"`
	Role     UserRole `json:"role"`
}

// Info converts a user into its client-facing projection.
func (u *User) Info() UserInfo {
	return UserInfo{ID: u.ID, Username: u.Username, Role: u.Role}
}
