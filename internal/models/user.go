package models

import "time"

// UserRole represents the available roles.
type UserRole string

const (
	RoleAdmin   UserRole = "admin"
	RoleTeacher UserRole = "teacher"
	RoleStudent UserRole = "student"
)

// IsTeacherLike reports whether the role may manage offers and decide claims.
func (r UserRole) IsTeacherLike() bool {
	return r == RoleTeacher || r == RoleAdmin
}

// Valid reports whether the role is one of the known roles.
func (r UserRole) Valid() bool {
	return r == RoleAdmin || r == RoleTeacher || r == RoleStudent
}

// User represents an account stored in the user_accounts table.
type User struct {
	ID         int64     `db:"id" json:"id"`
	Email      string    `db:"email" json:"email"`
	Name       string    `db:"name" json:"name"`
	Role       UserRole  `db:"role" json:"role"`
	SecretHash string    `db:"secret_hash" json:"-"`
	CreatedAt  time.Time `db:"created_at" json:"createdAt"`
}
