package models

import "time"

const (
	RoleAdmin = "Admin"
	RoleStaff = "Staff"
)

// IsValidRole checks if the provided string is a known staff role.
func IsValidRole(role string) bool {
	return role == RoleAdmin || role == RoleStaff
}

// User is a staff account allowed to operate the lounge.
type User struct {
	ID           string    `json:"id" db:"id"`
	Username     string    `json:"username" db:"username"`
	PasswordHash string    `json:"-" db:"password_hash"` // '-' means don't send in JSON response
	FullName     *string   `json:"full_name,omitempty" db:"full_name"`
	Role         string    `json:"role" db:"role"`
	IsActive     bool      `json:"is_active" db:"is_active"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}

// Actor returns the audit identity of the user.
func (u *User) Actor() Actor {
	return Actor{UserID: u.ID, Username: u.Username, Role: u.Role}
}
