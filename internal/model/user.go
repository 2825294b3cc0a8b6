package model

import (
	"fmt"
	"strconv"
	"time"
)

// User represents an authentication user. Borrowers are users; the lending
// engine only sees their BorrowerID.
type User struct {
	ID           int64      `json:"id" db:"id"`
	Username     string     `json:"username" db:"username"`
	PasswordHash string     `json:"-" db:"password_hash"`
	Role         string     `json:"role" db:"role"`
	CreatedAt    time.Time  `json:"created_at" db:"created_at"`
	DeletedAt    *time.Time `json:"deleted_at,omitempty" db:"deleted_at"`
}

// Roles.
const (
	RoleAdmin     = "admin"
	RoleLibrarian = "librarian"
	RoleMember    = "member"
)

// MinPasswordLength is the shortest accepted password.
const MinPasswordLength = 8

// BorrowerID returns the opaque borrower identity for a user id.
func BorrowerID(userID int64) string {
	return strconv.FormatInt(userID, 10)
}

// RoleAtLeast checks if role meets or exceeds the minimum required role.
func RoleAtLeast(role, minimum string) bool {
	levels := map[string]int{
		RoleAdmin:     3,
		RoleLibrarian: 2,
		RoleMember:    1,
	}
	return levels[role] >= levels[minimum] && levels[minimum] > 0
}

// ValidRole reports whether role is one of the known roles.
func ValidRole(role string) bool {
	return role == RoleAdmin || role == RoleLibrarian || role == RoleMember
}

// ValidatePassword checks password policy.
func ValidatePassword(password string) error {
	if len(password) < MinPasswordLength {
		return fmt.Errorf("password must be at least %d characters", MinPasswordLength)
	}
	return nil
}
