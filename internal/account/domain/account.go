package domain

import (
	"errors"
	"strings"
	"time"
)

// Role is the platform role of an account. The set is closed.
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleNonAdmin Role = "nonadmin"
)

var (
	ErrInvalidRole       = errors.New("invalid role")
	ErrDuplicateUsername = errors.New("username already exists")
	ErrDuplicateEmail    = errors.New("email already exists")
)

// ParseRole parses s case-insensitively into a Role. Empty input defaults to RoleNonAdmin.
func ParseRole(s string) (Role, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "admin":
		return RoleAdmin, nil
	case "nonadmin", "":
		return RoleNonAdmin, nil
	}
	return "", ErrInvalidRole
}

// Account is a registered platform user with its credential material.
type Account struct {
	ID             string
	Username       string
	Email          string
	FirstName      string
	LastName       string
	Role           Role
	PasswordDigest string
	PasswordSalt   string
	Country        string
	AboutMe        string
	DateOfBirth    string
	ContactNumber  string
	CreatedAt      time.Time
}

// IsAdmin reports whether the account holds the admin role.
func (a *Account) IsAdmin() bool {
	return a.Role == RoleAdmin
}

// Validate validates the account for persistence. Returns an error describing the first validation failure.
func (a *Account) Validate() error {
	if a.Username == "" {
		return errors.New("username is required")
	}
	if a.Email == "" {
		return errors.New("email is required")
	}
	if a.Role != RoleAdmin && a.Role != RoleNonAdmin {
		return ErrInvalidRole
	}
	return nil
}
