package domain

import (
	"errors"
	"fmt"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidUser        = errors.New("invalid user")
	ErrUserExists         = errors.New("user already exists")
	ErrEmailRegistered    = fmt.Errorf("%w: email already registered", ErrUserExists)
	ErrUsernameTaken      = fmt.Errorf("%w: username already taken", ErrUserExists)
	ErrInvalidCredentials = errors.New("incorrect username or password")
	ErrUnauthorized       = errors.New("could not validate credentials")
	ErrForbidden          = errors.New("not enough permissions")
	ErrInactiveUser       = errors.New("inactive user")
)

// User models an account that owns tasks. HashedPassword never leaves the
// service layer.
type User struct {
	ID             int64  `json:"id"`
	Email          string `json:"email"`
	Username       string `json:"username"`
	HashedPassword string `json:"-"`
	IsActive       bool   `json:"is_active"`
	Role           string `json:"role"`
}

// IsAdmin reports whether u may run admin-only operations.
func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}
