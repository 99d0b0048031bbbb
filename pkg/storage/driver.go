// Package storage defines the user directory and its backends.
package storage

import (
	"context"
	"strings"
	"time"
)

// User is a registered account. PasswordHash is a bcrypt hash and is never
// serialized to clients.
type User struct {
	ID           string    `json:"id"`
	Nickname     string    `json:"nickname"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// Driver persists user accounts. Emails are unique after NormalizeEmail.
type Driver interface {
	// CreateUser stores u and returns the stored copy with ID and CreatedAt
	// set. Returns ErrEmailTaken if the normalized email already exists.
	CreateUser(ctx context.Context, u *User) (*User, error)

	// GetUserByEmail looks a user up by email. Returns NotFoundError when
	// no user matches.
	GetUserByEmail(ctx context.Context, email string) (*User, error)

	// Close releases the backend's resources.
	Close() error
}

// NormalizeEmail trims and lower-cases an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Prepare validates u and returns a copy ready for insertion with email
// normalized and CreatedAt defaulted to now.
func Prepare(u *User, now time.Time) (*User, error) {
	if u == nil {
		return nil, ErrNilUser
	}
	out := *u
	out.Email = NormalizeEmail(out.Email)
	out.Nickname = strings.TrimSpace(out.Nickname)
	if out.Email == "" {
		return nil, ErrMissingEmail
	}
	if out.PasswordHash == "" {
		return nil, ErrMissingPasswordHash
	}
	if out.CreatedAt.IsZero() {
		out.CreatedAt = now.UTC()
	}
	return &out, nil
}
