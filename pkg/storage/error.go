package storage

import "errors"

var (
	// ErrEmailTaken is returned when creating a user whose email exists.
	ErrEmailTaken = errors.New("email already registered")

	ErrNilUser             = errors.New("cannot store nil user")
	ErrMissingEmail        = errors.New("user email is required")
	ErrMissingPasswordHash = errors.New("user password hash is required")
)

// NotFoundError is returned when no user has the given email.
type NotFoundError struct {
	Email string
}

func (e NotFoundError) Error() string {
	if e.Email == "" {
		return "user not found"
	}

	return "user not found: " + e.Email
}

// IsNotFound reports whether err is a NotFoundError.
func IsNotFound(err error) bool {
	var nf NotFoundError
	return errors.As(err, &nf)
}
