// Package inmemory provides a map-backed user directory for tests and local
// development.
package inmemory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/lillylive/lilly/pkg/storage"
)

// Driver implements storage.Driver using an in-memory map.
type Driver struct {
	// mu guards users
	mu sync.RWMutex

	// users is keyed by normalized email
	users map[string]*storage.User
}

var _ storage.Driver = (*Driver)(nil)

// NewDriver creates a new in-memory user directory.
func NewDriver() *Driver {
	return &Driver{
		users: make(map[string]*storage.User),
	}
}

// CreateUser stores a user, rejecting duplicate emails.
func (d *Driver) CreateUser(_ context.Context, u *storage.User) (*storage.User, error) {
	prepared, err := storage.Prepare(u, time.Now())
	if err != nil {
		return nil, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.users[prepared.Email]; ok {
		return nil, storage.ErrEmailTaken
	}
	if prepared.ID == "" {
		prepared.ID = uuid.NewString()
	}
	d.users[prepared.Email] = prepared

	out := *prepared
	return &out, nil
}

// GetUserByEmail retrieves a user by normalized email.
func (d *Driver) GetUserByEmail(_ context.Context, email string) (*storage.User, error) {
	key := storage.NormalizeEmail(email)

	d.mu.RLock()
	defer d.mu.RUnlock()

	u, ok := d.users[key]
	if !ok {
		return nil, storage.NotFoundError{Email: key}
	}
	out := *u
	return &out, nil
}

// Len returns the number of stored users.
func (d *Driver) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.users)
}

// Close is a no-op for the in-memory driver.
func (d *Driver) Close() error {
	return nil
}
