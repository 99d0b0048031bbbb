// Package bolt provides a single-file embedded user directory on bbolt.
package bolt

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	bolt "go.etcd.io/bbolt"

	"github.com/lillylive/lilly/pkg/storage"
)

var usersBucket = []byte("users")

// Driver implements storage.Driver using bbolt. Users are JSON records keyed
// by normalized email.
type Driver struct {
	db *bolt.DB
}

var _ storage.Driver = (*Driver)(nil)

// record is the stored form; storage.User hides the hash from JSON.
type record struct {
	ID           string    `json:"id"`
	Nickname     string    `json:"nickname"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"password_hash"`
	CreatedAt    time.Time `json:"created_at"`
}

// NewDriver opens or creates the database at path.
func NewDriver(path string) (*Driver, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create database dir: %w", err)
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(usersBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create users bucket: %w", err)
	}

	return &Driver{db: db}, nil
}

// CreateUser stores a user, rejecting duplicate emails.
func (d *Driver) CreateUser(_ context.Context, u *storage.User) (*storage.User, error) {
	prepared, err := storage.Prepare(u, time.Now())
	if err != nil {
		return nil, err
	}
	if prepared.ID == "" {
		prepared.ID = uuid.NewString()
	}

	data, err := json.Marshal(record(*prepared))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal user: %w", err)
	}

	err = d.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(usersBucket)
		key := []byte(prepared.Email)
		if b.Get(key) != nil {
			return storage.ErrEmailTaken
		}
		return b.Put(key, data)
	})
	if err != nil {
		return nil, err
	}

	return prepared, nil
}

// GetUserByEmail retrieves a user by normalized email.
func (d *Driver) GetUserByEmail(_ context.Context, email string) (*storage.User, error) {
	key := storage.NormalizeEmail(email)

	var rec record
	found := false
	err := d.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(usersBucket).Get([]byte(key))
		if data == nil {
			return nil
		}
		found = true
		return json.Unmarshal(data, &rec)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read user: %w", err)
	}
	if !found {
		return nil, storage.NotFoundError{Email: key}
	}

	u := storage.User(rec)
	return &u, nil
}

// Close closes the database file.
func (d *Driver) Close() error {
	return d.db.Close()
}
