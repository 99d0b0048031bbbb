// Package sqlstore implements storage.Driver over database/sql. The sqlite
// and postgres packages supply a Dialect and embed *Driver.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/lillylive/lilly/pkg/storage"
)

// Dialect captures the SQL differences between backends.
type Dialect struct {
	// Name is used in error messages.
	Name string

	// Schema creates the users table if it does not exist.
	Schema string

	// Placeholder returns the bind parameter for the n-th argument, 1-based.
	Placeholder func(n int) string

	// IsUniqueViolation reports whether err is a unique constraint failure.
	IsUniqueViolation func(err error) bool
}

// Driver implements storage.Driver on a *sql.DB.
type Driver struct {
	db      *sql.DB
	dialect Dialect
}

var _ storage.Driver = (*Driver)(nil)

// New migrates db with the dialect's schema and returns a Driver.
func New(ctx context.Context, db *sql.DB, dialect Dialect) (*Driver, error) {
	d := &Driver{db: db, dialect: dialect}
	if err := d.migrate(ctx); err != nil {
		return nil, fmt.Errorf("failed to migrate %s database: %w", dialect.Name, err)
	}
	return d, nil
}

func (d *Driver) migrate(ctx context.Context) error {
	_, err := d.db.ExecContext(ctx, d.dialect.Schema)
	return err
}

// DB exposes the underlying handle.
func (d *Driver) DB() *sql.DB {
	return d.db
}

// CreateUser inserts a user, mapping unique violations to ErrEmailTaken.
func (d *Driver) CreateUser(ctx context.Context, u *storage.User) (*storage.User, error) {
	prepared, err := storage.Prepare(u, time.Now())
	if err != nil {
		return nil, err
	}
	if prepared.ID == "" {
		prepared.ID = uuid.NewString()
	}

	p := d.dialect.Placeholder
	query := fmt.Sprintf(
		`INSERT INTO users (id, nickname, email, password_hash, created_at) VALUES (%s, %s, %s, %s, %s)`,
		p(1), p(2), p(3), p(4), p(5),
	)

	_, err = d.db.ExecContext(ctx, query,
		prepared.ID, prepared.Nickname, prepared.Email, prepared.PasswordHash, prepared.CreatedAt,
	)
	if err != nil {
		if d.dialect.IsUniqueViolation(err) {
			return nil, storage.ErrEmailTaken
		}
		return nil, fmt.Errorf("failed to insert user: %w", err)
	}

	return prepared, nil
}

// GetUserByEmail retrieves a user by normalized email.
func (d *Driver) GetUserByEmail(ctx context.Context, email string) (*storage.User, error) {
	key := storage.NormalizeEmail(email)
	query := `SELECT id, nickname, email, password_hash, created_at FROM users WHERE email = ` + d.dialect.Placeholder(1)

	var u storage.User
	err := d.db.QueryRowContext(ctx, query, key).Scan(&u.ID, &u.Nickname, &u.Email, &u.PasswordHash, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.NotFoundError{Email: key}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan user: %w", err)
	}
	u.CreatedAt = u.CreatedAt.UTC()

	return &u, nil
}

// Close closes the database.
func (d *Driver) Close() error {
	return d.db.Close()
}
