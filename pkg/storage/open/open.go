// Package open builds the configured storage.Driver.
package open

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/lillylive/lilly/pkg/storage"
	"github.com/lillylive/lilly/pkg/storage/bolt"
	"github.com/lillylive/lilly/pkg/storage/inmemory"
	"github.com/lillylive/lilly/pkg/storage/mongo"
	"github.com/lillylive/lilly/pkg/storage/postgres"
	"github.com/lillylive/lilly/pkg/storage/sqlite"
)

const (
	ProviderMemory   = "memory"
	ProviderSQLite   = "sqlite"
	ProviderPostgres = "postgres"
	ProviderMongo    = "mongo"
	ProviderBolt     = "bolt"
)

// Providers lists the accepted provider names.
var Providers = []string{ProviderMemory, ProviderSQLite, ProviderPostgres, ProviderMongo, ProviderBolt}

// Options selects and addresses a backend.
type Options struct {
	// Provider is one of Providers. Empty means memory.
	Provider string

	// Target is the backend address: a file path for sqlite and bolt, a DSN
	// for postgres, a URI for mongo. Ignored for memory.
	Target string

	// Database names the mongo database.
	Database string
}

// NewDriver opens the backend described by opts.
func NewDriver(ctx context.Context, opts Options, logger *slog.Logger) (storage.Driver, error) {
	switch opts.Provider {
	case "", ProviderMemory:
		logger.Info("using in-memory storage")
		return inmemory.NewDriver(), nil

	case ProviderSQLite:
		if opts.Target == "" {
			return nil, fmt.Errorf("sqlite storage requires a target path")
		}
		driver, err := sqlite.NewDriver(ctx, opts.Target)
		if err != nil {
			return nil, fmt.Errorf("failed to create SQLite storer: %w", err)
		}
		logger.Info("using SQLite storage", "path", opts.Target)
		return driver, nil

	case ProviderPostgres:
		if opts.Target == "" {
			return nil, fmt.Errorf("postgres storage requires a connection string")
		}
		driver, err := postgres.NewDriver(ctx, opts.Target)
		if err != nil {
			return nil, fmt.Errorf("failed to create PostgreSQL storer: %w", err)
		}
		logger.Info("using PostgreSQL storage")
		return driver, nil

	case ProviderMongo:
		if opts.Target == "" {
			return nil, fmt.Errorf("mongo storage requires a URI")
		}
		driver, err := mongo.NewDriver(ctx, opts.Target, opts.Database)
		if err != nil {
			return nil, fmt.Errorf("failed to create MongoDB storer: %w", err)
		}
		logger.Info("using MongoDB storage", "database", opts.Database)
		return driver, nil

	case ProviderBolt:
		if opts.Target == "" {
			return nil, fmt.Errorf("bolt storage requires a target path")
		}
		driver, err := bolt.NewDriver(opts.Target)
		if err != nil {
			return nil, fmt.Errorf("failed to create bolt storer: %w", err)
		}
		logger.Info("using bolt storage", "path", opts.Target)
		return driver, nil
	}

	return nil, fmt.Errorf("unknown storage provider %q (want one of %v)", opts.Provider, Providers)
}
