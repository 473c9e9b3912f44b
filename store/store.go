// Package store persists skill records.
//
// Every backend stores the same document: the JSON encoding produced by
// skill.Encode, keyed by skill name. Backends do not decode records; the
// registry does, so that a corrupt record is skipped with a warning instead of
// failing the whole load.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrNotFound is returned by Delete when no record exists for a name.
var ErrNotFound = errors.New("record not found")

// Record is one stored skill document.
type Record struct {
	Name string
	Data []byte
}

// Store is a key-value store of skill records.
type Store interface {
	// Put creates or replaces the record for name.
	Put(ctx context.Context, name string, data []byte) error

	// Delete removes the record for name.
	Delete(ctx context.Context, name string) error

	// List returns every record, sorted by name.
	List(ctx context.Context) ([]Record, error)

	// Close releases any resources held by the store.
	Close() error
}

// Driver names accepted by Open.
const (
	DriverFile     = "file"
	DriverSQLite   = "sqlite"
	DriverRedis    = "redis"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// Options selects and configures a backend.
type Options struct {
	Driver string

	// Dir is the record directory for the file driver.
	Dir string

	// DSN is the database path for sqlite or connection string for postgres.
	DSN string

	// URL is the redis connection URL.
	URL string

	// Prefix namespaces redis keys and postgres/sqlite tables.
	Prefix string
}

// Open creates the backend named by opts.Driver.
func Open(ctx context.Context, opts Options) (Store, error) {
	switch strings.ToLower(opts.Driver) {
	case "", DriverFile:
		return NewFileStore(opts.Dir)
	case DriverSQLite:
		return NewSQLiteStore(ctx, opts.DSN, opts.Prefix)
	case DriverRedis:
		return NewRedisStore(ctx, opts.URL, opts.Prefix)
	case DriverPostgres:
		return NewPostgresStore(ctx, opts.DSN, opts.Prefix)
	case DriverMemory:
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", opts.Driver)
	}
}

func tableName(prefix string) string {
	if prefix == "" {
		return "skills"
	}
	return prefix + "_skills"
}
