package repository

import (
	"context"
	"fmt"
)

// Storage drivers accepted by Open.
const (
	DriverMemory = "memory"
	DriverSQLite = "sqlite"
)

// Option configures Open.
type Option func(*openOptions)

type openOptions struct {
	driver     string
	sqlitePath string
}

// WithDriver selects the backing store. Unknown drivers make Open fail.
func WithDriver(driver string) Option {
	return func(o *openOptions) {
		if driver != "" {
			o.driver = driver
		}
	}
}

// WithSQLitePath sets the database file for the sqlite driver.
func WithSQLitePath(path string) Option {
	return func(o *openOptions) {
		if path != "" {
			o.sqlitePath = path
		}
	}
}

// Open builds the configured Store. The memory driver is the default.
func Open(ctx context.Context, opts ...Option) (Store, error) {
	o := openOptions{driver: DriverMemory, sqlitePath: ":memory:"}
	for _, opt := range opts {
		opt(&o)
	}
	switch o.driver {
	case DriverMemory:
		return NewMemoryStore(), nil
	case DriverSQLite:
		return OpenSQLite(ctx, o.sqlitePath)
	default:
		return nil, fmt.Errorf("%w: unknown driver %q", ErrUnavailable, o.driver)
	}
}
