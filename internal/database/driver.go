package database

import "context"

// Driver defines the interface for database operations.
// A Driver owns at most one live connection handle and runs one statement at a time.
type Driver interface {
	// Connect opens the connection handle, replacing any previous one.
	Connect(ctx context.Context, cfg ConnectionConfig) error

	// Close releases the handle. Closing a closed driver is a no-op.
	Close() error

	// Ping performs a round trip to check the handle is alive.
	Ping(ctx context.Context) error

	// Describe returns every user-visible table and its columns.
	Describe(ctx context.Context) (*SchemaDescription, error)

	// Query runs exactly one statement and returns its rows.
	Query(ctx context.Context, sql string, opts QueryOptions) (*QueryResult, error)

	// DatabaseName returns the name of the connected database.
	DatabaseName() string
}
