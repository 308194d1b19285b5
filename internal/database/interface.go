package database

import "context"

// Provider hands out catalog sessions. Implementations may pool physical
// connections, but every Session returned by Open is used by exactly one
// request and must be closed by it.
type Provider interface {
	// Open returns a session bound to database. An empty name binds the
	// session to the login's default database.
	Open(ctx context.Context, database string) (Session, error)

	// Ping verifies the server is reachable.
	Ping(ctx context.Context) error

	// Close releases every pooled connection.
	Close() error
}

// Session is a single catalog/data connection. Queries run sequentially.
type Session interface {
	// Database is the database the session is bound to.
	Database() string

	// Select runs a query and scans every row into dest, a pointer to a
	// slice of structs tagged with `db:"column"`.
	Select(ctx context.Context, dest any, query string, args ...any) error

	// Query runs a query returning arbitrary columns.
	Query(ctx context.Context, query string, args ...any) (Rows, error)

	// Close returns the connection. Safe to call more than once.
	Close() error
}

// Rows is an abstraction over a database result set.
// Callers must always call Close() when done, even on error.
type Rows interface {
	// Next advances to the next row.
	Next() bool

	// Scan copies the current row's columns into the provided destinations.
	// Destinations of type *any receive the driver value converted to the
	// closed scalar set documented on Record.
	Scan(dest ...any) error

	// Columns returns the column names of the result set.
	Columns() ([]string, error)

	// Close releases resources held by the result set.
	Close()

	// Err returns any error encountered during iteration.
	Err() error
}
