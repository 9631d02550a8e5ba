package database

import (
	"context"
)

// Database is the client collaborator: it executes finished statements with
// positional parameters.
type Database interface {
	QueryContext(ctx context.Context, query string, args ...any) (Rows, error)
	ExecContext(ctx context.Context, query string, args ...any) (Result, error)
	PingContext(ctx context.Context) error
	Close() error
}

// Rows iterates a result set.
type Rows interface {
	Next() bool
	Scan(dest ...any) error
	Close() error
	Columns() ([]string, error)
	Err() error
}

// Result reports the outcome of a statement that returns no rows.
type Result interface {
	RowsAffected() (int64, error)
}
