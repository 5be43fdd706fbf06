package repository

import "time"

// Default SQLite configuration constants.
const (
	defaultBusyTimeout  = 5 * time.Second
	defaultMaxOpenConns = 1
)

// Option applies a configuration option to the SQLiteStore.
type Option func(*SQLiteStore)

// WithBusyTimeout sets how long SQLite waits on a locked database before failing.
func WithBusyTimeout(d time.Duration) Option {
	return func(s *SQLiteStore) {
		if d > 0 {
			s.busyTimeout = d
		}
	}
}

// WithMaxOpenConns bounds the connection pool. In-memory databases are
// always pinned to a single connection.
func WithMaxOpenConns(n int) Option {
	return func(s *SQLiteStore) {
		if n > 0 {
			s.maxOpenConns = n
		}
	}
}
