// Package repository stores users, stream messages and reactions in
// PostgreSQL.
package repository

import "time"

// Option applies a configuration option to the Postgres repository.
type Option func(*Postgres)

// WithQueryTimeout bounds every query. Zero disables the bound.
func WithQueryTimeout(timeout time.Duration) Option {
	return func(p *Postgres) {
		if timeout >= 0 {
			p.queryTimeout = timeout
		}
	}
}
