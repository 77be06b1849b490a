// Package storage implements the persistence contract of spec.md §4.7: a
// transactional account/character/guild/mail/world-variable store that
// hides the SQL dialect behind Go methods. Grounded on the teacher's
// internal/db package (pgx/v5 + pgxpool + goose), generalized from the
// teacher's MMO-combat schema to the entities of spec.md §3/§6.
package storage

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// DB wraps a pgx connection pool shared by every repository method below.
type DB struct {
	pool *pgxpool.Pool
}

// Open connects to PostgreSQL and pings it. It does not check the schema
// version; CheckVersion does that (spec.md §4.7 "Version guard").
func Open(ctx context.Context, dsn string) (*DB, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("storage: connecting to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("storage: pinging database: %w", err)
	}
	return &DB{pool: pool}, nil
}

// Close releases the underlying connection pool.
func (d *DB) Close() {
	d.pool.Close()
}

// Pool exposes the underlying pgxpool.Pool, used by RunMigrations and by
// tests that need to seed rows directly.
func (d *DB) Pool() *pgxpool.Pool {
	return d.pool
}
