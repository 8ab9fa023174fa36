// Package store keeps dataset rows in Postgres and serves them as a
// provider.RowSource.
package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Schema creates the rows table. Rows are stored as json, not jsonb, so
// field order survives the round trip.
const Schema = `
CREATE TABLE IF NOT EXISTS dataset_rows (
	dataset  text    NOT NULL,
	config   text    NOT NULL DEFAULT '',
	split    text    NOT NULL,
	row_idx  integer NOT NULL,
	row      json    NOT NULL,
	PRIMARY KEY (dataset, config, split, row_idx)
)`

type Store struct {
	pool *pgxpool.Pool
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &Store{pool: pool}, nil
}

// Migrate creates the rows table if it does not exist.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

func (s *Store) Close() {
	s.pool.Close()
}
