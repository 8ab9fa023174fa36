package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/MikeSquared-Agency/chatlens/internal/provider"
	"github.com/MikeSquared-Agency/chatlens/internal/record"
)

// Rows returns up to length rows of ds ordered by row_idx.
func (s *Store) Rows(ctx context.Context, ds provider.Dataset, offset, length int) ([]record.Record, error) {
	if offset < 0 || length <= 0 {
		return nil, nil
	}
	if err := s.exists(ctx, ds); err != nil {
		return nil, err
	}

	rows, err := s.pool.Query(ctx, `
		SELECT row::text FROM dataset_rows
		WHERE dataset = $1 AND config = $2 AND split = $3
		ORDER BY row_idx
		OFFSET $4 LIMIT $5`,
		ds.ID, ds.Config, ds.Split, offset, length,
	)
	if err != nil {
		return nil, fmt.Errorf("query rows: %w", err)
	}
	defer rows.Close()

	var out []record.Record
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		rec, err := record.Parse([]byte(raw))
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", provider.ErrDecodeFailure, ds, err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (s *Store) NumRows(ctx context.Context, ds provider.Dataset) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx, `
		SELECT count(*) FROM dataset_rows
		WHERE dataset = $1 AND config = $2 AND split = $3`,
		ds.ID, ds.Config, ds.Split,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count rows: %w", err)
	}
	if n == 0 {
		return 0, fmt.Errorf("%s: %w", ds, provider.ErrSourceNotFound)
	}
	return n, nil
}

// Configs lists the configs stored for a dataset, sorted.
func (s *Store) Configs(ctx context.Context, id string) ([]string, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT DISTINCT config FROM dataset_rows
		WHERE dataset = $1
		ORDER BY config`,
		id,
	)
	if err != nil {
		return nil, fmt.Errorf("query configs: %w", err)
	}
	cfgs, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("collect configs: %w", err)
	}
	if len(cfgs) == 0 {
		return nil, fmt.Errorf("%s: %w", id, provider.ErrSourceNotFound)
	}
	return cfgs, nil
}

// PutRows replaces the stored rows of ds with recs, numbered from zero.
func (s *Store) PutRows(ctx context.Context, ds provider.Dataset, recs []record.Record) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		DELETE FROM dataset_rows
		WHERE dataset = $1 AND config = $2 AND split = $3`,
		ds.ID, ds.Config, ds.Split,
	)
	if err != nil {
		return fmt.Errorf("clear rows: %w", err)
	}

	batch := &pgx.Batch{}
	for i, rec := range recs {
		batch.Queue(`
			INSERT INTO dataset_rows (dataset, config, split, row_idx, row)
			VALUES ($1, $2, $3, $4, $5::json)`,
			ds.ID, ds.Config, ds.Split, i, rec.String(),
		)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("insert rows: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// exists reports ErrSourceNotFound for splits with no stored rows.
func (s *Store) exists(ctx context.Context, ds provider.Dataset) error {
	var ok bool
	err := s.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM dataset_rows
			WHERE dataset = $1 AND config = $2 AND split = $3
		)`,
		ds.ID, ds.Config, ds.Split,
	).Scan(&ok)
	if err != nil {
		return fmt.Errorf("check dataset: %w", err)
	}
	if !ok {
		return fmt.Errorf("%s: %w", ds, provider.ErrSourceNotFound)
	}
	return nil
}
