package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"cryptobot/internal/model"
)

const createTableSQL = `
CREATE TABLE IF NOT EXISTS price_snapshots (
	id SERIAL PRIMARY KEY,
	cycle INTEGER NOT NULL,
	symbol VARCHAR(16) NOT NULL,
	eur_price NUMERIC(30, 12) NOT NULL,
	usd_price NUMERIC(30, 12) NOT NULL,
	change_eur NUMERIC(30, 12) NOT NULL,
	percent_change NUMERIC(30, 12) NOT NULL,
	first_sighting BOOLEAN NOT NULL,
	observed_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);`

const insertSQL = `
INSERT INTO price_snapshots
	(cycle, symbol, eur_price, usd_price, change_eur, percent_change, first_sighting, observed_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

// PostgresRepository archives snapshots in PostgreSQL. It is write-only.
type PostgresRepository struct {
	Pool *pgxpool.Pool
}

// NewPostgresRepository connects to the database at url.
func NewPostgresRepository(ctx context.Context, url string) (*PostgresRepository, error) {
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("connect archive: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping archive: %w", err)
	}
	return &PostgresRepository{Pool: pool}, nil
}

// Migrate creates the archive table if needed.
func (r *PostgresRepository) Migrate(ctx context.Context) error {
	_, err := r.Pool.Exec(ctx, createTableSQL)
	return err
}

// ArchiveSnapshot inserts one row per quote in a single batch.
func (r *PostgresRepository) ArchiveSnapshot(ctx context.Context, quotes []model.ArchivedQuote) error {
	if len(quotes) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, q := range quotes {
		batch.Queue(insertSQL,
			q.Cycle,
			string(q.Symbol),
			q.EURPrice.String(),
			q.USDPrice.String(),
			q.ChangeEUR.String(),
			q.PercentChange.String(),
			q.FirstSighting,
			q.ObservedAt,
		)
	}
	return r.Pool.SendBatch(ctx, batch).Close()
}

// Close releases the pool.
func (r *PostgresRepository) Close() {
	r.Pool.Close()
}
