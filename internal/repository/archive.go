package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"tickerpane/internal/models"
)

// QuoteArchive persists fetched quotes to postgres so price movements
// survive restarts and can be inspected out of band. The archive is
// optional: when no DSN is configured the scheduler runs without one.
type QuoteArchive struct {
	pool *pgxpool.Pool
}

func NewQuoteArchive(pool *pgxpool.Pool) *QuoteArchive {
	return &QuoteArchive{pool: pool}
}

// EnsureSchema creates the archive table when it does not exist yet.
func (a *QuoteArchive) EnsureSchema(ctx context.Context) error {
	_, err := a.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS quote_history (
			id         BIGSERIAL PRIMARY KEY,
			symbol     TEXT NOT NULL,
			name       TEXT NOT NULL DEFAULT '',
			price      DOUBLE PRECISION NOT NULL,
			prev_close DOUBLE PRECISION NOT NULL,
			fetched_at TIMESTAMPTZ NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`)
	if err != nil {
		return err
	}
	_, err = a.pool.Exec(ctx, `
		CREATE INDEX IF NOT EXISTS quote_history_symbol_fetched_idx
		ON quote_history (symbol, fetched_at DESC)`)
	return err
}

// RecordQuotes inserts one row per quote in a single batch.
func (a *QuoteArchive) RecordQuotes(ctx context.Context, quotes []models.Quote) error {
	if len(quotes) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, q := range quotes {
		batch.Queue(
			`INSERT INTO quote_history (symbol, name, price, prev_close, fetched_at)
			 VALUES ($1, $2, $3, $4, $5)`,
			q.Symbol, q.Name, q.Price, q.PrevClose, q.Timestamp,
		)
	}

	br := a.pool.SendBatch(ctx, batch)
	defer br.Close()
	for range quotes {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}

// GetRecent returns up to limit archived quotes for a symbol, newest
// first.
func (a *QuoteArchive) GetRecent(ctx context.Context, symbol string, limit int) ([]models.Quote, error) {
	if limit <= 0 || limit > 1000 {
		limit = 100
	}
	rows, err := a.pool.Query(ctx,
		`SELECT symbol, name, price, prev_close, fetched_at
		 FROM quote_history WHERE symbol = $1
		 ORDER BY fetched_at DESC LIMIT $2`,
		symbol, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Quote
	for rows.Next() {
		var q models.Quote
		var ts time.Time
		if err := rows.Scan(&q.Symbol, &q.Name, &q.Price, &q.PrevClose, &ts); err != nil {
			return nil, err
		}
		q.Timestamp = ts
		out = append(out, q)
	}
	return out, rows.Err()
}
