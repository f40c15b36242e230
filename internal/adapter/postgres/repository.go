// Package postgres backs the fingerprint and section-header stores with
// Postgres via pgxpool.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vitaehq/vitae/internal/domain"
)

const schema = `
CREATE TABLE IF NOT EXISTS resume_file (
    fingerprint TEXT PRIMARY KEY,
    parser_id   TEXT NOT NULL,
    created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE TABLE IF NOT EXISTS job_header (
    job_name  TEXT NOT NULL,
    header    TEXT NOT NULL,
    frequency BIGINT NOT NULL DEFAULT 0,
    PRIMARY KEY (job_name, header)
);
`

// Repository implements domain.FingerprintStore and domain.SectionHeaderStore
// on a pgx connection pool.
type Repository struct {
	pool *pgxpool.Pool
}

// New connects to databaseURL, verifies connectivity and initializes the
// schema.
func New(ctx context.Context, databaseURL string) (*Repository, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("pgxpool.New: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres ping failed: %w", err)
	}
	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return &Repository{pool: pool}, nil
}

// Close releases the pool.
func (r *Repository) Close() {
	r.pool.Close()
}

// Lookup returns the parser job handle recorded for a fingerprint.
func (r *Repository) Lookup(ctx context.Context, fingerprint string) (string, bool, error) {
	var handle string
	err := r.pool.QueryRow(ctx,
		`SELECT parser_id FROM resume_file WHERE fingerprint = $1`, fingerprint,
	).Scan(&handle)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return handle, true, nil
}

// Record inserts a fingerprint/handle pair; existing fingerprints are left
// untouched (append-only mapping).
func (r *Repository) Record(ctx context.Context, fingerprint, handle string) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO resume_file (fingerprint, parser_id) VALUES ($1, $2)
		 ON CONFLICT (fingerprint) DO NOTHING`,
		fingerprint, handle,
	)
	return err
}

// Increment bumps the observed frequency of each section header for a job
// title.
func (r *Repository) Increment(ctx context.Context, jobTitle string, headers []string) error {
	for _, header := range headers {
		_, err := r.pool.Exec(ctx,
			`INSERT INTO job_header (job_name, header, frequency) VALUES ($1, $2, 1)
			 ON CONFLICT (job_name, header) DO UPDATE SET frequency = job_header.frequency + 1`,
			jobTitle, header,
		)
		if err != nil {
			return err
		}
	}
	return nil
}

// Top returns the most frequent section headers for a job title.
func (r *Repository) Top(ctx context.Context, jobTitle string, limit int) ([]domain.HeaderCount, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT header, frequency FROM job_header
		 WHERE job_name = $1 ORDER BY frequency DESC, header ASC LIMIT $2`,
		jobTitle, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var counts []domain.HeaderCount
	for rows.Next() {
		var hc domain.HeaderCount
		if err := rows.Scan(&hc.Header, &hc.Frequency); err != nil {
			return nil, err
		}
		counts = append(counts, hc)
	}
	return counts, rows.Err()
}
