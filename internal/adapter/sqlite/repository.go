package sqlite

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"

	"github.com/vitaehq/vitae/internal/domain"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS resume_file (
    fingerprint TEXT PRIMARY KEY,
    parser_id   TEXT NOT NULL,
    created_at  DATETIME DEFAULT CURRENT_TIMESTAMP
);
CREATE TABLE IF NOT EXISTS job_header (
    job_name  TEXT NOT NULL,
    header    TEXT NOT NULL,
    frequency INTEGER NOT NULL DEFAULT 0,
    PRIMARY KEY (job_name, header)
);
`

// Repository implements domain.FingerprintStore and domain.SectionHeaderStore
// using SQLite.
type Repository struct {
	db *sql.DB
}

// New creates a new SQLite repository, initializing the schema if needed.
func New(dbPath string) (*Repository, error) {
	// Ensure directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, err
	}

	return &Repository{db: db}, nil
}

// Close closes the database connection.
func (r *Repository) Close() error {
	return r.db.Close()
}

// Lookup returns the parser job handle recorded for a fingerprint.
func (r *Repository) Lookup(ctx context.Context, fingerprint string) (string, bool, error) {
	var handle string
	err := r.db.QueryRowContext(ctx,
		`SELECT parser_id FROM resume_file WHERE fingerprint = ?`, fingerprint,
	).Scan(&handle)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return handle, true, nil
}

// Record inserts a fingerprint/handle pair. The table is append-only;
// inserting an existing fingerprint fails on the primary key.
func (r *Repository) Record(ctx context.Context, fingerprint, handle string) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO resume_file (fingerprint, parser_id) VALUES (?, ?)`,
		fingerprint, handle,
	)
	return err
}

// Increment bumps the observed frequency of each section header for a job
// title.
func (r *Repository) Increment(ctx context.Context, jobTitle string, headers []string) error {
	for _, header := range headers {
		_, err := r.db.ExecContext(ctx,
			`INSERT INTO job_header (job_name, header, frequency) VALUES (?, ?, 1)
			 ON CONFLICT (job_name, header) DO UPDATE SET frequency = frequency + 1`,
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
	rows, err := r.db.QueryContext(ctx,
		`SELECT header, frequency FROM job_header
		 WHERE job_name = ? ORDER BY frequency DESC, header ASC LIMIT ?`,
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
