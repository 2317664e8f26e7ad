package status

import (
	"context"
	"database/sql"
	"errors"
	"time"

	_ "modernc.org/sqlite"
)

// SQLite is a durable Store backed by a single-table SQLite database.
type SQLite struct {
	db *sql.DB
}

func OpenSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(`
CREATE TABLE IF NOT EXISTS job_status (
  job_id TEXT PRIMARY KEY,
  value TEXT NOT NULL,
  updated_at INTEGER NOT NULL
);
`); err != nil {
		db.Close()
		return nil, err
	}
	return &SQLite{db: db}, nil
}

func (s *SQLite) Close() error { return s.db.Close() }

func (s *SQLite) Set(ctx context.Context, jobID, value string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO job_status (job_id, value, updated_at) VALUES (?, ?, ?)
         ON CONFLICT (job_id) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		jobID, value, time.Now().UnixMilli(),
	)
	return err
}

func (s *SQLite) Get(ctx context.Context, jobID string) (string, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT value FROM job_status WHERE job_id = ?`, jobID)
	var value string
	if err := row.Scan(&value); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrNotFound
		}
		return "", err
	}
	return value, nil
}
