package blobstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

// SQLite is the default Store backend: a one-row key/value table in a local
// SQLite file.
type SQLite struct {
	db  *sqlx.DB
	key string
}

// OpenSQLite opens (creating if needed) the SQLite file at path and ensures
// the blobs table exists.
func OpenSQLite(path, key string) (*SQLite, error) {
	db, err := sqlx.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite store: %w", err)
	}

	if _, err := db.Exec(`
CREATE TABLE IF NOT EXISTS blobs (
  store_key  TEXT PRIMARY KEY,
  value      BLOB NOT NULL,
  updated_at INTEGER NOT NULL
);
`); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize sqlite store: %w", err)
	}

	return &SQLite{db: db, key: key}, nil
}

func (s *SQLite) Load(ctx context.Context) ([]byte, error) {
	var blob []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM blobs WHERE store_key = ?`, s.key,
	).Scan(&blob)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to load blob: %w", err)
	}
	return blob, nil
}

func (s *SQLite) Save(ctx context.Context, blob []byte) error {
	if blob == nil {
		blob = []byte{}
	}
	_, err := s.db.ExecContext(ctx, `
INSERT INTO blobs (store_key, value, updated_at) VALUES (?, ?, ?)
ON CONFLICT(store_key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
`, s.key, blob, time.Now().UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to save blob: %w", err)
	}
	return nil
}

func (s *SQLite) Close() error { return s.db.Close() }
