package blobstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

// PostgresConfig holds PostgreSQL connection configuration.
type PostgresConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	Database        string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

// Postgres is a Store backend over a PostgreSQL key/value table, for
// deployments that already run Postgres and want the blob alongside it.
type Postgres struct {
	db  *sqlx.DB
	key string
}

// OpenPostgres connects to PostgreSQL, applies the pool settings and
// ensures the blobs table exists.
func OpenPostgres(config *PostgresConfig, key string, logger *slog.Logger) (*Postgres, error) {
	dsn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		config.Host,
		config.Port,
		config.User,
		config.Password,
		config.Database,
		config.SSLMode,
	)

	logger.Info("Connecting to PostgreSQL",
		slog.String("host", config.Host),
		slog.Int("port", config.Port),
		slog.String("database", config.Database),
	)

	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}

	db.SetMaxOpenConns(config.MaxOpenConns)
	db.SetMaxIdleConns(config.MaxIdleConns)
	db.SetConnMaxLifetime(config.ConnMaxLifetime)
	db.SetConnMaxIdleTime(config.ConnMaxIdleTime)

	if _, err := db.Exec(`
CREATE TABLE IF NOT EXISTS blobs (
  store_key  TEXT PRIMARY KEY,
  value      BYTEA NOT NULL,
  updated_at TIMESTAMPTZ NOT NULL
)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize postgres store: %w", err)
	}

	return &Postgres{db: db, key: key}, nil
}

func (p *Postgres) Load(ctx context.Context) ([]byte, error) {
	var blob []byte
	err := p.db.QueryRowContext(ctx,
		`SELECT value FROM blobs WHERE store_key = $1`, p.key,
	).Scan(&blob)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to load blob: %w", err)
	}
	return blob, nil
}

func (p *Postgres) Save(ctx context.Context, blob []byte) error {
	if blob == nil {
		blob = []byte{}
	}
	_, err := p.db.ExecContext(ctx, `
INSERT INTO blobs (store_key, value, updated_at) VALUES ($1, $2, $3)
ON CONFLICT (store_key) DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at
`, p.key, blob, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to save blob: %w", err)
	}
	return nil
}

func (p *Postgres) Close() error { return p.db.Close() }
