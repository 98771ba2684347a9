package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStoreConfig configures the Postgres-backed document store. The
// document keeps its remote-blob semantics: one jsonb row, read whole,
// replaced whole.
type PostgresStoreConfig struct {
	DSN             string
	MaxConnections  int32
	MinConnections  int32
	ApplicationName string
}

const postgresDocumentKey = "yumetv"

type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore opens a pooled connection and ensures the single-row
// document table exists.
func NewPostgresStore(ctx context.Context, cfg PostgresStoreConfig) (*PostgresStore, error) {
	if strings.TrimSpace(cfg.DSN) == "" {
		return nil, fmt.Errorf("postgres dsn required")
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres config: %w", err)
	}
	if cfg.MaxConnections > 0 {
		poolCfg.MaxConns = cfg.MaxConnections
	}
	if cfg.MinConnections > 0 {
		poolCfg.MinConns = cfg.MinConnections
	}
	if cfg.ApplicationName != "" {
		if poolCfg.ConnConfig.RuntimeParams == nil {
			poolCfg.ConnConfig.RuntimeParams = make(map[string]string)
		}
		poolCfg.ConnConfig.RuntimeParams["application_name"] = cfg.ApplicationName
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("open postgres pool: %w", err)
	}

	store := &PostgresStore{pool: pool}
	if err := store.migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return store, nil
}

func (s *PostgresStore) migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
CREATE TABLE IF NOT EXISTS app_document (
    key        text PRIMARY KEY,
    document   jsonb NOT NULL,
    updated_at timestamptz NOT NULL DEFAULT now()
)`)
	if err != nil {
		return fmt.Errorf("create document table: %w", err)
	}
	return nil
}

func (s *PostgresStore) Load(ctx context.Context) (Document, error) {
	var raw []byte
	err := s.pool.QueryRow(ctx,
		`SELECT document FROM app_document WHERE key = $1`, postgresDocumentKey,
	).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return Document{}, ErrDocumentNotFound
	} else if err != nil {
		return Document{}, fmt.Errorf("select document: %w", err)
	}
	return DecodeDocument(raw)
}

func (s *PostgresStore) Save(ctx context.Context, doc Document) error {
	payload, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode document: %w", err)
	}
	_, err = s.pool.Exec(ctx, `
INSERT INTO app_document (key, document, updated_at)
VALUES ($1, $2, now())
ON CONFLICT (key) DO UPDATE SET document = EXCLUDED.document, updated_at = now()`,
		postgresDocumentKey, payload)
	if err != nil {
		return fmt.Errorf("upsert document: %w", err)
	}
	return nil
}

// Close releases the underlying pool; the pool close has no context of its
// own so honour cancellation around it.
func (s *PostgresStore) Close(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.pool.Close()
		close(done)
	}()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		return nil
	}
}
