// Package postgres provides Postgres-backed persistence implementations.
package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JakeFAU/place-menu-crawler/internal/crawler"
)

var validTableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

const defaultTable = "stores"

// RecordStoreConfig controls the Postgres connection pool used for store rows.
type RecordStoreConfig struct {
	DSN             string
	Table           string
	MaxConns        int32
	MaxConnLifetime time.Duration
}

type pool interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	Begin(context.Context) (pgx.Tx, error)
	Close()
}

// RecordStore upserts store records keyed by name.
type RecordStore struct {
	pool  pool
	table string
}

// NewRecordStore connects to Postgres using the provided config.
func NewRecordStore(ctx context.Context, cfg RecordStoreConfig) (*RecordStore, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("output.postgres.dsn is required")
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	p, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	store, err := NewRecordStoreWithPool(p, cfg.Table)
	if err != nil {
		p.Close()
		return nil, err
	}
	return store, nil
}

// NewRecordStoreWithPool constructs a store from an existing pool (primarily for testing).
func NewRecordStoreWithPool(p pool, table string) (*RecordStore, error) {
	if p == nil {
		return nil, fmt.Errorf("pool is required")
	}
	if table == "" {
		table = defaultTable
	}
	if !validTableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	return &RecordStore{pool: p, table: table}, nil
}

// Close releases the underlying pool resources.
func (s *RecordStore) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// EnsureSchema creates the table when it does not exist yet.
func (s *RecordStore) EnsureSchema(ctx context.Context) error {
	query := fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s (
	id         TEXT NOT NULL,
	name       TEXT PRIMARY KEY,
	address    TEXT NOT NULL DEFAULT '',
	menu_info  JSONB NOT NULL DEFAULT '[]'::jsonb,
	lat        DOUBLE PRECISION,
	lng        DOUBLE PRECISION,
	crawled_at TIMESTAMPTZ NOT NULL
)`, s.table)
	if _, err := s.pool.Exec(ctx, query); err != nil {
		return fmt.Errorf("create table %s: %w", s.table, err)
	}
	return nil
}

// Save upserts every record in one transaction. Existing rows keep their
// coordinates unless the new record carries some.
func (s *RecordStore) Save(ctx context.Context, records []crawler.StoreRecord) (err error) {
	if s == nil || s.pool == nil {
		return fmt.Errorf("record store is not configured")
	}
	if len(records) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	query := fmt.Sprintf(`
INSERT INTO %[1]s (id, name, address, menu_info, lat, lng, crawled_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (name) DO UPDATE SET
	address = EXCLUDED.address,
	menu_info = EXCLUDED.menu_info,
	lat = COALESCE(EXCLUDED.lat, %[1]s.lat),
	lng = COALESCE(EXCLUDED.lng, %[1]s.lng),
	crawled_at = EXCLUDED.crawled_at`, s.table)

	for _, rec := range records {
		menuJSON, err := json.Marshal(nonNil(rec.MenuInfo))
		if err != nil {
			return fmt.Errorf("marshal menu for %q: %w", rec.Name, err)
		}
		if _, err := tx.Exec(ctx, query,
			rec.ID,
			rec.Name,
			rec.Address,
			menuJSON,
			rec.Lat,
			rec.Lng,
			rec.CrawledAt,
		); err != nil {
			return fmt.Errorf("upsert %q: %w", rec.Name, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func nonNil(lines []string) []string {
	if lines == nil {
		return []string{}
	}
	return lines
}
