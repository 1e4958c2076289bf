// Package postgres is the pgx-backed Domain Store Adapter implementing
// engine/store.Store, grounded on the teacher's
// engine/infra/postgres/{store,taskrepo,jsonb,scan,queries}.go.
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mdriyaz-a/RSO/engine/store"
	"github.com/mdriyaz-a/RSO/pkg/logger"
)

// Config holds PostgreSQL connection settings, mirroring the teacher's
// postgres.Config: a full DSN if set, otherwise synthesized from fields.
type Config struct {
	ConnString      string
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

func dsn(cfg *Config) string {
	if cfg.ConnString != "" {
		return cfg.ConnString
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode,
	)
}

// DB is the minimal surface every repository method needs — pgxpool.Pool
// or a pgx.Tx both satisfy it, letting repository code run identically
// inside or outside a transaction.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store is the concrete driver, backed by pgxpool.Pool.
type Store struct {
	pool *pgxpool.Pool
	db   DB
}

// NewStore opens a pool against cfg and verifies connectivity.
func NewStore(ctx context.Context, cfg *Config) (*Store, error) {
	if cfg == nil {
		return nil, fmt.Errorf("postgres: config is required")
	}
	log := logger.FromContext(ctx)
	poolCfg, err := pgxpool.ParseConfig(dsn(cfg))
	if err != nil {
		return nil, fmt.Errorf("postgres: parse config: %w", err)
	}
	maxConns := int32(20)
	if cfg.MaxOpenConns > 0 {
		maxConns = int32(cfg.MaxOpenConns)
	}
	minConns := int32(2)
	if cfg.MaxIdleConns > 0 {
		minConns = int32(cfg.MaxIdleConns)
	}
	poolCfg.MaxConns = maxConns
	poolCfg.MinConns = minConns
	poolCfg.HealthCheckPeriod = 30 * time.Second
	poolCfg.ConnConfig.ConnectTimeout = 5 * time.Second
	if cfg.ConnMaxLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.ConnMaxLifetime
	}
	if cfg.ConnMaxIdleTime > 0 {
		poolCfg.MaxConnIdleTime = cfg.ConnMaxIdleTime
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("postgres: new pool: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: ping: %w", err)
	}
	log.With("store_driver", "postgres", "host", cfg.Host, "db_name", cfg.DBName).Info("store initialized")
	return &Store{pool: pool, db: pool}, nil
}

// Close shuts down the connection pool.
func (s *Store) Close(ctx context.Context) error {
	s.pool.Close()
	logger.FromContext(ctx).Info("store closed")
	return nil
}

// HealthCheck verifies the connection is alive.
func (s *Store) HealthCheck(ctx context.Context) error {
	hctx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	if err := s.pool.Ping(hctx); err != nil {
		return fmt.Errorf("postgres: health check failed: %w", err)
	}
	return nil
}

// WithTx opens one transaction, runs fn against a Store bound to that
// transaction's DB, and commits or rolls back based on fn's error — the
// "one event, one transaction" rule of spec §4.2/§5.
func (s *Store) WithTx(ctx context.Context, fn func(ctx context.Context, tx store.Store) error) (err error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("postgres: begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
			return
		}
		err = tx.Commit(ctx)
	}()
	txStore := &Store{pool: s.pool, db: tx}
	return fn(ctx, txStore)
}
