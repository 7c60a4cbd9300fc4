package library

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

const (
	pgMaxConns       = 5
	pgConnectTimeout = 5 * time.Second
	pgPingTimeout    = 2 * time.Second
)

// PostgresStore keeps slots as jsonb rows in library_slots.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore connects to dsn and creates the slot table if needed.
func NewPostgresStore(ctx context.Context, dsn string, log *zap.Logger) (*PostgresStore, error) {
	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: invalid DSN: %w", err)
	}
	poolConfig.MaxConns = pgMaxConns
	poolConfig.ConnConfig.ConnectTimeout = pgConnectTimeout

	connectCtx, cancel := context.WithTimeout(ctx, pgConnectTimeout)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(connectCtx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to create pool: %w", err)
	}

	pingCtx, cancelPing := context.WithTimeout(ctx, pgPingTimeout)
	defer cancelPing()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: ping failed: %w", err)
	}

	if _, err := pool.Exec(ctx, `CREATE TABLE IF NOT EXISTS library_slots (
        key TEXT PRIMARY KEY,
        value JSONB NOT NULL,
        updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
    )`); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: create slots table: %w", err)
	}

	log.Info("postgres store connected", zap.Int32("max_conns", poolConfig.MaxConns))
	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) Load(ctx context.Context, key string) ([]byte, bool, error) {
	var raw []byte
	err := s.pool.QueryRow(ctx, `SELECT value::text FROM library_slots WHERE key = $1`, key).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("postgres load %s: %w", key, err)
	}
	return raw, true, nil
}

func (s *PostgresStore) Save(ctx context.Context, slots map[string][]byte) error {
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		for key, value := range slots {
			if _, err := tx.Exec(ctx, `INSERT INTO library_slots(key, value, updated_at) VALUES($1, $2::jsonb, now())
                ON CONFLICT (key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
				key, string(value)); err != nil {
				return fmt.Errorf("postgres save %s: %w", key, err)
			}
		}
		return nil
	})
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
