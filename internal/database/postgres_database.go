package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	defaultMaxConns        = 4
	defaultConnIdleTimeout = 5 * time.Minute
)

var ErrNoRows = errors.New("database: no rows in result set")

type DB interface {
	QueryRowStruct(ctx context.Context, dest any, sql string, args ...any) error
	QueryStruct(ctx context.Context, dest any, sql string, args ...any) error
	Ping(ctx context.Context) error
	Close()
}

type PostgresDB struct {
	pool *pgxpool.Pool
}

// NewPostgres opens a small read-only oriented connection pool
func NewPostgres(ctx context.Context, dsn string) (*PostgresDB, error) {
	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parsing database url: %w", err)
	}
	config.MaxConns = defaultMaxConns
	config.MaxConnIdleTime = defaultConnIdleTimeout

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	return &PostgresDB{pool: pool}, nil
}

func (db *PostgresDB) Ping(ctx context.Context) error {
	return db.pool.Ping(ctx)
}

func (db *PostgresDB) Close() {
	db.pool.Close()
}

// QueryRowStruct scans exactly one row into dest, ErrNoRows when there is none
func (db *PostgresDB) QueryRowStruct(ctx context.Context, dest any, sql string, args ...any) error {
	if err := pgxscan.Get(ctx, db.pool, dest, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return ErrNoRows
		}
		return err
	}
	return nil
}

// QueryStruct scans every row into the slice pointed to by dest
func (db *PostgresDB) QueryStruct(ctx context.Context, dest any, sql string, args ...any) error {
	return pgxscan.Select(ctx, db.pool, dest, sql, args...)
}
