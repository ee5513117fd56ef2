// Package postgres registers the pgx-backed PostgreSQL provider under the
// names "postgres" and "pgx".
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"

	"github.com/Konsultn-Engineering/sqlkit/connector"
	"github.com/Konsultn-Engineering/sqlkit/database"
	"github.com/Konsultn-Engineering/sqlkit/dialect"
)

type Provider struct{}

func init() {
	connector.Register("postgres", &Provider{})
	connector.Register("pgx", &Provider{})
	dialect.RegisterCodeExtractor(codeOf)
}

func codeOf(err error) (dialect.ErrorCode, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return dialect.ErrorCode{SQLState: pgErr.Code}, true
	}
	return dialect.ErrorCode{}, false
}

func buildDSN(cfg connector.Config) string {
	if cfg.DSN != "" {
		return cfg.DSN
	}
	return connector.NewDSNBuilder("postgres").
		Config(cfg).
		Param("sslmode", cfg.SSLMode).
		WithPostgresDefaults().
		Build()
}

func poolConfig(cfg connector.Config) (*pgxpool.Config, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	poolCfg, err := pgxpool.ParseConfig(buildDSN(cfg))
	if err != nil {
		return nil, fmt.Errorf("postgres: %w", err)
	}

	pool := cfg.Pool.WithDefaults()
	poolCfg.MaxConns = int32(pool.MaxOpen)
	poolCfg.MinConns = int32(pool.MaxIdle)
	poolCfg.MaxConnLifetime = pool.MaxLifetime
	poolCfg.MaxConnIdleTime = pool.MaxIdleTime
	if pool.HealthCheckFreq > 0 {
		poolCfg.HealthCheckPeriod = pool.HealthCheckFreq
	}
	return poolCfg, nil
}

func (p *Provider) Connect(ctx context.Context, cfg connector.Config) (connector.Connection, error) {
	poolCfg, err := poolConfig(cfg)
	if err != nil {
		return nil, err
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: ping: %w", err)
	}
	return &Connection{pool: pool, dialect: dialect.NewPostgresDialect()}, nil
}

func (p *Provider) Dialect() dialect.Dialect {
	return dialect.NewPostgresDialect()
}

// Connection is a pgx pool. Acquired connections use the native pgx
// protocol rather than database/sql.
type Connection struct {
	pool    *pgxpool.Pool
	dialect dialect.Dialect
}

func (c *Connection) Acquire(ctx context.Context) (database.Conn, error) {
	pc, err := c.pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	return database.NewPgxConn(pc.Conn(), pc.Release), nil
}

// DB opens a database/sql handle backed by the same pool.
func (c *Connection) DB() *sql.DB {
	return stdlib.OpenDBFromPool(c.pool)
}

func (c *Connection) Dialect() dialect.Dialect {
	return c.dialect
}

func (c *Connection) Health(ctx context.Context) error {
	return c.pool.Ping(ctx)
}

func (c *Connection) Stats() connector.ConnectionStats {
	s := c.pool.Stat()
	return connector.ConnectionStats{
		OpenConnections: int(s.TotalConns()),
		InUse:           int(s.AcquiredConns()),
		Idle:            int(s.IdleConns()),
	}
}

func (c *Connection) Close() error {
	c.pool.Close()
	return nil
}
