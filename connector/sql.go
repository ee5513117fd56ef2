package connector

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Konsultn-Engineering/sqlkit/database"
	"github.com/Konsultn-Engineering/sqlkit/dialect"
)

// SQLConnection serves a database/sql pool.
type SQLConnection struct {
	db      *sql.DB
	dialect dialect.Dialect
}

// NewSQLConnection wraps db and applies the pool limits to it.
func NewSQLConnection(db *sql.DB, d dialect.Dialect, pool PoolConfig) *SQLConnection {
	pool = pool.WithDefaults()
	db.SetMaxOpenConns(pool.MaxOpen)
	db.SetMaxIdleConns(pool.MaxIdle)
	db.SetConnMaxLifetime(pool.MaxLifetime)
	db.SetConnMaxIdleTime(pool.MaxIdleTime)
	return &SQLConnection{db: db, dialect: d}
}

// OpenSQL opens driverName with dsn and pings it before returning.
func OpenSQL(ctx context.Context, driverName, dsn string, d dialect.Dialect, pool PoolConfig) (*SQLConnection, error) {
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("connector: open %s: %w", driverName, err)
	}
	return FromDB(ctx, db, d, pool)
}

// FromDB pings db and wraps it. db is closed when the ping fails.
func FromDB(ctx context.Context, db *sql.DB, d dialect.Dialect, pool PoolConfig) (*SQLConnection, error) {
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("connector: ping %s: %w", d.Name(), err)
	}
	return NewSQLConnection(db, d, pool), nil
}

// DB returns the underlying *sql.DB instance.
func (c *SQLConnection) DB() *sql.DB {
	return c.db
}

func (c *SQLConnection) Acquire(ctx context.Context) (database.Conn, error) {
	conn, err := c.db.Conn(ctx)
	if err != nil {
		return nil, err
	}
	return database.NewSQLConn(conn), nil
}

func (c *SQLConnection) Dialect() dialect.Dialect {
	return c.dialect
}

func (c *SQLConnection) Health(ctx context.Context) error {
	return c.db.PingContext(ctx)
}

func (c *SQLConnection) Stats() ConnectionStats {
	s := c.db.Stats()
	return ConnectionStats{
		OpenConnections: s.OpenConnections,
		InUse:           s.InUse,
		Idle:            s.Idle,
	}
}

func (c *SQLConnection) Close() error {
	return c.db.Close()
}
