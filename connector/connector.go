package connector

import (
	"context"

	"github.com/Konsultn-Engineering/sqlkit/database"
	"github.com/Konsultn-Engineering/sqlkit/dialect"
)

// Connection is an open pool of database connections for one dialect.
type Connection interface {
	// Acquire checks out one logical connection. Closing it returns it to
	// the pool.
	Acquire(ctx context.Context) (database.Conn, error)
	Dialect() dialect.Dialect
	Health(ctx context.Context) error
	Stats() ConnectionStats
	Close() error
}

type Connector interface {
	Connect(ctx context.Context) (Connection, error)
	ConnectWithRetry(ctx context.Context, opts RetryConfig) (Connection, error)
	Close() error
}
