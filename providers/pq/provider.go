package pq

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/Konsultn-Engineering/sqlkit/connector"
	"github.com/Konsultn-Engineering/sqlkit/dialect"
)

// Provider opens PostgreSQL through lib/pq and database/sql.
type Provider struct{}

func init() {
	connector.Register("pq", &Provider{})
	dialect.RegisterCodeExtractor(codeOf)
}

func codeOf(err error) (dialect.ErrorCode, bool) {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return dialect.ErrorCode{SQLState: string(pqErr.Code)}, true
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

func (p *Provider) Connect(ctx context.Context, cfg connector.Config) (connector.Connection, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	c, err := pq.NewConnector(buildDSN(cfg))
	if err != nil {
		return nil, fmt.Errorf("pq: %w", err)
	}
	return connector.FromDB(ctx, sql.OpenDB(c), p.Dialect(), cfg.Pool)
}

func (p *Provider) Dialect() dialect.Dialect {
	return dialect.NewPostgresDialect()
}
