package sqlserver

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	mssql "github.com/denisenkom/go-mssqldb"

	"github.com/Konsultn-Engineering/sqlkit/connector"
	"github.com/Konsultn-Engineering/sqlkit/dialect"
)

type Provider struct{}

func init() {
	connector.Register("sqlserver", &Provider{})
	connector.Register("mssql", &Provider{})
	dialect.RegisterCodeExtractor(codeOf)
}

func codeOf(err error) (dialect.ErrorCode, bool) {
	var msErr mssql.Error
	if errors.As(err, &msErr) {
		return dialect.ErrorCode{Vendor: int(msErr.Number)}, true
	}
	var msErrPtr *mssql.Error
	if errors.As(err, &msErrPtr) {
		return dialect.ErrorCode{Vendor: int(msErrPtr.Number)}, true
	}
	return dialect.ErrorCode{}, false
}

// buildDSN renders the URL form with the database as a query parameter.
func buildDSN(cfg connector.Config) string {
	if cfg.DSN != "" {
		return cfg.DSN
	}
	port := cfg.Port
	if port == 0 {
		port = 1433
	}
	b := connector.NewDSNBuilder("sqlserver").
		Auth(cfg.Username, cfg.Password).
		Host(cfg.Host, port).
		Param("database", cfg.Database).
		Params(cfg.Params)
	if cfg.ConnectTimeout > 0 {
		b.Param("dial timeout", fmt.Sprint(int(cfg.ConnectTimeout.Seconds())))
	}
	return b.Build()
}

func (p *Provider) Connect(ctx context.Context, cfg connector.Config) (connector.Connection, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	c, err := mssql.NewConnector(buildDSN(cfg))
	if err != nil {
		return nil, fmt.Errorf("sqlserver: %w", err)
	}
	return connector.FromDB(ctx, sql.OpenDB(c), p.Dialect(), cfg.Pool)
}

func (p *Provider) Dialect() dialect.Dialect {
	return dialect.NewSQLServerDialect()
}
