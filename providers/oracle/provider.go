package oracle

import (
	"context"
	"errors"

	go_ora "github.com/sijms/go-ora/v2"
	"github.com/sijms/go-ora/v2/network"

	"github.com/Konsultn-Engineering/sqlkit/connector"
	"github.com/Konsultn-Engineering/sqlkit/dialect"
)

// Provider opens Oracle through the pure Go go-ora driver. Config.Database
// is the service name.
type Provider struct{}

func init() {
	connector.Register("oracle", &Provider{})
	dialect.RegisterCodeExtractor(codeOf)
}

func codeOf(err error) (dialect.ErrorCode, bool) {
	var oraErr *network.OracleError
	if errors.As(err, &oraErr) {
		return dialect.ErrorCode{Vendor: oraErr.ErrCode}, true
	}
	return dialect.ErrorCode{}, false
}

func buildDSN(cfg connector.Config) string {
	if cfg.DSN != "" {
		return cfg.DSN
	}
	port := cfg.Port
	if port == 0 {
		port = 1521
	}
	return go_ora.BuildUrl(cfg.Host, port, cfg.Database, cfg.Username, cfg.Password, cfg.Params)
}

func (p *Provider) Connect(ctx context.Context, cfg connector.Config) (connector.Connection, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return connector.OpenSQL(ctx, "oracle", buildDSN(cfg), p.Dialect(), cfg.Pool)
}

func (p *Provider) Dialect() dialect.Dialect {
	return dialect.NewOracleDialect()
}
