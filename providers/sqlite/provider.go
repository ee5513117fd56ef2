package sqlite

import (
	"context"
	"errors"
	"net/url"

	"github.com/mattn/go-sqlite3"

	"github.com/Konsultn-Engineering/sqlkit/connector"
	"github.com/Konsultn-Engineering/sqlkit/dialect"
)

// Provider opens SQLite databases through mattn/go-sqlite3. Config.Database
// is the file path, or ":memory:".
type Provider struct{}

func init() {
	connector.Register("sqlite", &Provider{})
	connector.Register("sqlite3", &Provider{})
	dialect.RegisterCodeExtractor(codeOf)
}

// codeOf prefers the extended result code.
func codeOf(err error) (dialect.ErrorCode, bool) {
	var sqErr sqlite3.Error
	if !errors.As(err, &sqErr) {
		return dialect.ErrorCode{}, false
	}
	if sqErr.ExtendedCode != 0 {
		return dialect.ErrorCode{Vendor: int(sqErr.ExtendedCode)}, true
	}
	return dialect.ErrorCode{Vendor: int(sqErr.Code)}, true
}

func buildDSN(cfg connector.Config) string {
	if cfg.DSN != "" {
		return cfg.DSN
	}
	path := cfg.Database
	if path == "" {
		path = ":memory:"
	}
	if len(cfg.Params) == 0 {
		return "file:" + path
	}
	q := url.Values{}
	for k, v := range cfg.Params {
		q.Set(k, v)
	}
	return "file:" + path + "?" + q.Encode()
}

func (p *Provider) Connect(ctx context.Context, cfg connector.Config) (connector.Connection, error) {
	pool := cfg.Pool
	if cfg.Database == "" || cfg.Database == ":memory:" {
		// one connection per in-memory database
		pool.MaxOpen, pool.MaxIdle = 1, 1
	}
	return connector.OpenSQL(ctx, "sqlite3", buildDSN(cfg), p.Dialect(), pool)
}

func (p *Provider) Dialect() dialect.Dialect {
	return dialect.NewSQLiteDialect()
}
