package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"strconv"

	"github.com/go-sql-driver/mysql"

	"github.com/Konsultn-Engineering/sqlkit/connector"
	"github.com/Konsultn-Engineering/sqlkit/dialect"
)

// Provider opens MySQL, or TiDB when constructed with TiDB set.
type Provider struct {
	TiDB bool
}

func init() {
	connector.Register("mysql", &Provider{})
	connector.Register("tidb", &Provider{TiDB: true})
	dialect.RegisterCodeExtractor(codeOf)
}

func codeOf(err error) (dialect.ErrorCode, bool) {
	var myErr *mysql.MySQLError
	if !errors.As(err, &myErr) {
		return dialect.ErrorCode{}, false
	}
	code := dialect.ErrorCode{Vendor: int(myErr.Number)}
	if myErr.SQLState != [5]byte{} {
		code.SQLState = string(myErr.SQLState[:])
	}
	return code, true
}

func driverConfig(cfg connector.Config) (*mysql.Config, error) {
	if cfg.DSN != "" {
		return mysql.ParseDSN(cfg.DSN)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	mc := mysql.NewConfig()
	mc.User = cfg.Username
	mc.Passwd = cfg.Password
	mc.Net = "tcp"
	port := cfg.Port
	if port == 0 {
		port = 3306
	}
	mc.Addr = net.JoinHostPort(cfg.Host, strconv.Itoa(port))
	mc.DBName = cfg.Database
	mc.ParseTime = true
	if cfg.ConnectTimeout > 0 {
		mc.Timeout = cfg.ConnectTimeout
	}
	if len(cfg.Params) > 0 {
		mc.Params = make(map[string]string, len(cfg.Params))
		for k, v := range cfg.Params {
			mc.Params[k] = v
		}
	}
	return mc, nil
}

func (p *Provider) Connect(ctx context.Context, cfg connector.Config) (connector.Connection, error) {
	mc, err := driverConfig(cfg)
	if err != nil {
		return nil, err
	}
	c, err := mysql.NewConnector(mc)
	if err != nil {
		return nil, fmt.Errorf("mysql: %w", err)
	}
	return connector.FromDB(ctx, sql.OpenDB(c), p.Dialect(), cfg.Pool)
}

func (p *Provider) Dialect() dialect.Dialect {
	if p.TiDB {
		return dialect.NewTiDBDialect()
	}
	return dialect.NewMySQLDialect()
}
