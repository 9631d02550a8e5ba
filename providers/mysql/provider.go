// Package mysql registers the "mysql" and "tidb" drivers with the connector.
package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"strconv"

	"github.com/go-sql-driver/mysql"

	"github.com/Konsultn-Engineering/typedsql/connector"
	"github.com/Konsultn-Engineering/typedsql/dialect"
)

// Provider opens go-sql-driver/mysql connections. TiDB speaks the same
// protocol and differs only in its dialect name.
type Provider struct {
	dialect func() dialect.Dialect
}

func init() {
	connector.Register(dialect.NameMySQL, &Provider{dialect: dialect.NewMySQLDialect})
	connector.Register(dialect.NameTiDB, &Provider{dialect: dialect.NewTiDBDialect})
}

// DSN formats cfg in the driver's native syntax.
func DSN(cfg connector.Config) string {
	c := mysql.NewConfig()
	c.User = cfg.Username
	c.Passwd = cfg.Password
	c.Net = "tcp"
	c.Addr = net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))
	c.DBName = cfg.Database
	c.ParseTime = true
	c.Timeout = cfg.ConnectTimeout
	c.TLSConfig = tlsMode(cfg.SSLMode)
	if len(cfg.Params) > 0 {
		c.Params = make(map[string]string, len(cfg.Params))
		for k, v := range cfg.Params {
			c.Params[k] = v
		}
	}
	return c.FormatDSN()
}

// tlsMode maps postgres style ssl modes onto the driver's tls parameter.
func tlsMode(sslMode string) string {
	switch sslMode {
	case "", "disable":
		return ""
	case "allow", "prefer":
		return "preferred"
	case "require":
		return "skip-verify"
	case "verify-ca", "verify-full":
		return "true"
	}
	return sslMode
}

func (p *Provider) Connect(ctx context.Context, cfg connector.Config) (connector.Connection, error) {
	db, err := sql.Open("mysql", DSN(cfg))
	if err != nil {
		return nil, fmt.Errorf("mysql: open: %w", err)
	}
	conn := connector.NewSQLConnection(db, p.Dialect(), cfg.Pool)
	if err := conn.Health(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("mysql: ping: %w", err)
	}
	return conn, nil
}

func (p *Provider) Dialect() dialect.Dialect {
	return p.dialect()
}
