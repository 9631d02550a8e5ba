// Package sqlite registers the pure Go "sqlite" driver with the connector.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"slices"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/Konsultn-Engineering/typedsql/connector"
	"github.com/Konsultn-Engineering/typedsql/dialect"
)

type Provider struct{}

func init() {
	connector.Register(dialect.NameSQLite, &Provider{})
}

// DSN appends cfg.Params to the database path as a sorted query string.
func DSN(cfg connector.Config) string {
	if len(cfg.Params) == 0 {
		return cfg.Database
	}
	keys := make([]string, 0, len(cfg.Params))
	for k := range cfg.Params {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	q := make([]string, 0, len(keys))
	for _, k := range keys {
		q = append(q, url.QueryEscape(k)+"="+url.QueryEscape(cfg.Params[k]))
	}
	sep := "?"
	if strings.Contains(cfg.Database, "?") {
		sep = "&"
	}
	return cfg.Database + sep + strings.Join(q, "&")
}

func (p *Provider) Connect(ctx context.Context, cfg connector.Config) (connector.Connection, error) {
	if cfg.Database == "" {
		return nil, fmt.Errorf("sqlite: database path must not be empty")
	}
	db, err := sql.Open("sqlite", DSN(cfg))
	if err != nil {
		return nil, fmt.Errorf("sqlite: open: %w", err)
	}
	conn := connector.NewSQLConnection(db, p.Dialect(), cfg.Pool)
	if err := conn.Health(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: ping: %w", err)
	}
	return conn, nil
}

func (p *Provider) Dialect() dialect.Dialect {
	return dialect.NewSQLiteDialect()
}
