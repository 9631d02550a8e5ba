package connector

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/Konsultn-Engineering/typedsql/database"
	"github.com/Konsultn-Engineering/typedsql/dialect"
)

// Connection is an open handle produced by a Provider.
type Connection interface {
	Database() database.Database
	Dialect() dialect.Dialect
	Health(ctx context.Context) error
	Stats() ConnectionStats
	Close() error
}

// ConnectionStats represents database connection pool statistics.
type ConnectionStats struct {
	OpenConnections int
	InUse           int
	Idle            int
}

// Provider opens connections for one driver.
type Provider interface {
	Connect(ctx context.Context, cfg Config) (Connection, error)
	Dialect() dialect.Dialect
}

type registry struct {
	mu        sync.RWMutex
	providers map[string]Provider
}

var providers = &registry{providers: make(map[string]Provider)}

// Register makes a provider available under name. Providers register
// themselves from an init function.
func Register(name string, provider Provider) {
	providers.mu.Lock()
	defer providers.mu.Unlock()
	providers.providers[name] = provider
}

// Drivers lists the registered provider names.
func Drivers() []string {
	providers.mu.RLock()
	defer providers.mu.RUnlock()
	names := make([]string, 0, len(providers.providers))
	for name := range providers.providers {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

func lookup(name string) (Provider, error) {
	providers.mu.RLock()
	defer providers.mu.RUnlock()
	p, ok := providers.providers[name]
	if !ok {
		return nil, fmt.Errorf("provider %s not registered", name)
	}
	return p, nil
}

// Connector opens connections for a validated Config.
type Connector struct {
	provider Provider
	config   Config
	logger   *slog.Logger
}

// Option configures a Connector.
type Option func(*Connector)

// WithLogger logs connection attempts and, through the returned
// Connection, every statement.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Connector) { c.logger = logger }
}

// New resolves the provider registered for cfg.Driver.
func New(cfg Config, opts ...Option) (*Connector, error) {
	cfg = cfg.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	provider, err := lookup(cfg.Driver)
	if err != nil {
		return nil, err
	}
	c := &Connector{provider: provider, config: cfg}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Config returns the effective configuration.
func (c *Connector) Config() Config { return c.config }

// Dialect returns the provider's dialect.
func (c *Connector) Dialect() dialect.Dialect { return c.provider.Dialect() }

// Connect opens a single connection attempt bounded by ConnectTimeout.
func (c *Connector) Connect(ctx context.Context) (Connection, error) {
	if c.config.ConnectTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.config.ConnectTimeout)
		defer cancel()
	}
	conn, err := c.provider.Connect(ctx, c.config)
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", c.config.Driver, err)
	}
	if c.logger != nil {
		c.logger.Info("database connected", "driver", c.config.Driver, "host", c.config.Host, "database", c.config.Database)
		return &loggedConnection{Connection: conn, db: database.WithLogger(conn.Database(), c.logger,
			database.WithSlowThreshold(c.config.SlowQuery))}, nil
	}
	return conn, nil
}

// ConnectWithRetry retries Connect using the configured RetryConfig. Without
// one it behaves like Connect.
func (c *Connector) ConnectWithRetry(ctx context.Context) (Connection, error) {
	if c.config.Retry == nil {
		return c.Connect(ctx)
	}
	return retryConnect(ctx, *c.config.Retry, c.logger, c.Connect)
}

type loggedConnection struct {
	Connection
	db *database.LoggedDatabase
}

func (l *loggedConnection) Database() database.Database { return l.db }

// SQLConnection adapts a database/sql handle to Connection.
type SQLConnection struct {
	db      *sql.DB
	dialect dialect.Dialect
}

// NewSQLConnection applies pool settings to db and wraps it.
func NewSQLConnection(db *sql.DB, d dialect.Dialect, pool PoolConfig) *SQLConnection {
	db.SetMaxOpenConns(pool.MaxOpen)
	db.SetMaxIdleConns(pool.MaxIdle)
	db.SetConnMaxLifetime(pool.MaxLifetime)
	db.SetConnMaxIdleTime(pool.MaxIdleTime)
	return &SQLConnection{db: db, dialect: d}
}

func (s *SQLConnection) Database() database.Database { return database.NewSqlDatabase(s.db) }

func (s *SQLConnection) Dialect() dialect.Dialect { return s.dialect }

func (s *SQLConnection) Health(ctx context.Context) error { return s.db.PingContext(ctx) }

func (s *SQLConnection) Stats() ConnectionStats {
	st := s.db.Stats()
	return ConnectionStats{OpenConnections: st.OpenConnections, InUse: st.InUse, Idle: st.Idle}
}

func (s *SQLConnection) Close() error { return s.db.Close() }

var _ Connection = (*SQLConnection)(nil)
