package schema

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/Konsultn-Engineering/typedsql/cache"
	"github.com/Konsultn-Engineering/typedsql/database"
)

// Catalog caches introspected table definitions. Each Load returns a private
// copy, so callers may edit and apply it.
type Catalog struct {
	db        database.Database
	snapshots *cache.LRU[string, *TableDefinition]
	loads     singleflight.Group
	logger    *slog.Logger
	warmLimit int
}

// CatalogOption configures a Catalog.
type CatalogOption func(*catalogConfig)

type catalogConfig struct {
	size      int
	logger    *slog.Logger
	warmLimit int
}

// WithCatalogSize bounds the number of cached tables.
func WithCatalogSize(size int) CatalogOption {
	return func(c *catalogConfig) { c.size = size }
}

// WithCatalogLogger sets the logger. Defaults to slog.Default().
func WithCatalogLogger(logger *slog.Logger) CatalogOption {
	return func(c *catalogConfig) { c.logger = logger }
}

// WithWarmConcurrency bounds the number of tables Warm loads at once.
func WithWarmConcurrency(n int) CatalogOption {
	return func(c *catalogConfig) { c.warmLimit = n }
}

// NewCatalog returns a catalog reading from db.
func NewCatalog(db database.Database, opts ...CatalogOption) (*Catalog, error) {
	cfg := catalogConfig{size: cache.DefaultSize, warmLimit: 4}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.logger == nil {
		cfg.logger = slog.Default()
	}

	c := &Catalog{db: db, logger: cfg.logger, warmLimit: cfg.warmLimit}
	snapshots, err := cache.NewLRU(cfg.size, func(name string, _ *TableDefinition) {
		c.logger.Debug("catalog entry evicted", slog.String("table", name))
	})
	if err != nil {
		return nil, err
	}
	c.snapshots = snapshots
	return c, nil
}

// Load returns the definition of name, introspecting it on a cache miss.
// Concurrent misses for the same table share one introspection.
func (c *Catalog) Load(ctx context.Context, name string) (*TableDefinition, error) {
	if def, ok := c.snapshots.Get(name); ok {
		return def.clone(), nil
	}

	v, err, shared := c.loads.Do(name, func() (any, error) {
		def, err := LoadFromDatabase(ctx, c.db, name)
		if err != nil {
			return nil, err
		}
		c.snapshots.Set(name, def)
		return def, nil
	})
	if err != nil {
		c.logger.Error("catalog load failed", slog.String("table", name), slog.Any("error", err))
		return nil, err
	}

	def := v.(*TableDefinition)
	c.logger.Debug("catalog loaded table",
		slog.String("table", name),
		slog.Int("columns", len(def.columns)),
		slog.Bool("shared", shared),
	)
	return def.clone(), nil
}

// Warm loads every named table concurrently and stops at the first error.
func (c *Catalog) Warm(ctx context.Context, names ...string) error {
	g, ctx := errgroup.WithContext(ctx)
	if c.warmLimit > 0 {
		g.SetLimit(c.warmLimit)
	}
	for _, name := range names {
		g.Go(func() error {
			_, err := c.Load(ctx, name)
			return err
		})
	}
	return g.Wait()
}

// Apply applies def and drops the cached entries for its old and new names.
func (c *Catalog) Apply(ctx context.Context, def *TableDefinition) error {
	defer c.Invalidate(def.oldName, def.name)

	if err := def.Apply(ctx, c.db); err != nil {
		c.logger.Error("schema change failed", slog.String("table", def.name), slog.Any("error", err))
		return err
	}
	c.logger.Info("schema change applied", slog.String("table", def.name))
	return nil
}

// Invalidate drops the cached entries for names.
func (c *Catalog) Invalidate(names ...string) {
	for _, name := range names {
		if name != "" {
			c.snapshots.Remove(name)
		}
	}
}

// Cached returns the names of cached tables, oldest first.
func (c *Catalog) Cached() []string {
	return c.snapshots.Keys()
}
