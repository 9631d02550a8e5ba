// Package engine runs entity level create, read, update and delete operations
// on top of schema mappings and the typed statement builders.
package engine

import (
	"context"
	"log/slog"
	"slices"
	"time"

	"github.com/Konsultn-Engineering/typedsql"
	"github.com/Konsultn-Engineering/typedsql/database"
	"github.com/Konsultn-Engineering/typedsql/dialect"
	"github.com/Konsultn-Engineering/typedsql/query"
	"github.com/Konsultn-Engineering/typedsql/schema"
)

type Engine struct {
	db      database.Database
	dialect dialect.Dialect
	logger  *slog.Logger
	now     func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithDialect selects the placeholder syntax. The default is postgres.
func WithDialect(d dialect.Dialect) Option {
	return func(e *Engine) { e.dialect = d }
}

func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// WithClock replaces time.Now for soft delete timestamps.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

func New(db database.Database, opts ...Option) *Engine {
	e := &Engine{
		db:      db,
		dialect: dialect.NewPostgresDialect(),
		logger:  slog.Default(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// DB returns the database statements are sent to.
func (e *Engine) DB() database.Database { return e.db }

func (e *Engine) Dialect() dialect.Dialect { return e.dialect }

// Repository binds a Mapping to an Engine.
type Repository[E any, K comparable] struct {
	engine     *Engine
	mapping    *schema.Mapping[E, K]
	softDelete string
}

// RepositoryOption configures a Repository.
type RepositoryOption func(*repositoryOptions)

type repositoryOptions struct {
	softDelete string
}

// WithSoftDelete makes Remove stamp column instead of removing the row, and
// hides stamped rows from reads.
func WithSoftDelete(column string) RepositoryOption {
	return func(o *repositoryOptions) { o.softDelete = column }
}

// NewRepository returns a Repository for entities described by m.
func NewRepository[E any, K comparable](e *Engine, m *schema.Mapping[E, K], opts ...RepositoryOption) (*Repository[E, K], error) {
	var o repositoryOptions
	for _, opt := range opts {
		opt(&o)
	}
	if o.softDelete != "" && !slices.Contains(m.ColumnNames(), o.softDelete) {
		return nil, typedsql.NewPreconditionError("repository", m.TableName(),
			"soft delete column "+o.softDelete+" is not mapped")
	}
	return &Repository[E, K]{engine: e, mapping: m, softDelete: o.softDelete}, nil
}

func (r *Repository[E, K]) Mapping() *schema.Mapping[E, K] { return r.mapping }

// CreateTable creates the mapped table unless it already exists.
func (r *Repository[E, K]) CreateTable(ctx context.Context) error {
	def, err := r.mapping.Definition()
	if err != nil {
		return err
	}
	return schema.CreateTableIfNotExists(ctx, r.engine.db, def)
}

// Query starts a SELECT over the mapped table with soft deleted rows
// filtered out.
func (r *Repository[E, K]) Query() *query.Query[E] {
	return query.From[E](r.mapping).WithDialect(r.engine.dialect).Where(r.live())
}

// Unscoped starts a SELECT that includes soft deleted rows.
func (r *Repository[E, K]) Unscoped() *query.Query[E] {
	return query.From[E](r.mapping).WithDialect(r.engine.dialect)
}

// live is the visibility filter for soft deleted rows.
func (r *Repository[E, K]) live() query.Condition[E] {
	if r.softDelete == "" {
		return query.True[E]()
	}
	return query.NewColumn[*time.Time, E, K](r.softDelete).IsNull()
}

func (r *Repository[E, K]) keyFilter(op string, id K) (query.Condition[E], error) {
	var zero K
	if id == zero {
		return query.Condition[E]{}, typedsql.NewPreconditionError(op, r.mapping.TableName(), "key is not set")
	}
	col, err := r.mapping.KeyColumn()
	if err != nil {
		return query.Condition[E]{}, err
	}
	return col.Eq(id), nil
}

// entityKey returns the key of e or a precondition error when it is unset.
func (r *Repository[E, K]) entityKey(op string, e *E) (K, error) {
	if !r.mapping.HasKey() {
		var zero K
		return zero, typedsql.NewPreconditionError(op, r.mapping.TableName(), "mapping has no primary key")
	}
	k, set := r.mapping.Key(e)
	if !set {
		return k, typedsql.NewPreconditionError(op, r.mapping.TableName(), "key is not set")
	}
	return k, nil
}

func (r *Repository[E, K]) log(ctx context.Context, msg string, id any) {
	r.engine.logger.DebugContext(ctx, msg, "table", r.mapping.TableName(), "id", id)
}
