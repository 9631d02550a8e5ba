package query

import (
	"context"
	"fmt"
	"strconv"

	"github.com/Konsultn-Engineering/typedsql"
	"github.com/Konsultn-Engineering/typedsql/ast"
	"github.com/Konsultn-Engineering/typedsql/database"
	"github.com/Konsultn-Engineering/typedsql/dialect"
)

// Query assembles a SELECT over the table of E. Without projections it
// selects every column and scans rows through the Source.
type Query[E any] struct {
	BaseBuilder
	src         Source[E]
	projections []Scoped[E]
	distinct    bool
	cond        Condition[E]
	groups      []Scoped[E]
	having      Condition[E]
	orders      []Order[E]
	limit       int
	offset      int
}

// From starts a SELECT * over src.
func From[E any](src Source[E]) *Query[E] {
	return &Query[E]{
		BaseBuilder: NewBaseBuilder(src.TableName()),
		src:         src,
		limit:       -1,
	}
}

// Select starts a SELECT of the given projections over src.
func Select[E any](src Source[E], projections ...Scoped[E]) *Query[E] {
	return From(src).Columns(projections...)
}

// Columns replaces the projection list. An empty list selects *.
func (q *Query[E]) Columns(projections ...Scoped[E]) *Query[E] {
	q.projections = projections
	return q
}

func (q *Query[E]) Distinct() *Query[E] {
	q.distinct = true
	return q
}

// Where ANDs cond onto the current condition.
func (q *Query[E]) Where(cond Condition[E]) *Query[E] {
	q.cond = q.cond.And(cond)
	return q
}

// OrWhere ORs cond onto the current condition.
func (q *Query[E]) OrWhere(cond Condition[E]) *Query[E] {
	if q.cond.IsTrue() {
		q.cond = cond
		return q
	}
	q.cond = q.cond.Or(cond)
	return q
}

// Order replaces the ORDER BY list.
func (q *Query[E]) Order(orders ...Order[E]) *Query[E] {
	q.orders = append([]Order[E](nil), orders...)
	return q
}

// AddOrder appends to the ORDER BY list.
func (q *Query[E]) AddOrder(orders ...Order[E]) *Query[E] {
	q.orders = append(q.orders, orders...)
	return q
}

func (q *Query[E]) GroupBy(exprs ...Scoped[E]) *Query[E] {
	q.groups = append(q.groups, exprs...)
	return q
}

func (q *Query[E]) Having(cond Condition[E]) *Query[E] {
	q.having = q.having.And(cond)
	return q
}

func (q *Query[E]) Limit(n int) *Query[E] {
	if n < 0 {
		q.AddError(fmt.Errorf("query: negative limit %d", n))
		return q
	}
	q.limit = n
	return q
}

func (q *Query[E]) Offset(n int) *Query[E] {
	if n < 0 {
		q.AddError(fmt.Errorf("query: negative offset %d", n))
		return q
	}
	q.offset = n
	return q
}

// WithDialect changes the placeholder syntax used by Build.
func (q *Query[E]) WithDialect(d dialect.Dialect) *Query[E] {
	q.setDialect(d)
	return q
}

// Condition returns the accumulated WHERE condition.
func (q *Query[E]) Condition() Condition[E] { return q.cond }

// Fragment renders the statement with unresolved markers.
func (q *Query[E]) Fragment() ast.Fragment {
	var list ast.Fragment
	if len(q.projections) == 0 {
		list = ast.Ident("*")
	} else {
		list = joinScoped(q.projections)
	}
	return q.render(list, true)
}

func (q *Query[E]) render(list ast.Fragment, withTail bool) ast.Fragment {
	parts := make([]ast.Fragmenter, 0, 12)
	head := "SELECT "
	if q.distinct {
		head += "DISTINCT "
	}
	parts = append(parts, ast.Ident(head), list, ast.Ident(" FROM "+q.tableName))

	if !q.cond.IsTrue() {
		parts = append(parts, ast.Ident(" WHERE "), q.cond.Render())
	}
	if len(q.groups) > 0 {
		parts = append(parts, ast.Ident(" GROUP BY "), joinScoped(q.groups))
		if !q.having.IsTrue() {
			parts = append(parts, ast.Ident(" HAVING "), q.having.Render())
		}
	}
	if !withTail {
		return ast.Concat(parts...)
	}
	if len(q.orders) > 0 {
		parts = append(parts, ast.Ident(" ORDER BY "), ast.Join(", ", ast.Fragments(q.orders)...))
	}
	if q.limit >= 0 {
		parts = append(parts, ast.Ident(" LIMIT "+strconv.Itoa(q.limit)))
	}
	if q.offset > 0 {
		parts = append(parts, ast.Ident(" OFFSET "+strconv.Itoa(q.offset)))
	}
	return ast.Concat(parts...)
}

// Build returns the final SQL and its parameters.
func (q *Query[E]) Build() (string, []any, error) {
	return q.resolve(q.Fragment(), q.check())
}

func (q *Query[E]) check() error {
	if len(q.groups) == 0 && !q.having.IsTrue() {
		return fmt.Errorf("query: HAVING without GROUP BY")
	}
	return nil
}

// All runs the query and scans every row into E.
func (q *Query[E]) All(ctx context.Context, db database.Database) ([]E, error) {
	sql, args, err := q.Build()
	if err != nil {
		return nil, err
	}
	return Collect(ctx, db, sql, args, q.src.Scan)
}

// First returns the first row, or a NotFoundError.
func (q *Query[E]) First(ctx context.Context, db database.Database) (E, error) {
	var zero E
	cp := *q
	cp.limit = 1
	results, err := cp.All(ctx, db)
	if err != nil {
		return zero, err
	}
	if len(results) == 0 {
		return zero, typedsql.NewNotFoundError(q.tableName)
	}
	return results[0], nil
}

// Rows runs the query and returns untyped rows, for projections that do not
// map onto E.
func (q *Query[E]) Rows(ctx context.Context, db database.Database) ([]Row, error) {
	sql, args, err := q.Build()
	if err != nil {
		return nil, err
	}
	return Collect(ctx, db, sql, args, ScanRow)
}

// CountFragment renders SELECT COUNT(*) with the current filter. Grouped or
// DISTINCT selections are counted through a derived table.
func (q *Query[E]) CountFragment() ast.Fragment {
	if len(q.groups) == 0 && !q.distinct {
		return q.render(ast.Ident("COUNT(*)"), false)
	}
	var list ast.Fragment
	switch {
	case len(q.projections) > 0:
		list = joinScoped(q.projections)
	case len(q.groups) > 0:
		list = joinScoped(q.groups)
	default:
		list = ast.Ident("*")
	}
	return ast.Wrap("SELECT COUNT(*) FROM (", q.render(list, false), ") AS sub")
}

// Count returns the number of matching rows, or of groups when the query is
// grouped. Ordering and paging are ignored.
func (q *Query[E]) Count(ctx context.Context, db database.Database) (int64, error) {
	sql, args, err := q.resolve(q.CountFragment(), q.check())
	if err != nil {
		return 0, err
	}
	return scanOne[int64](ctx, db, sql, args)
}

// Exists reports whether any row matches.
func (q *Query[E]) Exists(ctx context.Context, db database.Database) (bool, error) {
	inner := q.render(ast.Ident("1"), false)
	sql, args, err := q.resolve(ast.Wrap("SELECT EXISTS (", inner, ")"), q.check())
	if err != nil {
		return false, err
	}
	return scanOne[bool](ctx, db, sql, args)
}
