package query

import (
	"context"
	"strings"

	"github.com/Konsultn-Engineering/typedsql"
	"github.com/Konsultn-Engineering/typedsql/ast"
	"github.com/Konsultn-Engineering/typedsql/database"
	"github.com/Konsultn-Engineering/typedsql/dialect"
)

// InsertQuery assembles INSERT INTO over the table of E.
type InsertQuery[E any] struct {
	BaseBuilder
	sets      []Assignment[E]
	returning []Scoped[E]
	conflict  *conflictClause
}

type conflictClause struct {
	target []string
	update []string
}

// InsertInto starts an INSERT with the given assignments.
func InsertInto[E any](src Source[E], sets ...Assignment[E]) *InsertQuery[E] {
	return &InsertQuery[E]{
		BaseBuilder: NewBaseBuilder(src.TableName()),
		sets:        sets,
	}
}

func (q *InsertQuery[E]) Set(sets ...Assignment[E]) *InsertQuery[E] {
	q.sets = append(q.sets, sets...)
	return q
}

// Returning asks the database to send back the given expressions.
func (q *InsertQuery[E]) Returning(exprs ...Scoped[E]) *InsertQuery[E] {
	q.returning = append(q.returning, exprs...)
	return q
}

// OnConflict appends ON CONFLICT (target) DO UPDATE SET c = EXCLUDED.c for
// every update column, or DO NOTHING when update is empty.
func (q *InsertQuery[E]) OnConflict(target []string, update ...string) *InsertQuery[E] {
	q.conflict = &conflictClause{target: target, update: update}
	return q
}

func (q *InsertQuery[E]) WithDialect(d dialect.Dialect) *InsertQuery[E] {
	q.setDialect(d)
	return q
}

func (q *InsertQuery[E]) Fragment() ast.Fragment {
	names := make([]string, len(q.sets))
	vals := make([]ast.Fragmenter, len(q.sets))
	for i, s := range q.sets {
		names[i] = s.column
		vals[i] = s.value
	}

	parts := []ast.Fragmenter{
		ast.Ident("INSERT INTO " + q.tableName + " (" + strings.Join(names, ", ") + ") VALUES ("),
		ast.Join(", ", vals...),
		ast.Ident(")"),
	}
	if c := q.conflict; c != nil {
		parts = append(parts, ast.Ident(c.render()))
	}
	if len(q.returning) > 0 {
		parts = append(parts, ast.Ident(" RETURNING "), joinScoped(q.returning))
	}
	return ast.Concat(parts...)
}

func (c *conflictClause) render() string {
	var b strings.Builder
	b.WriteString(" ON CONFLICT (")
	b.WriteString(strings.Join(c.target, ", "))
	b.WriteString(")")
	if len(c.update) == 0 {
		b.WriteString(" DO NOTHING")
		return b.String()
	}
	b.WriteString(" DO UPDATE SET ")
	for i, col := range c.update {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(col + " = EXCLUDED." + col)
	}
	return b.String()
}

func (q *InsertQuery[E]) Build() (string, []any, error) {
	return q.resolve(q.Fragment(), q.check())
}

func (q *InsertQuery[E]) check() error {
	if len(q.sets) == 0 {
		return typedsql.NewPreconditionError("insert", q.tableName, "no columns to set")
	}
	if q.conflict != nil && len(q.conflict.target) == 0 {
		return typedsql.NewPreconditionError("insert", q.tableName, "conflict target is empty")
	}
	return nil
}

// Exec runs the insert and returns the affected row count.
func (q *InsertQuery[E]) Exec(ctx context.Context, db database.Database) (int64, error) {
	sql, args, err := q.Build()
	if err != nil {
		return 0, err
	}
	return Exec(ctx, db, sql, args)
}

// ExecReturning runs the insert and scans the RETURNING row into dest.
func (q *InsertQuery[E]) ExecReturning(ctx context.Context, db database.Database, dest ...any) error {
	sql, args, err := q.Build()
	if err != nil {
		return err
	}
	return queryInto(ctx, db, sql, args, q.tableName, dest)
}

func queryInto(ctx context.Context, db database.Database, sql string, args []any, table string, dest []any) error {
	rows, err := db.QueryContext(ctx, sql, args...)
	if err != nil {
		return typedsql.NewClientError(sql, err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return typedsql.NewClientError(sql, err)
		}
		return typedsql.NewNotFoundError(table)
	}
	if err := rows.Scan(dest...); err != nil {
		return scanFailed(err)
	}
	return nil
}
