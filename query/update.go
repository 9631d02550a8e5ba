package query

import (
	"context"

	"github.com/Konsultn-Engineering/typedsql"
	"github.com/Konsultn-Engineering/typedsql/ast"
	"github.com/Konsultn-Engineering/typedsql/database"
	"github.com/Konsultn-Engineering/typedsql/dialect"
)

// UpdateQuery assembles UPDATE over the table of E.
type UpdateQuery[E any] struct {
	BaseBuilder
	sets      []Assignment[E]
	cond      Condition[E]
	returning []Scoped[E]
}

// Update starts an UPDATE with the given assignments.
func Update[E any](src Source[E], sets ...Assignment[E]) *UpdateQuery[E] {
	return &UpdateQuery[E]{
		BaseBuilder: NewBaseBuilder(src.TableName()),
		sets:        sets,
	}
}

func (q *UpdateQuery[E]) Set(sets ...Assignment[E]) *UpdateQuery[E] {
	q.sets = append(q.sets, sets...)
	return q
}

// Where ANDs cond onto the current condition.
func (q *UpdateQuery[E]) Where(cond Condition[E]) *UpdateQuery[E] {
	q.cond = q.cond.And(cond)
	return q
}

func (q *UpdateQuery[E]) Returning(exprs ...Scoped[E]) *UpdateQuery[E] {
	q.returning = append(q.returning, exprs...)
	return q
}

func (q *UpdateQuery[E]) WithDialect(d dialect.Dialect) *UpdateQuery[E] {
	q.setDialect(d)
	return q
}

func (q *UpdateQuery[E]) Fragment() ast.Fragment {
	sets := make([]ast.Fragmenter, len(q.sets))
	for i, s := range q.sets {
		sets[i] = ast.Concat(ast.Ident(s.column+" = "), s.value)
	}

	parts := []ast.Fragmenter{ast.Ident("UPDATE " + q.tableName + " SET "), ast.Join(", ", sets...)}
	if !q.cond.IsTrue() {
		parts = append(parts, ast.Ident(" WHERE "), q.cond.Render())
	}
	if len(q.returning) > 0 {
		parts = append(parts, ast.Ident(" RETURNING "), joinScoped(q.returning))
	}
	return ast.Concat(parts...)
}

func (q *UpdateQuery[E]) Build() (string, []any, error) {
	var check error
	if len(q.sets) == 0 {
		check = typedsql.NewPreconditionError("update", q.tableName, "no columns to set")
	}
	return q.resolve(q.Fragment(), check)
}

// Exec runs the update and returns the affected row count.
func (q *UpdateQuery[E]) Exec(ctx context.Context, db database.Database) (int64, error) {
	sql, args, err := q.Build()
	if err != nil {
		return 0, err
	}
	return Exec(ctx, db, sql, args)
}

// ExecReturning runs the update and scans the first RETURNING row into dest.
func (q *UpdateQuery[E]) ExecReturning(ctx context.Context, db database.Database, dest ...any) error {
	sql, args, err := q.Build()
	if err != nil {
		return err
	}
	return queryInto(ctx, db, sql, args, q.tableName, dest)
}
