package query

import (
	"context"

	"github.com/Konsultn-Engineering/typedsql/ast"
	"github.com/Konsultn-Engineering/typedsql/database"
	"github.com/Konsultn-Engineering/typedsql/dialect"
)

// DeleteQuery assembles DELETE FROM over the table of E.
type DeleteQuery[E any] struct {
	BaseBuilder
	cond Condition[E]
}

// DeleteFrom starts a DELETE over src. Without a condition every row goes.
func DeleteFrom[E any](src Source[E]) *DeleteQuery[E] {
	return &DeleteQuery[E]{BaseBuilder: NewBaseBuilder(src.TableName())}
}

// Where ANDs cond onto the current condition.
func (d *DeleteQuery[E]) Where(cond Condition[E]) *DeleteQuery[E] {
	d.cond = d.cond.And(cond)
	return d
}

func (d *DeleteQuery[E]) WithDialect(dl dialect.Dialect) *DeleteQuery[E] {
	d.setDialect(dl)
	return d
}

func (d *DeleteQuery[E]) Fragment() ast.Fragment {
	head := ast.Ident("DELETE FROM " + d.tableName)
	if d.cond.IsTrue() {
		return head
	}
	return ast.Concat(head, ast.Ident(" WHERE "), d.cond.Render())
}

func (d *DeleteQuery[E]) Build() (string, []any, error) {
	return d.resolve(d.Fragment(), nil)
}

// Exec runs the delete and returns the number of removed rows.
func (d *DeleteQuery[E]) Exec(ctx context.Context, db database.Database) (int64, error) {
	sql, args, err := d.Build()
	if err != nil {
		return 0, err
	}
	return Exec(ctx, db, sql, args)
}
