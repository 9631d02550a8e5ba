package query

import (
	"github.com/Konsultn-Engineering/typedsql/ast"
)

// Column is a handle on a column of entity E holding values of type V.
// K is the entity's primary key type.
type Column[V, E, K any] struct {
	Expr[V, E]
	name string
}

// NewColumn returns a handle for the column name.
func NewColumn[V, E, K any](name string) Column[V, E, K] {
	return Column[V, E, K]{Expr: Expr[V, E]{frag: ast.Ident(name)}, name: name}
}

func (c Column[V, E, K]) Name() string { return c.name }

func (c Column[V, E, K]) Set(v V) Assignment[E] {
	return Assignment[E]{column: c.name, value: ast.Value(v)}
}

func (c Column[V, E, K]) SetExpr(o Operand[V, E]) Assignment[E] {
	return Assignment[E]{column: c.name, value: o.ToFragment()}
}

// Assignment is a column = value pair used by INSERT and UPDATE.
type Assignment[E any] struct {
	column string
	value  ast.Fragment
}

// Assign builds an assignment without type checking. Generated or reflected
// mappings use it; application code should prefer Column.Set.
func Assign[E any](column string, v any) Assignment[E] {
	return Assignment[E]{column: column, value: ast.Value(v)}
}

func (a Assignment[E]) Column() string { return a.column }

func (a Assignment[E]) Value() ast.Fragment { return a.value }
