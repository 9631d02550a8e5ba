package query

import (
	"github.com/Konsultn-Engineering/typedsql/ast"
)

// Scoped is any SQL expression that belongs to entity E, whatever its value type.
type Scoped[E any] interface {
	ast.Fragmenter
	scoped(E)
}

// Operand is a SQL expression yielding V within entity E. Only types from
// this package implement it, so a comparison between columns of different
// entities or value types does not compile.
type Operand[V, E any] interface {
	Scoped[E]
	operand(V)
}

// Expr is a typed expression: a column reference, a literal or a function
// over other expressions.
type Expr[V, E any] struct {
	frag ast.Fragment
}

func (x Expr[V, E]) ToFragment() ast.Fragment { return x.frag }

func (Expr[V, E]) scoped(E)  {}
func (Expr[V, E]) operand(V) {}

// Lit returns a typed literal bound as a parameter.
func Lit[V, E any](v V) Expr[V, E] {
	return Expr[V, E]{frag: ast.Value(v)}
}

// Virtual wraps an arbitrary fragment as a typed expression.
func Virtual[V, E any](f ast.Fragmenter) Expr[V, E] {
	return Expr[V, E]{frag: f.ToFragment()}
}

func (x Expr[V, E]) Eq(v V) Condition[E]  { return compare[E](KindEquals, x, ast.Value(v)) }
func (x Expr[V, E]) Ne(v V) Condition[E]  { return compare[E](KindNotEquals, x, ast.Value(v)) }
func (x Expr[V, E]) Gt(v V) Condition[E]  { return compare[E](KindGreaterThan, x, ast.Value(v)) }
func (x Expr[V, E]) Gte(v V) Condition[E] { return compare[E](KindGreaterEqual, x, ast.Value(v)) }
func (x Expr[V, E]) Lt(v V) Condition[E]  { return compare[E](KindLessThan, x, ast.Value(v)) }
func (x Expr[V, E]) Lte(v V) Condition[E] { return compare[E](KindLessEqual, x, ast.Value(v)) }

func (x Expr[V, E]) EqExpr(o Operand[V, E]) Condition[E]  { return compare[E](KindEquals, x, o) }
func (x Expr[V, E]) NeExpr(o Operand[V, E]) Condition[E]  { return compare[E](KindNotEquals, x, o) }
func (x Expr[V, E]) GtExpr(o Operand[V, E]) Condition[E]  { return compare[E](KindGreaterThan, x, o) }
func (x Expr[V, E]) GteExpr(o Operand[V, E]) Condition[E] { return compare[E](KindGreaterEqual, x, o) }
func (x Expr[V, E]) LtExpr(o Operand[V, E]) Condition[E]  { return compare[E](KindLessThan, x, o) }
func (x Expr[V, E]) LteExpr(o Operand[V, E]) Condition[E] { return compare[E](KindLessEqual, x, o) }

func (x Expr[V, E]) Between(lo, hi V) Condition[E] {
	return leaf[E](KindBetween, x, ast.Value(lo), ast.Value(hi))
}

func (x Expr[V, E]) NotBetween(lo, hi V) Condition[E] {
	return leaf[E](KindNotBetween, x, ast.Value(lo), ast.Value(hi))
}

func (x Expr[V, E]) BetweenExpr(lo, hi Operand[V, E]) Condition[E] {
	return leaf[E](KindBetween, x, lo, hi)
}

func (x Expr[V, E]) IsNull() Condition[E]    { return leaf[E](KindIsNull, x) }
func (x Expr[V, E]) IsNotNull() Condition[E] { return leaf[E](KindIsNotNull, x) }

// In matches any of vs. An empty list matches nothing.
func (x Expr[V, E]) In(vs ...V) Condition[E] {
	return leaf[E](KindIn, x, values(vs)...)
}

// NotIn matches none of vs. An empty list matches everything.
func (x Expr[V, E]) NotIn(vs ...V) Condition[E] {
	return leaf[E](KindNotIn, x, values(vs)...)
}

func (x Expr[V, E]) InExpr(os ...Operand[V, E]) Condition[E] {
	return leaf[E](KindIn, x, ast.Fragments(os)...)
}

func (x Expr[V, E]) NotInExpr(os ...Operand[V, E]) Condition[E] {
	return leaf[E](KindNotIn, x, ast.Fragments(os)...)
}

func (x Expr[V, E]) Count() NumberExpr[int64, E] {
	return NumberExpr[int64, E]{Expr: Virtual[int64, E](ast.Func("COUNT", x))}
}

func (x Expr[V, E]) Min() Expr[V, E] { return Virtual[V, E](ast.Func("MIN", x)) }
func (x Expr[V, E]) Max() Expr[V, E] { return Virtual[V, E](ast.Func("MAX", x)) }

// Coalesce falls back to v when x is NULL.
func (x Expr[V, E]) Coalesce(v V) Expr[V, E] {
	return Virtual[V, E](ast.Func("COALESCE", x, ast.Value(v)))
}

func (x Expr[V, E]) CastText() TextExpr[E] {
	return TextExpr[E]{Expr: Virtual[string, E](ast.Wrap("CAST(", x, " AS TEXT)"))}
}

// As labels x in a projection list.
func (x Expr[V, E]) As(alias string) Projection[E] {
	return Projection[E]{frag: ast.Concat(x, ast.Ident(" AS "+alias))}
}

func (x Expr[V, E]) Asc() Order[E]  { return Order[E]{frag: ast.Concat(x, ast.Ident(" "+ast.OpAsc))} }
func (x Expr[V, E]) Desc() Order[E] { return Order[E]{frag: ast.Concat(x, ast.Ident(" "+ast.OpDesc))} }

// Projection is an aliased select-list entry.
type Projection[E any] struct {
	frag ast.Fragment
}

func (p Projection[E]) ToFragment() ast.Fragment { return p.frag }
func (Projection[E]) scoped(E)                   {}

// Order is one ORDER BY entry.
type Order[E any] struct {
	frag ast.Fragment
}

func (o Order[E]) ToFragment() ast.Fragment { return o.frag }

// Star selects every column of E.
func Star[E any]() Projection[E] {
	return Projection[E]{frag: ast.Ident("*")}
}

func values[V any](vs []V) []ast.Fragmenter {
	out := make([]ast.Fragmenter, len(vs))
	for i, v := range vs {
		out[i] = ast.Value(v)
	}
	return out
}
