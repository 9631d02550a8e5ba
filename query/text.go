package query

import (
	"github.com/Konsultn-Engineering/typedsql/ast"
)

// TextExpr is a string expression with pattern and case helpers.
type TextExpr[E any] struct {
	Expr[string, E]
}

func (x TextExpr[E]) Like(pattern string) Condition[E] {
	return compare[E](KindLike, x, ast.Value(pattern))
}

func (x TextExpr[E]) NotLike(pattern string) Condition[E] {
	return compare[E](KindNotLike, x, ast.Value(pattern))
}

func (x TextExpr[E]) LikeExpr(pattern Operand[string, E]) Condition[E] {
	return compare[E](KindLike, x, pattern)
}

func (x TextExpr[E]) Lower() TextExpr[E] { return x.call("LOWER") }
func (x TextExpr[E]) Upper() TextExpr[E] { return x.call("UPPER") }
func (x TextExpr[E]) Trim() TextExpr[E]  { return x.call("TRIM") }

func (x TextExpr[E]) Length() NumberExpr[int64, E] {
	return NumberExpr[int64, E]{Expr: Virtual[int64, E](ast.Func("LENGTH", x))}
}

// Concat appends o using the || operator.
func (x TextExpr[E]) Concat(o Operand[string, E]) TextExpr[E] {
	return TextExpr[E]{Expr: Virtual[string, E](ast.Concat(ast.Ident("("), x, ast.Ident(" || "), o, ast.Ident(")")))}
}

func (x TextExpr[E]) call(fn string) TextExpr[E] {
	return TextExpr[E]{Expr: Virtual[string, E](ast.Func(fn, x))}
}

// Text wraps a string expression.
func Text[E any](x Operand[string, E]) TextExpr[E] {
	return TextExpr[E]{Expr: Virtual[string, E](x)}
}

// TextColumn is a text column of entity E whose key type is K.
type TextColumn[E, K any] struct {
	TextExpr[E]
	name string
}

// NewTextColumn returns a handle for the text column name.
func NewTextColumn[E, K any](name string) TextColumn[E, K] {
	return TextColumn[E, K]{TextExpr: TextExpr[E]{Expr: Expr[string, E]{frag: ast.Ident(name)}}, name: name}
}

func (c TextColumn[E, K]) Name() string { return c.name }

func (c TextColumn[E, K]) Set(v string) Assignment[E] {
	return Assignment[E]{column: c.name, value: ast.Value(v)}
}

func (c TextColumn[E, K]) SetExpr(o Operand[string, E]) Assignment[E] {
	return Assignment[E]{column: c.name, value: o.ToFragment()}
}
