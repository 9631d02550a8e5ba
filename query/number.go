package query

import (
	"strconv"

	"github.com/Konsultn-Engineering/typedsql/ast"
)

// Number is the set of Go types mapped to numeric SQL columns.
type Number interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64 |
		~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64 |
		~float32 | ~float64
}

// NumberExpr is a numeric expression with arithmetic and aggregate helpers.
type NumberExpr[V Number, E any] struct {
	Expr[V, E]
}

func (x NumberExpr[V, E]) Sqrt() NumberExpr[float64, E] {
	return NumberExpr[float64, E]{Expr: Virtual[float64, E](ast.Func("SQRT", x))}
}

func (x NumberExpr[V, E]) Abs() NumberExpr[V, E] { return x.call("ABS") }
func (x NumberExpr[V, E]) Sum() NumberExpr[V, E] { return x.call("SUM") }

func (x NumberExpr[V, E]) Avg() NumberExpr[float64, E] {
	return NumberExpr[float64, E]{Expr: Virtual[float64, E](ast.Func("AVG", x))}
}

// Round rounds to digits decimal places. digits is emitted literally.
func (x NumberExpr[V, E]) Round(digits int) NumberExpr[V, E] {
	return NumberExpr[V, E]{Expr: Virtual[V, E](ast.Func("ROUND", x, ast.Ident(strconv.Itoa(digits))))}
}

func (x NumberExpr[V, E]) Add(v V) NumberExpr[V, E] { return x.arith(ast.OpAdd, ast.Value(v)) }
func (x NumberExpr[V, E]) Sub(v V) NumberExpr[V, E] { return x.arith(ast.OpSubtract, ast.Value(v)) }
func (x NumberExpr[V, E]) Mul(v V) NumberExpr[V, E] { return x.arith(ast.OpMultiply, ast.Value(v)) }
func (x NumberExpr[V, E]) Div(v V) NumberExpr[V, E] { return x.arith(ast.OpDivide, ast.Value(v)) }

func (x NumberExpr[V, E]) AddExpr(o Operand[V, E]) NumberExpr[V, E] { return x.arith(ast.OpAdd, o) }
func (x NumberExpr[V, E]) SubExpr(o Operand[V, E]) NumberExpr[V, E] {
	return x.arith(ast.OpSubtract, o)
}

func (x NumberExpr[V, E]) call(fn string) NumberExpr[V, E] {
	return NumberExpr[V, E]{Expr: Virtual[V, E](ast.Func(fn, x))}
}

func (x NumberExpr[V, E]) arith(op string, o ast.Fragmenter) NumberExpr[V, E] {
	return NumberExpr[V, E]{Expr: Virtual[V, E](ast.Concat(ast.Ident("("), x, ast.Ident(" "+op+" "), o, ast.Ident(")")))}
}

// Numeric wraps a numeric expression.
func Numeric[V Number, E any](x Operand[V, E]) NumberExpr[V, E] {
	return NumberExpr[V, E]{Expr: Virtual[V, E](x)}
}

// CountAll is COUNT(*).
func CountAll[E any]() NumberExpr[int64, E] {
	return NumberExpr[int64, E]{Expr: Virtual[int64, E](ast.Ident("COUNT(*)"))}
}

// NumberColumn is a numeric column of entity E whose key type is K.
type NumberColumn[V Number, E, K any] struct {
	NumberExpr[V, E]
	name string
}

// NewNumberColumn returns a handle for the numeric column name.
func NewNumberColumn[V Number, E, K any](name string) NumberColumn[V, E, K] {
	return NumberColumn[V, E, K]{NumberExpr: NumberExpr[V, E]{Expr: Expr[V, E]{frag: ast.Ident(name)}}, name: name}
}

func (c NumberColumn[V, E, K]) Name() string { return c.name }

func (c NumberColumn[V, E, K]) Set(v V) Assignment[E] {
	return Assignment[E]{column: c.name, value: ast.Value(v)}
}

func (c NumberColumn[V, E, K]) SetExpr(o Operand[V, E]) Assignment[E] {
	return Assignment[E]{column: c.name, value: o.ToFragment()}
}
