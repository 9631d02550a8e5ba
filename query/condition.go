package query

import (
	"github.com/Konsultn-Engineering/typedsql/ast"
)

// Kind tags a condition node.
type Kind uint8

const (
	KindTrue Kind = iota
	KindEquals
	KindNotEquals
	KindGreaterThan
	KindGreaterEqual
	KindLessThan
	KindLessEqual
	KindBetween
	KindNotBetween
	KindIsNull
	KindIsNotNull
	KindLike
	KindNotLike
	KindIn
	KindNotIn
	KindAnd
	KindOr
	KindNot
)

var kindOperators = [...]string{
	KindTrue:         ast.KwTrue,
	KindEquals:       ast.OpEqual,
	KindNotEquals:    ast.OpNotEqual,
	KindGreaterThan:  ast.OpGreaterThan,
	KindGreaterEqual: ast.OpGreaterThanOrEqual,
	KindLessThan:     ast.OpLessThan,
	KindLessEqual:    ast.OpLessThanOrEqual,
	KindBetween:      ast.OpBetween,
	KindNotBetween:   ast.OpNotBetween,
	KindIsNull:       ast.OpIsNull,
	KindIsNotNull:    ast.OpIsNotNull,
	KindLike:         ast.OpLike,
	KindNotLike:      ast.OpNotLike,
	KindIn:           ast.OpIn,
	KindNotIn:        ast.OpNotIn,
	KindAnd:          ast.OpAnd,
	KindOr:           ast.OpOr,
	KindNot:          ast.OpNot,
}

// String returns the SQL operator for k.
func (k Kind) String() string {
	if int(k) < len(kindOperators) {
		return kindOperators[k]
	}
	return "UNKNOWN"
}

type node struct {
	kind  Kind
	left  ast.Fragment
	right []ast.Fragment
	a, b  *node
}

var trueNode = &node{kind: KindTrue}

// Condition is an immutable boolean expression over the columns of E.
// The zero Condition is True and imposes no restriction.
type Condition[E any] struct {
	root *node
}

// True returns the condition that matches every row.
func True[E any]() Condition[E] {
	return Condition[E]{}
}

// IsTrue reports whether c imposes no restriction.
func (c Condition[E]) IsTrue() bool {
	return c.root == nil || c.root.kind == KindTrue
}

// Kind returns the kind of the root node.
func (c Condition[E]) Kind() Kind {
	if c.root == nil {
		return KindTrue
	}
	return c.root.kind
}

// And returns c AND o. True operands are dropped.
func (c Condition[E]) And(o Condition[E]) Condition[E] {
	switch {
	case c.IsTrue():
		return o
	case o.IsTrue():
		return c
	}
	return Condition[E]{root: &node{kind: KindAnd, a: c.root, b: o.root}}
}

// Or returns c OR o. Either side being True makes the result True.
func (c Condition[E]) Or(o Condition[E]) Condition[E] {
	if c.IsTrue() || o.IsTrue() {
		return True[E]()
	}
	return Condition[E]{root: &node{kind: KindOr, a: c.root, b: o.root}}
}

// Not negates c.
func (c Condition[E]) Not() Condition[E] {
	child := c.root
	if child == nil {
		child = trueNode
	}
	return Condition[E]{root: &node{kind: KindNot, a: child}}
}

// And folds conds with AND. No conditions yield True.
func And[E any](conds ...Condition[E]) Condition[E] {
	var out Condition[E]
	for _, c := range conds {
		out = out.And(c)
	}
	return out
}

// Or folds first and rest with OR.
func Or[E any](first Condition[E], rest ...Condition[E]) Condition[E] {
	out := first
	for _, c := range rest {
		out = out.Or(c)
	}
	return out
}

// Not negates c.
func Not[E any](c Condition[E]) Condition[E] {
	return c.Not()
}

// Render turns c into a fragment with unresolved markers. The outermost
// AND/OR is not parenthesized. Rendering a True condition yields TRUE;
// assemblers check IsTrue and omit the clause instead.
func (c Condition[E]) Render() ast.Fragment {
	if c.root == nil {
		return trueNode.render(true)
	}
	return c.root.render(true)
}

// ToFragment renders c.
func (c Condition[E]) ToFragment() ast.Fragment { return c.Render() }

func (n *node) render(top bool) ast.Fragment {
	op := n.kind.String()

	switch n.kind {
	case KindTrue:
		return ast.Ident(ast.KwTrue)

	case KindAnd, KindOr:
		inner := ast.Join(" "+op+" ", n.a.render(false), n.b.render(false))
		if top {
			return inner
		}
		return ast.Wrap("(", inner, ")")

	case KindNot:
		return ast.Wrap("NOT (", n.a.render(true), ")")

	case KindIsNull, KindIsNotNull:
		return ast.Wrap("(", n.left, " "+op+")")

	case KindBetween, KindNotBetween:
		return ast.Concat(
			ast.Ident("("), n.left, ast.Ident(" "+op+" "),
			n.right[0], ast.Ident(" AND "), n.right[1], ast.Ident(")"),
		)

	case KindIn, KindNotIn:
		if len(n.right) == 0 {
			// IN () is not valid SQL
			if n.kind == KindIn {
				return ast.Ident("(" + ast.KwFalse + ")")
			}
			return ast.Ident("(" + ast.KwTrue + ")")
		}
		return ast.Concat(
			ast.Ident("("), n.left, ast.Ident(" "+op+" ("),
			ast.Join(",", fragmenters(n.right)...), ast.Ident("))"),
		)

	default:
		return ast.Concat(ast.Ident("("), n.left, ast.Ident(" "+op+" "), n.right[0], ast.Ident(")"))
	}
}

func compare[E any](kind Kind, left, right ast.Fragmenter) Condition[E] {
	return leaf[E](kind, left, right)
}

func leaf[E any](kind Kind, left ast.Fragmenter, right ...ast.Fragmenter) Condition[E] {
	n := &node{kind: kind, left: left.ToFragment()}
	if len(right) > 0 {
		n.right = make([]ast.Fragment, len(right))
		for i, r := range right {
			n.right[i] = r.ToFragment()
		}
	}
	return Condition[E]{root: n}
}

func fragmenters(fs []ast.Fragment) []ast.Fragmenter {
	return ast.Fragments(fs)
}
