package visitor

import (
	"fmt"
	"strings"
	"sync"

	"github.com/Konsultn-Engineering/typedsql/ast"
	"github.com/Konsultn-Engineering/typedsql/dialect"
)

var visitorPool = sync.Pool{
	New: func() any {
		return &SQLVisitor{
			args: make([]any, 0, 8),
		}
	},
}

// SQLVisitor resolves a sequence of fragments belonging to one statement.
// The running placeholder index is threaded from one fragment to the next.
type SQLVisitor struct {
	sb      strings.Builder
	args    []any
	dialect dialect.Dialect
	next    int
}

// NewSQLVisitor returns a pooled visitor whose first placeholder is start.
func NewSQLVisitor(d dialect.Dialect, start int) *SQLVisitor {
	v := visitorPool.Get().(*SQLVisitor)
	v.dialect = d
	v.next = start
	v.sb.Reset()
	v.args = v.args[:0]
	return v
}

// Release returns v to the pool. Results from Build stay valid.
func (v *SQLVisitor) Release() {
	v.dialect = nil
	v.sb.Reset()
	clear(v.args)
	v.args = v.args[:0]
	visitorPool.Put(v)
}

// Visit appends f, rewriting each marker into the next positional placeholder.
// It panics if the marker count differs from the parameter count.
func (v *SQLVisitor) Visit(f ast.Fragment) {
	text := f.Text()
	n := f.Len()
	i := 0
	for {
		idx := strings.Index(text, ast.Marker)
		if idx < 0 {
			break
		}
		if i >= n {
			panic(fmt.Sprintf("visitor: fragment %q has more markers than its %d params", f.Text(), n))
		}
		v.sb.WriteString(text[:idx])
		v.sb.WriteString(v.dialect.Placeholder(v.next))
		v.args = append(v.args, f.Param(i).Value())
		v.next++
		i++
		text = text[idx+len(ast.Marker):]
	}
	if i != n {
		panic(fmt.Sprintf("visitor: fragment %q has %d markers but %d params", f.Text(), i, n))
	}
	v.sb.WriteString(text)
}

// WriteString appends literal SQL that carries no markers.
func (v *SQLVisitor) WriteString(s string) {
	v.sb.WriteString(s)
}

// Next returns the index the next placeholder will receive.
func (v *SQLVisitor) Next() int { return v.next }

// Build returns the resolved text and a copy of the collected arguments.
func (v *SQLVisitor) Build() (string, []any) {
	var args []any
	if len(v.args) > 0 {
		args = make([]any, len(v.args))
		copy(args, v.args)
	}
	return v.sb.String(), args
}

// Resolve rewrites the markers of f into d's positional syntax starting at
// start. It returns the final text, the parameters in placeholder order and
// the index the following fragment should start from.
func Resolve(d dialect.Dialect, f ast.Fragment, start int) (string, []any, int) {
	v := NewSQLVisitor(d, start)
	defer v.Release()
	v.Visit(f)
	text, args := v.Build()
	return text, args, v.Next()
}
