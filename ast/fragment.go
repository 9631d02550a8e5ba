package ast

import (
	"fmt"
	"strings"
)

// Marker stands for "a parameter goes here" in fragment text. It is rewritten
// into the dialect's positional placeholder only when a statement is resolved.
const Marker = "$?"

// Param is a bound value travelling with its marker.
type Param struct {
	value any
}

// Value returns the wrapped value.
func (p Param) Value() any { return p.value }

// Fragment is SQL text with unresolved markers and the ordered parameters that
// belong to them. The zero Fragment is empty.
type Fragment struct {
	text   string
	params []Param
}

// Fragmenter is implemented by anything that renders to a Fragment.
type Fragmenter interface {
	ToFragment() Fragment
}

// ToFragment returns f, so a Fragment is itself a Fragmenter.
func (f Fragment) ToFragment() Fragment { return f }

// Text returns the unresolved SQL text.
func (f Fragment) Text() string { return f.text }

// Params returns the parameter values in marker order.
func (f Fragment) Params() []any {
	out := make([]any, len(f.params))
	for i, p := range f.params {
		out[i] = p.value
	}
	return out
}

// Len returns the number of parameters.
func (f Fragment) Len() int { return len(f.params) }

// Param returns the i-th parameter.
func (f Fragment) Param(i int) Param { return f.params[i] }

// IsEmpty reports whether f carries no text.
func (f Fragment) IsEmpty() bool { return f.text == "" }

func (f Fragment) String() string {
	return fmt.Sprintf("%s %v", f.text, f.Params())
}

// Value returns a fragment binding v to a single marker.
func Value(v any) Fragment {
	return Fragment{text: Marker, params: []Param{{value: v}}}
}

// Ident returns a parameterless fragment naming a column, table or keyword.
func Ident(name string) Fragment {
	return Fragment{text: name}
}

// Raw returns a fragment from caller supplied text. The text must contain one
// Marker per arg; a mismatch is a programming error and panics.
func Raw(text string, args ...any) Fragment {
	if n := strings.Count(text, Marker); n != len(args) {
		panic(fmt.Sprintf("ast: raw fragment %q has %d markers but %d args", text, n, len(args)))
	}
	f := Fragment{text: text}
	if len(args) > 0 {
		f.params = make([]Param, len(args))
		for i, a := range args {
			f.params[i] = Param{value: a}
		}
	}
	return f
}

// Concat joins parts with no separator.
func Concat(parts ...Fragmenter) Fragment {
	return Join("", parts...)
}

// Join joins parts with sep, concatenating their parameters left to right.
func Join(sep string, parts ...Fragmenter) Fragment {
	switch len(parts) {
	case 0:
		return Fragment{}
	case 1:
		return parts[0].ToFragment()
	}

	sb := getBuffer()
	defer putBuffer(sb)

	var params []Param
	for i, p := range parts {
		f := p.ToFragment()
		if i > 0 {
			sb.WriteString(sep)
		}
		sb.WriteString(f.text)
		params = append(params, f.params...)
	}
	return Fragment{text: sb.String(), params: params}
}

// Wrap surrounds f with literal text.
func Wrap(prefix string, f Fragmenter, suffix string) Fragment {
	inner := f.ToFragment()
	return Fragment{
		text:   prefix + inner.text + suffix,
		params: append([]Param(nil), inner.params...),
	}
}

// Func renders name(arg1, arg2, ...).
func Func(name string, args ...Fragmenter) Fragment {
	return Wrap(name+"(", Join(", ", args...), ")")
}

// Fragments converts a slice of Fragmenters.
func Fragments[T Fragmenter](items []T) []Fragmenter {
	out := make([]Fragmenter, len(items))
	for i, it := range items {
		out[i] = it
	}
	return out
}
