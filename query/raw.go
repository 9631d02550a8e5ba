package query

import (
	"context"

	"github.com/Konsultn-Engineering/typedsql/ast"
	"github.com/Konsultn-Engineering/typedsql/database"
	"github.com/Konsultn-Engineering/typedsql/dialect"
)

// RawQuery is a hand-written statement. Parameters are written as ast.Marker
// and numbered like any other fragment, so raw text can be mixed with typed
// expressions.
type RawQuery struct {
	BaseBuilder
	parts []ast.Fragmenter
}

// NewRaw starts a raw statement. text must contain one ast.Marker per arg.
func NewRaw(text string, args ...any) *RawQuery {
	return RawFrom(ast.Raw(text, args...))
}

// RawFrom starts a raw statement from existing fragments.
func RawFrom(parts ...ast.Fragmenter) *RawQuery {
	return &RawQuery{
		BaseBuilder: NewBaseBuilder(""),
		parts:       parts,
	}
}

// Append adds fragments after the current text.
func (r *RawQuery) Append(parts ...ast.Fragmenter) *RawQuery {
	r.parts = append(r.parts, parts...)
	return r
}

// AppendRaw adds raw text with its arguments.
func (r *RawQuery) AppendRaw(text string, args ...any) *RawQuery {
	return r.Append(ast.Raw(text, args...))
}

func (r *RawQuery) WithDialect(d dialect.Dialect) *RawQuery {
	r.setDialect(d)
	return r
}

func (r *RawQuery) Fragment() ast.Fragment {
	return ast.Concat(r.parts...)
}

func (r *RawQuery) Build() (string, []any, error) {
	return r.resolve(r.Fragment(), nil)
}

// Rows runs the statement and returns untyped rows.
func (r *RawQuery) Rows(ctx context.Context, db database.Database) ([]Row, error) {
	sql, args, err := r.Build()
	if err != nil {
		return nil, err
	}
	return Collect(ctx, db, sql, args, ScanRow)
}

// Exec runs the statement and reports the affected row count.
func (r *RawQuery) Exec(ctx context.Context, db database.Database) (int64, error) {
	sql, args, err := r.Build()
	if err != nil {
		return 0, err
	}
	return Exec(ctx, db, sql, args)
}

// ScanRaw runs r and scans each row with scan.
func ScanRaw[T any](ctx context.Context, db database.Database, r *RawQuery, scan func(database.Rows) (T, error)) ([]T, error) {
	sql, args, err := r.Build()
	if err != nil {
		return nil, err
	}
	return Collect(ctx, db, sql, args, scan)
}
