package query

import (
	"context"
	"fmt"
	"math"
	"reflect"

	"github.com/Konsultn-Engineering/typedsql"
	"github.com/Konsultn-Engineering/typedsql/ast"
	"github.com/Konsultn-Engineering/typedsql/database"
	"github.com/Konsultn-Engineering/typedsql/dialect"
	"github.com/Konsultn-Engineering/typedsql/visitor"
)

// Source describes the table behind entity E and how to scan one of its rows.
type Source[E any] interface {
	TableName() string
	Scan(rows database.Rows) (E, error)
}

// BaseBuilder contains common functionality for all query builders
type BaseBuilder struct {
	tableName string
	dialect   dialect.Dialect
	errors    []error
}

// NewBaseBuilder creates a new base builder targeting Postgres.
func NewBaseBuilder(tableName string) BaseBuilder {
	return BaseBuilder{
		tableName: tableName,
		dialect:   dialect.NewPostgresDialect(),
	}
}

// TableName returns the table name
func (bb *BaseBuilder) TableName() string {
	return bb.tableName
}

// Dialect returns the placeholder dialect
func (bb *BaseBuilder) Dialect() dialect.Dialect {
	return bb.dialect
}

func (bb *BaseBuilder) setDialect(d dialect.Dialect) {
	if d == nil {
		bb.AddError(fmt.Errorf("query: nil dialect"))
		return
	}
	bb.dialect = d
}

// AddError adds an error to the builder
func (bb *BaseBuilder) AddError(err error) {
	if err != nil {
		bb.errors = append(bb.errors, err)
	}
}

// HasErrors returns true if there are any errors
func (bb *BaseBuilder) HasErrors() bool {
	return len(bb.errors) > 0
}

// GetErrors returns all accumulated errors
func (bb *BaseBuilder) GetErrors() []error {
	return bb.errors
}

// GetFirstError returns the first error or nil
func (bb *BaseBuilder) GetFirstError() error {
	if len(bb.errors) > 0 {
		return bb.errors[0]
	}
	return nil
}

// resolve numbers the markers of f. Errors recorded by setters come first,
// then check, the statement's own validation. Neither is stored.
func (bb *BaseBuilder) resolve(f ast.Fragment, check error) (string, []any, error) {
	if err := bb.GetFirstError(); err != nil {
		return "", nil, err
	}
	if check != nil {
		return "", nil, check
	}
	sql, args, _ := visitor.Resolve(bb.dialect, f, 1)
	return sql, args, nil
}

// Row is one result row addressed by zero-based column index.
type Row []any

// Len returns the number of columns.
func (r Row) Len() int { return len(r) }

// Get extracts column i of r as V. NULL yields the zero value. Numeric values
// are converted between Go numeric kinds, []byte is accepted for strings.
func Get[V any](r Row, i int) (V, error) {
	var zero V
	if i < 0 || i >= len(r) {
		return zero, fmt.Errorf("query: column index %d out of range [0,%d)", i, len(r))
	}
	raw := r[i]
	if raw == nil {
		return zero, nil
	}
	if v, ok := raw.(V); ok {
		return v, nil
	}

	target := reflect.TypeOf((*V)(nil)).Elem()
	if b, ok := raw.([]byte); ok && target.Kind() == reflect.String {
		return reflect.ValueOf(string(b)).Convert(target).Interface().(V), nil
	}
	rv := reflect.ValueOf(raw)
	if isNumeric(rv.Kind()) && isNumeric(target.Kind()) {
		if err := checkConvert(rv, target); err != nil {
			return zero, fmt.Errorf("query: column %d: %w", i, err)
		}
		return rv.Convert(target).Interface().(V), nil
	}
	return zero, fmt.Errorf("query: column %d holds %T, not %s", i, raw, target)
}

// checkConvert rejects numeric conversions that would lose data.
func checkConvert(rv reflect.Value, target reflect.Type) error {
	dst := reflect.New(target).Elem()
	lossy := fmt.Errorf("%v (%s) does not fit %s", rv.Interface(), rv.Type(), target)

	switch {
	case isInt(rv.Kind()):
		n := rv.Int()
		switch {
		case isInt(target.Kind()):
			if dst.OverflowInt(n) {
				return lossy
			}
		case isUint(target.Kind()):
			if n < 0 || dst.OverflowUint(uint64(n)) {
				return lossy
			}
		}
	case isUint(rv.Kind()):
		n := rv.Uint()
		switch {
		case isInt(target.Kind()):
			if n > math.MaxInt64 || dst.OverflowInt(int64(n)) {
				return lossy
			}
		case isUint(target.Kind()):
			if dst.OverflowUint(n) {
				return lossy
			}
		}
	default:
		f := rv.Float()
		switch {
		case isInt(target.Kind()):
			if f != math.Trunc(f) || f < math.MinInt64 || f >= math.MaxInt64 || dst.OverflowInt(int64(f)) {
				return lossy
			}
		case isUint(target.Kind()):
			if f != math.Trunc(f) || f < 0 || f >= math.MaxUint64 || dst.OverflowUint(uint64(f)) {
				return lossy
			}
		default:
			if dst.OverflowFloat(f) {
				return lossy
			}
		}
	}
	return nil
}

func isInt(k reflect.Kind) bool {
	return k >= reflect.Int && k <= reflect.Int64
}

func isUint(k reflect.Kind) bool {
	return k >= reflect.Uint && k <= reflect.Uint64
}

func isNumeric(k reflect.Kind) bool {
	return isInt(k) || isUint(k) || k == reflect.Float32 || k == reflect.Float64
}

// ScanRow reads the current row into a Row.
func ScanRow(rows database.Rows) (Row, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	values := make([]any, len(columns))
	valuePtrs := make([]any, len(columns))
	for i := range values {
		valuePtrs[i] = &values[i]
	}

	if err := rows.Scan(valuePtrs...); err != nil {
		return nil, err
	}
	return Row(values), nil
}

// Collect runs sql and scans every row with scan.
func Collect[T any](ctx context.Context, db database.Database, sql string, args []any, scan func(database.Rows) (T, error)) ([]T, error) {
	rows, err := db.QueryContext(ctx, sql, args...)
	if err != nil {
		return nil, typedsql.NewClientError(sql, err)
	}
	defer rows.Close()

	var results []T
	for rows.Next() {
		item, err := scan(rows)
		if err != nil {
			return nil, scanFailed(err)
		}
		results = append(results, item)
	}
	if err := rows.Err(); err != nil {
		return nil, typedsql.NewClientError(sql, err)
	}
	return results, nil
}

// Exec runs a statement that returns no rows and reports the affected count.
func Exec(ctx context.Context, db database.Database, sql string, args []any) (int64, error) {
	res, err := db.ExecContext(ctx, sql, args...)
	if err != nil {
		return 0, typedsql.NewClientError(sql, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, typedsql.NewClientError(sql, err)
	}
	return n, nil
}

func scanOne[T any](ctx context.Context, db database.Database, sql string, args []any) (T, error) {
	var zero T
	results, err := Collect(ctx, db, sql, args, func(rows database.Rows) (T, error) {
		var v T
		err := rows.Scan(&v)
		return v, err
	})
	if err != nil {
		return zero, err
	}
	if len(results) == 0 {
		return zero, typedsql.ErrNotFound
	}
	return results[0], nil
}

// scanFailed wraps a row decoding failure. It is not a ClientError: the
// statement itself succeeded.
func scanFailed(err error) error {
	return fmt.Errorf("query: scanning row: %w", err)
}

func joinScoped[E any](items []Scoped[E]) ast.Fragment {
	return ast.Join(", ", ast.Fragments(items)...)
}
