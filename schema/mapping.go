package schema

import (
	"fmt"
	"reflect"

	"github.com/Konsultn-Engineering/typedsql"
	"github.com/Konsultn-Engineering/typedsql/database"
	"github.com/Konsultn-Engineering/typedsql/query"
)

// Field maps one column of entity E. Ptr returns a pointer to the Go field
// backing the column; it is used both to scan into and to read from.
type Field[E any] struct {
	Name       string
	Type       string
	Nullable   bool
	Primary    bool
	Default    string
	References *ForeignKey
	Ptr        func(*E) any
}

type options struct {
	table     string
	tagKey    string
	naming    NamingStrategy
	generator IDGenerator
}

// Option configures NewMapping and Reflect.
type Option func(*options)

// WithTableName overrides the derived table name.
func WithTableName(name string) Option {
	return func(o *options) { o.table = name }
}

// WithNamingStrategy sets the strategy used by Reflect for untagged names.
func WithNamingStrategy(strategy NamingStrategy) Option {
	return func(o *options) { o.naming = strategy }
}

// WithTagKey sets the struct tag key read by Reflect. Defaults to "db".
func WithTagKey(key string) Option {
	return func(o *options) { o.tagKey = key }
}

// WithGenerator sets the generator used for zero keys on insert.
func WithGenerator(g IDGenerator) Option {
	return func(o *options) { o.generator = g }
}

// Mapping binds entity E, keyed by K, to a table.
type Mapping[E, K any] struct {
	table     string
	fields    []Field[E]
	index     map[string]int
	key       int
	generator IDGenerator
}

var _ query.Source[struct{}] = (*Mapping[struct{}, int])(nil)

// NewMapping validates fields and returns a mapping. The first primary field
// is the entity key and must be of type K.
func NewMapping[E, K any](table string, fields []Field[E], opts ...Option) (*Mapping[E, K], error) {
	o := options{table: table}
	for _, opt := range opts {
		opt(&o)
	}
	if o.table == "" {
		return nil, fmt.Errorf("schema: mapping for %s has no table name", typeName[E]())
	}
	if len(fields) == 0 {
		return nil, fmt.Errorf("schema: mapping for %s has no fields", o.table)
	}

	m := &Mapping[E, K]{
		table:     o.table,
		fields:    make([]Field[E], len(fields)),
		index:     make(map[string]int, len(fields)),
		key:       -1,
		generator: o.generator,
	}
	copy(m.fields, fields)

	var probe E
	for i, f := range m.fields {
		if f.Name == "" || f.Type == "" {
			return nil, fmt.Errorf("schema: %s field %d needs a name and a type", o.table, i)
		}
		if _, dup := m.index[f.Name]; dup {
			return nil, fmt.Errorf("schema: %s maps column %s twice", o.table, f.Name)
		}
		if f.Ptr == nil {
			return nil, fmt.Errorf("schema: %s column %s has no accessor", o.table, f.Name)
		}
		if p := reflect.ValueOf(f.Ptr(&probe)); p.Kind() != reflect.Ptr || p.IsNil() {
			return nil, fmt.Errorf("schema: %s column %s accessor must return a pointer", o.table, f.Name)
		}
		m.index[f.Name] = i

		if f.Primary && m.key < 0 {
			if _, ok := f.Ptr(&probe).(*K); !ok {
				return nil, fmt.Errorf("schema: %s key column %s is %T, want *%s", o.table, f.Name, f.Ptr(&probe), typeName[K]())
			}
			m.key = i
		}
	}
	return m, nil
}

func typeName[T any]() string {
	return reflect.TypeOf((*T)(nil)).Elem().String()
}

func (m *Mapping[E, K]) TableName() string { return m.table }

// Fields returns the mapped fields in column order.
func (m *Mapping[E, K]) Fields() []Field[E] {
	out := make([]Field[E], len(m.fields))
	copy(out, m.fields)
	return out
}

// ColumnNames returns the mapped column names in order.
func (m *Mapping[E, K]) ColumnNames() []string {
	names := make([]string, len(m.fields))
	for i, f := range m.fields {
		names[i] = f.Name
	}
	return names
}

// Generator returns the key generator, or nil.
func (m *Mapping[E, K]) Generator() IDGenerator { return m.generator }

// Scan reads the current row into a new E, matching columns by name.
// Unmapped columns are discarded.
func (m *Mapping[E, K]) Scan(rows database.Rows) (E, error) {
	var e E
	columns, err := rows.Columns()
	if err != nil {
		return e, err
	}

	dest := make([]any, len(columns))
	for i, col := range columns {
		if j, ok := m.index[col]; ok {
			dest[i] = m.fields[j].Ptr(&e)
		} else {
			dest[i] = new(any)
		}
	}
	if err := rows.Scan(dest...); err != nil {
		return e, err
	}
	return e, nil
}

// Value returns the current value of column name in e.
func (m *Mapping[E, K]) Value(e *E, name string) (any, bool) {
	i, ok := m.index[name]
	if !ok {
		return nil, false
	}
	return reflect.ValueOf(m.fields[i].Ptr(e)).Elem().Interface(), true
}

// Assignments returns one assignment per mapped column in column order.
// The key column is left out when withKey is false.
func (m *Mapping[E, K]) Assignments(e *E, withKey bool) []query.Assignment[E] {
	sets := make([]query.Assignment[E], 0, len(m.fields))
	for i, f := range m.fields {
		if i == m.key && !withKey {
			continue
		}
		v := reflect.ValueOf(f.Ptr(e)).Elem().Interface()
		sets = append(sets, query.Assign[E](f.Name, v))
	}
	return sets
}

// HasKey reports whether the mapping declares a key column.
func (m *Mapping[E, K]) HasKey() bool { return m.key >= 0 }

// KeyColumn returns a typed handle on the key column.
func (m *Mapping[E, K]) KeyColumn() (query.Column[K, E, K], error) {
	if m.key < 0 {
		return query.Column[K, E, K]{}, typedsql.NewPreconditionError("key", m.table, "mapping has no primary key")
	}
	return query.NewColumn[K, E, K](m.fields[m.key].Name), nil
}

// Key returns the key of e and whether it is set (non-zero).
func (m *Mapping[E, K]) Key(e *E) (K, bool) {
	var zero K
	if m.key < 0 {
		return zero, false
	}
	k := *m.fields[m.key].Ptr(e).(*K)
	return k, !reflect.ValueOf(&k).Elem().IsZero()
}

// SetKey stores k in e.
func (m *Mapping[E, K]) SetKey(e *E, k K) error {
	if m.key < 0 {
		return typedsql.NewPreconditionError("key", m.table, "mapping has no primary key")
	}
	*m.fields[m.key].Ptr(e).(*K) = k
	return nil
}

// GenerateKey fills a zero key from the mapping's generator. It reports
// whether a key was generated.
func (m *Mapping[E, K]) GenerateKey(e *E) (bool, error) {
	if m.key < 0 || m.generator == nil {
		return false, nil
	}
	if _, set := m.Key(e); set {
		return false, nil
	}

	v, err := m.generator.Generate()
	if err != nil {
		return false, fmt.Errorf("schema: generating key for %s: %w", m.table, err)
	}
	k, ok := v.(K)
	if !ok {
		return false, fmt.Errorf("schema: %s generator produced %T, want %s", m.generator.Type(), v, typeName[K]())
	}
	*m.fields[m.key].Ptr(e).(*K) = k
	return true, nil
}

// Definition returns a fresh table definition for the mapping.
func (m *Mapping[E, K]) Definition() (*TableDefinition, error) {
	columns := make([]*ColumnDefinition, len(m.fields))
	for i, f := range m.fields {
		columns[i] = &ColumnDefinition{
			Name:       f.Name,
			Type:       f.Type,
			Nullable:   f.Nullable && !f.Primary,
			PrimaryKey: f.Primary,
			Default:    f.Default,
			ForeignKey: f.References,
		}
	}
	return NewTable(m.table, columns...)
}
