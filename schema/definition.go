package schema

import (
	"fmt"
	"slices"
	"strings"

	"github.com/Konsultn-Engineering/typedsql"
)

// ForeignKey is a REFERENCES target. Constraint is the name of the existing
// constraint when the key was introspected.
type ForeignKey struct {
	Table      string
	Column     string
	Constraint string
}

// ParseForeignKey accepts "table.column" or "table(column)".
func ParseForeignKey(ref string) (*ForeignKey, error) {
	ref = strings.TrimSpace(ref)
	if open := strings.IndexByte(ref, '('); open > 0 && strings.HasSuffix(ref, ")") {
		return &ForeignKey{Table: ref[:open], Column: ref[open+1 : len(ref)-1]}, nil
	}
	if dot := strings.LastIndexByte(ref, '.'); dot > 0 && dot < len(ref)-1 {
		return &ForeignKey{Table: ref[:dot], Column: ref[dot+1:]}, nil
	}
	return nil, fmt.Errorf("schema: invalid foreign key reference %q", ref)
}

func (fk *ForeignKey) String() string {
	return fk.Table + "(" + fk.Column + ")"
}

func sameForeignKey(a, b *ForeignKey) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Table == b.Table && a.Column == b.Column
}

// columnState is what introspection found in the database.
type columnState struct {
	name       string
	typ        string
	nullable   bool
	def        string
	foreignKey *ForeignKey
}

// ColumnDefinition describes one column. Default is a SQL expression written
// verbatim; empty means no default.
type ColumnDefinition struct {
	Name       string
	Type       string
	Nullable   bool
	PrimaryKey bool
	Default    string
	ForeignKey *ForeignKey

	old *columnState
}

// NewColumn returns a nullable column.
func NewColumn(name, typ string) *ColumnDefinition {
	return &ColumnDefinition{Name: name, Type: typ, Nullable: true}
}

// NotNull marks the column NOT NULL.
func (c *ColumnDefinition) NotNull() *ColumnDefinition {
	c.Nullable = false
	return c
}

// Primary marks the column as part of the primary key. Key columns are NOT NULL.
func (c *ColumnDefinition) Primary() *ColumnDefinition {
	c.PrimaryKey = true
	c.Nullable = false
	return c
}

func (c *ColumnDefinition) WithDefault(expr string) *ColumnDefinition {
	c.Default = expr
	return c
}

func (c *ColumnDefinition) References(table, column string) *ColumnDefinition {
	c.ForeignKey = &ForeignKey{Table: table, Column: column}
	return c
}

// IsNew reports whether the column does not exist in the database yet.
func (c *ColumnDefinition) IsNew() bool {
	return c.old == nil
}

// OldName returns the column name found by introspection, or "" for new columns.
func (c *ColumnDefinition) OldName() string {
	if c.old == nil {
		return ""
	}
	return c.old.name
}

func (c *ColumnDefinition) clone() *ColumnDefinition {
	cp := *c
	if c.ForeignKey != nil {
		fk := *c.ForeignKey
		cp.ForeignKey = &fk
	}
	return &cp
}

// TableDefinition is either a fresh table to create or a table loaded from the
// database to alter. It is consumed by Apply.
type TableDefinition struct {
	name     string
	oldName  string
	pkeyName string

	columns        []*ColumnDefinition
	dropped        []string
	oldPrimaryKeys []string

	applied bool
}

// NewTable returns a fresh definition.
func NewTable(name string, columns ...*ColumnDefinition) (*TableDefinition, error) {
	if name == "" {
		return nil, typedsql.NewPreconditionError("create", name, "table name is empty")
	}
	t := &TableDefinition{name: name}
	for _, c := range columns {
		if err := t.AddColumn(c); err != nil {
			return nil, err
		}
	}
	return t, nil
}

func (t *TableDefinition) Name() string { return t.name }

// OldName returns the introspected name, or "" for a fresh definition.
func (t *TableDefinition) OldName() string { return t.oldName }

// IsLoaded reports whether the definition came from the database.
func (t *TableDefinition) IsLoaded() bool { return t.oldName != "" }

// Applied reports whether the definition has been consumed.
func (t *TableDefinition) Applied() bool { return t.applied }

// Columns returns the current column list.
func (t *TableDefinition) Columns() []*ColumnDefinition {
	return slices.Clone(t.columns)
}

// DroppedColumns returns the database names of dropped columns.
func (t *TableDefinition) DroppedColumns() []string {
	return slices.Clone(t.dropped)
}

// PrimaryKeys returns the names of the current key columns in column order.
func (t *TableDefinition) PrimaryKeys() []string {
	var keys []string
	for _, c := range t.columns {
		if c.PrimaryKey {
			keys = append(keys, c.Name)
		}
	}
	return keys
}

// PrimaryKeyConstraint returns the name used to drop the existing key.
func (t *TableDefinition) PrimaryKeyConstraint() string {
	if t.pkeyName != "" {
		return t.pkeyName
	}
	return t.oldName + "_pkey"
}

// Column returns the column currently called name.
func (t *TableDefinition) Column(name string) (*ColumnDefinition, bool) {
	i := t.indexOf(name)
	if i < 0 {
		return nil, false
	}
	return t.columns[i], true
}

func (t *TableDefinition) indexOf(name string) int {
	return slices.IndexFunc(t.columns, func(c *ColumnDefinition) bool { return c.Name == name })
}

func (t *TableDefinition) guard(op, subject string) error {
	if t.applied {
		return fmt.Errorf("schema: %s %s on table %s: %w", op, subject, t.name, typedsql.ErrAlreadyApplied)
	}
	return nil
}

// Rename changes the table name.
func (t *TableDefinition) Rename(name string) error {
	if err := t.guard("rename", name); err != nil {
		return err
	}
	if name == "" {
		return typedsql.NewPreconditionError("rename", t.name, "table name is empty")
	}
	t.name = name
	return nil
}

// AddColumn appends a new column.
func (t *TableDefinition) AddColumn(col *ColumnDefinition) error {
	if col == nil {
		return typedsql.NewPreconditionError("add column", t.name, "column is nil")
	}
	if err := t.guard("add column", col.Name); err != nil {
		return err
	}
	if col.Name == "" || col.Type == "" {
		return typedsql.NewPreconditionError("add column", col.Name, "column needs a name and a type")
	}
	if t.indexOf(col.Name) >= 0 {
		return typedsql.NewPreconditionError("add column", col.Name, "column already exists")
	}
	if slices.Contains(t.dropped, col.Name) {
		return typedsql.NewPreconditionError("add column", col.Name, "column was dropped in this definition")
	}

	cp := col.clone()
	cp.old = nil
	t.columns = append(t.columns, cp)
	return nil
}

// EditColumn applies edit to the column called name. The edit may rename the
// column; it fails when the new name belongs to another column.
func (t *TableDefinition) EditColumn(name string, edit func(*ColumnDefinition)) error {
	if err := t.guard("edit column", name); err != nil {
		return err
	}
	i := t.indexOf(name)
	if i < 0 {
		return typedsql.NewPreconditionError("edit column", name, "column does not exist")
	}

	cp := t.columns[i].clone()
	edit(cp)

	if cp.Name == "" || cp.Type == "" {
		return typedsql.NewPreconditionError("edit column", name, "column needs a name and a type")
	}
	if cp.Name != name {
		if t.indexOf(cp.Name) >= 0 {
			return typedsql.NewPreconditionError("edit column", cp.Name, "column already exists")
		}
		if slices.Contains(t.dropped, cp.Name) {
			return typedsql.NewPreconditionError("edit column", cp.Name, "column was dropped in this definition")
		}
	}
	cp.old = t.columns[i].old
	t.columns[i] = cp
	return nil
}

// DropColumn removes the column called name. Columns that exist in the
// database are recorded for DROP COLUMN; new columns are simply forgotten.
func (t *TableDefinition) DropColumn(name string) error {
	if err := t.guard("drop column", name); err != nil {
		return err
	}
	i := t.indexOf(name)
	if i < 0 {
		return typedsql.NewPreconditionError("drop column", name, "column does not exist")
	}

	col := t.columns[i]
	t.columns = slices.Delete(t.columns, i, i+1)
	if col.old != nil {
		t.dropped = append(t.dropped, col.old.name)
	}
	return nil
}

// clone returns an unapplied deep copy.
func (t *TableDefinition) clone() *TableDefinition {
	cp := &TableDefinition{
		name:           t.name,
		oldName:        t.oldName,
		pkeyName:       t.pkeyName,
		dropped:        slices.Clone(t.dropped),
		oldPrimaryKeys: slices.Clone(t.oldPrimaryKeys),
		columns:        make([]*ColumnDefinition, len(t.columns)),
	}
	for i, c := range t.columns {
		cp.columns[i] = c.clone()
	}
	return cp
}
