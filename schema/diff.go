package schema

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/Konsultn-Engineering/typedsql"
	"github.com/Konsultn-Engineering/typedsql/database"
	"github.com/Konsultn-Engineering/typedsql/query"
)

// Statements returns the DDL that Apply would run, without running it.
// A fresh definition yields one CREATE TABLE. A loaded definition yields the
// renames, which cannot share an ALTER TABLE with other changes, followed by
// at most one ALTER TABLE carrying every other alteration.
func (t *TableDefinition) Statements() ([]string, error) {
	if err := t.guard("diff", t.name); err != nil {
		return nil, err
	}
	if !t.IsLoaded() {
		stmt, err := t.createStatement(false)
		if err != nil {
			return nil, err
		}
		return []string{stmt}, nil
	}
	return t.alterStatements(), nil
}

// Apply runs the statements and consumes the definition. The definition is
// consumed even when a statement fails, since the table may be half altered.
func (t *TableDefinition) Apply(ctx context.Context, db database.Database) error {
	stmts, err := t.Statements()
	if err != nil {
		return err
	}
	t.applied = true
	return execAll(ctx, db, stmts)
}

func execAll(ctx context.Context, db database.Database, stmts []string) error {
	for _, stmt := range stmts {
		if _, err := query.Exec(ctx, db, stmt, nil); err != nil {
			return err
		}
	}
	return nil
}

func (t *TableDefinition) createStatement(ifNotExists bool) (string, error) {
	if len(t.columns) == 0 {
		return "", typedsql.NewPreconditionError("create", t.name, "table has no columns")
	}

	var sb strings.Builder
	sb.WriteString("CREATE TABLE ")
	if ifNotExists {
		sb.WriteString("IF NOT EXISTS ")
	}
	sb.WriteString(t.name)
	sb.WriteString(" (")

	for i, c := range t.columns {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(c.Name)
		sb.WriteByte(' ')
		sb.WriteString(c.Type)
		if c.Nullable {
			sb.WriteString(" NULL")
		} else {
			sb.WriteString(" NOT NULL")
		}
		if c.Default != "" {
			sb.WriteString(" DEFAULT ")
			sb.WriteString(c.Default)
		}
		if c.ForeignKey != nil {
			sb.WriteString(" REFERENCES ")
			sb.WriteString(c.ForeignKey.String())
		}
	}

	if keys := t.PrimaryKeys(); len(keys) > 0 {
		sb.WriteString(", PRIMARY KEY (")
		sb.WriteString(strings.Join(keys, ", "))
		sb.WriteByte(')')
	}
	sb.WriteByte(')')
	return sb.String(), nil
}

func (t *TableDefinition) alterStatements() []string {
	var immediate, queued []string

	if t.name != t.oldName {
		immediate = append(immediate, fmt.Sprintf("ALTER TABLE %s RENAME TO %s", t.oldName, t.name))
	}

	pkeyDropped := false
	dropPrimaryKey := func() {
		if !pkeyDropped {
			queued = append(queued, "DROP CONSTRAINT "+t.PrimaryKeyConstraint())
			pkeyDropped = true
		}
	}

	for _, name := range t.dropped {
		if slices.Contains(t.oldPrimaryKeys, name) {
			dropPrimaryKey()
		}
		queued = append(queued, "DROP COLUMN "+name)
	}

	// key columns identified by their database name, new ones by a "+" prefix
	var keySet []string
	var renames []columnRename
	for _, c := range t.columns {
		if c.old == nil {
			if c.PrimaryKey {
				keySet = append(keySet, "+"+c.Name)
			}
			queued = append(queued, addColumnClause(c))
			continue
		}

		if c.PrimaryKey {
			keySet = append(keySet, c.old.name)
		}
		if c.old.name != c.Name {
			renames = append(renames, columnRename{from: c.old.name, to: c.Name})
		}
		queued = append(queued, t.alterColumnClauses(c)...)
	}

	for _, r := range orderRenames(renames, t.nameInUse()) {
		immediate = append(immediate, fmt.Sprintf("ALTER TABLE %s RENAME COLUMN %s TO %s", t.name, r.from, r.to))
	}

	if !sameKeySet(keySet, t.oldPrimaryKeys) {
		if len(t.oldPrimaryKeys) > 0 {
			dropPrimaryKey()
		}
		if keys := t.PrimaryKeys(); len(keys) > 0 {
			queued = append(queued, "ADD PRIMARY KEY ("+strings.Join(keys, ", ")+")")
		}
	}

	stmts := immediate
	if len(queued) > 0 {
		stmts = append(stmts, "ALTER TABLE "+t.name+" "+strings.Join(queued, ","))
	}
	return stmts
}

type columnRename struct {
	from, to string
}

// orderRenames sequences renames so that none targets a name another pending
// rename still holds. Cycles are broken through a temporary name.
func orderRenames(renames []columnRename, inUse func(string) bool) []columnRename {
	pending := slices.Clone(renames)
	out := make([]columnRename, 0, len(pending))
	holds := func(name string) bool {
		return slices.ContainsFunc(pending, func(r columnRename) bool { return r.from == name })
	}

	for len(pending) > 0 {
		moved := false
		for i := 0; i < len(pending); {
			if r := pending[i]; !holds(r.to) {
				out = append(out, r)
				pending = slices.Delete(pending, i, i+1)
				moved = true
				continue
			}
			i++
		}
		if moved {
			continue
		}
		tmp := pending[0].from + "_tmp"
		for n := 1; inUse(tmp); n++ {
			tmp = fmt.Sprintf("%s_tmp%d", pending[0].from, n)
		}
		out = append(out, columnRename{from: pending[0].from, to: tmp})
		pending[0].from = tmp
	}
	return out
}

// nameInUse reports column names that exist now or after the alteration. A
// free name is reserved by the call that reports it.
func (t *TableDefinition) nameInUse() func(string) bool {
	used := make(map[string]bool)
	for _, c := range t.columns {
		used[c.Name] = true
		if c.old != nil {
			used[c.old.name] = true
		}
	}
	for _, name := range t.dropped {
		used[name] = true
	}
	return func(name string) bool {
		if used[name] {
			return true
		}
		used[name] = true
		return false
	}
}

func addColumnClause(c *ColumnDefinition) string {
	clause := "ADD COLUMN " + c.Name + " " + c.Type
	if !c.Nullable {
		clause += " NOT NULL"
	}
	if c.Default != "" {
		clause += " DEFAULT " + c.Default
	}
	if c.ForeignKey != nil {
		clause += " REFERENCES " + c.ForeignKey.String()
	}
	return clause
}

func (t *TableDefinition) alterColumnClauses(c *ColumnDefinition) []string {
	var clauses []string
	prefix := "ALTER COLUMN " + c.Name + " "

	if normalizeType(c.Type) != normalizeType(c.old.typ) {
		clauses = append(clauses, prefix+"TYPE "+c.Type)
	}
	if c.Nullable != c.old.nullable {
		if c.Nullable {
			clauses = append(clauses, prefix+"DROP NOT NULL")
		} else {
			clauses = append(clauses, prefix+"SET NOT NULL")
		}
	}
	if c.Default != c.old.def {
		if c.Default == "" {
			clauses = append(clauses, prefix+"DROP DEFAULT")
		} else {
			clauses = append(clauses, prefix+"SET DEFAULT "+c.Default)
		}
	}
	if !sameForeignKey(c.ForeignKey, c.old.foreignKey) {
		if old := c.old.foreignKey; old != nil {
			constraint := old.Constraint
			if constraint == "" {
				constraint = t.oldName + "_" + c.old.name + "_fkey"
			}
			clauses = append(clauses, "DROP CONSTRAINT "+constraint)
		}
		if c.ForeignKey != nil {
			clauses = append(clauses, "ADD FOREIGN KEY ("+c.Name+") REFERENCES "+c.ForeignKey.String())
		}
	}
	return clauses
}

func sameKeySet(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for _, k := range a {
		if !slices.Contains(b, k) {
			return false
		}
	}
	return true
}
