package schema

import (
	"context"
	"fmt"

	"github.com/Konsultn-Engineering/typedsql"
	"github.com/Konsultn-Engineering/typedsql/ast"
	"github.com/Konsultn-Engineering/typedsql/database"
	"github.com/Konsultn-Engineering/typedsql/query"
)

// columnInfo is a row of information_schema.columns.
type columnInfo struct {
	Name      string
	DataType  string
	Nullable  string
	Default   *string
	MaxLength *int64
}

var columnsTable = mustMapping[columnInfo, string](NewMapping[columnInfo, string]("information_schema.columns", []Field[columnInfo]{
	{Name: "column_name", Type: "text", Primary: true, Ptr: func(c *columnInfo) any { return &c.Name }},
	{Name: "data_type", Type: "text", Ptr: func(c *columnInfo) any { return &c.DataType }},
	{Name: "is_nullable", Type: "text", Ptr: func(c *columnInfo) any { return &c.Nullable }},
	{Name: "column_default", Type: "text", Nullable: true, Ptr: func(c *columnInfo) any { return &c.Default }},
	{Name: "character_maximum_length", Type: "bigint", Nullable: true, Ptr: func(c *columnInfo) any { return &c.MaxLength }},
}))

var (
	infoColumnName = query.NewTextColumn[columnInfo, string]("column_name")
	infoDataType   = query.NewTextColumn[columnInfo, string]("data_type")
	infoNullable   = query.NewTextColumn[columnInfo, string]("is_nullable")
	infoDefault    = query.NewTextColumn[columnInfo, string]("column_default")
	infoMaxLength  = query.NewNumberColumn[int64, columnInfo, string]("character_maximum_length")
	infoTable      = query.NewTextColumn[columnInfo, string]("table_name")
	infoSchema     = query.NewTextColumn[columnInfo, string]("table_schema")
	infoPosition   = query.NewNumberColumn[int, columnInfo, string]("ordinal_position")

	currentSchema = query.Virtual[string, columnInfo](ast.Raw("current_schema()"))
)

const primaryKeyQuery = `SELECT tc.constraint_name, kcu.column_name
FROM information_schema.table_constraints tc
JOIN information_schema.key_column_usage kcu
  ON kcu.constraint_name = tc.constraint_name AND kcu.table_schema = tc.table_schema
WHERE tc.table_name = $? AND tc.table_schema = current_schema() AND tc.constraint_type = 'PRIMARY KEY'
ORDER BY kcu.ordinal_position`

const foreignKeyQuery = `SELECT tc.constraint_name, kcu.column_name, ccu.table_name, ccu.column_name
FROM information_schema.table_constraints tc
JOIN information_schema.key_column_usage kcu
  ON kcu.constraint_name = tc.constraint_name AND kcu.table_schema = tc.table_schema
JOIN information_schema.constraint_column_usage ccu
  ON ccu.constraint_name = tc.constraint_name AND ccu.table_schema = tc.table_schema
WHERE tc.table_name = $? AND tc.table_schema = current_schema() AND tc.constraint_type = 'FOREIGN KEY'`

type foreignKeyInfo struct {
	column string
	key    ForeignKey
}

// LoadFromDatabase introspects table name and returns a loaded definition
// whose edits are diffed against what was found. A table without columns is
// reported as a NotFoundError.
func LoadFromDatabase(ctx context.Context, db database.Database, name string) (*TableDefinition, error) {
	infos, err := query.Select[columnInfo](columnsTable,
		infoColumnName, infoDataType, infoNullable, infoDefault, infoMaxLength).
		Where(infoTable.Eq(name).And(infoSchema.EqExpr(currentSchema))).
		Order(infoPosition.Asc()).
		All(ctx, db)
	if err != nil {
		return nil, fmt.Errorf("schema: loading columns of %s: %w", name, err)
	}
	if len(infos) == 0 {
		return nil, typedsql.NewNotFoundError(name)
	}

	t := &TableDefinition{name: name, oldName: name}

	keys, err := query.NewRaw(primaryKeyQuery, name).Rows(ctx, db)
	if err != nil {
		return nil, fmt.Errorf("schema: loading primary key of %s: %w", name, err)
	}
	for _, row := range keys {
		constraint, err := query.Get[string](row, 0)
		if err != nil {
			return nil, err
		}
		column, err := query.Get[string](row, 1)
		if err != nil {
			return nil, err
		}
		t.pkeyName = constraint
		t.oldPrimaryKeys = append(t.oldPrimaryKeys, column)
	}

	fks, err := query.ScanRaw(ctx, db, query.NewRaw(foreignKeyQuery, name), func(rows database.Rows) (foreignKeyInfo, error) {
		var fk foreignKeyInfo
		err := rows.Scan(&fk.key.Constraint, &fk.column, &fk.key.Table, &fk.key.Column)
		return fk, err
	})
	if err != nil {
		return nil, fmt.Errorf("schema: loading foreign keys of %s: %w", name, err)
	}

	for _, info := range infos {
		col := &ColumnDefinition{
			Name:     info.Name,
			Type:     info.DataType,
			Nullable: info.Nullable == "YES",
		}
		if info.MaxLength != nil {
			col.Type = fmt.Sprintf("%s(%d)", info.DataType, *info.MaxLength)
		}
		if info.Default != nil {
			col.Default = *info.Default
		}
		for _, fk := range fks {
			if fk.column == info.Name {
				key := fk.key
				col.ForeignKey = &key
				break
			}
		}
		for _, k := range t.oldPrimaryKeys {
			if k == info.Name {
				col.PrimaryKey = true
			}
		}

		col.old = &columnState{
			name:     col.Name,
			typ:      col.Type,
			nullable: col.Nullable,
			def:      col.Default,
		}
		if col.ForeignKey != nil {
			key := *col.ForeignKey
			col.old.foreignKey = &key
		}
		t.columns = append(t.columns, col)
	}
	return t, nil
}

func mustMapping[E, K any](m *Mapping[E, K], err error) *Mapping[E, K] {
	if err != nil {
		panic(err)
	}
	return m
}
