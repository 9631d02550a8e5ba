package schema

import (
	"context"
	"fmt"

	"github.com/Konsultn-Engineering/typedsql"
	"github.com/Konsultn-Engineering/typedsql/ast"
	"github.com/Konsultn-Engineering/typedsql/database"
	"github.com/Konsultn-Engineering/typedsql/query"
)

// tableInfo is a row of information_schema.tables.
type tableInfo struct {
	Name string
}

var tablesTable = mustMapping[tableInfo, string](NewMapping[tableInfo, string]("information_schema.tables", []Field[tableInfo]{
	{Name: "table_name", Type: "text", Primary: true, Ptr: func(t *tableInfo) any { return &t.Name }},
}))

var (
	tableName   = query.NewTextColumn[tableInfo, string]("table_name")
	tableSchema = query.NewTextColumn[tableInfo, string]("table_schema")
)

// CreateTable creates the table described by a fresh definition and consumes it.
func CreateTable(ctx context.Context, db database.Database, def *TableDefinition) error {
	return create(ctx, db, def, false)
}

// CreateTableIfNotExists is CreateTable with IF NOT EXISTS.
func CreateTableIfNotExists(ctx context.Context, db database.Database, def *TableDefinition) error {
	return create(ctx, db, def, true)
}

func create(ctx context.Context, db database.Database, def *TableDefinition, ifNotExists bool) error {
	if err := def.guard("create", def.name); err != nil {
		return err
	}
	if def.IsLoaded() {
		return typedsql.NewPreconditionError("create", def.name, "definition was loaded from the database")
	}
	stmt, err := def.createStatement(ifNotExists)
	if err != nil {
		return err
	}
	def.applied = true
	return execAll(ctx, db, []string{stmt})
}

// DropTable drops name.
func DropTable(ctx context.Context, db database.Database, name string) error {
	return execAll(ctx, db, []string{"DROP TABLE " + name})
}

// DropTableIfExists drops name if it exists.
func DropTableIfExists(ctx context.Context, db database.Database, name string) error {
	return execAll(ctx, db, []string{"DROP TABLE IF EXISTS " + name})
}

// TruncateTable removes every row of name.
func TruncateTable(ctx context.Context, db database.Database, name string) error {
	return execAll(ctx, db, []string{"TRUNCATE TABLE " + name})
}

// TableExists reports whether name exists in the current schema.
func TableExists(ctx context.Context, db database.Database, name string) (bool, error) {
	exists, err := query.From[tableInfo](tablesTable).
		Where(tableName.Eq(name).And(tableSchema.EqExpr(query.Virtual[string, tableInfo](ast.Raw("current_schema()"))))).
		Exists(ctx, db)
	if err != nil {
		return false, fmt.Errorf("schema: checking table %s: %w", name, err)
	}
	return exists, nil
}
