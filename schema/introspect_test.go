package schema

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Konsultn-Engineering/typedsql"
)

const columnsQuery = "SELECT column_name, data_type, is_nullable, column_default, character_maximum_length " +
	"FROM information_schema.columns WHERE (table_name = $1) AND (table_schema = current_schema()) " +
	"ORDER BY ordinal_position ASC"

var infoColumns = []string{"column_name", "data_type", "is_nullable", "column_default", "character_maximum_length"}

// expectAccounts registers the introspection queries for the accounts table.
func expectAccounts(mock sqlmock.Sqlmock, table string) {
	mock.ExpectQuery(regexp.QuoteMeta(columnsQuery)).
		WithArgs(table).
		WillReturnRows(sqlmock.NewRows(infoColumns).
			AddRow("id", "integer", "NO", "nextval('accounts_id_seq'::regclass)", nil).
			AddRow("email", "character varying", "NO", nil, int64(100)).
			AddRow("team_id", "bigint", "YES", nil, nil))

	mock.ExpectQuery(`FROM information_schema.table_constraints tc .* 'PRIMARY KEY'`).
		WithArgs(table).
		WillReturnRows(sqlmock.NewRows([]string{"constraint_name", "column_name"}).
			AddRow("accounts_pk", "id"))

	mock.ExpectQuery(`FROM information_schema.table_constraints tc .* 'FOREIGN KEY'`).
		WithArgs(table).
		WillReturnRows(sqlmock.NewRows([]string{"constraint_name", "column_name", "table_name", "column_name"}).
			AddRow("accounts_team_fk", "team_id", "teams", "id"))
}

func TestLoadFromDatabase(t *testing.T) {
	db, mock := newMock(t)
	expectAccounts(mock, "accounts")

	def, err := LoadFromDatabase(context.Background(), db, "accounts")
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())

	assert.True(t, def.IsLoaded())
	assert.Equal(t, "accounts", def.Name())
	assert.Equal(t, []string{"id"}, def.PrimaryKeys())
	assert.Equal(t, "accounts_pk", def.PrimaryKeyConstraint())

	id, ok := def.Column("id")
	require.True(t, ok)
	assert.False(t, id.IsNew())
	assert.False(t, id.Nullable)
	assert.Equal(t, "nextval('accounts_id_seq'::regclass)", id.Default)

	email, ok := def.Column("email")
	require.True(t, ok)
	assert.Equal(t, "character varying(100)", email.Type)

	team, ok := def.Column("team_id")
	require.True(t, ok)
	assert.True(t, team.Nullable)
	require.NotNil(t, team.ForeignKey)
	assert.Equal(t, "teams(id)", team.ForeignKey.String())

	t.Run("UnchangedDefinitionIsEmpty", func(t *testing.T) {
		stmts, err := def.clone().Statements()
		require.NoError(t, err)
		assert.Empty(t, stmts)
	})

	t.Run("IntrospectedNamesDriveTheDiff", func(t *testing.T) {
		d := def.clone()
		require.NoError(t, d.DropColumn("id"))
		require.NoError(t, d.EditColumn("team_id", func(c *ColumnDefinition) { c.ForeignKey = nil }))

		stmts, err := d.Statements()
		require.NoError(t, err)
		assert.Equal(t, []string{
			"ALTER TABLE accounts DROP CONSTRAINT accounts_pk,DROP COLUMN id,DROP CONSTRAINT accounts_team_fk",
		}, stmts)
	})
}

func TestLoadFromDatabaseErrors(t *testing.T) {
	t.Run("MissingTable", func(t *testing.T) {
		db, mock := newMock(t)
		mock.ExpectQuery(regexp.QuoteMeta(columnsQuery)).
			WithArgs("ghost").
			WillReturnRows(sqlmock.NewRows(infoColumns))

		_, err := LoadFromDatabase(context.Background(), db, "ghost")
		assert.True(t, typedsql.IsNotFound(err))
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("ClientError", func(t *testing.T) {
		db, mock := newMock(t)
		boom := errors.New("permission denied")
		mock.ExpectQuery(regexp.QuoteMeta(columnsQuery)).WillReturnError(boom)

		_, err := LoadFromDatabase(context.Background(), db, "accounts")
		assert.True(t, typedsql.IsClientError(err))
		assert.ErrorIs(t, err, boom)
	})
}

func TestTableSurface(t *testing.T) {
	ctx := context.Background()
	ok := sqlmock.NewResult(0, 0)

	t.Run("CreateTable", func(t *testing.T) {
		db, mock := newMock(t)
		def, err := NewTable("tags", NewColumn("id", "bigint").Primary(), NewColumn("label", "text").NotNull())
		require.NoError(t, err)

		mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE tags (id bigint NOT NULL, label text NOT NULL, PRIMARY KEY (id))")).
			WillReturnResult(ok)

		require.NoError(t, CreateTable(ctx, db, def))
		assert.ErrorIs(t, CreateTable(ctx, db, def), typedsql.ErrAlreadyApplied)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("CreateTableIfNotExists", func(t *testing.T) {
		db, mock := newMock(t)
		def, err := NewTable("tags", NewColumn("label", "text"))
		require.NoError(t, err)

		mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS tags (label text NULL)")).
			WillReturnResult(ok)

		require.NoError(t, CreateTableIfNotExists(ctx, db, def))
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("CreateFromLoadedDefinition", func(t *testing.T) {
		db, _ := newMock(t)
		err := CreateTable(ctx, db, loaded("t", NewColumn("a", "text")))
		assert.True(t, typedsql.IsPrecondition(err))
	})

	t.Run("DropTruncate", func(t *testing.T) {
		db, mock := newMock(t)
		mock.ExpectExec(regexp.QuoteMeta("DROP TABLE tags")).WillReturnResult(ok)
		mock.ExpectExec(regexp.QuoteMeta("DROP TABLE IF EXISTS tags")).WillReturnResult(ok)
		mock.ExpectExec(regexp.QuoteMeta("TRUNCATE TABLE tags")).WillReturnResult(ok)

		require.NoError(t, DropTable(ctx, db, "tags"))
		require.NoError(t, DropTableIfExists(ctx, db, "tags"))
		require.NoError(t, TruncateTable(ctx, db, "tags"))
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("TableExists", func(t *testing.T) {
		db, mock := newMock(t)
		stmt := regexp.QuoteMeta("SELECT EXISTS (SELECT 1 FROM information_schema.tables " +
			"WHERE (table_name = $1) AND (table_schema = current_schema()))")
		mock.ExpectQuery(stmt).WithArgs("tags").
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
		mock.ExpectQuery(stmt).WithArgs("ghost").
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

		exists, err := TableExists(ctx, db, "tags")
		require.NoError(t, err)
		assert.True(t, exists)

		exists, err = TableExists(ctx, db, "ghost")
		require.NoError(t, err)
		assert.False(t, exists)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("DropFailure", func(t *testing.T) {
		db, mock := newMock(t)
		boom := errors.New("table is referenced")
		mock.ExpectExec(regexp.QuoteMeta("DROP TABLE teams")).WillReturnError(boom)

		err := DropTable(ctx, db, "teams")
		assert.True(t, typedsql.IsClientError(err))
		assert.ErrorIs(t, err, boom)
	})
}
