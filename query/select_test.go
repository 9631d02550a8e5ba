package query

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/Konsultn-Engineering/typedsql"
	"github.com/Konsultn-Engineering/typedsql/ast"
	"github.com/Konsultn-Engineering/typedsql/database"
	"github.com/Konsultn-Engineering/typedsql/dialect"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueryBuild(t *testing.T) {
	tests := []struct {
		name         string
		query        *Query[user]
		expectedSQL  string
		expectedArgs []any
	}{
		{
			name:        "NoCondition",
			query:       From[user](users),
			expectedSQL: "SELECT * FROM users",
		},
		{
			name:         "AndCondition",
			query:        From[user](users).Where(age.Gt(18).And(name.Eq("Alice"))),
			expectedSQL:  "SELECT * FROM users WHERE (age > $1) AND (name = $2)",
			expectedArgs: []any{18, "Alice"},
		},
		{
			name:         "ChainedWhere",
			query:        From[user](users).Where(age.Gt(18)).Where(name.Eq("Alice")),
			expectedSQL:  "SELECT * FROM users WHERE (age > $1) AND (name = $2)",
			expectedArgs: []any{18, "Alice"},
		},
		{
			name:         "OrWhere",
			query:        From[user](users).OrWhere(age.Lt(5)).OrWhere(age.Gt(90)),
			expectedSQL:  "SELECT * FROM users WHERE (age < $1) OR (age > $2)",
			expectedArgs: []any{5, 90},
		},
		{
			name:         "WhereTrueIsDropped",
			query:        From[user](users).Where(True[user]()),
			expectedSQL:  "SELECT * FROM users",
			expectedArgs: nil,
		},
		{
			name:        "OrderReplaces",
			query:       From[user](users).Order(age.Desc()).Order(name.Asc(), userID.Desc()),
			expectedSQL: "SELECT * FROM users ORDER BY name ASC, id DESC",
		},
		{
			name:        "AddOrderAppends",
			query:       From[user](users).Order(age.Desc()).AddOrder(name.Asc()),
			expectedSQL: "SELECT * FROM users ORDER BY age DESC, name ASC",
		},
		{
			name:         "LimitOffset",
			query:        From[user](users).Where(status.Eq("active")).Limit(10).Offset(20),
			expectedSQL:  "SELECT * FROM users WHERE (status = $1) LIMIT 10 OFFSET 20",
			expectedArgs: []any{"active"},
		},
		{
			name: "ProjectionParamsPrecedeWhere",
			query: Select[user](users, name.Coalesce("n/a"), age.Count().As("n")).
				Where(age.Gt(1)).
				GroupBy(name).
				Having(age.Count().Gt(2)).
				Order(name.Asc()).
				Limit(5),
			expectedSQL:  "SELECT COALESCE(name, $1), COUNT(age) AS n FROM users WHERE (age > $2) GROUP BY name HAVING (COUNT(age) > $3) ORDER BY name ASC LIMIT 5",
			expectedArgs: []any{"n/a", 1, int64(2)},
		},
		{
			name:        "Distinct",
			query:       Select[user](users, status).Distinct(),
			expectedSQL: "SELECT DISTINCT status FROM users",
		},
		{
			name:         "Aggregates",
			query:        Select[user](users, CountAll[user](), score.Avg().Round(2), age.Sum(), age.Max()),
			expectedSQL:  "SELECT COUNT(*), ROUND(AVG(score), 2), SUM(age), MAX(age) FROM users",
			expectedArgs: nil,
		},
		{
			name:         "MySQL",
			query:        From[user](users).Where(age.Between(1, 2)).WithDialect(dialect.NewMySQLDialect()),
			expectedSQL:  "SELECT * FROM users WHERE (age BETWEEN ? AND ?)",
			expectedArgs: []any{1, 2},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sql, args, err := tt.query.Build()
			require.NoError(t, err)
			assert.Equal(t, tt.expectedSQL, sql)
			assert.Equal(t, tt.expectedArgs, args)
		})
	}
}

func TestQueryBuildErrors(t *testing.T) {
	_, _, err := From[user](users).Limit(-1).Build()
	assert.Error(t, err)

	_, _, err = From[user](users).Offset(-3).Build()
	assert.Error(t, err)

	_, _, err = From[user](users).Having(age.Gt(1)).Build()
	assert.Error(t, err)

	_, _, err = From[user](users).WithDialect(nil).Build()
	assert.Error(t, err)
}

func TestWriteStatements(t *testing.T) {
	tests := []struct {
		name         string
		build        func() (string, []any, error)
		expectedSQL  string
		expectedArgs []any
	}{
		{
			name:         "Delete",
			build:        DeleteFrom[user](users).Where(userID.Eq(5)).Build,
			expectedSQL:  "DELETE FROM users WHERE (id = $1)",
			expectedArgs: []any{int64(5)},
		},
		{
			name:        "DeleteAll",
			build:       DeleteFrom[user](users).Build,
			expectedSQL: "DELETE FROM users",
		},
		{
			name:         "Insert",
			build:        InsertInto[user](users, name.Set("Ann"), age.Set(30)).Returning(userID).Build,
			expectedSQL:  "INSERT INTO users (name, age) VALUES ($1, $2) RETURNING id",
			expectedArgs: []any{"Ann", 30},
		},
		{
			name:         "Upsert",
			build:        InsertInto[user](users, userID.Set(7), name.Set("Ann")).OnConflict([]string{"id"}, "name").Build,
			expectedSQL:  "INSERT INTO users (id, name) VALUES ($1, $2) ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name",
			expectedArgs: []any{int64(7), "Ann"},
		},
		{
			name:         "InsertIgnore",
			build:        InsertInto[user](users, name.Set("Ann")).OnConflict([]string{"name"}).Returning(userID).Build,
			expectedSQL:  "INSERT INTO users (name) VALUES ($1) ON CONFLICT (name) DO NOTHING RETURNING id",
			expectedArgs: []any{"Ann"},
		},
		{
			name:         "InsertExpr",
			build:        InsertInto[user](users).Set(name.SetExpr(Lit[string, user]("x")), active.Set(true)).Build,
			expectedSQL:  "INSERT INTO users (name, active) VALUES ($1, $2)",
			expectedArgs: []any{"x", true},
		},
		{
			name:         "Update",
			build:        Update[user](users, age.SetExpr(age.Add(1)), status.Set("old")).Where(name.Eq("Ann")).Build,
			expectedSQL:  "UPDATE users SET age = (age + $1), status = $2 WHERE (name = $3)",
			expectedArgs: []any{1, "old", "Ann"},
		},
		{
			name:         "UpdateReturning",
			build:        Update[user](users, active.Set(false)).Returning(userID, name).Build,
			expectedSQL:  "UPDATE users SET active = $1 RETURNING id, name",
			expectedArgs: []any{false},
		},
		{
			name:         "Raw",
			build:        NewRaw("SELECT * FROM users WHERE id = $?", 7).Append(ast.Ident(" AND "), age.Gt(3)).Build,
			expectedSQL:  "SELECT * FROM users WHERE id = $1 AND (age > $2)",
			expectedArgs: []any{7, 3},
		},
		{
			name:         "RawAppend",
			build:        NewRaw("UPDATE counters SET n = n + $?", 1).AppendRaw(" WHERE k = $?", "a").Build,
			expectedSQL:  "UPDATE counters SET n = n + $1 WHERE k = $2",
			expectedArgs: []any{1, "a"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sql, args, err := tt.build()
			require.NoError(t, err)
			assert.Equal(t, tt.expectedSQL, sql)
			assert.Equal(t, tt.expectedArgs, args)
		})
	}
}

func TestEmptyAssignments(t *testing.T) {
	_, _, err := Update[user](users).Build()
	assert.True(t, typedsql.IsPrecondition(err))

	_, _, err = InsertInto[user](users).Build()
	assert.True(t, typedsql.IsPrecondition(err))

	_, _, err = InsertInto[user](users, name.Set("Ann")).OnConflict(nil).Build()
	assert.True(t, typedsql.IsPrecondition(err))
}

func TestBuildLeavesBuilderReusable(t *testing.T) {
	u := Update[user](users)
	_, _, err := u.Build()
	require.True(t, typedsql.IsPrecondition(err))
	u.Set(name.Set("x"))
	sql, args, err := u.Build()
	require.NoError(t, err)
	assert.Equal(t, "UPDATE users SET name = $1", sql)
	assert.Equal(t, []any{"x"}, args)

	ins := InsertInto[user](users)
	_, _, err = ins.Build()
	require.Error(t, err)
	sql, _, err = ins.Set(name.Set("y")).Build()
	require.NoError(t, err)
	assert.Equal(t, "INSERT INTO users (name) VALUES ($1)", sql)

	ins.OnConflict(nil)
	_, _, err = ins.Build()
	require.Error(t, err)
	sql, _, err = ins.OnConflict([]string{"id"}).Build()
	require.NoError(t, err)
	assert.Equal(t, "INSERT INTO users (name) VALUES ($1) ON CONFLICT (id) DO NOTHING", sql)

	q := From[user](users).Having(CountAll[user]().Gt(1))
	_, _, err = q.Build()
	require.Error(t, err)
	sql, _, err = q.GroupBy(status).Build()
	require.NoError(t, err)
	assert.Equal(t, "SELECT * FROM users GROUP BY status HAVING (COUNT(*) > $1)", sql)
	assert.False(t, q.HasErrors())

	// setter errors still stick
	lim := From[user](users).Limit(-1)
	_, _, err = lim.Build()
	require.Error(t, err)
	_, _, err = lim.Limit(5).Build()
	assert.Error(t, err)
}

func newMock(t *testing.T) (database.Database, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return database.NewSqlDatabase(db), mock
}

var userColumns = []string{"id", "age", "name", "status"}

func TestQueryAll(t *testing.T) {
	db, mock := newMock(t)
	ctx := context.Background()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM users WHERE (age > $1) ORDER BY id ASC")).
		WithArgs(18).
		WillReturnRows(sqlmock.NewRows(userColumns).
			AddRow(1, 20, "Alice", "active").
			AddRow(2, 40, "Bob", "inactive"))

	got, err := From[user](users).Where(age.Gt(18)).Order(userID.Asc()).All(ctx, db)
	require.NoError(t, err)
	assert.Equal(t, []user{
		{ID: 1, Age: 20, Name: "Alice", Status: "active"},
		{ID: 2, Age: 40, Name: "Bob", Status: "inactive"},
	}, got)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestQueryFirst(t *testing.T) {
	db, mock := newMock(t)
	ctx := context.Background()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM users WHERE (name = $1) LIMIT 1")).
		WithArgs("Alice").
		WillReturnRows(sqlmock.NewRows(userColumns).AddRow(1, 20, "Alice", "active"))

	q := From[user](users).Where(name.Eq("Alice"))
	u, err := q.First(ctx, db)
	require.NoError(t, err)
	assert.Equal(t, "Alice", u.Name)

	// First does not leak its LIMIT into the builder
	sql, _, err := q.Build()
	require.NoError(t, err)
	assert.Equal(t, "SELECT * FROM users WHERE (name = $1)", sql)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM users WHERE (name = $1) LIMIT 1")).
		WithArgs("Nobody").
		WillReturnRows(sqlmock.NewRows(userColumns))

	_, err = From[user](users).Where(name.Eq("Nobody")).First(ctx, db)
	assert.True(t, typedsql.IsNotFound(err))

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestQueryCountExists(t *testing.T) {
	db, mock := newMock(t)
	ctx := context.Background()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM users WHERE (status = $1)")).
		WithArgs("active").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))

	n, err := From[user](users).Where(status.Eq("active")).Order(age.Asc()).Limit(1).Count(ctx, db)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS (SELECT 1 FROM users WHERE (id = $1))")).
		WithArgs(int64(9)).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	ok, err := From[user](users).Where(userID.Eq(9)).Exists(ctx, db)
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestQueryCountShapes(t *testing.T) {
	ctx := context.Background()
	counted := func(n int64) *sqlmock.Rows {
		return sqlmock.NewRows([]string{"count"}).AddRow(n)
	}

	t.Run("Grouped", func(t *testing.T) {
		db, mock := newMock(t)
		mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM (SELECT status FROM users GROUP BY status) AS sub")).
			WillReturnRows(counted(2))

		n, err := From[user](users).GroupBy(status).Count(ctx, db)
		require.NoError(t, err)
		assert.Equal(t, int64(2), n)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("GroupedHaving", func(t *testing.T) {
		db, mock := newMock(t)
		mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM (SELECT status, COUNT(*) FROM users " +
			"WHERE (age > $1) GROUP BY status HAVING (COUNT(*) > $2)) AS sub")).
			WithArgs(18, int64(3)).
			WillReturnRows(counted(1))

		n, err := Select[user](users, status, CountAll[user]()).
			Where(age.Gt(18)).
			GroupBy(status).
			Having(CountAll[user]().Gt(3)).
			Count(ctx, db)
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Distinct", func(t *testing.T) {
		db, mock := newMock(t)
		mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM (SELECT DISTINCT name FROM users) AS sub")).
			WillReturnRows(counted(7))

		n, err := Select[user](users, name).Distinct().Count(ctx, db)
		require.NoError(t, err)
		assert.Equal(t, int64(7), n)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("HavingWithoutGroupBy", func(t *testing.T) {
		db, mock := newMock(t)
		q := From[user](users).Having(CountAll[user]().Gt(1))

		_, err := q.Count(ctx, db)
		assert.ErrorContains(t, err, "HAVING without GROUP BY")
		_, err = q.Exists(ctx, db)
		assert.ErrorContains(t, err, "HAVING without GROUP BY")
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestQueryRows(t *testing.T) {
	db, mock := newMock(t)
	ctx := context.Background()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT status, COUNT(*) FROM users GROUP BY status")).
		WillReturnRows(sqlmock.NewRows([]string{"status", "count"}).
			AddRow([]byte("active"), int64(2)).
			AddRow("inactive", int64(5)))

	rows, err := Select[user](users, status, CountAll[user]()).GroupBy(status).Rows(ctx, db)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	s, err := Get[string](rows[0], 0)
	require.NoError(t, err)
	assert.Equal(t, "active", s)

	c, err := Get[int](rows[1], 1)
	require.NoError(t, err)
	assert.Equal(t, 5, c)

	_, err = Get[bool](rows[1], 0)
	assert.Error(t, err)

	_, err = Get[string](rows[0], 9)
	assert.Error(t, err)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetNumeric(t *testing.T) {
	tests := []struct {
		name     string
		get      func(Row) (any, error)
		raw      any
		expected any
		wantErr  bool
	}{
		{"WidenInt", func(r Row) (any, error) { return Get[int64](r, 0) }, int32(7), int64(7), false},
		{"NarrowInt", func(r Row) (any, error) { return Get[int8](r, 0) }, int64(100), int8(100), false},
		{"NarrowIntOverflow", func(r Row) (any, error) { return Get[int8](r, 0) }, int64(300), nil, true},
		{"NegativeToUint", func(r Row) (any, error) { return Get[uint32](r, 0) }, int64(-1), nil, true},
		{"UintOverflow", func(r Row) (any, error) { return Get[uint8](r, 0) }, uint64(256), nil, true},
		{"HugeUintToInt", func(r Row) (any, error) { return Get[int64](r, 0) }, uint64(1 << 63), nil, true},
		{"WholeFloatToInt", func(r Row) (any, error) { return Get[int64](r, 0) }, float64(42), int64(42), false},
		{"FractionalFloatToInt", func(r Row) (any, error) { return Get[int64](r, 0) }, float64(2.9), nil, true},
		{"FloatToIntOverflow", func(r Row) (any, error) { return Get[int16](r, 0) }, float64(70000), nil, true},
		{"FloatToUint", func(r Row) (any, error) { return Get[uint](r, 0) }, float64(-3), nil, true},
		{"FloatNarrowOverflow", func(r Row) (any, error) { return Get[float32](r, 0) }, float64(1e300), nil, true},
		{"FloatNarrow", func(r Row) (any, error) { return Get[float32](r, 0) }, float64(1.5), float32(1.5), false},
		{"IntToFloat", func(r Row) (any, error) { return Get[float64](r, 0) }, int64(3), float64(3), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.get(Row{tt.raw})
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestScanFailureIsNotClientError(t *testing.T) {
	db, mock := newMock(t)
	ctx := context.Background()

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO users (name) VALUES ($1) RETURNING id")).
		WithArgs("Zed").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("not a number"))

	var id int64
	err := InsertInto[user](users, name.Set("Zed")).Returning(userID).ExecReturning(ctx, db, &id)
	require.Error(t, err)
	assert.False(t, typedsql.IsClientError(err))
	assert.ErrorContains(t, err, "scanning row")

	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM users")).
		WillReturnRows(sqlmock.NewRows(userColumns).AddRow("x", 1, "a", "b"))

	_, err = From[user](users).All(ctx, db)
	require.Error(t, err)
	assert.False(t, typedsql.IsClientError(err))
	assert.ErrorContains(t, err, "scanning row")

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestClientErrorsSurface(t *testing.T) {
	db, mock := newMock(t)
	ctx := context.Background()

	boom := errors.New("connection reset")
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM users WHERE (id = $1)")).
		WithArgs(int64(1)).
		WillReturnError(boom)

	_, err := DeleteFrom[user](users).Where(userID.Eq(1)).Exec(ctx, db)
	require.Error(t, err)
	assert.True(t, typedsql.IsClientError(err))
	assert.ErrorIs(t, err, boom)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestBuildErrorPreventsExecution(t *testing.T) {
	db, mock := newMock(t)

	_, err := From[user](users).Limit(-1).All(context.Background(), db)
	assert.Error(t, err)

	// no statement reached the database
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestExecStatements(t *testing.T) {
	db, mock := newMock(t)
	ctx := context.Background()

	mock.ExpectExec(regexp.QuoteMeta("UPDATE users SET status = $1 WHERE (age > $2)")).
		WithArgs("senior", 65).
		WillReturnResult(sqlmock.NewResult(0, 4))

	n, err := Update[user](users, status.Set("senior")).Where(age.Gt(65)).Exec(ctx, db)
	require.NoError(t, err)
	assert.Equal(t, int64(4), n)

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO users (name) VALUES ($1) RETURNING id")).
		WithArgs("Zed").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(42)))

	var id int64
	err = InsertInto[user](users, name.Set("Zed")).Returning(userID).ExecReturning(ctx, db, &id)
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT now()")).
		WillReturnRows(sqlmock.NewRows([]string{"now"}).AddRow("2024-01-01"))

	rows, err := NewRaw("SELECT now()").Rows(ctx, db)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, 1, rows[0].Len())

	require.NoError(t, mock.ExpectationsWereMet())
}
