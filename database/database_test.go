package database

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSqlDatabase(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	sdb := NewSqlDatabase(db)
	ctx := context.Background()

	mock.ExpectQuery(`SELECT id, name FROM users WHERE \(age > \$1\)`).
		WithArgs(18).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).AddRow(1, "Alice").AddRow(2, "Bob"))

	rows, err := sdb.QueryContext(ctx, "SELECT id, name FROM users WHERE (age > $1)", 18)
	require.NoError(t, err)

	cols, err := rows.Columns()
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "name"}, cols)

	var names []string
	for rows.Next() {
		var id int64
		var name string
		require.NoError(t, rows.Scan(&id, &name))
		names = append(names, name)
	}
	require.NoError(t, rows.Err())
	require.NoError(t, rows.Close())
	assert.Equal(t, []string{"Alice", "Bob"}, names)

	mock.ExpectExec(`DELETE FROM users`).WillReturnResult(sqlmock.NewResult(0, 3))
	res, err := sdb.ExecContext(ctx, "DELETE FROM users")
	require.NoError(t, err)
	n, err := res.RowsAffected()
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLoggedDatabase(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	ldb := WithLogger(NewSqlDatabase(db), logger)
	ctx := context.Background()

	mock.ExpectExec(`TRUNCATE TABLE users`).WillReturnResult(sqlmock.NewResult(0, 0))
	_, err = ldb.ExecContext(ctx, "TRUNCATE TABLE users")
	require.NoError(t, err)

	boom := errors.New("boom")
	mock.ExpectQuery(`SELECT 1`).WillReturnError(boom)
	_, err = ldb.QueryContext(ctx, "SELECT 1")
	assert.ErrorIs(t, err, boom)

	out := buf.String()
	assert.Contains(t, out, `"msg":"statement"`)
	assert.Contains(t, out, `"msg":"statement failed"`)
	assert.Contains(t, out, Fingerprint("TRUNCATE TABLE users"))
	assert.Contains(t, out, `"error":"boom"`)

	stats := ldb.Stats()
	assert.Equal(t, int64(1), stats.Execs.Load())
	assert.Equal(t, int64(1), stats.Queries.Load())
	assert.Equal(t, int64(1), stats.Errors.Load())

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestFingerprint(t *testing.T) {
	a := Fingerprint("SELECT * FROM users WHERE (age > $1)")
	b := Fingerprint("SELECT * FROM users WHERE (age > $1)")
	c := Fingerprint("SELECT * FROM users WHERE (age < $1)")

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.NotEmpty(t, a)
}
