package typedsql

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotFoundError(t *testing.T) {
	err := NewNotFoundError("users")
	assert.Equal(t, "typedsql: users not found", err.Error())
	assert.True(t, IsNotFound(err))
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Nil(t, err.ID())

	withID := NewNotFoundErrorWithID("users", 42)
	assert.Equal(t, "typedsql: users not found (id=42)", withID.Error())
	assert.Equal(t, 42, withID.ID())
	assert.Equal(t, "users", withID.Table())

	wrapped := fmt.Errorf("loading profile: %w", withID)
	assert.True(t, IsNotFound(wrapped))
	assert.True(t, IsNotFound(fmt.Errorf("lookup: %w", ErrNotFound)))
	assert.False(t, IsNotFound(nil))
	assert.False(t, IsNotFound(errors.New("users not found")))
}

func TestPreconditionError(t *testing.T) {
	err := NewPreconditionError("add column", "users", "column email already exists")
	assert.Equal(t, `typedsql: add column "users": column email already exists`, err.Error())
	assert.True(t, IsPrecondition(err))
	assert.ErrorIs(t, fmt.Errorf("migrate: %w", err), ErrPrecondition)

	bare := NewPreconditionError("remove", "", "entity has no key")
	assert.Equal(t, "typedsql: remove: entity has no key", bare.Error())
	assert.False(t, IsPrecondition(ErrNotFound))
}

func TestClientError(t *testing.T) {
	assert.Nil(t, NewClientError("SELECT 1", nil))

	pgErr := &pgconn.PgError{Code: "23505", Message: "duplicate key value"}
	err := NewClientError("INSERT INTO users (id) VALUES ($1)", pgErr)
	require.Error(t, err)
	assert.True(t, IsClientError(err))
	assert.Contains(t, err.Error(), "INSERT INTO users")

	var target *pgconn.PgError
	require.ErrorAs(t, err, &target)
	assert.Equal(t, "23505", target.Code)

	again := NewClientError("other", fmt.Errorf("retry: %w", err))
	var ce *ClientError
	require.ErrorAs(t, again, &ce)
	assert.Equal(t, "INSERT INTO users (id) VALUES ($1)", ce.Statement, "client errors are wrapped once")

	assert.False(t, IsClientError(errors.New("plain")))
}
