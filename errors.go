// Package typedsql builds SQL statements from typed column handles and
// resolves their deferred placeholders in a single pass.
//
// The subpackages carry the machinery; this package holds the error values
// they share so callers can match on them without importing internals.
package typedsql

import (
	"errors"
	"fmt"
)

// Standard sentinel errors.
var (
	// ErrNotFound is returned when a lookup matched no rows.
	ErrNotFound = errors.New("typedsql: not found")

	// ErrPrecondition is matched by every PreconditionError.
	ErrPrecondition = errors.New("typedsql: precondition violated")

	// ErrAlreadyApplied is returned when a table definition is used after Apply.
	ErrAlreadyApplied = errors.New("typedsql: definition already applied")
)

// NotFoundError reports a lookup on a table that returned no rows.
type NotFoundError struct {
	table string
	id    any
}

// NewNotFoundError returns a NotFoundError for table.
func NewNotFoundError(table string) *NotFoundError {
	return &NotFoundError{table: table}
}

// NewNotFoundErrorWithID returns a NotFoundError carrying the searched key.
func NewNotFoundErrorWithID(table string, id any) *NotFoundError {
	return &NotFoundError{table: table, id: id}
}

func (e *NotFoundError) Error() string {
	if e.id != nil {
		return fmt.Sprintf("typedsql: %s not found (id=%v)", e.table, e.id)
	}
	return fmt.Sprintf("typedsql: %s not found", e.table)
}

// Is lets errors.Is(err, ErrNotFound) match.
func (e *NotFoundError) Is(err error) bool {
	return err == ErrNotFound
}

// Table returns the table that was searched.
func (e *NotFoundError) Table() string { return e.table }

// ID returns the searched key, if any.
func (e *NotFoundError) ID() any { return e.id }

// IsNotFound reports whether err is or wraps a NotFoundError.
func IsNotFound(err error) bool {
	if err == nil {
		return false
	}
	var e *NotFoundError
	return errors.As(err, &e) || errors.Is(err, ErrNotFound)
}

// PreconditionError is a caller mistake detected before any statement runs,
// such as adding a duplicate column or removing an entity without a key.
type PreconditionError struct {
	Op      string
	Subject string
	Reason  string
}

// NewPreconditionError returns a PreconditionError.
func NewPreconditionError(op, subject, reason string) *PreconditionError {
	return &PreconditionError{Op: op, Subject: subject, Reason: reason}
}

func (e *PreconditionError) Error() string {
	if e.Subject == "" {
		return fmt.Sprintf("typedsql: %s: %s", e.Op, e.Reason)
	}
	return fmt.Sprintf("typedsql: %s %q: %s", e.Op, e.Subject, e.Reason)
}

// Is lets errors.Is(err, ErrPrecondition) match.
func (e *PreconditionError) Is(err error) bool {
	return err == ErrPrecondition
}

// IsPrecondition reports whether err is or wraps a PreconditionError.
func IsPrecondition(err error) bool {
	return errors.Is(err, ErrPrecondition)
}

// ClientError wraps a failure returned by the database client while running
// a statement. The driver error is kept intact and reachable through Unwrap.
type ClientError struct {
	Statement string
	Err       error
}

// NewClientError wraps err. A nil err yields nil.
func NewClientError(statement string, err error) error {
	if err == nil {
		return nil
	}
	var ce *ClientError
	if errors.As(err, &ce) {
		return err
	}
	return &ClientError{Statement: statement, Err: err}
}

func (e *ClientError) Error() string {
	return fmt.Sprintf("typedsql: executing %q: %v", e.Statement, e.Err)
}

// Unwrap returns the driver error.
func (e *ClientError) Unwrap() error { return e.Err }

// IsClientError reports whether err came from the database client.
func IsClientError(err error) bool {
	var e *ClientError
	return errors.As(err, &e)
}
