package store

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Error kinds surfaced by the store. Callers match with errors.Is.
var (
	// ErrNotFound means the addressed id does not exist.
	ErrNotFound = errors.New("not found")
	// ErrConflict means a write collided with existing state.
	ErrConflict = errors.New("conflict")
	// ErrSchema means the database schema is missing or inconsistent.
	// Fatal at startup.
	ErrSchema = errors.New("schema error")
	// ErrTransport covers pool exhaustion, connection resets, and protocol
	// timeouts. Retryable by the caller.
	ErrTransport = errors.New("transport error")
	// ErrValidation means the caller passed malformed input.
	ErrValidation = errors.New("validation error")
)

// schemaErrorf wraps an error as a schema failure naming the missing object.
func schemaErrorf(object string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrSchema, object, err)
}

// validationErrorf wraps an error as a validation failure naming the field.
func validationErrorf(field, format string, args ...any) error {
	return fmt.Errorf("%w: %s: %s", ErrValidation, field, fmt.Sprintf(format, args...))
}

// classify maps driver errors onto the store taxonomy so callers can decide
// whether to retry.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%w: %v", ErrNotFound, err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrTransport, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return fmt.Errorf("%w: %v", ErrTransport, err)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && len(pgErr.Code) >= 2 {
		switch pgErr.Code[:2] {
		case "08": // connection exceptions
			return fmt.Errorf("%w: %v", ErrTransport, err)
		case "42": // undefined table/column/object
			return schemaErrorf(pgErr.Message, err)
		case "23": // integrity violations
			return fmt.Errorf("%w: %v", ErrConflict, err)
		}
	}
	if pgconn.Timeout(err) {
		return fmt.Errorf("%w: %v", ErrTransport, err)
	}
	return err
}

// retryable reports whether an error is connection-class and worth a startup
// retry. Schema and SQL errors surface immediately.
func retryable(err error) bool {
	classified := classify(err)
	return errors.Is(classified, ErrTransport) || errors.Is(err, context.DeadlineExceeded)
}
