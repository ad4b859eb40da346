// Package postgres contains the PostgreSQL implementations of the store
// interfaces.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/tasknest/tasknest/internal/store"
)

// PostgreSQL error codes.
const (
	uniqueViolationCode     = "23505"
	foreignKeyViolationCode = "23503"
)

// isForeignKeyViolation checks if the given error is a PostgreSQL foreign key
// constraint violation, which surfaces when a task references a parent row
// that disappeared between validation and write.
func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == foreignKeyViolationCode
}

// isUniqueViolation checks if the given error is a PostgreSQL unique
// constraint violation.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode
}

// mapQueryError translates driver-level failures into store sentinels so
// callers never need to import pgx. Deadline expiry maps to store.ErrTimeout
// per the store contract.
func mapQueryError(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%w: %s", store.ErrTimeout, op)
	case isForeignKeyViolation(err):
		return store.ErrParentNotFound
	default:
		return store.NewStoreError("task", op, "query failed", err)
	}
}
