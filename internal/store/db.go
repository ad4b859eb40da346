package store

import (
	"context"
	"database/sql"
)

// DBTX is the query surface the task store runs against. Both *sql.DB and
// *sql.Tx satisfy it, so the same store code serves standalone calls and
// calls bound to a transaction via WithTx.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}
