package repository

import (
	"context"
	"database/sql"

	"github.com/ge-entretec/debours/internal/infrastructure/persistence/sqlite"
)

// executor interface covers both *sql.DB and *sql.Tx
type executor interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// executorFor returns the transaction opened by the transaction manager
// when one is carried by the context, otherwise the plain connection
func executorFor(ctx context.Context, db *sql.DB) executor {
	if tx := sqlite.TxFromContext(ctx); tx != nil {
		return tx
	}
	return db
}
