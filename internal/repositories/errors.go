package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
)

// Storage failures every Store implementation reports. Services match them
// with errors.Is; drivers never leak their own error types upward.
var (
	ErrNotFound      = errors.New("requested record not found")
	ErrDatabaseError = errors.New("database error")
	ErrDuplicateKey  = errors.New("duplicate key value violates unique constraint")

	// ErrPersistenceConflict means a stale version or a serialization
	// failure. The caller may retry the whole transaction.
	ErrPersistenceConflict = errors.New("record was modified concurrently")
)

// SQLExecutor is satisfied by *sql.DB and *sql.Tx.
type SQLExecutor interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
}

// scanner lets one scan helper serve *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...interface{}) error
}

// mapPQError translates driver errors into the set above. action names the
// operation for the wrapped message.
func mapPQError(err error, action string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code.Name() {
		case "unique_violation":
			return fmt.Errorf("%w: %s (constraint: %s)", ErrDuplicateKey, action, pqErr.Constraint)
		case "serialization_failure", "deadlock_detected":
			return fmt.Errorf("%w: %s: %v", ErrPersistenceConflict, action, pqErr.Message)
		case "foreign_key_violation":
			return fmt.Errorf("%w: %s: referenced record missing (constraint: %s)", ErrNotFound, action, pqErr.Constraint)
		}
	}
	return fmt.Errorf("%w: %s: %v", ErrDatabaseError, action, err)
}

// checkVersioned turns "zero rows updated" into a conflict or a not-found.
func checkVersioned(ctx context.Context, ex SQLExecutor, res sql.Result, table, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: rows affected on %s: %v", ErrDatabaseError, table, err)
	}
	if n == 1 {
		return nil
	}
	var exists bool
	if err := ex.QueryRowContext(ctx, "SELECT EXISTS(SELECT 1 FROM "+table+" WHERE id = $1)", id).Scan(&exists); err != nil {
		return mapPQError(err, "checking "+table+" existence")
	}
	if !exists {
		return ErrNotFound
	}
	return fmt.Errorf("%w: %s %s was updated by someone else", ErrPersistenceConflict, table, id)
}
