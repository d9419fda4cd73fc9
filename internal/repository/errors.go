package repository

import (
	"database/sql"
	"errors"
	"fmt"
)

var (
	// ErrNoRows means a write matched no row inside the caller's access scope:
	// the row is missing or belongs to somebody else.
	ErrNoRows = errors.New("no matching row in scope")
	// ErrDuplicate means a unique constraint rejected the write
	ErrDuplicate = errors.New("duplicate row")
)

// requireAffected turns a zero-row write into ErrNoRows
func requireAffected(result sql.Result, what string) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected for %s: %w", what, err)
	}
	if n == 0 {
		return ErrNoRows
	}
	return nil
}
