package store

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/AdamBeresnev/op-bracket/internal/bracket"
	"github.com/mattn/go-sqlite3"
)

// WrapErr turns driver errors into engine kinds where the caller can act on them:
// missing rows are not_found, lock contention is stale_state and therefore retried.
func WrapErr(err error, action string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return bracket.Errorf(bracket.KindNotFound, "%s", action)
	}
	var se sqlite3.Error
	if errors.As(err, &se) && (se.Code == sqlite3.ErrBusy || se.Code == sqlite3.ErrLocked) {
		return bracket.Errorf(bracket.KindStaleState, "%s: %v", action, err)
	}
	return fmt.Errorf("failed to %s: %w", action, err)
}

// checkVersion reports a lost optimistic update as stale_state.
func checkVersion(res sql.Result, action string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return WrapErr(err, action)
	}
	if n == 0 {
		return bracket.Errorf(bracket.KindStaleState, "%s: document changed concurrently", action)
	}
	return nil
}
