package gateway

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

var (
	// ErrSchemaMismatch means the store does not recognize a column or
	// relation the caller used, typically on a partially migrated schema.
	ErrSchemaMismatch = errors.New("schema mismatch")
	// ErrTimeout means the call did not complete within the gateway timeout.
	ErrTimeout = errors.New("gateway timeout")
	// ErrNotFound means no row matched.
	ErrNotFound = errors.New("not found")
)

// Postgres SQLSTATE codes and PostgREST codes that indicate a schema gap.
var schemaMismatchCodes = map[string]bool{
	"42703":    true, // undefined_column
	"42P01":    true, // undefined_table
	"PGRST204": true, // column not found in schema cache
	"PGRST200": true, // relationship not found
}

var schemaMismatchMessages = []string{
	"no such column",
	"has no column named",
	"no such table",
	"could not find the",
}

// classify wraps err with the sentinel describing its kind. The original
// error stays in the chain.
func classify(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, ErrSchemaMismatch), errors.Is(err, ErrTimeout), errors.Is(err, ErrNotFound):
		return err
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%w: %w", ErrTimeout, err)
	case errors.Is(err, gorm.ErrRecordNotFound):
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	case isSchemaMismatch(err):
		return fmt.Errorf("%w: %w", ErrSchemaMismatch, err)
	}
	return err
}

func isSchemaMismatch(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return schemaMismatchCodes[pgErr.Code]
	}
	msg := strings.ToLower(err.Error())
	for _, needle := range schemaMismatchMessages {
		if strings.Contains(msg, needle) {
			return true
		}
	}
	return false
}

// expired marks err as a timeout when the call's own deadline passed. Some
// drivers report a canceled call with their own error instead of ctx.Err().
func expired(callCtx context.Context, err error) error {
	if err == nil || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	if errors.Is(callCtx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", ErrTimeout, err)
	}
	return err
}

// kindOf labels err for metrics.
func kindOf(err error) string {
	switch {
	case errors.Is(err, ErrSchemaMismatch):
		return "schema_mismatch"
	case errors.Is(err, ErrTimeout):
		return "timeout"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, context.Canceled):
		return "canceled"
	default:
		return "other"
	}
}

// retryable reports whether a read may be attempted again.
func retryable(err error) bool {
	switch {
	case errors.Is(err, ErrSchemaMismatch), errors.Is(err, ErrNotFound), errors.Is(err, context.Canceled):
		return false
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		// Class 08 connection exceptions, 40 transaction rollbacks, 57P0x shutdowns.
		return strings.HasPrefix(pgErr.Code, "08") || strings.HasPrefix(pgErr.Code, "40") || strings.HasPrefix(pgErr.Code, "57P0")
	}
	return true
}
