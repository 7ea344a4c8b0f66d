package postgres

import (
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"

	"guestbook-board/internal/domain"

	"github.com/lib/pq"
)

const (
	pqUniqueViolation   = "23505"
	pqOutOfRange        = "22003"
	pqDuplicateTable    = "42P07"
	pqDuplicateObject   = "42710"
	pqTooManyConns      = "53300"
	pqAdminShutdown     = "57P01"
	pqCrashShutdown     = "57P02"
	pqCannotConnectNow  = "57P03"
	pqConnectionFailure = "08"
)

// IsUniqueViolation checks if an error is a PostgreSQL unique constraint violation
// If constraint is empty, it returns true for any unique violation
// If constraint is specified, it only returns true for that specific constraint
func IsUniqueViolation(err error, constraint string) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return false
	}

	if string(pqErr.Code) != pqUniqueViolation {
		return false
	}

	if constraint == "" {
		return true
	}

	return pqErr.Constraint == constraint
}

// IsConcurrentDDL reports errors raised when another session created the same
// table or index between our IF NOT EXISTS check and the catalog insert
func IsConcurrentDDL(err error) bool {
	if IsUniqueViolation(err, "") {
		return true
	}

	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return false
	}
	return pqErr.Code == pqDuplicateTable || pqErr.Code == pqDuplicateObject
}

// IsOutOfRange reports numeric_value_out_of_range, raised when a value does
// not fit its INTEGER column
func IsOutOfRange(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == pqOutOfRange
}

// IsConnectionError reports whether err means the database could not be reached
func IsConnectionError(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, sql.ErrConnDone) {
		return true
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		if string(pqErr.Code.Class()) == pqConnectionFailure {
			return true
		}
		switch pqErr.Code {
		case pqTooManyConns, pqAdminShutdown, pqCrashShutdown, pqCannotConnectNow:
			return true
		}
		return false
	}

	var netErr net.Error
	return errors.As(err, &netErr)
}

// classify tags connectivity failures with domain.ErrStoreUnavailable
func classify(err error) error {
	if IsConnectionError(err) {
		return fmt.Errorf("%w: %w", domain.ErrStoreUnavailable, err)
	}
	return err
}
