// Package repository defines error types that are reused across multiple
// repositories.  These sentinel values allow the service and handler layers
// to distinguish between different failure scenarios without inspecting
// driver errors themselves.
package repository

import (
	"context"
	"database/sql/driver"
	"errors"

	"github.com/go-sql-driver/mysql"
)

var (
	// ErrEventNotFound is returned when an event row does not exist.
	ErrEventNotFound = errors.New("event not found")
	// ErrBookingNotFound is returned when a booking row does not exist,
	// including when a concurrent cancellation already removed it.
	ErrBookingNotFound = errors.New("booking not found")
	// ErrInsufficientSeats is returned by the guarded seat decrement when
	// the event no longer has enough available seats.
	ErrInsufficientSeats = errors.New("insufficient seats")
	// ErrEmailExists is returned when registering an email twice.
	ErrEmailExists = errors.New("email already exists")
	// ErrNoTx is returned by locking reads called outside a transaction.
	ErrNoTx = errors.New("locking read requires a transaction")
	// ErrOutOfRange is returned when a value does not fit its column.
	ErrOutOfRange = errors.New("value out of range for column")
)

// MySQL server error numbers the repositories react to.
const (
	errDupEntry        = 1062
	errOutOfRange      = 1264
	errLockWaitTimeout = 1205
	errDeadlock        = 1213
	errNoReferencedRow = 1452
)

// IsTransient reports whether err is a failure that is safe to retry from
// scratch: lock wait timeouts, deadlocks, deadline expiry and broken
// connections.  The transaction that produced it has been rolled back.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		return me.Number == errLockWaitTimeout || me.Number == errDeadlock
	}
	return errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, driver.ErrBadConn) ||
		errors.Is(err, mysql.ErrInvalidConn)
}

func isMySQLError(err error, number uint16) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == number
}

func isDuplicate(err error) bool { return isMySQLError(err, errDupEntry) }

func isMissingReference(err error) bool { return isMySQLError(err, errNoReferencedRow) }

func isOutOfRange(err error) bool { return isMySQLError(err, errOutOfRange) }
