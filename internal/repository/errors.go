// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as the
// booking engine and handlers to distinguish between failure scenarios
// without depending on driver-specific error types. Storage errors are
// translated at this boundary: duplicate-key violations become the
// corresponding duplicate sentinel and lock wait timeouts become the
// retryable ErrLockTimeout.
package repository

import (
    "errors"

    "github.com/go-sql-driver/mysql"
)

// ErrEventNotFound is returned when the referenced event row does not
// exist.
var ErrEventNotFound = errors.New("event not found")

// ErrBookingNotFound is returned when the referenced booking row does
// not exist.
var ErrBookingNotFound = errors.New("booking not found")

// ErrWaitlistNotFound is returned when no matching waitlist entry
// exists, or when a conversion races a concurrent removal of the entry.
var ErrWaitlistNotFound = errors.New("waitlist entry not found")

// ErrDuplicateBooking is returned when a user already holds an active
// (non-cancelled) booking for the event. It is produced both by the
// explicit in-transaction check and by the unique index on active
// bookings.
var ErrDuplicateBooking = errors.New("user already has an active booking for this event")

// ErrDuplicateWaitlist is returned when a user already has a WAITING
// entry for the event.
var ErrDuplicateWaitlist = errors.New("user is already on the waitlist for this event")

// ErrInsufficientInventory is returned when fewer tickets remain than
// were requested. The caller may offer a waitlist join as a fallback.
var ErrInsufficientInventory = errors.New("not enough tickets available")

// ErrCapacityExceeded is returned when an availability increment would
// push available_tickets past capacity. It indicates a bookkeeping bug
// and should never occur in normal operation.
var ErrCapacityExceeded = errors.New("availability increment exceeds capacity")

// ErrLockTimeout is returned when a transaction waited longer than the
// configured bound for the event row lock. It is transient; callers
// may retry with backoff.
var ErrLockTimeout = errors.New("timed out waiting for event lock")

// MySQL server error numbers translated by this package.
const (
    mysqlErrDupEntry        = 1062
    mysqlErrLockWaitTimeout = 1205
    mysqlErrDeadlock        = 1213
)

// translateError maps driver errors to package sentinels. dup is the
// sentinel to return for a duplicate-key violation at this call site.
// Deadlocks are reported as lock timeouts since both are resolved the
// same way: roll back and retry.
func translateError(err error, dup error) error {
    if err == nil {
        return nil
    }
    var myErr *mysql.MySQLError
    if errors.As(err, &myErr) {
        switch myErr.Number {
        case mysqlErrDupEntry:
            if dup != nil {
                return dup
            }
        case mysqlErrLockWaitTimeout, mysqlErrDeadlock:
            return ErrLockTimeout
        }
    }
    return err
}
