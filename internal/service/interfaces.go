package service

import (
    "context"
    "database/sql"
    "time"

    "github.com/evently/ticket-booking/internal/model"
    "github.com/evently/ticket-booking/internal/repository"
)

// The engine depends on narrow store interfaces rather than concrete
// repositories so that the booking protocol can be exercised against
// in-memory implementations in tests.  Transactional methods receive
// the *sql.Tx owned by InventoryStore.WithEventLock; implementations
// must only be called with the event lock held.

// InventoryStore owns the transactional capacity pool for events.
type InventoryStore interface {
    // WithEventLock runs fn in a transaction holding an exclusive lock
    // on the event row, committing on nil and rolling back on error.
    WithEventLock(ctx context.Context, eventID uint64, fn func(tx *sql.Tx, ev *model.Event) error) error
    // DecrementAvailabilityTx atomically deducts n tickets, failing
    // with repository.ErrInsufficientInventory when fewer remain.
    DecrementAvailabilityTx(ctx context.Context, tx *sql.Tx, eventID uint64, n uint32) error
    // IncrementAvailabilityTx returns n tickets to the pool, bounded
    // by capacity.
    IncrementAvailabilityTx(ctx context.Context, tx *sql.Tx, eventID uint64, n uint32) error
    // SavepointTx and RollbackToSavepointTx bracket sub-operations
    // that may fail without aborting the enclosing transaction.
    SavepointTx(ctx context.Context, tx *sql.Tx, name string) error
    RollbackToSavepointTx(ctx context.Context, tx *sql.Tx, name string) error
}

// EventStore provides validated event reads outside the lock.
type EventStore interface {
    GetByID(ctx context.Context, id uint64) (*model.Event, error)
}

// BookingStore persists bookings.
type BookingStore interface {
    CreateTx(ctx context.Context, tx *sql.Tx, b *model.Booking) error
    GetByID(ctx context.Context, id uint64) (*model.Booking, error)
    GetByIDForUpdateTx(ctx context.Context, tx *sql.Tx, id uint64) (*model.Booking, error)
    ActiveByUserAndEvent(ctx context.Context, userID, eventID uint64) (*model.Booking, error)
    ActiveByUserAndEventTx(ctx context.Context, tx *sql.Tx, userID, eventID uint64) (*model.Booking, error)
    UpdateStatusTx(ctx context.Context, tx *sql.Tx, id uint64, status string) error
    ListByUser(ctx context.Context, userID uint64, limit, offset int) ([]model.Booking, error)
    ListByEvent(ctx context.Context, eventID uint64, limit, offset int) ([]model.Booking, error)
}

// WaitlistStore persists waitlist entries.
type WaitlistStore interface {
    Create(ctx context.Context, w *model.WaitlistEntry) error
    WaitingByUserAndEvent(ctx context.Context, userID, eventID uint64) (*model.WaitlistEntry, error)
    WaitingByEventTx(ctx context.Context, tx *sql.Tx, eventID uint64) ([]model.WaitlistEntry, error)
    MarkConvertedTx(ctx context.Context, tx *sql.Tx, id uint64) error
    DeleteWaiting(ctx context.Context, userID, eventID uint64) error
    ListByUser(ctx context.Context, userID uint64, limit, offset int) ([]model.WaitlistEntry, error)
    Stats(ctx context.Context, eventID uint64) (*repository.WaitlistStats, error)
    EventsWithWaiting(ctx context.Context) ([]uint64, error)
    ExpireNotified(ctx context.Context, before time.Time) (int64, error)
}

// Locker is the advisory distributed lock used to serialize a single
// user's double-submits per event.  Acquire is non-blocking: a held
// lock yields acquired=false with a nil error.  The engine tolerates a
// nil Locker and any Locker error by falling back to the row lock
// alone, which remains the correctness boundary.
type Locker interface {
    Acquire(ctx context.Context, name string, ttl time.Duration) (token string, acquired bool, err error)
    Release(ctx context.Context, name, token string) (bool, error)
}

// NotificationPort receives domain events after commit.  Calls are
// fire-and-forget: the engine invokes Notify from a detached goroutine
// and ignores the returned error beyond logging inside the adapter.
type NotificationPort interface {
    Notify(ctx context.Context, eventType string, payload any) error
}
