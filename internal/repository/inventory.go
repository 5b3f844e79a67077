package repository

import (
    "context"
    "database/sql"
    "errors"
    "fmt"
    "time"

    "github.com/evently/ticket-booking/internal/model"
)

// InventoryStore serializes all mutations of an event's ticket
// inventory.  WithEventLock opens a transaction, takes an exclusive row
// lock on the events row and runs the supplied function against the
// locked snapshot; two concurrent callers racing for the last ticket
// serialize at this lock, and the loser observes the already-decremented
// availability.  The conditional UPDATE in DecrementAvailabilityTx is a
// second, independent guard: even outside a row-locked transaction the
// database's atomic row-update semantics cannot oversell.
type InventoryStore struct {
    db       *sql.DB
    lockWait time.Duration // bound on row lock waits; 0 keeps the server default
}

// NewInventoryStore returns an InventoryStore bound to the given
// database.  lockWait bounds how long a transaction may block on the
// event row lock before failing with ErrLockTimeout.
func NewInventoryStore(db *sql.DB, lockWait time.Duration) *InventoryStore {
    return &InventoryStore{db: db, lockWait: lockWait}
}

// DB exposes the underlying handle for callers that manage their own
// transactions.
func (s *InventoryStore) DB() *sql.DB { return s.db }

// WithEventLock runs fn inside a transaction holding an exclusive lock
// on the event row.  The locked Event snapshot passed to fn reflects
// committed state at lock acquisition.  The transaction commits when fn
// returns nil and rolls back on any error; no partial state is ever
// observable.  Returns ErrEventNotFound when the event does not exist
// and ErrLockTimeout when the row lock could not be acquired within the
// configured bound.
func (s *InventoryStore) WithEventLock(ctx context.Context, eventID uint64, fn func(tx *sql.Tx, ev *model.Event) error) error {
    tx, err := s.db.BeginTx(ctx, nil)
    if err != nil {
        return err
    }
    committed := false
    defer func() {
        if !committed {
            _ = tx.Rollback()
        }
    }()
    if s.lockWait > 0 {
        secs := int(s.lockWait / time.Second)
        if secs < 1 {
            secs = 1
        }
        // The value is an integer from config, never user input.
        if _, err := tx.ExecContext(ctx, fmt.Sprintf("SET SESSION innodb_lock_wait_timeout = %d", secs)); err != nil {
            return err
        }
    }
    ev, err := s.lockEventTx(ctx, tx, eventID)
    if err != nil {
        return err
    }
    if err := fn(tx, ev); err != nil {
        return err
    }
    if err := tx.Commit(); err != nil {
        return translateError(err, nil)
    }
    committed = true
    return nil
}

// lockEventTx selects the event row FOR UPDATE within the transaction.
func (s *InventoryStore) lockEventTx(ctx context.Context, tx *sql.Tx, eventID uint64) (*model.Event, error) {
    const q = `SELECT id, name, description, location, start_date, end_date,
                      price_cents, capacity, available_tickets, organizer_id,
                      is_active, created_at, updated_at
               FROM events WHERE id = ? FOR UPDATE`
    var ev model.Event
    err := tx.QueryRowContext(ctx, q, eventID).Scan(
        &ev.ID, &ev.Name, &ev.Description, &ev.Location, &ev.StartDate, &ev.EndDate,
        &ev.PriceCents, &ev.Capacity, &ev.AvailableTickets, &ev.OrganizerID,
        &ev.IsActive, &ev.CreatedAt, &ev.UpdatedAt,
    )
    if err != nil {
        if errors.Is(err, sql.ErrNoRows) {
            return nil, ErrEventNotFound
        }
        return nil, translateError(err, nil)
    }
    return &ev, nil
}

// DecrementAvailabilityTx atomically subtracts n tickets from the
// event's availability.  The WHERE clause guards against overselling:
// when fewer than n tickets remain, no row matches and
// ErrInsufficientInventory is returned without mutation.
func (s *InventoryStore) DecrementAvailabilityTx(ctx context.Context, tx *sql.Tx, eventID uint64, n uint32) error {
    const q = `UPDATE events
               SET available_tickets = available_tickets - ?
               WHERE id = ? AND available_tickets >= ?`
    res, err := tx.ExecContext(ctx, q, n, eventID, n)
    if err != nil {
        return translateError(err, nil)
    }
    affected, err := res.RowsAffected()
    if err != nil {
        return err
    }
    if affected == 0 {
        return ErrInsufficientInventory
    }
    return nil
}

// IncrementAvailabilityTx returns n tickets to the pool, used on
// cancellation.  The capacity bound in the WHERE clause is a sanity
// check; it cannot trip unless the bookkeeping invariant was already
// broken, in which case ErrCapacityExceeded aborts the transaction
// rather than papering over the corruption.
func (s *InventoryStore) IncrementAvailabilityTx(ctx context.Context, tx *sql.Tx, eventID uint64, n uint32) error {
    const q = `UPDATE events
               SET available_tickets = available_tickets + ?
               WHERE id = ? AND available_tickets + ? <= capacity`
    res, err := tx.ExecContext(ctx, q, n, eventID, n)
    if err != nil {
        return translateError(err, nil)
    }
    affected, err := res.RowsAffected()
    if err != nil {
        return err
    }
    if affected == 0 {
        return ErrCapacityExceeded
    }
    return nil
}

// SavepointTx creates a named savepoint inside the transaction.  The
// waitlist promoter uses savepoints to isolate individual conversions so
// that one failed entry does not abort promotion of the rest.
func (s *InventoryStore) SavepointTx(ctx context.Context, tx *sql.Tx, name string) error {
    _, err := tx.ExecContext(ctx, "SAVEPOINT "+name)
    return err
}

// RollbackToSavepointTx undoes all statements executed since the named
// savepoint without aborting the enclosing transaction.
func (s *InventoryStore) RollbackToSavepointTx(ctx context.Context, tx *sql.Tx, name string) error {
    _, err := tx.ExecContext(ctx, "ROLLBACK TO SAVEPOINT "+name)
    return err
}
