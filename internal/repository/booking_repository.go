package repository

import (
    "context"
    "database/sql"
    "errors"

    "github.com/evently/ticket-booking/internal/model"
)

// BookingRepo provides data access to bookings.  Mutating methods carry
// a Tx suffix and run inside a caller-owned transaction so that status
// changes, availability updates and waitlist conversions commit
// atomically.  All timestamps are stored in UTC.
type BookingRepo struct {
    db *sql.DB
}

// NewBookingRepo returns a new BookingRepo bound to the given database.
func NewBookingRepo(db *sql.DB) *BookingRepo { return &BookingRepo{db: db} }

const bookingColumns = `id, user_id, event_id, number_of_tickets, total_cents,
                        status, booked_at, updated_at`

func scanBooking(row interface{ Scan(...any) error }) (*model.Booking, error) {
    var b model.Booking
    err := row.Scan(
        &b.ID, &b.UserID, &b.EventID, &b.NumberOfTickets, &b.TotalCents,
        &b.Status, &b.BookedAt, &b.UpdatedAt,
    )
    if err != nil {
        return nil, err
    }
    return &b, nil
}

// CreateTx inserts a booking within the provided transaction and
// populates the generated ID and timestamps on the passed struct.  The
// unique index on active bookings turns a concurrent duplicate into
// ErrDuplicateBooking.  The caller must commit or roll back.
func (r *BookingRepo) CreateTx(ctx context.Context, tx *sql.Tx, b *model.Booking) error {
    const q = `INSERT INTO bookings
               (user_id, event_id, number_of_tickets, total_cents, status)
               VALUES (?, ?, ?, ?, ?)`
    res, err := tx.ExecContext(ctx, q, b.UserID, b.EventID, b.NumberOfTickets, b.TotalCents, b.Status)
    if err != nil {
        return translateError(err, ErrDuplicateBooking)
    }
    id, err := res.LastInsertId()
    if err != nil {
        return err
    }
    b.ID = uint64(id)
    created, err := scanBooking(tx.QueryRowContext(ctx,
        `SELECT `+bookingColumns+` FROM bookings WHERE id = ?`, b.ID))
    if err != nil {
        return err
    }
    *b = *created
    return nil
}

// GetByID loads a single booking.  Returns ErrBookingNotFound when no
// row exists.
func (r *BookingRepo) GetByID(ctx context.Context, id uint64) (*model.Booking, error) {
    b, err := scanBooking(r.db.QueryRowContext(ctx,
        `SELECT `+bookingColumns+` FROM bookings WHERE id = ?`, id))
    if err != nil {
        if errors.Is(err, sql.ErrNoRows) {
            return nil, ErrBookingNotFound
        }
        return nil, err
    }
    return b, nil
}

// GetByIDForUpdateTx loads a booking with an exclusive row lock inside
// the transaction.  The cancellation path uses this to re-check status
// under the lock so that two concurrent cancellations of the same
// booking cannot both return capacity.
func (r *BookingRepo) GetByIDForUpdateTx(ctx context.Context, tx *sql.Tx, id uint64) (*model.Booking, error) {
    b, err := scanBooking(tx.QueryRowContext(ctx,
        `SELECT `+bookingColumns+` FROM bookings WHERE id = ? FOR UPDATE`, id))
    if err != nil {
        if errors.Is(err, sql.ErrNoRows) {
            return nil, ErrBookingNotFound
        }
        return nil, translateError(err, nil)
    }
    return b, nil
}

// ActiveByUserAndEvent returns the user's active (non-cancelled)
// booking for an event, or ErrBookingNotFound when there is none.  Used
// as a fail-fast duplicate check before any lock is taken.
func (r *BookingRepo) ActiveByUserAndEvent(ctx context.Context, userID, eventID uint64) (*model.Booking, error) {
    return r.activeByUserAndEvent(ctx, r.db.QueryRowContext, userID, eventID)
}

// ActiveByUserAndEventTx is the transactional variant used for the
// authoritative re-check under the event row lock.
func (r *BookingRepo) ActiveByUserAndEventTx(ctx context.Context, tx *sql.Tx, userID, eventID uint64) (*model.Booking, error) {
    return r.activeByUserAndEvent(ctx, tx.QueryRowContext, userID, eventID)
}

func (r *BookingRepo) activeByUserAndEvent(ctx context.Context, queryRow func(context.Context, string, ...any) *sql.Row, userID, eventID uint64) (*model.Booking, error) {
    const q = `SELECT ` + bookingColumns + `
               FROM bookings
               WHERE user_id = ? AND event_id = ? AND status <> ?
               LIMIT 1`
    b, err := scanBooking(queryRow(ctx, q, userID, eventID, model.BookingCancelled))
    if err != nil {
        if errors.Is(err, sql.ErrNoRows) {
            return nil, ErrBookingNotFound
        }
        return nil, err
    }
    return b, nil
}

// UpdateStatusTx sets the booking status within the provided
// transaction.  Returns ErrBookingNotFound when the row does not exist.
func (r *BookingRepo) UpdateStatusTx(ctx context.Context, tx *sql.Tx, id uint64, status string) error {
    res, err := tx.ExecContext(ctx,
        `UPDATE bookings SET status = ? WHERE id = ?`, status, id)
    if err != nil {
        return translateError(err, nil)
    }
    affected, err := res.RowsAffected()
    if err != nil {
        return err
    }
    if affected == 0 {
        return ErrBookingNotFound
    }
    return nil
}

// ListByUser returns the user's bookings, newest first.
func (r *BookingRepo) ListByUser(ctx context.Context, userID uint64, limit, offset int) ([]model.Booking, error) {
    const q = `SELECT ` + bookingColumns + `
               FROM bookings
               WHERE user_id = ?
               ORDER BY booked_at DESC
               LIMIT ? OFFSET ?`
    return r.list(ctx, q, userID, limit, offset)
}

// ListByEvent returns an event's bookings, newest first.
func (r *BookingRepo) ListByEvent(ctx context.Context, eventID uint64, limit, offset int) ([]model.Booking, error) {
    const q = `SELECT ` + bookingColumns + `
               FROM bookings
               WHERE event_id = ?
               ORDER BY booked_at DESC
               LIMIT ? OFFSET ?`
    return r.list(ctx, q, eventID, limit, offset)
}

func (r *BookingRepo) list(ctx context.Context, query string, args ...any) ([]model.Booking, error) {
    rows, err := r.db.QueryContext(ctx, query, args...)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    bookings := make([]model.Booking, 0)
    for rows.Next() {
        b, err := scanBooking(rows)
        if err != nil {
            return nil, err
        }
        bookings = append(bookings, *b)
    }
    if err := rows.Err(); err != nil {
        return nil, err
    }
    return bookings, nil
}
