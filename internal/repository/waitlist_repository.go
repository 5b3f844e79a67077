package repository

import (
    "context"
    "database/sql"
    "errors"
    "time"

    "github.com/evently/ticket-booking/internal/model"
)

// WaitlistRepo provides data access to waitlist entries.  Promotion
// reads run inside the same transaction as the cancellation that freed
// capacity, so the FIFO scan takes row locks to keep entries stable
// while they are converted.
type WaitlistRepo struct {
    db *sql.DB
}

// NewWaitlistRepo returns a new WaitlistRepo bound to the given
// database.
func NewWaitlistRepo(db *sql.DB) *WaitlistRepo { return &WaitlistRepo{db: db} }

const waitlistColumns = `id, user_id, event_id, number_of_tickets, status, joined_at, notified_at`

func scanWaitlist(row interface{ Scan(...any) error }) (*model.WaitlistEntry, error) {
    var w model.WaitlistEntry
    var notified sql.NullTime
    err := row.Scan(&w.ID, &w.UserID, &w.EventID, &w.NumberOfTickets, &w.Status, &w.JoinedAt, &notified)
    if err != nil {
        return nil, err
    }
    if notified.Valid {
        t := notified.Time
        w.NotifiedAt = &t
    }
    return &w, nil
}

// Create inserts a WAITING entry.  The unique index on waiting entries
// per (event, user) turns a concurrent duplicate join into
// ErrDuplicateWaitlist.  The generated ID and joined_at are populated
// on the passed struct.
func (r *WaitlistRepo) Create(ctx context.Context, w *model.WaitlistEntry) error {
    const q = `INSERT INTO waitlists (user_id, event_id, number_of_tickets, status)
               VALUES (?, ?, ?, ?)`
    res, err := r.db.ExecContext(ctx, q, w.UserID, w.EventID, w.NumberOfTickets, model.WaitlistWaiting)
    if err != nil {
        return translateError(err, ErrDuplicateWaitlist)
    }
    id, err := res.LastInsertId()
    if err != nil {
        return err
    }
    w.ID = uint64(id)
    created, err := scanWaitlist(r.db.QueryRowContext(ctx,
        `SELECT `+waitlistColumns+` FROM waitlists WHERE id = ?`, w.ID))
    if err != nil {
        return err
    }
    *w = *created
    return nil
}

// WaitingByUserAndEvent returns the user's WAITING entry for an event,
// or ErrWaitlistNotFound when there is none.
func (r *WaitlistRepo) WaitingByUserAndEvent(ctx context.Context, userID, eventID uint64) (*model.WaitlistEntry, error) {
    const q = `SELECT ` + waitlistColumns + `
               FROM waitlists
               WHERE user_id = ? AND event_id = ? AND status = ?
               LIMIT 1`
    w, err := scanWaitlist(r.db.QueryRowContext(ctx, q, userID, eventID, model.WaitlistWaiting))
    if err != nil {
        if errors.Is(err, sql.ErrNoRows) {
            return nil, ErrWaitlistNotFound
        }
        return nil, err
    }
    return w, nil
}

// WaitingByEventTx returns all WAITING entries for an event in strict
// join order (joined_at, then id as a tiebreaker), locked FOR UPDATE so
// that concurrent promoters or removals serialize on them.
func (r *WaitlistRepo) WaitingByEventTx(ctx context.Context, tx *sql.Tx, eventID uint64) ([]model.WaitlistEntry, error) {
    const q = `SELECT ` + waitlistColumns + `
               FROM waitlists
               WHERE event_id = ? AND status = ?
               ORDER BY joined_at ASC, id ASC
               FOR UPDATE`
    rows, err := tx.QueryContext(ctx, q, eventID, model.WaitlistWaiting)
    if err != nil {
        return nil, translateError(err, nil)
    }
    defer rows.Close()
    entries := make([]model.WaitlistEntry, 0)
    for rows.Next() {
        w, err := scanWaitlist(rows)
        if err != nil {
            return nil, err
        }
        entries = append(entries, *w)
    }
    if err := rows.Err(); err != nil {
        return nil, err
    }
    return entries, nil
}

// MarkConvertedTx transitions a WAITING entry to CONVERTED and stamps
// notified_at.  The status guard makes the conversion exactly-once: if
// the entry was concurrently removed or converted, no row matches and
// ErrWaitlistNotFound is returned so the promoter can skip it.
func (r *WaitlistRepo) MarkConvertedTx(ctx context.Context, tx *sql.Tx, id uint64) error {
    const q = `UPDATE waitlists
               SET status = ?, notified_at = UTC_TIMESTAMP()
               WHERE id = ? AND status = ?`
    res, err := tx.ExecContext(ctx, q, model.WaitlistConverted, id, model.WaitlistWaiting)
    if err != nil {
        return translateError(err, nil)
    }
    affected, err := res.RowsAffected()
    if err != nil {
        return err
    }
    if affected == 0 {
        return ErrWaitlistNotFound
    }
    return nil
}

// DeleteWaiting removes the user's WAITING entry for an event (leaving
// the waitlist).  Converted and expired entries are kept for history.
// Returns ErrWaitlistNotFound when the user has no WAITING entry.
func (r *WaitlistRepo) DeleteWaiting(ctx context.Context, userID, eventID uint64) error {
    res, err := r.db.ExecContext(ctx,
        `DELETE FROM waitlists WHERE user_id = ? AND event_id = ? AND status = ?`,
        userID, eventID, model.WaitlistWaiting)
    if err != nil {
        return err
    }
    affected, err := res.RowsAffected()
    if err != nil {
        return err
    }
    if affected == 0 {
        return ErrWaitlistNotFound
    }
    return nil
}

// ListByUser returns the user's waitlist entries, newest first.
func (r *WaitlistRepo) ListByUser(ctx context.Context, userID uint64, limit, offset int) ([]model.WaitlistEntry, error) {
    const q = `SELECT ` + waitlistColumns + `
               FROM waitlists
               WHERE user_id = ?
               ORDER BY joined_at DESC
               LIMIT ? OFFSET ?`
    rows, err := r.db.QueryContext(ctx, q, userID, limit, offset)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    entries := make([]model.WaitlistEntry, 0)
    for rows.Next() {
        w, err := scanWaitlist(rows)
        if err != nil {
            return nil, err
        }
        entries = append(entries, *w)
    }
    if err := rows.Err(); err != nil {
        return nil, err
    }
    return entries, nil
}

// WaitlistStats aggregates an event's WAITING entries for display.
type WaitlistStats struct {
    TotalWaiting       uint64 `json:"total_waiting"`
    TotalTicketsNeeded uint64 `json:"total_tickets_needed"`
}

// Stats returns the number of WAITING entries and the sum of tickets
// they request for an event.
func (r *WaitlistRepo) Stats(ctx context.Context, eventID uint64) (*WaitlistStats, error) {
    const q = `SELECT COUNT(id), COALESCE(SUM(number_of_tickets), 0)
               FROM waitlists
               WHERE event_id = ? AND status = ?`
    var st WaitlistStats
    err := r.db.QueryRowContext(ctx, q, eventID, model.WaitlistWaiting).Scan(
        &st.TotalWaiting, &st.TotalTicketsNeeded)
    if err != nil {
        return nil, err
    }
    return &st, nil
}

// EventsWithWaiting returns the IDs of events that currently have both
// free tickets and WAITING entries.  The background sweep uses this to
// find promotion work left behind by crashed cancellations or operator
// capacity changes.
func (r *WaitlistRepo) EventsWithWaiting(ctx context.Context) ([]uint64, error) {
    const q = `SELECT DISTINCT w.event_id
               FROM waitlists w
               JOIN events e ON e.id = w.event_id
               WHERE w.status = ? AND e.available_tickets > 0 AND e.is_active = TRUE
                 AND e.start_date > UTC_TIMESTAMP()`
    rows, err := r.db.QueryContext(ctx, q, model.WaitlistWaiting)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    var ids []uint64
    for rows.Next() {
        var id uint64
        if err := rows.Scan(&id); err != nil {
            return nil, err
        }
        ids = append(ids, id)
    }
    if err := rows.Err(); err != nil {
        return nil, err
    }
    return ids, nil
}

// ExpireNotified marks NOTIFIED entries older than the cutoff as
// EXPIRED and returns how many were expired.
func (r *WaitlistRepo) ExpireNotified(ctx context.Context, before time.Time) (int64, error) {
    const q = `UPDATE waitlists
               SET status = ?
               WHERE status = ? AND notified_at IS NOT NULL AND notified_at < ?`
    res, err := r.db.ExecContext(ctx, q, model.WaitlistExpired, model.WaitlistNotified, before.UTC())
    if err != nil {
        return 0, err
    }
    return res.RowsAffected()
}
