package repository

import (
    "context"
    "database/sql"
    "errors"

    "github.com/evently/ticket-booking/internal/model"
)

// EventRepo provides read and create access to events.  All inventory
// mutations go through InventoryStore instead; this repository never
// touches available_tickets after creation.
type EventRepo struct {
    db *sql.DB
}

// NewEventRepo returns a new EventRepo bound to the given database.
func NewEventRepo(db *sql.DB) *EventRepo { return &EventRepo{db: db} }

const eventColumns = `id, name, description, location, start_date, end_date,
                      price_cents, capacity, available_tickets, organizer_id,
                      is_active, created_at, updated_at`

func scanEvent(row interface{ Scan(...any) error }) (*model.Event, error) {
    var ev model.Event
    err := row.Scan(
        &ev.ID, &ev.Name, &ev.Description, &ev.Location, &ev.StartDate, &ev.EndDate,
        &ev.PriceCents, &ev.Capacity, &ev.AvailableTickets, &ev.OrganizerID,
        &ev.IsActive, &ev.CreatedAt, &ev.UpdatedAt,
    )
    if err != nil {
        return nil, err
    }
    return &ev, nil
}

// Create inserts a new event.  AvailableTickets starts equal to
// Capacity.  The generated ID and timestamps are populated on the
// passed struct.
func (r *EventRepo) Create(ctx context.Context, ev *model.Event) error {
    const q = `INSERT INTO events
               (name, description, location, start_date, end_date, price_cents,
                capacity, available_tickets, organizer_id, is_active)
               VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
    res, err := r.db.ExecContext(ctx, q,
        ev.Name, ev.Description, ev.Location,
        ev.StartDate.UTC(), ev.EndDate.UTC(), ev.PriceCents,
        ev.Capacity, ev.Capacity, ev.OrganizerID, ev.IsActive,
    )
    if err != nil {
        return translateError(err, nil)
    }
    id, err := res.LastInsertId()
    if err != nil {
        return err
    }
    ev.ID = uint64(id)
    // Query back the full row to populate timestamps and defaults.
    created, err := r.GetByID(ctx, ev.ID)
    if err != nil {
        return err
    }
    *ev = *created
    return nil
}

// GetByID loads a single event.  Returns ErrEventNotFound when no row
// exists.
func (r *EventRepo) GetByID(ctx context.Context, id uint64) (*model.Event, error) {
    ev, err := scanEvent(r.db.QueryRowContext(ctx,
        `SELECT `+eventColumns+` FROM events WHERE id = ?`, id))
    if err != nil {
        if errors.Is(err, sql.ErrNoRows) {
            return nil, ErrEventNotFound
        }
        return nil, err
    }
    return ev, nil
}

// ListUpcoming returns active events whose start date is in the future,
// soonest first.
func (r *EventRepo) ListUpcoming(ctx context.Context, limit, offset int) ([]model.Event, error) {
    const q = `SELECT ` + eventColumns + `
               FROM events
               WHERE is_active = TRUE AND start_date > UTC_TIMESTAMP()
               ORDER BY start_date ASC
               LIMIT ? OFFSET ?`
    rows, err := r.db.QueryContext(ctx, q, limit, offset)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    events := make([]model.Event, 0)
    for rows.Next() {
        ev, err := scanEvent(rows)
        if err != nil {
            return nil, err
        }
        events = append(events, *ev)
    }
    if err := rows.Err(); err != nil {
        return nil, err
    }
    return events, nil
}
