package model

import "time"

// Event is a bookable event with a fixed ticket capacity.  Capacity is
// immutable after creation; AvailableTickets is the live remaining
// inventory and is the single source of truth for how many tickets can
// still be sold.  It must only be mutated inside a lock-protected
// transaction (see repository.InventoryStore).
//
// Invariant: 0 <= AvailableTickets <= Capacity, and at all times
// AvailableTickets equals Capacity minus the tickets held by active
// (non-cancelled) bookings.
type Event struct {
    ID               uint64    // events.id
    Name             string    // events.name
    Description      string    // events.description
    Location         string    // events.location
    StartDate        time.Time // events.start_date (UTC)
    EndDate          time.Time // events.end_date (UTC)
    PriceCents       uint32    // events.price_cents, price per ticket
    Capacity         uint32    // events.capacity, fixed at creation
    AvailableTickets uint32    // events.available_tickets
    OrganizerID      uint64    // events.organizer_id
    IsActive         bool      // events.is_active
    CreatedAt        time.Time // events.created_at
    UpdatedAt        time.Time // events.updated_at
}

// Bookable reports whether new bookings may be taken for the event at
// the given instant.  Inactive events and events whose start date has
// passed are closed for booking.
func (e *Event) Bookable(now time.Time) bool {
    return e.IsActive && e.StartDate.After(now)
}
