package model

import "time"

// Booking status values.  A booking is created CONFIRMED once capacity
// has been deducted, and may only move to CANCELLED.  Bookings are never
// deleted; cancelled rows are retained for history.
const (
    BookingPending   = "PENDING"
    BookingConfirmed = "CONFIRMED"
    BookingCancelled = "CANCELLED"
)

// Booking records a user's ticket purchase for a single event.  A user
// may hold at most one active (non-cancelled) booking per event.
type Booking struct {
    ID              uint64    // bookings.id
    UserID          uint64    // bookings.user_id
    EventID         uint64    // bookings.event_id
    NumberOfTickets uint32    // bookings.number_of_tickets, always > 0
    TotalCents      uint64    // bookings.total_cents, price * tickets at booking time
    Status          string    // bookings.status
    BookedAt        time.Time // bookings.booked_at
    UpdatedAt       time.Time // bookings.updated_at
}

// Active reports whether the booking still counts against event
// capacity.
func (b *Booking) Active() bool {
    return b.Status == BookingConfirmed || b.Status == BookingPending
}
