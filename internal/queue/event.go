// Package queue defines message payloads exchanged over the message broker.
package queue

// Queue names double as the event-type tag passed to the notification
// port.  Each queue carries one payload type.
const (
    QueueBookingConfirmed = "booking.confirmed"
    QueueBookingCancelled = "booking.cancelled"
    QueueWaitlistPromoted = "waitlist.promoted"
)

// BookingConfirmedEvent is published when a booking is successfully
// confirmed and capacity has been deducted.  It contains enough
// information for downstream consumers to notify the user without
// querying the primary database.
type BookingConfirmedEvent struct {
    BookingID  uint64 `json:"booking_id"`
    UserID     uint64 `json:"user_id"`
    EventID    uint64 `json:"event_id"`
    EventName  string `json:"event_name"`
    Tickets    uint32 `json:"tickets"`
    TotalCents uint64 `json:"total_cents"`
    BookedAt   string `json:"booked_at"`
}

// BookingCancelledEvent is published after a cancellation commits and
// the tickets have been returned to the pool.
type BookingCancelledEvent struct {
    BookingID   uint64 `json:"booking_id"`
    UserID      uint64 `json:"user_id"`
    EventID     uint64 `json:"event_id"`
    EventName   string `json:"event_name"`
    Tickets     uint32 `json:"tickets"`
    CancelledAt string `json:"cancelled_at"`
}

// WaitlistPromotedEvent is published for each waitlist entry the
// promoter converted into a confirmed booking.
type WaitlistPromotedEvent struct {
    WaitlistID uint64 `json:"waitlist_id"`
    BookingID  uint64 `json:"booking_id"`
    UserID     uint64 `json:"user_id"`
    EventID    uint64 `json:"event_id"`
    EventName  string `json:"event_name"`
    Tickets    uint32 `json:"tickets"`
    PromotedAt string `json:"promoted_at"`
}
