package model

import "time"

// Waitlist entry status values.  WAITING entries are eligible for
// promotion.  CONVERTED means the promoter created a confirmed booking
// on the entry's behalf.  NOTIFIED marks entries informed out-of-band
// that capacity exists; stale NOTIFIED entries are swept to EXPIRED.
const (
    WaitlistWaiting   = "WAITING"
    WaitlistNotified  = "NOTIFIED"
    WaitlistConverted = "CONVERTED"
    WaitlistExpired   = "EXPIRED"
)

// WaitlistEntry queues a user for tickets on a sold-out event.  At most
// one WAITING entry may exist per (user, event) pair.  Promotion is
// FIFO by JoinedAt within an event.
type WaitlistEntry struct {
    ID              uint64     // waitlists.id
    UserID          uint64     // waitlists.user_id
    EventID         uint64     // waitlists.event_id
    NumberOfTickets uint32     // waitlists.number_of_tickets, always > 0
    Status          string     // waitlists.status
    JoinedAt        time.Time  // waitlists.joined_at
    NotifiedAt      *time.Time // waitlists.notified_at (nullable)
}
