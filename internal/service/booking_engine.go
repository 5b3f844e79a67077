package service

import (
    "context"
    "database/sql"
    "errors"
    "fmt"
    "log"
    "strconv"
    "time"

    "github.com/evently/ticket-booking/internal/config"
    "github.com/evently/ticket-booking/internal/metrics"
    "github.com/evently/ticket-booking/internal/model"
    "github.com/evently/ticket-booking/internal/queue"
    "github.com/evently/ticket-booking/internal/repository"
)

// BookingEngine orchestrates booking creation and cancellation.  It is
// safe for concurrent use from many goroutines and many service
// instances: every capacity mutation happens inside
// InventoryStore.WithEventLock, which serializes writers on the event
// row.  The advisory Redis lock in front of it only absorbs a single
// user's double-submits; the engine stays correct with it disabled.
type BookingEngine struct {
    inventory InventoryStore
    events    EventStore
    bookings  BookingStore
    promoter  *WaitlistPromoter
    locker    Locker // may be nil; see Locker docs
    notifier  NotificationPort
    policy    config.BookingPolicy
}

// NewBookingEngine constructs a BookingEngine.  locker and notifier may
// be nil, in which case advisory locking and notifications are skipped.
func NewBookingEngine(inventory InventoryStore, events EventStore, bookings BookingStore, promoter *WaitlistPromoter, locker Locker, notifier NotificationPort, policy config.BookingPolicy) *BookingEngine {
    if inventory == nil || events == nil || bookings == nil || promoter == nil {
        panic("nil store passed to NewBookingEngine")
    }
    return &BookingEngine{
        inventory: inventory,
        events:    events,
        bookings:  bookings,
        promoter:  promoter,
        locker:    locker,
        notifier:  notifier,
        policy:    policy,
    }
}

// bookingLockName scopes the advisory lock to (event, user) so that
// distinct users booking the same event never contend on it.
func bookingLockName(eventID, userID uint64) string {
    return fmt.Sprintf("booking:%d:%d", eventID, userID)
}

// CreateBooking reserves tickets for a user on an event.  The checks
// before the lock exist only to fail fast without contention; the
// authoritative validation is repeated under the event row lock, where
// the availability re-check and the conditional decrement close the
// time-of-check/time-of-use gap.  On success the booking is CONFIRMED,
// capacity is deducted and a confirmation notification is dispatched
// after commit.
func (e *BookingEngine) CreateBooking(ctx context.Context, userID, eventID uint64, tickets uint32) (*model.Booking, error) {
    metrics.BookingRequests.Inc()
    if tickets == 0 {
        return nil, ErrInvalidTicketCount
    }

    // Fail-fast validation outside any lock.
    ev, err := e.events.GetByID(ctx, eventID)
    if err != nil {
        return nil, err
    }
    if !ev.Bookable(time.Now().UTC()) {
        return nil, ErrEventNotBookable
    }
    if _, err := e.bookings.ActiveByUserAndEvent(ctx, userID, eventID); err == nil {
        return nil, repository.ErrDuplicateBooking
    } else if !errors.Is(err, repository.ErrBookingNotFound) {
        return nil, err
    }
    if ev.AvailableTickets < tickets {
        metrics.InventoryRejections.Inc()
        return nil, repository.ErrInsufficientInventory
    }

    // Advisory lock on (event, user) to absorb double-submits.  A
    // Redis error here must not block bookings: log and fall through
    // to the row lock, which is the actual correctness boundary.
    if e.locker != nil {
        name := bookingLockName(eventID, userID)
        token, acquired, err := e.locker.Acquire(ctx, name, e.policy.LockTTL)
        switch {
        case err != nil:
            log.Printf("booking-engine: advisory lock unavailable, proceeding on row lock only: %v", err)
        case !acquired:
            metrics.LockContention.Inc()
            return nil, ErrBusy
        default:
            defer func() {
                if _, err := e.locker.Release(ctx, name, token); err != nil {
                    log.Printf("booking-engine: advisory lock release failed: %v", err)
                }
            }()
        }
    }

    var booking *model.Booking
    err = e.inventory.WithEventLock(ctx, eventID, func(tx *sql.Tx, ev *model.Event) error {
        if !ev.Bookable(time.Now().UTC()) {
            return ErrEventNotBookable
        }
        // Authoritative duplicate check under the row lock.
        if _, err := e.bookings.ActiveByUserAndEventTx(ctx, tx, userID, eventID); err == nil {
            return repository.ErrDuplicateBooking
        } else if !errors.Is(err, repository.ErrBookingNotFound) {
            return err
        }
        // Authoritative availability re-check plus conditional
        // decrement; either one alone prevents overselling.
        if ev.AvailableTickets < tickets {
            return repository.ErrInsufficientInventory
        }
        if err := e.inventory.DecrementAvailabilityTx(ctx, tx, eventID, tickets); err != nil {
            return err
        }
        b := &model.Booking{
            UserID:          userID,
            EventID:         eventID,
            NumberOfTickets: tickets,
            TotalCents:      uint64(ev.PriceCents) * uint64(tickets),
            Status:          model.BookingConfirmed,
        }
        if err := e.bookings.CreateTx(ctx, tx, b); err != nil {
            return err
        }
        booking = b
        metrics.AvailableTickets.WithLabelValues(strconv.FormatUint(eventID, 10)).
            Set(float64(ev.AvailableTickets - tickets))
        return nil
    })
    if err != nil {
        if errors.Is(err, repository.ErrInsufficientInventory) {
            metrics.InventoryRejections.Inc()
        }
        if errors.Is(err, repository.ErrLockTimeout) {
            metrics.LockContention.Inc()
        }
        return nil, err
    }

    metrics.BookingsConfirmed.Inc()
    e.notifyAsync(queue.QueueBookingConfirmed, queue.BookingConfirmedEvent{
        BookingID:  booking.ID,
        UserID:     booking.UserID,
        EventID:    booking.EventID,
        EventName:  ev.Name,
        Tickets:    booking.NumberOfTickets,
        TotalCents: booking.TotalCents,
        BookedAt:   booking.BookedAt.UTC().Format(time.RFC3339),
    })
    return booking, nil
}

// CancelBooking cancels a CONFIRMED booking owned by the requesting
// user (or any booking when privileged), returns its tickets to the
// pool and promotes eligible waitlist entries inside the same
// transaction, so no other actor can ever observe the freed capacity
// before the promoter has claimed its share.
func (e *BookingEngine) CancelBooking(ctx context.Context, bookingID, requestingUserID uint64, privileged bool) (*model.Booking, error) {
    b, err := e.bookings.GetByID(ctx, bookingID)
    if err != nil {
        return nil, err
    }
    if b.UserID != requestingUserID && !privileged {
        return nil, ErrForbidden
    }
    if b.Status != model.BookingConfirmed {
        return nil, ErrInvalidState
    }
    ev, err := e.events.GetByID(ctx, b.EventID)
    if err != nil {
        return nil, err
    }
    if time.Now().UTC().After(ev.StartDate.Add(-e.policy.CancelBlackout)) {
        return nil, ErrCancellationWindowClosed
    }

    var cancelled *model.Booking
    var conversions []Conversion
    err = e.inventory.WithEventLock(ctx, b.EventID, func(tx *sql.Tx, ev *model.Event) error {
        // Re-check status under the lock: a concurrent cancellation of
        // the same booking must not return capacity twice.
        locked, err := e.bookings.GetByIDForUpdateTx(ctx, tx, bookingID)
        if err != nil {
            return err
        }
        if locked.Status != model.BookingConfirmed {
            return ErrInvalidState
        }
        if err := e.bookings.UpdateStatusTx(ctx, tx, bookingID, model.BookingCancelled); err != nil {
            return err
        }
        if err := e.inventory.IncrementAvailabilityTx(ctx, tx, b.EventID, locked.NumberOfTickets); err != nil {
            return err
        }
        freed := ev.AvailableTickets + locked.NumberOfTickets
        conversions, err = e.promoter.PromoteEligibleTx(ctx, tx, ev, freed)
        if err != nil {
            return err
        }
        locked.Status = model.BookingCancelled
        cancelled = locked
        remaining := freed
        for _, c := range conversions {
            remaining -= c.Booking.NumberOfTickets
        }
        metrics.AvailableTickets.WithLabelValues(strconv.FormatUint(b.EventID, 10)).
            Set(float64(remaining))
        return nil
    })
    if err != nil {
        return nil, err
    }

    metrics.BookingsCancelled.Inc()
    e.notifyAsync(queue.QueueBookingCancelled, queue.BookingCancelledEvent{
        BookingID:   cancelled.ID,
        UserID:      cancelled.UserID,
        EventID:     cancelled.EventID,
        EventName:   ev.Name,
        Tickets:     cancelled.NumberOfTickets,
        CancelledAt: time.Now().UTC().Format(time.RFC3339),
    })
    e.promoter.NotifyConversions(ev.Name, conversions)
    return cancelled, nil
}

// GetBooking loads a booking, enforcing that the requesting user owns
// it unless privileged.
func (e *BookingEngine) GetBooking(ctx context.Context, bookingID, requestingUserID uint64, privileged bool) (*model.Booking, error) {
    b, err := e.bookings.GetByID(ctx, bookingID)
    if err != nil {
        return nil, err
    }
    if b.UserID != requestingUserID && !privileged {
        return nil, ErrForbidden
    }
    return b, nil
}

// ListUserBookings returns the user's own bookings, newest first.
func (e *BookingEngine) ListUserBookings(ctx context.Context, userID uint64, limit, offset int) ([]model.Booking, error) {
    return e.bookings.ListByUser(ctx, userID, limit, offset)
}

// ListEventBookings returns an event's bookings for its organizer, or
// for an admin.
func (e *BookingEngine) ListEventBookings(ctx context.Context, eventID, requestingUserID uint64, privileged bool, limit, offset int) ([]model.Booking, error) {
    ev, err := e.events.GetByID(ctx, eventID)
    if err != nil {
        return nil, err
    }
    if ev.OrganizerID != requestingUserID && !privileged {
        return nil, ErrForbidden
    }
    return e.bookings.ListByEvent(ctx, eventID, limit, offset)
}

// notifyAsync dispatches a notification on a detached goroutine after
// the transaction has committed.  Failures are logged by the adapter
// and ignored here; a lost notification must never fail a committed
// booking.
func (e *BookingEngine) notifyAsync(eventType string, payload any) {
    if e.notifier == nil {
        return
    }
    go func() {
        ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
        defer cancel()
        _ = e.notifier.Notify(ctx, eventType, payload)
    }()
}
