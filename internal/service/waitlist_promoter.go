package service

import (
    "context"
    "database/sql"
    "errors"
    "log"
    "time"

    "github.com/evently/ticket-booking/internal/config"
    "github.com/evently/ticket-booking/internal/metrics"
    "github.com/evently/ticket-booking/internal/model"
    "github.com/evently/ticket-booking/internal/queue"
    "github.com/evently/ticket-booking/internal/repository"
)

// promoteSavepoint isolates each entry's conversion so a failure on one
// entry (duplicate active booking, capacity race) rolls back only that
// entry's writes and the walk continues.
const promoteSavepoint = "promote_entry"

// Conversion records a waitlist entry that was turned into a confirmed
// booking during a promotion pass.
type Conversion struct {
    Entry   model.WaitlistEntry
    Booking *model.Booking
}

// WaitlistPromoter converts waiting entries into bookings whenever
// capacity frees up.  Promotion always runs inside the caller's event
// row transaction, so promoted tickets are claimed atomically with the
// cancellation (or sweep) that freed them.
type WaitlistPromoter struct {
    inventory   InventoryStore
    bookings    BookingStore
    waitlist    WaitlistStore
    notifier    NotificationPort
    mode        string
    notifiedTTL time.Duration
}

// NewWaitlistPromoter constructs a promoter.  notifier may be nil.
func NewWaitlistPromoter(inventory InventoryStore, bookings BookingStore, waitlist WaitlistStore, notifier NotificationPort, policy config.BookingPolicy) *WaitlistPromoter {
    if inventory == nil || bookings == nil || waitlist == nil {
        panic("nil store passed to NewWaitlistPromoter")
    }
    return &WaitlistPromoter{
        inventory:   inventory,
        bookings:    bookings,
        waitlist:    waitlist,
        notifier:    notifier,
        mode:        policy.PromotionMode,
        notifiedTTL: policy.NotifiedTTL,
    }
}

// PromoteEligibleTx walks the event's waiting entries in FIFO order and
// converts every entry whose requested ticket count fits the available
// capacity.  In skip mode an entry that does not fit is passed over and
// the walk continues, so a large request cannot starve smaller ones
// behind it.  In strict mode the walk stops at the first entry that
// does not fit.  Entries that fail to convert (for example the user
// already holds an active booking) are rolled back to a savepoint and
// skipped.  Returns the conversions performed; the caller notifies
// after commit.
func (p *WaitlistPromoter) PromoteEligibleTx(ctx context.Context, tx *sql.Tx, ev *model.Event, available uint32) ([]Conversion, error) {
    if available == 0 {
        return nil, nil
    }
    entries, err := p.waitlist.WaitingByEventTx(ctx, tx, ev.ID)
    if err != nil {
        return nil, err
    }

    var conversions []Conversion
    remaining := available
    for _, entry := range entries {
        if remaining == 0 {
            break
        }
        if entry.NumberOfTickets > remaining {
            if p.mode == config.PromotionStrict {
                break
            }
            continue
        }
        if err := p.inventory.SavepointTx(ctx, tx, promoteSavepoint); err != nil {
            return nil, err
        }
        booking, err := p.convertTx(ctx, tx, ev, entry)
        if err != nil {
            if !recoverable(err) {
                return nil, err
            }
            if rbErr := p.inventory.RollbackToSavepointTx(ctx, tx, promoteSavepoint); rbErr != nil {
                return nil, rbErr
            }
            log.Printf("waitlist-promoter: skipping entry %d for event %d: %v", entry.ID, ev.ID, err)
            continue
        }
        remaining -= entry.NumberOfTickets
        entry.Status = model.WaitlistConverted
        conversions = append(conversions, Conversion{Entry: entry, Booking: booking})
        metrics.WaitlistPromotions.Inc()
    }
    return conversions, nil
}

// convertTx performs one entry's conversion: flip the entry to
// CONVERTED (guarded on its WAITING status), deduct the tickets and
// create the booking.  All three writes succeed or the caller rolls
// back to the savepoint.
func (p *WaitlistPromoter) convertTx(ctx context.Context, tx *sql.Tx, ev *model.Event, entry model.WaitlistEntry) (*model.Booking, error) {
    if err := p.waitlist.MarkConvertedTx(ctx, tx, entry.ID); err != nil {
        return nil, err
    }
    if err := p.inventory.DecrementAvailabilityTx(ctx, tx, ev.ID, entry.NumberOfTickets); err != nil {
        return nil, err
    }
    b := &model.Booking{
        UserID:          entry.UserID,
        EventID:         ev.ID,
        NumberOfTickets: entry.NumberOfTickets,
        TotalCents:      uint64(ev.PriceCents) * uint64(entry.NumberOfTickets),
        Status:          model.BookingConfirmed,
    }
    if err := p.bookings.CreateTx(ctx, tx, b); err != nil {
        return nil, err
    }
    return b, nil
}

// recoverable reports whether a conversion failure is local to one
// entry.  Anything else (connection loss, malformed SQL) aborts the
// whole pass.
func recoverable(err error) bool {
    return errors.Is(err, repository.ErrDuplicateBooking) ||
        errors.Is(err, repository.ErrInsufficientInventory) ||
        errors.Is(err, repository.ErrWaitlistNotFound)
}

// NotifyConversions publishes a promotion notification per conversion.
// Called after the enclosing transaction has committed.
func (p *WaitlistPromoter) NotifyConversions(eventName string, conversions []Conversion) {
    if p.notifier == nil || len(conversions) == 0 {
        return
    }
    for _, c := range conversions {
        payload := queue.WaitlistPromotedEvent{
            WaitlistID: c.Entry.ID,
            BookingID:  c.Booking.ID,
            UserID:     c.Entry.UserID,
            EventID:    c.Entry.EventID,
            EventName:  eventName,
            Tickets:    c.Entry.NumberOfTickets,
            PromotedAt: time.Now().UTC().Format(time.RFC3339),
        }
        go func() {
            ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
            defer cancel()
            _ = p.notifier.Notify(ctx, queue.QueueWaitlistPromoted, payload)
        }()
    }
}

// RunSweep performs one promotion pass over every event that has both
// spare capacity and waiting entries, then expires stale NOTIFIED
// entries.  It catches promotions missed when a cancellation's inline
// pass ran in strict mode, and backfills capacity created by event
// edits.
func (p *WaitlistPromoter) RunSweep(ctx context.Context) {
    eventIDs, err := p.waitlist.EventsWithWaiting(ctx)
    if err != nil {
        log.Printf("waitlist-promoter: sweep query failed: %v", err)
        return
    }
    for _, id := range eventIDs {
        var conversions []Conversion
        var name string
        err := p.inventory.WithEventLock(ctx, id, func(tx *sql.Tx, ev *model.Event) error {
            name = ev.Name
            var err error
            conversions, err = p.PromoteEligibleTx(ctx, tx, ev, ev.AvailableTickets)
            return err
        })
        if err != nil {
            log.Printf("waitlist-promoter: sweep of event %d failed: %v", id, err)
            continue
        }
        p.NotifyConversions(name, conversions)
    }
    if p.notifiedTTL > 0 {
        cutoff := time.Now().UTC().Add(-p.notifiedTTL)
        if n, err := p.waitlist.ExpireNotified(ctx, cutoff); err != nil {
            log.Printf("waitlist-promoter: expiry pass failed: %v", err)
        } else if n > 0 {
            log.Printf("waitlist-promoter: expired %d stale notified entries", n)
        }
    }
}

// StartSweep runs RunSweep on a fixed interval until ctx is cancelled.
// Run it on its own goroutine.
func (p *WaitlistPromoter) StartSweep(ctx context.Context, interval time.Duration) {
    if interval <= 0 {
        return
    }
    ticker := time.NewTicker(interval)
    defer ticker.Stop()
    log.Printf("waitlist-promoter: sweeping every %s", interval)
    for {
        select {
        case <-ctx.Done():
            log.Println("waitlist-promoter: sweep stopped")
            return
        case <-ticker.C:
            p.RunSweep(ctx)
        }
    }
}
