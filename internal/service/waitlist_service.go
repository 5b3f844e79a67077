package service

import (
    "context"
    "errors"
    "time"

    "github.com/evently/ticket-booking/internal/model"
    "github.com/evently/ticket-booking/internal/repository"
)

// WaitlistService handles joining and leaving waitlists.  Promotion is
// the WaitlistPromoter's job; this type only manages membership.
type WaitlistService struct {
    events   EventStore
    waitlist WaitlistStore
}

// NewWaitlistService constructs a WaitlistService.
func NewWaitlistService(events EventStore, waitlist WaitlistStore) *WaitlistService {
    if events == nil || waitlist == nil {
        panic("nil store passed to NewWaitlistService")
    }
    return &WaitlistService{events: events, waitlist: waitlist}
}

// Join adds the user to an event's waitlist.  The event must still be
// bookable; a user may hold at most one waiting entry per event.  The
// pre-check gives a clean error on the common path and the unique index
// on (user_id, event_id, status) backstops the race.
func (s *WaitlistService) Join(ctx context.Context, userID, eventID uint64, tickets uint32) (*model.WaitlistEntry, error) {
    if tickets == 0 {
        return nil, ErrInvalidTicketCount
    }
    ev, err := s.events.GetByID(ctx, eventID)
    if err != nil {
        return nil, err
    }
    if !ev.Bookable(time.Now().UTC()) {
        return nil, ErrEventNotBookable
    }
    if _, err := s.waitlist.WaitingByUserAndEvent(ctx, userID, eventID); err == nil {
        return nil, repository.ErrDuplicateWaitlist
    } else if !errors.Is(err, repository.ErrWaitlistNotFound) {
        return nil, err
    }
    entry := &model.WaitlistEntry{
        UserID:          userID,
        EventID:         eventID,
        NumberOfTickets: tickets,
        Status:          model.WaitlistWaiting,
    }
    if err := s.waitlist.Create(ctx, entry); err != nil {
        return nil, err
    }
    return entry, nil
}

// Leave removes the user's waiting entry for an event.  Entries that
// have already been converted or expired are not removable.
func (s *WaitlistService) Leave(ctx context.Context, userID, eventID uint64) error {
    return s.waitlist.DeleteWaiting(ctx, userID, eventID)
}

// ListUserEntries returns the user's waitlist entries across events,
// regardless of status, newest first.
func (s *WaitlistService) ListUserEntries(ctx context.Context, userID uint64, limit, offset int) ([]model.WaitlistEntry, error) {
    return s.waitlist.ListByUser(ctx, userID, limit, offset)
}

// Stats reports the queue depth and total tickets requested for an
// event's waitlist.
func (s *WaitlistService) Stats(ctx context.Context, eventID uint64) (*repository.WaitlistStats, error) {
    if _, err := s.events.GetByID(ctx, eventID); err != nil {
        return nil, err
    }
    return s.waitlist.Stats(ctx, eventID)
}
