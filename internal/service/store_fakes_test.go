package service

import (
    "context"
    "database/sql"
    "errors"
    "sort"
    "sync"
    "time"

    "github.com/evently/ticket-booking/internal/model"
    "github.com/evently/ticket-booking/internal/repository"
)

// memStore is an in-memory implementation of the store interfaces used
// to exercise the booking protocol without a database.  WithEventLock
// takes a whole-store snapshot before running fn and restores it when
// fn fails, emulating transaction rollback; SavepointTx keeps named
// snapshots for partial rollback.  The mutex stands in for the event
// row lock, so concurrent callers serialize exactly as they would on
// MySQL.
type memStore struct {
    mu sync.Mutex

    events    map[uint64]*model.Event
    bookings  map[uint64]*model.Booking
    waitlists map[uint64]*model.WaitlistEntry

    nextBookingID  uint64
    nextWaitlistID uint64

    savepoints map[string]memSnapshot
}

type memSnapshot struct {
    events    map[uint64]*model.Event
    bookings  map[uint64]*model.Booking
    waitlists map[uint64]*model.WaitlistEntry
}

func newMemStore() *memStore {
    return &memStore{
        events:     map[uint64]*model.Event{},
        bookings:   map[uint64]*model.Booking{},
        waitlists:  map[uint64]*model.WaitlistEntry{},
        savepoints: map[string]memSnapshot{},
    }
}

func (s *memStore) addEvent(ev model.Event) *model.Event {
    s.mu.Lock()
    defer s.mu.Unlock()
    cp := ev
    s.events[cp.ID] = &cp
    return &cp
}

func (s *memStore) addWaiting(userID, eventID uint64, tickets uint32, joined time.Time) *model.WaitlistEntry {
    s.mu.Lock()
    defer s.mu.Unlock()
    s.nextWaitlistID++
    w := &model.WaitlistEntry{
        ID:              s.nextWaitlistID,
        UserID:          userID,
        EventID:         eventID,
        NumberOfTickets: tickets,
        Status:          model.WaitlistWaiting,
        JoinedAt:        joined,
    }
    s.waitlists[w.ID] = w
    return w
}

func (s *memStore) snapshot() memSnapshot {
    snap := memSnapshot{
        events:    make(map[uint64]*model.Event, len(s.events)),
        bookings:  make(map[uint64]*model.Booking, len(s.bookings)),
        waitlists: make(map[uint64]*model.WaitlistEntry, len(s.waitlists)),
    }
    for id, ev := range s.events {
        cp := *ev
        snap.events[id] = &cp
    }
    for id, b := range s.bookings {
        cp := *b
        snap.bookings[id] = &cp
    }
    for id, w := range s.waitlists {
        cp := *w
        snap.waitlists[id] = &cp
    }
    return snap
}

func (s *memStore) restore(snap memSnapshot) {
    s.events = snap.events
    s.bookings = snap.bookings
    s.waitlists = snap.waitlists
}

// InventoryStore

func (s *memStore) WithEventLock(ctx context.Context, eventID uint64, fn func(tx *sql.Tx, ev *model.Event) error) error {
    s.mu.Lock()
    defer s.mu.Unlock()
    ev, ok := s.events[eventID]
    if !ok {
        return repository.ErrEventNotFound
    }
    snap := s.snapshot()
    cp := *ev
    if err := fn(nil, &cp); err != nil {
        s.restore(snap)
        return err
    }
    s.savepoints = map[string]memSnapshot{}
    return nil
}

func (s *memStore) DecrementAvailabilityTx(ctx context.Context, tx *sql.Tx, eventID uint64, n uint32) error {
    ev, ok := s.events[eventID]
    if !ok {
        return repository.ErrEventNotFound
    }
    if ev.AvailableTickets < n {
        return repository.ErrInsufficientInventory
    }
    ev.AvailableTickets -= n
    return nil
}

func (s *memStore) IncrementAvailabilityTx(ctx context.Context, tx *sql.Tx, eventID uint64, n uint32) error {
    ev, ok := s.events[eventID]
    if !ok {
        return repository.ErrEventNotFound
    }
    if ev.AvailableTickets+n > ev.Capacity {
        return repository.ErrCapacityExceeded
    }
    ev.AvailableTickets += n
    return nil
}

func (s *memStore) SavepointTx(ctx context.Context, tx *sql.Tx, name string) error {
    s.savepoints[name] = s.snapshot()
    return nil
}

func (s *memStore) RollbackToSavepointTx(ctx context.Context, tx *sql.Tx, name string) error {
    snap, ok := s.savepoints[name]
    if !ok {
        return errors.New("unknown savepoint " + name)
    }
    s.restore(snap)
    return nil
}

// EventStore

func (s *memStore) GetByID(ctx context.Context, id uint64) (*model.Event, error) {
    s.mu.Lock()
    defer s.mu.Unlock()
    ev, ok := s.events[id]
    if !ok {
        return nil, repository.ErrEventNotFound
    }
    cp := *ev
    return &cp, nil
}

// memBookings implements BookingStore on top of a memStore.  It is a
// separate type because memStore's GetByID signature is claimed by the
// event interface.
type memBookings struct {
    s *memStore
}

func (m *memBookings) CreateTx(ctx context.Context, tx *sql.Tx, b *model.Booking) error {
    s := m.s
    for _, existing := range s.bookings {
        if existing.UserID == b.UserID && existing.EventID == b.EventID && existing.Active() {
            return repository.ErrDuplicateBooking
        }
    }
    s.nextBookingID++
    b.ID = s.nextBookingID
    b.BookedAt = time.Now().UTC()
    b.UpdatedAt = b.BookedAt
    cp := *b
    s.bookings[b.ID] = &cp
    return nil
}

func (m *memBookings) GetByID(ctx context.Context, id uint64) (*model.Booking, error) {
    m.s.mu.Lock()
    defer m.s.mu.Unlock()
    return m.bookingByID(id)
}

func (m *memBookings) bookingByID(id uint64) (*model.Booking, error) {
    b, ok := m.s.bookings[id]
    if !ok {
        return nil, repository.ErrBookingNotFound
    }
    cp := *b
    return &cp, nil
}

func (m *memBookings) GetByIDForUpdateTx(ctx context.Context, tx *sql.Tx, id uint64) (*model.Booking, error) {
    return m.bookingByID(id)
}

func (m *memBookings) ActiveByUserAndEvent(ctx context.Context, userID, eventID uint64) (*model.Booking, error) {
    m.s.mu.Lock()
    defer m.s.mu.Unlock()
    return m.activeByUserAndEvent(userID, eventID)
}

func (m *memBookings) ActiveByUserAndEventTx(ctx context.Context, tx *sql.Tx, userID, eventID uint64) (*model.Booking, error) {
    return m.activeByUserAndEvent(userID, eventID)
}

func (m *memBookings) activeByUserAndEvent(userID, eventID uint64) (*model.Booking, error) {
    for _, b := range m.s.bookings {
        if b.UserID == userID && b.EventID == eventID && b.Active() {
            cp := *b
            return &cp, nil
        }
    }
    return nil, repository.ErrBookingNotFound
}

func (m *memBookings) UpdateStatusTx(ctx context.Context, tx *sql.Tx, id uint64, status string) error {
    b, ok := m.s.bookings[id]
    if !ok {
        return repository.ErrBookingNotFound
    }
    b.Status = status
    b.UpdatedAt = time.Now().UTC()
    return nil
}

func (m *memBookings) ListByUser(ctx context.Context, userID uint64, limit, offset int) ([]model.Booking, error) {
    m.s.mu.Lock()
    defer m.s.mu.Unlock()
    var out []model.Booking
    for _, b := range m.s.bookings {
        if b.UserID == userID {
            out = append(out, *b)
        }
    }
    sort.Slice(out, func(i, j int) bool { return out[i].BookedAt.After(out[j].BookedAt) })
    return out, nil
}

func (m *memBookings) ListByEvent(ctx context.Context, eventID uint64, limit, offset int) ([]model.Booking, error) {
    m.s.mu.Lock()
    defer m.s.mu.Unlock()
    var out []model.Booking
    for _, b := range m.s.bookings {
        if b.EventID == eventID {
            out = append(out, *b)
        }
    }
    sort.Slice(out, func(i, j int) bool { return out[i].BookedAt.After(out[j].BookedAt) })
    return out, nil
}

// memWaitlist implements WaitlistStore on top of a memStore.  It is a
// separate type because memStore's GetByID and ListByUser signatures
// are claimed by the event and booking interfaces.
type memWaitlist struct {
    s *memStore
}

func (m *memWaitlist) Create(ctx context.Context, w *model.WaitlistEntry) error {
    m.s.mu.Lock()
    defer m.s.mu.Unlock()
    for _, existing := range m.s.waitlists {
        if existing.UserID == w.UserID && existing.EventID == w.EventID && existing.Status == model.WaitlistWaiting {
            return repository.ErrDuplicateWaitlist
        }
    }
    m.s.nextWaitlistID++
    w.ID = m.s.nextWaitlistID
    w.Status = model.WaitlistWaiting
    w.JoinedAt = time.Now().UTC()
    cp := *w
    m.s.waitlists[w.ID] = &cp
    return nil
}

func (m *memWaitlist) WaitingByUserAndEvent(ctx context.Context, userID, eventID uint64) (*model.WaitlistEntry, error) {
    m.s.mu.Lock()
    defer m.s.mu.Unlock()
    for _, w := range m.s.waitlists {
        if w.UserID == userID && w.EventID == eventID && w.Status == model.WaitlistWaiting {
            cp := *w
            return &cp, nil
        }
    }
    return nil, repository.ErrWaitlistNotFound
}

func (m *memWaitlist) WaitingByEventTx(ctx context.Context, tx *sql.Tx, eventID uint64) ([]model.WaitlistEntry, error) {
    var out []model.WaitlistEntry
    for _, w := range m.s.waitlists {
        if w.EventID == eventID && w.Status == model.WaitlistWaiting {
            out = append(out, *w)
        }
    }
    sort.Slice(out, func(i, j int) bool {
        if out[i].JoinedAt.Equal(out[j].JoinedAt) {
            return out[i].ID < out[j].ID
        }
        return out[i].JoinedAt.Before(out[j].JoinedAt)
    })
    return out, nil
}

func (m *memWaitlist) MarkConvertedTx(ctx context.Context, tx *sql.Tx, id uint64) error {
    w, ok := m.s.waitlists[id]
    if !ok || w.Status != model.WaitlistWaiting {
        return repository.ErrWaitlistNotFound
    }
    now := time.Now().UTC()
    w.Status = model.WaitlistConverted
    w.NotifiedAt = &now
    return nil
}

func (m *memWaitlist) DeleteWaiting(ctx context.Context, userID, eventID uint64) error {
    m.s.mu.Lock()
    defer m.s.mu.Unlock()
    for id, w := range m.s.waitlists {
        if w.UserID == userID && w.EventID == eventID && w.Status == model.WaitlistWaiting {
            delete(m.s.waitlists, id)
            return nil
        }
    }
    return repository.ErrWaitlistNotFound
}

func (m *memWaitlist) ListByUser(ctx context.Context, userID uint64, limit, offset int) ([]model.WaitlistEntry, error) {
    m.s.mu.Lock()
    defer m.s.mu.Unlock()
    var out []model.WaitlistEntry
    for _, w := range m.s.waitlists {
        if w.UserID == userID {
            out = append(out, *w)
        }
    }
    sort.Slice(out, func(i, j int) bool { return out[i].JoinedAt.After(out[j].JoinedAt) })
    return out, nil
}

func (m *memWaitlist) Stats(ctx context.Context, eventID uint64) (*repository.WaitlistStats, error) {
    m.s.mu.Lock()
    defer m.s.mu.Unlock()
    stats := &repository.WaitlistStats{}
    for _, w := range m.s.waitlists {
        if w.EventID == eventID && w.Status == model.WaitlistWaiting {
            stats.TotalWaiting++
            stats.TotalTicketsNeeded += uint64(w.NumberOfTickets)
        }
    }
    return stats, nil
}

func (m *memWaitlist) EventsWithWaiting(ctx context.Context) ([]uint64, error) {
    m.s.mu.Lock()
    defer m.s.mu.Unlock()
    seen := map[uint64]bool{}
    var out []uint64
    for _, w := range m.s.waitlists {
        ev, ok := m.s.events[w.EventID]
        if !ok {
            continue
        }
        if w.Status == model.WaitlistWaiting && ev.AvailableTickets > 0 && !seen[w.EventID] {
            seen[w.EventID] = true
            out = append(out, w.EventID)
        }
    }
    sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
    return out, nil
}

func (m *memWaitlist) ExpireNotified(ctx context.Context, before time.Time) (int64, error) {
    m.s.mu.Lock()
    defer m.s.mu.Unlock()
    var n int64
    for _, w := range m.s.waitlists {
        if w.Status == model.WaitlistNotified && w.NotifiedAt != nil && w.NotifiedAt.Before(before) {
            w.Status = model.WaitlistExpired
            n++
        }
    }
    return n, nil
}

// fakeLocker scripts Acquire outcomes.
type fakeLocker struct {
    mu       sync.Mutex
    held     bool
    err      error
    acquires int
    releases int
}

func (l *fakeLocker) Acquire(ctx context.Context, name string, ttl time.Duration) (string, bool, error) {
    l.mu.Lock()
    defer l.mu.Unlock()
    l.acquires++
    if l.err != nil {
        return "", false, l.err
    }
    if l.held {
        return "", false, nil
    }
    return "token", true, nil
}

func (l *fakeLocker) Release(ctx context.Context, name, token string) (bool, error) {
    l.mu.Lock()
    defer l.mu.Unlock()
    l.releases++
    return true, nil
}

// recordingNotifier captures notifications for assertions.
type recordingNotifier struct {
    mu    sync.Mutex
    err   error
    types []string
}

func (n *recordingNotifier) Notify(ctx context.Context, eventType string, payload any) error {
    n.mu.Lock()
    defer n.mu.Unlock()
    n.types = append(n.types, eventType)
    return n.err
}

func (n *recordingNotifier) count(eventType string) int {
    n.mu.Lock()
    defer n.mu.Unlock()
    c := 0
    for _, t := range n.types {
        if t == eventType {
            c++
        }
    }
    return c
}
