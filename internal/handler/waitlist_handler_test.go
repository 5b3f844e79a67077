package handler

import (
    "context"
    "net/http"
    "testing"

    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"

    "github.com/evently/ticket-booking/internal/model"
    "github.com/evently/ticket-booking/internal/repository"
)

type stubWaitlistService struct {
    joinFn  func(ctx context.Context, userID, eventID uint64, tickets uint32) (*model.WaitlistEntry, error)
    leaveFn func(ctx context.Context, userID, eventID uint64) error
    listFn  func(ctx context.Context, userID uint64, limit, offset int) ([]model.WaitlistEntry, error)
    statsFn func(ctx context.Context, eventID uint64) (*repository.WaitlistStats, error)
}

func (s *stubWaitlistService) Join(ctx context.Context, userID, eventID uint64, tickets uint32) (*model.WaitlistEntry, error) {
    return s.joinFn(ctx, userID, eventID, tickets)
}

func (s *stubWaitlistService) Leave(ctx context.Context, userID, eventID uint64) error {
    return s.leaveFn(ctx, userID, eventID)
}

func (s *stubWaitlistService) ListUserEntries(ctx context.Context, userID uint64, limit, offset int) ([]model.WaitlistEntry, error) {
    return s.listFn(ctx, userID, limit, offset)
}

func (s *stubWaitlistService) Stats(ctx context.Context, eventID uint64) (*repository.WaitlistStats, error) {
    return s.statsFn(ctx, eventID)
}

func TestWaitlistJoin(t *testing.T) {
    svc := &stubWaitlistService{
        joinFn: func(ctx context.Context, userID, eventID uint64, tickets uint32) (*model.WaitlistEntry, error) {
            assert.Equal(t, uint64(7), userID)
            assert.Equal(t, uint64(3), eventID)
            assert.Equal(t, uint32(2), tickets)
            return &model.WaitlistEntry{ID: 9, UserID: userID, EventID: eventID, NumberOfTickets: tickets, Status: model.WaitlistWaiting}, nil
        },
    }
    h := NewWaitlistHandler(svc)

    c, rec := newBookingContext(http.MethodPost, "/v1/events/3/waitlist", `{"tickets":2}`, "7", "CUSTOMER")
    c.SetParamNames("id")
    c.SetParamValues("3")
    require.NoError(t, h.Join(c))
    assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestWaitlistJoinDuplicate(t *testing.T) {
    svc := &stubWaitlistService{
        joinFn: func(ctx context.Context, userID, eventID uint64, tickets uint32) (*model.WaitlistEntry, error) {
            return nil, repository.ErrDuplicateWaitlist
        },
    }
    h := NewWaitlistHandler(svc)

    c, rec := newBookingContext(http.MethodPost, "/v1/events/3/waitlist", `{"tickets":2}`, "7", "CUSTOMER")
    c.SetParamNames("id")
    c.SetParamValues("3")
    require.NoError(t, h.Join(c))
    assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestWaitlistLeave(t *testing.T) {
    svc := &stubWaitlistService{
        leaveFn: func(ctx context.Context, userID, eventID uint64) error {
            assert.Equal(t, uint64(7), userID)
            assert.Equal(t, uint64(3), eventID)
            return nil
        },
    }
    h := NewWaitlistHandler(svc)

    c, rec := newBookingContext(http.MethodDelete, "/v1/events/3/waitlist", "", "7", "CUSTOMER")
    c.SetParamNames("id")
    c.SetParamValues("3")
    require.NoError(t, h.Leave(c))
    assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestWaitlistLeaveNotWaiting(t *testing.T) {
    svc := &stubWaitlistService{
        leaveFn: func(ctx context.Context, userID, eventID uint64) error {
            return repository.ErrWaitlistNotFound
        },
    }
    h := NewWaitlistHandler(svc)

    c, rec := newBookingContext(http.MethodDelete, "/v1/events/3/waitlist", "", "7", "CUSTOMER")
    c.SetParamNames("id")
    c.SetParamValues("3")
    require.NoError(t, h.Leave(c))
    assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestWaitlistStats(t *testing.T) {
    svc := &stubWaitlistService{
        statsFn: func(ctx context.Context, eventID uint64) (*repository.WaitlistStats, error) {
            return &repository.WaitlistStats{TotalWaiting: 4, TotalTicketsNeeded: 11}, nil
        },
    }
    h := NewWaitlistHandler(svc)

    c, rec := newBookingContext(http.MethodGet, "/v1/events/3/waitlist/stats", "", "7", "CUSTOMER")
    c.SetParamNames("id")
    c.SetParamValues("3")
    require.NoError(t, h.Stats(c))
    assert.Equal(t, http.StatusOK, rec.Code)
}
