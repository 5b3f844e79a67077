package handler

import (
    "context"
    "net/http"
    "testing"
    "time"

    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"

    "github.com/evently/ticket-booking/internal/model"
    "github.com/evently/ticket-booking/internal/repository"
)

type stubEventStore struct {
    createFn func(ctx context.Context, ev *model.Event) error
    getFn    func(ctx context.Context, id uint64) (*model.Event, error)
    listFn   func(ctx context.Context, limit, offset int) ([]model.Event, error)
}

func (s *stubEventStore) Create(ctx context.Context, ev *model.Event) error {
    return s.createFn(ctx, ev)
}

func (s *stubEventStore) GetByID(ctx context.Context, id uint64) (*model.Event, error) {
    return s.getFn(ctx, id)
}

func (s *stubEventStore) ListUpcoming(ctx context.Context, limit, offset int) ([]model.Event, error) {
    return s.listFn(ctx, limit, offset)
}

func TestEventCreateRequiresOrganizerRole(t *testing.T) {
    h := NewEventHandler(&stubEventStore{})

    c, rec := newBookingContext(http.MethodPost, "/v1/events", `{"name":"x"}`, "7", "CUSTOMER")
    require.NoError(t, h.Create(c))
    assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestEventCreate(t *testing.T) {
    start := time.Now().UTC().Add(48 * time.Hour).Format(time.RFC3339)
    var created *model.Event
    h := NewEventHandler(&stubEventStore{
        createFn: func(ctx context.Context, ev *model.Event) error {
            ev.ID = 5
            ev.AvailableTickets = ev.Capacity
            created = ev
            return nil
        },
    })

    body := `{"name":"GopherCon","location":"Berlin","start_date":"` + start + `","price_cents":9900,"capacity":500}`
    c, rec := newBookingContext(http.MethodPost, "/v1/events", body, "7", "ORGANIZER")
    require.NoError(t, h.Create(c))
    require.Equal(t, http.StatusCreated, rec.Code)

    require.NotNil(t, created)
    assert.Equal(t, uint64(7), created.OrganizerID)
    assert.Equal(t, uint32(500), created.Capacity)
    assert.True(t, created.IsActive)
}

func TestEventCreateValidation(t *testing.T) {
    h := NewEventHandler(&stubEventStore{})
    start := time.Now().UTC().Add(48 * time.Hour).Format(time.RFC3339)

    cases := []struct {
        name string
        body string
    }{
        {"missing name", `{"start_date":"` + start + `","capacity":10}`},
        {"zero capacity", `{"name":"x","start_date":"` + start + `","capacity":0}`},
        {"past start", `{"name":"x","start_date":"2000-01-01T00:00:00Z","capacity":10}`},
    }
    for _, tc := range cases {
        t.Run(tc.name, func(t *testing.T) {
            c, rec := newBookingContext(http.MethodPost, "/v1/events", tc.body, "7", "ORGANIZER")
            require.NoError(t, h.Create(c))
            assert.Equal(t, http.StatusBadRequest, rec.Code)
        })
    }
}

func TestEventGet(t *testing.T) {
    h := NewEventHandler(&stubEventStore{
        getFn: func(ctx context.Context, id uint64) (*model.Event, error) {
            if id != 3 {
                return nil, repository.ErrEventNotFound
            }
            return &model.Event{ID: 3, Name: "GopherCon", AvailableTickets: 12}, nil
        },
    })

    c, rec := newBookingContext(http.MethodGet, "/v1/events/3", "", "7", "CUSTOMER")
    c.SetParamNames("id")
    c.SetParamValues("3")
    require.NoError(t, h.Get(c))
    assert.Equal(t, http.StatusOK, rec.Code)
    assert.Contains(t, rec.Body.String(), `"AvailableTickets":12`)

    c, rec = newBookingContext(http.MethodGet, "/v1/events/9", "", "7", "CUSTOMER")
    c.SetParamNames("id")
    c.SetParamValues("9")
    require.NoError(t, h.Get(c))
    assert.Equal(t, http.StatusNotFound, rec.Code)
}
