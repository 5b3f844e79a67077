package handler

import (
    "context"
    "net/http"
    "strings"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/evently/ticket-booking/internal/model"
)

// EventStore is the slice of the event repository this handler needs.
// It is satisfied by *repository.EventRepo and by mocks in tests.
type EventStore interface {
    Create(ctx context.Context, ev *model.Event) error
    GetByID(ctx context.Context, id uint64) (*model.Event, error)
    ListUpcoming(ctx context.Context, limit, offset int) ([]model.Event, error)
}

// EventHandler serves event creation and availability reads.  Creation
// is restricted to organizers and admins; reads are open to any
// authenticated user.
type EventHandler struct {
    Events EventStore
}

// NewEventHandler constructs an EventHandler and panics on a nil store.
func NewEventHandler(events EventStore) *EventHandler {
    if events == nil {
        panic("nil store passed to NewEventHandler")
    }
    return &EventHandler{Events: events}
}

// Create handles POST /v1/events.  The caller becomes the organizer.
func (h *EventHandler) Create(c echo.Context) error {
    userID, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    role, _ := c.Get("role").(string)
    if !strings.EqualFold(role, "ORGANIZER") && !strings.EqualFold(role, "ADMIN") {
        return c.JSON(http.StatusForbidden, echo.Map{"error": "organizer role required"})
    }

    var body struct {
        Name        string    `json:"name"`
        Description string    `json:"description"`
        Location    string    `json:"location"`
        StartDate   time.Time `json:"start_date"`
        EndDate     time.Time `json:"end_date"`
        PriceCents  uint32    `json:"price_cents"`
        Capacity    uint32    `json:"capacity"`
    }
    if err := c.Bind(&body); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
    }
    body.Name = strings.TrimSpace(body.Name)
    if body.Name == "" {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "name is required"})
    }
    if body.Capacity == 0 {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "capacity must be a positive integer"})
    }
    now := time.Now().UTC()
    if !body.StartDate.After(now) {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "start_date must be in the future"})
    }
    if !body.EndDate.IsZero() && body.EndDate.Before(body.StartDate) {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "end_date must not precede start_date"})
    }
    if body.EndDate.IsZero() {
        body.EndDate = body.StartDate
    }

    ev := &model.Event{
        Name:        body.Name,
        Description: body.Description,
        Location:    body.Location,
        StartDate:   body.StartDate.UTC(),
        EndDate:     body.EndDate.UTC(),
        PriceCents:  body.PriceCents,
        Capacity:    body.Capacity,
        OrganizerID: userID,
        IsActive:    true,
    }
    if err := h.Events.Create(c.Request().Context(), ev); err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not create event"})
    }
    return c.JSON(http.StatusCreated, ev)
}

// Get handles GET /v1/events/:id, the availability read.
func (h *EventHandler) Get(c echo.Context) error {
    id, ok := pathID(c, "id")
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
    }
    ev, err := h.Events.GetByID(c.Request().Context(), id)
    if err != nil {
        return writeServiceError(c, err)
    }
    return c.JSON(http.StatusOK, ev)
}

// List handles GET /v1/events and returns upcoming active events.
func (h *EventHandler) List(c echo.Context) error {
    limit, offset := pagination(c)
    events, err := h.Events.ListUpcoming(c.Request().Context(), limit, offset)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
    }
    return c.JSON(http.StatusOK, echo.Map{"events": events})
}
