package handler

import (
    "context"
    "net/http"

    "github.com/labstack/echo/v4"

    "github.com/evently/ticket-booking/internal/model"
)

// BookingService is the slice of the booking engine this handler needs.
// It is satisfied by *service.BookingEngine and by mocks in tests.
type BookingService interface {
    CreateBooking(ctx context.Context, userID, eventID uint64, tickets uint32) (*model.Booking, error)
    CancelBooking(ctx context.Context, bookingID, requestingUserID uint64, privileged bool) (*model.Booking, error)
    GetBooking(ctx context.Context, bookingID, requestingUserID uint64, privileged bool) (*model.Booking, error)
    ListUserBookings(ctx context.Context, userID uint64, limit, offset int) ([]model.Booking, error)
    ListEventBookings(ctx context.Context, eventID, requestingUserID uint64, privileged bool, limit, offset int) ([]model.Booking, error)
}

// BookingHandler exposes the booking lifecycle over HTTP.  All routes
// require JWT authentication; authorization beyond ownership is
// delegated to the service layer via the privileged flag.
type BookingHandler struct {
    Bookings BookingService
}

// NewBookingHandler constructs a BookingHandler and panics on a nil service.
func NewBookingHandler(bookings BookingService) *BookingHandler {
    if bookings == nil {
        panic("nil service passed to NewBookingHandler")
    }
    return &BookingHandler{Bookings: bookings}
}

// Create handles POST /v1/bookings.  The body carries the target event
// and ticket count; the user comes from the JWT.  Sold-out events get a
// 409 with a waitlist hint, contended events a 429 worth retrying.
func (h *BookingHandler) Create(c echo.Context) error {
    userID, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    var body struct {
        EventID uint64 `json:"event_id"`
        Tickets uint32 `json:"tickets"`
    }
    if err := c.Bind(&body); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
    }
    if body.EventID == 0 {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "event_id is required"})
    }
    b, err := h.Bookings.CreateBooking(c.Request().Context(), userID, body.EventID, body.Tickets)
    if err != nil {
        return writeServiceError(c, err)
    }
    return c.JSON(http.StatusCreated, b)
}

// Cancel handles DELETE /v1/bookings/:id and returns the cancelled
// booking.  Cancellation frees capacity and may promote waitlisted
// users as a side effect.
func (h *BookingHandler) Cancel(c echo.Context) error {
    userID, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    id, ok := pathID(c, "id")
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid booking id"})
    }
    b, err := h.Bookings.CancelBooking(c.Request().Context(), id, userID, isPrivileged(c))
    if err != nil {
        return writeServiceError(c, err)
    }
    return c.JSON(http.StatusOK, b)
}

// Get handles GET /v1/bookings/:id.
func (h *BookingHandler) Get(c echo.Context) error {
    userID, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    id, ok := pathID(c, "id")
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid booking id"})
    }
    b, err := h.Bookings.GetBooking(c.Request().Context(), id, userID, isPrivileged(c))
    if err != nil {
        return writeServiceError(c, err)
    }
    return c.JSON(http.StatusOK, b)
}

// ListMine handles GET /v1/my-bookings.
func (h *BookingHandler) ListMine(c echo.Context) error {
    userID, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    limit, offset := pagination(c)
    list, err := h.Bookings.ListUserBookings(c.Request().Context(), userID, limit, offset)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
    }
    return c.JSON(http.StatusOK, echo.Map{"bookings": list})
}

// ListByEvent handles GET /v1/events/:id/bookings.  Only the event's
// organizer and admins may see an event's bookings.
func (h *BookingHandler) ListByEvent(c echo.Context) error {
    userID, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    eventID, ok := pathID(c, "id")
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
    }
    limit, offset := pagination(c)
    list, err := h.Bookings.ListEventBookings(c.Request().Context(), eventID, userID, isPrivileged(c), limit, offset)
    if err != nil {
        return writeServiceError(c, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"bookings": list})
}
