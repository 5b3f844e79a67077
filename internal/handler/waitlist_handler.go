package handler

import (
    "context"
    "net/http"

    "github.com/labstack/echo/v4"

    "github.com/evently/ticket-booking/internal/model"
    "github.com/evently/ticket-booking/internal/repository"
)

// WaitlistService is the slice of the waitlist service this handler
// needs.  It is satisfied by *service.WaitlistService and by mocks in
// tests.
type WaitlistService interface {
    Join(ctx context.Context, userID, eventID uint64, tickets uint32) (*model.WaitlistEntry, error)
    Leave(ctx context.Context, userID, eventID uint64) error
    ListUserEntries(ctx context.Context, userID uint64, limit, offset int) ([]model.WaitlistEntry, error)
    Stats(ctx context.Context, eventID uint64) (*repository.WaitlistStats, error)
}

// WaitlistHandler exposes waitlist membership over HTTP.
type WaitlistHandler struct {
    Waitlist WaitlistService
}

// NewWaitlistHandler constructs a WaitlistHandler and panics on a nil service.
func NewWaitlistHandler(waitlist WaitlistService) *WaitlistHandler {
    if waitlist == nil {
        panic("nil service passed to NewWaitlistHandler")
    }
    return &WaitlistHandler{Waitlist: waitlist}
}

// Join handles POST /v1/events/:id/waitlist.
func (h *WaitlistHandler) Join(c echo.Context) error {
    userID, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    eventID, ok := pathID(c, "id")
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
    }
    var body struct {
        Tickets uint32 `json:"tickets"`
    }
    if err := c.Bind(&body); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
    }
    entry, err := h.Waitlist.Join(c.Request().Context(), userID, eventID, body.Tickets)
    if err != nil {
        return writeServiceError(c, err)
    }
    return c.JSON(http.StatusCreated, entry)
}

// Leave handles DELETE /v1/events/:id/waitlist.
func (h *WaitlistHandler) Leave(c echo.Context) error {
    userID, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    eventID, ok := pathID(c, "id")
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
    }
    if err := h.Waitlist.Leave(c.Request().Context(), userID, eventID); err != nil {
        return writeServiceError(c, err)
    }
    return c.NoContent(http.StatusNoContent)
}

// ListMine handles GET /v1/my-waitlist.
func (h *WaitlistHandler) ListMine(c echo.Context) error {
    userID, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    limit, offset := pagination(c)
    entries, err := h.Waitlist.ListUserEntries(c.Request().Context(), userID, limit, offset)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
    }
    return c.JSON(http.StatusOK, echo.Map{"entries": entries})
}

// Stats handles GET /v1/events/:id/waitlist/stats.
func (h *WaitlistHandler) Stats(c echo.Context) error {
    eventID, ok := pathID(c, "id")
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
    }
    stats, err := h.Waitlist.Stats(c.Request().Context(), eventID)
    if err != nil {
        return writeServiceError(c, err)
    }
    return c.JSON(http.StatusOK, stats)
}
