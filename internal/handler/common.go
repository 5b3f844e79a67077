package handler // handler defines http handlers

import (
    "errors"
    "net/http"
    "strconv"
    "strings"

    "github.com/labstack/echo/v4"

    "github.com/evently/ticket-booking/internal/repository"
    "github.com/evently/ticket-booking/internal/service"
)

// getUserID extracts the user_id from echo.Context and converts it to uint64
func getUserID(c echo.Context) (uint64, error) {
    v := c.Get("user_id")
    switch t := v.(type) {
    case uint64:
        return t, nil
    case int:
        return uint64(t), nil
    case int64:
        return uint64(t), nil
    case float64:
        return uint64(t), nil
    case string:
        if n, err := strconv.ParseUint(t, 10, 64); err == nil {
            return n, nil
        }
    }
    return 0, errors.New("invalid user_id in context")
}

// isPrivileged reports whether the authenticated caller carries the
// ADMIN role.  Admins may act on bookings they do not own.
func isPrivileged(c echo.Context) bool {
    role, _ := c.Get("role").(string)
    return strings.EqualFold(role, "ADMIN")
}

// writeServiceError maps service and repository errors onto HTTP
// responses.  Anything unmapped is a 500 with a generic message so
// internal details never leak to clients.
func writeServiceError(c echo.Context, err error) error {
    switch {
    case errors.Is(err, repository.ErrEventNotFound):
        return c.JSON(http.StatusNotFound, echo.Map{"error": "event not found"})
    case errors.Is(err, repository.ErrBookingNotFound):
        return c.JSON(http.StatusNotFound, echo.Map{"error": "booking not found"})
    case errors.Is(err, repository.ErrWaitlistNotFound):
        return c.JSON(http.StatusNotFound, echo.Map{"error": "waitlist entry not found"})
    case errors.Is(err, service.ErrForbidden):
        return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
    case errors.Is(err, service.ErrInvalidTicketCount):
        return c.JSON(http.StatusUnprocessableEntity, echo.Map{"error": "tickets must be a positive integer"})
    case errors.Is(err, service.ErrEventNotBookable):
        return c.JSON(http.StatusConflict, echo.Map{"error": "event is not open for booking"})
    case errors.Is(err, service.ErrInvalidState):
        return c.JSON(http.StatusConflict, echo.Map{"error": "booking is not in a cancellable state"})
    case errors.Is(err, service.ErrCancellationWindowClosed):
        return c.JSON(http.StatusConflict, echo.Map{"error": "cancellation window has closed"})
    case errors.Is(err, repository.ErrDuplicateBooking):
        return c.JSON(http.StatusConflict, echo.Map{"error": "an active booking for this event already exists"})
    case errors.Is(err, repository.ErrDuplicateWaitlist):
        return c.JSON(http.StatusConflict, echo.Map{"error": "already on the waitlist for this event"})
    case errors.Is(err, repository.ErrInsufficientInventory):
        // Point rejected buyers at the waitlist instead of a bare 409.
        return c.JSON(http.StatusConflict, echo.Map{
            "error":              "not enough tickets available",
            "waitlist_available": true,
        })
    case service.Retryable(err):
        c.Response().Header().Set("Retry-After", "1")
        return c.JSON(http.StatusTooManyRequests, echo.Map{"error": "event is busy, retry shortly"})
    }
    return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
}

// pathID parses a positive uint64 path parameter.
func pathID(c echo.Context, name string) (uint64, bool) {
    id, err := strconv.ParseUint(c.Param(name), 10, 64)
    if err != nil || id == 0 {
        return 0, false
    }
    return id, true
}

// pagination reads limit/offset query parameters with sane bounds.
func pagination(c echo.Context) (limit, offset int) {
    limit = 50
    if v, err := strconv.Atoi(c.QueryParam("limit")); err == nil && v > 0 && v <= 200 {
        limit = v
    }
    if v, err := strconv.Atoi(c.QueryParam("offset")); err == nil && v > 0 {
        offset = v
    }
    return limit, offset
}
