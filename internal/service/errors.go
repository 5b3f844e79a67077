package service

import (
    "errors"

    "github.com/evently/ticket-booking/internal/repository"
)

// ErrEventNotBookable is returned when the event is inactive or its
// start date has passed.
var ErrEventNotBookable = errors.New("event is not open for booking")

// ErrInvalidTicketCount is returned when a request asks for zero
// tickets.
var ErrInvalidTicketCount = errors.New("number of tickets must be greater than zero")

// ErrBusy is returned when the advisory lock for (event, user) is held
// by another in-flight request.  It is transient; the caller should
// retry after a short backoff.
var ErrBusy = errors.New("a booking request for this event is already in progress")

// ErrForbidden is returned when the requesting user neither owns the
// booking nor is privileged.
var ErrForbidden = errors.New("forbidden")

// ErrInvalidState is returned when a cancellation targets a booking
// that is not CONFIRMED.
var ErrInvalidState = errors.New("booking is not in a cancellable state")

// ErrCancellationWindowClosed is returned when the event starts within
// the configured blackout window.
var ErrCancellationWindowClosed = errors.New("cancellation window has closed")

// Retryable reports whether the error is a transient contention
// condition that is safe to retry with backoff, as opposed to a
// deterministic validation failure.
func Retryable(err error) bool {
    return errors.Is(err, ErrBusy) || errors.Is(err, repository.ErrLockTimeout)
}
