// Package metrics exposes Prometheus instruments for the booking hot
// path.  Counters are registered with promauto so a single import is
// enough to wire them into the default registry served at /metrics.
package metrics

import (
    "github.com/prometheus/client_golang/prometheus"
    "github.com/prometheus/client_golang/prometheus/promauto"
)

var (
    // BookingRequests counts CreateBooking attempts, successful or not.
    BookingRequests = promauto.NewCounter(prometheus.CounterOpts{
        Name: "booking_requests_total",
        Help: "The total number of booking creation attempts",
    })

    // BookingsConfirmed counts bookings that committed with capacity
    // deducted.
    BookingsConfirmed = promauto.NewCounter(prometheus.CounterOpts{
        Name: "bookings_confirmed_total",
        Help: "The total number of confirmed bookings",
    })

    // BookingsCancelled counts committed cancellations.
    BookingsCancelled = promauto.NewCounter(prometheus.CounterOpts{
        Name: "bookings_cancelled_total",
        Help: "The total number of cancelled bookings",
    })

    // InventoryRejections counts booking attempts rejected because not
    // enough tickets remained.
    InventoryRejections = promauto.NewCounter(prometheus.CounterOpts{
        Name: "booking_inventory_rejections_total",
        Help: "The total number of bookings rejected for insufficient inventory",
    })

    // LockContention counts requests turned away because the advisory
    // lock was held or the row lock wait timed out.
    LockContention = promauto.NewCounter(prometheus.CounterOpts{
        Name: "booking_lock_contention_total",
        Help: "The total number of requests rejected due to lock contention",
    })

    // WaitlistPromotions counts waitlist entries converted into
    // confirmed bookings.
    WaitlistPromotions = promauto.NewCounter(prometheus.CounterOpts{
        Name: "waitlist_promotions_total",
        Help: "The total number of waitlist entries promoted to bookings",
    })

    // AvailableTickets tracks the last observed availability per event.
    AvailableTickets = promauto.NewGaugeVec(prometheus.GaugeOpts{
        Name: "event_available_tickets",
        Help: "Last observed available ticket count per event",
    }, []string{"event_id"})
)
