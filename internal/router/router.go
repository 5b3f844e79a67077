package router // package router defines how HTTP routes are registered for the API

import (
    "github.com/labstack/echo/v4"
    "github.com/prometheus/client_golang/prometheus/promhttp"
    "github.com/redis/go-redis/v9"

    "github.com/evently/ticket-booking/internal/config"
    "github.com/evently/ticket-booking/internal/handler"
    "github.com/evently/ticket-booking/internal/middleware"
)

// RegisterRoutes registers routes that do not require authentication on
// the provided Echo instance: the health check used by load balancers
// and the Prometheus scrape endpoint.
func RegisterRoutes(e *echo.Echo) {
    e.GET("/healthz", handler.Health)
    e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
}

// RegisterAPI registers the authenticated API under /v1.  Every route
// runs the JWTAuth middleware; the mutating booking and waitlist routes
// additionally pass through the Redis token bucket so one client cannot
// monopolize the contended paths.  rdb may be nil, which disables the
// limiter.
func RegisterAPI(e *echo.Echo, events *handler.EventHandler, bookings *handler.BookingHandler, waitlist *handler.WaitlistHandler, jwtSecret string, rlCfg config.RateLimitConfig, rdb *redis.Client) {
    auth := e.Group("/v1")
    auth.Use(middleware.JWTAuth(jwtSecret))

    limited := middleware.NewTokenBucket(rlCfg, rdb)

    // Events.  Creation checks the organizer role inside the handler.
    auth.POST("/events", events.Create)
    auth.GET("/events", events.List)
    auth.GET("/events/:id", events.Get)

    // Booking lifecycle.
    auth.POST("/bookings", bookings.Create, limited)
    auth.DELETE("/bookings/:id", bookings.Cancel, limited)
    auth.GET("/bookings/:id", bookings.Get)
    auth.GET("/my-bookings", bookings.ListMine)
    auth.GET("/events/:id/bookings", bookings.ListByEvent)

    // Waitlist membership and stats.
    auth.POST("/events/:id/waitlist", waitlist.Join, limited)
    auth.DELETE("/events/:id/waitlist", waitlist.Leave, limited)
    auth.GET("/my-waitlist", waitlist.ListMine)
    auth.GET("/events/:id/waitlist/stats", waitlist.Stats)
}
