package main // Entry point package

import (
    "context"
    "log"
    "os/signal"
    "syscall"

    "github.com/joho/godotenv"
    "github.com/labstack/echo/v4"

    "github.com/evently/ticket-booking/internal/config"
    "github.com/evently/ticket-booking/internal/database"
    "github.com/evently/ticket-booking/internal/handler"
    "github.com/evently/ticket-booking/internal/lock"
    "github.com/evently/ticket-booking/internal/queue"
    "github.com/evently/ticket-booking/internal/repository"
    "github.com/evently/ticket-booking/internal/router"
    "github.com/evently/ticket-booking/internal/service"
)

func main() {
    _ = godotenv.Load() // .env is optional; real deployments use the environment

    cfg := config.Load()
    policy := config.LoadBookingPolicy()
    rlCfg := config.LoadRateLimitConfig()

    db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
    if err != nil {
        log.Fatalf("database: %v", err)
    }
    defer db.Close()

    // Redis backs the advisory lock and the rate limiter.  Both degrade
    // to no-ops when it is unreachable; the row lock keeps bookings
    // correct either way.
    rdb := config.NewRedisClient()
    var locker service.Locker
    if rdb != nil {
        locker = lock.New(rdb, "lock")
    } else {
        log.Println("redis unavailable, running without advisory locks and rate limits")
    }

    eventRepo := repository.NewEventRepo(db)
    bookingRepo := repository.NewBookingRepo(db)
    waitlistRepo := repository.NewWaitlistRepo(db)
    inventory := repository.NewInventoryStore(db, policy.LockWaitTimeout)

    publisher := queue.NewPublisher()
    promoter := service.NewWaitlistPromoter(inventory, bookingRepo, waitlistRepo, publisher, policy)
    engine := service.NewBookingEngine(inventory, eventRepo, bookingRepo, promoter, locker, publisher, policy)
    waitlistSvc := service.NewWaitlistService(eventRepo, waitlistRepo)

    ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
    defer stop()

    // Background workers: the waitlist sweeper and the notification
    // consumer.  The consumer also runs standalone via cmd/notifier.
    go promoter.StartSweep(ctx, policy.SweepInterval)
    go func() {
        if err := queue.StartNotificationConsumer(); err != nil {
            log.Printf("notification consumer stopped: %v", err)
        }
    }()

    e := echo.New()
    e.HideBanner = true
    router.RegisterRoutes(e)
    router.RegisterAPI(e,
        handler.NewEventHandler(eventRepo),
        handler.NewBookingHandler(engine),
        handler.NewWaitlistHandler(waitlistSvc),
        cfg.JWTSecret, rlCfg, rdb)

    addr := ":" + cfg.Port
    log.Printf("listening on %s (env=%s)", addr, cfg.Env)

    go func() {
        <-ctx.Done()
        _ = e.Shutdown(context.Background())
    }()
    if err := e.Start(addr); err != nil {
        log.Println(err)
    }
}
