package main // Standalone notification worker

import (
    "log"

    "github.com/joho/godotenv"

    "github.com/evently/ticket-booking/internal/queue"
)

// The notifier drains the booking and waitlist notification queues and
// records deliveries.  Run it separately when the API instances should
// not consume their own messages.
func main() {
    _ = godotenv.Load()

    log.Println("notifier starting")
    if err := queue.StartNotificationConsumer(); err != nil {
        log.Fatalf("notifier: %v", err)
    }
}
