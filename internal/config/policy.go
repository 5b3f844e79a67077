package config

import (
    "os"
    "strconv"
    "strings"
    "time"
)

// Promotion modes.  Skip walks past waitlist entries that do not fit
// the freed capacity and keeps scanning; strict stops at the first
// entry that does not fit, preserving ticket-for-ticket FIFO order at
// the cost of throughput.
const (
    PromotionSkip   = "skip"
    PromotionStrict = "strict"
)

// BookingPolicy collects the tunable parameters of the booking
// protocol.  None of them affect correctness; they bound waiting times
// and encode business policy.
type BookingPolicy struct {
    CancelBlackout  time.Duration // reject cancellations this close to event start
    LockTTL         time.Duration // advisory lease lock expiry
    LockWaitTimeout time.Duration // bound on row lock waits inside transactions
    PromotionMode   string        // "skip" or "strict"
    SweepInterval   time.Duration // waitlist sweep period; 0 disables the sweeper
    NotifiedTTL     time.Duration // NOTIFIED waitlist entries older than this expire
}

// LoadBookingPolicy reads policy knobs from environment variables,
// falling back to defaults and clamping nonsensical values.
func LoadBookingPolicy() BookingPolicy {
    p := BookingPolicy{
        CancelBlackout:  envDur("CANCEL_BLACKOUT", 24*time.Hour),
        LockTTL:         envDur("LOCK_TTL", 30*time.Second),
        LockWaitTimeout: envDur("LOCK_WAIT_TIMEOUT", 10*time.Second),
        PromotionMode:   strings.ToLower(envStr("PROMOTION_MODE", PromotionSkip)),
        SweepInterval:   envDur("WAITLIST_SWEEP_INTERVAL", 30*time.Second),
        NotifiedTTL:     envDur("WAITLIST_NOTIFIED_TTL", 48*time.Hour),
    }
    if p.PromotionMode != PromotionSkip && p.PromotionMode != PromotionStrict {
        p.PromotionMode = PromotionSkip
    }
    if p.CancelBlackout < 0 {
        p.CancelBlackout = 0
    }
    if p.LockTTL < time.Second {
        p.LockTTL = time.Second
    }
    if p.LockWaitTimeout < time.Second {
        p.LockWaitTimeout = time.Second
    }
    if p.NotifiedTTL < time.Hour {
        p.NotifiedTTL = time.Hour
    }
    return p
}

func envStr(k, d string) string {
    if v := os.Getenv(k); v != "" {
        return v
    }
    return d
}

func envBool(k string, d bool) bool {
    v := os.Getenv(k)
    if v == "" {
        return d
    }
    switch strings.ToLower(v) {
    case "1", "true", "yes", "on":
        return true
    case "0", "false", "no", "off":
        return false
    }
    return d
}

func envInt(k string, d int) int {
    v := os.Getenv(k)
    if v == "" {
        return d
    }
    if n, err := strconv.Atoi(v); err == nil {
        return n
    }
    return d
}

func envDur(k string, d time.Duration) time.Duration {
    v := os.Getenv(k)
    if v == "" {
        return d
    }
    if dur, err := time.ParseDuration(v); err == nil {
        return dur
    }
    return d
}
