package model

import "time"

// RateLimitResult is the outcome of one sliding-window check.
type RateLimitResult struct {
	Allowed    bool
	Remaining  int
	ResetAt    time.Time
	RetryAfter time.Duration // zero when allowed
}

// RateLimitStatus is an observability snapshot for one identifier.
type RateLimitStatus struct {
	Count int64
	TTL   time.Duration
}
