//go:generate mockgen -source=$GOFILE -destination=mock/$GOFILE -package=mock
package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"mosaic/backend/internal/config"
	"mosaic/backend/internal/logger"
	"mosaic/backend/internal/model"
)

// ErrInvalid marks malformed identifiers or profiles.
var ErrInvalid = errors.New("ratelimit: invalid argument")

// WindowStore is the slice of the shared store the limiter needs. The Slide
// operation must execute purge + insert + count + expire atomically so two
// concurrent requests for the same identifier cannot corrupt the count.
type WindowStore interface {
	Slide(ctx context.Context, key string, now time.Time, window time.Duration, member string) (int64, error)
	DropMember(ctx context.Context, key, member string) error
	Clear(ctx context.Context, key string) error
	Status(ctx context.Context, key string) (count int64, ttl time.Duration, err error)
}

// Limiter bounds how many requests one identifier may make per rolling window.
type Limiter interface {
	// Check admits or denies one request. Store failures are not surfaced:
	// the limiter fails open, because it is an anti-abuse control rather
	// than a correctness gate. Do not "fix" this to fail closed.
	Check(ctx context.Context, identifier string, p config.Profile) (model.RateLimitResult, error)
	// Reset clears all window state for an identifier.
	Reset(ctx context.Context, identifier string) error
	// Status reports the current window occupancy for observability.
	Status(ctx context.Context, identifier string) (model.RateLimitStatus, error)
}

type slidingLimiter struct {
	store WindowStore
}

// New creates a sliding-window limiter on top of the shared store.
func New(store WindowStore) Limiter {
	return &slidingLimiter{store: store}
}

func key(identifier string) string {
	return "ratelimit:" + identifier
}

func (l *slidingLimiter) Check(ctx context.Context, identifier string, p config.Profile) (model.RateLimitResult, error) {
	if strings.TrimSpace(identifier) == "" {
		return model.RateLimitResult{}, fmt.Errorf("%w: empty identifier", ErrInvalid)
	}
	if err := p.Validate(); err != nil {
		return model.RateLimitResult{}, fmt.Errorf("%w: %v", ErrInvalid, err)
	}

	now := time.Now()
	// Random nonce guards against two requests landing on the same millisecond.
	member := fmt.Sprintf("%d-%s", now.UnixMilli(), uuid.NewString())

	count, err := l.store.Slide(ctx, key(identifier), now, p.Window, member)
	if err != nil {
		// Fail open on infrastructure errors: availability over strictness.
		logger.Warn("rate limiter store unavailable, failing open",
			"identifier", identifier, "error", err)
		return model.RateLimitResult{
			Allowed:   true,
			Remaining: p.MaxRequests - 1,
			ResetAt:   now.Add(p.Window),
		}, nil
	}

	if count > int64(p.MaxRequests) {
		// Roll back the entry we just inserted so denied requests do not
		// consume window capacity.
		if err := l.store.DropMember(ctx, key(identifier), member); err != nil {
			logger.Warn("rate limiter rollback failed", "identifier", identifier, "error", err)
		}
		return model.RateLimitResult{
			Allowed:    false,
			Remaining:  0,
			ResetAt:    now.Add(p.Window),
			RetryAfter: p.Window,
		}, nil
	}

	return model.RateLimitResult{
		Allowed:   true,
		Remaining: p.MaxRequests - int(count),
		ResetAt:   now.Add(p.Window),
	}, nil
}

func (l *slidingLimiter) Reset(ctx context.Context, identifier string) error {
	if strings.TrimSpace(identifier) == "" {
		return fmt.Errorf("%w: empty identifier", ErrInvalid)
	}
	return l.store.Clear(ctx, key(identifier))
}

func (l *slidingLimiter) Status(ctx context.Context, identifier string) (model.RateLimitStatus, error) {
	if strings.TrimSpace(identifier) == "" {
		return model.RateLimitStatus{}, fmt.Errorf("%w: empty identifier", ErrInvalid)
	}
	count, ttl, err := l.store.Status(ctx, key(identifier))
	if err != nil {
		return model.RateLimitStatus{}, err
	}
	return model.RateLimitStatus{Count: count, TTL: ttl}, nil
}
