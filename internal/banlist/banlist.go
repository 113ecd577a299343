//go:generate mockgen -source=$GOFILE -destination=mock/$GOFILE -package=mock
package banlist

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"mosaic/backend/internal/logger"
	"mosaic/backend/internal/model"
)

// ErrInvalid marks malformed identifiers, reasons or durations.
var ErrInvalid = errors.New("banlist: invalid argument")

const keyPrefix = "ban:"

// DefaultDuration applies when Add is called without WithDuration.
const DefaultDuration = 24 * time.Hour

// RecordStore is the slice of the shared store the ban list needs. Records
// carry their own TTL, so expiry needs no cleanup job.
type RecordStore interface {
	SetJSON(ctx context.Context, key string, v any, ttl time.Duration) error
	GetJSON(ctx context.Context, key string, v any) (bool, error)
	Delete(ctx context.Context, key string) (bool, error)
	Scan(ctx context.Context, cursor uint64, match string, count int64) ([]string, uint64, error)
	TTL(ctx context.Context, key string) (time.Duration, error)
	Expire(ctx context.Context, key string, ttl time.Duration) (bool, error)
}

// Service is the distributed ban list.
type Service interface {
	// Add bans an identifier. The record expires on its own once the
	// duration elapses.
	Add(ctx context.Context, identifier string, reason model.BanReason, opts ...Option) (*model.BanRecord, error)
	// IsBanned reports whether an identifier is currently banned. A store
	// failure reads as "not banned": blocking every visitor because the
	// store blipped would turn an infra incident into an outage.
	IsBanned(ctx context.Context, identifier string) bool
	// Get returns the ban record for an identifier, or nil when absent.
	Get(ctx context.Context, identifier string) (*model.BanRecord, error)
	// Remove lifts a ban and reports whether one existed.
	Remove(ctx context.Context, identifier string) (bool, error)
	// List pages through current ban records.
	List(ctx context.Context, cursor uint64, count int64) ([]model.BanRecord, uint64, error)
	// Stats counts current bans by reason.
	Stats(ctx context.Context) (map[model.BanReason]int, error)
	// Sweep reaps legacy records that lack a TTL.
	Sweep(ctx context.Context) (int, error)
}

// Option adjusts an Add call.
type Option func(*addOptions)

type addOptions struct {
	duration    time.Duration
	description string
	actorID     string
}

// WithDuration overrides the default ban duration.
func WithDuration(d time.Duration) Option {
	return func(o *addOptions) { o.duration = d }
}

// WithDescription attaches an operator-facing note to the record.
func WithDescription(s string) Option {
	return func(o *addOptions) { o.description = s }
}

// WithActor records who issued the ban.
func WithActor(id string) Option {
	return func(o *addOptions) { o.actorID = id }
}

type service struct {
	store RecordStore
}

// New creates a ban list on top of the shared store.
func New(store RecordStore) Service {
	return &service{store: store}
}

func key(identifier string) string {
	return keyPrefix + identifier
}

func (s *service) Add(ctx context.Context, identifier string, reason model.BanReason, opts ...Option) (*model.BanRecord, error) {
	if strings.TrimSpace(identifier) == "" {
		return nil, fmt.Errorf("%w: empty identifier", ErrInvalid)
	}
	if !reason.Valid() {
		return nil, fmt.Errorf("%w: unknown ban reason %q", ErrInvalid, reason)
	}

	options := addOptions{duration: DefaultDuration}
	for _, opt := range opts {
		opt(&options)
	}
	if options.duration <= 0 {
		return nil, fmt.Errorf("%w: duration must be positive, got %v", ErrInvalid, options.duration)
	}

	now := time.Now().UTC()
	record := &model.BanRecord{
		Identifier:  identifier,
		Reason:      reason,
		AddedAt:     now,
		ExpiresAt:   now.Add(options.duration),
		Description: options.description,
		ActorID:     options.actorID,
	}

	if err := s.store.SetJSON(ctx, key(identifier), record, options.duration); err != nil {
		return nil, fmt.Errorf("add ban: %w", err)
	}
	return record, nil
}

func (s *service) IsBanned(ctx context.Context, identifier string) bool {
	var record model.BanRecord
	found, err := s.store.GetJSON(ctx, key(identifier), &record)
	if err != nil {
		// Deliberate: infra failure degrades to "not banned" rather than
		// denying everyone. See the rate limiter's fail-open twin.
		logger.Warn("ban list store unavailable, treating as not banned",
			"identifier", identifier, "error", err)
		return false
	}
	return found
}

func (s *service) Get(ctx context.Context, identifier string) (*model.BanRecord, error) {
	var record model.BanRecord
	found, err := s.store.GetJSON(ctx, key(identifier), &record)
	if err != nil {
		return nil, fmt.Errorf("get ban: %w", err)
	}
	if !found {
		return nil, nil
	}
	return &record, nil
}

func (s *service) Remove(ctx context.Context, identifier string) (bool, error) {
	removed, err := s.store.Delete(ctx, key(identifier))
	if err != nil {
		return false, fmt.Errorf("remove ban: %w", err)
	}
	return removed, nil
}

func (s *service) List(ctx context.Context, cursor uint64, count int64) ([]model.BanRecord, uint64, error) {
	if count <= 0 {
		count = 50
	}

	keys, next, err := s.store.Scan(ctx, cursor, keyPrefix+"*", count)
	if err != nil {
		return nil, 0, fmt.Errorf("list bans: %w", err)
	}

	records := make([]model.BanRecord, 0, len(keys))
	for _, k := range keys {
		var record model.BanRecord
		found, err := s.store.GetJSON(ctx, k, &record)
		if err != nil {
			return nil, 0, fmt.Errorf("list bans: %w", err)
		}
		if !found {
			// Expired between scan and read.
			continue
		}
		records = append(records, record)
	}
	return records, next, nil
}

func (s *service) Stats(ctx context.Context) (map[model.BanReason]int, error) {
	stats := make(map[model.BanReason]int)

	var cursor uint64
	for {
		records, next, err := s.List(ctx, cursor, 100)
		if err != nil {
			return nil, err
		}
		for _, record := range records {
			stats[record.Reason]++
		}
		if next == 0 {
			return stats, nil
		}
		cursor = next
	}
}

// Sweep repairs records written before TTL-based expiry existed: keys with
// no TTL get their recorded expiry re-applied, already-expired ones are
// deleted. Returns how many records were removed.
func (s *service) Sweep(ctx context.Context) (int, error) {
	removed := 0

	var cursor uint64
	for {
		keys, next, err := s.store.Scan(ctx, cursor, keyPrefix+"*", 100)
		if err != nil {
			return removed, fmt.Errorf("sweep bans: %w", err)
		}

		for _, k := range keys {
			ttl, err := s.store.TTL(ctx, k)
			if err != nil {
				return removed, fmt.Errorf("sweep bans: %w", err)
			}
			if ttl != -1 {
				// -1 means "exists without expiry"; everything else is
				// either already TTL-bounded or gone.
				continue
			}

			var record model.BanRecord
			found, err := s.store.GetJSON(ctx, k, &record)
			if err != nil {
				return removed, fmt.Errorf("sweep bans: %w", err)
			}
			if !found {
				continue
			}

			remaining := time.Until(record.ExpiresAt)
			if remaining <= 0 {
				if _, err := s.store.Delete(ctx, k); err != nil {
					return removed, fmt.Errorf("sweep bans: %w", err)
				}
				removed++
				continue
			}
			if _, err := s.store.Expire(ctx, k, remaining); err != nil {
				return removed, fmt.Errorf("sweep bans: %w", err)
			}
		}

		if next == 0 {
			return removed, nil
		}
		cursor = next
	}
}
