// Package store adapts the shared Redis instance that holds all
// cross-request gate state (rate-limit windows and ban records).
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// Config holds the Redis connection settings.
type Config struct {
	Addr     string
	Password string
	DB       int
}

// Store wraps the shared Redis client behind the narrow operations the
// gating components need.
type Store struct {
	client *redis.Client
}

// New connects to Redis and verifies the connection with a bounded ping.
func New(cfg Config) (*Store, error) {
	if cfg.Addr == "" {
		return nil, fmt.Errorf("redis address is required")
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &Store{client: client}, nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	return s.client.Close()
}

// Slide runs the sliding-window step as one atomic transaction: purge entries
// older than the window, insert the new member scored at now, count the
// survivors, and refresh the key's expiry. Returns the post-insert count.
func (s *Store) Slide(ctx context.Context, key string, now time.Time, window time.Duration, member string) (int64, error) {
	nowMs := now.UnixMilli()
	cutoff := strconv.FormatInt(nowMs-window.Milliseconds(), 10)

	pipe := s.client.TxPipeline()
	pipe.ZRemRangeByScore(ctx, key, "0", cutoff)
	pipe.ZAdd(ctx, key, redis.Z{Score: float64(nowMs), Member: member})
	card := pipe.ZCard(ctx, key)
	pipe.PExpire(ctx, key, window)

	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("slide %s: %w", key, err)
	}
	return card.Val(), nil
}

// DropMember removes a single window entry; used to roll back the entry
// inserted by Slide when the window is already full.
func (s *Store) DropMember(ctx context.Context, key, member string) error {
	if err := s.client.ZRem(ctx, key, member).Err(); err != nil {
		return fmt.Errorf("drop member %s: %w", key, err)
	}
	return nil
}

// Clear deletes all window state for a key.
func (s *Store) Clear(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("clear %s: %w", key, err)
	}
	return nil
}

// Status returns the current entry count and remaining TTL for a window key.
func (s *Store) Status(ctx context.Context, key string) (int64, time.Duration, error) {
	pipe := s.client.Pipeline()
	card := pipe.ZCard(ctx, key)
	ttl := pipe.PTTL(ctx, key)

	if _, err := pipe.Exec(ctx); err != nil {
		return 0, 0, fmt.Errorf("status %s: %w", key, err)
	}
	return card.Val(), ttl.Val(), nil
}

// SetJSON stores v as JSON under key with the given TTL.
func (s *Store) SetJSON(ctx context.Context, key string, v any, ttl time.Duration) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}
	if err := s.client.Set(ctx, key, data, ttl).Err(); err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}

// GetJSON loads the JSON value at key into v. Returns false when the key
// does not exist.
func (s *Store) GetJSON(ctx context.Context, key string, v any) (bool, error) {
	data, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("get %s: %w", key, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, fmt.Errorf("unmarshal %s: %w", key, err)
	}
	return true, nil
}

// Delete removes key and reports whether it existed.
func (s *Store) Delete(ctx context.Context, key string) (bool, error) {
	n, err := s.client.Del(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("delete %s: %w", key, err)
	}
	return n > 0, nil
}

// Scan iterates keys matching pattern, returning one page and the next cursor.
func (s *Store) Scan(ctx context.Context, cursor uint64, match string, count int64) ([]string, uint64, error) {
	keys, next, err := s.client.Scan(ctx, cursor, match, count).Result()
	if err != nil {
		return nil, 0, fmt.Errorf("scan %s: %w", match, err)
	}
	return keys, next, nil
}

// TTL returns the remaining lifetime of key. A negative duration means the
// key has no expiry (-1) or does not exist (-2), matching Redis semantics.
func (s *Store) TTL(ctx context.Context, key string) (time.Duration, error) {
	d, err := s.client.PTTL(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("ttl %s: %w", key, err)
	}
	return d, nil
}

// Expire sets a TTL on an existing key and reports whether the key exists.
func (s *Store) Expire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	ok, err := s.client.PExpire(ctx, key, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("expire %s: %w", key, err)
	}
	return ok, nil
}
