// Package cache is a read-through TTL cache in front of the store, keyed by
// user and data kind. It is never required for correctness: store failures
// fall through to the loader.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/meltforce/trainergpt/internal/metrics"
)

// Kind is the kind of data cached for a user.
type Kind string

const (
	KindVolume        Kind = "volume"
	KindProfile       Kind = "profile"
	KindExerciseList  Kind = "exercise-list"
	KindWeeklySummary Kind = "weekly-summary"
	KindDeload        Kind = "deload"
)

// Kinds lists every cache kind.
var Kinds = []Kind{KindVolume, KindProfile, KindExerciseList, KindWeeklySummary, KindDeload}

// ErrMiss is returned by a Store when the key is absent or expired.
var ErrMiss = errors.New("cache miss")

// Store is a byte-oriented key/value store with expiry.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

// Key returns the store key for a user's kind. Shared data uses user 0.
func Key(userID int, kind Kind) string {
	return fmt.Sprintf("trainergpt:%d:%s", userID, kind)
}

// Cache is a read-through cache. A nil *Cache is valid and always loads.
type Cache struct {
	store Store
	ttl   map[Kind]time.Duration
	def   time.Duration
	log   *slog.Logger
}

// Option configures a Cache.
type Option func(*Cache)

// WithTTL sets the expiry for one kind.
func WithTTL(kind Kind, ttl time.Duration) Option {
	return func(c *Cache) { c.ttl[kind] = ttl }
}

// WithDefaultTTL sets the expiry for kinds without their own.
func WithDefaultTTL(ttl time.Duration) Option {
	return func(c *Cache) { c.def = ttl }
}

// New creates a cache over store.
func New(store Store, log *slog.Logger, opts ...Option) *Cache {
	c := &Cache{
		store: store,
		ttl:   map[Kind]time.Duration{},
		def:   5 * time.Minute,
		log:   log,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// TTL returns the expiry used for kind.
func (c *Cache) TTL(kind Kind) time.Duration {
	if ttl, ok := c.ttl[kind]; ok {
		return ttl
	}
	return c.def
}

// GetOrLoad returns the cached value for (userID, kind). On a miss, or when the
// store fails, it calls load and caches the result.
func GetOrLoad[T any](ctx context.Context, c *Cache, userID int, kind Kind, load func(context.Context) (T, error)) (T, error) {
	if c == nil {
		return load(ctx)
	}

	key := Key(userID, kind)
	raw, err := c.store.Get(ctx, key)
	switch {
	case err == nil:
		var v T
		if err := json.Unmarshal(raw, &v); err == nil {
			metrics.CacheRequests.WithLabelValues(string(kind), "hit").Inc()
			return v, nil
		}
		c.log.Warn("cache decode failed", "key", key, "error", err)
	case errors.Is(err, ErrMiss):
	default:
		c.log.Warn("cache get failed", "key", key, "error", err)
	}
	metrics.CacheRequests.WithLabelValues(string(kind), "miss").Inc()

	v, err := load(ctx)
	if err != nil {
		return v, err
	}
	c.Put(ctx, userID, kind, v)
	return v, nil
}

// Put stores v for (userID, kind). Failures are logged, not returned.
func (c *Cache) Put(ctx context.Context, userID int, kind Kind, v any) {
	if c == nil {
		return
	}
	raw, err := json.Marshal(v)
	if err != nil {
		c.log.Warn("cache encode failed", "kind", kind, "error", err)
		return
	}
	if err := c.store.Set(ctx, Key(userID, kind), raw, c.TTL(kind)); err != nil {
		c.log.Warn("cache set failed", "kind", kind, "error", err)
	}
}

// Invalidate drops the given kinds for a user.
func (c *Cache) Invalidate(ctx context.Context, userID int, kinds ...Kind) {
	if c == nil || len(kinds) == 0 {
		return
	}
	keys := make([]string, 0, len(kinds))
	for _, k := range kinds {
		keys = append(keys, Key(userID, k))
	}
	if err := c.store.Delete(ctx, keys...); err != nil {
		c.log.Warn("cache invalidate failed", "user_id", userID, "error", err)
	}
}
