package cache

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/meltforce/trainergpt/internal/config"
)

// Open builds the cache described by cfg. It returns a nil cache, which
// every method treats as disabled, when caching is off or the backend is
// "none". The returned close func releases the Redis client, if any.
func Open(cfg config.CacheConfig, rc config.RedisConfig, enabled bool, log *slog.Logger) (*Cache, func() error, error) {
	noop := func() error { return nil }
	if !enabled || cfg.Backend == "none" {
		return nil, noop, nil
	}

	var (
		store   Store
		closeFn = noop
	)
	switch cfg.Backend {
	case "memory":
		store = NewMemoryStore(max(1, cfg.MemorySizeMB) << 20)
	case "redis":
		client := redis.NewClient(&redis.Options{Addr: rc.Addr, Password: rc.Password, DB: rc.DB})
		store = NewRedisStore(client)
		closeFn = client.Close
	default:
		return nil, noop, fmt.Errorf("unknown cache backend %q", cfg.Backend)
	}

	var opts []Option
	if cfg.DefaultTTL > 0 {
		opts = append(opts, WithDefaultTTL(cfg.DefaultTTL))
	}
	for kind, ttl := range map[Kind]time.Duration{
		KindVolume:        cfg.VolumeTTL,
		KindProfile:       cfg.ProfileTTL,
		KindExerciseList:  cfg.ExerciseListTTL,
		KindWeeklySummary: cfg.WeeklySummaryTTL,
		KindDeload:        cfg.DeloadTTL,
	} {
		if ttl > 0 {
			opts = append(opts, WithTTL(kind, ttl))
		}
	}
	log.Info("cache enabled", "backend", cfg.Backend)
	return New(store, log, opts...), closeFn, nil
}
