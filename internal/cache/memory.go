package cache

import (
	"context"
	"errors"
	"time"

	"github.com/coocood/freecache"
)

// MemoryStore keeps cache entries in process.
type MemoryStore struct {
	fc *freecache.Cache
}

// NewMemoryStore allocates an in-process store of roughly sizeBytes.
func NewMemoryStore(sizeBytes int) *MemoryStore {
	return &MemoryStore{fc: freecache.NewCache(sizeBytes)}
}

func (s *MemoryStore) Get(_ context.Context, key string) ([]byte, error) {
	v, err := s.fc.Get([]byte(key))
	if errors.Is(err, freecache.ErrNotFound) {
		return nil, ErrMiss
	}
	return v, err
}

// Set stores value. freecache expires on whole seconds, so sub-second TTLs round up.
func (s *MemoryStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	secs := int((ttl + time.Second - 1) / time.Second)
	return s.fc.Set([]byte(key), value, secs)
}

func (s *MemoryStore) Delete(_ context.Context, keys ...string) error {
	for _, k := range keys {
		s.fc.Del([]byte(k))
	}
	return nil
}
