package kvstore

import (
	"context"
	stderrors "errors"
	"fmt"
	"math"
	"time"

	"github.com/coocood/freecache"
)

// DefaultMemorySize is the freecache arena used by NewMemory(0).
const DefaultMemorySize = 8 * 1024 * 1024

type memoryStore struct {
	cache *freecache.Cache
}

// NewMemory returns a process-local store backed by freecache. Contents live
// as long as the process; it is the session-only backend and the rate cache.
// Entries larger than 1/1024 of size are rejected with ErrQuotaExceeded.
func NewMemory(size int) Store {
	if size <= 0 {
		size = DefaultMemorySize
	}
	return &memoryStore{cache: freecache.NewCache(size)}
}

func ttlSeconds(expiry time.Duration) int {
	if expiry <= 0 {
		return 0
	}
	return int(math.Ceil(expiry.Seconds()))
}

func (s *memoryStore) Set(ctx context.Context, key string, value string, expiry time.Duration) error {
	err := s.cache.Set([]byte(key), []byte(value), ttlSeconds(expiry))
	if err != nil {
		if stderrors.Is(err, freecache.ErrLargeEntry) || stderrors.Is(err, freecache.ErrLargeKey) {
			return fmt.Errorf("set key %s: %w", key, ErrQuotaExceeded)
		}
		return fmt.Errorf("failed to set key %s: %w", key, err)
	}
	return nil
}

func (s *memoryStore) Get(ctx context.Context, key string) (string, error) {
	data, err := s.cache.Get([]byte(key))
	if err != nil {
		if stderrors.Is(err, freecache.ErrNotFound) {
			return "", ErrKeyNotFound
		}
		return "", fmt.Errorf("failed to get key %s: %w", key, err)
	}
	return string(data), nil
}

func (s *memoryStore) Delete(ctx context.Context, key string) error {
	s.cache.Del([]byte(key))
	return nil
}

func (s *memoryStore) Close() error {
	s.cache.Clear()
	return nil
}
