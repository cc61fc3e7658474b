package memory

import (
	"context"
	"sync"
	"time"

	"ragone-be/pkg/cache"

	gocache "github.com/patrickmn/go-cache"
)

// CacheStore is the in-process cache.Store used when Redis is not configured
// (CHAT_CACHE_BACKEND=memory) and in tests. Values and sets live in go-cache
// so expiry behaves the same way as in Redis.
type CacheStore struct {
	cache *gocache.Cache
	mu    sync.Mutex // guards read-modify-write of sets
}

var _ cache.Store = (*CacheStore)(nil)

func NewCacheStore() *CacheStore {
	// Default expiration 1 hour, purge expired items every 10 minutes
	return &CacheStore{
		cache: gocache.New(1*time.Hour, 10*time.Minute),
	}
}

func (s *CacheStore) Get(_ context.Context, key string) ([]byte, error) {
	x, found := s.cache.Get(key)
	if !found {
		return nil, cache.ErrMiss
	}
	b, ok := x.([]byte)
	if !ok {
		return nil, cache.ErrMiss
	}
	// Callers may mutate what they unmarshal; hand out a copy.
	out := make([]byte, len(b))
	copy(out, b)
	return out, nil
}

func (s *CacheStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	v := make([]byte, len(value))
	copy(v, value)
	s.cache.Set(key, v, expiration(ttl))
	return nil
}

func (s *CacheStore) Delete(_ context.Context, keys ...string) error {
	for _, k := range keys {
		s.cache.Delete(k)
	}
	return nil
}

func (s *CacheStore) SAdd(_ context.Context, key string, ttl time.Duration, members ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	set := s.loadSet(key)
	for _, m := range members {
		set[m] = struct{}{}
	}
	s.cache.Set(key, set, expiration(ttl))
	return nil
}

func (s *CacheStore) SMembers(_ context.Context, key string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	set := s.loadSet(key)
	out := make([]string, 0, len(set))
	for m := range set {
		out = append(out, m)
	}
	return out, nil
}

func (s *CacheStore) SRem(_ context.Context, key string, members ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	x, exp, found := s.cache.GetWithExpiration(key)
	if !found {
		return nil
	}
	set, ok := x.(map[string]struct{})
	if !ok {
		return nil
	}
	next := make(map[string]struct{}, len(set))
	for m := range set {
		next[m] = struct{}{}
	}
	for _, m := range members {
		delete(next, m)
	}
	if len(next) == 0 {
		s.cache.Delete(key)
		return nil
	}

	ttl := gocache.NoExpiration
	if !exp.IsZero() {
		ttl = time.Until(exp)
		if ttl <= 0 {
			s.cache.Delete(key)
			return nil
		}
	}
	s.cache.Set(key, next, ttl)
	return nil
}

// loadSet returns a copy of the stored set, or an empty one. Caller holds mu.
func (s *CacheStore) loadSet(key string) map[string]struct{} {
	out := make(map[string]struct{})
	if x, found := s.cache.Get(key); found {
		if set, ok := x.(map[string]struct{}); ok {
			for m := range set {
				out[m] = struct{}{}
			}
		}
	}
	return out
}

func expiration(ttl time.Duration) time.Duration {
	if ttl <= 0 {
		return gocache.NoExpiration
	}
	return ttl
}
