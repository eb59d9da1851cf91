package store

import (
	"context"
	"time"

	"github.com/jellydator/ttlcache/v3"
)

const currentKey = "current"

// MemoryStore keeps credentials in process memory, optionally expiring them.
type MemoryStore struct {
	cache *ttlcache.Cache[string, Credentials]
}

// NewMemoryStore creates a store whose records expire after ttl. A ttl of
// zero keeps them until deleted.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	if ttl <= 0 {
		ttl = ttlcache.NoTTL
	}
	cache := ttlcache.New(
		ttlcache.WithTTL[string, Credentials](ttl),
		ttlcache.WithDisableTouchOnHit[string, Credentials](),
	)
	go cache.Start()

	return &MemoryStore{cache: cache}
}

func (s *MemoryStore) Save(_ context.Context, creds Credentials) error {
	s.cache.Set(currentKey, creds, ttlcache.DefaultTTL)
	return nil
}

func (s *MemoryStore) Load(_ context.Context) (*Credentials, error) {
	item := s.cache.Get(currentKey)
	if item == nil {
		return nil, ErrNotFound
	}
	creds := item.Value()
	return &creds, nil
}

func (s *MemoryStore) Delete(_ context.Context) error {
	if !s.cache.Has(currentKey) {
		return ErrNotFound
	}
	s.cache.Delete(currentKey)
	return nil
}

// Close stops the expiry goroutine.
func (s *MemoryStore) Close() error {
	s.cache.Stop()
	return nil
}

var _ Store = (*MemoryStore)(nil)
