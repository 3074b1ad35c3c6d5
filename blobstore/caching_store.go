package blobstore

import (
	"context"

	"golang.org/x/sync/singleflight"

	"github.com/hupe1980/vectable/internal/cache"
)

// CachingStore wraps a Store and caches whole blobs in an LRU.
//
// Table files are immutable once written, so cached content only goes stale
// when a name is deleted or overwritten through this store, which evicts it.
type CachingStore struct {
	inner Store
	cache *cache.LRU
	group singleflight.Group
}

var _ Store = (*CachingStore)(nil)

// NewCachingStore creates a new CachingStore.
func NewCachingStore(inner Store, lru *cache.LRU) *CachingStore {
	return &CachingStore{
		inner: inner,
		cache: lru,
	}
}

// Inner returns the wrapped store.
func (s *CachingStore) Inner() Store { return s.inner }

func (s *CachingStore) Open(ctx context.Context, name string) (Blob, error) {
	if data, ok := s.cache.Get(name); ok {
		return &bytesBlob{data: data}, nil
	}

	// Concurrent misses for the same blob share one read.
	v, err, _ := s.group.Do(name, func() (any, error) {
		data, err := ReadAll(ctx, s.inner, name)
		if err != nil {
			return nil, err
		}
		s.cache.Set(name, data)
		return data, nil
	})
	if err != nil {
		return nil, err
	}
	return &bytesBlob{data: v.([]byte)}, nil
}

func (s *CachingStore) Put(ctx context.Context, name string, data []byte) error {
	s.cache.Remove(name)
	return s.inner.Put(ctx, name, data)
}

func (s *CachingStore) PutIfAbsent(ctx context.Context, name string, data []byte) error {
	return s.inner.PutIfAbsent(ctx, name, data)
}

func (s *CachingStore) Delete(ctx context.Context, name string) error {
	s.cache.Remove(name)
	return s.inner.Delete(ctx, name)
}

func (s *CachingStore) List(ctx context.Context, prefix string) ([]Info, error) {
	return s.inner.List(ctx, prefix)
}

// Lock delegates to the wrapped store when it is a Locker.
func (s *CachingStore) Lock(ctx context.Context, name string) (func() error, error) {
	if l, ok := s.inner.(Locker); ok {
		return l.Lock(ctx, name)
	}
	return func() error { return nil }, nil
}

// Stats returns the cache hit and miss counts.
func (s *CachingStore) Stats() (hits, misses int64) {
	return s.cache.Stats()
}
