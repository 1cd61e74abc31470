package blobstore

import (
	"context"
	"sync"

	"github.com/emirpasic/gods/maps/linkedhashmap"
	"golang.org/x/sync/singleflight"
)

// DefaultCacheBytes is the cache budget used when NewCachingStore gets a
// non-positive limit.
const DefaultCacheBytes = 64 << 20

// CachingStore wraps a BlobStore and keeps whole blobs in memory, evicting
// the least recently used ones once the byte budget is exceeded. Blobs larger
// than the budget are never cached.
type CachingStore struct {
	inner BlobStore
	limit int64

	mu    sync.Mutex
	lru   *linkedhashmap.Map // name -> []byte, oldest first
	bytes int64
	gens  map[string]uint64 // bumped by every write or delete of a name

	group singleflight.Group
}

// NewCachingStore creates a new CachingStore.
func NewCachingStore(inner BlobStore, limitBytes int64) *CachingStore {
	if limitBytes <= 0 {
		limitBytes = DefaultCacheBytes
	}
	return &CachingStore{
		inner: inner,
		limit: limitBytes,
		lru:   linkedhashmap.New(),
		gens:  make(map[string]uint64),
	}
}

// Open serves name from the cache, reading it through from the inner store
// on a miss. Concurrent misses for one name share a single read, which is
// not canceled when one of the waiting callers gives up.
func (s *CachingStore) Open(ctx context.Context, name string) (Blob, error) {
	if data, ok := s.get(name); ok {
		return &memoryBlob{data: data}, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ch := s.group.DoChan(name, func() (any, error) {
		gen := s.generation(name)
		data, err := ReadAll(context.WithoutCancel(ctx), s.inner, name)
		if err != nil {
			return nil, err
		}
		s.add(name, data, gen)
		return data, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return &memoryBlob{data: res.Val.([]byte)}, nil
	}
}

// Put writes through and drops any cached copy. A read of name that is in
// flight while Put runs does not populate the cache.
func (s *CachingStore) Put(ctx context.Context, name string, data []byte) error {
	s.invalidate(name)
	defer s.invalidate(name)
	return s.inner.Put(ctx, name, data)
}

// Delete deletes through and drops any cached copy.
func (s *CachingStore) Delete(ctx context.Context, name string) error {
	s.invalidate(name)
	defer s.invalidate(name)
	return s.inner.Delete(ctx, name)
}

// List is not cached.
func (s *CachingStore) List(ctx context.Context, prefix string) ([]string, error) {
	return s.inner.List(ctx, prefix)
}

// CachedBytes returns the bytes currently held.
func (s *CachingStore) CachedBytes() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bytes
}

func (s *CachingStore) get(name string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, ok := s.lru.Get(name)
	if !ok {
		return nil, false
	}
	// move to the back
	s.lru.Remove(name)
	s.lru.Put(name, v)
	return v.([]byte), true
}

func (s *CachingStore) generation(name string) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gens[name]
}

// add caches data read at generation gen, unless name was written since.
func (s *CachingStore) add(name string, data []byte, gen uint64) {
	size := int64(len(data))
	if size > s.limit {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.gens[name] != gen {
		return
	}

	if old, ok := s.lru.Get(name); ok {
		s.bytes -= int64(len(old.([]byte)))
		s.lru.Remove(name)
	}
	for s.bytes+size > s.limit && !s.lru.Empty() {
		it := s.lru.Iterator()
		it.First()
		s.bytes -= int64(len(it.Value().([]byte)))
		s.lru.Remove(it.Key())
	}
	s.lru.Put(name, data)
	s.bytes += size
}

func (s *CachingStore) invalidate(name string) {
	s.group.Forget(name)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.gens[name]++

	if old, ok := s.lru.Get(name); ok {
		s.bytes -= int64(len(old.([]byte)))
		s.lru.Remove(name)
	}
}
