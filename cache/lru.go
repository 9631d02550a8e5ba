package cache

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultSize is used when a non-positive size is requested.
const DefaultSize = 256

// LRU is a bounded, concurrency-safe cache keyed by K.
type LRU[K comparable, V any] struct {
	cache *lru.Cache[K, V]
}

// NewLRU creates a cache holding at most size entries. onEvict, when not nil,
// is called for every entry pushed out or removed.
func NewLRU[K comparable, V any](size int, onEvict func(K, V)) (*LRU[K, V], error) {
	if size <= 0 {
		size = DefaultSize
	}

	var (
		c   *lru.Cache[K, V]
		err error
	)
	if onEvict != nil {
		c, err = lru.NewWithEvict(size, onEvict)
	} else {
		c, err = lru.New[K, V](size)
	}
	if err != nil {
		return nil, fmt.Errorf("cache: creating lru: %w", err)
	}
	return &LRU[K, V]{cache: c}, nil
}

// Get returns the value stored under key.
func (l *LRU[K, V]) Get(key K) (V, bool) {
	return l.cache.Get(key)
}

// Set stores value under key, evicting the oldest entry when full.
func (l *LRU[K, V]) Set(key K, value V) {
	l.cache.Add(key, value)
}

// Remove drops key and reports whether it was present.
func (l *LRU[K, V]) Remove(key K) bool {
	return l.cache.Remove(key)
}

// Len returns the number of cached entries.
func (l *LRU[K, V]) Len() int {
	return l.cache.Len()
}

// Keys returns the cached keys from oldest to newest.
func (l *LRU[K, V]) Keys() []K {
	return l.cache.Keys()
}

// Purge removes every entry, calling the eviction callback for each.
func (l *LRU[K, V]) Purge() {
	l.cache.Purge()
}
