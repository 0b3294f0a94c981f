package cache

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/ldl-target-server/internal/domain"
)

const (
	defaultMaxItems = 1000
	defaultTTL      = time.Hour
)

// MemoryCache is an in-process LRU with per-entry expiry
type MemoryCache struct {
	lru *expirable.LRU[string, []byte]
}

var _ domain.ReportCache = (*MemoryCache)(nil)

// NewMemoryCache creates a cache holding at most maxItems entries for ttl.
// Non-positive arguments fall back to defaults.
func NewMemoryCache(maxItems int, ttl time.Duration) *MemoryCache {
	if maxItems <= 0 {
		maxItems = defaultMaxItems
	}
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &MemoryCache{lru: expirable.NewLRU[string, []byte](maxItems, nil, ttl)}
}

// Get returns a copy of the cached value
func (m *MemoryCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	v, ok := m.lru.Get(KeyPrefix + key)
	if !ok {
		return nil, false, nil
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, true, nil
}

// Set stores a copy of value under key
func (m *MemoryCache) Set(_ context.Context, key string, value []byte) error {
	v := make([]byte, len(value))
	copy(v, value)
	m.lru.Add(KeyPrefix+key, v)
	return nil
}

// Len returns the number of live entries
func (m *MemoryCache) Len() int {
	return m.lru.Len()
}

// Close drops every entry
func (m *MemoryCache) Close() error {
	m.lru.Purge()
	return nil
}
