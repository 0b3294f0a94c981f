// Package cache stores serialized evaluation reports for later lookup by
// evaluation ID. Entries expire; nothing here is durable.
package cache

import (
	"fmt"

	"github.com/ldl-target-server/internal/domain"
)

// KeyPrefix namespaces report keys in shared backends
const KeyPrefix = "ldl:report:"

// New builds the report cache selected by cfg.Backend
func New(cfg domain.CacheConfig) (domain.ReportCache, error) {
	switch cfg.Backend {
	case "", "memory":
		return NewMemoryCache(cfg.MaxItems, cfg.DefaultTTL), nil
	case "redis":
		return NewRedisCache(cfg)
	default:
		return nil, fmt.Errorf("unknown cache backend %q", cfg.Backend)
	}
}
