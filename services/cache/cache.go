package cache

import (
	"errors"
	"fmt"
	"time"
)

// ErrCacheMiss is returned by Get when the key is absent or expired
var ErrCacheMiss = errors.New("cache miss")

// CacheService represents a generic byte cache
type CacheService interface {
	// Get retrieves a value from the cache, ErrCacheMiss when absent
	Get(key string) ([]byte, error)

	// Set stores a value in the cache with an expiration time
	Set(key string, value []byte, expiration time.Duration) error

	// Delete removes a value from the cache
	Delete(key string) error
}

// BlockKey is the key marking a platform as rate limited
func BlockKey(platform string) string {
	return "block:" + platform
}

// SearchKey is the key of a cached search response
func SearchKey(hash uint64) string {
	return fmt.Sprintf("search:%016x", hash)
}
