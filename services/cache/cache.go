package cache

import (
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"strings"
	"time"
)

// ErrMiss is returned by Get when the key is not cached
var ErrMiss = errors.New("cache miss")

// CacheService represents a generic cache service
type CacheService interface {
	// Get retrieves a value from the cache
	Get(key string) ([]byte, error)

	// Set stores a value in the cache with an expiration time
	Set(key string, value []byte, expiration time.Duration) error

	// SetIfAbsent stores a value only when the key is not present.
	// It reports whether the value was stored.
	SetIfAbsent(key string, value []byte, expiration time.Duration) (bool, error)

	// Delete removes a value from the cache
	Delete(key string) error
}

// Key builds a cache key from arbitrary parts.
// Memcache keys are limited to 250 bytes without whitespace, so the parts are hashed.
func Key(namespace string, parts ...string) string {
	sum := sha1.Sum([]byte(strings.Join(parts, "\x00")))
	return "ebaymonitor:" + namespace + ":" + hex.EncodeToString(sum[:])
}
