// Package cache stores aggregated city results so repeated lookups within
// the TTL do not hit the upstream APIs again.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"
)

// Cache defines the interface for caching
type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte, ttl time.Duration) error
	Delete(key string) error
	Clear() error
}

// CityKey generates a cache key for a city's aggregated results. The day is
// part of the key so a cached result never bleeds into the next day's scan.
func CityKey(city, day string) string {
	hash := sha256.Sum256([]byte(strings.ToLower(strings.TrimSpace(city)) + "|" + day))
	return "eventscout:v1:" + hex.EncodeToString(hash[:])
}
