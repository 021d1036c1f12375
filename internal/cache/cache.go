// Package cache provides the TTL response cache sitting between the weather
// client and the OpenWeather API. The default backend persists one JSON file
// per key; a memcached backend is available for multi-process deployments.
package cache

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"
)

// Cache stores raw upstream payloads keyed by coordinates and endpoint.
// Get returns the payload if present and not expired. Callers treat every
// error as a miss: caching is an optimization, not a correctness requirement.
type Cache interface {
	Get(ctx context.Context, key string) (json.RawMessage, bool, error)
	Set(ctx context.Context, key string, payload json.RawMessage, ttl time.Duration) error
}

// Key derives the cache identity for a coordinate pair and endpoint name.
// Coordinates are rounded to 4 decimal places (~11 m), so nearby geocoding
// results share an entry. The hash keeps file names fixed-length and safe.
func Key(lat, lon float64, endpoint string) string {
	sum := md5.Sum([]byte(fmt.Sprintf("%.4f,%.4f,%s", lat, lon, endpoint)))
	return hex.EncodeToString(sum[:])
}
