package cache

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"time"
)

// diskEntry is the on-disk envelope: write time in epoch seconds plus the
// payload exactly as returned by the upstream.
type diskEntry struct {
	Timestamp float64         `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
}

// DiskCache implements Cache with one file per key under a cache directory.
// Entries are immutable once written except for wholesale replacement, so
// concurrent readers and writers settle on last-write-wins.
type DiskCache struct {
	dir string
	ttl time.Duration
	now func() time.Time
}

// NewDiskCache creates the cache directory if needed and returns a DiskCache
// whose entries expire after ttl.
func NewDiskCache(dir string, ttl time.Duration) (*DiskCache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &DiskCache{dir: dir, ttl: ttl, now: time.Now}, nil
}

func (c *DiskCache) path(key string) string {
	return filepath.Join(c.dir, key+".json")
}

// Get returns the stored payload for key if the entry is younger than the
// TTL. Expired entries are best-effort deleted; a corrupt or unreadable file
// counts as a miss.
func (c *DiskCache) Get(ctx context.Context, key string) (json.RawMessage, bool, error) {
	if ctx.Err() != nil {
		return nil, false, ctx.Err()
	}
	raw, err := os.ReadFile(c.path(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, err
	}

	var entry diskEntry
	if err := json.Unmarshal(raw, &entry); err != nil {
		return nil, false, nil
	}

	age := c.now().Sub(time.Unix(int64(entry.Timestamp), 0))
	if age >= c.ttl {
		_ = os.Remove(c.path(key)) // stale; deletion failure is non-fatal
		return nil, false, nil
	}
	return entry.Data, true, nil
}

// Set stores the payload together with the current timestamp, overwriting
// any prior entry for the same key. The ttl argument is ignored here; disk
// entries expire against the cache-wide TTL on read.
func (c *DiskCache) Set(ctx context.Context, key string, payload json.RawMessage, ttl time.Duration) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	entry := diskEntry{
		Timestamp: float64(c.now().Unix()),
		Data:      payload,
	}
	raw, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	return os.WriteFile(c.path(key), raw, 0o644)
}
