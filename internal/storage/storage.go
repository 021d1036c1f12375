// Package storage persists per-user settings in a single JSON document,
// keyed by string user id. Every write is a read-modify-write of the whole
// document; the store serializes writers behind one lock so the scheduler
// and request handlers cannot lose each other's updates.
//
// Read failures (missing file, corrupt JSON, I/O errors) degrade to empty
// results and write failures are swallowed: losing a settings write is
// preferable to failing a chat interaction.
package storage

import (
	"encoding/json"
	"os"
	"strconv"
	"sync"

	"go.uber.org/zap"
)

// Notifications is the persisted notification preference block.
type Notifications struct {
	Enabled       bool `json:"enabled"`
	IntervalHours int  `json:"interval_h"`
}

// UserRecord is the persisted subset of a user's state. Coordinates are
// pointers so "no location yet" survives the JSON round trip.
type UserRecord struct {
	Lat           *float64      `json:"lat,omitempty"`
	Lon           *float64      `json:"lon,omitempty"`
	City          string        `json:"city,omitempty"`
	Notifications Notifications `json:"notifications"`
}

// HasLocation reports whether the record carries coordinates.
func (r UserRecord) HasLocation() bool {
	return r.Lat != nil && r.Lon != nil
}

// Store reads and writes the user document.
type Store struct {
	mu     sync.Mutex
	path   string
	logger *zap.Logger
}

// NewStore creates a Store over the document at path. The file is created
// lazily on first save.
func NewStore(path string, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{path: path, logger: logger}
}

// LoadAll returns every persisted user record, or an empty map when the
// document is missing or unreadable.
func (s *Store) LoadAll() map[int64]UserRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.readAll()
}

// LoadOne returns the persisted record for userID, reporting whether one
// exists.
func (s *Store) LoadOne(userID int64) (UserRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.readAll()[userID]
	return rec, ok
}

// SaveOne upserts the record for userID, rewriting the whole document.
// Persistence failures are logged and ignored.
func (s *Store) SaveOne(userID int64, rec UserRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()

	all := s.readAllRaw()
	all[strconv.FormatInt(userID, 10)] = rec
	s.writeAll(all)
}

// Delete removes the record for userID. Not reachable from any user-facing
// flow; kept for operational cleanup.
func (s *Store) Delete(userID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	all := s.readAllRaw()
	key := strconv.FormatInt(userID, 10)
	if _, ok := all[key]; !ok {
		return
	}
	delete(all, key)
	s.writeAll(all)
}

func (s *Store) readAll() map[int64]UserRecord {
	out := make(map[int64]UserRecord)
	for key, rec := range s.readAllRaw() {
		id, err := strconv.ParseInt(key, 10, 64)
		if err != nil {
			continue
		}
		out[id] = rec
	}
	return out
}

func (s *Store) readAllRaw() map[string]UserRecord {
	all := make(map[string]UserRecord)
	raw, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Warn("user store read failed", zap.Error(err))
		}
		return all
	}
	if err := json.Unmarshal(raw, &all); err != nil {
		s.logger.Warn("user store corrupt, starting empty", zap.Error(err))
		return make(map[string]UserRecord)
	}
	return all
}

func (s *Store) writeAll(all map[string]UserRecord) {
	raw, err := json.MarshalIndent(all, "", "  ")
	if err != nil {
		return
	}
	if err := os.WriteFile(s.path, raw, 0o644); err != nil {
		s.logger.Warn("user store write failed", zap.Error(err))
	}
}
