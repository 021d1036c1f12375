// Package registry owns the process-wide user state: location, notification
// preferences and the scheduler's per-user bookkeeping. A single coarse
// RWMutex guards the map; the persisted subset is written through to the
// storage document on every mutation of a persisted field.
package registry

import (
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/pogodabot/weatherbot/internal/storage"
	"github.com/pogodabot/weatherbot/internal/weather"
)

// DefaultIntervalHours is the notification interval assigned on first touch.
const DefaultIntervalHours = 2

// Interval bounds accepted by SetInterval, in hours.
const (
	MinIntervalHours = 1
	MaxIntervalHours = 24
)

var (
	// ErrNoLocation is returned when notifications are enabled before a
	// location is known.
	ErrNoLocation = errors.New("no location on record")

	// ErrInvalidInterval is returned for intervals outside [1, 24] hours.
	ErrInvalidInterval = errors.New("interval must be between 1 and 24 hours")
)

// Location is a user's stored place: coordinates plus display name.
type Location struct {
	Lat  float64
	Lon  float64
	City string
}

// user is the in-memory record. Snapshot and lastCheck are session-only and
// reset on restart.
type user struct {
	location      *Location
	enabled       bool
	intervalHours int
	snapshot      *weather.CurrentWeather
	lastCheck     time.Time
}

// NotificationTarget is a copy of the scheduler-relevant state of one
// enabled, located user.
type NotificationTarget struct {
	UserID        int64
	Location      Location
	IntervalHours int
	LastCheck     time.Time // zero value means never checked
	Snapshot      *weather.CurrentWeather
}

// Registry is the authoritative user state, instantiated once per process.
type Registry struct {
	mu     sync.RWMutex
	users  map[int64]*user
	store  *storage.Store
	logger *zap.Logger
}

// New creates an empty Registry backed by store.
func New(store *storage.Store, logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		users:  make(map[int64]*user),
		store:  store,
		logger: logger,
	}
}

// LoadFromStore restores every persisted user at startup. Session-only
// fields (snapshot, last check) start empty.
func (r *Registry) LoadFromStore() {
	all := r.store.LoadAll()

	r.mu.Lock()
	defer r.mu.Unlock()
	for id, rec := range all {
		u := r.ensureLocked(id)
		if rec.HasLocation() {
			u.location = &Location{Lat: *rec.Lat, Lon: *rec.Lon, City: rec.City}
		}
		u.enabled = rec.Notifications.Enabled
		if rec.Notifications.IntervalHours >= MinIntervalHours && rec.Notifications.IntervalHours <= MaxIntervalHours {
			u.intervalHours = rec.Notifications.IntervalHours
		}
	}
	r.logger.Info("user registry loaded", zap.Int("users", len(all)))
}

// SetLocation replaces the user's stored location and persists it.
func (r *Registry) SetLocation(userID int64, loc Location) {
	r.mu.Lock()
	u := r.ensureLocked(userID)
	u.location = &loc
	rec := persistedLocked(u)
	r.mu.Unlock()

	r.store.SaveOne(userID, rec)
}

// Location returns the user's stored location, if any.
func (r *Registry) Location(userID int64) (Location, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.users[userID]
	if !ok || u.location == nil {
		return Location{}, false
	}
	return *u.location, true
}

// Preferences returns the user's notification settings.
func (r *Registry) Preferences(userID int64) (enabled bool, intervalHours int) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.users[userID]
	if !ok {
		return false, DefaultIntervalHours
	}
	return u.enabled, u.intervalHours
}

// EnableNotifications turns notifications on. A stored location is required:
// enabled users must always be schedulable.
func (r *Registry) EnableNotifications(userID int64) error {
	r.mu.Lock()
	u := r.ensureLocked(userID)
	if u.location == nil {
		r.mu.Unlock()
		return ErrNoLocation
	}
	u.enabled = true
	rec := persistedLocked(u)
	r.mu.Unlock()

	r.store.SaveOne(userID, rec)
	return nil
}

// DisableNotifications turns notifications off and drops the session
// bookkeeping, so re-enabling starts from a clean first-contact state.
func (r *Registry) DisableNotifications(userID int64) {
	r.mu.Lock()
	u := r.ensureLocked(userID)
	u.enabled = false
	u.snapshot = nil
	u.lastCheck = time.Time{}
	rec := persistedLocked(u)
	r.mu.Unlock()

	r.store.SaveOne(userID, rec)
}

// SetInterval updates the notification interval, clamped to [1, 24] hours by
// rejection rather than silent adjustment.
func (r *Registry) SetInterval(userID int64, hours int) error {
	if hours < MinIntervalHours || hours > MaxIntervalHours {
		return ErrInvalidInterval
	}

	r.mu.Lock()
	u := r.ensureLocked(userID)
	u.intervalHours = hours
	rec := persistedLocked(u)
	r.mu.Unlock()

	r.store.SaveOne(userID, rec)
	return nil
}

// NotificationTargets returns a copy of every enabled user that has a
// location. The scheduler iterates over this copy, never the live map.
func (r *Registry) NotificationTargets() []NotificationTarget {
	r.mu.RLock()
	defer r.mu.RUnlock()

	targets := make([]NotificationTarget, 0, len(r.users))
	for id, u := range r.users {
		if !u.enabled || u.location == nil {
			continue
		}
		targets = append(targets, NotificationTarget{
			UserID:        id,
			Location:      *u.location,
			IntervalHours: u.intervalHours,
			LastCheck:     u.lastCheck,
			Snapshot:      u.snapshot,
		})
	}
	return targets
}

// Enabled reports whether the user currently has notifications on. The
// scheduler re-checks this per user: a disable between snapshot and
// processing must win.
func (r *Registry) Enabled(userID int64) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.users[userID]
	return ok && u.enabled
}

// MarkChecked records the scheduler's evaluation time for the user.
// Session-only, not persisted.
func (r *Registry) MarkChecked(userID int64, at time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.users[userID]; ok {
		u.lastCheck = at
	}
}

// UpdateSnapshot stores the last weather the scheduler observed for the
// user, the baseline for temperature-shift detection. Ignored once the user
// has disabled notifications.
func (r *Registry) UpdateSnapshot(userID int64, w *weather.CurrentWeather) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.users[userID]; ok && u.enabled {
		u.snapshot = w
	}
}

// ensureLocked returns the record for userID, creating it lazily. Caller
// holds the write lock.
func (r *Registry) ensureLocked(userID int64) *user {
	u, ok := r.users[userID]
	if !ok {
		u = &user{intervalHours: DefaultIntervalHours}
		r.users[userID] = u
	}
	return u
}

// persistedLocked extracts the persisted subset of a record. Caller holds
// the lock.
func persistedLocked(u *user) storage.UserRecord {
	rec := storage.UserRecord{
		Notifications: storage.Notifications{
			Enabled:       u.enabled,
			IntervalHours: u.intervalHours,
		},
	}
	if u.location != nil {
		lat, lon := u.location.Lat, u.location.Lon
		rec.Lat = &lat
		rec.Lon = &lon
		rec.City = u.location.City
	}
	return rec
}
