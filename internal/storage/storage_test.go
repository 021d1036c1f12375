package storage

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func floatPtr(v float64) *float64 { return &v }

func TestStore_SaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "User_Data.json")
	s := NewStore(path, nil)

	rec := UserRecord{
		Lat:  floatPtr(55.7504),
		Lon:  floatPtr(37.6175),
		City: "Москва",
		Notifications: Notifications{
			Enabled:       true,
			IntervalHours: 4,
		},
	}
	s.SaveOne(42, rec)

	got, ok := s.LoadOne(42)
	if !ok {
		t.Fatal("LoadOne() ok = false after SaveOne")
	}
	if *got.Lat != 55.7504 || *got.Lon != 37.6175 || got.City != "Москва" {
		t.Errorf("LoadOne() = %+v", got)
	}
	if !got.Notifications.Enabled || got.Notifications.IntervalHours != 4 {
		t.Errorf("notifications = %+v", got.Notifications)
	}
}

func TestStore_LoadOne_MissingFile(t *testing.T) {
	s := NewStore(filepath.Join(t.TempDir(), "missing.json"), nil)
	if _, ok := s.LoadOne(1); ok {
		t.Error("LoadOne() ok = true for missing file")
	}
	if all := s.LoadAll(); len(all) != 0 {
		t.Errorf("LoadAll() = %v, want empty", all)
	}
}

// TestStore_CorruptDocumentDegradesToEmpty verifies the error policy:
// corruption never propagates, it reads as an empty store.
func TestStore_CorruptDocumentDegradesToEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "User_Data.json")
	if err := os.WriteFile(path, []byte("{broken"), 0o644); err != nil {
		t.Fatalf("write corrupt file: %v", err)
	}
	s := NewStore(path, nil)

	if all := s.LoadAll(); len(all) != 0 {
		t.Errorf("LoadAll() = %v, want empty for corrupt document", all)
	}

	// A save over the corrupt document starts fresh rather than failing.
	s.SaveOne(7, UserRecord{City: "Казань"})
	got, ok := s.LoadOne(7)
	if !ok || got.City != "Казань" {
		t.Errorf("LoadOne() after recovery = %+v, ok=%v", got, ok)
	}
}

func TestStore_SaveOnePreservesOtherUsers(t *testing.T) {
	path := filepath.Join(t.TempDir(), "User_Data.json")
	s := NewStore(path, nil)

	s.SaveOne(1, UserRecord{City: "Москва"})
	s.SaveOne(2, UserRecord{City: "Сочи"})

	all := s.LoadAll()
	if len(all) != 2 {
		t.Fatalf("LoadAll() size = %d, want 2", len(all))
	}
	if all[1].City != "Москва" || all[2].City != "Сочи" {
		t.Errorf("LoadAll() = %v", all)
	}
}

func TestStore_Delete(t *testing.T) {
	path := filepath.Join(t.TempDir(), "User_Data.json")
	s := NewStore(path, nil)

	s.SaveOne(1, UserRecord{City: "Москва"})
	s.Delete(1)
	if _, ok := s.LoadOne(1); ok {
		t.Error("LoadOne() ok = true after Delete")
	}

	// Deleting a missing user is a no-op.
	s.Delete(99)
}

// TestStore_DocumentFormat pins the on-disk shape: string user ids mapping
// to {lat, lon, city, notifications:{enabled, interval_h}}.
func TestStore_DocumentFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "User_Data.json")
	s := NewStore(path, nil)
	s.SaveOne(42, UserRecord{
		Lat:           floatPtr(55.75),
		Lon:           floatPtr(37.62),
		City:          "Москва",
		Notifications: Notifications{Enabled: true, IntervalHours: 2},
	})

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read document: %v", err)
	}
	var doc map[string]map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		t.Fatalf("document is not a JSON object: %v", err)
	}
	user, ok := doc["42"]
	if !ok {
		t.Fatalf("document keys = %v, want string id \"42\"", doc)
	}
	notif, ok := user["notifications"].(map[string]any)
	if !ok {
		t.Fatalf("notifications block missing: %v", user)
	}
	if notif["enabled"] != true {
		t.Errorf("notifications.enabled = %v, want true", notif["enabled"])
	}
	if notif["interval_h"] != float64(2) {
		t.Errorf("notifications.interval_h = %v, want 2", notif["interval_h"])
	}
}
