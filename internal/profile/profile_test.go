package profile

import (
	"os"
	"path/filepath"
	"testing"
)

func writeRoster(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "profiles.json")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write roster: %v", err)
	}
	return path
}

func TestLoadRoster(t *testing.T) {
	path := writeRoster(t, `[
		{"id": "beta", "accountRef": "acct-2", "persona": "dry humor", "active": true},
		{"id": "alpha", "accountRef": "acct-1", "persona": "earnest", "active": true},
		{"id": "gamma", "accountRef": "acct-3", "persona": "retired", "active": false}
	]`)

	roster, err := LoadRoster(path)
	if err != nil {
		t.Fatalf("LoadRoster error: %v", err)
	}
	if len(roster) != 2 {
		t.Fatalf("len(roster) = %d, want 2", len(roster))
	}
	if roster[0].ID != "alpha" || roster[1].ID != "beta" {
		t.Errorf("roster not sorted by ID: %s, %s", roster[0].ID, roster[1].ID)
	}
}

func TestLoadRoster_NoActive(t *testing.T) {
	path := writeRoster(t, `[{"id": "a", "accountRef": "x", "active": false}]`)
	if _, err := LoadRoster(path); err == nil {
		t.Error("expected error for roster with no active profiles")
	}
}

func TestLoadRoster_MissingFields(t *testing.T) {
	path := writeRoster(t, `[{"id": "", "accountRef": "x", "active": true}]`)
	if _, err := LoadRoster(path); err == nil {
		t.Error("expected error for entry missing id")
	}

	path = writeRoster(t, `[{"id": "a", "accountRef": "", "active": true}]`)
	if _, err := LoadRoster(path); err == nil {
		t.Error("expected error for entry missing accountRef")
	}
}

func TestLoadRoster_Missing(t *testing.T) {
	if _, err := LoadRoster(filepath.Join(t.TempDir(), "nope.json")); err == nil {
		t.Error("expected error for missing roster file")
	}
}

func TestByID(t *testing.T) {
	roster := []Profile{{ID: "a"}, {ID: "b"}}
	if p, ok := ByID(roster, "b"); !ok || p.ID != "b" {
		t.Errorf("ByID(b) = %v, %v", p, ok)
	}
	if _, ok := ByID(roster, "z"); ok {
		t.Error("ByID(z) should be false")
	}
}
