package profile

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
)

// Profile is one independently scheduled automation identity, bound to a
// single remote browser account. The roster is loaded once at startup and
// treated as immutable for the lifetime of the process.
type Profile struct {
	ID          string `json:"id"`
	AccountRef  string `json:"accountRef"`
	Persona     string `json:"persona"`
	Active      bool   `json:"active"`
	MinDelayMin int    `json:"minDelayMin,omitempty"`
	MaxDelayMin int    `json:"maxDelayMin,omitempty"`
}

// LoadRoster reads the profile roster from path and returns active profiles
// sorted by ID. A missing roster is an error: the engine cannot schedule
// anything without identities.
func LoadRoster(path string) ([]Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read roster: %w", err)
	}

	var all []Profile
	if err := json.Unmarshal(data, &all); err != nil {
		return nil, fmt.Errorf("parse roster: %w", err)
	}

	active := make([]Profile, 0, len(all))
	for _, p := range all {
		if p.ID == "" {
			return nil, fmt.Errorf("roster entry missing id")
		}
		if p.AccountRef == "" {
			return nil, fmt.Errorf("profile %s missing accountRef", p.ID)
		}
		if p.Active {
			active = append(active, p)
		}
	}
	if len(active) == 0 {
		return nil, fmt.Errorf("roster has no active profiles")
	}

	sort.Slice(active, func(i, j int) bool { return active[i].ID < active[j].ID })
	return active, nil
}

// ByID returns the profile with the given ID, or false.
func ByID(roster []Profile, id string) (Profile, bool) {
	for _, p := range roster {
		if p.ID == id {
			return p, true
		}
	}
	return Profile{}, false
}
