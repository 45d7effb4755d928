package scanner

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Store persists the alert container as a single JSON document, rewritten
// wholesale on each mutation.
type Store struct {
	path string
	mu   sync.Mutex
}

func NewStore(path string) *Store {
	return &Store{path: path}
}

// Load reads the persisted state, lazily creating a fresh container when
// the file is missing or unreadable.
func (st *Store) Load() *State {
	st.mu.Lock()
	defer st.mu.Unlock()

	data, err := os.ReadFile(st.path)
	if err != nil {
		return newState()
	}

	var s State
	if err := json.Unmarshal(data, &s); err != nil {
		// Corrupt container documents are replaced, not repaired.
		return newState()
	}
	return &s
}

func newState() *State {
	return &State{CreatedAt: time.Now()}
}

// Save writes the whole container document.
func (st *Store) Save(s *State) error {
	st.mu.Lock()
	defer st.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(st.path), 0755); err != nil {
		return fmt.Errorf("create alerts dir: %w", err)
	}
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal alerts: %w", err)
	}
	return os.WriteFile(st.path, data, 0644)
}
