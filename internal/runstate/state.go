// Package runstate persists the name of the phase currently being
// processed, so an interrupted run can resume.
package runstate

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// ErrCorrupt is returned when the state file exists but cannot be
// parsed, or has a current_phase field that is not a string.
var ErrCorrupt = errors.New("corrupt state file")

// Store persists RuntimeState to a JSON file under the workflow root.
type Store struct {
	path string
}

// New returns a Store for the named state file under root.
func New(root, stateFileName string) *Store {
	return &Store{path: filepath.Join(root, stateFileName)}
}

type document struct {
	CurrentPhase *string `json:"current_phase"`
}

// LoadCurrentPhase reads the persisted phase name, returning ("", false)
// if the file is absent or has no current_phase key.
func (s *Store) LoadCurrentPhase() (string, bool, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("runstate: reading %s: %w", s.path, err)
	}

	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		return "", false, fmt.Errorf("%w: %s: %v", ErrCorrupt, s.path, err)
	}
	value, present := doc["current_phase"]
	if !present {
		return "", false, nil
	}
	name, isString := value.(string)
	if !isString {
		return "", false, fmt.Errorf("%w: %s: current_phase is not a string", ErrCorrupt, s.path)
	}
	return name, true, nil
}

// SaveCurrentPhase overwrites the state file unconditionally with
// {"current_phase": name}, pretty-printed. No cross-process locking;
// write atomicity is not guaranteed (see SaveAtomic for a stronger
// option).
func (s *Store) SaveCurrentPhase(name string) error {
	data, err := json.MarshalIndent(document{CurrentPhase: &name}, "", "  ")
	if err != nil {
		return fmt.Errorf("runstate: encoding state: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("runstate: writing %s: %w", s.path, err)
	}
	return nil
}

// SaveAtomic is a tmp+rename variant of SaveCurrentPhase. The engine
// does not use this by default (see DESIGN.md, Open Question "atomic
// state save"); it is offered to callers who want the stronger
// guarantee without changing the documented default behavior.
func (s *Store) SaveAtomic(name string) error {
	data, err := json.MarshalIndent(document{CurrentPhase: &name}, "", "  ")
	if err != nil {
		return fmt.Errorf("runstate: encoding state: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("runstate: writing %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("runstate: renaming %s to %s: %w", tmp, s.path, err)
	}
	return nil
}
