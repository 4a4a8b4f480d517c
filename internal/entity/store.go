// Package entity owns the on-disk layout <root>/<phase>/<state>/ and
// lists, groups, and atomically moves entity files between states.
package entity

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"syscall"

	"github.com/dirorch/dirorch/internal/wfconfig"
)

// Entity is a regular file whose identity is its basename and whose
// current state is encoded by its containing directory.
type Entity struct {
	Path string
}

// Name returns the entity's basename.
func (e Entity) Name() string {
	return filepath.Base(e.Path)
}

// Group is a maximal run of adjacent entities sharing a numeric prefix
// key, processed together. Key is empty when the entities have no
// numeric prefix.
type Group struct {
	Entities []Entity
	Key      string
	HasKey   bool
}

// Concurrent reports whether this group's members should be processed
// in parallel: more than one entity and a shared numeric key.
func (g Group) Concurrent() bool {
	return g.HasKey && len(g.Entities) > 1
}

var groupKeyRe = regexp.MustCompile(`^(\d+)-`)

// Store owns every <phase>/<state> directory declared by a workflow,
// plus each phase's reserved <phase>/_failed directory.
type Store struct {
	root  string
	dirs  map[[2]string]string
}

// New builds a Store for the given workflow rooted at root. It does not
// touch the filesystem; call EnsureLayout to create directories.
func New(wf *wfconfig.Workflow, root string) *Store {
	dirs := make(map[[2]string]string)
	for _, phase := range wf.Phases {
		for _, state := range phase.States {
			dirs[[2]string{phase.Name, state}] = filepath.Join(root, phase.Name, state)
		}
		dirs[[2]string{phase.Name, wfconfig.FailedState}] = filepath.Join(root, phase.Name, wfconfig.FailedState)
	}
	return &Store{root: root, dirs: dirs}
}

// EnsureLayout creates every owned (phase, state) directory, including
// each phase's _failed bucket, if absent.
func (s *Store) EnsureLayout() error {
	for _, dir := range s.dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("entity: creating %s: %w", dir, err)
		}
	}
	return nil
}

// DirFor maps a (phase, state) pair to its owned directory. It panics
// if the pair is unknown, matching the source's "undefined for unknown
// pairs" contract — callers must only pass declared phase/state names.
func (s *Store) DirFor(phase, state string) string {
	dir, ok := s.dirs[[2]string{phase, state}]
	if !ok {
		panic(fmt.Sprintf("entity: unknown (phase, state) pair (%q, %q)", phase, state))
	}
	return dir
}

// ListTransitionEntities returns every regular file directly in
// <phase>/<source>, sorted by basename ascending.
func (s *Store) ListTransitionEntities(phase, source string) ([]Entity, error) {
	return s.listEntities(s.DirFor(phase, source))
}

// ListPhaseEntities concatenates every regular file across a phase's
// user states (in configured order), then sorts by (basename, parent
// path) ascending. The reserved failure state is excluded.
func (s *Store) ListPhaseEntities(phaseConfig wfconfig.Phase) ([]Entity, error) {
	var all []Entity
	for _, state := range phaseConfig.States {
		entities, err := s.listEntities(s.DirFor(phaseConfig.Name, state))
		if err != nil {
			return nil, err
		}
		all = append(all, entities...)
	}
	sort.Slice(all, func(i, j int) bool {
		ni, nj := all[i].Name(), all[j].Name()
		if ni != nj {
			return ni < nj
		}
		return filepath.Dir(all[i].Path) < filepath.Dir(all[j].Path)
	})
	return all, nil
}

func (s *Store) listEntities(dir string) ([]Entity, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("entity: listing %s: %w", dir, err)
	}
	var files []Entity
	for _, e := range entries {
		info, err := e.Info()
		if err != nil {
			continue
		}
		if !info.Mode().IsRegular() {
			continue
		}
		files = append(files, Entity{Path: filepath.Join(dir, e.Name())})
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Name() < files[j].Name() })
	return files, nil
}

// MoveToState renames entity into <phase>/<state>, creating the target
// directory on demand. Falls back to copy+unlink on cross-device
// renames (EXDEV), which the standard library does not handle for us.
func (s *Store) MoveToState(phase, state string, e Entity) error {
	dest := filepath.Join(s.DirFor(phase, state), e.Name())
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("entity: creating %s: %w", filepath.Dir(dest), err)
	}
	err := os.Rename(e.Path, dest)
	if err == nil {
		return nil
	}
	if !errors.Is(err, syscall.EXDEV) {
		return fmt.Errorf("entity: moving %s to %s: %w", e.Path, dest, err)
	}
	return copyThenRemove(e.Path, dest)
}

func copyThenRemove(src, dest string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("entity: opening %s: %w", src, err)
	}
	defer in.Close()

	out, err := os.OpenFile(dest, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("entity: creating %s: %w", dest, err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("entity: copying %s to %s: %w", src, dest, err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("entity: closing %s: %w", dest, err)
	}
	if err := os.Remove(src); err != nil {
		return fmt.Errorf("entity: removing %s after copy: %w", src, err)
	}
	return nil
}

// GroupEntities performs a single forward scan over entities (assumed
// sorted by basename ascending): adjacent entities belong to the same
// group iff both have a numeric prefix key (`^(\d+)-`) and the keys are
// equal. This is adjacency, not a global equivalence-class partition —
// two "01-…" files separated by an unrelated entity form two groups.
func GroupEntities(entities []Entity) []Group {
	var groups []Group
	var pending []Entity
	var pendingKey string
	var pendingHasKey bool

	flush := func() {
		if len(pending) > 0 {
			groups = append(groups, Group{Entities: pending, Key: pendingKey, HasKey: pendingHasKey})
		}
	}

	for _, e := range entities {
		key, hasKey := groupKey(e.Name())
		if len(pending) == 0 {
			pending = []Entity{e}
			pendingKey, pendingHasKey = key, hasKey
			continue
		}
		if hasKey && pendingHasKey && key == pendingKey {
			pending = append(pending, e)
			continue
		}
		flush()
		pending = []Entity{e}
		pendingKey, pendingHasKey = key, hasKey
	}
	flush()
	return groups
}

func groupKey(name string) (string, bool) {
	m := groupKeyRe.FindStringSubmatch(name)
	if m == nil {
		return "", false
	}
	return m[1], true
}
