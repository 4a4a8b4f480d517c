package entity

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/dirorch/dirorch/internal/wfconfig"
)

func testWorkflow() *wfconfig.Workflow {
	return &wfconfig.Workflow{Phases: []wfconfig.Phase{
		{Name: "intake", States: []string{"pending", "done"}},
	}}
}

func touch(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func TestEnsureLayout_CreatesStatesAndFailedBucket(t *testing.T) {
	root := t.TempDir()
	s := New(testWorkflow(), root)
	if err := s.EnsureLayout(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, state := range []string{"pending", "done", wfconfig.FailedState} {
		if info, err := os.Stat(filepath.Join(root, "intake", state)); err != nil || !info.IsDir() {
			t.Fatalf("expected directory intake/%s to exist", state)
		}
	}
}

func TestDirFor_PanicsOnUnknownPair(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic for unknown pair")
		}
	}()
	s := New(testWorkflow(), t.TempDir())
	s.DirFor("intake", "nonexistent")
}

func TestListTransitionEntities_SortedByName(t *testing.T) {
	root := t.TempDir()
	s := New(testWorkflow(), root)
	touch(t, filepath.Join(root, "intake", "pending", "b.txt"))
	touch(t, filepath.Join(root, "intake", "pending", "a.txt"))

	entities, err := s.ListTransitionEntities("intake", "pending")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(entities) != 2 || entities[0].Name() != "a.txt" || entities[1].Name() != "b.txt" {
		t.Fatalf("unexpected entities: %+v", entities)
	}
}

func TestListTransitionEntities_MissingDirIsEmptyNotError(t *testing.T) {
	s := New(testWorkflow(), t.TempDir())
	entities, err := s.ListTransitionEntities("intake", "pending")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(entities) != 0 {
		t.Fatalf("expected no entities, got %+v", entities)
	}
}

func TestMoveToState_MovesFileBetweenDirectories(t *testing.T) {
	root := t.TempDir()
	s := New(testWorkflow(), root)
	src := filepath.Join(root, "intake", "pending", "a.txt")
	touch(t, src)

	if err := s.MoveToState("intake", "done", Entity{Path: src}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := os.Stat(src); !os.IsNotExist(err) {
		t.Fatalf("expected source to be gone, got err=%v", err)
	}
	if _, err := os.Stat(filepath.Join(root, "intake", "done", "a.txt")); err != nil {
		t.Fatalf("expected destination to exist: %v", err)
	}
}

func TestGroupEntities_AdjacencyNotGlobalPartition(t *testing.T) {
	entities := []Entity{
		{Path: "01-a.txt"}, {Path: "01-b.txt"}, {Path: "mid.txt"}, {Path: "01-c.txt"},
	}
	groups := GroupEntities(entities)
	if len(groups) != 3 {
		t.Fatalf("expected 3 groups (adjacency, not a global partition), got %d: %+v", len(groups), groups)
	}
	if !groups[0].Concurrent() {
		t.Fatalf("expected first group of two same-keyed entries to be concurrent")
	}
	if groups[1].Concurrent() {
		t.Fatalf("expected singleton 'mid.txt' group to not be concurrent")
	}
	if groups[2].Concurrent() {
		t.Fatalf("expected isolated '01-c.txt' group to not be concurrent despite matching key")
	}
}

func TestGroupEntities_NoPrefixEntriesAreSingletons(t *testing.T) {
	entities := []Entity{{Path: "alpha.txt"}, {Path: "beta.txt"}}
	groups := GroupEntities(entities)
	if len(groups) != 2 {
		t.Fatalf("expected 2 singleton groups, got %d", len(groups))
	}
	for _, g := range groups {
		if g.HasKey || g.Concurrent() {
			t.Fatalf("expected non-prefixed entities to form non-concurrent groups: %+v", g)
		}
	}
}
