package render

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/dirorch/dirorch/internal/wfconfig"
)

func TestDirectoryBindings_OneEntryPerPhaseState(t *testing.T) {
	wf := &wfconfig.Workflow{Phases: []wfconfig.Phase{
		{Name: "intake", States: []string{"pending", "done"}},
		{Name: "01-review", States: []string{"open"}},
	}}
	root := "/work"
	bindings := DirectoryBindings(wf, root)

	want := map[string]string{
		"DIR_INTAKE_PENDING": filepath.Join(root, "intake", "pending"),
		"DIR_INTAKE_DONE":    filepath.Join(root, "intake", "done"),
		"DIR_01_REVIEW_OPEN": filepath.Join(root, "01-review", "open"),
	}
	if len(bindings) != len(want) {
		t.Fatalf("expected %d bindings, got %d: %v", len(want), len(bindings), bindings)
	}
	for k, v := range want {
		if bindings[k] != v {
			t.Fatalf("bindings[%q] = %q, want %q", k, bindings[k], v)
		}
	}
}

func TestResolveEnv_ProgressiveRounds(t *testing.T) {
	wf := &wfconfig.Workflow{
		Phases: []wfconfig.Phase{{Name: "intake", States: []string{"pending"}}},
		Env: map[string]string{
			"C": "{{.B}}-c",
			"B": "{{.A}}-b",
			"A": "a",
		},
		EnvOrder: []string{"C", "B", "A"},
	}
	resolved, err := ResolveEnv(wf, "/work")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resolved["A"] != "a" || resolved["B"] != "a-b" || resolved["C"] != "a-b-c" {
		t.Fatalf("unexpected resolution: %+v", resolved)
	}
}

func TestResolveEnv_CanReferenceDirectoryBindings(t *testing.T) {
	wf := &wfconfig.Workflow{
		Phases: []wfconfig.Phase{{Name: "intake", States: []string{"pending"}}},
		Env: map[string]string{
			"INTAKE_DIR": "{{.DIR_INTAKE_PENDING}}",
		},
		EnvOrder: []string{"INTAKE_DIR"},
	}
	resolved, err := ResolveEnv(wf, "/work")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := filepath.Join("/work", "intake", "pending")
	if resolved["INTAKE_DIR"] != want {
		t.Fatalf("got %q, want %q", resolved["INTAKE_DIR"], want)
	}
}

func TestResolveEnv_CycleDetected(t *testing.T) {
	wf := &wfconfig.Workflow{
		Phases: []wfconfig.Phase{{Name: "intake", States: []string{"pending"}}},
		Env: map[string]string{
			"A": "{{.B}}",
			"B": "{{.A}}",
		},
		EnvOrder: []string{"A", "B"},
	}
	_, err := ResolveEnv(wf, "/work")
	if !errors.Is(err, wfconfig.ErrInvalidWorkflow) {
		t.Fatalf("expected ErrInvalidWorkflow, got %v", err)
	}
}
