package engine

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/dirorch/dirorch/internal/entity"
	"github.com/dirorch/dirorch/internal/hook"
	"github.com/dirorch/dirorch/internal/orclog"
	"github.com/dirorch/dirorch/internal/runstate"
	"github.com/dirorch/dirorch/internal/wfconfig"
)

func touch(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func newTestEngine(t *testing.T, wf *wfconfig.Workflow, root string) *Engine {
	t.Helper()
	entities := entity.New(wf, root)
	hooks := hook.New(hook.Config{
		Root:    root,
		BaseEnv: []string{"PATH=" + os.Getenv("PATH")},
		Retries: 0,
		Logger:  orclog.NewDiscard(),
	})
	state := runstate.New(root, ".dirorch_runtime.json")
	return New(wf, state, entities, hooks, orclog.NewDiscard())
}

func TestRun_TwoPhaseWorkflowRunsToFixpoint(t *testing.T) {
	root := t.TempDir()
	wf := &wfconfig.Workflow{
		Phases: []wfconfig.Phase{
			{
				Name: "intake", States: []string{"pending", "done"},
				Transitions: []wfconfig.Transition{
					{Source: "pending", Destination: "done", HasCmd: true, Hook: wfconfig.Hook{Cmd: "exit 0"}},
				},
			},
			{
				Name: "review", States: []string{"open", "closed"},
				Transitions: []wfconfig.Transition{
					{Source: "open", Destination: "closed", HasCmd: true, Hook: wfconfig.Hook{Cmd: "exit 0"}},
				},
			},
		},
	}
	touch(t, filepath.Join(root, "intake", "pending", "a.txt"))

	eng := newTestEngine(t, wf, root)
	if err := eng.Run(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := os.Stat(filepath.Join(root, "intake", "done", "a.txt")); err != nil {
		t.Fatalf("expected entity to reach intake/done: %v", err)
	}
}

func TestRun_InitHookFailureAbortsWithHookFailed(t *testing.T) {
	root := t.TempDir()
	init := wfconfig.Hook{Cmd: "exit 1"}
	wf := &wfconfig.Workflow{
		Init: &init,
		Phases: []wfconfig.Phase{
			{Name: "intake", States: []string{"pending"}},
		},
	}
	eng := newTestEngine(t, wf, root)
	err := eng.Run(context.Background())
	if !errors.Is(err, ErrHookFailed) {
		t.Fatalf("expected ErrHookFailed, got %v", err)
	}
}

func TestRun_ResumesFromPersistedPhase(t *testing.T) {
	root := t.TempDir()
	wf := &wfconfig.Workflow{
		Phases: []wfconfig.Phase{
			{Name: "intake", States: []string{"pending"}},
			{Name: "review", States: []string{"open", "closed"},
				Transitions: []wfconfig.Transition{
					{Source: "open", Destination: "closed", HasCmd: true, Hook: wfconfig.Hook{Cmd: "exit 0"}},
				},
			},
		},
	}
	touch(t, filepath.Join(root, "review", "open", "a.txt"))

	state := runstate.New(root, ".dirorch_runtime.json")
	if err := state.SaveCurrentPhase("review"); err != nil {
		t.Fatalf("seeding state: %v", err)
	}

	eng := newTestEngine(t, wf, root)
	if err := eng.Run(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := os.Stat(filepath.Join(root, "review", "closed", "a.txt")); err != nil {
		t.Fatalf("expected resumed run to process review phase: %v", err)
	}
}

func TestRun_UnknownPersistedPhaseFailsWithUnknownPhase(t *testing.T) {
	root := t.TempDir()
	wf := &wfconfig.Workflow{
		Phases: []wfconfig.Phase{{Name: "intake", States: []string{"pending"}}},
	}
	state := runstate.New(root, ".dirorch_runtime.json")
	if err := state.SaveCurrentPhase("ghost"); err != nil {
		t.Fatalf("seeding state: %v", err)
	}

	eng := newTestEngine(t, wf, root)
	err := eng.Run(context.Background())
	if !errors.Is(err, ErrUnknownPhase) {
		t.Fatalf("expected ErrUnknownPhase, got %v", err)
	}
}

func TestRun_JumpRoundTripReturnsToSourcePhase(t *testing.T) {
	root := t.TempDir()
	wf := &wfconfig.Workflow{
		Phases: []wfconfig.Phase{
			{
				Name: "intake", States: []string{"pending", "done"},
				Transitions: []wfconfig.Transition{
					{Source: "pending", Destination: "done", HasJump: true, Jump: "review"},
				},
			},
			{
				Name: "review", States: []string{"open", "closed"},
				Transitions: []wfconfig.Transition{
					{Source: "open", Destination: "closed", HasCmd: true, Hook: wfconfig.Hook{Cmd: "exit 0"}},
				},
			},
		},
	}
	touch(t, filepath.Join(root, "intake", "pending", "a.txt"))
	touch(t, filepath.Join(root, "review", "open", "b.txt"))

	eng := newTestEngine(t, wf, root)
	if err := eng.Run(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := os.Stat(filepath.Join(root, "intake", "done", "a.txt")); err != nil {
		t.Fatalf("expected jump source entity to still move: %v", err)
	}
	if _, err := os.Stat(filepath.Join(root, "review", "closed", "b.txt")); err != nil {
		t.Fatalf("expected jump target phase to have run to fixpoint: %v", err)
	}
	name, ok, err := eng.state.LoadCurrentPhase()
	if err != nil {
		t.Fatalf("loading state: %v", err)
	}
	if !ok || name != "intake" {
		t.Fatalf("expected state to return to source phase 'intake' after jump, got (%q, %v)", name, ok)
	}
}
