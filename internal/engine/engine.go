// Package engine is the top-level scheduler: it selects the starting
// phase (fresh or resumed), walks phases in round-robin, handles
// cross-phase jumps, persists the current phase at every transition,
// and detects global termination.
package engine

import (
	"context"
	"fmt"

	"github.com/dirorch/dirorch/internal/entity"
	"github.com/dirorch/dirorch/internal/hook"
	"github.com/dirorch/dirorch/internal/orclog"
	"github.com/dirorch/dirorch/internal/phase"
	"github.com/dirorch/dirorch/internal/runstate"
	"github.com/dirorch/dirorch/internal/wfconfig"
)

// ErrUnknownPhase and ErrHookFailed are re-exported from wfconfig so
// callers can errors.Is against a single engine-rooted sentinel set.
var (
	ErrUnknownPhase = wfconfig.ErrUnknownPhase
	ErrHookFailed   = wfconfig.ErrHookFailed
)

// Engine coordinates PhaseProcessors via a StateStore.
type Engine struct {
	config   *wfconfig.Workflow
	state    *runstate.Store
	entities *entity.Store
	hooks    *hook.Runner
	logger   *orclog.Logger

	phases map[string]wfconfig.Phase
}

// New builds an Engine from its collaborators.
func New(config *wfconfig.Workflow, state *runstate.Store, entities *entity.Store, hooks *hook.Runner, logger *orclog.Logger) *Engine {
	phases := make(map[string]wfconfig.Phase, len(config.Phases))
	for _, p := range config.Phases {
		phases[p.Name] = p
	}
	return &Engine{
		config:   config,
		state:    state,
		entities: entities,
		hooks:    hooks,
		logger:   logger,
		phases:   phases,
	}
}

// Run executes the full startup sequence and main scheduling loop.
func (e *Engine) Run(ctx context.Context) error {
	if err := e.entities.EnsureLayout(); err != nil {
		return err
	}

	if err := e.runInit(ctx); err != nil {
		return err
	}

	phaseOrder := make([]string, len(e.config.Phases))
	for i, p := range e.config.Phases {
		phaseOrder[i] = p.Name
	}
	firstPhase := phaseOrder[0]

	currentName, ok, err := e.state.LoadCurrentPhase()
	if err != nil {
		return err
	}

	var currentIndex int
	if !ok {
		currentIndex = 0
		if err := e.state.SaveCurrentPhase(phaseOrder[currentIndex]); err != nil {
			return err
		}
	} else {
		idx := indexOf(phaseOrder, currentName)
		if idx < 0 {
			return fmt.Errorf("%w: state file references %q; known phases: %v", ErrUnknownPhase, currentName, phaseOrder)
		}
		currentIndex = idx
	}

	wrappedToFirst := false
	for {
		name := phaseOrder[currentIndex]
		if err := e.state.SaveCurrentPhase(name); err != nil {
			return err
		}

		moved, err := e.processorFor(e.phases[name]).RunPhase(ctx)
		if err != nil {
			return err
		}

		if wrappedToFirst && name == firstPhase && moved == 0 {
			e.logger.Infof("reached stable fixpoint at first phase %q; exiting", firstPhase)
			return nil
		}

		currentIndex = (currentIndex + 1) % len(phaseOrder)
		if currentIndex == 0 {
			wrappedToFirst = true
		}
	}
}

func (e *Engine) processorFor(p wfconfig.Phase) phase.Processor {
	return phase.New(phase.Deps{
		Hooks:       e.hooks,
		Entities:    e.entities,
		Logger:      e.logger,
		JumpHandler: e.runJump,
	}, p)
}

// runJump handles a jump request surfaced by a phase processor. A
// self-jump is a no-op (logged at warning) to avoid immediate infinite
// recursion without forbidding it at config time. Otherwise it persists
// current_phase = target, runs the target phase to fixpoint
// (recursively — jumps may nest with no explicit stack beyond ordinary
// call nesting), then persists current_phase = source on return.
func (e *Engine) runJump(ctx context.Context, target, source string) error {
	if target == source {
		e.logger.Warnf("ignoring self-jump from phase %q", source)
		return nil
	}

	e.logger.Infof("jumping from phase %q to phase %q", source, target)
	if err := e.state.SaveCurrentPhase(target); err != nil {
		return err
	}

	targetPhase, ok := e.phases[target]
	if !ok {
		return fmt.Errorf("%w: jump target %q", ErrUnknownPhase, target)
	}
	if _, err := e.processorFor(targetPhase).RunPhase(ctx); err != nil {
		return err
	}

	if err := e.state.SaveCurrentPhase(source); err != nil {
		return err
	}
	e.logger.Infof("returning to phase %q from jump phase %q", source, target)
	return nil
}

func (e *Engine) runInit(ctx context.Context) error {
	if e.config.Init == nil {
		return nil
	}
	const label = "init hook"
	e.logger.Infof("running %s", label)
	if !e.hooks.Run(ctx, *e.config.Init, nil, label) {
		return fmt.Errorf("%w: %s failed after retries", ErrHookFailed, label)
	}
	return nil
}

func indexOf(names []string, name string) int {
	for i, n := range names {
		if n == name {
			return i
		}
	}
	return -1
}
