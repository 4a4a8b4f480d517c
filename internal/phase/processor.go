// Package phase runs a single workflow phase to a fixpoint, under one
// of two scheduling disciplines (Batch or PerEntity), invoking
// transition hooks through a hook.Runner and moving entities through an
// entity.Store. It surfaces jump requests to its owner via a
// JumpHandler rather than holding a back-reference to the engine.
package phase

import (
	"context"
	"fmt"

	"github.com/dirorch/dirorch/internal/entity"
	"github.com/dirorch/dirorch/internal/hook"
	"github.com/dirorch/dirorch/internal/orclog"
	"github.com/dirorch/dirorch/internal/wfconfig"
)

// JumpHandler is invoked when a transition produces a jump request. It
// is owned and supplied by the engine, never by the processor itself,
// to avoid cyclic ownership between engine and phase.
type JumpHandler func(ctx context.Context, target, source string) error

// Deps bundles a processor's collaborators.
type Deps struct {
	Hooks       *hook.Runner
	Entities    *entity.Store
	Logger      *orclog.Logger
	JumpHandler JumpHandler
}

// Processor runs one phase to a fixpoint and reports how many moves it
// made in total (an entity carried through two transitions counts twice).
type Processor interface {
	RunPhase(ctx context.Context) (int, error)
}

// New selects the concrete strategy for cfg.Mode.
func New(deps Deps, cfg wfconfig.Phase) Processor {
	base := base{deps: deps, cfg: cfg}
	if cfg.Mode == wfconfig.ModeEntity {
		return &perEntityProcessor{base: base}
	}
	return &batchProcessor{base: base}
}

type base struct {
	deps Deps
	cfg  wfconfig.Phase
}

// result is the outcome of driving one entity through one transition.
type result struct {
	moved   bool
	jump    string
	hasJump bool
}

func (b *base) runCompletions(ctx context.Context) error {
	for i, h := range b.cfg.Completions {
		label := fmt.Sprintf("completion hook %s[%d]", b.cfg.Name, i+1)
		b.deps.Logger.Infof("running %s", label)
		if !b.deps.Hooks.Run(ctx, h, nil, label) {
			return fmt.Errorf("%w: %s failed after retries", wfconfig.ErrHookFailed, label)
		}
	}
	return nil
}

// processEntity drives one entity through one transition: runs the
// transition's hook (if any), then moves the entity to its destination
// on success or to the phase's failure bucket on failure. A prior
// concurrent sibling may have already consumed the entity via a hook
// side-effect; that case is a silent no-op, not an error.
func (b *base) processEntity(ctx context.Context, t wfconfig.Transition, e entity.Entity) result {
	if !fileExists(e.Path) {
		return result{}
	}

	label := fmt.Sprintf("transition hook %s:%s->%s entity=%s", b.cfg.Name, t.Source, t.Destination, e.Name())
	extraEnv := map[string]string{"INPUT_ENTITY": absPath(e.Path)}

	success := true
	if t.HasCmd {
		success = b.deps.Hooks.Run(ctx, t.Hook, extraEnv, label)
	}

	if success {
		if err := b.deps.Entities.MoveToState(b.cfg.Name, t.Destination, e); err != nil {
			b.deps.Logger.Errorf("moving %s to %s/%s: %v", e.Name(), b.cfg.Name, t.Destination, err)
			return result{}
		}
		b.deps.Logger.Infof("moved entity %q to %s/%s", e.Name(), b.cfg.Name, t.Destination)
		return result{moved: true, jump: t.Jump, hasJump: t.HasJump}
	}

	if err := b.deps.Entities.MoveToState(b.cfg.Name, wfconfig.FailedState, e); err != nil {
		b.deps.Logger.Errorf("moving failed entity %s to %s/%s: %v", e.Name(), b.cfg.Name, wfconfig.FailedState, err)
	} else {
		b.deps.Logger.Warnf("transition failed for %q; moved to %s/%s", e.Name(), b.cfg.Name, wfconfig.FailedState)
	}
	return result{}
}

func (b *base) findTransitionFrom(state string) (wfconfig.Transition, bool) {
	for _, t := range b.cfg.Transitions {
		if t.Source == state {
			return t, true
		}
	}
	return wfconfig.Transition{}, false
}
