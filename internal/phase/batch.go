package phase

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/dirorch/dirorch/internal/entity"
	"github.com/dirorch/dirorch/internal/wfconfig"
)

// batchProcessor applies each transition to every group of applicable
// entities before moving to the next transition, maximizing parallelism
// across files at the same state ("transitions" mode, the default).
type batchProcessor struct {
	base
}

func (p *batchProcessor) RunPhase(ctx context.Context) (int, error) {
	p.deps.Logger.Infof("processing phase %q (mode: transitions)", p.cfg.Name)

	movedTotal := 0
	for {
		movedThisPass, err := p.runPass(ctx)
		if err != nil {
			return movedTotal, err
		}
		movedTotal += movedThisPass
		if movedThisPass == 0 {
			break
		}
	}

	if err := p.runCompletions(ctx); err != nil {
		return movedTotal, err
	}
	p.deps.Logger.Infof("phase %q reached fixpoint; moves=%d", p.cfg.Name, movedTotal)
	return movedTotal, nil
}

func (p *batchProcessor) runPass(ctx context.Context) (int, error) {
	movedThisPass := 0
	for _, t := range p.cfg.Transitions {
		moved, jumps, err := p.applyTransition(ctx, t)
		if err != nil {
			return movedThisPass, err
		}
		movedThisPass += moved

		// Jumps collected during this transition's pass run immediately
		// after it, before the next transition in the same pass is
		// applied — preserving the source's documented (if debatable)
		// ordering; see DESIGN.md / SPEC_FULL.md §9.1.
		for _, target := range jumps {
			if err := p.deps.JumpHandler(ctx, target, p.cfg.Name); err != nil {
				return movedThisPass, err
			}
		}
	}
	return movedThisPass, nil
}

func (p *batchProcessor) applyTransition(ctx context.Context, t wfconfig.Transition) (int, []string, error) {
	entities, err := p.deps.Entities.ListTransitionEntities(p.cfg.Name, t.Source)
	if err != nil {
		return 0, nil, err
	}
	if len(entities) == 0 {
		return 0, nil, nil
	}

	moved := 0
	var jumps []string
	for _, group := range entity.GroupEntities(entities) {
		results, err := p.processGroup(ctx, t, group)
		if err != nil {
			return moved, jumps, err
		}
		for _, r := range results {
			if r.moved {
				moved++
				if r.hasJump {
					jumps = append(jumps, r.jump)
				}
			}
		}
	}
	return moved, jumps, nil
}

func (p *batchProcessor) processGroup(ctx context.Context, t wfconfig.Transition, group entity.Group) ([]result, error) {
	if !group.Concurrent() {
		results := make([]result, len(group.Entities))
		for i, e := range group.Entities {
			results[i] = p.processEntity(ctx, t, e)
		}
		return results, nil
	}

	p.deps.Logger.Infof(
		"running transition %s.%s -> %s for %d concurrent entities (group=%s)",
		p.cfg.Name, t.Source, t.Destination, len(group.Entities), group.Key,
	)

	results := make([]result, len(group.Entities))
	g, gctx := errgroup.WithContext(ctx)
	for i, e := range group.Entities {
		i, e := i, e
		g.Go(func() error {
			// Per-entity failures are reported via result.moved, not by
			// returning an error — a failing sibling must never cancel
			// the rest of the concurrent group (spec.md §5: the engine
			// awaits every member regardless of individual outcome).
			results[i] = p.processEntity(gctx, t, e)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
