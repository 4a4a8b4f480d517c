package phase

import (
	"context"
	"path/filepath"

	"github.com/dirorch/dirorch/internal/entity"
)

// perEntityProcessor carries one entity through as many transitions as
// it will take before starting the next entity, maximizing locality
// ("entity" mode). It never groups or concurs entities, unlike
// batchProcessor.
type perEntityProcessor struct {
	base
}

func (p *perEntityProcessor) RunPhase(ctx context.Context) (int, error) {
	p.deps.Logger.Infof("processing phase %q (mode: entity)", p.cfg.Name)

	movedTotal := 0
	for {
		entities, err := p.deps.Entities.ListPhaseEntities(p.cfg)
		if err != nil {
			return movedTotal, err
		}

		movedThisPass := 0
		for _, e := range entities {
			moved, err := p.flowEntityToRest(ctx, e)
			if err != nil {
				return movedTotal, err
			}
			movedThisPass += moved
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

// flowEntityToRest drives a single entity through transitions until it
// stops moving (no matching transition, or the transition's hook
// failed and the entity was routed to _failed).
func (p *perEntityProcessor) flowEntityToRest(ctx context.Context, e entity.Entity) (int, error) {
	if !fileExists(e.Path) {
		return 0, nil
	}

	moved := 0
	current := e
	for {
		stateName := filepath.Base(filepath.Dir(current.Path))
		t, ok := p.findTransitionFrom(stateName)
		if !ok {
			return moved, nil
		}

		r := p.processEntity(ctx, t, current)
		if !r.moved {
			return moved, nil
		}
		moved++

		current = entity.Entity{
			Path: filepath.Join(p.deps.Entities.DirFor(p.cfg.Name, t.Destination), current.Name()),
		}

		if r.hasJump {
			if err := p.deps.JumpHandler(ctx, r.jump, p.cfg.Name); err != nil {
				return moved, err
			}
		}
	}
}
