package wfconfig

import "fmt"

// validateCrossReferences checks the structural invariants that span a
// single phase's own fields (transition endpoints must name declared
// states) and the whole phase list (jump targets must name a declared
// phase). Mirrors original's config_loader._validate_workflow.
func validateCrossReferences(wf *Workflow) error {
	phaseNames := make(map[string]bool, len(wf.Phases))
	for _, p := range wf.Phases {
		phaseNames[p.Name] = true
	}

	for _, p := range wf.Phases {
		states := make(map[string]bool, len(p.States))
		for _, s := range p.States {
			states[s] = true
		}
		for _, t := range p.Transitions {
			if !states[t.Source] {
				return fmt.Errorf("%w: phase %q transition source %q is not a declared state", ErrInvalidWorkflow, p.Name, t.Source)
			}
			if !states[t.Destination] {
				return fmt.Errorf("%w: phase %q transition destination %q is not a declared state", ErrInvalidWorkflow, p.Name, t.Destination)
			}
			if t.HasJump && !phaseNames[t.Jump] {
				return fmt.Errorf("%w: phase %q transition jump target %q is not a declared phase", ErrInvalidWorkflow, p.Name, t.Jump)
			}
		}
	}
	return nil
}
