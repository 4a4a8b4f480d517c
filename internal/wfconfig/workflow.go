// Package wfconfig loads and validates dirorch workflow definitions.
package wfconfig

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// FailedState is the reserved per-phase bucket for entities whose
// transition hook exhausted its retries. It may not appear in a phase's
// declared states.
const FailedState = "_failed"

const (
	// ModeTransitions runs a phase's transitions in declared order over
	// the whole entity listing each pass (the "Batch" scheduling mode).
	ModeTransitions = "transitions"
	// ModeEntity carries one entity through as many transitions as it
	// will take before moving to the next (the "PerEntity" mode).
	ModeEntity = "entity"
)

// ErrInvalidWorkflow is returned for any malformed or schema-invalid
// workflow definition.
var ErrInvalidWorkflow = errors.New("invalid workflow")

// Hook is a shell command with an optional templated stdin payload.
type Hook struct {
	Cmd   string
	Stdin string
	HasStdin bool
}

// Transition moves entities from Source to Destination, optionally
// running a hook and optionally jumping to another phase on success.
type Transition struct {
	Source      string
	Destination string
	Hook        Hook
	HasCmd      bool
	Jump        string
	HasJump     bool
}

// Phase is one named stage of the workflow.
type Phase struct {
	Name        string
	States      []string
	Transitions []Transition
	Completions []Hook
	Mode        string
}

// Workflow is a fully parsed and validated workflow definition.
type Workflow struct {
	Phases  []Phase
	Env     map[string]string
	EnvOrder []string
	Retries int
	Init    *Hook
}

// PhaseIndex returns the index of the named phase, or -1 if absent.
func (w *Workflow) PhaseIndex(name string) int {
	for i, p := range w.Phases {
		if p.Name == name {
			return i
		}
	}
	return -1
}

// Load reads a YAML workflow definition from path and validates it.
func Load(path string) (*Workflow, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s: %v", ErrInvalidWorkflow, path, err)
	}
	return Parse(data)
}

// Parse validates and decodes raw YAML bytes into a Workflow.
func Parse(data []byte) (*Workflow, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("%w: invalid YAML: %v", ErrInvalidWorkflow, err)
	}
	if len(root.Content) == 0 {
		return nil, fmt.Errorf("%w: empty document", ErrInvalidWorkflow)
	}
	doc := root.Content[0]
	if doc.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("%w: workflow root must be a mapping", ErrInvalidWorkflow)
	}

	fields, err := mappingFields(doc)
	if err != nil {
		return nil, err
	}

	wf := &Workflow{Retries: 3}

	if n, ok := fields["retries"]; ok {
		v, err := decodeInt(n)
		if err != nil || v < 0 {
			return nil, fmt.Errorf("%w: 'retries' must be a non-negative integer", ErrInvalidWorkflow)
		}
		wf.Retries = v
	}

	envNode, ok := fields["env"]
	if !ok {
		envNode, ok = fields["environment"]
	}
	if ok {
		order, m, err := decodeOrderedStringMap(envNode, "env")
		if err != nil {
			return nil, err
		}
		wf.Env = m
		wf.EnvOrder = order
	} else {
		wf.Env = map[string]string{}
	}

	if n, ok := fields["init"]; ok {
		hook, err := decodeHook(n, "init")
		if err != nil {
			return nil, err
		}
		wf.Init = &hook
	}

	phasesNode, ok := fields["phases"]
	if !ok {
		return nil, fmt.Errorf("%w: 'phases' is required", ErrInvalidWorkflow)
	}
	phaseFields, err := mappingFields(phasesNode)
	if err != nil {
		return nil, fmt.Errorf("%w: 'phases' must be a mapping: %v", ErrInvalidWorkflow, err)
	}
	phaseOrder, err := mappingKeyOrder(phasesNode)
	if err != nil {
		return nil, err
	}
	if len(phaseOrder) == 0 {
		return nil, fmt.Errorf("%w: 'phases' must be non-empty", ErrInvalidWorkflow)
	}

	seen := make(map[string]bool, len(phaseOrder))
	for _, name := range phaseOrder {
		if seen[name] {
			return nil, fmt.Errorf("%w: duplicate phase name %q", ErrInvalidWorkflow, name)
		}
		seen[name] = true
		phase, err := decodePhase(name, phaseFields[name])
		if err != nil {
			return nil, err
		}
		wf.Phases = append(wf.Phases, phase)
	}

	if err := validateCrossReferences(wf); err != nil {
		return nil, err
	}

	return wf, nil
}
