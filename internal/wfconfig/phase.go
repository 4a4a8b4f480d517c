package wfconfig

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// decodePhase parses one entry of the top-level 'phases' mapping.
func decodePhase(name string, n *yaml.Node) (Phase, error) {
	if name == "" {
		return Phase{}, fmt.Errorf("%w: phase names must be non-empty", ErrInvalidWorkflow)
	}
	fields, err := mappingFields(n)
	if err != nil {
		return Phase{}, fmt.Errorf("%w: phase %q must be a mapping: %v", ErrInvalidWorkflow, name, err)
	}

	states, err := decodeStates(name, fields)
	if err != nil {
		return Phase{}, err
	}

	transitions, err := decodeTransitions(name, fields)
	if err != nil {
		return Phase{}, err
	}

	completions, err := decodeCompletions(name, fields)
	if err != nil {
		return Phase{}, err
	}

	mode := ModeTransitions
	if modeNode, ok := fields["mode"]; ok {
		m, err := decodeString(modeNode, "mode")
		if err != nil {
			return Phase{}, fmt.Errorf("%w: phase %q field 'mode' must be a string", ErrInvalidWorkflow, name)
		}
		if m != ModeTransitions && m != ModeEntity {
			return Phase{}, fmt.Errorf("%w: phase %q has invalid mode %q (must be %q or %q)",
				ErrInvalidWorkflow, name, m, ModeTransitions, ModeEntity)
		}
		mode = m
	}

	return Phase{
		Name:        name,
		States:      states,
		Transitions: transitions,
		Completions: completions,
		Mode:        mode,
	}, nil
}

func decodeStates(phaseName string, fields map[string]*yaml.Node) ([]string, error) {
	node, ok := fields["states"]
	if !ok {
		return nil, fmt.Errorf("%w: phase %q must include non-empty 'states' list", ErrInvalidWorkflow, phaseName)
	}
	raw, err := decodeStringList(node, "states")
	if err != nil || len(raw) == 0 {
		return nil, fmt.Errorf("%w: phase %q must include non-empty 'states' list", ErrInvalidWorkflow, phaseName)
	}
	seen := make(map[string]bool, len(raw))
	for _, s := range raw {
		if s == FailedState {
			return nil, fmt.Errorf("%w: phase %q cannot declare reserved state %q", ErrInvalidWorkflow, phaseName, FailedState)
		}
		if seen[s] {
			return nil, fmt.Errorf("%w: phase %q has duplicate state %q", ErrInvalidWorkflow, phaseName, s)
		}
		seen[s] = true
	}
	return raw, nil
}

func decodeTransitions(phaseName string, fields map[string]*yaml.Node) ([]Transition, error) {
	node, ok := fields["transitions"]
	if !ok {
		return nil, nil
	}
	if node.Kind != yaml.SequenceNode {
		return nil, fmt.Errorf("%w: phase %q field 'transitions' must be a list", ErrInvalidWorkflow, phaseName)
	}

	var out []Transition
	for _, item := range node.Content {
		tfields, err := mappingFields(item)
		if err != nil {
			return nil, fmt.Errorf("%w: phase %q transition entries must be mappings", ErrInvalidWorkflow, phaseName)
		}

		fromNode, ok := tfields["from"]
		if !ok {
			return nil, fmt.Errorf("%w: phase %q transition is missing 'from'", ErrInvalidWorkflow, phaseName)
		}
		from, err := decodeString(fromNode, "from")
		if err != nil || from == "" {
			return nil, fmt.Errorf("%w: phase %q transition has invalid 'from'", ErrInvalidWorkflow, phaseName)
		}

		toNode, ok := tfields["to"]
		if !ok {
			return nil, fmt.Errorf("%w: phase %q transition %q is missing 'to'", ErrInvalidWorkflow, phaseName, from)
		}
		to, err := decodeString(toNode, "to")
		if err != nil || to == "" {
			return nil, fmt.Errorf("%w: phase %q transition %q has invalid 'to'", ErrInvalidWorkflow, phaseName, from)
		}

		t := Transition{Source: from, Destination: to}

		if cmdNode, ok := tfields["cmd"]; ok {
			cmd, err := decodeString(cmdNode, "cmd")
			if err != nil || cmd == "" {
				return nil, fmt.Errorf("%w: phase %q transition %s->%s has invalid 'cmd'", ErrInvalidWorkflow, phaseName, from, to)
			}
			t.Hook.Cmd = cmd
			t.HasCmd = true
		}

		if stdinNode, ok := tfields["stdin"]; ok {
			stdin, err := decodeString(stdinNode, "stdin")
			if err != nil {
				return nil, fmt.Errorf("%w: phase %q transition %s->%s has invalid 'stdin'", ErrInvalidWorkflow, phaseName, from, to)
			}
			if !t.HasCmd {
				return nil, fmt.Errorf("%w: phase %q transition %s->%s requires 'cmd' when 'stdin' is set", ErrInvalidWorkflow, phaseName, from, to)
			}
			t.Hook.Stdin = stdin
			t.Hook.HasStdin = true
		}

		if jumpNode, ok := tfields["jump"]; ok {
			jump, err := decodeString(jumpNode, "jump")
			if err != nil || jump == "" {
				return nil, fmt.Errorf("%w: phase %q transition %s->%s has invalid 'jump'", ErrInvalidWorkflow, phaseName, from, to)
			}
			t.Jump = jump
			t.HasJump = true
		}

		out = append(out, t)
	}
	return out, nil
}

func decodeCompletions(phaseName string, fields map[string]*yaml.Node) ([]Hook, error) {
	node, ok := fields["completions"]
	if !ok {
		node, ok = fields["completion"]
	}
	if !ok {
		return nil, nil
	}
	if node.Kind != yaml.SequenceNode {
		return nil, fmt.Errorf("%w: phase %q field 'completions' must be a list", ErrInvalidWorkflow, phaseName)
	}
	var out []Hook
	for i, item := range node.Content {
		hook, err := decodeHook(item, fmt.Sprintf("phase %q completion hook %d", phaseName, i+1))
		if err != nil {
			return nil, err
		}
		out = append(out, hook)
	}
	return out, nil
}
