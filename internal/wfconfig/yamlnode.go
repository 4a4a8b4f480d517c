package wfconfig

import (
	"fmt"
	"strconv"

	"gopkg.in/yaml.v3"
)

// mappingFields walks a YAML mapping node and returns key -> value node,
// preserving nothing about order (use mappingKeyOrder for that). Mirrors
// the teacher's config.OrderedVars.UnmarshalYAML node-walking technique.
func mappingFields(n *yaml.Node) (map[string]*yaml.Node, error) {
	if n.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("%w: expected a mapping", ErrInvalidWorkflow)
	}
	fields := make(map[string]*yaml.Node, len(n.Content)/2)
	for i := 0; i+1 < len(n.Content); i += 2 {
		key := n.Content[i]
		val := n.Content[i+1]
		if key.Kind != yaml.ScalarNode {
			return nil, fmt.Errorf("%w: mapping key at position %d is not a scalar", ErrInvalidWorkflow, i/2+1)
		}
		fields[key.Value] = val
	}
	return fields, nil
}

// mappingKeyOrder returns a mapping node's keys in declaration order.
func mappingKeyOrder(n *yaml.Node) ([]string, error) {
	if n.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("%w: expected a mapping", ErrInvalidWorkflow)
	}
	order := make([]string, 0, len(n.Content)/2)
	for i := 0; i+1 < len(n.Content); i += 2 {
		key := n.Content[i]
		if key.Kind != yaml.ScalarNode {
			return nil, fmt.Errorf("%w: mapping key at position %d is not a scalar", ErrInvalidWorkflow, i/2+1)
		}
		order = append(order, key.Value)
	}
	return order, nil
}

func decodeString(n *yaml.Node, field string) (string, error) {
	if n == nil || n.Kind != yaml.ScalarNode {
		return "", fmt.Errorf("%w: %q must be a string", ErrInvalidWorkflow, field)
	}
	return n.Value, nil
}

func decodeInt(n *yaml.Node) (int, error) {
	if n == nil || n.Kind != yaml.ScalarNode {
		return 0, fmt.Errorf("%w: expected an integer", ErrInvalidWorkflow)
	}
	return strconv.Atoi(n.Value)
}

func decodeStringList(n *yaml.Node, field string) ([]string, error) {
	if n == nil || n.Kind != yaml.SequenceNode {
		return nil, fmt.Errorf("%w: %q must be a list", ErrInvalidWorkflow, field)
	}
	out := make([]string, 0, len(n.Content))
	for _, item := range n.Content {
		if item.Kind != yaml.ScalarNode || item.Value == "" {
			return nil, fmt.Errorf("%w: %q contains an invalid entry", ErrInvalidWorkflow, field)
		}
		out = append(out, item.Value)
	}
	return out, nil
}

// decodeOrderedStringMap decodes a mapping of string->string, preserving
// declaration order (used for the workflow-level 'env' mapping, whose
// rendering order matters for progressive unification).
func decodeOrderedStringMap(n *yaml.Node, field string) ([]string, map[string]string, error) {
	if n.Kind != yaml.MappingNode {
		return nil, nil, fmt.Errorf("%w: %q must be a mapping of string to string", ErrInvalidWorkflow, field)
	}
	order := make([]string, 0, len(n.Content)/2)
	m := make(map[string]string, len(n.Content)/2)
	for i := 0; i+1 < len(n.Content); i += 2 {
		key := n.Content[i]
		val := n.Content[i+1]
		if key.Kind != yaml.ScalarNode {
			return nil, nil, fmt.Errorf("%w: %q key at position %d is not a scalar", ErrInvalidWorkflow, field, i/2+1)
		}
		if val.Kind != yaml.ScalarNode {
			return nil, nil, fmt.Errorf("%w: %q value for %q must be a string", ErrInvalidWorkflow, field, key.Value)
		}
		order = append(order, key.Value)
		m[key.Value] = val.Value
	}
	return order, m, nil
}

// decodeHook parses a hook field that may be a bare string command or a
// mapping with 'cmd' and optional 'stdin'.
func decodeHook(n *yaml.Node, context string) (Hook, error) {
	switch n.Kind {
	case yaml.ScalarNode:
		if n.Value == "" {
			return Hook{}, fmt.Errorf("%w: %s 'cmd' must not be empty", ErrInvalidWorkflow, context)
		}
		return Hook{Cmd: n.Value}, nil
	case yaml.MappingNode:
		fields, err := mappingFields(n)
		if err != nil {
			return Hook{}, err
		}
		cmdNode, ok := fields["cmd"]
		if !ok {
			return Hook{}, fmt.Errorf("%w: %s requires 'cmd'", ErrInvalidWorkflow, context)
		}
		cmd, err := decodeString(cmdNode, "cmd")
		if err != nil || cmd == "" {
			return Hook{}, fmt.Errorf("%w: %s 'cmd' must be a non-empty string", ErrInvalidWorkflow, context)
		}
		hook := Hook{Cmd: cmd}
		if stdinNode, ok := fields["stdin"]; ok {
			stdin, err := decodeString(stdinNode, "stdin")
			if err != nil {
				return Hook{}, fmt.Errorf("%w: %s 'stdin' must be a string", ErrInvalidWorkflow, context)
			}
			hook.Stdin = stdin
			hook.HasStdin = true
		}
		return hook, nil
	default:
		return Hook{}, fmt.Errorf("%w: %s must be a string or a mapping with 'cmd'", ErrInvalidWorkflow, context)
	}
}
