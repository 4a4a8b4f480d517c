package render

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/dirorch/dirorch/internal/wfconfig"
)

var nonAlnum = regexp.MustCompile(`[^A-Z0-9]`)

// Sanitize uppercases raw and replaces every character outside [A-Z0-9]
// with an underscore, matching the original's env._sanitize_token.
func Sanitize(raw string) string {
	return nonAlnum.ReplaceAllString(strings.ToUpper(raw), "_")
}

// DirectoryBindings returns the DIR_<PHASE>_<STATE> -> absolute-path
// mapping for every (phase, user state) pair in the workflow. The
// reserved failure state is not bound, matching the original's env.py,
// which only iterates phase.states.
func DirectoryBindings(wf *wfconfig.Workflow, root string) map[string]string {
	bindings := make(map[string]string)
	for _, phase := range wf.Phases {
		for _, state := range phase.States {
			key := fmt.Sprintf("DIR_%s_%s", Sanitize(phase.Name), Sanitize(state))
			bindings[key] = filepath.Join(root, phase.Name, state)
		}
	}
	return bindings
}

// ResolveEnv renders the workflow's declared env values in progressive
// rounds: each round attempts every still-unresolved entry against
// (directory bindings ∪ already-resolved entries); entries that render
// cleanly are promoted into the context for the next round. A round
// that resolves nothing indicates a dependency cycle and is reported as
// wfconfig.ErrInvalidWorkflow. The process environment and
// INPUT_ENTITY are never exposed to this context.
func ResolveEnv(wf *wfconfig.Workflow, root string) (map[string]string, error) {
	renderer := New(root)
	bindings := DirectoryBindings(wf, root)

	resolved := make(map[string]string, len(bindings)+len(wf.Env))
	for k, v := range bindings {
		resolved[k] = v
	}

	pending := make(map[string]string, len(wf.Env))
	for k, v := range wf.Env {
		pending[k] = v
	}
	order := wf.EnvOrder

	for len(pending) > 0 {
		progressed := false
		var stillPending []string
		for _, name := range order {
			tmpl, ok := pending[name]
			if !ok {
				continue
			}
			value, err := renderer.Render(tmpl, resolved)
			if err != nil {
				stillPending = append(stillPending, name)
				continue
			}
			resolved[name] = value
			delete(pending, name)
			progressed = true
		}
		if !progressed {
			return nil, fmt.Errorf("%w: cannot resolve env var(s) %v (dependency cycle or missing reference)",
				wfconfig.ErrInvalidWorkflow, stillPendingNames(pending))
		}
		order = stillPending
	}

	out := make(map[string]string, len(wf.Env))
	for k := range wf.Env {
		out[k] = resolved[k]
	}
	return out, nil
}

func stillPendingNames(pending map[string]string) []string {
	names := make([]string, 0, len(pending))
	for k := range pending {
		names = append(names, k)
	}
	return names
}
