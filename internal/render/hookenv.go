package render

import (
	"os"

	"github.com/dirorch/dirorch/internal/wfconfig"
)

// BuildHookEnv resolves a workflow's env section and returns:
//   - processEnv: process environment ∪ workflow environment ∪
//     directory bindings, as NAME=VALUE strings, for the subprocess's
//     own environment (spec.md §6's "Hook environment").
//   - templateEnv: the resolved workflow environment alone, the base
//     context for per-invocation stdin rendering (spec.md §6's "Hook
//     stdin rendering"). It deliberately excludes the inherited process
//     environment and directory bindings, matching the documented
//     context exactly.
func BuildHookEnv(wf *wfconfig.Workflow, root string) (processEnv []string, templateEnv map[string]string, err error) {
	resolvedEnv, err := ResolveEnv(wf, root)
	if err != nil {
		return nil, nil, err
	}
	bindings := DirectoryBindings(wf, root)

	merged := make(map[string]string, len(resolvedEnv)+len(bindings))
	for _, kv := range os.Environ() {
		k, v := splitEnv(kv)
		merged[k] = v
	}
	for k, v := range resolvedEnv {
		merged[k] = v
	}
	for k, v := range bindings {
		merged[k] = v
	}

	processEnv = make([]string, 0, len(merged))
	for k, v := range merged {
		processEnv = append(processEnv, k+"="+v)
	}

	return processEnv, resolvedEnv, nil
}

func splitEnv(kv string) (string, string) {
	for i := 0; i < len(kv); i++ {
		if kv[i] == '=' {
			return kv[:i], kv[i+1:]
		}
	}
	return kv, ""
}
