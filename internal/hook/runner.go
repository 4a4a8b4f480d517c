// Package hook runs shell commands with a merged environment, optional
// templated stdin, and retry semantics, reporting only a success/failure
// boolean to its caller — the caller decides how to escalate a failure.
package hook

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/google/uuid"

	"github.com/dirorch/dirorch/internal/orclog"
	"github.com/dirorch/dirorch/internal/render"
	"github.com/dirorch/dirorch/internal/wfconfig"
)

// Runner executes hooks via a system shell, applying the workflow's
// retry policy and rendering stdin templates just before each attempt.
type Runner struct {
	root        string
	baseEnv     []string          // process env ∪ workflow env ∪ directory bindings, as NAME=VALUE
	templateEnv map[string]string // resolved workflow env, base of the stdin template context
	retries     int
	renderer    *render.Renderer
	logger      *orclog.Logger
}

// Config bundles the dependencies a Runner needs.
type Config struct {
	Root        string
	BaseEnv     []string
	TemplateEnv map[string]string
	Retries     int
	Logger      *orclog.Logger
}

// New builds a Runner from Config.
func New(cfg Config) *Runner {
	return &Runner{
		root:        cfg.Root,
		baseEnv:     cfg.BaseEnv,
		templateEnv: cfg.TemplateEnv,
		retries:     cfg.Retries,
		renderer:    render.New(cfg.Root),
		logger:      cfg.Logger,
	}
}

// Run executes hook with extraEnv merged in (extraEnv wins on
// collision), retrying up to retries+1 total attempts with no delay
// between attempts. label is a human-readable name used in log
// lines. Returns true iff some attempt exited zero.
func (r *Runner) Run(ctx context.Context, h wfconfig.Hook, extraEnv map[string]string, label string) bool {
	attempts := r.retries + 1
	correlation := uuid.New().String()

	env := mergeEnv(r.baseEnv, extraEnv)
	templateCtx := mergeStringMap(r.templateEnv, extraEnv)

	for attempt := 1; attempt <= attempts; attempt++ {
		var stdin *string
		if h.HasStdin {
			rendered, err := r.renderer.Render(h.Stdin, templateCtx)
			if err != nil {
				r.logger.Warnf("%s failed (attempt %d/%d, corr=%s): stdin template error: %v",
					label, attempt, attempts, correlation, err)
				continue
			}
			stdin = &rendered
		}

		code, err := r.runOnce(ctx, h.Cmd, env, stdin)
		if err != nil {
			r.logger.Warnf("%s failed (attempt %d/%d, corr=%s): %v", label, attempt, attempts, correlation, err)
			continue
		}
		if code == 0 {
			r.logger.Debugf("%s succeeded (attempt %d/%d, corr=%s)", label, attempt, attempts, correlation)
			return true
		}
		r.logger.Warnf("%s failed (attempt %d/%d, corr=%s, exit=%d)", label, attempt, attempts, correlation, code)
	}
	return false
}

func (r *Runner) runOnce(ctx context.Context, cmdStr string, env []string, stdin *string) (int, error) {
	cmd := exec.CommandContext(ctx, "sh", "-c", cmdStr)
	cmd.Dir = r.root
	cmd.Env = env

	var captured bytes.Buffer
	cmd.Stdout = &captured
	cmd.Stderr = &captured

	if stdin != nil {
		cmd.Stdin = strings.NewReader(*stdin)
	}

	err := cmd.Run()
	code, convErr := exitCode(err)
	if convErr != nil {
		return 0, fmt.Errorf("%v (output: %s)", convErr, captured.String())
	}
	if code != 0 {
		return code, nil
	}
	return 0, nil
}

func exitCode(err error) (int, error) {
	if err == nil {
		return 0, nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode(), nil
	}
	return 0, err
}

func mergeEnv(base []string, extra map[string]string) []string {
	out := make([]string, len(base), len(base)+len(extra))
	copy(out, base)
	for k, v := range extra {
		out = append(out, k+"="+v)
	}
	return out
}

func mergeStringMap(base map[string]string, extra map[string]string) map[string]string {
	out := make(map[string]string, len(base)+len(extra))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range extra {
		out[k] = v
	}
	return out
}
