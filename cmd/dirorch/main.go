// Command dirorch runs a directory-driven workflow orchestration: see
// `dirorch run --help` for the phase/state/transition model.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/dirorch/dirorch/internal/engine"
	"github.com/dirorch/dirorch/internal/entity"
	"github.com/dirorch/dirorch/internal/hook"
	"github.com/dirorch/dirorch/internal/orclog"
	"github.com/dirorch/dirorch/internal/render"
	"github.com/dirorch/dirorch/internal/runstate"
	"github.com/dirorch/dirorch/internal/wfconfig"
	cli "github.com/urfave/cli/v3"
)

func main() {
	app := &cli.Command{
		Name:        "dirorch",
		Usage:       "Directory-driven workflow orchestrator",
		Description: "Move files between phase/state directories by running shell hooks, to a fixpoint.",
		Commands: []*cli.Command{
			runCmd(),
			statusCmd(),
			validateCmd(),
		},
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func commonFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "root", Usage: "Root directory for workflow state directories (default: current directory)"},
		&cli.IntFlag{Name: "retries", Usage: "Retries for hooks (overrides YAML retries; excludes first attempt)", Value: -1},
		&cli.StringFlag{Name: "state-file", Usage: "Runtime state file name under --root", Value: ".dirorch_runtime.json"},
		&cli.StringFlag{Name: "log-level", Usage: "Logging verbosity (DEBUG, INFO, WARNING, ERROR)", Value: "INFO"},
	}
}

func runCmd() *cli.Command {
	return &cli.Command{
		Name:      "run",
		Usage:     "Run a workflow to its stable fixpoint",
		ArgsUsage: "<workflow>",
		Flags:     commonFlags(),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			workflowArg := cmd.Args().First()
			if workflowArg == "" {
				return fmt.Errorf("workflow argument is required")
			}

			root, err := resolveRoot(cmd.String("root"))
			if err != nil {
				return err
			}

			configPath, err := resolveWorkflowPath(workflowArg)
			if err != nil {
				return err
			}
			wf, err := wfconfig.Load(configPath)
			if err != nil {
				return fmt.Errorf("loading workflow: %w", err)
			}

			retries := wf.Retries
			if r := cmd.Int("retries"); r >= 0 {
				retries = int(r)
			}

			logger := orclog.New(cmd.String("log-level"))

			processEnv, templateEnv, err := render.BuildHookEnv(wf, root)
			if err != nil {
				return fmt.Errorf("resolving workflow environment: %w", err)
			}

			hooks := hook.New(hook.Config{
				Root:        root,
				BaseEnv:     processEnv,
				TemplateEnv: templateEnv,
				Retries:     retries,
				Logger:      logger,
			})

			entities := entity.New(wf, root)
			state := runstate.New(root, cmd.String("state-file"))

			eng := engine.New(wf, state, entities, hooks, logger)

			runCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM, syscall.SIGHUP)
			defer stop()

			return eng.Run(runCtx)
		},
	}
}

func validateCmd() *cli.Command {
	return &cli.Command{
		Name:      "validate",
		Usage:     "Parse and cross-validate a workflow without running it",
		ArgsUsage: "<workflow>",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			workflowArg := cmd.Args().First()
			if workflowArg == "" {
				return fmt.Errorf("workflow argument is required")
			}

			configPath, err := resolveWorkflowPath(workflowArg)
			if err != nil {
				return err
			}
			wf, err := wfconfig.Load(configPath)
			if err != nil {
				return fmt.Errorf("invalid workflow: %w", err)
			}

			fmt.Printf("ok: %s (%d phase(s))\n", configPath, len(wf.Phases))
			for _, p := range wf.Phases {
				fmt.Printf("  %-20s mode=%-12s states=%v\n", p.Name, modeName(p.Mode), p.States)
			}
			return nil
		},
	}
}

func statusCmd() *cli.Command {
	return &cli.Command{
		Name:      "status",
		Usage:     "Show entity counts per phase/state and the current phase",
		ArgsUsage: "<workflow>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "root", Usage: "Root directory for workflow state directories (default: current directory)"},
			&cli.StringFlag{Name: "state-file", Usage: "Runtime state file name under --root", Value: ".dirorch_runtime.json"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			workflowArg := cmd.Args().First()
			if workflowArg == "" {
				return fmt.Errorf("workflow argument is required")
			}

			root, err := resolveRoot(cmd.String("root"))
			if err != nil {
				return err
			}

			configPath, err := resolveWorkflowPath(workflowArg)
			if err != nil {
				return err
			}
			wf, err := wfconfig.Load(configPath)
			if err != nil {
				return fmt.Errorf("loading workflow: %w", err)
			}

			state := runstate.New(root, cmd.String("state-file"))
			currentPhase, ok, err := state.LoadCurrentPhase()
			if err != nil {
				return fmt.Errorf("loading runtime state: %w", err)
			}

			return renderStatus(wf, entity.New(wf, root), currentPhase, ok)
		},
	}
}

func modeName(mode string) string {
	if mode == wfconfig.ModeEntity {
		return wfconfig.ModeEntity
	}
	return wfconfig.ModeTransitions
}

func resolveRoot(flag string) (string, error) {
	if flag != "" {
		return filepath.Abs(flag)
	}
	return os.Getwd()
}

// resolveWorkflowPath follows the CLI's workflow-name resolution rule: a
// bare name with no path separator and no .yml/.yaml suffix resolves
// against $XDG_CONFIG_DIR/dirorch/workflows/<name>.yml, falling back to
// ~/.config/dirorch/workflows/<name>.yml. Anything else — an absolute
// path, a path containing a separator, or one ending in .yml/.yaml — is
// used as a literal path.
func resolveWorkflowPath(workflow string) (string, error) {
	if isExplicitPath(workflow) {
		return expandHome(workflow)
	}

	dir, err := configDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "dirorch", "workflows", workflow+".yml"), nil
}

func isExplicitPath(workflow string) bool {
	if filepath.IsAbs(workflow) {
		return true
	}
	if filepath.Dir(workflow) != "." {
		return true
	}
	ext := filepath.Ext(workflow)
	return ext == ".yml" || ext == ".yaml"
}

func expandHome(path string) (string, error) {
	if path != "~" && !hasHomePrefix(path) {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	if path == "~" {
		return home, nil
	}
	return filepath.Join(home, path[2:]), nil
}

func hasHomePrefix(path string) bool {
	return len(path) >= 2 && path[0] == '~' && (path[1] == '/' || path[1] == filepath.Separator)
}

func configDir() (string, error) {
	if xdg := os.Getenv("XDG_CONFIG_DIR"); xdg != "" {
		return expandHome(xdg)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config"), nil
}
