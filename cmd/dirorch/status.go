package main

import (
	"fmt"
	"os"

	"github.com/dirorch/dirorch/internal/entity"
	"github.com/dirorch/dirorch/internal/wfconfig"
)

// renderStatus prints the current phase (if a run has started) and, for
// every phase, the entity count in each of its states including the
// reserved failure bucket.
func renderStatus(wf *wfconfig.Workflow, entities *entity.Store, currentPhase string, started bool) error {
	if !started {
		fmt.Println("run not started (no runtime state file yet)")
	} else {
		fmt.Printf("current phase: %s\n", currentPhase)
	}

	for _, p := range wf.Phases {
		marker := "  "
		if started && p.Name == currentPhase {
			marker = "->"
		}
		fmt.Printf("%s %-20s mode=%s\n", marker, p.Name, modeName(p.Mode))

		states := append(append([]string{}, p.States...), wfconfig.FailedState)
		for _, state := range states {
			count, err := countEntries(entities.DirFor(p.Name, state))
			if err != nil {
				return err
			}
			fmt.Printf("      %-20s %d\n", state, count)
		}
	}
	return nil
}

func countEntries(dir string) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("reading %s: %w", dir, err)
	}
	n := 0
	for _, e := range entries {
		if e.Type().IsRegular() {
			n++
		}
	}
	return n, nil
}
