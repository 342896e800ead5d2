package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/arthur-debert/confit/pkg/status"
)

var statusCmd = &cobra.Command{
	Use:   "status [file]",
	Short: "Compare targets with what apply would produce",
	Long: `Status plans a run and classifies every target: ok, missing, drift
or stale. With a file argument, only that target is checked and a unified
diff of the on-disk artifact against the expected content is printed.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rc, err := newRunContext(nil)
		if err != nil {
			return err
		}

		actions, err := rc.engine.Plan()
		if err != nil {
			return err
		}

		if len(args) == 1 {
			target, err := abs(args[0])
			if err != nil {
				return err
			}
			found := false
			for i := range actions {
				if filepath.Clean(actions[i].Target) == target {
					actions = actions[i : i+1]
					found = true
					break
				}
			}
			if !found {
				return fmt.Errorf("%s is not a managed target", args[0])
			}
		}

		statuses, err := status.New(rc.fs, rc.paths).Report(actions)
		if err != nil {
			return err
		}

		if rc.renderer.JSON() {
			out, err := rc.renderer.StatusJSON(statuses, rc.rel)
			if err != nil {
				return err
			}
			fmt.Println(out)
			return nil
		}

		fmt.Println(rc.renderer.Header("status"))
		fmt.Println(rc.renderer.StatusList(statuses, rc.rel))
		for _, s := range statuses {
			if s.Diff != "" && (len(args) == 1 || len(statuses) == 1) {
				fmt.Println()
				fmt.Print(s.Diff)
			}
		}

		if !status.Clean(statuses) {
			fmt.Println("\nrun 'confit apply' to bring targets up to date")
		}
		return nil
	},
}
