package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/arthur-debert/confit/pkg/backup"
	"github.com/arthur-debert/confit/pkg/errors"
	"github.com/arthur-debert/confit/pkg/logging"
	"github.com/arthur-debert/confit/pkg/types"
)

var (
	applyDryRun   bool
	applyNoBackup bool
	applyFilters  []string
)

func init() {
	applyCmd.Flags().BoolVar(&applyDryRun, "dry-run", false, "Show the plan without writing anything")
	applyCmd.Flags().BoolVar(&applyNoBackup, "no-backup", false, "Skip the pre-apply snapshot")
	applyCmd.Flags().StringArrayVar(&applyFilters, "filter", nil, "Only process targets matching the pattern (repeatable)")
}

var applyCmd = &cobra.Command{
	Use:   "apply [filter...]",
	Short: "Compose every target from its sources",
	Long: `Apply discovers templates, fragments and overrides, groups them by
target path and writes each target: a symlink for single-source targets,
a merged artifact otherwise. Optional filter patterns restrict which
targets are processed.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := logging.GetLogger("cmd.apply")
		rc, err := newRunContext(append(applyFilters, args...))
		if err != nil {
			return err
		}

		plan, err := rc.engine.Apply(true)
		if err != nil {
			return err
		}

		if applyDryRun {
			if rc.renderer.JSON() {
				out, err := rc.renderer.ResultJSON(plan.Actions, len(plan.Actions), 0, true, rc.rel)
				if err != nil {
					return err
				}
				fmt.Println(out)
				return nil
			}
			for _, action := range plan.Actions {
				fmt.Printf("  %-6s %s\n", string(action.Kind), rc.rel(action.Target))
			}
			fmt.Println(rc.renderer.Summary(len(plan.Actions), 0, true))
			return nil
		}

		if !applyNoBackup && len(plan.Actions) > 0 {
			manifest, err := backup.New(rc.fs, rc.paths).Snapshot(actionTargets(plan.Actions))
			if err != nil {
				return err
			}
			logger.Info().Str("snapshot", manifest.ID).Msg("pre-apply snapshot taken")
		}

		result, err := rc.engine.Apply(false)
		if err != nil {
			return err
		}
		if rc.renderer.JSON() {
			out, err := rc.renderer.ResultJSON(result.Actions, result.Applied, len(result.Errors), false, rc.rel)
			if err != nil {
				return err
			}
			fmt.Println(out)
		} else {
			for _, failure := range result.Errors {
				fmt.Printf("  failed %s: %v\n", rc.rel(failure.Target), failure.Err)
			}
			fmt.Println(rc.renderer.Summary(result.Applied, len(result.Errors), false))
		}

		if result.Failed() {
			return errors.Newf(errors.ErrFileWrite, "%d target(s) failed", len(result.Errors))
		}
		return nil
	},
}

// actionTargets extracts the target list of a plan
func actionTargets(actions []types.Action) []string {
	targets := make([]string, 0, len(actions))
	for _, action := range actions {
		targets = append(targets, action.Target)
	}
	return targets
}
