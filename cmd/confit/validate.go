package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/arthur-debert/confit/pkg/errors"
	"github.com/arthur-debert/confit/pkg/validate"
	"github.com/arthur-debert/confit/pkg/vars"
)

var validateStrict bool

func init() {
	validateCmd.Flags().BoolVar(&validateStrict, "strict", false, "Treat warnings as failures")
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check every source without applying anything",
	Long: `Validate parses every template, fragment and override, checks
metadata, variables, merge strategies and module conditions, and reports
each defect with a severity. Errors always fail the run; warnings fail it
only with --strict (or strict_validation in confit.toml).`,
	RunE: func(cmd *cobra.Command, args []string) error {
		rc, err := newRunContext(nil)
		if err != nil {
			return err
		}
		strict := validateStrict || rc.settings.StrictValidation

		validator := validate.New(
			rc.fs,
			rc.paths,
			vars.NewResolver(rc.settings.Variables),
			rc.engine.Strategies(),
		)
		report, err := validator.Run()
		if err != nil {
			return err
		}

		if rc.renderer.JSON() {
			out, err := rc.renderer.FindingsJSON(report, rc.rel)
			if err != nil {
				return err
			}
			fmt.Println(out)
		} else {
			fmt.Println(rc.renderer.Findings(report, rc.rel))
		}
		if report.Failed(strict) {
			return errors.Newf(errors.ErrInvalidInput, "validation failed")
		}
		return nil
	},
}
