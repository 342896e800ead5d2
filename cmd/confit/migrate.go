package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/pmezard/go-difflib/difflib"
	"github.com/spf13/cobra"

	"github.com/arthur-debert/confit/pkg/backup"
	"github.com/arthur-debert/confit/pkg/codec"
	"github.com/arthur-debert/confit/pkg/diff"
	"github.com/arthur-debert/confit/pkg/errors"
	"github.com/arthur-debert/confit/pkg/logging"
	"github.com/arthur-debert/confit/pkg/types"
)

var (
	extractStrategy string
	extractForce    bool
	extractNoBackup bool
)

func init() {
	extractCmd.Flags().StringVar(&extractStrategy, "strategy", string(diff.StrategySmart), "Extraction strategy: smart, minimal or preserve-all")
	extractCmd.Flags().BoolVar(&extractForce, "force", false, "Overwrite an existing override file")
	extractCmd.Flags().BoolVar(&extractNoBackup, "no-backup", false, "Skip the pre-extraction snapshot")

	migrateCmd.AddCommand(analyzeCmd)
	migrateCmd.AddCommand(extractCmd)
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Move hand-maintained config files under confit management",
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze <file>",
	Short: "Report how a file differs from its template",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rc, target, template, err := migrationInputs(args[0])
		if err != nil {
			return err
		}

		current, err := readCurrent(rc, target)
		if err != nil {
			return err
		}

		analysis := diff.Analyze(templateContent(template), current)
		if analysis.Identical {
			fmt.Printf("%s matches its template\n", rc.rel(target))
			return nil
		}

		fmt.Println(rc.renderer.Header(rc.rel(target)))
		printKeys("added", analysis.AddedKeys)
		printKeys("modified", analysis.ModifiedKeys)
		printKeys("deleted", analysis.DeletedKeys)

		unified, err := contentDiff(rc, target, template)
		if err != nil {
			return err
		}
		if unified != "" {
			fmt.Println()
			fmt.Print(unified)
		}
		return nil
	},
}

var extractCmd = &cobra.Command{
	Use:   "extract <file>",
	Short: "Extract local changes into an override file",
	Long: `Extract compares a hand-maintained file with its template and writes
the difference to a sibling *.overrides.* file. After the next apply, the
target regenerates to the same content, now composed from its layers.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := logging.GetLogger("cmd.migrate")
		rc, target, template, err := migrationInputs(args[0])
		if err != nil {
			return err
		}

		current, err := readCurrent(rc, target)
		if err != nil {
			return err
		}

		extracted, err := diff.Extract(templateContent(template), current, diff.Strategy(extractStrategy))
		if err != nil {
			return err
		}
		if extracted == nil {
			fmt.Printf("%s matches its template, nothing to extract\n", rc.rel(target))
			return nil
		}

		overridePath := overridePathFor(target)
		if _, err := rc.fs.Stat(overridePath); err == nil && !extractForce {
			return errors.Newf(errors.ErrInvalidInput,
				"%s already exists, pass --force to overwrite", rc.rel(overridePath))
		}

		if !extractNoBackup {
			manifest, err := backup.New(rc.fs, rc.paths).Snapshot([]string{target, overridePath})
			if err != nil {
				return err
			}
			logger.Info().Str("snapshot", manifest.ID).Msg("pre-extraction snapshot taken")
		}

		body, err := codec.Stringify(template.Format, extracted)
		if err != nil {
			return err
		}
		if err := rc.fs.WriteFile(overridePath, []byte(body), 0644); err != nil {
			return errors.Wrapf(err, errors.ErrFileWrite, "cannot write %s", overridePath)
		}

		fmt.Printf("extracted %d key(s) into %s\n", diff.CountKeys(extracted), rc.rel(overridePath))
		return nil
	},
}

// migrationInputs resolves the target argument and finds its template source
func migrationInputs(arg string) (*runContext, string, *types.Source, error) {
	rc, err := newRunContext(nil)
	if err != nil {
		return nil, "", nil, err
	}
	target, err := abs(arg)
	if err != nil {
		return nil, "", nil, err
	}

	sources, err := rc.engine.Discover()
	if err != nil {
		return nil, "", nil, err
	}
	for i := range sources {
		if sources[i].Kind == types.KindTemplate && filepath.Clean(sources[i].Target) == target {
			return rc, target, &sources[i], nil
		}
	}
	return nil, "", nil, errors.Newf(errors.ErrTargetMissing, "no template produces %s", arg)
}

// readCurrent parses the on-disk artifact the migration starts from
func readCurrent(rc *runContext, target string) (interface{}, error) {
	data, err := rc.fs.ReadFile(target)
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrFileAccess, "cannot read %s", target)
	}
	current, err := codec.Parse(target, data)
	if err != nil {
		return nil, err
	}
	if current == nil {
		// Text target: compare raw bodies
		current = string(data)
	}
	return current, nil
}

// templateContent returns the comparable content of a template source:
// the parsed tree for structured formats, the raw body for text
func templateContent(t *types.Source) interface{} {
	if t.Format.Structured() {
		return t.Content
	}
	return t.Raw
}

// overridePathFor derives app/settings.json -> app/settings.overrides.json
func overridePathFor(target string) string {
	ext := filepath.Ext(target)
	return strings.TrimSuffix(target, ext) + ".overrides" + ext
}

func contentDiff(rc *runContext, target string, template *types.Source) (string, error) {
	actual, err := rc.fs.ReadFile(target)
	if err != nil {
		return "", errors.Wrapf(err, errors.ErrFileAccess, "cannot read %s", target)
	}
	expected, err := codec.Stringify(template.Format, templateContent(template))
	if err != nil {
		return "", err
	}
	return difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(expected),
		B:        difflib.SplitLines(string(actual)),
		FromFile: rc.rel(target) + " (template)",
		ToFile:   rc.rel(target),
		Context:  3,
	})
}

func printKeys(label string, keys []string) {
	if len(keys) == 0 {
		return
	}
	fmt.Printf("  %-8s %s\n", label+":", strings.Join(keys, ", "))
}
