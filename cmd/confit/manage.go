package main

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/arthur-debert/confit/pkg/codec"
	"github.com/arthur-debert/confit/pkg/diff"
	"github.com/arthur-debert/confit/pkg/errors"
	"github.com/arthur-debert/confit/pkg/paths"
	"github.com/arthur-debert/confit/pkg/types"
)

var (
	addNoSymlink     bool
	addKeepOriginal  bool
	addForce         bool
	overrideExtract  bool
	overrideEdit     bool
	overrideForce    bool
	overrideTemplate string
)

func init() {
	addCmd.Flags().BoolVar(&addNoSymlink, "no-symlink", false, "Copy the file back instead of symlinking it")
	addCmd.Flags().BoolVar(&addKeepOriginal, "keep-original", false, "Leave the original file in place")
	addCmd.Flags().BoolVar(&addForce, "force", false, "Overwrite an existing template")
	overrideCmd.Flags().BoolVar(&overrideExtract, "extract-current", false, "Seed the override with the current diff against the template")
	overrideCmd.Flags().BoolVar(&overrideEdit, "edit", false, "Open the new override in $EDITOR")
	overrideCmd.Flags().BoolVar(&overrideForce, "force", false, "Overwrite an existing override")
	overrideCmd.Flags().StringVar(&overrideTemplate, "template", "", "Seed format when the target extension is ambiguous: json, yaml, toml or text")
}

var addCmd = &cobra.Command{
	Use:   "add <file>",
	Short: "Move a file into the templates root and link it back",
	Long: `Add moves a project file under the templates root, with the template
marker prefix on its basename, and replaces the original with a symlink
to the new template (or a copy with --no-symlink). The file's path
relative to the project root is preserved, so apply resolves it to the
same target.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rc, err := newRunContext(nil)
		if err != nil {
			return err
		}
		target, err := abs(args[0])
		if err != nil {
			return err
		}

		rel, err := filepath.Rel(rc.paths.ProjectRoot(), target)
		if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			return errors.Newf(errors.ErrInvalidInput, "%s is outside the project", args[0])
		}

		data, err := rc.fs.ReadFile(target)
		if err != nil {
			return errors.Wrapf(err, errors.ErrFileAccess, "cannot read %s", target)
		}

		dest := filepath.Join(
			rc.paths.TemplatesRoot(),
			filepath.Dir(rel),
			paths.TemplateMarker+filepath.Base(rel),
		)
		if _, err := rc.fs.Stat(dest); err == nil && !addForce {
			return errors.Newf(errors.ErrInvalidInput, "template %s already exists, pass --force to overwrite", rc.rel(dest))
		}
		if err := rc.fs.MkdirAll(filepath.Dir(dest), 0755); err != nil {
			return errors.Wrapf(err, errors.ErrDirCreate, "cannot create %s", filepath.Dir(dest))
		}
		if err := rc.fs.WriteFile(dest, data, 0644); err != nil {
			return errors.Wrapf(err, errors.ErrFileWrite, "cannot write %s", dest)
		}

		if addKeepOriginal {
			fmt.Printf("added %s as %s, original kept\n", args[0], rc.rel(dest))
			return nil
		}

		if err := rc.fs.Remove(target); err != nil {
			return errors.Wrapf(err, errors.ErrFileAccess, "cannot replace %s", target)
		}
		if addNoSymlink {
			if err := rc.fs.WriteFile(target, data, 0644); err != nil {
				return errors.Wrapf(err, errors.ErrFileWrite, "cannot copy back %s", target)
			}
		} else {
			linkDest, err := filepath.Rel(filepath.Dir(target), dest)
			if err != nil {
				linkDest = dest
			}
			if err := rc.fs.Symlink(linkDest, target); err != nil {
				return errors.Wrapf(err, errors.ErrSymlinkCreate, "cannot link %s", target)
			}
		}

		fmt.Printf("added %s as %s\n", args[0], rc.rel(dest))
		return nil
	},
}

var overrideCmd = &cobra.Command{
	Use:   "override <file>",
	Short: "Create an override file for a target",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rc, err := newRunContext(nil)
		if err != nil {
			return err
		}
		target, err := abs(args[0])
		if err != nil {
			return err
		}

		overridePath := overridePathFor(target)
		if _, err := rc.fs.Stat(overridePath); err == nil && !overrideForce {
			return errors.Newf(errors.ErrInvalidInput, "%s already exists, pass --force to overwrite", rc.rel(overridePath))
		}

		format := codec.FormatFor(target)
		if overrideTemplate != "" {
			format, err = seedFormat(overrideTemplate)
			if err != nil {
				return err
			}
		}
		var content interface{}
		if format.Structured() {
			content = map[string]interface{}{}
		} else {
			content = ""
		}

		if overrideExtract {
			sources, err := rc.engine.Discover()
			if err != nil {
				return err
			}
			var template *types.Source
			for i := range sources {
				if sources[i].Kind == types.KindTemplate && filepath.Clean(sources[i].Target) == target {
					template = &sources[i]
					break
				}
			}
			if template == nil {
				return errors.Newf(errors.ErrTargetMissing, "no template produces %s", args[0])
			}
			current, err := readCurrent(rc, target)
			if err != nil {
				return err
			}
			extracted, err := diff.Extract(templateContent(template), current, diff.StrategySmart)
			if err != nil {
				return err
			}
			if extracted != nil {
				content = extracted
			}
		}

		body, err := codec.Stringify(format, content)
		if err != nil {
			return err
		}
		if err := rc.fs.WriteFile(overridePath, []byte(body), 0644); err != nil {
			return errors.Wrapf(err, errors.ErrFileWrite, "cannot write %s", overridePath)
		}

		fmt.Printf("created %s\n", rc.rel(overridePath))
		if overrideEdit {
			return openEditor(overridePath)
		}
		return nil
	},
}

// seedFormat maps the --template flag to a codec format
func seedFormat(name string) (types.Format, error) {
	switch strings.ToLower(name) {
	case "json":
		return types.FormatJSON, nil
	case "yaml", "yml":
		return types.FormatYAML, nil
	case "toml":
		return types.FormatTOML, nil
	case "text":
		return types.FormatText, nil
	default:
		return "", errors.Newf(errors.ErrInvalidInput, "unknown template format %q", name)
	}
}

func openEditor(path string) error {
	editor := os.Getenv("EDITOR")
	if editor == "" {
		return errors.New(errors.ErrInvalidInput, "$EDITOR is not set")
	}
	cmd := exec.Command(editor, path)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}

var removeCmd = &cobra.Command{
	Use:   "remove <file>",
	Short: "Remove a managed artifact, leaving its sources",
	Long: `Remove deletes the link or generated artifact at the given path. The
contributing sources stay; the next apply recreates the target unless
its sources are removed too.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rc, err := newRunContext(nil)
		if err != nil {
			return err
		}
		target, err := abs(args[0])
		if err != nil {
			return err
		}

		if _, err := rc.fs.Lstat(target); err != nil {
			return errors.Wrapf(err, errors.ErrTargetMissing, "nothing at %s", args[0])
		}
		if err := rc.fs.Remove(target); err != nil {
			return errors.Wrapf(err, errors.ErrFileAccess, "cannot remove %s", target)
		}

		fmt.Printf("removed %s\n", rc.rel(target))
		return nil
	},
}
