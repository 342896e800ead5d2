// Package validate checks a project's sources without applying anything.
// Discovery deliberately skips broken files so a run still produces the
// artifacts it can; validate is the surface where those defects become
// visible, each as a finding with a severity.
package validate

import (
	goerrors "errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"

	"github.com/arthur-debert/confit/pkg/codec"
	"github.com/arthur-debert/confit/pkg/discovery"
	"github.com/arthur-debert/confit/pkg/logging"
	"github.com/arthur-debert/confit/pkg/merge"
	"github.com/arthur-debert/confit/pkg/paths"
	"github.com/arthur-debert/confit/pkg/types"
	"github.com/arthur-debert/confit/pkg/vars"
)

// Severity ranks findings
type Severity string

const (
	SeverityError Severity = "error"
	SeverityWarn  Severity = "warn"
	SeverityInfo  Severity = "info"
)

// Finding is one validation result tied to a source file
type Finding struct {
	Severity Severity
	Path     string
	Message  string
}

// Report collects the findings of one validation run
type Report struct {
	Findings []Finding
}

// Errors counts error-severity findings
func (r *Report) Errors() int {
	return r.count(SeverityError)
}

// Warnings counts warn-severity findings
func (r *Report) Warnings() int {
	return r.count(SeverityWarn)
}

func (r *Report) count(sev Severity) int {
	n := 0
	for _, f := range r.Findings {
		if f.Severity == sev {
			n++
		}
	}
	return n
}

// Failed reports whether the run should exit nonzero. Strict mode
// promotes warnings to failures.
func (r *Report) Failed(strict bool) bool {
	if r.Errors() > 0 {
		return true
	}
	return strict && r.Warnings() > 0
}

func (r *Report) add(sev Severity, path, format string, args ...interface{}) {
	r.Findings = append(r.Findings, Finding{
		Severity: sev,
		Path:     path,
		Message:  fmt.Sprintf(format, args...),
	})
}

// Validator walks the project's source layers and reports defects
type Validator struct {
	fs         types.FS
	paths      types.Pather
	resolver   *vars.Resolver
	strategies *merge.Registry
}

// New creates a Validator
func New(filesys types.FS, pather types.Pather, resolver *vars.Resolver, strategies *merge.Registry) *Validator {
	return &Validator{fs: filesys, paths: pather, resolver: resolver, strategies: strategies}
}

// Run validates every template, fragment and override in the project
func (v *Validator) Run() (*Report, error) {
	logger := logging.GetLogger("validate")
	report := &Report{}

	if err := v.checkTemplates(report); err != nil {
		return nil, err
	}
	if err := v.checkFragments(report); err != nil {
		return nil, err
	}
	if err := v.checkOverrides(report); err != nil {
		return nil, err
	}

	sort.SliceStable(report.Findings, func(i, j int) bool {
		return report.Findings[i].Path < report.Findings[j].Path
	})
	logger.Debug().
		Int("errors", report.Errors()).
		Int("warnings", report.Warnings()).
		Msg("validation finished")
	return report, nil
}

func (v *Validator) checkTemplates(report *Report) error {
	root := v.paths.TemplatesRoot()
	if _, err := v.fs.Stat(root); err != nil {
		if goerrors.Is(err, fs.ErrNotExist) {
			report.add(SeverityInfo, root, "templates directory missing, no templates will apply")
			return nil
		}
		return err
	}

	return v.walkFiles(root, func(path string) {
		if !paths.IsTemplateFile(filepath.Base(path)) {
			return
		}
		rel, err := filepath.Rel(root, path)
		if err == nil {
			if missing := v.missingVars(rel); len(missing) > 0 {
				report.add(SeverityWarn, path, "template path references undefined variables %v, template will be skipped", missing)
				return
			}
		}

		data, err := v.fs.ReadFile(path)
		if err != nil {
			report.add(SeverityError, path, "cannot read template: %v", err)
			return
		}
		if missing := v.missingVars(string(data)); len(missing) > 0 {
			report.add(SeverityWarn, path, "template body references undefined variables %v, template will be skipped", missing)
			return
		}
		body, err := v.resolver.Resolve(string(data))
		if err != nil {
			report.add(SeverityError, path, "variable resolution failed: %v", err)
			return
		}
		if _, err := codec.Parse(path, []byte(body)); err != nil {
			report.add(SeverityError, path, "template does not parse: %v", err)
		}
	})
}

func (v *Validator) checkFragments(report *Report) error {
	known, err := v.knownModules()
	if err != nil {
		return err
	}

	var candidates []string
	for _, rootName := range paths.ScanRoots {
		root := filepath.Join(v.paths.ProjectRoot(), rootName)
		if _, err := v.fs.Stat(root); err != nil {
			continue
		}
		err := v.walkFiles(root, func(path string) {
			if paths.IsFragmentFile(filepath.Base(path)) {
				candidates = append(candidates, path)
			}
		})
		if err != nil {
			return err
		}
	}

	for _, path := range candidates {
		v.checkFragment(report, path, known)
	}
	return nil
}

func (v *Validator) checkFragment(report *Report, path string, known map[string]bool) {
	data, err := v.fs.ReadFile(path)
	if err != nil {
		report.add(SeverityError, path, "cannot read fragment: %v", err)
		return
	}

	format := codec.FormatFor(path)
	var meta *types.FragmentMeta
	var content interface{}

	if format.Structured() {
		parsed, err := codec.Parse(path, data)
		if err != nil {
			report.add(SeverityError, path, "fragment does not parse: %v", err)
			return
		}
		obj, ok := parsed.(map[string]interface{})
		if !ok {
			report.add(SeverityError, path, "fragment root must be an object, got %T", parsed)
			return
		}
		meta, content, err = discovery.ExtractStructuredMeta(obj)
		if err != nil {
			report.add(SeverityError, path, "invalid metadata: %v", err)
			return
		}
	} else {
		var body string
		meta, body, err = discovery.ExtractTextMeta(string(data))
		if err != nil {
			report.add(SeverityError, path, "invalid metadata: %v", err)
			return
		}
		content = body
	}

	if len(meta.TargetPaths) == 0 {
		report.add(SeverityError, path, "fragment declares no %s", discovery.MetaTargetPath)
		return
	}

	for _, targetPath := range meta.TargetPaths {
		if missing := v.missingVars(targetPath); len(missing) > 0 {
			report.add(SeverityError, path, "target path %q references undefined variables %v", targetPath, missing)
		}
	}

	if meta.Strategy != "" {
		strategy, err := v.strategies.Get(meta.Strategy)
		if err != nil {
			report.add(SeverityError, path, "unknown merge strategy %q", meta.Strategy)
		} else if result := strategy.Validate(content); !result.Valid {
			for _, problem := range result.Errors {
				report.add(SeverityWarn, path, "strategy %s: %s", meta.Strategy, problem)
			}
		}
	}

	if meta.Conditions != nil {
		for _, module := range meta.Conditions.ActiveModules {
			if !known[module] {
				report.add(SeverityWarn, path, "condition references unknown module %q", module)
			}
		}
	}
}

func (v *Validator) checkOverrides(report *Report) error {
	return v.walkExcluding(v.paths.ProjectRoot(), v.paths.FrameworkDir(), func(path string) {
		if !paths.IsOverrideFile(filepath.Base(path)) {
			return
		}
		data, err := v.fs.ReadFile(path)
		if err != nil {
			report.add(SeverityError, path, "cannot read override: %v", err)
			return
		}
		if _, err := codec.Parse(path, data); err != nil {
			report.add(SeverityError, path, "override does not parse: %v", err)
		}
	})
}

// knownModules lists the directories of the framework module tree
func (v *Validator) knownModules() (map[string]bool, error) {
	known := map[string]bool{}
	entries, err := v.fs.ReadDir(v.paths.FrameworkModulesDir())
	if err != nil {
		if goerrors.Is(err, fs.ErrNotExist) {
			return known, nil
		}
		return nil, err
	}
	for _, entry := range entries {
		if entry.IsDir() {
			known[entry.Name()] = true
		}
	}
	return known, nil
}

func (v *Validator) missingVars(s string) []string {
	if _, err := v.resolver.Resolve(s); err != nil {
		var missing *vars.MissingVariablesError
		if goerrors.As(err, &missing) {
			return missing.Names
		}
	}
	return nil
}

func (v *Validator) walkFiles(dir string, fn func(path string)) error {
	return v.walkExcluding(dir, "", fn)
}

func (v *Validator) walkExcluding(dir, skip string, fn func(path string)) error {
	entries, err := v.fs.ReadDir(dir)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		path := filepath.Join(dir, entry.Name())
		if entry.IsDir() {
			if paths.ExcludedDirNames[entry.Name()] {
				continue
			}
			if skip != "" && filepath.Clean(path) == filepath.Clean(skip) {
				continue
			}
			if err := v.walkExcluding(path, skip, fn); err != nil {
				return err
			}
			continue
		}
		fn(path)
	}
	return nil
}
