// Package paths provides centralized path handling for confit: the managed
// project's layout (templates root, framework tree, module symlink
// directory) and confit's own XDG state locations.
package paths

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/adrg/xdg"
	"github.com/arthur-debert/confit/pkg/errors"
	"github.com/arthur-debert/confit/pkg/types"
)

// Environment variable names
const (
	// EnvProjectRoot is the primary environment variable for the project location
	EnvProjectRoot = "CONFIT_PROJECT_ROOT"

	// EnvStateDir overrides the XDG state directory for confit
	EnvStateDir = "CONFIT_STATE_DIR"
)

// Layout names. These define the on-disk contract between a project and
// confit and are not user-configurable.
const (
	// FrameworkDirName is the framework checkout inside the project
	FrameworkDirName = "framework"

	// TemplatesDirName is the templates root inside the framework
	TemplatesDirName = "templates"

	// ModulesDirName is the project-level directory of module activation symlinks
	ModulesDirName = "modules"

	// FrameworkModulesDirName is the canonical module source tree
	FrameworkModulesDirName = "modules"

	// TemplateMarker is the reserved basename prefix identifying templates
	TemplateMarker = "__"

	// FragmentInfix marks fragment files: <base>.fragment.<ext>
	FragmentInfix = ".fragment."

	// OverrideInfix marks override files: <base>.overrides.<ext>
	OverrideInfix = ".overrides."

	// ConfigFileName is the project-level confit settings file
	ConfigFileName = "confit.toml"

	// BackupsDirName is the snapshot directory under the state dir
	BackupsDirName = "backups"
)

// ScanRoots are the directories (relative to project root) fragment
// discovery walks, in addition to the project root itself.
var ScanRoots = []string{
	FrameworkDirName,
	"packages",
	"apps",
	"deploy",
}

// ExcludedDirNames are never descended into during discovery
var ExcludedDirNames = map[string]bool{
	".git":         true,
	"node_modules": true,
	"dist":         true,
	"build":        true,
	"vendor":       true,
	".cache":       true,
}

// confitPaths implements types.Pather
type confitPaths struct {
	projectRoot string
	stateDir    string
}

// New creates a Pather rooted at the given project directory. An empty
// root falls back to CONFIT_PROJECT_ROOT, then the working directory.
func New(projectRoot string) (types.Pather, error) {
	root := projectRoot
	if root == "" {
		root = os.Getenv(EnvProjectRoot)
	}
	if root == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrInvalidInput, "cannot determine project root")
		}
		root = wd
	}

	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrInvalidInput, "invalid project root %q", root)
	}

	stateDir := os.Getenv(EnvStateDir)
	if stateDir == "" {
		stateDir = filepath.Join(xdg.StateHome, "confit")
	}

	return &confitPaths{projectRoot: abs, stateDir: stateDir}, nil
}

func (p *confitPaths) ProjectRoot() string {
	return p.projectRoot
}

func (p *confitPaths) FrameworkDir() string {
	return filepath.Join(p.projectRoot, FrameworkDirName)
}

func (p *confitPaths) TemplatesRoot() string {
	return filepath.Join(p.FrameworkDir(), TemplatesDirName)
}

func (p *confitPaths) ModulesDir() string {
	return filepath.Join(p.projectRoot, ModulesDirName)
}

func (p *confitPaths) FrameworkModulesDir() string {
	return filepath.Join(p.FrameworkDir(), FrameworkModulesDirName)
}

func (p *confitPaths) StateDir() string {
	return p.stateDir
}

func (p *confitPaths) BackupsDir() string {
	return filepath.Join(p.stateDir, BackupsDirName)
}

// IsTemplateFile reports whether a basename carries the template marker
func IsTemplateFile(name string) bool {
	return strings.HasPrefix(name, TemplateMarker)
}

// IsFragmentFile reports whether a basename follows the fragment convention
func IsFragmentFile(name string) bool {
	return strings.Contains(name, FragmentInfix)
}

// IsOverrideFile reports whether a basename follows the override convention
func IsOverrideFile(name string) bool {
	return strings.Contains(name, OverrideInfix)
}

// StripTemplateMarker removes the reserved prefix from a template basename
func StripTemplateMarker(name string) string {
	return strings.TrimPrefix(name, TemplateMarker)
}

// StripOverrideInfix derives a target basename from an override basename:
// app.overrides.json -> app.json
func StripOverrideInfix(name string) string {
	return strings.Replace(name, OverrideInfix, ".", 1)
}

// ModuleNameFromPath extracts the owning module name for a path under the
// framework module tree, or "" when the path is outside it.
func ModuleNameFromPath(path, frameworkModulesDir string) string {
	rel, err := filepath.Rel(frameworkModulesDir, path)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return ""
	}
	parts := strings.Split(filepath.ToSlash(rel), "/")
	return parts[0]
}
