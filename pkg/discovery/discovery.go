// Package discovery scans the project for the three source layers:
// templates under the framework templates root, *.fragment.* contributions
// across the scan roots, and *.overrides.* files at the project level.
// Each discoverer emits uniform types.Source records; parse and metadata
// problems skip the offending file and discovery continues.
package discovery

import (
	"path/filepath"

	"github.com/arthur-debert/confit/pkg/paths"
	"github.com/arthur-debert/confit/pkg/types"
	"github.com/arthur-debert/confit/pkg/vars"
)

// Discovery scans one project for configuration sources
type Discovery struct {
	fs       types.FS
	paths    types.Pather
	resolver *vars.Resolver
}

// New creates a Discovery over the given filesystem and project layout
func New(filesys types.FS, pather types.Pather, resolver *vars.Resolver) *Discovery {
	return &Discovery{fs: filesys, paths: pather, resolver: resolver}
}

// walk descends dir recursively, calling fn for every regular file.
// Excluded directory names and the templates root are never entered.
func (d *Discovery) walk(dir string, fn func(path string) error) error {
	entries, err := d.fs.ReadDir(dir)
	if err != nil {
		return err
	}

	for _, entry := range entries {
		path := filepath.Join(dir, entry.Name())
		if entry.IsDir() {
			if paths.ExcludedDirNames[entry.Name()] {
				continue
			}
			if filepath.Clean(path) == filepath.Clean(d.paths.TemplatesRoot()) {
				continue
			}
			if err := d.walk(path, fn); err != nil {
				return err
			}
			continue
		}
		if err := fn(path); err != nil {
			return err
		}
	}
	return nil
}

// listFiles returns dir's regular files without descending
func (d *Discovery) listFiles(dir string) ([]string, error) {
	entries, err := d.fs.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, entry := range entries {
		if !entry.IsDir() {
			files = append(files, filepath.Join(dir, entry.Name()))
		}
	}
	return files, nil
}

// resolveTarget turns a logical target path into an absolute path under
// the project root. Absolute inputs are kept as-is.
func (d *Discovery) resolveTarget(target string) string {
	if filepath.IsAbs(target) {
		return filepath.Clean(target)
	}
	return filepath.Join(d.paths.ProjectRoot(), target)
}
