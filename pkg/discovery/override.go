package discovery

import (
	"path/filepath"

	"github.com/arthur-debert/confit/pkg/codec"
	"github.com/arthur-debert/confit/pkg/errors"
	"github.com/arthur-debert/confit/pkg/logging"
	"github.com/arthur-debert/confit/pkg/paths"
	"github.com/arthur-debert/confit/pkg/types"
)

// Overrides discovers *.overrides.* files under the project root,
// excluding the framework tree. Overrides carry no metadata and always
// receive the highest priority; their target is the file's own path with
// the .overrides infix removed.
func (d *Discovery) Overrides() ([]types.Source, error) {
	logger := logging.GetLogger("discovery.overrides")

	var candidates []string
	err := d.walkExcludingFramework(d.paths.ProjectRoot(), func(path string) {
		if paths.IsOverrideFile(filepath.Base(path)) {
			candidates = append(candidates, path)
		}
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrFileAccess, "cannot scan for overrides")
	}

	var sources []types.Source
	for _, path := range candidates {
		if src, ok := d.loadOverride(path); ok {
			sources = append(sources, src)
		}
	}

	logger.Debug().Int("count", len(sources)).Msg("overrides discovered")
	return sources, nil
}

func (d *Discovery) walkExcludingFramework(dir string, fn func(path string)) error {
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
			if filepath.Clean(path) == filepath.Clean(d.paths.FrameworkDir()) {
				continue
			}
			if err := d.walkExcludingFramework(path, fn); err != nil {
				return err
			}
			continue
		}
		fn(path)
	}
	return nil
}

func (d *Discovery) loadOverride(path string) (types.Source, bool) {
	logger := logging.GetLogger("discovery.overrides")

	target := filepath.Join(
		filepath.Dir(path),
		paths.StripOverrideInfix(filepath.Base(path)),
	)

	data, err := d.fs.ReadFile(path)
	if err != nil {
		logger.Warn().Err(err).Str("override", path).Msg("cannot read override, skipping")
		return types.Source{}, false
	}

	format := codec.FormatFor(target)
	content, err := codec.Parse(target, data)
	if err != nil {
		logger.Warn().Err(err).Str("override", path).Msg("override parse failed, skipping")
		return types.Source{}, false
	}

	return types.Source{
		Kind:     types.KindOverride,
		Location: path,
		Target:   target,
		Format:   format,
		Content:  content,
		Raw:      string(data),
		Priority: types.PriorityOverride,
	}, true
}
