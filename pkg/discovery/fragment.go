package discovery

import (
	goerrors "errors"
	"io/fs"
	"path/filepath"

	"github.com/arthur-debert/confit/pkg/codec"
	"github.com/arthur-debert/confit/pkg/errors"
	"github.com/arthur-debert/confit/pkg/logging"
	"github.com/arthur-debert/confit/pkg/paths"
	"github.com/arthur-debert/confit/pkg/types"
	"github.com/arthur-debert/confit/pkg/vars"
)

// Fragments discovers *.fragment.* contributions under the scan roots and
// the project root itself. A fragment produces one Source per declared
// target path. Parse and metadata defects skip the fragment; an
// unresolvable variable in a target path is a hard error, because a
// silently dropped fragment would change the merged artifact without any
// signal.
func (d *Discovery) Fragments() ([]types.Source, error) {
	logger := logging.GetLogger("discovery.fragments")

	var candidates []string
	for _, rootName := range paths.ScanRoots {
		root := filepath.Join(d.paths.ProjectRoot(), rootName)
		if _, err := d.fs.Stat(root); err != nil {
			continue
		}
		err := d.walk(root, func(path string) error {
			if paths.IsFragmentFile(filepath.Base(path)) {
				candidates = append(candidates, path)
			}
			return nil
		})
		if err != nil && !goerrors.Is(err, fs.ErrNotExist) {
			return nil, errors.Wrapf(err, errors.ErrFileAccess, "cannot scan %s", root)
		}
	}

	// Fragments directly at the project root, without descending into the
	// scan roots a second time
	rootFiles, err := d.listFiles(d.paths.ProjectRoot())
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrFileAccess, "cannot scan project root")
	}
	for _, path := range rootFiles {
		if paths.IsFragmentFile(filepath.Base(path)) {
			candidates = append(candidates, path)
		}
	}

	var sources []types.Source
	for _, path := range candidates {
		srcs, err := d.loadFragment(path)
		if err != nil {
			return nil, err
		}
		sources = append(sources, srcs...)
	}

	logger.Debug().
		Int("files", len(candidates)).
		Int("sources", len(sources)).
		Msg("fragments discovered")
	return sources, nil
}

// loadFragment parses one fragment file into sources, one per target path.
// The returned error is non-nil only for hard failures (unresolvable
// target path); recoverable defects are logged and produce zero sources.
func (d *Discovery) loadFragment(path string) ([]types.Source, error) {
	logger := logging.GetLogger("discovery.fragments")

	data, err := d.fs.ReadFile(path)
	if err != nil {
		logger.Warn().Err(err).Str("fragment", path).Msg("cannot read fragment, skipping")
		return nil, nil
	}

	format := codec.FormatFor(path)

	var meta *types.FragmentMeta
	var content interface{}
	var raw string

	if format.Structured() {
		parsed, err := codec.Parse(path, data)
		if err != nil {
			logger.Warn().Err(err).Str("fragment", path).Msg("fragment parse failed, skipping")
			return nil, nil
		}
		obj, ok := parsed.(map[string]interface{})
		if !ok {
			logger.Warn().Str("fragment", path).Msg("fragment root must be an object, skipping")
			return nil, nil
		}
		meta, content, err = ExtractStructuredMeta(obj)
		if err != nil {
			logger.Warn().Err(err).Str("fragment", path).Msg("fragment metadata invalid, skipping")
			return nil, nil
		}
	} else {
		meta, raw, err = ExtractTextMeta(string(data))
		if err != nil {
			logger.Warn().Err(err).Str("fragment", path).Msg("fragment metadata invalid, skipping")
			return nil, nil
		}
	}

	if len(meta.TargetPaths) == 0 {
		logger.Warn().Str("fragment", path).Msg("fragment missing _targetPath, skipping")
		return nil, nil
	}

	priority := meta.EffectivePriority()
	sources := make([]types.Source, 0, len(meta.TargetPaths))
	for _, targetPath := range meta.TargetPaths {
		resolved, err := d.resolver.Resolve(targetPath)
		if err != nil {
			var missing *vars.MissingVariablesError
			if goerrors.As(err, &missing) {
				return nil, errors.Newf(errors.ErrVariableResolve,
					"fragment %s target path %q references undefined variables: %v",
					path, targetPath, missing.Names)
			}
			return nil, errors.Wrapf(err, errors.ErrVariableResolve,
				"fragment %s target path %q", path, targetPath)
		}

		target := d.resolveTarget(resolved)
		sources = append(sources, types.Source{
			Kind:     types.KindFragment,
			Location: path,
			Target:   target,
			Format:   format,
			Content:  content,
			Raw:      raw,
			Priority: priority,
			Meta:     meta,
		})
	}
	return sources, nil
}
