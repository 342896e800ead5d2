package discovery

import (
	goerrors "errors"
	"io/fs"
	"path/filepath"

	"github.com/arthur-debert/confit/pkg/codec"
	"github.com/arthur-debert/confit/pkg/logging"
	"github.com/arthur-debert/confit/pkg/paths"
	"github.com/arthur-debert/confit/pkg/types"
	"github.com/arthur-debert/confit/pkg/vars"
)

// Templates discovers master templates: files under the templates root
// whose basename carries the reserved marker prefix. Variables are
// resolved in the relative path first, then in the body; either failing
// skips the template with a warning, since a later fragment or override
// may supply the missing value on a future run.
func (d *Discovery) Templates() ([]types.Source, error) {
	logger := logging.GetLogger("discovery.templates")
	root := d.paths.TemplatesRoot()

	if _, err := d.fs.Stat(root); err != nil {
		if goerrors.Is(err, fs.ErrNotExist) {
			logger.Warn().Str("dir", root).Msg("templates directory missing, zero templates found")
			return nil, nil
		}
		return nil, err
	}

	var sources []types.Source
	err := d.walkTemplates(root, func(path string) {
		if src, ok := d.loadTemplate(root, path); ok {
			sources = append(sources, src)
		}
	})
	if err != nil {
		return nil, err
	}

	logger.Debug().Int("count", len(sources)).Msg("templates discovered")
	return sources, nil
}

// walkTemplates descends the templates root without the fragment-walk
// exclusion of the templates root itself
func (d *Discovery) walkTemplates(dir string, fn func(path string)) error {
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
			if err := d.walkTemplates(path, fn); err != nil {
				return err
			}
			continue
		}
		if paths.IsTemplateFile(entry.Name()) {
			fn(path)
		}
	}
	return nil
}

func (d *Discovery) loadTemplate(root, path string) (types.Source, bool) {
	logger := logging.GetLogger("discovery.templates")

	rel, err := filepath.Rel(root, path)
	if err != nil {
		logger.Warn().Err(err).Str("path", path).Msg("cannot relativize template path")
		return types.Source{}, false
	}

	// Path variables first: an unresolvable path means we cannot even name
	// the target, so the template is skipped rather than failing the run.
	resolvedRel, err := d.resolver.Resolve(rel)
	if err != nil {
		var missing *vars.MissingVariablesError
		if goerrors.As(err, &missing) {
			logger.Warn().
				Str("template", path).
				Strs("missing", missing.Names).
				Msg("template path has unresolved variables, skipping")
			return types.Source{}, false
		}
		logger.Warn().Err(err).Str("template", path).Msg("template path resolution failed, skipping")
		return types.Source{}, false
	}

	targetRel := filepath.Join(
		filepath.Dir(resolvedRel),
		paths.StripTemplateMarker(filepath.Base(resolvedRel)),
	)
	target := filepath.Join(d.paths.ProjectRoot(), targetRel)

	data, err := d.fs.ReadFile(path)
	if err != nil {
		logger.Warn().Err(err).Str("template", path).Msg("cannot read template, skipping")
		return types.Source{}, false
	}

	body, err := d.resolver.Resolve(string(data))
	if err != nil {
		var missing *vars.MissingVariablesError
		if goerrors.As(err, &missing) {
			logger.Warn().
				Str("template", path).
				Strs("missing", missing.Names).
				Msg("template body has unresolved variables, skipping")
			return types.Source{}, false
		}
		logger.Warn().Err(err).Str("template", path).Msg("template body resolution failed, skipping")
		return types.Source{}, false
	}

	format := codec.FormatFor(target)
	content, err := codec.Parse(target, []byte(body))
	if err != nil {
		logger.Warn().Err(err).Str("template", path).Msg("template parse failed, skipping")
		return types.Source{}, false
	}

	return types.Source{
		Kind:     types.KindTemplate,
		Location: path,
		Target:   target,
		Format:   format,
		Content:  content,
		Raw:      body,
		Priority: types.PriorityTemplate,
	}, true
}
