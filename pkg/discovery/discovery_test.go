package discovery

import (
	"testing"

	"github.com/arthur-debert/confit/pkg/errors"
	"github.com/arthur-debert/confit/pkg/filesystem"
	"github.com/arthur-debert/confit/pkg/paths"
	"github.com/arthur-debert/confit/pkg/types"
	"github.com/arthur-debert/confit/pkg/vars"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testRoot = "/project"

func newTestDiscovery(t *testing.T, variables map[string]string, files map[string]string) *Discovery {
	t.Helper()

	memfs := afero.NewMemMapFs()
	for path, body := range files {
		require.NoError(t, afero.WriteFile(memfs, path, []byte(body), 0644))
	}

	pather, err := paths.New(testRoot)
	require.NoError(t, err)

	return New(filesystem.NewAferoFS(memfs), pather, vars.NewResolver(variables))
}

func TestTemplates_Discovery(t *testing.T) {
	d := newTestDiscovery(t, map[string]string{"PROJECT_NAME": "demo"}, map[string]string{
		"/project/framework/templates/__package.json":        `{"name": "{{PROJECT_NAME}}"}`,
		"/project/framework/templates/.vscode/__tasks.json":  `{"version": "2.0.0"}`,
		"/project/framework/templates/not-a-template.json":   `{}`,
		"/project/framework/templates/__{{MISSING_VAR}}.env": `A=1`,
	})

	sources, err := d.Templates()
	require.NoError(t, err)
	require.Len(t, sources, 2)

	byTarget := make(map[string]types.Source)
	for _, s := range sources {
		byTarget[s.Target] = s
	}

	pkg, ok := byTarget["/project/package.json"]
	require.True(t, ok, "template marker stripped and variables resolved in path")
	assert.Equal(t, types.KindTemplate, pkg.Kind)
	assert.Equal(t, types.PriorityTemplate, pkg.Priority)
	assert.Equal(t, types.FormatJSON, pkg.Format)
	content, ok := pkg.Content.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "demo", content["name"], "body variables resolved before parse")

	_, ok = byTarget["/project/.vscode/tasks.json"]
	assert.True(t, ok, "nested templates keep their relative directory")
}

func TestTemplates_MissingRootIsZeroTemplates(t *testing.T) {
	d := newTestDiscovery(t, nil, map[string]string{
		"/project/readme.txt": "x",
	})

	sources, err := d.Templates()
	require.NoError(t, err)
	assert.Empty(t, sources)
}

func TestTemplates_UnparseableBodySkipped(t *testing.T) {
	d := newTestDiscovery(t, nil, map[string]string{
		"/project/framework/templates/__bad.json":  `{"broken": `,
		"/project/framework/templates/__good.json": `{"ok": true}`,
	})

	sources, err := d.Templates()
	require.NoError(t, err)
	require.Len(t, sources, 1)
	assert.Equal(t, "/project/good.json", sources[0].Target)
}

func TestFragments_Structured(t *testing.T) {
	d := newTestDiscovery(t, nil, map[string]string{
		"/project/packages/api/tsconfig.fragment.json": `{
			"_targetPath": "tsconfig.json",
			"_priority": 150,
			"_mergeStrategy": "tsconfig",
			"compilerOptions": {"strict": true}
		}`,
	})

	sources, err := d.Fragments()
	require.NoError(t, err)
	require.Len(t, sources, 1)

	src := sources[0]
	assert.Equal(t, types.KindFragment, src.Kind)
	assert.Equal(t, "/project/tsconfig.json", src.Target)
	assert.Equal(t, 150, src.Priority)
	assert.Equal(t, "tsconfig", src.Meta.Strategy)

	content, ok := src.Content.(map[string]interface{})
	require.True(t, ok)
	assert.NotContains(t, content, "_targetPath", "reserved keys stripped from content")
	assert.NotContains(t, content, "_priority")
	assert.Contains(t, content, "compilerOptions")
}

func TestFragments_MultipleTargetPaths(t *testing.T) {
	d := newTestDiscovery(t, nil, map[string]string{
		"/project/deploy/ignore.fragment.txt": "_targetPath=.gitignore,.dockerignore\nnode_modules/\n",
	})

	sources, err := d.Fragments()
	require.NoError(t, err)
	require.Len(t, sources, 2)

	targets := []string{sources[0].Target, sources[1].Target}
	assert.Contains(t, targets, "/project/.gitignore")
	assert.Contains(t, targets, "/project/.dockerignore")
	assert.Equal(t, "node_modules/\n", sources[0].Raw, "metadata lines stripped from body")
}

func TestFragments_TextConditions(t *testing.T) {
	d := newTestDiscovery(t, nil, map[string]string{
		"/project/apps/web/env.fragment.env": "_targetPath=.env\n_conditions.env=production\n_conditions.activeModules=lint,ci\nA=1\n",
	})

	sources, err := d.Fragments()
	require.NoError(t, err)
	require.Len(t, sources, 1)

	cond := sources[0].Meta.Conditions
	require.NotNil(t, cond)
	assert.Equal(t, "production", cond.Env)
	assert.Equal(t, []string{"lint", "ci"}, cond.ActiveModules)
	assert.Equal(t, "A=1\n", sources[0].Raw)
}

func TestFragments_MissingTargetPathSkipped(t *testing.T) {
	d := newTestDiscovery(t, nil, map[string]string{
		"/project/packages/api/bad.fragment.json":  `{"compilerOptions": {}}`,
		"/project/packages/api/good.fragment.json": `{"_targetPath": "tsconfig.json", "a": 1}`,
	})

	sources, err := d.Fragments()
	require.NoError(t, err)
	require.Len(t, sources, 1)
	assert.Equal(t, "/project/tsconfig.json", sources[0].Target)
}

func TestFragments_UnresolvableTargetPathIsHardError(t *testing.T) {
	d := newTestDiscovery(t, nil, map[string]string{
		"/project/packages/api/cfg.fragment.json": `{"_targetPath": "{{NO_SUCH_CONFIT_VAR}}/cfg.json", "a": 1}`,
	})

	_, err := d.Fragments()
	require.Error(t, err)
	assert.Equal(t, errors.ErrVariableResolve, errors.CodeOf(err))
}

func TestFragments_ProjectRootAndExclusions(t *testing.T) {
	d := newTestDiscovery(t, nil, map[string]string{
		"/project/root.fragment.json":                          `{"_targetPath": "root.json", "a": 1}`,
		"/project/packages/api/node_modules/x.fragment.json":   `{"_targetPath": "no.json", "a": 1}`,
		"/project/framework/templates/__tpl.fragment.json":     `{"_targetPath": "no.json", "a": 1}`,
		"/project/framework/modules/lint/rc.fragment.json":     `{"_targetPath": ".lintrc.json", "a": 1}`,
	})

	sources, err := d.Fragments()
	require.NoError(t, err)

	targets := make([]string, 0, len(sources))
	for _, s := range sources {
		targets = append(targets, s.Target)
	}
	assert.Contains(t, targets, "/project/root.json")
	assert.Contains(t, targets, "/project/.lintrc.json")
	assert.NotContains(t, targets, "/project/no.json", "node_modules and templates root excluded")
}

func TestOverrides_Discovery(t *testing.T) {
	d := newTestDiscovery(t, nil, map[string]string{
		"/project/tsconfig.overrides.json":              `{"compilerOptions": {"strict": false}}`,
		"/project/packages/api/app.overrides.yaml":      "replicas: 3\n",
		"/project/framework/x.overrides.json":           `{"never": true}`,
	})

	sources, err := d.Overrides()
	require.NoError(t, err)
	require.Len(t, sources, 2)

	byTarget := make(map[string]types.Source)
	for _, s := range sources {
		byTarget[s.Target] = s
	}

	ts, ok := byTarget["/project/tsconfig.json"]
	require.True(t, ok, ".overrides infix removed to derive target")
	assert.Equal(t, types.KindOverride, ts.Kind)
	assert.Equal(t, types.PriorityOverride, ts.Priority)

	_, ok = byTarget["/project/packages/api/app.yaml"]
	assert.True(t, ok)

	_, ok = byTarget["/project/framework/x.json"]
	assert.False(t, ok, "framework tree excluded from override scan")
}

func TestExtractTextMeta_StopsAtFirstContentLine(t *testing.T) {
	meta, body, err := ExtractTextMeta("_targetPath=.npmrc\nregistry=https://example.test\n_priority=5\n")
	require.NoError(t, err)
	assert.Equal(t, []string{".npmrc"}, meta.TargetPaths)
	assert.Equal(t, "registry=https://example.test\n_priority=5\n", body)
	assert.Nil(t, meta.Priority, "metadata lines after content are body text")
}

func TestExtractStructuredMeta_Flags(t *testing.T) {
	meta, content, err := ExtractStructuredMeta(map[string]interface{}{
		"_targetPath": []interface{}{"a.json", "b.json"},
		"_copy":       true,
		"_activeOnly": false,
		"keep":        "me",
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"a.json", "b.json"}, meta.TargetPaths)
	assert.True(t, meta.Copy)
	assert.False(t, meta.IsActiveOnly())
	assert.Equal(t, map[string]interface{}{"keep": "me"}, content)
}
