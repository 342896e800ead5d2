package engine

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arthur-debert/confit/pkg/config"
	"github.com/arthur-debert/confit/pkg/filesystem"
	"github.com/arthur-debert/confit/pkg/paths"
	"github.com/arthur-debert/confit/pkg/types"
)

func testSettings() *config.Settings {
	return &config.Settings{
		Env:       "development",
		MergeMode: "strict",
	}
}

func newTestEngine(t *testing.T, settings *config.Settings) (*Engine, string) {
	t.Helper()
	root := t.TempDir()
	pather, err := paths.New(root)
	require.NoError(t, err)
	return New(filesystem.NewOS(), pather, settings), root
}

func writeFile(t *testing.T, root string, rel string, content string) string {
	t.Helper()
	path := filepath.Join(root, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestGroups_OrderedByPriorityThenSeq(t *testing.T) {
	e, _ := newTestEngine(t, testSettings())

	sources := []types.Source{
		{Target: "/p/a.json", Priority: types.PriorityOverride, Seq: 0},
		{Target: "/p/b.json", Priority: types.PriorityTemplate, Seq: 1},
		{Target: "/p/a.json", Priority: types.PriorityTemplate, Seq: 2},
		{Target: "/p/a.json", Priority: types.PriorityFragment, Seq: 3},
	}

	groups := e.Groups(sources)
	require.Len(t, groups, 2)

	// Targets sorted, sources ordered template < fragment < override
	assert.Equal(t, "/p/a.json", groups[0].Target)
	assert.Equal(t, "/p/b.json", groups[1].Target)
	prios := []int{}
	for _, s := range groups[0].Sources {
		prios = append(prios, s.Priority)
	}
	assert.Equal(t, []int{types.PriorityTemplate, types.PriorityFragment, types.PriorityOverride}, prios)
}

func TestPlan_SingleTemplateLinks(t *testing.T) {
	e, root := newTestEngine(t, testSettings())
	src := writeFile(t, root, "framework/templates/__app.yaml", "name: demo\n")

	actions, err := e.Plan()
	require.NoError(t, err)
	require.Len(t, actions, 1)

	assert.Equal(t, types.ActionLink, actions[0].Kind)
	assert.Equal(t, filepath.Join(root, "app.yaml"), actions[0].Target)
	assert.Equal(t, src, actions[0].Source)
}

func TestPlan_MergedGroupWrites(t *testing.T) {
	e, root := newTestEngine(t, testSettings())
	writeFile(t, root, "framework/templates/app/__settings.json",
		`{"name": "demo", "port": 1, "debug": false}`)
	writeFile(t, root, "app/settings.overrides.json",
		`{"port": 8080}`)

	actions, err := e.Plan()
	require.NoError(t, err)
	require.Len(t, actions, 1)

	action := actions[0]
	assert.Equal(t, types.ActionWrite, action.Kind)
	assert.Equal(t, filepath.Join(root, "app", "settings.json"), action.Target)
	assert.Equal(t, "deep", action.Strategy)
	assert.Len(t, action.SourcePaths, 2)
	assert.JSONEq(t, `{"name": "demo", "port": 8080, "debug": false}`, action.Content)
}

func TestPlan_FragmentJoinsTemplate(t *testing.T) {
	e, root := newTestEngine(t, testSettings())
	writeFile(t, root, "framework/templates/__conf.json", `{"a": 1}`)
	writeFile(t, root, "packages/api/conf.fragment.json",
		`{"_targetPath": "conf.json", "b": 2}`)

	actions, err := e.Plan()
	require.NoError(t, err)
	require.Len(t, actions, 1)
	assert.Equal(t, types.ActionWrite, actions[0].Kind)
	assert.JSONEq(t, `{"a": 1, "b": 2}`, actions[0].Content)
}

func TestPlan_ExplicitStrategyWins(t *testing.T) {
	e, root := newTestEngine(t, testSettings())
	writeFile(t, root, "framework/templates/__notes.json", `{"a": 1}`)
	writeFile(t, root, "packages/x/notes.fragment.json",
		`{"_targetPath": "notes.json", "_mergeStrategy": "replace", "b": 2}`)

	actions, err := e.Plan()
	require.NoError(t, err)
	require.Len(t, actions, 1)
	assert.Equal(t, "replace", actions[0].Strategy)
	assert.JSONEq(t, `{"b": 2}`, actions[0].Content)
}

func TestPlan_Filters(t *testing.T) {
	settings := testSettings()
	settings.Filters = []string{"app/*"}
	e, root := newTestEngine(t, settings)
	writeFile(t, root, "framework/templates/app/__a.yaml", "a: 1\n")
	writeFile(t, root, "framework/templates/other/__b.yaml", "b: 1\n")

	actions, err := e.Plan()
	require.NoError(t, err)
	require.Len(t, actions, 1)
	assert.Equal(t, filepath.Join(root, "app", "a.yaml"), actions[0].Target)
}

func TestApply_DryRunTouchesNothing(t *testing.T) {
	e, root := newTestEngine(t, testSettings())
	writeFile(t, root, "framework/templates/__app.yaml", "name: demo\n")

	result, err := e.Apply(true)
	require.NoError(t, err)
	assert.True(t, result.DryRun)
	assert.Len(t, result.Actions, 1)
	assert.Zero(t, result.Applied)

	_, err = os.Lstat(filepath.Join(root, "app.yaml"))
	assert.True(t, os.IsNotExist(err))
}

func TestApply_LinkAndWrite(t *testing.T) {
	e, root := newTestEngine(t, testSettings())
	writeFile(t, root, "framework/templates/__solo.yaml", "solo: true\n")
	writeFile(t, root, "framework/templates/__merged.json", `{"a": 1}`)
	writeFile(t, root, "merged.overrides.json", `{"b": 2}`)

	result, err := e.Apply(false)
	require.NoError(t, err)
	require.Empty(t, result.Errors)
	assert.Equal(t, 2, result.Applied)

	// Single source became a relative symlink
	linkInfo, err := os.Lstat(filepath.Join(root, "solo.yaml"))
	require.NoError(t, err)
	assert.NotZero(t, linkInfo.Mode()&os.ModeSymlink)
	dest, err := os.Readlink(filepath.Join(root, "solo.yaml"))
	require.NoError(t, err)
	assert.False(t, filepath.IsAbs(dest))

	// Merged group became a real file
	data, err := os.ReadFile(filepath.Join(root, "merged.json"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"a": 1, "b": 2}`, string(data))
}

func TestApply_ReplacesStaleSymlinkWithoutFollowing(t *testing.T) {
	e, root := newTestEngine(t, testSettings())
	template := writeFile(t, root, "framework/templates/__conf.json", `{"a": 1}`)
	writeFile(t, root, "conf.overrides.json", `{"b": 2}`)

	// Simulate a previous single-source run that linked the target straight
	// at the template.
	require.NoError(t, os.Symlink(template, filepath.Join(root, "conf.json")))

	result, err := e.Apply(false)
	require.NoError(t, err)
	require.Empty(t, result.Errors)

	// The template file must be untouched and the target a regular file now
	data, err := os.ReadFile(template)
	require.NoError(t, err)
	assert.JSONEq(t, `{"a": 1}`, string(data))

	info, err := os.Lstat(filepath.Join(root, "conf.json"))
	require.NoError(t, err)
	assert.Zero(t, info.Mode()&os.ModeSymlink)
}

func TestApply_CopyRequested(t *testing.T) {
	e, root := newTestEngine(t, testSettings())
	writeFile(t, root, "packages/api/env.fragment.json",
		`{"_targetPath": "generated/env.json", "_copy": true, "key": "value"}`)

	result, err := e.Apply(false)
	require.NoError(t, err)
	require.Empty(t, result.Errors)

	info, err := os.Lstat(filepath.Join(root, "generated", "env.json"))
	require.NoError(t, err)
	assert.Zero(t, info.Mode()&os.ModeSymlink, "copy must not produce a symlink")
}

func TestRender_HeaderOnCommentableFormats(t *testing.T) {
	settings := testSettings()
	settings.Header = true
	e, root := newTestEngine(t, settings)

	out, err := e.render(filepath.Join(root, "x.yaml"), types.FormatYAML,
		map[string]interface{}{"a": 1},
		[]string{filepath.Join(root, "framework", "templates", "__x.yaml")})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "# Generated by confit."))
	assert.Contains(t, out, filepath.Join("framework", "templates", "__x.yaml"))
	assert.Contains(t, out, "a: 1")
}

func TestRender_NoHeaderForStrictJSON(t *testing.T) {
	settings := testSettings()
	settings.Header = true
	e, root := newTestEngine(t, settings)

	out, err := e.render(filepath.Join(root, "x.json"), types.FormatJSON,
		map[string]interface{}{"a": 1}, []string{"src"})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "{"))
}

func TestRender_HeaderDisabled(t *testing.T) {
	e, root := newTestEngine(t, testSettings())

	out, err := e.render(filepath.Join(root, "x.yaml"), types.FormatYAML,
		map[string]interface{}{"a": 1}, []string{"src"})
	require.NoError(t, err)
	assert.Equal(t, "a: 1\n", out)
}
