package validate

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arthur-debert/confit/pkg/filesystem"
	"github.com/arthur-debert/confit/pkg/merge"
	"github.com/arthur-debert/confit/pkg/paths"
	"github.com/arthur-debert/confit/pkg/vars"
)

const testRoot = "/project"

func newTestValidator(t *testing.T, files map[string]string, variables map[string]string) *Validator {
	t.Helper()
	memfs := afero.NewMemMapFs()
	for path, content := range files {
		require.NoError(t, afero.WriteFile(memfs, path, []byte(content), 0644))
	}
	pather, err := paths.New(testRoot)
	require.NoError(t, err)
	return New(
		filesystem.NewAferoFS(memfs),
		pather,
		vars.NewResolver(variables),
		merge.NewRegistry(),
	)
}

func findingsFor(report *Report, sev Severity) []Finding {
	var out []Finding
	for _, f := range report.Findings {
		if f.Severity == sev {
			out = append(out, f)
		}
	}
	return out
}

func TestRun_CleanProject(t *testing.T) {
	v := newTestValidator(t, map[string]string{
		testRoot + "/framework/templates/__app.json": `{"a": 1}`,
		testRoot + "/packages/api/app.fragment.json": `{"_targetPath": "app.json", "b": 2}`,
	}, nil)

	report, err := v.Run()
	require.NoError(t, err)
	assert.Zero(t, report.Errors())
	assert.Zero(t, report.Warnings())
	assert.False(t, report.Failed(true))
}

func TestRun_UnparseableTemplate(t *testing.T) {
	v := newTestValidator(t, map[string]string{
		testRoot + "/framework/templates/__bad.json": `{not json`,
	}, nil)

	report, err := v.Run()
	require.NoError(t, err)
	require.Equal(t, 1, report.Errors())
	assert.Contains(t, report.Findings[0].Message, "does not parse")
	assert.True(t, report.Failed(false))
}

func TestRun_TemplateVariablesWarn(t *testing.T) {
	v := newTestValidator(t, map[string]string{
		testRoot + "/framework/templates/__cfg.yaml": "host: {{UNDEFINED_HOST}}\n",
	}, nil)

	report, err := v.Run()
	require.NoError(t, err)
	assert.Zero(t, report.Errors())
	require.Equal(t, 1, report.Warnings())
	assert.Contains(t, report.Findings[0].Message, "UNDEFINED_HOST")

	// Warnings fail only under strict
	assert.False(t, report.Failed(false))
	assert.True(t, report.Failed(true))
}

func TestRun_FragmentMissingTargetPath(t *testing.T) {
	v := newTestValidator(t, map[string]string{
		testRoot + "/packages/api/x.fragment.json": `{"a": 1}`,
	}, nil)

	report, err := v.Run()
	require.NoError(t, err)
	require.Equal(t, 1, report.Errors())
	assert.Contains(t, report.Findings[0].Message, "_targetPath")
}

func TestRun_FragmentTargetPathVariableIsError(t *testing.T) {
	v := newTestValidator(t, map[string]string{
		testRoot + "/packages/api/x.fragment.json": `{"_targetPath": "{{NOPE}}/x.json", "a": 1}`,
	}, nil)

	report, err := v.Run()
	require.NoError(t, err)
	require.Equal(t, 1, report.Errors())
	assert.Contains(t, report.Findings[0].Message, "NOPE")
}

func TestRun_UnknownStrategy(t *testing.T) {
	v := newTestValidator(t, map[string]string{
		testRoot + "/packages/api/x.fragment.json": `{"_targetPath": "x.json", "_mergeStrategy": "bogus", "a": 1}`,
	}, nil)

	report, err := v.Run()
	require.NoError(t, err)
	require.Equal(t, 1, report.Errors())
	assert.Contains(t, report.Findings[0].Message, `"bogus"`)
}

func TestRun_UnknownModuleCondition(t *testing.T) {
	v := newTestValidator(t, map[string]string{
		testRoot + "/framework/modules/auth/.keep": "",
		testRoot + "/packages/api/x.fragment.json": `{"_targetPath": "x.json", "_conditions": {"activeModules": ["auth", "ghost"]}, "a": 1}`,
	}, nil)

	report, err := v.Run()
	require.NoError(t, err)
	warnings := findingsFor(report, SeverityWarn)
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0].Message, `"ghost"`)
}

func TestRun_UnparseableOverride(t *testing.T) {
	v := newTestValidator(t, map[string]string{
		testRoot + "/app/settings.overrides.json": `{broken`,
	}, nil)

	report, err := v.Run()
	require.NoError(t, err)
	require.Equal(t, 1, report.Errors())
	assert.Contains(t, report.Findings[0].Message, "override")
}

func TestRun_MissingTemplatesDirIsInfo(t *testing.T) {
	v := newTestValidator(t, map[string]string{
		testRoot + "/readme.txt": "hello",
	}, nil)

	report, err := v.Run()
	require.NoError(t, err)
	assert.Zero(t, report.Errors())
	assert.Zero(t, report.Warnings())
	infos := findingsFor(report, SeverityInfo)
	require.Len(t, infos, 1)
	assert.False(t, report.Failed(true))
}

func TestRun_StrategyValidationWarns(t *testing.T) {
	v := newTestValidator(t, map[string]string{
		// deep strategy expects object content; scalar payload trips Validate
		testRoot + "/packages/api/notes.fragment.txt": "_targetPath=notes.txt\n_mergeStrategy=deep\nplain text\n",
	}, nil)

	report, err := v.Run()
	require.NoError(t, err)
	assert.Zero(t, report.Errors())
	assert.GreaterOrEqual(t, report.Warnings(), 1)
}

func TestFinding_SortStableByPath(t *testing.T) {
	v := newTestValidator(t, map[string]string{
		testRoot + "/packages/b/x.fragment.json": `{"a": 1}`,
		testRoot + "/packages/a/y.fragment.json": `{"a": 1}`,
	}, nil)

	report, err := v.Run()
	require.NoError(t, err)
	require.Len(t, report.Findings, 2)
	assert.True(t, report.Findings[0].Path < report.Findings[1].Path)
}
