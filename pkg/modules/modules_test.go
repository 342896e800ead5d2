package modules

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/arthur-debert/confit/pkg/filesystem"
	"github.com/arthur-debert/confit/pkg/paths"
	"github.com/arthur-debert/confit/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupProject creates a project layout with the given modules available in
// the framework tree and the listed ones activated via symlink.
func setupProject(t *testing.T, available []string, activated []string) (types.Pather, types.FS) {
	t.Helper()
	root := t.TempDir()

	pather, err := paths.New(root)
	require.NoError(t, err)

	for _, name := range available {
		require.NoError(t, os.MkdirAll(filepath.Join(pather.FrameworkModulesDir(), name), 0755))
	}
	require.NoError(t, os.MkdirAll(pather.ModulesDir(), 0755))
	for _, name := range activated {
		require.NoError(t, os.Symlink(
			filepath.Join(pather.FrameworkModulesDir(), name),
			filepath.Join(pather.ModulesDir(), name),
		))
	}

	return pather, filesystem.NewOS()
}

func TestIsModuleActive(t *testing.T) {
	pather, fs := setupProject(t, []string{"lint", "ci"}, []string{"lint"})
	r := NewResolver(fs, pather, "", NewCache())

	assert.True(t, r.IsModuleActive("lint"))
	assert.False(t, r.IsModuleActive("ci"))
	assert.False(t, r.IsModuleActive("ghost"))
}

func TestIsModuleActive_RegularDirIsNotActive(t *testing.T) {
	pather, fs := setupProject(t, []string{"lint"}, nil)
	require.NoError(t, os.MkdirAll(filepath.Join(pather.ModulesDir(), "lint"), 0755))

	r := NewResolver(fs, pather, "", NewCache())
	assert.False(t, r.IsModuleActive("lint"))
}

func TestIsModuleActive_SymlinkToWrongTarget(t *testing.T) {
	pather, fs := setupProject(t, []string{"lint", "ci"}, nil)
	// Symlink named lint pointing at ci's canonical dir
	require.NoError(t, os.Symlink(
		filepath.Join(pather.FrameworkModulesDir(), "ci"),
		filepath.Join(pather.ModulesDir(), "lint"),
	))

	r := NewResolver(fs, pather, "", NewCache())
	assert.False(t, r.IsModuleActive("lint"))
}

func TestIsModuleActive_RelativeSymlink(t *testing.T) {
	pather, fs := setupProject(t, []string{"lint"}, nil)
	rel, err := filepath.Rel(pather.ModulesDir(), filepath.Join(pather.FrameworkModulesDir(), "lint"))
	require.NoError(t, err)
	require.NoError(t, os.Symlink(rel, filepath.Join(pather.ModulesDir(), "lint")))

	r := NewResolver(fs, pather, "", NewCache())
	assert.True(t, r.IsModuleActive("lint"))
}

func TestActiveModules_CachedUntilInvalidated(t *testing.T) {
	pather, fs := setupProject(t, []string{"lint", "ci"}, []string{"lint"})
	cache := NewCache()
	r := NewResolver(fs, pather, "", cache)

	active := r.ActiveModules()
	assert.Equal(t, map[string]bool{"lint": true}, active)

	// Activate ci after the first computation: cache still serves the old set
	require.NoError(t, os.Symlink(
		filepath.Join(pather.FrameworkModulesDir(), "ci"),
		filepath.Join(pather.ModulesDir(), "ci"),
	))
	assert.Equal(t, map[string]bool{"lint": true}, r.ActiveModules())

	cache.Invalidate()
	assert.Equal(t, map[string]bool{"lint": true, "ci": true}, r.ActiveModules())
}

func TestActiveModules_NoModulesDir(t *testing.T) {
	root := t.TempDir()
	pather, err := paths.New(root)
	require.NoError(t, err)

	r := NewResolver(filesystem.NewOS(), pather, "", NewCache())
	assert.Empty(t, r.ActiveModules())
}

func boolPtr(b bool) *bool { return &b }

func TestFilterFragments(t *testing.T) {
	pather, fs := setupProject(t, []string{"lint", "ci"}, []string{"lint"})
	r := NewResolver(fs, pather, "", NewCache())

	fragment := func(location string, meta *types.FragmentMeta) types.Source {
		if meta == nil {
			meta = &types.FragmentMeta{TargetPaths: []string{"x"}}
		}
		return types.Source{Kind: types.KindFragment, Location: location, Meta: meta}
	}

	inLint := fragment(filepath.Join(pather.FrameworkModulesDir(), "lint", "a.fragment.json"), nil)
	inCI := fragment(filepath.Join(pather.FrameworkModulesDir(), "ci", "b.fragment.json"), nil)
	inCIAlways := fragment(
		filepath.Join(pather.FrameworkModulesDir(), "ci", "c.fragment.json"),
		&types.FragmentMeta{TargetPaths: []string{"x"}, ActiveOnly: boolPtr(false)},
	)
	outside := fragment(filepath.Join(pather.ProjectRoot(), "packages", "api", "d.fragment.json"), nil)

	kept := r.FilterFragments([]types.Source{inLint, inCI, inCIAlways, outside})

	locations := make([]string, 0, len(kept))
	for _, s := range kept {
		locations = append(locations, s.Location)
	}
	assert.Contains(t, locations, inLint.Location)
	assert.NotContains(t, locations, inCI.Location)
	assert.Contains(t, locations, inCIAlways.Location)
	assert.Contains(t, locations, outside.Location)
}

func TestCheckConditions(t *testing.T) {
	pather, fs := setupProject(t, []string{"lint"}, []string{"lint"})
	r := NewResolver(fs, pather, "development", NewCache()).WithPlatform("linux")

	tests := []struct {
		name     string
		meta     *types.FragmentMeta
		expected bool
	}{
		{"nil meta", nil, true},
		{"no conditions", &types.FragmentMeta{}, true},
		{
			"active module required and active",
			&types.FragmentMeta{Conditions: &types.Conditions{ActiveModules: []string{"lint"}}},
			true,
		},
		{
			"active module required and inactive",
			&types.FragmentMeta{Conditions: &types.Conditions{ActiveModules: []string{"ci"}}},
			false,
		},
		{
			"env matches",
			&types.FragmentMeta{Conditions: &types.Conditions{Env: "development"}},
			true,
		},
		{
			"env mismatch",
			&types.FragmentMeta{Conditions: &types.Conditions{Env: "production"}},
			false,
		},
		{
			"platform matches",
			&types.FragmentMeta{Conditions: &types.Conditions{Platform: "linux"}},
			true,
		},
		{
			"platform mismatch",
			&types.FragmentMeta{Conditions: &types.Conditions{Platform: "windows"}},
			false,
		},
		{
			"conjunctive failure",
			&types.FragmentMeta{Conditions: &types.Conditions{
				ActiveModules: []string{"lint"},
				Env:           "development",
				Platform:      "darwin",
			}},
			false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, r.CheckConditions(tt.meta))
		})
	}
}
