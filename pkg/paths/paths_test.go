package paths

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_Layout(t *testing.T) {
	p, err := New("/project")
	require.NoError(t, err)

	assert.Equal(t, "/project", p.ProjectRoot())
	assert.Equal(t, "/project/framework", p.FrameworkDir())
	assert.Equal(t, "/project/framework/templates", p.TemplatesRoot())
	assert.Equal(t, "/project/modules", p.ModulesDir())
	assert.Equal(t, "/project/framework/modules", p.FrameworkModulesDir())
}

func TestNew_EnvFallbacks(t *testing.T) {
	t.Setenv(EnvProjectRoot, "/from-env")
	p, err := New("")
	require.NoError(t, err)
	assert.Equal(t, "/from-env", p.ProjectRoot())

	t.Setenv(EnvStateDir, "/tmp/state")
	p, err = New("/project")
	require.NoError(t, err)
	assert.Equal(t, "/tmp/state", p.StateDir())
	assert.Equal(t, filepath.Join("/tmp/state", BackupsDirName), p.BackupsDir())
}

func TestNameClassifiers(t *testing.T) {
	assert.True(t, IsTemplateFile("__settings.json"))
	assert.False(t, IsTemplateFile("settings.json"))
	assert.Equal(t, "settings.json", StripTemplateMarker("__settings.json"))

	assert.True(t, IsFragmentFile("ci.fragment.yaml"))
	assert.False(t, IsFragmentFile("ci.yaml"))

	assert.True(t, IsOverrideFile("app.overrides.json"))
	assert.Equal(t, "app.json", StripOverrideInfix("app.overrides.json"))
}

func TestModuleNameFromPath(t *testing.T) {
	modDir := "/project/framework/modules"

	assert.Equal(t, "auth", ModuleNameFromPath("/project/framework/modules/auth/cfg.fragment.json", modDir))
	assert.Equal(t, "", ModuleNameFromPath("/project/packages/api/cfg.fragment.json", modDir))
	assert.Equal(t, "", ModuleNameFromPath(modDir, modDir))
}
