package merge

import (
	"testing"

	"github.com/arthur-debert/confit/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetect(t *testing.T) {
	r := NewRegistry()

	tests := []struct {
		target   string
		format   types.Format
		expected string
	}{
		{"/p/tsconfig.json", types.FormatJSON, "tsconfig"},
		{"/p/tsconfig.build.json", types.FormatJSON, "tsconfig"},
		{"/p/.vscode/tasks.json", types.FormatJSON, "vscode-tasks"},
		{"/p/docker-compose.yaml", types.FormatYAML, "docker-compose"},
		{"/p/docker-compose.override.yml", types.FormatYAML, "docker-compose"},
		{"/p/compose.yaml", types.FormatYAML, "docker-compose"},
		{"/p/pnpm-workspace.yaml", types.FormatYAML, "pnpm-workspace"},
		{"/p/.gitlab-ci.yml", types.FormatYAML, "gitlab-ci"},
		{"/p/.gitignore", types.FormatText, "append-lines"},
		{"/p/.dockerignore", types.FormatText, "append-lines"},
		{"/p/app.yaml", types.FormatYAML, "yaml"},
		{"/p/Cargo.toml", types.FormatTOML, "toml"},
		{"/p/package.json", types.FormatJSON, "deep"},
		{"/p/app.code-workspace", types.FormatJSON, "deep"},
		{"/p/.npmrc", types.FormatText, "append-lines"},
	}

	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			name := r.Detect(tt.target, tt.format)
			assert.Equal(t, tt.expected, name)
			assert.True(t, r.Has(name), "detected strategy must be registered")
		})
	}
}

func TestSpecificRulesWinOverGeneric(t *testing.T) {
	r := NewRegistry()

	// tsconfig*.json before generic .json, docker-compose* before generic YAML
	assert.Equal(t, "tsconfig", r.Detect("/p/tsconfig.json", types.FormatJSON))
	assert.Equal(t, "docker-compose", r.Detect("/p/docker-compose.prod.yaml", types.FormatYAML))
	assert.NotEqual(t, "yaml", r.Detect("/p/.gitlab-ci.yml", types.FormatYAML))
}

func TestRegistry_AliasesRouteToDeepSemantics(t *testing.T) {
	r := NewRegistry()

	for _, name := range []string{"yaml", "toml"} {
		s, err := r.Get(name)
		require.NoError(t, err)

		result, err := s.Merge([]interface{}{
			map[string]interface{}{"a": 1},
			map[string]interface{}{"b": 2},
		}, testCtx(ModeStrict, "x", "y"))
		require.NoError(t, err)
		assert.Equal(t, map[string]interface{}{"a": 1, "b": 2}, result)
	}
}

func TestRegistry_ExplicitNameLookup(t *testing.T) {
	r := NewRegistry()

	for _, name := range []string{
		"deep", "yaml", "toml", "append-lines", "replace",
		"docker-compose", "tsconfig", "vscode-tasks", "gitlab-ci", "pnpm-workspace",
	} {
		s, err := r.Get(name)
		require.NoError(t, err)
		assert.Equal(t, name, s.Name())
	}

	_, err := r.Get("nonexistent")
	assert.Error(t, err)
}
