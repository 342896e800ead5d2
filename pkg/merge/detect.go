package merge

import (
	"path/filepath"
	"strings"

	"github.com/arthur-debert/confit/pkg/types"
)

// detectionRule maps a basename predicate to a strategy name. Rules are
// checked in order, most specific first.
type detectionRule struct {
	name  string
	match func(base string) bool
}

var detectionRules = []detectionRule{
	{"tsconfig", func(base string) bool {
		return strings.HasPrefix(base, "tsconfig") && strings.HasSuffix(base, ".json")
	}},
	{"vscode-tasks", func(base string) bool {
		return base == "tasks.json"
	}},
	{"docker-compose", func(base string) bool {
		return strings.HasPrefix(base, "docker-compose") ||
			base == "compose.yaml" || base == "compose.yml"
	}},
	{"pnpm-workspace", func(base string) bool {
		return base == "pnpm-workspace.yaml" || base == "pnpm-workspace.yml"
	}},
	{"gitlab-ci", func(base string) bool {
		return base == ".gitlab-ci.yml" || base == ".gitlab-ci.yaml"
	}},
	{"append-lines", func(base string) bool {
		return base == ".gitignore" || base == ".dockerignore"
	}},
	{"yaml", func(base string) bool {
		ext := filepath.Ext(base)
		return ext == ".yaml" || ext == ".yml"
	}},
	{"toml", func(base string) bool {
		return filepath.Ext(base) == ".toml"
	}},
	{"deep", func(base string) bool {
		ext := filepath.Ext(base)
		return ext == ".json" || ext == ".jsonc" || ext == ".json5" || ext == ".code-workspace"
	}},
}

// Detect picks a strategy name from the target path. Structured content
// with no specific rule falls back to the deep merge; raw text falls back
// to line appending, which keeps every layer's contribution.
func (r *Registry) Detect(target string, format types.Format) string {
	base := filepath.Base(target)
	for _, rule := range detectionRules {
		if rule.match(base) {
			return rule.name
		}
	}
	if format.Structured() {
		return "deep"
	}
	return "append-lines"
}
