// Package merge holds the named, format-aware merge strategies and their
// registry. Strategies are pure over their inputs: they never mutate
// source contents and all I/O stays in the engine.
package merge

import (
	"fmt"

	"github.com/arthur-debert/confit/pkg/registry"
)

// Mode selects the deep-merge null/array policy
type Mode string

const (
	// ModeStrict concatenates arrays with dedup and treats null-deleting a
	// key that holds real content as a merge conflict
	ModeStrict Mode = "strict"

	// ModeLegacy replaces arrays wholesale and null-deletes unconditionally
	ModeLegacy Mode = "legacy"
)

// Context carries the merge surroundings. SourcePaths is ordered the same
// as the contents slice handed to Merge.
type Context struct {
	// Target is the absolute target path being produced
	Target string

	// RelTarget is the target path relative to the project root
	RelTarget string

	// ProjectRoot anchors source-path-derived computations
	ProjectRoot string

	// SourcePaths are the originating file paths, ascending priority order
	SourcePaths []string

	// ActiveModules is the read-only active module set for this run
	ActiveModules map[string]bool

	// Mode is the deep-merge policy for this run
	Mode Mode
}

// ValidationResult reports whether a content value fits a strategy
type ValidationResult struct {
	Valid  bool
	Errors []string
}

func valid() ValidationResult {
	return ValidationResult{Valid: true}
}

func invalidf(format string, args ...interface{}) ValidationResult {
	return ValidationResult{Valid: false, Errors: []string{fmt.Sprintf(format, args...)}}
}

// Strategy merges ordered source contents into one result
type Strategy interface {
	// Name is the registry key fragments reference via _mergeStrategy
	Name() string

	// Validate checks a single source's content before merging.
	// Failures are reported as findings; they do not abort the merge
	// unless the caller runs in strict validation mode.
	Validate(content interface{}) ValidationResult

	// Merge combines contents in ascending priority order. Inputs must
	// not be mutated.
	Merge(contents []interface{}, ctx *Context) (interface{}, error)
}

// PostProcessor is implemented by strategies that normalize their result
// after merging (sorting, canonical ordering).
type PostProcessor interface {
	PostProcess(result interface{}, ctx *Context) (interface{}, error)
}

// Registry holds the named strategies plus the detection rules
type Registry struct {
	strategies registry.Registry[Strategy]
}

// NewRegistry creates a registry pre-populated with every built-in strategy
func NewRegistry() *Registry {
	r := &Registry{strategies: registry.New[Strategy]()}
	for _, s := range []Strategy{
		&DeepStrategy{},
		&yamlAlias{},
		&tomlAlias{},
		&AppendLinesStrategy{},
		&ReplaceStrategy{},
		&ComposeStrategy{},
		&TsconfigStrategy{},
		&VSCodeTasksStrategy{},
		&GitlabCIStrategy{},
		&PnpmWorkspaceStrategy{},
	} {
		// Built-in names are unique; a duplicate is a programming error
		if err := r.strategies.Register(s.Name(), s); err != nil {
			panic(err)
		}
	}
	return r
}

// Get returns a strategy by name
func (r *Registry) Get(name string) (Strategy, error) {
	return r.strategies.Get(name)
}

// Has reports whether a strategy name is registered
func (r *Registry) Has(name string) bool {
	return r.strategies.Has(name)
}

// Names lists registered strategy names
func (r *Registry) Names() []string {
	return r.strategies.List()
}

// yamlAlias and tomlAlias exist as distinct registry entries for
// auto-detection routing; their semantics are the deep merge.
type yamlAlias struct{ DeepStrategy }

func (*yamlAlias) Name() string { return "yaml" }

type tomlAlias struct{ DeepStrategy }

func (*tomlAlias) Name() string { return "toml" }
