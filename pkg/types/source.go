package types

import "sort"

// SourceKind identifies which layer a discovered source belongs to
type SourceKind string

const (
	KindTemplate SourceKind = "template"
	KindFragment SourceKind = "fragment"
	KindOverride SourceKind = "override"
)

// Format identifies how a source's content was parsed
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
	FormatText Format = "text"
)

// Structured reports whether the format parses into a tree
func (f Format) Structured() bool {
	return f != FormatText
}

// Default priorities per source kind. Fragments may declare their own.
const (
	PriorityTemplate = 0
	PriorityFragment = 100
	PriorityOverride = 1000
)

// Conditions restrict when a fragment participates in merging.
// All families are conjunctive.
type Conditions struct {
	ActiveModules []string `koanf:"activeModules" mapstructure:"activeModules"`
	Env           string   `koanf:"env" mapstructure:"env"`
	Platform      string   `koanf:"platform" mapstructure:"platform"`
}

// FragmentMeta is the declarative metadata a fragment carries
type FragmentMeta struct {
	// TargetPaths are the logical target paths this fragment contributes
	// to. At least one non-empty path is required.
	TargetPaths []string

	// Strategy names an explicit merge strategy, overriding auto-detection
	Strategy string

	// Priority overrides the fragment default of 100
	Priority *int

	// Conditions gate participation on active modules, env and platform
	Conditions *Conditions

	// Copy requests a byte copy instead of a symlink for single-source
	// pass-through
	Copy bool

	// ActiveOnly controls module-activation filtering for fragments under
	// the framework module tree. Nil means true.
	ActiveOnly *bool
}

// EffectivePriority returns the declared priority or the fragment default
func (m *FragmentMeta) EffectivePriority() int {
	if m != nil && m.Priority != nil {
		return *m.Priority
	}
	return PriorityFragment
}

// IsActiveOnly reports whether module-activation filtering applies
func (m *FragmentMeta) IsActiveOnly() bool {
	if m != nil && m.ActiveOnly != nil {
		return *m.ActiveOnly
	}
	return true
}

// Source is a discovered configuration contributor. Content is immutable
// once discovery produces it; merge strategies build new results.
type Source struct {
	// Kind is the layer this source belongs to
	Kind SourceKind

	// Location is the absolute path of the originating file
	Location string

	// Target is the resolved absolute target path this source contributes to
	Target string

	// Format records how Content was parsed
	Format Format

	// Content is the parsed tree for structured formats, nil for text
	Content interface{}

	// Raw is the file body (metadata stripped) for text formats
	Raw string

	// Priority orders merging: template 0, fragment 100 (or declared),
	// override 1000. Lower merges first, later sources win conflicts.
	Priority int

	// Meta is present for fragments only
	Meta *FragmentMeta

	// seq preserves discovery order for stable sorting
	Seq int
}

// WantsCopy reports whether pass-through should copy bytes instead of linking
func (s *Source) WantsCopy() bool {
	return s.Meta != nil && s.Meta.Copy
}

// TargetGroup is the ordered set of sources resolving to one target path.
// Built fresh on every apply run, consumed once.
type TargetGroup struct {
	Target  string
	Sources []Source
}

// Sort orders sources by ascending priority, discovery order breaking ties
func (g *TargetGroup) Sort() {
	sort.SliceStable(g.Sources, func(i, j int) bool {
		if g.Sources[i].Priority != g.Sources[j].Priority {
			return g.Sources[i].Priority < g.Sources[j].Priority
		}
		return g.Sources[i].Seq < g.Sources[j].Seq
	})
}

// ExplicitStrategy returns the first explicit strategy name declared by any
// contributing source, or ""
func (g *TargetGroup) ExplicitStrategy() string {
	for _, s := range g.Sources {
		if s.Meta != nil && s.Meta.Strategy != "" {
			return s.Meta.Strategy
		}
	}
	return ""
}
