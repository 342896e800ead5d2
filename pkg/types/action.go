package types

// ActionKind is the operation the engine decided on for a target
type ActionKind string

const (
	// ActionLink creates a relative symlink from target to a single source
	ActionLink ActionKind = "link"

	// ActionCopy copies a single source's bytes to the target
	ActionCopy ActionKind = "copy"

	// ActionWrite writes a merged artifact to the target
	ActionWrite ActionKind = "write"

	// ActionRemove removes a stale artifact with no remaining sources
	ActionRemove ActionKind = "remove"
)

// Action is one planned filesystem effect for a target group
type Action struct {
	Kind   ActionKind
	Target string

	// Source is the originating file for link/copy actions
	Source string

	// Strategy names the merge strategy for write actions
	Strategy string

	// Content is the rendered artifact body for write actions
	Content string

	// SourcePaths lists every contributing source location
	SourcePaths []string
}
