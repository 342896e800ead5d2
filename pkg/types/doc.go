// Package types defines the core data model shared across confit:
// discovered sources and their metadata, target groups, planned actions,
// and the filesystem and path abstractions the engine depends on.
//
// Types here carry no behavior beyond small accessors; the packages that
// operate on them (discovery, merge, engine) hold the logic.
package types
