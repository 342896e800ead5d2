// Package registry provides a generic, thread-safe registry used to hold
// named merge strategies and detection rules.
package registry
