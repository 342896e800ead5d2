// Package filesystem provides implementations of the types.FS interface:
// the standard OS filesystem and an afero-backed adapter used for
// deterministic tests.
package filesystem
