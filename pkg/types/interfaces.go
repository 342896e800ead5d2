package types

import "io/fs"

// FS is the filesystem abstraction used throughout confit
type FS interface {
	// File operations
	Stat(name string) (fs.FileInfo, error)
	ReadFile(name string) ([]byte, error)
	WriteFile(name string, data []byte, perm fs.FileMode) error

	// Directory operations
	MkdirAll(path string, perm fs.FileMode) error
	ReadDir(name string) ([]fs.DirEntry, error)

	// Symlink operations
	Symlink(oldname, newname string) error
	Readlink(name string) (string, error)
	EvalSymlinks(path string) (string, error)

	// Other operations
	Remove(name string) error
	RemoveAll(path string) error
	Rename(oldpath, newpath string) error

	// Lstat reports on the link itself, not its target.
	// Implementations without symlink support fall back to Stat.
	Lstat(name string) (fs.FileInfo, error)
}

// Pather provides the project layout paths the engine operates on
type Pather interface {
	// ProjectRoot returns the root directory of the managed project
	ProjectRoot() string

	// TemplatesRoot returns the directory holding master templates
	TemplatesRoot() string

	// FrameworkDir returns the framework checkout inside the project
	FrameworkDir() string

	// ModulesDir returns the directory holding module activation symlinks
	ModulesDir() string

	// FrameworkModulesDir returns the canonical module source directory
	FrameworkModulesDir() string

	// StateDir returns the XDG state directory for confit
	StateDir() string

	// BackupsDir returns the directory snapshots are written to
	BackupsDir() string
}
