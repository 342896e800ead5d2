// Package modules decides which module fragments are eligible. A module is
// active iff its entry under the project modules directory is a symlink
// resolving to the canonical framework module directory of the same name —
// a depth-one symlink check, not a graph traversal.
package modules

import (
	"io/fs"
	"path/filepath"
	"runtime"
	"sync"

	"github.com/arthur-debert/confit/pkg/logging"
	"github.com/arthur-debert/confit/pkg/paths"
	"github.com/arthur-debert/confit/pkg/types"
)

// Cache holds the computed active-module set for one apply run. It is
// passed in explicitly and invalidated by the caller between runs; there
// is no package-level state.
type Cache struct {
	mu     sync.Mutex
	active map[string]bool
	valid  bool
}

// NewCache creates an empty, invalid cache
func NewCache() *Cache {
	return &Cache{}
}

// Invalidate drops the cached set so the next lookup recomputes it
func (c *Cache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.active = nil
	c.valid = false
}

// Resolver answers module-activation and condition questions
type Resolver struct {
	fs       types.FS
	paths    types.Pather
	envName  string
	platform string
	cache    *Cache
}

// NewResolver creates a resolver. envName defaults to "development" when
// empty; platform defaults to runtime.GOOS.
func NewResolver(filesys types.FS, pather types.Pather, envName string, cache *Cache) *Resolver {
	if envName == "" {
		envName = "development"
	}
	if cache == nil {
		cache = NewCache()
	}
	return &Resolver{
		fs:       filesys,
		paths:    pather,
		envName:  envName,
		platform: runtime.GOOS,
		cache:    cache,
	}
}

// WithPlatform overrides the host platform, for tests
func (r *Resolver) WithPlatform(platform string) *Resolver {
	r.platform = platform
	return r
}

// IsModuleActive reports whether <modulesDir>/<name> is a symlink whose
// resolved absolute target equals <frameworkModulesDir>/<name>.
func (r *Resolver) IsModuleActive(name string) bool {
	entry := filepath.Join(r.paths.ModulesDir(), name)

	info, err := r.fs.Lstat(entry)
	if err != nil || info.Mode()&fs.ModeSymlink == 0 {
		return false
	}

	dest, err := r.fs.Readlink(entry)
	if err != nil {
		return false
	}
	if !filepath.IsAbs(dest) {
		dest = filepath.Join(r.paths.ModulesDir(), dest)
	}

	canonical := filepath.Join(r.paths.FrameworkModulesDir(), name)
	return filepath.Clean(dest) == filepath.Clean(canonical)
}

// ActiveModules returns the set of active module names. The result is
// cached until the cache is invalidated.
func (r *Resolver) ActiveModules() map[string]bool {
	r.cache.mu.Lock()
	defer r.cache.mu.Unlock()

	if r.cache.valid {
		return r.cache.active
	}

	logger := logging.GetLogger("modules")
	active := make(map[string]bool)

	entries, err := r.fs.ReadDir(r.paths.ModulesDir())
	if err != nil {
		// A project without a modules dir simply has no active modules
		logger.Debug().Err(err).Str("dir", r.paths.ModulesDir()).Msg("no modules directory")
		r.cache.active = active
		r.cache.valid = true
		return active
	}

	for _, entry := range entries {
		if r.IsModuleActive(entry.Name()) {
			active[entry.Name()] = true
		}
	}

	logger.Debug().Int("count", len(active)).Msg("computed active module set")
	r.cache.active = active
	r.cache.valid = true
	return active
}

// FilterFragments drops fragments owned by inactive modules and fragments
// whose conditions do not hold. Fragments outside the framework module
// tree always pass the activation check; a fragment declaring
// _activeOnly=false passes it regardless of module state.
func (r *Resolver) FilterFragments(fragments []types.Source) []types.Source {
	logger := logging.GetLogger("modules")
	kept := make([]types.Source, 0, len(fragments))

	for _, frag := range fragments {
		owner := paths.ModuleNameFromPath(frag.Location, r.paths.FrameworkModulesDir())
		if owner != "" && frag.Meta.IsActiveOnly() && !r.ActiveModules()[owner] {
			logger.Debug().
				Str("fragment", frag.Location).
				Str("module", owner).
				Msg("fragment skipped, module inactive")
			continue
		}
		if !r.CheckConditions(frag.Meta) {
			logger.Debug().
				Str("fragment", frag.Location).
				Msg("fragment skipped, conditions not met")
			continue
		}
		kept = append(kept, frag)
	}
	return kept
}

// CheckConditions evaluates a fragment's conditions conjunctively: every
// listed module active, env equal to the runtime environment name, and
// platform equal to the host platform.
func (r *Resolver) CheckConditions(meta *types.FragmentMeta) bool {
	if meta == nil || meta.Conditions == nil {
		return true
	}
	cond := meta.Conditions

	for _, mod := range cond.ActiveModules {
		if !r.ActiveModules()[mod] {
			return false
		}
	}
	if cond.Env != "" && cond.Env != r.envName {
		return false
	}
	if cond.Platform != "" && cond.Platform != r.platform {
		return false
	}
	return true
}
