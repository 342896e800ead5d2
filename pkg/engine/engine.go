// Package engine orchestrates a confit run: discover sources, group them
// by resolved target path, and turn each group into a link, copy, merged
// write, or removal. All filesystem effects live here; discovery and the
// merge strategies stay pure.
package engine

import (
	"path/filepath"
	"sort"

	"github.com/arthur-debert/confit/pkg/config"
	"github.com/arthur-debert/confit/pkg/discovery"
	"github.com/arthur-debert/confit/pkg/errors"
	"github.com/arthur-debert/confit/pkg/logging"
	"github.com/arthur-debert/confit/pkg/merge"
	"github.com/arthur-debert/confit/pkg/modules"
	"github.com/arthur-debert/confit/pkg/types"
	"github.com/arthur-debert/confit/pkg/vars"
)

// Engine wires discovery, module filtering and the strategy registry over
// one project.
type Engine struct {
	fs         types.FS
	paths      types.Pather
	settings   *config.Settings
	discovery  *discovery.Discovery
	modules    *modules.Resolver
	cache      *modules.Cache
	strategies *merge.Registry
}

// New creates an Engine for the given project
func New(filesys types.FS, pather types.Pather, settings *config.Settings) *Engine {
	resolver := vars.NewResolver(settings.Variables)
	cache := modules.NewCache()
	return &Engine{
		fs:         filesys,
		paths:      pather,
		settings:   settings,
		discovery:  discovery.New(filesys, pather, resolver),
		modules:    modules.NewResolver(filesys, pather, settings.Env, cache),
		cache:      cache,
		strategies: merge.NewRegistry(),
	}
}

// InvalidateModules drops the cached active-module set. Callers invoke
// this between runs (the watcher does it on every trigger).
func (e *Engine) InvalidateModules() {
	e.cache.Invalidate()
}

// Strategies exposes the registry for the validate command
func (e *Engine) Strategies() *merge.Registry {
	return e.strategies
}

// Discover runs all three discoverers and applies module filtering to
// fragments. Returned sources carry their discovery sequence for stable
// priority tie-breaks.
func (e *Engine) Discover() ([]types.Source, error) {
	templates, err := e.discovery.Templates()
	if err != nil {
		return nil, err
	}
	fragments, err := e.discovery.Fragments()
	if err != nil {
		return nil, err
	}
	fragments = e.modules.FilterFragments(fragments)

	overrides, err := e.discovery.Overrides()
	if err != nil {
		return nil, err
	}

	var sources []types.Source
	sources = append(sources, templates...)
	sources = append(sources, fragments...)
	sources = append(sources, overrides...)
	for i := range sources {
		sources[i].Seq = i
	}
	return sources, nil
}

// Groups buckets sources by resolved target path and orders each bucket
// by ascending priority. Groups come back sorted by target path so runs
// are deterministic.
func (e *Engine) Groups(sources []types.Source) []types.TargetGroup {
	byTarget := make(map[string]*types.TargetGroup)
	var order []string

	for _, src := range sources {
		target := filepath.Clean(src.Target)
		group, ok := byTarget[target]
		if !ok {
			group = &types.TargetGroup{Target: target}
			byTarget[target] = group
			order = append(order, target)
		}
		group.Sources = append(group.Sources, src)
	}

	sort.Strings(order)
	groups := make([]types.TargetGroup, 0, len(order))
	for _, target := range order {
		group := byTarget[target]
		group.Sort()
		groups = append(groups, *group)
	}
	return groups
}

// matchesFilters reports whether a target passes the run's filter
// patterns. No patterns means everything passes.
func (e *Engine) matchesFilters(target string) bool {
	if len(e.settings.Filters) == 0 {
		return true
	}
	rel, err := filepath.Rel(e.paths.ProjectRoot(), target)
	if err != nil {
		rel = target
	}
	for _, pattern := range e.settings.Filters {
		if ok, _ := filepath.Match(pattern, rel); ok {
			return true
		}
		if ok, _ := filepath.Match(pattern, filepath.Base(target)); ok {
			return true
		}
	}
	return false
}

// Plan produces the full action list without touching the filesystem
func (e *Engine) Plan() ([]types.Action, error) {
	sources, err := e.Discover()
	if err != nil {
		return nil, err
	}

	var actions []types.Action
	for _, group := range e.Groups(sources) {
		if !e.matchesFilters(group.Target) {
			continue
		}
		action, err := e.resolveGroup(group)
		if err != nil {
			return nil, err
		}
		actions = append(actions, action)
	}
	return actions, nil
}

// resolveGroup decides what one target group becomes: a removal for an
// empty group, a link or copy for a single source, a merged write
// otherwise.
func (e *Engine) resolveGroup(group types.TargetGroup) (types.Action, error) {
	if len(group.Sources) == 0 {
		return types.Action{Kind: types.ActionRemove, Target: group.Target}, nil
	}

	if len(group.Sources) == 1 {
		src := group.Sources[0]
		kind := types.ActionLink
		if src.WantsCopy() {
			kind = types.ActionCopy
		}
		return types.Action{
			Kind:        kind,
			Target:      group.Target,
			Source:      src.Location,
			SourcePaths: []string{src.Location},
		}, nil
	}

	return e.mergeGroup(group)
}

// mergeGroup runs the strategy pipeline for a multi-source group
func (e *Engine) mergeGroup(group types.TargetGroup) (types.Action, error) {
	logger := logging.GetLogger("engine")

	name := group.ExplicitStrategy()
	format := groupFormat(group)
	if name == "" {
		name = e.strategies.Detect(group.Target, format)
	}
	strategy, err := e.strategies.Get(name)
	if err != nil {
		return types.Action{}, errors.Wrapf(err, errors.ErrStrategyNotFound,
			"no merge strategy for %s", group.Target)
	}

	contents := make([]interface{}, 0, len(group.Sources))
	sourcePaths := make([]string, 0, len(group.Sources))
	for _, src := range group.Sources {
		contents = append(contents, contentOf(src))
		sourcePaths = append(sourcePaths, src.Location)

		if result := strategy.Validate(contentOf(src)); !result.Valid {
			logger.Warn().
				Str("source", src.Location).
				Str("strategy", name).
				Strs("problems", result.Errors).
				Msg("source failed strategy validation")
		}
	}

	relTarget, err := filepath.Rel(e.paths.ProjectRoot(), group.Target)
	if err != nil {
		relTarget = group.Target
	}
	ctx := &merge.Context{
		Target:        group.Target,
		RelTarget:     relTarget,
		ProjectRoot:   e.paths.ProjectRoot(),
		SourcePaths:   sourcePaths,
		ActiveModules: e.modules.ActiveModules(),
		Mode:          merge.Mode(e.settings.MergeMode),
	}

	result, err := strategy.Merge(contents, ctx)
	if err != nil {
		return types.Action{}, err
	}
	if post, ok := strategy.(merge.PostProcessor); ok {
		result, err = post.PostProcess(result, ctx)
		if err != nil {
			return types.Action{}, err
		}
	}

	content, err := e.render(group.Target, format, result, sourcePaths)
	if err != nil {
		return types.Action{}, err
	}

	return types.Action{
		Kind:        types.ActionWrite,
		Target:      group.Target,
		Strategy:    name,
		Content:     content,
		SourcePaths: sourcePaths,
	}, nil
}

// groupFormat prefers the format parsed for the highest-priority
// structured source, falling back to text
func groupFormat(group types.TargetGroup) types.Format {
	format := types.FormatText
	for _, src := range group.Sources {
		if src.Format.Structured() {
			format = src.Format
		}
	}
	return format
}

func contentOf(src types.Source) interface{} {
	if src.Format.Structured() {
		return src.Content
	}
	return src.Raw
}
