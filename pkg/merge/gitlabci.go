package merge

import (
	"path/filepath"
	"strings"

	"github.com/arthur-debert/confit/pkg/paths"
	"github.com/arthur-debert/confit/pkg/tree"
)

// gitlabGlobalKeys are the recognized top-level CI keys that belong to the
// pipeline itself rather than to any job.
var gitlabGlobalKeys = map[string]bool{
	"stages":        true,
	"variables":     true,
	"image":         true,
	"services":      true,
	"before_script": true,
	"after_script":  true,
	"cache":         true,
	"default":       true,
	"workflow":      true,
	"include":       true,
}

// masterTemplateThreshold is the number of recognized global keys a source
// must carry to classify as a master template
const masterTemplateThreshold = 3

// IsMasterTemplate classifies a CI source: a master template carries at
// least three recognized global keys. The predicate is deliberately a
// fixed-threshold heuristic pinned by tests.
func IsMasterTemplate(content map[string]interface{}) bool {
	count := 0
	for key := range content {
		if gitlabGlobalKeys[key] {
			count++
		}
	}
	return count >= masterTemplateThreshold
}

// GitlabCIStrategy merges .gitlab-ci.yml. Only master-template sources
// contribute global keys: stages union in order, variables shallow-merge
// last-wins, array globals concatenate with dedup, object globals
// shallow-merge, scalars last-win. Every source contributes its non-global
// keys as jobs; jobs from non-master fragment sources are prefixed with a
// colon-joined path derived from the fragment's directory to avoid
// cross-package name collisions.
type GitlabCIStrategy struct{}

func (*GitlabCIStrategy) Name() string { return "gitlab-ci" }

func (*GitlabCIStrategy) Validate(content interface{}) ValidationResult {
	if tree.IsMap(content) {
		return valid()
	}
	return invalidf("gitlab-ci merge expects an object, got %T", content)
}

func (*GitlabCIStrategy) Merge(contents []interface{}, ctx *Context) (interface{}, error) {
	result := map[string]interface{}{}

	for i, content := range contents {
		src, ok := tree.AsMap(content)
		if !ok {
			continue
		}

		master := IsMasterTemplate(src)
		prefix := ""
		if !master {
			prefix = jobPrefix(sourcePathAt(ctx, i), ctx.ProjectRoot)
		}

		for key, value := range src {
			if gitlabGlobalKeys[key] {
				if master {
					mergeGitlabGlobal(result, key, value)
				}
				continue
			}

			jobName := key
			if prefix != "" && sourceIsFragment(ctx, i) {
				jobName = prefix + ":" + key
			}
			result[jobName] = tree.Clone(value)
		}
	}
	return result, nil
}

func mergeGitlabGlobal(result map[string]interface{}, key string, value interface{}) {
	switch key {
	case "stages":
		srcList, ok := tree.AsSlice(value)
		if !ok {
			return
		}
		dstList, _ := tree.AsSlice(result[key])
		result[key] = tree.AppendUnique(
			tree.Clone(dstList).([]interface{}),
			tree.Clone(srcList).([]interface{}),
		)

	case "variables":
		dst, _ := tree.AsMap(result[key])
		if dst == nil {
			dst = map[string]interface{}{}
		} else {
			dst = tree.ShallowCloneMap(dst)
		}
		if srcVars, ok := tree.AsMap(value); ok {
			for k, v := range srcVars {
				dst[k] = v
			}
		}
		result[key] = dst

	default:
		if srcList, ok := tree.AsSlice(value); ok {
			dstList, _ := tree.AsSlice(result[key])
			result[key] = tree.AppendUnique(
				tree.Clone(dstList).([]interface{}),
				tree.Clone(srcList).([]interface{}),
			)
			return
		}
		if srcMap, ok := tree.AsMap(value); ok {
			dst, _ := tree.AsMap(result[key])
			if dst == nil {
				dst = map[string]interface{}{}
			} else {
				dst = tree.ShallowCloneMap(dst)
			}
			for k, v := range srcMap {
				dst[k] = v
			}
			result[key] = dst
			return
		}
		result[key] = value
	}
}

// jobPrefix derives the collision-avoiding job prefix from a source's
// directory relative to the project root, with leading packages/ and
// modules/ segments stripped: packages/api -> "api",
// apps/web/ci -> "apps:web:ci".
func jobPrefix(sourcePath, projectRoot string) string {
	if sourcePath == "" || projectRoot == "" {
		return ""
	}
	rel, err := filepath.Rel(projectRoot, filepath.Dir(sourcePath))
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return ""
	}

	segments := strings.Split(filepath.ToSlash(rel), "/")
	if len(segments) > 1 && (segments[0] == "packages" || segments[0] == "modules") {
		segments = segments[1:]
	}
	return strings.Join(segments, ":")
}

func sourcePathAt(ctx *Context, i int) string {
	if ctx == nil || i >= len(ctx.SourcePaths) {
		return ""
	}
	return ctx.SourcePaths[i]
}

func sourceIsFragment(ctx *Context, i int) bool {
	path := sourcePathAt(ctx, i)
	return path != "" && paths.IsFragmentFile(filepath.Base(path))
}
