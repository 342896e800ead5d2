package merge

import (
	"github.com/arthur-debert/confit/pkg/errors"
	"github.com/arthur-debert/confit/pkg/tree"
)

// DeepStrategy is the default structural merge for JSON/YAML/TOML trees.
//
// Objects merge recursively key by key, later sources winning scalar
// conflicts. Array and null handling depend on the mode: strict mode
// concatenates arrays with first-seen dedup and treats a null that would
// delete real content as a conflict; legacy mode replaces arrays wholesale
// and null-deletes unconditionally.
type DeepStrategy struct{}

func (*DeepStrategy) Name() string { return "deep" }

func (*DeepStrategy) Validate(content interface{}) ValidationResult {
	if content == nil {
		return invalidf("deep merge expects an object or array, got null")
	}
	if tree.IsMap(content) || tree.IsSlice(content) {
		return valid()
	}
	return invalidf("deep merge expects an object or array, got %T", content)
}

func (*DeepStrategy) Merge(contents []interface{}, ctx *Context) (interface{}, error) {
	var acc interface{}
	for i, content := range contents {
		merged, err := mergeValue(acc, content, ctx.Mode, "")
		if err != nil {
			return nil, errors.Wrapf(err, errors.ErrMergeConflict,
				"merging %s into %s", ctx.SourcePaths[min(i, len(ctx.SourcePaths)-1)], ctx.Target)
		}
		acc = merged
	}
	return acc, nil
}

// mergeValue merges src over dst, returning a new value. dst is never
// mutated; maps and slices are cloned as they are built.
func mergeValue(dst, src interface{}, mode Mode, path string) (interface{}, error) {
	srcMap, srcIsMap := tree.AsMap(src)
	dstMap, dstIsMap := tree.AsMap(dst)
	if srcIsMap && dstIsMap {
		return mergeMaps(dstMap, srcMap, mode, path)
	}

	srcSlice, srcIsSlice := tree.AsSlice(src)
	dstSlice, dstIsSlice := tree.AsSlice(dst)
	if srcIsSlice && dstIsSlice {
		return mergeSlices(dstSlice, srcSlice, mode), nil
	}

	// Non-matching shapes or scalars: the later source fully replaces
	return tree.Clone(src), nil
}

func mergeMaps(dst, src map[string]interface{}, mode Mode, path string) (interface{}, error) {
	out := make(map[string]interface{}, len(dst)+len(src))
	for k, v := range dst {
		out[k] = tree.Clone(v)
	}

	for k, v := range src {
		keyPath := joinPath(path, k)
		if v == nil {
			existing, present := out[k]
			if mode == ModeStrict && present && existing != nil {
				return nil, errors.Newf(errors.ErrMergeConflict,
					"cannot null-delete key %q: it already holds content", keyPath)
			}
			delete(out, k)
			continue
		}

		existing, present := out[k]
		if !present {
			out[k] = tree.Clone(v)
			continue
		}
		merged, err := mergeValue(existing, v, mode, keyPath)
		if err != nil {
			return nil, err
		}
		out[k] = merged
	}
	return out, nil
}

func mergeSlices(dst, src []interface{}, mode Mode) []interface{} {
	if mode == ModeLegacy {
		return tree.Clone(src).([]interface{})
	}
	out := tree.Clone(dst).([]interface{})
	return tree.AppendUnique(out, tree.Clone(src).([]interface{}))
}

func joinPath(path, key string) string {
	if path == "" {
		return key
	}
	return path + "." + key
}
