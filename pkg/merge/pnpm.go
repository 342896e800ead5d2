package merge

import (
	"github.com/arthur-debert/confit/pkg/tree"
)

// PnpmWorkspaceStrategy merges pnpm-workspace.yaml: the packages array
// concatenates with dedup, catalogs deep-merge, and any other top-level
// key is last-source-wins.
type PnpmWorkspaceStrategy struct{}

func (*PnpmWorkspaceStrategy) Name() string { return "pnpm-workspace" }

func (*PnpmWorkspaceStrategy) Validate(content interface{}) ValidationResult {
	if tree.IsMap(content) {
		return valid()
	}
	return invalidf("pnpm-workspace merge expects an object, got %T", content)
}

func (*PnpmWorkspaceStrategy) Merge(contents []interface{}, ctx *Context) (interface{}, error) {
	result := map[string]interface{}{}

	for _, content := range contents {
		src, ok := tree.AsMap(content)
		if !ok {
			continue
		}

		for key, value := range src {
			switch key {
			case "packages":
				srcList, ok := tree.AsSlice(value)
				if !ok {
					result[key] = tree.Clone(value)
					continue
				}
				dstList, _ := tree.AsSlice(result[key])
				result[key] = tree.AppendUnique(
					tree.Clone(dstList).([]interface{}),
					tree.Clone(srcList).([]interface{}),
				)

			case "catalogs":
				existing := result[key]
				if existing == nil {
					result[key] = tree.Clone(value)
					continue
				}
				merged, err := mergeValue(existing, value, ctx.Mode, key)
				if err != nil {
					return nil, err
				}
				result[key] = merged

			default:
				result[key] = tree.Clone(value)
			}
		}
	}
	return result, nil
}
