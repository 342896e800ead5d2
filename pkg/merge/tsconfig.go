package merge

import (
	"github.com/arthur-debert/confit/pkg/tree"
)

// TsconfigStrategy merges TypeScript configs: compilerOptions deep-merge,
// the include/exclude/files arrays union preserving first-seen order,
// extends and every other top-level key are last-source-wins.
type TsconfigStrategy struct{}

var tsconfigUnionKeys = map[string]bool{
	"include": true,
	"exclude": true,
	"files":   true,
}

func (*TsconfigStrategy) Name() string { return "tsconfig" }

func (*TsconfigStrategy) Validate(content interface{}) ValidationResult {
	if tree.IsMap(content) {
		return valid()
	}
	return invalidf("tsconfig merge expects an object, got %T", content)
}

func (*TsconfigStrategy) Merge(contents []interface{}, ctx *Context) (interface{}, error) {
	result := map[string]interface{}{}

	for _, content := range contents {
		src, ok := tree.AsMap(content)
		if !ok {
			continue
		}

		for key, value := range src {
			switch {
			case key == "compilerOptions":
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

			case tsconfigUnionKeys[key]:
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

			default:
				// extends and anything else: last source wins
				result[key] = tree.Clone(value)
			}
		}
	}
	return result, nil
}
