package merge

import (
	"sort"

	"github.com/arthur-debert/confit/pkg/tree"
)

// VSCodeTasksStrategy merges .vscode/tasks.json: version last-wins, tasks
// arrays concatenate without dedup (entries shallow-cloned), inputs dedup
// by id keeping the first occurrence, and the options object shallow-merges
// last-wins. Post-processing sorts tasks by label and inputs by id so the
// output is deterministic regardless of discovery order.
type VSCodeTasksStrategy struct{}

func (*VSCodeTasksStrategy) Name() string { return "vscode-tasks" }

func (*VSCodeTasksStrategy) Validate(content interface{}) ValidationResult {
	if tree.IsMap(content) {
		return valid()
	}
	return invalidf("vscode-tasks merge expects an object, got %T", content)
}

func (*VSCodeTasksStrategy) Merge(contents []interface{}, ctx *Context) (interface{}, error) {
	result := map[string]interface{}{}
	var tasks []interface{}
	var inputs []interface{}
	seenInputIDs := make(map[string]bool)

	for _, content := range contents {
		src, ok := tree.AsMap(content)
		if !ok {
			continue
		}

		for key, value := range src {
			switch key {
			case "version":
				result["version"] = value

			case "tasks":
				list, ok := tree.AsSlice(value)
				if !ok {
					continue
				}
				for _, entry := range list {
					if m, ok := tree.AsMap(entry); ok {
						tasks = append(tasks, tree.ShallowCloneMap(m))
					} else {
						tasks = append(tasks, entry)
					}
				}

			case "inputs":
				list, ok := tree.AsSlice(value)
				if !ok {
					continue
				}
				for _, entry := range list {
					m, ok := tree.AsMap(entry)
					if !ok {
						inputs = append(inputs, entry)
						continue
					}
					id, _ := tree.AsString(m["id"])
					if id != "" && seenInputIDs[id] {
						continue
					}
					if id != "" {
						seenInputIDs[id] = true
					}
					inputs = append(inputs, tree.ShallowCloneMap(m))
				}

			case "options":
				dst, _ := tree.AsMap(result["options"])
				if dst == nil {
					dst = map[string]interface{}{}
				} else {
					dst = tree.ShallowCloneMap(dst)
				}
				if srcOpts, ok := tree.AsMap(value); ok {
					for k, v := range srcOpts {
						dst[k] = v
					}
				}
				result["options"] = dst

			default:
				result[key] = tree.Clone(value)
			}
		}
	}

	if tasks != nil {
		result["tasks"] = tasks
	}
	if inputs != nil {
		result["inputs"] = inputs
	}
	return result, nil
}

// PostProcess sorts tasks by label and inputs by id, lexicographically
func (*VSCodeTasksStrategy) PostProcess(result interface{}, ctx *Context) (interface{}, error) {
	m, ok := tree.AsMap(result)
	if !ok {
		return result, nil
	}

	if tasks, ok := tree.AsSlice(m["tasks"]); ok {
		sortByStringField(tasks, "label")
	}
	if inputs, ok := tree.AsSlice(m["inputs"]); ok {
		sortByStringField(inputs, "id")
	}
	return m, nil
}

func sortByStringField(list []interface{}, field string) {
	sort.SliceStable(list, func(i, j int) bool {
		a, _ := fieldString(list[i], field)
		b, _ := fieldString(list[j], field)
		return a < b
	})
}

func fieldString(v interface{}, field string) (string, bool) {
	m, ok := tree.AsMap(v)
	if !ok {
		return "", false
	}
	return tree.AsString(m[field])
}
