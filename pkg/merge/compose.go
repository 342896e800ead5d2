package merge

import (
	"github.com/arthur-debert/confit/pkg/tree"
)

// ComposeStrategy merges docker-compose files: the first declared version
// wins (defaulting to "3.8"), services deep-merge per service name, and
// the volumes/networks maps overwrite shallowly, last key wins.
type ComposeStrategy struct{}

func (*ComposeStrategy) Name() string { return "docker-compose" }

func (*ComposeStrategy) Validate(content interface{}) ValidationResult {
	if tree.IsMap(content) {
		return valid()
	}
	return invalidf("docker-compose merge expects an object, got %T", content)
}

func (*ComposeStrategy) Merge(contents []interface{}, ctx *Context) (interface{}, error) {
	result := map[string]interface{}{}
	services := map[string]interface{}{}
	versionSet := false

	for _, content := range contents {
		src, ok := tree.AsMap(content)
		if !ok {
			continue
		}

		for key, value := range src {
			switch key {
			case "version":
				if !versionSet {
					result["version"] = value
					versionSet = true
				}
			case "services":
				srcServices, ok := tree.AsMap(value)
				if !ok {
					continue
				}
				for name, svc := range srcServices {
					if existing, present := services[name]; present {
						merged, err := mergeValue(existing, svc, ctx.Mode, "services."+name)
						if err != nil {
							return nil, err
						}
						services[name] = merged
					} else {
						services[name] = tree.Clone(svc)
					}
				}
			case "volumes", "networks":
				dst, _ := tree.AsMap(result[key])
				if dst == nil {
					dst = map[string]interface{}{}
				} else {
					dst = tree.ShallowCloneMap(dst)
				}
				if srcSection, ok := tree.AsMap(value); ok {
					for k, v := range srcSection {
						dst[k] = tree.Clone(v)
					}
				}
				result[key] = dst
			default:
				result[key] = tree.Clone(value)
			}
		}
	}

	if !versionSet {
		result["version"] = "3.8"
	}
	if len(services) > 0 {
		result["services"] = services
	}
	return result, nil
}
