// Package diff computes the minimal content an override file must hold to
// reproduce a concrete on-disk tree when merged back over its template.
// It backs the migration workflow and depends on no other engine
// component.
package diff

import (
	"sort"

	"github.com/arthur-debert/confit/pkg/errors"
	"github.com/arthur-debert/confit/pkg/tree"
)

// Strategy selects how aggressively unchanged content is elided
type Strategy string

const (
	// StrategySmart keeps only keys that differ from the template
	StrategySmart Strategy = "smart"

	// StrategyMinimal is a named alias of smart, kept distinct so callers
	// can express intent; the behaviors are currently identical
	StrategyMinimal Strategy = "minimal"

	// StrategyPreserveAll keeps every key of the current tree that is not
	// implied purely by structural presence in the template, so the
	// override stays valid even if the template later changes
	StrategyPreserveAll Strategy = "preserve-all"
)

// Strategies lists the accepted extraction strategy names
func Strategies() []Strategy {
	return []Strategy{StrategySmart, StrategyMinimal, StrategyPreserveAll}
}

// Extract computes the delta between a template tree and the current tree.
// A nil result means the trees are equivalent at this level.
func Extract(template, current interface{}, strategy Strategy) (interface{}, error) {
	switch strategy {
	case StrategySmart, StrategyMinimal, "":
		return extract(template, current, true), nil
	case StrategyPreserveAll:
		return extract(template, current, false), nil
	default:
		return nil, errors.Newf(errors.ErrInvalidInput, "unknown extraction strategy %q", strategy)
	}
}

// extract walks current against template. elideEqual enables the
// deep-equality short-circuit that distinguishes smart from preserve-all.
func extract(template, current interface{}, elideEqual bool) interface{} {
	currentMap, currentIsMap := tree.AsMap(current)
	templateMap, templateIsMap := tree.AsMap(template)

	if !currentIsMap || !templateIsMap {
		if elideEqual && tree.Equal(template, current) {
			return nil
		}
		return tree.Clone(current)
	}

	result := map[string]interface{}{}
	for key, currentVal := range currentMap {
		templateVal, inTemplate := templateMap[key]

		// A key the template does not know about is always part of the diff
		if !inTemplate {
			result[key] = tree.Clone(currentVal)
			continue
		}

		if tree.IsMap(currentVal) && tree.IsMap(templateVal) {
			if nested := extract(templateVal, currentVal, elideEqual); nested != nil {
				if nestedMap, ok := tree.AsMap(nested); !ok || len(nestedMap) > 0 {
					result[key] = nested
				}
			}
			continue
		}

		if elideEqual && tree.Equal(templateVal, currentVal) {
			continue
		}
		result[key] = tree.Clone(currentVal)
	}

	if len(result) == 0 {
		return nil
	}
	return result
}

// Analysis is the one-level classification of template/current drift,
// used for human-facing reporting rather than override generation.
type Analysis struct {
	AddedKeys    []string
	ModifiedKeys []string
	DeletedKeys  []string
	Identical    bool
}

// Analyze classifies top-level keys of current against template
func Analyze(template, current interface{}) Analysis {
	templateMap, templateIsMap := tree.AsMap(template)
	currentMap, currentIsMap := tree.AsMap(current)

	if !templateIsMap || !currentIsMap {
		return Analysis{Identical: tree.Equal(template, current)}
	}

	var analysis Analysis
	for key, currentVal := range currentMap {
		templateVal, inTemplate := templateMap[key]
		if !inTemplate {
			analysis.AddedKeys = append(analysis.AddedKeys, key)
			continue
		}
		if !tree.Equal(templateVal, currentVal) {
			analysis.ModifiedKeys = append(analysis.ModifiedKeys, key)
		}
	}
	for key := range templateMap {
		if _, inCurrent := currentMap[key]; !inCurrent {
			analysis.DeletedKeys = append(analysis.DeletedKeys, key)
		}
	}

	sortKeys(analysis.AddedKeys)
	sortKeys(analysis.ModifiedKeys)
	sortKeys(analysis.DeletedKeys)
	analysis.Identical = len(analysis.AddedKeys) == 0 &&
		len(analysis.ModifiedKeys) == 0 &&
		len(analysis.DeletedKeys) == 0
	return analysis
}

func sortKeys(keys []string) {
	sort.Strings(keys)
}

// CountKeys reports the number of leaf/branch keys a diff carries,
// recorded alongside extracted overrides.
func CountKeys(diff interface{}) int {
	m, ok := tree.AsMap(diff)
	if !ok {
		if diff == nil {
			return 0
		}
		return 1
	}
	count := 0
	for _, v := range m {
		count++
		if tree.IsMap(v) {
			count += CountKeys(v)
		}
	}
	return count
}
