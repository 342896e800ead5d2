// Package vars substitutes {{NAME}} placeholders in paths and file bodies.
// Resolution is all-or-nothing: either every placeholder resolves or the
// call fails listing the missing names, so callers never see a
// half-templated result.
package vars

import (
	"fmt"
	"os"
	"regexp"
	"strings"
)

var placeholderPattern = regexp.MustCompile(`\{\{([A-Za-z_][A-Za-z0-9_]*)\}\}`)

// MissingVariablesError lists every undefined placeholder found in a text,
// in first-occurrence order with duplicates removed.
type MissingVariablesError struct {
	Names []string
}

func (e *MissingVariablesError) Error() string {
	return fmt.Sprintf("unresolved template variables: %s", strings.Join(e.Names, ", "))
}

// Resolver resolves placeholders from the process environment overlaid
// with explicit overrides (settings-file variables win over the
// environment).
type Resolver struct {
	overrides map[string]string
}

// NewResolver creates a resolver. overrides may be nil.
func NewResolver(overrides map[string]string) *Resolver {
	return &Resolver{overrides: overrides}
}

func (r *Resolver) lookup(name string) (string, bool) {
	if v, ok := r.overrides[name]; ok {
		return v, true
	}
	return os.LookupEnv(name)
}

// Resolve substitutes every placeholder in text. If any referenced
// variable is undefined it returns a MissingVariablesError naming all of
// them and the original text is not partially substituted.
// Resolving already-resolved text is a no-op.
func (r *Resolver) Resolve(text string) (string, error) {
	var missing []string
	seen := make(map[string]bool)

	for _, name := range ExtractVariables(text) {
		if _, ok := r.lookup(name); !ok && !seen[name] {
			seen[name] = true
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return "", &MissingVariablesError{Names: missing}
	}

	resolved := placeholderPattern.ReplaceAllStringFunc(text, func(match string) string {
		name := placeholderPattern.FindStringSubmatch(match)[1]
		v, _ := r.lookup(name)
		return v
	})
	return resolved, nil
}

// HasVariables reports whether text contains any placeholder
func HasVariables(text string) bool {
	return placeholderPattern.MatchString(text)
}

// ExtractVariables returns placeholder names in first-occurrence order,
// duplicates removed.
func ExtractVariables(text string) []string {
	var names []string
	seen := make(map[string]bool)
	for _, match := range placeholderPattern.FindAllStringSubmatch(text, -1) {
		if !seen[match[1]] {
			seen[match[1]] = true
			names = append(names, match[1])
		}
	}
	return names
}
