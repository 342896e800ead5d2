package engine

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/arthur-debert/confit/pkg/codec"
	"github.com/arthur-debert/confit/pkg/types"
)

// render stringifies a merge result and prepends the provenance header
// where the target format can carry comments.
func (e *Engine) render(target string, format types.Format, result interface{}, sources []string) (string, error) {
	body, err := codec.Stringify(format, result)
	if err != nil {
		return "", err
	}

	if !e.settings.Header {
		return body, nil
	}
	prefix := commentPrefix(target, format)
	if prefix == "" {
		return body, nil
	}
	return e.header(prefix, sources) + body, nil
}

func (e *Engine) header(prefix string, sources []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s Generated by confit. Do not edit: changes belong in a source below.\n", prefix)
	for _, src := range sources {
		rel, err := filepath.Rel(e.paths.ProjectRoot(), src)
		if err != nil {
			rel = src
		}
		fmt.Fprintf(&b, "%s   %s\n", prefix, rel)
	}
	return b.String()
}

// commentPrefix returns the line-comment marker for a target, or "" when
// the format cannot carry comments (strict JSON).
func commentPrefix(target string, format types.Format) string {
	switch format {
	case types.FormatYAML, types.FormatTOML, types.FormatText:
		return "#"
	case types.FormatJSON:
		ext := strings.ToLower(filepath.Ext(target))
		if ext == ".jsonc" || ext == ".json5" || ext == ".code-workspace" {
			return "//"
		}
		return ""
	default:
		return ""
	}
}
