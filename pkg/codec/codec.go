// Package codec maps file paths to parse formats and provides the
// parse/stringify pairs for JSON (including JSONC-style input), YAML and
// TOML. Anything unrecognized is treated as opaque text.
package codec

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"strings"

	"github.com/arthur-debert/confit/pkg/errors"
	"github.com/arthur-debert/confit/pkg/types"
	toml "github.com/pelletier/go-toml/v2"
	"github.com/tailscale/hujson"
	"gopkg.in/yaml.v3"
)

// relaxedJSONExts accept comments and trailing commas, standardized via
// hujson before parsing
var relaxedJSONExts = map[string]bool{
	".jsonc":          true,
	".json5":          true,
	".code-workspace": true,
}

// FormatFor determines the parse format from a file path
func FormatFor(path string) types.Format {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".json":
		return types.FormatJSON
	case ".yaml", ".yml":
		return types.FormatYAML
	case ".toml":
		return types.FormatTOML
	default:
		if relaxedJSONExts[ext] {
			return types.FormatJSON
		}
		return types.FormatText
	}
}

// Parse decodes data according to the path's format. Text formats return
// (nil, nil): callers keep the raw body instead.
func Parse(path string, data []byte) (interface{}, error) {
	switch FormatFor(path) {
	case types.FormatJSON:
		raw := data
		if relaxedJSONExts[strings.ToLower(filepath.Ext(path))] {
			standardized, err := hujson.Standardize(data)
			if err != nil {
				return nil, errors.Wrapf(err, errors.ErrSourceParse, "invalid JSONC in %s", path)
			}
			raw = standardized
		}
		var v interface{}
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, errors.Wrapf(err, errors.ErrSourceParse, "invalid JSON in %s", path)
		}
		return v, nil

	case types.FormatYAML:
		var v interface{}
		if err := yaml.Unmarshal(data, &v); err != nil {
			return nil, errors.Wrapf(err, errors.ErrSourceParse, "invalid YAML in %s", path)
		}
		return normalizeYAML(v), nil

	case types.FormatTOML:
		var v map[string]interface{}
		if err := toml.Unmarshal(data, &v); err != nil {
			return nil, errors.Wrapf(err, errors.ErrSourceParse, "invalid TOML in %s", path)
		}
		return map[string]interface{}(v), nil

	default:
		return nil, nil
	}
}

// Stringify encodes a tree for writing, always with a trailing newline
func Stringify(format types.Format, v interface{}) (string, error) {
	switch format {
	case types.FormatJSON:
		var buf bytes.Buffer
		enc := json.NewEncoder(&buf)
		enc.SetIndent("", "  ")
		enc.SetEscapeHTML(false)
		if err := enc.Encode(v); err != nil {
			return "", errors.Wrap(err, errors.ErrInternal, "cannot encode JSON")
		}
		return buf.String(), nil

	case types.FormatYAML:
		out, err := yaml.Marshal(v)
		if err != nil {
			return "", errors.Wrap(err, errors.ErrInternal, "cannot encode YAML")
		}
		return string(out), nil

	case types.FormatTOML:
		out, err := toml.Marshal(v)
		if err != nil {
			return "", errors.Wrap(err, errors.ErrInternal, "cannot encode TOML")
		}
		return string(out), nil

	default:
		s, _ := v.(string)
		if s != "" && !strings.HasSuffix(s, "\n") {
			s += "\n"
		}
		return s, nil
	}
}

// normalizeYAML rewrites yaml.v3's map[interface{}]interface{} shapes (from
// non-string keys) into the JSON-compatible tree the strategies expect.
func normalizeYAML(v interface{}) interface{} {
	switch val := v.(type) {
	case map[string]interface{}:
		for k, child := range val {
			val[k] = normalizeYAML(child)
		}
		return val
	case map[interface{}]interface{}:
		out := make(map[string]interface{}, len(val))
		for k, child := range val {
			key, ok := k.(string)
			if !ok {
				key = strings.TrimSpace(stringifyScalar(k))
			}
			out[key] = normalizeYAML(child)
		}
		return out
	case []interface{}:
		for i, child := range val {
			val[i] = normalizeYAML(child)
		}
		return val
	default:
		return v
	}
}

func stringifyScalar(v interface{}) string {
	out, err := yaml.Marshal(v)
	if err != nil {
		return ""
	}
	return string(out)
}
