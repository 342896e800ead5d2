package discovery

import (
	"regexp"
	"strings"

	"github.com/arthur-debert/confit/pkg/errors"
	"github.com/arthur-debert/confit/pkg/types"
	"github.com/go-viper/mapstructure/v2"
)

// Reserved metadata keys fragments declare inline
const (
	MetaTargetPath = "_targetPath"
	MetaStrategy   = "_mergeStrategy"
	MetaPriority   = "_priority"
	MetaConditions = "_conditions"
	MetaCopy       = "_copy"
	MetaActiveOnly = "_activeOnly"
)

// rawMeta is the mapstructure decode target for the reserved keys
type rawMeta struct {
	TargetPath interface{}       `mapstructure:"_targetPath"`
	Strategy   string            `mapstructure:"_mergeStrategy"`
	Priority   *int              `mapstructure:"_priority"`
	Conditions *types.Conditions `mapstructure:"_conditions"`
	Copy       bool              `mapstructure:"_copy"`
	ActiveOnly *bool             `mapstructure:"_activeOnly"`
}

// ExtractStructuredMeta pulls the reserved _-prefixed keys out of a parsed
// fragment object. It returns the metadata and a copy of the content with
// every underscore-prefixed key stripped, so reserved keys never leak into
// merge results.
func ExtractStructuredMeta(content map[string]interface{}) (*types.FragmentMeta, map[string]interface{}, error) {
	metaMap := make(map[string]interface{})
	stripped := make(map[string]interface{}, len(content))
	for k, v := range content {
		if strings.HasPrefix(k, "_") {
			metaMap[k] = v
			continue
		}
		stripped[k] = v
	}

	meta, err := decodeMeta(metaMap)
	if err != nil {
		return nil, nil, err
	}
	return meta, stripped, nil
}

var textMetaLine = regexp.MustCompile(`^_([A-Za-z][A-Za-z0-9.]*)=(.*)$`)

// ExtractTextMeta parses leading _key=value lines of a plain-text fragment
// and returns the metadata plus the body with those lines removed. Nested
// condition keys use dots: _conditions.env=production.
func ExtractTextMeta(body string) (*types.FragmentMeta, string, error) {
	lines := strings.Split(body, "\n")
	metaMap := make(map[string]interface{})

	consumed := 0
	for _, line := range lines {
		m := textMetaLine.FindStringSubmatch(strings.TrimRight(line, "\r"))
		if m == nil {
			break
		}
		consumed++
		setDotted(metaMap, "_"+m[1], m[2])
	}

	meta, err := decodeMeta(metaMap)
	if err != nil {
		return nil, "", err
	}
	return meta, strings.Join(lines[consumed:], "\n"), nil
}

// setDotted stores a value under a possibly dotted key, splitting
// comma-separated list-valued keys
func setDotted(dst map[string]interface{}, key, value string) {
	listKeys := map[string]bool{
		MetaTargetPath:                true,
		MetaConditions + ".activeModules": true,
	}

	var v interface{} = value
	if listKeys[key] {
		parts := strings.Split(value, ",")
		list := make([]interface{}, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				list = append(list, trimmed)
			}
		}
		v = list
	}

	segments := strings.Split(key, ".")
	cur := dst
	for _, seg := range segments[:len(segments)-1] {
		next, ok := cur[seg].(map[string]interface{})
		if !ok {
			next = make(map[string]interface{})
			cur[seg] = next
		}
		cur = next
	}
	cur[segments[len(segments)-1]] = v
}

func decodeMeta(metaMap map[string]interface{}) (*types.FragmentMeta, error) {
	var raw rawMeta
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &raw,
		WeaklyTypedInput: true,
		TagName:          "mapstructure",
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrInternal, "cannot build metadata decoder")
	}
	if err := decoder.Decode(metaMap); err != nil {
		return nil, errors.Wrap(err, errors.ErrSourceMetadata, "malformed fragment metadata")
	}

	targets, err := targetPathList(raw.TargetPath)
	if err != nil {
		return nil, err
	}

	return &types.FragmentMeta{
		TargetPaths: targets,
		Strategy:    raw.Strategy,
		Priority:    raw.Priority,
		Conditions:  raw.Conditions,
		Copy:        raw.Copy,
		ActiveOnly:  raw.ActiveOnly,
	}, nil
}

// targetPathList accepts a single string or a list of strings. Empty
// entries are dropped; the caller enforces that at least one remains.
func targetPathList(v interface{}) ([]string, error) {
	switch val := v.(type) {
	case nil:
		return nil, nil
	case string:
		if strings.TrimSpace(val) == "" {
			return nil, nil
		}
		return []string{val}, nil
	case []interface{}:
		var out []string
		for _, item := range val {
			s, ok := item.(string)
			if !ok {
				return nil, errors.Newf(errors.ErrSourceMetadata, "_targetPath entries must be strings, got %T", item)
			}
			if strings.TrimSpace(s) != "" {
				out = append(out, s)
			}
		}
		return out, nil
	case []string:
		return val, nil
	default:
		return nil, errors.Newf(errors.ErrSourceMetadata, "_targetPath must be a string or list, got %T", v)
	}
}
