// Package config loads confit's own settings with koanf: embedded
// defaults, then the project's confit.toml (or .confit.toml), then
// CONFIT_-prefixed environment variables.
package config

import (
	_ "embed"
	"os"
	"path/filepath"
	"strings"

	"github.com/arthur-debert/confit/pkg/errors"
	"github.com/arthur-debert/confit/pkg/logging"
	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

//go:embed default.toml
var defaultConfig []byte

// EnvPrefix namespaces the environment variables koanf reads
const EnvPrefix = "CONFIT_"

// Settings are the user-tunable knobs of a confit run
type Settings struct {
	// Env is the runtime environment name fragments' conditions match against
	Env string `koanf:"env"`

	// MergeMode selects the deep-merge null/array policy: strict or legacy
	MergeMode string `koanf:"merge_mode"`

	// Header toggles the provenance banner on generated artifacts
	Header bool `koanf:"header"`

	// StrictValidation promotes validate warnings to failures
	StrictValidation bool `koanf:"strict_validation"`

	// Filters restricts apply to targets matching any of these patterns
	Filters []string `koanf:"filters"`

	// Variables overlay the process environment for {{NAME}} resolution
	Variables map[string]string `koanf:"variables"`
}

// rawBytesProvider feeds embedded bytes to koanf
type rawBytesProvider struct {
	bytes []byte
}

func (r *rawBytesProvider) ReadBytes() ([]byte, error) {
	return r.bytes, nil
}

func (r *rawBytesProvider) Read() (map[string]interface{}, error) {
	return nil, errors.New(errors.ErrInternal, "rawBytesProvider does not support Read")
}

// Load builds Settings for the given project root
func Load(projectRoot string) (*Settings, error) {
	logger := logging.GetLogger("config")
	k := koanf.New(".")

	// 1. Hard floor, then the embedded defaults file over it. The floor
	// keeps required keys set even if default.toml is trimmed.
	base := map[string]interface{}{
		"env":        "development",
		"merge_mode": "strict",
		"header":     true,
	}
	if err := k.Load(confmap.Provider(base, "."), nil); err != nil {
		return nil, errors.Wrap(err, errors.ErrConfigLoad, "failed to load base settings")
	}
	if err := k.Load(&rawBytesProvider{bytes: defaultConfig}, toml.Parser()); err != nil {
		return nil, errors.Wrap(err, errors.ErrConfigLoad, "failed to load defaults")
	}

	// 2. Project settings file, first match wins
	for _, filename := range []string{".confit.toml", "confit.toml"} {
		path := filepath.Join(projectRoot, filename)
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), toml.Parser()); err != nil {
				return nil, errors.Wrapf(err, errors.ErrConfigParse, "failed to load %s", path)
			}
			logger.Debug().Str("path", path).Msg("loaded project settings")
			break
		}
	}

	// 3. Environment: CONFIT_MERGE_MODE=legacy etc. Variable overrides are
	// left to the settings file; env vars feed resolution directly.
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	}), nil); err != nil {
		return nil, errors.Wrap(err, errors.ErrConfigLoad, "failed to load environment settings")
	}

	var settings Settings
	if err := k.UnmarshalWithConf("", &settings, koanf.UnmarshalConf{
		Tag: "koanf",
		DecoderConfig: &mapstructure.DecoderConfig{
			Result:           &settings,
			WeaklyTypedInput: true,
			Squash:           true,
		},
	}); err != nil {
		return nil, errors.Wrap(err, errors.ErrConfigParse, "failed to decode settings")
	}

	if settings.MergeMode != "strict" && settings.MergeMode != "legacy" {
		return nil, errors.Newf(errors.ErrConfigParse, "invalid merge_mode %q (want strict or legacy)", settings.MergeMode)
	}

	logger.Debug().
		Str("env", settings.Env).
		Str("mergeMode", settings.MergeMode).
		Msg("settings loaded")
	return &settings, nil
}
