package logengine

import (
	"strings"

	"github.com/mitchellh/mapstructure"
)

// parseKeyValue splits "key=value" into its parts.
func parseKeyValue(s string) (key, value string, err error) {
	idx := strings.IndexByte(s, '=')
	if idx < 0 {
		return "", "", fmtErrorf("invalid override %q: expected key=value", s)
	}
	key = strings.TrimSpace(s[:idx])
	value = strings.TrimSpace(s[idx+1:])
	if key == "" {
		return "", "", fmtErrorf("invalid override %q: empty key", s)
	}
	return key, value, nil
}

// ApplyOverrides clones cfg and decodes a set of "key=value" strings
// into the clone using the same toml field tags the config file uses,
// so a reload.toml diff and a command-line override speak the same
// vocabulary. Unknown keys are rejected; type coercion (string ->
// bool/int/float) is handled by mapstructure's weakly-typed decoding,
// replacing the teacher's hand-rolled setFieldValue reflection switch.
func ApplyOverrides(cfg *Config, overrides ...string) (*Config, error) {
	clone := cfg.Clone()

	raw := make(map[string]any, len(overrides))
	for _, o := range overrides {
		key, value, err := parseKeyValue(o)
		if err != nil {
			return nil, err
		}
		raw[key] = value
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           clone,
		TagName:          "toml",
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		DecodeHook:       overrideDecodeHook,
	})
	if err != nil {
		return nil, fmtErrorf("failed to build override decoder: %w", err)
	}
	if err := decoder.Decode(raw); err != nil {
		return nil, fmtErrorf("failed to apply overrides: %w", err)
	}

	if err := clone.Validate(); err != nil {
		return nil, err
	}
	return clone, nil
}

// ApplyOverride is a single-string convenience wrapper around
// ApplyOverrides.
func (c *Config) ApplyOverride(override string) (*Config, error) {
	return ApplyOverrides(c, override)
}
