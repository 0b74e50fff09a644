package config

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/okian/tallybot/internal/validator"
)

const (
	// EnvPrefix prefixes every environment override.
	EnvPrefix = "TALLY_"
	// EnvConfigPath names the YAML file to load.
	EnvConfigPath = EnvPrefix + "CONFIG"
)

// listKeys are split on commas when they come from the environment.
var listKeys = map[string]bool{"excluded_senders": true}

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New(ctx))
//  2. file (YAML) if TALLY_CONFIG is set
//  3. env (prefix TALLY_)
func Load(ctx context.Context) (*Config, error) {
	cfg := New(ctx)

	k := koanf.New(".")

	if path := os.Getenv(EnvConfigPath); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrLoadConfig, path, err)
		}
	}

	// TALLY_QUEUE_SIZE -> queue_size. Underscores are kept to match koanf tags.
	envProvider := env.ProviderWithValue(EnvPrefix, ".", func(key, value string) (string, any) {
		key = strings.ToLower(strings.TrimPrefix(key, EnvPrefix))
		if key == "config" {
			return "", nil
		}
		if listKeys[key] {
			parts := strings.Split(value, ",")
			for i := range parts {
				parts[i] = strings.TrimSpace(parts[i])
			}
			return key, parts
		}
		return key, value
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: env: %w", ErrLoadConfig, err)
	}

	if err := k.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks struct rules and cross-field constraints.
func (c *Config) Validate() error {
	if err := validator.Err(validator.New().ValidateStruct(c)); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	names := make(map[string]bool, len(c.Streams))
	specifiers := make(map[string]bool, len(c.Streams))
	for _, s := range c.Streams {
		if names[s.StreamName] {
			return fmt.Errorf("%w: duplicate stream %q", ErrInvalidConfig, s.StreamName)
		}
		names[s.StreamName] = true
		if s.StreamSpecifier == "" {
			continue
		}
		if specifiers[s.StreamSpecifier] {
			return fmt.Errorf("%w: duplicate stream specifier %q", ErrInvalidConfig, s.StreamSpecifier)
		}
		specifiers[s.StreamSpecifier] = true
	}
	return nil
}
