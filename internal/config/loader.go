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
)

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New())
//  2. file (YAML) if DRISHTI_CONFIG is set
//  3. env (prefix DRISHTI_)
func Load(_ context.Context) (*Config, error) {
	base := New()

	k := koanf.New(".")

	if path := os.Getenv("DRISHTI_CONFIG"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
		}
	}

	// Environment variables: DRISHTI_ADDR, DRISHTI_MAX_TOP_N, ...
	// Map env keys like DRISHTI_MAX_TOP_N -> max_top_n (flat keys).
	// Preserve underscores to match koanf tags on the struct.
	envProvider := env.Provider("DRISHTI_", ".", func(s string) string {
		s = strings.ToLower(s)
		s = strings.TrimPrefix(s, "drishti_")
		return s
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.CacheTTLSeconds < 0:
		return fmt.Errorf("%w: cache_ttl_seconds must not be negative", ErrInvalidConfig)
	case c.MaxCompareIDs < 2:
		return fmt.Errorf("%w: max_compare_ids must be at least 2", ErrInvalidConfig)
	case c.MaxTopN < 1:
		return fmt.Errorf("%w: max_top_n must be at least 1", ErrInvalidConfig)
	case c.ForecastHorizon < 1:
		return fmt.Errorf("%w: forecast_horizon must be at least 1", ErrInvalidConfig)
	}
	return nil
}
