package config

import (
	"context"
	"errors"
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
//  2. file (YAML) if HEALTHENGINE_CONFIG is set
//  3. env (prefix HEALTHENGINE_)
func Load(_ context.Context) (*Config, error) {
	base := New()

	k := koanf.New(".")

	if path := os.Getenv("HEALTHENGINE_CONFIG"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, err
		}
	}

	// Environment variables: HEALTHENGINE_LOG_LEVEL, HEALTHENGINE_SHARD_COUNT, ...
	// mapped to flat keys matching the koanf tags on the struct.
	envProvider := env.Provider("HEALTHENGINE_", ".", func(s string) string {
		s = strings.ToLower(s)
		return strings.TrimPrefix(s, "healthengine_")
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, err
	}

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, err
	}

	if cfg.MetricsAddr == "" {
		return nil, errors.New("metrics_addr must not be empty")
	}
	if cfg.ShardCount <= 0 {
		return nil, errors.New("shard_count must be positive")
	}
	for i, pct := range cfg.MilestonePercentages {
		if pct <= 0 || pct > 100 {
			return nil, errors.New("milestone percentages must be in (0, 100]")
		}
		if i > 0 && pct <= cfg.MilestonePercentages[i-1] {
			return nil, errors.New("milestone percentages must be ascending")
		}
	}
	return &cfg, nil
}
