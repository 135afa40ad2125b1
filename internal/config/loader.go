package config

import (
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
//  2. file (YAML) if DEALSENSE_CONFIG is set
//  3. env (prefix DEALSENSE_)
func Load() (*Config, error) {
	base := New()

	k := koanf.New(".")

	if path := os.Getenv("DEALSENSE_CONFIG"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, err
		}
	}

	// Environment variables: DEALSENSE_DB_PATH, DEALSENSE_LOOKBACK_DAYS, ...
	// Underscores are preserved to match the koanf tags on the struct.
	envProvider := env.Provider("DEALSENSE_", ".", func(s string) string {
		s = strings.ToLower(s)
		s = strings.TrimPrefix(s, "dealsense_")
		return s
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, err
	}

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, err
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.DBPath == "" {
		return errors.New("db_path must not be empty")
	}
	if c.LookbackDays <= 0 {
		return errors.New("lookback_days must be positive")
	}
	if c.MinMatchScore < 0 || c.MinMatchScore > 1 {
		return errors.New("min_match_score must be within [0,1]")
	}
	if c.Workers <= 0 {
		return errors.New("workers must be positive")
	}
	if c.ScoreRatePerSec < 0 {
		return errors.New("score_rate_per_sec must not be negative")
	}
	if c.FailAfterDays < 0 {
		return errors.New("fail_after_days must not be negative")
	}
	return nil
}
