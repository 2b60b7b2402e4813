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
//  1. defaults (New(ctx))
//  2. file (YAML) if TEMPO_CONFIG is set
//  3. env (prefix TEMPO_)
func Load(ctx context.Context) (*Config, error) {
	base := New(ctx)

	k := koanf.New(".")

	if path := os.Getenv("TEMPO_CONFIG"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrLoadConfig, err)
		}
	}

	// Environment variables: TEMPO_WORKER_COUNT -> worker_count. Underscores
	// are preserved to match the koanf tags on the struct.
	envProvider := env.Provider("TEMPO_", ".", func(s string) string {
		return strings.TrimPrefix(strings.ToLower(s), "tempo_")
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLoadConfig, err)
	}

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLoadConfig, err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.DBPath == "" {
		return fmt.Errorf("%w: db_path must not be empty", ErrInvalidConfig)
	}
	if c.WorkerCount < 1 {
		return fmt.Errorf("%w: worker_count must be positive", ErrInvalidConfig)
	}
	if c.FormulaTolerancePct <= 0 {
		return fmt.Errorf("%w: formula_tolerance_pct must be positive", ErrInvalidConfig)
	}
	if c.RejectedEventRatio <= 0 || c.RejectedEventRatio >= 1 {
		return fmt.Errorf("%w: rejected_event_ratio must be in (0, 1)", ErrInvalidConfig)
	}
	if c.MaxTeamImbalance < 1 {
		return fmt.Errorf("%w: max_team_imbalance must be positive", ErrInvalidConfig)
	}
	return nil
}
