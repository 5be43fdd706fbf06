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

	"github.com/okian/grouprank/internal/domain/eligibility"
)

// Environment variable names.
const (
	EnvPrefix = "GROUPRANK_"
	EnvFile   = "GROUPRANK_CONFIG"
)

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New(ctx))
//  2. file (YAML) if GROUPRANK_CONFIG is set
//  3. env (prefix GROUPRANK_)
func Load(ctx context.Context) (*Config, error) {
	base := New(ctx)

	k := koanf.New(".")

	if path := os.Getenv(EnvFile); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrLoadConfig, path, err)
		}
	}

	// GROUPRANK_FEED_CAPACITY -> feed_capacity. Underscores are kept to
	// match the flat koanf tags.
	envProvider := env.Provider(EnvPrefix, ".", func(s string) string {
		if s == EnvFile {
			return ""
		}
		return strings.TrimPrefix(strings.ToLower(s), strings.ToLower(EnvPrefix))
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: env: %w", ErrLoadConfig, err)
	}

	cfg := *base
	if k.Exists("groups") {
		// A configured list replaces the defaults rather than merging by index.
		cfg.Groups = nil
	}
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Addr) == "" {
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	}
	switch c.Store {
	case StoreMemory:
	case StoreSQLite:
		if strings.TrimSpace(c.SQLitePath) == "" {
			return fmt.Errorf("%w: sqlite_path must not be empty", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown store %q", ErrInvalidConfig, c.Store)
	}
	if _, err := eligibility.ParsePolicy(c.EligibilityPolicy); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if c.FeedCapacity <= 0 {
		return fmt.Errorf("%w: feed_capacity must be positive", ErrInvalidConfig)
	}
	if c.FeedPollIntervalMS <= 0 {
		return fmt.Errorf("%w: feed_poll_interval_ms must be positive", ErrInvalidConfig)
	}
	if c.ResetPeriodHours < 0 {
		return fmt.Errorf("%w: reset_period_hours must not be negative", ErrInvalidConfig)
	}
	if c.MaxCommentLength <= 0 {
		return fmt.Errorf("%w: max_comment_length must be positive", ErrInvalidConfig)
	}
	seen := make(map[string]struct{}, len(c.Groups))
	for _, g := range c.Groups {
		if strings.TrimSpace(g.ID) == "" {
			return fmt.Errorf("%w: group id must not be empty", ErrInvalidConfig)
		}
		if _, dup := seen[g.ID]; dup {
			return fmt.Errorf("%w: duplicate group id %q", ErrInvalidConfig, g.ID)
		}
		seen[g.ID] = struct{}{}
	}
	return nil
}
