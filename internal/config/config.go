// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New(ctx) to build a Config with defaults.
// - Load layers defaults, an optional YAML file and GROUPRANK_ env vars.
// - Validation failures wrap ErrInvalidConfig.
package config

import (
	"context"
)

// Store backends.
const (
	StoreMemory = "memory"
	StoreSQLite = "sqlite"
)

// Group is a seed entry for a rateable group.
type Group struct {
	ID   string `koanf:"id"`
	Name string `koanf:"name"`
}

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the log handler: text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// Store selects the persistence backend: memory or sqlite.
	Store string `koanf:"store"`

	// SQLitePath is the database file used when Store is sqlite.
	SQLitePath string `koanf:"sqlite_path"`

	// FeedCapacity bounds the live feed window.
	FeedCapacity int `koanf:"feed_capacity"`

	// FeedPollIntervalMS is advertised to polling clients.
	FeedPollIntervalMS int `koanf:"feed_poll_interval_ms"`

	// ResetPeriodHours clears every rating after this many hours. 0 disables.
	ResetPeriodHours int `koanf:"reset_period_hours"`

	// EligibilityPolicy is strict or own_group.
	EligibilityPolicy string `koanf:"eligibility_policy"`

	// MaxCommentLength caps rating comments, in characters.
	MaxCommentLength int `koanf:"max_comment_length"`

	// Groups are ensured to exist on start.
	Groups []Group `koanf:"groups"`
}

// DefaultGroups returns the built-in seed groups.
func DefaultGroups() []Group {
	return []Group{
		{ID: "1", Name: "Path finder"},
		{ID: "2", Name: "Nova"},
		{ID: "3", Name: "Fusion force"},
		{ID: "4", Name: "Wit squad"},
		{ID: "5", Name: "Explorers"},
	}
}

// New creates a Config with defaults. Context is accepted first to satisfy
// the project-wide convention and is currently unused.
func New(_ context.Context) *Config {
	return &Config{
		LogLevel:           "info",
		LogFormat:          "text",
		Addr:               ":9080",
		Store:              StoreMemory,
		SQLitePath:         "grouprank.db",
		FeedCapacity:       15,
		FeedPollIntervalMS: 5000,
		ResetPeriodHours:   7 * 24,
		EligibilityPolicy:  "strict",
		MaxCommentLength:   500,
		Groups:             DefaultGroups(),
	}
}
