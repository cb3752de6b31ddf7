// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Defaults live in New; Load layers file and environment on top.
// - All functions accept context.Context as the first parameter.
// - Validation failures wrap ErrInvalidConfig.
package config

import (
	"context"
	"time"
)

// Store kinds understood by the service.
const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`
	// LogFormat selects the log handler: text or json.
	LogFormat string `koanf:"log_format"`
	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`
	// RequestTimeoutMS bounds every priority request, store reads included.
	RequestTimeoutMS int `koanf:"request_timeout_ms"`
	// MetricsRefreshMS is how often system gauges are sampled.
	MetricsRefreshMS int `koanf:"metrics_refresh_ms"`

	// Store selects the record source: memory or postgres.
	Store string `koanf:"store"`
	// DatabaseDSN is the postgres connection string.
	DatabaseDSN string `koanf:"database_dsn"`
	// DBMaxOpenConns caps the database/sql pool.
	DBMaxOpenConns int `koanf:"db_max_open_conns"`

	// WindowDays is the trailing history window length.
	WindowDays int `koanf:"window_days"`
	// WeightTotal, WeightRole and WeightGap are the score weights.
	WeightTotal float64 `koanf:"weight_total"`
	WeightRole  float64 `koanf:"weight_role"`
	WeightGap   float64 `koanf:"weight_gap"`
	// CollationLocale is the BCP-47 tag used to order usernames on ties.
	CollationLocale string `koanf:"collation_locale"`
	// Timezone converts decision timestamps into calendar days.
	Timezone string `koanf:"timezone"`

	// SeedEvents fills the memory store with generated history at startup.
	// Zero disables seeding.
	SeedEvents int `koanf:"seed_events"`
	// SeedUsers is the size of the generated volunteer population.
	SeedUsers int `koanf:"seed_users"`
}

// New creates a Config populated with defaults.
func New(_ context.Context) *Config {
	return &Config{
		LogLevel:         "info",
		LogFormat:        "text",
		Addr:             ":9080",
		RequestTimeoutMS: 5_000,
		MetricsRefreshMS: 10_000,
		Store:            StoreMemory,
		DBMaxOpenConns:   10,
		WindowDays:       30,
		WeightTotal:      4,
		WeightRole:       1,
		WeightGap:        3,
		CollationLocale:  "ja",
		Timezone:         "Asia/Tokyo",
		SeedUsers:        40,
	}
}

// MetricsRefresh returns MetricsRefreshMS as a duration.
func (c *Config) MetricsRefresh() time.Duration {
	return time.Duration(c.MetricsRefreshMS) * time.Millisecond
}

// RequestTimeout returns RequestTimeoutMS as a duration.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutMS) * time.Millisecond
}
