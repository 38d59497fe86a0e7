// Package config defines engine configuration and loading.
//
// Conventions:
// - Provide New() defaults and Load(ctx) for layered loading.
// - Keep knobs here rather than scattered constants when product may
//   want to tune them per deployment.
package config

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// MetricsAddr is the Prometheus listen address, e.g. ":9090".
	MetricsAddr string `koanf:"metrics_addr"`

	// ShardCount configures the measurement store's user shards.
	ShardCount int `koanf:"shard_count"`

	// MilestonePercentages are the default goal checkpoints.
	MilestonePercentages []int `koanf:"milestone_percentages"`

	// DefaultZoneMethod is used when a zone profile does not pick one:
	// percentage or karvonen.
	DefaultZoneMethod string `koanf:"default_zone_method"`

	// MaxSummaryRangeDays caps how far back daily summary queries reach.
	MaxSummaryRangeDays int `koanf:"max_summary_range_days"`
}

// New creates a Config with defaults.
func New() *Config {
	return &Config{
		LogLevel:             "info",
		MetricsAddr:          ":9090",
		ShardCount:           16,
		MilestonePercentages: []int{25, 50, 75, 100},
		DefaultZoneMethod:    "percentage",
		MaxSummaryRangeDays:  366,
	}
}
