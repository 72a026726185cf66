package extension

import "time"

// Config holds the Quota extension configuration.
// Fields can be set programmatically via Option functions or loaded from
// YAML configuration files (under "extensions.quota" or "quota" keys).
type Config struct {
	// DisableMigrate prevents auto-migration on start.
	DisableMigrate bool `json:"disable_migrate" mapstructure:"disable_migrate" yaml:"disable_migrate"`

	// SweepInterval is how frequently the background sweep looks for
	// dormant ledgers whose reset instant has passed (default: 1h).
	SweepInterval time.Duration `json:"sweep_interval" mapstructure:"sweep_interval" yaml:"sweep_interval"`

	// SweepBatchSize caps how many due ledgers a single sweep pass
	// processes (default: 500).
	SweepBatchSize int `json:"sweep_batch_size" mapstructure:"sweep_batch_size" yaml:"sweep_batch_size"`

	// HistoryLimit is the number of usage events retained per account
	// (default: 500).
	HistoryLimit int `json:"history_limit" mapstructure:"history_limit" yaml:"history_limit"`

	// StoreTimeout bounds every store call made by the engine (default: 5s).
	StoreTimeout time.Duration `json:"store_timeout" mapstructure:"store_timeout" yaml:"store_timeout"`

	// RequireConfig requires config to be present in YAML files.
	// If true and no config is found, Register returns an error.
	RequireConfig bool `json:"-" yaml:"-"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		SweepInterval:  time.Hour,
		SweepBatchSize: 500,
		HistoryLimit:   500,
		StoreTimeout:   5 * time.Second,
	}
}
