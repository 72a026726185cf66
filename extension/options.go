package extension

import (
	"time"

	"github.com/xraph/quota"
	"github.com/xraph/quota/geolocate"
	"github.com/xraph/quota/plugin"
	"github.com/xraph/quota/store"
)

// Option configures the Quota Forge extension.
type Option func(*Extension)

// WithStore sets the store for the quota engine.
func WithStore(s store.Store) Option {
	return func(e *Extension) {
		e.store = s
	}
}

// WithEngineOption passes a quota.Option through to the underlying engine.
func WithEngineOption(opt quota.Option) Option {
	return func(e *Extension) {
		e.engineOpts = append(e.engineOpts, opt)
	}
}

// WithPlugin registers a quota plugin.
func WithPlugin(p plugin.Plugin) Option {
	return func(e *Extension) {
		e.engineOpts = append(e.engineOpts, quota.WithPlugin(p))
	}
}

// WithResolver sets the vision resolver used for image lookups.
func WithResolver(r geolocate.Resolver) Option {
	return func(e *Extension) {
		e.engineOpts = append(e.engineOpts, quota.WithResolver(r))
	}
}

// WithConfig sets the Forge extension configuration.
func WithConfig(cfg Config) Option {
	return func(e *Extension) { e.config = cfg }
}

// WithDisableMigrate prevents auto-migration on start.
func WithDisableMigrate() Option {
	return func(e *Extension) { e.config.DisableMigrate = true }
}

// WithRequireConfig requires config to be present in YAML files.
// If true and no config is found, Register returns an error.
func WithRequireConfig(require bool) Option {
	return func(e *Extension) { e.config.RequireConfig = require }
}

// WithSweepInterval sets how often the background sweep runs.
func WithSweepInterval(d time.Duration) Option {
	return func(e *Extension) { e.config.SweepInterval = d }
}

// WithSweepBatchSize caps how many due ledgers one sweep pass handles.
func WithSweepBatchSize(n int) Option {
	return func(e *Extension) { e.config.SweepBatchSize = n }
}

// WithHistoryLimit sets the number of usage events retained per account.
func WithHistoryLimit(n int) Option {
	return func(e *Extension) { e.config.HistoryLimit = n }
}

// WithStoreTimeout bounds every store call made by the engine.
func WithStoreTimeout(d time.Duration) Option {
	return func(e *Extension) { e.config.StoreTimeout = d }
}
