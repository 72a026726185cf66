// Package extension provides the Forge extension adapter for Quota.
//
// It implements the forge.Extension interface to integrate Quota
// into a Forge application with automatic dependency discovery,
// DI registration, and lifecycle management.
//
// Configuration can be provided programmatically via Option functions
// or via YAML configuration files under "extensions.quota" or "quota" keys.
package extension

import (
	"context"
	"errors"

	"github.com/xraph/forge"
	"github.com/xraph/vessel"

	"github.com/xraph/quota"
	"github.com/xraph/quota/store"
	"github.com/xraph/quota/store/memory"
)

// ExtensionName is the name registered with Forge.
const ExtensionName = "quota"

// ExtensionDescription is the human-readable description.
const ExtensionDescription = "Usage metering and subscription reconciliation engine"

// ExtensionVersion is the semantic version.
const ExtensionVersion = "0.1.0"

// Ensure Extension implements forge.Extension at compile time.
var _ forge.Extension = (*Extension)(nil)

// Extension adapts Quota as a Forge extension.
type Extension struct {
	*forge.BaseExtension

	config     Config
	engine     *quota.Engine
	store      store.Store
	engineOpts []quota.Option
}

// New creates a new Quota Forge extension with the given options.
func New(opts ...Option) *Extension {
	e := &Extension{
		BaseExtension: forge.NewBaseExtension(ExtensionName, ExtensionVersion, ExtensionDescription),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Engine returns the underlying quota engine.
// This is nil until Register is called.
func (e *Extension) Engine() *quota.Engine { return e.engine }

// Register implements [forge.Extension]. It loads configuration,
// initializes the quota engine, and registers it in the DI container.
func (e *Extension) Register(fapp forge.App) error {
	if err := e.BaseExtension.Register(fapp); err != nil {
		return err
	}

	if err := e.loadConfiguration(); err != nil {
		return err
	}

	// Use memory store if no store was provided programmatically.
	if e.store == nil {
		e.store = memory.New()
	}

	// Build engine options from resolved config.
	opts := e.buildEngineOpts()

	eng := quota.New(e.store, opts...)
	e.engine = eng

	return vessel.Provide(fapp.Container(), func() (*quota.Engine, error) {
		return e.engine, nil
	})
}

// Start implements [forge.Extension].
func (e *Extension) Start(ctx context.Context) error {
	if e.engine == nil {
		return errors.New("quota: extension not initialized")
	}

	if !e.config.DisableMigrate {
		if err := e.engine.Start(ctx); err != nil {
			return err
		}
	}

	e.MarkStarted()
	return nil
}

// Stop implements [forge.Extension].
func (e *Extension) Stop(_ context.Context) error {
	if e.engine != nil {
		if err := e.engine.Stop(); err != nil {
			e.MarkStopped()
			return err
		}
	}
	e.MarkStopped()
	return nil
}

// Health implements [forge.Extension].
func (e *Extension) Health(ctx context.Context) error {
	if e.store == nil {
		return errors.New("quota: store not initialized")
	}
	return e.store.Ping(ctx)
}

// buildEngineOpts constructs quota.Option values from the resolved config.
func (e *Extension) buildEngineOpts() []quota.Option {
	opts := make([]quota.Option, 0, len(e.engineOpts)+4)

	if e.config.SweepInterval > 0 {
		opts = append(opts, quota.WithSweepInterval(e.config.SweepInterval))
	}
	if e.config.SweepBatchSize > 0 {
		opts = append(opts, quota.WithSweepBatch(e.config.SweepBatchSize))
	}
	if e.config.HistoryLimit > 0 {
		opts = append(opts, quota.WithHistoryLimit(e.config.HistoryLimit))
	}
	if e.config.StoreTimeout > 0 {
		opts = append(opts, quota.WithStoreTimeout(e.config.StoreTimeout))
	}

	// Append any pass-through engine options.
	opts = append(opts, e.engineOpts...)

	return opts
}

// --- Config Loading (mirrors grove/shield extension pattern) ---

// loadConfiguration loads config from YAML files or programmatic sources.
func (e *Extension) loadConfiguration() error {
	programmaticConfig := e.config

	// Try loading from config file.
	fileConfig, configLoaded := e.tryLoadFromConfigFile()

	if !configLoaded {
		if programmaticConfig.RequireConfig {
			return errors.New("quota: configuration is required but not found in config files; " +
				"ensure 'extensions.quota' or 'quota' key exists in your config")
		}

		// Use programmatic config merged with defaults.
		e.config = e.mergeWithDefaults(programmaticConfig)
	} else {
		// Config loaded from YAML -- merge with programmatic options.
		e.config = e.mergeConfigurations(fileConfig, programmaticConfig)
	}

	e.Logger().Debug("quota: configuration loaded",
		forge.F("disable_migrate", e.config.DisableMigrate),
		forge.F("sweep_interval", e.config.SweepInterval),
		forge.F("sweep_batch_size", e.config.SweepBatchSize),
		forge.F("history_limit", e.config.HistoryLimit),
		forge.F("store_timeout", e.config.StoreTimeout),
	)

	return nil
}

// tryLoadFromConfigFile attempts to load config from YAML files.
func (e *Extension) tryLoadFromConfigFile() (Config, bool) {
	cm := e.App().Config()
	var cfg Config

	// Try "extensions.quota" first (namespaced pattern).
	if cm.IsSet("extensions.quota") {
		if err := cm.Bind("extensions.quota", &cfg); err == nil {
			e.Logger().Debug("quota: loaded config from file",
				forge.F("key", "extensions.quota"),
			)
			return cfg, true
		}
		e.Logger().Warn("quota: failed to bind extensions.quota config",
			forge.F("error", "bind failed"),
		)
	}

	// Try legacy "quota" key.
	if cm.IsSet("quota") {
		if err := cm.Bind("quota", &cfg); err == nil {
			e.Logger().Debug("quota: loaded config from file",
				forge.F("key", "quota"),
			)
			return cfg, true
		}
		e.Logger().Warn("quota: failed to bind quota config",
			forge.F("error", "bind failed"),
		)
	}

	return Config{}, false
}

// mergeWithDefaults fills zero-valued fields with defaults.
func (e *Extension) mergeWithDefaults(cfg Config) Config {
	defaults := DefaultConfig()
	if cfg.SweepInterval == 0 {
		cfg.SweepInterval = defaults.SweepInterval
	}
	if cfg.SweepBatchSize == 0 {
		cfg.SweepBatchSize = defaults.SweepBatchSize
	}
	if cfg.HistoryLimit == 0 {
		cfg.HistoryLimit = defaults.HistoryLimit
	}
	if cfg.StoreTimeout == 0 {
		cfg.StoreTimeout = defaults.StoreTimeout
	}
	return cfg
}

// mergeConfigurations merges YAML config with programmatic options.
// YAML config takes precedence for most fields; programmatic bool flags fill gaps.
func (e *Extension) mergeConfigurations(yamlConfig, programmaticConfig Config) Config {
	// Programmatic bool flags override when true.
	if programmaticConfig.DisableMigrate {
		yamlConfig.DisableMigrate = true
	}

	// Duration/int fields: YAML takes precedence, programmatic fills gaps.
	if yamlConfig.SweepInterval == 0 && programmaticConfig.SweepInterval != 0 {
		yamlConfig.SweepInterval = programmaticConfig.SweepInterval
	}
	if yamlConfig.SweepBatchSize == 0 && programmaticConfig.SweepBatchSize != 0 {
		yamlConfig.SweepBatchSize = programmaticConfig.SweepBatchSize
	}
	if yamlConfig.HistoryLimit == 0 && programmaticConfig.HistoryLimit != 0 {
		yamlConfig.HistoryLimit = programmaticConfig.HistoryLimit
	}
	if yamlConfig.StoreTimeout == 0 && programmaticConfig.StoreTimeout != 0 {
		yamlConfig.StoreTimeout = programmaticConfig.StoreTimeout
	}

	// Fill remaining zeros with defaults.
	return e.mergeWithDefaults(yamlConfig)
}
