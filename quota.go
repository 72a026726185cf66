package quota

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/xraph/quota/geolocate"
	"github.com/xraph/quota/plugin"
	"github.com/xraph/quota/provider"
	"github.com/xraph/quota/store"
	"github.com/xraph/quota/tier"
)

// Engine is the usage-metering and subscription-reconciliation engine.
type Engine struct {
	store    store.Store
	plugins  *plugin.Registry
	logger   *slog.Logger
	catalog  *tier.Catalog
	plans    provider.PlanMap
	resolver geolocate.Resolver

	// Background workers
	stopChan chan struct{}
	wg       sync.WaitGroup

	clock func() time.Time

	// Configuration
	storeTimeout  time.Duration
	sweepInterval time.Duration
	sweepBatch    int
	historyLimit  int
}

// New creates a new Engine instance.
func New(s store.Store, opts ...Option) *Engine {
	e := &Engine{
		store:         s,
		plugins:       plugin.NewRegistry(),
		logger:        slog.Default(),
		catalog:       tier.DefaultCatalog(),
		plans:         provider.DefaultPlanMap(),
		stopChan:      make(chan struct{}),
		clock:         time.Now,
		storeTimeout:  5 * time.Second,
		sweepInterval: time.Hour,
		sweepBatch:    500,
		historyLimit:  500,
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Option configures an Engine instance.
type Option func(*Engine)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
		e.plugins.WithLogger(logger)
	}
}

// WithPlugin registers a plugin.
func WithPlugin(p plugin.Plugin) Option {
	return func(e *Engine) {
		_ = e.plugins.Register(p) //nolint:errcheck // best-effort plugin registration during init
	}
}

// WithCatalog sets the tier catalog. The catalog is read-only after
// construction; pass the full set of tiers up front.
func WithCatalog(c *tier.Catalog) Option {
	return func(e *Engine) {
		e.catalog = c
	}
}

// WithPlanMap sets the provider plan-identifier mapping.
func WithPlanMap(m provider.PlanMap) Option {
	return func(e *Engine) {
		e.plans = m
	}
}

// WithResolver sets the vision resolver used by Process.
func WithResolver(r geolocate.Resolver) Option {
	return func(e *Engine) {
		e.resolver = r
	}
}

// WithStoreTimeout bounds every persistence call. Past the deadline the
// gate fails closed.
func WithStoreTimeout(d time.Duration) Option {
	return func(e *Engine) {
		e.storeTimeout = d
	}
}

// WithSweepInterval sets how often the batch reset worker runs.
func WithSweepInterval(d time.Duration) Option {
	return func(e *Engine) {
		e.sweepInterval = d
	}
}

// WithSweepBatch sets how many due accounts one sweep pass handles.
func WithSweepBatch(n int) Option {
	return func(e *Engine) {
		e.sweepBatch = n
	}
}

// WithHistoryLimit caps how many events the ledger history retains.
func WithHistoryLimit(n int) Option {
	return func(e *Engine) {
		e.historyLimit = n
	}
}

// WithClock overrides the time source. Tests pin it to a fixed instant.
func WithClock(clock func() time.Time) Option {
	return func(e *Engine) {
		e.clock = clock
	}
}

// Start migrates the store and begins background workers.
func (e *Engine) Start(ctx context.Context) error {
	// Migrate database
	if err := e.store.Migrate(ctx); err != nil {
		return err
	}

	// Initialize plugins
	e.plugins.EmitInit(ctx, e)

	// Start sweep worker
	e.wg.Add(1)
	go e.sweepWorker(ctx)

	e.logger.Info("quota engine started",
		"sweep_interval", e.sweepInterval,
		"store_timeout", e.storeTimeout,
		"history_limit", e.historyLimit,
	)

	return nil
}

// Stop shuts down the Engine.
func (e *Engine) Stop() error {
	close(e.stopChan)
	e.wg.Wait()

	ctx := context.Background()
	e.plugins.EmitShutdown(ctx)

	return e.store.Close()
}

// Catalog returns the injected tier catalog.
func (e *Engine) Catalog() *tier.Catalog {
	return e.catalog
}

// storeCtx bounds a persistence call with the configured timeout.
func (e *Engine) storeCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, e.storeTimeout)
}
