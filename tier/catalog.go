package tier

import (
	"log/slog"

	"github.com/xraph/quota/types"
)

// Catalog maps tiers to their definitions. A Catalog is built once at
// startup and never mutated afterward, so it is safe for concurrent reads
// without locking.
type Catalog struct {
	defs   map[Tier]Definition
	logger *slog.Logger
}

// NewCatalog builds a catalog from the given definitions. Later definitions
// for the same tier override earlier ones.
func NewCatalog(defs ...Definition) *Catalog {
	m := make(map[Tier]Definition, len(defs))
	for _, d := range defs {
		m[d.Tier] = d
	}
	return &Catalog{defs: m, logger: slog.Default()}
}

// WithLogger sets the logger used to report unknown-tier lookups and
// returns the catalog for chaining.
func (c *Catalog) WithLogger(l *slog.Logger) *Catalog {
	c.logger = l
	return c
}

// DefaultCatalog returns the stock catalog: a free weekly tier and two
// paid tiers on anchored 30-day cycles.
func DefaultCatalog() *Catalog {
	return NewCatalog(
		Definition{Tier: Free, Limit: 3, Period: PeriodWeekly, Price: types.USD(0)},
		Definition{Tier: Standard, Limit: 100, Period: PeriodMonthly, Price: types.USD(499), Anchored: true},
		Definition{Tier: Pro, Limit: 1000, Period: PeriodMonthly, Price: types.USD(1499), Anchored: true},
	)
}

// Lookup returns the definition for t and whether t was present.
func (c *Catalog) Lookup(t Tier) (Definition, bool) {
	d, ok := c.defs[t]
	return d, ok
}

// Resolve returns the definition for t, falling back to the Free
// definition when t is unknown. Resolving an unknown tier never grants
// more than the most restrictive allowance. The fallback is logged so a
// stale or corrupt tier value on a stored account is visible.
func (c *Catalog) Resolve(t Tier) Definition {
	if d, ok := c.defs[t]; ok {
		return d
	}
	c.logger.Warn("unknown tier, metering as free", "tier", string(t))
	return c.defs[Free]
}

// Tiers returns the tiers present in the catalog.
func (c *Catalog) Tiers() []Tier {
	out := make([]Tier, 0, len(c.defs))
	for t := range c.defs {
		out = append(out, t)
	}
	return out
}
