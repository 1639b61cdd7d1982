// Package cascade composes the retrieval tiers: live scraping, then the mock catalog,
// then query-derived placeholders.
package cascade

import (
	"context"
	"time"

	"sjsage522/shopcompare/internal/mock"
	"sjsage522/shopcompare/internal/product"
	"sjsage522/shopcompare/internal/scraper"
	"sjsage522/shopcompare/logger"
	"sjsage522/shopcompare/pkg/metrics"
)

// Tier names the strategy that supplied a platform's products
type Tier string

const (
	TierReal        Tier = "real"
	TierMock        Tier = "mock"
	TierPlaceholder Tier = "placeholder"
	// TierNone marks a platform for which every strategy came back empty
	TierNone Tier = "none"
)

// rank orders tiers by data quality, higher is worse
func (t Tier) rank() int {
	switch t {
	case TierReal:
		return 0
	case TierMock:
		return 1
	case TierPlaceholder:
		return 2
	default:
		return -1
	}
}

// Worst returns the lowest-quality tier that actually contributed. TierNone is ignored.
func Worst(tiers ...Tier) Tier {
	worst := TierNone
	for _, t := range tiers {
		if t.rank() > worst.rank() {
			worst = t
		}
	}
	return worst
}

// Strategy is one tier of the cascade. Fetch returns nil or empty when it has nothing.
type Strategy interface {
	Tier() Tier
	Fetch(ctx context.Context, platform product.Platform, query string, opts scraper.SearchOptions) []product.Product
}

// Outcome is the result of running the cascade for one platform and query
type Outcome struct {
	Platform product.Platform
	Query    string
	Tier     Tier
	Products []product.Product
	Elapsed  time.Duration
}

// Cascade tries its strategies in order and keeps the first non-empty result
type Cascade struct {
	strategies []Strategy
	metrics    *metrics.SearchMetrics
	now        func() time.Time
	log        *logger.Logger
}

// Options configures the default cascade
type Options struct {
	// RealDeadline bounds each live scrape
	RealDeadline time.Duration
	// EnableMock turns the mock catalog tier on
	EnableMock bool
	Metrics    *metrics.SearchMetrics
}

// New creates a cascade over explicit strategies
func New(m *metrics.SearchMetrics, strategies ...Strategy) *Cascade {
	return &Cascade{
		strategies: strategies,
		metrics:    m,
		now:        time.Now,
		log:        logger.ForCascade(),
	}
}

// NewDefault creates the real then mock cascade
func NewDefault(registry *scraper.Registry, catalog *mock.Catalog, opts Options) *Cascade {
	strategies := []Strategy{NewRealStrategy(registry, opts.RealDeadline)}
	if opts.EnableMock {
		strategies = append(strategies, NewMockStrategy(catalog))
	}
	return New(opts.Metrics, strategies...)
}

// Run folds over the strategies and stops at the first non-empty product list.
// Strategies after a timed-out or cancelled one still run, so the caller always gets
// the best data available without waiting past the deadline.
func (c *Cascade) Run(ctx context.Context, platform product.Platform, query string, opts scraper.SearchOptions) Outcome {
	start := c.now()
	out := Outcome{Platform: platform, Query: query, Tier: TierNone}

	for _, s := range c.strategies {
		products := s.Fetch(ctx, platform, query, opts)
		if len(products) > 0 {
			out.Tier = s.Tier()
			out.Products = products
			break
		}
		c.log.Debug().
			Str("platform", platform.String()).
			Str("tier", string(s.Tier())).
			Str("query", query).
			Msg("Tier returned nothing, falling through")
	}

	out.Elapsed = c.now().Sub(start)
	c.metrics.IncTier(platform.String(), string(out.Tier))
	c.log.Info().
		Str("platform", platform.String()).
		Str("tier", string(out.Tier)).
		Int("products", len(out.Products)).
		Dur("elapsed", out.Elapsed).
		Msg("Cascade finished")
	return out
}

// Placeholder is the last tier, used only when every platform came back empty
func (c *Cascade) Placeholder(query string, platforms []product.Platform) []product.Product {
	products := mock.Placeholder(query, platforms, c.now())
	for _, p := range products {
		c.metrics.IncTier(p.Platform.String(), string(TierPlaceholder))
	}
	c.log.Warn().Str("query", query).Int("products", len(products)).Msg("All tiers empty, using placeholder products")
	return products
}
