package cascade

import (
	"context"
	"time"

	"sjsage522/shopcompare/internal/mock"
	"sjsage522/shopcompare/internal/product"
	"sjsage522/shopcompare/internal/scraper"
	"sjsage522/shopcompare/logger"
)

// RealStrategy runs the platform scraper under its own deadline
type RealStrategy struct {
	registry *scraper.Registry
	deadline time.Duration
}

// NewRealStrategy creates the live scraping tier
func NewRealStrategy(registry *scraper.Registry, deadline time.Duration) *RealStrategy {
	return &RealStrategy{registry: registry, deadline: deadline}
}

// Tier implements Strategy
func (r *RealStrategy) Tier() Tier { return TierReal }

// Fetch implements Strategy. The scrape runs in its own goroutine so a scraper that
// ignores cancellation still cannot hold the caller past the deadline.
func (r *RealStrategy) Fetch(ctx context.Context, platform product.Platform, query string, opts scraper.SearchOptions) []product.Product {
	if r.registry == nil {
		return nil
	}
	s, ok := r.registry.Get(platform)
	if !ok {
		return nil
	}
	if ctx.Err() != nil {
		return nil
	}

	if r.deadline > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.deadline)
		defer cancel()
	}

	results := make(chan []product.Product, 1)
	go func() {
		results <- s.Search(ctx, query, opts)
	}()

	select {
	case products := <-results:
		return products
	case <-ctx.Done():
		logger.ForScraper(platform.String()).Warn().
			Err(ctx.Err()).
			Str("query", query).
			Msg("Live scrape abandoned at deadline")
		return nil
	}
}

// MockStrategy serves the deterministic demo catalog
type MockStrategy struct {
	catalog *mock.Catalog
}

// NewMockStrategy creates the mock tier
func NewMockStrategy(catalog *mock.Catalog) *MockStrategy {
	if catalog == nil {
		catalog = mock.NewCatalog()
	}
	return &MockStrategy{catalog: catalog}
}

// Tier implements Strategy
func (m *MockStrategy) Tier() Tier { return TierMock }

// Fetch implements Strategy; it needs no I/O and ignores cancellation
func (m *MockStrategy) Fetch(_ context.Context, platform product.Platform, query string, opts scraper.SearchOptions) []product.Product {
	return m.catalog.Generate(platform, query, opts.Limit)
}
