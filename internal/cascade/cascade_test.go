package cascade

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sjsage522/shopcompare/internal/mock"
	"sjsage522/shopcompare/internal/product"
	"sjsage522/shopcompare/internal/scraper"
)

// stubScraper is a scraper whose behaviour is set per test
type stubScraper struct {
	platform product.Platform
	search   func(ctx context.Context) []product.Product
	calls    atomic.Int32
}

var _ scraper.Scraper = (*stubScraper)(nil)

func (s *stubScraper) Platform() product.Platform         { return s.platform }
func (s *stubScraper) PlatformType() product.PlatformType { return s.platform.Type() }
func (s *stubScraper) BuildSearchURL(query string, _ scraper.SearchOptions) string {
	return "https://example.com/?q=" + query
}
func (s *stubScraper) Search(ctx context.Context, _ string, _ scraper.SearchOptions) []product.Product {
	s.calls.Add(1)
	return s.search(ctx)
}
func (s *stubScraper) FetchDetail(context.Context, string, string) (*product.Product, bool) {
	return nil, false
}

// emptyStrategy always comes back empty and counts calls
type emptyStrategy struct {
	tier  Tier
	calls atomic.Int32
}

var _ Strategy = (*emptyStrategy)(nil)

func (e *emptyStrategy) Tier() Tier { return e.tier }
func (e *emptyStrategy) Fetch(context.Context, product.Platform, string, scraper.SearchOptions) []product.Product {
	e.calls.Add(1)
	return nil
}

func registryWith(scrapers ...scraper.Scraper) *scraper.Registry {
	r := scraper.NewRegistry(nil, scraper.Deps{}, nil)
	for _, s := range scrapers {
		r.Register(s)
	}
	return r
}

func liveProduct(p product.Platform) product.Product {
	prod := product.Product{Name: "Live Item", Price: product.Price{Current: 100}}
	prod.Tag(p, time.Now())
	return prod
}

func TestRealTierWins(t *testing.T) {
	s := &stubScraper{platform: product.Amazon, search: func(context.Context) []product.Product {
		return []product.Product{liveProduct(product.Amazon)}
	}}
	c := NewDefault(registryWith(s), mock.NewCatalog(), Options{RealDeadline: time.Second, EnableMock: true})

	out := c.Run(context.Background(), product.Amazon, "tv", scraper.SearchOptions{})
	assert.Equal(t, TierReal, out.Tier)
	require.Len(t, out.Products, 1)
	assert.Equal(t, "Live Item", out.Products[0].Name)
	assert.Equal(t, product.Amazon, out.Platform)
}

func TestTimedOutRealTierFallsToMockWithinDeadline(t *testing.T) {
	s := &stubScraper{platform: product.Flipkart, search: func(ctx context.Context) []product.Product {
		<-ctx.Done()
		return nil
	}}
	c := NewDefault(registryWith(s), mock.NewCatalog(), Options{RealDeadline: 50 * time.Millisecond, EnableMock: true})

	start := time.Now()
	out := c.Run(context.Background(), product.Flipkart, "headphones", scraper.SearchOptions{})
	assert.Less(t, time.Since(start), time.Second)
	assert.Equal(t, TierMock, out.Tier)
	assert.NotEmpty(t, out.Products)
}

func TestScraperIgnoringCancellationCannotBlock(t *testing.T) {
	release := make(chan struct{})
	defer close(release)

	s := &stubScraper{platform: product.Meesho, search: func(context.Context) []product.Product {
		<-release
		return nil
	}}
	c := NewDefault(registryWith(s), mock.NewCatalog(), Options{RealDeadline: 30 * time.Millisecond, EnableMock: true})

	start := time.Now()
	out := c.Run(context.Background(), product.Meesho, "saree", scraper.SearchOptions{})
	assert.Less(t, time.Since(start), time.Second)
	assert.Equal(t, TierMock, out.Tier)
}

func TestCancelledContextSkipsRealTier(t *testing.T) {
	s := &stubScraper{platform: product.Blinkit, search: func(context.Context) []product.Product {
		return []product.Product{liveProduct(product.Blinkit)}
	}}
	c := NewDefault(registryWith(s), mock.NewCatalog(), Options{RealDeadline: time.Second, EnableMock: true})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	out := c.Run(ctx, product.Blinkit, "bread", scraper.SearchOptions{})
	assert.Equal(t, TierMock, out.Tier)
	assert.Equal(t, int32(0), s.calls.Load())
}

func TestUnknownPlatformUsesMock(t *testing.T) {
	c := NewDefault(registryWith(), mock.NewCatalog(), Options{RealDeadline: time.Second, EnableMock: true})
	out := c.Run(context.Background(), product.Nykaa, "lipstick", scraper.SearchOptions{Limit: 2})
	assert.Equal(t, TierMock, out.Tier)
	assert.Len(t, out.Products, 2)
}

func TestMockDisabled(t *testing.T) {
	s := &stubScraper{platform: product.Amazon, search: func(context.Context) []product.Product { return nil }}
	c := NewDefault(registryWith(s), mock.NewCatalog(), Options{RealDeadline: time.Second, EnableMock: false})

	out := c.Run(context.Background(), product.Amazon, "tv", scraper.SearchOptions{})
	assert.Equal(t, TierNone, out.Tier)
	assert.Empty(t, out.Products)
}

func TestRunStopsAtFirstNonEmptyStrategy(t *testing.T) {
	first := &emptyStrategy{tier: TierReal}
	last := &emptyStrategy{tier: TierPlaceholder}
	c := New(nil, first, NewMockStrategy(nil), last)

	out := c.Run(context.Background(), product.Zepto, "eggs", scraper.SearchOptions{})
	assert.Equal(t, TierMock, out.Tier)
	assert.Equal(t, int32(1), first.calls.Load())
	assert.Equal(t, int32(0), last.calls.Load())
}

func TestPlaceholder(t *testing.T) {
	c := New(nil)
	products := c.Placeholder("milk", []product.Platform{product.Blinkit, product.Zepto})
	require.NotEmpty(t, products)
	for _, p := range products {
		assert.NoError(t, p.Validate())
	}
}

func TestWorst(t *testing.T) {
	assert.Equal(t, TierNone, Worst())
	assert.Equal(t, TierReal, Worst(TierReal, TierNone))
	assert.Equal(t, TierMock, Worst(TierReal, TierMock))
	assert.Equal(t, TierPlaceholder, Worst(TierMock, TierPlaceholder, TierReal))
}
