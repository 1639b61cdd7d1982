package scraper

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sjsage522/shopcompare/internal/product"
	"sjsage522/shopcompare/pkg/errors"
	"sjsage522/shopcompare/services/cache"
)

// mockCacheService is a mock implementation of cache.CacheService for testing
type mockCacheService struct {
	mu   sync.Mutex
	data map[string][]byte
}

var _ cache.CacheService = (*mockCacheService)(nil)

func newMockCacheService() *mockCacheService {
	return &mockCacheService{data: make(map[string][]byte)}
}

func (m *mockCacheService) Get(key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if v, ok := m.data[key]; ok {
		return v, nil
	}
	return nil, cache.ErrCacheMiss
}

func (m *mockCacheService) Set(key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func (m *mockCacheService) Delete(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

// stubFetch records requested URLs and returns a fixed response
type stubFetch struct {
	mu   sync.Mutex
	urls []string
	body string
	err  error
}

func (s *stubFetch) fetch(ctx context.Context, key, url string, headers map[string]string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.urls = append(s.urls, url)
	if s.err != nil {
		return nil, s.err
	}
	return []byte(s.body), nil
}

var fixedNow = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

func newTestScraper(cfg PlatformConfig, f *stubFetch, c cache.CacheService) *ConfigurableScraper {
	return NewConfigurableScraper(cfg, Deps{
		Fetch:     f.fetch,
		Cache:     c,
		BlockTime: 30 * time.Second,
		Now:       func() time.Time { return fixedNow },
	})
}

const amazonListingHTML = `<html><body>
<div data-component-type="s-search-result" data-asin="B0AAA">
  <h2><a href="/Acer-Laptop/dp/B0AAA/ref=sr_1_1"><span>Acer   Aspire 7 Gaming Laptop</span></a></h2>
  <span class="a-price"><span class="a-offscreen">₹52,990</span><span class="a-price-whole">52,990</span></span>
  <span class="a-price a-text-price"><span class="a-offscreen">₹74,990</span></span>
  <span class="a-icon-alt">4.3 out of 5 stars</span>
  <a href="/product-reviews/B0AAA#customerReviews"><span>1,250</span></a>
  <img class="s-image" src="https://m.media-amazon.com/images/I/a.jpg"/>
</div>
<div data-component-type="s-search-result" data-asin="">
  <h2><a href="/HP-Laptop/dp/B0BBB"><span>HP Victus Laptop</span></a></h2>
  <span class="a-price"><span class="a-offscreen">₹45,999</span></span>
</div>
<div data-component-type="s-search-result" data-asin="B0CCC">
  <h2><a href="/Sponsored/dp/B0CCC"><span>Currently unavailable laptop</span></a></h2>
</div>
</body></html>`

func TestSelectValue(t *testing.T) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(
		`<div class="card" data-id="42"><a class="t" title="Full Title" href="/x">Short</a><p>ab</p><p>long enough</p></div>`))
	require.NoError(t, err)
	card := doc.Find("div.card")

	assert.Equal(t, "42", selectValue(card, []string{"@data-id"}, 0))
	assert.Equal(t, "Full Title", selectValue(card, []string{"a.t@title"}, 0))
	assert.Equal(t, "Short", selectValue(card, []string{"span.missing", "a.t"}, 0))
	assert.Equal(t, "long enough", selectValue(card, []string{"p"}, 5))
	assert.Equal(t, "", selectValue(card, []string{"span.missing"}, 0))
}

func TestParseListingsAmazon(t *testing.T) {
	s := newTestScraper(amazonConfig(), &stubFetch{}, nil)

	products := s.ParseListings([]byte(amazonListingHTML), "Mumbai")
	require.Len(t, products, 2)

	first := products[0]
	assert.Equal(t, "Acer Aspire 7 Gaming Laptop", first.Name)
	assert.Equal(t, "B0AAA", first.PlatformProductID)
	assert.Equal(t, "amazon_B0AAA", first.ID)
	assert.Equal(t, "https://www.amazon.in/Acer-Laptop/dp/B0AAA/ref=sr_1_1", first.PlatformURL)
	assert.Equal(t, 52990.0, first.Price.Current)
	assert.Equal(t, 74990.0, first.Price.Original)
	require.Len(t, first.Price.Offers, 1)
	assert.Equal(t, 22000.0, first.Price.Offers[0].DiscountAmount)
	assert.Equal(t, 29.3, first.Price.Offers[0].DiscountPercentage)
	require.NotNil(t, first.Rating)
	assert.Equal(t, 4.3, first.Rating.Value)
	assert.Equal(t, 1250, first.Rating.TotalReviews)
	require.Len(t, first.Images, 1)
	assert.True(t, first.Images[0].IsPrimary)
	assert.Equal(t, product.Amazon, first.Platform)
	assert.Equal(t, product.Ecommerce, first.PlatformType)
	assert.Equal(t, "2-5 days", first.Delivery.Time)
	assert.Equal(t, "Mumbai", first.Location)
	assert.Equal(t, fixedNow, first.ScrapedAt)

	second := products[1]
	assert.Equal(t, "HP Victus Laptop", second.Name)
	assert.Equal(t, "B0BBB", second.PlatformProductID, "id falls back to the link")
	assert.Zero(t, second.Price.Original)
	assert.Nil(t, second.Rating)
}

const flipkartListingHTML = `<html><body>
<div class="_1AtVbE"><a class="_1fQZEK" href="/redmi-note/p/itm123?pid=MOBGXYZ&amp;lid=1">
  <div class="_4rR01T">Redmi Note 13 Pro</div>
  <div class="_30jeq3">₹23,999</div>
  <div class="_3I9_wc">₹28,999</div>
  <div class="_3LWZlK">4.2</div>
  <span class="_2_R_DZ">12,345 Ratings &amp; 987 Reviews</span>
  <img class="_396cs4" src="https://rukminim2.flixcart.com/a.jpg"/>
</a></div>
</body></html>`

func TestParseListingsFallsBackToLegacySelectors(t *testing.T) {

	s := newTestScraper(flipkartConfig(), &stubFetch{}, nil)
	products := s.ParseListings([]byte(flipkartListingHTML), "")
	require.Len(t, products, 1)

	p := products[0]
	assert.Equal(t, "Redmi Note 13 Pro", p.Name)
	assert.Equal(t, "MOBGXYZ", p.PlatformProductID)
	assert.Equal(t, 23999.0, p.Price.Current)
	assert.Equal(t, 28999.0, p.Price.Original)
	assert.Equal(t, 4.2, p.Rating.Value)
	assert.Equal(t, 12345, p.Rating.TotalReviews)
	assert.Equal(t, "3-5 days", p.Delivery.Time)
}

func TestSelectorSetWithoutProductsFallsThrough(t *testing.T) {
	cfg := PlatformConfig{
		Platform: product.Zepto,
		BaseURL:  "https://example.com",
		SelectorSets: []SelectorSet{
			{Version: "v2", Listing: []string{".card"}, Name: []string{".title"}, Price: []string{".cost"}},
			{Version: "v1", Listing: []string{".card"}, Name: []string{".title"}, Price: []string{".price"}},
		},
	}
	html := `<div class="card"><span class="title">Amul Butter 100g</span><span class="price">₹56</span></div>`

	s := newTestScraper(cfg, &stubFetch{}, nil)
	products := s.ParseListings([]byte(html), "")
	require.Len(t, products, 1)
	assert.Equal(t, 56.0, products[0].Price.Current)
	assert.Equal(t, product.QuickCommerce, products[0].PlatformType)
	assert.Equal(t, "10-30 mins", products[0].Delivery.Time)
}

func TestInvalidListingsNeverEscape(t *testing.T) {
	html := `<html><body>
<div data-component-type="s-search-result" data-asin="1"><h2><a href="/dp/1"><span></span></a></h2><span class="a-price"><span class="a-offscreen">₹100</span></span></div>
<div data-component-type="s-search-result" data-asin="2"><h2><a href="/dp/2"><span>   </span></a></h2><span class="a-price"><span class="a-offscreen">₹100</span></span></div>
<div data-component-type="s-search-result" data-asin="3"><h2><a href="/dp/3"><span>Free Item</span></a></h2><span class="a-price"><span class="a-offscreen">₹0</span></span></div>
<div data-component-type="s-search-result" data-asin="4"><h2><a href="/dp/4"><span>No Price Item</span></a></h2><span class="a-price"><span class="a-offscreen">Currently unavailable</span></span></div>
<div data-component-type="s-search-result" data-asin="5"><h2><a href="/dp/5"><span>Good Item</span></a></h2><span class="a-price"><span class="a-offscreen">₹1,499</span></span><span class="a-icon-alt">9 out of 10</span></div>
</body></html>`

	s := newTestScraper(amazonConfig(), &stubFetch{}, nil)
	products := s.ParseListings([]byte(html), "")
	require.Len(t, products, 1)
	for _, p := range products {
		assert.NotEmpty(t, p.Name)
		assert.Greater(t, p.Price.Current, 0.0)
		assert.Equal(t, product.Amazon, p.Platform)
		assert.NotEmpty(t, p.Delivery.Time)
		if p.Rating != nil {
			assert.LessOrEqual(t, p.Rating.Value, 5.0)
		}
	}
}

func TestParseListingsGarbage(t *testing.T) {
	s := newTestScraper(amazonConfig(), &stubFetch{}, nil)
	assert.Empty(t, s.ParseListings([]byte("not html at all"), ""))
	assert.Empty(t, s.ParseListings(nil, ""))
}

func FuzzParseListings(f *testing.F) {
	f.Add(amazonListingHTML)
	f.Add(flipkartListingHTML)
	f.Add(`<div data-component-type="s-search-result"><h2><a href="/dp/9"><span>Zero</span></a></h2><span class="a-price"><span class="a-offscreen">₹0</span></span></div>`)
	f.Add(`<div class="_1AtVbE"><a class="_1fQZEK" href="::bad"><div class="_4rR01T">x</div><div class="_30jeq3">-5</div></a></div>`)
	f.Add("not html at all")
	f.Add("")

	scrapers := []*ConfigurableScraper{
		newTestScraper(amazonConfig(), &stubFetch{}, nil),
		newTestScraper(flipkartConfig(), &stubFetch{}, nil),
	}
	f.Fuzz(func(t *testing.T, html string) {
		for _, s := range scrapers {
			for _, p := range s.ParseListings([]byte(html), "") {
				assert.NotEmpty(t, p.Name)
				assert.Greater(t, p.Price.Current, 0.0)
				if p.Rating != nil {
					assert.GreaterOrEqual(t, p.Rating.Value, 0.0)
					assert.LessOrEqual(t, p.Rating.Value, 5.0)
				}
			}
		}
	})
}

func TestProcessListingsSkipsPanics(t *testing.T) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(`<i>a</i><i>b</i><i>c</i>`))
	require.NoError(t, err)

	s := newTestScraper(amazonConfig(), &stubFetch{}, nil)
	products := s.processListings(doc.Find("i"), func(sel *goquery.Selection) *product.Product {
		if sel.Text() == "b" {
			panic("boom")
		}
		return &product.Product{Name: sel.Text()}
	})
	require.Len(t, products, 2)
	assert.Equal(t, "a", products[0].Name)
	assert.Equal(t, "c", products[1].Name)
}

func TestSearchFetchesAndLimits(t *testing.T) {
	f := &stubFetch{body: amazonListingHTML}
	s := newTestScraper(amazonConfig(), f, newMockCacheService())

	products := s.Search(context.Background(), "gaming laptop", SearchOptions{Limit: 1})
	require.Len(t, products, 1)
	require.Len(t, f.urls, 1)
	assert.Equal(t, "https://www.amazon.in/s?k=gaming+laptop", f.urls[0])
}

func TestSearchBlocksPlatformAfterRateLimit(t *testing.T) {
	f := &stubFetch{err: errors.NewRateLimit("amazon", 2*time.Minute)}
	c := newMockCacheService()
	s := newTestScraper(amazonConfig(), f, c)

	assert.Empty(t, s.Search(context.Background(), "phone", SearchOptions{}))
	v, err := c.Get(cache.BlockKey("amazon"))
	require.NoError(t, err)
	assert.Equal(t, "120", string(v))

	assert.Empty(t, s.Search(context.Background(), "phone", SearchOptions{}))
	assert.Len(t, f.urls, 1, "blocked platform is not fetched again")
}

func TestSearchSwallowsFetchErrors(t *testing.T) {
	f := &stubFetch{err: errors.NewStatus("meesho", 503)}
	s := newTestScraper(meeshoConfig(), f, newMockCacheService())
	assert.Empty(t, s.Search(context.Background(), "kurti", SearchOptions{}))
}

func TestBuildSearchURL(t *testing.T) {
	s := newTestScraper(blinkitConfig(), &stubFetch{}, nil)
	assert.Equal(t, "https://blinkit.com/search?location=mumbai&q=milk+1l", s.BuildSearchURL("milk 1l", SearchOptions{}))
	assert.Equal(t,
		"https://blinkit.com/search?lat=12.971600&location=bangalore&lon=77.594600&q=eggs",
		s.BuildSearchURL("eggs", SearchOptions{Location: "Bangalore", Latitude: 12.9716, Longitude: 77.5946}))

	f := newTestScraper(flipkartConfig(), &stubFetch{}, nil)
	assert.Equal(t, "https://www.flipkart.com/search?q=iphone+15", f.BuildSearchURL("iphone 15", SearchOptions{}))
}

const amazonDetailHTML = `<html><body>
<span id="productTitle"> Acer Aspire 7 </span>
<span class="a-price"><span class="a-offscreen">₹52,990</span></span>
<span class="a-price a-text-price"><span class="a-offscreen">₹74,990</span></span>
<span id="acrPopover" title="4.3 out of 5 stars"></span>
<span id="acrCustomerReviewText">1,250 ratings</span>
<div id="altImages"><img src="https://m.media-amazon.com/1.jpg"/><img src="https://m.media-amazon.com/2.jpg"/><img src="https://m.media-amazon.com/1.jpg"/></div>
<div id="deliveryBlockMessage">FREE delivery <span class="a-text-bold">2 days</span></div>
<a id="bylineInfo">Visit the Acer Store</a>
</body></html>`

func TestFetchDetail(t *testing.T) {
	f := &stubFetch{body: amazonDetailHTML}
	s := newTestScraper(amazonConfig(), f, nil)

	p, ok := s.FetchDetail(context.Background(), "B0AAA", "")
	require.True(t, ok)
	require.Len(t, f.urls, 1)
	assert.Equal(t, "https://www.amazon.in/dp/B0AAA", f.urls[0])

	assert.Equal(t, "Acer Aspire 7", p.Name)
	assert.Equal(t, 52990.0, p.Price.Current)
	assert.Equal(t, 74990.0, p.Price.Original)
	assert.Equal(t, 4.3, p.Rating.Value)
	assert.Equal(t, 1250, p.Rating.TotalReviews)
	assert.Len(t, p.Images, 2)
	assert.True(t, p.Images[0].IsPrimary)
	assert.False(t, p.Images[1].IsPrimary)
	assert.Equal(t, "2 days", p.Delivery.Time)
	assert.Equal(t, "Visit the Acer Store", p.Brand)
	assert.Equal(t, product.Amazon, p.Platform)
}

func TestFetchDetailAbsent(t *testing.T) {
	f := &stubFetch{err: errors.NewStatus("amazon", 404)}
	s := newTestScraper(amazonConfig(), f, nil)

	_, ok := s.FetchDetail(context.Background(), "B0AAA", "")
	assert.False(t, ok)

	empty := &stubFetch{body: "<html><body><p>nothing</p></body></html>"}
	s = newTestScraper(amazonConfig(), empty, nil)
	_, ok = s.FetchDetail(context.Background(), "B0AAA", "https://www.amazon.in/dp/B0AAA")
	assert.False(t, ok)

	none := &stubFetch{}
	s = newTestScraper(instamartConfig(), none, nil)
	s.Config.DetailPath = ""
	_, ok = s.FetchDetail(context.Background(), "x", "")
	assert.False(t, ok)
	assert.Empty(t, none.urls)
}

func TestRegistry(t *testing.T) {
	f := &stubFetch{}
	r := NewRegistry(
		[]product.Platform{product.Blinkit, product.Amazon},
		Deps{Fetch: f.fetch},
		map[product.Platform]string{product.Amazon: "http://127.0.0.1:9999"},
	)

	assert.Equal(t, []product.Platform{product.Amazon, product.Blinkit}, r.Platforms())

	s, ok := r.Get(product.Amazon)
	require.True(t, ok)
	assert.Equal(t, "http://127.0.0.1:9999/s?k=tv", s.BuildSearchURL("tv", SearchOptions{}))
	assert.Equal(t, product.Ecommerce, s.PlatformType())

	_, ok = r.Get(product.Nykaa)
	assert.False(t, ok)
}

func TestEveryPlatformHasConfig(t *testing.T) {
	seen := map[product.Platform]bool{}
	for _, cfg := range PlatformConfigs() {
		assert.NotEmpty(t, cfg.SelectorSets, cfg.Platform)
		assert.NotEmpty(t, cfg.BaseURL, cfg.Platform)
		seen[cfg.Platform] = true
	}
	for _, p := range product.AllPlatforms() {
		assert.True(t, seen[p], "missing config for %s", p)
	}
}
