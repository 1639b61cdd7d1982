package scraper

import (
	"context"
	"fmt"
	"math"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"sjsage522/shopcompare/internal/extract"
	"sjsage522/shopcompare/internal/product"
	"sjsage522/shopcompare/logger"
	"sjsage522/shopcompare/pkg/metrics"
	"sjsage522/shopcompare/services/cache"
)

// ConfigurableScraper is a scraper driven entirely by a PlatformConfig
type ConfigurableScraper struct {
	BaseScraper
	Config PlatformConfig
}

// Deps are the collaborators shared by all scrapers
type Deps struct {
	Fetch     FetchFunc
	Cache     cache.CacheService
	BlockTime time.Duration
	Metrics   *metrics.SearchMetrics
	Now       func() time.Time
}

// NewConfigurableScraper creates a new configurable scraper
func NewConfigurableScraper(cfg PlatformConfig, deps Deps) *ConfigurableScraper {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &ConfigurableScraper{
		BaseScraper: BaseScraper{
			platform:  cfg.Platform,
			headers:   cfg.Headers,
			fetch:     deps.Fetch,
			cacheSvc:  deps.Cache,
			blockTime: deps.BlockTime,
			metrics:   deps.Metrics,
			now:       now,
			log:       logger.ForScraper(cfg.Platform.String()),
		},
		Config: cfg,
	}
}

// BuildSearchURL returns the listing page URL for query
func (c *ConfigurableScraper) BuildSearchURL(query string, opts SearchOptions) string {
	if c.Config.SearchURL != nil {
		return c.Config.SearchURL(c.Config.BaseURL, query, opts)
	}
	return c.Config.BaseURL + "/search?q=" + url.QueryEscape(query)
}

// Search fetches and parses the listing page for query
func (c *ConfigurableScraper) Search(ctx context.Context, query string, opts SearchOptions) []product.Product {
	searchURL := c.BuildSearchURL(query, opts)

	body, err := c.fetchWithCache(ctx, searchURL)
	if err != nil {
		c.log.Warn().Err(err).Str("query", query).Msg("Search fetch failed")
		return nil
	}

	products := c.ParseListings(body, opts.Location)
	if opts.Limit > 0 && len(products) > opts.Limit {
		products = products[:opts.Limit]
	}
	c.log.Debug().Str("query", query).Int("count", len(products)).Msg("Search parsed")
	return products
}

// ParseListings parses a listing page with the first selector set that yields a valid product
func (c *ConfigurableScraper) ParseListings(body []byte, location string) []product.Product {
	doc, err := c.createDocument(body)
	if err != nil {
		c.log.Warn().Err(err).Msg("Listing page parse failed")
		return nil
	}

	for _, set := range c.Config.SelectorSets {
		listings := findListings(doc.Selection, set.Listing)
		if listings.Length() == 0 {
			continue
		}
		set := set
		products := c.processListings(listings, func(s *goquery.Selection) *product.Product {
			return c.processListing(s, set, location)
		})
		if len(products) > 0 {
			c.log.Debug().Str("selector_version", set.Version).Int("listings", listings.Length()).Int("products", len(products)).Msg("Selector set matched")
			return products
		}
		c.log.Debug().Str("selector_version", set.Version).Msg("Selector set produced no products, trying next")
	}
	return nil
}

// processListing turns one listing element into a validated product, nil when it does not parse
func (c *ConfigurableScraper) processListing(s *goquery.Selection, set SelectorSet, location string) *product.Product {
	name := selectValue(s, set.Name, c.Config.MinNameLength)
	if name == "" {
		return nil
	}

	price, ok := extract.Price(selectValue(s, set.Price, 0))
	if !ok {
		return nil
	}

	link := extract.ResolveURL(c.Config.BaseURL, selectValue(s, set.Link, 0))

	id := selectValue(s, set.ID, 0)
	if id == "" && link != "" && c.Config.IDExtractor != nil {
		if extracted, err := c.Config.IDExtractor(link); err == nil {
			id = extracted
		}
	}

	p := product.Product{
		Name:              name,
		Brand:             selectValue(s, set.Brand, 0),
		Category:          selectValue(s, set.Category, 0),
		PlatformProductID: id,
		PlatformURL:       link,
		Price:             product.Price{Current: price},
		Availability:      true,
		InStock:           true,
		Location:          location,
		Delivery: product.Delivery{
			Time: selectValue(s, set.Delivery, 0),
		},
	}

	if original, ok := extract.Price(selectValue(s, set.OriginalPrice, 0)); ok && original > price {
		p.Price.Original = original
		p.Price.Offers = []product.Offer{discountOffer(original, price)}
	}

	if rating, ok := extract.Rating(selectValue(s, set.Rating, 0)); ok {
		p.Rating = &product.Rating{
			Value:        rating,
			TotalReviews: extract.ReviewCount(selectValue(s, set.Reviews, 0)),
		}
	}

	if img := selectValue(s, set.Image, 0); img != "" {
		p.Images = []product.Image{{URL: extract.ResolveURL(c.Config.BaseURL, img), AltText: name, IsPrimary: true}}
	}

	c.finish(&p)
	if err := p.Validate(); err != nil {
		c.log.Debug().Err(err).Msg("Dropping invalid listing")
		return nil
	}
	return &p
}

// finish tags the product and applies the platform delivery default
func (c *ConfigurableScraper) finish(p *product.Product) {
	if p.Delivery.Time == "" && c.Config.DeliveryTime != "" {
		p.Delivery.Time = c.Config.DeliveryTime
	}
	if strings.Contains(strings.ToLower(p.Delivery.Time), "free") {
		p.Delivery.FreeDelivery = true
	}
	if p.Delivery.Time != "" && extract.DeliveryMinutes(p.Delivery.Time) == extract.DeliverySentinel {
		// "Free delivery" and similar carry no duration
		p.Delivery.Time = ""
	}
	p.Tag(c.platform, c.now())
	if p.ID == "" && p.PlatformProductID != "" {
		p.ID = fmt.Sprintf("%s_%s", c.platform, p.PlatformProductID)
	}
}

func discountOffer(original, current float64) product.Offer {
	amount := original - current
	return product.Offer{
		DiscountAmount:     math.Round(amount*100) / 100,
		DiscountPercentage: math.Round(amount/original*1000) / 10,
	}
}

// findListings returns the elements matched by the first listing selector that matches anything
func findListings(root *goquery.Selection, selectors []string) *goquery.Selection {
	for _, sel := range selectors {
		found := root.Find(sel)
		if found.Length() > 0 {
			return found
		}
	}
	return root.Find("__none__")
}

// selectValue evaluates "css" / "css@attr" / "@attr" selectors in order and returns the
// first cleaned value of at least minLen characters
func selectValue(s *goquery.Selection, selectors []string, minLen int) string {
	for _, spec := range selectors {
		css, attr := splitSelector(spec)
		target := s
		if css != "" {
			target = s.Find(css)
		}
		var found string
		target.EachWithBreak(func(_ int, el *goquery.Selection) bool {
			var v string
			if attr != "" {
				v, _ = el.Attr(attr)
			} else {
				v = el.Text()
			}
			v = extract.CleanText(v)
			if v != "" && len([]rune(v)) >= minLen {
				found = v
				return false
			}
			return true
		})
		if found != "" {
			return found
		}
	}
	return ""
}

func splitSelector(spec string) (css, attr string) {
	i := strings.LastIndex(spec, "@")
	if i < 0 {
		return strings.TrimSpace(spec), ""
	}
	return strings.TrimSpace(spec[:i]), strings.TrimSpace(spec[i+1:])
}
