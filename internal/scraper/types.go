package scraper

import (
	"context"

	"sjsage522/shopcompare/internal/product"
)

// SearchOptions narrows a platform search
type SearchOptions struct {
	Limit     int
	Location  string
	Latitude  float64
	Longitude float64
}

// Scraper is the contract every platform adapter satisfies
type Scraper interface {
	// Platform returns the platform this scraper serves
	Platform() product.Platform

	// PlatformType returns ecommerce or quick_commerce
	PlatformType() product.PlatformType

	// BuildSearchURL returns the listing page URL for a query
	BuildSearchURL(query string, opts SearchOptions) string

	// Search returns validated products for query. Failures yield an empty result, never an error.
	Search(ctx context.Context, query string, opts SearchOptions) []product.Product

	// FetchDetail loads a single product page. Absent is a normal outcome.
	FetchDetail(ctx context.Context, id, url string) (*product.Product, bool)
}

// IDExtractorFunc derives a platform product id from a listing link
type IDExtractorFunc func(link string) (string, error)

// SearchURLFunc builds the listing URL from the platform base URL
type SearchURLFunc func(baseURL, query string, opts SearchOptions) string

// SelectorSet is one version of a platform's listing markup.
// Every field is a list of "css" or "css@attr" selectors tried in order; the first
// non-empty value wins. "@attr" alone reads the attribute of the listing element itself.
type SelectorSet struct {
	Version       string
	Listing       []string
	ID            []string
	Name          []string
	Price         []string
	OriginalPrice []string
	Rating        []string
	Reviews       []string
	Image         []string
	Link          []string
	Delivery      []string
	Brand         []string
	Category      []string
}

// XPathRule selects text, or an attribute when Attr is set
type XPathRule struct {
	Expr string
	Attr string
}

// DetailSelectors describe a product page. Rules are tried in order like SelectorSet fields.
type DetailSelectors struct {
	Name          []XPathRule
	Price         []XPathRule
	OriginalPrice []XPathRule
	Rating        []XPathRule
	Reviews       []XPathRule
	Images        []XPathRule
	Delivery      []XPathRule
	Description   []XPathRule
	Brand         []XPathRule
}

// PlatformConfig contains everything needed to scrape one platform
type PlatformConfig struct {
	Platform product.Platform
	BaseURL  string
	// Headers are sent in addition to the browser-like defaults
	Headers map[string]string

	SearchURL SearchURLFunc
	// DetailPath formats a product id into a path below BaseURL, e.g. "/dp/%s"
	DetailPath string

	// SelectorSets are ordered newest first
	SelectorSets []SelectorSet
	Detail       DetailSelectors

	IDExtractor IDExtractorFunc
	// DeliveryTime overrides the platform type default when listings show none
	DeliveryTime string
	// MinNameLength drops listings whose name is too short to be a product
	MinNameLength int
}
