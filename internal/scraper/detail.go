package scraper

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/antchfx/htmlquery"
	"golang.org/x/net/html"

	"sjsage522/shopcompare/internal/extract"
	"sjsage522/shopcompare/internal/product"
)

// DetailURL returns the product page URL for id, empty when the platform has no detail path
func (c *ConfigurableScraper) DetailURL(id string) string {
	if c.Config.DetailPath == "" || id == "" {
		return ""
	}
	return c.Config.BaseURL + fmt.Sprintf(c.Config.DetailPath, id)
}

// FetchDetail loads and parses a single product page
func (c *ConfigurableScraper) FetchDetail(ctx context.Context, id, pageURL string) (*product.Product, bool) {
	if pageURL == "" {
		pageURL = c.DetailURL(id)
	}
	if pageURL == "" {
		return nil, false
	}

	body, err := c.fetchWithCache(ctx, pageURL)
	if err != nil {
		c.log.Warn().Err(err).Str("product_id", id).Msg("Detail fetch failed")
		return nil, false
	}

	p, ok := c.ParseDetail(body, id, pageURL)
	if !ok {
		c.log.Debug().Str("product_id", id).Msg("Detail page did not yield a product")
	}
	return p, ok
}

// ParseDetail extracts a product from a detail page using the XPath detail selectors
func (c *ConfigurableScraper) ParseDetail(body []byte, id, pageURL string) (*product.Product, bool) {
	doc, err := htmlquery.Parse(bytes.NewReader(body))
	if err != nil {
		return nil, false
	}
	d := c.Config.Detail

	name := xpathValue(doc, d.Name)
	price, ok := extract.Price(xpathValue(doc, d.Price))
	if name == "" || !ok {
		return nil, false
	}

	p := product.Product{
		Name:              name,
		Description:       xpathValue(doc, d.Description),
		Brand:             xpathValue(doc, d.Brand),
		PlatformProductID: id,
		PlatformURL:       pageURL,
		Price:             product.Price{Current: price},
		Availability:      true,
		InStock:           true,
		Delivery:          product.Delivery{Time: xpathValue(doc, d.Delivery)},
	}
	if original, ok := extract.Price(xpathValue(doc, d.OriginalPrice)); ok && original > price {
		p.Price.Original = original
		p.Price.Offers = []product.Offer{discountOffer(original, price)}
	}
	if rating, ok := extract.Rating(xpathValue(doc, d.Rating)); ok {
		p.Rating = &product.Rating{
			Value:        rating,
			TotalReviews: extract.ReviewCount(xpathValue(doc, d.Reviews)),
		}
	}
	for i, img := range xpathValues(doc, d.Images) {
		p.Images = append(p.Images, product.Image{
			URL:       extract.ResolveURL(c.Config.BaseURL, img),
			AltText:   name,
			IsPrimary: i == 0,
		})
	}

	c.finish(&p)
	if err := p.Validate(); err != nil {
		return nil, false
	}
	return &p, true
}

// xpathValue returns the first non-empty value matched by rules
func xpathValue(doc *html.Node, rules []XPathRule) string {
	for _, rule := range rules {
		nodes, err := htmlquery.QueryAll(doc, rule.Expr)
		if err != nil {
			continue
		}
		for _, n := range nodes {
			if v := nodeValue(n, rule.Attr); v != "" {
				return v
			}
		}
	}
	return ""
}

// xpathValues returns every distinct value matched by the first rule that matches anything
func xpathValues(doc *html.Node, rules []XPathRule) []string {
	for _, rule := range rules {
		nodes, err := htmlquery.QueryAll(doc, rule.Expr)
		if err != nil {
			continue
		}
		var values []string
		seen := make(map[string]bool)
		for _, n := range nodes {
			v := nodeValue(n, rule.Attr)
			if v != "" && !seen[v] {
				seen[v] = true
				values = append(values, v)
			}
		}
		if len(values) > 0 {
			return values
		}
	}
	return nil
}

func nodeValue(n *html.Node, attr string) string {
	if attr != "" {
		return strings.TrimSpace(htmlquery.SelectAttr(n, attr))
	}
	return extract.CleanText(htmlquery.InnerText(n))
}
