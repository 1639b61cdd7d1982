package scraper

import (
	"net/url"

	"sjsage522/shopcompare/helpers"
	"sjsage522/shopcompare/internal/product"
)

func meeshoConfig() PlatformConfig {
	return PlatformConfig{
		Platform: product.Meesho,
		BaseURL:  "https://www.meesho.com",
		Headers: map[string]string{
			"Referer": "https://www.meesho.com/",
			"Origin":  "https://www.meesho.com",
		},
		SearchURL: func(base, query string, _ SearchOptions) string {
			return base + "/search?q=" + url.QueryEscape(query)
		},
		DetailPath: "/s/p/%s",
		SelectorSets: []SelectorSet{
			{
				Version:       "styled-grid",
				Listing:       []string{`div[class*="ProductList__GridCol"] a`, `div[class*="ProductCard"] a`, `a[href*="/p/"]`, `a[href*="/product/"]`},
				Name:          []string{`p[class*="Text__StyledText"]`, "h3", "h4", "p"},
				Price:         []string{`h5[class*="Text__StyledText"]`, "h5", `[class*="Price"]`},
				OriginalPrice: []string{`p[class*="line-through"]`, "del", "s"},
				Rating:        []string{`span[class*="Rating"]`, `[class*="RatingText"]`},
				Reviews:       []string{`span[class*="RatingCount"]`, `[class*="Reviews"]`},
				Image:         []string{"img@src"},
				Link:          []string{"@href"},
				Delivery:      []string{`span[class*="Delivery"]`},
			},
		},
		Detail: DetailSelectors{
			Name:        []XPathRule{{Expr: "//span[contains(@class,'Text__StyledText')][1]"}, {Expr: "//h1"}},
			Price:       []XPathRule{{Expr: "//h4[contains(@class,'Text__StyledText')]"}, {Expr: "//h4"}},
			Rating:      []XPathRule{{Expr: "//span[contains(@class,'Rating')]"}},
			Images:      []XPathRule{{Expr: "//img[contains(@class,'ProductImage') or contains(@src,'images.meesho.com')]", Attr: "src"}},
			Description: []XPathRule{{Expr: "//div[contains(@class,'ProductDescription')]"}},
		},
		IDExtractor: func(link string) (string, error) {
			if id, err := helpers.PathSegmentAfter(link, "p"); err == nil {
				return id, nil
			}
			return helpers.LastPathSegment(link)
		},
		MinNameLength: 6,
	}
}
