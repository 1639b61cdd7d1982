package scraper

import (
	"net/url"

	"sjsage522/shopcompare/helpers"
	"sjsage522/shopcompare/internal/product"
)

func nykaaConfig() PlatformConfig {
	return PlatformConfig{
		Platform: product.Nykaa,
		BaseURL:  "https://www.nykaa.com",
		SearchURL: func(base, query string, _ SearchOptions) string {
			return base + "/search/result/?q=" + url.QueryEscape(query)
		},
		DetailPath: "/p/%s",
		SelectorSets: []SelectorSet{
			{
				Version:       "product-wrapper",
				Listing:       []string{"div.productWrapper", `div[id^="product-list-wrap"] > div`},
				Name:          []string{`div[class*="css-xrzmfa"]`, `[class*="product-name"]`, "a@title"},
				Price:         []string{`span[class*="css-111z9ua"]`, `[class*="offer-price"]`, `[class*="price"]`},
				OriginalPrice: []string{`span[class*="css-17x46n5"] span`, `[class*="mrp"]`},
				Rating:        []string{`[class*="ratingStar"]@aria-label`, `[class*="rating"]`},
				Reviews:       []string{`span[class*="css-1qbvrhp"]`, `[class*="review-count"]`},
				Image:         []string{"img@src"},
				Link:          []string{"a@href"},
				Brand:         []string{`[class*="brand"]`},
			},
		},
		Detail: DetailSelectors{
			Name:          []XPathRule{{Expr: "//h1"}},
			Price:         []XPathRule{{Expr: "//span[contains(@class,'css-1jczs19')]"}, {Expr: "//*[contains(@class,'offer-price')]"}},
			OriginalPrice: []XPathRule{{Expr: "//span[contains(@class,'css-u05rr')]/span"}},
			Rating:        []XPathRule{{Expr: "//*[contains(@class,'css-m6n3ou')]"}},
			Images:        []XPathRule{{Expr: "//div[contains(@class,'productSelectedImage')]//img", Attr: "src"}},
			Description:   []XPathRule{{Expr: "//div[@id='content-details']"}},
		},
		IDExtractor: func(link string) (string, error) {
			return helpers.PathSegmentAfter(link, "p")
		},
	}
}
