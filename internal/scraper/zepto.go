package scraper

import (
	"net/url"

	"sjsage522/shopcompare/helpers"
	"sjsage522/shopcompare/internal/product"
)

func zeptoConfig() PlatformConfig {
	return PlatformConfig{
		Platform: product.Zepto,
		BaseURL:  "https://www.zeptonow.com",
		SearchURL: func(base, query string, _ SearchOptions) string {
			return base + "/search?query=" + url.QueryEscape(query)
		},
		DetailPath: "/pn/x/pvid/%s",
		SelectorSets: []SelectorSet{
			{
				Version:       "product-card-testid",
				Listing:       []string{`a[data-testid="product-card"]`, `div[data-testid="product-card"]`},
				Name:          []string{`[data-testid="product-card-name"]`, "h5"},
				Price:         []string{`[data-testid="product-card-price"]`, `h4[class*="price"]`},
				OriginalPrice: []string{`[data-testid="product-card-mrp"]`, "del"},
				Image:         []string{"img@src"},
				Link:          []string{"@href", "a@href"},
				Delivery:      []string{`[data-testid="product-card-eta"]`},
			},
		},
		Detail: DetailSelectors{
			Name:   []XPathRule{{Expr: "//h1"}},
			Price:  []XPathRule{{Expr: "//*[@data-testid='pdp-selling-price']"}, {Expr: "//h4[contains(@class,'price')]"}},
			Images: []XPathRule{{Expr: "//img[contains(@src,'cdn.zeptonow.com')]", Attr: "src"}},
		},
		IDExtractor: func(link string) (string, error) {
			return helpers.PathSegmentAfter(link, "pvid")
		},
		DeliveryTime: "10 mins",
	}
}
