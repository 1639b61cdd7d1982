package scraper

import (
	"net/url"

	"sjsage522/shopcompare/helpers"
	"sjsage522/shopcompare/internal/product"
)

func instamartConfig() PlatformConfig {
	return PlatformConfig{
		Platform: product.Instamart,
		BaseURL:  "https://www.swiggy.com",
		SearchURL: func(base, query string, _ SearchOptions) string {
			return base + "/instamart/search?custom_back=true&query=" + url.QueryEscape(query)
		},
		DetailPath: "/instamart/item/%s",
		SelectorSets: []SelectorSet{
			{
				Version:       "item-card",
				Listing:       []string{`div[data-testid="default_container_ux4"]`, `div[data-testid*="item-card"]`},
				ID:            []string{"@data-itemid"},
				Name:          []string{`div[class*="novMV"]`, `[data-testid*="item-name"]`},
				Price:         []string{`div[data-testid="item-offer-price"]`, `[data-testid*="price"]`},
				OriginalPrice: []string{`div[data-testid="item-mrp-price"]`},
				Image:         []string{"img@src"},
				Link:          []string{"a@href"},
				Delivery:      []string{`div[class*="GOJ8s"]`, `[data-testid*="eta"]`},
			},
		},
		Detail: DetailSelectors{
			Name:  []XPathRule{{Expr: "//h1"}},
			Price: []XPathRule{{Expr: "//*[@data-testid='item-offer-price']"}},
		},
		IDExtractor: func(link string) (string, error) {
			return helpers.LastPathSegment(link)
		},
		DeliveryTime: "15-30 mins",
	}
}
