package scraper

import (
	"net/url"

	"sjsage522/shopcompare/helpers"
	"sjsage522/shopcompare/internal/product"
)

func amazonConfig() PlatformConfig {
	return PlatformConfig{
		Platform: product.Amazon,
		BaseURL:  "https://www.amazon.in",
		SearchURL: func(base, query string, _ SearchOptions) string {
			return base + "/s?k=" + url.QueryEscape(query)
		},
		DetailPath: "/dp/%s",
		SelectorSets: []SelectorSet{
			{
				Version:       "2024-search-result",
				Listing:       []string{`div[data-component-type="s-search-result"]`},
				ID:            []string{"@data-asin"},
				Name:          []string{"h2 a span", "h2 span", "h2@aria-label"},
				Price:         []string{".a-price:not(.a-text-price) .a-offscreen", ".a-price-whole"},
				OriginalPrice: []string{".a-price.a-text-price .a-offscreen"},
				Rating:        []string{".a-icon-alt", `[aria-label*="out of 5"]@aria-label`},
				Reviews:       []string{`a[href*="customerReviews"] span`, "span.s-underline-text"},
				Image:         []string{"img.s-image@src"},
				Link:          []string{"h2 a@href", "a.s-no-outline@href"},
				Delivery:      []string{`[data-cy="delivery-recipe"] span.a-text-bold`, `[data-cy="delivery-recipe"]`},
			},
			{
				Version:       "legacy-result-item",
				Listing:       []string{"div.s-result-item[data-asin]"},
				ID:            []string{"@data-asin"},
				Name:          []string{"span.a-text-normal", "h2"},
				Price:         []string{".a-price-whole", ".a-offscreen"},
				OriginalPrice: []string{".a-text-price .a-offscreen"},
				Rating:        []string{".a-icon-alt"},
				Reviews:       []string{"span.a-size-base"},
				Image:         []string{"img@src"},
				Link:          []string{"a.a-link-normal@href"},
			},
		},
		Detail: DetailSelectors{
			Name:          []XPathRule{{Expr: "//span[@id='productTitle']"}},
			Price:         []XPathRule{{Expr: "//span[@id='priceblock_ourprice']"}, {Expr: "//span[contains(@class,'a-price')]/span[@class='a-offscreen']"}},
			OriginalPrice: []XPathRule{{Expr: "//span[contains(@class,'a-text-price')]/span[@class='a-offscreen']"}},
			Rating:        []XPathRule{{Expr: "//span[@id='acrPopover']", Attr: "title"}},
			Reviews:       []XPathRule{{Expr: "//span[@id='acrCustomerReviewText']"}},
			Images:        []XPathRule{{Expr: "//div[@id='altImages']//img", Attr: "src"}, {Expr: "//img[@id='landingImage']", Attr: "src"}},
			Delivery:      []XPathRule{{Expr: "//div[@id='deliveryBlockMessage']//span[contains(@class,'a-text-bold')]"}, {Expr: "//div[@id='deliveryBlockMessage']"}},
			Description:   []XPathRule{{Expr: "//div[@id='feature-bullets']"}},
			Brand:         []XPathRule{{Expr: "//a[@id='bylineInfo']"}},
		},
		IDExtractor: func(link string) (string, error) {
			return helpers.PathSegmentAfter(link, "dp")
		},
	}
}
