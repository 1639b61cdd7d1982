package scraper

import (
	"net/url"
	"strconv"
	"strings"

	"sjsage522/shopcompare/helpers"
	"sjsage522/shopcompare/internal/product"
)

func blinkitConfig() PlatformConfig {
	return PlatformConfig{
		Platform: product.Blinkit,
		BaseURL:  "https://blinkit.com",
		SearchURL: func(base, query string, opts SearchOptions) string {
			location := strings.ToLower(strings.TrimSpace(opts.Location))
			if location == "" {
				location = "mumbai"
			}
			v := url.Values{}
			v.Set("q", query)
			v.Set("location", location)
			if opts.Latitude != 0 || opts.Longitude != 0 {
				v.Set("lat", strconv.FormatFloat(opts.Latitude, 'f', 6, 64))
				v.Set("lon", strconv.FormatFloat(opts.Longitude, 'f', 6, 64))
			}
			return base + "/search?" + v.Encode()
		},
		DetailPath: "/prn/x/prid/%s",
		SelectorSets: []SelectorSet{
			{
				Version:       "product-card",
				Listing:       []string{`.product-card, .ProductCard, [data-testid="product-card"]`},
				ID:            []string{"@data-product-id"},
				Name:          []string{".product-name", ".ProductName", "h3", "h4"},
				Price:         []string{".price", ".Price", ".product-price"},
				OriginalPrice: []string{".original-price", ".strike-price"},
				Image:         []string{"img@src"},
				Link:          []string{"a@href", "@href"},
				Delivery:      []string{".delivery-time", `[class*="eta"]`},
			},
			{
				Version:       "plp-product",
				Listing:       []string{`div[data-test-id="plp-product"]`, `a[data-test-id="plp-product"]`},
				Name:          []string{`div[class*="Product__ProductName"]`, `div[class*="line-clamp-2"]`},
				Price:         []string{`div[class*="Product__UpdatedPriceAndAtcContainer"] div div`, `div[class*="tw-text-200 tw-font-semibold"]`},
				OriginalPrice: []string{`div[class*="line-through"]`},
				Image:         []string{"img@src"},
				Link:          []string{"@href", "a@href"},
				Delivery:      []string{`div[class*="ProductCard__Eta"]`, `div[class*="tw-text-050"]`},
			},
		},
		Detail: DetailSelectors{
			Name:          []XPathRule{{Expr: "//*[contains(@class,'product-title') or contains(@class,'ProductTitle')]"}, {Expr: "//h1"}},
			Price:         []XPathRule{{Expr: "//*[contains(@class,'current-price') or contains(@class,'price-current')]"}},
			OriginalPrice: []XPathRule{{Expr: "//*[contains(@class,'original-price') or contains(@class,'price-original')]"}},
			Images:        []XPathRule{{Expr: "//*[contains(@class,'product-image') or contains(@class,'ProductImage')]//img", Attr: "src"}},
			Delivery:      []XPathRule{{Expr: "//*[contains(@class,'delivery-time') or contains(@class,'DeliveryTime')]"}},
		},
		IDExtractor: func(link string) (string, error) {
			if id, err := helpers.PathSegmentAfter(link, "prid"); err == nil {
				return id, nil
			}
			return helpers.LastPathSegment(link)
		},
		DeliveryTime: "10-15 mins",
	}
}
