package mock

import (
	"fmt"
	"math"
	"net/url"
	"strings"
	"time"

	"sjsage522/shopcompare/internal/product"
)

const (
	maxPlaceholderPlatforms = 3
	maxPlaceholderProducts  = 6
	quickCommerceFee        = 20
)

var priceLadder = []float64{299, 499, 799, 1299, 1999, 2999}

// Placeholder builds last-resort products from the query text alone.
// It has no dependencies and always returns at least one product.
func Placeholder(query string, platforms []product.Platform, now time.Time) []product.Product {
	if len(platforms) == 0 {
		platforms = []product.Platform{product.Flipkart}
	}
	if len(platforms) > maxPlaceholderPlatforms {
		platforms = platforms[:maxPlaceholderPlatforms]
	}
	names := placeholderNames(normalizeQuery(query))

	var products []product.Product
	for i, platform := range platforms {
		for j, name := range names {
			if len(products) >= maxPlaceholderProducts {
				return products
			}
			price := priceLadder[(i+j)%len(priceLadder)]
			p := product.Product{
				ID:                fmt.Sprintf("placeholder_%s_%d_%d", platform, i, j),
				Name:              name,
				PlatformProductID: fmt.Sprintf("mock_%s_%d_%d", platform, i, j),
				PlatformURL:       fmt.Sprintf("https://%s.com/product/%d_%d", platform, i, j),
				Price:             product.Price{Current: price, Original: math.Round(price*markup*100) / 100},
				Rating: &product.Rating{
					Value:        math.Round((4.0+float64(i+j)*0.1)*10) / 10,
					TotalReviews: 100 + (i+j)*50,
				},
				Images: []product.Image{{
					URL:       "https://via.placeholder.com/300x300?text=" + url.QueryEscape(name),
					AltText:   name,
					IsPrimary: true,
				}},
				Availability: true,
				InStock:      true,
			}
			if platform.Type() == product.QuickCommerce {
				p.Delivery = product.Delivery{Time: "10-30 mins", Fee: quickCommerceFee}
			} else {
				p.Delivery = product.Delivery{Time: "2-3 days", FreeDelivery: true}
			}
			p.Tag(platform, now)
			products = append(products, p)
		}
	}
	return products
}

// placeholderNames picks name templates by query family
func placeholderNames(query string) []string {
	lower := strings.ToLower(query)
	title := titleCase(query)
	switch {
	case containsAny(lower, "cheese", "dairy", "milk"):
		return []string{
			"Amul " + title + " - 200g",
			"Britannia " + title + " - 250g",
			"Mother Dairy " + title + " - 500g",
		}
	case containsAny(lower, "phone", "mobile", "smartphone"):
		return []string{"iPhone 15 - 128GB", "Samsung Galaxy S24 - 256GB", "OnePlus 12 - 512GB"}
	case containsAny(lower, "laptop", "computer"):
		return []string{"MacBook Air M2 - 13 inch", "Dell Inspiron 15 - Intel i5", "HP Pavilion 14 - AMD Ryzen 5"}
	default:
		return []string{
			title + " - Premium Quality",
			title + " - Best Seller",
			title + " - Value Pack",
		}
	}
}

func containsAny(s string, words ...string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}
