// Package mock generates deterministic demo products for the lower cascade tiers.
package mock

import (
	"fmt"
	"math"
	"math/rand"
	"net/url"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"sjsage522/shopcompare/internal/product"
)

const (
	defaultCatalogSize = 5
	maxCatalogSize     = 10
	freeDeliveryAbove  = 500
	standardFee        = 40
	markup             = 1.2
)

var (
	groceryBrands = []string{"Amul", "Britannia", "Tata", "Fresho", "Nestle", "Mother Dairy", "Aashirvaad"}
	groceryPacks  = []string{"200g", "500g", "1kg", "Pack of 2", "Family Pack", "1L"}
)

// Catalog produces platform-flavored synthetic listings seeded only by platform and query
type Catalog struct {
	now func() time.Time
}

// NewCatalog creates a catalog stamping products with the current time
func NewCatalog() *Catalog {
	return &Catalog{now: time.Now}
}

// Generate returns up to limit products (five when limit is not positive).
// The same platform and query always produce the same names, prices and ratings.
func (c *Catalog) Generate(platform product.Platform, query string, limit int) []product.Product {
	n := defaultCatalogSize
	if limit > 0 {
		n = min(limit, maxCatalogSize)
	}

	q := normalizeQuery(query)
	title := titleCase(q)
	seed := xxhash.Sum64String(platform.String() + "|" + strings.ToLower(q))
	rng := rand.New(rand.NewSource(int64(seed)))
	now := c.now()

	products := make([]product.Product, 0, n)
	for i := 0; i < n; i++ {
		var p product.Product
		if platform.Type() == product.QuickCommerce {
			p = groceryItem(rng, title, i)
		} else {
			p = ecommerceItem(rng, title, i)
		}
		p.PlatformProductID = fmt.Sprintf("mock_%08x_%d", uint32(seed), i+1)
		p.ID = fmt.Sprintf("mock_%s_%d", platform, i+1)
		p.PlatformURL = fmt.Sprintf("https://www.%s.com/product/%d/%s", platform, i+1, slug(p.Name))
		p.Price.Original = math.Round(p.Price.Current * markup)
		p.Delivery.FreeDelivery = p.Price.Current > freeDeliveryAbove
		if !p.Delivery.FreeDelivery {
			p.Delivery.Fee = standardFee
		}
		p.Availability = true
		p.InStock = true
		p.StockQuantity = 10 + rng.Intn(91)
		p.Category = q
		p.Description = fmt.Sprintf("High-quality %s from %s", q, platform.Title())
		p.Tag(platform, now)
		products = append(products, p)
	}
	return products
}

func ecommerceItem(rng *rand.Rand, title string, i int) product.Product {
	price := float64(299 + rng.Intn(4999-299+1))
	rating := math.Round((3.8+rng.Float64())*10) / 10
	return product.Product{
		Name:   fmt.Sprintf("%s %d", title, i+1),
		Brand:  "Demo Brand",
		Price:  product.Price{Current: price},
		Rating: &product.Rating{Value: math.Min(rating, 4.8), TotalReviews: 50 + rng.Intn(451)},
	}
}

func groceryItem(rng *rand.Rand, title string, i int) product.Product {
	brand := groceryBrands[(rng.Intn(len(groceryBrands))+i)%len(groceryBrands)]
	pack := groceryPacks[rng.Intn(len(groceryPacks))]
	price := float64(15 + rng.Intn(436))
	rating := math.Round((3.9+rng.Float64()*0.7)*10) / 10
	return product.Product{
		Name:   fmt.Sprintf("%s %s %s", brand, title, pack),
		Brand:  brand,
		Price:  product.Price{Current: price},
		Rating: &product.Rating{Value: rating, TotalReviews: 50 + rng.Intn(451)},
	}
}

func normalizeQuery(query string) string {
	q := strings.Join(strings.Fields(query), " ")
	if q == "" {
		return "product"
	}
	return q
}

func slug(name string) string {
	return url.PathEscape(strings.ReplaceAll(strings.ToLower(name), " ", "-"))
}

// titleCase capitalizes each word; a Caser is stateful so one is made per call
func titleCase(s string) string {
	return cases.Title(language.English).String(s)
}
