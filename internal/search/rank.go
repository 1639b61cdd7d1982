package search

import (
	"sort"
	"strings"

	"sjsage522/shopcompare/internal/intent"
	"sjsage522/shopcompare/internal/product"
)

type filters struct {
	maxPrice  *float64
	minRating *float64
	category  string
}

// dedupe keeps the first listing per (platform, identity)
func dedupe(products []product.Product) []product.Product {
	seen := make(map[string]bool, len(products))
	out := make([]product.Product, 0, len(products))
	for _, p := range products {
		key := p.Platform.String() + "\x00" + p.Identity()
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, p)
	}
	return out
}

// apply runs the filters in order: price ceiling, rating floor, category.
// Unrated products are dropped once a rating floor is set.
func (f filters) apply(products []product.Product) []product.Product {
	category := strings.ToLower(f.category)
	out := products[:0]
	for _, p := range products {
		if f.maxPrice != nil && p.Price.Current > *f.maxPrice {
			continue
		}
		if f.minRating != nil && (p.Rating == nil || p.Rating.Value < *f.minRating) {
			continue
		}
		if category != "" && !strings.Contains(strings.ToLower(p.Category), category) {
			continue
		}
		out = append(out, p)
	}
	return out
}

// rank orders products by price. With the fast preference quick commerce comes
// first, then shorter delivery, with price breaking ties. The sort is stable.
func rank(products []product.Product, preference string) {
	if preference != intent.DeliveryFast {
		sort.SliceStable(products, func(i, j int) bool {
			return products[i].Price.Current < products[j].Price.Current
		})
		return
	}

	minutes := make(map[int]int, len(products))
	for i := range products {
		minutes[i] = products[i].Delivery.Minutes()
	}
	idx := make([]int, len(products))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		pa, pb := &products[idx[a]], &products[idx[b]]
		if qa, qb := pa.IsQuickCommerce(), pb.IsQuickCommerce(); qa != qb {
			return qa
		}
		if ma, mb := minutes[idx[a]], minutes[idx[b]]; ma != mb {
			return ma < mb
		}
		return pa.Price.Current < pb.Price.Current
	})

	sorted := make([]product.Product, len(products))
	for i, j := range idx {
		sorted[i] = products[j]
	}
	copy(products, sorted)
}
