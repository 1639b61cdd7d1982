// Package optimizer picks a subset of cart lines for a price, speed or
// platform-consolidation objective and explains the result.
package optimizer

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"sjsage522/shopcompare/internal/cart"
	"sjsage522/shopcompare/internal/extract"
	"sjsage522/shopcompare/internal/product"
)

// Mode is an optimization objective
type Mode string

const (
	BestPrice        Mode = "best_price"
	FastestDelivery  Mode = "fastest_delivery"
	MinimumPlatforms Mode = "minimum_platforms"
	Balanced         Mode = "balanced"
)

// Request selects the objective. MaxTotal and MaxPlatforms are reported
// against, they do not change which items are kept.
type Request struct {
	Mode                    Mode     `json:"mode" validate:"omitempty,oneof=best_price fastest_delivery minimum_platforms balanced"`
	MaxTotal                *float64 `json:"max_total,omitempty" validate:"omitempty,gt=0"`
	MaxPlatforms            *int     `json:"max_platforms,omitempty" validate:"omitempty,gte=1"`
	PrioritizeQuickDelivery bool     `json:"prioritize_quick_delivery"`
}

// Result is computed per request and never stored
type Result struct {
	Mode           Mode               `json:"mode"`
	OriginalTotal  float64            `json:"original_total"`
	OptimizedTotal float64            `json:"optimized_total"`
	Savings        float64            `json:"savings"`
	DeliveryTime   string             `json:"delivery_time"`
	PlatformsUsed  []product.Platform `json:"platforms_used"`
	Notes          []string           `json:"optimization_notes"`
	Items          []cart.Item        `json:"cart_items"`
}

// Optimize returns false for a missing or empty cart
func Optimize(c *cart.Cart, req Request) (*Result, bool) {
	if c == nil || len(c.Items) == 0 {
		return nil, false
	}
	mode := req.Mode
	if mode == "" {
		mode = Balanced
	}

	var kept []cart.Item
	switch mode {
	case BestPrice:
		kept = bestPrice(c.Items)
	case FastestDelivery:
		kept = fastestDelivery(c.Items)
	case MinimumPlatforms:
		kept = minimumPlatforms(c.Items)
	default:
		mode = Balanced
		if req.PrioritizeQuickDelivery {
			kept = fastestDelivery(c.Items)
		} else {
			kept = bestPrice(c.Items)
		}
	}

	original := sum(c.Items)
	optimized := sum(kept)
	savings := original.Sub(optimized)

	res := &Result{
		Mode:           mode,
		OriginalTotal:  original.InexactFloat64(),
		OptimizedTotal: optimized.InexactFloat64(),
		Savings:        savings.InexactFloat64(),
		DeliveryTime:   deliveryLabel(kept),
		PlatformsUsed:  platforms(kept),
		Items:          kept,
	}
	res.Notes = notes(c.Items, kept, savings, optimized, req)
	return res, true
}

// groupByName buckets items by lowercase product name, keeping first-seen order
func groupByName(items []cart.Item) [][]cart.Item {
	index := make(map[string]int)
	var groups [][]cart.Item
	for _, it := range items {
		key := strings.ToLower(it.Product.Name)
		i, ok := index[key]
		if !ok {
			i = len(groups)
			index[key] = i
			groups = append(groups, nil)
		}
		groups[i] = append(groups[i], it)
	}
	return groups
}

// pickEach keeps the first item of each group with the lowest score
func pickEach(items []cart.Item, less func(a, b cart.Item) bool) []cart.Item {
	groups := groupByName(items)
	kept := make([]cart.Item, 0, len(groups))
	for _, g := range groups {
		best := g[0]
		for _, it := range g[1:] {
			if less(it, best) {
				best = it
			}
		}
		kept = append(kept, best)
	}
	return kept
}

func bestPrice(items []cart.Item) []cart.Item {
	return pickEach(items, func(a, b cart.Item) bool {
		return a.TotalPrice() < b.TotalPrice()
	})
}

func fastestDelivery(items []cart.Item) []cart.Item {
	return pickEach(items, func(a, b cart.Item) bool {
		return a.Product.Delivery.Minutes() < b.Product.Delivery.Minutes()
	})
}

// minimumPlatforms keeps only the platform with the most lines.
// Ties go to the platform seen first. Other products are dropped.
func minimumPlatforms(items []cart.Item) []cart.Item {
	counts := make(map[product.Platform]int)
	var order []product.Platform
	for _, it := range items {
		if counts[it.SelectedPlatform] == 0 {
			order = append(order, it.SelectedPlatform)
		}
		counts[it.SelectedPlatform]++
	}
	best := order[0]
	for _, p := range order[1:] {
		if counts[p] > counts[best] {
			best = p
		}
	}

	kept := make([]cart.Item, 0, counts[best])
	for _, it := range items {
		if it.SelectedPlatform == best {
			kept = append(kept, it)
		}
	}
	return kept
}

func sum(items []cart.Item) decimal.Decimal {
	total := decimal.Zero
	for _, it := range items {
		total = total.Add(decimal.NewFromFloat(it.Product.Price.Current).Mul(decimal.NewFromInt(int64(it.Quantity))))
	}
	return total
}

// deliveryLabel is the slowest kept item, since the order arrives when its last part does
func deliveryLabel(items []cart.Item) string {
	if len(items) == 0 {
		return cart.NoDelivery
	}
	slowest := 0
	for _, it := range items {
		if m := it.Product.Delivery.Minutes(); m > slowest {
			slowest = m
		}
	}
	return extract.FormatMinutes(slowest)
}

func platforms(items []cart.Item) []product.Platform {
	seen := make(map[product.Platform]bool)
	out := []product.Platform{}
	for _, it := range items {
		if !seen[it.SelectedPlatform] {
			seen[it.SelectedPlatform] = true
			out = append(out, it.SelectedPlatform)
		}
	}
	return out
}

func notes(original, kept []cart.Item, savings, optimized decimal.Decimal, req Request) []string {
	out := []string{}

	before, after := len(platforms(original)), len(platforms(kept))
	if after < before {
		out = append(out, fmt.Sprintf("Reduced platforms from %d to %d", before, after))
	}

	quick := 0
	for i := range kept {
		if kept[i].Product.IsQuickCommerce() {
			quick++
		}
	}
	if quick > 0 {
		out = append(out, fmt.Sprintf("Using %d items from quick commerce for faster delivery", quick))
	}

	if savings.IsPositive() {
		out = append(out, fmt.Sprintf("Saved ₹%s through optimization", savings.StringFixed(2)))
	}

	if req.MaxTotal != nil && optimized.GreaterThan(decimal.NewFromFloat(*req.MaxTotal)) {
		out = append(out, fmt.Sprintf("Optimized total ₹%s exceeds budget ₹%s",
			optimized.StringFixed(2), decimal.NewFromFloat(*req.MaxTotal).StringFixed(2)))
	}
	if req.MaxPlatforms != nil && after > *req.MaxPlatforms {
		out = append(out, fmt.Sprintf("Uses %d platforms, more than the requested %d", after, *req.MaxPlatforms))
	}
	return out
}
