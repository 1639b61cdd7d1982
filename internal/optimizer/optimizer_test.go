package optimizer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sjsage522/shopcompare/internal/cart"
	"sjsage522/shopcompare/internal/product"
)

func listing(platform product.Platform, id, name string, price float64, delivery string) product.Product {
	p := product.Product{
		PlatformProductID: id,
		Name:              name,
		Price:             product.Price{Current: price},
		Delivery:          product.Delivery{Time: delivery},
	}
	p.Tag(platform, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC))
	return p
}

func ids(items []cart.Item) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		out = append(out, it.Product.PlatformProductID)
	}
	return out
}

func TestOptimizeEmptyCart(t *testing.T) {
	_, ok := Optimize(nil, Request{Mode: BestPrice})
	assert.False(t, ok)

	_, ok = Optimize(cart.New(cart.Owner{}), Request{Mode: BestPrice})
	assert.False(t, ok)
}

func TestBestPriceKeepsCheapest(t *testing.T) {
	c := cart.New(cart.Owner{})
	c.AddItem(listing(product.Amazon, "a1", "Headphones", 500, "2 days"), 1, "")
	c.AddItem(listing(product.Flipkart, "f1", "headphones", 300, "4 days"), 1, "")

	res, ok := Optimize(c, Request{Mode: BestPrice})
	require.True(t, ok)
	assert.Equal(t, []string{"f1"}, ids(res.Items))
	assert.Equal(t, 800.0, res.OriginalTotal)
	assert.Equal(t, 300.0, res.OptimizedTotal)
	assert.Equal(t, 500.0, res.Savings)
	assert.Equal(t, []product.Platform{product.Flipkart}, res.PlatformsUsed)
	assert.Equal(t, "4 days", res.DeliveryTime)
	assert.Equal(t, []string{
		"Reduced platforms from 2 to 1",
		"Saved ₹500.00 through optimization",
	}, res.Notes)
}

func TestBestPriceUsesLineTotal(t *testing.T) {
	c := cart.New(cart.Owner{})
	c.AddItem(listing(product.Blinkit, "b1", "Milk", 30, "10 mins"), 4, "")
	c.AddItem(listing(product.Zepto, "z1", "Milk", 35, "12 mins"), 2, "")

	res, ok := Optimize(c, Request{Mode: BestPrice})
	require.True(t, ok)
	assert.Equal(t, []string{"z1"}, ids(res.Items))
}

func TestFastestDelivery(t *testing.T) {
	c := cart.New(cart.Owner{})
	c.AddItem(listing(product.Amazon, "a1", "Rice 5kg", 400, "2 days"), 1, "")
	c.AddItem(listing(product.Blinkit, "b1", "Rice 5kg", 450, "10 mins"), 1, "")
	c.AddItem(listing(product.Amazon, "a2", "Kettle", 999, "3 days"), 1, "")

	res, ok := Optimize(c, Request{Mode: FastestDelivery})
	require.True(t, ok)
	assert.Equal(t, []string{"b1", "a2"}, ids(res.Items))
	assert.Equal(t, "3 days", res.DeliveryTime)
	assert.Equal(t, 400.0, res.Savings)
	assert.Equal(t, []string{
		"Using 1 items from quick commerce for faster delivery",
		"Saved ₹400.00 through optimization",
	}, res.Notes)
}

func TestMinimumPlatforms(t *testing.T) {
	c := cart.New(cart.Owner{})
	c.AddItem(listing(product.Zepto, "z1", "Bread", 40, "15 mins"), 1, "")
	c.AddItem(listing(product.Blinkit, "b1", "Milk", 68, "10 mins"), 1, "")
	c.AddItem(listing(product.Blinkit, "b2", "Eggs", 80, "10 mins"), 1, "")
	c.AddItem(listing(product.Blinkit, "b3", "Butter", 55, "10 mins"), 1, "")

	res, ok := Optimize(c, Request{Mode: MinimumPlatforms})
	require.True(t, ok)
	assert.Equal(t, []string{"b1", "b2", "b3"}, ids(res.Items))
	assert.Equal(t, []product.Platform{product.Blinkit}, res.PlatformsUsed)
	assert.Equal(t, "10 mins", res.DeliveryTime)
	assert.Equal(t, "Reduced platforms from 2 to 1", res.Notes[0])
}

func TestMinimumPlatformsTieGoesToFirstSeen(t *testing.T) {
	c := cart.New(cart.Owner{})
	c.AddItem(listing(product.Zepto, "z1", "Bread", 40, "15 mins"), 1, "")
	c.AddItem(listing(product.Blinkit, "b1", "Milk", 68, "10 mins"), 1, "")
	c.AddItem(listing(product.Blinkit, "b2", "Eggs", 80, "10 mins"), 1, "")
	c.AddItem(listing(product.Zepto, "z2", "Jam", 90, "15 mins"), 1, "")

	res, ok := Optimize(c, Request{Mode: MinimumPlatforms})
	require.True(t, ok)
	assert.Equal(t, []string{"z1", "z2"}, ids(res.Items))
}

func TestBalancedDelegates(t *testing.T) {
	c := cart.New(cart.Owner{})
	c.AddItem(listing(product.Amazon, "a1", "Rice 5kg", 400, "2 days"), 1, "")
	c.AddItem(listing(product.Blinkit, "b1", "Rice 5kg", 450, "10 mins"), 1, "")

	res, ok := Optimize(c, Request{})
	require.True(t, ok)
	assert.Equal(t, Balanced, res.Mode)
	assert.Equal(t, []string{"a1"}, ids(res.Items))

	res, ok = Optimize(c, Request{Mode: Balanced, PrioritizeQuickDelivery: true})
	require.True(t, ok)
	assert.Equal(t, []string{"b1"}, ids(res.Items))
	assert.Equal(t, "10 mins", res.DeliveryTime)
}

func TestCapsAreReported(t *testing.T) {
	c := cart.New(cart.Owner{})
	c.AddItem(listing(product.Amazon, "a1", "Kettle", 999, "2 days"), 1, "")
	c.AddItem(listing(product.Blinkit, "b1", "Milk", 68, "10 mins"), 1, "")

	budget, maxPlatforms := 500.0, 1
	res, ok := Optimize(c, Request{Mode: BestPrice, MaxTotal: &budget, MaxPlatforms: &maxPlatforms})
	require.True(t, ok)
	assert.Len(t, res.Items, 2)
	assert.Contains(t, res.Notes, "Optimized total ₹1067.00 exceeds budget ₹500.00")
	assert.Contains(t, res.Notes, "Uses 2 platforms, more than the requested 1")
}

func TestOptimizeDoesNotMutateCart(t *testing.T) {
	c := cart.New(cart.Owner{})
	c.AddItem(listing(product.Amazon, "a1", "Headphones", 500, "2 days"), 1, "")
	c.AddItem(listing(product.Flipkart, "f1", "Headphones", 300, "4 days"), 1, "")

	_, ok := Optimize(c, Request{Mode: BestPrice})
	require.True(t, ok)
	assert.Len(t, c.Items, 2)
}
