package cart

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"sjsage522/shopcompare/internal/extract"
	"sjsage522/shopcompare/internal/product"
)

// NoDelivery is the fastest-delivery label of an empty cart
const NoDelivery = "N/A"

var now = func() time.Time { return time.Now().UTC() }

// Item is one line of a cart. The product is a snapshot taken when it was added.
type Item struct {
	ID               string           `json:"id" bson:"id"`
	Product          product.Product  `json:"product" bson:"product"`
	Quantity         int              `json:"quantity" bson:"quantity"`
	SelectedPlatform product.Platform `json:"selected_platform" bson:"selected_platform"`
	AddedAt          time.Time        `json:"added_at" bson:"added_at"`
	Notes            string           `json:"notes,omitempty" bson:"notes,omitempty"`
}

func (it Item) total() decimal.Decimal {
	return decimal.NewFromFloat(it.Product.Price.Current).Mul(decimal.NewFromInt(int64(it.Quantity)))
}

func (it Item) originalTotal() decimal.Decimal {
	return decimal.NewFromFloat(it.Product.Price.OriginalOrCurrent()).Mul(decimal.NewFromInt(int64(it.Quantity)))
}

// TotalPrice is the current price times the quantity
func (it Item) TotalPrice() float64 {
	return it.total().InexactFloat64()
}

// TotalOriginalPrice uses the original price when listed, else the current one
func (it Item) TotalOriginalPrice() float64 {
	return it.originalTotal().InexactFloat64()
}

// Cart is the root aggregate. Items keep insertion order.
type Cart struct {
	ID        string    `json:"id" bson:"_id"`
	UserID    string    `json:"user_id,omitempty" bson:"user_id,omitempty"`
	SessionID string    `json:"session_id,omitempty" bson:"session_id,omitempty"`
	Items     []Item    `json:"items" bson:"items"`
	CreatedAt time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt time.Time `json:"updated_at" bson:"updated_at"`
}

// Owner identifies who a new cart belongs to. Both fields may be empty.
type Owner struct {
	UserID    string `json:"user_id,omitempty"`
	SessionID string `json:"session_id,omitempty"`
}

// New returns an empty cart with a fresh id
func New(owner Owner) *Cart {
	t := now()
	return &Cart{
		ID:        uuid.NewString(),
		UserID:    owner.UserID,
		SessionID: owner.SessionID,
		Items:     []Item{},
		CreatedAt: t,
		UpdatedAt: t,
	}
}

// Clone copies the cart deeply enough that no edit of the copy reaches the original
func (c *Cart) Clone() *Cart {
	cp := *c
	cp.Items = make([]Item, len(c.Items))
	for i, it := range c.Items {
		it.Product = it.Product.Clone()
		cp.Items[i] = it
	}
	return &cp
}

// AddItem merges into the line with the same product identity and platform,
// or appends a new line. An empty platform means the product's own.
func (c *Cart) AddItem(p product.Product, quantity int, platform product.Platform) Item {
	if platform == "" {
		platform = p.Platform
	}
	t := now()
	c.UpdatedAt = t

	identity := p.Identity()
	for i := range c.Items {
		if c.Items[i].SelectedPlatform == platform && c.Items[i].Product.Identity() == identity {
			c.Items[i].Quantity += quantity
			return c.Items[i]
		}
	}

	item := Item{
		ID:               uuid.NewString(),
		Product:          p,
		Quantity:         quantity,
		SelectedPlatform: platform,
		AddedAt:          t,
	}
	c.Items = append(c.Items, item)
	return item
}

// RemoveItem reports whether an item was removed
func (c *Cart) RemoveItem(itemID string) bool {
	for i := range c.Items {
		if c.Items[i].ID == itemID {
			c.Items = append(c.Items[:i:i], c.Items[i+1:]...)
			c.UpdatedAt = now()
			return true
		}
	}
	return false
}

// UpdateQuantity sets an item's quantity; zero or less removes it.
// It returns false when the item is not in the cart.
func (c *Cart) UpdateQuantity(itemID string, quantity int) bool {
	if quantity <= 0 {
		return c.RemoveItem(itemID)
	}
	for i := range c.Items {
		if c.Items[i].ID == itemID {
			c.Items[i].Quantity = quantity
			c.UpdatedAt = now()
			return true
		}
	}
	return false
}

// Clear empties the cart
func (c *Cart) Clear() {
	c.Items = []Item{}
	c.UpdatedAt = now()
}

// FindItem returns the item with the given id
func (c *Cart) FindItem(itemID string) (Item, bool) {
	for _, it := range c.Items {
		if it.ID == itemID {
			return it, true
		}
	}
	return Item{}, false
}

// TotalItems is the sum of quantities
func (c *Cart) TotalItems() int {
	n := 0
	for _, it := range c.Items {
		n += it.Quantity
	}
	return n
}

// TotalPrice is the sum of the item totals
func (c *Cart) TotalPrice() float64 {
	sum := decimal.Zero
	for _, it := range c.Items {
		sum = sum.Add(it.total())
	}
	return sum.InexactFloat64()
}

// TotalOriginalPrice is the sum of the item original totals
func (c *Cart) TotalOriginalPrice() float64 {
	sum := decimal.Zero
	for _, it := range c.Items {
		sum = sum.Add(it.originalTotal())
	}
	return sum.InexactFloat64()
}

// TotalSavings is original minus current. It is never negative because
// products drop an original price below their current one on validation.
func (c *Cart) TotalSavings() float64 {
	sum := decimal.Zero
	for _, it := range c.Items {
		sum = sum.Add(it.originalTotal().Sub(it.total()))
	}
	return sum.InexactFloat64()
}

// PlatformsUsed lists the selected platforms in first-seen order
func (c *Cart) PlatformsUsed() []product.Platform {
	return platformsOf(c.Items)
}

func platformsOf(items []Item) []product.Platform {
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

// DeliverySummary groups delivery labels by platform
type DeliverySummary struct {
	Platforms       map[product.Platform][]string `json:"platforms"`
	FastestDelivery string                        `json:"fastest_delivery"`
}

// DeliverySummary reports the delivery labels per platform and the fastest
// one overall by parsed minutes
func (c *Cart) DeliverySummary() DeliverySummary {
	ds := DeliverySummary{
		Platforms:       make(map[product.Platform][]string),
		FastestDelivery: NoDelivery,
	}
	best := 0
	for i, it := range c.Items {
		label := it.Product.Delivery.Time
		ds.Platforms[it.SelectedPlatform] = append(ds.Platforms[it.SelectedPlatform], label)
		if m := extract.DeliveryMinutes(label); i == 0 || m < best {
			best = m
			ds.FastestDelivery = label
		}
	}
	if strings.TrimSpace(ds.FastestDelivery) == "" {
		ds.FastestDelivery = NoDelivery
	}
	return ds
}

// Summary is the read model of a cart's totals
type Summary struct {
	TotalItems         int                `json:"total_items"`
	TotalPrice         float64            `json:"total_price"`
	TotalOriginalPrice float64            `json:"total_original_price"`
	TotalSavings       float64            `json:"total_savings"`
	PlatformsUsed      []product.Platform `json:"platforms_used"`
	DeliverySummary    DeliverySummary    `json:"delivery_summary"`
	ItemCount          int                `json:"item_count"`
}

// Summary computes every derived aggregate from the current items
func (c *Cart) Summary() Summary {
	return Summary{
		TotalItems:         c.TotalItems(),
		TotalPrice:         c.TotalPrice(),
		TotalOriginalPrice: c.TotalOriginalPrice(),
		TotalSavings:       c.TotalSavings(),
		PlatformsUsed:      c.PlatformsUsed(),
		DeliverySummary:    c.DeliverySummary(),
		ItemCount:          len(c.Items),
	}
}
