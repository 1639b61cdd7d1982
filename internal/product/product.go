package product

import (
	"maps"
	"strings"
	"time"

	"sjsage522/shopcompare/internal/extract"
	"sjsage522/shopcompare/pkg/errors"
)

// DefaultCurrency is applied to prices scraped without an explicit currency
const DefaultCurrency = "INR"

const (
	DeliveryStandard = "standard"
	DeliveryExpress  = "express"
)

// Offer is a discount attached to a price
type Offer struct {
	DiscountPercentage float64 `json:"discount_percentage,omitempty" bson:"discount_percentage,omitempty"`
	DiscountAmount     float64 `json:"discount_amount,omitempty" bson:"discount_amount,omitempty"`
	OfferText          string  `json:"offer_text,omitempty" bson:"offer_text,omitempty"`
	CouponCode         string  `json:"coupon_code,omitempty" bson:"coupon_code,omitempty"`
}

// Price holds the selling price and, when shown, the struck-through price
type Price struct {
	Current      float64 `json:"current_price" bson:"current_price"`
	Original     float64 `json:"original_price,omitempty" bson:"original_price,omitempty"`
	Currency     string  `json:"currency" bson:"currency"`
	PricePerUnit string  `json:"price_per_unit,omitempty" bson:"price_per_unit,omitempty"`
	Offers       []Offer `json:"offers,omitempty" bson:"offers,omitempty"`
}

// OriginalOrCurrent returns the original price, or the current one when none was listed
func (p Price) OriginalOrCurrent() float64 {
	if p.Original > 0 {
		return p.Original
	}
	return p.Current
}

// Rating is a review score in [0,5] with its review count
type Rating struct {
	Value        float64 `json:"rating" bson:"rating"`
	TotalReviews int     `json:"total_reviews" bson:"total_reviews"`
	Text         string  `json:"rating_text,omitempty" bson:"rating_text,omitempty"`
}

// Delivery describes how fast and at what cost a listing ships
type Delivery struct {
	Time         string  `json:"delivery_time" bson:"delivery_time"`
	Fee          float64 `json:"delivery_fee,omitempty" bson:"delivery_fee,omitempty"`
	FreeDelivery bool    `json:"free_delivery" bson:"free_delivery"`
	Type         string  `json:"delivery_type" bson:"delivery_type"`
}

// Minutes returns the parsed delivery time, DeliverySentinel when unknown
func (d Delivery) Minutes() int {
	return extract.DeliveryMinutes(d.Time)
}

// Image is one product picture
type Image struct {
	URL       string `json:"url" bson:"url"`
	AltText   string `json:"alt_text,omitempty" bson:"alt_text,omitempty"`
	IsPrimary bool   `json:"is_primary" bson:"is_primary"`
}

// Product is a normalized listing from one platform
type Product struct {
	ID          string `json:"id,omitempty" bson:"id,omitempty"`
	Name        string `json:"name" bson:"name"`
	Description string `json:"description,omitempty" bson:"description,omitempty"`
	Brand       string `json:"brand,omitempty" bson:"brand,omitempty"`
	Category    string `json:"category,omitempty" bson:"category,omitempty"`
	Subcategory string `json:"subcategory,omitempty" bson:"subcategory,omitempty"`

	Platform          Platform     `json:"platform" bson:"platform"`
	PlatformType      PlatformType `json:"platform_type" bson:"platform_type"`
	PlatformProductID string       `json:"platform_product_id,omitempty" bson:"platform_product_id,omitempty"`
	PlatformURL       string       `json:"platform_url" bson:"platform_url"`

	Price    Price    `json:"price" bson:"price"`
	Images   []Image  `json:"images" bson:"images"`
	Rating   *Rating  `json:"rating,omitempty" bson:"rating,omitempty"`
	Delivery Delivery `json:"delivery" bson:"delivery"`

	Specifications map[string]string `json:"specifications,omitempty" bson:"specifications,omitempty"`
	Availability   bool              `json:"availability" bson:"availability"`
	InStock        bool              `json:"in_stock" bson:"in_stock"`
	StockQuantity  int               `json:"stock_quantity,omitempty" bson:"stock_quantity,omitempty"`

	ScrapedAt time.Time `json:"scraped_at" bson:"scraped_at"`
	Location  string    `json:"location,omitempty" bson:"location,omitempty"`
}

// Clone copies the listing with its own rating, offers, images and specifications
func (p Product) Clone() Product {
	if p.Price.Offers != nil {
		p.Price.Offers = append(make([]Offer, 0, len(p.Price.Offers)), p.Price.Offers...)
	}
	if p.Rating != nil {
		r := *p.Rating
		p.Rating = &r
	}
	if p.Images != nil {
		p.Images = append(make([]Image, 0, len(p.Images)), p.Images...)
	}
	if p.Specifications != nil {
		p.Specifications = maps.Clone(p.Specifications)
	}
	return p
}

// IsQuickCommerce reports whether the listing comes from a quick-commerce platform
func (p *Product) IsQuickCommerce() bool {
	return p.PlatformType == QuickCommerce
}

// Identity is the merge key used by carts and de-duplication.
// The platform product id wins; the lowercase name stands in for best-effort listings.
func (p *Product) Identity() string {
	if p.PlatformProductID != "" {
		return p.PlatformProductID
	}
	return strings.ToLower(extract.CleanText(p.Name))
}

// Tag stamps platform identity and fills defaults that every emitted product must carry
func (p *Product) Tag(platform Platform, now time.Time) {
	p.Platform = platform
	p.PlatformType = platform.Type()
	if p.Price.Currency == "" {
		p.Price.Currency = DefaultCurrency
	}
	if p.Delivery.Time == "" {
		p.Delivery.Time = DefaultDeliveryTime(p.PlatformType)
	}
	if p.Delivery.Type == "" {
		if p.PlatformType == QuickCommerce {
			p.Delivery.Type = DeliveryExpress
		} else {
			p.Delivery.Type = DeliveryStandard
		}
	}
	if p.ScrapedAt.IsZero() {
		p.ScrapedAt = now
	}
}

// Validate checks a listing and repairs what can be repaired:
// an original price below the current one is dropped, extra primary images are demoted.
func (p *Product) Validate() error {
	p.Name = extract.CleanText(p.Name)
	if p.Name == "" {
		return errors.NewValidation(p.Platform.String(), "empty product name")
	}
	if p.Price.Current <= 0 {
		return errors.NewValidation(p.Platform.String(), "missing or non-positive price for "+p.Name)
	}
	if p.Price.Original > 0 && p.Price.Original < p.Price.Current {
		p.Price.Original = 0
	}
	if p.Rating != nil && (p.Rating.Value < 0 || p.Rating.Value > 5) {
		p.Rating = nil
	}
	if p.Rating != nil && p.Rating.TotalReviews < 0 {
		p.Rating.TotalReviews = 0
	}

	primary := false
	for i := range p.Images {
		if p.Images[i].IsPrimary {
			if primary {
				p.Images[i].IsPrimary = false
			}
			primary = true
		}
	}
	if !primary && len(p.Images) > 0 {
		p.Images[0].IsPrimary = true
	}
	return nil
}

// DefaultDeliveryTime is the delivery label used when a listing does not show one
func DefaultDeliveryTime(t PlatformType) string {
	if t == QuickCommerce {
		return "10-30 mins"
	}
	return "2-5 days"
}
