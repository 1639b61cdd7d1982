package search

import (
	"slices"
	"strings"

	"sjsage522/shopcompare/internal/cascade"
	"sjsage522/shopcompare/internal/intent"
	"sjsage522/shopcompare/internal/product"
	"sjsage522/shopcompare/pkg/errors"
	"sjsage522/shopcompare/pkg/validate"
)

const (
	DefaultLimit = 20
	MaxLimit     = 100
)

// Request is one search as submitted by a client
type Request struct {
	Query              string   `json:"query" validate:"required,min=1,max=500"`
	Platforms          []string `json:"platforms,omitempty"`
	MaxPrice           *float64 `json:"max_price,omitempty" validate:"omitempty,gt=0"`
	MinRating          *float64 `json:"min_rating,omitempty" validate:"omitempty,gte=0,lte=5"`
	Category           string   `json:"category,omitempty" validate:"max=100"`
	Location           string   `json:"location,omitempty" validate:"max=100"`
	Latitude           *float64 `json:"latitude,omitempty" validate:"omitempty,gte=-90,lte=90"`
	Longitude          *float64 `json:"longitude,omitempty" validate:"omitempty,gte=-180,lte=180"`
	Limit              int      `json:"limit,omitempty" validate:"gte=0,lte=100"`
	DeliveryPreference string   `json:"delivery_preference,omitempty" validate:"omitempty,oneof=fast cheap balanced"`
}

// PlatformResult reports which tier served one platform
type PlatformResult struct {
	Platform product.Platform `json:"platform"`
	Tier     cascade.Tier     `json:"tier"`
	Products int              `json:"products"`
}

// Response is the comparison returned for a search
type Response struct {
	Query        string              `json:"query"`
	Products     []product.Product   `json:"products"`
	TotalResults int                 `json:"total_results"`
	SearchTime   float64             `json:"search_time"`
	Location     string              `json:"location,omitempty"`
	DataSource   cascade.Tier        `json:"data_source"`
	Message      string              `json:"message"`
	Platforms    []PlatformResult    `json:"platforms"`
	Intent       *intent.ParsedQuery `json:"parsed_query,omitempty"`
	Cached       bool                `json:"cached,omitempty"`
}

// normalize trims the request, applies defaults and validates it.
// The returned platforms are parsed, de-duplicated and sorted.
func (r *Request) normalize() ([]product.Platform, error) {
	r.Query = strings.TrimSpace(r.Query)
	r.Category = strings.TrimSpace(r.Category)
	r.Location = strings.TrimSpace(r.Location)
	r.DeliveryPreference = strings.ToLower(strings.TrimSpace(r.DeliveryPreference))

	if err := validate.Struct(r); err != nil {
		return nil, err
	}
	if r.Limit == 0 {
		r.Limit = DefaultLimit
	}

	platforms, err := product.ParsePlatforms(r.Platforms)
	if err != nil {
		return nil, errors.NewValidation("", err.Error())
	}
	slices.Sort(platforms)
	platforms = slices.Compact(platforms)

	// fresh slice: the caller's backing array is left alone
	names := make([]string, 0, len(platforms))
	for _, p := range platforms {
		names = append(names, p.String())
	}
	r.Platforms = names
	return platforms, nil
}
