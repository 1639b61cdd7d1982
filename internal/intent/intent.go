package intent

import (
	"context"
	"regexp"
	"strings"
	"unicode/utf8"

	"sjsage522/shopcompare/logger"
)

// Delivery preferences understood by the orchestrator
const (
	DeliveryFast     = "fast"
	DeliveryCheap    = "cheap"
	DeliveryBalanced = "balanced"
)

// ProductIntent is one product the user asked for
type ProductIntent struct {
	Name           string            `json:"product_name"`
	Quantity       int               `json:"quantity"`
	Category       string            `json:"category,omitempty"`
	Brand          string            `json:"brand,omitempty"`
	MaxPrice       *float64          `json:"max_price,omitempty"`
	MinRating      *float64          `json:"min_rating,omitempty"`
	Specifications map[string]string `json:"specifications,omitempty"`
}

// Constraints apply to the whole query
type Constraints struct {
	TotalBudget        *float64 `json:"total_budget,omitempty"`
	MinRating          *float64 `json:"min_rating,omitempty"`
	DeliveryPreference string   `json:"delivery_preference,omitempty"`
	PreferredPlatforms []string `json:"preferred_platforms,omitempty"`
	Location           string   `json:"location,omitempty"`
}

// ParsedQuery is the structured reading of a free-text shopping request
type ParsedQuery struct {
	Products      []ProductIntent `json:"products"`
	Constraints   Constraints     `json:"constraints"`
	OriginalQuery string          `json:"original_query"`
	Confidence    float64         `json:"confidence_score"`
}

// Fallback is the reading used when nothing better is available:
// the raw query as the only product, no constraints.
func Fallback(query string) ParsedQuery {
	q := strings.TrimSpace(query)
	pq := ParsedQuery{OriginalQuery: query, Confidence: 0.3}
	if q != "" {
		pq.Products = []ProductIntent{{Name: q, Quantity: 1}}
	}
	return pq
}

// SubQueries returns the product names to search for, falling back to the raw query
func (pq ParsedQuery) SubQueries() []string {
	seen := make(map[string]bool, len(pq.Products))
	var out []string
	for _, p := range pq.Products {
		name := strings.TrimSpace(p.Name)
		key := strings.ToLower(name)
		if name == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, name)
	}
	if len(out) == 0 && strings.TrimSpace(pq.OriginalQuery) != "" {
		out = []string{strings.TrimSpace(pq.OriginalQuery)}
	}
	return out
}

// Budget returns the overall price ceiling: the total budget, else the first product cap
func (pq ParsedQuery) Budget() (float64, bool) {
	if pq.Constraints.TotalBudget != nil {
		return *pq.Constraints.TotalBudget, true
	}
	for _, p := range pq.Products {
		if p.MaxPrice != nil {
			return *p.MaxPrice, true
		}
	}
	return 0, false
}

// MinRating returns the rating floor from the constraints or any product
func (pq ParsedQuery) MinRating() (float64, bool) {
	if pq.Constraints.MinRating != nil {
		return *pq.Constraints.MinRating, true
	}
	for _, p := range pq.Products {
		if p.MinRating != nil {
			return *p.MinRating, true
		}
	}
	return 0, false
}

// Extractor turns free text into a ParsedQuery
type Extractor interface {
	Extract(ctx context.Context, query string) (ParsedQuery, error)
}

type chain struct {
	primary  Extractor
	fallback Extractor
}

// Chain tries primary and uses fallback when it fails or finds no products.
// A nil primary returns fallback as is.
func Chain(primary, fallback Extractor) Extractor {
	if primary == nil {
		return fallback
	}
	return &chain{primary: primary, fallback: fallback}
}

func (c *chain) Extract(ctx context.Context, query string) (ParsedQuery, error) {
	pq, err := c.primary.Extract(ctx, query)
	if err == nil && len(pq.Products) > 0 {
		return pq, nil
	}
	if err != nil {
		logger.ForComponent("intent").Debug().
			Err(err).
			Msg("Primary extractor failed, using fallback")
	}
	if c.fallback == nil {
		return Fallback(query), err
	}
	return c.fallback.Extract(ctx, query)
}

// request verbs on word boundaries, so "budget" and "gadget" are not cues
var naturalLanguageCue = regexp.MustCompile(`\b(?:need|want|buy|get|find|looking for|search for)\b`)

// a spelled-out budget ("under 50000", "below ₹999") also needs extraction
var budgetCue = regexp.MustCompile(`\b(?:under|below|within|less than)\s*(?:rs\.?|₹)?\s*\d`)

// IsNaturalLanguage reports whether the query reads like a request rather than a product name
func IsNaturalLanguage(query string) bool {
	q := strings.ToLower(query)
	return naturalLanguageCue.MatchString(q) || budgetCue.MatchString(q)
}

var keywordStopWords = map[string]bool{
	"i": true, "need": true, "want": true, "buy": true, "get": true, "find": true, "search": true,
	"for": true, "and": true, "or": true, "the": true, "a": true, "an": true, "with": true,
	"under": true, "over": true, "less": true, "than": true, "more": true, "rupees": true,
	"rs": true, "₹": true, "can": true, "could": true, "please": true, "to": true, "in": true,
	"cart": true, "add": true, "looking": true,
}

// Keywords returns the searchable words of a query: lowercased, stop words and words
// shorter than three characters removed, order kept.
func Keywords(query string) []string {
	keywords := []string{}
	for _, w := range strings.Fields(strings.ToLower(query)) {
		if keywordStopWords[w] || utf8.RuneCountInString(w) < 3 {
			continue
		}
		keywords = append(keywords, w)
	}
	return keywords
}

func floatPtr(v float64) *float64 {
	return &v
}
