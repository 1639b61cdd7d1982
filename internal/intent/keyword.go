package intent

import (
	"context"
	"regexp"
	"strconv"
	"strings"
)

var (
	groceryItems = []string{"milk", "bread", "rice", "sugar", "salt", "oil", "flour", "eggs", "butter", "tea", "coffee"}

	electronicsItems = []string{"smartphone", "laptop", "phone", "headphones", "charger", "cable", "mouse", "keyboard", "monitor", "tablet"}

	clothingItems = []string{
		"t-shirt", "tshirt", "kurti", "shirt", "dress", "jeans", "pants", "pant", "trousers", "trouser",
		"skirt", "top", "saree", "blouse", "jacket", "coat", "sweater", "hoodie", "socks", "sock",
		"sneakers", "sneaker", "shoes", "shoe", "sandals", "sandal", "boots", "boot", "cap", "hat",
	}

	colors = []string{"white", "black", "red", "blue", "green", "yellow", "pink", "orange", "purple", "grey", "gray", "brown", "beige", "navy", "maroon"}

	fillerWords = map[string]bool{"a": true, "an": true, "the": true, "some": true, "get": true, "buy": true, "add": true, "want": true, "need": true}

	vagueQueries = map[string]bool{"hi": true, "hello": true, "hey": true, "add something": true, "buy anything": true, "get me something": true}

	genericPhrases = map[string]bool{"something": true, "anything": true, "item": true, "product": true}
)

// budget patterns in priority order; scaled ones carry a k suffix
var budgetPatterns = []struct {
	re    *regexp.Regexp
	scale float64
}{
	{regexp.MustCompile(`under\s*(\d+(?:\.\d+)?)k\b`), 1000},
	{regexp.MustCompile(`less\s*than\s*(\d+(?:\.\d+)?)k\b`), 1000},
	{regexp.MustCompile(`below\s*(\d+(?:\.\d+)?)k\b`), 1000},
	{regexp.MustCompile(`within\s*(\d+(?:\.\d+)?)k\b`), 1000},
	{regexp.MustCompile(`(\d+(?:\.\d+)?)k\b`), 1000},
	{regexp.MustCompile(`under\s*(?:rs\.?|₹)?\s*(\d+)`), 1},
	{regexp.MustCompile(`less\s*than\s*(?:rs\.?|₹)?\s*(\d+)`), 1},
	{regexp.MustCompile(`below\s*(?:rs\.?|₹)?\s*(\d+)`), 1},
	{regexp.MustCompile(`within\s*(?:rs\.?|₹)?\s*(\d+)`), 1},
	{regexp.MustCompile(`budget\s*(?:of\s*)?(?:rs\.?|₹)?\s*(\d+)`), 1},
	{regexp.MustCompile(`(\d+)\s*rupees?`), 1},
	{regexp.MustCompile(`₹\s*(\d+)`), 1},
}

var ratingPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(\d(?:\.\d)?)\s*\+\s*(?:star|rating|rated)`),
	regexp.MustCompile(`at\s*least\s*(\d(?:\.\d)?)\s*(?:star|rating)`),
	regexp.MustCompile(`(?:rating|rated)\s*(?:above|over|of\s*at\s*least|>=?)\s*(\d(?:\.\d)?)`),
	regexp.MustCompile(`(\d(?:\.\d)?)\s*stars?\s*(?:and\s*)?(?:above|or\s*more|plus)`),
}

var genericPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(?:can i get|could i get|i need|i want)\s+(?:a |an |some |the )?\s*([a-z0-9\s-]+?)(?:\s+(?:please|to cart|in cart))?$`),
	regexp.MustCompile(`(?i)(?:get|buy|add|want|need|looking for|search for|find)\s+(?:a |an |some |the )?\s*([a-z0-9\s-]+?)(?:\s+(?:please|to cart|in cart))?$`),
	regexp.MustCompile(`(?i)^([a-z0-9\s-]+?)(?:\s+(?:please|to cart|in cart))?$`),
}

var (
	fastWords  = []string{"fast", "quick", "urgent", "immediate", "asap"}
	cheapWords = []string{"cheap", "economical", "budget", "affordable"}
)

// KeywordExtractor reads queries with keyword lists and regular expressions.
// It never fails and never leaves the process.
type KeywordExtractor struct{}

// NewKeywordExtractor creates a keyword extractor
func NewKeywordExtractor() *KeywordExtractor {
	return &KeywordExtractor{}
}

// Extract implements Extractor
func (k *KeywordExtractor) Extract(_ context.Context, query string) (ParsedQuery, error) {
	return k.Parse(query), nil
}

// Parse is the context-free form of Extract
func (k *KeywordExtractor) Parse(query string) ParsedQuery {
	lower := strings.ToLower(strings.TrimSpace(query))
	if lower == "" || vagueQueries[lower] {
		return ParsedQuery{OriginalQuery: query, Confidence: 0.3}
	}

	products := knownProducts(lower)
	if len(products) == 0 {
		products = genericProducts(stripConstraints(strings.TrimSpace(query)))
	}

	constraints := extractConstraints(lower)
	if constraints.TotalBudget != nil && len(products) == 1 {
		products[0].MaxPrice = floatPtr(*constraints.TotalBudget)
	}
	if constraints.MinRating != nil {
		for i := range products {
			products[i].MinRating = floatPtr(*constraints.MinRating)
		}
	}

	confidence := 0.3
	if len(products) > 0 {
		confidence = 0.7
	}
	return ParsedQuery{
		Products:      products,
		Constraints:   constraints,
		OriginalQuery: query,
		Confidence:    confidence,
	}
}

func knownProducts(lower string) []ProductIntent {
	var products []ProductIntent

	for _, item := range groceryItems {
		if containsWord(lower, item) {
			products = append(products, ProductIntent{
				Name:     item,
				Quantity: extractQuantity(lower, item),
				Category: "grocery",
			})
		}
	}

	for _, item := range electronicsItems {
		if !containsWord(lower, item) {
			continue
		}
		products = append(products, ProductIntent{
			Name:     item,
			Quantity: extractQuantity(lower, item),
			Category: "electronics",
		})
	}

	// one clothing item is enough, descriptors make it specific
	for _, item := range clothingItems {
		if containsWord(lower, item) {
			products = append(products, ProductIntent{
				Name:     fullProductName(lower, item),
				Quantity: 1,
				Category: "clothing",
			})
			break
		}
	}
	return products
}

func genericProducts(query string) []ProductIntent {
	for _, re := range genericPatterns {
		m := re.FindStringSubmatch(query)
		if m == nil {
			continue
		}
		phrase := strings.TrimSpace(m[1])
		if len(phrase) <= 2 || genericPhrases[strings.ToLower(phrase)] {
			return nil
		}
		return []ProductIntent{{Name: phrase, Quantity: 1, Category: "general"}}
	}
	return nil
}

// stripConstraints drops budget, rating and delivery clauses so the generic
// patterns capture only the product phrase
var constraintClause = regexp.MustCompile(`(?i)\s+(?:under|below|within|less than|budget|with|at least|for less than|delivered|by)\b.*$`)

func stripConstraints(query string) string {
	return strings.TrimSpace(constraintClause.ReplaceAllString(query, ""))
}

func fullProductName(lower, item string) string {
	for _, c := range colors {
		if strings.Contains(lower, c+" "+item) {
			return c + " " + item
		}
	}
	re := regexp.MustCompile(`(\w+)\s+` + regexp.QuoteMeta(item))
	if m := re.FindStringSubmatch(lower); m != nil && !fillerWords[m[1]] {
		return m[1] + " " + item
	}
	return item
}

func extractQuantity(lower, item string) int {
	q := regexp.QuoteMeta(item)
	patterns := []string{
		`(\d+)\s*(?:kg|kgs|l|litre|liter|litres|g|packs?|dozen)?\s*(?:of\s+)?` + q,
		q + `\s*(?:x\s*)?(\d+)\b`,
	}
	for _, p := range patterns {
		if m := regexp.MustCompile(p).FindStringSubmatch(lower); m != nil {
			if n, err := strconv.Atoi(m[1]); err == nil && n > 0 && n < 1000 {
				return n
			}
		}
	}
	return 1
}

func extractConstraints(lower string) Constraints {
	var c Constraints
	if b, ok := extractBudget(lower); ok {
		c.TotalBudget = floatPtr(b)
	}
	if r, ok := extractRating(lower); ok {
		c.MinRating = floatPtr(r)
	}
	switch {
	case containsAnyWord(lower, fastWords):
		c.DeliveryPreference = DeliveryFast
	case containsAnyWord(lower, cheapWords):
		c.DeliveryPreference = DeliveryCheap
	}
	return c
}

func extractBudget(lower string) (float64, bool) {
	for _, p := range budgetPatterns {
		m := p.re.FindStringSubmatch(lower)
		if m == nil {
			continue
		}
		v, err := strconv.ParseFloat(m[1], 64)
		if err != nil || v <= 0 {
			continue
		}
		return v * p.scale, true
	}
	return 0, false
}

func extractRating(lower string) (float64, bool) {
	for _, re := range ratingPatterns {
		m := re.FindStringSubmatch(lower)
		if m == nil {
			continue
		}
		v, err := strconv.ParseFloat(m[1], 64)
		if err == nil && v >= 0 && v <= 5 {
			return v, true
		}
	}
	return 0, false
}

func containsAnyWord(s string, words []string) bool {
	for _, w := range words {
		if containsWord(s, w) {
			return true
		}
	}
	return false
}

// containsWord matches word or its plural on word boundaries, so "top" does not hit "laptop"
func containsWord(s, word string) bool {
	return regexp.MustCompile(`\b` + regexp.QuoteMeta(word) + `s?\b`).MatchString(s)
}
