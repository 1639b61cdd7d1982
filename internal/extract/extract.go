// Package extract turns the free text found on listing pages into typed values.
// Every function here is pure and safe for concurrent use.
package extract

import (
	"fmt"
	"math"
	"net/url"
	"regexp"
	"strconv"
	"strings"
)

// DeliverySentinel is returned for delivery strings that cannot be parsed.
// It is large enough to sort after every recognised quick-commerce window.
const DeliverySentinel = 999

const (
	minutesPerHour = 60
	minutesPerDay  = 1440
)

var (
	priceRe = regexp.MustCompile(`[₹$]?\s*(\d+(?:\.\d+)?)`)

	ratingPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s*out\s+of\s+5`),
		regexp.MustCompile(`(\d+(?:\.\d+)?)\s*/\s*5`),
		regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s*stars?`),
		regexp.MustCompile(`(\d+(?:\.\d+)?)`),
	}

	deliveryRe  = regexp.MustCompile(`(?i)(\d+)(?:\s*-\s*\d+)?\s*(mins?|minutes?|hours?|hrs?|days?)\b`)
	firstNumRe  = regexp.MustCompile(`(\d+)`)
	reviewKRe   = regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s*k\b`)
	reviewNumRe = regexp.MustCompile(`(\d[\d,]*)`)
)

// Price returns the first numeric token of a price string.
// Currency symbols and thousands separators are ignored. A zero price is not a price.
func Price(text string) (float64, bool) {
	cleaned := strings.ReplaceAll(text, ",", "")
	m := priceRe.FindStringSubmatch(cleaned)
	if m == nil {
		return 0, false
	}
	v, err := strconv.ParseFloat(m[1], 64)
	if err != nil || v <= 0 {
		return 0, false
	}
	return v, true
}

// Rating tries "X out of 5", "X/5", "X star(s)" and a bare number, in that order,
// and returns the first value within [0,5].
func Rating(text string) (float64, bool) {
	for _, re := range ratingPatterns {
		m := re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		v, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			continue
		}
		if v >= 0 && v <= 5 {
			return v, true
		}
	}
	return 0, false
}

// DeliveryMinutes converts strings like "10-30 mins", "2 hours" or "3 days" to minutes.
// A range counts by its lower bound. Unknown formats return DeliverySentinel.
func DeliveryMinutes(text string) int {
	if m := deliveryRe.FindStringSubmatch(text); m != nil {
		n, err := strconv.Atoi(m[1])
		if err == nil {
			return scaleMinutes(n, strings.ToLower(m[2]))
		}
	}

	lower := strings.ToLower(text)
	num := firstNumRe.FindString(lower)
	if num == "" {
		return DeliverySentinel
	}
	n, err := strconv.Atoi(num)
	if err != nil {
		return DeliverySentinel
	}
	switch {
	case strings.Contains(lower, "min"):
		return n
	case strings.Contains(lower, "hour"), strings.Contains(lower, "hr"):
		return n * minutesPerHour
	case strings.Contains(lower, "day"):
		return n * minutesPerDay
	}
	return DeliverySentinel
}

func scaleMinutes(n int, unit string) int {
	switch {
	case strings.HasPrefix(unit, "min"):
		return n
	case strings.HasPrefix(unit, "h"):
		return n * minutesPerHour
	default:
		return n * minutesPerDay
	}
}

// FormatMinutes renders minutes back to a label, switching units at one hour and one day.
func FormatMinutes(minutes int) string {
	switch {
	case minutes < minutesPerHour:
		return fmt.Sprintf("%d mins", minutes)
	case minutes < minutesPerDay:
		return fmt.Sprintf("%d hours", minutes/minutesPerHour)
	default:
		return fmt.Sprintf("%d days", minutes/minutesPerDay)
	}
}

// CleanText collapses whitespace runs into single spaces and trims the result
func CleanText(text string) string {
	return strings.Join(strings.Fields(text), " ")
}

// ReviewCount reads counts such as "1,250 ratings" or "(2.3k)"
func ReviewCount(text string) int {
	if m := reviewKRe.FindStringSubmatch(text); m != nil {
		if v, err := strconv.ParseFloat(m[1], 64); err == nil {
			return int(math.Round(v * 1000))
		}
	}
	m := reviewNumRe.FindString(text)
	if m == "" {
		return 0
	}
	n, err := strconv.Atoi(strings.ReplaceAll(m, ",", ""))
	if err != nil {
		return 0
	}
	return n
}

// ResolveURL makes href absolute against base. Protocol relative links get https.
func ResolveURL(base, href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}
	if strings.HasPrefix(href, "//") {
		return "https:" + href
	}
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	if ref.IsAbs() {
		return href
	}
	b, err := url.Parse(base)
	if err != nil || base == "" {
		return href
	}
	return b.ResolveReference(ref).String()
}
