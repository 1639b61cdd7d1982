package product

import (
	"fmt"
	"strings"
)

// Platform identifies one external shopping source
type Platform string

const (
	Amazon    Platform = "amazon"
	Flipkart  Platform = "flipkart"
	Blinkit   Platform = "blinkit"
	Zepto     Platform = "zepto"
	Meesho    Platform = "meesho"
	Nykaa     Platform = "nykaa"
	Instamart Platform = "instamart"
)

// PlatformType separates next-day style shops from quick commerce
type PlatformType string

const (
	Ecommerce     PlatformType = "ecommerce"
	QuickCommerce PlatformType = "quick_commerce"
)

var allPlatforms = []Platform{Amazon, Flipkart, Blinkit, Zepto, Meesho, Nykaa, Instamart}

// AllPlatforms returns every known platform in a stable order
func AllPlatforms() []Platform {
	out := make([]Platform, len(allPlatforms))
	copy(out, allPlatforms)
	return out
}

// DefaultPlatforms is the search set used when a request names none
func DefaultPlatforms() []Platform {
	return []Platform{Flipkart, Amazon, Meesho, Blinkit}
}

// ParsePlatform parses a case-insensitive platform name
func ParsePlatform(s string) (Platform, error) {
	p := Platform(strings.ToLower(strings.TrimSpace(s)))
	if !p.Valid() {
		return "", fmt.Errorf("unknown platform %q", s)
	}
	return p, nil
}

// ParsePlatforms parses a list of names, rejecting unknown ones
func ParsePlatforms(names []string) ([]Platform, error) {
	out := make([]Platform, 0, len(names))
	for _, n := range names {
		p, err := ParsePlatform(n)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

// Valid reports whether p is a known platform
func (p Platform) Valid() bool {
	for _, known := range allPlatforms {
		if p == known {
			return true
		}
	}
	return false
}

// Type returns the platform category
func (p Platform) Type() PlatformType {
	switch p {
	case Blinkit, Zepto, Instamart:
		return QuickCommerce
	default:
		return Ecommerce
	}
}

// String implements fmt.Stringer
func (p Platform) String() string {
	return string(p)
}

// Title returns the display name of the platform
func (p Platform) Title() string {
	if p == "" {
		return ""
	}
	return strings.ToUpper(string(p[:1])) + string(p[1:])
}
