package scraper

import (
	"sjsage522/shopcompare/internal/product"
	"sjsage522/shopcompare/logger"
)

// PlatformConfigs returns the scraper configuration of every supported platform
func PlatformConfigs() []PlatformConfig {
	return []PlatformConfig{
		amazonConfig(),
		flipkartConfig(),
		blinkitConfig(),
		meeshoConfig(),
		zeptoConfig(),
		instamartConfig(),
		nykaaConfig(),
	}
}

// Registry maps platforms to their scrapers
type Registry struct {
	scrapers map[product.Platform]Scraper
	order    []product.Platform
}

// NewRegistry creates scrapers for the enabled platforms.
// baseURLs optionally replaces a platform's base URL, e.g. to point at a local server.
func NewRegistry(enabled []product.Platform, deps Deps, baseURLs map[product.Platform]string) *Registry {
	r := &Registry{scrapers: make(map[product.Platform]Scraper)}

	want := make(map[product.Platform]bool, len(enabled))
	for _, p := range enabled {
		want[p] = true
	}

	for _, cfg := range PlatformConfigs() {
		if !want[cfg.Platform] {
			continue
		}
		if base, ok := baseURLs[cfg.Platform]; ok && base != "" {
			cfg.BaseURL = base
		}
		r.Register(NewConfigurableScraper(cfg, deps))
	}

	logger.ForComponent("scraper").Info().
		Strs("platforms", platformNames(r.order)).
		Msg("Scrapers created")
	return r
}

// Register adds or replaces the scraper for its platform
func (r *Registry) Register(s Scraper) {
	if _, exists := r.scrapers[s.Platform()]; !exists {
		r.order = append(r.order, s.Platform())
	}
	r.scrapers[s.Platform()] = s
}

// Get returns the scraper for p
func (r *Registry) Get(p product.Platform) (Scraper, bool) {
	s, ok := r.scrapers[p]
	return s, ok
}

// Platforms returns the registered platforms in registration order
func (r *Registry) Platforms() []product.Platform {
	out := make([]product.Platform, len(r.order))
	copy(out, r.order)
	return out
}

func platformNames(ps []product.Platform) []string {
	names := make([]string, len(ps))
	for i, p := range ps {
		names[i] = p.String()
	}
	return names
}
