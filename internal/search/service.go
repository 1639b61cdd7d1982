// Package search fans a query out over the platform cascades and merges,
// filters and ranks what comes back.
package search

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
	"golang.org/x/sync/singleflight"

	"sjsage522/shopcompare/internal/cascade"
	"sjsage522/shopcompare/internal/intent"
	"sjsage522/shopcompare/internal/product"
	"sjsage522/shopcompare/internal/scraper"
	"sjsage522/shopcompare/logger"
	"sjsage522/shopcompare/pkg/errors"
	"sjsage522/shopcompare/pkg/metrics"
	"sjsage522/shopcompare/services/cache"
	"sjsage522/shopcompare/services/publisher"
	"sjsage522/shopcompare/services/worker"
)

// Options configures the orchestrator
type Options struct {
	EnabledPlatforms []product.Platform
	DefaultPlatforms []product.Platform
	DefaultLocation  string
	// IntentTimeout bounds the call to the intent extractor
	IntentTimeout time.Duration
	// CacheTTL is how long live results are cached, zero disables caching
	CacheTTL time.Duration
	// RunTimeout bounds one shared search run. Zero means the intent timeout
	// plus the worker deadline.
	RunTimeout time.Duration
}

const defaultRunTimeout = 30 * time.Second

// Deps are the collaborators of the orchestrator. Extractor, Registry, Cache,
// Publisher and Metrics may be nil.
type Deps struct {
	Cascade   *cascade.Cascade
	Worker    *worker.Worker
	Extractor intent.Extractor
	Registry  *scraper.Registry
	Cache     cache.CacheService
	Publisher publisher.Publisher
	Metrics   *metrics.SearchMetrics
}

// Service is the search orchestrator
type Service struct {
	opts    Options
	deps    Deps
	enabled map[product.Platform]bool
	group   singleflight.Group
	now     func() time.Time
	log     *logger.Logger
}

// NewService creates the orchestrator
func NewService(deps Deps, opts Options) *Service {
	if len(opts.EnabledPlatforms) == 0 {
		opts.EnabledPlatforms = product.AllPlatforms()
	}
	enabled := make(map[product.Platform]bool, len(opts.EnabledPlatforms))
	for _, p := range opts.EnabledPlatforms {
		enabled[p] = true
	}

	var defaults []product.Platform
	for _, p := range opts.DefaultPlatforms {
		if enabled[p] {
			defaults = append(defaults, p)
		}
	}
	if len(defaults) == 0 {
		for _, p := range product.DefaultPlatforms() {
			if enabled[p] {
				defaults = append(defaults, p)
			}
		}
	}
	if len(defaults) == 0 {
		defaults = opts.EnabledPlatforms
	}
	opts.DefaultPlatforms = defaults

	if opts.IntentTimeout <= 0 {
		opts.IntentTimeout = 3 * time.Second
	}
	if opts.RunTimeout <= 0 {
		opts.RunTimeout = defaultRunTimeout
		if deps.Worker != nil && deps.Worker.Deadline() > 0 {
			opts.RunTimeout = opts.IntentTimeout + deps.Worker.Deadline()
		}
	}
	return &Service{
		opts:    opts,
		deps:    deps,
		enabled: enabled,
		now:     time.Now,
		log:     logger.ForSearch(),
	}
}

// Search runs one search. The only error is an invalid request: data failures
// degrade to mock or placeholder products instead.
func (s *Service) Search(ctx context.Context, req Request) (*Response, error) {
	requested, err := req.normalize()
	if err != nil {
		return nil, err
	}

	key := cacheKey(req)
	if resp, ok := s.cached(key); ok {
		s.publish(ctx, req, resp, 0, true)
		return resp, nil
	}

	// the run is shared, so the caller that started it must not be able to cancel it
	v, _, _ := s.group.Do(key, func() (interface{}, error) {
		runCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.opts.RunTimeout)
		defer cancel()
		return s.search(runCtx, req, requested, key), nil
	})
	// shared callers get their own copy of the product slice
	resp := *v.(*Response)
	resp.Products = append([]product.Product(nil), resp.Products...)
	return &resp, nil
}

func (s *Service) search(ctx context.Context, req Request, requested []product.Platform, key string) *Response {
	start := s.now()

	parsed := s.interpret(ctx, req.Query)
	f := filters{maxPrice: req.MaxPrice, minRating: req.MinRating, category: req.Category}
	// explicit filters win over extracted ones
	if f.maxPrice == nil && parsed != nil {
		if b, ok := parsed.Budget(); ok {
			f.maxPrice = &b
		}
	}
	if f.minRating == nil && parsed != nil {
		if r, ok := parsed.MinRating(); ok {
			f.minRating = &r
		}
	}
	preference := req.DeliveryPreference
	if preference == "" && parsed != nil {
		preference = parsed.Constraints.DeliveryPreference
	}

	subQueries := []string{req.Query}
	if parsed != nil {
		subQueries = parsed.SubQueries()
	}

	platforms := s.resolvePlatforms(requested)
	location := req.Location
	if location == "" {
		location = s.opts.DefaultLocation
	}
	opts := scraper.SearchOptions{Limit: req.Limit, Location: location}
	if req.Latitude != nil && req.Longitude != nil {
		opts.Latitude, opts.Longitude = *req.Latitude, *req.Longitude
	}

	var jobs []worker.Job
	for _, q := range subQueries {
		for _, p := range platforms {
			jobs = append(jobs, worker.Job{Platform: p, Query: q, Options: opts})
		}
	}
	outcomes := s.deps.Worker.Run(ctx, jobs)

	var (
		merged  []product.Product
		tiers   []cascade.Tier
		results = make(map[product.Platform]*PlatformResult, len(platforms))
	)
	for _, p := range platforms {
		results[p] = &PlatformResult{Platform: p, Tier: cascade.TierNone}
	}
	for _, o := range outcomes {
		merged = append(merged, o.Products...)
		if len(o.Products) == 0 {
			continue
		}
		tiers = append(tiers, o.Tier)
		r := results[o.Platform]
		if r == nil {
			continue
		}
		r.Products += len(o.Products)
		r.Tier = cascade.Worst(r.Tier, o.Tier)
	}

	if len(merged) == 0 {
		merged = s.deps.Cascade.Placeholder(req.Query, platforms)
		tiers = append(tiers, cascade.TierPlaceholder)
		for _, p := range merged {
			if r := results[p.Platform]; r != nil {
				r.Products++
				r.Tier = cascade.TierPlaceholder
			}
		}
	}
	source := cascade.Worst(tiers...)

	products := f.apply(dedupe(merged))
	rank(products, preference)
	if len(products) > req.Limit {
		products = products[:req.Limit]
	}

	elapsed := s.now().Sub(start)
	resp := &Response{
		Query:        req.Query,
		Products:     products,
		TotalResults: len(products),
		SearchTime:   math.Round(elapsed.Seconds()*1000) / 1000,
		Location:     location,
		DataSource:   source,
		Message:      message(source, len(products), len(platforms)),
		Intent:       parsed,
	}
	for _, p := range platforms {
		resp.Platforms = append(resp.Platforms, *results[p])
	}
	if resp.Products == nil {
		resp.Products = []product.Product{}
	}

	s.deps.Metrics.ObserveSearch(string(source), elapsed)
	s.log.Info().
		Str("query", req.Query).
		Strs("sub_queries", subQueries).
		Str("data_source", string(source)).
		Int("results", len(products)).
		Dur("elapsed", elapsed).
		Msg("Search finished")

	if source == cascade.TierReal {
		s.store(key, resp)
	}
	s.publish(ctx, req, resp, elapsed, false)
	return resp
}

// interpret calls the intent extractor for natural-language queries only.
// A slow or failing extractor degrades to the keyword reading, never to an error.
func (s *Service) interpret(ctx context.Context, query string) *intent.ParsedQuery {
	if s.deps.Extractor == nil || !intent.IsNaturalLanguage(query) {
		return nil
	}
	ictx, cancel := context.WithTimeout(ctx, s.opts.IntentTimeout)
	defer cancel()

	pq, err := s.deps.Extractor.Extract(ictx, query)
	if err != nil {
		s.log.Warn().Err(err).Str("query", query).Msg("Intent extraction failed, searching the raw query")
		fallback := intent.Fallback(query)
		return &fallback
	}
	return &pq
}

func (s *Service) resolvePlatforms(requested []product.Platform) []product.Platform {
	var out []product.Platform
	for _, p := range requested {
		if s.enabled[p] {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		out = append(out, s.opts.DefaultPlatforms...)
	}
	return out
}

func message(source cascade.Tier, n, platforms int) string {
	switch source {
	case cascade.TierReal:
		return fmt.Sprintf("Found %d products across %d platforms", n, platforms)
	case cascade.TierMock:
		return fmt.Sprintf("Found %d products (demo data - real search unavailable)", n)
	default:
		return fmt.Sprintf("Found %d products (basic demo data)", n)
	}
}

func cacheKey(req Request) string {
	data, _ := json.Marshal(req)
	return cache.SearchKey(xxhash.Sum64(data))
}

func (s *Service) cached(key string) (*Response, bool) {
	if s.deps.Cache == nil || s.opts.CacheTTL <= 0 {
		return nil, false
	}
	data, err := s.deps.Cache.Get(key)
	if err != nil {
		if !stderrors.Is(err, cache.ErrCacheMiss) {
			s.log.Warn().Err(err).Str("key", key).Msg("Search cache read failed")
		}
		return nil, false
	}
	var resp Response
	if err := json.Unmarshal(data, &resp); err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("Discarding undecodable cached search")
		return nil, false
	}
	resp.Cached = true
	return &resp, true
}

func (s *Service) store(key string, resp *Response) {
	if s.deps.Cache == nil || s.opts.CacheTTL <= 0 {
		return
	}
	data, err := json.Marshal(resp)
	if err != nil {
		return
	}
	if err := s.deps.Cache.Set(key, data, s.opts.CacheTTL); err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("Search cache write failed")
	}
}

func (s *Service) publish(ctx context.Context, req Request, resp *Response, elapsed time.Duration, cacheHit bool) {
	if s.deps.Publisher == nil {
		return
	}
	ev := publisher.SearchEvent{
		Query:       req.Query,
		DataSource:  string(resp.DataSource),
		ResultCount: resp.TotalResults,
		ElapsedMS:   elapsed.Milliseconds(),
		CacheHit:    cacheHit,
		At:          s.now(),
	}
	if resp.Intent != nil {
		ev.SubQueries = resp.Intent.SubQueries()
	}
	for _, r := range resp.Platforms {
		ev.Platforms = append(ev.Platforms, publisher.PlatformResult{
			Platform: r.Platform.String(),
			Tier:     string(r.Tier),
			Products: r.Products,
		})
	}
	// an expired search still gets its event, bounded by the client timeouts
	if err := s.deps.Publisher.PublishSearch(context.WithoutCancel(ctx), ev); err != nil {
		logger.LogError("publisher", err, "Failed to publish search event for %q", req.Query)
	}
}

// PlatformInfo describes one searchable platform
type PlatformInfo struct {
	Name    product.Platform     `json:"name"`
	Title   string               `json:"title"`
	Type    product.PlatformType `json:"type"`
	Default bool                 `json:"default"`
	Live    bool                 `json:"live"`
}

// Platforms lists the enabled platforms
func (s *Service) Platforms() []PlatformInfo {
	defaults := make(map[product.Platform]bool, len(s.opts.DefaultPlatforms))
	for _, p := range s.opts.DefaultPlatforms {
		defaults[p] = true
	}
	out := make([]PlatformInfo, 0, len(s.opts.EnabledPlatforms))
	for _, p := range s.opts.EnabledPlatforms {
		info := PlatformInfo{Name: p, Title: p.Title(), Type: p.Type(), Default: defaults[p]}
		if s.deps.Registry != nil {
			_, info.Live = s.deps.Registry.Get(p)
		}
		out = append(out, info)
	}
	return out
}

// ProductDetail fetches one product page. A missing product is a not-found error.
func (s *Service) ProductDetail(ctx context.Context, platformName, id, pageURL string) (*product.Product, error) {
	platform, err := product.ParsePlatform(platformName)
	if err != nil {
		return nil, errors.NewValidation("", err.Error())
	}
	id = strings.TrimSpace(id)
	if id == "" && pageURL == "" {
		return nil, errors.NewValidation(platform.String(), "product id or url is required")
	}
	if !s.enabled[platform] || s.deps.Registry == nil {
		return nil, errors.NewNotFound(fmt.Sprintf("platform %s is not enabled", platform), nil)
	}
	sc, ok := s.deps.Registry.Get(platform)
	if !ok {
		return nil, errors.NewNotFound(fmt.Sprintf("platform %s is not enabled", platform), nil)
	}
	p, ok := sc.FetchDetail(ctx, id, pageURL)
	if !ok {
		return nil, errors.NewNotFound(fmt.Sprintf("product %s not found on %s", id, platform), nil)
	}
	return p, nil
}
