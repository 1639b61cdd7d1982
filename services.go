package main

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/multierr"

	"sjsage522/shopcompare/config"
	"sjsage522/shopcompare/helpers"
	"sjsage522/shopcompare/internal/api"
	"sjsage522/shopcompare/internal/cart"
	"sjsage522/shopcompare/internal/cascade"
	"sjsage522/shopcompare/internal/intent"
	"sjsage522/shopcompare/internal/mock"
	"sjsage522/shopcompare/internal/product"
	"sjsage522/shopcompare/internal/scraper"
	"sjsage522/shopcompare/internal/search"
	"sjsage522/shopcompare/logger"
	"sjsage522/shopcompare/pkg/errors"
	"sjsage522/shopcompare/pkg/metrics"
	"sjsage522/shopcompare/services/cache"
	"sjsage522/shopcompare/services/proxy"
	"sjsage522/shopcompare/services/publisher"
	"sjsage522/shopcompare/services/worker"
)

// Services holds all the initialized services
type Services struct {
	Cache     cache.CacheService
	Publisher publisher.Publisher
	Proxies   *proxy.Manager
	Search    *search.Service
	Carts     *cart.Service
	Extractor intent.Extractor
	Registry  *prometheus.Registry

	redis   *redis.Client
	closers []func() error
}

// Handler builds the HTTP API over the services
func (s *Services) Handler() http.Handler {
	h := api.NewHandler(s.Search, s.Carts, s.Extractor, version)
	return api.NewRouter(h, promhttp.HandlerFor(s.Registry, promhttp.HandlerOpts{}))
}

// Cleanup closes every connection opened by initializeServices
func (s *Services) Cleanup() error {
	var err error
	for i := len(s.closers) - 1; i >= 0; i-- {
		err = multierr.Append(err, s.closers[i]())
	}
	return err
}

// initializeServices wires the application. baseURLs optionally points
// platforms at other hosts.
func initializeServices(ctx context.Context, cfg *config.Config, baseURLs map[product.Platform]string) (*Services, error) {
	log := logger.Default
	services := &Services{Registry: prometheus.NewRegistry()}
	services.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	searchMetrics := metrics.NewSearchMetrics(services.Registry)

	enabled, err := product.ParsePlatforms(cfg.EnabledPlatforms)
	if err != nil {
		return nil, errors.NewConfiguration("ENABLED_PLATFORMS", err)
	}
	defaults, err := product.ParsePlatforms(cfg.DefaultPlatforms)
	if err != nil {
		return nil, errors.NewConfiguration("DEFAULT_PLATFORMS", err)
	}

	// Cache: memcache when configured and reachable, else in-process
	services.Cache = cache.NewMemoryCache()
	if cfg.MemcacheAddr != "" {
		mc := cache.NewMemcacheService(cfg.MemcacheAddr, "shopcompare:")
		if err := mc.Ping(); err != nil {
			log.Warn().Err(err).Str("addr", cfg.MemcacheAddr).Msg("Memcache unavailable, using in-memory cache")
		} else {
			services.Cache = mc
			log.Info().Str("addr", cfg.MemcacheAddr).Msg("Connected to Memcache")
		}
	}

	// Redis: search event streams and the cart cache share one client
	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, DB: cfg.RedisDB})
		if err := client.Ping(ctx).Err(); err != nil {
			log.Warn().Err(err).Str("addr", cfg.RedisAddr).Msg("Redis unavailable, search events disabled")
			_ = client.Close()
		} else {
			services.redis = client
			services.closers = append(services.closers, client.Close)
			services.Publisher = publisher.NewStreamPublisher(client,
				cfg.RedisStream, cfg.RedisStreamCount, cfg.RedisStreamMaxLength)
			log.Info().
				Str("addr", cfg.RedisAddr).
				Int("db", cfg.RedisDB).
				Str("stream", cfg.RedisStream).
				Msg("Connected to Redis")
		}
	}

	// Proxies: test the configured pool once, requests go direct until one works
	proxies, err := proxy.NewManager(cfg.Proxies, cfg.ProxyUpdateInterval)
	if err != nil {
		return nil, multierr.Append(err, services.Cleanup())
	}
	services.Proxies = proxies
	if proxies.Len() > 0 {
		if err := proxies.UpdateProxies(ctx); err != nil {
			log.Warn().Err(err).Int("configured", proxies.Len()).Msg("No working proxy yet, fetching direct")
		}
	}

	fetcher := helpers.NewFetcher(helpers.FetchConfig{
		Timeout:           cfg.ScraperTimeout,
		Attempts:          cfg.ScraperAttempts,
		BaseDelay:         cfg.ScraperRetryDelay,
		MinBodySize:       cfg.ScraperMinBodySize,
		MaxRetryAfter:     cfg.MaxRetryAfter,
		RequestsPerSecond: cfg.RequestsPerSecond,
		Proxy:             proxies.ProxyFor,
	})
	registry := scraper.NewRegistry(enabled, scraper.Deps{
		Fetch:     fetcher.Fetch,
		Cache:     services.Cache,
		BlockTime: cfg.RateLimitBlockTime,
		Metrics:   searchMetrics,
	}, baseURLs)

	casc := cascade.NewDefault(registry, mock.NewCatalog(), cascade.Options{
		RealDeadline: cfg.RealTierDeadline,
		EnableMock:   cfg.EnableMockFallback,
		Metrics:      searchMetrics,
	})

	var extractor intent.Extractor = intent.NewKeywordExtractor()
	if cfg.IntentEndpoint != "" {
		extractor = intent.Chain(intent.NewLLMExtractor(intent.LLMConfig{
			Endpoint: cfg.IntentEndpoint,
			APIKey:   cfg.IntentAPIKey,
			Model:    cfg.IntentModel,
			Timeout:  cfg.IntentTimeout,
		}), extractor)
	}
	services.Extractor = extractor

	deps := search.Deps{
		Cascade:   casc,
		Worker:    worker.NewWorker(casc, cfg.MaxConcurrent, cfg.SearchDeadline),
		Extractor: extractor,
		Registry:  registry,
		Cache:     services.Cache,
		Metrics:   searchMetrics,
	}
	if services.Publisher != nil {
		deps.Publisher = services.Publisher
	}
	services.Search = search.NewService(deps, search.Options{
		EnabledPlatforms: enabled,
		DefaultPlatforms: defaults,
		DefaultLocation:  cfg.DefaultLocation,
		IntentTimeout:    cfg.IntentTimeout,
		CacheTTL:         cfg.SearchCacheTTL,
	})

	store, err := cartStore(ctx, cfg, services)
	if err != nil {
		return nil, multierr.Append(err, services.Cleanup())
	}
	services.Carts = cart.NewService(store)

	return services, nil
}

// cartStore picks MongoDB when configured and reachable, else memory,
// and fronts it with Redis when Redis is configured
func cartStore(ctx context.Context, cfg *config.Config, services *Services) (cart.Store, error) {
	log := logger.ForCart()
	var store cart.Store = cart.NewMemoryStore()

	if cfg.MongoURI != "" {
		connectCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
		defer cancel()
		db, err := cart.ConnectMongo(connectCtx, cfg.MongoURI, cfg.MongoDBName)
		if err != nil {
			log.Warn().Err(err).Msg("MongoDB unavailable, carts are kept in memory")
		} else {
			mongoStore := cart.NewMongoStore(db)
			if err := mongoStore.CreateIndexes(connectCtx); err != nil {
				log.Warn().Err(err).Msg("Failed to create cart indexes")
			}
			services.closers = append(services.closers, func() error {
				return db.Client().Disconnect(context.Background())
			})
			store = mongoStore
			log.Info().Str("database", cfg.MongoDBName).Msg("Carts stored in MongoDB")
		}
	}

	if services.redis != nil {
		store = cart.NewCachedStore(store, services.redis, cfg.CartCacheTTL)
	}
	return store, nil
}
