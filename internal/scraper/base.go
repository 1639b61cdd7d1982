package scraper

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"

	"sjsage522/shopcompare/internal/product"
	"sjsage522/shopcompare/logger"
	"sjsage522/shopcompare/pkg/errors"
	"sjsage522/shopcompare/pkg/metrics"
	"sjsage522/shopcompare/services/cache"
)

// FetchFunc retrieves a page body; helpers.Fetcher.Fetch satisfies it
type FetchFunc func(ctx context.Context, key, url string, headers map[string]string) ([]byte, error)

// BaseScraper provides fetching with rate-limit blocks and parallel listing processing
type BaseScraper struct {
	platform  product.Platform
	headers   map[string]string
	fetch     FetchFunc
	cacheSvc  cache.CacheService
	blockTime time.Duration
	metrics   *metrics.SearchMetrics
	now       func() time.Time
	log       *logger.Logger
}

// blocked reports whether a previous 429 marked the platform as rate limited
func (b *BaseScraper) blocked() bool {
	if b.cacheSvc == nil {
		return false
	}
	_, err := b.cacheSvc.Get(cache.BlockKey(b.platform.String()))
	return err == nil
}

// fetchWithCache fetches a URL unless the platform is blocked, and blocks it after a 429
func (b *BaseScraper) fetchWithCache(ctx context.Context, url string) ([]byte, error) {
	if b.blocked() {
		b.metrics.IncFetch(b.platform.String(), "skipped_blocked")
		return nil, errors.NewBlocked(b.platform.String(), "platform is rate limited, skipping request")
	}

	body, err := b.fetch(ctx, b.platform.String(), url, b.headers)
	if err != nil {
		b.metrics.IncFetch(b.platform.String(), fetchOutcome(err))
		if errors.Is(err, errors.ErrorTypeRateLimit) {
			b.block(err)
		}
		return nil, err
	}
	b.metrics.IncFetch(b.platform.String(), "ok")
	return body, nil
}

func (b *BaseScraper) block(err error) {
	if b.cacheSvc == nil {
		return
	}
	blockFor := b.blockTime
	if d, ok := errors.RetryAfterOf(err); ok && d > blockFor {
		blockFor = d
	}
	if blockFor <= 0 {
		return
	}
	value := []byte(strconv.Itoa(int(blockFor / time.Second)))
	if cerr := b.cacheSvc.Set(cache.BlockKey(b.platform.String()), value, blockFor); cerr != nil {
		b.log.Warn().Err(cerr).Msg("Failed to record rate limit block")
		return
	}
	b.log.Warn().Dur("block_time", blockFor).Msg("Platform rate limited, blocking further requests")
}

func fetchOutcome(err error) string {
	if code := errors.StatusCodeOf(err); code != 0 {
		return metrics.StatusOutcome(code)
	}
	if t, ok := errors.TypeOf(err); ok {
		return string(t)
	}
	return "error"
}

// createDocument creates a goquery document from a body
func (b *BaseScraper) createDocument(body []byte) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, errors.NewParsing(b.platform.String(), "HTML parse error", err)
	}
	return doc, nil
}

// processListings processes listings in parallel goroutines, keeping page order.
// A listing that fails or panics is skipped on its own.
func (b *BaseScraper) processListings(selections *goquery.Selection, processor func(*goquery.Selection) *product.Product) []product.Product {
	results := make([]*product.Product, selections.Length())
	var wg sync.WaitGroup

	selections.Each(func(i int, s *goquery.Selection) {
		wg.Add(1)
		go func(i int, s *goquery.Selection) {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					b.log.Warn().Int("index", i).Str("panic", fmt.Sprint(r)).Msg("Listing processing panicked")
				}
			}()
			results[i] = processor(s)
		}(i, s)
	})

	wg.Wait()

	var products []product.Product
	for _, p := range results {
		if p != nil {
			products = append(products, *p)
		}
	}
	return products
}

// Platform returns the scraper's platform
func (b *BaseScraper) Platform() product.Platform {
	return b.platform
}

// PlatformType returns the scraper's platform type
func (b *BaseScraper) PlatformType() product.PlatformType {
	return b.platform.Type()
}
