package helpers

import (
	"bytes"
	"compress/flate"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	mathrand "math/rand"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"github.com/andybalholm/brotli"
	"golang.org/x/net/html/charset"
	"golang.org/x/time/rate"

	"sjsage522/shopcompare/logger"
	"sjsage522/shopcompare/pkg/errors"
)

var (
	userAgents = []string{
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
		"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
		"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
		"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.1 Safari/605.1.15",
	}

	referers = []string{
		"https://www.google.com/",
		"https://www.bing.com/",
		"https://duckduckgo.com/",
	}
)

// FetchConfig tunes the retrying fetcher
type FetchConfig struct {
	// Timeout bounds a single attempt
	Timeout time.Duration
	// Attempts is the total number of tries, including the first
	Attempts int
	// BaseDelay is the backoff unit; attempt n waits about BaseDelay*2^(n-1)
	BaseDelay time.Duration
	// MinBodySize rejects smaller 200 responses as block pages
	MinBodySize int
	// MaxRetryAfter caps the wait requested by a 429 Retry-After header
	MaxRetryAfter time.Duration
	// RequestsPerSecond paces requests per host key, zero disables pacing
	RequestsPerSecond float64
	// Proxy picks the outbound proxy; nil uses the environment
	Proxy func(*http.Request) (*url.URL, error)
}

// DefaultFetchConfig returns the production fetch settings
func DefaultFetchConfig() FetchConfig {
	return FetchConfig{
		Timeout:           10 * time.Second,
		Attempts:          3,
		BaseDelay:         time.Second,
		MinBodySize:       1000,
		MaxRetryAfter:     time.Minute,
		RequestsPerSecond: 2,
	}
}

// Fetcher issues browser-like GET requests with retries, backoff and user-agent rotation
type Fetcher struct {
	client *http.Client
	cfg    FetchConfig

	uaIndex atomic.Uint64

	mu       sync.Mutex
	limiters map[string]*rate.Limiter

	// sleep waits between attempts; replaced in tests
	sleep func(ctx context.Context, d time.Duration) error
}

// NewFetcher creates a fetcher. Decompression is handled here so brotli works too.
func NewFetcher(cfg FetchConfig) *Fetcher {
	if cfg.Attempts < 1 {
		cfg.Attempts = 1
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.Proxy == nil {
		cfg.Proxy = http.ProxyFromEnvironment
	}
	return &Fetcher{
		client: &http.Client{
			Transport: &http.Transport{
				Proxy:               cfg.Proxy,
				MaxIdleConnsPerHost: 4,
				IdleConnTimeout:     90 * time.Second,
				DisableCompression:  true,
			},
		},
		cfg:      cfg,
		limiters: make(map[string]*rate.Limiter),
		sleep:    sleepContext,
	}
}

// Fetch retrieves target and returns its body decoded to UTF-8.
// key names the platform for pacing and error reporting. Failures are *errors.ScrapeError.
func (f *Fetcher) Fetch(ctx context.Context, key, target string, headers map[string]string) ([]byte, error) {
	log := logger.ForScraper(key)
	start := int(f.uaIndex.Add(1))

	var lastErr error
	for attempt := 0; attempt < f.cfg.Attempts; attempt++ {
		if attempt > 0 {
			wait := f.backoff(attempt)
			if d, ok := errors.RetryAfterOf(lastErr); ok {
				if d > wait {
					wait = d
				}
				if dl, has := ctx.Deadline(); has && time.Until(dl) < wait {
					// the server asked for a longer pause than the caller can afford
					return nil, lastErr
				}
			}
			if err := f.sleep(ctx, wait); err != nil {
				return nil, errors.NewNetwork(key, "cancelled while backing off", err)
			}
		}

		if err := f.wait(ctx, key); err != nil {
			return nil, errors.NewNetwork(key, "cancelled while waiting for rate limiter", err)
		}

		body, err := f.fetchOnce(ctx, key, target, headers, userAgents[(start+attempt)%len(userAgents)])
		if err == nil {
			return body, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return nil, errors.NewNetwork(key, "request cancelled", ctx.Err())
		}
		if !errors.IsRetryable(err) {
			return nil, err
		}
		log.Debug().
			Err(err).
			Int("attempt", attempt+1).
			Int("max_attempts", f.cfg.Attempts).
			Msg("Fetch attempt failed")
	}
	return nil, lastErr
}

func (f *Fetcher) fetchOnce(ctx context.Context, key, target string, headers map[string]string, userAgent string) ([]byte, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, f.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(attemptCtx, http.MethodGet, target, nil)
	if err != nil {
		return nil, errors.NewNetwork(key, "failed to create request", err)
	}

	// Set browser-like headers
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-IN,en;q=0.9,hi;q=0.8")
	req.Header.Set("Accept-Encoding", "gzip, deflate, br")
	req.Header.Set("Cache-Control", "no-cache")
	req.Header.Set("Pragma", "no-cache")
	req.Header.Set("Referer", referers[mathrand.Intn(len(referers))])
	req.Header.Set("Upgrade-Insecure-Requests", "1")
	req.Header.Set("Sec-Fetch-Mode", "navigate")
	req.Header.Set("Sec-Fetch-Site", "cross-site")
	req.Header.Set("Sec-Fetch-User", "?1")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, errors.NewNetwork(key, "failed to fetch URL", err)
	}
	defer resp.Body.Close()

	switch {
	case slices.Contains([]int{http.StatusTooManyRequests, 430}, resp.StatusCode):
		retryAfter := parseRetryAfter(resp.Header.Get("Retry-After"), f.cfg.MaxRetryAfter)
		logger.ForScraper(key).Warn().
			Dur("retry_after", retryAfter).
			Msg("Rate limited")
		return nil, errors.NewRateLimit(key, retryAfter)
	case resp.StatusCode == http.StatusForbidden:
		return nil, errors.NewBlocked(key, "forbidden, likely anti-bot protection")
	case resp.StatusCode == http.StatusServiceUnavailable:
		logger.ForScraper(key).Warn().Msg("Service unavailable, will retry")
		return nil, errors.NewStatus(key, resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return nil, errors.NewStatus(key, resp.StatusCode)
	}

	reader, err := decompressReader(resp.Header.Get("Content-Encoding"), resp.Body)
	if err != nil {
		return nil, errors.NewNetwork(key, "failed to decompress body", err)
	}
	bodyBytes, err := io.ReadAll(reader)
	if err != nil {
		return nil, errors.NewNetwork(key, "failed to read response body", err)
	}

	if len(bodyBytes) < f.cfg.MinBodySize {
		return nil, errors.NewBlocked(key, fmt.Sprintf("suspiciously small body (%d bytes)", len(bodyBytes)))
	}

	return toUTF8(bodyBytes, resp.Header.Get("Content-Type"))
}

// toUTF8 converts a body to UTF-8 using the Content-Type header and the body itself
func toUTF8(body []byte, contentType string) ([]byte, error) {
	encoding, name, certain := charset.DetermineEncoding(body, contentType)
	if strings.EqualFold(name, "utf-8") || (!certain && utf8.Valid(body)) {
		return body, nil
	}

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, encoding.NewDecoder().Reader(bytes.NewReader(body))); err != nil {
		return nil, fmt.Errorf("failed to read converted UTF-8 body: %w", err)
	}
	return buf.Bytes(), nil
}

// decompressReader wraps a reader for gzip, deflate and brotli encodings
func decompressReader(encoding string, r io.Reader) (io.Reader, error) {
	switch strings.ToLower(strings.TrimSpace(encoding)) {
	case "gzip":
		return gzip.NewReader(r)
	case "deflate":
		return flate.NewReader(r), nil
	case "br":
		return brotli.NewReader(r), nil
	default:
		return r, nil
	}
}

func (f *Fetcher) backoff(attempt int) time.Duration {
	base := f.cfg.BaseDelay * time.Duration(1<<(attempt-1))
	return RandomDelay(base)
}

func (f *Fetcher) wait(ctx context.Context, key string) error {
	if f.cfg.RequestsPerSecond <= 0 {
		return nil
	}
	f.mu.Lock()
	l, ok := f.limiters[key]
	if !ok {
		l = rate.NewLimiter(rate.Limit(f.cfg.RequestsPerSecond), 1)
		f.limiters[key] = l
	}
	f.mu.Unlock()
	return l.Wait(ctx)
}

// parseRetryAfter reads integer seconds or an HTTP date; unknown values fall back to five seconds
func parseRetryAfter(header string, max time.Duration) time.Duration {
	d := 5 * time.Second
	header = strings.TrimSpace(header)
	if secs, err := strconv.Atoi(header); err == nil && secs >= 0 {
		d = time.Duration(secs) * time.Second
	} else if t, err := http.ParseTime(header); err == nil {
		d = time.Until(t)
		if d < 0 {
			d = 0
		}
	}
	if max > 0 && d > max {
		d = max
	}
	return d
}

// RandomDelay returns base with ±25% jitter
func RandomDelay(base time.Duration) time.Duration {
	if base <= 0 {
		return 0
	}
	jitter := float64(base) * 0.25
	return base + time.Duration(mathrand.Float64()*2*jitter-jitter)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
