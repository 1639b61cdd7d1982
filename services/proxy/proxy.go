// Package proxy keeps a latency-ranked pool of outbound proxies for the scrapers.
package proxy

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"sjsage522/shopcompare/logger"
	"sjsage522/shopcompare/pkg/errors"
)

const (
	defaultTop         = 5
	testConcurrency    = 20
	defaultDialTimeout = 5 * time.Second
)

// ProxyManager hands out proxies to an http.Transport
type ProxyManager interface {
	UpdateProxies(ctx context.Context) error
	ProxyFor(req *http.Request) (*url.URL, error)
	GetTopProxies(n int) []ProxyInfo
}

// ProxyInfo holds one tested proxy
type ProxyInfo struct {
	URL      *url.URL      `json:"-"`
	Address  string        `json:"address"`
	Scheme   string        `json:"scheme"`
	Latency  time.Duration `json:"latency"`
	LastTest time.Time     `json:"last_test"`
	Working  bool          `json:"working"`
}

// Manager tests the configured proxies and rotates requests across the fastest ones.
// With no working proxy, requests go direct.
type Manager struct {
	candidates     []*url.URL
	proxies        []ProxyInfo
	mutex          sync.RWMutex
	next           atomic.Uint64
	lastUpdate     time.Time
	updateInterval time.Duration
	top            int

	dial func(ctx context.Context, network, addr string) (net.Conn, error)
}

var _ ProxyManager = (*Manager)(nil)

// NewManager parses raw proxy URLs (http, https or socks5). A bare host:port means socks5.
func NewManager(raw []string, updateInterval time.Duration) (*Manager, error) {
	var candidates []*url.URL
	for _, r := range raw {
		r = strings.TrimSpace(r)
		if r == "" {
			continue
		}
		if !strings.Contains(r, "://") {
			r = "socks5://" + r
		}
		u, err := url.Parse(r)
		if err != nil {
			return nil, errors.NewConfiguration(fmt.Sprintf("invalid proxy %q", r), err)
		}
		switch u.Scheme {
		case "http", "https", "socks5":
		default:
			return nil, errors.NewConfiguration(fmt.Sprintf("unsupported proxy scheme %q", u.Scheme), nil)
		}
		if u.Port() == "" {
			return nil, errors.NewConfiguration(fmt.Sprintf("proxy %q has no port", r), nil)
		}
		candidates = append(candidates, u)
	}

	dialer := &net.Dialer{Timeout: defaultDialTimeout}
	return &Manager{
		candidates:     candidates,
		updateInterval: updateInterval,
		top:            defaultTop,
		dial:           dialer.DialContext,
	}, nil
}

// Len reports how many proxies were configured
func (pm *Manager) Len() int {
	return len(pm.candidates)
}

// UpdateProxies tests every candidate and keeps the fastest working ones
func (pm *Manager) UpdateProxies(ctx context.Context) error {
	log := logger.ForComponent("proxy")
	if len(pm.candidates) == 0 {
		return nil
	}

	results := make([]ProxyInfo, len(pm.candidates))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(testConcurrency)
	for i, u := range pm.candidates {
		i, u := i, u
		g.Go(func() error {
			results[i] = pm.testProxyLatency(gctx, u)
			return nil
		})
	}
	_ = g.Wait()

	var working []ProxyInfo
	for _, r := range results {
		if r.Working {
			working = append(working, r)
		}
	}
	sort.SliceStable(working, func(i, j int) bool {
		return working[i].Latency < working[j].Latency
	})
	if len(working) > pm.top {
		working = working[:pm.top]
	}

	pm.mutex.Lock()
	pm.proxies = working
	pm.lastUpdate = time.Now()
	pm.mutex.Unlock()

	if len(working) == 0 {
		return errors.NewNetwork("proxy", "no working proxies available", nil)
	}
	log.Info().
		Int("working", len(working)).
		Int("configured", len(pm.candidates)).
		Dur("fastest", working[0].Latency).
		Msg("Updated proxy list")
	return nil
}

// testProxyLatency dials the proxy and, for socks5, checks the greeting
func (pm *Manager) testProxyLatency(ctx context.Context, u *url.URL) ProxyInfo {
	info := ProxyInfo{URL: u, Address: u.Host, Scheme: u.Scheme, Latency: time.Hour}

	start := time.Now()
	conn, err := pm.dial(ctx, "tcp", u.Host)
	if err != nil {
		logger.ForComponent("proxy").Debug().Str("proxy", u.Host).Err(err).Msg("TCP connection failed")
		return info
	}
	defer conn.Close()

	if u.Scheme == "socks5" && !testSOCKS5Handshake(conn) {
		logger.ForComponent("proxy").Debug().Str("proxy", u.Host).Msg("SOCKS5 handshake failed")
		return info
	}

	info.Working = true
	info.Latency = time.Since(start)
	info.LastTest = time.Now()
	return info
}

// testSOCKS5Handshake offers the no-auth method and expects it accepted
func testSOCKS5Handshake(conn net.Conn) bool {
	_ = conn.SetDeadline(time.Now().Add(3 * time.Second))
	defer conn.SetDeadline(time.Time{})

	if _, err := conn.Write([]byte{0x05, 0x01, 0x00}); err != nil {
		return false
	}
	resp := make([]byte, 2)
	if _, err := conn.Read(resp); err != nil {
		return false
	}
	return resp[0] == 0x05 && resp[1] == 0x00
}

// ProxyFor rotates across the working proxies. It fits http.Transport.Proxy.
func (pm *Manager) ProxyFor(_ *http.Request) (*url.URL, error) {
	pm.mutex.RLock()
	defer pm.mutex.RUnlock()
	if len(pm.proxies) == 0 {
		return nil, nil
	}
	i := pm.next.Add(1) - 1
	return pm.proxies[i%uint64(len(pm.proxies))].URL, nil
}

// GetTopProxies returns the n fastest working proxies
func (pm *Manager) GetTopProxies(n int) []ProxyInfo {
	pm.mutex.RLock()
	defer pm.mutex.RUnlock()
	n = max(0, min(n, len(pm.proxies)))
	result := make([]ProxyInfo, n)
	copy(result, pm.proxies[:n])
	return result
}

// Run retests the pool every update interval until ctx is done
func (pm *Manager) Run(ctx context.Context) {
	if len(pm.candidates) == 0 || pm.updateInterval <= 0 {
		return
	}
	ticker := time.NewTicker(pm.updateInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := pm.UpdateProxies(ctx); err != nil {
				logger.LogError("proxy", err, "Failed to update proxies")
			}
		}
	}
}
