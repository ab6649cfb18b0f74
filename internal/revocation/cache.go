package revocation

import (
	"crypto/x509"
	"sync"
	"time"
)

// crlCacheTTL bounds how long a CRL without a NextUpdate is kept.
const crlCacheTTL = 1 * time.Hour

// CRLCache holds fetched CRLs keyed by distribution point URL so repeated
// validation cycles do not refetch the same list.
type CRLCache struct {
	mu      sync.Mutex
	entries map[string]crlEntry
	now     func() time.Time
}

type crlEntry struct {
	crl       *x509.RevocationList
	expiresAt time.Time
}

// CacheOption configures a CRLCache.
type CacheOption func(*CRLCache)

// WithCacheClock overrides the time source, used by tests to pin "now".
func WithCacheClock(now func() time.Time) CacheOption {
	return func(c *CRLCache) { c.now = now }
}

// NewCRLCache creates an empty CRL cache.
func NewCRLCache(opts ...CacheOption) *CRLCache {
	c := &CRLCache{entries: make(map[string]crlEntry), now: time.Now}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns the cached CRL for a distribution point, or nil when the
// entry is missing or past its expiry. Expired entries are evicted.
func (c *CRLCache) Get(url string) *x509.RevocationList {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[url]
	if !ok {
		return nil
	}
	if c.now().After(e.expiresAt) {
		delete(c.entries, url)
		return nil
	}
	return e.crl
}

// Set stores a CRL, expiring it at the list's NextUpdate. Lists that carry
// no NextUpdate are kept for crlCacheTTL.
func (c *CRLCache) Set(url string, crl *x509.RevocationList) {
	expires := crl.NextUpdate
	if expires.IsZero() {
		expires = c.now().Add(crlCacheTTL)
	}
	c.mu.Lock()
	c.entries[url] = crlEntry{crl: crl, expiresAt: expires}
	c.mu.Unlock()
}
