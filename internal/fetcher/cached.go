package fetcher

import (
	"context"
	"io"
	"sync/atomic"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// CacheStats counts how pages were served.
type CacheStats struct {
	Fetches int64 // network downloads
	Hits    int64 // served from disk
}

// CachedFetcher serves pages from the on-disk cache and downloads only what is
// missing. A downloaded page is persisted before it is returned.
type CachedFetcher struct {
	fetcher Fetcher
	cache   *Cache
	mode    KeyMode
	log     *zap.Logger

	fetches atomic.Int64
	hits    atomic.Int64
}

// NewCachedFetcher wires a Fetcher to a Cache.
func NewCachedFetcher(f Fetcher, cache *Cache, mode KeyMode) *CachedFetcher {
	return &CachedFetcher{
		fetcher: f,
		cache:   cache,
		mode:    mode,
		log:     zap.L().With(zap.String("component", "cache")),
	}
}

// Cache returns the underlying cache.
func (c *CachedFetcher) Cache() *Cache { return c.cache }

// Key returns the cache key for rawURL.
func (c *CachedFetcher) Key(rawURL string) (string, error) {
	return CacheKey(rawURL, c.mode)
}

// Get returns the page body for rawURL. Download failures are returned as-is
// and nothing is written to the cache.
func (c *CachedFetcher) Get(ctx context.Context, rawURL string) ([]byte, error) {
	key, err := c.Key(rawURL)
	if err != nil {
		return nil, err
	}

	if c.cache.Has(key, ".html") {
		c.hits.Add(1)
		c.log.Debug("cache hit", zap.String("url", rawURL), zap.String("key", key))
		return c.cache.Read(key, ".html")
	}

	c.fetches.Add(1)
	c.log.Info("fetching page", zap.String("url", rawURL), zap.String("key", key))

	body, err := c.fetcher.Download(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	defer body.Close() //nolint:errcheck

	data, err := io.ReadAll(body)
	if err != nil {
		return nil, eris.Wrapf(err, "fetcher: read body of %s", rawURL)
	}

	if err := c.cache.Write(key, ".html", data); err != nil {
		return nil, err
	}
	return data, nil
}

// Stats returns the counters accumulated so far.
func (c *CachedFetcher) Stats() CacheStats {
	return CacheStats{Fetches: c.fetches.Load(), Hits: c.hits.Load()}
}
