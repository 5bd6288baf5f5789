// Package cache holds rendered page fragments for a bounded time.
package cache

import (
	"context"
	"time"
)

// DefaultIndexTTL is how long the rendered index feed is served from cache.
const DefaultIndexTTL = 20 * time.Second

// PageCache stores rendered output by key. Entries expire after their ttl;
// Clear and Flush drop entries immediately.
type PageCache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Put(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Clear(ctx context.Context, key string) error
	Flush(ctx context.Context) error
	Close() error
}

// IndexKey is the cache key of one page of the index feed.
func IndexKey(page string) string {
	if page == "" {
		page = "1"
	}
	return "index_page:" + page
}
