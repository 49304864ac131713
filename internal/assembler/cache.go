package assembler

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/tjfontaine/grant-pipeline/internal/core/domain"
	"github.com/tjfontaine/grant-pipeline/internal/core/ports"
)

// Default cache bounds.
const (
	DefaultCacheSize = 64
	DefaultCacheTTL  = 10 * time.Minute
)

// UploadCache memoises upload contexts per grant. It is owned by a session or
// request scope; entries are safe to evict at any time.
type UploadCache struct {
	store ports.UploadStore
	lru   *expirable.LRU[string, *domain.UploadContext]
}

// NewUploadCache creates a cache in front of store. A non-positive size or
// ttl selects the default.
func NewUploadCache(store ports.UploadStore, size int, ttl time.Duration) *UploadCache {
	if size <= 0 {
		size = DefaultCacheSize
	}
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &UploadCache{
		store: store,
		lru:   expirable.NewLRU[string, *domain.UploadContext](size, nil, ttl),
	}
}

func cacheKey(orgID, grantID string) string {
	return orgID + "/" + grantID
}

// Get returns the upload context for a grant, fetching it on a miss.
func (c *UploadCache) Get(ctx context.Context, orgID, grantID string) (*domain.UploadContext, error) {
	key := cacheKey(orgID, grantID)
	if uc, ok := c.lru.Get(key); ok {
		return uc, nil
	}

	uc, err := c.store.GetUploadContext(ctx, orgID, grantID)
	if err != nil {
		return nil, err
	}
	if uc == nil {
		uc = &domain.UploadContext{}
	}
	c.lru.Add(key, uc)
	return uc, nil
}

// Invalidate drops the cached entry for a grant, e.g. after a new upload.
func (c *UploadCache) Invalidate(orgID, grantID string) {
	c.lru.Remove(cacheKey(orgID, grantID))
}

// Len returns the number of cached entries, including expired ones not yet
// reaped.
func (c *UploadCache) Len() int {
	return c.lru.Len()
}
