package catalog

import (
	"context"
	"fmt"

	"movemovies/models"

	lru "github.com/hashicorp/golang-lru/v2"
)

// ProviderCache fronts WatchProviders lookups with a bounded LRU keyed by
// media type and id. Entries are region-specific, so the cache must be
// purged when the display language (and therefore the region) changes.
type ProviderCache struct {
	client *Client
	cache  *lru.Cache[string, *models.WatchProviders]
}

// NewProviderCache creates a cache holding at most size entries.
func NewProviderCache(client *Client, size int) (*ProviderCache, error) {
	cache, err := lru.New[string, *models.WatchProviders](size)
	if err != nil {
		return nil, fmt.Errorf("create provider cache: %w", err)
	}
	return &ProviderCache{client: client, cache: cache}, nil
}

func providerKey(mediaType models.MediaType, id int64) string {
	return fmt.Sprintf("%s:%d", mediaType, id)
}

// Get returns the cached availability for a title, fetching and storing it
// on a miss. A title with no listing caches the nil result too, so repeat
// lookups of unlisted titles stay off the network.
func (p *ProviderCache) Get(ctx context.Context, mediaType models.MediaType, id int64) (*models.WatchProviders, error) {
	key := providerKey(mediaType, id)
	if cached, ok := p.cache.Get(key); ok {
		return cached, nil
	}

	providers, err := p.client.WatchProviders(ctx, mediaType, id)
	if err != nil {
		return nil, err
	}
	p.cache.Add(key, providers)
	return providers, nil
}

// Put stores an availability record directly.
func (p *ProviderCache) Put(mediaType models.MediaType, id int64, providers *models.WatchProviders) {
	p.cache.Add(providerKey(mediaType, id), providers)
}

// Purge drops every cached entry. Called on display-language change.
func (p *ProviderCache) Purge() {
	p.cache.Purge()
}

// Len reports the number of cached entries.
func (p *ProviderCache) Len() int {
	return p.cache.Len()
}
