package data

import (
	"sync"

	"go.uber.org/zap"

	"walkforward-validator/pkg/types"
)

// MemoryCache implements Cache with in-memory storage. Values are copied on
// both set and get so cached series stay immutable.
type MemoryCache struct {
	cache map[string][]types.Bar
	mutex sync.RWMutex
}

// NewMemoryCache creates a new in-memory cache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{cache: make(map[string][]types.Bar)}
}

func (c *MemoryCache) Get(key string) ([]types.Bar, bool) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	data, exists := c.cache[key]
	if !exists {
		return nil, false
	}
	result := make([]types.Bar, len(data))
	copy(result, data)
	return result, true
}

func (c *MemoryCache) Set(key string, data []types.Bar) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	cached := make([]types.Bar, len(data))
	copy(cached, data)
	c.cache[key] = cached
}

func (c *MemoryCache) Clear() {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.cache = make(map[string][]types.Bar)
}

func (c *MemoryCache) Size() int {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return len(c.cache)
}

// CachedProvider wraps another Provider with in-memory caching, so repeated
// runs over the same file parse it once.
type CachedProvider struct {
	provider Provider
	cache    Cache
	logger   *zap.Logger
}

// NewCachedProvider creates a cached provider with a fresh memory cache.
func NewCachedProvider(provider Provider, logger *zap.Logger) *CachedProvider {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CachedProvider{
		provider: provider,
		cache:    NewMemoryCache(),
		logger:   logger,
	}
}

// GetName returns the underlying provider's name with a cache marker.
func (p *CachedProvider) GetName() string {
	return "Cached " + p.provider.GetName()
}

// LoadData loads through the cache.
func (p *CachedProvider) LoadData(source string) ([]types.Bar, error) {
	if cached, exists := p.cache.Get(source); exists {
		return cached, nil
	}

	data, err := p.provider.LoadData(source)
	if err != nil {
		return nil, err
	}
	p.cache.Set(source, data)
	p.logger.Info("loaded and cached bars", zap.String("source", source), zap.Int("bars", len(data)))
	return data, nil
}

// ValidateData delegates to the underlying provider.
func (p *CachedProvider) ValidateData(data []types.Bar) error {
	return p.provider.ValidateData(data)
}

// ClearCache clears all cached series.
func (p *CachedProvider) ClearCache() {
	p.cache.Clear()
}
