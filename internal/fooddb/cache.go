package fooddb

import (
	"context"
	"encoding/json"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"
)

// CachedSearcher wraps a Searcher and keeps non-empty results in memory,
// persisted to a JSON file on SaveCache.
type CachedSearcher struct {
	next          Searcher
	cache         map[string][]Entry
	cacheFilePath string
	dirty         bool
	mu            sync.Mutex
	logger        *zap.Logger
}

// NewCachedSearcher creates a CachedSearcher and loads the cache file if it
// exists.
func NewCachedSearcher(next Searcher, cacheFilePath string, logger *zap.Logger) (*CachedSearcher, error) {
	c := &CachedSearcher{
		next:          next,
		cache:         make(map[string][]Entry),
		cacheFilePath: cacheFilePath,
		logger:        logger,
	}

	cacheDir := filepath.Dir(cacheFilePath)
	if err := os.MkdirAll(cacheDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory %s: %w", cacheDir, err)
	}

	data, err := os.ReadFile(cacheFilePath)
	if err != nil {
		if os.IsNotExist(err) {
			logger.Info("food cache not found, starting empty", zap.String("path", cacheFilePath))
			return c, nil
		}
		return nil, fmt.Errorf("failed to read cache file %s: %w", cacheFilePath, err)
	}

	if err := json.Unmarshal(data, &c.cache); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cache data from %s: %w", cacheFilePath, err)
	}

	logger.Info("food cache loaded", zap.Int("queries", len(c.cache)), zap.String("path", cacheFilePath))
	return c, nil
}

// Search checks the cache first and falls through to the wrapped searcher.
func (c *CachedSearcher) Search(ctx context.Context, query string) ([]Entry, error) {
	key := NormalizeQuery(query)

	c.mu.Lock()
	entries, ok := c.cache[key]
	c.mu.Unlock()
	if ok {
		return cloneEntries(entries), nil
	}

	entries, err := c.next.Search(ctx, query)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, nil
	}

	c.mu.Lock()
	c.cache[key] = cloneEntries(entries)
	c.dirty = true
	c.mu.Unlock()
	return entries, nil
}

// SaveCache persists the cache when it changed since the last save.
func (c *CachedSearcher) SaveCache() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.dirty {
		return nil
	}

	data, err := json.MarshalIndent(c.cache, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal cache data: %w", err)
	}

	tmp := c.cacheFilePath + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write cache file %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, c.cacheFilePath); err != nil {
		return fmt.Errorf("failed to replace cache file %s: %w", c.cacheFilePath, err)
	}

	c.dirty = false
	c.logger.Debug("food cache saved", zap.Int("queries", len(c.cache)))
	return nil
}

func cloneEntries(in []Entry) []Entry {
	out := make([]Entry, len(in))
	for i, e := range in {
		e.Nutrition = e.Nutrition.Clone()
		e.Portions = maps.Clone(e.Portions)
		out[i] = e
	}
	return out
}
