package cache

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/ppiankov/covenant/internal/model"
)

// AnalysisCache stores complete analyses keyed by document version
type AnalysisCache struct {
	cache Cache
	ttl   time.Duration
}

// NewAnalysisCache wraps a byte cache. A zero ttl uses the cache default.
func NewAnalysisCache(c Cache, ttl time.Duration) *AnalysisCache {
	return &AnalysisCache{cache: c, ttl: ttl}
}

// Get returns the cached analysis for a document version
func (c *AnalysisCache) Get(documentID, version string) (*model.Analysis, bool) {
	data, found := c.cache.Get(AnalysisKey(documentID, version))
	if !found {
		return nil, false
	}

	var a model.Analysis
	if err := json.Unmarshal(data, &a); err != nil {
		// Corrupt entries are dropped and treated as misses
		_ = c.cache.Delete(AnalysisKey(documentID, version))
		return nil, false
	}
	return &a, true
}

// Put stores an analysis under its document id and version
func (c *AnalysisCache) Put(a *model.Analysis) error {
	if a.DocumentID == "" || a.Version == "" {
		return fmt.Errorf("cache analysis: missing document id or version")
	}
	data, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("marshal analysis: %w", err)
	}
	return c.cache.Set(AnalysisKey(a.DocumentID, a.Version), data, c.ttl)
}
