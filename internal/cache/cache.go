package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Cache defines the interface for caching
type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte, ttl time.Duration) error
	Delete(key string) error
	Clear() error
}

// AnalysisKey generates the cache key for one document version. Analyses
// are immutable per (document, version), so the key never needs
// invalidation when a document changes: a new version gets a new key.
func AnalysisKey(documentID, version string) string {
	hash := sha256.Sum256([]byte(documentID + "@" + version))
	return "covenant:v1:" + hex.EncodeToString(hash[:])
}
