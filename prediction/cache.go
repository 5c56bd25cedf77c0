package prediction

import (
	"context"
	"time"
)

// ResultsCache caches the results of finished uploads. Predictions are
// immutable once written; an entry is dropped when a new upload is stored
// under its id and otherwise expires by TTL.
type ResultsCache interface {
	// Get returns the cached results, or false on a miss or expiry.
	Get(ctx context.Context, uploadID int64) (*Results, bool, error)

	// Set stores results under their upload id.
	Set(ctx context.Context, results *Results) error

	// Invalidate drops a single upload's entry.
	Invalidate(ctx context.Context, uploadID int64) error
}

// CacheConfig holds configuration for cache behavior.
type CacheConfig struct {
	// TTL is the time-to-live for cached entries.
	// Set to 0 for no expiration.
	TTL time.Duration
}

// DefaultCacheConfig returns sensible defaults for results caching.
func DefaultCacheConfig() CacheConfig {
	return CacheConfig{
		TTL: 5 * time.Minute,
	}
}

func cloneResults(r *Results) *Results {
	out := &Results{
		UploadID:    r.UploadID,
		Predictions: make([]StoredPrediction, len(r.Predictions)),
	}
	copy(out.Predictions, r.Predictions)
	return out
}
