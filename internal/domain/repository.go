package domain

import (
	"context"
	"time"
)

// CacheRepository defines the interface for caching operations. Used for
// short-URL resolutions and reverse-geocoded addresses. Implementations must
// be safe for concurrent use; duplicate concurrent inserts for the same key
// are acceptable.
type CacheRepository interface {
	Get(ctx context.Context, key string) (interface{}, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
}

// CatalogSource provides the read-only list of active products pulled on a
// catalog refresh.
type CatalogSource interface {
	ActiveProducts(ctx context.Context) ([]Product, error)
}

// LinkResolver expands a shortened map URL into its final resolved URL.
// Implementations must bound the call with a timeout; a failure is terminal
// for the single extraction attempt, never retried.
type LinkResolver interface {
	Resolve(ctx context.Context, shortURL string) (string, error)
}

// Geocoder turns coordinates into a human-readable address. Best effort:
// callers treat failure as an absent address.
type Geocoder interface {
	ReverseGeocode(ctx context.Context, lat, lng float64) (string, error)
}
