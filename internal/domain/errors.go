package domain

import "errors"

var (
	// ErrCatalogSourceFailure is returned when the catalog source cannot be reached
	ErrCatalogSourceFailure = errors.New("catalog source request failed")

	// ErrLinkResolutionFailed is returned when a shortened map link cannot be expanded
	ErrLinkResolutionFailed = errors.New("short link resolution failed")

	// ErrGeocodingFailed is returned when reverse geocoding fails
	ErrGeocodingFailed = errors.New("reverse geocoding failed")

	// ErrInvalidRequest is returned when request parameters are invalid
	ErrInvalidRequest = errors.New("invalid request parameters")

	// ErrCacheMiss is returned when data is not found in cache
	ErrCacheMiss = errors.New("cache miss")

	// ErrCacheUnavailable is returned when the cache service is unavailable
	ErrCacheUnavailable = errors.New("cache service unavailable")
)
