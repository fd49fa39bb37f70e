package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/cocopet/backend/internal/domain"
)

type fakeLinkResolver struct {
	resolved string
	err      error
	calls    int
}

func (f *fakeLinkResolver) Resolve(ctx context.Context, shortURL string) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return f.resolved, nil
}

type fakeCache struct {
	mu      sync.Mutex
	items   map[string]interface{}
	lastTTL time.Duration
}

func newFakeCache() *fakeCache {
	return &fakeCache{items: make(map[string]interface{})}
}

func (c *fakeCache) Get(ctx context.Context, key string) (interface{}, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	value, ok := c.items[key]
	if !ok {
		return nil, domain.ErrCacheMiss
	}
	return value, nil
}

func (c *fakeCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[key] = value
	c.lastTTL = ttl
	return nil
}

func (c *fakeCache) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.items, key)
	return nil
}

func (c *fakeCache) Exists(ctx context.Context, key string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.items[key]
	return ok, nil
}

func TestResolveCoordinates(t *testing.T) {
	ctx := context.Background()

	t.Run("query parameter map link", func(t *testing.T) {
		r := NewCoordinateResolver(GeoConfig{}, nil, nil, nil)
		loc := r.Resolve(ctx, "aqui estamos https://maps.google.com/?q=21.1619,-86.8515")
		if loc == nil {
			t.Fatal("location is nil")
		}
		if loc.Coordinates.Lat != 21.1619 || loc.Coordinates.Lng != -86.8515 {
			t.Errorf("coordinates = %+v, want 21.1619,-86.8515", loc.Coordinates)
		}
		if loc.Source != LocationSourceMapLink {
			t.Errorf("Source = %q, want %q", loc.Source, LocationSourceMapLink)
		}
		if loc.Precision != "high" {
			t.Errorf("Precision = %q, want high", loc.Precision)
		}
		if loc.Area != "centro" {
			t.Errorf("Area = %q, want centro", loc.Area)
		}
	})

	t.Run("at-sign map path link", func(t *testing.T) {
		r := NewCoordinateResolver(GeoConfig{}, nil, nil, nil)
		loc := r.Resolve(ctx, "https://www.google.com/maps/@21.161900,-86.851500,15z")
		if loc == nil {
			t.Fatal("location is nil")
		}
		if loc.Source != LocationSourceMapLink {
			t.Errorf("Source = %q, want %q", loc.Source, LocationSourceMapLink)
		}
		if loc.Precision != "very_high" {
			t.Errorf("Precision = %q, want very_high", loc.Precision)
		}
	})

	t.Run("labelled inline coordinates", func(t *testing.T) {
		r := NewCoordinateResolver(GeoConfig{}, nil, nil, nil)
		loc := r.Resolve(ctx, "lat: 21.1619, lng: -86.8515")
		if loc == nil {
			t.Fatal("location is nil")
		}
		if loc.Source != LocationSourceText {
			t.Errorf("Source = %q, want %q", loc.Source, LocationSourceText)
		}
	})

	t.Run("bare decimal pair", func(t *testing.T) {
		r := NewCoordinateResolver(GeoConfig{}, nil, nil, nil)
		loc := r.Resolve(ctx, "estoy en 21.161, -86.851 ahorita")
		if loc == nil {
			t.Fatal("location is nil")
		}
		if loc.Coordinates.Lat != 21.161 {
			t.Errorf("Lat = %v, want 21.161", loc.Coordinates.Lat)
		}
		if loc.Precision != "medium" {
			t.Errorf("Precision = %q, want medium", loc.Precision)
		}
	})

	t.Run("out of bounds coordinates are rejected", func(t *testing.T) {
		r := NewCoordinateResolver(GeoConfig{}, nil, nil, nil)
		if loc := r.Resolve(ctx, "https://maps.google.com/?q=19.4326,-99.1332"); loc != nil {
			t.Errorf("location = %+v, want nil for out-of-area pair", loc)
		}
	})

	t.Run("gazetteer place name", func(t *testing.T) {
		r := NewCoordinateResolver(GeoConfig{}, nil, nil, nil)
		loc := r.Resolve(ctx, "entregar en la Zona Hotelera por favor")
		if loc == nil {
			t.Fatal("location is nil")
		}
		if loc.Source != LocationSourceGazetteer {
			t.Errorf("Source = %q, want %q", loc.Source, LocationSourceGazetteer)
		}
		if loc.Precision != "low" {
			t.Errorf("Precision = %q, want low", loc.Precision)
		}
		if loc.Coordinates.Lat != 21.1692 {
			t.Errorf("Lat = %v, want 21.1692", loc.Coordinates.Lat)
		}
	})

	t.Run("direct link wins over gazetteer", func(t *testing.T) {
		r := NewCoordinateResolver(GeoConfig{}, nil, nil, nil)
		loc := r.Resolve(ctx, "centro https://maps.google.com/?q=21.1325,-86.7739")
		if loc == nil {
			t.Fatal("location is nil")
		}
		if loc.Source != LocationSourceMapLink {
			t.Errorf("Source = %q, want %q", loc.Source, LocationSourceMapLink)
		}
	})

	t.Run("no location in plain text", func(t *testing.T) {
		r := NewCoordinateResolver(GeoConfig{}, nil, nil, nil)
		if loc := r.Resolve(ctx, "quiero dos bolsas de croquetas"); loc != nil {
			t.Errorf("location = %+v, want nil", loc)
		}
	})
}

func TestResolveShortLinks(t *testing.T) {
	ctx := context.Background()
	const message = "ubicacion https://maps.app.goo.gl/AbC123xyz"

	t.Run("expands and reads the resolved link", func(t *testing.T) {
		links := &fakeLinkResolver{resolved: "https://www.google.com/maps/?q=21.1619,-86.8515"}
		r := NewCoordinateResolver(GeoConfig{}, links, nil, nil)

		loc := r.Resolve(ctx, message)
		if loc == nil {
			t.Fatal("location is nil")
		}
		if loc.Source != LocationSourceShortLink {
			t.Errorf("Source = %q, want %q", loc.Source, LocationSourceShortLink)
		}
		if loc.Coordinates.Lat != 21.1619 {
			t.Errorf("Lat = %v, want 21.1619", loc.Coordinates.Lat)
		}
	})

	t.Run("caches resolutions per url", func(t *testing.T) {
		links := &fakeLinkResolver{resolved: "https://www.google.com/maps/?q=21.1619,-86.8515"}
		r := NewCoordinateResolver(GeoConfig{}, links, newFakeCache(), nil)

		if loc := r.Resolve(ctx, message); loc == nil {
			t.Fatal("first resolve returned nil")
		}
		if loc := r.Resolve(ctx, message); loc == nil {
			t.Fatal("second resolve returned nil")
		}
		if links.calls != 1 {
			t.Errorf("resolver calls = %d, want 1", links.calls)
		}
	})

	t.Run("stores resolutions with the configured ttl", func(t *testing.T) {
		links := &fakeLinkResolver{resolved: "https://www.google.com/maps/?q=21.1619,-86.8515"}
		cache := newFakeCache()
		r := NewCoordinateResolver(GeoConfig{LinkTTL: time.Hour}, links, cache, nil)

		if loc := r.Resolve(ctx, message); loc == nil {
			t.Fatal("resolve returned nil")
		}
		if cache.lastTTL != time.Hour {
			t.Errorf("stored ttl = %v, want %v", cache.lastTTL, time.Hour)
		}
	})

	t.Run("resolution failure degrades to other sources", func(t *testing.T) {
		links := &fakeLinkResolver{err: errors.New("network down")}
		r := NewCoordinateResolver(GeoConfig{}, links, nil, nil)

		loc := r.Resolve(ctx, message+" cerca del centro")
		if loc == nil {
			t.Fatal("location is nil, want gazetteer fallback")
		}
		if loc.Source != LocationSourceGazetteer {
			t.Errorf("Source = %q, want %q", loc.Source, LocationSourceGazetteer)
		}
	})

	t.Run("nil resolver skips short links", func(t *testing.T) {
		r := NewCoordinateResolver(GeoConfig{}, nil, nil, nil)
		if loc := r.Resolve(ctx, message); loc != nil {
			t.Errorf("location = %+v, want nil", loc)
		}
	})
}

func TestHaversineMeters(t *testing.T) {
	t.Run("zero distance to itself", func(t *testing.T) {
		p := domain.Coordinates{Lat: 21.1619, Lng: -86.8515}
		if d := HaversineMeters(p, p); d != 0 {
			t.Errorf("distance = %v, want 0", d)
		}
	})

	t.Run("known city-scale distance", func(t *testing.T) {
		centro := domain.Coordinates{Lat: 21.1619, Lng: -86.8515}
		playa := domain.Coordinates{Lat: 21.1325, Lng: -86.7739}
		d := HaversineMeters(centro, playa)
		if d < 8000 || d > 9500 {
			t.Errorf("distance = %v, want roughly 8.7km", d)
		}
	})
}
