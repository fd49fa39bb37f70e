package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"go.uber.org/zap"

	"github.com/cocopet/backend/config"
	httpDelivery "github.com/cocopet/backend/internal/delivery/http"
	"github.com/cocopet/backend/internal/domain"
	"github.com/cocopet/backend/internal/infrastructure/cache"
	"github.com/cocopet/backend/internal/infrastructure/catalog"
	"github.com/cocopet/backend/internal/infrastructure/geocode"
	"github.com/cocopet/backend/internal/infrastructure/links"
	"github.com/cocopet/backend/internal/logger"
	"github.com/cocopet/backend/internal/usecase"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	zlog := logger.New(cfg.Log.Level, cfg.Log.Format)
	defer zlog.Sync()

	zlog.Info("starting cocopet backend",
		zap.String("version", "1.0.0"),
		zap.String("environment", cfg.Server.Environment),
		zap.String("port", cfg.Server.Port),
		zap.String("cache", cfg.Cache.Type))

	// Infrastructure dependencies
	var cacheRepo domain.CacheRepository
	switch cfg.Cache.Type {
	case "redis":
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		redisCache, err := cache.NewRedisCache(ctx, cfg.Cache.RedisURL)
		cancel()
		if err != nil {
			zlog.Fatal("redis connection failed", zap.Error(err))
		}
		cacheRepo = redisCache
	default:
		cacheRepo = cache.NewMemoryCache()
	}

	linkResolver := links.NewHTTPResolver(cfg.Parser.LinkTimeout, zlog)

	var geocoder domain.Geocoder
	if cfg.Geocoder.Enabled {
		geocoder = geocode.NewClient(cfg.Geocoder.BaseURL, zlog)
		zlog.Info("reverse geocoding enabled", zap.String("url", cfg.Geocoder.BaseURL))
	}

	catalogClient := catalog.NewClient(cfg.Catalog.BaseURL, cfg.Catalog.APIKey, zlog)

	// Build the matching index and load the initial catalog. Startup
	// continues on failure; the index stays empty until the next refresh.
	index := usecase.NewCatalogIndex(zlog)
	refreshCatalog(index, catalogClient, zlog)
	go refreshLoop(index, catalogClient, cfg.Catalog.RefreshInterval, zlog)

	parser := usecase.NewParser(index, linkResolver, geocoder, cacheRepo, usecase.ParserConfig{
		Matcher: usecase.MatcherConfig{
			VectorThreshold:     cfg.Parser.VectorThreshold,
			FuzzyThreshold:      cfg.Parser.FuzzyThreshold,
			SuggestionThreshold: cfg.Parser.SuggestionThreshold,
			MaxQuantity:         cfg.Parser.MaxQuantity,
		},
		Geo: usecase.GeoConfig{
			MinLat:         cfg.Parser.MinLat,
			MaxLat:         cfg.Parser.MaxLat,
			MinLng:         cfg.Parser.MinLng,
			MaxLng:         cfg.Parser.MaxLng,
			ResolveTimeout: cfg.Parser.LinkTimeout,
			LinkTTL:        cfg.Cache.LinkTTL,
		},
		MinPlausibleTotal: cfg.Parser.MinPlausibleTotal,
		MaxPlausibleTotal: cfg.Parser.MaxPlausibleTotal,
	}, zlog)

	// HTTP delivery
	handler := httpDelivery.NewHandler(parser, index, catalogClient, cacheRepo, zlog)
	router := httpDelivery.SetupRouter(cfg, handler)

	addr := fmt.Sprintf(":%s", cfg.Server.Port)
	zlog.Info("server listening", zap.String("addr", addr))

	if err := router.Run(addr); err != nil {
		zlog.Fatal("server stopped", zap.Error(err))
	}
}

func refreshCatalog(index *usecase.CatalogIndex, source domain.CatalogSource, zlog *zap.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	products, err := source.ActiveProducts(ctx)
	if err != nil {
		zlog.Error("catalog refresh failed", zap.Error(err))
		return
	}
	index.Refresh(products)
	zlog.Info("catalog refreshed", zap.Int("products", len(products)))
}

func refreshLoop(index *usecase.CatalogIndex, source domain.CatalogSource, interval time.Duration, zlog *zap.Logger) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for range ticker.C {
		refreshCatalog(index, source, zlog)
	}
}
