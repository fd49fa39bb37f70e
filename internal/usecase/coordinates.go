package usecase

import (
	"context"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/cocopet/backend/internal/domain"
)

// Coordinate patterns, tried in priority order: direct map-link shapes,
// labelled inline pairs, bare decimal-degree pairs, shortened links.
var (
	mapsQueryParamRegex = regexp.MustCompile(`https?://\S*[?&](?:q|ll|query)=(-?[0-9]{1,2}\.[0-9]+),\s*(-?[0-9]{1,3}\.[0-9]+)`)
	mapsAtPathRegex     = regexp.MustCompile(`https?://\S*/maps/\S*@(-?[0-9]{1,2}\.[0-9]+),(-?[0-9]{1,3}\.[0-9]+)`)

	labelledCoordsRegex  = regexp.MustCompile(`(?i)(?:lat|latitud\w*)[:\s]*(-?[0-9]{1,2}\.[0-9]+)[,\s]+(?:lng|long\w*)[:\s]*(-?[0-9]{1,3}\.[0-9]+)`)
	ubicacionCoordsRegex = regexp.MustCompile(`(?i)(?:ubicaci[oó]n|coordenadas)[:\s]*(-?[0-9]{1,2}\.[0-9]+)[,\s]+(-?[0-9]{1,3}\.[0-9]+)`)
	barePairRegex        = regexp.MustCompile(`([0-9]{1,2}\.[0-9]+)[,\s]+(-[0-9]{1,3}\.[0-9]+)`)

	shortLinkRegexes = []*regexp.Regexp{
		regexp.MustCompile(`https://goo\.gl/maps/[A-Za-z0-9]+`),
		regexp.MustCompile(`https://maps\.app\.goo\.gl/[A-Za-z0-9]+`),
	}
)

// Location source tags
const (
	LocationSourceMapLink   = "map_link"
	LocationSourceText      = "text"
	LocationSourceShortLink = "short_link"
	LocationSourceGazetteer = "gazetteer"
)

// GeoConfig holds the service-area boundary, the gazetteer of known places
// and the short-link resolution timeout.
type GeoConfig struct {
	// Service-area bounding box in decimal degrees. Defaults cover the
	// Cancún metropolitan area.
	MinLat float64
	MaxLat float64
	MinLng float64
	MaxLng float64

	// Gazetteer maps known place names to representative coordinates,
	// matched by substring containment against the case-folded message.
	Gazetteer map[string]domain.Coordinates

	// ResolveTimeout bounds the single network call used to expand a
	// shortened map link. Default 10s.
	ResolveTimeout time.Duration

	// LinkTTL bounds how long resolved short links stay cached.
	// Zero means no expiry.
	LinkTTL time.Duration
}

func (c GeoConfig) withDefaults() GeoConfig {
	if c.MinLat == 0 && c.MaxLat == 0 {
		c.MinLat, c.MaxLat = 20.5, 21.5
	}
	if c.MinLng == 0 && c.MaxLng == 0 {
		c.MinLng, c.MaxLng = -87.5, -86.5
	}
	if c.Gazetteer == nil {
		c.Gazetteer = defaultGazetteer
	}
	if c.ResolveTimeout <= 0 {
		c.ResolveTimeout = 10 * time.Second
	}
	return c
}

// defaultGazetteer covers well-known delivery landmarks in the default
// service area.
var defaultGazetteer = map[string]domain.Coordinates{
	"centro":                {Lat: 21.1619, Lng: -86.8515},
	"downtown":              {Lat: 21.1619, Lng: -86.8515},
	"zona hotelera":         {Lat: 21.1692, Lng: -86.8980},
	"hotel zone":            {Lat: 21.1692, Lng: -86.8980},
	"aeropuerto":            {Lat: 21.0365, Lng: -86.8770},
	"playa delfines":        {Lat: 21.1325, Lng: -86.7739},
	"playa norte":           {Lat: 21.2417, Lng: -86.7468},
	"mercado 28":            {Lat: 21.1653, Lng: -86.8467},
	"parque de las palapas": {Lat: 21.1613, Lng: -86.8472},
}

// Location is a resolved coordinate pair plus resolution metadata. Precision
// and Area are diagnostics; only the precision tier feeds a small confidence
// bonus upstream.
type Location struct {
	Coordinates domain.Coordinates
	Source      string
	Precision   string
	Area        string
}

// CoordinateResolver extracts zero or one best delivery coordinate pair from
// a message. Link expansion goes through the LinkResolver collaborator and
// is cached by URL; all network failures degrade silently to "no
// coordinates from that source".
type CoordinateResolver struct {
	config GeoConfig
	links  domain.LinkResolver
	cache  domain.CacheRepository
	logger *zap.Logger
}

// NewCoordinateResolver creates a resolver. links and cache may be nil, in
// which case shortened links are simply skipped, respectively re-resolved.
func NewCoordinateResolver(config GeoConfig, links domain.LinkResolver, cache domain.CacheRepository, logger *zap.Logger) *CoordinateResolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CoordinateResolver{
		config: config.withDefaults(),
		links:  links,
		cache:  cache,
		logger: logger,
	}
}

// Resolve extracts the best coordinate pair from the text, or nil. The
// strategies run in priority order and the first in-bounds hit wins.
func (r *CoordinateResolver) Resolve(ctx context.Context, text string) *Location {
	if loc := r.fromDirectLink(text); loc != nil {
		return loc
	}
	if loc := r.fromInlineText(text); loc != nil {
		return loc
	}
	if loc := r.fromShortLink(ctx, text); loc != nil {
		return loc
	}
	return r.fromGazetteer(text)
}

// fromDirectLink matches recognized map-link URL shapes with embedded
// coordinates.
func (r *CoordinateResolver) fromDirectLink(text string) *Location {
	for _, re := range []*regexp.Regexp{mapsQueryParamRegex, mapsAtPathRegex} {
		if coords, raw, ok := r.matchPair(re, text); ok {
			return r.located(coords, raw, LocationSourceMapLink)
		}
	}
	return nil
}

// fromInlineText matches labelled coordinate pairs and bare decimal-degree
// "number, negative-number" pairs. Repeated mentions closer than 50 meters
// are treated as the same place.
func (r *CoordinateResolver) fromInlineText(text string) *Location {
	for _, re := range []*regexp.Regexp{labelledCoordsRegex, ubicacionCoordsRegex} {
		if coords, raw, ok := r.matchPair(re, text); ok {
			return r.located(coords, raw, LocationSourceText)
		}
	}

	var first *Location
	for _, match := range barePairRegex.FindAllStringSubmatch(text, -1) {
		coords, ok := parsePair(match[1], match[2])
		if !ok || !r.inBounds(coords) {
			continue
		}
		loc := r.located(coords, [2]string{match[1], match[2]}, LocationSourceText)
		if first == nil {
			first = loc
			continue
		}
		if HaversineMeters(first.Coordinates, coords) > 50 {
			// Distinct out-of-agreement mentions: keep the first, the rest
			// are most likely prices or other numeric noise.
			break
		}
	}
	return first
}

// fromShortLink expands a shortened map link through the collaborator (one
// bounded network call, cached by URL) and re-runs the direct-link patterns
// on the resolved URL.
func (r *CoordinateResolver) fromShortLink(ctx context.Context, text string) *Location {
	if r.links == nil {
		return nil
	}

	for _, re := range shortLinkRegexes {
		shortURL := re.FindString(text)
		if shortURL == "" {
			continue
		}

		resolved, ok := r.cachedResolution(ctx, shortURL)
		if !ok {
			var err error
			resolveCtx, cancel := context.WithTimeout(ctx, r.config.ResolveTimeout)
			resolved, err = r.links.Resolve(resolveCtx, shortURL)
			cancel()
			if err != nil {
				// Swallowed: a failed expansion only means no coordinates
				// from this source.
				r.logger.Debug("short link resolution failed",
					zap.String("url", shortURL), zap.Error(err))
				continue
			}
			r.storeResolution(ctx, shortURL, resolved)
		}

		if loc := r.fromDirectLink(resolved); loc != nil {
			loc.Source = LocationSourceShortLink
			return loc
		}
	}
	return nil
}

// fromGazetteer matches known place names by substring containment. The
// earliest mention in the message wins so the result is deterministic when
// several places appear.
func (r *CoordinateResolver) fromGazetteer(text string) *Location {
	lower := strings.ToLower(text)
	var best *Location
	bestIdx := -1
	for place, coords := range r.config.Gazetteer {
		idx := strings.Index(lower, place)
		if idx < 0 || !r.inBounds(coords) {
			continue
		}
		if bestIdx >= 0 && idx >= bestIdx {
			continue
		}
		bestIdx = idx
		best = &Location{
			Coordinates: coords,
			Source:      LocationSourceGazetteer,
			Precision:   "low",
			Area:        r.areaFor(coords),
		}
	}
	return best
}

func (r *CoordinateResolver) matchPair(re *regexp.Regexp, text string) (domain.Coordinates, [2]string, bool) {
	match := re.FindStringSubmatch(text)
	if match == nil {
		return domain.Coordinates{}, [2]string{}, false
	}
	coords, ok := parsePair(match[1], match[2])
	if !ok || !r.inBounds(coords) {
		return domain.Coordinates{}, [2]string{}, false
	}
	return coords, [2]string{match[1], match[2]}, true
}

func (r *CoordinateResolver) located(coords domain.Coordinates, raw [2]string, source string) *Location {
	return &Location{
		Coordinates: coords,
		Source:      source,
		Precision:   precisionTier(raw[0], raw[1]),
		Area:        r.areaFor(coords),
	}
}

func (r *CoordinateResolver) cachedResolution(ctx context.Context, shortURL string) (string, bool) {
	if r.cache == nil {
		return "", false
	}
	value, err := r.cache.Get(ctx, shortLinkCacheKey(shortURL))
	if err != nil {
		return "", false
	}
	resolved, ok := value.(string)
	return resolved, ok && resolved != ""
}

func (r *CoordinateResolver) storeResolution(ctx context.Context, shortURL, resolved string) {
	if r.cache == nil {
		return
	}
	// Duplicate concurrent inserts are harmless
	if err := r.cache.Set(ctx, shortLinkCacheKey(shortURL), resolved, r.config.LinkTTL); err != nil {
		r.logger.Debug("short link cache store failed", zap.Error(err))
	}
}

func shortLinkCacheKey(url string) string {
	return "shortlink:" + url
}

// inBounds validates a pair against the service-area bounding box
func (r *CoordinateResolver) inBounds(c domain.Coordinates) bool {
	return c.Lat >= r.config.MinLat && c.Lat <= r.config.MaxLat &&
		c.Lng >= r.config.MinLng && c.Lng <= r.config.MaxLng
}

// precisionTier estimates coordinate precision from decimal digit count
func precisionTier(latRaw, lngRaw string) string {
	decimals := func(s string) int {
		if idx := strings.IndexByte(s, '.'); idx >= 0 {
			return len(s) - idx - 1
		}
		return 0
	}
	d := decimals(latRaw)
	if lngD := decimals(lngRaw); lngD < d {
		d = lngD
	}

	switch {
	case d >= 6:
		return "very_high" // ~1 meter
	case d >= 4:
		return "high" // ~10 meters
	case d >= 3:
		return "medium" // ~100 meters
	default:
		return "low"
	}
}

// areaFor buckets coordinates into a sub-region label, diagnostics only
func (r *CoordinateResolver) areaFor(c domain.Coordinates) string {
	switch {
	case c.Lat >= 21.13 && c.Lat <= 21.20 && c.Lng >= -86.77 && c.Lng <= -86.74:
		return "zona_hotelera"
	case c.Lat >= 21.15 && c.Lat <= 21.17 && c.Lng >= -86.86 && c.Lng <= -86.84:
		return "centro"
	case c.Lat >= 21.18 && c.Lat <= 21.25 && c.Lng >= -86.89 && c.Lng <= -86.85:
		return "norte"
	case c.Lat >= 21.12 && c.Lat <= 21.15 && c.Lng >= -86.86 && c.Lng <= -86.82:
		return "sur"
	default:
		return "area_metropolitana"
	}
}

func parsePair(latRaw, lngRaw string) (domain.Coordinates, bool) {
	lat, errLat := strconv.ParseFloat(latRaw, 64)
	lng, errLng := strconv.ParseFloat(lngRaw, 64)
	if errLat != nil || errLng != nil {
		return domain.Coordinates{}, false
	}
	return domain.Coordinates{Lat: lat, Lng: lng}, true
}

const earthRadiusMeters = 6371000

// HaversineMeters computes the great-circle distance between two coordinate
// pairs in meters.
func HaversineMeters(a, b domain.Coordinates) float64 {
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLng := (b.Lng - a.Lng) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	return earthRadiusMeters * 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}
