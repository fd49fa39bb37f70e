package usecase

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/cocopet/backend/internal/domain"
)

// Confidence weights per extracted section. The precision bonus is added on
// top when the coordinate decimal precision is high or better.
const (
	weightCoordinates = 0.25
	weightProducts    = 0.35
	weightCustomer    = 0.15
	weightDelivery    = 0.15
	weightPayment     = 0.10

	precisionBonus = 0.02

	errorPenaltyFactor   = 0.5
	warningPenaltyFactor = 0.9
)

// ParserConfig bundles the tunables of the full parsing pipeline
type ParserConfig struct {
	Matcher MatcherConfig
	Geo     GeoConfig

	// Totals outside this range are flagged as implausible. Defaults 10
	// and 50000.
	MinPlausibleTotal float64
	MaxPlausibleTotal float64

	// Orders scoring below this threshold get an advisory warning after
	// scoring. Default 0.5.
	LowConfidenceThreshold float64
}

func (c ParserConfig) withDefaults() ParserConfig {
	c.Matcher = c.Matcher.withDefaults()
	c.Geo = c.Geo.withDefaults()
	if c.MinPlausibleTotal == 0 {
		c.MinPlausibleTotal = 10
	}
	if c.MaxPlausibleTotal == 0 {
		c.MaxPlausibleTotal = 50000
	}
	if c.LowConfidenceThreshold == 0 {
		c.LowConfidenceThreshold = 0.5
	}
	return c
}

// Parser turns one free-form chat message into a structured, scored order.
// Parse never panics outward: any internal failure degrades to an order with
// an error entry.
type Parser struct {
	index    *CatalogIndex
	matcher  *CatalogMatcher
	fields   *FieldExtractor
	coords   *CoordinateResolver
	geocoder domain.Geocoder

	config ParserConfig
	logger *zap.Logger
	now    func() time.Time
}

// NewParser wires the pipeline. links, geocoder and cache may be nil; the
// corresponding enrichment steps are then skipped.
func NewParser(index *CatalogIndex, links domain.LinkResolver, geocoder domain.Geocoder, cache domain.CacheRepository, config ParserConfig, logger *zap.Logger) *Parser {
	if logger == nil {
		logger = zap.NewNop()
	}
	config = config.withDefaults()
	return &Parser{
		index:    index,
		matcher:  NewCatalogMatcher(index, config.Matcher, logger),
		fields:   NewFieldExtractor(logger),
		coords:   NewCoordinateResolver(config.Geo, links, cache, logger),
		geocoder: geocoder,
		config:   config,
		logger:   logger,
		now:      time.Now,
	}
}

// SetClock overrides the timestamp source, for tests
func (p *Parser) SetClock(now func() time.Time) {
	p.now = now
}

// Parse converts a raw message into a ParsedOrder and its validation report.
// It always returns a fully-formed order, whatever the input.
func (p *Parser) Parse(ctx context.Context, message string) (order domain.ParsedOrder, report domain.ValidationReport) {
	defer func() {
		if rec := recover(); rec != nil {
			p.logger.Error("parse panicked", zap.Any("panic", rec))
			order = domain.ParsedOrder{
				Errors:   []string{fmt.Sprintf("error interno al procesar el mensaje: %v", rec)},
				Warnings: []string{},
				Metadata: p.metadata(message, ""),
			}
			report = domain.ValidationReport{
				IsValid:  false,
				Errors:   order.Errors,
				Warnings: []string{},
			}
		}
	}()

	normalized := NormalizeMessage(message)

	order = domain.ParsedOrder{
		Products: []domain.ExtractedProduct{},
		Errors:   []string{},
		Warnings: []string{},
		Metadata: p.metadata(message, normalized),
	}

	location := p.coords.Resolve(ctx, normalized)
	if location != nil {
		coords := location.Coordinates
		order.Coordinates = &coords
	}

	order.Customer = p.fields.ExtractCustomer(normalized)
	order.Products = p.matcher.MatchProducts(normalized)
	order.Delivery = p.fields.ExtractDelivery(normalized)
	order.Payment = p.fields.ExtractPayment(normalized)

	if location != nil {
		order.Delivery.LocationSource = location.Source
		order.Delivery.Precision = location.Precision
		order.Delivery.Area = location.Area
		p.enrichAddress(ctx, &order, location)
	}

	report = p.validate(&order, normalized)
	order.Errors = report.Errors
	order.Warnings = report.Warnings

	order.Confidence = p.score(&order, location, report)

	if order.Confidence < p.config.LowConfidenceThreshold {
		warning := fmt.Sprintf("confianza baja (%.2f): revisar el pedido manualmente", order.Confidence)
		order.Warnings = append(order.Warnings, warning)
		report.Warnings = order.Warnings
	}

	p.logger.Debug("message parsed",
		zap.Int("products", len(order.Products)),
		zap.Bool("has_coordinates", order.Coordinates != nil),
		zap.Float64("confidence", order.Confidence),
		zap.Bool("valid", report.IsValid))

	return order, report
}

// enrichAddress fills the delivery address from reverse geocoding when the
// message itself carried none. Best effort; failures are logged and ignored.
func (p *Parser) enrichAddress(ctx context.Context, order *domain.ParsedOrder, location *Location) {
	if p.geocoder == nil || order.Delivery.Address != "" {
		return
	}
	address, err := p.geocoder.ReverseGeocode(ctx, location.Coordinates.Lat, location.Coordinates.Lng)
	if err != nil {
		p.logger.Debug("reverse geocoding failed", zap.Error(err))
		return
	}
	order.Delivery.Address = address
}

// validate assembles the report. Missing products is the only hard error;
// everything else degrades to a warning.
func (p *Parser) validate(order *domain.ParsedOrder, normalized string) domain.ValidationReport {
	report := domain.ValidationReport{
		Errors:   []string{},
		Warnings: []string{},
	}

	if len(order.Products) == 0 {
		report.Errors = append(report.Errors, "no se encontraron productos en el mensaje")
		report.SuggestedCorrections = p.matcher.Suggest(normalized)
	}

	if order.Coordinates == nil {
		report.Warnings = append(report.Warnings, "no se encontraron coordenadas de entrega")
	}

	for _, product := range order.Products {
		if product.Quantity <= 0 || product.QuantityCapped {
			report.Warnings = append(report.Warnings,
				fmt.Sprintf("cantidad sospechosa para %q: %d", product.Name, product.Quantity))
		}
	}

	if order.Payment.Total != nil {
		total := *order.Payment.Total
		if total < p.config.MinPlausibleTotal || total > p.config.MaxPlausibleTotal {
			report.Warnings = append(report.Warnings,
				fmt.Sprintf("total fuera de rango esperado: %.2f", total))
		}
	}

	if order.Customer.Name == "" && order.Customer.Phone == "" {
		report.Warnings = append(report.Warnings, "no se pudo identificar al cliente")
	}

	report.IsValid = len(report.Errors) == 0
	return report
}

// score computes the final confidence: weighted section coverage, then a
// halving for any error and a 10% cut per distinct warning category, clamped
// to [0, 1].
func (p *Parser) score(order *domain.ParsedOrder, location *Location, report domain.ValidationReport) float64 {
	score := 0.0

	if order.Coordinates != nil {
		score += weightCoordinates
		if location != nil && (location.Precision == "high" || location.Precision == "very_high") {
			score += precisionBonus
		}
	}
	if len(order.Products) > 0 {
		score += weightProducts
	}
	if order.Customer.Name != "" || order.Customer.Phone != "" || order.Customer.ClientNumber != "" {
		score += weightCustomer
	}
	if order.Delivery.Address != "" || order.Delivery.References != "" || order.Delivery.DeliveryTime != "" || order.Delivery.Instructions != "" {
		score += weightDelivery
	}
	if order.Payment.Total != nil || order.Payment.Method != "" {
		score += weightPayment
	}

	if len(report.Errors) > 0 {
		score *= errorPenaltyFactor
	}
	for range warningCategories(order, p.config) {
		score *= warningPenaltyFactor
	}

	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}

// warningCategories counts the distinct kinds of warning present so that
// many warnings of the same kind cost no more than one.
func warningCategories(order *domain.ParsedOrder, config ParserConfig) []string {
	var categories []string

	if order.Coordinates == nil {
		categories = append(categories, "missing_coordinates")
	}

	for _, product := range order.Products {
		if product.Quantity <= 0 || product.QuantityCapped {
			categories = append(categories, "invalid_quantity")
			break
		}
	}

	if order.Payment.Total != nil {
		total := *order.Payment.Total
		if total < config.MinPlausibleTotal || total > config.MaxPlausibleTotal {
			categories = append(categories, "implausible_payment")
		}
	}

	if order.Customer.Name == "" && order.Customer.Phone == "" {
		categories = append(categories, "weak_identification")
	}

	return categories
}

func (p *Parser) metadata(original, normalized string) domain.ParseMetadata {
	return domain.ParseMetadata{
		OriginalMessage:   original,
		NormalizedMessage: normalized,
		MessageLength:     len([]rune(original)),
		ParsedAt:          p.now(),
	}
}
