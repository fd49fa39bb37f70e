package usecase

import (
	"context"
	"math"
	"reflect"
	"strings"
	"testing"
	"time"
)

const completeOrderMessage = `pedido nupec adulto 20kg cantidad: 2
cliente: 1044
nombre: Maria Lopez
tel: 998 123 4567
referencia: casa azul porton negro
entrega: 14:30
total: $2500 pago: efectivo
https://maps.google.com/?q=21.1619,-86.8515`

func newTestParser(t *testing.T) *Parser {
	t.Helper()
	idx := NewCatalogIndex(nil)
	idx.Refresh(testProducts())
	return NewParser(idx, nil, nil, nil, ParserConfig{}, nil)
}

func TestParseCompleteOrder(t *testing.T) {
	p := newTestParser(t)
	order, report := p.Parse(context.Background(), completeOrderMessage)

	if !report.IsValid {
		t.Fatalf("IsValid = false, errors: %v", report.Errors)
	}
	if len(report.Warnings) != 0 {
		t.Errorf("Warnings = %v, want none", report.Warnings)
	}

	if order.Coordinates == nil {
		t.Fatal("Coordinates is nil")
	}
	if order.Coordinates.Lat != 21.1619 || order.Coordinates.Lng != -86.8515 {
		t.Errorf("Coordinates = %+v, want 21.1619,-86.8515", order.Coordinates)
	}
	if order.Delivery.LocationSource != LocationSourceMapLink {
		t.Errorf("LocationSource = %q, want %q", order.Delivery.LocationSource, LocationSourceMapLink)
	}

	if len(order.Products) != 1 {
		t.Fatalf("Products = %d, want 1", len(order.Products))
	}
	if order.Products[0].ProductID != 1 {
		t.Errorf("ProductID = %d, want 1", order.Products[0].ProductID)
	}
	if order.Products[0].Quantity != 2 {
		t.Errorf("Quantity = %d, want 2", order.Products[0].Quantity)
	}

	if order.Customer.Name != "Maria Lopez" {
		t.Errorf("Name = %q, want Maria Lopez", order.Customer.Name)
	}
	if order.Customer.Phone != "9981234567" {
		t.Errorf("Phone = %q, want 9981234567", order.Customer.Phone)
	}
	if order.Customer.ClientNumber != "1044" {
		t.Errorf("ClientNumber = %q, want 1044", order.Customer.ClientNumber)
	}

	if order.Delivery.References != "casa azul porton negro" {
		t.Errorf("References = %q, want casa azul porton negro", order.Delivery.References)
	}
	if order.Delivery.DeliveryTime != "14:30" {
		t.Errorf("DeliveryTime = %q, want 14:30", order.Delivery.DeliveryTime)
	}

	if order.Payment.Total == nil || *order.Payment.Total != 2500 {
		t.Errorf("Total = %v, want 2500", order.Payment.Total)
	}
	if order.Payment.Method != "efectivo" {
		t.Errorf("Method = %q, want efectivo", order.Payment.Method)
	}

	// All sections present and no penalties: the weighted sum saturates
	if math.Abs(order.Confidence-1) > 1e-9 {
		t.Errorf("Confidence = %v, want 1", order.Confidence)
	}
	if len(report.SuggestedCorrections) != 0 {
		t.Errorf("SuggestedCorrections = %v, want none when products matched", report.SuggestedCorrections)
	}
}

func TestParseUnrecognizableMessage(t *testing.T) {
	p := newTestParser(t)

	for _, message := range []string{"", "asdkjhasd kjqwhekjh zzz", "????", strings.Repeat("x", 5000)} {
		order, report := p.Parse(context.Background(), message)

		if report.IsValid {
			t.Errorf("IsValid = true for %q, want false", message)
		}
		if len(order.Errors) == 0 {
			t.Errorf("Errors empty for %q, want missing products error", message)
		}
		if order.Confidence != 0 {
			t.Errorf("Confidence = %v for %q, want 0", order.Confidence, message)
		}
		if len(order.Products) != 0 {
			t.Errorf("Products = %v for %q, want none", order.Products, message)
		}
		if order.Warnings == nil {
			t.Errorf("Warnings nil for %q, want initialized slice", message)
		}
	}
}

func TestParseWarningsDoNotInvalidate(t *testing.T) {
	p := newTestParser(t)
	order, report := p.Parse(context.Background(), "mandame nupec adulto")

	if !report.IsValid {
		t.Fatalf("IsValid = false, errors: %v", report.Errors)
	}
	if len(report.Warnings) == 0 {
		t.Fatal("Warnings empty, want missing coordinates and customer warnings")
	}

	// products only, two warning categories, then the low-confidence notice
	want := 0.35 * 0.9 * 0.9
	if math.Abs(order.Confidence-want) > 1e-9 {
		t.Errorf("Confidence = %v, want %v", order.Confidence, want)
	}

	found := false
	for _, w := range order.Warnings {
		if strings.Contains(w, "confianza baja") {
			found = true
		}
	}
	if !found {
		t.Errorf("Warnings = %v, want a low confidence notice", order.Warnings)
	}
}

func TestParseInstructionsCountAsDelivery(t *testing.T) {
	p := newTestParser(t)

	bare, _ := p.Parse(context.Background(), "mandame nupec adulto")
	noted, _ := p.Parse(context.Background(), "mandame nupec adulto\nnota: tocar el timbre dos veces")

	if noted.Delivery.Instructions != "tocar el timbre dos veces" {
		t.Fatalf("Instructions = %q, want tocar el timbre dos veces", noted.Delivery.Instructions)
	}
	if noted.Confidence <= bare.Confidence {
		t.Errorf("Confidence = %v, want above %v when instructions are present", noted.Confidence, bare.Confidence)
	}

	// products and delivery sections, two warning categories
	want := (0.35 + 0.15) * 0.9 * 0.9
	if math.Abs(noted.Confidence-want) > 1e-9 {
		t.Errorf("Confidence = %v, want %v", noted.Confidence, want)
	}
}

func TestParseMaxQuantityOrderNotSuspicious(t *testing.T) {
	p := newTestParser(t)
	order, report := p.Parse(context.Background(), "nupec adulto 20kg cantidad: 1000")

	if len(order.Products) != 1 {
		t.Fatalf("Products = %d, want 1", len(order.Products))
	}
	if order.Products[0].Quantity != 1000 {
		t.Errorf("Quantity = %d, want 1000", order.Products[0].Quantity)
	}
	if order.Products[0].QuantityCapped {
		t.Error("QuantityCapped = true, want false for an in-range quantity")
	}
	for _, w := range report.Warnings {
		if strings.Contains(w, "cantidad sospechosa") {
			t.Errorf("Warnings = %v, want no quantity warning for an uncapped order", report.Warnings)
		}
	}
}

func TestParseConfidenceOrdering(t *testing.T) {
	p := newTestParser(t)
	ctx := context.Background()

	bare, _ := p.Parse(ctx, "mandame nupec adulto")
	located, _ := p.Parse(ctx, "mandame nupec adulto https://maps.google.com/?q=21.1619,-86.8515")
	identified, _ := p.Parse(ctx, "mandame nupec adulto\nnombre: Maria Lopez\ntel: 998 123 4567\nhttps://maps.google.com/?q=21.1619,-86.8515")

	if located.Confidence <= bare.Confidence {
		t.Errorf("located %v <= bare %v, adding coordinates must not lower confidence", located.Confidence, bare.Confidence)
	}
	if identified.Confidence <= located.Confidence {
		t.Errorf("identified %v <= located %v, adding customer info must not lower confidence", identified.Confidence, located.Confidence)
	}
}

func TestParseConfidenceBounds(t *testing.T) {
	p := newTestParser(t)

	messages := []string{
		completeOrderMessage,
		"mandame nupec adulto",
		"hola",
		"",
		"total: $999999999 nupec adulto cantidad: 0",
	}
	for _, message := range messages {
		order, _ := p.Parse(context.Background(), message)
		if order.Confidence < 0 || order.Confidence > 1 {
			t.Errorf("Confidence = %v for %q, want within [0,1]", order.Confidence, message)
		}
	}
}

func TestParseSuggestionsOnNoMatch(t *testing.T) {
	p := newTestParser(t)
	order, report := p.Parse(context.Background(), "quiero nupke audlto para mi perro")

	if len(order.Products) != 0 {
		// Matching is intentionally tolerant; if it ever matches this the
		// suggestion path is simply not exercised here.
		t.Skipf("products = %v, message matched directly", order.Products)
	}
	if report.IsValid {
		t.Error("IsValid = true, want false without products")
	}
	if len(report.SuggestedCorrections) == 0 {
		t.Fatal("SuggestedCorrections empty, want a close catalog name")
	}
	if report.SuggestedCorrections[0].ProductID != 1 {
		t.Errorf("ProductID = %d, want 1", report.SuggestedCorrections[0].ProductID)
	}
}

func TestParseIsIdempotent(t *testing.T) {
	p := newTestParser(t)
	fixed := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	p.SetClock(func() time.Time { return fixed })

	first, firstReport := p.Parse(context.Background(), completeOrderMessage)
	second, secondReport := p.Parse(context.Background(), completeOrderMessage)

	if !reflect.DeepEqual(first, second) {
		t.Errorf("orders differ between runs:\n%+v\n%+v", first, second)
	}
	if !reflect.DeepEqual(firstReport, secondReport) {
		t.Errorf("reports differ between runs:\n%+v\n%+v", firstReport, secondReport)
	}
	if !first.Metadata.ParsedAt.Equal(fixed) {
		t.Errorf("ParsedAt = %v, want %v", first.Metadata.ParsedAt, fixed)
	}
}

func TestParseMetadata(t *testing.T) {
	p := newTestParser(t)
	order, _ := p.Parse(context.Background(), "  nupec   adulto  ")

	if order.Metadata.OriginalMessage != "  nupec   adulto  " {
		t.Errorf("OriginalMessage = %q, want the raw input", order.Metadata.OriginalMessage)
	}
	if order.Metadata.NormalizedMessage != "nupec adulto" {
		t.Errorf("NormalizedMessage = %q, want %q", order.Metadata.NormalizedMessage, "nupec adulto")
	}
	if order.Metadata.MessageLength != len([]rune("  nupec   adulto  ")) {
		t.Errorf("MessageLength = %d, want rune count of input", order.Metadata.MessageLength)
	}
}

func TestParseEmptyCatalog(t *testing.T) {
	p := NewParser(NewCatalogIndex(nil), nil, nil, nil, ParserConfig{}, nil)
	order, report := p.Parse(context.Background(), completeOrderMessage)

	if report.IsValid {
		t.Error("IsValid = true, want false with empty catalog")
	}
	if len(order.Products) != 0 {
		t.Errorf("Products = %v, want none", order.Products)
	}
	// The rest of the pipeline still runs
	if order.Coordinates == nil {
		t.Error("Coordinates nil, want coordinates extracted despite empty catalog")
	}
	if order.Customer.Name != "Maria Lopez" {
		t.Errorf("Name = %q, want Maria Lopez", order.Customer.Name)
	}
}
