package usecase

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/cocopet/backend/internal/domain"
)

const (
	minPhoneDigits = 10
	minNameLength  = 3
)

// Recognizer is one named candidate extractor inside a cascade: a pure
// function from text to an optional value. Cascades run recognizers in
// priority order and stop at the first match.
type Recognizer struct {
	Name    string
	Extract func(text string) (string, bool)
}

// regexRecognizer builds a Recognizer that returns the regex capture group
func regexRecognizer(name string, re *regexp.Regexp) Recognizer {
	return Recognizer{
		Name: name,
		Extract: func(text string) (string, bool) {
			match := re.FindStringSubmatch(text)
			if match == nil {
				return "", false
			}
			value := strings.TrimSpace(match[1])
			return value, value != ""
		},
	}
}

// runCascade tries recognizers in order and returns the first value found
func runCascade(text string, cascade []Recognizer) (string, bool) {
	for _, r := range cascade {
		if value, ok := r.Extract(text); ok {
			return value, true
		}
	}
	return "", false
}

// Field cascades, in priority order. Free-text captures are bounded by the
// next recognized field label or end of line.
var (
	clientNumberCascade = []Recognizer{
		regexRecognizer("cliente_label", regexp.MustCompile(`(?i)clientes?[:\s#]*([0-9]+)`)),
		regexRecognizer("hash_number", regexp.MustCompile(`#([0-9]+)`)),
		regexRecognizer("numero_label", regexp.MustCompile(`(?i)n[uú]mero de cliente[:\s]*([0-9]+)`)),
	}

	phoneCascade = []Recognizer{
		regexRecognizer("telefono", regexp.MustCompile(`(?i)tel[eé]?f?o?n?o?[:\s]*([0-9][0-9\- \t()]{8,}[0-9])`)),
		regexRecognizer("celular", regexp.MustCompile(`(?i)celular[:\s]*([0-9][0-9\- \t()]{8,}[0-9])`)),
		regexRecognizer("whatsapp", regexp.MustCompile(`(?i)whatsapp[:\s]*([0-9][0-9\- \t()]{8,}[0-9])`)),
		regexRecognizer("contacto", regexp.MustCompile(`(?i)contacto[:\s]*([0-9][0-9\- \t()]{8,}[0-9])`)),
	}

	customerNameCascade = []Recognizer{
		regexRecognizer("nombre_label", regexp.MustCompile(`(?i)nombre[:\s]+([\p{L}][\p{L} ]*?)(?:\n|tel|cliente|direcci|ubicaci|$)`)),
		regexRecognizer("para_label", regexp.MustCompile(`(?i)para[:\s]+([\p{L}][\p{L} ]*?)(?:\n|tel|cliente|direcci|ubicaci|$)`)),
		regexRecognizer("cliente_name", regexp.MustCompile(`(?i)cliente[:\s]+([\p{L}][\p{L} ]*?)(?:\n|tel|n[uú]mero|direcci|ubicaci|$)`)),
	}

	referencesCascade = []Recognizer{
		regexRecognizer("referencia", regexp.MustCompile(`(?i)referencias?[:\s]+(.+?)(?:\n|precio|total|cantidad|$)`)),
		regexRecognizer("ref", regexp.MustCompile(`(?i)\bref[:\s]+(.+?)(?:\n|precio|total|cantidad|$)`)),
		regexRecognizer("direccion", regexp.MustCompile(`(?i)direcci[oó]n[:\s]+(.+?)(?:\n|precio|total|cantidad|$)`)),
		regexRecognizer("entre_calles", regexp.MustCompile(`(?i)\bentre[:\s]+([\p{L}].+?)(?:\n|precio|total|cantidad|$)`)),
		regexRecognizer("cerca_de", regexp.MustCompile(`(?i)cerca de[:\s]+(.+?)(?:\n|precio|total|cantidad|$)`)),
	}

	deliveryTimeCascade = []Recognizer{
		regexRecognizer("time_range", regexp.MustCompile(`(?i)entre\s+([0-9]{1,2}:[0-9]{2}\s*y\s*[0-9]{1,2}:[0-9]{2})`)),
		regexRecognizer("entrega_label", regexp.MustCompile(`(?i)entrega[:\s]*([0-9]{1,2}:[0-9]{2})`)),
		regexRecognizer("hora_label", regexp.MustCompile(`(?i)hora[:\s]*([0-9]{1,2}:[0-9]{2})`)),
		regexRecognizer("a_las", regexp.MustCompile(`(?i)a las[:\s]*([0-9]{1,2}:[0-9]{2})`)),
		regexRecognizer("time_suffix", regexp.MustCompile(`(?i)([0-9]{1,2}:[0-9]{2})\s*(?:hrs?|horas?|am|pm)`)),
	}

	instructionsCascade = []Recognizer{
		regexRecognizer("nota", regexp.MustCompile(`(?i)notas?[:\s]+(.+?)(?:\n|precio|total|$)`)),
		regexRecognizer("instrucciones", regexp.MustCompile(`(?i)instrucciones?[:\s]+(.+?)(?:\n|precio|total|$)`)),
		regexRecognizer("comentario", regexp.MustCompile(`(?i)comentarios?[:\s]+(.+?)(?:\n|precio|total|$)`)),
		regexRecognizer("observacion", regexp.MustCompile(`(?i)observaci[oó]n(?:es)?[:\s]+(.+?)(?:\n|precio|total|$)`)),
	}

	paymentMethodCascade = []Recognizer{
		regexRecognizer("pago_label", regexp.MustCompile(`(?i)(?:forma de pago|pago)[:\s]*(efectivo|tarjeta|transferencia|oxxo)`)),
		regexRecognizer("pagar_con", regexp.MustCompile(`(?i)pagar\s+(?:con\s+)?(efectivo|tarjeta|transferencia|oxxo)`)),
		regexRecognizer("bare_method", regexp.MustCompile(`(?i)\b(efectivo|tarjeta|transferencia|oxxo)\b`)),
	}

	moneyPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)(?:precio|total|costo)[:\s]*\$?\s*([0-9][0-9,]*(?:\.[0-9]{2})?)`),
		regexp.MustCompile(`\$\s*([0-9][0-9,]*(?:\.[0-9]{2})?)`),
		regexp.MustCompile(`(?i)([0-9][0-9,]*(?:\.[0-9]{2})?)\s*pesos`),
	}

	digitsOnlyRegex = regexp.MustCompile(`[^0-9]`)
	anyDigitRegex   = regexp.MustCompile(`[0-9]`)
)

// FieldExtractor extracts customer identity, payment and delivery metadata
// via ordered pattern cascades. Every method is pure: a cascade either yields
// one value or none, and none is never an error.
type FieldExtractor struct {
	logger *zap.Logger
}

// NewFieldExtractor creates a field extractor
func NewFieldExtractor(logger *zap.Logger) *FieldExtractor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FieldExtractor{logger: logger}
}

// ExtractCustomer recovers the client number, phone and display name
func (e *FieldExtractor) ExtractCustomer(text string) domain.CustomerInfo {
	var info domain.CustomerInfo

	if number, ok := runCascade(text, clientNumberCascade); ok {
		info.ClientNumber = number
	}

	if raw, ok := runCascade(text, phoneCascade); ok {
		phone := digitsOnlyRegex.ReplaceAllString(raw, "")
		if len(phone) >= minPhoneDigits {
			info.Phone = phone
		}
	}

	if name, ok := runCascade(text, customerNameCascade); ok {
		name = strings.TrimSpace(name)
		if len([]rune(name)) >= minNameLength && !anyDigitRegex.MatchString(name) {
			info.Name = name
		}
	}

	return info
}

// ExtractDelivery recovers reference/landmark text, a preferred delivery
// time or range, and special instructions.
func (e *FieldExtractor) ExtractDelivery(text string) domain.DeliveryInfo {
	var info domain.DeliveryInfo

	if references, ok := runCascade(text, referencesCascade); ok {
		info.References = references
	}
	if deliveryTime, ok := runCascade(text, deliveryTimeCascade); ok {
		info.DeliveryTime = deliveryTime
	}
	if instructions, ok := runCascade(text, instructionsCascade); ok {
		info.Instructions = instructions
	}

	return info
}

// ExtractPayment recovers the payment method and amounts. The highest
// money-like match becomes the total; the remaining distinct matches are
// kept as subtotal candidates in descending order.
func (e *FieldExtractor) ExtractPayment(text string) domain.PaymentInfo {
	var info domain.PaymentInfo

	if method, ok := runCascade(text, paymentMethodCascade); ok {
		info.Method = strings.ToLower(method)
	}

	amounts := extractAmounts(text)
	if len(amounts) > 0 {
		total := amounts[0]
		info.Total = &total
		if len(amounts) > 1 {
			info.Subtotals = amounts[1:]
		}
	}

	return info
}

// extractAmounts collects all distinct money-like values, descending
func extractAmounts(text string) []float64 {
	seen := make(map[float64]bool)
	var amounts []float64

	for _, re := range moneyPatterns {
		for _, match := range re.FindAllStringSubmatch(text, -1) {
			raw := strings.ReplaceAll(match[1], ",", "")
			value, err := strconv.ParseFloat(raw, 64)
			if err != nil || value <= 0 || seen[value] {
				continue
			}
			seen[value] = true
			amounts = append(amounts, value)
		}
	}

	sort.Sort(sort.Reverse(sort.Float64Slice(amounts)))
	return amounts
}
