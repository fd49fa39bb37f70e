package domain

import "time"

// Coordinates is a latitude/longitude pair in decimal degrees
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// ExtractedProduct is a catalog product recognized in a message with its
// requested quantity. ProductID is zero when the mention never resolved to
// a catalog entry.
type ExtractedProduct struct {
	ProductID   int     `json:"productId,omitempty"`
	Name        string  `json:"name"`
	Brand       string  `json:"brand,omitempty"`
	Category    string  `json:"category,omitempty"`
	WeightSize  string  `json:"weightSize,omitempty"`
	Quantity    int     `json:"quantity"`

	// QuantityCapped marks a quantity clamped down to the configured
	// maximum; validation flags it as suspicious.
	QuantityCapped bool `json:"quantityCapped,omitempty"`

	Price       float64 `json:"price"`
	Confidence  float64 `json:"confidence"`
	MatchedText string  `json:"matchedText,omitempty"`
}

// CustomerInfo holds whatever customer identification could be recovered
type CustomerInfo struct {
	Name         string `json:"name,omitempty"`
	Phone        string `json:"phone,omitempty"`
	ClientNumber string `json:"clientNumber,omitempty"`
}

// DeliveryInfo holds delivery metadata beyond the coordinate pair itself
type DeliveryInfo struct {
	Address      string `json:"address,omitempty"`
	References   string `json:"references,omitempty"`
	DeliveryTime string `json:"deliveryTime,omitempty"`
	Instructions string `json:"instructions,omitempty"`

	// LocationSource, Precision and Area describe how the coordinates were
	// obtained. Diagnostics only; they do not feed order creation.
	LocationSource string `json:"locationSource,omitempty"`
	Precision      string `json:"precision,omitempty"`
	Area           string `json:"area,omitempty"`
}

// PaymentInfo holds extracted payment metadata. Total is nil when no
// money-like amount was found. Subtotals keeps the remaining money matches
// in descending order.
type PaymentInfo struct {
	Total     *float64  `json:"total,omitempty"`
	Subtotals []float64 `json:"subtotals,omitempty"`
	Method    string    `json:"method,omitempty"`
}

// ParseMetadata carries context about a single parse pass
type ParseMetadata struct {
	MessageID         string    `json:"messageId,omitempty"`
	OriginalMessage   string    `json:"originalMessage"`
	NormalizedMessage string    `json:"normalizedMessage"`
	MessageLength     int       `json:"messageLength"`
	ParsedAt          time.Time `json:"parsedAt"`
}

// ParsedOrder is the root result of parsing one message. It is always fully
// constructed: absent fields are empty or nil, never undefined, and a
// ParsedOrder is produced for any input string.
type ParsedOrder struct {
	Coordinates *Coordinates       `json:"coordinates"`
	Products    []ExtractedProduct `json:"products"`
	Customer    CustomerInfo       `json:"customer"`
	Delivery    DeliveryInfo       `json:"delivery"`
	Payment     PaymentInfo        `json:"payment"`
	Confidence  float64            `json:"confidence"`
	Errors      []string           `json:"errors"`
	Warnings    []string           `json:"warnings"`
	Metadata    ParseMetadata      `json:"metadata"`
}

// SuggestedCorrection proposes a catalog product for an unmatched fragment
type SuggestedCorrection struct {
	OriginalText     string  `json:"originalText"`
	SuggestedProduct string  `json:"suggestedProduct"`
	ProductID        int     `json:"productId"`
	Brand            string  `json:"brand,omitempty"`
	Category         string  `json:"category,omitempty"`
	SimilarityScore  float64 `json:"similarityScore"`
}

// ValidationReport is the validity assessment paired with a ParsedOrder.
// IsValid is true only when Errors is empty; warnings do not invalidate.
type ValidationReport struct {
	IsValid              bool                  `json:"isValid"`
	Errors               []string              `json:"errors"`
	Warnings             []string              `json:"warnings"`
	SuggestedCorrections []SuggestedCorrection `json:"suggestedCorrections"`
}
