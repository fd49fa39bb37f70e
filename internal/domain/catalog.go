package domain

// Product is the raw active-product record pulled from the catalog source
type Product struct {
	ID         int     `json:"id"`
	Name       string  `json:"name"`
	Brand      string  `json:"brand"`
	Category   string  `json:"category"`
	WeightSize string  `json:"weight_size,omitempty"`
	Price      float64 `json:"price"`
}

// CatalogEntry is an indexed product annotated with derived search data.
// Entries are immutable once built; the whole index is replaced on refresh.
type CatalogEntry struct {
	ID         int
	Name       string
	Brand      string
	Category   string
	WeightSize string
	Price      float64

	// SearchText is the lowercase concatenation of name, brand, category
	// and weight/size used for fuzzy and vector matching.
	SearchText string

	// Vector is the TF-IDF representation of SearchText, L2-normalized
	// against the vocabulary of the index snapshot it belongs to.
	Vector []float64
}

// MatchMethod tags which matching strategy produced a candidate
type MatchMethod string

const (
	MatchMethodVector         MatchMethod = "vector"
	MatchMethodFuzzy          MatchMethod = "fuzzy"
	MatchMethodBrandAttribute MatchMethod = "brand_attribute"
)

// MatchCandidate is a single catalog hit before deduplication
type MatchCandidate struct {
	Entry       *CatalogEntry
	Confidence  float64
	MatchedText string
	Method      MatchMethod
}
