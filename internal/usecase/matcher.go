package usecase

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/cocopet/backend/internal/domain"
)

// Quantity patterns. The explicit label always wins over unit-qualified
// numbers; piece and weight units both count when no label is present.
var (
	quantityLabelRegex = regexp.MustCompile(`(?i)cantidad[:\s]*([0-9]+)`)
	quantityUnitRegex  = regexp.MustCompile(`(?i)([0-9]+)\s*(?:pzas?|piezas?|unidades?|kg|g|ml|lts?|litros?)\b`)
	quantityPieceRegex = regexp.MustCompile(`(?i)([0-9]+)\s*(?:pzas?|piezas?|unidades?)\b`)

	brandWeightValueRegex = regexp.MustCompile(`([0-9]+)`)
)

// MatcherConfig holds configuration for the catalog matcher
type MatcherConfig struct {
	// VectorThreshold accepts entries whose TF-IDF cosine similarity with
	// the whole message is at least this value. Default 0.70.
	VectorThreshold float64

	// FuzzyThreshold accepts entries whose partial-ratio similarity with the
	// display name is at least this value. Default 0.80.
	FuzzyThreshold float64

	// BrandAttributeConfidence is the fixed confidence assigned to brand plus
	// matching size/weight co-occurrences. Default 0.90.
	BrandAttributeConfidence float64

	// SuggestionThreshold is the lower bar used only in suggestion mode.
	// Default 0.60.
	SuggestionThreshold float64

	// MaxSuggestions caps the corrections proposed for human review. Default 3.
	MaxSuggestions int

	// MaxQuantity caps extracted quantities to reject typo overflows. Default 1000.
	MaxQuantity int

	// QuantityWindow is the number of characters around a matched product
	// searched for a local quantity. Default 50.
	QuantityWindow int
}

func (c MatcherConfig) withDefaults() MatcherConfig {
	if c.VectorThreshold <= 0 {
		c.VectorThreshold = 0.70
	}
	if c.FuzzyThreshold <= 0 {
		c.FuzzyThreshold = 0.80
	}
	if c.BrandAttributeConfidence <= 0 {
		c.BrandAttributeConfidence = 0.90
	}
	if c.SuggestionThreshold <= 0 {
		c.SuggestionThreshold = 0.60
	}
	if c.MaxSuggestions <= 0 {
		c.MaxSuggestions = 3
	}
	if c.MaxQuantity <= 0 {
		c.MaxQuantity = 1000
	}
	if c.QuantityWindow <= 0 {
		c.QuantityWindow = 50
	}
	return c
}

// CatalogMatcher identifies which catalog products a message references and
// their requested quantities, using a layered strategy over the index:
// vector similarity, fuzzy name similarity and brand+attribute co-occurrence.
type CatalogMatcher struct {
	index  *CatalogIndex
	config MatcherConfig
	logger *zap.Logger
}

// NewCatalogMatcher creates a matcher over the given index
func NewCatalogMatcher(index *CatalogIndex, config MatcherConfig, logger *zap.Logger) *CatalogMatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CatalogMatcher{
		index:  index,
		config: config.withDefaults(),
		logger: logger,
	}
}

// MatchProducts returns the catalog products referenced in the message with
// extracted quantities. An empty result is a valid outcome, not an error.
// Results are ordered by descending confidence (ties by product ID) so the
// output is deterministic for a fixed message and catalog.
func (m *CatalogMatcher) MatchProducts(message string) []domain.ExtractedProduct {
	snap := m.index.current()
	if len(snap.entries) == 0 {
		return nil
	}

	lowerMessage := strings.ToLower(message)
	candidates := m.collectCandidates(snap, lowerMessage)
	best := dedupeCandidates(candidates)

	products := make([]domain.ExtractedProduct, 0, len(best))
	for _, cand := range best {
		quantity, capped := m.extractQuantity(lowerMessage, strings.ToLower(cand.MatchedText))
		products = append(products, domain.ExtractedProduct{
			ProductID:      cand.Entry.ID,
			Name:           cand.Entry.Name,
			Brand:          cand.Entry.Brand,
			Category:       cand.Entry.Category,
			WeightSize:     cand.Entry.WeightSize,
			Quantity:       quantity,
			QuantityCapped: capped,
			Price:          cand.Entry.Price,
			Confidence:     cand.Confidence,
			MatchedText:    cand.MatchedText,
		})
	}

	sort.Slice(products, func(i, j int) bool {
		if products[i].Confidence != products[j].Confidence {
			return products[i].Confidence > products[j].Confidence
		}
		return products[i].ProductID < products[j].ProductID
	})

	m.logger.Debug("products matched",
		zap.Int("candidates", len(candidates)),
		zap.Int("products", len(products)))
	return products
}

// collectCandidates runs the three matching strategies over one snapshot
func (m *CatalogMatcher) collectCandidates(snap *catalogSnapshot, lowerMessage string) []domain.MatchCandidate {
	var candidates []domain.MatchCandidate

	messageVector := snap.vec.vectorize(lowerMessage)
	for _, entry := range snap.entries {
		if sim := cosineSimilarity(messageVector, entry.Vector); sim >= m.config.VectorThreshold {
			candidates = append(candidates, domain.MatchCandidate{
				Entry:       entry,
				Confidence:  sim,
				MatchedText: entry.SearchText,
				Method:      domain.MatchMethodVector,
			})
		}
	}

	for _, entry := range snap.entries {
		lowerName := strings.ToLower(entry.Name)
		if ratio := partialRatio(lowerName, lowerMessage); ratio >= m.config.FuzzyThreshold {
			candidates = append(candidates, domain.MatchCandidate{
				Entry:       entry,
				Confidence:  ratio,
				MatchedText: entry.Name,
				Method:      domain.MatchMethodFuzzy,
			})
		}

		if cand, ok := m.matchBrandAttribute(entry, lowerMessage); ok {
			candidates = append(candidates, cand)
		}
	}

	return candidates
}

// matchBrandAttribute accepts an entry when its brand appears in the message
// and a nearby size/weight token numerically matches the recorded size.
func (m *CatalogMatcher) matchBrandAttribute(entry *domain.CatalogEntry, lowerMessage string) (domain.MatchCandidate, bool) {
	if entry.Brand == "" || entry.WeightSize == "" {
		return domain.MatchCandidate{}, false
	}
	brand := strings.ToLower(entry.Brand)
	pos := strings.Index(lowerMessage, brand)
	if pos < 0 {
		return domain.MatchCandidate{}, false
	}

	recorded := brandWeightValueRegex.FindString(entry.WeightSize)
	if recorded == "" {
		return domain.MatchCandidate{}, false
	}

	// Look for a weight token in the text following the brand mention
	tail := lowerMessage[pos:]
	if len(tail) > 80 {
		tail = tail[:80]
	}
	weight := quantityUnitRegex.FindStringSubmatch(tail)
	if weight == nil || weight[1] != recorded {
		return domain.MatchCandidate{}, false
	}

	return domain.MatchCandidate{
		Entry:       entry,
		Confidence:  m.config.BrandAttributeConfidence,
		MatchedText: strings.TrimSpace(weight[0]) + " " + brand,
		Method:      domain.MatchMethodBrandAttribute,
	}, true
}

// dedupeCandidates keeps the highest-confidence candidate per catalog entry
func dedupeCandidates(candidates []domain.MatchCandidate) []domain.MatchCandidate {
	best := make(map[int]domain.MatchCandidate)
	for _, cand := range candidates {
		if existing, ok := best[cand.Entry.ID]; !ok || cand.Confidence > existing.Confidence {
			best[cand.Entry.ID] = cand
		}
	}

	out := make([]domain.MatchCandidate, 0, len(best))
	for _, cand := range best {
		out = append(out, cand)
	}
	return out
}

// extractQuantity finds the requested quantity for one matched product.
// It searches a bounded window around the matched text (with the matched
// text itself removed, so a size like "20kg" in the product name is never
// read as a quantity), then falls back to message-wide patterns, then to 1.
func (m *CatalogMatcher) extractQuantity(lowerMessage, lowerMatched string) (int, bool) {
	window := m.config.QuantityWindow

	if pos := strings.Index(lowerMessage, lowerMatched); pos >= 0 {
		start := pos - window
		if start < 0 {
			start = 0
		}
		end := pos + len(lowerMatched) + window
		if end > len(lowerMessage) {
			end = len(lowerMessage)
		}
		context := lowerMessage[start:pos] + " " + lowerMessage[pos+len(lowerMatched):end]

		if q, ok := firstQuantity(context, quantityLabelRegex, quantityUnitRegex); ok {
			return m.capQuantity(q)
		}
	}

	// No local quantity: try the whole message, piece units only
	if q, ok := firstQuantity(lowerMessage, quantityLabelRegex, quantityPieceRegex); ok {
		return m.capQuantity(q)
	}

	return 1, false
}

func firstQuantity(text string, patterns ...*regexp.Regexp) (int, bool) {
	for _, re := range patterns {
		if match := re.FindStringSubmatch(text); match != nil {
			if q, err := strconv.Atoi(match[1]); err == nil {
				return q, true
			}
		}
	}
	return 0, false
}

// capQuantity clamps overflows to the configured maximum and reports
// whether clamping happened, so validation can flag the order.
func (m *CatalogMatcher) capQuantity(q int) (int, bool) {
	if q > m.config.MaxQuantity {
		return m.config.MaxQuantity, true
	}
	return q, false
}

// Suggest runs the lower-precision suggestion pass used when no products
// matched: sliding windows of one to three words are fuzzy-ranked against
// catalog display names and the best few survivors are proposed for human
// review. This path never creates ExtractedProduct entries.
func (m *CatalogMatcher) Suggest(message string) []domain.SuggestedCorrection {
	snap := m.index.current()
	if len(snap.entries) == 0 {
		return nil
	}

	words := strings.Fields(strings.ToLower(message))
	var phrases []string
	for i := range words {
		for j := i + 1; j <= len(words) && j <= i+3; j++ {
			phrase := strings.Join(words[i:j], " ")
			if len(phrase) > 3 {
				phrases = append(phrases, phrase)
			}
		}
	}

	best := make(map[int]domain.SuggestedCorrection)
	for _, phrase := range phrases {
		for _, entry := range snap.entries {
			score := partialRatio(phrase, strings.ToLower(entry.Name))
			if score <= m.config.SuggestionThreshold {
				continue
			}
			if existing, ok := best[entry.ID]; !ok || score > existing.SimilarityScore {
				best[entry.ID] = domain.SuggestedCorrection{
					OriginalText:     phrase,
					SuggestedProduct: entry.Name,
					ProductID:        entry.ID,
					Brand:            entry.Brand,
					Category:         entry.Category,
					SimilarityScore:  score,
				}
			}
		}
	}

	suggestions := make([]domain.SuggestedCorrection, 0, len(best))
	for _, s := range best {
		suggestions = append(suggestions, s)
	}
	sort.Slice(suggestions, func(i, j int) bool {
		if suggestions[i].SimilarityScore != suggestions[j].SimilarityScore {
			return suggestions[i].SimilarityScore > suggestions[j].SimilarityScore
		}
		return suggestions[i].ProductID < suggestions[j].ProductID
	})

	if len(suggestions) > m.config.MaxSuggestions {
		suggestions = suggestions[:m.config.MaxSuggestions]
	}
	return suggestions
}
