package usecase

import (
	"strings"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/cocopet/backend/internal/domain"
)

// catalogSnapshot is one immutable generation of the index: the entries and
// the vector space fitted over them. Matching always operates on a single
// snapshot so a refresh can never expose a half-built index.
type catalogSnapshot struct {
	entries []*domain.CatalogEntry
	vec     *vectorizer
}

// CatalogIndex holds a queryable snapshot of active products for matching.
// Refresh builds a complete replacement snapshot and publishes it with an
// atomic pointer swap; concurrent readers keep the snapshot they loaded.
type CatalogIndex struct {
	snapshot atomic.Pointer[catalogSnapshot]
	logger   *zap.Logger
}

// NewCatalogIndex creates an empty index. Until the first refresh all
// matching yields no candidates.
func NewCatalogIndex(logger *zap.Logger) *CatalogIndex {
	if logger == nil {
		logger = zap.NewNop()
	}
	idx := &CatalogIndex{logger: logger}
	idx.snapshot.Store(&catalogSnapshot{vec: buildVectorizer(nil)})
	return idx
}

// Refresh replaces the index atomically with the given active products.
// An empty product list yields an empty index, not an error: later matching
// simply produces no candidates.
func (i *CatalogIndex) Refresh(products []domain.Product) {
	entries := make([]*domain.CatalogEntry, 0, len(products))
	searchTexts := make([]string, 0, len(products))

	for _, p := range products {
		searchText := buildSearchText(p)
		entries = append(entries, &domain.CatalogEntry{
			ID:         p.ID,
			Name:       p.Name,
			Brand:      p.Brand,
			Category:   p.Category,
			WeightSize: p.WeightSize,
			Price:      p.Price,
			SearchText: searchText,
		})
		searchTexts = append(searchTexts, searchText)
	}

	vec := buildVectorizer(searchTexts)
	for _, e := range entries {
		e.Vector = vec.vectorize(e.SearchText)
	}

	i.snapshot.Store(&catalogSnapshot{entries: entries, vec: vec})
	i.logger.Info("catalog index refreshed", zap.Int("products", len(entries)))
}

// Entries returns the entries of the current snapshot for read-only
// iteration. The returned slice must not be mutated.
func (i *CatalogIndex) Entries() []*domain.CatalogEntry {
	return i.snapshot.Load().entries
}

// Size returns the number of indexed products
func (i *CatalogIndex) Size() int {
	return len(i.snapshot.Load().entries)
}

// current returns the live snapshot for a single matching pass
func (i *CatalogIndex) current() *catalogSnapshot {
	return i.snapshot.Load()
}

// buildSearchText derives the lowercase search string from a product record
func buildSearchText(p domain.Product) string {
	parts := []string{p.Name, p.Brand, p.Category}
	if p.WeightSize != "" {
		parts = append(parts, p.WeightSize)
	}
	return strings.ToLower(strings.TrimSpace(strings.Join(parts, " ")))
}
