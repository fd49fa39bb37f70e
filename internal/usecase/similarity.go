package usecase

import (
	"math"
	"regexp"
	"strings"
)

var punctuationRegex = regexp.MustCompile(`[^\p{L}\p{N}\s]`)

// tokenize splits a string into normalized lowercase tokens. Punctuation is
// stripped; single-character tokens are skipped.
func tokenize(s string) []string {
	cleaned := punctuationRegex.ReplaceAllString(strings.ToLower(s), " ")
	words := strings.Fields(cleaned)

	var tokens []string
	for _, word := range words {
		if len(word) <= 1 {
			continue
		}
		tokens = append(tokens, word)
	}
	return tokens
}

// ngramTokens returns unigrams plus bigrams, the term space the catalog
// vectorizer is built over.
func ngramTokens(s string) []string {
	unigrams := tokenize(s)
	tokens := make([]string, 0, len(unigrams)*2)
	tokens = append(tokens, unigrams...)
	for i := 0; i+1 < len(unigrams); i++ {
		tokens = append(tokens, unigrams[i]+" "+unigrams[i+1])
	}
	return tokens
}

// vectorizer maps text onto TF-IDF vectors over a fixed vocabulary. It is
// built once per catalog snapshot and never mutated afterwards.
type vectorizer struct {
	vocab map[string]int
	idf   []float64
}

// buildVectorizer fits a vocabulary and IDF weights over the given documents
func buildVectorizer(docs []string) *vectorizer {
	v := &vectorizer{vocab: make(map[string]int)}

	docFreq := make(map[string]int)
	for _, doc := range docs {
		seen := make(map[string]bool)
		for _, term := range ngramTokens(doc) {
			if _, ok := v.vocab[term]; !ok {
				v.vocab[term] = len(v.vocab)
			}
			if !seen[term] {
				seen[term] = true
				docFreq[term]++
			}
		}
	}

	n := float64(len(docs))
	v.idf = make([]float64, len(v.vocab))
	for term, idx := range v.vocab {
		// Smoothed IDF so terms present in every document keep a small weight
		v.idf[idx] = math.Log((1+n)/(1+float64(docFreq[term]))) + 1
	}
	return v
}

// vectorize maps text onto an L2-normalized TF-IDF vector. Terms outside the
// vocabulary are ignored.
func (v *vectorizer) vectorize(text string) []float64 {
	vec := make([]float64, len(v.vocab))
	for _, term := range ngramTokens(text) {
		if idx, ok := v.vocab[term]; ok {
			vec[idx] += v.idf[idx]
		}
	}

	var norm float64
	for _, x := range vec {
		norm += x * x
	}
	if norm == 0 {
		return vec
	}
	norm = math.Sqrt(norm)
	for i := range vec {
		vec[i] /= norm
	}
	return vec
}

// cosineSimilarity computes the dot product of two L2-normalized vectors
func cosineSimilarity(a, b []float64) float64 {
	if len(a) != len(b) {
		return 0
	}
	var dot float64
	for i := range a {
		dot += a[i] * b[i]
	}
	return dot
}

// levenshteinDistance calculates the edit distance between two strings
func levenshteinDistance(s1, s2 string) int {
	if len(s1) == 0 {
		return len(s2)
	}
	if len(s2) == 0 {
		return len(s1)
	}

	r1 := []rune(s1)
	r2 := []rune(s2)
	m := len(r1)
	n := len(r2)

	// Two rows instead of the full matrix for space efficiency
	prev := make([]int, n+1)
	curr := make([]int, n+1)

	for j := 0; j <= n; j++ {
		prev[j] = j
	}

	for i := 1; i <= m; i++ {
		curr[0] = i
		for j := 1; j <= n; j++ {
			cost := 0
			if r1[i-1] != r2[j-1] {
				cost = 1
			}
			curr[j] = min(
				prev[j]+1,      // deletion
				curr[j-1]+1,    // insertion
				prev[j-1]+cost, // substitution
			)
		}
		prev, curr = curr, prev
	}

	return prev[n]
}

// partialRatio is the best similarity in [0,1] between the shorter of the
// two strings and any equal-length window of the longer one. Tolerant of a
// product name buried inside a long message, the way an abbreviation or typo
// still lines up with part of the text.
func partialRatio(a, b string) float64 {
	shorter, longer := []rune(a), []rune(b)
	if len(shorter) > len(longer) {
		shorter, longer = longer, shorter
	}
	if len(shorter) == 0 {
		return 0
	}
	if len(shorter) == len(longer) {
		dist := levenshteinDistance(string(shorter), string(longer))
		return 1 - float64(dist)/float64(len(shorter))
	}

	best := 0.0
	target := string(shorter)
	for i := 0; i+len(shorter) <= len(longer); i++ {
		window := string(longer[i : i+len(shorter)])
		dist := levenshteinDistance(target, window)
		ratio := 1 - float64(dist)/float64(len(shorter))
		if ratio > best {
			best = ratio
		}
		if best == 1 {
			break
		}
	}
	return best
}
