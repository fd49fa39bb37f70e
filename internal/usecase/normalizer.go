package usecase

import (
	"regexp"
	"strings"
)

// Package-level compiled regex patterns for performance
var (
	// Matches links to images and documents, which carry no order information
	fileLinkRegex = regexp.MustCompile(`(?i)https?://\S+\.(?:jpg|jpeg|png|gif|webp|pdf|docx?)\b`)

	// Anything outside the allow-list: letters, digits, whitespace and the
	// punctuation the downstream pattern cascades rely on (currency, colons,
	// URL characters, separators).
	disallowedCharRegex = regexp.MustCompile(`[^\p{L}\p{N}_\s.,:;#@$%&?=/()+\-]`)

	// Runs of spaces and tabs, not touching newlines
	repeatedSpaceRegex = regexp.MustCompile(`[ \t]+`)

	// Newlines with any surrounding horizontal whitespace collapse to one
	repeatedNewlineRegex = regexp.MustCompile(`[ \t]*\n[\s]*`)
)

// NormalizeMessage produces the canonical representation of a raw chat
// message for the downstream extractors. It strips characters outside the
// allow-list, removes file/image links, collapses repeated whitespace to
// single spaces and repeated newlines to single newlines.
//
// It is a pure function: the same input always yields the same output, and
// normalizing an already-normalized message is a no-op. Case is preserved;
// matching components case-fold independently as needed.
func NormalizeMessage(message string) string {
	clean := strings.ReplaceAll(message, "\r\n", "\n")
	clean = fileLinkRegex.ReplaceAllString(clean, " ")
	clean = disallowedCharRegex.ReplaceAllString(clean, " ")
	clean = repeatedSpaceRegex.ReplaceAllString(clean, " ")
	clean = repeatedNewlineRegex.ReplaceAllString(clean, "\n")
	return strings.TrimSpace(clean)
}
