package search

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	reSpaces    = regexp.MustCompile(`\s+`)
	reTermSplit = regexp.MustCompile(`[,\s]+`)
)

var ordinalReplacer = strings.NewReplacer("º", "o", "ª", "a", "°", "o")

// Fold strips diacritics from text, keeping case and spacing intact.
// Ordinal indicators (º, ª) survive NFKD decomposition and are mapped by hand.
func Fold(s string) string {
	if s == "" {
		return s
	}
	s = ordinalReplacer.Replace(s)
	t := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// Normalize derives the canonical search representation of text: diacritics
// stripped, lowercased, runs of whitespace collapsed to single spaces, and
// trimmed. It is total: any input, including empty, yields a valid result.
func Normalize(s string) string {
	s = Fold(s)
	s = strings.ToLower(s)
	s = reSpaces.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// SplitTerms parses a free-text query into normalized phrase terms.
// A query containing ';' splits on it (phrases may hold spaces); otherwise it
// splits on commas and whitespace. Duplicates and empties are dropped,
// declaration order is kept.
func SplitTerms(raw string) []string {
	if raw == "" {
		return nil
	}
	var parts []string
	if strings.Contains(raw, ";") {
		parts = strings.Split(raw, ";")
	} else {
		parts = reTermSplit.Split(raw, -1)
	}
	var terms []string
	seen := make(map[string]struct{})
	for _, part := range parts {
		normalized := Normalize(part)
		if normalized == "" {
			continue
		}
		if _, dup := seen[normalized]; dup {
			continue
		}
		seen[normalized] = struct{}{}
		terms = append(terms, normalized)
	}
	return terms
}
