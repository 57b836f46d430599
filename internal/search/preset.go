package search

import (
	"strings"

	"github.com/google/uuid"
)

// Keyword matching modes. ModeAll is the exposed search contract (every
// phrase must match); ModeAny is available on saved presets.
const (
	ModeAll = "all"
	ModeAny = "any"
)

// Criteria is a pure filter description evaluated over committed documents.
// Terms must already be normalized (SplitTerms / Normalize).
type Criteria struct {
	Terms         []string
	Mode          string
	ExcludeTerms  []string // any hit rejects the document
	AgeMin        *int
	AgeMax        *int
	ExperienceMin *int
	ExperienceMax *int
}

// Doc is the committed, read-only projection a query evaluates against.
type Doc struct {
	ID         uuid.UUID
	Text       string // normalized_search_text
	Age        *int
	Experience *int
}

// MatchesTerms reports whether a normalized text satisfies the phrase terms.
// Each term is a literal substring test; mode all ANDs them, mode any ORs.
func MatchesTerms(text string, terms []string, mode string) bool {
	if len(terms) == 0 {
		return true
	}
	if mode == ModeAny {
		for _, term := range terms {
			if strings.Contains(text, term) {
				return true
			}
		}
		return false
	}
	for _, term := range terms {
		if !strings.Contains(text, term) {
			return false
		}
	}
	return true
}

// inRange applies an inclusive [min, max] filter. An absent value is excluded
// whenever either bound is active; it never matches as a wildcard.
func inRange(value, min, max *int) bool {
	if min == nil && max == nil {
		return true
	}
	if value == nil {
		return false
	}
	if min != nil && *value < *min {
		return false
	}
	if max != nil && *value > *max {
		return false
	}
	return true
}

// Matches reports whether a single document satisfies every active filter.
func (c Criteria) Matches(doc Doc) bool {
	if !MatchesTerms(doc.Text, c.Terms, c.Mode) {
		return false
	}
	for _, term := range c.ExcludeTerms {
		if strings.Contains(doc.Text, term) {
			return false
		}
	}
	if !inRange(doc.Age, c.AgeMin, c.AgeMax) {
		return false
	}
	return inRange(doc.Experience, c.ExperienceMin, c.ExperienceMax)
}

// Filter evaluates criteria over a corpus and returns the ids of documents
// satisfying every criteria, in corpus order. A preset and a free-text query
// compose by passing both: the result is their intersection.
func Filter(docs []Doc, criteria ...Criteria) []uuid.UUID {
	var ids []uuid.UUID
	for _, doc := range docs {
		ok := true
		for _, c := range criteria {
			if !c.Matches(doc) {
				ok = false
				break
			}
		}
		if ok {
			ids = append(ids, doc.ID)
		}
	}
	return ids
}
