package entity

import (
	"time"

	"github.com/google/uuid"
)

// Preset is a named, reusable filter: phrase terms plus optional numeric
// ranges. Presets own no documents; they are pure filter descriptions.
type Preset struct {
	ID            uuid.UUID `json:"id"`
	OwnerID       string    `json:"owner_id"`
	Name          string    `json:"name"`
	Keywords      []string  `json:"keywords"`
	KeywordsMode  string    `json:"keywords_mode"`
	ExcludeTerms  []string  `json:"exclude_terms,omitempty"`
	AgeMin        *int      `json:"age_min,omitempty"`
	AgeMax        *int      `json:"age_max,omitempty"`
	ExperienceMin *int      `json:"experience_min,omitempty"`
	ExperienceMax *int      `json:"experience_max,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}
